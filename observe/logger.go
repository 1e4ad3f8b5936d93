package observe

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"slices"
	"sync"
	"time"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// ParseLogLevel parses a level name. Unknown names are LevelInfo.
func ParseLogLevel(s string) LogLevel {
	for lvl, name := range levelNames {
		if name == s {
			return LogLevel(lvl)
		}
	}
	return LevelInfo
}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelError {
		return levelNames[LevelInfo]
	}
	return levelNames[l]
}

// jsonLogger writes one JSON object per line: timestamp, level, msg, the
// operation attributes and the call's fields.
type jsonLogger struct {
	level LogLevel
	out   *lockedWriter
	attrs []Field
}

// lockedWriter serializes writes from a logger and every logger scoped from it.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) writeLine(line []byte) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	_, _ = lw.w.Write(line)
}

// NewLogger creates a JSON logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a JSON logger writing to w.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	return &jsonLogger{
		level: ParseLogLevel(level),
		out:   &lockedWriter{w: w},
	}
}

// WithOp returns a logger that adds memo.op and memo.namespace to every line.
func (l *jsonLogger) WithOp(meta OpMeta) Logger {
	attrs := slices.Clone(l.attrs)
	if meta.Op != "" {
		attrs = append(attrs, Field{Key: "memo.op", Value: meta.Op})
	}
	if meta.Namespace != "" {
		attrs = append(attrs, Field{Key: "memo.namespace", Value: meta.Namespace})
	}
	return &jsonLogger{level: l.level, out: l.out, attrs: attrs}
}

func (l *jsonLogger) Debug(_ context.Context, msg string, fields ...Field) {
	l.write(LevelDebug, msg, fields)
}

func (l *jsonLogger) Info(_ context.Context, msg string, fields ...Field) {
	l.write(LevelInfo, msg, fields)
}

func (l *jsonLogger) Warn(_ context.Context, msg string, fields ...Field) {
	l.write(LevelWarn, msg, fields)
}

func (l *jsonLogger) Error(_ context.Context, msg string, fields ...Field) {
	l.write(LevelError, msg, fields)
}

func (l *jsonLogger) write(level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}

	line := make(map[string]any, len(l.attrs)+len(fields)+3)
	for _, f := range l.attrs {
		line[f.Key] = f.Value
	}
	for _, f := range fields {
		line[f.Key] = redact(f)
	}
	line["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	line["level"] = level.String()
	line["msg"] = msg

	data, err := json.Marshal(line)
	if err != nil {
		// unencodable field value
		return
	}
	l.out.writeLine(append(data, '\n'))
}

func redact(f Field) any {
	if slices.Contains(RedactedFields, f.Key) {
		return "[REDACTED]"
	}
	return f.Value
}

var _ Logger = (*jsonLogger)(nil)
