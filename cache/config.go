package cache

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxSize is the MaxSize used by DefaultConfig.
const DefaultMaxSize = 100

// Config configures a Manager.
type Config struct {
	// StoragePath is the directory holding entry files. ${VAR} references
	// are expanded and must be set. If empty, os.TempDir() is used.
	StoragePath string

	// Lazy re-reads a value from disk each time it is requested. When false,
	// values are decoded once while the directory is scanned.
	Lazy bool

	// MaxSize is accepted for compatibility but not enforced; entries are
	// never evicted.
	MaxSize int
}

// DefaultConfig returns the default manager configuration.
// StoragePath: os.TempDir(), Lazy: true, MaxSize: 100
func DefaultConfig() Config {
	return Config{
		StoragePath: os.TempDir(),
		Lazy:        true,
		MaxSize:     DefaultMaxSize,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MaxSize < 0 {
		return fmt.Errorf("%w: max size must not be negative, got %d", ErrInvalidConfig, c.MaxSize)
	}
	if _, err := c.Dir(); err != nil {
		return err
	}
	return nil
}

// Dir returns the storage directory with environment references expanded.
func (c Config) Dir() (string, error) {
	if strings.TrimSpace(c.StoragePath) == "" {
		return os.TempDir(), nil
	}
	dir, err := expandEnvStrict(c.StoragePath)
	if err != nil {
		return "", fmt.Errorf("%w: storage path: %w", ErrInvalidConfig, err)
	}
	return dir, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvStrict expands $VAR and ${VAR} in s. A ${VAR} that is not set is
// an error; $$ emits a literal $.
func expandEnvStrict(s string) (string, error) {
	const dollarSentinel = "\x00MEMO_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollarSentinel)

	missing := make(map[string]struct{})
	for _, match := range envVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := os.LookupEnv(match[1]); !ok {
			missing[match[1]] = struct{}{}
		}
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for k := range missing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(keys, ", "))
	}

	s = os.ExpandEnv(s)
	return strings.ReplaceAll(s, dollarSentinel, "$"), nil
}
