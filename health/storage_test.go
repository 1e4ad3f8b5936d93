package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStorageChecker_Healthy(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.memo", "b.memo", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("xy"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	checker := NewStorageChecker(StorageCheckerConfig{Dir: dir})
	if checker.Name() != "storage" {
		t.Errorf("Name() = %q, want storage", checker.Name())
	}

	result := checker.Check(context.Background())
	if result.Status != StatusHealthy {
		t.Fatalf("Status = %v, want healthy (err: %v)", result.Status, result.Error)
	}
	if result.Details["entries"] != 2 {
		t.Errorf("entries = %v, want 2", result.Details["entries"])
	}
	if result.Details["bytes"] != int64(4) {
		t.Errorf("bytes = %v, want 4", result.Details["bytes"])
	}

	// Probe file must be gone
	leftovers, _ := os.ReadDir(dir)
	for _, de := range leftovers {
		if strings.HasPrefix(de.Name(), ".health-probe-") {
			t.Errorf("probe file left behind: %s", de.Name())
		}
	}
}

func TestStorageChecker_MissingDir(t *testing.T) {
	checker := NewStorageChecker(StorageCheckerConfig{Dir: filepath.Join(t.TempDir(), "missing")})

	result := checker.Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Fatalf("Status = %v, want unhealthy", result.Status)
	}
	if !errors.Is(result.Error, ErrCheckFailed) {
		t.Errorf("Error = %v, want ErrCheckFailed", result.Error)
	}
}

func TestStorageChecker_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	result := NewStorageChecker(StorageCheckerConfig{Dir: path}).Check(context.Background())
	if result.Status != StatusUnhealthy {
		t.Fatalf("Status = %v, want unhealthy", result.Status)
	}
}

func TestStorageChecker_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewStorageChecker(StorageCheckerConfig{Dir: t.TempDir()}).Check(ctx)
	if result.Status != StatusUnhealthy {
		t.Fatalf("Status = %v, want unhealthy", result.Status)
	}
}
