package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"aerial/internal/config"
)

// WriteFile creates the target path with the given contents, creating parent
// directories as needed.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSource drops a playlist file into the config's local source directory
// and returns its path.
func WriteSource(t testing.TB, cfg *config.Config, name, contents string) string {
	t.Helper()

	path := filepath.Join(cfg.Sources.LocalDir, name)
	WriteFile(t, path, contents)
	return path
}
