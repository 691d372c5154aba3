package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes data with default permissions (0o644), creating parent
// directories as needed.
func WriteFile(path string, data []byte) error {
	return WriteFileMode(path, data, 0o644)
}

// WriteFileMode writes data with the given file mode, creating parent
// directories as needed.
func WriteFileMode(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, mode)
}

// WriteFileVerified writes data and confirms the result landed on disk with
// the expected size. Removes the file on mismatch so a truncated write never
// masquerades as a published artifact.
func WriteFileVerified(path string, data []byte) error {
	if err := WriteFile(path, data); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("verify write: %w", err)
	}
	if info.Size() != int64(len(data)) {
		_ = os.Remove(path)
		return fmt.Errorf("write size mismatch: wrote %d bytes, found %d", len(data), info.Size())
	}
	return nil
}
