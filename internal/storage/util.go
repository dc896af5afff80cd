package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureParentDir creates the directory holding file. Usage records are
// per-user data, so the directory is private to the owner.
func EnsureParentDir(file string) error {
	dir := filepath.Dir(file)
	if dir == "." || dir == string(filepath.Separator) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create storage directory %s: %w", dir, err)
	}
	return nil
}
