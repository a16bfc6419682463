package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFileName accepts a single relative path element with no separators
// or traversal, such as an attachment id used as a file name.
func ValidateFileName(name string) error {
	if name == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("invalid file name: %q", name)
	}
	return nil
}

// ValidateFilePathWithBase checks that a relative path stays inside baseDir.
func ValidateFilePathWithBase(path, baseDir string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}

	rel, err := filepath.Rel(filepath.Clean(baseDir), filepath.Join(baseDir, path))
	if err != nil {
		return fmt.Errorf("path escapes base directory: %s", path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s", path)
	}
	return nil
}

// StoragePath resolves where a named file is kept under baseDir.
func StoragePath(baseDir, name string) (string, error) {
	if err := ValidateFileName(name); err != nil {
		return "", err
	}
	if err := ValidateFilePathWithBase(name, baseDir); err != nil {
		return "", err
	}
	return filepath.Join(baseDir, name), nil
}
