// Package validation guards filesystem paths built from cloud file names.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilename rejects file names that cannot be safely joined under the
// download directory. Names come straight from the cloud API and end up in
// filepath.Join, so separators and the bare dot names are refused. Names that
// merely contain dots, like "foo..bar.mkv", stay legal.
func ValidateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("file name is empty")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("file name %q contains a null byte", name)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("file name %q contains a path separator", name)
	}
	if name == ".." || name == "." {
		return fmt.Errorf("file name %q is not allowed", name)
	}
	return nil
}

// WithinDirectory reports whether path stays inside baseDir after cleaning.
func WithinDirectory(path, baseDir string) bool {
	rel, err := filepath.Rel(filepath.Clean(baseDir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
