// Package pathutil provides utilities for safe path handling.
package pathutil

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrEmptyPath = errors.New("path cannot be empty")
	ErrNullBytes = errors.New("path contains null bytes")
)

// ValidatePath cleans a user-supplied path and rejects obviously hostile
// input. Symlinks are resolved when the target exists so reports are never
// written through a link.
func ValidatePath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	cleaned := filepath.Clean(path)
	if strings.Contains(cleaned, "\x00") {
		return "", ErrNullBytes
	}

	realPath, err := filepath.EvalSymlinks(cleaned)
	if err != nil {
		// Path doesn't exist yet; the cleaned form is still usable for
		// creating new files.
		return cleaned, nil
	}
	return realPath, nil
}
