// Package validation checks names and paths before they are used to build
// filesystem locations.
package validation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateFilename validates a single path element. Storage keys and preview
// names go through it before filepath.Join.
//
// Returns an error if the filename:
//   - Is empty
//   - Contains path separators (/ or \)
//   - Is ".."
//   - Contains null bytes
func ValidateFilename(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if strings.ContainsRune(filename, 0) {
		return fmt.Errorf("filename contains null byte: %q", filename)
	}

	if strings.ContainsRune(filename, '/') || strings.ContainsRune(filename, '\\') {
		return fmt.Errorf("filename cannot contain path separators: %s", filename)
	}

	// Separators are already rejected, so only the literal ".." can traverse.
	// Names like "front..v2.jpg" stay valid.
	if filename == ".." {
		return fmt.Errorf("filename cannot be '..'")
	}

	return nil
}

// ValidatePathInDirectory reports an error when path, resolved against
// baseDir, escapes baseDir.
//
// Example:
//
//	ValidatePathInDirectory("../../etc/passwd", "/tmp/previews") // Error: escapes base dir
//	ValidatePathInDirectory("a.jpg", "/tmp/previews")            // OK
func ValidatePathInDirectory(path string, baseDir string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	if baseDir == "" {
		return fmt.Errorf("base directory cannot be empty")
	}

	cleanBase := filepath.Clean(baseDir)
	if !filepath.IsAbs(cleanBase) {
		abs, err := filepath.Abs(cleanBase)
		if err != nil {
			return fmt.Errorf("failed to resolve base directory: %w", err)
		}
		cleanBase = abs
	}

	resolved := filepath.Clean(path)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(cleanBase, resolved)
	}

	rel, err := filepath.Rel(cleanBase, resolved)
	if err != nil {
		return fmt.Errorf("failed to compute relative path: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path escapes base directory: %s (base: %s)", path, baseDir)
	}

	return nil
}
