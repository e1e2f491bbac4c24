// Package filter decides which files found under a directory argument join
// the selection.
package filter

import (
	"path/filepath"
	"strings"
)

// Config holds filter configuration. Patterns are matched case-insensitively
// so "*.jpg" also picks up "FRONT.JPG".
type Config struct {
	// Include patterns (glob-style) matched against the base name.
	// Empty means include all.
	// Example: []string{"*.jpg", "*.png"}
	Include []string

	// Exclude patterns (glob-style) matched against the base name.
	// Takes precedence over Include.
	// Example: []string{"thumb_*"}
	Exclude []string

	// PathInclude patterns match against the path relative to the directory
	// argument. Supports ** for multi-directory matching.
	// Example: []string{"front/**", "**/side_*.jpg"}
	PathInclude []string
}

// Empty reports whether the config lets everything through.
func (c Config) Empty() bool {
	return len(c.Include) == 0 && len(c.Exclude) == 0 && len(c.PathInclude) == 0
}

// Match reports whether the file at relPath passes the filter.
func Match(relPath string, c Config) bool {
	if c.Empty() {
		return true
	}
	relPath = strings.ToLower(filepath.ToSlash(relPath))
	name := relPath
	if i := strings.LastIndex(relPath, "/"); i >= 0 {
		name = relPath[i+1:]
	}

	if len(c.PathInclude) > 0 && !matchesAnyPath(relPath, c.PathInclude) {
		return false
	}
	for _, pattern := range c.Exclude {
		if globMatch(strings.ToLower(pattern), name) {
			return false
		}
	}
	if len(c.Include) == 0 {
		return true
	}
	for _, pattern := range c.Include {
		if globMatch(strings.ToLower(pattern), name) {
			return true
		}
	}
	return false
}

// Apply keeps the relative paths that pass the filter, in order.
func Apply(relPaths []string, c Config) []string {
	if c.Empty() {
		return relPaths
	}
	out := make([]string, 0, len(relPaths))
	for _, p := range relPaths {
		if Match(p, c) {
			out = append(out, p)
		}
	}
	return out
}

func globMatch(pattern, s string) bool {
	matched, err := filepath.Match(pattern, s)
	return err == nil && matched
}

func matchesAnyPath(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matchPathPattern(path, strings.ToLower(filepath.ToSlash(pattern))) {
			return true
		}
	}
	return false
}

// matchPathPattern matches a slash-separated path against a pattern.
// Supports standard glob patterns plus ** for recursive directory matching.
func matchPathPattern(path, pattern string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoubleStar(path, pattern)
	}
	return globMatch(pattern, path)
}

// matchDoubleStar handles ** patterns.
// Examples:
//   - "**/front.jpg" matches "front.jpg", "a/front.jpg", "a/b/front.jpg"
//   - "batch_1/**" matches "batch_1/x.jpg", "batch_1/a/b/x.jpg"
//   - "batch_*/**/side.jpg" matches "batch_2/side.jpg", "batch_2/a/side.jpg"
func matchDoubleStar(path, pattern string) bool {
	if pattern == "**" {
		return true
	}
	parts := strings.Split(path, "/")

	switch {
	case strings.HasPrefix(pattern, "**/"):
		suffix := pattern[3:]
		for i := range parts {
			if matchPathPattern(strings.Join(parts[i:], "/"), suffix) {
				return true
			}
		}
		return false

	case strings.HasSuffix(pattern, "/**"):
		prefix := pattern[:len(pattern)-3]
		for i := 1; i <= len(parts); i++ {
			if globMatch(prefix, strings.Join(parts[:i], "/")) {
				return true
			}
		}
		return false
	}

	if idx := strings.Index(pattern, "/**/"); idx != -1 {
		prefix, suffix := pattern[:idx], pattern[idx+4:]
		for i := 1; i < len(parts); i++ {
			if !globMatch(prefix, strings.Join(parts[:i], "/")) {
				continue
			}
			for j := i; j <= len(parts); j++ {
				if matchPathPattern(strings.Join(parts[j:], "/"), suffix) {
					return true
				}
			}
		}
		return false
	}

	// Any other use of ** behaves like a single-segment *.
	return globMatch(strings.ReplaceAll(pattern, "**", "*"), path)
}

// ParsePatternList parses a comma-separated list of patterns into a slice.
// Example: "*.jpg, *.png" -> []string{"*.jpg", "*.png"}
func ParsePatternList(patternStr string) []string {
	if patternStr == "" {
		return nil
	}
	parts := strings.Split(patternStr, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
