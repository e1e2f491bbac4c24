// Package assets maps relative result paths returned by the analysis
// endpoint onto fetchable URLs.
package assets

import (
	"strings"
)

// Resolver joins relative paths onto a base URL.
type Resolver struct {
	base string
}

// NewResolver creates a resolver for base (asset_base_url).
func NewResolver(base string) *Resolver {
	return &Resolver{base: strings.TrimSuffix(base, "/")}
}

// URL returns base + "/" + path. Absolute http(s) paths are returned as-is
// and an empty path yields "".
func (r *Resolver) URL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return r.base + "/" + strings.TrimPrefix(path, "/")
}
