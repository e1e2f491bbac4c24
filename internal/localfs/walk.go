package localfs

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FileEntry represents a file or directory found by Walk.
type FileEntry struct {
	Path  string // Full path
	Rel   string // Path relative to the walk root
	Name  string // Base name
	Size  int64  // Size in bytes (0 for directories)
	IsDir bool
	Depth int // 0 for the root's direct children
}

// WalkOptions configures Walk.
type WalkOptions struct {
	// IncludeHidden visits dot files and dot directories.
	IncludeHidden bool

	// Recursive descends into subdirectories. When false only the root's
	// direct children are visited.
	Recursive bool
}

// WalkFunc is the callback signature for Walk.
// Return filepath.SkipDir to skip a directory, or any other error to stop.
type WalkFunc func(entry FileEntry) error

// Walk traverses root in lexical order, calling fn for each file and
// directory below it (root itself is not reported). Entries that cannot be
// read are skipped.
func Walk(root string, opts WalkOptions, fn WalkFunc) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		depth := strings.Count(rel, string(filepath.Separator))

		if !opts.IncludeHidden && IsHiddenName(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		entry := FileEntry{
			Path:  path,
			Rel:   rel,
			Name:  d.Name(),
			IsDir: d.IsDir(),
			Depth: depth,
		}
		if !d.IsDir() {
			entry.Size = info.Size()
		}

		if err := fn(entry); err != nil {
			return err
		}
		if d.IsDir() && !opts.Recursive {
			return filepath.SkipDir
		}
		return nil
	})
}

// WalkFiles is Walk restricted to regular files.
func WalkFiles(root string, opts WalkOptions, fn WalkFunc) error {
	return Walk(root, opts, func(entry FileEntry) error {
		if entry.IsDir {
			return nil
		}
		return fn(entry)
	})
}
