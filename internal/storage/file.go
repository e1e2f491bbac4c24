package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rescale/imghub/internal/validation"
)

// FileKV stores each key as <dir>/<key>.json.
type FileKV struct {
	mu  sync.RWMutex
	dir string
}

// NewFileKV creates a FileKV rooted at dir. The directory is created lazily on
// the first write.
func NewFileKV(dir string) (*FileKV, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("file storage requires a directory")
	}
	return &FileKV{dir: dir}, nil
}

// Dir returns the root directory.
func (f *FileKV) Dir() string {
	return f.dir
}

func (f *FileKV) path(key string) (string, error) {
	if err := validation.ValidateFilename(key); err != nil || key == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

// Get reads the value for key.
func (f *FileKV) Get(key string) ([]byte, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, false, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", p, err)
	}
	return data, true, nil
}

// Set writes value to a temp file and renames it over the key file.
func (f *FileKV) Set(key string, value []byte) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	tmpFile := p + ".tmp"
	if err := os.WriteFile(tmpFile, value, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpFile, err)
	}

	if err := os.Rename(tmpFile, p); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename %s: %w", tmpFile, err)
	}
	return nil
}

// Remove deletes the key file.
func (f *FileKV) Remove(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	return nil
}
