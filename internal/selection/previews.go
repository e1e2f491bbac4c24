package selection

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/rescale/imghub/internal/util/buffers"
	"github.com/rescale/imghub/internal/util/ids"
	"github.com/rescale/imghub/internal/validation"
)

// PreviewAllocator hands out display handles for selected blobs. Every
// allocated handle must be released exactly once.
type PreviewAllocator interface {
	Allocate(b Blob) (string, error)
	Release(handle string) error
}

// RegistryPreviews allocates opaque preview://<uuid> handles and tracks
// which ones are live.
type RegistryPreviews struct {
	mu   sync.Mutex
	live map[string]string
}

// NewRegistryPreviews creates an empty registry.
func NewRegistryPreviews() *RegistryPreviews {
	return &RegistryPreviews{live: make(map[string]string)}
}

// Allocate registers a new handle for b.
func (r *RegistryPreviews) Allocate(b Blob) (string, error) {
	handle := "preview://" + ids.New()
	r.mu.Lock()
	r.live[handle] = b.Name()
	r.mu.Unlock()
	return handle, nil
}

// Release forgets handle. Unknown handles are an error.
func (r *RegistryPreviews) Release(handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[handle]; !ok {
		return fmt.Errorf("unknown preview handle %s", handle)
	}
	delete(r.live, handle)
	return nil
}

// Live returns the number of allocated, unreleased handles.
func (r *RegistryPreviews) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// DirPreviews copies each blob into a private temp directory and hands out
// file:// URIs to the copies. Releasing a handle deletes its file.
type DirPreviews struct {
	mu  sync.Mutex
	dir string
}

// NewDirPreviews creates a fresh preview directory under parent
// (os.TempDir() when empty).
func NewDirPreviews(parent string) (*DirPreviews, error) {
	dir, err := os.MkdirTemp(parent, "imghub-previews-")
	if err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	return &DirPreviews{dir: dir}, nil
}

// Dir returns the preview directory.
func (d *DirPreviews) Dir() string {
	return d.dir
}

// Allocate copies b into the preview directory.
func (d *DirPreviews) Allocate(b Blob) (string, error) {
	src, err := b.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", b.Name(), err)
	}
	defer src.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	target := filepath.Join(d.dir, ids.New()+filepath.Ext(b.Name()))
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create preview: %w", err)
	}
	if _, err := buffers.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(target)
		return "", fmt.Errorf("failed to write preview: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("failed to write preview: %w", err)
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String(), nil
}

// Release deletes the file behind handle.
func (d *DirPreviews) Release(handle string) error {
	u, err := url.Parse(handle)
	if err != nil || u.Scheme != "file" {
		return fmt.Errorf("invalid preview handle %s", handle)
	}
	p := filepath.FromSlash(u.Path)
	if err := validation.ValidatePathInDirectory(p, d.dir); err != nil || filepath.Dir(p) != filepath.Clean(d.dir) {
		return fmt.Errorf("preview handle %s is outside %s", handle, d.dir)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("failed to release preview: %w", err)
	}
	return nil
}

// Live returns the number of preview files currently on disk.
func (d *DirPreviews) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0
	}
	return len(entries)
}

// Close removes the preview directory and anything left in it.
func (d *DirPreviews) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return os.RemoveAll(d.dir)
}
