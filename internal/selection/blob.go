// Package selection holds the files a user has picked for the next submission.
package selection

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rescale/imghub/internal/constants"
)

// Blob is a named, typed chunk of bytes that can be streamed more than once.
type Blob interface {
	Name() string
	MediaType() string
	Size() int64
	Open() (io.ReadCloser, error)
}

// IsImage reports whether a media type belongs to the image/* family.
func IsImage(mediaType string) bool {
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}

// FileBlob is a Blob backed by a file on disk.
type FileBlob struct {
	path      string
	mediaType string
	size      int64
}

// NewFileBlob stats path and resolves its media type.
func NewFileBlob(path string) (*FileBlob, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mediaType, err := DetectMediaType(path)
	if err != nil {
		return nil, err
	}

	return &FileBlob{path: path, mediaType: mediaType, size: info.Size()}, nil
}

// Name returns the base name of the file.
func (f *FileBlob) Name() string { return filepath.Base(f.path) }

// Path returns the path the blob was created from.
func (f *FileBlob) Path() string { return f.path }

// MediaType returns the detected media type.
func (f *FileBlob) MediaType() string { return f.mediaType }

// Size returns the file size at creation time.
func (f *FileBlob) Size() int64 { return f.size }

// Open opens the file for reading.
func (f *FileBlob) Open() (io.ReadCloser, error) {
	return os.Open(f.path)
}

// DetectMediaType resolves a media type from the file extension and falls
// back to content sniffing when the extension is unknown.
func DetectMediaType(path string) (string, error) {
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		if mt, _, err := mime.ParseMediaType(byExt); err == nil {
			return mt, nil
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, constants.SniffLength)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	mt, _, err := mime.ParseMediaType(http.DetectContentType(buf[:n]))
	if err != nil {
		return "application/octet-stream", nil
	}
	return mt, nil
}

// BytesBlob is an in-memory Blob.
type BytesBlob struct {
	name      string
	mediaType string
	data      []byte
}

// NewBytesBlob creates a Blob over data. An empty mediaType is sniffed.
func NewBytesBlob(name, mediaType string, data []byte) *BytesBlob {
	if mediaType == "" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	return &BytesBlob{name: name, mediaType: mediaType, data: data}
}

func (b *BytesBlob) Name() string      { return b.name }
func (b *BytesBlob) MediaType() string { return b.mediaType }
func (b *BytesBlob) Size() int64       { return int64(len(b.data)) }

// Open returns a reader over the blob's bytes.
func (b *BytesBlob) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.data)), nil
}
