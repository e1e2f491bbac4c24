// Package export writes the persisted submission history to a destination
// outside the local store: a file path, an S3 object or an Azure blob.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/rescale/imghub/internal/history"
	"github.com/rescale/imghub/internal/http"
)

// Destination schemes.
const (
	SchemeFile   = "file"
	SchemeS3     = "s3"
	SchemeAzBlob = "azblob"
)

var (
	ErrEmptyDestination = errors.New("export destination is required")
	ErrUnsupported      = errors.New("unsupported export scheme")
	ErrMissingObject    = errors.New("destination must name both a bucket/container and an object")
)

// Destination is a parsed export target.
type Destination struct {
	Scheme string
	// Bucket is the S3 bucket or Azure container; empty for local files.
	Bucket string
	// Key is the object key, blob name or local path.
	Key string
}

func (d Destination) String() string {
	if d.Scheme == SchemeFile {
		return d.Key
	}
	return d.Scheme + "://" + d.Bucket + "/" + d.Key
}

// ParseDestination understands plain paths, file:// URLs, s3://bucket/key and
// azblob://container/blob.
func ParseDestination(raw string) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Destination{}, ErrEmptyDestination
	}
	if !strings.Contains(raw, "://") {
		return Destination{Scheme: SchemeFile, Key: filepath.Clean(raw)}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Destination{}, fmt.Errorf("invalid export destination %q: %w", raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case SchemeFile:
		p := u.Path
		if u.Host != "" {
			p = filepath.Join(u.Host, p)
		}
		if p == "" {
			return Destination{}, ErrMissingObject
		}
		return Destination{Scheme: SchemeFile, Key: filepath.Clean(p)}, nil
	case SchemeS3, SchemeAzBlob:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" || strings.HasSuffix(key, "/") {
			return Destination{}, fmt.Errorf("%w: %s", ErrMissingObject, raw)
		}
		return Destination{Scheme: strings.ToLower(u.Scheme), Bucket: u.Host, Key: key}, nil
	default:
		return Destination{}, fmt.Errorf("%w: %s", ErrUnsupported, u.Scheme)
	}
}

// Sink receives one encoded history document.
type Sink interface {
	Put(ctx context.Context, data []byte) error
}

// Marshal encodes entries as the indented JSON array written by every sink.
func Marshal(entries []history.Entry) ([]byte, error) {
	if entries == nil {
		entries = []history.Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}
	return append(data, '\n'), nil
}

// Write encodes entries and hands them to sink, retrying transient failures
// with the same policy the cloud sinks use.
func Write(ctx context.Context, sink Sink, entries []history.Entry, retry http.Config) error {
	data, err := Marshal(entries)
	if err != nil {
		return err
	}
	if retry.MaxRetries <= 0 {
		retry.MaxRetries = 1
	}
	return http.ExecuteWithRetry(ctx, retry, func() error {
		return sink.Put(ctx, data)
	})
}

// FileSink writes the document to a local path via temp file + rename.
type FileSink struct {
	path string
}

// NewFileSink returns a sink for path.
func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Put writes data to the sink's path, creating parent directories.
func (f *FileSink) Put(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to finalize export: %w", err)
	}
	return nil
}
