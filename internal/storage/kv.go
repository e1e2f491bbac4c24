// Package storage provides the key-value media that back persisted history.
//
// A KV stores opaque byte values under string keys. Implementations:
//   - FileKV: one file per key inside a directory, atomic temp+rename writes
//   - SQLiteKV: a single kv table in an SQLite database (WAL mode)
//   - MemoryKV: process-local map, used in tests and for --no-persist runs
package storage

import (
	"errors"
	"fmt"
	"path/filepath"
)

// KV is a minimal key-value medium.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// ErrInvalidKey is returned for keys that cannot be stored.
var ErrInvalidKey = errors.New("invalid storage key")

// Open returns the KV for a backend name.
//   - "file": path is a directory
//   - "sqlite": path is a directory; the database is <path>/history.db
//   - "memory": path is ignored
func Open(backend, path string) (KV, error) {
	switch backend {
	case "file", "":
		return NewFileKV(path)
	case "sqlite":
		return OpenSQLite(filepath.Join(path, "history.db"))
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}

// Close closes kv if it holds resources.
func Close(kv KV) error {
	if c, ok := kv.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
