// Package ids generates the opaque identifiers used for selection entries,
// preview handles and history entries.
package ids

import (
	"strconv"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator that produces time-sortable RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Sequence returns a Generator that yields prefix-1, prefix-2, ... .
// Deterministic; intended for tests.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

// Default is the generator used when none is injected.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
