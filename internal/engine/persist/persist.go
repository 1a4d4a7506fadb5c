package persist

import (
	"errors"

	"github.com/fathom-editor/fathom/internal/engine/chunktree"
)

// Errors returned by persistence backends.
var (
	// ErrOffsetOutOfRange indicates an offset is outside the valid range.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrRangeInvalid indicates an invalid range (e.g., end < start).
	ErrRangeInvalid = errors.New("invalid range")

	// ErrClosed indicates an operation on a closed backend.
	ErrClosed = errors.New("persistence layer is closed")
)

// Layer is a pluggable storage backend for the virtual buffer.
// Implementations translate logical byte ranges into chunk storage and
// handle all chunk splitting on mutation.
//
// Layer implementations are not safe for concurrent use; the virtual
// buffer serializes access.
type Layer interface {
	// Read returns up to length bytes starting at offset. Reads past the
	// end are truncated; a read at or beyond the end returns nil.
	Read(offset, length int) ([]byte, error)

	// Insert inserts data at the given offset.
	Insert(offset int, data []byte) error

	// Delete removes the byte range [start, end).
	Delete(start, end int) error

	// Len returns the total length of stored data.
	Len() int

	// Snapshot returns a read-only chunk tree snapshot for iteration.
	// The second result is false if the backend cannot provide one.
	Snapshot() (chunktree.Tree, bool)
}

// readTree reads a clamped range from a chunk tree. Shared by backends.
func readTree(t chunktree.Tree, offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, ErrOffsetOutOfRange
	}
	if offset >= t.Len() || length == 0 {
		return nil, nil
	}
	return t.Slice(offset, offset+length), nil
}
