package editlog

import "fmt"

// Kind categorizes an edit.
type Kind uint8

const (
	// KindInsert indicates bytes were inserted.
	KindInsert Kind = iota

	// KindDelete indicates bytes were deleted.
	KindDelete
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Edit is an immutable record of one insert or delete applied to the
// buffer, tagged with the version it produced. Edits carry only positions,
// never content: they exist so stale iterators can replay position
// adjustments, not to reconstruct text.
type Edit struct {
	Version uint64
	Kind    Kind
	Offset  int
	Len     int
}

// NewInsert creates an insert edit record.
func NewInsert(version uint64, offset, length int) Edit {
	return Edit{Version: version, Kind: KindInsert, Offset: offset, Len: length}
}

// NewDelete creates a delete edit record.
func NewDelete(version uint64, offset, length int) Edit {
	return Edit{Version: version, Kind: KindDelete, Offset: offset, Len: length}
}

// AdjustPosition returns pos adjusted for this edit.
// Edits strictly after pos leave it unchanged.
func (e Edit) AdjustPosition(pos int) int {
	if e.Offset > pos {
		return pos
	}
	switch e.Kind {
	case KindInsert:
		return pos + e.Len
	case KindDelete:
		if pos < e.Len {
			return 0
		}
		return pos - e.Len
	default:
		return pos
	}
}

// String returns a human-readable representation of the edit.
func (e Edit) String() string {
	return fmt.Sprintf("v%d %s(%d, %d)", e.Version, e.Kind, e.Offset, e.Len)
}
