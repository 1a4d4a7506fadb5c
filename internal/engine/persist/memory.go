package persist

import "github.com/fathom-editor/fathom/internal/engine/chunktree"

// Memory is a chunk-tree backed in-memory persistence layer.
// It backs unsaved documents and tests.
type Memory struct {
	tree chunktree.Tree
}

// NewMemory creates an empty in-memory persistence layer.
func NewMemory() *Memory {
	return &Memory{tree: chunktree.New()}
}

// NewMemoryFromBytes creates an in-memory persistence layer with initial
// content. The data is copied.
func NewMemoryFromBytes(data []byte) *Memory {
	return &Memory{tree: chunktree.FromBytes(data)}
}

// NewMemoryFromTree creates an in-memory persistence layer over an existing
// chunk tree.
func NewMemoryFromTree(tree chunktree.Tree) *Memory {
	return &Memory{tree: tree}
}

// Read returns up to length bytes starting at offset.
func (m *Memory) Read(offset, length int) ([]byte, error) {
	return readTree(m.tree, offset, length)
}

// Insert inserts data at the given offset.
func (m *Memory) Insert(offset int, data []byte) error {
	if offset < 0 {
		return ErrOffsetOutOfRange
	}
	m.tree = m.tree.Insert(offset, data)
	return nil
}

// Delete removes the byte range [start, end).
func (m *Memory) Delete(start, end int) error {
	if start < 0 || end < start {
		return ErrRangeInvalid
	}
	m.tree = m.tree.Delete(start, end)
	return nil
}

// Len returns the total length of stored data.
func (m *Memory) Len() int {
	return m.tree.Len()
}

// Snapshot returns the current chunk tree.
// Trees are immutable, so this is a cheap structural share.
func (m *Memory) Snapshot() (chunktree.Tree, bool) {
	return m.tree, true
}
