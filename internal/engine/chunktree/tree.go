package chunktree

import (
	"bytes"
	"io"
)

// Tree is an immutable chunk tree for byte storage.
// Operations return new Tree values; the original is never modified.
// Unchanged subtrees are shared between versions, so holding an old Tree
// value is a valid, cheap snapshot that later writes cannot corrupt.
type Tree struct {
	root *node
}

// New creates an empty tree.
func New() Tree {
	return Tree{root: newLeaf()}
}

// FromBytes creates a tree from heap bytes. The data is copied, so the
// caller may reuse its slice. All chunks are marked dirty.
func FromBytes(data []byte) Tree {
	if len(data) == 0 {
		return New()
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	return buildFromChunks(splitIntoChunks(owned, true))
}

// FromMapped creates a tree whose chunks alias the given memory-mapped file
// region. The data is not copied and the chunks are clean: nothing needs to
// be written back until an edit dirties part of the tree. The mapping must
// outlive every Tree value derived from this one.
func FromMapped(data []byte) Tree {
	if len(data) == 0 {
		return New()
	}
	return buildFromChunks(splitIntoChunks(data, false))
}

// buildFromChunks builds a balanced tree from a slice of chunks.
func buildFromChunks(chunks []Chunk) Tree {
	if len(chunks) == 0 {
		return New()
	}

	var leaves []*node
	for i := 0; i < len(chunks); i += MaxChunksPerLeaf {
		end := i + MaxChunksPerLeaf
		if end > len(chunks) {
			end = len(chunks)
		}
		leafChunks := make([]Chunk, end-i)
		copy(leafChunks, chunks[i:end])
		leaves = append(leaves, newLeafWithChunks(leafChunks))
	}

	return Tree{root: buildFromChildren(leaves)}
}

// Len returns the total byte length.
func (t Tree) Len() int {
	if t.root == nil {
		return 0
	}
	return t.root.size
}

// IsEmpty returns true if the tree contains no bytes.
func (t Tree) IsEmpty() bool {
	return t.Len() == 0
}

// Dirty returns true if any chunk holds heap bytes rather than aliasing
// the backing mapping. Note this does not imply the file is up to date: a
// delete of mapped content leaves every remaining chunk clean.
func (t Tree) Dirty() bool {
	return t.root != nil && t.root.dirty
}

// ByteAt returns the byte at the given offset.
// Returns 0 and false if offset is out of range.
func (t Tree) ByteAt(offset int) (byte, bool) {
	if t.root == nil {
		return 0, false
	}
	return t.root.byteAt(offset)
}

// Slice returns a copy of the bytes in the range [start, end).
// The range is clamped to the tree bounds.
func (t Tree) Slice(start, end int) []byte {
	if t.root == nil || start >= end || start >= t.Len() {
		return nil
	}
	if start < 0 {
		start = 0
	}
	if end > t.Len() {
		end = t.Len()
	}

	var buf bytes.Buffer
	buf.Grow(end - start)
	t.root.appendRange(&buf, start, end)
	return buf.Bytes()
}

// Bytes returns a copy of the full content.
// Use sparingly for large trees.
func (t Tree) Bytes() []byte {
	return t.Slice(0, t.Len())
}

// WriteTo writes the full content to w, chunk by chunk.
func (t Tree) WriteTo(w io.Writer) (int64, error) {
	var written int64
	it := t.Chunks()
	for it.Next() {
		n, err := w.Write(it.Chunk().Bytes())
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// Insert inserts data at the given byte offset, returning a new tree.
// The data is copied and the inserted chunks are marked dirty.
// Offsets beyond the end append.
func (t Tree) Insert(offset int, data []byte) Tree {
	if len(data) == 0 {
		return t
	}

	if t.root == nil || t.Len() == 0 {
		return FromBytes(data)
	}

	if offset <= 0 {
		return FromBytes(data).Concat(t)
	}
	if offset >= t.Len() {
		return t.Concat(FromBytes(data))
	}

	left, right := t.Split(offset)
	return left.Concat(FromBytes(data)).Concat(right)
}

// Delete removes the byte range [start, end), returning a new tree.
// The range is clamped to the tree bounds.
func (t Tree) Delete(start, end int) Tree {
	if t.root == nil || start >= end {
		return t
	}

	treeLen := t.Len()
	if start < 0 {
		start = 0
	}
	if start >= treeLen {
		return t
	}
	if end > treeLen {
		end = treeLen
	}

	if start == 0 && end >= treeLen {
		return New()
	}
	if start == 0 {
		_, right := t.Split(end)
		return right
	}
	if end >= treeLen {
		left, _ := t.Split(start)
		return left
	}

	left, temp := t.Split(start)
	_, right := temp.Split(end - start)
	return left.Concat(right)
}

// Split splits the tree at offset, returning two trees.
// Left contains [0, offset), right contains [offset, end).
func (t Tree) Split(offset int) (Tree, Tree) {
	if t.root == nil || offset <= 0 {
		return New(), t
	}
	if offset >= t.Len() {
		return t, New()
	}

	leftRoot, rightRoot := t.root.split(offset)
	return Tree{root: leftRoot}, Tree{root: rightRoot}
}

// Concat concatenates two trees, returning a new tree.
func (t Tree) Concat(other Tree) Tree {
	if t.root == nil || t.Len() == 0 {
		return other
	}
	if other.root == nil || other.Len() == 0 {
		return t
	}

	return Tree{root: concat(t.root, other.root)}
}

// Equals returns true if two trees contain the same bytes.
// This compares content, not structure.
func (t Tree) Equals(other Tree) bool {
	if t.Len() != other.Len() {
		return false
	}

	it1 := t.Chunks()
	it2 := other.Chunks()

	var rest1, rest2 []byte
	for {
		if len(rest1) == 0 {
			if !it1.Next() {
				break
			}
			rest1 = it1.Chunk().Bytes()
			continue
		}
		if len(rest2) == 0 {
			if !it2.Next() {
				return false
			}
			rest2 = it2.Chunk().Bytes()
			continue
		}

		n := len(rest1)
		if len(rest2) < n {
			n = len(rest2)
		}
		if !bytes.Equal(rest1[:n], rest2[:n]) {
			return false
		}
		rest1 = rest1[n:]
		rest2 = rest2[n:]
	}
	return len(rest2) == 0 && !it2.Next()
}

// Height returns the height of the tree.
// Useful for debugging and testing balance.
func (t Tree) Height() int {
	if t.root == nil {
		return 0
	}
	return int(t.root.height) + 1
}

// ChunkCount returns the total number of chunks in the tree.
// Useful for debugging.
func (t Tree) ChunkCount() int {
	if t.root == nil {
		return 0
	}
	return countChunks(t.root)
}

func countChunks(n *node) int {
	if n.isLeaf() {
		return len(n.chunks)
	}
	count := 0
	for _, child := range n.children {
		count += countChunks(child)
	}
	return count
}
