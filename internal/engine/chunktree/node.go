package chunktree

import "bytes"

// Tree structure constants
const (
	// MaxChildren is the maximum children per internal node before splitting.
	MaxChildren = 8

	// MaxChunksPerLeaf is the maximum chunks in a leaf node.
	MaxChunksPerLeaf = 4
)

// node represents a node in the chunk B+ tree.
// Leaf nodes (height == 0) contain byte chunks.
// Internal nodes (height > 0) contain child node references.
// Nodes are immutable after construction; unchanged subtrees are shared
// between tree versions, which is what makes snapshots cheap.
type node struct {
	height uint8
	size   int  // Total bytes in this subtree
	dirty  bool // True if any chunk below holds heap bytes

	children []*node // Internal node fields (height > 0)
	chunks   []Chunk // Leaf node fields (height == 0)
}

// newLeaf creates an empty leaf node.
func newLeaf() *node {
	return &node{height: 0}
}

// newLeafWithChunks creates a leaf node with the given chunks.
func newLeafWithChunks(chunks []Chunk) *node {
	n := &node{height: 0, chunks: chunks}
	for _, c := range chunks {
		n.size += c.Len()
		n.dirty = n.dirty || c.Dirty()
	}
	return n
}

// newInternal creates an internal node with the given children.
func newInternal(children []*node) *node {
	if len(children) == 0 {
		return newLeaf()
	}

	n := &node{
		height:   children[0].height + 1,
		children: children,
	}
	for _, child := range children {
		n.size += child.size
		n.dirty = n.dirty || child.dirty
	}
	return n
}

// isLeaf returns true if this is a leaf node.
func (n *node) isLeaf() bool {
	return n.height == 0
}

// byteAt returns the byte at the given offset within this subtree.
func (n *node) byteAt(offset int) (byte, bool) {
	if offset < 0 || offset >= n.size {
		return 0, false
	}

	for !n.isLeaf() {
		for _, child := range n.children {
			if offset < child.size {
				n = child
				break
			}
			offset -= child.size
		}
	}

	for _, chunk := range n.chunks {
		if offset < chunk.Len() {
			return chunk.data[offset], true
		}
		offset -= chunk.Len()
	}

	return 0, false
}

// appendRange appends the bytes in [start, end) to the buffer.
func (n *node) appendRange(buf *bytes.Buffer, start, end int) {
	if start >= end {
		return
	}

	if n.isLeaf() {
		offset := 0
		for _, chunk := range n.chunks {
			chunkEnd := offset + chunk.Len()

			if chunkEnd <= start {
				offset = chunkEnd
				continue
			}
			if offset >= end {
				break
			}

			sliceStart := 0
			if start > offset {
				sliceStart = start - offset
			}
			sliceEnd := chunk.Len()
			if end < chunkEnd {
				sliceEnd = end - offset
			}

			buf.Write(chunk.data[sliceStart:sliceEnd])
			offset = chunkEnd
		}
		return
	}

	offset := 0
	for _, child := range n.children {
		childEnd := offset + child.size

		if childEnd <= start {
			offset = childEnd
			continue
		}
		if offset >= end {
			break
		}

		childStart := 0
		if start > offset {
			childStart = start - offset
		}
		childEndAdj := child.size
		if end < childEnd {
			childEndAdj = end - offset
		}

		child.appendRange(buf, childStart, childEndAdj)
		offset = childEnd
	}
}

// split splits the node at the given byte offset.
// Returns two nodes: left contains [0, offset), right contains [offset, end).
func (n *node) split(offset int) (*node, *node) {
	if offset <= 0 {
		return newLeaf(), n
	}
	if offset >= n.size {
		return n, newLeaf()
	}

	if n.isLeaf() {
		return n.splitLeaf(offset)
	}
	return n.splitInternal(offset)
}

// splitLeaf splits a leaf node at the given offset.
func (n *node) splitLeaf(offset int) (*node, *node) {
	var leftChunks, rightChunks []Chunk
	currentOffset := 0

	for _, chunk := range n.chunks {
		chunkLen := chunk.Len()

		switch {
		case currentOffset+chunkLen <= offset:
			leftChunks = append(leftChunks, chunk)
		case currentOffset >= offset:
			rightChunks = append(rightChunks, chunk)
		default:
			left, right := chunk.Split(offset - currentOffset)
			if !left.IsEmpty() {
				leftChunks = append(leftChunks, left)
			}
			if !right.IsEmpty() {
				rightChunks = append(rightChunks, right)
			}
		}
		currentOffset += chunkLen
	}

	return newLeafWithChunks(leftChunks), newLeafWithChunks(rightChunks)
}

// splitInternal splits an internal node at the given offset.
func (n *node) splitInternal(offset int) (*node, *node) {
	var leftChildren, rightChildren []*node
	currentOffset := 0

	for _, child := range n.children {
		switch {
		case currentOffset+child.size <= offset:
			leftChildren = append(leftChildren, child)
		case currentOffset >= offset:
			rightChildren = append(rightChildren, child)
		default:
			leftChild, rightChild := child.split(offset - currentOffset)
			if leftChild.size > 0 {
				leftChildren = append(leftChildren, leftChild)
			}
			if rightChild.size > 0 {
				rightChildren = append(rightChildren, rightChild)
			}
		}
		currentOffset += child.size
	}

	return buildFromChildren(leftChildren), buildFromChildren(rightChildren)
}

// buildFromChildren creates a balanced tree from a list of child nodes.
// All children must have the same height.
func buildFromChildren(children []*node) *node {
	if len(children) == 0 {
		return newLeaf()
	}
	if len(children) == 1 {
		return children[0]
	}
	if len(children) <= MaxChildren {
		return newInternal(children)
	}

	var parents []*node
	for i := 0; i < len(children); i += MaxChildren {
		end := i + MaxChildren
		if end > len(children) {
			end = len(children)
		}
		parents = append(parents, newInternal(children[i:end]))
	}

	return buildFromChildren(parents)
}

// concat concatenates two nodes.
func concat(left, right *node) *node {
	if left == nil || left.size == 0 {
		if right == nil {
			return newLeaf()
		}
		return right
	}
	if right == nil || right.size == 0 {
		return left
	}

	if left.isLeaf() && right.isLeaf() {
		return concatLeaves(left, right)
	}

	// Bring to same height by wrapping the shorter one
	for left.height < right.height {
		left = newInternal([]*node{left})
	}
	for right.height < left.height {
		right = newInternal([]*node{right})
	}

	return mergeNodes(left, right)
}

// concatLeaves concatenates two leaf nodes.
func concatLeaves(left, right *node) *node {
	totalChunks := len(left.chunks) + len(right.chunks)

	if totalChunks <= MaxChunksPerLeaf {
		chunks := make([]Chunk, 0, totalChunks)
		chunks = append(chunks, left.chunks...)
		chunks = append(chunks, right.chunks...)
		return newLeafWithChunks(chunks)
	}

	return newInternal([]*node{left, right})
}

// mergeNodes merges two nodes of the same height.
func mergeNodes(left, right *node) *node {
	if left.isLeaf() {
		return concatLeaves(left, right)
	}

	allChildren := make([]*node, 0, len(left.children)+len(right.children))
	allChildren = append(allChildren, left.children...)
	allChildren = append(allChildren, right.children...)

	if len(allChildren) <= MaxChildren {
		return newInternal(allChildren)
	}

	return buildFromChildren(allChildren)
}
