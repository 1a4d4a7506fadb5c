package chunktree

// chunkFrame represents a position in the tree traversal.
type chunkFrame struct {
	node     *node
	childIdx int // Next child index to visit (for internal nodes)
	chunkIdx int // Next chunk index to visit (for leaf nodes)
	offset   int // Absolute byte offset at start of this node
}

// ChunkIterator iterates over the chunks of a tree in offset order.
type ChunkIterator struct {
	tree       Tree
	stack      []chunkFrame
	started    bool
	chunk      Chunk
	chunkStart int
}

// Chunks returns an iterator over all chunks in the tree.
func (t Tree) Chunks() *ChunkIterator {
	return &ChunkIterator{
		tree:  t,
		stack: make([]chunkFrame, 0, 8),
	}
}

// Next advances to the next chunk.
// Returns true if there is a chunk, false if iteration is complete.
func (it *ChunkIterator) Next() bool {
	if !it.started {
		it.started = true
		if it.tree.root == nil {
			return false
		}
		it.stack = append(it.stack, chunkFrame{node: it.tree.root})
		return it.findNextChunk()
	}

	if len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		if frame.node.isLeaf() {
			frame.chunkIdx++
		}
	}
	return it.findNextChunk()
}

// findNextChunk descends to the next chunk in offset order.
func (it *ChunkIterator) findNextChunk() bool {
	for len(it.stack) > 0 {
		frame := &it.stack[len(it.stack)-1]
		n := frame.node

		if n.isLeaf() {
			if frame.chunkIdx < len(n.chunks) {
				chunkOffset := frame.offset
				for i := 0; i < frame.chunkIdx; i++ {
					chunkOffset += n.chunks[i].Len()
				}
				it.chunk = n.chunks[frame.chunkIdx]
				it.chunkStart = chunkOffset
				return true
			}
			it.pop()
			continue
		}

		if frame.childIdx < len(n.children) {
			childOffset := frame.offset
			for i := 0; i < frame.childIdx; i++ {
				childOffset += n.children[i].size
			}
			it.stack = append(it.stack, chunkFrame{
				node:   n.children[frame.childIdx],
				offset: childOffset,
			})
			continue
		}

		it.pop()
	}

	return false
}

// pop removes the top frame and advances the parent's child index.
func (it *ChunkIterator) pop() {
	it.stack = it.stack[:len(it.stack)-1]
	if len(it.stack) > 0 {
		it.stack[len(it.stack)-1].childIdx++
	}
}

// Chunk returns the current chunk.
func (it *ChunkIterator) Chunk() Chunk {
	return it.chunk
}

// Offset returns the byte offset of the start of the current chunk.
func (it *ChunkIterator) Offset() int {
	return it.chunkStart
}
