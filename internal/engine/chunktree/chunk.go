package chunktree

// Chunk size constants control the granularity of byte storage.
const (
	// MinChunkBytes is the minimum bytes per chunk (except for the last chunk).
	MinChunkBytes = 2048

	// MaxChunkBytes is the maximum bytes per chunk before splitting.
	MaxChunkBytes = 4096

	// TargetChunkBytes is the preferred chunk size when building.
	TargetChunkBytes = (MinChunkBytes + MaxChunkBytes) / 2
)

// Chunk represents a bounded, contiguous byte range stored in leaf nodes.
// Chunks are immutable once created; the backing slice must never be written
// through. A dirty chunk holds heap bytes; a clean chunk may alias a
// memory-mapped file region, which is what makes loading lazy: bytes are
// paged in by the OS the first time they are touched. The flag marks where
// the bytes live, not whether the file is out of date; resliced clean
// chunks stay clean even after surrounding content is deleted.
type Chunk struct {
	data  []byte
	dirty bool
}

// NewChunk creates a dirty chunk from heap bytes.
func NewChunk(data []byte) Chunk {
	return Chunk{data: data, dirty: true}
}

// NewFileChunk creates a clean chunk whose data aliases the backing mapping.
func NewFileChunk(data []byte) Chunk {
	return Chunk{data: data, dirty: false}
}

// Bytes returns the chunk's data. Callers must not modify it.
func (c Chunk) Bytes() []byte {
	return c.data
}

// Len returns the byte length of the chunk.
func (c Chunk) Len() int {
	return len(c.data)
}

// IsEmpty returns true if the chunk contains no bytes.
func (c Chunk) IsEmpty() bool {
	return len(c.data) == 0
}

// Dirty returns true if the chunk must be rewritten on flush.
func (c Chunk) Dirty() bool {
	return c.dirty
}

// Split splits a chunk at the byte offset, returning two chunks that share
// the original backing slice and keep its dirty flag.
func (c Chunk) Split(offset int) (Chunk, Chunk) {
	if offset <= 0 {
		return Chunk{}, c
	}
	if offset >= len(c.data) {
		return c, Chunk{}
	}

	return Chunk{data: c.data[:offset], dirty: c.dirty},
		Chunk{data: c.data[offset:], dirty: c.dirty}
}

// splitIntoChunks splits a byte slice into chunks of appropriate size.
// All produced chunks share the given slice and carry the given dirty flag.
func splitIntoChunks(data []byte, dirty bool) []Chunk {
	if len(data) == 0 {
		return nil
	}
	if len(data) <= MaxChunkBytes {
		return []Chunk{{data: data, dirty: dirty}}
	}

	var chunks []Chunk
	remaining := data

	for len(remaining) > 0 {
		if len(remaining) <= MaxChunkBytes {
			// Last chunk, take it all
			chunks = append(chunks, Chunk{data: remaining, dirty: dirty})
			break
		}
		chunks = append(chunks, Chunk{data: remaining[:TargetChunkBytes], dirty: dirty})
		remaining = remaining[TargetChunkBytes:]
	}

	return chunks
}
