package vbuf

import "github.com/fathom-editor/fathom/internal/engine/chunktree"

// readAheadBytes is the size of the local window fetched from a snapshot
// on a window miss.
const readAheadBytes = 4096

// ByteIterator is a bidirectional cursor over the buffer's bytes.
//
// The iterator stays logically correct while other goroutines edit the
// buffer, without ever blocking those edits and without being re-created:
// before every positional call it compares the buffer's version to its own
// and, when behind, replays the missed edits against its position (a
// "rebase"). The fast path is a single atomic load.
//
// Reads are served from a private chunk-tree snapshot through a small local
// read-ahead window. Running past either end of the buffer is a normal
// steady-state condition and reports "no byte", never an error.
//
// A ByteIterator is owned by a single goroutine. Close it when done so
// edit-log pruning can progress.
type ByteIterator struct {
	buf *VirtualBuffer

	position int
	version  uint64

	snapshot    chunktree.Tree
	hasSnapshot bool

	window      []byte
	windowStart int

	closed bool
}

// Next returns the byte at the current position and advances by one.
// The second result is false at end of buffer.
func (it *ByteIterator) Next() (byte, bool) {
	if it.closed {
		return 0, false
	}
	it.rebase()
	it.refreshSnapshot()

	if b, ok := it.windowByte(it.position); ok {
		it.position++
		return b, true
	}

	if !it.fetchWindow(it.position) {
		return 0, false
	}

	b, ok := it.windowByte(it.position)
	if !ok {
		return 0, false
	}
	it.position++
	return b, true
}

// Prev moves back by one and returns the byte at the new position.
// The second result is false at position 0.
func (it *ByteIterator) Prev() (byte, bool) {
	if it.closed {
		return 0, false
	}
	it.rebase()

	if it.position == 0 {
		return 0, false
	}
	it.position--

	it.refreshSnapshot()

	if b, ok := it.windowByte(it.position); ok {
		return b, true
	}

	// Center the window so it covers the new position and some bytes on
	// either side for further backward movement.
	start := it.position - readAheadBytes/2
	if start < 0 {
		start = 0
	}
	if !it.fetchWindow(start) {
		return 0, false
	}
	return it.windowByte(it.position)
}

// Peek returns the byte at the current position without advancing.
//
// Peek never rebases and never fetches: it answers from the currently held
// snapshot only. Immediately after an edit, and until the next call to
// Next, Prev, or Seek, the answer can be stale. Callers that need the
// current byte should use Next followed by Seek, or rely on a positional
// call in the same logical step.
func (it *ByteIterator) Peek() (byte, bool) {
	if it.closed || !it.hasSnapshot {
		return 0, false
	}
	return it.snapshot.ByteAt(it.position)
}

// Seek moves the iterator to the given position.
// The rebase runs first, so the position is interpreted against the
// buffer's current version.
func (it *ByteIterator) Seek(position int) {
	if it.closed {
		return
	}
	it.rebase()
	if position < 0 {
		position = 0
	}
	it.position = position
}

// Position returns the current position.
func (it *ByteIterator) Position() int {
	return it.position
}

// BufferLen returns the buffer's current length, for bounds checking.
func (it *ByteIterator) BufferLen() int {
	return it.buf.Len()
}

// Close unregisters the iterator, letting edit-log pruning advance past
// the version it was holding. Positional calls after Close report no byte.
func (it *ByteIterator) Close() {
	if it.closed {
		return
	}
	it.closed = true

	it.buf.active.Unregister(it.version)
	if it.buf.metrics != nil {
		it.buf.metrics.ActiveIterators.Dec()
	}

	it.snapshot = chunktree.Tree{}
	it.hasSnapshot = false
	it.window = nil
}

// rebase replays edits made after the iterator's version against its
// position, in version order. On the fast path (no edits since) this is a
// single counter comparison.
func (it *ByteIterator) rebase() {
	if it.buf.version.Load() == it.version {
		return
	}

	// Advance only past edits actually replayed. Versions are allocated
	// before the record reaches the log, so the counter can run ahead of
	// the log; an edit visible in the counter but not yet appended is left
	// for the next rebase rather than skipped.
	target := it.version
	for _, e := range it.buf.log.Since(it.version) {
		it.position = e.AdjustPosition(it.position)
		if e.Version > target {
			target = e.Version
		}
	}
	if target == it.version {
		return
	}

	// The held snapshot and window predate the edits; drop both so the
	// next read fetches fresh structure.
	it.snapshot = chunktree.Tree{}
	it.hasSnapshot = false
	it.window = nil

	it.buf.active.Swap(it.version, target)
	it.version = target
}

// refreshSnapshot lazily obtains a snapshot when none is held.
func (it *ByteIterator) refreshSnapshot() {
	if it.hasSnapshot {
		return
	}

	it.buf.persistMu.Lock()
	snapshot, ok := it.buf.layer.Snapshot()
	it.buf.persistMu.Unlock()

	if ok {
		it.snapshot = snapshot
		it.hasSnapshot = true
	}
}

// windowByte returns the byte at the absolute position if the local window
// covers it.
func (it *ByteIterator) windowByte(position int) (byte, bool) {
	if position < it.windowStart || position >= it.windowStart+len(it.window) {
		return 0, false
	}
	return it.window[position-it.windowStart], true
}

// fetchWindow loads a fresh read-ahead window starting at the given offset
// from the held snapshot. Returns false if no snapshot is available or the
// offset is past the end.
func (it *ByteIterator) fetchWindow(start int) bool {
	if !it.hasSnapshot {
		return false
	}

	window := it.snapshot.Slice(start, start+readAheadBytes)
	if len(window) == 0 {
		return false
	}

	it.window = window
	it.windowStart = start
	return true
}
