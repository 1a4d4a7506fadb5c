// Package vbuf provides the virtual text buffer at the core of the editor:
// a byte-addressable, mutable, disk-backed store supporting huge files via
// chunked lazy loading, a bounded read cache, and multiple simultaneous
// bidirectional iterators that remain positionally correct while the buffer
// is edited concurrently with their use.
//
// Every mutation allocates a version from a lock-free counter and appends
// an immutable record to the edit log. Iterators created earlier replay
// those records lazily against their own position on their next positional
// call, so edits never wait for readers and readers never see a torn state.
// The log is pruned below the oldest version any live iterator still holds.
//
// Basic usage:
//
//	buf := vbuf.New(persist.NewMemoryFromBytes([]byte("hello world")))
//
//	it := buf.IterAt(6)
//	defer it.Close()
//
//	buf.Insert(5, []byte(" beautiful"))
//
//	b, _ := it.Next() // 'w': the iterator rebased across the insert
//
// The persistence backend is pluggable (see the persist package): memory
// for unsaved documents and tests, a memory-mapped file for real documents.
package vbuf
