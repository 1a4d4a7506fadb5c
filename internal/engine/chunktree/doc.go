// Package chunktree provides an immutable chunk tree for byte storage.
//
// The tree is a B+ tree variant where leaf nodes hold bounded byte chunks
// and internal nodes track aggregate sizes. All operations return new trees
// and share unchanged subtrees with the originals, so any Tree value is a
// consistent snapshot that remains readable while newer versions are being
// written.
//
// Key features:
//   - O(log n) insertion, deletion, and offset lookup
//   - Copy-on-write semantics enable cheap snapshots
//   - Chunks may alias a memory-mapped file for lazy loading
//   - Per-chunk dirty flags drive write-back on flush
//
// Basic usage:
//
//	t := chunktree.FromBytes([]byte("hello world"))
//	t = t.Insert(5, []byte(","))   // "hello, world"
//	t = t.Delete(0, 6)             // " world"
//	data := t.Bytes()
package chunktree
