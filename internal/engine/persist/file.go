package persist

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"

	"github.com/fathom-editor/fathom/internal/engine/chunktree"
)

// File is a persistence layer backed by the user's file on disk.
//
// The file is memory-mapped read-only and the initial chunk tree aliases the
// mapping, so opening a huge file costs one stat and one mmap; bytes are
// paged in lazily as they are read. Edits build heap chunks on top of the
// mapped ones. Flush rewrites the file in place when any edit has been
// applied since open or the last flush. No editor-specific metadata is
// written.
//
// Snapshots handed out by this layer stay valid until Close; the mapping is
// only unmapped there.
type File struct {
	path   string
	f      *os.File
	mapped mmap.MMap
	tree   chunktree.Tree

	// dirty tracks whether the tree's content differs from the file. The
	// chunk-level flags cannot serve here: a pure delete reslices existing
	// mapped chunks and leaves every one of them clean.
	dirty  bool
	closed bool
}

// OpenFile opens path for editing. The file must exist; use NewMemory for
// brand-new documents and flush them through the document layer.
func OpenFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}

	fp := &File{path: path, f: f}
	if info.Size() > 0 {
		m, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "mmap %s", path)
		}
		fp.mapped = m
		fp.tree = chunktree.FromMapped(m)
	} else {
		fp.tree = chunktree.New()
	}

	return fp, nil
}

// Read returns up to length bytes starting at offset.
func (fp *File) Read(offset, length int) ([]byte, error) {
	if fp.closed {
		return nil, ErrClosed
	}
	return readTree(fp.tree, offset, length)
}

// Insert inserts data at the given offset.
func (fp *File) Insert(offset int, data []byte) error {
	if fp.closed {
		return ErrClosed
	}
	if offset < 0 {
		return ErrOffsetOutOfRange
	}
	fp.tree = fp.tree.Insert(offset, data)
	if len(data) > 0 {
		fp.dirty = true
	}
	return nil
}

// Delete removes the byte range [start, end).
func (fp *File) Delete(start, end int) error {
	if fp.closed {
		return ErrClosed
	}
	if start < 0 || end < start {
		return ErrRangeInvalid
	}
	before := fp.tree.Len()
	fp.tree = fp.tree.Delete(start, end)
	if fp.tree.Len() != before {
		fp.dirty = true
	}
	return nil
}

// Len returns the total length of stored data.
func (fp *File) Len() int {
	return fp.tree.Len()
}

// Snapshot returns the current chunk tree.
func (fp *File) Snapshot() (chunktree.Tree, bool) {
	if fp.closed {
		return chunktree.Tree{}, false
	}
	return fp.tree, true
}

// Dirty returns true if the in-memory content differs from the file.
func (fp *File) Dirty() bool {
	return fp.dirty
}

// Flush rewrites the file in place if any edit has been applied.
func (fp *File) Flush() error {
	if fp.closed {
		return ErrClosed
	}
	if !fp.dirty {
		return nil
	}

	// Materialize to the heap first: the tree may still alias the mapping
	// of the very bytes about to be overwritten.
	content := fp.tree.Bytes()

	if _, err := fp.f.WriteAt(content, 0); err != nil {
		return errors.Wrapf(err, "write %s", fp.path)
	}
	if err := fp.f.Truncate(int64(len(content))); err != nil {
		return errors.Wrapf(err, "truncate %s", fp.path)
	}
	if err := fp.f.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", fp.path)
	}

	// The heap copy now matches the file byte for byte, so it serves as the
	// clean backing from here on. The old mapping stays mapped until Close
	// for the benefit of snapshots still in flight.
	fp.tree = chunktree.FromMapped(content)
	fp.dirty = false
	return nil
}

// Close unmaps the file and closes the descriptor.
// All snapshots taken from this layer become invalid.
func (fp *File) Close() error {
	if fp.closed {
		return nil
	}
	fp.closed = true
	fp.tree = chunktree.New()

	var unmapErr error
	if fp.mapped != nil {
		unmapErr = fp.mapped.Unmap()
		fp.mapped = nil
	}
	closeErr := fp.f.Close()

	if unmapErr != nil {
		return errors.Wrapf(unmapErr, "unmap %s", fp.path)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, "close %s", fp.path)
	}
	return nil
}
