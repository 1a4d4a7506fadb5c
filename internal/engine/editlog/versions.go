package editlog

import (
	"sync"

	"github.com/google/btree"
)

// versionEntry is one held version with its holder count.
type versionEntry struct {
	version uint64
	count   int
}

// VersionSet tracks the versions held by live iterators. Its minimum is the
// low-water mark: edits below it can never be needed for a rebase again.
//
// The set is counted: two iterators parked on the same version each hold an
// independent registration, so one closing cannot release history the other
// still needs. Safe for concurrent use from multiple iterator owners.
type VersionSet struct {
	mu   sync.Mutex
	tree *btree.BTreeG[versionEntry]
}

// NewVersionSet creates an empty version set.
func NewVersionSet() *VersionSet {
	return &VersionSet{
		tree: btree.NewG(16, func(a, b versionEntry) bool {
			return a.version < b.version
		}),
	}
}

// Register records one holder of v.
func (s *VersionSet) Register(v uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tree.Get(versionEntry{version: v})
	if ok {
		entry.count++
	} else {
		entry = versionEntry{version: v, count: 1}
	}
	s.tree.ReplaceOrInsert(entry)
}

// Unregister drops one holder of v. Unknown versions are ignored.
func (s *VersionSet) Unregister(v uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tree.Get(versionEntry{version: v})
	if !ok {
		return
	}
	entry.count--
	if entry.count <= 0 {
		s.tree.Delete(entry)
		return
	}
	s.tree.ReplaceOrInsert(entry)
}

// Swap atomically moves one holder from oldV to newV.
// Used by iterators after a rebase so the low-water mark can advance.
func (s *VersionSet) Swap(oldV, newV uint64) {
	if oldV == newV {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.tree.Get(versionEntry{version: oldV}); ok {
		entry.count--
		if entry.count <= 0 {
			s.tree.Delete(entry)
		} else {
			s.tree.ReplaceOrInsert(entry)
		}
	}

	entry, ok := s.tree.Get(versionEntry{version: newV})
	if ok {
		entry.count++
	} else {
		entry = versionEntry{version: newV, count: 1}
	}
	s.tree.ReplaceOrInsert(entry)
}

// Min returns the low-water mark: the oldest version still held.
// The second result is false if no iterator is live.
func (s *VersionSet) Min() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.tree.Min()
	if !ok {
		return 0, false
	}
	return entry.version, true
}

// Len returns the number of distinct held versions.
func (s *VersionSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Len()
}
