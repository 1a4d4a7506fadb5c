package editlog

import (
	"sort"
	"sync"
)

// Log is an append-only, version-ordered record of buffer edits.
//
// Versions are strictly increasing with no gaps in append order. Many
// iterators read the log concurrently while edit operations append, so it
// is guarded by a read-write lock held only for the duration of one call.
type Log struct {
	mu    sync.RWMutex
	edits []Edit
}

// NewLog creates an empty edit log.
func NewLog() *Log {
	return &Log{}
}

// Append adds an edit. Versions are allocated before the log lock is
// taken, so two racing edits may arrive here out of order; the log restores
// version order on insert to keep replay deterministic.
func (l *Log) Append(e Edit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n := len(l.edits); n == 0 || l.edits[n-1].Version < e.Version {
		l.edits = append(l.edits, e)
		return
	}

	idx := l.searchLocked(e.Version)
	l.edits = append(l.edits, Edit{})
	copy(l.edits[idx+1:], l.edits[idx:])
	l.edits[idx] = e
}

// Since returns a copy of all edits with version strictly greater than v,
// in version order.
func (l *Log) Since(v uint64) []Edit {
	l.mu.RLock()
	defer l.mu.RUnlock()

	idx := l.searchLocked(v + 1)
	if idx >= len(l.edits) {
		return nil
	}

	out := make([]Edit, len(l.edits)-idx)
	copy(out, l.edits[idx:])
	return out
}

// PruneBelow removes all edits with version strictly less than v.
func (l *Log) PruneBelow(v uint64) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.searchLocked(v)
	if idx == 0 {
		return 0
	}

	remaining := copy(l.edits, l.edits[idx:])
	// Zero the tail so pruned records do not pin memory
	for i := remaining; i < len(l.edits); i++ {
		l.edits[i] = Edit{}
	}
	l.edits = l.edits[:remaining]
	return idx
}

// Len returns the number of retained edits.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.edits)
}

// OldestVersion returns the version of the oldest retained edit.
// The second result is false if the log is empty.
func (l *Log) OldestVersion() (uint64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.edits) == 0 {
		return 0, false
	}
	return l.edits[0].Version, true
}

// searchLocked returns the index of the first edit with version >= v.
// Must be called with the lock held.
func (l *Log) searchLocked(v uint64) int {
	return sort.Search(len(l.edits), func(i int) bool {
		return l.edits[i].Version >= v
	})
}
