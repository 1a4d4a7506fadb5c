package vbuf

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/fathom-editor/fathom/internal/engine/cache"
	"github.com/fathom-editor/fathom/internal/engine/editlog"
	"github.com/fathom-editor/fathom/internal/engine/persist"
)

// DefaultCacheSize is the default read-cache budget in bytes.
const DefaultCacheSize = 16 << 20

// Errors returned by buffer operations.
var (
	// ErrOffsetOutOfRange indicates an offset is outside the valid range.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrRangeInvalid indicates an invalid range (e.g., end < start).
	ErrRangeInvalid = errors.New("invalid range")
)

// VirtualBuffer is the byte-addressable, disk-backed storage every other
// editor subsystem reads and writes through. It owns a persistence layer, a
// read cache, an edit log, and a monotonic version counter, and hands out
// bidirectional iterators that stay positionally correct while the buffer
// is edited underneath them.
//
// All methods are safe for concurrent use. Each guarded resource
// (persistence, cache, log, version set) is locked only for the duration of
// one operation, so reads and iteration never block an in-flight edit for
// longer than that edit's own critical section.
type VirtualBuffer struct {
	persistMu sync.Mutex
	layer     persist.Layer

	cacheMu sync.Mutex
	cache   *cache.Cache

	log     *editlog.Log
	version atomic.Uint64
	active  *editlog.VersionSet

	logger  logrus.FieldLogger
	metrics *Metrics

	cacheSize int
}

// New creates a virtual buffer over the given persistence layer.
func New(layer persist.Layer, opts ...Option) *VirtualBuffer {
	b := &VirtualBuffer{
		layer:     layer,
		log:       editlog.NewLog(),
		active:    editlog.NewVersionSet(),
		cacheSize: DefaultCacheSize,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		b.logger = l
	}
	b.cache = cache.New(b.cacheSize)

	return b
}

// Read returns len bytes starting at offset. Reads past the end are
// truncated; a read at or beyond the end returns nil. Every edit that
// returned before Read was called is reflected in the result.
func (b *VirtualBuffer) Read(offset, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, ErrOffsetOutOfRange
	}

	b.cacheMu.Lock()
	data, ok := b.cache.Read(offset, length)
	b.cacheMu.Unlock()
	if ok {
		b.countCacheHit()
		return data, nil
	}
	b.countCacheMiss()

	version := b.version.Load()

	b.persistMu.Lock()
	data, err := b.layer.Read(offset, length)
	b.persistMu.Unlock()
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		b.cacheMu.Lock()
		// An edit may have completed between the layer read and here.
		// Edits bump the counter before clearing the cache, so an
		// unchanged counter proves these bytes are still current; on a
		// change the fill is skipped rather than poisoning later reads.
		if b.version.Load() == version {
			b.cache.Write(offset, data)
		}
		b.cacheMu.Unlock()
	}

	return data, nil
}

// Insert inserts data at the given offset. Inserting nothing is a no-op
// and allocates no version.
func (b *VirtualBuffer) Insert(offset int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if offset < 0 {
		return ErrOffsetOutOfRange
	}

	b.persistMu.Lock()
	err := b.layer.Insert(offset, data)
	b.persistMu.Unlock()
	if err != nil {
		return err
	}

	// Version bump before cache clear: Read depends on this order to
	// detect an edit racing its cache fill.
	e := editlog.NewInsert(b.version.Add(1), offset, len(data))
	b.invalidateCache()
	b.recordEdit(e)
	return nil
}

// Delete removes the byte range [start, end). Deleting an empty range is a
// no-op and allocates no version.
func (b *VirtualBuffer) Delete(start, end int) error {
	if start == end {
		return nil
	}
	if start < 0 || end < start {
		return ErrRangeInvalid
	}

	b.persistMu.Lock()
	err := b.layer.Delete(start, end)
	b.persistMu.Unlock()
	if err != nil {
		return err
	}

	e := editlog.NewDelete(b.version.Add(1), start, end-start)
	b.invalidateCache()
	b.recordEdit(e)
	return nil
}

// Len returns the total length of the buffer.
func (b *VirtualBuffer) Len() int {
	b.persistMu.Lock()
	defer b.persistMu.Unlock()
	return b.layer.Len()
}

// IsEmpty returns true if the buffer is empty.
func (b *VirtualBuffer) IsEmpty() bool {
	return b.Len() == 0
}

// Version returns the current edit version.
func (b *VirtualBuffer) Version() uint64 {
	return b.version.Load()
}

// EditLogLen returns the number of retained edit records.
func (b *VirtualBuffer) EditLogLen() int {
	return b.log.Len()
}

// IterAt creates a bidirectional iterator at the given position.
// The iterator registers itself with the buffer and must be closed when no
// longer needed so edit-log pruning can progress.
func (b *VirtualBuffer) IterAt(position int) *ByteIterator {
	version := b.version.Load()
	b.active.Register(version)

	// Best effort: a backend without snapshots is tolerated and the
	// iterator retries lazily.
	b.persistMu.Lock()
	snapshot, ok := b.layer.Snapshot()
	b.persistMu.Unlock()

	if b.metrics != nil {
		b.metrics.ActiveIterators.Inc()
	}

	return &ByteIterator{
		buf:         b,
		position:    position,
		version:     version,
		snapshot:    snapshot,
		hasSnapshot: ok,
	}
}

// invalidateCache clears the whole read cache. Clearing everything is the
// only invalidation that cannot serve stale bytes after an edit.
func (b *VirtualBuffer) invalidateCache() {
	b.cacheMu.Lock()
	b.cache.Clear()
	b.cacheMu.Unlock()
}

// recordEdit appends an edit under its version and prunes the log below
// the low-water mark.
func (b *VirtualBuffer) recordEdit(e editlog.Edit) {
	b.log.Append(e)

	if b.metrics != nil {
		b.metrics.Edits.WithLabelValues(e.Kind.String()).Inc()
	}

	b.pruneEditLog()
}

// pruneEditLog drops edits no live iterator can ever need again.
// With no live iterators the log keeps everything; undo history may want it.
func (b *VirtualBuffer) pruneEditLog() {
	oldest, ok := b.active.Min()
	if !ok {
		return
	}

	if pruned := b.log.PruneBelow(oldest); pruned > 0 {
		b.logger.WithFields(logrus.Fields{
			"pruned":    pruned,
			"low_water": oldest,
		}).Debug("pruned edit log")
	}

	if b.metrics != nil {
		b.metrics.EditLogEntries.Set(float64(b.log.Len()))
	}
}

func (b *VirtualBuffer) countCacheHit() {
	if b.metrics != nil {
		b.metrics.CacheHits.Inc()
	}
}

func (b *VirtualBuffer) countCacheMiss() {
	if b.metrics != nil {
		b.metrics.CacheMisses.Inc()
	}
}
