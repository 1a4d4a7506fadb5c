// Package cache provides a bounded byte-range read cache for the virtual
// buffer. It sits in front of the persistence layer and keeps recently read
// spans hot, e.g. the visible viewport of a huge file.
package cache

import (
	"github.com/google/btree"
	lru "github.com/hashicorp/golang-lru/v2"
)

// maxSpans bounds the number of cached spans. The real bound is bytes; this
// only sizes the LRU's internal table.
const maxSpans = 1 << 16

// Cache is a bounded byte-range cache.
//
// Spans are keyed by their start offset. An ordered index finds the span
// covering a requested range; an LRU tracks recency and drives eviction once
// the byte budget is exceeded. The cache never merges spans: a read hits only
// when a single stored span covers the whole request. Correctness does not
// depend on hits, so the owning buffer clears the cache wholesale on every
// mutation instead of invalidating precisely.
//
// Cache is not safe for concurrent use; the virtual buffer serializes access.
type Cache struct {
	maxBytes int
	curBytes int
	index    *btree.BTreeG[int]
	spans    *lru.Cache[int, []byte]
}

// New creates a cache bounded to maxBytes total cached bytes.
func New(maxBytes int) *Cache {
	c := &Cache{
		maxBytes: maxBytes,
		index:    btree.NewOrderedG[int](16),
	}

	// The eviction callback keeps the index and the byte count in sync for
	// every removal path (capacity, Purge, explicit Remove).
	spans, err := lru.NewWithEvict(maxSpans, func(start int, data []byte) {
		c.index.Delete(start)
		c.curBytes -= len(data)
	})
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	c.spans = spans

	return c
}

// Read returns a copy of the bytes in [offset, offset+length) if a single
// cached span covers the whole range. The second result reports a hit.
func (c *Cache) Read(offset, length int) ([]byte, bool) {
	if length <= 0 || offset < 0 {
		return nil, false
	}

	// Only the nearest span starting at or before offset is considered.
	// An older, longer span further left could also cover the range, but
	// scanning for it is not worth it: a miss is always correct.
	start, ok := c.nearestStart(offset)
	if !ok {
		return nil, false
	}

	data, ok := c.spans.Peek(start)
	if !ok || offset+length > start+len(data) {
		return nil, false
	}

	c.spans.Get(start) // touch for recency

	out := make([]byte, length)
	copy(out, data[offset-start:])
	return out, true
}

// Write stores a copy of data as the span starting at offset, evicting old
// spans if the byte budget is exceeded.
func (c *Cache) Write(offset int, data []byte) {
	if len(data) == 0 || len(data) > c.maxBytes || offset < 0 {
		return
	}

	// Remove an existing span at this offset first; the eviction callback
	// settles its accounting, and the fresh Add lands at the recency front.
	c.spans.Remove(offset)

	span := make([]byte, len(data))
	copy(span, data)

	c.spans.Add(offset, span)
	c.index.ReplaceOrInsert(offset)
	c.curBytes += len(span)

	for c.curBytes > c.maxBytes {
		if _, _, ok := c.spans.RemoveOldest(); !ok {
			break
		}
	}
}

// Clear drops every cached span.
func (c *Cache) Clear() {
	c.spans.Purge()
}

// Len returns the total number of cached bytes.
func (c *Cache) Len() int {
	return c.curBytes
}

// Spans returns the number of cached spans.
func (c *Cache) Spans() int {
	return c.spans.Len()
}

// nearestStart returns the greatest span start at or before offset.
func (c *Cache) nearestStart(offset int) (int, bool) {
	var start int
	var found bool
	c.index.DescendLessOrEqual(offset, func(item int) bool {
		start = item
		found = true
		return false
	})
	return start, found
}
