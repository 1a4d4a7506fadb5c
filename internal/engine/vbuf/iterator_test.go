package vbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fathom-editor/fathom/internal/engine/editlog"
	"github.com/fathom-editor/fathom/internal/engine/persist"
)

func collectForward(it *ByteIterator, n int) []byte {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, b)
	}
	return out
}

func collectBackward(it *ByteIterator, n int) []byte {
	out := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b, ok := it.Prev()
		if !ok {
			break
		}
		out = append(out, b)
	}
	return out
}

func TestIteratorForward(t *testing.T) {
	b := newBuf(t, "hello")
	it := b.IterAt(0)
	defer it.Close()

	require.Equal(t, []byte("hello"), collectForward(it, 10))
	require.Equal(t, 5, it.Position())

	// Repeated calls at the end keep reporting no byte
	_, ok := it.Next()
	require.False(t, ok)
	_, ok = it.Next()
	require.False(t, ok)
}

func TestIteratorForwardBackwardSymmetry(t *testing.T) {
	b := newBuf(t, "hello")
	it := b.IterAt(0)
	defer it.Close()

	require.Equal(t, []byte("hello"), collectForward(it, 5))
	require.Equal(t, []byte("olleh"), collectBackward(it, 5))
	require.Equal(t, 0, it.Position())

	_, ok := it.Prev()
	require.False(t, ok)
	require.Equal(t, 0, it.Position())
}

func TestIteratorStaysOnByteAcrossInsert(t *testing.T) {
	b := newBuf(t, "hello world")
	it := b.IterAt(6) // on 'w'
	defer it.Close()

	require.NoError(t, b.Insert(5, []byte(" beautiful")))

	by, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, byte('w'), by)
	require.Equal(t, 17, it.Position())
	require.Equal(t, []byte("orld"), collectForward(it, 10))
}

func TestIteratorStaysOnByteAcrossDelete(t *testing.T) {
	b := newBuf(t, "hello beautiful world")
	it := b.IterAt(16) // on 'w'
	defer it.Close()

	require.NoError(t, b.Delete(5, 15)) // " beautiful"

	by, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, byte('w'), by)
	require.Equal(t, 7, it.Position())
}

func TestIteratorAfterDeleteCoveringPosition(t *testing.T) {
	b := newBuf(t, "hello world")
	it := b.IterAt(8) // on 'r'
	defer it.Close()

	require.NoError(t, b.Delete(5, 11))

	// The rebase subtracts the full deleted length even though the position
	// was inside the deleted range
	by, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, byte('l'), by)
	require.Equal(t, 3, it.Position())
}

func TestIteratorDeleteFromStart(t *testing.T) {
	b := newBuf(t, "hello world")
	it := b.IterAt(2)
	defer it.Close()

	require.NoError(t, b.Delete(0, 11))

	require.Empty(t, collectForward(it, 5))
	require.Equal(t, 0, it.Position())
	_, ok := it.Prev()
	require.False(t, ok)
}

func TestIteratorManyInterleavedEdits(t *testing.T) {
	b := newBuf(t, "hello world")
	it := b.IterAt(6) // on 'w'
	defer it.Close()

	require.NoError(t, b.Insert(0, []byte(">> ")))
	require.NoError(t, b.Insert(9, []byte("there ")))
	require.NoError(t, b.Delete(3, 9)) // "hello "

	by, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, byte('w'), by)

	content, err := b.Read(0, b.Len())
	require.NoError(t, err)
	require.Equal(t, []byte(">> there world"), content)
}

func TestIteratorEditsAfterPositionIgnored(t *testing.T) {
	b := newBuf(t, "hello world")
	it := b.IterAt(2)
	defer it.Close()

	require.NoError(t, b.Insert(8, []byte("xyz")))
	require.NoError(t, b.Delete(6, 8))

	by, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, byte('l'), by)
	require.Equal(t, 3, it.Position())
}

func TestIteratorPeekDoesNotRebase(t *testing.T) {
	b := newBuf(t, "hello world")
	it := b.IterAt(6)
	defer it.Close()

	// Materialize the snapshot
	by, ok := it.Peek()
	require.True(t, ok)
	require.Equal(t, byte('w'), by)

	require.NoError(t, b.Insert(5, []byte(" beautiful")))

	// Peek answers from the held snapshot at the unadjusted position
	by, ok = it.Peek()
	require.True(t, ok)
	require.Equal(t, byte('w'), by)

	// A positional call rebases; afterwards Peek agrees with the new state
	by, ok = it.Next()
	require.True(t, ok)
	require.Equal(t, byte('w'), by)

	by, ok = it.Peek()
	require.True(t, ok)
	require.Equal(t, byte('o'), by)
}

func TestRebaseLeavesUnloggedEditForNextCall(t *testing.T) {
	b := newBuf(t, "hello world")
	it := b.IterAt(6) // on 'w'
	defer it.Close()

	// An edit allocates its version before its record reaches the log. A
	// rebase inside that window must not advance past the missing record.
	v := b.version.Add(1)
	it.Seek(6)

	// The edit completes: layer mutation, cache clear, log append.
	b.persistMu.Lock()
	require.NoError(t, b.layer.Insert(5, []byte(" beautiful")))
	b.persistMu.Unlock()
	b.invalidateCache()
	b.log.Append(editlog.NewInsert(v, 5, 10))

	// The next positional call replays the edit it could not see above.
	by, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, byte('w'), by)
	require.Equal(t, 17, it.Position())
}

func TestIteratorSeek(t *testing.T) {
	b := newBuf(t, "hello world")
	it := b.IterAt(0)
	defer it.Close()

	it.Seek(6)
	by, ok := it.Next()
	require.True(t, ok)
	require.Equal(t, byte('w'), by)

	it.Seek(-5)
	require.Equal(t, 0, it.Position())

	// Seeking past the end is allowed; the next read reports no byte
	it.Seek(100)
	_, ok = it.Next()
	require.False(t, ok)
}

func TestIteratorClose(t *testing.T) {
	b := newBuf(t, "hello")
	it := b.IterAt(0)

	it.Close()

	_, ok := it.Next()
	require.False(t, ok)
	_, ok = it.Prev()
	require.False(t, ok)
	_, ok = it.Peek()
	require.False(t, ok)

	// Idempotent
	it.Close()
}

func TestIteratorBufferLen(t *testing.T) {
	b := newBuf(t, "hello")
	it := b.IterAt(0)
	defer it.Close()

	require.Equal(t, 5, it.BufferLen())
	require.NoError(t, b.Insert(0, []byte("x")))
	require.Equal(t, 6, it.BufferLen())
}

func TestMultipleIteratorsIndependent(t *testing.T) {
	b := newBuf(t, "hello world")

	it1 := b.IterAt(0)
	it2 := b.IterAt(6)
	defer it1.Close()
	defer it2.Close()

	require.NoError(t, b.Insert(5, []byte(" big")))

	// Each iterator rebases independently against its own position
	by, ok := it1.Next()
	require.True(t, ok)
	require.Equal(t, byte('h'), by)

	by, ok = it2.Next()
	require.True(t, ok)
	require.Equal(t, byte('w'), by)
}

func TestIteratorLargeTraversal(t *testing.T) {
	content := make([]byte, 64*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	b := New(persist.NewMemoryFromBytes(content))

	it := b.IterAt(0)
	defer it.Close()

	got := collectForward(it, len(content)+1)
	require.Equal(t, content, got)
}

func TestIteratorsConcurrentWithEdits(t *testing.T) {
	b := newBuf(t, "hello world")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				_ = b.Insert(0, []byte("ab"))
			} else {
				_ = b.Delete(0, 1)
			}
		}
	}()

	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			it := b.IterAt(0)
			defer it.Close()
			for i := 0; i < 500; i++ {
				if _, ok := it.Next(); !ok {
					it.Seek(0)
				}
			}
		}()
	}
	wg.Wait()

	// 100 two-byte inserts and 100 one-byte deletes
	require.Equal(t, 111, b.Len())
	require.Equal(t, uint64(200), b.Version())

	data, err := b.Read(0, b.Len())
	require.NoError(t, err)
	require.Len(t, data, 111)
}
