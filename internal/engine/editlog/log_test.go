package editlog

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogAppendAndSince(t *testing.T) {
	l := NewLog()
	require.Equal(t, 0, l.Len())

	l.Append(NewInsert(1, 0, 5))
	l.Append(NewDelete(2, 3, 2))
	l.Append(NewInsert(3, 10, 1))
	require.Equal(t, 3, l.Len())

	all := l.Since(0)
	require.Len(t, all, 3)
	require.Equal(t, uint64(1), all[0].Version)
	require.Equal(t, uint64(3), all[2].Version)

	tail := l.Since(2)
	require.Len(t, tail, 1)
	require.Equal(t, uint64(3), tail[0].Version)

	require.Nil(t, l.Since(3))
	require.Nil(t, l.Since(99))
}

func TestLogSinceReturnsCopy(t *testing.T) {
	l := NewLog()
	l.Append(NewInsert(1, 0, 5))

	edits := l.Since(0)
	edits[0].Offset = 999

	again := l.Since(0)
	require.Equal(t, 0, again[0].Offset)
}

func TestLogOutOfOrderAppend(t *testing.T) {
	l := NewLog()
	l.Append(NewInsert(1, 0, 1))
	l.Append(NewInsert(3, 0, 1))
	l.Append(NewInsert(2, 0, 1))
	l.Append(NewInsert(4, 0, 1))

	edits := l.Since(0)
	require.Len(t, edits, 4)
	for i, e := range edits {
		require.Equal(t, uint64(i+1), e.Version)
	}
}

func TestLogPruneBelow(t *testing.T) {
	l := NewLog()
	for v := uint64(1); v <= 10; v++ {
		l.Append(NewInsert(v, int(v), 1))
	}

	require.Equal(t, 0, l.PruneBelow(1))
	require.Equal(t, 10, l.Len())

	require.Equal(t, 4, l.PruneBelow(5))
	require.Equal(t, 6, l.Len())

	oldest, ok := l.OldestVersion()
	require.True(t, ok)
	require.Equal(t, uint64(5), oldest)

	// Pruned history is gone; retained history is intact
	require.Nil(t, l.Since(10))
	require.Len(t, l.Since(4), 6)

	require.Equal(t, 6, l.PruneBelow(100))
	require.Equal(t, 0, l.Len())
	_, ok = l.OldestVersion()
	require.False(t, ok)
}

func TestLogOldestVersionEmpty(t *testing.T) {
	l := NewLog()
	_, ok := l.OldestVersion()
	require.False(t, ok)
}

func TestLogConcurrentAppendAndRead(t *testing.T) {
	l := NewLog()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(base uint64) {
			defer wg.Done()
			for i := uint64(0); i < 250; i++ {
				l.Append(NewInsert(base+i*4, 0, 1))
			}
		}(uint64(g + 1))
	}
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				edits := l.Since(500)
				for j := 1; j < len(edits); j++ {
					require.Less(t, edits[j-1].Version, edits[j].Version)
				}
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1000, l.Len())
	edits := l.Since(0)
	for i, e := range edits {
		require.Equal(t, uint64(i+1), e.Version)
	}
}

func TestAdjustPosition(t *testing.T) {
	tests := []struct {
		name string
		edit Edit
		pos  int
		want int
	}{
		{"insert before", NewInsert(1, 3, 5), 10, 15},
		{"insert at position", NewInsert(1, 10, 5), 10, 15},
		{"insert after", NewInsert(1, 11, 5), 10, 10},
		{"delete before", NewDelete(1, 2, 4), 10, 6},
		{"delete at position", NewDelete(1, 10, 4), 10, 6},
		{"delete after", NewDelete(1, 11, 4), 10, 10},
		{"delete underflows to zero", NewDelete(1, 0, 20), 10, 0},
		{"insert at zero", NewInsert(1, 0, 3), 0, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.edit.AdjustPosition(tt.pos))
		})
	}
}

func TestEditString(t *testing.T) {
	require.Equal(t, "v7 insert(3, 5)", NewInsert(7, 3, 5).String())
	require.Equal(t, "v8 delete(0, 2)", NewDelete(8, 0, 2).String())
}
