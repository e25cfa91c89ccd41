package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func e(id int64, p string) Entry { return Entry{ID: id, Path: p} }

func TestRecordAndNavigate(t *testing.T) {
	h := New(10)
	_, ok := h.Back()
	assert.False(t, ok)

	h.Record(e(1, "/a"))
	h.Record(e(2, "/b"))
	h.Record(e(3, "/c"))
	assert.True(t, h.AtLatest())

	got, ok := h.Back()
	require.True(t, ok)
	assert.Equal(t, e(2, "/b"), got)
	assert.False(t, h.AtLatest())

	got, ok = h.Back()
	require.True(t, ok)
	assert.Equal(t, "/a", got.Path)
	_, ok = h.Back()
	assert.False(t, ok, "nothing before the first entry")

	got, ok = h.Forward()
	require.True(t, ok)
	assert.Equal(t, "/b", got.Path)
	got, ok = h.Forward()
	require.True(t, ok)
	assert.Equal(t, "/c", got.Path)
	_, ok = h.Forward()
	assert.False(t, ok)
}

func TestRecordAfterBackDropsFuture(t *testing.T) {
	h := New(10)
	h.Record(e(1, "/a"))
	h.Record(e(2, "/b"))
	h.Record(e(3, "/c"))
	h.Back()
	h.Back()

	h.Record(e(4, "/d"))
	assert.Equal(t, 2, h.Len())
	cur, ok := h.Current()
	require.True(t, ok)
	assert.Equal(t, "/d", cur.Path)
	_, ok = h.Forward()
	assert.False(t, ok)
}

func TestRecordSkipsRepeatOfCurrent(t *testing.T) {
	h := New(10)
	h.Record(e(1, "/a"))
	h.Record(e(1, "/a"))
	assert.Equal(t, 1, h.Len())
}

func TestCapacityTrimsOldest(t *testing.T) {
	h := New(2)
	h.Record(e(1, "/a"))
	h.Record(e(2, "/b"))
	h.Record(e(3, "/c"))
	assert.Equal(t, 2, h.Len())
	got, ok := h.Back()
	require.True(t, ok)
	assert.Equal(t, "/b", got.Path)
}

func TestZeroCapacityDisables(t *testing.T) {
	for _, c := range []int{0, -5} {
		h := New(c)
		h.Record(e(1, "/a"))
		assert.Equal(t, 0, h.Len())
		_, ok := h.Current()
		assert.False(t, ok)
	}
}

func TestRemove(t *testing.T) {
	tests := []struct {
		name     string
		back     int
		remove   string
		wantLen  int
		wantPath string
	}{
		{"current removed moves back", 0, "/c", 2, "/b"},
		{"earlier entry removed keeps current", 0, "/a", 2, "/c"},
		{"later entry removed keeps current", 1, "/c", 2, "/b"},
		{"first removed while on it", 2, "/a", 2, "/b"},
		{"unknown path is a no-op", 0, "/zzz", 3, "/c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(10)
			h.Record(e(1, "/a"))
			h.Record(e(2, "/b"))
			h.Record(e(3, "/c"))
			for i := 0; i < tt.back; i++ {
				h.Back()
			}
			h.Remove(tt.remove)
			assert.Equal(t, tt.wantLen, h.Len())
			cur, ok := h.Current()
			require.True(t, ok)
			assert.Equal(t, tt.wantPath, cur.Path)
		})
	}
}

func TestRemoveLastAndClear(t *testing.T) {
	h := New(5)
	h.Record(e(1, "/a"))
	h.Remove("/a")
	_, ok := h.Current()
	assert.False(t, ok)

	h.Record(e(2, "/b"))
	h.Record(e(3, "/c"))
	h.Clear()
	assert.Equal(t, 0, h.Len())
	_, ok = h.Back()
	assert.False(t, ok)
	h.Record(e(4, "/d"))
	assert.Equal(t, 1, h.Len())
}

func TestWindow(t *testing.T) {
	h := New(20)
	entries, idx := h.Window(5)
	assert.Nil(t, entries)
	assert.Equal(t, -1, idx)

	for i := int64(0); i < 10; i++ {
		h.Record(e(i, string(rune('a'+i))))
	}
	entries, idx = h.Window(5)
	require.Len(t, entries, 5)
	assert.Equal(t, int64(5), entries[0].ID)
	assert.Equal(t, 4, idx, "newest entry sits at the right edge")

	for i := 0; i < 9; i++ {
		h.Back()
	}
	entries, idx = h.Window(5)
	require.Len(t, entries, 5)
	assert.Equal(t, int64(0), entries[0].ID)
	assert.Equal(t, 0, idx)

	for i := 0; i < 5; i++ {
		h.Forward()
	}
	entries, idx = h.Window(5)
	assert.Equal(t, int64(3), entries[0].ID)
	assert.Equal(t, 2, idx, "current entry centered")
}

func TestSeek(t *testing.T) {
	h := New(10)
	h.Record(e(1, "/a"))
	h.Record(e(2, "/b"))
	h.Record(e(3, "/c"))

	got, ok := h.Seek("/a")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.ID)
	assert.False(t, h.AtLatest())
	cur, _ := h.Current()
	assert.Equal(t, "/a", cur.Path)

	_, ok = h.Seek("/missing")
	assert.False(t, ok)
	cur, _ = h.Current()
	assert.Equal(t, "/a", cur.Path, "position unchanged on a miss")
}
