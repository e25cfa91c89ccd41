package service

import (
	"path/filepath"
	"testing"

	"randview/internal/viewstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewManagerNextFitsImage(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.root, "wide.png"), 400, 100)
	f.index(t)

	vm := NewViewManager(f.svc, 200, 200, 10)
	served, err := vm.Next()
	require.NoError(t, err)
	assert.Equal(t, "wide.png", filepath.Base(served.Record.Path))

	cur, ok := vm.Current()
	require.True(t, ok)
	assert.Equal(t, served.Record.ID, cur.ID)
	assert.Equal(t, viewstate.Fitted, vm.View().State())
	assert.InDelta(t, 0.5, vm.View().Transform().Scale, 1e-9)
	assert.Equal(t, "0.50x", vm.View().ScaleLabel())
}

func TestViewManagerBackAndForward(t *testing.T) {
	f := newFixture(t)
	for _, n := range []string{"1.png", "2.png", "3.png"} {
		writePNG(t, filepath.Join(f.root, n), 2, 2)
	}
	f.index(t)
	vm := NewViewManager(f.svc, 100, 100, 10)

	var order []string
	for i := 0; i < 3; i++ {
		s, err := vm.Next()
		require.NoError(t, err)
		order = append(order, s.Record.Path)
	}

	rec, err := vm.Back()
	require.NoError(t, err)
	assert.Equal(t, order[1], rec.Path)
	rec, err = vm.Back()
	require.NoError(t, err)
	assert.Equal(t, order[0], rec.Path)
	_, err = vm.Back()
	assert.ErrorIs(t, err, ErrHistoryStart)

	// Next walks forward through what was already served before picking anew.
	s, err := vm.Next()
	require.NoError(t, err)
	assert.Equal(t, order[1], s.Record.Path)
	s, err = vm.Next()
	require.NoError(t, err)
	assert.Equal(t, order[2], s.Record.Path)

	st, err := f.svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Viewed)
}

func TestViewManagerDeleteCurrent(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.root, "a.png"), 2, 2)
	writePNG(t, filepath.Join(f.root, "b.png"), 2, 2)
	f.index(t)
	vm := NewViewManager(f.svc, 100, 100, 10)

	_, err := vm.DeleteCurrent()
	assert.ErrorIs(t, err, ErrNoImage)

	first, err := vm.Next()
	require.NoError(t, err)
	_, err = vm.Next()
	require.NoError(t, err)

	deleted, err := vm.DeleteCurrent()
	require.NoError(t, err)
	assert.Equal(t, []string{deleted.Path}, f.files.trashed)
	assert.Equal(t, viewstate.Empty, vm.View().State())
	_, ok := vm.Current()
	assert.False(t, ok)

	rec, err := vm.Back()
	require.NoError(t, err)
	assert.Equal(t, first.Record.Path, rec.Path)

	require.NoError(t, vm.RevealCurrent())
	assert.Equal(t, []string{first.Record.Path}, f.files.revealed)
}

func TestViewManagerEmptyFolder(t *testing.T) {
	f := newFixture(t)
	vm := NewViewManager(f.svc, 100, 100, 10)
	_, err := vm.Next()
	assert.ErrorIs(t, err, ErrEmptyFolder)
	assert.Equal(t, viewstate.Empty, vm.View().State())
	_, err = vm.Info()
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestViewManagerJumpTo(t *testing.T) {
	f := newFixture(t)
	for _, n := range []string{"1.png", "2.png", "3.png"} {
		writePNG(t, filepath.Join(f.root, n), 2, 2)
	}
	f.index(t)
	vm := NewViewManager(f.svc, 100, 100, 10)

	var order []string
	for i := 0; i < 3; i++ {
		s, err := vm.Next()
		require.NoError(t, err)
		order = append(order, s.Record.Path)
	}

	recent, idx := vm.Recent(9)
	require.Len(t, recent, 3)
	assert.Equal(t, 2, idx)

	rec, err := vm.JumpTo(order[0])
	require.NoError(t, err)
	assert.Equal(t, order[0], rec.Path)
	_, idx = vm.Recent(9)
	assert.Equal(t, 0, idx)

	// Next walks forward again from the jumped-to image.
	s, err := vm.Next()
	require.NoError(t, err)
	assert.Equal(t, order[1], s.Record.Path)

	_, err = vm.JumpTo(filepath.Join(f.root, "never-served.png"))
	assert.Error(t, err)
}
