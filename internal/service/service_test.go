package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"randview/internal/indexer"
	"randview/internal/ledger"
	"randview/internal/viewstate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFiles records trash and reveal calls instead of touching the desktop.
type fakeFiles struct {
	trashed  []string
	revealed []string
	trashErr error
}

func (f *fakeFiles) MoveToTrash(path string) error {
	if f.trashErr != nil {
		return f.trashErr
	}
	f.trashed = append(f.trashed, path)
	return os.Remove(path)
}

func (f *fakeFiles) RevealInFileManager(path string) error {
	f.revealed = append(f.revealed, path)
	return nil
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeJunk(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("definitely not a jpeg"), 0644))
}

type fixture struct {
	svc   *Service
	files *fakeFiles
	root  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l, err := ledger.Open(ledger.BackendBolt, filepath.Join(t.TempDir(), "ledger.db"), func(string) {})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	logger := func(m string) { t.Logf("service: %s", m) }
	files := &fakeFiles{}
	return &fixture{
		svc:   NewService(l, indexer.New(l, nil, nil, logger), files, logger),
		files: files,
		root:  t.TempDir(),
	}
}

func (f *fixture) index(t *testing.T) {
	t.Helper()
	scan, _, err := f.svc.SelectFolder(context.Background(), f.root)
	require.NoError(t, err)
	require.NoError(t, scan.Wait().Err)
}

func TestNextImageEmptyLedger(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.NextImage(nil)
	assert.ErrorIs(t, err, ErrEmptyFolder)
}

func TestNextImageServesEachOnceThenRecycles(t *testing.T) {
	f := newFixture(t)
	for _, n := range []string{"a.png", "b.png", "sub/c.png"} {
		writePNG(t, filepath.Join(f.root, n), 4, 3)
	}
	f.index(t)

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		served, err := f.svc.NextImage(f.svc.CheckImage)
		require.NoError(t, err)
		assert.False(t, served.Recycled)
		assert.False(t, seen[served.Record.Path], "served %s twice in one round", served.Record.Path)
		seen[served.Record.Path] = true
	}
	st, err := f.svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, ledger.Stats{Total: 3, Viewed: 3}, st)

	served, err := f.svc.NextImage(f.svc.CheckImage)
	require.NoError(t, err)
	assert.True(t, served.Recycled)
	st, err = f.svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, st.Viewed)
}

func TestNextImageEvictsUndecodableFiles(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.root, "good.png"), 2, 2)
	writeJunk(t, filepath.Join(f.root, "bad1.jpg"))
	writeJunk(t, filepath.Join(f.root, "bad2.gif"))
	f.index(t)

	served, err := f.svc.NextImage(f.svc.CheckImage)
	require.NoError(t, err)
	assert.Equal(t, "good.png", filepath.Base(served.Record.Path))

	// Whatever was evicted is gone; the rest is still pickable.
	st, err := f.svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3-served.Evicted, st.Total)
}

func TestNextImageAllBrokenEndsEmpty(t *testing.T) {
	f := newFixture(t)
	writeJunk(t, filepath.Join(f.root, "x.png"))
	writeJunk(t, filepath.Join(f.root, "y.png"))
	f.index(t)

	served, err := f.svc.NextImage(f.svc.CheckImage)
	assert.ErrorIs(t, err, ErrEmptyFolder)
	assert.Equal(t, 2, served.Evicted)
}

func TestNextImagePropagatesOtherErrors(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.root, "a.png"), 2, 2)
	f.index(t)

	boom := errors.New("renderer exploded")
	_, err := f.svc.NextImage(func(ledger.ImageRecord) error { return boom })
	assert.ErrorIs(t, err, boom)
	st, err := f.svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, ledger.Stats{Total: 1}, st, "record kept and not marked viewed")
}

func TestDeleteImageFile(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.root, "a.png"), 2, 2)
	writePNG(t, filepath.Join(f.root, "b.png"), 2, 2)
	f.index(t)
	recs, err := f.svc.Ledger.List()
	require.NoError(t, err)
	require.Len(t, recs, 2)

	require.NoError(t, f.svc.DeleteImageFile(recs[0]))
	assert.Equal(t, []string{recs[0].Path}, f.files.trashed)
	_, ok, err := f.svc.Ledger.Get(recs[0].ID)
	require.NoError(t, err)
	assert.False(t, ok)

	f.files.trashErr = errors.New("permission denied")
	assert.Error(t, f.svc.DeleteImageFile(recs[1]))
	_, ok, err = f.svc.Ledger.Get(recs[1].ID)
	require.NoError(t, err)
	assert.True(t, ok, "record kept when the file could not be trashed")
}

func TestCleanDatabaseDropsMissingFiles(t *testing.T) {
	f := newFixture(t)
	keep := filepath.Join(f.root, "keep.png")
	gone := filepath.Join(f.root, "gone.png")
	writePNG(t, keep, 1, 1)
	writePNG(t, gone, 1, 1)
	f.index(t)
	require.NoError(t, os.Remove(gone))

	removed, err := f.svc.CleanDatabase()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	recs, err := f.svc.Ledger.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, keep, recs[0].Path)
}

func TestSelectFolderClearsForUnrelatedFolder(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.root, "a.png"), 1, 1)
	f.index(t)
	_, err := f.svc.NextImage(nil)
	require.NoError(t, err)

	other := t.TempDir()
	writePNG(t, filepath.Join(other, "z.png"), 1, 1)
	scan, cleared, err := f.svc.SelectFolder(context.Background(), other)
	require.NoError(t, err)
	assert.True(t, cleared)
	res := scan.Wait()
	require.NoError(t, res.Err)

	recs, err := f.svc.Ledger.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "z.png", filepath.Base(recs[0].Path))
}

func TestRescanKeepsViewedState(t *testing.T) {
	f := newFixture(t)
	writePNG(t, filepath.Join(f.root, "a.png"), 1, 1)
	f.index(t)
	_, err := f.svc.NextImage(nil)
	require.NoError(t, err)

	writePNG(t, filepath.Join(f.root, "new.png"), 1, 1)
	scan, err := f.svc.Rescan(context.Background(), f.root)
	require.NoError(t, err)
	res := scan.Wait()
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Inserted)

	st, err := f.svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, ledger.Stats{Total: 2, Viewed: 1}, st)
}

func TestImageServiceDecodeAndInfo(t *testing.T) {
	is := NewImageService()
	dir := t.TempDir()
	good := filepath.Join(dir, "g.png")
	writePNG(t, good, 7, 5)

	img, err := is.Decode(good)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 7, 5), img.Bounds())

	info, err := is.GetImageInfo(good)
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, 7, info.Width)
	assert.Equal(t, 5, info.Height)
	assert.Positive(t, info.Size)
	assert.Empty(t, info.EXIFData)

	bad := filepath.Join(dir, "b.jpg")
	writeJunk(t, bad)
	_, err = is.Decode(bad)
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, bad, de.Path)
	assert.True(t, IsDecodeFailure(err))
	assert.Error(t, is.Check(bad))

	// A LoadError from the view wrapping it still counts.
	assert.True(t, IsDecodeFailure(&viewstate.LoadError{Path: bad, Err: err}))
	assert.False(t, IsDecodeFailure(errors.New("other")))
}

func TestFindByPath(t *testing.T) {
	f := newFixture(t)
	p := filepath.Join(f.root, "a.png")
	writePNG(t, p, 1, 1)
	f.index(t)

	rec, ok, err := f.svc.FindByPath(filepath.Join(f.root, "sub", "..", "a.png"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, rec.Path)

	_, ok, err = f.svc.FindByPath(filepath.Join(f.root, "b.png"))
	require.NoError(t, err)
	assert.False(t, ok)
}

// slowInserts delays indexer writes so a scan is still running when the
// ledger is cleared.
type slowInserts struct{ *ledger.Ledger }

func (s slowInserts) InsertIfAbsent(path string) (bool, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Ledger.InsertIfAbsent(path)
}

func TestClearLedgerDuringScanStaysEmpty(t *testing.T) {
	l, err := ledger.Open(ledger.BackendBolt, filepath.Join(t.TempDir(), "ledger.db"), func(string) {})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	svc := NewService(l, indexer.New(slowInserts{l}, nil, nil, nil), &fakeFiles{}, func(string) {})

	root := t.TempDir()
	for i := 0; i < 60; i++ {
		writeJunk(t, filepath.Join(root, fmt.Sprintf("%02d.jpg", i)))
	}
	old, _, err := svc.SelectFolder(context.Background(), root)
	require.NoError(t, err)
	<-old.Progress()

	require.NoError(t, svc.ClearLedger())
	old.Wait()
	st, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, st.Total)
}

func TestSelectFolderDuringScanKeepsOnlyNewFolder(t *testing.T) {
	l, err := ledger.Open(ledger.BackendBolt, filepath.Join(t.TempDir(), "ledger.db"), func(string) {})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	svc := NewService(l, indexer.New(slowInserts{l}, nil, nil, nil), &fakeFiles{}, func(string) {})

	base := t.TempDir()
	oldRoot, newRoot := filepath.Join(base, "old"), filepath.Join(base, "new")
	for i := 0; i < 60; i++ {
		writeJunk(t, filepath.Join(oldRoot, fmt.Sprintf("%02d.jpg", i)))
	}
	writeJunk(t, filepath.Join(newRoot, "only.jpg"))

	old, _, err := svc.SelectFolder(context.Background(), oldRoot)
	require.NoError(t, err)
	<-old.Progress()

	next, cleared, err := svc.SelectFolder(context.Background(), newRoot)
	require.NoError(t, err)
	assert.True(t, cleared)
	old.Wait()
	require.NoError(t, next.Wait().Err)

	records, err := l.List()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, filepath.Join(newRoot, "only.jpg"), records[0].Path)
}
