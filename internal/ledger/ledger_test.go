package ledger

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var backends = []Backend{BackendBolt, BackendSQLite}

// openTestLedger opens a fresh ledger file in a temp dir for the given backend.
func openTestLedger(t *testing.T, backend Backend) *Ledger {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "ledger-"+string(backend))
	l, err := Open(backend, dbPath, func(msg string) { t.Logf("ledger: %s", msg) })
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func forEachBackend(t *testing.T, fn func(t *testing.T, l *Ledger)) {
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			fn(t, openTestLedger(t, b))
		})
	}
}

func TestInsertIfAbsentDeduplicates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		paths := []string{"/img/a.jpg", "/img/b.png", "/img/a.jpg", "/img/./b.png", "/img/c.gif", "/img/a.jpg"}
		inserted := 0
		for _, p := range paths {
			ok, err := l.InsertIfAbsent(p)
			require.NoError(t, err)
			if ok {
				inserted++
			}
		}
		assert.Equal(t, 3, inserted)

		st, err := l.Count()
		require.NoError(t, err)
		assert.Equal(t, Stats{Total: 3, Viewed: 0}, st)

		recs, err := l.List()
		require.NoError(t, err)
		seen := map[string]bool{}
		for _, r := range recs {
			assert.False(t, seen[r.Path], "duplicate path %s", r.Path)
			seen[r.Path] = true
			assert.False(t, r.Viewed)
		}
		assert.True(t, seen["/img/b.png"], "paths are stored normalized")
	})
}

func TestInsertRejectsEmptyPath(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		_, err := l.InsertIfAbsent("  ")
		assert.Error(t, err)
	})
}

func TestPickNeverReturnsViewed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		for i := 0; i < 5; i++ {
			_, err := l.InsertIfAbsent(fmt.Sprintf("/img/%d.jpg", i))
			require.NoError(t, err)
		}

		served := map[int64]bool{}
		for i := 0; i < 5; i++ {
			rec, ok, err := l.PickRandomUnviewed()
			require.NoError(t, err)
			require.True(t, ok)
			assert.False(t, rec.Viewed)
			assert.False(t, served[rec.ID], "id %d returned again before reset", rec.ID)
			served[rec.ID] = true
			require.NoError(t, l.MarkViewed(rec.ID))
		}

		_, ok, err := l.PickRandomUnviewed()
		require.NoError(t, err)
		assert.False(t, ok, "every record viewed, nothing to pick")

		empty, err := l.IsEmpty()
		require.NoError(t, err)
		assert.False(t, empty)
	})
}

func TestMarkViewedIsIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		_, err := l.InsertIfAbsent("/img/a.jpg")
		require.NoError(t, err)
		rec, ok, err := l.PickRandomUnviewed()
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, l.MarkViewed(rec.ID))
		require.NoError(t, l.MarkViewed(rec.ID))

		st, err := l.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, st.Viewed)

		got, ok, err := l.Get(rec.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, got.Viewed)
	})
}

func TestMarkViewedUnknownID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		err := l.MarkViewed(4242)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.True(t, IsLedgerError(err))
	})
}

func TestResetAllViewedMakesEveryRecordPickable(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		all := map[int64]bool{}
		for i := 0; i < 4; i++ {
			_, err := l.InsertIfAbsent(fmt.Sprintf("/img/%d.png", i))
			require.NoError(t, err)
		}
		recs, err := l.List()
		require.NoError(t, err)
		for _, r := range recs {
			all[r.ID] = true
			require.NoError(t, l.MarkViewed(r.ID))
		}

		require.NoError(t, l.ResetAllViewed())
		st, err := l.Count()
		require.NoError(t, err)
		assert.Equal(t, 0, st.Viewed)

		seen := map[int64]bool{}
		for i := 0; i < 400 && len(seen) < len(all); i++ {
			rec, ok, err := l.PickRandomUnviewed()
			require.NoError(t, err)
			require.True(t, ok)
			seen[rec.ID] = true
		}
		assert.Equal(t, all, seen)
	})
}

func TestSingleViewedRecordCycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		_, err := l.InsertIfAbsent("/only/one.jpg")
		require.NoError(t, err)
		rec, ok, err := l.PickRandomUnviewed()
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, l.MarkViewed(rec.ID))

		_, ok, err = l.PickRandomUnviewed()
		require.NoError(t, err)
		assert.False(t, ok)
		empty, err := l.IsEmpty()
		require.NoError(t, err)
		assert.False(t, empty)

		require.NoError(t, l.ResetAllViewed())
		again, ok, err := l.PickRandomUnviewed()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, rec.ID, again.ID)
		assert.Equal(t, "/only/one.jpg", again.Path)
	})
}

func TestPickIsNotBiasedTowardEarlyRows(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		for i := 0; i < 3; i++ {
			_, err := l.InsertIfAbsent(fmt.Sprintf("/img/%d.jpg", i))
			require.NoError(t, err)
		}
		counts := map[int64]int{}
		const draws = 3000
		for i := 0; i < draws; i++ {
			rec, ok, err := l.PickRandomUnviewed()
			require.NoError(t, err)
			require.True(t, ok)
			counts[rec.ID]++
		}
		require.Len(t, counts, 3)
		for id, c := range counts {
			// Expected 1000 each; 700 is far outside normal variation.
			assert.Greater(t, c, 700, "id %d drawn %d times", id, c)
		}
	})
}

func TestDeleteRecordAndClearAll(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		for _, p := range []string{"/a.jpg", "/b.jpg", "/c.jpg"} {
			_, err := l.InsertIfAbsent(p)
			require.NoError(t, err)
		}
		recs, err := l.List()
		require.NoError(t, err)
		require.Len(t, recs, 3)

		require.NoError(t, l.DeleteRecord(recs[0].ID))
		require.NoError(t, l.DeleteRecord(recs[0].ID), "deleting twice is a no-op")
		_, ok, err := l.Get(recs[0].ID)
		require.NoError(t, err)
		assert.False(t, ok)

		// The deleted path can be discovered again.
		inserted, err := l.InsertIfAbsent(recs[0].Path)
		require.NoError(t, err)
		assert.True(t, inserted)

		require.NoError(t, l.MarkViewed(recs[1].ID))
		require.NoError(t, l.ClearAll())
		empty, err := l.IsEmpty()
		require.NoError(t, err)
		assert.True(t, empty)
		_, ok, err = l.LastServed()
		require.NoError(t, err)
		assert.False(t, ok, "clear forgets the last served path")
	})
}

func TestLastServedTracksMarkViewed(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		_, ok, err := l.LastServed()
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = l.InsertIfAbsent("/photos/2024/x.jpg")
		require.NoError(t, err)
		rec, _, err := l.PickRandomUnviewed()
		require.NoError(t, err)
		require.NoError(t, l.MarkViewed(rec.ID))

		p, ok, err := l.LastServed()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "/photos/2024/x.jpg", p)
	})
}

func TestLedgerSurvivesReopen(t *testing.T) {
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), "persist")
			l, err := Open(b, dbPath, nil)
			require.NoError(t, err)
			_, err = l.InsertIfAbsent("/keep/me.png")
			require.NoError(t, err)
			rec, _, err := l.PickRandomUnviewed()
			require.NoError(t, err)
			require.NoError(t, l.MarkViewed(rec.ID))
			require.NoError(t, l.Close())

			l2, err := Open(b, dbPath, nil)
			require.NoError(t, err)
			defer l2.Close()
			st, err := l2.Count()
			require.NoError(t, err)
			assert.Equal(t, Stats{Total: 1, Viewed: 1}, st)
			inserted, err := l2.InsertIfAbsent("/keep/me.png")
			require.NoError(t, err)
			assert.False(t, inserted)
		})
	}
}

func TestClosedLedgerSurfacesLedgerError(t *testing.T) {
	for _, b := range backends {
		t.Run(string(b), func(t *testing.T) {
			l, err := Open(b, filepath.Join(t.TempDir(), "closed"), nil)
			require.NoError(t, err)
			require.NoError(t, l.Close())

			_, err = l.InsertIfAbsent("/x.jpg")
			require.Error(t, err)
			var le *LedgerError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, "insert", le.Op)
			assert.Equal(t, "/x.jpg", le.Path)

			_, _, err = l.PickRandomUnviewed()
			assert.True(t, IsLedgerError(err))
		})
	}
}

func TestConcurrentInsertAndPick(t *testing.T) {
	forEachBackend(t, func(t *testing.T, l *Ledger) {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_, err := l.InsertIfAbsent(fmt.Sprintf("/bulk/%03d.jpg", i))
				assert.NoError(t, err)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				rec, ok, err := l.PickRandomUnviewed()
				assert.NoError(t, err)
				if ok {
					assert.False(t, rec.Viewed)
				}
			}
		}()
		wg.Wait()

		st, err := l.Count()
		require.NoError(t, err)
		assert.Equal(t, 100, st.Total)
	})
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendBolt, false},
		{"bolt", BackendBolt, false},
		{"SQLite", BackendSQLite, false},
		{"postgres", "", true},
	}
	for _, tt := range tests {
		got, err := ParseBackend(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
