package ledger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	boltFileName   = "randview.db"
	ImagesBucket   = "Images"   // id -> JSON record
	PathsBucket    = "Paths"    // path -> id
	UnviewedBucket = "Unviewed" // id -> empty, the pick pool
	MetaBucket     = "Meta"
	lastServedKey  = "last_served"
)

var allBuckets = []string{ImagesBucket, PathsBucket, UnviewedBucket, MetaBucket}

type boltStore struct {
	db *bolt.DB
}

type boltRecord struct {
	Path   string `json:"path"`
	Viewed bool   `json:"viewed"`
}

func openBolt(dbPath string) (*boltStore, error) {
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database %s: %w", dbPath, err)
	}

	// Ensure buckets exist
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

func decodeRecord(id []byte, data []byte) (ImageRecord, error) {
	var r boltRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return ImageRecord{}, fmt.Errorf("failed to decode record %d: %w", btoi(id), err)
	}
	return ImageRecord{ID: btoi(id), Path: r.Path, Viewed: r.Viewed}, nil
}

func putRecord(b *bolt.Bucket, rec ImageRecord) error {
	data, err := json.Marshal(boltRecord{Path: rec.Path, Viewed: rec.Viewed})
	if err != nil {
		return fmt.Errorf("failed to encode record %d: %w", rec.ID, err)
	}
	return b.Put(itob(rec.ID), data)
}

func (s *boltStore) InsertIfAbsent(path string) (bool, error) {
	inserted := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		paths := tx.Bucket([]byte(PathsBucket))
		if paths.Get([]byte(path)) != nil {
			return nil
		}
		images := tx.Bucket([]byte(ImagesBucket))
		seq, err := images.NextSequence()
		if err != nil {
			return err
		}
		rec := ImageRecord{ID: int64(seq), Path: path}
		if err := putRecord(images, rec); err != nil {
			return err
		}
		if err := paths.Put([]byte(path), itob(rec.ID)); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(UnviewedBucket)).Put(itob(rec.ID), []byte{}); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// PickRandomUnviewed draws k uniformly from [0, n) and walks the pool
// cursor to the k-th key.
func (s *boltStore) PickRandomUnviewed() (ImageRecord, bool, error) {
	var (
		rec ImageRecord
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		pool := tx.Bucket([]byte(UnviewedBucket))
		n := 0
		if err := pool.ForEach(func(_, _ []byte) error { n++; return nil }); err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		k := rand.IntN(n)
		c := pool.Cursor()
		key, _ := c.First()
		for i := 0; i < k && key != nil; i++ {
			key, _ = c.Next()
		}
		if key == nil {
			return fmt.Errorf("unviewed pool changed during pick")
		}
		data := tx.Bucket([]byte(ImagesBucket)).Get(key)
		if data == nil {
			return fmt.Errorf("unviewed id %d has no record", btoi(key))
		}
		var err error
		rec, err = decodeRecord(key, data)
		if err != nil {
			return err
		}
		ok = true
		return nil
	})
	return rec, ok, err
}

func (s *boltStore) MarkViewed(id int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		images := tx.Bucket([]byte(ImagesBucket))
		data := images.Get(itob(id))
		if data == nil {
			return fmt.Errorf("id %d: %w", id, ErrNotFound)
		}
		rec, err := decodeRecord(itob(id), data)
		if err != nil {
			return err
		}
		if !rec.Viewed {
			rec.Viewed = true
			if err := putRecord(images, rec); err != nil {
				return err
			}
			if err := tx.Bucket([]byte(UnviewedBucket)).Delete(itob(id)); err != nil {
				return err
			}
		}
		return tx.Bucket([]byte(MetaBucket)).Put([]byte(lastServedKey), []byte(rec.Path))
	})
}

func (s *boltStore) ResetAllViewed() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		images := tx.Bucket([]byte(ImagesBucket))
		pool := tx.Bucket([]byte(UnviewedBucket))

		// Collect first, bbolt does not allow writes while iterating.
		var viewed []ImageRecord
		err := images.ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(k, v)
			if err != nil {
				return err
			}
			if rec.Viewed {
				viewed = append(viewed, rec)
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, rec := range viewed {
			rec.Viewed = false
			if err := putRecord(images, rec); err != nil {
				return err
			}
			if err := pool.Put(itob(rec.ID), []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltStore) Count() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		unviewed := 0
		if err := tx.Bucket([]byte(ImagesBucket)).ForEach(func(_, _ []byte) error { st.Total++; return nil }); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(UnviewedBucket)).ForEach(func(_, _ []byte) error { unviewed++; return nil }); err != nil {
			return err
		}
		st.Viewed = st.Total - unviewed
		return nil
	})
	return st, err
}

func (s *boltStore) Get(id int64) (ImageRecord, bool, error) {
	var (
		rec ImageRecord
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(ImagesBucket)).Get(itob(id))
		if data == nil {
			return nil
		}
		var err error
		rec, err = decodeRecord(itob(id), data)
		ok = err == nil
		return err
	})
	return rec, ok, err
}

func (s *boltStore) List() ([]ImageRecord, error) {
	var recs []ImageRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ImagesBucket)).ForEach(func(k, v []byte) error {
			rec, err := decodeRecord(k, v)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
	})
	return recs, err
}

func (s *boltStore) DeleteRecord(id int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		images := tx.Bucket([]byte(ImagesBucket))
		data := images.Get(itob(id))
		if data == nil {
			return nil
		}
		rec, err := decodeRecord(itob(id), data)
		if err != nil {
			return err
		}
		if err := images.Delete(itob(id)); err != nil {
			return err
		}
		if err := tx.Bucket([]byte(PathsBucket)).Delete([]byte(rec.Path)); err != nil {
			return err
		}
		return tx.Bucket([]byte(UnviewedBucket)).Delete(itob(id))
	})
}

func (s *boltStore) ClearAll() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{ImagesBucket, PathsBucket, UnviewedBucket} {
			if err := tx.DeleteBucket([]byte(name)); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
				return fmt.Errorf("failed to drop bucket %s: %w", name, err)
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return fmt.Errorf("failed to recreate bucket %s: %w", name, err)
			}
		}
		return tx.Bucket([]byte(MetaBucket)).Delete([]byte(lastServedKey))
	})
}

func (s *boltStore) LastServed() (string, bool, error) {
	var (
		path string
		ok   bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(MetaBucket)).Get([]byte(lastServedKey))
		if v != nil {
			path, ok = string(v), true
		}
		return nil
	})
	return path, ok, err
}

func (s *boltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
