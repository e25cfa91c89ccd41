package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteFileName = "randview.sqlite"

type sqliteStore struct {
	conn *sql.DB
}

func openSQLite(dbPath string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", filepath.Clean(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps the per-connection pragmas in force and matches
	// the single-writer model of the ledger.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id INTEGER PRIMARY KEY,
		path TEXT NOT NULL UNIQUE,
		viewed BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_images_viewed ON images (viewed);
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &sqliteStore{conn: db}, nil
}

func (s *sqliteStore) InsertIfAbsent(path string) (bool, error) {
	res, err := s.conn.Exec("INSERT OR IGNORE INTO images (path, viewed) VALUES (?, 0)", path)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *sqliteStore) PickRandomUnviewed() (ImageRecord, bool, error) {
	var rec ImageRecord
	err := s.conn.QueryRow(
		"SELECT id, path, viewed FROM images WHERE viewed = 0 ORDER BY RANDOM() LIMIT 1",
	).Scan(&rec.ID, &rec.Path, &rec.Viewed)
	if errors.Is(err, sql.ErrNoRows) {
		return ImageRecord{}, false, nil
	}
	if err != nil {
		return ImageRecord{}, false, err
	}
	return rec, true, nil
}

func (s *sqliteStore) MarkViewed(id int64) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var path string
	err = tx.QueryRow("SELECT path FROM images WHERE id = ?", id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("id %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE images SET viewed = 1 WHERE id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", lastServedKey, path); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) ResetAllViewed() error {
	_, err := s.conn.Exec("UPDATE images SET viewed = 0 WHERE viewed = 1")
	return err
}

func (s *sqliteStore) Count() (Stats, error) {
	var st Stats
	err := s.conn.QueryRow("SELECT COUNT(*), COALESCE(SUM(viewed), 0) FROM images").Scan(&st.Total, &st.Viewed)
	return st, err
}

func (s *sqliteStore) Get(id int64) (ImageRecord, bool, error) {
	var rec ImageRecord
	err := s.conn.QueryRow("SELECT id, path, viewed FROM images WHERE id = ?", id).Scan(&rec.ID, &rec.Path, &rec.Viewed)
	if errors.Is(err, sql.ErrNoRows) {
		return ImageRecord{}, false, nil
	}
	if err != nil {
		return ImageRecord{}, false, err
	}
	return rec, true, nil
}

func (s *sqliteStore) List() ([]ImageRecord, error) {
	rows, err := s.conn.Query("SELECT id, path, viewed FROM images ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []ImageRecord
	for rows.Next() {
		var rec ImageRecord
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.Viewed); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *sqliteStore) DeleteRecord(id int64) error {
	_, err := s.conn.Exec("DELETE FROM images WHERE id = ?", id)
	return err
}

func (s *sqliteStore) ClearAll() error {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM images"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM meta WHERE key = ?", lastServedKey); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *sqliteStore) LastServed() (string, bool, error) {
	var path string
	err := s.conn.QueryRow("SELECT value FROM meta WHERE key = ?", lastServedKey).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return path, true, nil
}

func (s *sqliteStore) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
