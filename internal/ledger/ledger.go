// Package ledger keeps the persistent record of discovered image paths and
// whether each one has been shown in the current cycle.
package ledger

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const appName = "randview"

// Backend selects the storage engine behind a Ledger.
type Backend string

const (
	BackendBolt   Backend = "bolt"
	BackendSQLite Backend = "sqlite"
)

// LoggerFunc defines a function signature for logging messages.
type LoggerFunc func(message string)

// ImageRecord is one known image. Path is unique within a ledger.
type ImageRecord struct {
	ID     int64
	Path   string
	Viewed bool
}

// Stats summarizes the ledger contents.
type Stats struct {
	Total  int
	Viewed int
}

// Unviewed returns the number of records still waiting to be shown.
func (s Stats) Unviewed() int { return s.Total - s.Viewed }

// Store is a storage engine for image records. Implementations do not need to
// be safe for concurrent use; Ledger serializes access.
type Store interface {
	InsertIfAbsent(path string) (bool, error)
	PickRandomUnviewed() (ImageRecord, bool, error)
	MarkViewed(id int64) error
	ResetAllViewed() error
	Count() (Stats, error)
	Get(id int64) (ImageRecord, bool, error)
	List() ([]ImageRecord, error)
	DeleteRecord(id int64) error
	ClearAll() error
	LastServed() (string, bool, error)
	Close() error
}

// Ledger is the shared, lock-protected view of a Store. The background
// indexer and the interactive shell both go through it.
type Ledger struct {
	mu     sync.RWMutex
	store  Store
	path   string
	logger LoggerFunc
}

// New wraps an already opened store.
func New(store Store, logger LoggerFunc) *Ledger {
	return &Ledger{store: store, logger: logger}
}

// ParseBackend maps a configuration string onto a Backend. Empty selects bolt.
func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendBolt:
		return BackendBolt, nil
	case BackendSQLite:
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("unknown ledger backend %q (want %q or %q)", s, BackendBolt, BackendSQLite)
	}
}

// DefaultPath returns the ledger file location inside the user config directory,
// creating the directory if needed.
func DefaultPath(backend Backend) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config dir: %w", err)
	}
	appConfigDir := filepath.Join(configDir, appName)
	if err := os.MkdirAll(appConfigDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create config directory %s: %w", appConfigDir, err)
	}
	name := boltFileName
	if backend == BackendSQLite {
		name = sqliteFileName
	}
	return filepath.Join(appConfigDir, name), nil
}

// Open creates or opens a ledger file. An empty dbPath selects DefaultPath.
func Open(backend Backend, dbPath string, logger LoggerFunc) (*Ledger, error) {
	if dbPath == "" {
		p, err := DefaultPath(backend)
		if err != nil {
			return nil, err
		}
		dbPath = p
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0750); err != nil {
		return nil, &LedgerError{Op: "open", Path: dbPath, Err: err}
	}

	var (
		store Store
		err   error
	)
	switch backend {
	case BackendBolt, "":
		store, err = openBolt(dbPath)
	case BackendSQLite:
		store, err = openSQLite(dbPath)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
	if err != nil {
		return nil, wrap("open", dbPath, err)
	}

	l := New(store, logger)
	l.path = dbPath
	l.logMessage("Using %s ledger at: %s", backend, dbPath)
	return l, nil
}

// Path returns the file backing the ledger, if known.
func (l *Ledger) Path() string { return l.path }

func (l *Ledger) logMessage(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger(fmt.Sprintf(format, args...))
	} else {
		log.Printf(format, args...)
	}
}

// NormalizePath is the canonical form paths are stored and compared in.
func NormalizePath(p string) string {
	return filepath.Clean(p)
}

// InsertIfAbsent adds path with viewed=false. It returns false without
// writing anything when the path is already known.
func (l *Ledger) InsertIfAbsent(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, errors.New("image path cannot be empty")
	}
	path = NormalizePath(path)
	l.mu.Lock()
	defer l.mu.Unlock()
	inserted, err := l.store.InsertIfAbsent(path)
	return inserted, wrap("insert", path, err)
}

// PickRandomUnviewed draws uniformly among records with viewed=false.
// ok is false when there is no such record.
func (l *Ledger) PickRandomUnviewed() (rec ImageRecord, ok bool, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok, err = l.store.PickRandomUnviewed()
	return rec, ok, wrap("pick", "", err)
}

// MarkViewed flags the record as shown and remembers it as the last served image.
func (l *Ledger) MarkViewed(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return wrap("mark-viewed", "", l.store.MarkViewed(id))
}

// ResetAllViewed starts a new cycle: every record becomes unviewed.
func (l *Ledger) ResetAllViewed() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return wrap("reset", "", l.store.ResetAllViewed())
}

// IsEmpty reports whether the ledger holds zero records.
func (l *Ledger) IsEmpty() (bool, error) {
	st, err := l.Count()
	if err != nil {
		return false, err
	}
	return st.Total == 0, nil
}

// Count returns the total and viewed record counts.
func (l *Ledger) Count() (Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	st, err := l.store.Count()
	return st, wrap("count", "", err)
}

// Get returns a record by id.
func (l *Ledger) Get(id int64) (ImageRecord, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok, err := l.store.Get(id)
	return rec, ok, wrap("get", "", err)
}

// List returns every record in id order.
func (l *Ledger) List() ([]ImageRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	recs, err := l.store.List()
	return recs, wrap("list", "", err)
}

// DeleteRecord removes one record. Deleting an unknown id is a no-op.
func (l *Ledger) DeleteRecord(id int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return wrap("delete", "", l.store.DeleteRecord(id))
}

// ClearAll removes every record and forgets the last served path.
func (l *Ledger) ClearAll() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return wrap("clear", "", l.store.ClearAll())
}

// LastServed returns the path of the most recently viewed record.
func (l *Ledger) LastServed() (string, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok, err := l.store.LastServed()
	return p, ok, wrap("last-served", "", err)
}

// Close releases the underlying store.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.store == nil {
		return nil
	}
	return wrap("close", l.path, l.store.Close())
}
