// Package indexer discovers images under a folder and records them in the ledger
// from a background goroutine, reporting progress as it goes.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"randview/internal/ledger"
	"randview/internal/scan"
)

// Progress is emitted after every processed file of a scan.
type Progress struct {
	ScanID  int64
	Current int
	Total   int
}

// Result is delivered once, when a scan ends.
type Result struct {
	ScanID   int64
	Root     string
	Total    int
	Inserted int
	Err      error // nil, context.Canceled, ErrSuperseded or a *ledger.LedgerError
}

// ErrSuperseded ends a scan that a newer scan replaced.
var ErrSuperseded = errors.New("scan superseded by a newer scan")

// Ledger is the subset of the ledger the indexer writes to.
type Ledger interface {
	InsertIfAbsent(path string) (bool, error)
	IsEmpty() (bool, error)
	ClearAll() error
	LastServed() (string, bool, error)
}

var _ Ledger = (*ledger.Ledger)(nil)

// Indexer runs at most one live scan at a time.
type Indexer struct {
	ledger     Ledger
	scanner    scan.FileScanner
	extensions scan.Extensions
	logger     func(string)

	gen     atomic.Int64
	mu      sync.Mutex
	current *Scan
}

// New creates an Indexer. A nil scanner uses scan.FileScannerImpl and empty
// extensions use scan.DefaultExtensions.
func New(l Ledger, scanner scan.FileScanner, exts scan.Extensions, logger func(string)) *Indexer {
	if scanner == nil {
		scanner = scan.FileScannerImpl{}
	}
	if len(exts) == 0 {
		exts = scan.NewExtensions(scan.DefaultExtensions...)
	}
	return &Indexer{
		ledger:     l,
		scanner:    scanner,
		extensions: exts,
		logger:     logger,
	}
}

func (ix *Indexer) logMessage(format string, args ...interface{}) {
	if ix.logger != nil {
		ix.logger(fmt.Sprintf(format, args...))
	} else {
		log.Printf(format, args...)
	}
}

// Extensions returns the accepted extension set.
func (ix *Indexer) Extensions() scan.Extensions { return ix.extensions }

// IsCurrent reports whether scanID belongs to the most recently started scan.
// Receivers use it to drop messages from a scan that was replaced.
func (ix *Indexer) IsCurrent(scanID int64) bool {
	return ix.gen.Load() == scanID
}

// IsDescendant reports whether path lies inside root (or is root itself),
// comparing whole path components.
func IsDescendant(path, root string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// PrepareFolder applies the folder-change policy before root is scanned: a
// non-empty ledger is kept only when the last served image lies under root,
// otherwise it is cleared. A scan in flight is stopped first, so nothing it
// inserts can land after the clear. It returns whether the ledger was cleared.
func (ix *Indexer) PrepareFolder(root string) (bool, error) {
	ix.Stop()
	empty, err := ix.ledger.IsEmpty()
	if err != nil {
		return false, err
	}
	if empty {
		return false, nil
	}
	last, ok, err := ix.ledger.LastServed()
	if err != nil {
		return false, err
	}
	if ok && IsDescendant(last, root) {
		ix.logMessage("Keeping ledger: last served %s is under %s", last, root)
		return false, nil
	}
	if err := ix.ledger.ClearAll(); err != nil {
		return false, err
	}
	ix.logMessage("Cleared ledger for new folder %s", root)
	return true, nil
}

// Scan is a handle on one background scan.
type Scan struct {
	ID       int64
	Root     string
	progress chan Progress
	done     chan Result
	cancel   context.CancelFunc
	finished chan struct{}
	result   Result
}

// Progress streams (current, total) updates. It is closed when the scan ends
// and must be drained, directly or through Wait.
func (s *Scan) Progress() <-chan Progress { return s.progress }

// Done delivers the Result once. It is buffered so nobody has to read it.
func (s *Scan) Done() <-chan Result { return s.done }

// Cancel stops the scan. Records already inserted stay committed.
func (s *Scan) Cancel() { s.cancel() }

// Wait blocks until the scan ends and returns its Result. It drains any
// progress nobody else is reading.
func (s *Scan) Wait() Result {
	for range s.progress {
	}
	<-s.finished
	return s.result
}

// Start cancels any scan in flight and begins indexing root in the background.
func (ix *Indexer) Start(ctx context.Context, root string) *Scan {
	ctx, cancel := context.WithCancel(ctx)

	s := &Scan{
		Root:     root,
		progress: make(chan Progress, 16),
		done:     make(chan Result, 1),
		cancel:   cancel,
		finished: make(chan struct{}),
	}

	ix.mu.Lock()
	if ix.current != nil {
		ix.current.cancel()
	}
	ix.current = s
	s.ID = ix.gen.Add(1)
	ix.mu.Unlock()

	go ix.run(ctx, s)
	return s
}

func (ix *Indexer) run(ctx context.Context, s *Scan) {
	res := Result{ScanID: s.ID, Root: s.Root}
	defer func() {
		close(s.progress)
		s.result = res
		s.done <- res
		close(s.finished)
		s.cancel()
	}()

	if err := scan.RootError(s.Root); err != nil {
		res.Err = &scan.ScanIOError{Path: s.Root, Err: err}
		ix.logMessage("Scan %d: %v", s.ID, res.Err)
		return
	}

	// Enumerate first so the total is fixed for the whole scan.
	items, err := scan.Collect(ctx, ix.scanner, s.Root, ix.extensions, scan.LoggerFunc(ix.logger))
	if err != nil {
		res.Err = ix.stopReason(ctx, s.ID, err)
		return
	}
	res.Total = len(items)
	ix.logMessage("Scan %d: %d image(s) found under %s", s.ID, res.Total, s.Root)

	for i, item := range items {
		if !ix.IsCurrent(s.ID) {
			res.Err = ErrSuperseded
			return
		}
		if err := ctx.Err(); err != nil {
			res.Err = ix.stopReason(ctx, s.ID, err)
			return
		}
		inserted, err := ix.ledger.InsertIfAbsent(item.Path)
		if err != nil {
			res.Err = err
			ix.logMessage("Scan %d aborted: %v", s.ID, err)
			return
		}
		if inserted {
			res.Inserted++
		}

		p := Progress{ScanID: s.ID, Current: i + 1, Total: res.Total}
		select {
		case s.progress <- p:
		case <-ctx.Done():
			res.Err = ix.stopReason(ctx, s.ID, ctx.Err())
			return
		}
	}
	ix.logMessage("Scan %d finished: %d new of %d", s.ID, res.Inserted, res.Total)
}

func (ix *Indexer) stopReason(ctx context.Context, id int64, err error) error {
	if ctx.Err() != nil && !ix.IsCurrent(id) {
		return ErrSuperseded
	}
	return err
}

// Stop cancels the scan in flight, if any, and returns once it has ended.
// Progress already queued stays readable.
func (ix *Indexer) Stop() {
	ix.mu.Lock()
	s := ix.current
	ix.current = nil
	ix.mu.Unlock()
	if s == nil {
		return
	}
	s.cancel()
	<-s.finished
}
