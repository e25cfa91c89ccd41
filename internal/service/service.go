// Package service ties the ledger, the indexer and the image decoder into the
// operations the shells (GUI and CLI) offer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"randview/internal/indexer"
	"randview/internal/ledger"
	"randview/internal/viewstate"
)

// maxDecodeAttempts bounds how many broken files one NextImage call evicts
// before giving up.
const maxDecodeAttempts = 10

// ErrEmptyFolder means the ledger holds no images at all.
var ErrEmptyFolder = errors.New("no images in ledger; choose a folder with images")

// FileManager moves files to the trash and shows them in the file manager.
type FileManager interface {
	MoveToTrash(path string) error
	RevealInFileManager(path string) error
}

// Served is the outcome of a successful NextImage.
type Served struct {
	Record ledger.ImageRecord
	// Recycled is set when every image had been viewed and the ledger was
	// reset to start a new round.
	Recycled bool
	// Evicted counts undecodable records dropped on the way.
	Evicted int
}

// Service is the main entry point for business logic.
type Service struct {
	Ledger  *ledger.Ledger
	Indexer *indexer.Indexer
	Images  *ImageService
	Files   FileManager
	Logger  func(string)
}

// NewService constructs a new Service.
func NewService(l *ledger.Ledger, ix *indexer.Indexer, files FileManager, logger func(string)) *Service {
	return &Service{
		Ledger:  l,
		Indexer: ix,
		Images:  NewImageService(),
		Files:   files,
		Logger:  logger,
	}
}

func (s *Service) logMessage(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger(fmt.Sprintf(format, args...))
	} else {
		log.Printf(format, args...)
	}
}

// IsDecodeFailure reports whether err means the file could not be shown, as
// opposed to a ledger or programming error.
func IsDecodeFailure(err error) bool {
	var de *DecodeError
	var le *viewstate.LoadError
	return errors.As(err, &de) || errors.As(err, &le)
}

// NextImage picks a random unviewed record, hands it to show and marks it
// viewed once show succeeds. Records show cannot decode are evicted and
// another is picked. When everything has been viewed the ledger is reset
// once and Served.Recycled is set. A nil show accepts every record.
func (s *Service) NextImage(show func(ledger.ImageRecord) error) (Served, error) {
	var served Served
	var lastErr error
	for attempt := 0; attempt < maxDecodeAttempts; attempt++ {
		rec, ok, err := s.Ledger.PickRandomUnviewed()
		if err != nil {
			return served, err
		}
		if !ok {
			empty, err := s.Ledger.IsEmpty()
			if err != nil {
				return served, err
			}
			if empty || served.Recycled {
				return served, ErrEmptyFolder
			}
			if err := s.Ledger.ResetAllViewed(); err != nil {
				return served, err
			}
			s.logMessage("All images viewed, starting over")
			served.Recycled = true
			attempt--
			continue
		}

		if show != nil {
			if err := show(rec); err != nil {
				if !IsDecodeFailure(err) {
					return served, err
				}
				s.logMessage("Skipping %s: %v", rec.Path, err)
				if err := s.Ledger.DeleteRecord(rec.ID); err != nil {
					return served, err
				}
				served.Evicted++
				lastErr = err
				continue
			}
		}

		if err := s.Ledger.MarkViewed(rec.ID); err != nil {
			return served, err
		}
		rec.Viewed = true
		served.Record = rec
		return served, nil
	}
	return served, fmt.Errorf("no decodable image after %d attempts: %w", maxDecodeAttempts, lastErr)
}

// CheckImage is a show function for NextImage that only verifies the file
// header, for callers that do not render.
func (s *Service) CheckImage(rec ledger.ImageRecord) error {
	return s.Images.Check(rec.Path)
}

// DeleteImageFile moves the record's file to the trash and then drops the
// record. If the file cannot be trashed the record is kept.
func (s *Service) DeleteImageFile(rec ledger.ImageRecord) error {
	if rec.Path == "" {
		return errors.New("image path required")
	}
	if s.Files == nil {
		return errors.New("no file manager configured")
	}
	if err := s.Files.MoveToTrash(rec.Path); err != nil {
		return err
	}
	if err := s.Ledger.DeleteRecord(rec.ID); err != nil {
		return fmt.Errorf("file trashed but ledger not updated: %w", err)
	}
	s.logMessage("Moved %s to trash", filepath.Base(rec.Path))
	return nil
}

// FindByPath returns the record for path, if the ledger knows it.
func (s *Service) FindByPath(path string) (ledger.ImageRecord, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ledger.ImageRecord{}, false, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	abs = ledger.NormalizePath(abs)
	records, err := s.Ledger.List()
	if err != nil {
		return ledger.ImageRecord{}, false, err
	}
	for _, rec := range records {
		if rec.Path == abs {
			return rec, true, nil
		}
	}
	return ledger.ImageRecord{}, false, nil
}

// Reveal shows path in the platform file manager.
func (s *Service) Reveal(path string) error {
	if s.Files == nil {
		return errors.New("no file manager configured")
	}
	return s.Files.RevealInFileManager(path)
}

// SelectFolder applies the folder-change policy for root and starts indexing
// it. It reports whether the ledger was cleared.
func (s *Service) SelectFolder(ctx context.Context, root string) (*indexer.Scan, bool, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	cleared, err := s.Indexer.PrepareFolder(abs)
	if err != nil {
		return nil, false, err
	}
	return s.Indexer.Start(ctx, abs), cleared, nil
}

// Rescan indexes root again without touching existing records, picking up
// files added since the last scan.
func (s *Service) Rescan(ctx context.Context, root string) (*indexer.Scan, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	return s.Indexer.Start(ctx, abs), nil
}

// ResetViewed marks every record unviewed.
func (s *Service) ResetViewed() error {
	return s.Ledger.ResetAllViewed()
}

// ClearLedger removes every record.
func (s *Service) ClearLedger() error {
	s.Indexer.Stop()
	return s.Ledger.ClearAll()
}

// Stats returns the ledger counters.
func (s *Service) Stats() (ledger.Stats, error) {
	return s.Ledger.Count()
}

// CleanDatabase removes records whose file no longer exists.
func (s *Service) CleanDatabase() (removed int, err error) {
	records, err := s.Ledger.List()
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}
	for _, rec := range records {
		if _, statErr := os.Stat(rec.Path); !errors.Is(statErr, os.ErrNotExist) {
			continue
		}
		if err := s.Ledger.DeleteRecord(rec.ID); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		s.logMessage("Removed %d record(s) for missing files", removed)
	}
	return removed, nil
}
