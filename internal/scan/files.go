// Package scan operates on files in a directory and its subdirectories
package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charlievieth/fastwalk"
)

// DefaultExtensions are the image file extensions accepted when none are configured.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff", ".tif", ".webp", ".jfif"}

// LoggerFunc defines a function signature for logging messages.
type LoggerFunc func(message string)

// FileItem represents a file found by the walk.
type FileItem struct {
	Path string
	Info fs.FileInfo
}

// NewFileItem creates a new FileItem
func NewFileItem(p string, info fs.FileInfo) FileItem {
	return FileItem{
		Path: p,
		Info: info,
	}
}

// FileItems is a slice of FileItem
type FileItems []FileItem

// ScanIOError is a per-entry filesystem error. It is logged and the entry
// skipped; it never aborts a walk.
type ScanIOError struct {
	Path string
	Err  error
}

func (e *ScanIOError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

func (e *ScanIOError) Unwrap() error { return e.Err }

// Extensions is a case-insensitive set of accepted file extensions.
type Extensions map[string]bool

// NewExtensions builds a set from entries like "jpg", ".JPG" or "*.jpg".
func NewExtensions(exts ...string) Extensions {
	set := make(Extensions, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(e, "*")))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

// Match checks if the file name carries an accepted extension.
func (e Extensions) Match(name string) bool {
	return e[strings.ToLower(filepath.Ext(name))]
}

// List returns the extensions in sorted order.
func (e Extensions) List() []string {
	out := make([]string, 0, len(e))
	for ext := range e {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

var defaultSet = NewExtensions(DefaultExtensions...)

// IsImage checks if a file is an image by the default extension set.
func IsImage(n string) bool {
	return defaultSet.Match(n)
}

// FileScanner abstracts file scanning.
type FileScanner interface {
	Run(ctx context.Context, dir string, exts Extensions, logger LoggerFunc) <-chan FileItem
}

// FileScannerImpl is the fastwalk-backed FileScanner.
type FileScannerImpl struct{}

// Run implements FileScanner.
func (FileScannerImpl) Run(ctx context.Context, dir string, exts Extensions, logger LoggerFunc) <-chan FileItem {
	return Run(ctx, dir, exts, logger)
}

func logf(logger LoggerFunc, format string, args ...interface{}) {
	if logger != nil {
		logger(fmt.Sprintf(format, args...))
	} else {
		log.Printf(format, args...)
	}
}

// Run walks dir recursively in the background and streams every non-empty
// regular file whose extension is in exts. Paths are absolute. The channel is
// closed when the walk finishes or ctx is cancelled.
func Run(ctx context.Context, dir string, exts Extensions, logger LoggerFunc) <-chan FileItem {
	out := make(chan FileItem, 64)
	if len(exts) == 0 {
		exts = defaultSet
	}

	go func() {
		defer close(out)

		root, err := filepath.Abs(dir)
		if err != nil {
			logf(logger, "%v", &ScanIOError{Path: dir, Err: err})
			return
		}

		conf := &fastwalk.Config{Follow: false}
		err = fastwalk.Walk(conf, root, func(p string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				// Unreadable entry or subtree: report and keep walking.
				logf(logger, "%v", &ScanIOError{Path: p, Err: err})
				if d != nil && d.IsDir() && p != root {
					return fastwalk.SkipDir
				}
				return nil
			}
			if d.IsDir() || !exts.Match(p) {
				return nil
			}

			// Resolves symlinked files to their target.
			info, err := fastwalk.StatDirEntry(p, d)
			if err != nil {
				logf(logger, "%v", &ScanIOError{Path: p, Err: err})
				return nil
			}
			if !info.Mode().IsRegular() || info.Size() == 0 {
				return nil
			}

			select {
			case out <- NewFileItem(filepath.Clean(p), info):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			logf(logger, "%v", &ScanIOError{Path: root, Err: err})
		}
	}()

	return out
}

// Collect drains a walk into a slice sorted by path. It returns ctx.Err() if
// the walk was cancelled before finishing.
func Collect(ctx context.Context, s FileScanner, dir string, exts Extensions, logger LoggerFunc) (FileItems, error) {
	var items FileItems
	for item := range s.Run(ctx, dir, exts, logger) {
		items = append(items, item)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Path < items[j].Path })
	return items, nil
}

// RootError checks that dir exists and is a readable directory.
func RootError(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
