package ui

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"sync"

	"randview/internal/viewstate"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"github.com/nfnt/resize"
)

const (
	// ThumbnailWidth is the width of the thumbnails in the recent strip.
	ThumbnailWidth = 80
	// ThumbnailHeight is the height of the thumbnails in the recent strip.
	ThumbnailHeight = 80
	// RecentStripSize is how many served images the strip shows.
	RecentStripSize = 9

	maxCachedThumbnails = 256
)

// ThumbnailManager handles generation and caching of image thumbnails.
type ThumbnailManager struct {
	cache      map[string]fyne.Resource
	cacheMutex sync.RWMutex
	source     viewstate.PixelSource
	logger     func(string)
}

// NewThumbnailManager creates a thumbnail manager decoding through source.
func NewThumbnailManager(source viewstate.PixelSource, logger func(string)) *ThumbnailManager {
	return &ThumbnailManager{
		cache:  make(map[string]fyne.Resource),
		source: source,
		logger: logger,
	}
}

// imageToBytes is a helper to convert image.Image to []byte for Fyne resources.
func imageToBytes(img image.Image) []byte {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}

// GetThumbnail returns the cached thumbnail for path, or a placeholder while
// it is generated in the background. onComplete runs on the UI goroutine
// once the thumbnail is ready.
func (tm *ThumbnailManager) GetThumbnail(path string, onComplete func(fyne.Resource)) fyne.Resource {
	tm.cacheMutex.RLock()
	if res, ok := tm.cache[path]; ok {
		tm.cacheMutex.RUnlock()
		return res
	}
	tm.cacheMutex.RUnlock()

	go func() {
		img, err := tm.source.Decode(path)
		if err != nil {
			if tm.logger != nil {
				tm.logger("Thumbnail error for " + filepath.Base(path) + ": " + err.Error())
			}
			return
		}

		thumbImg := resize.Thumbnail(ThumbnailWidth, ThumbnailHeight, img, resize.Lanczos3)
		thumbBytes := imageToBytes(thumbImg)
		if thumbBytes == nil {
			return
		}
		imgResource := fyne.NewStaticResource(filepath.Base(path), thumbBytes)

		tm.cacheMutex.Lock()
		if len(tm.cache) >= maxCachedThumbnails {
			clear(tm.cache)
		}
		tm.cache[path] = imgResource
		tm.cacheMutex.Unlock()

		fyne.Do(func() {
			onComplete(imgResource)
		})
	}()

	return theme.FileImageIcon()
}

// Forget drops the cached thumbnail of path, e.g. after the file was trashed.
func (tm *ThumbnailManager) Forget(path string) {
	tm.cacheMutex.Lock()
	delete(tm.cache, path)
	tm.cacheMutex.Unlock()
}
