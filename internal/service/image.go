package service

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeError reports a file that exists in the ledger but cannot be shown.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ImageInfo holds metadata about an image file.
type ImageInfo struct {
	Path     string
	Format   string
	Width    int
	Height   int
	Size     int64
	ModTime  time.Time
	EXIFData map[string]string
}

// ImageService decodes images and reads their metadata.
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// Decode reads and decodes the image at path. Any failure is a *DecodeError.
func (is *ImageService) Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

// Check decodes only the header of path, which is enough to tell whether the
// file is a readable image in a known format.
func (is *ImageService) Check(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	defer f.Close()
	if _, _, err := image.DecodeConfig(f); err != nil {
		return &DecodeError{Path: path, Err: err}
	}
	return nil
}

// GetEXIF extracts a few common EXIF fields from an image file.
func (is *ImageService) GetEXIF(r io.Reader) (map[string]string, error) {
	x, err := exif.Decode(r)
	if err != nil {
		return nil, nil // Not all images have EXIF; not an error for non-JPEGs
	}
	result := make(map[string]string)
	for _, field := range []exif.FieldName{
		exif.DateTime, exif.Model, exif.Make, exif.ExposureTime, exif.FNumber, exif.ISOSpeedRatings, exif.FocalLength,
	} {
		tag, err := x.Get(field)
		if err == nil && tag != nil {
			result[string(field)] = tag.String()
		}
	}
	return result, nil
}

// GetImageInfo returns dimensions, format, file size, mod time and EXIF data
// without decoding the pixels.
func (is *ImageService) GetImageInfo(path string) (*ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image for info: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	}

	exifData, _ := is.GetEXIF(f)

	if _, err = f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek in image file: %w", err)
	}
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	return &ImageInfo{
		Path:     path,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     fi.Size(),
		ModTime:  fi.ModTime(),
		EXIFData: exifData,
	}, nil
}
