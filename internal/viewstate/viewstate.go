// Package viewstate owns the zoom and pan transform of the displayed image.
//
// The view never mutates the transform itself. It sends intents (zoom, pan,
// resize, reset) to Apply and renders the Frame it gets back.
package viewstate

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"
)

const (
	// HardMaxDim caps the rendered size of either image dimension.
	HardMaxDim = 15000
	// LargeImageThreshold is the rendered dimension above which resampling
	// switches to nearest neighbour.
	LargeImageThreshold = 10000

	zoomInFactor  = 1.1
	zoomOutFactor = 0.9
)

// State of the view.
type State int

const (
	Empty State = iota
	Fitted
	Transformed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Fitted:
		return "fitted"
	case Transformed:
		return "transformed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// PixelSource decodes the image stored at path.
type PixelSource interface {
	Decode(path string) (image.Image, error)
}

// Dimensions of a natural (unscaled) image.
type Dimensions struct {
	Width, Height int
}

// LoadError reports an image that could not be decoded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

var errEmptyImage = errors.New("image has no pixels")

// Transform is the zoom and pan applied to the current image. FloorReached
// and CeilReached are set when the last zoom was clamped at that bound.
type Transform struct {
	NaturalW, NaturalH int
	Scale              float64
	OffsetX, OffsetY   int
	FloorReached       bool
	CeilReached        bool
}

// ViewState is not safe for concurrent use; the UI goroutine owns it.
type ViewState struct {
	img   image.Image
	path  string
	t     Transform
	state State

	vw, vh int

	frame *Frame // last rendered frame, nil when stale
}

// New returns an empty ViewState for a viewport of vw x vh pixels.
func New(vw, vh int) *ViewState {
	v := &ViewState{}
	v.setViewport(vw, vh)
	return v
}

func (v *ViewState) setViewport(vw, vh int) {
	v.vw, v.vh = max(vw, 1), max(vh, 1)
}

func (v *ViewState) State() State          { return v.state }
func (v *ViewState) Transform() Transform  { return v.t }
func (v *ViewState) Path() string          { return v.path }
func (v *ViewState) Image() image.Image    { return v.img }
func (v *ViewState) Viewport() image.Point { return image.Pt(v.vw, v.vh) }

// ScaleLabel formats the current scale for display, e.g. "0.25x".
func (v *ViewState) ScaleLabel() string {
	if v.state == Empty {
		return ""
	}
	return fmt.Sprintf("%.2fx", v.t.Scale)
}

// LoadImage decodes path through src and fits it to the current viewport.
// On failure the view is cleared and a *LoadError returned.
func (v *ViewState) LoadImage(src PixelSource, path string) (Dimensions, error) {
	img, err := src.Decode(path)
	if err != nil {
		v.Clear()
		return Dimensions{}, &LoadError{Path: path, Err: err}
	}
	d, err := v.SetImage(img)
	if err != nil {
		return Dimensions{}, &LoadError{Path: path, Err: err}
	}
	v.path = path
	return d, nil
}

// SetImage shows an already decoded image, fitted to the current viewport.
func (v *ViewState) SetImage(img image.Image) (Dimensions, error) {
	if img == nil || img.Bounds().Empty() {
		v.Clear()
		return Dimensions{}, errEmptyImage
	}
	b := img.Bounds()
	v.img = img
	v.path = ""
	v.t = Transform{NaturalW: b.Dx(), NaturalH: b.Dy()}
	v.FitToViewport(v.vw, v.vh)
	return Dimensions{Width: b.Dx(), Height: b.Dy()}, nil
}

// Clear drops the image.
func (v *ViewState) Clear() {
	v.img = nil
	v.path = ""
	v.t = Transform{}
	v.state = Empty
	v.frame = nil
}

// ScaleBounds returns the allowed zoom range for the current image and
// viewport. The floor is min(vw/nw, vh/nh), so a zoomed image always covers
// the viewport in one dimension; the ceiling keeps the rendered image within
// HardMaxDim.
func (v *ViewState) ScaleBounds() (lo, hi float64) {
	if v.state == Empty {
		return 0, 0
	}
	nw, nh := float64(v.t.NaturalW), float64(v.t.NaturalH)
	hi = math.Min(HardMaxDim/nw, HardMaxDim/nh)
	lo = math.Min(float64(v.vw)/nw, float64(v.vh)/nh)
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// FitToViewport scales the image to fit vw x vh without upscaling and
// centres it. An image smaller than the viewport stays at natural size,
// below the zoom floor; the first zoom lifts it to the floor.
func (v *ViewState) FitToViewport(vw, vh int) {
	v.setViewport(vw, vh)
	if v.img == nil {
		return
	}
	v.state = Fitted
	lo, _ := v.ScaleBounds()
	v.t.Scale = math.Min(lo, 1)
	v.t.OffsetX, v.t.OffsetY = 0, 0
	v.t.FloorReached, v.t.CeilReached = false, false
	v.frame = nil
}

// Reset fits the image to the last known viewport.
func (v *ViewState) Reset() {
	v.FitToViewport(v.vw, v.vh)
}

// Zoom multiplies the scale by factor, clamped to ScaleBounds. A request in a
// direction already clamped is ignored.
func (v *ViewState) Zoom(factor float64, vw, vh int) {
	if v.state == Empty || factor <= 0 || factor == 1 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	if (factor > 1 && v.t.CeilReached) || (factor < 1 && v.t.FloorReached) {
		return
	}
	v.setViewport(vw, vh)

	lo, hi := v.ScaleBounds()
	scale := v.t.Scale * factor
	v.t.FloorReached, v.t.CeilReached = false, false
	if scale <= lo {
		scale = lo
		v.t.FloorReached = true
	}
	if scale >= hi {
		scale = hi
		v.t.CeilReached = true
	}
	v.t.Scale = scale
	v.state = Transformed
	v.frame = nil
	v.clampOffset()
}

// Pan moves the image by (dx, dy) pixels. The offset is clamped so no empty
// space shows past the image edges; Pan(0, 0) re-clamps after a change.
func (v *ViewState) Pan(dx, dy int) {
	if v.state == Empty {
		return
	}
	oldX, oldY := v.t.OffsetX, v.t.OffsetY
	v.t.OffsetX += dx
	v.t.OffsetY += dy
	v.clampOffset()
	if v.t.OffsetX != oldX || v.t.OffsetY != oldY {
		v.state = Transformed
		v.frame = nil
	}
}

// Resize adapts to a new viewport. A fitted image is refitted; otherwise the
// scale is clamped into the new bounds and the offset re-clamped.
func (v *ViewState) Resize(vw, vh int) {
	if vw == v.vw && vh == v.vh {
		return
	}
	v.setViewport(vw, vh)
	v.frame = nil
	switch v.state {
	case Empty:
		return
	case Fitted:
		v.FitToViewport(vw, vh)
		return
	}

	lo, hi := v.ScaleBounds()
	v.t.Scale = math.Min(math.Max(v.t.Scale, lo), hi)
	v.t.FloorReached = v.t.Scale <= lo
	v.t.CeilReached = v.t.Scale >= hi
	v.Pan(0, 0)
}

// ScaledSize is the rendered image size at the current scale.
func (v *ViewState) ScaledSize() image.Point {
	if v.state == Empty {
		return image.Point{}
	}
	w := int(float64(v.t.NaturalW) * v.t.Scale)
	h := int(float64(v.t.NaturalH) * v.t.Scale)
	return image.Pt(max(w, 1), max(h, 1))
}

// MaxOffset is the largest offset magnitude allowed on each axis.
func (v *ViewState) MaxOffset() image.Point {
	s := v.ScaledSize()
	return image.Pt(maxOffset(s.X, v.vw), maxOffset(s.Y, v.vh))
}

func maxOffset(scaled, view int) int {
	if scaled <= view {
		return 0
	}
	return (scaled - view) / 2
}

func clamp(x, limit int) int {
	return min(max(x, -limit), limit)
}

func (v *ViewState) clampOffset() {
	m := v.MaxOffset()
	v.t.OffsetX = clamp(v.t.OffsetX, m.X)
	v.t.OffsetY = clamp(v.t.OffsetY, m.Y)
}

// Interpolator returns the resampler used at the current scale.
func (v *ViewState) Interpolator() draw.Interpolator {
	s := v.ScaledSize()
	if s.X > LargeImageThreshold || s.Y > LargeImageThreshold {
		return draw.NearestNeighbor
	}
	return draw.CatmullRom
}

// WheelFactor maps a wheel delta to a zoom factor.
func WheelFactor(deltaY float64) float64 {
	switch {
	case deltaY > 0:
		return zoomInFactor
	case deltaY < 0:
		return zoomOutFactor
	default:
		return 1
	}
}
