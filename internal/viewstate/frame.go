package viewstate

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Intent is a request from the view to change the transform.
type Intent interface {
	apply(v *ViewState)
}

// ZoomRequested multiplies the scale by Factor.
type ZoomRequested struct{ Factor float64 }

// PanRequested moves the image by (DX, DY) pixels.
type PanRequested struct{ DX, DY int }

// ResizeRequested reports a new viewport size.
type ResizeRequested struct{ W, H int }

// ResetRequested returns to the fitted view.
type ResetRequested struct{}

func (i ZoomRequested) apply(v *ViewState)   { v.Zoom(i.Factor, v.vw, v.vh) }
func (i PanRequested) apply(v *ViewState)    { v.Pan(i.DX, i.DY) }
func (i ResizeRequested) apply(v *ViewState) { v.Resize(i.W, i.H) }
func (ResetRequested) apply(v *ViewState)    { v.Reset() }

// Frame is everything the view needs to draw the current state.
type Frame struct {
	// Bitmap is viewport sized, with the scaled image drawn at Origin and
	// transparent pixels elsewhere. Nil when the view is empty.
	Bitmap image.Image
	// Origin is the top-left of the scaled image in viewport coordinates.
	Origin image.Point
	Size   image.Point
	Scale  float64
	State  State
}

// Apply handles one intent and returns the frame to render.
func (v *ViewState) Apply(i Intent) Frame {
	if i != nil {
		i.apply(v)
	}
	return v.Frame()
}

// Frame renders the current state. The bitmap is cached until the transform
// or viewport changes.
func (v *ViewState) Frame() Frame {
	if v.state == Empty {
		return Frame{State: Empty}
	}
	if v.frame != nil {
		return *v.frame
	}

	size := v.ScaledSize()
	origin := image.Pt(
		(v.vw-size.X)/2+v.t.OffsetX,
		(v.vh-size.Y)/2+v.t.OffsetY,
	)
	dst := image.NewRGBA(image.Rect(0, 0, v.vw, v.vh))

	full := image.Rectangle{Min: origin, Max: origin.Add(size)}
	visible := full.Intersect(dst.Bounds())
	if !visible.Empty() {
		v.Interpolator().Scale(dst, visible, v.img, v.sourceRect(full, visible), draw.Src, nil)
	}

	v.frame = &Frame{
		Bitmap: dst,
		Origin: origin,
		Size:   size,
		Scale:  v.t.Scale,
		State:  v.state,
	}
	return *v.frame
}

// sourceRect maps the visible part of the scaled image back to source pixels.
func (v *ViewState) sourceRect(full, visible image.Rectangle) image.Rectangle {
	b := v.img.Bounds()
	sx := float64(b.Dx()) / float64(full.Dx())
	sy := float64(b.Dy()) / float64(full.Dy())

	r := image.Rect(
		b.Min.X+int(math.Floor(float64(visible.Min.X-full.Min.X)*sx)),
		b.Min.Y+int(math.Floor(float64(visible.Min.Y-full.Min.Y)*sy)),
		b.Min.X+int(math.Ceil(float64(visible.Max.X-full.Min.X)*sx)),
		b.Min.Y+int(math.Ceil(float64(visible.Max.Y-full.Min.Y)*sy)),
	)
	return r.Intersect(b)
}
