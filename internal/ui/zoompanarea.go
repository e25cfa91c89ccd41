package ui

import (
	"image"
	"sync"

	"randview/internal/viewstate"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

// ZoomPanArea shows the current frame of a ViewState and turns wheel and drag
// input into intents. It never computes a transform itself.
type ZoomPanArea struct {
	widget.BaseWidget

	view   func() *viewstate.ViewState
	mu     *sync.Mutex // shared with whoever loads images into the view
	raster *canvas.Raster

	blank      *image.RGBA
	last       image.Image
	pixelScale float32 // raster pixels per canvas unit, from the last draw

	isPanning    bool
	lastMousePos fyne.Position
	panRemainder fyne.Position

	OnInteraction func()                // called when the user zooms or starts panning
	OnFrame       func(viewstate.Frame) // called after every applied intent
}

// NewZoomPanArea creates a ZoomPanArea rendering the ViewState returned by
// view. Access to the view is serialized with mu.
func NewZoomPanArea(view func() *viewstate.ViewState, mu *sync.Mutex, onInteraction func()) *ZoomPanArea {
	zpa := &ZoomPanArea{
		view:          view,
		mu:            mu,
		blank:         image.NewRGBA(image.Rect(0, 0, 1, 1)),
		pixelScale:    1,
		OnInteraction: onInteraction,
	}
	zpa.raster = canvas.NewRaster(zpa.draw)
	zpa.ExtendBaseWidget(zpa)
	return zpa
}

// draw is the rendering function for the canvas.Raster. While an image is
// being loaded the previous bitmap is shown.
func (zpa *ZoomPanArea) draw(w, h int) image.Image {
	if w <= 0 || h <= 0 {
		return zpa.blank
	}
	if !zpa.mu.TryLock() {
		if zpa.last != nil {
			return zpa.last
		}
		return zpa.blank
	}
	frame := zpa.view().Apply(viewstate.ResizeRequested{W: w, H: h})
	zpa.mu.Unlock()

	if width := zpa.Size().Width; width > 0 {
		zpa.pixelScale = float32(w) / width
	}
	if frame.Bitmap == nil {
		zpa.last = nil
		return zpa.blank
	}
	zpa.last = frame.Bitmap
	return frame.Bitmap
}

// apply sends one intent to the view. Intents arriving while an image is
// being loaded are dropped.
func (zpa *ZoomPanArea) apply(i viewstate.Intent) {
	if !zpa.mu.TryLock() {
		return
	}
	frame := zpa.view().Apply(i)
	zpa.mu.Unlock()

	if zpa.OnFrame != nil {
		zpa.OnFrame(frame)
	}
	zpa.Refresh()
}

// Reset returns the view to the fitted scale.
func (zpa *ZoomPanArea) Reset() {
	zpa.apply(viewstate.ResetRequested{})
}

// CreateRenderer is a Fyne lifecycle method.
func (zpa *ZoomPanArea) CreateRenderer() fyne.WidgetRenderer {
	return &zoomPanAreaRenderer{zpa: zpa}
}

// Scrolled handles mouse wheel events for zooming.
func (zpa *ZoomPanArea) Scrolled(ev *fyne.ScrollEvent) {
	factor := viewstate.WheelFactor(float64(ev.Scrolled.DY))
	if factor == 1 {
		return
	}
	if zpa.OnInteraction != nil {
		zpa.OnInteraction()
	}
	zpa.apply(viewstate.ZoomRequested{Factor: factor})
}

// MouseDown starts panning.
func (zpa *ZoomPanArea) MouseDown(ev *desktop.MouseEvent) {
	if ev.Button != desktop.MouseButtonPrimary {
		return
	}
	if zpa.OnInteraction != nil {
		zpa.OnInteraction()
	}
	zpa.isPanning = true
	zpa.lastMousePos = ev.Position
	zpa.panRemainder = fyne.Position{}
}

// MouseUp stops panning.
func (zpa *ZoomPanArea) MouseUp(_ *desktop.MouseEvent) {
	zpa.isPanning = false
}

// Dragged converts the drag delta to raster pixels and requests a pan.
// Sub-pixel movement is carried over to the next event.
func (zpa *ZoomPanArea) Dragged(ev *fyne.DragEvent) {
	if !zpa.isPanning {
		zpa.isPanning = true
		zpa.lastMousePos = ev.Position.Subtract(ev.Dragged)
	}
	delta := ev.Position.Subtract(zpa.lastMousePos)
	zpa.lastMousePos = ev.Position

	px := delta.X*zpa.pixelScale + zpa.panRemainder.X
	py := delta.Y*zpa.pixelScale + zpa.panRemainder.Y
	dx, dy := int(px), int(py)
	zpa.panRemainder = fyne.NewPos(px-float32(dx), py-float32(dy))
	if dx == 0 && dy == 0 {
		return
	}
	zpa.apply(viewstate.PanRequested{DX: dx, DY: dy})
}

// DragEnd finalizes panning.
func (zpa *ZoomPanArea) DragEnd() {
	zpa.isPanning = false
}

type zoomPanAreaRenderer struct{ zpa *ZoomPanArea }

func (r *zoomPanAreaRenderer) Layout(size fyne.Size)        { r.zpa.raster.Resize(size) }
func (r *zoomPanAreaRenderer) MinSize() fyne.Size           { return fyne.NewSize(100, 100) }
func (r *zoomPanAreaRenderer) Refresh()                     { canvas.Refresh(r.zpa.raster) }
func (r *zoomPanAreaRenderer) Objects() []fyne.CanvasObject { return []fyne.CanvasObject{r.zpa.raster} }
func (r *zoomPanAreaRenderer) Destroy()                     {}

var _ fyne.Widget = (*ZoomPanArea)(nil)
var _ fyne.Scrollable = (*ZoomPanArea)(nil)
var _ fyne.Draggable = (*ZoomPanArea)(nil)
var _ desktop.Mouseable = (*ZoomPanArea)(nil)
