package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// tappableImage shows a thumbnail, framed when it is the displayed image,
// and calls onTapped when clicked.
type tappableImage struct {
	widget.BaseWidget
	image    *canvas.Image
	border   *canvas.Rectangle
	onTapped func()
}

func newTappableImage(res fyne.Resource, selected bool, onTapped func()) *tappableImage {
	ti := &tappableImage{
		image:    canvas.NewImageFromResource(res),
		border:   canvas.NewRectangle(color.Transparent),
		onTapped: onTapped,
	}
	ti.image.FillMode = canvas.ImageFillContain
	ti.image.SetMinSize(fyne.NewSize(ThumbnailWidth, ThumbnailHeight))
	ti.border.StrokeWidth = 3
	ti.setSelected(selected)
	ti.ExtendBaseWidget(ti)
	return ti
}

func (t *tappableImage) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(t.image, t.border))
}

func (t *tappableImage) Tapped(_ *fyne.PointEvent) {
	if t.onTapped != nil {
		t.onTapped()
	}
}

// SetResource swaps the placeholder for the generated thumbnail.
func (t *tappableImage) SetResource(res fyne.Resource) {
	t.image.Resource = res
	canvas.Refresh(t.image)
}

func (t *tappableImage) setSelected(selected bool) {
	if selected {
		t.border.StrokeColor = theme.Color(theme.ColorNamePrimary)
	} else {
		t.border.StrokeColor = color.Transparent
	}
	canvas.Refresh(t.border)
}

var _ fyne.Tappable = (*tappableImage)(nil)
