package ui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Version is shown in the about dialog. Overridden at link time.
var Version = "dev"

type About struct {
	title     string
	parent    fyne.Window
	container *fyne.Container
	d         dialog.Dialog
}

// NewAbout builds the about dialog content: the application icon, a short
// description and the ledger location.
func NewAbout(parent fyne.Window, title, ledgerPath string) *About {
	a := &About{
		title:  title,
		parent: parent,
	}

	img := canvas.NewImageFromResource(theme.FileImageIcon())
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(96, 96))

	ledgerLabel := widget.NewLabel(fmt.Sprintf("Ledger: %s", ledgerPath))
	ledgerLabel.Wrapping = fyne.TextWrapBreak

	vbox := container.NewVBox(
		img,
		widget.NewLabelWithStyle("Random Image Viewer", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		widget.NewLabel("Shows every image of a folder tree once, in random order."),
		widget.NewLabel(fmt.Sprintf("Version %s", Version)),
		ledgerLabel,
	)

	ok := container.NewHBox(
		layout.NewSpacer(),
		widget.NewButton("OK", func() { a.Hide() }),
		layout.NewSpacer(),
	)

	a.container = container.NewBorder(nil, ok, nil, nil, vbox)
	return a
}

func (a *About) Hide() {
	if a.d != nil {
		a.d.Hide()
	}
}

func (a *About) Show() {
	a.d = dialog.NewCustomWithoutButtons(a.title, a.container, a.parent)
	a.d.Show()
}
