// Package ui  Shortcuts for keyboard actions
package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"randview/internal/viewstate"
)

// shortcut pairs a key description with what it does.
type shortcut struct {
	keys        string
	description string
}

var shortcutList = []shortcut{
	{"Ctrl+Q or Q", "Quit application"},
	{"Arrow Right or N", "Next random image"},
	{"Arrow Left or B", "Previous image"},
	{"P or Space", "Play / pause slideshow"},
	{"+ / -", "Zoom in / out"},
	{"0 or Home", "Reset zoom and pan"},
	{"Delete", "Move image to trash"},
	{"Ctrl+O", "Choose folder"},
	{"F5", "Rescan folder"},
	{"Esc", "Close dialog"},
}

func (a *App) buildKeyboardShortcuts() {
	a.UI.MainWin.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyQ,
		Modifier: a.UI.mainModKey,
	}, func(_ fyne.Shortcut) { a.shutdown() })

	a.UI.MainWin.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyne.KeyO,
		Modifier: a.UI.mainModKey,
	}, func(_ fyne.Shortcut) { a.chooseFolder() })

	a.UI.MainWin.Canvas().SetOnTypedKey(func(key *fyne.KeyEvent) {
		switch key.Name {
		case fyne.KeyRight, fyne.KeyN:
			a.userNext()
		case fyne.KeyLeft, fyne.KeyB:
			a.previousImage()
		case fyne.KeyQ:
			a.shutdown()
		case fyne.KeyP, fyne.KeySpace:
			a.togglePlay()
		case fyne.KeyPlus, fyne.KeyEqual:
			a.zoomPanArea.apply(viewstate.ZoomRequested{Factor: viewstate.WheelFactor(1)})
		case fyne.KeyMinus:
			a.zoomPanArea.apply(viewstate.ZoomRequested{Factor: viewstate.WheelFactor(-1)})
		case fyne.Key0, fyne.KeyHome:
			a.zoomPanArea.Reset()
		case fyne.KeyDelete:
			a.deleteFileCheck()
		case fyne.KeyF5:
			a.rescan()
		case fyne.KeyEscape:
			if len(a.UI.MainWin.Canvas().Overlays().List()) > 0 {
				a.UI.MainWin.Canvas().Overlays().Top().Hide()
			}
		}
	})
}

func (a *App) showShortcuts() {
	win := a.app.NewWindow("Keyboard Shortcuts")
	table := widget.NewTable(
		func() (int, int) { return len(shortcutList) + 1, 2 }, // +1 for header row
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.TableCellID, obj fyne.CanvasObject) {
			label := obj.(*widget.Label)
			isHeader := id.Row == 0
			if isHeader {
				label.SetText(ternaryString(id.Col == 0, "Description", "Shortcut"))
			} else {
				s := shortcutList[id.Row-1]
				label.SetText(ternaryString(id.Col == 0, s.description, s.keys))
			}
			label.TextStyle.Bold = isHeader
		},
	)
	table.SetColumnWidth(0, 250)
	table.SetColumnWidth(1, 250)
	win.SetContent(table)
	win.Resize(fyne.NewSize(500, 400))
	win.Show()
}

func ternaryString(condition bool, trueVal, falseVal string) string {
	if condition {
		return trueVal
	}
	return falseVal
}
