package ui

import (
	"runtime"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// UI holds the widgets the App updates after building them.
type UI struct {
	MainWin    fyne.Window
	mainModKey fyne.KeyModifier

	toolBar     *widget.Toolbar
	pauseAction *widget.ToolbarAction

	scaleLabel    *widget.Label
	progressBar   *widget.ProgressBar
	progressLabel *widget.Label

	statusPathLabel  *widget.Label
	statusLogLabel   *widget.Label
	statusLogUpBtn   *widget.Button
	statusLogDownBtn *widget.Button

	thumbnailStrip *fyne.Container
	infoText       *widget.RichText
	split          *container.Split
}

func (a *App) buildToolbar() *widget.Toolbar {
	a.UI.pauseAction = widget.NewToolbarAction(theme.MediaPlayIcon(), a.togglePlay)
	a.UI.toolBar = widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), a.chooseFolder),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), a.rescan),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.NavigateBackIcon(), a.previousImage),
		widget.NewToolbarAction(theme.NavigateNextIcon(), a.userNext),
		a.UI.pauseAction,
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomFitIcon(), func() { a.zoomPanArea.Reset() }),
		widget.NewToolbarAction(theme.SearchIcon(), a.revealCurrent),
		widget.NewToolbarAction(theme.DeleteIcon(), a.deleteFileCheck),
		widget.NewToolbarSpacer(),
		widget.NewToolbarAction(theme.HistoryIcon(), a.resetViewedCheck),
		widget.NewToolbarAction(theme.ColorPaletteIcon(), a.toggleTheme),
		widget.NewToolbarAction(theme.HelpIcon(), a.showShortcuts),
	)
	return a.UI.toolBar
}

func (a *App) buildStatusBar() *fyne.Container {
	a.UI.statusPathLabel = widget.NewLabel("Ready")
	a.UI.statusPathLabel.Truncation = fyne.TextTruncateEllipsis
	a.UI.scaleLabel = widget.NewLabel("")

	a.UI.progressBar = widget.NewProgressBar()
	a.UI.progressBar.Hide()
	a.UI.progressLabel = widget.NewLabel("")

	a.UI.statusLogLabel = widget.NewLabel("")
	a.UI.statusLogLabel.Truncation = fyne.TextTruncateEllipsis
	a.UI.statusLogUpBtn = widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() {
		a.logUIManager.ShowPreviousLogMessage()
	})
	a.UI.statusLogDownBtn = widget.NewButtonWithIcon("", theme.MoveDownIcon(), func() {
		a.logUIManager.ShowNextLogMessage()
	})
	a.logUIManager = NewLogUIManager(a.UI.statusLogLabel, a.UI.statusLogUpBtn, a.UI.statusLogDownBtn, DefaultMaxLogMessages)
	a.logUIManager.UpdateLogDisplay()

	pathRow := container.NewBorder(nil, nil, nil,
		container.NewHBox(a.UI.progressLabel, a.UI.scaleLabel),
		a.UI.statusPathLabel,
	)
	logRow := container.NewBorder(nil, nil,
		container.NewHBox(a.UI.statusLogUpBtn, a.UI.statusLogDownBtn), nil,
		a.UI.statusLogLabel,
	)
	return container.NewVBox(
		widget.NewSeparator(),
		a.UI.progressBar,
		pathRow,
		logRow,
	)
}

func (a *App) buildInformationTab() *container.TabItem {
	a.UI.infoText = widget.NewRichTextFromMarkdown("# Info\n---\nNo image loaded.")
	a.UI.infoText.Wrapping = fyne.TextWrapWord
	return container.NewTabItem("Information", container.NewScroll(a.UI.infoText))
}

func (a *App) buildMainMenu() *fyne.MainMenu {
	return fyne.NewMainMenu(
		fyne.NewMenu("File",
			fyne.NewMenuItem("Choose Folder...", a.chooseFolder),
			fyne.NewMenuItem("Rescan Folder", a.rescan),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Reset Viewed...", a.resetViewedCheck),
			fyne.NewMenuItem("Clean Ledger", a.cleanLedger),
			fyne.NewMenuItem("Clear Ledger...", a.clearLedgerCheck),
		),
		fyne.NewMenu("Edit",
			fyne.NewMenuItem("Move to "+a.trashName+"...", a.deleteFileCheck),
			fyne.NewMenuItem("Show in File Manager", a.revealCurrent),
		),
		fyne.NewMenu("View",
			fyne.NewMenuItem("Next Image", a.userNext),
			fyne.NewMenuItem("Previous Image", a.previousImage),
			fyne.NewMenuItem("Play / Pause", a.togglePlay),
			fyne.NewMenuItem("Reset Zoom", func() { a.zoomPanArea.Reset() }),
			fyne.NewMenuItem("Toggle Theme", a.toggleTheme),
		),
		fyne.NewMenu("Help",
			fyne.NewMenuItem("Keyboard Shortcuts", a.showShortcuts),
			fyne.NewMenuItem("About", func() {
				NewAbout(a.UI.MainWin, "About", a.Service.Ledger.Path()).Show()
			}),
		),
	)
}

func (a *App) buildMainUI() fyne.CanvasObject {
	a.UI.MainWin.SetMaster()
	// set main mod key to super on darwin hosts, else set it to ctrl
	if runtime.GOOS == "darwin" {
		a.UI.mainModKey = fyne.KeyModifierSuper
	} else {
		a.UI.mainModKey = fyne.KeyModifierControl
	}

	a.zoomPanArea = NewZoomPanArea(a.views.View, &a.viewMu, a.slideshow.Touch)
	a.zoomPanArea.OnFrame = a.updateScaleLabel

	toolbar := a.buildToolbar()
	status := a.buildStatusBar()

	a.UI.MainWin.SetMainMenu(a.buildMainMenu())
	a.buildKeyboardShortcuts()

	a.UI.split = container.NewHSplit(
		a.zoomPanArea,
		container.NewAppTabs(a.buildInformationTab()),
	)
	a.UI.split.SetOffset(0.80)
	a.UI.thumbnailStrip = container.NewHBox()
	bottom := container.NewVBox(container.NewHScroll(a.UI.thumbnailStrip), status)
	return container.NewBorder(
		toolbar, // Top
		bottom,  // Bottom
		nil,
		nil,
		a.UI.split,
	)
}
