// Package ui  Setup for the random image viewer application
package ui

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"randview/internal/config"
	"randview/internal/indexer"
	"randview/internal/ledger"
	"randview/internal/scan"
	"randview/internal/service"
	"randview/internal/slideshow"
	"randview/internal/trash"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

const (
	appID    = "io.github.randview"
	appTitle = "Random Image Viewer"

	// progressInterval throttles scan progress updates to the UI.
	progressInterval = 100 * time.Millisecond
)

// App represents the whole application with all its windows, widgets and functions
type App struct {
	app fyne.App
	UI  UI

	cfg     config.Config
	cfgPath string

	Service *service.Service

	// viewMu serializes access to views between the UI goroutine, the
	// navigation goroutines and the zoom area's renderer.
	viewMu      sync.Mutex
	views       *service.ViewManager
	zoomPanArea *ZoomPanArea
	thumbnails  *ThumbnailManager
	shownPath   string

	slideshow *slideshow.Slideshow
	scan      *indexer.Scan
	ctx       context.Context
	cancel    context.CancelFunc

	trashName    string
	isDarkTheme  bool
	logUIManager *LogUIManager
}

// Command-line flags
var configFlag = flag.String("config", "", "Path to config.yaml (default: <user config dir>/randview/config.yaml).")
var slideshowIntervalFlag = flag.Duration("slideshow-interval", 0, "Slideshow interval, e.g. 3s. Overrides the config file.")
var historySizeFlag = flag.Int("history-size", 0, "Number of served images Back can return to. Overrides the config file.")

// CreateApplication is the GUI entrypoint. An optional argument names the
// folder to show; otherwise the last folder is used.
func CreateApplication() {
	flag.Parse()

	cfgPath := *configFlag
	if cfgPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			log.Fatalf("Failed to locate config: %v", err)
		}
		cfgPath = p
	}
	cfg, err := config.LoadWithEnv(cfgPath)
	if err != nil {
		log.Printf("Config problem, using defaults: %v", err)
	}
	if *slideshowIntervalFlag > 0 {
		cfg.SlideshowInterval = *slideshowIntervalFlag
	}
	if *historySizeFlag > 0 {
		cfg.HistorySize = *historySizeFlag
	}
	dir := cfg.LastDir
	if flag.NArg() > 0 {
		dir = flag.Arg(0)
	}

	a := app.NewWithID(appID)
	a.Settings().SetTheme(NewCompactTheme(a.Settings().Theme()))

	ui := &App{app: a, cfg: cfg, cfgPath: cfgPath, trashName: trash.DisplayName()}

	// Messages from background goroutines reach the on-screen log through
	// fyne.Do. Before the UI exists they go to the console.
	appLoggerFunc := func(message string) {
		if ui.logUIManager == nil {
			log.Printf("%s", message)
			return
		}
		fyne.Do(func() { ui.addLogMessage(message) })
	}

	dbPath := cfg.Ledger.Path
	if dbPath == "" {
		dbPath, err = ledger.DefaultPath(cfg.LedgerBackend())
		if err != nil {
			log.Fatalf("Failed to locate ledger: %v", err)
		}
	}
	l, err := ledger.Open(cfg.LedgerBackend(), dbPath, appLoggerFunc)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}

	ix := indexer.New(l, scan.FileScannerImpl{}, cfg.ExtensionSet(), appLoggerFunc)
	ui.Service = service.NewService(l, ix, trash.System{}, appLoggerFunc)
	ui.views = service.NewViewManager(ui.Service, cfg.Window.Width, cfg.Window.Height, cfg.HistorySize)
	ui.thumbnails = NewThumbnailManager(ui.Service.Images, appLoggerFunc)
	ui.slideshow = slideshow.New(cfg.SlideshowInterval)
	ui.ctx, ui.cancel = context.WithCancel(context.Background())

	ui.UI.MainWin = a.NewWindow(appTitle)
	ui.UI.MainWin.SetCloseIntercept(ui.shutdown)
	ui.UI.MainWin.SetContent(ui.buildMainUI())
	ui.UI.MainWin.Resize(fyne.NewSize(float32(cfg.Window.Width), float32(cfg.Window.Height)))
	ui.UI.MainWin.CenterOnScreen()

	ui.addLogMessage(fmt.Sprintf("Ledger: %s", l.Path()))
	go ui.slideshow.Run(ui.ctx, ui.nextImage)

	if dir != "" {
		ui.selectFolder(dir)
	} else {
		ui.nextImage()
	}

	ui.UI.MainWin.ShowAndRun()
}

// shutdown stops background work, persists the window size and the last
// folder and closes the ledger.
func (a *App) shutdown() {
	a.cancel()
	a.Service.Indexer.Stop()

	size := a.UI.MainWin.Canvas().Size()
	if size.Width > 0 && size.Height > 0 {
		a.cfg.Window = config.Window{Width: int(size.Width), Height: int(size.Height)}
	}
	if err := config.Save(a.cfgPath, a.cfg); err != nil {
		log.Printf("Error saving config: %v", err)
	}

	// Wait for a navigation in flight before the ledger goes away.
	a.viewMu.Lock()
	log.Println("Closing ledger...")
	if err := a.Service.Ledger.Close(); err != nil {
		log.Printf("Error closing ledger: %v", err)
	}
	a.viewMu.Unlock()

	a.UI.MainWin.Close()
}

// chooseFolder asks for a folder and switches to it.
func (a *App) chooseFolder() {
	d := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			dialog.ShowError(err, a.UI.MainWin)
			return
		}
		if uri == nil {
			return
		}
		a.selectFolder(uri.Path())
	}, a.UI.MainWin)
	if a.cfg.LastDir != "" {
		if lister, err := storage.ListerForURI(storage.NewFileURI(a.cfg.LastDir)); err == nil {
			d.SetLocation(lister)
		}
	}
	d.Show()
}

// selectFolder applies the folder-change policy and starts indexing dir.
func (a *App) selectFolder(dir string) {
	s, cleared, err := a.Service.SelectFolder(a.ctx, dir)
	if err != nil {
		a.addError(fmt.Sprintf("Error selecting %s: %v", dir, err))
		dialog.ShowError(err, a.UI.MainWin)
		return
	}
	a.cfg.LastDir = s.Root
	if cleared {
		a.addLogMessage(fmt.Sprintf("New folder %s, starting a fresh ledger", s.Root))
		a.navigate(func(vm *service.ViewManager) error {
			vm.Forget()
			return nil
		})
	}
	a.watchScan(s)
}

// rescan indexes the current folder again, keeping what was viewed.
func (a *App) rescan() {
	if a.cfg.LastDir == "" {
		a.chooseFolder()
		return
	}
	s, err := a.Service.Rescan(a.ctx, a.cfg.LastDir)
	if err != nil {
		dialog.ShowError(err, a.UI.MainWin)
		return
	}
	a.addLogMessage(fmt.Sprintf("Rescanning %s", s.Root))
	a.watchScan(s)
}

// watchScan reports the progress of s in the status bar and shows the first
// image as soon as one is indexed.
func (a *App) watchScan(s *indexer.Scan) {
	a.scan = s
	a.UI.progressBar.SetValue(0)
	a.UI.progressBar.Show()
	a.UI.progressLabel.SetText("Indexing...")

	go func() {
		var last time.Time
		first := true
		for p := range s.Progress() {
			if !a.Service.Indexer.IsCurrent(p.ScanID) {
				continue
			}
			if first {
				first = false
				fyne.Do(func() {
					if a.shownPath == "" {
						a.nextImage()
					}
				})
			}
			if p.Current < p.Total && time.Since(last) < progressInterval {
				continue
			}
			last = time.Now()
			fyne.Do(func() { a.showProgress(p) })
		}
		res := s.Wait()
		fyne.Do(func() { a.finishScan(res) })
	}()
}

func (a *App) showProgress(p indexer.Progress) {
	if a.scan == nil || a.scan.ID != p.ScanID {
		return
	}
	a.UI.progressBar.Max = float64(p.Total)
	a.UI.progressBar.SetValue(float64(p.Current))
	a.UI.progressLabel.SetText(fmt.Sprintf("Indexing %s / %s",
		formatNumberWithCommas(int64(p.Current)), formatNumberWithCommas(int64(p.Total))))
}

func (a *App) finishScan(res indexer.Result) {
	if a.scan == nil || a.scan.ID != res.ScanID {
		return
	}
	a.scan = nil
	a.UI.progressBar.Hide()
	a.UI.progressLabel.SetText("")

	switch {
	case res.Err == nil:
		a.addLogMessage(fmt.Sprintf("Indexed %s images under %s (%s new)",
			formatNumberWithCommas(int64(res.Total)), res.Root, formatNumberWithCommas(int64(res.Inserted))))
	case errors.Is(res.Err, indexer.ErrSuperseded), errors.Is(res.Err, context.Canceled):
		a.addLogMessage(fmt.Sprintf("Indexing of %s stopped", res.Root))
	default:
		a.addError(fmt.Sprintf("Indexing failed: %v", res.Err))
		dialog.ShowError(res.Err, a.UI.MainWin)
	}
	a.updateStatusBar()
	if a.shownPath == "" {
		a.nextImage()
	}
}

func (a *App) resetViewedCheck() {
	dialog.ShowConfirm("Reset viewed", "Mark every image as not yet viewed?", func(ok bool) {
		if !ok {
			return
		}
		if err := a.Service.ResetViewed(); err != nil {
			dialog.ShowError(err, a.UI.MainWin)
			return
		}
		a.addLogMessage("All images marked unviewed")
		a.updateStatusBar()
	}, a.UI.MainWin)
}

func (a *App) clearLedgerCheck() {
	dialog.ShowConfirm("Clear ledger", "Forget every indexed image? Files are not touched.", func(ok bool) {
		if !ok {
			return
		}
		a.navigate(func(vm *service.ViewManager) error {
			vm.Forget()
			if err := a.Service.ClearLedger(); err != nil {
				return err
			}
			fyne.Do(func() { a.addLogMessage("Ledger cleared") })
			return nil
		})
	}, a.UI.MainWin)
}

// cleanLedger drops records of files that no longer exist.
func (a *App) cleanLedger() {
	go func() {
		removed, err := a.Service.CleanDatabase()
		fyne.Do(func() {
			if err != nil {
				dialog.ShowError(err, a.UI.MainWin)
				return
			}
			if removed == 0 {
				a.addLogMessage("Ledger is clean")
			}
			a.updateStatusBar()
		})
	}()
}
