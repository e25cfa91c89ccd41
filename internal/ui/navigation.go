package ui

import (
	"errors"
	"fmt"
	"path/filepath"

	"randview/internal/history"
	"randview/internal/ledger"
	"randview/internal/service"
	"randview/internal/trash"
	"randview/internal/viewstate"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
)

// snapshot is what the UI needs to show after a navigation.
type snapshot struct {
	rec       ledger.ImageRecord
	info      *service.ImageInfo
	frame     viewstate.Frame
	recent    []history.Entry
	recentIdx int
}

// snapshotLocked reads the view manager. Callers hold viewMu.
func (a *App) snapshotLocked() snapshot {
	var s snapshot
	if rec, shown := a.views.Current(); shown {
		s.rec = rec
		s.info, _ = a.views.Info()
	}
	s.frame = a.views.View().Frame()
	s.recent, s.recentIdx = a.views.Recent(RecentStripSize)
	return s
}

// navigate runs op against the view manager in a background goroutine, so
// decoding never blocks the UI, and then refreshes the display on the UI
// goroutine. Navigations run one at a time.
func (a *App) navigate(op func(vm *service.ViewManager) error) {
	go func() {
		a.viewMu.Lock()
		err := op(a.views)
		snap := a.snapshotLocked()
		a.viewMu.Unlock()

		fyne.Do(func() {
			a.showSnapshot(snap)
			if err != nil {
				a.handleNavigationError(err)
			}
		})
	}()
}

// nextImage shows a new random image. It is also the slideshow's advance
// callback, so it may be called from any goroutine.
func (a *App) nextImage() {
	a.navigate(func(vm *service.ViewManager) error {
		served, err := vm.Next()
		if served.Evicted > 0 {
			msg := fmt.Sprintf("Dropped %d unreadable image(s) from the ledger", served.Evicted)
			fyne.Do(func() { a.addWarning(msg) })
		}
		if err == nil && served.Recycled {
			fyne.Do(func() { a.addLogMessage("Every image was viewed; starting a new round") })
		}
		return err
	})
}

// userNext is a manual "next": the slideshow countdown starts over.
func (a *App) userNext() {
	a.slideshow.Touch()
	a.nextImage()
}

func (a *App) previousImage() {
	a.slideshow.Touch()
	a.navigate(func(vm *service.ViewManager) error {
		_, err := vm.Back()
		return err
	})
}

func (a *App) deleteFileCheck() {
	if a.shownPath == "" {
		return
	}
	a.slideshow.Pause(true)
	a.syncPauseIcon()
	msg := fmt.Sprintf("%s %s?", trash.VerbPhrase(), filepath.Base(a.shownPath))
	dialog.ShowConfirm("Delete file", msg, func(ok bool) {
		if ok {
			a.deleteFile()
		}
		a.slideshow.ResumeAfterOperation()
		a.syncPauseIcon()
	}, a.UI.MainWin)
}

// deleteFile trashes the displayed image and moves on to a new one. If the
// file cannot be trashed it stays on screen and in the ledger.
func (a *App) deleteFile() {
	a.navigate(func(vm *service.ViewManager) error {
		rec, err := vm.DeleteCurrent()
		if err != nil {
			return err
		}
		a.thumbnails.Forget(rec.Path)
		_, err = vm.Next()
		return err
	})
}

// jumpTo shows an image from the recent strip again.
func (a *App) jumpTo(path string) {
	a.slideshow.Touch()
	a.navigate(func(vm *service.ViewManager) error {
		_, err := vm.JumpTo(path)
		return err
	})
}

func (a *App) revealCurrent() {
	go func() {
		a.viewMu.Lock()
		err := a.views.RevealCurrent()
		a.viewMu.Unlock()
		if err != nil {
			fyne.Do(func() { a.handleNavigationError(err) })
		}
	}()
}

// handleNavigationError reports err to the user. Expected conditions only
// go to the log; everything else also gets a dialog.
func (a *App) handleNavigationError(err error) {
	var deleteErr *trash.DeleteError
	switch {
	case errors.Is(err, service.ErrEmptyFolder):
		if a.slideshow.IsPlaying() {
			a.slideshow.Pause(false)
			a.syncPauseIcon()
		}
		if a.scan != nil {
			return // images will show up once indexed
		}
		a.addLogMessage("No images to show. Choose a folder with images.")
	case errors.Is(err, service.ErrHistoryStart), errors.Is(err, service.ErrNoImage):
		a.addLogMessage(fmt.Sprintf("Nothing to show: %v", err))
	case errors.As(err, &deleteErr):
		a.addError(deleteErr.Error())
		dialog.ShowError(err, a.UI.MainWin)
	default:
		a.addError(err.Error())
		if a.slideshow.IsPlaying() {
			a.slideshow.Pause(false)
			a.syncPauseIcon()
		}
		dialog.ShowError(err, a.UI.MainWin)
	}
}

// syncPauseIcon makes the play/pause action match the slideshow state.
func (a *App) syncPauseIcon() {
	if a.UI.pauseAction == nil {
		return
	}
	if a.slideshow.IsPlaying() {
		a.UI.pauseAction.SetIcon(theme.MediaPauseIcon())
	} else {
		a.UI.pauseAction.SetIcon(theme.MediaPlayIcon())
	}
	if a.UI.toolBar != nil {
		a.UI.toolBar.Refresh()
	}
	a.updateStatusBar()
}
