package service

import (
	"errors"
	"fmt"

	"randview/internal/history"
	"randview/internal/ledger"
	"randview/internal/viewstate"
)

var (
	// ErrNoImage is returned by operations that need a current image.
	ErrNoImage = errors.New("no image displayed")
	// ErrHistoryStart means Back reached the oldest remembered image.
	ErrHistoryStart = errors.New("no earlier image")
)

// ViewManager owns what is on screen: the current record, its ViewState and
// the trail of served images. It belongs to the UI goroutine.
type ViewManager struct {
	svc     *Service
	view    *viewstate.ViewState
	history *history.History
	current ledger.ImageRecord
	shown   bool
}

// NewViewManager creates a ViewManager with a viewport of vw x vh and a
// history of historySize entries.
func NewViewManager(svc *Service, vw, vh, historySize int) *ViewManager {
	return &ViewManager{
		svc:     svc,
		view:    viewstate.New(vw, vh),
		history: history.New(historySize),
	}
}

// View gives access to the transform for intents and rendering.
func (vm *ViewManager) View() *viewstate.ViewState { return vm.view }

// Current returns the displayed record.
func (vm *ViewManager) Current() (ledger.ImageRecord, bool) {
	return vm.current, vm.shown
}

func (vm *ViewManager) load(rec ledger.ImageRecord) error {
	_, err := vm.view.LoadImage(vm.svc.Images, rec.Path)
	return err
}

// Next shows the following image: forward through the history after going
// back, a new random pick otherwise.
func (vm *ViewManager) Next() (Served, error) {
	if !vm.history.AtLatest() {
		if e, ok := vm.history.Forward(); ok {
			rec := ledger.ImageRecord{ID: e.ID, Path: e.Path, Viewed: true}
			if err := vm.load(rec); err == nil {
				vm.setCurrent(rec)
				return Served{Record: rec}, nil
			}
			vm.history.Remove(e.Path)
		}
	}

	served, err := vm.svc.NextImage(vm.load)
	if err != nil {
		vm.clear()
		return served, err
	}
	vm.setCurrent(served.Record)
	vm.history.Record(history.Entry{ID: served.Record.ID, Path: served.Record.Path})
	return served, nil
}

// Back shows the previously served image. After a delete the history already
// points at the image before the deleted one, so that one is shown.
func (vm *ViewManager) Back() (ledger.ImageRecord, error) {
	useCurrent := !vm.shown
	for {
		var e history.Entry
		var ok bool
		if useCurrent {
			e, ok = vm.history.Current()
		} else {
			e, ok = vm.history.Back()
		}
		if !ok {
			return ledger.ImageRecord{}, ErrHistoryStart
		}
		rec := ledger.ImageRecord{ID: e.ID, Path: e.Path, Viewed: true}
		err := vm.load(rec)
		if err == nil {
			vm.setCurrent(rec)
			return rec, nil
		}
		vm.svc.logMessage("History entry %s is gone: %v", e.Path, err)
		vm.history.Remove(e.Path)
		useCurrent = true
	}
}

// Recent returns up to size served images around the current one and the
// index of the current one among them.
func (vm *ViewManager) Recent(size int) ([]history.Entry, int) {
	return vm.history.Window(size)
}

// JumpTo shows a previously served image again. An image that can no longer
// be loaded is dropped from the history.
func (vm *ViewManager) JumpTo(path string) (ledger.ImageRecord, error) {
	e, ok := vm.history.Seek(path)
	if !ok {
		return ledger.ImageRecord{}, fmt.Errorf("%s was not served in this session", path)
	}
	rec := ledger.ImageRecord{ID: e.ID, Path: e.Path, Viewed: true}
	if err := vm.load(rec); err != nil {
		vm.history.Remove(e.Path)
		vm.clear()
		return rec, err
	}
	vm.setCurrent(rec)
	return rec, nil
}

// DeleteCurrent trashes the displayed file and drops it from the ledger and
// the history. The view is left empty; callers usually follow with Next.
func (vm *ViewManager) DeleteCurrent() (ledger.ImageRecord, error) {
	if !vm.shown {
		return ledger.ImageRecord{}, ErrNoImage
	}
	rec := vm.current
	if err := vm.svc.DeleteImageFile(rec); err != nil {
		return rec, err
	}
	vm.history.Remove(rec.Path)
	vm.clear()
	return rec, nil
}

// RevealCurrent shows the displayed file in the file manager.
func (vm *ViewManager) RevealCurrent() error {
	if !vm.shown {
		return ErrNoImage
	}
	return vm.svc.Reveal(vm.current.Path)
}

// Forget drops the display and history, e.g. after the ledger was cleared.
func (vm *ViewManager) Forget() {
	vm.history.Clear()
	vm.clear()
}

// Info returns metadata for the displayed image.
func (vm *ViewManager) Info() (*ImageInfo, error) {
	if !vm.shown {
		return nil, ErrNoImage
	}
	info, err := vm.svc.Images.GetImageInfo(vm.current.Path)
	if err != nil {
		return nil, fmt.Errorf("info for %s: %w", vm.current.Path, err)
	}
	return info, nil
}

func (vm *ViewManager) setCurrent(rec ledger.ImageRecord) {
	vm.current = rec
	vm.shown = true
}

func (vm *ViewManager) clear() {
	vm.current = ledger.ImageRecord{}
	vm.shown = false
	vm.view.Clear()
}
