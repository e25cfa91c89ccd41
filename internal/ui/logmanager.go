package ui

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2/widget"
)

// DefaultMaxLogMessages bounds the on-screen log.
const DefaultMaxLogMessages = 100

type logLevel int

const (
	levelInfo logLevel = iota
	levelWarning
	levelError
)

func (l logLevel) importance() widget.Importance {
	switch l {
	case levelWarning:
		return widget.WarningImportance
	case levelError:
		return widget.DangerImportance
	}
	return widget.MediumImportance
}

// logEntry is one line of the status log. Repeats of the same message are
// folded into the previous entry.
type logEntry struct {
	at     time.Time
	level  logLevel
	text   string
	repeat int
}

func (e logEntry) String() string {
	s := e.at.Format("15:04:05") + " " + e.text
	if e.repeat > 1 {
		s += fmt.Sprintf(" (x%d)", e.repeat)
	}
	return s
}

// LogUIManager keeps the recent scan, navigation and ledger messages and
// pages through them in the status bar. It must only be used from the UI
// goroutine.
type LogUIManager struct {
	entries []logEntry
	current int
	max     int
	now     func() time.Time

	label   *widget.Label
	upBtn   *widget.Button
	downBtn *widget.Button
}

func NewLogUIManager(logLabel *widget.Label, upBtn, downBtn *widget.Button, maxMessages int) *LogUIManager {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxLogMessages
	}
	return &LogUIManager{
		entries: make([]logEntry, 0, maxMessages),
		current: -1,
		max:     maxMessages,
		now:     time.Now,
		label:   logLabel,
		upBtn:   upBtn,
		downBtn: downBtn,
	}
}

// AddLogMessage records an informational message.
func (lm *LogUIManager) AddLogMessage(message string) { lm.add(levelInfo, message) }

// AddWarning records something the user may want to act on, such as evicted
// records.
func (lm *LogUIManager) AddWarning(message string) { lm.add(levelWarning, message) }

// AddError records a failed operation.
func (lm *LogUIManager) AddError(message string) { lm.add(levelError, message) }

func (lm *LogUIManager) add(level logLevel, message string) {
	if n := len(lm.entries); n > 0 && lm.entries[n-1].text == message && lm.entries[n-1].level == level {
		lm.entries[n-1].repeat++
		lm.entries[n-1].at = lm.now()
	} else {
		lm.entries = append(lm.entries, logEntry{at: lm.now(), level: level, text: message, repeat: 1})
		if len(lm.entries) > lm.max {
			lm.entries = lm.entries[len(lm.entries)-lm.max:]
		}
	}
	lm.current = len(lm.entries) - 1
	lm.UpdateLogDisplay()
}

// Messages returns the retained message texts, oldest first.
func (lm *LogUIManager) Messages() []string {
	out := make([]string, len(lm.entries))
	for i, e := range lm.entries {
		out[i] = e.text
	}
	return out
}

func (lm *LogUIManager) UpdateLogDisplay() {
	if lm.label == nil || lm.upBtn == nil || lm.downBtn == nil {
		return
	}
	if len(lm.entries) == 0 {
		lm.label.SetText("")
		lm.upBtn.Disable()
		lm.downBtn.Disable()
		return
	}
	lm.current = max(0, min(lm.current, len(lm.entries)-1))

	e := lm.entries[lm.current]
	lm.label.Importance = e.level.importance()
	lm.label.SetText(fmt.Sprintf("[%d/%d] %s", lm.current+1, len(lm.entries), e))
	if lm.current == 0 {
		lm.upBtn.Disable()
	} else {
		lm.upBtn.Enable()
	}
	if lm.current == len(lm.entries)-1 {
		lm.downBtn.Disable()
	} else {
		lm.downBtn.Enable()
	}
}

func (lm *LogUIManager) ShowPreviousLogMessage() {
	if lm.current <= 0 {
		return
	}
	lm.current--
	lm.UpdateLogDisplay()
}

func (lm *LogUIManager) ShowNextLogMessage() {
	if lm.current >= len(lm.entries)-1 {
		return
	}
	lm.current++
	lm.UpdateLogDisplay()
}
