package ui

import (
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"randview/internal/history"
	"randview/internal/ledger"
	"randview/internal/service"
	"randview/internal/viewstate"

	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
)

// formatNumberWithCommas takes an integer and returns a string representation
// with commas as thousands separators.
func formatNumberWithCommas(n int64) string {
	s := fmt.Sprintf("%d", n)
	if n < 0 {
		s = s[1:] // Temporarily remove sign for processing
	}
	length := len(s)
	if length <= 3 {
		if n < 0 {
			return "-" + s
		}
		return s
	}
	commas := (length - 1) / 3
	result := make([]byte, length+commas)
	for i, j, k := length-1, len(result)-1, 0; ; i, j = i-1, j-1 {
		result[j] = s[i]
		if i == 0 {
			if n < 0 {
				return "-" + string(result)
			}
			return string(result)
		}
		k++
		if k%3 == 0 {
			j--
			result[j] = ','
		}
	}
}

// updateStatusBar shows the current path, the ledger counters and the
// slideshow state.
func (a *App) updateStatusBar() {
	if a.UI.statusPathLabel == nil {
		return
	}
	statusText := "Ready"
	if a.shownPath != "" {
		statusText = a.shownPath
	}
	if st, err := a.Service.Stats(); err == nil {
		statusText += fmt.Sprintf("  |  Viewed %s / %s",
			formatNumberWithCommas(int64(st.Viewed)), formatNumberWithCommas(int64(st.Total)))
	}
	if a.slideshow.IsPlaying() {
		statusText += " | Playing"
	} else {
		statusText += " | Paused"
	}
	a.UI.statusPathLabel.SetText(statusText)
}

// addLogMessage adds a message to the UI log display. UI goroutine only.
func (a *App) addLogMessage(message string) {
	if a.logUIManager == nil {
		log.Printf("LogUIManager not ready, console log: %s", message)
		return
	}
	a.logUIManager.AddLogMessage(message)
}

func (a *App) addWarning(message string) {
	if a.logUIManager == nil {
		log.Printf("Warning: %s", message)
		return
	}
	a.logUIManager.AddWarning(message)
}

func (a *App) addError(message string) {
	if a.logUIManager == nil {
		log.Printf("Error: %s", message)
		return
	}
	a.logUIManager.AddError(message)
}

// updateScaleLabel shows the scale of frame, or nothing when the view is empty.
func (a *App) updateScaleLabel(frame viewstate.Frame) {
	if a.UI.scaleLabel == nil {
		return
	}
	if frame.State == viewstate.Empty {
		a.UI.scaleLabel.SetText("")
		return
	}
	a.UI.scaleLabel.SetText(fmt.Sprintf("%.2fx", frame.Scale))
}

// updateInfoText renders the metadata of the displayed image into the info
// panel as markdown.
func (a *App) updateInfoText(rec ledger.ImageRecord, info *service.ImageInfo) {
	if a.UI.infoText == nil {
		return
	}
	if rec.Path == "" {
		a.UI.infoText.ParseMarkdown("# Info\n---\nNo image loaded.")
		return
	}
	if info == nil {
		a.UI.infoText.ParseMarkdown("# Info\n---\nImage metadata not available.")
		return
	}

	exifString := "(not available)"
	if len(info.EXIFData) > 0 {
		keys := make([]string, 0, len(info.EXIFData))
		for k := range info.EXIFData {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var builder strings.Builder
		for _, k := range keys {
			builder.WriteString(fmt.Sprintf("- **%s**: %s\n\n", k, info.EXIFData[k]))
		}
		exifString = builder.String()
	}

	md := fmt.Sprintf(`## %s

**Folder:** %s

**Format:** %s

**Size:**   %s bytes

**Width:**   %d px

**Height:**  %d px

**Last modified:** %s

---
## EXIF Data
%s
`,
		filepath.Base(rec.Path),
		filepath.Dir(rec.Path),
		info.Format,
		formatNumberWithCommas(info.Size),
		info.Width,
		info.Height,
		info.ModTime.Format("2006-01-02 15:04:05"),
		exifString,
	)
	a.UI.infoText.ParseMarkdown(md)
}

// showSnapshot updates everything that depends on which image is displayed.
func (a *App) showSnapshot(s snapshot) {
	a.shownPath = s.rec.Path
	if s.rec.Path == "" {
		a.UI.MainWin.SetTitle(appTitle)
	} else {
		a.UI.MainWin.SetTitle(fmt.Sprintf("%s - %s", appTitle, filepath.Base(s.rec.Path)))
	}
	a.updateInfoText(s.rec, s.info)
	a.updateScaleLabel(s.frame)
	a.refreshThumbnailStrip(s.recent, s.recentIdx)
	a.updateStatusBar()
	a.zoomPanArea.Refresh()
}

// refreshThumbnailStrip shows the recently served images, the displayed one
// framed. Tapping a thumbnail shows that image again.
func (a *App) refreshThumbnailStrip(recent []history.Entry, current int) {
	if a.UI.thumbnailStrip == nil {
		return
	}
	a.UI.thumbnailStrip.RemoveAll()
	if len(recent) == 0 {
		a.UI.thumbnailStrip.Refresh()
		return
	}

	a.UI.thumbnailStrip.Add(layout.NewSpacer())
	for i, e := range recent {
		path := e.Path
		thumb := newTappableImage(theme.FileImageIcon(), i == current && a.shownPath == path, func() {
			if path != a.shownPath {
				a.jumpTo(path)
			}
		})
		thumb.SetResource(a.thumbnails.GetThumbnail(path, thumb.SetResource))
		a.UI.thumbnailStrip.Add(thumb)
	}
	a.UI.thumbnailStrip.Add(layout.NewSpacer())
	a.UI.thumbnailStrip.Refresh()
}

// togglePlay handles toggling the slideshow state and updating the UI icon.
func (a *App) togglePlay() {
	if a.slideshow.Toggle() {
		a.addLogMessage(fmt.Sprintf("Slideshow playing every %s", a.slideshow.Interval()))
	} else {
		a.addLogMessage("Slideshow paused")
	}
	a.syncPauseIcon()
}

// toggleTheme switches between the light and dark application themes.
func (a *App) toggleTheme() {
	a.isDarkTheme = !a.isDarkTheme
	if a.isDarkTheme {
		a.app.Settings().SetTheme(NewCompactTheme(theme.DarkTheme()))
	} else {
		a.app.Settings().SetTheme(NewCompactTheme(theme.LightTheme()))
	}
}
