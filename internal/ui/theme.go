package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// compactPadding replaces the base theme's padding so the toolbar, status bar
// and info panel leave more room for the image.
const compactPadding float32 = 1.0

// compactTheme wraps an existing theme and reduces padding.
type compactTheme struct {
	fyne.Theme
}

var _ fyne.Theme = (*compactTheme)(nil)

// Size overrides the padding and defers every other size to the base theme.
func (t *compactTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNamePadding {
		return compactPadding
	}
	return t.Theme.Size(name)
}

// NewCompactTheme wraps baseTheme with reduced padding.
func NewCompactTheme(baseTheme fyne.Theme) fyne.Theme {
	return &compactTheme{Theme: baseTheme}
}
