package highlight

import (
	"log/slog"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/styles"
	darkmode "github.com/thiagokokada/dark-mode-go"
)

type Theme int

const (
	ThemeAuto Theme = iota
	ThemeLight
	ThemeDark
)

func (t Theme) String() string {
	switch t {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

var detectDarkMode = darkmode.IsDarkMode

func ThemeFromString(raw string) Theme {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

// Resolve turns ThemeAuto into the desktop's current preference, falling
// back to light when it cannot be detected.
func (t Theme) Resolve() Theme {
	if t != ThemeAuto {
		return t
	}
	if detectDarkMode != nil {
		dark, err := detectDarkMode()
		if err == nil {
			if dark {
				return ThemeDark
			}
			return ThemeLight
		}
		slog.Debug("detect dark-mode", slog.Any("error", err))
	}
	return ThemeLight
}

// StyleFor returns the chroma style used for t.
func StyleFor(t Theme) *chroma.Style {
	name := "github"
	if t.Resolve() == ThemeDark {
		name = "github-dark"
	}
	if st := styles.Get(name); st != nil {
		return st
	}
	return styles.Fallback
}
