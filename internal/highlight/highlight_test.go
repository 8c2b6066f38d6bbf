package highlight

import (
	"errors"
	"strings"
	"testing"
)

func TestLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path string
		want string
	}{
		{path: "main.go", want: "Go"},
		{path: "src/lib.rs", want: "Rust"},
		{path: "notes.unknownext", want: ""},
		{path: "", want: ""},
	}
	for _, tt := range tests {
		if got := Language(tt.path); got != tt.want {
			t.Fatalf("Language(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestThemeFromString(t *testing.T) {
	t.Parallel()

	if got := ThemeFromString(" Dark "); got != ThemeDark {
		t.Fatalf("ThemeFromString(dark) = %v", got)
	}
	if got := ThemeFromString("light"); got != ThemeLight {
		t.Fatalf("ThemeFromString(light) = %v", got)
	}
	if got := ThemeFromString("sepia"); got != ThemeAuto {
		t.Fatalf("ThemeFromString(sepia) = %v", got)
	}
}

func TestThemeResolveAuto(t *testing.T) {
	orig := detectDarkMode
	t.Cleanup(func() { detectDarkMode = orig })

	detectDarkMode = func() (bool, error) { return true, nil }
	if got := ThemeAuto.Resolve(); got != ThemeDark {
		t.Fatalf("Resolve with dark desktop = %v", got)
	}
	detectDarkMode = func() (bool, error) { return false, errors.New("no desktop") }
	if got := ThemeAuto.Resolve(); got != ThemeLight {
		t.Fatalf("Resolve on detection failure = %v", got)
	}
	if got := ThemeDark.Resolve(); got != ThemeDark {
		t.Fatalf("explicit theme changed to %v", got)
	}
}

func TestRenderDiffMarkers(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	display := "  keep\n- old\n+ new\n"
	if err := RenderDiff(&b, display, "notes.unknownext", ThemeLight); err != nil {
		t.Fatalf("RenderDiff: %v", err)
	}
	got := b.String()
	if !strings.Contains(got, ansiRed+"-"+ansiReset+" old\n") {
		t.Fatalf("deleted line not colored: %q", got)
	}
	if !strings.Contains(got, ansiGreen+"+"+ansiReset+" new\n") {
		t.Fatalf("inserted line not colored: %q", got)
	}
	if !strings.HasPrefix(got, "  keep\n") {
		t.Fatalf("context line changed: %q", got)
	}
}

func TestRenderDiffHighlightsKnownLanguage(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	if err := RenderDiff(&b, "+ package main\n", "main.go", ThemeDark); err != nil {
		t.Fatalf("RenderDiff: %v", err)
	}
	got := b.String()
	if !strings.Contains(got, "package") || !strings.Contains(got, "\x1b[") {
		t.Fatalf("expected escape sequences around code: %q", got)
	}
}
