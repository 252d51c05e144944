//go:build gui

package main

import (
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/theme"

	"github.com/metcalfc/rsvp/internal/config"
)

func TestFocusLayoutCentersFocus(t *testing.T) {
	test.NewApp()

	before := canvas.NewText("re", nil)
	focus := canvas.NewText("a", nil)
	after := canvas.NewText("ding", nil)
	objects := []fyne.CanvasObject{before, focus, after}

	(&focusLayout{}).Layout(objects, fyne.NewSize(400, 100))

	if x := focus.Position().X; x != 200 {
		t.Errorf("focus x = %v, want 200", x)
	}
	if x := before.Position().X + before.MinSize().Width; x != 200 {
		t.Errorf("before ends at %v, want 200", x)
	}
	if x := after.Position().X; x != 200+focus.MinSize().Width {
		t.Errorf("after x = %v", x)
	}
}

func TestReaderThemeColors(t *testing.T) {
	p, _ := parseTheme(config.DefaultTheme())
	th := &readerTheme{Theme: theme.DefaultTheme(), palette: p}

	if got := th.Color(theme.ColorNameBackground, theme.VariantLight); got != p.Background {
		t.Errorf("background = %v", got)
	}
	if got := th.Color(theme.ColorNameError, theme.VariantLight); got != p.Danger {
		t.Errorf("error = %v", got)
	}
	if th.Font(fyne.TextStyle{}) == nil {
		t.Error("expected the default font")
	}
}

func TestLoadFont(t *testing.T) {
	res, err := loadFont(t.TempDir(), "")
	if res != nil || err != nil {
		t.Errorf("empty name: %v, %v", res, err)
	}
	if _, err := loadFont(filepath.Join(t.TempDir(), "fonts"), "missing.ttf"); err == nil {
		t.Error("expected error for missing font")
	}
}
