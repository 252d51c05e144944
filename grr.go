//go:build gui

package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/metcalfc/rsvp/internal/engine"
	"github.com/metcalfc/rsvp/internal/extract"
)

const (
	minFontSize  = 20
	maxFontSize  = 200
	fontSizeStep = 5
	arrowPause   = 500 * time.Millisecond
)

// readerTheme applies the configured palette and optional font to the default theme.
type readerTheme struct {
	fyne.Theme
	palette palette
	font    fyne.Resource
}

func (t *readerTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return t.palette.Background
	case theme.ColorNameForeground:
		return t.palette.Text
	case theme.ColorNamePrimary:
		return t.palette.Primary
	case theme.ColorNameSuccess:
		return t.palette.Success
	case theme.ColorNameWarning:
		return t.palette.Warning
	case theme.ColorNameError:
		return t.palette.Danger
	}
	return t.Theme.Color(name, variant)
}

func (t *readerTheme) Font(style fyne.TextStyle) fyne.Resource {
	if t.font != nil && !style.Monospace && !style.Symbol {
		return t.font
	}
	return t.Theme.Font(style)
}

// loadFont reads name from the fonts directory. An empty name selects the default font.
func loadFont(dir, name string) (fyne.Resource, error) {
	if name == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filepath.Join(dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to load font %s: %w", name, err)
	}
	return fyne.NewStaticResource(name, data), nil
}

// focusLayout places three texts so the middle one sits at the horizontal
// center, and centers them vertically.
type focusLayout struct{}

func (l *focusLayout) MinSize(objects []fyne.CanvasObject) fyne.Size {
	var w, maxH float32
	for _, o := range objects {
		size := o.MinSize()
		w += size.Width
		if size.Height > maxH {
			maxH = size.Height
		}
	}
	return fyne.NewSize(w, maxH)
}

func (l *focusLayout) Layout(objects []fyne.CanvasObject, size fyne.Size) {
	if len(objects) != 3 {
		return
	}
	before, focus, after := objects[0], objects[1], objects[2]

	var maxH float32
	for _, o := range objects {
		if h := o.MinSize().Height; h > maxH {
			maxH = h
		}
	}
	y := (size.Height - maxH) / 2
	if y < 0 {
		y = 0
	}

	centerX := size.Width / 2
	beforeX := centerX - before.MinSize().Width
	if beforeX < 0 {
		beforeX = 0
	}
	for _, p := range []struct {
		obj fyne.CanvasObject
		x   float32
	}{
		{before, beforeX},
		{focus, centerX},
		{after, centerX + focus.MinSize().Width},
	} {
		p.obj.Move(fyne.NewPos(p.x, y))
		p.obj.Resize(p.obj.MinSize())
	}
}

// window is the desktop reader. Its methods run on the fyne main goroutine.
type window struct {
	app      *app
	eng      *engine.Engine
	win      fyne.Window
	fontSize float32

	before, focus, after *canvas.Text
	word                 *fyne.Container
	status               *widget.Label
	message              *widget.Label

	timer     *time.Timer
	frames    *fyne.Animation
	lastArrow time.Time
	done      chan struct{}
	closeOnce sync.Once
}

func newWindow(a *app, fa fyne.App) *window {
	w := &window{
		app:      a,
		eng:      a.engine,
		win:      fa.NewWindow("grr - Speed Reader"),
		fontSize: max(minFontSize, min(maxFontSize, a.config.Config().TextSize)),
		status:   widget.NewLabel(""),
		message:  widget.NewLabel(""),
		done:     make(chan struct{}),
	}
	w.status.Alignment = fyne.TextAlignCenter
	w.message.Alignment = fyne.TextAlignCenter

	newText := func() *canvas.Text {
		t := canvas.NewText("", a.palette.Text)
		t.TextStyle.Bold = true
		return t
	}
	w.before, w.focus, w.after = newText(), newText(), newText()
	w.word = container.New(&focusLayout{}, w.before, w.focus, w.after)

	controls := widget.NewLabel("SPACE: pause  ↑/↓: speed  +/-: font  ←/→: sentence  R: restart  O: open  P: paste  F: fullscreen  Q: quit")
	controls.Alignment = fyne.TextAlignCenter

	background := canvas.NewRectangle(a.palette.Background)
	content := container.NewBorder(
		w.status,
		container.NewVBox(w.message, controls),
		nil, nil,
		w.word,
	)
	w.win.SetContent(container.NewStack(background, content))
	w.win.Resize(fyne.NewSize(800, 600))

	w.win.Canvas().SetOnTypedKey(w.typedKey)
	w.win.Canvas().SetOnTypedRune(w.typedRune)
	w.win.SetOnClosed(w.close)
	return w
}

// run starts the word timer and the frame animation.
func (w *window) run() {
	w.timer = time.NewTimer(w.eng.SpeedDelay())
	w.timer.Stop()
	go func() {
		for {
			select {
			case <-w.done:
				return
			case <-w.timer.C:
				fyne.Do(w.tick)
			}
		}
	}()

	// The callback runs on every drawn frame, not once per second.
	w.frames = fyne.NewAnimation(time.Second, func(float32) { w.frame() })
	w.frames.Curve = fyne.AnimationLinear
	w.frames.RepeatCount = fyne.AnimationRepeatForever
	w.frames.Start()

	w.render()
}

func (w *window) tick() {
	if w.eng.Status() != engine.Playing {
		return
	}
	w.eng.Tick(time.Now())
	w.timer.Reset(w.eng.SpeedDelay())
}

func (w *window) frame() {
	now := time.Now()
	playing := w.eng.Status() == engine.Playing
	if !playing && !w.eng.Animating(now) {
		return
	}
	w.report(w.eng.Frame(now))
	if playing && w.eng.Paused() && w.eng.AtEnd() {
		w.message.SetText("Reading complete!")
	}
	w.render()
}

func (w *window) render() {
	before, focus, after := w.eng.CurrentWord()
	if w.eng.Status() == engine.Idle {
		before, focus, after = "", "", "Press O to open a document"
	}
	opacity := w.eng.Opacity(time.Now())
	text := fade(w.app.palette.Text, w.app.palette.Background, opacity)
	mark := fade(w.app.palette.Danger, w.app.palette.Background, opacity)

	for _, p := range []struct {
		t   *canvas.Text
		s   string
		col colorful.Color
	}{
		{w.before, before, text},
		{w.focus, focus, mark},
		{w.after, after, text},
	} {
		p.t.Text = p.s
		p.t.Color = p.col
		p.t.TextSize = w.fontSize
	}
	w.word.Refresh()

	if w.eng.Status() == engine.Idle {
		w.status.SetText(fmt.Sprintf("%d ms/word | Font: %.0f", w.eng.SpeedMS(), w.fontSize))
		return
	}
	pause := ""
	if w.eng.Paused() {
		pause = " [PAUSED]"
	}
	loading := ""
	if w.eng.Loading() {
		loading = " | loading"
	}
	current, total := w.eng.Progress()
	w.status.SetText(fmt.Sprintf("%s | Word %d/%d | %d ms (%d WPM) | Font: %.0f%s%s",
		w.eng.Title(), current, total, w.eng.SpeedMS(), w.eng.WPM(), w.fontSize, loading, pause))
}

func (w *window) report(err error) {
	if err == nil {
		return
	}
	w.app.logger.Warn("action failed", zap.Error(err))
	w.message.SetText(describe(err))
}

func (w *window) load(doc extract.RawDocument) {
	req := w.eng.BeginLoad(doc)
	w.message.SetText("Loading " + doc.Filename + "...")
	w.render()
	go func() {
		res := req.Run()
		fyne.Do(func() { w.applyLoad(res) })
	}()
}

func (w *window) applyLoad(res engine.LoadResult) {
	if err := w.eng.ApplyLoad(res); err != nil {
		if !errors.Is(err, engine.ErrStaleLoad) {
			w.report(err)
		}
		w.render()
		return
	}
	w.timer.Stop()
	if warn := res.Warning(); warn != nil {
		w.report(warn)
	} else {
		w.message.SetText(fmt.Sprintf("Loaded %s. Press space to start.", w.eng.Title()))
	}
	w.render()
}

func (w *window) togglePlay(now time.Time) {
	w.report(w.eng.TogglePlay(now))
	if w.eng.Status() == engine.Playing {
		w.message.SetText("")
		w.timer.Reset(w.eng.SpeedDelay())
	} else {
		w.timer.Stop()
	}
	w.render()
}

func (w *window) jump(next bool) {
	now := time.Now()
	if w.eng.Status() == engine.Playing && now.Sub(w.lastArrow) > arrowPause {
		w.togglePlay(now)
	}
	w.lastArrow = now
	if next {
		w.eng.JumpToNextSentence()
	} else {
		w.eng.JumpToPrevSentence()
	}
	w.render()
}

func (w *window) openDialog() {
	if w.eng.Status() == engine.Playing {
		w.togglePlay(time.Now())
	}
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			w.report(err)
			return
		}
		if rc == nil {
			return
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			w.report(fmt.Errorf("failed to read file '%s': %w", rc.URI().Name(), err))
			return
		}
		w.load(extract.RawDocument{Bytes: data, Filename: rc.URI().Name()})
	}, w.win)

	exts := make([]string, 0, len(extract.Formats()))
	for _, ext := range extract.Formats() {
		exts = append(exts, "."+ext)
	}
	d.SetFilter(storage.NewExtensionFileFilter(exts))
	d.Show()
}

func (w *window) typedKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeySpace:
		w.togglePlay(time.Now())
	case fyne.KeyUp:
		w.report(w.eng.AdjustSpeed(-engine.SpeedStepMS))
		w.render()
	case fyne.KeyDown:
		w.report(w.eng.AdjustSpeed(engine.SpeedStepMS))
		w.render()
	case fyne.KeyLeft:
		w.jump(false)
	case fyne.KeyRight:
		w.jump(true)
	case fyne.KeyF:
		w.win.SetFullScreen(!w.win.FullScreen())
	case fyne.KeyQ:
		w.win.Close()
	}
}

func (w *window) typedRune(r rune) {
	switch r {
	case 'r', 'R':
		w.eng.ResetIndex()
		w.render()
	case 'o', 'O':
		w.openDialog()
	case 'p', 'P':
		doc, err := clipboardDocument()
		if err != nil {
			w.report(err)
			return
		}
		w.load(doc)
	case '+', '=':
		w.setFontSize(w.fontSize + fontSizeStep)
	case '-':
		w.setFontSize(w.fontSize - fontSizeStep)
	}
}

func (w *window) setFontSize(size float32) {
	size = max(minFontSize, min(maxFontSize, size))
	if size == w.fontSize {
		return
	}
	w.fontSize = size
	if err := w.app.config.SaveTextSize(size); err != nil {
		w.app.logger.Warn("text size not saved", zap.Error(err))
	}
	w.render()
}

func (w *window) close() {
	w.closeOnce.Do(func() {
		close(w.done)
		if w.timer != nil {
			w.timer.Stop()
		}
		if w.frames != nil {
			w.frames.Stop()
		}
	})
}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("grr", flag.ExitOnError)
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "Grr - GUI Speed Reading Tool\n\n")
		fmt.Fprintf(out, "Usage:\n")
		fmt.Fprintf(out, "  grr [options] [file]\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nSupported formats: %s\n", strings.Join(extract.Formats(), ", "))
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  grr book.epub             Read a book, resuming where you stopped\n")
		fmt.Fprintf(out, "  grr -s 300 paper.pdf      Read at 300 ms per word\n")
		fmt.Fprintf(out, "  cat file.txt | grr        Read from stdin\n")
	}
	opts, err := parseFlags(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if opts.showVersion {
		fmt.Printf("grr %s (commit: %s, built: %s)\n", version, commit, date)
		return 0
	}

	doc, err := readDocument(opts.args, os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	a, err := setup(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	fa := fyneapp.New()
	font, err := loadFont(a.paths.FontsDir(), a.config.Config().Font)
	if err != nil {
		a.logger.Warn("using default font", zap.Error(err))
	}
	fa.Settings().SetTheme(&readerTheme{Theme: theme.DefaultTheme(), palette: a.palette, font: font})

	w := newWindow(a, fa)
	w.run()
	if doc != nil {
		w.load(*doc)
	}
	w.win.ShowAndRun()
	return 0
}
