//go:build !gui

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/metcalfc/rsvp/internal/engine"
	"github.com/metcalfc/rsvp/internal/extract"
)

const (
	frameInterval = 16 * time.Millisecond
	arrowPause    = 500 * time.Millisecond
)

type keyMap struct {
	Play   key.Binding
	Faster key.Binding
	Slower key.Binding
	Prev   key.Binding
	Next   key.Binding
	Reset  key.Binding
	Open   key.Binding
	Paste  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Faster, k.Slower, k.Prev, k.Next, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Reset},
		{k.Faster, k.Slower},
		{k.Prev, k.Next},
		{k.Open, k.Paste},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Play:   key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "pause/play")),
	Faster: key.NewBinding(key.WithKeys("up", "+", "="), key.WithHelp("↑/+", "faster")),
	Slower: key.NewBinding(key.WithKeys("down", "-"), key.WithHelp("↓/-", "slower")),
	Prev:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev sentence")),
	Next:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next sentence")),
	Reset:  key.NewBinding(key.WithKeys("r", "R"), key.WithHelp("r", "restart")),
	Open:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open file")),
	Paste:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "read clipboard")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:   key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type styles struct {
	status  lipgloss.Style
	paused  lipgloss.Style
	message lipgloss.Style
	failure lipgloss.Style
	hint    lipgloss.Style
}

func newStyles(p palette) styles {
	return styles{
		status:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Primary.Hex())).Padding(0, 1),
		paused:  lipgloss.NewStyle().Foreground(lipgloss.Color(p.Warning.Hex())).Bold(true),
		message: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Success.Hex())).Padding(0, 1),
		failure: lipgloss.NewStyle().Foreground(lipgloss.Color(p.Danger.Hex())).Padding(0, 1),
		hint:    lipgloss.NewStyle().Foreground(lipgloss.Color(p.Primary.Hex())).Italic(true),
	}
}

type (
	// wordTickMsg fires once per word interval. Ticks from an older chain are dropped.
	wordTickMsg struct {
		chain int
		at    time.Time
	}
	frameMsg  time.Time
	loadedMsg engine.LoadResult
)

type model struct {
	eng     *engine.Engine
	logger  *zap.Logger
	palette palette
	styles  styles
	help    help.Model
	picker  filepicker.Model
	picking bool

	chain     int
	framing   bool
	lastArrow time.Time

	message string
	failed  bool

	width    int
	height   int
	initCmd  tea.Cmd
	quitting bool
}

func newModel(a *app, doc *extract.RawDocument) *model {
	fp := filepicker.New()
	for _, ext := range extract.Formats() {
		fp.AllowedTypes = append(fp.AllowedTypes, "."+ext)
	}
	if dir, err := os.Getwd(); err == nil {
		fp.CurrentDirectory = dir
	}

	m := &model{
		eng:     a.engine,
		logger:  a.logger,
		palette: a.palette,
		styles:  newStyles(a.palette),
		help:    help.New(),
		picker:  fp,
		width:   80,
		height:  24,
	}
	if doc != nil {
		m.initCmd = m.load(*doc)
	} else {
		m.picking = true
		m.initCmd = fp.Init()
	}
	return m
}

func (m *model) Init() tea.Cmd {
	return m.initCmd
}

// load starts a background load whose result arrives as loadedMsg.
func (m *model) load(doc extract.RawDocument) tea.Cmd {
	req := m.eng.BeginLoad(doc)
	m.setMessage("Loading "+doc.Filename+"...", false)
	return func() tea.Msg {
		return loadedMsg(req.Run())
	}
}

func (m *model) setMessage(msg string, failed bool) {
	m.message = msg
	m.failed = failed
}

func (m *model) report(err error) {
	if err == nil {
		return
	}
	m.logger.Warn("action failed", zap.Error(err))
	m.setMessage(describe(err), true)
}

// startTicks begins a new word tick chain, orphaning any running one.
func (m *model) startTicks() tea.Cmd {
	m.chain++
	return tea.Batch(m.nextTick(), m.startFrames())
}

func (m *model) nextTick() tea.Cmd {
	chain := m.chain
	return tea.Tick(m.eng.SpeedDelay(), func(t time.Time) tea.Msg {
		return wordTickMsg{chain: chain, at: t}
	})
}

func (m *model) startFrames() tea.Cmd {
	if m.framing {
		return nil
	}
	m.framing = true
	return frame()
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *model) togglePlay(now time.Time) tea.Cmd {
	m.report(m.eng.TogglePlay(now))
	if m.eng.Status() == engine.Playing {
		m.setMessage("", false)
		return m.startTicks()
	}
	return m.startFrames()
}

// jump moves by sentence. A first arrow press while playing pauses; presses in
// quick succession keep moving.
func (m *model) jump(now time.Time, next bool) tea.Cmd {
	var cmd tea.Cmd
	if m.eng.Status() == engine.Playing && now.Sub(m.lastArrow) > arrowPause {
		cmd = m.togglePlay(now)
	}
	m.lastArrow = now
	if next {
		m.eng.JumpToNextSentence()
	} else {
		m.eng.JumpToPrevSentence()
	}
	return cmd
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd

	case loadedMsg:
		res := engine.LoadResult(msg)
		if err := m.eng.ApplyLoad(res); err != nil {
			if !errors.Is(err, engine.ErrStaleLoad) {
				m.report(err)
			}
			return m, nil
		}
		m.picking = false
		if w := res.Warning(); w != nil {
			m.report(w)
		} else {
			m.setMessage(fmt.Sprintf("Loaded %s. Press space to start.", m.eng.Title()), false)
		}
		return m, nil

	case wordTickMsg:
		if msg.chain != m.chain || m.eng.Status() != engine.Playing {
			return m, nil
		}
		m.eng.Tick(msg.at)
		return m, tea.Batch(m.nextTick(), m.startFrames())

	case frameMsg:
		now := time.Time(msg)
		wasPlaying := m.eng.Status() == engine.Playing
		m.report(m.eng.Frame(now))
		if wasPlaying && m.eng.Status() == engine.Paused && m.eng.AtEnd() {
			m.setMessage("Reading complete!", false)
		}
		if m.eng.Status() == engine.Playing || m.eng.Animating(now) {
			return m, frame()
		}
		m.framing = false
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.picking {
			return m.updatePicker(msg)
		}
		now := time.Now()
		switch {
		case key.Matches(msg, keys.Play):
			return m, m.togglePlay(now)
		case key.Matches(msg, keys.Faster):
			m.report(m.eng.AdjustSpeed(-engine.SpeedStepMS))
		case key.Matches(msg, keys.Slower):
			m.report(m.eng.AdjustSpeed(engine.SpeedStepMS))
		case key.Matches(msg, keys.Prev):
			return m, m.jump(now, false)
		case key.Matches(msg, keys.Next):
			return m, m.jump(now, true)
		case key.Matches(msg, keys.Reset):
			m.eng.ResetIndex()
		case key.Matches(msg, keys.Open):
			if m.eng.Status() == engine.Playing {
				m.report(m.eng.TogglePlay(now))
			}
			m.picking = true
			return m, m.picker.Init()
		case key.Matches(msg, keys.Paste):
			doc, err := clipboardDocument()
			if err != nil {
				m.report(err)
				return m, nil
			}
			return m, m.load(doc)
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil
	}

	if m.picking {
		return m.updatePicker(msg)
	}
	return m, nil
}

func (m *model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" && m.eng.Status() != engine.Idle {
		m.picking = false
		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	if ok, path := m.picker.DidSelectFile(msg); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			m.report(fmt.Errorf("failed to read file '%s': %w", path, err))
			return m, cmd
		}
		m.picking = false
		return m, tea.Batch(cmd, m.load(extract.RawDocument{Bytes: data, Filename: path}))
	}
	if ok, path := m.picker.DidSelectDisabledFile(msg); ok {
		m.report(fmt.Errorf("%w: %q", extract.ErrUnsupportedFormat, path))
	}
	return m, cmd
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.statusLine())
	sb.WriteString("\n")

	if m.picking {
		sb.WriteString(m.styles.hint.Render("  Pick a document (" + strings.Join(extract.Formats(), ", ") + "), esc to go back"))
		sb.WriteString("\n")
		sb.WriteString(m.picker.View())
		return sb.String()
	}

	helpView := m.help.View(keys)
	// Reserve lines for status, message and help
	avail := m.height - 2 - lipgloss.Height(helpView)
	if avail < 1 {
		avail = 1
	}
	vPad := avail / 2

	for i := 0; i < vPad; i++ {
		sb.WriteString("\n")
	}
	if m.eng.Status() == engine.Idle {
		sb.WriteString(m.styles.hint.Render(center("Press o to open a document or p to read the clipboard.", m.width)))
	} else {
		sb.WriteString(m.wordLine(time.Now()))
	}
	for i := 0; i < avail-vPad; i++ {
		sb.WriteString("\n")
	}

	sb.WriteString(m.messageLine())
	sb.WriteString("\n")
	sb.WriteString(helpView)
	return sb.String()
}

func (m *model) statusLine() string {
	if m.eng.Status() == engine.Idle {
		return m.styles.status.Render(fmt.Sprintf("rsvp | %d ms/word", m.eng.SpeedMS()))
	}
	pause := ""
	if m.eng.Paused() {
		pause = m.styles.paused.Render(" [PAUSED]")
	}
	loading := ""
	if m.eng.Loading() {
		loading = " | loading"
	}
	current, total := m.eng.Progress()
	return m.styles.status.Render(fmt.Sprintf("%s | Word %d/%d | %d ms (%d WPM)%s%s",
		m.eng.Title(), current, total, m.eng.SpeedMS(), m.eng.WPM(), loading, pause))
}

func (m *model) messageLine() string {
	if m.message == "" {
		return ""
	}
	if m.failed {
		return m.styles.failure.Render(m.message)
	}
	return m.styles.message.Render(m.message)
}

// wordLine renders the current word with its focus character at the center column.
func (m *model) wordLine(now time.Time) string {
	before, focus, after := m.eng.CurrentWord()
	opacity := m.eng.Opacity(now)
	text := lipgloss.NewStyle().Foreground(fadeColor(m.palette.Text, m.palette.Background, opacity))
	mark := lipgloss.NewStyle().Bold(true).Foreground(fadeColor(m.palette.Danger, m.palette.Background, opacity))

	pad := m.width/2 - runewidth.StringWidth(before)
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + text.Render(before) + mark.Render(focus) + text.Render(after)
}

func fadeColor(fg, bg colorful.Color, opacity float64) lipgloss.Color {
	return lipgloss.Color(fade(fg, bg, opacity).Hex())
}

func center(s string, width int) string {
	pad := (width - runewidth.StringWidth(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		out := fs.Output()
		fmt.Fprintf(out, "rsvp - Terminal Speed Reading Tool\n\n")
		fmt.Fprintf(out, "Usage:\n")
		fmt.Fprintf(out, "  rsvp [options] [file]\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nSupported formats: %s\n", strings.Join(extract.Formats(), ", "))
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  rsvp book.epub            Read a book, resuming where you stopped\n")
		fmt.Fprintf(out, "  rsvp -s 300 paper.pdf     Read at 300 ms per word\n")
		fmt.Fprintf(out, "  cat notes.txt | rsvp      Read from stdin\n")
		fmt.Fprintf(out, "  rsvp                      Pick a file interactively\n")
		fmt.Fprintf(out, "\nControls:\n")
		fmt.Fprintf(out, "  SPACE    Pause/play\n")
		fmt.Fprintf(out, "  ↑/↓ +/-  Faster/slower by %d ms\n", engine.SpeedStepMS)
		fmt.Fprintf(out, "  ←/→      Jump to previous/next sentence\n")
		fmt.Fprintf(out, "  R        Restart from the first word\n")
		fmt.Fprintf(out, "  O        Open another file\n")
		fmt.Fprintf(out, "  P        Read the clipboard\n")
		fmt.Fprintf(out, "  Q        Quit\n")
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("rsvp", flag.ExitOnError)
	fs.Usage = usage(fs)
	opts, err := parseFlags(fs, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	if opts.showVersion {
		fmt.Printf("rsvp %s (commit: %s, built: %s)\n", version, commit, date)
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

	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if doc != nil && len(opts.args) == 0 {
		// stdin carried the document, so keys come from the terminal.
		progOpts = append(progOpts, tea.WithInputTTY())
	}

	p := tea.NewProgram(newModel(a, doc), progOpts...)
	if _, err := p.Run(); err != nil {
		a.logger.Error("program failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
