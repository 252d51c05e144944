package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/lucasb-eyer/go-colorful"
	"go.uber.org/zap"

	"github.com/metcalfc/rsvp/internal/cache"
	"github.com/metcalfc/rsvp/internal/config"
	"github.com/metcalfc/rsvp/internal/engine"
	"github.com/metcalfc/rsvp/internal/extract"
	"github.com/metcalfc/rsvp/internal/logging"
	"github.com/metcalfc/rsvp/internal/state"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type options struct {
	speedMS     int
	fresh       bool
	configPath  string
	debug       bool
	showVersion bool
	args        []string
}

// parseFlags reads the command line shared by both front ends.
func parseFlags(fs *flag.FlagSet, argv []string) (options, error) {
	var o options
	var showVersionLong bool
	fs.IntVar(&o.speedMS, "s", 0, "Milliseconds per word, 200-2000 (default: saved speed)")
	fs.BoolVar(&o.fresh, "fresh", false, "Ignore saved reading positions")
	fs.StringVar(&o.configPath, "config", "", "Path to config.yaml")
	fs.BoolVar(&o.debug, "debug", false, "Write debug entries to the log file")
	fs.BoolVar(&o.showVersion, "v", false, "Show version information")
	fs.BoolVar(&showVersionLong, "version", false, "Show version information")
	if err := fs.Parse(argv); err != nil {
		return o, err
	}
	o.showVersion = o.showVersion || showVersionLong
	o.args = fs.Args()
	return o, nil
}

// app holds the collaborators shared by the terminal and desktop hosts.
type app struct {
	paths   config.Paths
	config  *config.Store
	logger  *zap.Logger
	history *state.History
	texts   *cache.TextCache
	engine  *engine.Engine
	palette palette
}

func setup(o options) (*app, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, err
	}
	if err := paths.Ensure(); err != nil {
		return nil, err
	}

	logger, err := logging.New(paths.LogFile(), o.debug)
	if err != nil {
		return nil, err
	}

	cfgPath := o.configPath
	if cfgPath == "" {
		cfgPath = paths.ConfigFile()
	}
	store, err := config.Open(cfgPath)
	if err != nil {
		logger.Error("config unusable", zap.String("path", cfgPath), zap.Error(err))
		return nil, err
	}
	cfg := store.Config()

	pal, err := parseTheme(cfg.Theme)
	if err != nil {
		logger.Warn("invalid theme, using defaults", zap.Error(err))
		pal, _ = parseTheme(config.DefaultTheme())
	}

	backend, err := openBackend(paths, cfg.Cache.Backend)
	if err != nil {
		logger.Error("text cache unavailable", zap.String("backend", cfg.Cache.Backend), zap.Error(err))
		return nil, err
	}
	texts := cache.New(backend, extract.New(logger.Named("extract")), logger.Named("cache"))

	history := state.NewHistory(cfg.History, store.SaveHistory)

	speed := cfg.SpeedMS
	if o.speedMS > 0 {
		speed = o.speedMS
	}
	eng := engine.New(engine.Options{
		SpeedMS: speed,
		Loader:  texts,
		History: history,
		Speed:   store,
		Logger:  logger.Named("engine"),
		Fresh:   o.fresh,
	})

	logger.Info("started",
		zap.String("version", version),
		zap.String("config", cfgPath),
		zap.String("backend", cfg.Cache.Backend),
		zap.Int("speed_ms", eng.SpeedMS()))

	return &app{
		paths:   paths,
		config:  store,
		logger:  logger,
		history: history,
		texts:   texts,
		engine:  eng,
		palette: pal,
	}, nil
}

func openBackend(paths config.Paths, backend string) (cache.Store, error) {
	if backend == config.BackendBolt {
		return cache.OpenBoltStore(paths.BoltFile())
	}
	return cache.NewDirStore(paths.TextsDir()), nil
}

// Close saves the reading position and releases the cache.
func (a *app) Close() {
	a.engine.Close()
	if err := a.engine.SavePosition(); err != nil {
		a.logger.Warn("position not saved on exit", zap.Error(err))
	}
	if err := a.texts.Close(); err != nil {
		a.logger.Warn("text cache close failed", zap.Error(err))
	}
	a.logger.Sync()
}

// readDocument returns the document named by args, or piped stdin. It returns
// nil when neither is given so the host can show its file picker.
func readDocument(args []string, stdin *os.File) (*extract.RawDocument, error) {
	if len(args) > 0 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read file '%s': %w", args[0], err)
		}
		return &extract.RawDocument{Bytes: data, Filename: filepath.Base(args[0])}, nil
	}

	stat, err := stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return nil, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("error reading stdin: %w", err)
	}
	return &extract.RawDocument{Bytes: data, Filename: "stdin.txt"}, nil
}

// clipboardDocument wraps the clipboard text as a plain text document named
// after its content, so repeated pastes of one text share a history entry.
func clipboardDocument() (extract.RawDocument, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return extract.RawDocument{}, fmt.Errorf("failed to read clipboard: %w", err)
	}
	return pastedDocument(text), nil
}

func pastedDocument(text string) extract.RawDocument {
	sum := sha256.Sum256([]byte(text))
	return extract.RawDocument{
		Bytes:    []byte(text),
		Filename: "clipboard-" + hex.EncodeToString(sum[:4]) + ".txt",
	}
}

// describe turns an error into a status line message.
func describe(err error) string {
	var xerr *extract.ExtractionError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return fmt.Sprintf("Unsupported format. Supported: %v", extract.Formats())
	case errors.Is(err, extract.ErrEmptyDocument):
		return "The document has no text to read."
	case errors.As(err, &xerr):
		return fmt.Sprintf("Could not read %s document: %s", xerr.Format, xerr.Reason())
	case errors.Is(err, engine.ErrHistoryPersist):
		return "Reading position could not be saved."
	case errors.Is(err, engine.ErrSpeedPersist):
		return "Speed could not be saved."
	case errors.Is(err, cache.ErrCacheWrite):
		return "Text loaded but could not be cached."
	}
	return err.Error()
}

// palette is the parsed color theme.
type palette struct {
	Background colorful.Color
	Text       colorful.Color
	Primary    colorful.Color
	Success    colorful.Color
	Warning    colorful.Color
	Danger     colorful.Color
}

func parseTheme(t config.Theme) (palette, error) {
	var p palette
	for _, c := range []struct {
		hex string
		dst *colorful.Color
	}{
		{t.Background, &p.Background},
		{t.Text, &p.Text},
		{t.Primary, &p.Primary},
		{t.Success, &p.Success},
		{t.Warning, &p.Warning},
		{t.Danger, &p.Danger},
	} {
		col, err := colorful.Hex(c.hex)
		if err != nil {
			return palette{}, fmt.Errorf("theme color %q: %w", c.hex, err)
		}
		*c.dst = col
	}
	return p, nil
}

// fade blends fg toward bg as opacity drops from 1 to 0.
func fade(fg, bg colorful.Color, opacity float64) colorful.Color {
	opacity = max(0, min(1, opacity))
	return bg.BlendRgb(fg, opacity).Clamped()
}
