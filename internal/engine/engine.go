// Package engine drives timed word-by-word playback of a loaded document.
//
// The engine is not safe for concurrent use. Hosts call every method from a
// single control goroutine and run LoadRequest.Run in the background.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/metcalfc/rsvp/internal/cache"
	"github.com/metcalfc/rsvp/internal/extract"
	"github.com/metcalfc/rsvp/internal/reader"
)

// Word interval bounds, in milliseconds.
const (
	MinSpeedMS  = 200
	MaxSpeedMS  = 2000
	SpeedStepMS = 100
)

var (
	// ErrHistoryPersist wraps a failure to save the reading position.
	ErrHistoryPersist = errors.New("failed to save reading position")
	// ErrSpeedPersist wraps a failure to save the speed setting.
	ErrSpeedPersist = errors.New("failed to save speed")
	// ErrStaleLoad is returned by ApplyLoad for a superseded request.
	ErrStaleLoad = errors.New("load superseded")

	errNoLoader = errors.New("no loader configured")
)

// Status is the playback state.
type Status int

const (
	Idle Status = iota
	Paused
	Playing
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// History stores reading positions by title.
type History interface {
	GetPosition(title string) int
	SetPosition(title string, index int) error
}

// SpeedSaver persists the word interval.
type SpeedSaver interface {
	SaveSpeed(ms int) error
}

// Options configures an Engine. All collaborators are optional.
type Options struct {
	SpeedMS int
	Loader  Loader
	History History
	Speed   SpeedSaver
	Logger  *zap.Logger
	// Fresh ignores saved positions when loading.
	Fresh bool
}

// session is a loaded document. index is always within words.
type session struct {
	title     string
	words     []string
	sentences []int
	index     int
}

// Engine is the playback state machine.
type Engine struct {
	speedMS int
	sess    *session
	paused  bool
	fade    animation

	gen     uint64
	pending *LoadRequest

	loader  Loader
	history History
	speed   SpeedSaver
	logger  *zap.Logger
	fresh   bool
}

// New creates an idle Engine.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		speedMS: ClampSpeed(opts.SpeedMS),
		paused:  true,
		fade:    shown(),
		loader:  opts.Loader,
		history: opts.History,
		speed:   opts.Speed,
		logger:  logger,
		fresh:   opts.Fresh,
	}
}

// ClampSpeed rounds ms to a multiple of SpeedStepMS within [MinSpeedMS, MaxSpeedMS].
// Non-positive values select MaxSpeedMS.
func ClampSpeed(ms int) int {
	if ms <= 0 {
		return MaxSpeedMS
	}
	ms = (ms + SpeedStepMS/2) / SpeedStepMS * SpeedStepMS
	return max(MinSpeedMS, min(MaxSpeedMS, ms))
}

// BeginLoad starts loading doc, superseding any load in flight.
func (e *Engine) BeginLoad(doc extract.RawDocument) *LoadRequest {
	if e.pending != nil {
		e.pending.cancel()
	}
	e.gen++

	var positions cache.Positions
	if !e.fresh && e.history != nil {
		positions = e.history
	}
	ctx, cancel := context.WithCancel(context.Background())
	req := &LoadRequest{
		gen:     e.gen,
		doc:     doc,
		ctx:     ctx,
		cancel:  cancel,
		loader:  e.loader,
		history: positions,
	}
	e.pending = req
	e.logger.Debug("load started", zap.String("filename", doc.Filename), zap.Uint64("generation", req.gen))
	return req
}

// ApplyLoad installs the result of the most recent load. Results of superseded
// requests return ErrStaleLoad. On failure the current document is kept and
// the load error is returned.
func (e *Engine) ApplyLoad(res LoadResult) error {
	if e.pending == nil || res.gen != e.gen {
		e.logger.Debug("stale load dropped", zap.String("filename", res.Filename), zap.Uint64("generation", res.gen))
		return ErrStaleLoad
	}
	e.pending = nil

	if res.Err != nil {
		e.logger.Warn("load failed", zap.String("filename", res.Filename), zap.Error(res.Err))
		return res.Err
	}

	words := reader.Tokenize(res.Loaded.Text)
	if len(words) == 0 {
		return fmt.Errorf("%w: %q", extract.ErrEmptyDocument, res.Filename)
	}
	index := max(0, min(res.Loaded.Resume, len(words)-1))

	e.sess = &session{
		title:     res.Loaded.Title,
		words:     words,
		sentences: reader.SentenceStarts(words),
		index:     index,
	}
	e.paused = true
	e.fade = shown()

	e.logger.Info("document loaded",
		zap.String("title", res.Loaded.Title),
		zap.String("format", res.Loaded.Format),
		zap.Int("words", len(words)),
		zap.Int("index", index),
		zap.Bool("cached", res.Loaded.Cached))
	return nil
}

// TogglePlay flips between playing and paused. Pausing saves the position and
// fades the current word back in. Idle engines ignore it.
func (e *Engine) TogglePlay(now time.Time) error {
	if e.sess == nil {
		return nil
	}
	e.paused = !e.paused
	if !e.paused {
		return nil
	}
	e.fade.goTo(1, now)
	return e.SavePosition()
}

// Tick starts fading out the current word. It is called once per word interval
// and ignored while a fade is in progress or an advance is pending.
func (e *Engine) Tick(now time.Time) {
	if e.Status() != Playing || e.fade.to == 0 || !e.fade.done(now) {
		return
	}
	e.fade.goTo(0, now)
}

// Frame advances to the next word once a fade out started by Tick finishes.
// At the last word playback stops there and the position is saved.
func (e *Engine) Frame(now time.Time) error {
	if e.Status() != Playing || e.fade.to != 0 || !e.fade.done(now) {
		return nil
	}
	e.fade.goTo(1, now)
	if e.sess.index+1 >= len(e.sess.words) {
		e.paused = true
		e.logger.Debug("reached end", zap.String("title", e.sess.title), zap.Int("index", e.sess.index))
		return e.SavePosition()
	}
	e.sess.index++
	return nil
}

// Animating reports whether the opacity is still changing at now.
func (e *Engine) Animating(now time.Time) bool {
	return !e.fade.done(now)
}

// Opacity returns the current word's opacity in [0, 1].
func (e *Engine) Opacity(now time.Time) float64 {
	return e.fade.value(now)
}

// AdjustSpeed changes the word interval by delta milliseconds. The new value is
// kept even when it cannot be saved.
func (e *Engine) AdjustSpeed(delta int) error {
	next := max(MinSpeedMS, min(MaxSpeedMS, e.speedMS+delta))
	if next == e.speedMS {
		return nil
	}
	e.speedMS = next
	if e.speed == nil {
		return nil
	}
	if err := e.speed.SaveSpeed(next); err != nil {
		e.logger.Warn("speed not saved", zap.Int("speed_ms", next), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSpeedPersist, err)
	}
	return nil
}

// ResetIndex returns to the first word.
func (e *Engine) ResetIndex() {
	if e.sess == nil {
		return
	}
	e.sess.index = 0
	e.fade = shown()
}

// JumpToPrevSentence moves to the start of the previous sentence.
func (e *Engine) JumpToPrevSentence() {
	if e.sess == nil {
		return
	}
	s := e.sess
	for i := len(s.sentences) - 1; i >= 0; i-- {
		if s.sentences[i] < s.index {
			e.jump(s.sentences[i])
			return
		}
	}
	e.jump(0)
}

// JumpToNextSentence moves to the start of the next sentence, or the last word.
func (e *Engine) JumpToNextSentence() {
	if e.sess == nil {
		return
	}
	s := e.sess
	for _, start := range s.sentences {
		if start > s.index {
			e.jump(start)
			return
		}
	}
	e.jump(len(s.words) - 1)
}

func (e *Engine) jump(index int) {
	e.sess.index = index
	e.fade = shown()
}

// SavePosition writes the current index to the history.
func (e *Engine) SavePosition() error {
	if e.sess == nil || e.history == nil {
		return nil
	}
	if err := e.history.SetPosition(e.sess.title, e.sess.index); err != nil {
		e.logger.Warn("position not saved",
			zap.String("title", e.sess.title),
			zap.Int("index", e.sess.index),
			zap.Error(err))
		return fmt.Errorf("%w: %v", ErrHistoryPersist, err)
	}
	return nil
}

// Close cancels any load in flight.
func (e *Engine) Close() {
	if e.pending != nil {
		e.pending.cancel()
		e.pending = nil
	}
}

// Status reports the playback state.
func (e *Engine) Status() Status {
	switch {
	case e.sess == nil:
		return Idle
	case e.paused:
		return Paused
	}
	return Playing
}

// Paused reports whether playback is paused.
func (e *Engine) Paused() bool { return e.paused }

// Loading reports whether a document load is in flight.
func (e *Engine) Loading() bool { return e.pending != nil }

// SpeedMS returns the word interval in milliseconds.
func (e *Engine) SpeedMS() int { return e.speedMS }

// SpeedDelay returns the word interval as a duration.
func (e *Engine) SpeedDelay() time.Duration {
	return time.Duration(e.speedMS) * time.Millisecond
}

// WPM returns the words per minute for the current speed.
func (e *Engine) WPM() int {
	return 60000 / e.speedMS
}

// Title returns the loaded document's title, or "".
func (e *Engine) Title() string {
	if e.sess == nil {
		return ""
	}
	return e.sess.title
}

// Word returns the current word, or "".
func (e *Engine) Word() string {
	if e.sess == nil {
		return ""
	}
	return e.sess.words[e.sess.index]
}

// CurrentWord returns the current word split around its focus character.
func (e *Engine) CurrentWord() (before, focus, after string) {
	return reader.FocusSplit(e.Word())
}

// Progress returns the 1-based position and total word count, or 0, 0 when idle.
func (e *Engine) Progress() (current, total int) {
	if e.sess == nil {
		return 0, 0
	}
	return e.sess.index + 1, len(e.sess.words)
}

// AtEnd reports whether the current word is the last one.
func (e *Engine) AtEnd() bool {
	return e.sess != nil && e.sess.index == len(e.sess.words)-1
}
