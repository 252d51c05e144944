// Package cache stores extracted document text so a document is parsed once.
package cache

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/metcalfc/rsvp/internal/extract"
)

// Extractor converts raw documents into text.
type Extractor interface {
	Extract(ctx context.Context, doc extract.RawDocument) (extract.ExtractedText, error)
}

// Positions reports the saved reading position for a title.
type Positions interface {
	GetPosition(title string) int
}

// Loaded is the result of LoadOrExtract.
type Loaded struct {
	Title  string
	Format string
	Text   string
	// Resume is the saved word index for Title, or 0.
	Resume int
	// Cached is true when the text came from the store.
	Cached bool
	// Warning is set when the text loaded but could not be written through.
	Warning error
}

// TextCache is a write-through cache of extracted texts over a Store.
type TextCache struct {
	store     Store
	extractor Extractor
	logger    *zap.Logger
}

// New creates a TextCache. A nil logger disables logging.
func New(store Store, extractor Extractor, logger *zap.Logger) *TextCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextCache{store: store, extractor: extractor, logger: logger}
}

// KeyFor returns the cache key for filename, or ErrUnsupportedFormat.
func KeyFor(filename string) (Key, error) {
	title, ext := extract.SplitName(filename)
	if _, ok := extract.Lookup(ext); !ok {
		return Key{}, fmt.Errorf("%w: %q", extract.ErrUnsupportedFormat, filename)
	}
	return Key{Title: title, Format: ext}, nil
}

// Lookup returns the stored text for key. Read failures count as a miss.
func (c *TextCache) Lookup(key Key) (string, bool) {
	text, err := c.store.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("text cache read failed",
				zap.String("title", key.Title),
				zap.String("format", key.Format),
				zap.Error(err))
		}
		return "", false
	}
	return text, true
}

// Store writes text under key. An existing entry is kept.
func (c *TextCache) Store(key Key, text string) error {
	if err := c.store.Put(key, text); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCacheWrite, key, err)
	}
	return nil
}

// LoadOrExtract returns the text of doc, extracting it only when it is not cached.
// history may be nil.
func (c *TextCache) LoadOrExtract(ctx context.Context, doc extract.RawDocument, history Positions) (Loaded, error) {
	key, err := KeyFor(doc.Filename)
	if err != nil {
		return Loaded{}, err
	}

	out := Loaded{Title: key.Title, Format: key.Format}
	if history != nil {
		out.Resume = history.GetPosition(key.Title)
	}

	if text, ok := c.Lookup(key); ok {
		c.logger.Debug("text cache hit", zap.String("title", key.Title), zap.String("format", key.Format))
		out.Text = text
		out.Cached = true
		return out, nil
	}

	extracted, err := c.extractor.Extract(ctx, doc)
	if err != nil {
		return Loaded{}, err
	}
	out.Text = extracted.Text

	if err := c.Store(key, extracted.Text); err != nil {
		c.logger.Warn("text cache write failed",
			zap.String("title", key.Title),
			zap.String("format", key.Format),
			zap.Error(err))
		out.Warning = err
	}
	return out, nil
}

// Close releases the underlying store.
func (c *TextCache) Close() error {
	return c.store.Close()
}
