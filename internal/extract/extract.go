// Package extract turns raw document bytes into plain text for reading.
//
// Supported formats, dispatched on the literal extension after the last dot:
//   - txt, csv, md: UTF-8 with invalid sequences replaced
//   - html: block-aware text reflowed to 80 columns
//   - pdf: page text in page order
//   - epub: spine documents in reading order
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrUnsupportedFormat is returned for extensions with no registered format.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEmptyDocument is returned when extraction succeeds but yields no text.
	ErrEmptyDocument = errors.New("document has no text")
)

// ExtractionError reports a parser-level failure for a document.
type ExtractionError struct {
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Reason returns the parser's description of the failure.
func (e *ExtractionError) Reason() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// RawDocument is a document as delivered by a file picker or another source.
type RawDocument struct {
	Bytes    []byte
	Filename string
}

// ExtractedText is the plain text of a document and the keys it is stored under.
type ExtractedText struct {
	Title  string
	Format string
	Text   string
}

// Extractor dispatches documents to the registered formats.
type Extractor struct {
	logger *zap.Logger
}

// New creates an Extractor. A nil logger disables logging.
func New(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract converts doc into plain text.
func (x *Extractor) Extract(ctx context.Context, doc RawDocument) (ExtractedText, error) {
	title, ext := SplitName(doc.Filename)
	f, ok := Lookup(ext)
	if !ok {
		return ExtractedText{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.Filename)
	}

	x.logger.Debug("extracting document",
		zap.String("title", title),
		zap.String("format", f.Name()),
		zap.Int("bytes", len(doc.Bytes)))

	text, err := run(ctx, f, doc.Bytes)
	if err != nil {
		if ctx.Err() != nil {
			return ExtractedText{}, ctx.Err()
		}
		return ExtractedText{}, &ExtractionError{Format: ext, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return ExtractedText{}, fmt.Errorf("%w: %q", ErrEmptyDocument, doc.Filename)
	}
	return ExtractedText{Title: title, Format: ext, Text: text}, nil
}

// run calls f.Extract and converts parser panics into errors.
func run(ctx context.Context, f Format, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return f.Extract(ctx, data)
}
