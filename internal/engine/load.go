package engine

import (
	"context"

	"github.com/metcalfc/rsvp/internal/cache"
	"github.com/metcalfc/rsvp/internal/extract"
)

// Loader produces the text of a document, typically *cache.TextCache.
type Loader interface {
	LoadOrExtract(ctx context.Context, doc extract.RawDocument, history cache.Positions) (cache.Loaded, error)
}

// LoadRequest is one document load started by BeginLoad. Run may be called on
// any goroutine; its result must go back through Engine.ApplyLoad.
type LoadRequest struct {
	gen     uint64
	doc     extract.RawDocument
	ctx     context.Context
	cancel  context.CancelFunc
	loader  Loader
	history cache.Positions
}

// Filename returns the name of the document being loaded.
func (r *LoadRequest) Filename() string { return r.doc.Filename }

// Run extracts or fetches the document text. It blocks until done or superseded.
func (r *LoadRequest) Run() LoadResult {
	defer r.cancel()
	res := LoadResult{gen: r.gen, Filename: r.doc.Filename}
	if r.loader == nil {
		res.Err = errNoLoader
		return res
	}
	res.Loaded, res.Err = r.loader.LoadOrExtract(r.ctx, r.doc, r.history)
	return res
}

// LoadResult is the outcome of LoadRequest.Run.
type LoadResult struct {
	gen      uint64
	Filename string
	Loaded   cache.Loaded
	Err      error
}

// Warning returns a non-fatal problem encountered while loading, such as a
// failed cache write.
func (r LoadResult) Warning() error { return r.Loaded.Warning }
