package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFFormat implements Format for PDF documents. Text is decoded through each
// page's font encodings and ToUnicode maps by ledongthuc/pdf; files it cannot
// read are rewritten by pdfcpu, which rebuilds damaged cross-reference tables,
// and read again.
type PDFFormat struct{}

func init() { Register(&PDFFormat{}) }

func (f *PDFFormat) Name() string         { return "PDF" }
func (f *PDFFormat) Extensions() []string { return []string{"pdf"} }

// Extract returns the text of every page in page order. Pages are
// concatenated without a separator.
func (f *PDFFormat) Extract(ctx context.Context, data []byte) (string, error) {
	text, err := pageText(ctx, data)
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return "", cerr
	}

	fixed, rerr := repairPDF(data)
	if rerr != nil {
		if err != nil {
			return "", fmt.Errorf("%w (repair: %v)", err, rerr)
		}
		// Readable but textless, e.g. a scanned document.
		return text, nil
	}
	return pageText(ctx, fixed)
}

// pageText reads every page with ledongthuc/pdf. The library panics on some
// malformed input, so panics are returned as errors.
func pageText(ctx context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf read: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}

	var out strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		out.WriteString(s)
	}
	return out.String(), nil
}

// repairPDF round-trips data through pdfcpu. Reading rebuilds a corrupt xref
// section from the objects in the file; writing emits a clean one.
func repairPDF(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	pctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu read: %w", err)
	}
	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, fmt.Errorf("pdfcpu write: %w", err)
	}
	return buf.Bytes(), nil
}
