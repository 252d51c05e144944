package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{"epub"} }

// Extract returns the text of every spine document in reading order, one
// document per paragraph block.
func (f *EPUBFormat) Extract(ctx context.Context, data []byte) (string, error) {
	r, err := epub.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open epub: %w", err)
	}
	if len(r.Rootfiles) == 0 {
		return "", errors.New("no rootfiles found in epub")
	}

	book := r.Rootfiles[0]
	var out strings.Builder

	for _, ref := range book.Spine.Itemrefs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if ref.Item == nil {
			continue
		}
		text, err := spineText(ref.Item)
		if err != nil {
			return "", fmt.Errorf("spine item %s: %w", ref.Item.HREF, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(text)
	}

	return out.String(), nil
}

func spineText(item *epub.Item) (string, error) {
	rc, err := item.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return htmlToText(data, htmlWidth)
}
