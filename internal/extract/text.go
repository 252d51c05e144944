package extract

import (
	"context"
	"strings"
)

// TextFormat implements Format for plain text, CSV and Markdown. Bytes are decoded as
// UTF-8 and no other transformation is applied.
type TextFormat struct{}

func init() {
	Register(&TextFormat{})
}

func (f *TextFormat) Name() string         { return "Text" }
func (f *TextFormat) Extensions() []string { return []string{"txt", "csv", "md"} }

func (f *TextFormat) Extract(_ context.Context, data []byte) (string, error) {
	return decodeLossy(data), nil
}

func decodeLossy(data []byte) string {
	return strings.ToValidUTF8(string(data), "\uFFFD")
}
