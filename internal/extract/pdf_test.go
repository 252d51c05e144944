package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

const (
	helvetica = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>"

	// Maps glyph 1 to H and glyph 2 to i.
	toUnicodeHi = `begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0001> <0048>
<0002> <0069>
endbfchar
endcmap`
)

// pdfBuilder assembles a minimal PDF with a valid cross-reference table.
// Objects 1 and 2 are the catalog and the page tree.
type pdfBuilder struct {
	objs  []string
	pages []int
	// badStartxref points startxref at the catalog instead of the xref table.
	badStartxref bool
}

func newPDF() *pdfBuilder {
	return &pdfBuilder{objs: []string{"", ""}}
}

func (b *pdfBuilder) add(body string) int {
	b.objs = append(b.objs, body)
	return len(b.objs)
}

func (b *pdfBuilder) stream(dict, data string) int {
	return b.add(fmt.Sprintf("<< %s/Length %d >>\nstream\n%s\nendstream", dict, len(data), data))
}

// type0Font adds an Identity-H composite font whose text is only
// recoverable through its ToUnicode map.
func (b *pdfBuilder) type0Font(cmap string) int {
	desc := b.add("<< /Type /Font /Subtype /CIDFontType2 /BaseFont /Test " +
		"/CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> >>")
	tu := b.stream("", cmap)
	return b.add(fmt.Sprintf("<< /Type /Font /Subtype /Type0 /BaseFont /Test /Encoding /Identity-H "+
		"/DescendantFonts [%d 0 R] /ToUnicode %d 0 R >>", desc, tu))
}

// page adds a page that shows content with font bound to /F1.
func (b *pdfBuilder) page(font int, content string) {
	c := b.stream("", content)
	p := b.add(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", font, c))
	b.pages = append(b.pages, p)
}

func (b *pdfBuilder) bytes() []byte {
	kids := make([]string, len(b.pages))
	for i, p := range b.pages {
		kids[i] = fmt.Sprintf("%d 0 R", p)
	}
	b.objs[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	b.objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 612 792] >>", strings.Join(kids, " "), len(b.pages))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(b.objs))
	for i, body := range b.objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(b.objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	start := xref
	if b.badStartxref {
		start = offsets[0]
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(b.objs)+1, start)
	return buf.Bytes()
}

func textPage(s string) string {
	return "BT\n/F1 12 Tf\n72 712 Td\n" + s + " Tj\nET"
}

func singlePage(t *testing.T, content string) string {
	t.Helper()
	b := newPDF()
	b.page(b.add(helvetica), content)
	got, err := (&PDFFormat{}).Extract(context.Background(), b.bytes())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	return got
}

func TestPDFExtractPagesInOrder(t *testing.T) {
	b := newPDF()
	font := b.add(helvetica)
	b.page(font, textPage("(Hello world)"))
	b.page(font, textPage("(Page two)"))

	got, err := (&PDFFormat{}).Extract(context.Background(), b.bytes())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	first := strings.Index(got, "Hello world")
	second := strings.Index(got, "Page two")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("Extract = %q, want page one then page two", got)
	}

	want := singlePage(t, textPage("(Hello world)")) + singlePage(t, textPage("(Page two)"))
	if got != want {
		t.Errorf("Extract = %q, want pages joined without separator %q", got, want)
	}
}

func TestPDFExtractFontEncodings(t *testing.T) {
	tests := []struct {
		name    string
		font    func(b *pdfBuilder) int
		content string
		want    string
	}{
		{
			name:    "winansi high bytes",
			font:    func(b *pdfBuilder) int { return b.add(helvetica) },
			content: textPage(`(\223Quoted\224 caf\351)`),
			want:    "“Quoted” café",
		},
		{
			name:    "type0 with tounicode",
			font:    func(b *pdfBuilder) int { return b.type0Font(toUnicodeHi) },
			content: textPage("<00010002>"),
			want:    "Hi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newPDF()
			b.page(tt.font(b), tt.content)

			got, err := New(nil).Extract(context.Background(), RawDocument{Bytes: b.bytes(), Filename: "enc.pdf"})
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !strings.Contains(got.Text, tt.want) {
				t.Errorf("Text = %q, want it to contain %q", got.Text, tt.want)
			}
			if strings.ContainsRune(got.Text, 0) {
				t.Errorf("Text = %q contains raw glyph ids", got.Text)
			}
		})
	}
}

func TestPDFExtractRepairsXref(t *testing.T) {
	b := newPDF()
	b.page(b.add(helvetica), textPage("(Recovered text)"))
	b.badStartxref = true
	data := b.bytes()

	if _, err := pageText(context.Background(), data); err == nil {
		t.Fatal("pageText succeeded on a broken startxref")
	}
	got, err := (&PDFFormat{}).Extract(context.Background(), data)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "Recovered text") {
		t.Errorf("Extract = %q, want Recovered text", got)
	}
}

func TestPDFExtractCancelled(t *testing.T) {
	b := newPDF()
	b.page(b.add(helvetica), textPage("(Hello)"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&PDFFormat{}).Extract(ctx, b.bytes()); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPDFFormat(t *testing.T) {
	f := &PDFFormat{}
	if f.Name() != "PDF" {
		t.Errorf("Name() = %q, want PDF", f.Name())
	}
	if exts := f.Extensions(); len(exts) != 1 || exts[0] != "pdf" {
		t.Errorf("Extensions() = %v, want [pdf]", exts)
	}
}
