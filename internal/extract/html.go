package extract

import (
	"bytes"
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// htmlWidth is the column width HTML paragraphs are reflowed to.
const htmlWidth = 80

// HTMLFormat implements Format for HTML documents.
type HTMLFormat struct{}

func init() {
	Register(&HTMLFormat{})
}

func (f *HTMLFormat) Name() string         { return "HTML" }
func (f *HTMLFormat) Extensions() []string { return []string{"html"} }

func (f *HTMLFormat) Extract(_ context.Context, data []byte) (string, error) {
	return htmlToText(data, htmlWidth)
}

// Block elements end the current paragraph. The value is the separator written
// before the next paragraph.
var htmlBlocks = map[atom.Atom]string{
	atom.P:          "\n\n",
	atom.H1:         "\n\n",
	atom.H2:         "\n\n",
	atom.H3:         "\n\n",
	atom.H4:         "\n\n",
	atom.H5:         "\n\n",
	atom.H6:         "\n\n",
	atom.Blockquote: "\n\n",
	atom.Pre:        "\n\n",
	atom.Table:      "\n\n",
	atom.Ul:         "\n\n",
	atom.Ol:         "\n\n",
	atom.Dl:         "\n\n",
	atom.Section:    "\n\n",
	atom.Article:    "\n\n",
	atom.Aside:      "\n\n",
	atom.Figure:     "\n\n",
	atom.Header:     "\n\n",
	atom.Footer:     "\n\n",
	atom.Nav:        "\n\n",
	atom.Main:       "\n\n",
	atom.Div:        "\n",
	atom.Li:         "\n",
	atom.Tr:         "\n",
	atom.Dt:         "\n",
	atom.Dd:         "\n",
	atom.Figcaption: "\n",
	atom.Caption:    "\n",
}

func htmlToText(data []byte, width int) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	w := &htmlText{width: width}
	w.walk(doc)
	w.flush()
	return w.out.String(), nil
}

// htmlText accumulates inline text into paragraphs and writes them wrapped.
type htmlText struct {
	out     strings.Builder
	line    strings.Builder
	sep     string
	pending bool // whitespace seen since the last written rune
	pre     int
	width   int
}

func (w *htmlText) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Head, atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Iframe:
			return
		case atom.Br:
			w.breakLine("\n")
			return
		case atom.Hr:
			w.breakLine("\n\n")
			return
		case atom.Td, atom.Th:
			w.pending = true
		}
	}

	sep, block := "", false
	if n.Type == html.ElementNode {
		sep, block = htmlBlocks[n.DataAtom]
	}
	if block {
		w.breakLine(sep)
	}
	if n.DataAtom == atom.Pre {
		w.pre++
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if n.DataAtom == atom.Pre {
		w.flush()
		w.pre--
	}
	if block {
		w.breakLine(sep)
	}
}

func (w *htmlText) text(s string) {
	if w.pre > 0 {
		w.line.WriteString(s)
		return
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			w.pending = true
			continue
		}
		if w.pending && w.line.Len() > 0 {
			w.line.WriteByte(' ')
		}
		w.pending = false
		w.line.WriteRune(r)
	}
}

// breakLine ends the current paragraph and makes sure at least sep separates it
// from the next one.
func (w *htmlText) breakLine(sep string) {
	w.flush()
	if w.out.Len() > 0 && len(sep) > len(w.sep) {
		w.sep = sep
	}
}

func (w *htmlText) flush() {
	para := w.line.String()
	w.line.Reset()
	w.pending = false
	if w.pre == 0 {
		para = strings.TrimSpace(para)
	}
	if para == "" {
		return
	}
	if w.out.Len() > 0 {
		w.out.WriteString(w.sep)
	}
	if w.pre > 0 {
		w.out.WriteString(para)
	} else {
		w.out.WriteString(wrap(para, w.width))
	}
	w.sep = ""
}

func wrap(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	lines := strings.Split(ansi.Wordwrap(s, width, ""), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}
