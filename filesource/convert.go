package filesource

import (
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/eringen/spacetraveling/richtext"
)

var md = goldmark.New()

// convertSections parses a Markdown body and groups its blocks into sections.
// Content before the first section heading goes into a section with an
// empty heading.
func convertSections(src []byte) []section {
	doc := md.Parser().Parse(text.NewReader(src))
	sections := []section{}
	cur := -1
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok && h.Level <= 2 {
			sections = append(sections, section{Heading: plainText(h, src), Body: []richtext.Block{}})
			cur = len(sections) - 1
			continue
		}
		if cur < 0 {
			sections = append(sections, section{Body: []richtext.Block{}})
			cur = 0
		}
		sections[cur].Body = append(sections[cur].Body, convertBlock(n, src)...)
	}
	return sections
}

func convertBlock(n ast.Node, src []byte) []richtext.Block {
	switch node := n.(type) {
	case *ast.Heading:
		b := inlineBlock(node, src)
		b.Type = "heading" + strconv.Itoa(min(node.Level, 6))
		return []richtext.Block{b}
	case *ast.Paragraph:
		if img, ok := soleImage(node); ok {
			return []richtext.Block{{
				Type: richtext.Image,
				URL:  string(img.Destination),
				Alt:  plainText(img, src),
			}}
		}
		b := inlineBlock(node, src)
		b.Type = richtext.Paragraph
		return []richtext.Block{b}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var sb strings.Builder
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(src))
		}
		return []richtext.Block{{Type: richtext.Preformatted, Text: strings.TrimSuffix(sb.String(), "\n")}}
	case *ast.List:
		typ := richtext.ListItem
		if node.IsOrdered() {
			typ = richtext.OListItem
		}
		var out []richtext.Block
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			b := richtext.Block{Type: typ}
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				switch c.(type) {
				case *ast.Paragraph, *ast.TextBlock:
					if b.Text != "" {
						appendInline(&b, c, src, "\n")
						continue
					}
					ib := inlineBlock(c, src)
					b.Text, b.Spans = ib.Text, ib.Spans
				}
			}
			out = append(out, b)
		}
		return out
	case *ast.Blockquote:
		var out []richtext.Block
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			out = append(out, convertBlock(c, src)...)
		}
		return out
	}
	// thematic breaks and raw HTML have no rich-text equivalent
	return nil
}

func soleImage(p *ast.Paragraph) (*ast.Image, bool) {
	if p.ChildCount() != 1 {
		return nil, false
	}
	img, ok := p.FirstChild().(*ast.Image)
	return img, ok
}

// inlineBlock flattens the inline children of n into text plus spans.
func inlineBlock(n ast.Node, src []byte) richtext.Block {
	var b richtext.Block
	appendInline(&b, n, src, "")
	return b
}

func appendInline(b *richtext.Block, n ast.Node, src []byte, sep string) {
	w := &inlineWriter{src: src}
	w.sb.WriteString(b.Text)
	w.pos = richtext.TextLen(b.Text)
	w.spans = b.Spans
	w.write(sep)
	w.walk(n)
	b.Text = w.sb.String()
	b.Spans = w.spans
}

type inlineWriter struct {
	src   []byte
	sb    strings.Builder
	pos   int
	spans []richtext.Span
}

func (w *inlineWriter) write(s string) {
	w.sb.WriteString(s)
	w.pos += richtext.TextLen(s)
}

func (w *inlineWriter) span(typ string, data *richtext.SpanData, n ast.Node) {
	start := w.pos
	w.walk(n)
	if w.pos > start {
		w.spans = append(w.spans, richtext.Span{Start: start, End: w.pos, Type: typ, Data: data})
	}
}

func (w *inlineWriter) walk(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			w.write(string(node.Segment.Value(w.src)))
			switch {
			case node.HardLineBreak():
				w.write("\n")
			case node.SoftLineBreak():
				w.write(" ")
			}
		case *ast.String:
			w.write(string(node.Value))
		case *ast.Emphasis:
			typ := richtext.Em
			if node.Level >= 2 {
				typ = richtext.Strong
			}
			w.span(typ, nil, node)
		case *ast.Link:
			w.span(richtext.Hyperlink, &richtext.SpanData{URL: string(node.Destination)}, node)
		case *ast.AutoLink:
			start := w.pos
			w.write(string(node.Label(w.src)))
			w.spans = append(w.spans, richtext.Span{
				Start: start, End: w.pos, Type: richtext.Hyperlink,
				Data: &richtext.SpanData{URL: string(node.URL(w.src))},
			})
		case *ast.CodeSpan:
			w.span(richtext.Label, &richtext.SpanData{Label: "code"}, node)
		case *ast.Image:
			// inline images keep only their alt text
			w.walk(node)
		default:
			w.walk(c)
		}
	}
}

// plainText concatenates the text below n.
func plainText(n ast.Node, src []byte) string {
	w := &inlineWriter{src: src}
	w.walk(n)
	return strings.TrimSpace(w.sb.String())
}
