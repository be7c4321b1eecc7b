package richtext

import (
	"html"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
)

// AsHTML serializes blocks to HTML. Consecutive list items are grouped into
// a single <ul> or <ol>. Text is escaped; embed HTML is copied verbatim, so
// callers rendering untrusted content should pass the result through Sanitize.
func AsHTML(blocks []Block) string {
	var b strings.Builder
	openList := ""
	closeList := func() {
		if openList != "" {
			b.WriteString("</" + openList + ">")
			openList = ""
		}
	}
	for _, blk := range blocks {
		switch blk.Type {
		case ListItem, OListItem:
			want := "ul"
			if blk.Type == OListItem {
				want = "ol"
			}
			if openList != want {
				closeList()
				b.WriteString("<" + want + ">")
				openList = want
			}
			b.WriteString("<li>")
			b.WriteString(inline(blk.Text, blk.Spans))
			b.WriteString("</li>")
			continue
		}
		closeList()
		switch blk.Type {
		case Heading1, Heading2, Heading3, Heading4, Heading5, Heading6:
			tag := "h" + strings.TrimPrefix(blk.Type, "heading")
			b.WriteString("<" + tag + ">")
			b.WriteString(inline(blk.Text, blk.Spans))
			b.WriteString("</" + tag + ">")
		case Preformatted:
			b.WriteString("<pre>")
			b.WriteString(inlineRaw(blk.Text, blk.Spans))
			b.WriteString("</pre>")
		case Image:
			writeImage(&b, blk)
		case Embed:
			writeEmbed(&b, blk)
		default:
			b.WriteString("<p>")
			b.WriteString(inline(blk.Text, blk.Spans))
			b.WriteString("</p>")
		}
	}
	closeList()
	return b.String()
}

func writeImage(b *strings.Builder, blk Block) {
	if blk.URL == "" {
		return
	}
	b.WriteString(`<p class="block-img"><img src="`)
	b.WriteString(html.EscapeString(blk.URL))
	b.WriteString(`" alt="`)
	b.WriteString(html.EscapeString(blk.Alt))
	b.WriteString(`"`)
	if d := blk.Dimensions; d != nil && d.Width > 0 && d.Height > 0 {
		b.WriteString(` width="` + strconv.Itoa(d.Width) + `" height="` + strconv.Itoa(d.Height) + `"`)
	}
	b.WriteString(` /></p>`)
}

func writeEmbed(b *strings.Builder, blk Block) {
	if blk.Oembed == nil {
		return
	}
	o := blk.Oembed
	b.WriteString(`<div data-oembed="`)
	b.WriteString(html.EscapeString(o.EmbedURL))
	b.WriteString(`" data-oembed-type="`)
	b.WriteString(html.EscapeString(o.Type))
	b.WriteString(`" data-oembed-provider="`)
	b.WriteString(html.EscapeString(strings.ToLower(o.ProviderName)))
	b.WriteString(`">`)
	b.WriteString(o.HTML)
	b.WriteString(`</div>`)
}

// inline renders text with spans, turning newlines into <br />.
func inline(text string, spans []Span) string {
	return strings.ReplaceAll(inlineRaw(text, spans), "\n", "<br />")
}

// inlineRaw renders text with spans. Overlapping spans are split so that
// the output is always well nested.
func inlineRaw(text string, spans []Span) string {
	units := utf16.Encode([]rune(text))
	n := len(units)

	valid := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Start < 0 || s.End > n || s.Start >= s.End {
			continue
		}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return html.EscapeString(text)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Start != valid[j].Start {
			return valid[i].Start < valid[j].Start
		}
		return valid[i].End > valid[j].End
	})

	bounds := map[int]struct{}{0: {}, n: {}}
	for _, s := range valid {
		bounds[s.Start] = struct{}{}
		bounds[s.End] = struct{}{}
	}
	points := make([]int, 0, len(bounds))
	for p := range bounds {
		points = append(points, p)
	}
	sort.Ints(points)

	var b strings.Builder
	var stack []Span
	next := 0
	for i, pos := range points {
		// Close everything above the deepest span that ends here, then reopen
		// the survivors so nesting stays valid.
		cut := len(stack)
		for k, s := range stack {
			if s.End <= pos {
				cut = k
				break
			}
		}
		var reopen []Span
		for k := len(stack) - 1; k >= cut; k-- {
			b.WriteString(closeTag(stack[k]))
			if stack[k].End > pos {
				reopen = append([]Span{stack[k]}, reopen...)
			}
		}
		stack = stack[:cut]
		for _, s := range reopen {
			b.WriteString(openTag(s))
			stack = append(stack, s)
		}
		for next < len(valid) && valid[next].Start == pos {
			b.WriteString(openTag(valid[next]))
			stack = append(stack, valid[next])
			next++
		}
		if i+1 < len(points) {
			seg := string(utf16.Decode(units[pos:points[i+1]]))
			b.WriteString(html.EscapeString(seg))
		}
	}
	return b.String()
}

func openTag(s Span) string {
	switch s.Type {
	case Strong:
		return "<strong>"
	case Em:
		return "<em>"
	case Hyperlink:
		if s.Data == nil || s.Data.URL == "" {
			return "<span>"
		}
		tag := `<a href="` + html.EscapeString(s.Data.URL) + `"`
		if s.Data.Target != "" {
			tag += ` target="` + html.EscapeString(s.Data.Target) + `" rel="noopener noreferrer"`
		}
		return tag + ">"
	case Label:
		if s.Data != nil && s.Data.Label != "" {
			return `<span class="` + html.EscapeString(s.Data.Label) + `">`
		}
		return "<span>"
	default:
		return "<span>"
	}
}

func closeTag(s Span) string {
	switch s.Type {
	case Strong:
		return "</strong>"
	case Em:
		return "</em>"
	case Hyperlink:
		if s.Data == nil || s.Data.URL == "" {
			return "</span>"
		}
		return "</a>"
	default:
		return "</span>"
	}
}
