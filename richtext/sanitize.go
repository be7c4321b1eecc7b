package richtext

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

var allowedTags = map[string][]string{
	"p": nil, "br": nil, "strong": nil, "b": nil, "em": nil, "i": nil,
	"h1": nil, "h2": nil, "h3": nil, "h4": nil, "h5": nil, "h6": nil,
	"ul": nil, "ol": nil, "li": nil, "pre": nil, "code": nil, "blockquote": nil,
	"span":   {"class"},
	"a":      {"href", "target", "rel"},
	"img":    {"src", "alt", "width", "height", "class"},
	"div":    {"class", "data-oembed", "data-oembed-type", "data-oembed-provider"},
	"iframe": {"src", "width", "height", "title", "allow", "allowfullscreen", "frameborder"},
}

// dropped along with everything inside them
var strippedTags = map[string]bool{
	"script": true, "style": true, "object": true, "embed": true, "template": true, "noscript": true,
}

var urlAttrs = map[string]bool{"href": true, "src": true}

// Sanitize filters HTML down to the tags and attributes rich text can
// produce. Disallowed tags are removed but their text is kept, except for
// script-like elements which are dropped entirely. URL attributes must be
// relative or use http(s)/mailto; iframes must use https.
func Sanitize(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	droppedFrames := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF or a malformed tail; either way keep what was accepted
			return b.String()
		}
		tok := z.Token()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if strippedTags[tok.Data] {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 {
				continue
			}
			allowed, ok := allowedTags[tok.Data]
			if !ok {
				continue
			}
			tok.Attr = filterAttrs(tok.Data, tok.Attr, allowed)
			if tok.Data == "iframe" && !hasAttr(tok.Attr, "src") {
				if tt == html.StartTagToken {
					droppedFrames++
				}
				continue
			}
			b.WriteString(tok.String())
		case html.EndTagToken:
			if strippedTags[tok.Data] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 {
				continue
			}
			if tok.Data == "iframe" && droppedFrames > 0 {
				droppedFrames--
				continue
			}
			if _, ok := allowedTags[tok.Data]; ok {
				b.WriteString(tok.String())
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(tok.String())
			}
		}
	}
}

func filterAttrs(tag string, attrs []html.Attribute, allowed []string) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		if a.Namespace != "" || !contains(allowed, a.Key) {
			continue
		}
		if urlAttrs[a.Key] && !safeURL(a.Val, tag == "iframe") {
			continue
		}
		out = append(out, a)
	}
	return out
}

func safeURL(raw string, httpsOnly bool) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if httpsOnly {
		return scheme == "https"
	}
	switch scheme {
	case "", "http", "https", "mailto":
		return true
	}
	return false
}

func hasAttr(attrs []html.Attribute, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
