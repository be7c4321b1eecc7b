// Package richtext models structured rich text as delivered by the CMS and
// converts it to plain text and HTML.
//
// A body is an ordered list of blocks. Text blocks carry spans whose Start
// and End are offsets in UTF-16 code units, matching the CMS wire format.
package richtext

import (
	"strings"
	"unicode/utf16"
)

// Block types.
const (
	Paragraph    = "paragraph"
	Heading1     = "heading1"
	Heading2     = "heading2"
	Heading3     = "heading3"
	Heading4     = "heading4"
	Heading5     = "heading5"
	Heading6     = "heading6"
	Preformatted = "preformatted"
	ListItem     = "list-item"
	OListItem    = "o-list-item"
	Image        = "image"
	Embed        = "embed"
)

// Span types.
const (
	Strong    = "strong"
	Em        = "em"
	Hyperlink = "hyperlink"
	Label     = "label"
)

// Block is one rich-text fragment.
type Block struct {
	Type  string `json:"type"`
	Text  string `json:"text,omitempty"`
	Spans []Span `json:"spans,omitempty"`

	// image
	URL        string      `json:"url,omitempty"`
	Alt        string      `json:"alt,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`

	// embed
	Oembed *Oembed `json:"oembed,omitempty"`
}

// Span marks up the [Start, End) range of a block's text.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

// SpanData carries hyperlink targets and label names.
type SpanData struct {
	URL    string `json:"url,omitempty"`
	Target string `json:"target,omitempty"`
	Label  string `json:"label,omitempty"`
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Oembed struct {
	Type         string `json:"type,omitempty"`
	EmbedURL     string `json:"embed_url,omitempty"`
	ProviderName string `json:"provider_name,omitempty"`
	HTML         string `json:"html,omitempty"`
}

// AsText returns the text of every block that has any, joined by a single space.
// Image and embed blocks contribute nothing.
func AsText(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}

// TextLen returns the length of s in UTF-16 code units, the unit span offsets use.
func TextLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
