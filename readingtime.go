package spacetraveling

import (
	"strings"

	"github.com/eringen/spacetraveling/richtext"
)

const wordsPerMinute = 200

// ReadingTime estimates minutes to read p: every whitespace-separated word of
// the section headings and plain-text bodies, divided by 200 and rounded up.
// ok is false when there is no post yet.
func ReadingTime(p *Post) (minutes int, ok bool) {
	if p == nil {
		return 0, false
	}
	words := 0
	for _, s := range p.Content {
		words += len(strings.Fields(s.Heading))
		words += len(strings.Fields(richtext.AsText(s.Body)))
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute, true
}
