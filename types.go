package spacetraveling

import (
	"time"

	"github.com/eringen/spacetraveling/richtext"
)

// PostType is the content source document type holding blog posts.
const PostType = "posts"

// Post is the normalized view model of one post document.
type Post struct {
	UID             string     `json:"uid"`
	PublicationDate *time.Time `json:"first_publication_date"`
	Title           string     `json:"title"`
	BannerURL       string     `json:"banner_url"`
	Author          string     `json:"author"`
	Content         []Section  `json:"content"`
}

// Section is one heading and its rich-text body. Key is unique within a post.
type Section struct {
	Key     string           `json:"key"`
	Heading string           `json:"heading"`
	Body    []richtext.Block `json:"body"`
}

// PathParams identifies one page to generate.
type PathParams struct {
	Slug string `json:"slug"`
}

// Paths is the result of path enumeration. Fallback reports that slugs
// outside Paths are still resolved on demand.
type Paths struct {
	Paths    []PathParams `json:"paths"`
	Fallback bool         `json:"fallback"`
}

// Slugs returns the enumerated slugs in order.
func (p Paths) Slugs() []string {
	out := make([]string, len(p.Paths))
	for i, pp := range p.Paths {
		out[i] = pp.Slug
	}
	return out
}

// Props are the page props for one post plus the number of seconds the
// generated page stays fresh.
type Props struct {
	Post       Post `json:"post"`
	Revalidate int  `json:"revalidate"`
}
