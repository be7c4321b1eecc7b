package spacetraveling

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/eringen/spacetraveling/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// sitemapPage is one post listed in the sitemap. LastMod may be zero.
type sitemapPage struct {
	Slug    string
	LastMod time.Time
}

func writeSitemap(w io.Writer, base string, pages []sitemapPage) error {
	urls := []sitemapURL{
		{Loc: views.BuildURL(base)},
	}
	for _, p := range pages {
		u := sitemapURL{Loc: views.BuildURL(base, "post", p.Slug)}
		if !p.LastMod.IsZero() {
			u.LastMod = p.LastMod.UTC().Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	sitemap := sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(sitemap)
}

// sitemapPages pairs enumerated slugs with the generation time of any cached page.
func sitemapPages(slugs []string, cached []StoredPage) []sitemapPage {
	lastMod := make(map[string]time.Time, len(cached))
	for _, p := range cached {
		lastMod[p.Slug] = p.GeneratedAt
	}
	pages := make([]sitemapPage, len(slugs))
	for i, s := range slugs {
		pages[i] = sitemapPage{Slug: s, LastMod: lastMod[s]}
	}
	return pages
}
