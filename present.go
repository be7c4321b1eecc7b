package spacetraveling

import (
	"strconv"
	"time"

	"github.com/eringen/spacetraveling/richtext"
	"github.com/eringen/spacetraveling/views"
)

type placeholders struct {
	title       string
	date        string
	author      string
	readingTime string
	failedTitle string
	failedBody  string
}

var localePlaceholders = map[views.Locale]placeholders{
	views.PortugueseBR: {
		title:       "Carregando...",
		date:        "Data de publicação",
		author:      "Autor",
		readingTime: "- min",
		failedTitle: "Post indisponível",
		failedBody:  "Não foi possível carregar o post. Tente novamente em instantes.",
	},
	views.EnglishUS: {
		title:       "Loading...",
		date:        "Publication date",
		author:      "Author",
		readingTime: "- min",
		failedTitle: "Post unavailable",
		failedBody:  "The post could not be loaded. Please try again shortly.",
	},
}

// Present turns a page state into the view model the templates render.
// Missing post fields are replaced by placeholders, and section bodies are
// sanitized unless the configuration trusts the content source.
func (g *Generator) Present(slug string, st PageState) views.PostPage {
	site := g.cfg.site()
	ph, ok := localePlaceholders[site.Locale]
	if !ok {
		ph = localePlaceholders[views.PortugueseBR]
	}
	page := views.PostPage{
		Site:        site,
		Slug:        slug,
		Title:       ph.title,
		Date:        ph.date,
		Author:      ph.author,
		ReadingTime: ph.readingTime,
	}
	switch {
	case st.Status == StatusFailed:
		page.Status = views.StatusFailed
		page.Title = ph.failedTitle
		page.Error = ph.failedBody
		return page
	case st.Status == StatusResolved && st.Post != nil:
	default:
		page.Status = views.StatusPending
		return page
	}

	p := st.Post
	page.Status = views.StatusResolved
	page.Title = p.Title
	if p.PublicationDate != nil {
		page.Date = views.FormatDate(p.PublicationDate.UTC(), site.Locale)
		page.DateTime = p.PublicationDate.UTC().Format(time.RFC3339)
	}
	if p.Author != "" {
		page.Author = p.Author
	}
	if minutes, ok := ReadingTime(p); ok {
		page.ReadingTime = strconv.Itoa(minutes) + " min"
	}
	page.BannerURL = p.BannerURL
	page.BannerAlt = p.Author
	if page.BannerAlt == "" {
		page.BannerAlt = p.Title
	}
	page.Sections = make([]views.Section, len(p.Content))
	for i, s := range p.Content {
		body := richtext.AsHTML(s.Body)
		if !g.cfg.TrustContent {
			body = richtext.Sanitize(body)
		}
		page.Sections[i] = views.Section{Key: s.Key, Heading: s.Heading, HTML: body}
	}
	return page
}
