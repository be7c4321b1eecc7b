package spacetraveling

import (
	"encoding/xml"
	"io"
	"sort"
	"time"

	"github.com/eringen/spacetraveling/views"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Language    string    `xml:"language,omitempty"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	Author  string `xml:"author,omitempty"`
	PubDate string `xml:"pubDate,omitempty"`
	GUID    string `xml:"guid"`
}

// writeFeed writes an RSS 2.0 feed of the given posts, newest first. Undated
// posts are listed last.
func writeFeed(w io.Writer, cfg Config, posts []Post) error {
	sorted := make([]Post, len(posts))
	copy(sorted, posts)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PublicationDate, sorted[j].PublicationDate
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	items := make([]rssItem, 0, len(sorted))
	for _, p := range sorted {
		postURL := views.BuildURL(cfg.URL, "post", p.UID)
		item := rssItem{
			Title:  p.Title,
			Link:   postURL,
			Author: p.Author,
			GUID:   postURL,
		}
		if p.PublicationDate != nil {
			item.PubDate = p.PublicationDate.UTC().Format(time.RFC1123Z)
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       cfg.Name,
			Link:        views.BuildURL(cfg.URL),
			Description: cfg.Description,
			Language:    cfg.site().Locale.Tag().String(),
			Items:       items,
		},
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(feed)
}
