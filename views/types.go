package views

// SiteConfig holds the site-wide values every page template needs.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Locale      Locale
}

// Status is the resolution state of a post page.
type Status int

const (
	StatusPending Status = iota
	StatusResolved
	StatusFailed
)

// PostPage is the fully prepared view model for one post. Every display
// string is final; templates do no formatting or fallback logic.
type PostPage struct {
	Site        SiteConfig
	Slug        string
	Status      Status
	Title       string
	Date        string
	DateTime    string // machine-readable value for <time datetime>, empty when unknown
	Author      string
	ReadingTime string
	BannerURL   string
	BannerAlt   string
	Sections    []Section
	Error       string
}

// Section is one rendered content section. HTML is trusted markup.
type Section struct {
	Key     string
	Heading string
	HTML    string
}
