package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// BlogPostingJSONLD produces a Schema.org BlogPosting JSON-LD block for a
// resolved post. encoding/json escapes '<' and '>', so the result is safe
// inside a <script> element.
func BlogPostingJSONLD(p PostPage) string {
	data := map[string]interface{}{
		"@context":   "https://schema.org",
		"@type":      "BlogPosting",
		"headline":   p.Title,
		"url":        BuildURL(p.Site.URL, "post", p.Slug),
		"inLanguage": p.Site.Locale.Tag().String(),
	}
	if p.DateTime != "" {
		data["datePublished"] = p.DateTime
	}
	if p.BannerURL != "" {
		data["image"] = p.BannerURL
	}
	if p.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  p.Author,
		}
	}
	if p.Site.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  p.Site.Name,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
