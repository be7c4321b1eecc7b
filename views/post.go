package views

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"
)

type messages struct {
	notFoundTitle string
	notFoundBody  string
	errorTitle    string
	errorBody     string
	backHome      string
}

var localeMessages = map[Locale]messages{
	PortugueseBR: {
		notFoundTitle: "Post não encontrado",
		notFoundBody:  "O post que você procura não existe ou foi removido.",
		errorTitle:    "Algo deu errado",
		errorBody:     "Não foi possível carregar esta página. Tente novamente em instantes.",
		backHome:      "Voltar para o início",
	},
	EnglishUS: {
		notFoundTitle: "Post not found",
		notFoundBody:  "The post you are looking for does not exist or was removed.",
		errorTitle:    "Something went wrong",
		errorBody:     "This page could not be loaded. Please try again shortly.",
		backHome:      "Back to home",
	},
}

func msgs(l Locale) messages {
	if m, ok := localeMessages[l]; ok {
		return m
	}
	return localeMessages[PortugueseBR]
}

// PostURL is the canonical path of a post page.
func PostURL(slug string) string {
	return "/post/" + url.PathEscape(slug) + "/"
}

// Post renders a complete post document.
func Post(p PostPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		head(h, p.Site, pageTitle(p), func() {
			h.raw(`<link rel="canonical"`)
			h.attr("href", BuildURL(p.Site.URL, "post", p.Slug))
			h.raw(`>`)
			switch p.Status {
			case StatusPending:
				h.raw(`<noscript><meta http-equiv="refresh" content="3"></noscript>`)
			case StatusResolved:
				h.raw(`<script type="application/ld+json">`)
				h.raw(BlogPostingJSONLD(p))
				h.raw(`</script>`)
			}
		})
		postBody(h, p)
		foot(h)
		return h.err
	})
}

// PostPartial renders only the post container, for htmx swaps.
func PostPartial(p PostPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		postBody(h, p)
		return h.err
	})
}

// NotFound renders the 404 page.
func NotFound(site SiteConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		m := msgs(site.Locale)
		head(h, site, m.notFoundTitle+" | "+site.Name, nil)
		notice(h, "not-found", m.notFoundTitle, m.notFoundBody, m.backHome)
		foot(h)
		return h.err
	})
}

// NotFoundPartial renders the 404 notice inside the post container.
func NotFoundPartial(site SiteConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		m := msgs(site.Locale)
		notice(h, "not-found", m.notFoundTitle, m.notFoundBody, m.backHome)
		return h.err
	})
}

// ServerError renders the 500 page.
func ServerError(site SiteConfig) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		m := msgs(site.Locale)
		head(h, site, m.errorTitle+" | "+site.Name, nil)
		notice(h, "server-error", m.errorTitle, m.errorBody, m.backHome)
		foot(h)
		return h.err
	})
}

func pageTitle(p PostPage) string {
	if p.Title == "" {
		return p.Site.Name
	}
	return p.Title + " | " + p.Site.Name
}

func head(h *htmlWriter, site SiteConfig, title string, extra func()) {
	h.raw(`<!DOCTYPE html><html`)
	h.attr("lang", site.Locale.Tag().String())
	h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
	h.text(title)
	h.raw(`</title>`)
	if site.Description != "" {
		h.raw(`<meta name="description"`)
		h.attr("content", site.Description)
		h.raw(`>`)
	}
	h.raw(`<link rel="stylesheet" href="/public/styles.css"><script src="/public/htmx.min.js" defer></script>`)
	if extra != nil {
		extra()
	}
	h.raw(`</head><body><header class="site-header"><a href="/"><img src="/public/logo.svg"`)
	h.attr("alt", site.Name)
	h.raw(`></a></header>`)
}

func foot(h *htmlWriter) {
	h.raw(`</body></html>`)
}

func postBody(h *htmlWriter, p PostPage) {
	h.raw(`<div id="post" class="post"`)
	if p.Status == StatusPending {
		h.attr("hx-get", PostURL(p.Slug)+"?partial=post")
		h.raw(` hx-trigger="load" hx-swap="outerHTML" aria-busy="true"`)
	}
	h.raw(`>`)
	if p.BannerURL != "" {
		h.raw(`<img class="banner"`)
		h.attr("src", p.BannerURL)
		h.attr("alt", p.BannerAlt)
		h.raw(`>`)
	}
	h.raw(`<article class="container"><header><h1>`)
	h.text(p.Title)
	h.raw(`</h1><div class="infos"><time`)
	if p.DateTime != "" {
		h.attr("datetime", p.DateTime)
	}
	h.raw(`>` + iconCalendar)
	h.text(p.Date)
	h.raw(`</time><span class="author">` + iconUser)
	h.text(p.Author)
	h.raw(`</span><span class="reading-time">` + iconClock)
	h.text(p.ReadingTime)
	h.raw(`</span></div></header>`)
	if p.Status == StatusFailed && p.Error != "" {
		h.raw(`<p class="error" role="alert">`)
		h.text(p.Error)
		h.raw(`</p>`)
	}
	h.raw(`<main>`)
	for _, s := range p.Sections {
		h.raw(`<section`)
		h.attr("id", s.Key)
		h.raw(`><h2>`)
		h.text(s.Heading)
		h.raw(`</h2><div class="body">`)
		h.raw(s.HTML)
		h.raw(`</div></section>`)
	}
	h.raw(`</main></article></div>`)
}

func notice(h *htmlWriter, class, title, body, back string) {
	h.raw(`<div id="post"`)
	h.attr("class", "post "+class)
	h.raw(`><article class="container"><header><h1>`)
	h.text(title)
	h.raw(`</h1></header><p>`)
	h.text(body)
	h.raw(`</p><a href="/">`)
	h.text(back)
	h.raw(`</a></article></div>`)
}
