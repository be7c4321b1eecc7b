package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func resolvedPage() PostPage {
	return PostPage{
		Site:        SiteConfig{Name: "spacetraveling", URL: "https://blog.example.com"},
		Slug:        "hello-world",
		Status:      StatusResolved,
		Title:       "Hello <World>",
		Date:        "19 abr 2021",
		DateTime:    "2021-04-19T19:25:28Z",
		Author:      "Ana",
		ReadingTime: "3 min",
		BannerURL:   "https://images.example.com/banner.png",
		BannerAlt:   "Ana",
		Sections: []Section{
			{Key: "section-0", Heading: "Part One", HTML: "<p>one</p>"},
			{Key: "section-1", Heading: "Part Two", HTML: "<p>two</p>"},
		},
	}
}

func TestPostResolved(t *testing.T) {
	got := render(t, Post(resolvedPage()))
	for _, want := range []string{
		`<html lang="pt-BR">`,
		`<title>Hello &lt;World&gt; | spacetraveling</title>`,
		`<h1>Hello &lt;World&gt;</h1>`,
		`<time datetime="2021-04-19T19:25:28Z">`,
		`19 abr 2021</time>`,
		`Ana</span>`,
		`3 min</span>`,
		`<img class="banner" src="https://images.example.com/banner.png" alt="Ana">`,
		`<section id="section-0"><h2>Part One</h2><div class="body"><p>one</p></div></section>`,
		`<link rel="canonical" href="https://blog.example.com/post/hello-world/">`,
		`application/ld+json`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Post() missing %q in:\n%s", want, got)
		}
	}
	if strings.Index(got, "Part One") > strings.Index(got, "Part Two") {
		t.Errorf("sections out of order: %s", got)
	}
	if strings.Contains(got, "hx-get") {
		t.Errorf("resolved page should not poll: %s", got)
	}
}

func TestPostPending(t *testing.T) {
	p := PostPage{
		Site:        SiteConfig{Name: "spacetraveling"},
		Slug:        "new post",
		Status:      StatusPending,
		Title:       "Carregando...",
		Date:        "Data de publicação",
		Author:      "Autor",
		ReadingTime: "- min",
	}
	got := render(t, Post(p))
	if !strings.Contains(got, `hx-get="/post/new%20post/?partial=post"`) {
		t.Errorf("pending page should request the partial: %s", got)
	}
	if !strings.Contains(got, `<noscript><meta http-equiv="refresh" content="3"></noscript>`) {
		t.Errorf("pending page should refresh without javascript: %s", got)
	}
	if !strings.Contains(got, "<h1>Carregando...</h1>") {
		t.Errorf("pending title missing: %s", got)
	}
	if strings.Contains(got, "<section") || strings.Contains(got, `class="banner"`) {
		t.Errorf("pending page should not render sections or banner: %s", got)
	}
	if strings.Contains(got, "datetime=") {
		t.Errorf("pending page should not carry a datetime: %s", got)
	}
}

func TestPostPartialFailed(t *testing.T) {
	p := resolvedPage()
	p.Status = StatusFailed
	p.Sections = nil
	p.Error = "Não foi possível carregar o post."
	got := render(t, PostPartial(p))
	if strings.HasPrefix(got, "<!DOCTYPE") {
		t.Errorf("partial should not include the document shell: %s", got)
	}
	if !strings.Contains(got, `<p class="error" role="alert">Não foi possível carregar o post.</p>`) {
		t.Errorf("failed partial missing error: %s", got)
	}
}

func TestNotFound(t *testing.T) {
	got := render(t, NotFound(SiteConfig{Name: "spacetraveling", Locale: EnglishUS}))
	if !strings.Contains(got, `<html lang="en-US">`) || !strings.Contains(got, "Post not found") {
		t.Errorf("NotFound() = %s", got)
	}
	got = render(t, NotFoundPartial(SiteConfig{}))
	if !strings.Contains(got, "Post não encontrado") {
		t.Errorf("NotFoundPartial() = %s", got)
	}
}

func TestBlogPostingJSONLDEscapes(t *testing.T) {
	p := resolvedPage()
	p.Title = "</script><script>alert(1)</script>"
	got := BlogPostingJSONLD(p)
	if strings.Contains(got, "</script>") {
		t.Errorf("JSON-LD must not contain a raw closing tag: %s", got)
	}
	if !strings.Contains(got, `"datePublished":"2021-04-19T19:25:28Z"`) {
		t.Errorf("JSON-LD missing datePublished: %s", got)
	}
}
