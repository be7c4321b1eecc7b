package spacetraveling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/richtext"
)

// Generator produces page paths and page props from a content source. It is
// safe for concurrent use.
type Generator struct {
	Source  content.Source
	Log     zerolog.Logger
	Metrics *Metrics

	cfg      Config
	validate *validator.Validate
}

// NewGenerator returns a Generator reading posts from src. Log defaults to a
// no-op logger.
func NewGenerator(src content.Source, cfg Config) *Generator {
	cfg.setDefaults()
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("banner", func(fl validator.FieldLevel) bool {
		return validBannerURL(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return &Generator{
		Source:   src,
		Log:      zerolog.Nop(),
		cfg:      cfg,
		validate: v,
	}
}

// Config returns the generator configuration with defaults applied.
func (g *Generator) Config() Config {
	return g.cfg
}

// StaticPaths enumerates the slugs of every post to generate ahead of time.
// With a positive PathsPageSize at most that many slugs are returned;
// otherwise pagination is followed to the end. Fallback is always true.
func (g *Generator) StaticPaths(ctx context.Context) (Paths, error) {
	paths, err := g.enumerate(ctx)
	g.Metrics.observeFetch("paths", err)
	if err != nil {
		return Paths{}, err
	}
	g.Log.Debug().Int("count", len(paths)).Msg("enumerated posts")
	return Paths{Paths: paths, Fallback: true}, nil
}

func (g *Generator) enumerate(ctx context.Context) ([]PathParams, error) {
	limit := g.cfg.PathsPageSize
	q := content.Query{Type: PostType, PageSize: limit, Page: 1}
	seen := make(map[string]struct{})
	paths := []PathParams{}
	for {
		page, err := g.Source.Query(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("spacetraveling: enumerate posts: %w: %w", ErrSourceUnavailable, err)
		}
		for _, s := range page.Results {
			if s.UID == "" {
				continue
			}
			if _, dup := seen[s.UID]; dup {
				continue
			}
			seen[s.UID] = struct{}{}
			paths = append(paths, PathParams{Slug: s.UID})
			if limit > 0 && len(paths) == limit {
				return paths, nil
			}
		}
		if page.NextPage == 0 || page.NextPage <= q.Page {
			return paths, nil
		}
		q.Page = page.NextPage
	}
}

// StaticProps fetches the post for slug and normalizes it into page props.
// It returns an error matching ErrNotFound, ErrSourceUnavailable or
// ErrMalformedDocument.
func (g *Generator) StaticProps(ctx context.Context, slug string) (Props, error) {
	post, err := g.fetch(ctx, slug)
	g.Metrics.observeFetch("props", err)
	if err != nil {
		return Props{}, err
	}
	g.Log.Debug().Str("slug", slug).Int("sections", len(post.Content)).Msg("fetched post")
	return Props{Post: post, Revalidate: g.cfg.RevalidateSeconds()}, nil
}

func (g *Generator) fetch(ctx context.Context, slug string) (Post, error) {
	if slug == "" {
		return Post{}, fmt.Errorf("spacetraveling: empty slug: %w", ErrNotFound)
	}
	doc, err := g.Source.GetByUID(ctx, PostType, slug)
	if err != nil {
		if errors.Is(err, content.ErrNotFound) || errors.Is(err, content.ErrMalformed) {
			return Post{}, fmt.Errorf("spacetraveling: post %q: %w", slug, err)
		}
		return Post{}, fmt.Errorf("spacetraveling: fetch post %q: %w: %w", slug, ErrSourceUnavailable, err)
	}
	post, err := g.normalize(doc)
	if err != nil {
		return Post{}, fmt.Errorf("spacetraveling: post %q: %w", slug, err)
	}
	return post, nil
}

type rawPost struct {
	Title   string       `json:"title" validate:"required"`
	Author  string       `json:"author"`
	Banner  *rawBanner   `json:"banner" validate:"required"`
	Content []rawSection `json:"content" validate:"required,dive"`
}

type rawBanner struct {
	URL string `json:"url" validate:"required,banner"`
}

type rawSection struct {
	Heading *string          `json:"heading" validate:"required"`
	Body    []richtext.Block `json:"body" validate:"required"`
}

// normalize projects a document onto Post, rejecting documents that are
// missing a title, a banner URL or well-formed content sections.
func (g *Generator) normalize(doc content.Document) (Post, error) {
	var raw rawPost
	if len(doc.Data) == 0 {
		return Post{}, fmt.Errorf("%w: no data", ErrMalformedDocument)
	}
	if err := json.Unmarshal(doc.Data, &raw); err != nil {
		return Post{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := g.validate.Struct(raw); err != nil {
		return Post{}, fmt.Errorf("%w: %s", ErrMalformedDocument, describeValidation(err))
	}
	post := Post{
		UID:             doc.UID,
		PublicationDate: doc.FirstPublicationDate,
		Title:           raw.Title,
		BannerURL:       raw.Banner.URL,
		Author:          raw.Author,
		Content:         make([]Section, len(raw.Content)),
	}
	for i, s := range raw.Content {
		post.Content[i] = Section{
			Key:     "section-" + strconv.Itoa(i),
			Heading: *s.Heading,
			Body:    s.Body,
		}
	}
	return post, nil
}

// validBannerURL accepts absolute http(s) URLs and site-relative paths.
func validBannerURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return u.Host != ""
	case "":
		return u.Host == "" && strings.HasPrefix(u.Path, "/")
	}
	return false
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "rawPost.")
		msgs = append(msgs, field+" failed "+fe.Tag())
	}
	return strings.Join(msgs, "; ")
}
