package spacetraveling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetraveling/views"
)

// Builder renders every enumerated post to static files under Config.OutputDir:
//
//	post/<slug>/index.html
//	post/<slug>/props.json
//	banners/<slug>.jpg   (with LocalizeBanners)
//	sitemap.xml, feed.xml, 404.html
type Builder struct {
	Gen        *Generator
	Log        zerolog.Logger
	Metrics    *Metrics
	HTTPClient *http.Client
}

// NewBuilder returns a Builder sharing gen's logger and metrics.
func NewBuilder(gen *Generator) *Builder {
	return &Builder{
		Gen:        gen,
		Log:        gen.Log,
		Metrics:    gen.Metrics,
		HTTPClient: &http.Client{Timeout: gen.cfg.HTTPTimeout},
	}
}

// PageFailure records a post that could not be built.
type PageFailure struct {
	Slug string
	Err  error
}

// BuildReport summarizes a build. Slices are sorted by slug.
type BuildReport struct {
	Built    []string
	NotFound []string
	Failed   []PageFailure
	Duration time.Duration
}

// OK reports whether every enumerated post was built.
func (r BuildReport) OK() bool {
	return len(r.NotFound) == 0 && len(r.Failed) == 0
}

// Build enumerates posts and builds each one. Enumeration failure aborts the
// build; a failure on one post is recorded and the others still build.
func (b *Builder) Build(ctx context.Context) (BuildReport, error) {
	start := time.Now()
	var report BuildReport
	defer func() {
		report.Duration = time.Since(start)
		b.Metrics.observeBuild(report.Duration)
	}()

	cfg := b.Gen.cfg
	paths, err := b.Gen.StaticPaths(ctx)
	if err != nil {
		return report, err
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return report, fmt.Errorf("spacetraveling: create output dir: %w", err)
	}
	b.Log.Info().Int("posts", len(paths.Paths)).Str("out", cfg.OutputDir).Msg("building posts")

	var (
		mu    sync.Mutex
		posts []Post
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.BuildConcurrency, 1))
	for _, p := range paths.Paths {
		slug := p.Slug
		g.Go(func() error {
			post, err := b.buildPage(gctx, slug)
			b.Metrics.observeBuildPage(err)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Built = append(report.Built, slug)
				posts = append(posts, post)
			case errors.Is(err, ErrNotFound):
				b.Log.Warn().Str("slug", slug).Msg("post disappeared during build")
				report.NotFound = append(report.NotFound, slug)
			default:
				b.Log.Error().Err(err).Str("slug", slug).Msg("build post")
				report.Failed = append(report.Failed, PageFailure{Slug: slug, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return report, err
	}

	sort.Strings(report.Built)
	sort.Strings(report.NotFound)
	sort.Slice(report.Failed, func(i, j int) bool { return report.Failed[i].Slug < report.Failed[j].Slug })

	if err := b.writeSiteFiles(report.Built, posts, start); err != nil {
		return report, err
	}
	b.Log.Info().
		Int("built", len(report.Built)).
		Int("not_found", len(report.NotFound)).
		Int("failed", len(report.Failed)).
		Dur("took", time.Since(start)).
		Msg("build finished")
	return report, nil
}

func (b *Builder) buildPage(ctx context.Context, slug string) (Post, error) {
	if !safeSlug(slug) {
		return Post{}, fmt.Errorf("spacetraveling: slug %q cannot be written to disk", slug)
	}
	props, err := b.Gen.StaticProps(ctx, slug)
	if err != nil {
		return Post{}, err
	}
	cfg := b.Gen.cfg
	if cfg.LocalizeBanners && props.Post.BannerURL != "" {
		local, err := localizeBanner(ctx, b.HTTPClient, cfg.OutputDir, slug, props.Post.BannerURL)
		if err != nil {
			b.Log.Warn().Err(err).Str("slug", slug).Msg("keeping remote banner")
		} else {
			props.Post.BannerURL = local
		}
	}

	dir := filepath.Join(cfg.OutputDir, "post", slug)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Post{}, fmt.Errorf("spacetraveling: create page dir: %w", err)
	}
	page := b.Gen.Present(slug, Resolved(props.Post))
	if err := writeComponent(ctx, filepath.Join(dir, "index.html"), views.Post(page)); err != nil {
		return Post{}, err
	}
	data, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return Post{}, fmt.Errorf("spacetraveling: encode props: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "props.json"), data, 0o644); err != nil {
		return Post{}, fmt.Errorf("spacetraveling: write props: %w", err)
	}
	return props.Post, nil
}

func (b *Builder) writeSiteFiles(built []string, posts []Post, generated time.Time) error {
	cfg := b.Gen.cfg
	pages := make([]sitemapPage, len(built))
	for i, slug := range built {
		pages[i] = sitemapPage{Slug: slug, LastMod: generated}
	}
	if err := writeFile(filepath.Join(cfg.OutputDir, "sitemap.xml"), func(f *os.File) error {
		return writeSitemap(f, cfg.URL, pages)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(cfg.OutputDir, "feed.xml"), func(f *os.File) error {
		return writeFeed(f, cfg, posts)
	}); err != nil {
		return err
	}
	return writeComponent(context.Background(), filepath.Join(cfg.OutputDir, "404.html"), views.NotFound(cfg.site()))
}

func writeComponent(ctx context.Context, path string, cmp templ.Component) error {
	return writeFile(path, func(f *os.File) error {
		return cmp.Render(ctx, f)
	})
}

func writeFile(path string, fill func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("spacetraveling: create %s: %w", path, err)
	}
	if err := fill(f); err != nil {
		f.Close()
		return fmt.Errorf("spacetraveling: write %s: %w", path, err)
	}
	return f.Close()
}
