// Package spacetraveling serves and statically builds blog post pages from a
// headless content source.
//
// A Generator enumerates post slugs and turns content documents into page
// props. The App serves those pages over HTTP with incremental regeneration:
// pages stay fresh for Config.Revalidate, stale pages are served while they
// regenerate in the background, and unknown slugs are resolved on demand.
// The Builder writes the same pages to disk.
package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/eringen/spacetraveling/content"
)

// App is the central spacetraveling application. It wires together the
// generator, store, cache, handlers and middleware.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Gen     *Generator
	Store   *Store
	Cache   *PageCache
	Log     zerolog.Logger
	Metrics *Metrics

	source       content.Source
	limiter      *FailureLimiter
	customRoutes []func(*App)
	ownsStore    bool
	ready        bool
}

// New creates an App serving posts from src.
func New(cfg Config, src content.Source, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Log:    zerolog.Nop(),
		source: src,
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Setup opens the store, restores previously generated pages and registers
// middleware and routes. Start calls it; tests call it directly.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("spacetraveling: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}

	a.Gen = NewGenerator(a.source, a.Config)
	a.Gen.Log = a.Log
	a.Gen.Metrics = a.Metrics
	a.Cache = NewPageCache(a.Gen, a.Store)
	if n, err := a.Cache.Restore(); err != nil {
		a.Log.Warn().Err(err).Msg("restore stored pages")
	} else if n > 0 {
		a.Log.Info().Int("pages", n).Msg("restored stored pages")
	}

	a.limiter = NewFailureLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Warm generates every enumerated post that is not already fresh. An
// enumeration failure is returned; per-post failures are only logged.
func (a *App) Warm(ctx context.Context) error {
	paths, err := a.Gen.StaticPaths(ctx)
	if err != nil {
		return err
	}
	failed := a.Cache.Warm(ctx, paths.Slugs(), a.Config.BuildConcurrency)
	a.Log.Info().Int("posts", len(paths.Paths)).Int("failed", failed).Msg("cache warmed")
	return nil
}

// Start sets the app up, warms the cache and serves until the server is shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.Warm(ctx); err != nil {
		a.Log.Error().Err(err).Msg("warm cache; pages will be generated on demand")
	}
	a.Log.Info().Str("addr", a.Config.Addr).Msg("listening")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.Config.StaticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/post/:slug/", a.handlePost)
	e.POST("/api/revalidate", a.handleRevalidate)
	if a.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
	}
}

// Shutdown stops the server, waits for background regenerations and
// releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.Cache != nil {
		a.Cache.Wait()
	}
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close releases the store (when the app opened it) and the limiter.
func (a *App) Close() error {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.Store != nil && a.ownsStore {
		return a.Store.Close()
	}
	return nil
}
