package spacetraveling

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/views"
)

func isPartial(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true" && c.QueryParam("partial") == "post"
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	partial := isPartial(c)
	if props, ok := a.Cache.Lookup(slug); ok {
		return a.renderPost(c, http.StatusOK, slug, Resolved(props.Post), partial)
	}

	if partial || a.Config.Fallback == FallbackBlocking {
		props, err := a.Cache.Get(c.Request().Context(), slug)
		switch {
		case err == nil:
			return a.renderPost(c, http.StatusOK, slug, Resolved(props.Post), partial)
		case errors.Is(err, ErrNotFound):
			if partial {
				return a.render(c, http.StatusNotFound, views.NotFoundPartial(a.Gen.cfg.site()))
			}
			return a.render(c, http.StatusNotFound, views.NotFound(a.Gen.cfg.site()))
		default:
			a.Log.Error().Err(err).Str("slug", slug).Msg("resolve post")
			return a.renderPost(c, http.StatusInternalServerError, slug, Failed(err), partial)
		}
	}

	if a.Cache.Missing(slug) {
		return a.render(c, http.StatusNotFound, views.NotFound(a.Gen.cfg.site()))
	}
	a.Cache.Prefetch(slug)
	return a.renderPost(c, http.StatusOK, slug, Pending(), false)
}

func (a *App) renderPost(c echo.Context, code int, slug string, st PageState, partial bool) error {
	if st.Status != StatusResolved {
		c.Response().Header().Set("Cache-Control", "no-store")
	}
	page := a.Gen.Present(slug, st)
	if partial {
		return a.render(c, code, views.PostPartial(page))
	}
	return a.render(c, code, views.Post(page))
}

func (a *App) handleSitemap(c echo.Context) error {
	var slugs []string
	paths, err := a.Gen.StaticPaths(c.Request().Context())
	if err != nil {
		a.Log.Warn().Err(err).Msg("sitemap falls back to cached pages")
		for _, p := range a.Cache.Entries() {
			slugs = append(slugs, p.Slug)
		}
	} else {
		slugs = paths.Slugs()
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return writeSitemap(c.Response(), a.Config.URL, sitemapPages(slugs, a.Cache.Entries()))
}

func (a *App) handleFeed(c echo.Context) error {
	entries := a.Cache.Entries()
	posts := make([]Post, len(entries))
	for i, e := range entries {
		posts[i] = e.Props.Post
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	return writeFeed(c.Response(), a.Config, posts)
}

// revalidateRequest is the webhook payload. Without slugs every page is
// marked stale. Content source webhooks send document IDs in Documents,
// which carry no slug, so they invalidate everything.
type revalidateRequest struct {
	Secret    string   `json:"secret"`
	Type      string   `json:"type"`
	Slugs     []string `json:"slugs"`
	Documents []string `json:"documents"`
}

func (a *App) handleRevalidate(c echo.Context) error {
	if a.Config.WebhookSecret == "" {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "revalidation is disabled"})
	}
	ip := c.RealIP()
	if !a.limiter.Check(ip) {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many failed attempts"})
	}
	var req revalidateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(a.Config.WebhookSecret)) != 1 {
		a.limiter.Record(ip)
		a.Log.Warn().Str("ip", ip).Msg("revalidation with wrong secret")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid secret"})
	}

	if len(req.Slugs) == 0 {
		a.Cache.Invalidate()
		a.Log.Info().Str("type", req.Type).Int("documents", len(req.Documents)).Msg("revalidating all pages")
		return c.JSON(http.StatusOK, map[string]any{"revalidated": "all"})
	}
	marked := []string{}
	for _, slug := range req.Slugs {
		if a.Cache.InvalidateSlug(slug) {
			marked = append(marked, slug)
		}
	}
	a.Log.Info().Strs("slugs", marked).Msg("revalidating pages")
	return c.JSON(http.StatusOK, map[string]any{"revalidated": marked})
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.Config.StaticDir, "favicon.svg"))
}

func (a *App) handleRobots(c echo.Context) error {
	return c.File(filepath.Join(a.Config.StaticDir, "robots.txt"))
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	site := a.Config.site()
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(site))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("server error")
		_ = RenderStatus(c, code, views.ServerError(site))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
