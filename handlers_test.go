package spacetraveling

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, src *memSource, mutate ...func(*Config)) *App {
	t.Helper()
	cfg := Config{
		URL:           "https://blog.example.com",
		StaticDir:     t.TempDir(),
		WebhookSecret: "s3cret",
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	a := New(cfg, src, WithStore(newTestStore(t)), WithMetrics(NewMetrics(nil)))
	require.NoError(t, a.Setup())
	t.Cleanup(func() {
		a.Cache.Wait()
		a.Close()
	})
	return a
}

func serve(a *App, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHandlePostServesCachedPage(t *testing.T) {
	src := newMemSource()
	src.put("intro", postData("Intro", "Ana", textSection("Part One", "hello"), textSection("Part Two", "world")))
	a := newTestApp(t, src)
	_, err := a.Cache.Get(t.Context(), "intro")
	require.NoError(t, err)

	rec := serve(a, http.MethodGet, "/post/intro/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<h1>Intro</h1>")
	assert.Contains(t, body, "19 abr 2021")
	assert.Contains(t, body, "1 min")
	assert.Less(t, strings.Index(body, "Part One"), strings.Index(body, "Part Two"))
	assert.Equal(t, "public, s-maxage=1800, stale-while-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestHandlePostPendingFallback(t *testing.T) {
	src := newMemSource()
	src.put("intro", postData("Intro", "Ana"))
	a := newTestApp(t, src)

	rec := serve(a, http.MethodGet, "/post/intro/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Carregando...</h1>")
	assert.Contains(t, rec.Body.String(), `hx-get="/post/intro/?partial=post"`)
	assert.NotContains(t, rec.Body.String(), "<section")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	a.Cache.Wait()
	rec = serve(a, http.MethodGet, "/post/intro/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Intro</h1>")
}

func TestHandlePostPendingFallbackSettlesOnNotFound(t *testing.T) {
	src := newMemSource()
	a := newTestApp(t, src)

	rec := serve(a, http.MethodGet, "/post/missing-post/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Carregando...</h1>")
	a.Cache.Wait()

	for range 3 {
		rec = serve(a, http.MethodGet, "/post/missing-post/", "")
		a.Cache.Wait()
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "<!DOCTYPE html>")
		assert.NotContains(t, rec.Body.String(), "Carregando")
	}
	rec = serve(a, http.MethodGet, "/post/missing-post/?partial=post", "", "HX-Request", "true")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, src.getCount("missing-post"))
}

func TestHandlePostPartialResolves(t *testing.T) {
	src := newMemSource()
	src.put("intro", postData("Intro", "Ana"))
	a := newTestApp(t, src)

	rec := serve(a, http.MethodGet, "/post/intro/?partial=post", "", "HX-Request", "true")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, `<div id="post"`), body)
	assert.Contains(t, body, "<h1>Intro</h1>")
}

func TestHandlePostPartialNotFound(t *testing.T) {
	a := newTestApp(t, newMemSource())

	rec := serve(a, http.MethodGet, "/post/missing-post/?partial=post", "", "HX-Request", "true")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Post não encontrado")
	assert.NotContains(t, rec.Body.String(), "<!DOCTYPE")
}

func TestHandlePostBlockingFallback(t *testing.T) {
	src := newMemSource()
	src.put("intro", postData("Intro", "Ana"))
	a := newTestApp(t, src, func(c *Config) { c.Fallback = FallbackBlocking })

	rec := serve(a, http.MethodGet, "/post/intro/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>Intro</h1>")

	rec = serve(a, http.MethodGet, "/post/missing-post/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "<!DOCTYPE html>")
}

func TestHandlePostSourceFailure(t *testing.T) {
	src := newMemSource()
	src.getErr = assert.AnError
	a := newTestApp(t, src)

	rec := serve(a, http.MethodGet, "/post/intro/?partial=post", "", "HX-Request", "true")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="error"`)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestHandlePostAddsTrailingSlash(t *testing.T) {
	a := newTestApp(t, newMemSource())

	rec := serve(a, http.MethodGet, "/post/intro", "")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/post/intro/", rec.Header().Get("Location"))
}

func TestUnknownRouteRendersNotFound(t *testing.T) {
	a := newTestApp(t, newMemSource())

	rec := serve(a, http.MethodGet, "/nope/", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Post não encontrado")
}

func TestHandleSitemap(t *testing.T) {
	src := newMemSource()
	src.put("a", postData("A", "Ana"))
	src.put("b", postData("B", "Ana"))
	src.put("c", postData("C", "Ana"))
	a := newTestApp(t, src)

	rec := serve(a, http.MethodGet, "/sitemap.xml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, slug := range []string{"a", "b", "c"} {
		assert.Contains(t, body, "<loc>https://blog.example.com/post/"+slug+"/</loc>")
	}
}

func TestHandleFeedListsCachedPosts(t *testing.T) {
	src := newMemSource()
	src.put("intro", postData("Intro", "Ana"))
	a := newTestApp(t, src)
	_, err := a.Cache.Get(t.Context(), "intro")
	require.NoError(t, err)

	rec := serve(a, http.MethodGet, "/feed.xml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Intro</title>")
	assert.Contains(t, rec.Body.String(), "<link>https://blog.example.com/post/intro/</link>")
}

func TestHandleRevalidate(t *testing.T) {
	src := newMemSource()
	src.put("intro", postData("Intro", "Ana"))
	a := newTestApp(t, src)
	_, err := a.Cache.Get(t.Context(), "intro")
	require.NoError(t, err)

	rec := serve(a, http.MethodPost, "/api/revalidate", `{"secret":"s3cret","slugs":["intro","unknown"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revalidated":["intro"]}`, rec.Body.String())

	rec = serve(a, http.MethodPost, "/api/revalidate", `{"secret":"s3cret","type":"api-update","documents":["X1"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"revalidated":"all"}`, rec.Body.String())
}

func TestHandleRevalidateLimitsWrongSecrets(t *testing.T) {
	a := newTestApp(t, newMemSource())

	for i := 0; i < 5; i++ {
		rec := serve(a, http.MethodPost, "/api/revalidate", `{"secret":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := serve(a, http.MethodPost, "/api/revalidate", `{"secret":"s3cret"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestHandleRevalidateDisabledWithoutSecret(t *testing.T) {
	a := newTestApp(t, newMemSource(), func(c *Config) { c.WebhookSecret = "" })

	rec := serve(a, http.MethodPost, "/api/revalidate", `{"secret":""}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	src := newMemSource()
	src.put("intro", postData("Intro", "Ana"))
	a := newTestApp(t, src)
	_, err := a.Cache.Get(t.Context(), "intro")
	require.NoError(t, err)

	rec := serve(a, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spacetraveling_source_requests_total{op="props",result="ok"} 1`)
}
