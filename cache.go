package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// PageCache keeps the latest props of every generated page. Fresh pages are
// served as is; stale pages are served while a background regeneration runs;
// missing pages are generated on demand. Concurrent regenerations of one
// slug share a single fetch.
type PageCache struct {
	gen     *Generator
	store   *Store
	ttl     time.Duration
	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time

	mu      sync.RWMutex
	entries map[string]*cacheEntry
	marks   map[string]uint64    // per-slug invalidation count
	epoch   uint64               // Invalidate count
	missing map[string]time.Time // slugs the source recently reported as not found
	group   singleflight.Group
	wg      sync.WaitGroup
}

type cacheEntry struct {
	props      Props
	generated  time.Time
	stale      bool
	refreshing bool
}

// NewPageCache creates a PageCache that regenerates pages with gen and, when
// store is non-nil, persists them there.
func NewPageCache(gen *Generator, store *Store) *PageCache {
	return &PageCache{
		gen:     gen,
		store:   store,
		ttl:     gen.cfg.Revalidate,
		log:     gen.Log,
		metrics: gen.Metrics,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
		marks:   make(map[string]uint64),
		missing: make(map[string]time.Time),
	}
}

// generation changes whenever slug is invalidated. Callers hold c.mu.
func (c *PageCache) generation(slug string) uint64 {
	return c.epoch + c.marks[slug]
}

// Missing reports whether the source reported slug as not found within the
// last revalidation window.
func (c *PageCache) Missing(slug string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	at, ok := c.missing[slug]
	return ok && c.now().Sub(at) < c.ttl
}

func (c *PageCache) fresh(e *cacheEntry) bool {
	return !e.stale && c.now().Sub(e.generated) < c.ttl
}

// Lookup returns the cached props for slug without blocking on the content
// source. A stale hit schedules a background regeneration.
func (c *PageCache) Lookup(slug string) (Props, bool) {
	c.mu.RLock()
	e, ok := c.entries[slug]
	if ok && c.fresh(e) {
		props := e.props
		c.mu.RUnlock()
		c.metrics.observeLookup("fresh")
		return props, true
	}
	c.mu.RUnlock()
	if !ok {
		c.metrics.observeLookup("miss")
		return Props{}, false
	}

	c.mu.Lock()
	e, ok = c.entries[slug]
	if !ok {
		c.mu.Unlock()
		c.metrics.observeLookup("miss")
		return Props{}, false
	}
	props := e.props
	start := !e.refreshing && !c.fresh(e)
	if start {
		e.refreshing = true
	}
	c.mu.Unlock()
	c.metrics.observeLookup("stale")
	if start {
		c.background(slug)
	}
	return props, true
}

// Get returns cached props for slug, generating them synchronously on a miss.
// Slugs recently reported missing fail with ErrNotFound without a fetch.
func (c *PageCache) Get(ctx context.Context, slug string) (Props, error) {
	if props, ok := c.Lookup(slug); ok {
		return props, nil
	}
	if c.Missing(slug) {
		return Props{}, fmt.Errorf("spacetraveling: post %q: %w", slug, ErrNotFound)
	}
	return c.regenerate(ctx, slug)
}

// Prefetch starts generating slug in the background unless it is cached or
// known to be missing.
func (c *PageCache) Prefetch(slug string) {
	if c.Missing(slug) {
		return
	}
	c.mu.RLock()
	_, ok := c.entries[slug]
	c.mu.RUnlock()
	if !ok {
		c.background(slug)
	}
}

func (c *PageCache) background(slug string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.regenerate(context.Background(), slug); err != nil && !errors.Is(err, ErrNotFound) {
			c.log.Warn().Err(err).Str("slug", slug).Msg("background regeneration failed")
		}
	}()
}

// Wait blocks until every background regeneration has finished.
func (c *PageCache) Wait() {
	c.wg.Wait()
}

func (c *PageCache) regenerate(ctx context.Context, slug string) (Props, error) {
	// The fetch is shared by every waiter, so one caller going away must not cancel it.
	ctx = context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(slug, func() (any, error) {
		c.mu.RLock()
		mark := c.generation(slug)
		c.mu.RUnlock()
		props, err := c.gen.StaticProps(ctx, slug)
		c.metrics.observeRegeneration(err)
		switch {
		case err == nil:
			c.put(slug, props, c.now(), mark)
		case errors.Is(err, ErrNotFound):
			c.evict(slug)
		default:
			c.mu.Lock()
			if e, ok := c.entries[slug]; ok {
				e.refreshing = false
			}
			c.mu.Unlock()
		}
		return props, err
	})
	if err != nil {
		return Props{}, err
	}
	return v.(Props), nil
}

// put stores props fetched while the slug was at generation mark. An
// invalidation that landed during the fetch leaves the new entry stale.
func (c *PageCache) put(slug string, props Props, generated time.Time, mark uint64) {
	c.mu.Lock()
	c.entries[slug] = &cacheEntry{props: props, generated: generated, stale: c.generation(slug) != mark}
	delete(c.missing, slug)
	c.mu.Unlock()
	c.log.Debug().Str("slug", slug).Msg("page generated")
	if c.store == nil {
		return
	}
	if err := c.store.SavePage(StoredPage{Slug: slug, Props: props, GeneratedAt: generated}); err != nil {
		c.log.Error().Err(err).Str("slug", slug).Msg("persist page")
	}
}

func (c *PageCache) evict(slug string) {
	c.mu.Lock()
	_, had := c.entries[slug]
	delete(c.entries, slug)
	c.missing[slug] = c.now()
	c.mu.Unlock()
	if had {
		c.log.Info().Str("slug", slug).Msg("page removed from source")
	}
	if c.store == nil {
		return
	}
	if err := c.store.DeletePage(slug); err != nil {
		c.log.Error().Err(err).Str("slug", slug).Msg("delete stored page")
	}
}

// Invalidate marks every cached page stale so the next request regenerates
// it. Regenerations already in flight store their result as stale.
func (c *PageCache) Invalidate() {
	c.mu.Lock()
	c.epoch++
	for _, e := range c.entries {
		e.stale = true
	}
	clear(c.missing)
	c.mu.Unlock()
}

// InvalidateSlug marks one page stale. It reports whether the page was cached.
func (c *PageCache) InvalidateSlug(slug string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.marks[slug]++
	delete(c.missing, slug)
	e, ok := c.entries[slug]
	if ok {
		e.stale = true
	}
	return ok
}

// Restore loads previously generated pages from the store. Restored pages
// keep their original generation time and may be stale.
func (c *PageCache) Restore() (int, error) {
	if c.store == nil {
		return 0, nil
	}
	pages, err := c.store.ListPages()
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	for _, p := range pages {
		c.entries[p.Slug] = &cacheEntry{props: p.Props, generated: p.GeneratedAt}
	}
	c.mu.Unlock()
	return len(pages), nil
}

// Warm generates every slug that is not already fresh, with at most
// concurrency fetches in flight. Per-slug failures are logged and counted,
// not returned.
func (c *PageCache) Warm(ctx context.Context, slugs []string, concurrency int) (failed int) {
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for _, slug := range slugs {
		c.mu.RLock()
		e, ok := c.entries[slug]
		skip := ok && c.fresh(e)
		c.mu.RUnlock()
		if skip {
			continue
		}
		g.Go(func() error {
			if _, err := c.regenerate(ctx, slug); err != nil {
				c.log.Warn().Err(err).Str("slug", slug).Msg("warm page")
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed
}

// Entries returns a snapshot of every cached page ordered by slug.
func (c *PageCache) Entries() []StoredPage {
	c.mu.RLock()
	out := make([]StoredPage, 0, len(c.entries))
	for slug, e := range c.entries {
		out = append(out, StoredPage{Slug: slug, Props: e.props, GeneratedAt: e.generated})
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}
