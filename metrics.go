package spacetraveling

import (
	"errors"
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records page generation metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg           *prom.Registry
	fetches       *prom.CounterVec
	cacheLookups  *prom.CounterVec
	regenerations *prom.CounterVec
	renderSeconds prom.Histogram
	buildPages    *prom.CounterVec
	buildSeconds  prom.Histogram
}

// NewMetrics constructs the collectors and registers them on reg. A nil reg
// gets a fresh registry that also carries the Go and process collectors.
func NewMetrics(reg *prom.Registry) *Metrics {
	if reg == nil {
		reg = prom.NewRegistry()
		reg.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	}
	m := &Metrics{reg: reg}
	m.fetches = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "spacetraveling",
		Name:      "source_requests_total",
		Help:      "Content source requests by operation and result",
	}, []string{"op", "result"})
	m.cacheLookups = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "spacetraveling",
		Name:      "cache_lookups_total",
		Help:      "Page cache lookups by freshness",
	}, []string{"result"})
	m.regenerations = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "spacetraveling",
		Name:      "regenerations_total",
		Help:      "Page regenerations by result",
	}, []string{"result"})
	m.renderSeconds = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "spacetraveling",
		Name:      "render_duration_seconds",
		Help:      "Time spent rendering a page",
		Buckets:   prom.DefBuckets,
	})
	m.buildPages = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "spacetraveling",
		Name:      "build_pages_total",
		Help:      "Pages processed by static builds by result",
	}, []string{"result"})
	m.buildSeconds = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "spacetraveling",
		Name:      "build_duration_seconds",
		Help:      "Total static build duration",
		Buckets:   prom.DefBuckets,
	})
	reg.MustRegister(m.fetches, m.cacheLookups, m.regenerations, m.renderSeconds, m.buildPages, m.buildSeconds)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// resultLabel classifies an error for metric labels.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMalformedDocument):
		return "malformed"
	case errors.Is(err, ErrSourceUnavailable):
		return "unavailable"
	}
	return "error"
}

func (m *Metrics) observeFetch(op string, err error) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(op, resultLabel(err)).Inc()
}

func (m *Metrics) observeLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) observeRegeneration(err error) {
	if m == nil {
		return
	}
	m.regenerations.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) observeRender(d time.Duration) {
	if m == nil {
		return
	}
	m.renderSeconds.Observe(d.Seconds())
}

func (m *Metrics) observeBuildPage(err error) {
	if m == nil {
		return
	}
	m.buildPages.WithLabelValues(resultLabel(err)).Inc()
}

func (m *Metrics) observeBuild(d time.Duration) {
	if m == nil {
		return
	}
	m.buildSeconds.Observe(d.Seconds())
}
