package spacetraveling

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/eringen/spacetraveling/views"
)

// Fallback modes for slugs that were not generated ahead of time.
const (
	FallbackPending  = "pending"  // serve a loading page and resolve in the background
	FallbackBlocking = "blocking" // resolve before responding
)

// Content source kinds.
const (
	SourcePrismic = "prismic"
	SourceFiles   = "files"
)

// Config holds all configuration for a spacetraveling site.
type Config struct {
	Name        string `yaml:"name"`        // Site name (default "spacetraveling")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Meta description

	Addr      string `yaml:"addr"`       // Listen address (default ":3000")
	StaticDir string `yaml:"static_dir"` // Static assets served under /public (default "public")

	Source          string `yaml:"source"`           // "prismic" or "files"
	PrismicEndpoint string `yaml:"prismic_endpoint"` // e.g. https://repo.cdn.prismic.io/api/v2
	PrismicToken    string `yaml:"prismic_token"`
	ContentDir      string `yaml:"content_dir"`   // Markdown content root (default "content")
	WatchContent    bool   `yaml:"watch_content"` // Invalidate pages when content files change

	DatabasePath string `yaml:"database_path"` // SQLite page store (default "data/pages.db")
	OutputDir    string `yaml:"output_dir"`    // Static build output (default "out")

	PathsPageSize    int           `yaml:"paths_page_size"`   // 0 enumerates every post
	Revalidate       time.Duration `yaml:"revalidate"`        // Page freshness window (default 30m)
	Fallback         string        `yaml:"fallback"`          // "pending" or "blocking"
	Locale           string        `yaml:"locale"`            // BCP 47 tag (default "pt-BR")
	TrustContent     bool          `yaml:"trust_content"`     // Skip HTML sanitization
	LocalizeBanners  bool          `yaml:"localize_banners"`  // Download and resize banners on build
	BuildConcurrency int           `yaml:"build_concurrency"` // Parallel page builds (default 4)
	WebhookSecret    string        `yaml:"webhook_secret"`    // Required for POST /api/revalidate
	HTTPTimeout      time.Duration `yaml:"http_timeout"`      // Content source timeout (default 10s)
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.Source == "" {
		c.Source = SourceFiles
		if c.PrismicEndpoint != "" {
			c.Source = SourcePrismic
		}
	}
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/pages.db"
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.Revalidate == 0 {
		c.Revalidate = 30 * time.Minute
	}
	if c.Fallback == "" {
		c.Fallback = FallbackPending
	}
	if c.Locale == "" {
		c.Locale = "pt-BR"
	}
	if c.BuildConcurrency == 0 {
		c.BuildConcurrency = 4
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 10 * time.Second
	}
}

// Validate applies defaults and reports the first invalid setting.
func (c *Config) Validate() error {
	c.setDefaults()
	switch c.Source {
	case SourcePrismic:
		if c.PrismicEndpoint == "" {
			return errors.New("spacetraveling: prismic source requires an API endpoint")
		}
	case SourceFiles:
	default:
		return fmt.Errorf("spacetraveling: unknown content source %q", c.Source)
	}
	if c.Fallback != FallbackPending && c.Fallback != FallbackBlocking {
		return fmt.Errorf("spacetraveling: unknown fallback mode %q", c.Fallback)
	}
	if c.PathsPageSize < 0 {
		return fmt.Errorf("spacetraveling: paths page size must not be negative, got %d", c.PathsPageSize)
	}
	if c.BuildConcurrency < 0 {
		return fmt.Errorf("spacetraveling: build concurrency must not be negative, got %d", c.BuildConcurrency)
	}
	if c.Revalidate < time.Second {
		return fmt.Errorf("spacetraveling: revalidate must be at least 1s, got %s", c.Revalidate)
	}
	return nil
}

// RevalidateSeconds is the freshness window carried by page props.
func (c *Config) RevalidateSeconds() int {
	return int(c.Revalidate / time.Second)
}

func (c *Config) site() views.SiteConfig {
	return views.SiteConfig{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Locale:      views.MatchLocale(c.Locale),
	}
}

// LoadConfig reads an optional YAML file, then an optional .env file, then
// environment variables, each layer overriding the previous one. Empty paths
// are skipped; a missing .env file is not an error.
func LoadConfig(path, envFile string) (Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("spacetraveling: read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("spacetraveling: parse config %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("spacetraveling: load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Name = EnvOr("SPACETRAVELING_NAME", c.Name)
	c.URL = EnvOr("SPACETRAVELING_URL", c.URL)
	c.Description = EnvOr("SPACETRAVELING_DESCRIPTION", c.Description)
	c.Addr = EnvOr("SPACETRAVELING_ADDR", c.Addr)
	c.StaticDir = EnvOr("SPACETRAVELING_STATIC_DIR", c.StaticDir)
	c.Source = EnvOr("SPACETRAVELING_SOURCE", c.Source)
	c.PrismicEndpoint = EnvOr("PRISMIC_API_ENDPOINT", c.PrismicEndpoint)
	c.PrismicToken = EnvOr("PRISMIC_ACCESS_TOKEN", c.PrismicToken)
	c.ContentDir = EnvOr("SPACETRAVELING_CONTENT_DIR", c.ContentDir)
	c.DatabasePath = EnvOr("SPACETRAVELING_DATABASE_PATH", c.DatabasePath)
	c.OutputDir = EnvOr("SPACETRAVELING_OUTPUT_DIR", c.OutputDir)
	c.Fallback = EnvOr("SPACETRAVELING_FALLBACK", c.Fallback)
	c.Locale = EnvOr("SPACETRAVELING_LOCALE", c.Locale)
	c.WebhookSecret = EnvOr("SPACETRAVELING_WEBHOOK_SECRET", c.WebhookSecret)

	var err error
	if c.PathsPageSize, err = envInt("SPACETRAVELING_PATHS_PAGE_SIZE", c.PathsPageSize); err != nil {
		return err
	}
	if c.BuildConcurrency, err = envInt("SPACETRAVELING_BUILD_CONCURRENCY", c.BuildConcurrency); err != nil {
		return err
	}
	if c.Revalidate, err = envDuration("SPACETRAVELING_REVALIDATE", c.Revalidate); err != nil {
		return err
	}
	if c.HTTPTimeout, err = envDuration("SPACETRAVELING_HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return err
	}
	if c.TrustContent, err = envBool("SPACETRAVELING_TRUST_CONTENT", c.TrustContent); err != nil {
		return err
	}
	if c.LocalizeBanners, err = envBool("SPACETRAVELING_LOCALIZE_BANNERS", c.LocalizeBanners); err != nil {
		return err
	}
	if c.WatchContent, err = envBool("SPACETRAVELING_WATCH_CONTENT", c.WatchContent); err != nil {
		return err
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("spacetraveling: %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("spacetraveling: %s: %w", key, err)
	}
	return b, nil
}

// envDuration accepts Go durations ("30m") or a bare number of seconds ("1800").
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, fmt.Errorf("spacetraveling: %s: %w", key, err)
	}
	return d, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the logger used by the app, its cache and its generator.
func WithLogger(l zerolog.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory served under /public.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithStore uses an already opened page store instead of opening
// Config.DatabasePath.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithMetrics records app metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(a *App) {
		a.Metrics = m
	}
}
