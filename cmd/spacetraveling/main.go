package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/filesource"
	"github.com/eringen/spacetraveling/prismic"
)

// version is set at build time via ldflags.
var version = "dev"

type cli struct {
	Config  string `short:"c" help:"Configuration file path (optional)" type:"path"`
	EnvFile string `help:"Environment file loaded before reading variables" default:".env"`
	Verbose bool   `short:"v" help:"Enable debug logging"`
	JSON    bool   `help:"Log JSON instead of console output"`

	Build struct {
		Output string `short:"o" help:"Output directory (overrides config)"`
	} `cmd:"" help:"Render every post to static files"`

	Serve struct {
		Addr  string `help:"Listen address (overrides config)"`
		Watch bool   `help:"Invalidate pages when Markdown content changes"`
	} `cmd:"" help:"Serve post pages with on-demand regeneration"`

	Paths struct{} `cmd:"" help:"Print the post paths that would be pre-rendered"`

	Version struct{} `cmd:"" help:"Print the version"`
}

var kongOptions = []kong.Option{
	kong.Name("spacetraveling"),
	kong.Description("Blog post pages generated from a headless CMS"),
}

func main() {
	var c cli
	kctx := kong.Parse(&c, kongOptions...)
	log := newLogger(c.Verbose, c.JSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := c.run(ctx, kctx.Command(), log, os.Stdout)
	stop()
	if err != nil {
		log.Error().Err(err).Str("command", kctx.Command()).Msg("command failed")
		os.Exit(1)
	}
}

// run executes a parsed command. Command output goes to stdout; logs go to log.
func (c *cli) run(ctx context.Context, command string, log zerolog.Logger, stdout io.Writer) error {
	if command == "version" {
		_, err := fmt.Fprintf(stdout, "spacetraveling %s\n", version)
		return err
	}

	cfg, err := spacetraveling.LoadConfig(c.Config, c.EnvFile)
	if err != nil {
		return err
	}

	switch command {
	case "build":
		if c.Build.Output != "" {
			cfg.OutputDir = c.Build.Output
		}
		return runBuild(ctx, cfg, log)
	case "serve":
		if c.Serve.Addr != "" {
			cfg.Addr = c.Serve.Addr
		}
		if c.Serve.Watch {
			cfg.WatchContent = true
		}
		return runServe(ctx, cfg, log)
	case "paths":
		return runPaths(ctx, cfg, log, stdout)
	}
	return fmt.Errorf("unknown command %q", command)
}

func newLogger(verbose, asJSON bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	var log zerolog.Logger
	if asJSON {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return log.Level(level).With().Timestamp().Logger()
}

// newSource builds the configured content source. The file source is also
// returned so serve can watch it.
func newSource(cfg spacetraveling.Config, log zerolog.Logger) (content.Source, *filesource.Source) {
	if cfg.Source == spacetraveling.SourcePrismic {
		return prismic.New(cfg.PrismicEndpoint,
			prismic.WithAccessToken(cfg.PrismicToken),
			prismic.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		), nil
	}
	fs := filesource.New(cfg.ContentDir, filesource.WithLogger(log))
	return fs, fs
}

func runBuild(ctx context.Context, cfg spacetraveling.Config, log zerolog.Logger) error {
	src, _ := newSource(cfg, log)
	gen := spacetraveling.NewGenerator(src, cfg)
	gen.Log = log
	b := spacetraveling.NewBuilder(gen)
	report, err := b.Build(ctx)
	if err != nil {
		return err
	}
	for _, f := range report.Failed {
		log.Error().Err(f.Err).Str("slug", f.Slug).Msg("not built")
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d of %d posts failed", len(report.Failed), len(report.Built)+len(report.NotFound)+len(report.Failed))
	}
	return nil
}

func runPaths(ctx context.Context, cfg spacetraveling.Config, log zerolog.Logger, w io.Writer) error {
	src, _ := newSource(cfg, log)
	gen := spacetraveling.NewGenerator(src, cfg)
	gen.Log = log
	paths, err := gen.StaticPaths(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(paths)
}

func runServe(ctx context.Context, cfg spacetraveling.Config, log zerolog.Logger) error {
	src, files := newSource(cfg, log)
	app := spacetraveling.New(cfg, src,
		spacetraveling.WithLogger(log),
		spacetraveling.WithMetrics(spacetraveling.NewMetrics(nil)),
	)
	if err := app.Setup(); err != nil {
		return err
	}

	if files != nil && cfg.WatchContent {
		w, err := files.NewWatcher(spacetraveling.PostType, func(uid string) {
			app.Cache.InvalidateSlug(uid)
		}, log)
		if err != nil {
			return err
		}
		defer w.Close()
		if err := w.Start(ctx); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- app.Start(ctx) }()

	select {
	case err := <-errCh:
		app.Close()
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return <-errCh
}
