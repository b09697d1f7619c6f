// Package main is the entry point for the sectionflow layout tool.
//
// sectionflow loads a collection from a YAML fixture or a Lua script, lays
// it out through the controller and prints every item's measured size and
// wrapped text. With -watch it keeps running and relays the collection out
// whenever the configuration file changes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/config"
	"github.com/dshills/sectionflow/internal/controller"
	"github.com/dshills/sectionflow/internal/logging"
	"github.com/dshills/sectionflow/internal/mainloop"
	"github.com/dshills/sectionflow/internal/metrics"
	"github.com/dshills/sectionflow/internal/source/fixture"
	"github.com/dshills/sectionflow/internal/source/script"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options holds parsed command-line flags.
type options struct {
	configPath  string
	fixturePath string
	scriptPath  string
	watch       bool
	showVersion bool

	// overrides are config keys set on the command line. They win over the
	// file and the environment, including after a reload.
	overrides map[string]string
}

// source is what the CLI needs from a data source.
type source interface {
	controller.DataSource
	SetConstraint(c collection.Constraint)
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{overrides: make(map[string]string)}
	fs := flag.NewFlagSet("sectionflow", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.fixturePath, "fixture", "", "YAML fixture to lay out")
	fs.StringVar(&opts.fixturePath, "f", "", "YAML fixture to lay out (shorthand)")
	fs.StringVar(&opts.scriptPath, "script", "", "Lua script to lay out")
	fs.StringVar(&opts.scriptPath, "s", "", "Lua script to lay out (shorthand)")
	fs.BoolVar(&opts.watch, "watch", false, "Relayout when the configuration file changes")
	fs.BoolVar(&opts.watch, "w", false, "Relayout when the configuration file changes (shorthand)")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information (shorthand)")

	// Settings that map straight onto config keys.
	settings := map[string]string{
		"log-level":    "logging.level",
		"metrics-addr": "metrics.addr",
		"width":        "layout.max_width",
		"chunk-size":   "layout.chunk_size",
		"parallelism":  "layout.parallelism",
		"async":        "fetch.async",
	}
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.String("width", "", "Maximum item width in columns")
	fs.String("chunk-size", "", "Items measured per background task")
	fs.String("parallelism", "", "Background measurement tasks per wave")
	fs.String("async", "", "Fetch full reloads off the control goroutine (true/false)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "sectionflow - asynchronous collection layout\n\n")
		fmt.Fprintf(stderr, "Usage: sectionflow [options] (-fixture file.yaml | -script file.lua)\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  sectionflow -f list.yaml              Lay out a fixture\n")
		fmt.Fprintf(stderr, "  sectionflow -s list.lua -width 40     Lay out a script at 40 columns\n")
		fmt.Fprintf(stderr, "  sectionflow -c flow.toml -f list.yaml -w\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if key, ok := settings[f.Name]; ok {
			opts.overrides[key] = f.Value.String()
		}
	})

	if opts.showVersion {
		return opts, nil
	}
	switch {
	case opts.fixturePath == "" && opts.scriptPath == "":
		return nil, errors.New("one of -fixture or -script is required")
	case opts.fixturePath != "" && opts.scriptPath != "":
		return nil, errors.New("-fixture and -script are mutually exclusive")
	case opts.watch && opts.configPath == "":
		return nil, errors.New("-watch needs -config")
	}
	return opts, nil
}

// loadConfig reads the configuration and applies command-line overrides.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	return applyOverrides(cfg, opts)
}

func applyOverrides(cfg *config.Config, opts *options) (*config.Config, error) {
	for key, value := range opts.overrides {
		if err := cfg.Set(key, value); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openSource(opts *options, logger *logging.Logger) (source, func(), error) {
	if opts.scriptPath != "" {
		src, err := script.Load(opts.scriptPath, script.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	}
	src, err := fixture.Load(opts.fixturePath)
	if err != nil {
		return nil, nil, err
	}
	return src, func() {}, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "sectionflow %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Output: stderr,
		Prefix: "sectionflow",
	})

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr, reg, logger)
		defer shutdown()
	}

	src, closeSource, err := openSource(opts, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer closeSource()
	src.SetConstraint(cfg.Constraint())

	loop := mainloop.New()
	c := controller.New(src,
		controller.WithPoster(loop),
		controller.WithChunkSize(cfg.Layout.ChunkSize),
		controller.WithParallelism(cfg.Layout.Parallelism),
		controller.WithAsyncFetching(cfg.Fetch.Async),
		controller.WithLogger(logger),
		controller.WithMetrics(m),
	)
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}()

	done := make(chan struct{})
	c.FullReload(func() {
		render(stdout, c, src)
		if !opts.watch {
			close(done)
		}
	})

	if opts.watch {
		w, err := config.NewWatcher(opts.configPath, func(next *config.Config, err error) {
			if err == nil {
				next, err = applyOverrides(next, opts)
			}
			if err != nil {
				logger.Warn("config reload: %v", err)
				return
			}
			loop.Post(func() {
				logger.SetLevel(logging.ParseLevel(next.Logging.Level))
				src.SetConstraint(next.Constraint())
				c.RelayoutAll()
				c.Drain()
				render(stdout, c, src)
			})
		}, config.WithWatchLogger(logger))
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		defer w.Close()
		logger.Info("watching %s", w.Path())
	}

	if err := loop.RunUntil(ctx, done); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	st := c.Stats()
	logger.WithField("layout_waves", st.Layout.Waves).
		WithField("resident", st.Layout.ResidentMeasured).
		WithField("background", st.Layout.WorkerMeasured).
		Debug("editing executor: %s", st.Editing)
	return 0
}

// serveMetrics exposes reg on addr and returns a function that stops the
// server.
func serveMetrics(addr string, reg *prometheus.Registry, logger *logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server: %v", err)
		}
	}()
	logger.Info("serving metrics on %s", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
