package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jessevdk/go-flags"

	"github.com/crimson-sun/lookout/internal/catalog"
	"github.com/crimson-sun/lookout/internal/config"
	"github.com/crimson-sun/lookout/internal/connector"
	"github.com/crimson-sun/lookout/internal/logging"
	"github.com/crimson-sun/lookout/internal/pipeline"
	"github.com/crimson-sun/lookout/pkg/lookout"
)

// Options is the root command. The struct tags are interpreted by
// github.com/jessevdk/go-flags.
type Options struct {
	Config    string       `short:"f" long:"config" description:"YAML config path (default $LOOKOUT_CONFIG)"`
	Run       RunCmd       `command:"run" description:"Ingest dashboards and reconcile daily usage"`
	Providers ProvidersCmd `command:"providers" description:"List registered connectors and catalog backends"`
}

func newParser(opts *Options) *flags.Parser {
	opts.Run.root = opts
	return flags.NewParser(opts, flags.Default)
}

// RunCmd runs the pipeline once, or on an interval.
type RunCmd struct {
	Interval  time.Duration `long:"interval" description:"repeat every interval instead of running once"`
	Date      string        `long:"date" description:"reconcile as of this day (YYYY-MM-DD) instead of today"`
	DryRun    bool          `long:"dry-run" description:"use an in-memory catalog; nothing is persisted"`
	SkipUsage bool          `long:"skip-usage" description:"ingest dashboards and charts only"`
	Strict    bool          `long:"strict" description:"exit with status 2 when any dashboard has an anomaly or failure"`
	LogLevel  string        `long:"log-level" description:"debug, info, warn or error"`

	root *Options
}

// problemsError reports a run that finished with anomalies or failures.
type problemsError struct {
	sum pipeline.Summary
}

func (e *problemsError) Error() string {
	return fmt.Sprintf("%d of %d dashboards had problems (%d anomalies, %d failures)",
		e.sum.Anomalies+e.sum.Failures, e.sum.Total, e.sum.Anomalies, e.sum.Failures)
}

// load reads the configuration and applies command-line overrides.
func (r *RunCmd) load() (config.Config, error) {
	var path string
	if r.root != nil {
		path = r.root.Config
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if r.Interval > 0 {
		cfg.Pipeline.Interval = r.Interval
	}
	if r.DryRun {
		cfg.Catalog.Backend = "memory"
	}
	if r.SkipUsage {
		cfg.Pipeline.SkipUsage = true
	}
	if r.LogLevel != "" {
		cfg.LogLevel = r.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

// clock returns the function that picks the day of each run.
func (r *RunCmd) clock(loc *time.Location) (func() civil.Date, error) {
	if r.Date == "" {
		return func() civil.Date { return lookout.Today(loc) }, nil
	}
	d, err := lookout.ParseDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("--date: %w", err)
	}
	return func() civil.Date { return d }, nil
}

func (r *RunCmd) Execute([]string) error {
	cfg, err := r.load()
	if err != nil {
		return err
	}
	logging.Init(writesStdout(cfg.Output), logging.ParseLevel(cfg.LogLevel),
		"provider", cfg.Source.Provider, "catalog", cfg.Catalog.Backend)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	today, err := r.clock(loc)
	if err != nil {
		return err
	}

	dashboards, charts, err := cfg.Patterns()
	if err != nil {
		return err
	}
	ctor, err := connector.Get(cfg.Source.Provider)
	if err != nil {
		return err
	}
	cat, err := catalog.Open(cfg.CatalogConfig())
	if err != nil {
		return err
	}
	out, err := buildOutput(cfg.Output)
	if err != nil {
		cat.Close()
		return err
	}

	p := pipeline.New(ctor(), cfg.ConnectorConfig(), cat, out, pipeline.Options{
		Service:    cfg.ServiceName(),
		Workers:    cfg.Pipeline.Workers,
		SkipUsage:  cfg.Pipeline.SkipUsage,
		Dashboards: dashboards,
		Charts:     charts,
	})
	defer shutdown(p, cfg.Pipeline.ShutdownTimeout)

	// Set up graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig.String())
		cancel()
	}()

	if cfg.Pipeline.Interval > 0 {
		slog.Info("starting", "interval", cfg.Pipeline.Interval.String())
		if err := p.Stream(ctx, cfg.Pipeline.Interval, today); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	sum, err := p.Run(ctx, today())
	if err != nil {
		return err
	}
	if r.Strict && !sum.OK() {
		return &problemsError{sum: sum}
	}
	return nil
}

// shutdown closes the pipeline, giving up after timeout.
func shutdown(p *pipeline.Pipeline, timeout time.Duration) {
	done := make(chan error, 1)
	go func() { done <- p.Close() }()
	select {
	case err := <-done:
		if err != nil {
			slog.Warn("close failed", "error", err)
		}
	case <-time.After(timeout):
		slog.Warn("shutdown timed out", "timeout", timeout.String())
	}
}

// ProvidersCmd prints what this binary can talk to.
type ProvidersCmd struct{}

func (ProvidersCmd) Execute([]string) error {
	fmt.Println("connectors:")
	for _, name := range connector.Providers() {
		fmt.Println("  " + name)
	}
	fmt.Println("catalogs:")
	for _, name := range catalog.Backends() {
		fmt.Println("  " + name)
	}
	return nil
}
