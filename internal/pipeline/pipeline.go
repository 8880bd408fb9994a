package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/lookout/internal/catalog"
	"github.com/crimson-sun/lookout/internal/connector"
	"github.com/crimson-sun/lookout/internal/filter"
	"github.com/crimson-sun/lookout/internal/mapping"
	"github.com/crimson-sun/lookout/internal/model"
	"github.com/crimson-sun/lookout/internal/output"
	"github.com/crimson-sun/lookout/internal/usage"
)

const defaultWorkers = 4

// Options tunes a Pipeline. The zero value ingests every dashboard and chart
// with the default worker count.
type Options struct {
	Service    string          // catalog service name, first FQN part
	Workers    int             // dashboards processed concurrently
	SkipUsage  bool            // ingest entities only
	Dashboards *filter.Pattern // matched against dashboard names
	Charts     *filter.Pattern // matched against chart names
}

// Pipeline ingests dashboards from a BI connector into a catalog and
// reconciles their view counts into daily usage events.
type Pipeline struct {
	connector connector.Connector
	cfg       connector.ConnectorConfig
	catalog   catalog.Catalog
	output    output.Output
	opts      Options
}

// New creates a Pipeline from the given components.
func New(conn connector.Connector, cfg connector.ConnectorConfig, cat catalog.Catalog, out output.Output, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Service == "" {
		opts.Service = cfg.Provider
	}
	return &Pipeline{
		connector: conn,
		cfg:       cfg,
		catalog:   cat,
		output:    out,
		opts:      opts,
	}
}

// Run performs one ingestion pass for today. A listing failure aborts the
// run; every other error is scoped to its dashboard and reported as a
// Failure result while the batch continues.
func (p *Pipeline) Run(ctx context.Context, today civil.Date) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), Date: today}
	start := time.Now()

	dashboards, err := p.connector.Dashboards(ctx, p.cfg)
	if err != nil {
		return sum, fmt.Errorf("pipeline list dashboards: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for _, d := range dashboards {
		if !p.opts.Dashboards.Match(d.Name) {
			slog.Debug("dashboard filtered out", "dashboard", d.Name, "id", d.ID)
			continue
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			res, ok := p.process(gctx, today, d)
			if !ok {
				mu.Lock()
				sum.Total++
				mu.Unlock()
				return nil
			}
			p.report(gctx, sum.RunID, res)
			mu.Lock()
			sum.add(res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, fmt.Errorf("pipeline run: %w", err)
	}

	slog.Info("run complete",
		"run_id", sum.RunID,
		"date", today.String(),
		"dashboards", sum.Total,
		"events", sum.Events,
		"no_events", sum.NoEvents,
		"anomalies", sum.Anomalies,
		"failures", sum.Failures,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return sum, nil
}

// process ingests one dashboard and reconciles its usage. ok is false when
// there is no result to report: entities were ingested with usage disabled.
func (p *Pipeline) process(ctx context.Context, today civil.Date, d model.Dashboard) (usage.Result, bool) {
	name := mapping.DashboardFQN(p.opts.Service, d)
	res := usage.Result{Dashboard: name, SourceID: d.ID}

	charts := mapping.ChartRequests(p.opts.Service, d, p.opts.Charts)
	for _, c := range charts {
		if err := p.catalog.PutChart(ctx, c); err != nil {
			res.Outcome = usage.Failure(fmt.Errorf("put chart %q: %w", c.Name, err))
			return res, true
		}
	}
	if _, err := p.catalog.PutDashboard(ctx, mapping.DashboardRequest(p.opts.Service, d, charts)); err != nil {
		res.Outcome = usage.Failure(fmt.Errorf("put dashboard: %w", err))
		return res, true
	}
	if p.opts.SkipUsage {
		return res, false
	}

	count, err := p.connector.ViewCount(ctx, p.cfg, d.ID)
	if err != nil {
		res.Outcome = usage.Failure(err)
		return res, true
	}
	ref, err := p.catalog.Resolve(ctx, name)
	if err != nil {
		res.Outcome = usage.Failure(err)
		return res, true
	}
	res.Ref = ref
	persisted, err := p.catalog.PersistedUsage(ctx, ref)
	if err != nil {
		res.Outcome = usage.Failure(err)
		return res, true
	}

	res.Outcome = usage.Reconcile(today, model.UsageSnapshot{DashboardID: d.ID, ViewCount: count}, persisted)
	if ev, ok := res.Outcome.UsageEvent(ref); ok {
		if err := p.catalog.RecordUsage(ctx, ev); err != nil {
			res.Outcome = usage.Failure(fmt.Errorf("record usage: %w", err))
		}
	}
	return res, true
}

// report logs problems and hands the result to the output. Output errors
// are logged; they do not fail the dashboard.
func (p *Pipeline) report(ctx context.Context, runID string, res usage.Result) {
	switch res.Outcome.Kind {
	case usage.KindAnomaly:
		attrs := []any{"run_id", runID, "dashboard", res.Dashboard}
		if ae, ok := res.Outcome.Anomaly(); ok {
			attrs = append(attrs, "previous", ae.Previous, "current", ae.Current, "previous_date", ae.PreviousDate.String())
		}
		slog.Warn("usage anomaly", attrs...)
	case usage.KindFailure:
		slog.Warn("dashboard failed",
			"run_id", runID,
			"dashboard", res.Dashboard,
			"lookup", usage.IsLookupFailure(res.Outcome.Err),
			"error", res.Outcome.Err,
		)
	}
	if err := p.output.Write(ctx, res); err != nil {
		slog.Warn("output write failed", "dashboard", res.Dashboard, "error", err)
	}
}

// Stream runs once immediately and then every interval until ctx is
// cancelled. today is asked for the date at the start of each run. Run
// errors are logged and the loop keeps going.
func (p *Pipeline) Stream(ctx context.Context, interval time.Duration, today func() civil.Date) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.Run(ctx, today()); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close shuts down the output and the catalog.
func (p *Pipeline) Close() error {
	oerr := p.output.Close()
	cerr := p.catalog.Close()
	if oerr != nil {
		return oerr
	}
	return cerr
}
