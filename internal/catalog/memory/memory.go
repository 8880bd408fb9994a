// Package memory is an in-process catalog backend for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/crimson-sun/lookout/internal/catalog"
	"github.com/crimson-sun/lookout/internal/model"
	"github.com/crimson-sun/lookout/internal/usage"
)

func init() {
	catalog.Register("memory", func(catalog.Config) (catalog.Catalog, error) {
		return New(), nil
	})
}

// Catalog keeps entities and usage in maps. Safe for concurrent use.
type Catalog struct {
	mu         sync.Mutex
	charts     map[string]model.CreateChartRequest
	dashboards map[string]model.CreateDashboardRequest // by ID
	byFQN      map[string]model.DashboardRef
	summaries  map[string]model.PersistedUsageSummary // by dashboard ID
	events     []model.UsageEvent
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{
		charts:     make(map[string]model.CreateChartRequest),
		dashboards: make(map[string]model.CreateDashboardRequest),
		byFQN:      make(map[string]model.DashboardRef),
		summaries:  make(map[string]model.PersistedUsageSummary),
	}
}

func (c *Catalog) PutChart(_ context.Context, req model.CreateChartRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.charts[catalog.ChartKey(req)] = req
	return nil
}

func (c *Catalog) PutDashboard(_ context.Context, req model.CreateDashboardRequest) (model.DashboardRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := catalog.DashboardKey(req)
	ref, ok := c.byFQN[key]
	if !ok {
		ref = model.DashboardRef{ID: uuid.NewString(), FQN: key}
		c.byFQN[key] = ref
	}
	c.dashboards[ref.ID] = req
	return ref, nil
}

func (c *Catalog) Resolve(_ context.Context, fqn string) (model.DashboardRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.byFQN[fqn]
	if !ok {
		return model.DashboardRef{}, fmt.Errorf("resolve %q: %w", fqn, usage.ErrDashboardNotFound)
	}
	return ref, nil
}

// PersistedUsage fails with usage.ErrDashboardNotFound for a dashboard never
// put, and returns a nil summary before the first RecordUsage.
func (c *Catalog) PersistedUsage(_ context.Context, ref model.DashboardRef) (*model.PersistedUsageSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dashboards[ref.ID]; !ok {
		return nil, fmt.Errorf("usage of %q: %w", ref.FQN, usage.ErrDashboardNotFound)
	}
	s, ok := c.summaries[ref.ID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (c *Catalog) RecordUsage(_ context.Context, ev model.UsageEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dashboards[ev.Dashboard.ID]; !ok {
		return fmt.Errorf("record usage of %q: %w", ev.Dashboard.FQN, usage.ErrDashboardNotFound)
	}
	c.summaries[ev.Dashboard.ID] = ev.Summary()
	c.events = append(c.events, ev)
	return nil
}

// SetSummary seeds a usage summary, as if recorded by an earlier run.
func (c *Catalog) SetSummary(ref model.DashboardRef, s model.PersistedUsageSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[ref.ID] = s
}

// Events returns a copy of every recorded usage event.
func (c *Catalog) Events() []model.UsageEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]model.UsageEvent, len(c.events))
	copy(cp, c.events)
	return cp
}

// Charts returns the number of stored charts.
func (c *Catalog) Charts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.charts)
}

func (c *Catalog) Close() error { return nil }
