// Package catalog defines the metadata catalog the connector writes to and
// reads usage history from, plus a registry of backends.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/crimson-sun/lookout/internal/fqn"
	"github.com/crimson-sun/lookout/internal/model"
)

// Catalog stores dashboard and chart entities and their usage summaries.
// Lookups of unknown dashboards return usage.ErrDashboardNotFound.
type Catalog interface {
	PutChart(ctx context.Context, req model.CreateChartRequest) error
	PutDashboard(ctx context.Context, req model.CreateDashboardRequest) (model.DashboardRef, error)

	// Resolve returns the catalog identity of the dashboard named fqn.
	Resolve(ctx context.Context, fqn string) (model.DashboardRef, error)

	// PersistedUsage returns the last usage summary, or nil without history.
	PersistedUsage(ctx context.Context, ref model.DashboardRef) (*model.PersistedUsageSummary, error)

	RecordUsage(ctx context.Context, ev model.UsageEvent) error
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend  string // "rest", "sqlite", "redis", "memory"
	Endpoint string
	Token    string
	Path     string // sqlite database file
	Redis    RedisConfig
	Timeout  time.Duration
}

// RedisConfig holds redis backend settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Opener creates a backend from config.
type Opener func(cfg Config) (Catalog, error)

var backends = map[string]Opener{}

// Register adds a backend under name.
func Register(name string, open Opener) {
	backends[name] = open
}

// Open creates the backend named by cfg.Backend.
func Open(cfg Config) (Catalog, error) {
	open, ok := backends[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown catalog backend: %s", cfg.Backend)
	}
	return open(cfg)
}

// Backends returns the names of all registered backends, sorted.
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DashboardKey is the FQN a dashboard request is stored under.
func DashboardKey(req model.CreateDashboardRequest) string {
	return fqn.Build(req.Service, req.Name)
}

// ChartKey is the FQN a chart request is stored under.
func ChartKey(req model.CreateChartRequest) string {
	return fqn.Build(req.Service, req.Name)
}
