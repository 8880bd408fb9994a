package connector

import (
	"context"
	"fmt"
	"strings"

	"github.com/crimson-sun/lookout/internal/model"
	"github.com/crimson-sun/lookout/internal/usage"
)

// Connector defines the interface all BI source connectors must implement.
type Connector interface {
	// Dashboards lists every dashboard the source exposes, charts inlined.
	Dashboards(ctx context.Context, cfg ConnectorConfig) ([]model.Dashboard, error)

	// ViewCount returns the cumulative view count of one dashboard as of now.
	// Transport failures wrap usage.ErrSourceUnavailable.
	ViewCount(ctx context.Context, cfg ConnectorConfig, dashboardID string) (int64, error)
}

// ConnectorConfig holds provider-specific connection settings.
type ConnectorConfig struct {
	Provider  string
	APIKey    string
	Endpoint  string
	Site      string
	PageSize  int
	RateLimit float64 // requests per second, 0 = unlimited
	Extra     map[string]string
}

// BaseURL returns the configured endpoint without a trailing slash, or
// fallback when none is set.
func (c ConnectorConfig) BaseURL(fallback string) string {
	if c.Endpoint == "" {
		return fallback
	}
	return strings.TrimRight(c.Endpoint, "/")
}

// PageSizeOr returns the configured page size, or fallback when unset.
func (c ConnectorConfig) PageSizeOr(fallback int) int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return fallback
}

// Unavailable marks err as a source outage for provider.
func Unavailable(provider string, err error) error {
	return fmt.Errorf("%s connector: %w: %w", provider, usage.ErrSourceUnavailable, err)
}
