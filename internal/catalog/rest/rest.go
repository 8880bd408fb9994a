// Package rest is a catalog backend talking to a metadata service over its
// REST API.
package rest

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"cloud.google.com/go/civil"

	"github.com/crimson-sun/lookout/internal/catalog"
	"github.com/crimson-sun/lookout/internal/connector/httpclient"
	"github.com/crimson-sun/lookout/internal/model"
	"github.com/crimson-sun/lookout/internal/usage"
)

func init() {
	catalog.Register("rest", func(cfg catalog.Config) (catalog.Catalog, error) {
		if cfg.Endpoint == "" {
			return nil, errors.New("rest catalog: missing endpoint")
		}
		var opts []httpclient.Option
		if cfg.Timeout > 0 {
			opts = append(opts, httpclient.WithTimeout(cfg.Timeout))
		}
		return New(httpclient.New(cfg.Endpoint, cfg.Token, opts...)), nil
	})
}

// Client is a REST catalog.
type Client struct {
	http *httpclient.Client
}

// New wraps an HTTP client pointed at the service's API root.
func New(c *httpclient.Client) *Client {
	return &Client{http: c}
}

type dashboardEntity struct {
	ID           string        `json:"id"`
	FQN          string        `json:"fullyQualifiedName"`
	UsageSummary *usageDetails `json:"usageSummary,omitempty"`
}

type usageDetails struct {
	DailyStats usageStats      `json:"dailyStats"`
	Date       civil.Date      `json:"date"`
	Extension  *usageExtension `json:"extension,omitempty"`
}

type usageStats struct {
	Count int64 `json:"count"`
}

type usageRequest struct {
	Date      civil.Date      `json:"date"`
	Count     int64           `json:"count"`
	Extension *usageExtension `json:"extension,omitempty"`
}

// usageExtension rides along with the increment so the next run diffs
// against the source total rather than the service's daily count.
type usageExtension struct {
	CumulativeCount int64 `json:"cumulativeCount"`
}

func (c *Client) PutChart(ctx context.Context, req model.CreateChartRequest) error {
	if err := c.http.PutJSON(ctx, "/v1/charts", req, nil); err != nil {
		return fmt.Errorf("rest catalog: put chart %s: %w", req.Name, err)
	}
	return nil
}

func (c *Client) PutDashboard(ctx context.Context, req model.CreateDashboardRequest) (model.DashboardRef, error) {
	var ent dashboardEntity
	if err := c.http.PutJSON(ctx, "/v1/dashboards", req, &ent); err != nil {
		return model.DashboardRef{}, fmt.Errorf("rest catalog: put dashboard %s: %w", req.Name, err)
	}
	return model.DashboardRef{ID: ent.ID, FQN: ent.FQN}, nil
}

func notFound(what string, err error) error {
	if httpclient.IsNotFound(err) {
		return fmt.Errorf("%s: %w", what, usage.ErrDashboardNotFound)
	}
	return fmt.Errorf("rest catalog: %s: %w", what, err)
}

func (c *Client) Resolve(ctx context.Context, fqn string) (model.DashboardRef, error) {
	var ent dashboardEntity
	if err := c.http.GetJSON(ctx, "/v1/dashboards/name/"+url.PathEscape(fqn), nil, &ent); err != nil {
		return model.DashboardRef{}, notFound(fmt.Sprintf("resolve %q", fqn), err)
	}
	return model.DashboardRef{ID: ent.ID, FQN: ent.FQN}, nil
}

// PersistedUsage maps a 404 to usage.ErrDashboardNotFound and a missing
// usageSummary to a nil summary. The day's count is the cumulative total
// from the summary extension, or dailyStats.count when the service dropped it.
func (c *Client) PersistedUsage(ctx context.Context, ref model.DashboardRef) (*model.PersistedUsageSummary, error) {
	q := url.Values{}
	q.Set("fields", "usageSummary")
	var ent dashboardEntity
	if err := c.http.GetJSON(ctx, "/v1/dashboards/"+url.PathEscape(ref.ID), q, &ent); err != nil {
		return nil, notFound(fmt.Sprintf("usage of %q", ref.FQN), err)
	}
	if ent.UsageSummary == nil {
		return nil, nil
	}
	sum := &model.PersistedUsageSummary{
		Date:       ent.UsageSummary.Date,
		DailyCount: ent.UsageSummary.DailyStats.Count,
	}
	if ext := ent.UsageSummary.Extension; ext != nil {
		sum.DailyCount = ext.CumulativeCount
	}
	return sum, nil
}

// RecordUsage reports the incremental count as the day's usage. The source
// total goes in the extension, since the service's dailyStats.count holds
// the increment and cannot serve as the next day's baseline.
func (c *Client) RecordUsage(ctx context.Context, ev model.UsageEvent) error {
	body := usageRequest{
		Date:      ev.Date,
		Count:     ev.Count,
		Extension: &usageExtension{CumulativeCount: ev.Cumulative},
	}
	if err := c.http.PutJSON(ctx, "/v1/usage/dashboard/"+url.PathEscape(ev.Dashboard.ID), body, nil); err != nil {
		return notFound(fmt.Sprintf("record usage of %q", ev.Dashboard.FQN), err)
	}
	return nil
}

func (c *Client) Close() error { return nil }
