package metabase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/crimson-sun/lookout/internal/connector"
	"github.com/crimson-sun/lookout/internal/connector/httpclient"
	"github.com/crimson-sun/lookout/internal/model"
)

const provider = "metabase"

func init() {
	connector.Register(provider, func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector for the Metabase REST API.
// Dashboards carry a cumulative view_count; dashcards map to charts. Calls
// made with the same config share one client, and with it one rate limiter.
type Connector struct {
	clients connector.Cache[*api]
}

type api struct {
	client *httpclient.Client
	base   string
}

// Response types (unexported).

type dashboardSummary struct {
	ID int `json:"id"`
}

type dashboardDetail struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	ViewCount    int64       `json:"view_count"`
	Archived     bool        `json:"archived"`
	Collection   *collection `json:"collection"`
	Creator      *creator    `json:"creator"`
	Dashcards    []dashcard  `json:"dashcards"`
	OrderedCards []dashcard  `json:"ordered_cards"` // before 0.47
}

type collection struct {
	Name string `json:"name"`
}

type creator struct {
	ID         int    `json:"id"`
	CommonName string `json:"common_name"`
	Email      string `json:"email"`
}

type dashcard struct {
	ID   int   `json:"id"`
	Card *card `json:"card"`
}

type card struct {
	ID          *int   `json:"id"` // nil for text and heading cards
	Name        string `json:"name"`
	Description string `json:"description"`
	Display     string `json:"display"`
}

var chartTypes = map[string]string{
	"area":    "Area",
	"bar":     "Bar",
	"row":     "Bar",
	"line":    "Line",
	"pie":     "Pie",
	"table":   "Table",
	"pivot":   "Table",
	"scalar":  "Text",
	"scatter": "Scatter",
}

func chartType(display string) string {
	if t, ok := chartTypes[display]; ok {
		return t
	}
	return "Other"
}

func toDashboard(base string, d dashboardDetail) model.Dashboard {
	id := strconv.Itoa(d.ID)
	out := model.Dashboard{
		ID:          id,
		Name:        d.Name,
		Description: d.Description,
		SourceURL:   base + "/dashboard/" + id,
		ViewCount:   d.ViewCount,
	}
	if d.Collection != nil {
		out.Project = d.Collection.Name
	}
	if d.Creator != nil {
		out.Owner = &model.Owner{ID: strconv.Itoa(d.Creator.ID), Name: d.Creator.CommonName, Email: d.Creator.Email}
	}

	cards := d.Dashcards
	if len(cards) == 0 {
		cards = d.OrderedCards
	}
	for _, dc := range cards {
		if dc.Card == nil || dc.Card.ID == nil {
			continue
		}
		cardID := strconv.Itoa(*dc.Card.ID)
		out.Charts = append(out.Charts, model.Chart{
			ID:          cardID,
			Name:        dc.Card.Name,
			Description: dc.Card.Description,
			ChartType:   chartType(dc.Card.Display),
			SourceURL:   base + "/question/" + cardID,
		})
	}
	return out
}

func newAPI(cfg connector.ConnectorConfig) (*api, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("metabase connector: missing endpoint")
	}
	base := cfg.BaseURL("")
	client := httpclient.New(base, cfg.APIKey,
		httpclient.WithAuthHeader("X-API-KEY", ""),
		httpclient.WithRateLimit(cfg.RateLimit, 1))
	return &api{client: client, base: base}, nil
}

func detail(ctx context.Context, client *httpclient.Client, id string) (dashboardDetail, error) {
	var d dashboardDetail
	err := client.GetJSON(ctx, "/api/dashboard/"+id, nil, &d)
	return d, err
}

func (c *Connector) Dashboards(ctx context.Context, cfg connector.ConnectorConfig) ([]model.Dashboard, error) {
	a, err := c.clients.Get(cfg, newAPI)
	if err != nil {
		return nil, err
	}
	client, base := a.client, a.base

	var list []dashboardSummary
	if err := client.GetJSON(ctx, "/api/dashboard", nil, &list); err != nil {
		return nil, fmt.Errorf("metabase connector: list dashboards: %w", err)
	}

	results := make([]model.Dashboard, 0, len(list))
	for _, s := range list {
		d, err := detail(ctx, client, strconv.Itoa(s.ID))
		if err != nil {
			return nil, fmt.Errorf("metabase connector: dashboard %d: %w", s.ID, err)
		}
		if d.Archived {
			continue
		}
		results = append(results, toDashboard(base, d))
	}
	return results, nil
}

func (c *Connector) ViewCount(ctx context.Context, cfg connector.ConnectorConfig, dashboardID string) (int64, error) {
	a, err := c.clients.Get(cfg, newAPI)
	if err != nil {
		return 0, err
	}
	d, err := detail(ctx, a.client, dashboardID)
	if err != nil {
		return 0, connector.Unavailable(provider, err)
	}
	return d.ViewCount, nil
}
