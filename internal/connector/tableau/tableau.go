package tableau

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/crimson-sun/lookout/internal/connector"
	"github.com/crimson-sun/lookout/internal/connector/httpclient"
	"github.com/crimson-sun/lookout/internal/model"
)

const (
	provider          = "tableau"
	defaultAPIVersion = "3.19"
	defaultPageSize   = 100
	chartTypeOther    = "Other"
)

func init() {
	connector.Register(provider, func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector for the Tableau REST API.
// Workbooks map to dashboards and their views to charts. Calls made with the
// same config share one session, and with it one rate limiter.
type Connector struct {
	sessions connector.Cache[*session]
}

// Response types (unexported). Tableau encodes numbers as strings.

type pagination struct {
	PageNumber     string `json:"pageNumber"`
	PageSize       string `json:"pageSize"`
	TotalAvailable string `json:"totalAvailable"`
}

type workbooksResponse struct {
	Pagination pagination `json:"pagination"`
	Workbooks  struct {
		Workbook []workbook `json:"workbook"`
	} `json:"workbooks"`
}

type workbook struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ContentURL  string  `json:"contentUrl"`
	WebpageURL  string  `json:"webpageUrl"`
	Project     *named  `json:"project"`
	Owner       *owner  `json:"owner"`
	Tags        tagList `json:"tags"`
}

type viewsResponse struct {
	Views struct {
		View []view `json:"view"`
	} `json:"views"`
}

type view struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	ContentURL  string     `json:"contentUrl"`
	ViewURLName string     `json:"viewUrlName"`
	SheetType   string     `json:"sheetType"`
	Usage       *viewUsage `json:"usage"`
	Tags        tagList    `json:"tags"`
}

type viewUsage struct {
	TotalViewCount string `json:"totalViewCount"`
}

type named struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type tagList struct {
	Tag []tag `json:"tag"`
}

type tag struct {
	Label string `json:"label"`
}

func (t tagList) labels() []string {
	if len(t.Tag) == 0 {
		return nil
	}
	out := make([]string, 0, len(t.Tag))
	for _, tag := range t.Tag {
		out = append(out, tag.Label)
	}
	return out
}

type session struct {
	client  *httpclient.Client
	base    string
	siteID  string
	siteURL string
	version string
}

func newSession(cfg connector.ConnectorConfig) (*session, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("tableau connector: missing endpoint")
	}
	if cfg.Site == "" {
		return nil, fmt.Errorf("tableau connector: missing site")
	}
	base := cfg.BaseURL("")
	s := &session{
		client: httpclient.New(base, cfg.APIKey,
			httpclient.WithAuthHeader("X-Tableau-Auth", ""),
			httpclient.WithRateLimit(cfg.RateLimit, 1)),
		base:    base,
		siteID:  cfg.Site,
		siteURL: cfg.Extra["site_url"],
		version: cfg.Extra["api_version"],
	}
	if s.siteURL == "" {
		s.siteURL = cfg.Site
	}
	if s.version == "" {
		s.version = defaultAPIVersion
	}
	return s, nil
}

func (s *session) sitePath() string {
	return "/api/" + s.version + "/sites/" + url.PathEscape(s.siteID)
}

func (s *session) views(ctx context.Context, workbookID string) ([]view, error) {
	q := url.Values{}
	q.Set("includeUsageStatistics", "true")
	var resp viewsResponse
	path := s.sitePath() + "/workbooks/" + url.PathEscape(workbookID) + "/views"
	if err := s.client.GetJSON(ctx, path, q, &resp); err != nil {
		return nil, err
	}
	return resp.Views.View, nil
}

// chartURL builds <host>/#/site/<site>/views/<workbook>/<view>. The workbook
// segment is the first element of the view's content URL.
func (s *session) chartURL(v view) string {
	workbookURL, _, _ := strings.Cut(v.ContentURL, "/")
	return s.base + "/#/site/" + s.siteURL + "/views/" + workbookURL + "/" + v.ViewURLName
}

func toChart(s *session, v view) model.Chart {
	return model.Chart{
		ID:        v.ID,
		Name:      v.Name,
		ChartType: chartTypeOther,
		SourceURL: s.chartURL(v),
		Tags:      v.Tags.labels(),
	}
}

func toDashboard(s *session, wb workbook, views []view) model.Dashboard {
	d := model.Dashboard{
		ID:          wb.ID,
		Name:        wb.Name,
		Description: wb.Description,
		Tags:        wb.Tags.labels(),
		ViewCount:   totalViews(views),
	}
	if wb.WebpageURL != "" {
		d.SourceURL = wb.WebpageURL + "/views"
	}
	if wb.Project != nil {
		d.Project = wb.Project.Name
	}
	if wb.Owner != nil {
		d.Owner = &model.Owner{ID: wb.Owner.ID, Name: wb.Owner.Name, Email: wb.Owner.Email}
	}
	for _, v := range views {
		d.Charts = append(d.Charts, toChart(s, v))
	}
	return d
}

// totalViews sums per-view cumulative counts. Unparseable counts are skipped.
func totalViews(views []view) int64 {
	var total int64
	for _, v := range views {
		if v.Usage == nil {
			continue
		}
		if n, err := strconv.ParseInt(v.Usage.TotalViewCount, 10, 64); err == nil && n > 0 {
			total += n
		}
	}
	return total
}

func (c *Connector) Dashboards(ctx context.Context, cfg connector.ConnectorConfig) ([]model.Dashboard, error) {
	s, err := c.sessions.Get(cfg, newSession)
	if err != nil {
		return nil, err
	}
	pageSize := cfg.PageSizeOr(defaultPageSize)

	var results []model.Dashboard
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("pageSize", strconv.Itoa(pageSize))
		q.Set("pageNumber", strconv.Itoa(page))

		var resp workbooksResponse
		if err := s.client.GetJSON(ctx, s.sitePath()+"/workbooks", q, &resp); err != nil {
			return nil, fmt.Errorf("tableau connector: list workbooks: %w", err)
		}

		for _, wb := range resp.Workbooks.Workbook {
			views, err := s.views(ctx, wb.ID)
			if err != nil {
				return nil, fmt.Errorf("tableau connector: views of %s: %w", wb.ID, err)
			}
			results = append(results, toDashboard(s, wb, views))
		}

		total, _ := strconv.Atoi(resp.Pagination.TotalAvailable)
		if len(resp.Workbooks.Workbook) == 0 || page*pageSize >= total {
			break
		}
	}
	return results, nil
}

func (c *Connector) ViewCount(ctx context.Context, cfg connector.ConnectorConfig, dashboardID string) (int64, error) {
	s, err := c.sessions.Get(cfg, newSession)
	if err != nil {
		return 0, err
	}
	views, err := s.views(ctx, dashboardID)
	if err != nil {
		return 0, connector.Unavailable(provider, err)
	}
	return totalViews(views), nil
}
