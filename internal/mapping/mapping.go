// Package mapping turns source dashboards into catalog creation requests.
package mapping

import (
	"github.com/crimson-sun/lookout/internal/filter"
	"github.com/crimson-sun/lookout/internal/fqn"
	"github.com/crimson-sun/lookout/internal/model"
)

// DashboardFQN is the catalog name of a source dashboard.
func DashboardFQN(service string, d model.Dashboard) string {
	return fqn.Build(service, d.ID)
}

// ChartRequests returns one request per chart whose name passes charts.
func ChartRequests(service string, d model.Dashboard, charts *filter.Pattern) []model.CreateChartRequest {
	var out []model.CreateChartRequest
	for _, c := range d.Charts {
		if !charts.Match(c.Name) {
			continue
		}
		out = append(out, model.CreateChartRequest{
			Name:        c.ID,
			DisplayName: c.Name,
			Description: c.Description,
			ChartType:   c.ChartType,
			SourceURL:   c.SourceURL,
			Tags:        c.Tags,
			Service:     service,
		})
	}
	return out
}

// DashboardRequest builds the dashboard request referencing the given charts.
func DashboardRequest(service string, d model.Dashboard, charts []model.CreateChartRequest) model.CreateDashboardRequest {
	refs := make([]string, 0, len(charts))
	for _, c := range charts {
		refs = append(refs, fqn.Build(service, c.Name))
	}
	req := model.CreateDashboardRequest{
		Name:        d.ID,
		DisplayName: d.Name,
		Description: d.Description,
		SourceURL:   d.SourceURL,
		Project:     d.Project,
		Charts:      refs,
		Tags:        d.Tags,
		Service:     service,
	}
	if d.Owner != nil {
		switch {
		case d.Owner.Email != "":
			req.Owners = []string{d.Owner.Email}
		case d.Owner.Name != "":
			req.Owners = []string{d.Owner.Name}
		}
	}
	return req
}
