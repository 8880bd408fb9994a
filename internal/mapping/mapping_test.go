package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/lookout/internal/filter"
	"github.com/crimson-sun/lookout/internal/model"
)

func regional() model.Dashboard {
	return model.Dashboard{
		ID:          "42a5b706-739d-4d62-94a2-faedf33950a5",
		Name:        "Regional",
		Description: "tableau dashboard description",
		SourceURL:   "http://tableauHost.com/#/site/hidarsite/workbooks/897790/views",
		Owner:       &model.Owner{ID: "1234", Name: "Dashboard Owner", Email: "samplemail@sample.com"},
		Charts: []model.Chart{
			{ID: "b05695a2", Name: "Obesity", ChartType: "Other", SourceURL: "http://tableauHost.com/#/site/s/views/Regional/Obesity"},
			{ID: "106ff64d", Name: "College", ChartType: "Other"},
		},
	}
}

func TestChartRequests(t *testing.T) {
	got := ChartRequests("tableau_source_test", regional(), nil)

	require.Len(t, got, 2)
	assert.Equal(t, model.CreateChartRequest{
		Name:        "b05695a2",
		DisplayName: "Obesity",
		ChartType:   "Other",
		SourceURL:   "http://tableauHost.com/#/site/s/views/Regional/Obesity",
		Service:     "tableau_source_test",
	}, got[0])
}

func TestChartRequests_Filtered(t *testing.T) {
	p, err := filter.New(nil, []string{"^College$"})
	require.NoError(t, err)

	got := ChartRequests("svc", regional(), p)
	require.Len(t, got, 1)
	assert.Equal(t, "Obesity", got[0].DisplayName)
}

func TestDashboardRequest(t *testing.T) {
	d := regional()
	charts := ChartRequests("tableau_source_test", d, nil)

	got := DashboardRequest("tableau_source_test", d, charts)

	assert.Equal(t, "42a5b706-739d-4d62-94a2-faedf33950a5", got.Name)
	assert.Equal(t, "Regional", got.DisplayName)
	assert.Equal(t, []string{"tableau_source_test.b05695a2", "tableau_source_test.106ff64d"}, got.Charts)
	assert.Equal(t, []string{"samplemail@sample.com"}, got.Owners)
	assert.Equal(t, "tableau_source_test", got.Service)
	assert.Equal(t, "tableau_source_test.42a5b706-739d-4d62-94a2-faedf33950a5", DashboardFQN("tableau_source_test", d))
}

func TestDashboardRequest_OwnerFallbacks(t *testing.T) {
	d := regional()
	d.Owner = &model.Owner{Name: "Only Name"}
	assert.Equal(t, []string{"Only Name"}, DashboardRequest("svc", d, nil).Owners)

	d.Owner = nil
	got := DashboardRequest("svc", d, nil)
	assert.Nil(t, got.Owners)
	assert.Empty(t, got.Charts)
}
