// Package catalogtest holds behavior tests every catalog backend must pass.
package catalogtest

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/lookout/internal/catalog"
	"github.com/crimson-sun/lookout/internal/model"
	"github.com/crimson-sun/lookout/internal/usage"
)

// Regional is the dashboard request the suite stores.
func Regional() model.CreateDashboardRequest {
	return model.CreateDashboardRequest{
		Name:        "42a5b706",
		DisplayName: "Regional",
		Charts:      []string{"tableau.b05695a2"},
		Service:     "tableau",
	}
}

// Run exercises a catalog backend. open must return an empty catalog.
func Run(t *testing.T, open func(t *testing.T) catalog.Catalog) {
	t.Run("Resolve unknown", func(t *testing.T) {
		c := open(t)
		_, err := c.Resolve(context.Background(), "tableau.missing")
		assert.ErrorIs(t, err, usage.ErrDashboardNotFound)
	})

	t.Run("Put and resolve", func(t *testing.T) {
		c := open(t)
		ctx := context.Background()

		require.NoError(t, c.PutChart(ctx, model.CreateChartRequest{Name: "b05695a2", ChartType: "Other", Service: "tableau"}))
		ref, err := c.PutDashboard(ctx, Regional())
		require.NoError(t, err)
		assert.NotEmpty(t, ref.ID)
		assert.Equal(t, "tableau.42a5b706", ref.FQN)

		got, err := c.Resolve(ctx, "tableau.42a5b706")
		require.NoError(t, err)
		assert.Equal(t, ref, got)

		// Re-putting keeps the identity.
		again, err := c.PutDashboard(ctx, Regional())
		require.NoError(t, err)
		assert.Equal(t, ref.ID, again.ID)
	})

	t.Run("Usage round trip", func(t *testing.T) {
		c := open(t)
		ctx := context.Background()

		ref, err := c.PutDashboard(ctx, Regional())
		require.NoError(t, err)

		summary, err := c.PersistedUsage(ctx, ref)
		require.NoError(t, err)
		assert.Nil(t, summary, "fresh dashboard has no history")

		day := civil.Date{Year: 2024, Month: 3, Day: 14}
		require.NoError(t, c.RecordUsage(ctx, model.UsageEvent{Dashboard: ref, Date: day, Count: 5, Cumulative: 5}))
		summary, err = c.PersistedUsage(ctx, ref)
		require.NoError(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, model.PersistedUsageSummary{Date: day, DailyCount: 5}, *summary)

		next := day.AddDays(1)
		require.NoError(t, c.RecordUsage(ctx, model.UsageEvent{Dashboard: ref, Date: next, Count: 3, Cumulative: 8}))
		summary, err = c.PersistedUsage(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, model.PersistedUsageSummary{Date: next, DailyCount: 8}, *summary)
	})

	t.Run("Record for unknown dashboard", func(t *testing.T) {
		c := open(t)
		ev := model.UsageEvent{
			Dashboard: model.DashboardRef{ID: "nope", FQN: "tableau.nope"},
			Date:      civil.Date{Year: 2024, Month: 3, Day: 14},
			Count:     1,
		}
		assert.ErrorIs(t, c.RecordUsage(context.Background(), ev), usage.ErrDashboardNotFound)

		_, err := c.PersistedUsage(context.Background(), ev.Dashboard)
		assert.ErrorIs(t, err, usage.ErrDashboardNotFound)
	})
}
