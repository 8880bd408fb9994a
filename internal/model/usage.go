package model

import "cloud.google.com/go/civil"

// UsageSnapshot is the source's cumulative view count at extraction time.
type UsageSnapshot struct {
	DashboardID string
	ViewCount   int64
}

// PersistedUsageSummary is the cumulative count last recorded for a dashboard
// on a given calendar day.
type PersistedUsageSummary struct {
	Date       civil.Date
	DailyCount int64
}

// UsageEvent is the incremental view count to persist for Date.
type UsageEvent struct {
	Dashboard DashboardRef
	Date      civil.Date
	Count     int64
	// Cumulative is the source total the increment was derived from. Stores
	// persist it as the day's summary so the next day's diff has a baseline.
	Cumulative int64
}

// Summary returns the persisted summary a store keeps after recording e.
func (e UsageEvent) Summary() PersistedUsageSummary {
	return PersistedUsageSummary{Date: e.Date, DailyCount: e.Cumulative}
}
