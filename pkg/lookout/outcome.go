package lookout

import "cloud.google.com/go/civil"

// Kind tells which decision a reconciliation reached.
type Kind string

const (
	NoEvent Kind = "no_event"
	Event   Kind = "event"
	Anomaly Kind = "anomaly"
	Failure Kind = "failure"
)

// Snapshot is a dashboard's cumulative view count as reported by the BI tool.
type Snapshot struct {
	DashboardID string `json:"dashboardId"`
	ViewCount   int64  `json:"viewCount"`
}

// Summary is the cumulative count last recorded for a dashboard on Date.
type Summary struct {
	Date       civil.Date `json:"date"`
	DailyCount int64      `json:"dailyCount"`
}

// Outcome is the stable public form of a reconciliation decision.
type Outcome struct {
	Kind         Kind       `json:"kind"`
	Date         civil.Date `json:"date,omitzero"`         // day of the event
	Count        int64      `json:"count,omitempty"`       // views attributed to Date
	Cumulative   int64      `json:"cumulative,omitempty"`  // snapshot total
	PreviousDate civil.Date `json:"previousDate,omitzero"` // anomaly only
	Previous     int64      `json:"previous,omitempty"`    // anomaly only
	Err          error      `json:"-"`
}

// OK reports whether the outcome is an event or nothing to do.
func (o Outcome) OK() bool {
	return o.Kind == Event || o.Kind == NoEvent
}
