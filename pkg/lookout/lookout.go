package lookout

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/crimson-sun/lookout/internal/model"
	"github.com/crimson-sun/lookout/internal/usage"
)

var (
	// ErrDashboardNotFound means a dashboard identity could not be resolved.
	ErrDashboardNotFound = usage.ErrDashboardNotFound
	// ErrSourceUnavailable means the BI tool could not be reached.
	ErrSourceUnavailable = usage.ErrSourceUnavailable
)

// Reconciler decides usage events against a configurable clock.
type Reconciler struct {
	now func() time.Time
	loc *time.Location
}

// New creates a Reconciler.
func New(opts ...Option) *Reconciler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Reconciler{now: o.now, loc: o.loc}
}

// Today returns the current calendar day in the Reconciler's time zone.
func (r *Reconciler) Today() civil.Date {
	return civil.DateOf(r.now().In(r.loc))
}

// Reconcile decides for today. persisted is nil when nothing was recorded.
func (r *Reconciler) Reconcile(snap Snapshot, persisted *Summary) Outcome {
	return Reconcile(r.Today(), snap, persisted)
}

// Reconcile decides what usage to record for a dashboard on today.
//
// Without history the full view count is attributed to today. A summary
// already recorded for today yields NoEvent, unless its count is zero. A
// summary from an earlier day yields today's increase, or an Anomaly when
// the count went backwards.
func Reconcile(today civil.Date, snap Snapshot, persisted *Summary) Outcome {
	var p *model.PersistedUsageSummary
	if persisted != nil {
		p = &model.PersistedUsageSummary{Date: persisted.Date, DailyCount: persisted.DailyCount}
	}
	return fromInternal(usage.Reconcile(today, model.UsageSnapshot{
		DashboardID: snap.DashboardID,
		ViewCount:   snap.ViewCount,
	}, p))
}

// Today returns the current calendar day in loc. A nil loc means UTC.
func Today(loc *time.Location) civil.Date {
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(time.Now().In(loc))
}

// ParseDate parses a YYYY-MM-DD day.
func ParseDate(s string) (civil.Date, error) {
	return civil.ParseDate(s)
}

// IsAnomaly reports whether err describes a decreasing view count.
func IsAnomaly(err error) bool {
	var ae *usage.AnomalyError
	return errors.As(err, &ae)
}

func fromInternal(o usage.Outcome) Outcome {
	out := Outcome{
		Kind:       Kind(o.Kind.String()),
		Date:       o.Date,
		Count:      o.Count,
		Cumulative: o.Cumulative,
		Err:        o.Err,
	}
	if ae, ok := o.Anomaly(); ok {
		out.PreviousDate = ae.PreviousDate
		out.Previous = ae.Previous
		out.Cumulative = ae.Current
	}
	return out
}
