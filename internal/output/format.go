package output

import (
	"strings"

	"github.com/crimson-sun/lookout/internal/usage"
)

// Verbosity controls how much diagnostic detail a record carries.
type Verbosity int

const (
	Minimal Verbosity = iota
	Standard
	Full
)

// ParseVerbosity converts "minimal", "standard" or "full"; anything else is Standard.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(s) {
	case "minimal":
		return Minimal
	case "full":
		return Full
	default:
		return Standard
	}
}

// Record is the wire form of a usage.Result.
type Record struct {
	Dashboard    string `json:"dashboard"`
	Outcome      string `json:"outcome"`
	Date         string `json:"date,omitempty"`
	Count        *int64 `json:"count,omitempty"`
	Error        string `json:"error,omitempty"`
	SourceID     string `json:"sourceId,omitempty"`
	DashboardID  string `json:"dashboardId,omitempty"`
	Cumulative   *int64 `json:"cumulative,omitempty"`
	PreviousDate string `json:"previousDate,omitempty"`
	Previous     *int64 `json:"previous,omitempty"`
	Current      *int64 `json:"current,omitempty"`
}

// Format converts a result to a record with fields stripped by verbosity.
// Minimal keeps dashboard, outcome, date and count. Standard adds the error
// text. Full adds identifiers and anomaly figures.
func Format(r usage.Result, verbosity Verbosity) Record {
	o := r.Outcome
	rec := Record{
		Dashboard: r.Dashboard,
		Outcome:   o.Kind.String(),
	}
	if o.Kind == usage.KindEvent {
		count := o.Count
		rec.Date = o.Date.String()
		rec.Count = &count
	}
	if verbosity == Minimal {
		return rec
	}

	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	if verbosity == Standard {
		return rec
	}

	rec.SourceID = r.SourceID
	rec.DashboardID = r.Ref.ID
	if o.Kind == usage.KindEvent {
		cumulative := o.Cumulative
		rec.Cumulative = &cumulative
	}
	if a, ok := o.Anomaly(); ok {
		prev, cur := a.Previous, a.Current
		rec.PreviousDate = a.PreviousDate.String()
		rec.Previous = &prev
		rec.Current = &cur
	}
	return rec
}
