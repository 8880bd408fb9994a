package usage

import (
	"errors"

	"cloud.google.com/go/civil"

	"github.com/crimson-sun/lookout/internal/model"
)

// Kind tags an Outcome.
type Kind int

const (
	KindNoEvent Kind = iota
	KindEvent
	KindAnomaly
	KindFailure
)

func (k Kind) String() string {
	switch k {
	case KindNoEvent:
		return "no_event"
	case KindEvent:
		return "event"
	case KindAnomaly:
		return "anomaly"
	case KindFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of reconciling one dashboard's usage.
// Date, Count and Cumulative are set only for KindEvent; Err only for
// KindAnomaly (always an *AnomalyError) and KindFailure.
type Outcome struct {
	Kind       Kind
	Date       civil.Date
	Count      int64
	Cumulative int64
	Err        error
}

// NoEvent means usage for the day is already recorded.
func NoEvent() Outcome { return Outcome{Kind: KindNoEvent} }

// Event means count views should be recorded for date.
func Event(date civil.Date, count, cumulative int64) Outcome {
	return Outcome{Kind: KindEvent, Date: date, Count: count, Cumulative: cumulative}
}

// Anomaly wraps a backwards cumulative count.
func Anomaly(detail *AnomalyError) Outcome {
	return Outcome{Kind: KindAnomaly, Err: detail}
}

// Failure means the dashboard could not be reconciled at all.
func Failure(err error) Outcome {
	return Outcome{Kind: KindFailure, Err: err}
}

// OK reports whether the outcome is a success (event or nothing to do).
func (o Outcome) OK() bool {
	return o.Kind == KindEvent || o.Kind == KindNoEvent
}

// UsageEvent builds the event to persist for ref. ok is false unless the
// outcome is KindEvent.
func (o Outcome) UsageEvent(ref model.DashboardRef) (model.UsageEvent, bool) {
	if o.Kind != KindEvent {
		return model.UsageEvent{}, false
	}
	return model.UsageEvent{
		Dashboard:  ref,
		Date:       o.Date,
		Count:      o.Count,
		Cumulative: o.Cumulative,
	}, true
}

// Anomaly returns the anomaly detail, if any.
func (o Outcome) Anomaly() (*AnomalyError, bool) {
	var ae *AnomalyError
	if o.Kind == KindAnomaly && errors.As(o.Err, &ae) {
		return ae, true
	}
	return nil, false
}

// Result is what sinks receive: one outcome per dashboard per run.
type Result struct {
	Dashboard string // dashboard FQN in the catalog
	SourceID  string // dashboard ID in the BI tool
	Ref       model.DashboardRef
	Outcome   Outcome
}
