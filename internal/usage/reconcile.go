// Package usage decides which usage events to record for a dashboard given
// the source's cumulative view count and the catalog's last summary.
package usage

import (
	"cloud.google.com/go/civil"

	"github.com/crimson-sun/lookout/internal/model"
)

// Reconcile compares today's cumulative snapshot with the persisted summary.
//
// Without history the whole count belongs to today. A summary dated today
// suppresses emission unless it recorded zero views. An older summary yields
// the delta, or an Anomaly when the source total went backwards.
func Reconcile(today civil.Date, snap model.UsageSnapshot, persisted *model.PersistedUsageSummary) Outcome {
	if persisted == nil {
		return Event(today, snap.ViewCount, snap.ViewCount)
	}

	if persisted.Date == today {
		// A stored zero is treated as not recorded yet.
		if persisted.DailyCount == 0 {
			return Event(today, snap.ViewCount, snap.ViewCount)
		}
		return NoEvent()
	}

	diff := snap.ViewCount - persisted.DailyCount
	if diff < 0 {
		return Anomaly(&AnomalyError{
			PreviousDate: persisted.Date,
			Previous:     persisted.DailyCount,
			Current:      snap.ViewCount,
		})
	}
	return Event(today, diff, snap.ViewCount)
}
