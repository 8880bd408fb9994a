// Package lookout exposes the usage reconciliation decision made by the
// lookout connector: given a dashboard's cumulative view count today and the
// summary recorded on an earlier run, it decides whether to emit a daily
// usage event, do nothing, or flag an anomaly.
//
// Quick start:
//
//	r := lookout.New(lookout.WithLocation(time.UTC))
//	out := r.Reconcile(lookout.Snapshot{DashboardID: "42", ViewCount: 10},
//	    &lookout.Summary{Date: yesterday, DailyCount: 5})
//	fmt.Println(out.Kind, out.Count) // event 5
//
// Reconcile holds no state; a Reconciler is safe for concurrent use.
package lookout
