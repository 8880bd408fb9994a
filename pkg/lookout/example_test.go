package lookout_test

import (
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/crimson-sun/lookout/pkg/lookout"
)

func Example() {
	today := civil.Date{Year: 2024, Month: 3, Day: 15}
	snap := lookout.Snapshot{DashboardID: "42", ViewCount: 10}

	first := lookout.Reconcile(today, snap, nil)
	fmt.Println(first.Kind, first.Count)

	next := lookout.Reconcile(today, snap, &lookout.Summary{Date: today.AddDays(-1), DailyCount: 5})
	fmt.Println(next.Kind, next.Count)

	odd := lookout.Reconcile(today, snap, &lookout.Summary{Date: today.AddDays(-1), DailyCount: 1000})
	fmt.Println(odd.Kind, odd.Err)
	// Output:
	// event 10
	// event 5
	// anomaly cumulative view count 10 is below 1000 recorded on 2024-03-14
}
