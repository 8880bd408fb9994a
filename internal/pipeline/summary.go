package pipeline

import (
	"cloud.google.com/go/civil"

	"github.com/crimson-sun/lookout/internal/usage"
)

// Summary aggregates the outcomes of one run.
type Summary struct {
	RunID     string
	Date      civil.Date
	Total     int
	Events    int
	NoEvents  int
	Anomalies int
	Failures  int
	Problems  []usage.Result // anomalies and failures, in completion order
}

func (s *Summary) add(r usage.Result) {
	s.Total++
	switch r.Outcome.Kind {
	case usage.KindEvent:
		s.Events++
	case usage.KindNoEvent:
		s.NoEvents++
	case usage.KindAnomaly:
		s.Anomalies++
		s.Problems = append(s.Problems, r)
	case usage.KindFailure:
		s.Failures++
		s.Problems = append(s.Problems, r)
	}
}

// OK reports whether every dashboard reconciled without a problem.
func (s Summary) OK() bool {
	return s.Anomalies == 0 && s.Failures == 0
}
