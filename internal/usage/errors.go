package usage

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

var (
	// ErrDashboardNotFound is returned by catalogs when a dashboard's
	// identity cannot be resolved.
	ErrDashboardNotFound = errors.New("dashboard not found in catalog")

	// ErrSourceUnavailable is returned by connectors when the BI tool could
	// not be reached for a view count.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// AnomalyError describes a cumulative count that went backwards: the source
// reports fewer total views today than were recorded on an earlier day.
type AnomalyError struct {
	PreviousDate civil.Date
	Previous     int64
	Current      int64
}

func (e *AnomalyError) Error() string {
	return fmt.Sprintf("cumulative view count %d is below %d recorded on %s",
		e.Current, e.Previous, e.PreviousDate)
}

// IsLookupFailure reports whether err stems from an unresolved catalog identity.
func IsLookupFailure(err error) bool {
	return errors.Is(err, ErrDashboardNotFound)
}
