package output

import (
	"context"

	"github.com/crimson-sun/lookout/internal/usage"
)

// Output defines the interface for reconciliation result destinations.
type Output interface {
	Write(ctx context.Context, result usage.Result) error
	Close() error
}
