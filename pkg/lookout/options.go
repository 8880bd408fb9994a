package lookout

import "time"

type options struct {
	now func() time.Time
	loc *time.Location
}

// Option configures a Reconciler.
type Option func(*options)

// WithClock sets the time source used to pick today. Default: time.Now.
// A nil clock keeps the default.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLocation sets the time zone whose calendar decides today.
// Default: time.UTC. A nil loc also means UTC.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc == nil {
			loc = time.UTC
		}
		o.loc = loc
	}
}

func defaultOptions() options {
	return options{
		now: time.Now,
		loc: time.UTC,
	}
}
