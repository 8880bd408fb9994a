package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/lookout/internal/output"
	"github.com/crimson-sun/lookout/internal/usage"
)

// Multi fans out results to multiple output.Output implementations.
// Each Write call delivers the result to every wrapped output sequentially.
// If one output fails, the remaining outputs still receive the result.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers the result to every wrapped output. Errors are collected
// but do not prevent delivery to subsequent outputs.
func (m *Multi) Write(ctx context.Context, result usage.Result) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Only wraps inner so that it receives results of the given kinds only.
func Only(inner output.Output, kinds ...usage.Kind) output.Output {
	return &only{inner: inner, kinds: kinds}
}

type only struct {
	inner output.Output
	kinds []usage.Kind
}

func (o *only) Write(ctx context.Context, result usage.Result) error {
	for _, k := range o.kinds {
		if result.Outcome.Kind == k {
			return o.inner.Write(ctx, result)
		}
	}
	return nil
}

func (o *only) Close() error { return o.inner.Close() }
