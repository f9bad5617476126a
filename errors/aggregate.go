package errors

import (
	"strings"

	"go.uber.org/multierr"
)

// AggregateError collects independent failures that were all attempted
// before giving up, such as both stage compiles of a variant or every
// target of a cross-compile loop.
type AggregateError struct {
	Cause  error
	Detail string
}

// Aggregate combines errs into an AggregateError. Nil entries are dropped;
// it returns nil when no error remains.
func Aggregate(detail string, errs ...error) error {
	combined := multierr.Combine(errs...)
	if combined == nil {
		return nil
	}
	return &AggregateError{Detail: detail, Cause: combined}
}

// Errors returns every collected failure in the order it was recorded.
func (e *AggregateError) Errors() []error {
	return multierr.Errors(e.Cause)
}

// Error implements the error interface
func (e *AggregateError) Error() string {
	errs := e.Errors()

	var b strings.Builder
	b.WriteString(e.Detail)
	for _, err := range errs {
		b.WriteString("\n  - ")
		b.WriteString(strings.ReplaceAll(err.Error(), "\n", "\n    "))
	}
	return b.String()
}

// Unwrap exposes every collected failure to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors()
}

// Flatten expands nested aggregates into their leaf failures. Errors that
// are not aggregates are returned as a single-element slice.
func Flatten(err error) []error {
	if err == nil {
		return nil
	}
	var out []error
	for _, e := range multierr.Errors(err) {
		if agg, ok := e.(*AggregateError); ok {
			for _, inner := range agg.Errors() {
				out = append(out, Flatten(inner)...)
			}
			continue
		}
		out = append(out, e)
	}
	return out
}
