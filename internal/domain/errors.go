package domain

import (
	"errors"
	"fmt"
)

// Failure kinds. Adapters wrap their errors with Fail so callers can branch with errors.Is.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrFetch         = errors.New("fetch failure")
	ErrEnrichment    = errors.New("enrichment failure")
	ErrSynthesis     = errors.New("synthesis failure")
	ErrStorage       = errors.New("storage failure")
)

// Failure ties an underlying error to one of the failure kinds.
type Failure struct {
	Kind error
	Op   string
	Err  error
}

// Fail wraps err as a failure of the given kind. A nil err yields a failure with no cause.
func Fail(kind error, op string, err error) error {
	return &Failure{Kind: kind, Op: op, Err: err}
}

func (f *Failure) Error() string {
	switch {
	case f.Err == nil:
		return fmt.Sprintf("%s: %v", f.Op, f.Kind)
	case f.Op == "":
		return fmt.Sprintf("%v: %v", f.Kind, f.Err)
	default:
		return fmt.Sprintf("%s: %v", f.Op, f.Err)
	}
}

// Unwrap exposes both the kind and the cause.
func (f *Failure) Unwrap() []error {
	if f.Err == nil {
		return []error{f.Kind}
	}
	return []error{f.Kind, f.Err}
}
