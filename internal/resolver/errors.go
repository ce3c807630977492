package resolver

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies resolver failures.
type Kind int

const (
	// NotFound means the index returned no candidate, or no file appeared after a download.
	NotFound Kind = iota + 1
	// Transient covers transport and parse failures while talking to the index.
	Transient
	// Localization means a downloaded file could not be located or renamed.
	Localization
	// Extraction means a candidate was found but carries no usable audio URL.
	Extraction
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Transient:
		return "transient"
	case Localization:
		return "localization"
	case Extraction:
		return "extraction"
	default:
		return "unknown"
	}
}

// Error is a classified resolver failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the [Kind] of the first [*Error] in err's chain.
func KindOf(err error) (Kind, bool) {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind, true
	}
	return 0, false
}

// Recoverable reports whether another attempt may succeed.
//
// Transient and NotFound failures are recoverable. Cancellation, Localization,
// Extraction and unclassified errors are not.
func Recoverable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	kind, ok := KindOf(err)
	if !ok {
		return false
	}

	switch kind {
	case Transient, NotFound:
		return true
	case Localization, Extraction:
		return false
	default:
		return false
	}
}
