// Package tilingerr classifies the failure modes the merge driver needs to
// distinguish in order to choose an exit code. Leaf packages still return
// plain wrapped errors for anything that is not one of these kinds.
package tilingerr

import "fmt"

// Kind enumerates the error classes the CLI reports distinct exit codes
// for. Numeric singularities and insufficient-sales conditions are
// recovered locally (they resolve to R2: 0 by convention) and never
// surface as a Kind here.
type Kind int

const (
	// KindSchema covers a missing or mistyped mandatory column.
	KindSchema Kind = iota
	// KindValidity covers a structurally invalid value: non-positive
	// land area, a self-intersecting ring, a dangling tile reference.
	KindValidity
	// KindIO covers a failure to read or write an external file.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindSchema:
		return "schema"
	case KindValidity:
		return "validity"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with the Kind and the record key (a
// parcel or tile key) it was raised for, when one is known.
type Error struct {
	Kind Kind
	Key  string
	Err  error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a classified Error.
func New(kind Kind, key string, err error) *Error {
	return &Error{Kind: kind, Key: key, Err: err}
}
