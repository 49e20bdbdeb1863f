package metadata

import (
	"gitlab.com/tozd/go/errors"
)

// LookupErrorKind classifies a failed lookup.
type LookupErrorKind uint8

const (
	NotFound LookupErrorKind = iota + 1
	Timeout
)

var (
	ErrNotFound = errors.Base("runtime object not found")
	ErrTimeout  = errors.Base("runtime lookup timed out")
)

// LookupError is the failure surfaced to callers of a listing. A Timeout
// also matches ErrNotFound, so callers that only handle absence treat a
// hung provider the same way.
type LookupError struct {
	Kind LookupErrorKind
	ID   ID
}

func (e *LookupError) Error() string {
	if e.Kind == Timeout {
		return "lookup of " + e.ID.String() + " timed out"
	}
	return e.ID.String() + " not found"
}

func (e *LookupError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return true
	case ErrTimeout:
		return e.Kind == Timeout
	}
	return false
}
