package encoding

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// ErrorKind classifies a decode failure.
type ErrorKind uint8

const (
	// Truncated means the input ended before the current type was complete.
	Truncated ErrorKind = iota + 1
	// UnknownTag means a character could not start or continue a type.
	UnknownTag
	// TooDeep means nesting exceeded the decoder's depth limit.
	TooDeep
	// Overflow means a length, width or offset does not fit in 64 bits.
	Overflow
)

func (k ErrorKind) String() string {
	switch k {
	case Truncated:
		return "truncated"
	case UnknownTag:
		return "unknown tag"
	case TooDeep:
		return "nesting too deep"
	case Overflow:
		return "number out of range"
	}
	return "invalid"
}

var (
	ErrTruncated  = errors.Base("truncated type encoding")
	ErrUnknownTag = errors.Base("unknown type encoding tag")
	ErrTooDeep    = errors.Base("type encoding nested too deep")
	ErrOverflow   = errors.Base("type encoding number out of range")
)

// DecodeError reports where and why an encoding failed to decode.
type DecodeError struct {
	Kind  ErrorKind
	Pos   int
	Input string
}

func (e *DecodeError) Error() string {
	if e.Kind == UnknownTag && e.Pos < len(e.Input) {
		return fmt.Sprintf("decode %q: %s %q at position %d", e.Input, e.Kind, e.Input[e.Pos], e.Pos)
	}
	return fmt.Sprintf("decode %q: %s at position %d", e.Input, e.Kind, e.Pos)
}

// Unwrap lets errors.Is match the sentinel for the error kind.
func (e *DecodeError) Unwrap() error {
	switch e.Kind {
	case Truncated:
		return ErrTruncated
	case UnknownTag:
		return ErrUnknownTag
	case TooDeep:
		return ErrTooDeep
	case Overflow:
		return ErrOverflow
	}
	return nil
}
