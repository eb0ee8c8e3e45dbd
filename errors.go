package bluequery

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a parameter error.
type Kind int

const (
	KindUnknown Kind = iota
	ValueTooLong
	InvalidFormat
	MultipleValuesNotAllowed
	NotLoaded
	NotStorable
)

var (
	ErrValueTooLong             = errors.New("value too long")
	ErrInvalidFormat            = errors.New("value does not match the required format")
	ErrMultipleValuesNotAllowed = errors.New("multiple values not allowed")
	ErrNotLoaded                = errors.New("parameters not loaded")
	ErrNotStorable              = errors.New("parameters not storable")
)

func (k Kind) String() string {
	switch k {
	case ValueTooLong:
		return "ValueTooLong"
	case InvalidFormat:
		return "InvalidFormat"
	case MultipleValuesNotAllowed:
		return "MultipleValuesNotAllowed"
	case NotLoaded:
		return "NotLoaded"
	case NotStorable:
		return "NotStorable"
	}
	return "Unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case ValueTooLong:
		return ErrValueTooLong
	case InvalidFormat:
		return ErrInvalidFormat
	case MultipleValuesNotAllowed:
		return ErrMultipleValuesNotAllowed
	case NotLoaded:
		return ErrNotLoaded
	case NotStorable:
		return ErrNotStorable
	}
	return nil
}

// ParamError is returned by every operation that rejects a value or a call.
type ParamError struct {
	Kind  Kind
	Param string
	Err   error // Original error, if any
}

func newParamError(kind Kind, param string) *ParamError {
	return &ParamError{Kind: kind, Param: param}
}

// Error implements the error interface
func (e *ParamError) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Param != "" {
		msg = fmt.Sprintf("%s: %s", e.Param, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ParamError) Unwrap() error { return e.Err }

// Cause lets errors.Cause from pkg/errors reach the wrapped error.
func (e *ParamError) Cause() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind.sentinel()
}

// Is matches the sentinel error of the same kind.
func (e *ParamError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// KindOf returns the Kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var pe *ParamError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}
