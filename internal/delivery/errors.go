package delivery

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode reports an embedded payload that could not be decoded.
	ErrDecode = errors.New("embedded content decode failed")
	// ErrUnavailable reports that the upstream gave no usable body.
	ErrUnavailable = errors.New("delivery unavailable")
)

// DecodeError wraps the underlying decoder failure.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v: %v", ErrDecode, e.Err)
}

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func (e *DecodeError) Unwrap() error { return e.Err }

// UnavailableError describes why an upstream could not be used.
type UnavailableError struct {
	Reason string
	Status int // upstream status, 0 when no response was received
	Err    error
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("%v: %s", ErrUnavailable, e.Reason)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func (e *UnavailableError) Unwrap() error { return e.Err }
