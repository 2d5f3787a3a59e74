// Package provider defines the interface for catalog providers
// and their implementations.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net"

	"vidrelay/internal/media"
)

// Provider turns a source URL into a catalog of renditions.
// Implementations hold no per-request state and are safe for concurrent use.
type Provider interface {
	// Name identifies the provider in logs, metrics and error reports.
	Name() string

	// Resolve returns the catalog for sourceURL. A catalog with zero
	// renditions is a valid result; the caller decides what to do with it.
	Resolve(ctx context.Context, sourceURL string) (*media.Catalog, error)
}

// Error is a provider failure. Transient failures (timeouts, network errors,
// unreadable responses) and permanent ones (the upstream refused the content)
// are both recoverable by trying another provider.
type Error struct {
	Provider  string
	Transient bool
	Msg       string
	Err       error
}

func (e *Error) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	msg := fmt.Sprintf("%s: %s error: %s", e.Provider, kind, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Transient builds a transient provider error.
func Transient(provider, msg string, err error) *Error {
	return &Error{Provider: provider, Transient: true, Msg: msg, Err: err}
}

// Permanent builds a permanent provider error.
func Permanent(provider, msg string, err error) *Error {
	return &Error{Provider: provider, Transient: false, Msg: msg, Err: err}
}

// IsTransient reports whether err is a transient provider failure, or a
// timeout / network error that would be classified as one.
func IsTransient(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return isNetworkError(err)
}

// classify wraps a transport-level error from an upstream call.
func classify(provider, msg string, err error) *Error {
	if isNetworkError(err) {
		return Transient(provider, msg, err)
	}
	return Permanent(provider, msg, err)
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
