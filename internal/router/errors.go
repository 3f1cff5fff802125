package router

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoCapableProvider indicates no configured provider supports the
	// capability the request needs. No outbound calls are made.
	ErrNoCapableProvider = errors.New("no provider supports the required capability")

	// ErrEmptyRequest indicates the request carried no payload.
	ErrEmptyRequest = errors.New("request payload is empty")
)

// ProviderError wraps a single failed attempt against one provider. It is
// never surfaced to the router's caller on its own; it appears in the
// exhaustion trail.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ExhaustedError is the terminal failure returned when every
// capability-matching provider failed. Trail preserves priority order.
type ExhaustedError struct {
	Trail []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Trail))
	for _, a := range e.Trail {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Provider, a.Err))
	}
	return fmt.Sprintf("all %d providers exhausted [%s]", len(e.Trail), strings.Join(parts, "; "))
}

// CancelledError is returned when the routing operation is aborted externally
// before completion. It is distinct from exhaustion: remaining candidates were
// skipped, not failed.
type CancelledError struct {
	// Provider is the provider whose attempt was in flight, if any.
	Provider string

	// Err is the underlying context error.
	Err error
}

func (e *CancelledError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("routing cancelled: %v", e.Err)
	}
	return fmt.Sprintf("routing cancelled during attempt on %s: %v", e.Provider, e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// IsExhausted reports whether err represents full provider exhaustion.
func IsExhausted(err error) bool {
	var ex *ExhaustedError
	return errors.As(err, &ex)
}

// IsCancelled reports whether err represents external cancellation.
func IsCancelled(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}
