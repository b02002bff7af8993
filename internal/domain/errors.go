package domain

import (
	"errors"
	"fmt"
)

// FetchErrorKind distinguishes the two ways a provider call fails.
type FetchErrorKind string

const (
	// ProviderUnavailable covers network errors and non-success HTTP
	// statuses from the weather provider.
	ProviderUnavailable FetchErrorKind = "provider_unavailable"
	// MalformedResponse covers payloads that cannot be decoded.
	MalformedResponse FetchErrorKind = "malformed_response"
)

// FetchError reports a failed weather provider call. The orchestrator
// skips the destination for the sweep and continues.
type FetchError struct {
	Kind FetchErrorKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("weather fetch: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NewFetchError wraps err with a fetch failure kind.
func NewFetchError(kind FetchErrorKind, err error) *FetchError {
	return &FetchError{Kind: kind, Err: err}
}

// PersistenceError reports a failed record-store write. The destination's
// remaining steps are skipped; the sweep continues.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("record store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

var (
	// ErrNotFound is returned by store reads that match no row.
	ErrNotFound = errors.New("not found")

	// ErrNoCoordinates marks a destination that resolves to no known
	// coordinates. It is a silent skip, not a logged failure.
	ErrNoCoordinates = errors.New("no resolvable coordinates")
)
