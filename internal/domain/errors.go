package domain

import "errors"

// Errors surfaced by the snapshot service. Callers classify with errors.Is.
var (
	// ErrUnauthorized is returned when a request carries no caller identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when a portfolio does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrPersistence is returned when a snapshot could not be written on an explicit refresh.
	ErrPersistence = errors.New("snapshot persistence failed")
	// ErrInvalidHolding is returned when a holding fails validation on write.
	ErrInvalidHolding = errors.New("invalid holding")
)

// Errors used inside the provider layer only. They never cross the
// market data aggregators.
var (
	// ErrUpstreamUnavailable marks a network or HTTP failure at a provider.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
	// ErrDataInsufficient marks a provider response too short or empty to use.
	ErrDataInsufficient = errors.New("insufficient data from provider")
	// ErrNotConfigured marks a key-gated provider that has no credentials.
	ErrNotConfigured = errors.New("provider not configured")
)
