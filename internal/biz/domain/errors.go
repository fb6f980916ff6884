package domain

import "errors"

// Error kinds crossing the core boundary. Callers match them with errors.Is;
// only the short message string is exposed past the adapter layer.
var (
	// ErrUnavailable marks the bridge component as missing, disabled, or
	// unresolvable. It is an expected state, not a hard failure.
	ErrUnavailable = errors.New("bridge component unavailable")

	// ErrMalformed marks a persisted record or inbound payload that does
	// not parse against the expected shape.
	ErrMalformed = errors.New("malformed record")
)
