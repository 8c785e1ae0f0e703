package handler

import "errors"

// Domain-specific errors for reading processing.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoHandler is returned when no handler is registered for a
	// reading's device type. The packet is dropped, not failed loudly:
	// the controller may emit types this gateway does not route.
	ErrNoHandler = errors.New("handler: no handler for device type")

	// ErrRejected is returned when a handler recognises the device type
	// but the value payload has an invalid shape (e.g. an unknown light
	// mode). The packet is dropped.
	ErrRejected = errors.New("handler: reading rejected")
)
