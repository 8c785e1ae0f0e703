package handler

import (
	"fmt"
	"sort"

	"github.com/nerrad567/loxgate/internal/protocol"
)

// Handler processes readings for a single device type.
//
// Process normalises the reading's Value in place and must be a pure
// function of its input otherwise: no I/O, no retained state.
type Handler interface {
	// DeviceType returns the type token this handler manages.
	DeviceType() string

	// Process validates and normalises the reading. It returns ErrRejected
	// (possibly wrapped) when the value shape is invalid for the type.
	Process(r *protocol.Reading) error
}

// Registry maps device type tokens to their handlers.
//
// It is built once at startup and read-only afterwards, so lookups need
// no locking. Construct isolated instances per test case rather than
// sharing a package-level singleton.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates a registry with the default device handlers
// (light, power) registered.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.Register(NewLightHandler())
	r.Register(NewPowerHandler())
	return r
}

// Register adds a handler, replacing any existing handler for its type.
func (r *Registry) Register(h Handler) {
	r.handlers[h.DeviceType()] = h
}

// Lookup returns the handler for a device type.
func (r *Registry) Lookup(deviceType string) (Handler, bool) {
	h, ok := r.handlers[deviceType]
	return h, ok
}

// Process runs the matching handler for the reading's device type.
//
// Returns:
//   - ErrNoHandler if no handler is registered for the type
//   - ErrRejected (wrapped) if the handler rejects the value shape
func (r *Registry) Process(reading *protocol.Reading) error {
	h, ok := r.handlers[reading.DeviceType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoHandler, reading.DeviceType)
	}
	return h.Process(reading)
}

// Types returns the registered device types, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
