package handler

import (
	"fmt"

	"github.com/nerrad567/loxgate/internal/protocol"
)

// PowerHandler processes readings for power meter devices ("pm" prefix).
//
// The plain-integer wire format for power meters is undefined upstream,
// so a decoded {raw_value: n} is re-keyed to {raw: n} and passed through
// without inventing any field extraction. Readings that already carry
// structured fields (the key:float wire form, or the structured JSON
// sub-format) pass through unchanged. The handler never rejects based on
// content, only on a device type mismatch.
type PowerHandler struct{}

// NewPowerHandler creates the power handler.
func NewPowerHandler() *PowerHandler {
	return &PowerHandler{}
}

// DeviceType returns the power meter type token.
func (h *PowerHandler) DeviceType() string {
	return protocol.DeviceTypePower
}

// Process passes the reading's value through, re-keying the raw
// passthrough case.
func (h *PowerHandler) Process(r *protocol.Reading) error {
	if r.DeviceType != protocol.DeviceTypePower {
		return fmt.Errorf("%w: power handler cannot process type %q", ErrRejected, r.DeviceType)
	}

	if raw, ok := r.Value["raw_value"]; ok {
		r.Value = map[string]any{"raw": raw}
	}

	return nil
}
