package protocol

import (
	"errors"
	"fmt"
)

// Domain-specific errors for packet decoding.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidPacket is returned for any malformed packet line.
	// All other decode errors wrap it, so callers that only care about
	// "decodable or not" can check this one sentinel.
	ErrInvalidPacket = errors.New("protocol: invalid packet")

	// ErrUnknownDeviceType is returned when a legacy device token carries
	// a type prefix no decoder rule exists for.
	ErrUnknownDeviceType = fmt.Errorf("%w: unknown device type", ErrInvalidPacket)

	// ErrUnknownPayloadRange is returned when a light payload is a valid
	// integer but falls outside both the RGB and CCT ranges. The legacy
	// encoding is ambiguous there, so the packet is rejected rather than
	// guessed at.
	ErrUnknownPayloadRange = fmt.Errorf("%w: payload outside known ranges", ErrInvalidPacket)
)
