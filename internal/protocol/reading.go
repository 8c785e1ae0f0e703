package protocol

// Known device type prefixes from the legacy wire format.
const (
	// DeviceTypeLight is the Philips Hue light prefix.
	DeviceTypeLight = "ph"

	// DeviceTypePower is the power meter prefix.
	DeviceTypePower = "pm"
)

// Light payload modes produced by the decoder.
const (
	ModeRGB = "rgb"
	ModeCCT = "cct"
)

// Reading is the canonical unit flowing through the pipeline.
//
// It is constructed once by the decoder, normalised in place by exactly
// one device handler, and then passed read-only to every output sink of
// a single dispatch. No component retains it after dispatch completes.
type Reading struct {
	// DeviceType is the short lowercase type token (e.g. "ph", "pm").
	// It selects both the handler and the routing entry.
	DeviceType string

	// DeviceID identifies the physical device within its type.
	DeviceID string

	// Value is the device-type-specific payload. Its shape is defined by
	// the handler for the type, not by the decoder.
	Value map[string]any

	// Timestamp is the sender-supplied timestamp string. Advisory only;
	// sinks that need wall-clock ordering use their own send time.
	Timestamp string

	// Source is the sender-supplied origin tag (e.g. "udplight").
	Source string

	// RawPacket is the verbatim original packet line, byte-for-byte,
	// retained so a sink can re-emit the exact original bytes without
	// re-encoding a lossy decode.
	RawPacket string

	// RawPayload is the text after the second semicolon of the line.
	RawPayload string
}
