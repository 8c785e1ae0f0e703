package protocol

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Legacy light payload ranges. Anything between the two ranges, or above
// the CCT range, is an undocumented gap and decodes to an error.
const (
	rgbPayloadMax = 100100100
	cctPayloadMin = 200002700
	cctPayloadMax = 201006500
)

// devicePattern matches a legacy device token: lowercase type prefix
// followed by a numeric id, nothing else.
var devicePattern = regexp.MustCompile(`^([a-z]+)([0-9]+)$`)

// Logger is the optional logging interface used by the Decoder for
// non-fatal decode warnings (dropped power-meter pairs).
type Logger interface {
	Warn(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Decoder turns one raw packet line into a typed Reading.
//
// Decoding has no side effects beyond optional warnings; a Decoder is
// safe for concurrent use.
type Decoder struct {
	logger Logger
}

// NewDecoder creates a packet decoder.
func NewDecoder() *Decoder {
	return &Decoder{logger: noopLogger{}}
}

// SetLogger sets the logger used for non-fatal decode warnings.
func (d *Decoder) SetLogger(logger Logger) {
	d.logger = logger
}

// Decode parses a complete packet line.
//
// The line must contain at least three semicolon-delimited fields:
// timestamp, source, and the data portion. Only the first two semicolons
// delimit; the data portion may itself contain semicolons.
//
// Returns:
//   - *Reading: The decoded reading with RawPacket preserved verbatim
//   - error: Wrapping ErrInvalidPacket for any malformed input
func (d *Decoder) Decode(line string) (*Reading, error) {
	parts := strings.SplitN(strings.TrimSpace(line), ";", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("%w: expected timestamp;source;data, got %d field(s)", ErrInvalidPacket, len(parts))
	}

	reading, err := d.decodeData(parts[2])
	if err != nil {
		return nil, err
	}

	reading.Timestamp = parts[0]
	reading.Source = parts[1]
	reading.RawPacket = line
	reading.RawPayload = parts[2]
	return reading, nil
}

// decodeData parses the data portion, selecting the structured or legacy
// sub-format.
func (d *Decoder) decodeData(data string) (*Reading, error) {
	if strings.HasPrefix(strings.TrimSpace(data), "{") {
		return d.decodeStructured(data)
	}
	return d.decodeLegacy(data)
}

// decodeStructured parses the JSON sub-format: required "type" and "id"
// fields, open "value" sub-object passed through verbatim.
func (d *Decoder) decodeStructured(data string) (*Reading, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("%w: malformed JSON data: %v", ErrInvalidPacket, err)
	}

	typeVal, ok := obj["type"]
	if !ok {
		return nil, fmt.Errorf("%w: JSON data missing required field %q", ErrInvalidPacket, "type")
	}
	idVal, ok := obj["id"]
	if !ok {
		return nil, fmt.Errorf("%w: JSON data missing required field %q", ErrInvalidPacket, "id")
	}

	value := map[string]any{}
	if raw, ok := obj["value"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: JSON value field must be an object", ErrInvalidPacket)
		}
		value = m
	}

	return &Reading{
		DeviceType: stringifyField(typeVal),
		DeviceID:   stringifyField(idVal),
		Value:      value,
	}, nil
}

// stringifyField renders a JSON type/id field as a string token.
// Numeric ids are common ("id": 9), so integral floats drop the decimals.
func stringifyField(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// decodeLegacy parses the legacy numeric sub-format, e.g. "ph9.200453430".
func (d *Decoder) decodeLegacy(data string) (*Reading, error) {
	parts := strings.SplitN(data, ".", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: expected device.payload, got %q", ErrInvalidPacket, data)
	}
	deviceToken, payload := parts[0], parts[1]

	match := devicePattern.FindStringSubmatch(deviceToken)
	if match == nil {
		return nil, fmt.Errorf("%w: invalid device token %q", ErrInvalidPacket, deviceToken)
	}
	deviceType, deviceID := match[1], match[2]

	// Power meters send a comma-separated key:float list for live data.
	if deviceType == DeviceTypePower && strings.Contains(payload, ":") {
		value, err := d.decodePowerPairs(payload)
		if err != nil {
			return nil, err
		}
		return &Reading{DeviceType: deviceType, DeviceID: deviceID, Value: value}, nil
	}

	number, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: payload %q is not a number", ErrInvalidPacket, payload)
	}

	value, err := decodeNumericPayload(deviceType, number)
	if err != nil {
		return nil, err
	}
	return &Reading{DeviceType: deviceType, DeviceID: deviceID, Value: value}, nil
}

// decodeNumericPayload converts an integer payload to a structured value
// based on device type.
func decodeNumericPayload(deviceType string, payload int64) (map[string]any, error) {
	switch deviceType {
	case DeviceTypeLight:
		switch {
		case payload >= 0 && payload <= rgbPayloadMax:
			// RGB packed as BBBGGGRRR: three decimal groups, each a 0-100
			// percentage scaled to 0-255. Truncating division matches the
			// controller's own scaling.
			return map[string]any{
				"mode": ModeRGB,
				"b":    (payload / 1000000) * 255 / 100,
				"g":    ((payload / 1000) % 1000) * 255 / 100,
				"r":    (payload % 1000) * 255 / 100,
			}, nil
		case payload >= cctPayloadMin && payload <= cctPayloadMax:
			// CCT packed as 2BBBTTTT: brightness percent and kelvin.
			return map[string]any{
				"mode":       ModeCCT,
				"brightness": (payload / 10000) % 1000,
				"kelvin":     payload % 10000,
			}, nil
		default:
			return nil, fmt.Errorf("%w: light payload %d", ErrUnknownPayloadRange, payload)
		}

	case DeviceTypePower:
		// Wire format for the plain-integer case is undefined upstream;
		// decoding deliberately stops at the raw value.
		return map[string]any{"raw_value": payload}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeviceType, deviceType)
	}
}

// decodePowerPairs parses a power meter key:float payload such as
// "pf:5.220,mrc:34169,v1:241.0". Unparsable pairs are dropped with a
// warning; the payload fails only when nothing valid remains or the
// required "pf" key is absent.
func (d *Decoder) decodePowerPairs(payload string) (map[string]any, error) {
	value := make(map[string]any)

	for _, pair := range strings.Split(payload, ",") {
		key, raw, found := strings.Cut(pair, ":")
		if !found {
			d.logger.Warn("invalid key:value pair in power meter data", "pair", pair)
			continue
		}
		number, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			d.logger.Warn("invalid numeric value in power meter data", "key", key, "value", raw)
			continue
		}
		value[key] = number
	}

	if len(value) == 0 {
		return nil, fmt.Errorf("%w: power meter payload has no valid pairs", ErrInvalidPacket)
	}
	if _, ok := value["pf"]; !ok {
		return nil, fmt.Errorf("%w: power meter payload missing required key %q", ErrInvalidPacket, "pf")
	}
	return value, nil
}
