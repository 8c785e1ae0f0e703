// Package protocol decodes Loxone UDP packet lines into typed readings.
//
// Every packet is a single line of text in the shape:
//
//	<timestamp>;<source>;<payload>
//
// The payload portion carries one of two sub-formats:
//
//   - Legacy numeric: "ph9.200453430" — a device token (lowercase type
//     prefix plus numeric id) and a packed decimal payload. Light payloads
//     pack RGB percentages or brightness/colour-temperature into a single
//     integer; power meters send either an undefined raw integer or a
//     comma-separated key:float list.
//   - Structured: a JSON object with required "type" and "id" fields and
//     an open "value" sub-object, passed through verbatim.
//
// Decoding is a pure function of the input line. Malformed input returns
// an error wrapping ErrInvalidPacket; nothing in this package panics on
// wire data.
//
// # Usage
//
//	dec := protocol.NewDecoder()
//	reading, err := dec.Decode("2025-07-18 12:03:06;udplight;ph9.100050025")
//	if err != nil {
//	    // drop the packet
//	}
package protocol
