// Package handler validates and normalises decoded readings per device type.
//
// Each device type has exactly one Handler. The registry is a plain
// constructed-once lookup table: the dispatch engine asks it for the
// handler whose type matches the reading's device type, and there is no
// fallback handler — an unmatched type is a drop, not an error.
//
// Handlers are the only component allowed to mutate a Reading, and only
// its Value map: the light handler clamps colour and brightness values
// into their legal ranges, the power handler re-keys the raw passthrough
// value. After the handler returns, the reading is read-only.
package handler
