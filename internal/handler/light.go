package handler

import (
	"fmt"

	"github.com/nerrad567/loxgate/internal/protocol"
)

// Legal ranges for light values.
const (
	rgbMin = 0
	rgbMax = 255

	brightnessMin = 0
	brightnessMax = 100

	kelvinMin     = 2700
	kelvinMax     = 6500
	kelvinDefault = 3000
)

// LightHandler normalises readings for Hue light devices ("ph" prefix).
//
// RGB readings have each channel clamped to [0,255]; CCT readings have
// brightness clamped to [0,100] and kelvin to [2700,6500]. Any other
// mode is rejected.
type LightHandler struct{}

// NewLightHandler creates the light handler.
func NewLightHandler() *LightHandler {
	return &LightHandler{}
}

// DeviceType returns the light type token.
func (h *LightHandler) DeviceType() string {
	return protocol.DeviceTypeLight
}

// Process clamps the reading's light values in place.
func (h *LightHandler) Process(r *protocol.Reading) error {
	if r.DeviceType != protocol.DeviceTypeLight {
		return fmt.Errorf("%w: light handler cannot process type %q", ErrRejected, r.DeviceType)
	}

	mode, _ := r.Value["mode"].(string)
	switch mode {
	case protocol.ModeRGB:
		r.Value["r"] = clamp(numberOr(r.Value["r"], 0), rgbMin, rgbMax)
		r.Value["g"] = clamp(numberOr(r.Value["g"], 0), rgbMin, rgbMax)
		r.Value["b"] = clamp(numberOr(r.Value["b"], 0), rgbMin, rgbMax)

	case protocol.ModeCCT:
		r.Value["brightness"] = clamp(numberOr(r.Value["brightness"], 0), brightnessMin, brightnessMax)
		r.Value["kelvin"] = clamp(numberOr(r.Value["kelvin"], kelvinDefault), kelvinMin, kelvinMax)

	default:
		return fmt.Errorf("%w: unknown light mode %q", ErrRejected, mode)
	}

	return nil
}

// numberOr converts a decoded value to int64, falling back to def for
// missing or non-numeric values. The decoder produces int64; the
// structured JSON path produces float64.
func numberOr(v any, def int64) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case int:
		return int64(t)
	default:
		return def
	}
}

// clamp limits v to the inclusive range [lo, hi].
func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
