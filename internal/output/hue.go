package output

import (
	"fmt"
	"math"
	"strconv"

	"github.com/nerrad567/loxgate/internal/protocol"
)

// Hue brightness and colour temperature bounds. The bridge accepts
// brightness 1-254 and colour temperature 153-500 mirek.
const (
	hueBriMax   = 254
	hueMirekMin = 153
	hueMirekMax = 500
)

// LightController is the bridge surface the Hue sink drives. The
// production implementation is BridgeClient; tests substitute a recorder.
type LightController interface {
	// Ping verifies the bridge is reachable and the credentials work.
	Ping() error

	// SetOn switches a light on or off without touching colour state.
	SetOn(id int, on bool) error

	// SetColorXY turns a light on at the given brightness and CIE xy
	// colour point.
	SetColorXY(id int, bri int, x, y float64) error

	// SetColorTemp turns a light on at the given brightness and colour
	// temperature in mirek.
	SetColorTemp(id int, bri int, mirek int) error
}

// HueSink drives lights on a Philips Hue bridge. It only acts on light
// readings; readings of any other device type are accepted and ignored so
// a broad routing entry does not count as a sink failure.
type HueSink struct {
	name       string
	controller LightController
	connected  bool
	logger     Logger
}

// NewHueSink builds a Hue sink over the given controller.
func NewHueSink(name string, controller LightController, logger Logger) *HueSink {
	return &HueSink{
		name:       name,
		controller: controller,
		logger:     orNoop(logger),
	}
}

// Name returns the sink's configured name.
func (s *HueSink) Name() string { return s.name }

// Connect verifies the bridge is reachable.
func (s *HueSink) Connect() error {
	if s.controller == nil {
		return fmt.Errorf("%w: no bridge configured", ErrConnectFailed)
	}
	if err := s.controller.Ping(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}
	s.connected = true
	s.logger.Info("hue bridge connected", "sink", s.name)
	return nil
}

// Send translates a light reading into bridge commands. An all-zero RGB
// or zero CCT brightness switches the light off.
func (s *HueSink) Send(r *protocol.Reading) error {
	if !s.connected {
		return fmt.Errorf("%w: hue sink %q", ErrNotConnected, s.name)
	}
	if r.DeviceType != protocol.DeviceTypeLight {
		s.logger.Debug("ignoring non-light reading", "sink", s.name, "device_type", r.DeviceType)
		return nil
	}

	id, err := strconv.Atoi(r.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: light id %q: %w", ErrPublishFailed, r.DeviceID, err)
	}

	mode, _ := r.Value["mode"].(string)
	switch mode {
	case protocol.ModeRGB:
		err = s.sendRGB(id, r)
	case protocol.ModeCCT:
		err = s.sendCCT(id, r)
	default:
		err = fmt.Errorf("%w: light mode %q", ErrPublishFailed, mode)
	}
	return err
}

// Disconnect releases the bridge. The REST client holds no connection
// state, so this only flips the sink inactive.
func (s *HueSink) Disconnect() {
	s.connected = false
}

func (s *HueSink) sendRGB(id int, r *protocol.Reading) error {
	red := intField(r.Value, "r")
	green := intField(r.Value, "g")
	blue := intField(r.Value, "b")

	if red == 0 && green == 0 && blue == 0 {
		if err := s.controller.SetOn(id, false); err != nil {
			return fmt.Errorf("%w: %w", ErrPublishFailed, err)
		}
		s.logger.Debug("light off", "sink", s.name, "light", id)
		return nil
	}

	bri := red
	if green > bri {
		bri = green
	}
	if blue > bri {
		bri = blue
	}
	if bri > hueBriMax {
		bri = hueBriMax
	}

	x, y := rgbToXY(red, green, blue)
	if err := s.controller.SetColorXY(id, bri, x, y); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	s.logger.Debug("light colour set", "sink", s.name, "light", id, "bri", bri, "x", x, "y", y)
	return nil
}

func (s *HueSink) sendCCT(id int, r *protocol.Reading) error {
	brightness := intField(r.Value, "brightness")
	kelvin := intField(r.Value, "kelvin")

	if brightness == 0 {
		if err := s.controller.SetOn(id, false); err != nil {
			return fmt.Errorf("%w: %w", ErrPublishFailed, err)
		}
		s.logger.Debug("light off", "sink", s.name, "light", id)
		return nil
	}

	bri := brightness * hueBriMax / 100
	if bri < 1 {
		bri = 1
	}
	mirek := kelvinToMirek(kelvin)

	if err := s.controller.SetColorTemp(id, bri, mirek); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	s.logger.Debug("light temperature set", "sink", s.name, "light", id, "bri", bri, "ct", mirek)
	return nil
}

// kelvinToMirek converts colour temperature to the bridge's mirek scale,
// clamped to the range the bridge accepts.
func kelvinToMirek(kelvin int) int {
	if kelvin <= 0 {
		return hueMirekMax
	}
	mirek := 1_000_000 / kelvin
	if mirek < hueMirekMin {
		return hueMirekMin
	}
	if mirek > hueMirekMax {
		return hueMirekMax
	}
	return mirek
}

// rgbToXY converts 8-bit RGB to a CIE 1931 xy colour point using the
// Wide RGB D65 conversion published for the Hue bridge.
func rgbToXY(red, green, blue int) (float64, float64) {
	r := gammaCorrect(float64(red) / 255)
	g := gammaCorrect(float64(green) / 255)
	b := gammaCorrect(float64(blue) / 255)

	cx := r*0.664511 + g*0.154324 + b*0.162028
	cy := r*0.283881 + g*0.668433 + b*0.047685
	cz := r*0.000088 + g*0.072310 + b*0.986039

	sum := cx + cy + cz
	if sum == 0 {
		return 0, 0
	}
	return cx / sum, cy / sum
}

func gammaCorrect(v float64) float64 {
	if v > 0.04045 {
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return v / 12.92
}

// intField reads a numeric field from a reading value, tolerating the
// int64 the handlers produce and the float64 a JSON payload produces.
func intField(value map[string]any, key string) int {
	switch v := value[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}
