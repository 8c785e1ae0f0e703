package output

import (
	"errors"
	"math"
	"testing"

	"github.com/nerrad567/loxgate/internal/protocol"
)

type controllerCall struct {
	method string
	id     int
	on     bool
	bri    int
	x, y   float64
	mirek  int
}

// fakeController records bridge commands.
type fakeController struct {
	pingErr error
	callErr error
	calls   []controllerCall
}

func (f *fakeController) Ping() error { return f.pingErr }

func (f *fakeController) SetOn(id int, on bool) error {
	f.calls = append(f.calls, controllerCall{method: "on", id: id, on: on})
	return f.callErr
}

func (f *fakeController) SetColorXY(id int, bri int, x, y float64) error {
	f.calls = append(f.calls, controllerCall{method: "xy", id: id, bri: bri, x: x, y: y})
	return f.callErr
}

func (f *fakeController) SetColorTemp(id int, bri int, mirek int) error {
	f.calls = append(f.calls, controllerCall{method: "ct", id: id, bri: bri, mirek: mirek})
	return f.callErr
}

func lightReading(id string, value map[string]any) *protocol.Reading {
	return &protocol.Reading{
		DeviceType: protocol.DeviceTypeLight,
		DeviceID:   id,
		Value:      value,
	}
}

func connectedHueSink(t *testing.T, controller *fakeController) *HueSink {
	t.Helper()
	sink := NewHueSink("hue", controller, nil)
	if err := sink.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return sink
}

func TestHueConnect(t *testing.T) {
	t.Run("reachable bridge", func(t *testing.T) {
		sink := NewHueSink("hue", &fakeController{}, nil)
		if err := sink.Connect(); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
	})

	t.Run("unreachable bridge", func(t *testing.T) {
		sink := NewHueSink("hue", &fakeController{pingErr: errors.New("no route")}, nil)
		if err := sink.Connect(); !errors.Is(err, ErrConnectFailed) {
			t.Errorf("Connect() = %v, want ErrConnectFailed", err)
		}
	})

	t.Run("nil controller", func(t *testing.T) {
		sink := NewHueSink("hue", nil, nil)
		if err := sink.Connect(); !errors.Is(err, ErrConnectFailed) {
			t.Errorf("Connect() = %v, want ErrConnectFailed", err)
		}
	})
}

func TestHueSendRGB(t *testing.T) {
	controller := &fakeController{}
	sink := connectedHueSink(t, controller)

	err := sink.Send(lightReading("9", map[string]any{
		"mode": protocol.ModeRGB,
		"r":    int64(63), "g": int64(127), "b": int64(255),
	}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(controller.calls) != 1 {
		t.Fatalf("bridge calls = %d, want 1", len(controller.calls))
	}
	call := controller.calls[0]
	if call.method != "xy" || call.id != 9 {
		t.Fatalf("call = %+v, want xy on light 9", call)
	}
	// Brightness follows the brightest channel.
	if call.bri != 254 {
		t.Errorf("bri = %d, want 254", call.bri)
	}
	// Mostly-blue input lands in the blue region of the CIE diagram.
	if call.x > 0.25 || call.y > 0.25 {
		t.Errorf("xy = (%v, %v), want a blue-region point", call.x, call.y)
	}
}

func TestHueSendRGBOff(t *testing.T) {
	controller := &fakeController{}
	sink := connectedHueSink(t, controller)

	err := sink.Send(lightReading("3", map[string]any{
		"mode": protocol.ModeRGB,
		"r":    int64(0), "g": int64(0), "b": int64(0),
	}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(controller.calls) != 1 || controller.calls[0].method != "on" || controller.calls[0].on {
		t.Fatalf("calls = %+v, want a single off command", controller.calls)
	}
}

func TestHueSendCCT(t *testing.T) {
	tests := []struct {
		name       string
		brightness int64
		kelvin     int64
		wantBri    int
		wantMirek  int
	}{
		{"mid range", 50, 4000, 127, 250},
		{"full warm", 100, 2700, 254, 370},
		{"cold clamped", 100, 6500, 254, 153},
		{"warm clamped", 10, 2000, 25, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			controller := &fakeController{}
			sink := connectedHueSink(t, controller)

			err := sink.Send(lightReading("4", map[string]any{
				"mode":       protocol.ModeCCT,
				"brightness": tt.brightness,
				"kelvin":     tt.kelvin,
			}))
			if err != nil {
				t.Fatalf("Send() error = %v", err)
			}

			call := controller.calls[0]
			if call.method != "ct" {
				t.Fatalf("call = %+v, want ct", call)
			}
			if call.bri != tt.wantBri {
				t.Errorf("bri = %d, want %d", call.bri, tt.wantBri)
			}
			if call.mirek != tt.wantMirek {
				t.Errorf("mirek = %d, want %d", call.mirek, tt.wantMirek)
			}
		})
	}
}

func TestHueSendCCTZeroBrightness(t *testing.T) {
	controller := &fakeController{}
	sink := connectedHueSink(t, controller)

	err := sink.Send(lightReading("4", map[string]any{
		"mode":       protocol.ModeCCT,
		"brightness": int64(0),
		"kelvin":     int64(3000),
	}))
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(controller.calls) != 1 || controller.calls[0].on {
		t.Fatalf("calls = %+v, want a single off command", controller.calls)
	}
}

func TestHueSendIgnoresOtherTypes(t *testing.T) {
	controller := &fakeController{}
	sink := connectedHueSink(t, controller)

	err := sink.Send(&protocol.Reading{
		DeviceType: protocol.DeviceTypePower,
		DeviceID:   "1",
		Value:      map[string]any{"power": 42.0},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(controller.calls) != 0 {
		t.Errorf("bridge calls = %+v, want none", controller.calls)
	}
}

func TestHueSendErrors(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		sink := NewHueSink("hue", &fakeController{}, nil)
		err := sink.Send(lightReading("1", map[string]any{"mode": protocol.ModeRGB}))
		if !errors.Is(err, ErrNotConnected) {
			t.Errorf("Send() = %v, want ErrNotConnected", err)
		}
	})

	t.Run("non-numeric id", func(t *testing.T) {
		sink := connectedHueSink(t, &fakeController{})
		err := sink.Send(lightReading("abc", map[string]any{"mode": protocol.ModeRGB}))
		if !errors.Is(err, ErrPublishFailed) {
			t.Errorf("Send() = %v, want ErrPublishFailed", err)
		}
	})

	t.Run("bridge rejects command", func(t *testing.T) {
		controller := &fakeController{callErr: errors.New("light unreachable")}
		sink := connectedHueSink(t, controller)
		err := sink.Send(lightReading("1", map[string]any{
			"mode": protocol.ModeRGB,
			"r":    int64(10), "g": int64(10), "b": int64(10),
		}))
		if !errors.Is(err, ErrPublishFailed) {
			t.Errorf("Send() = %v, want ErrPublishFailed", err)
		}
	})
}

func TestRGBToXY(t *testing.T) {
	// White should land near the D65 white point.
	x, y := rgbToXY(255, 255, 255)
	if math.Abs(x-0.3227) > 0.02 || math.Abs(y-0.3290) > 0.02 {
		t.Errorf("white xy = (%v, %v), want near (0.3227, 0.3290)", x, y)
	}

	// Pure red sits at the red corner of the gamut.
	x, y = rgbToXY(255, 0, 0)
	if x < 0.6 || y > 0.35 {
		t.Errorf("red xy = (%v, %v), want a red-corner point", x, y)
	}

	// Black degrades to the origin rather than dividing by zero.
	x, y = rgbToXY(0, 0, 0)
	if x != 0 || y != 0 {
		t.Errorf("black xy = (%v, %v), want (0, 0)", x, y)
	}
}
