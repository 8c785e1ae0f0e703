package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// defaultBridgeTimeout bounds every HTTP round trip to the Hue bridge.
const defaultBridgeTimeout = 5 * time.Second

// BridgeClient talks to a Philips Hue bridge over its v1 REST API.
type BridgeClient struct {
	baseURL string
	client  *http.Client
}

var _ LightController = (*BridgeClient)(nil)

// NewBridgeClient builds a client for the bridge at host using the given
// API username.
func NewBridgeClient(host, username string) *BridgeClient {
	return &BridgeClient{
		baseURL: fmt.Sprintf("http://%s/api/%s", host, username),
		client:  &http.Client{Timeout: defaultBridgeTimeout},
	}
}

// Ping verifies the bridge answers and the username is authorised.
func (c *BridgeClient) Ping() error {
	resp, err := c.client.Get(c.baseURL + "/lights")
	if err != nil {
		return fmt.Errorf("hue bridge: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hue bridge: unexpected status %d", resp.StatusCode)
	}
	// An unauthorised username still returns 200 with an error body.
	var errBody []struct {
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hue bridge: %w", err)
	}
	if json.Unmarshal(body, &errBody) == nil && len(errBody) > 0 && errBody[0].Error != nil {
		return fmt.Errorf("hue bridge: %s", errBody[0].Error.Description)
	}
	return nil
}

// SetOn switches a light on or off.
func (c *BridgeClient) SetOn(id int, on bool) error {
	return c.setState(id, map[string]any{"on": on})
}

// SetColorXY turns a light on at the given brightness and xy colour.
func (c *BridgeClient) SetColorXY(id int, bri int, x, y float64) error {
	return c.setState(id, map[string]any{
		"on":  true,
		"bri": bri,
		"xy":  []float64{x, y},
	})
}

// SetColorTemp turns a light on at the given brightness and colour
// temperature in mirek.
func (c *BridgeClient) SetColorTemp(id int, bri int, mirek int) error {
	return c.setState(id, map[string]any{
		"on":  true,
		"bri": bri,
		"ct":  mirek,
	})
}

func (c *BridgeClient) setState(id int, state map[string]any) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("hue bridge: encode state: %w", err)
	}

	url := fmt.Sprintf("%s/lights/%d/state", c.baseURL, id)
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("hue bridge: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("hue bridge: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for keepalive

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("hue bridge: light %d: unexpected status %d", id, resp.StatusCode)
	}
	return nil
}
