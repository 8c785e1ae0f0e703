package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for loxgate.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Inputs  InputsConfig  `yaml:"inputs"`
	Outputs OutputsConfig `yaml:"outputs"`
	Routing RoutingConfig `yaml:"routing"`
	Logging LoggingConfig `yaml:"logging"`
	API     APIConfig     `yaml:"api"`
}

// InputsConfig contains inbound packet source settings.
type InputsConfig struct {
	UDP UDPConfig `yaml:"udp"`
}

// UDPConfig contains UDP listener settings.
// The gateway binds every listed port on the same address.
type UDPConfig struct {
	IP    string `yaml:"ip"`
	Ports []int  `yaml:"ports"`
}

// OutputsConfig maps sink name to its configuration.
//
// Per the wire contract for output configuration, an entry whose value is
// not a mapping (a bare scalar, a list, null) is normalised to a disabled
// sink rather than rejected.
type OutputsConfig map[string]OutputConfig

// OutputConfig holds the configuration for a single output sink.
//
// It is a superset of the fields used by the individual sinks; each sink
// reads only the keys it understands, mirroring the free-form per-output
// mapping in the config file.
type OutputConfig struct {
	Enabled bool `yaml:"enabled"`

	// Hue bridge
	BridgeIP string `yaml:"bridge_ip"`

	// Hue bridge username / MQTT username
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Telegraf / MQTT endpoint
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// MQTT broker
	TopicPrefix string          `yaml:"topic_prefix"`
	ClientID    string          `yaml:"client_id"`
	Keepalive   int             `yaml:"keepalive"`
	TLS         bool            `yaml:"tls"`
	QoS         int             `yaml:"qos"`
	Reconnect   ReconnectConfig `yaml:"reconnect"`
}

// ReconnectConfig contains the broker sink reconnection schedule.
//
// The reconnection loop uses ShortInterval for the first InitialAttempts
// attempts of a loop activation, then LongInterval for the remainder of
// that loop's lifetime. All values are in seconds.
type ReconnectConfig struct {
	RetryInterval        int `yaml:"retry_interval"`
	RetryLongInterval    int `yaml:"retry_long_interval"`
	RetryInitialAttempts int `yaml:"retry_initial_attempts"`
}

// ShortInterval returns the initial retry interval as a Duration.
func (r ReconnectConfig) ShortInterval() time.Duration {
	return time.Duration(r.RetryInterval) * time.Second
}

// LongInterval returns the long retry interval as a Duration.
func (r ReconnectConfig) LongInterval() time.Duration {
	return time.Duration(r.RetryLongInterval) * time.Second
}

// RoutingConfig maps device-type token to its routing entry.
type RoutingConfig map[string]RoutingEntry

// RoutingEntry lists the output sinks a device type fans out to, in order.
type RoutingEntry struct {
	Outputs []string `yaml:"outputs"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// APIConfig contains the status HTTP server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// defaultReconnect is the broker sink reconnection schedule applied when
// the config file omits values: 15 attempts at 60s, then every 1800s.
func defaultReconnect() ReconnectConfig {
	return ReconnectConfig{
		RetryInterval:        60,
		RetryLongInterval:    1800,
		RetryInitialAttempts: 15,
	}
}

// UnmarshalYAML normalises a single output entry.
//
// A non-mapping entry (bare scalar, list, null) becomes a disabled sink.
// For mapping entries, "enabled" defaults to true when omitted.
func (o *OutputConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		*o = OutputConfig{Enabled: false}
		return nil
	}

	// Alias type avoids recursing into this method.
	type plain OutputConfig
	p := plain{
		Enabled:   true,
		Reconnect: defaultReconnect(),
	}
	if err := node.Decode(&p); err != nil {
		return fmt.Errorf("output config: %w", err)
	}
	*o = OutputConfig(p)
	return nil
}

// UnmarshalYAML normalises a routing entry.
//
// The entry must be a mapping with an "outputs" key. A bare-string
// "outputs" becomes a single-element list; anything unrecognised (the
// entry itself being a scalar, "outputs" being a mapping, a list that is
// not a list of strings) becomes an empty output list. Malformed routing
// never fails config loading; it just routes nowhere.
func (r *RoutingEntry) UnmarshalYAML(node *yaml.Node) error {
	r.Outputs = nil

	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != "outputs" {
			continue
		}
		value := node.Content[i+1]
		switch value.Kind {
		case yaml.ScalarNode:
			var name string
			if err := value.Decode(&name); err == nil && name != "" {
				r.Outputs = []string{name}
			}
		case yaml.SequenceNode:
			var names []string
			if err := value.Decode(&names); err == nil {
				r.Outputs = names
			}
		default:
			// Unrecognised shape: leave empty.
		}
	}
	return nil
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: LOXGATE_SECTION_KEY
// For example: LOXGATE_MQTT_HOST, LOXGATE_HUE_USERNAME
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Inputs: InputsConfig{
			UDP: UDPConfig{
				IP:    "0.0.0.0",
				Ports: []int{52001},
			},
		},
		Outputs: OutputsConfig{},
		Routing: RoutingConfig{},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		API: APIConfig{
			Enabled: false,
			Host:    "0.0.0.0",
			Port:    8093,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LOXGATE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	overrideOutput := func(name string, apply func(o *OutputConfig)) {
		o, ok := cfg.Outputs[name]
		if !ok {
			return
		}
		apply(&o)
		cfg.Outputs[name] = o
	}

	// MQTT broker credentials and host
	if v := os.Getenv("LOXGATE_MQTT_HOST"); v != "" {
		overrideOutput("mqtt", func(o *OutputConfig) { o.Host = v })
	}
	if v := os.Getenv("LOXGATE_MQTT_USERNAME"); v != "" {
		overrideOutput("mqtt", func(o *OutputConfig) { o.Username = v })
	}
	if v := os.Getenv("LOXGATE_MQTT_PASSWORD"); v != "" {
		overrideOutput("mqtt", func(o *OutputConfig) { o.Password = v })
	}

	// Hue bridge credentials
	if v := os.Getenv("LOXGATE_HUE_BRIDGE_IP"); v != "" {
		overrideOutput("hue", func(o *OutputConfig) { o.BridgeIP = v })
	}
	if v := os.Getenv("LOXGATE_HUE_USERNAME"); v != "" {
		overrideOutput("hue", func(o *OutputConfig) { o.Username = v })
	}

	// Status API
	if v := os.Getenv("LOXGATE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Input validation
	if len(c.Inputs.UDP.Ports) == 0 {
		errs = append(errs, "inputs.udp.ports must list at least one port")
	}
	for _, port := range c.Inputs.UDP.Ports {
		if port < 1 || port > 65535 {
			errs = append(errs, fmt.Sprintf("inputs.udp.ports: %d out of range", port))
		}
	}

	// Output validation
	for name, o := range c.Outputs {
		if o.QoS < 0 || o.QoS > 2 {
			errs = append(errs, fmt.Sprintf("outputs.%s.qos must be 0, 1, or 2", name))
		}
		if o.Reconnect.RetryInterval < 0 || o.Reconnect.RetryLongInterval < 0 || o.Reconnect.RetryInitialAttempts < 0 {
			errs = append(errs, fmt.Sprintf("outputs.%s.reconnect values must not be negative", name))
		}
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
