package output

import (
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/nerrad567/loxgate/internal/infrastructure/config"
	"github.com/nerrad567/loxgate/internal/protocol"
)

// defaultTelegrafPort is the conventional Telegraf socket_listener port.
const defaultTelegrafPort = 8094

// Factory builds a sink from its configuration entry.
type Factory func(name string, cfg config.OutputConfig, logger Logger) (Sink, error)

// Manager owns the lifecycle of all configured output sinks: it builds
// enabled sinks through the constructor table, connects them, exposes
// them for dispatch, and tears them down on shutdown.
type Manager struct {
	factories map[string]Factory
	sinks     map[string]Sink
	logger    Logger
}

// NewManager builds a manager with the built-in sink constructors. No
// I/O happens until Start.
func NewManager(cfg config.OutputsConfig, logger Logger) *Manager {
	return NewManagerWithFactories(cfg, defaultFactories(), logger)
}

// NewManagerWithFactories builds a manager with a custom constructor
// table. Disabled entries are skipped; entries naming an unknown sink
// type are logged and skipped rather than failing startup.
func NewManagerWithFactories(cfg config.OutputsConfig, factories map[string]Factory, logger Logger) *Manager {
	m := &Manager{
		factories: factories,
		sinks:     make(map[string]Sink),
		logger:    orNoop(logger),
	}

	for name, outputCfg := range cfg {
		if !outputCfg.Enabled {
			m.logger.Info("output disabled", "sink", name)
			continue
		}
		sink, err := buildSink(name, outputCfg, factories, m.logger)
		if err != nil {
			m.logger.Error("output construction failed", "sink", name, "error", err)
			continue
		}
		m.sinks[name] = sink
	}
	return m
}

// buildSink constructs a single sink through the factory table.
func buildSink(name string, cfg config.OutputConfig, factories map[string]Factory, logger Logger) (Sink, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSinkType, name)
	}
	return factory(name, cfg, logger)
}

// Start connects every built sink. A sink whose connect fails is removed
// from the active set unless it retries its own connection in the
// background, in which case it stays active and comes up on its own.
// Start never fails: the gateway runs with whatever sinks came up.
func (m *Manager) Start() {
	for name, sink := range m.sinks {
		err := sink.Connect()
		if err == nil {
			continue
		}
		if r, ok := sink.(Resilient); ok && r.Retrying() {
			m.logger.Warn("output connect failed, retrying in background", "sink", name, "error", err)
			continue
		}
		m.logger.Error("output connect failed", "sink", name, "error", err)
		sink.Disconnect()
		delete(m.sinks, name)
	}
}

// Send delivers a reading to the named sink.
func (m *Manager) Send(name string, r *protocol.Reading) error {
	sink, ok := m.sinks[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSinkUnavailable, name)
	}
	return sink.Send(r)
}

// Has reports whether the named sink is active.
func (m *Manager) Has(name string) bool {
	_, ok := m.sinks[name]
	return ok
}

// Active returns the names of all active sinks, sorted.
func (m *Manager) Active() []string {
	names := make([]string, 0, len(m.sinks))
	for name := range m.sinks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown disconnects every active sink.
func (m *Manager) Shutdown() {
	for name, sink := range m.sinks {
		m.logger.Info("disconnecting output", "sink", name)
		sink.Disconnect()
	}
}

// defaultFactories returns the built-in sink constructor table.
func defaultFactories() map[string]Factory {
	return map[string]Factory{
		SinkHue: func(name string, cfg config.OutputConfig, logger Logger) (Sink, error) {
			if cfg.BridgeIP == "" {
				return nil, fmt.Errorf("hue: bridge_ip is required")
			}
			controller := NewBridgeClient(cfg.BridgeIP, cfg.Username)
			return NewHueSink(name, controller, logger), nil
		},
		SinkTelegraf: func(name string, cfg config.OutputConfig, logger Logger) (Sink, error) {
			host := cfg.Host
			if host == "" {
				host = "localhost"
			}
			port := cfg.Port
			if port == 0 {
				port = defaultTelegrafPort
			}
			addr := net.JoinHostPort(host, strconv.Itoa(port))
			return NewTelegrafSink(name, addr, logger), nil
		},
		SinkMQTT: func(name string, cfg config.OutputConfig, logger Logger) (Sink, error) {
			return NewMQTTSink(name, cfg, logger), nil
		},
	}
}
