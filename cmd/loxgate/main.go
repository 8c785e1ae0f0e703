// loxgate - Loxone UDP protocol gateway
//
// loxgate listens for UDP packets from a Loxone miniserver, decodes the
// legacy numeric and structured JSON payload encodings, normalises them
// per device type, and fans each reading out to the configured output
// integrations (Philips Hue bridge, Telegraf, MQTT broker).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nerrad567/loxgate/internal/api"
	"github.com/nerrad567/loxgate/internal/gateway"
	"github.com/nerrad567/loxgate/internal/handler"
	"github.com/nerrad567/loxgate/internal/infrastructure/config"
	"github.com/nerrad567/loxgate/internal/infrastructure/logging"
	"github.com/nerrad567/loxgate/internal/output"
	"github.com/nerrad567/loxgate/internal/protocol"
	"github.com/nerrad567/loxgate/internal/server"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main so it can
// return errors for consistent exit handling.
func run(ctx context.Context) error {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	log := logging.Default()
	log.Info("starting loxgate", "version", version, "commit", commit)

	path := getConfigPath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", path)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Pipeline metrics
	metrics := gateway.NewMetrics()
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	if err := metrics.Register(registry); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	// Output sinks. A sink that fails to connect is logged and skipped
	// (the broker sink keeps retrying on its own); the gateway always
	// starts with whatever integrations are reachable.
	outputs := output.NewManager(cfg.Outputs, log)
	outputs.Start()
	defer func() {
		log.Info("shutting down outputs")
		outputs.Shutdown()
	}()
	log.Info("outputs started", "active", outputs.Active())

	// Packet pipeline
	decoder := protocol.NewDecoder()
	decoder.SetLogger(log)
	gw := gateway.New(
		decoder,
		handler.NewRegistry(),
		gateway.NewRoutingTable(cfg.Routing),
		outputs,
		metrics,
		log,
	)

	// UDP listeners
	udp := server.New(cfg.Inputs.UDP, gw, log)
	if err := udp.Start(); err != nil {
		return fmt.Errorf("starting udp listeners: %w", err)
	}
	defer func() {
		log.Info("stopping udp listeners")
		udp.Close()
	}()

	// Status API (optional)
	if cfg.API.Enabled {
		apiServer, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log,
			Gateway:  gw,
			Sinks:    outputs,
			Registry: registry,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("building status API: %w", err)
		}
		apiServer.Start()
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing status API", "error", closeErr)
			}
		}()
	}

	log.Info("loxgate running",
		"listeners", cfg.Inputs.UDP.Ports,
		"routes", gw.Routing().Types(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// getConfigPath resolves the config file path: flag, then LOXGATE_CONFIG,
// then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("LOXGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
