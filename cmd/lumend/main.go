// Lumen Bridge - smart lighting bridge mirror
//
// This is the main entry point for the Lumen bridge daemon. It keeps a
// local mirror of a lighting bridge's resource graph and republishes
// every change:
//   - HTTPS session, enumeration, and push event stream to the bridge
//   - In-memory resource graph with ownership index
//   - Notifications on MQTT, WebSocket, and an in-process bus
//   - Optional SQLite history of emitted notifications
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/lumen-bridge/internal/api"
	"github.com/nerrad567/lumen-bridge/internal/bridge"
	"github.com/nerrad567/lumen-bridge/internal/bus"
	"github.com/nerrad567/lumen-bridge/internal/infrastructure/config"
	"github.com/nerrad567/lumen-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/lumen-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/lumen-bridge/internal/mirror"
	"github.com/nerrad567/lumen-bridge/internal/statelog"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Lumen Bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// The in-process bus always runs; it feeds the WebSocket hub and
	// the state log. MQTT joins the fanout when enabled.
	memBus := bus.NewMemory()
	outbound := bus.Fanout{memBus}

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		topics := mqtt.Topics{}
		outbound = append(outbound, bus.NewMQTT(mqttClient, topics.Notification, byte(cfg.MQTT.QoS)))
	} else {
		log.Info("MQTT disabled")
	}

	// Open the notification history log (optional)
	var history *statelog.Recorder
	if cfg.StateLog.Enabled {
		history, err = statelog.Open(cfg.StateLog.Path)
		if err != nil {
			return fmt.Errorf("opening state log: %w", err)
		}
		defer func() {
			log.Info("closing state log")
			if closeErr := history.Close(); closeErr != nil {
				log.Error("error closing state log", "error", closeErr)
			}
		}()
		history.SetLogger(log)

		unsubscribe := memBus.Subscribe(bus.GlobalChannel, history.Record)
		defer unsubscribe()
		log.Info("state log opened", "path", cfg.StateLog.Path)
	} else {
		log.Info("state log disabled")
	}

	// Bridge HTTPS client
	client := bridge.NewClient(bridgeConfig(cfg))
	client.SetLogger(log)

	// Mirror node
	node, err := mirror.NewNode(mirror.Options{
		Config: mirror.Config{
			Enabled:        cfg.Node.Enabled,
			DisableUpdates: cfg.Node.DisableUpdates,
			AutoUpdates:    cfg.Node.AutoUpdates,
			Bridge:         bridgeConfig(cfg),
		},
		API:    client,
		Bus:    outbound,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating mirror node: %w", err)
	}
	defer func() {
		log.Info("stopping mirror node")
		node.Stop()
	}()

	connected, err := node.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting mirror node: %w", err)
	}
	if connected {
		log.Info("mirror node connected")
	} else {
		log.Info("mirror node idle", "enabled", cfg.Node.Enabled)
	}

	// HTTP API server (optional)
	if cfg.API.Enabled {
		server, apiErr := api.New(api.Deps{
			Config:  cfg.API,
			WS:      cfg.WebSocket,
			Logger:  log,
			Node:    node,
			Events:  memBus,
			History: history,
			Version: version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if apiErr := server.Start(ctx); apiErr != nil {
			return fmt.Errorf("starting API server: %w", apiErr)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)
	} else {
		log.Info("API server disabled")
	}

	// Announce liveness on the system status topic
	if mqttClient != nil {
		topics := mqtt.Topics{}
		if pubErr := mqttClient.Publish(topics.SystemStatus(), []byte(`{"status":"online"}`), byte(cfg.MQTT.QoS), true); pubErr != nil {
			log.Warn("failed to publish system status", "error", pubErr)
		}
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Mirror node
	// 3. State log
	// 4. MQTT

	log.Info("Lumen Bridge stopped")
	return nil
}

// bridgeConfig maps the loaded configuration onto the bridge client's
// connection config.
func bridgeConfig(cfg *config.Config) bridge.Config {
	return bridge.Config{
		Host:           cfg.Bridge.Host,
		ApplicationKey: cfg.Bridge.ApplicationKey,
		Insecure:       cfg.Bridge.Insecure,
	}
}

// getConfigPath returns the configuration file path.
// Uses LUMEN_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LUMEN_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
