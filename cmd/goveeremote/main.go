// goveeremote bridges a smart remote to Govee cloud devices.
//
// The driver discovers the devices on a Govee account, synthesizes remote
// UI pages for them, and dispatches button presses as rate-limited cloud
// commands. An HTTP API plus WebSocket feed serves the remote; MQTT and
// InfluxDB publication are optional extras for home automation setups
// that want the state elsewhere too.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	_ "goveeremote/migrations"

	"goveeremote/internal/api"
	"goveeremote/internal/device"
	"goveeremote/internal/discovery"
	"goveeremote/internal/dispatch"
	"goveeremote/internal/gateway"
	"goveeremote/internal/govee"
	"goveeremote/internal/infrastructure/config"
	"goveeremote/internal/infrastructure/database"
	"goveeremote/internal/infrastructure/logging"
	"goveeremote/internal/infrastructure/mqtt"
	"goveeremote/internal/infrastructure/telemetry"
	"goveeremote/internal/pages"
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
func run(ctx context.Context) error { //nolint:gocognit // linear wiring sequence, one block per subsystem
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting goveeremote",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Pull GOVEE_API_KEY and friends from a local .env when present.
	// Missing file is the normal case in production.
	if err := godotenv.Load(); err == nil {
		log.Info("loaded environment from .env")
	}

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

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise device registry from the persisted snapshot, so the
	// driver serves cached devices even when the cloud is unreachable.
	deviceRepo := device.NewSQLiteRepository(db.DB)
	registry := device.NewRegistry(deviceRepo)
	registry.SetLogger(log)

	if hydrateErr := registry.Hydrate(ctx); hydrateErr != nil {
		return fmt.Errorf("loading device registry: %w", hydrateErr)
	}
	log.Info("device registry initialised", "devices", registry.Count())

	// Govee cloud client and the rate-limited gateway in front of it
	clientOpts := []govee.Option{
		govee.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Govee.RequestTimeout) * time.Second,
		}),
	}
	if cfg.Govee.BaseURL != "" {
		clientOpts = append(clientOpts, govee.WithBaseURL(cfg.Govee.BaseURL))
	}
	client := govee.NewClient(cfg.Govee.APIKey, clientOpts...)

	gw := gateway.New(client, gateway.Config{
		GlobalMinInterval: cfg.GatewayGlobalInterval(),
		DeviceMinInterval: cfg.GatewayDeviceInterval(),
		WindowLimit:       cfg.Gateway.WindowLimit,
		Window:            cfg.GatewayWindow(),
		Retry: gateway.RetryConfig{
			MaxAttempts:  cfg.Gateway.Retry.MaxAttempts,
			InitialDelay: time.Duration(cfg.Gateway.Retry.InitialDelayMs) * time.Millisecond,
			MaxDelay:     time.Duration(cfg.Gateway.Retry.MaxDelayMs) * time.Millisecond,
			Multiplier:   cfg.Gateway.Retry.Multiplier,
		},
	})
	gw.SetLogger(log)
	defer gw.Close()

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	var topics mqtt.Topics
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
		topics = mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix}
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(disconnectErr error) {
			log.Warn("MQTT disconnected", "error", disconnectErr)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB telemetry (optional)
	var telemetryClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing telemetry connection")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing telemetry", "error", closeErr)
			}
		}()
		log.Info("telemetry connected", "url", cfg.Telemetry.URL, "bucket", cfg.Telemetry.Bucket)

		telemetryClient.SetOnError(func(writeErr error) {
			log.Error("telemetry write error", "error", writeErr)
		})
	} else {
		log.Info("telemetry disabled")
	}

	// Verify the API key and discover devices. A bad key is fatal; a
	// transient cloud failure falls back to the hydrated cache.
	disc := discovery.New(client, gw, registry, discovery.Config{
		VerifyAttempts: cfg.Discovery.VerifyAttempts,
		VerifyDelay:    time.Duration(cfg.Discovery.VerifyDelaySeconds) * time.Second,
	})
	disc.SetLogger(log)

	discoveryStart := time.Now()
	if discoverErr := runDiscovery(ctx, cfg, disc, log); discoverErr != nil {
		return discoverErr
	}

	if mqttClient != nil {
		publishDiscovery(mqttClient, topics, registry, byte(cfg.MQTT.QoS), log)
	}
	if telemetryClient != nil {
		telemetryClient.RecordDiscovery(registry.Count(), time.Since(discoveryStart))
	}

	// Command dispatcher
	dispatcher := dispatch.New(registry, gw)
	dispatcher.SetLogger(log)

	// Page synthesis honours the configured button priority, when set.
	pageOpts := pages.DefaultOptions()
	if priority := cfg.PageButtonPriority(); priority != nil {
		pageOpts.ButtonPriority = priority
		log.Info("page button priority overridden", "priority", cfg.Pages.ButtonPriority)
	}

	// WebSocket hub is created here rather than inside the API server so
	// the dispatch observer can broadcast through it.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)

	dispatcher.SetObserver(outcomeObserver(hub, mqttClient, topics, byte(cfg.MQTT.QoS), telemetryClient, registry, log))

	// Inbound MQTT command channel: publishing to <prefix>/command/<id>/set
	// dispatches that command, with the outcome flowing back through the
	// observer like any other dispatch.
	if mqttClient != nil {
		handler := mqttCommandHandler(ctx, topics, dispatcher, log)
		if subErr := mqttClient.Subscribe(topics.AllCommandSets(), byte(cfg.MQTT.QoS), handler); subErr != nil {
			log.Warn("failed to subscribe to command topic", "topic", topics.AllCommandSets(), "error", subErr)
		} else {
			log.Info("MQTT command channel active", "topic", topics.AllCommandSets())
		}
	}

	// HTTP API server
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      log,
		Registry:    registry,
		Dispatcher:  dispatcher,
		Discovery:   disc,
		PageOpts:    pageOpts,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Synthesize the initial layout from whatever the registry holds
	server.UpdateLayout(pages.Synthesize(registry.Snapshot(), pageOpts))

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, telemetry, MQTT, gateway, database

	log.Info("goveeremote stopped")
	return nil
}

// runDiscovery verifies the API key and refreshes the registry from the
// cloud. Only an invalid key is fatal; anything else leaves the cached
// registry serving until the next refresh.
func runDiscovery(ctx context.Context, cfg *config.Config, disc *discovery.Service, log *logging.Logger) error {
	count, err := disc.Verify(ctx)
	switch {
	case errors.Is(err, discovery.ErrKeyInvalid):
		return fmt.Errorf("verifying API key: %w", err)
	case errors.Is(err, discovery.ErrNoDevices):
		log.Warn("API key is valid but the account has no devices")
		return nil
	case err != nil:
		log.Warn("cloud verification failed, serving cached devices", "error", err)
		return nil
	}
	log.Info("API key verified", "devices", count)

	if _, err := disc.Discover(ctx); err != nil {
		log.Warn("device discovery failed, serving cached devices", "error", err)
		return nil
	}

	if cfg.Discovery.SyncStates {
		if err := disc.SyncStates(ctx); err != nil {
			log.Warn("state sync failed, device states may be stale", "error", err)
		}
	}
	return nil
}

// publishDiscovery pushes the discovered device list to MQTT, retained,
// plus one retained state message per device.
func publishDiscovery(client *mqtt.Client, topics mqtt.Topics, registry *device.Registry, qos byte, log *logging.Logger) {
	devices := registry.Snapshot()

	summary, err := json.Marshal(map[string]any{
		"devices":   len(devices),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
	if err == nil {
		if pubErr := client.Publish(topics.Discovery(), summary, qos, true); pubErr != nil {
			log.Warn("failed to publish discovery summary", "error", pubErr)
		}
	}

	for i := range devices {
		d := &devices[i]
		payload, marshalErr := json.Marshal(map[string]any{
			"device_id": d.ID,
			"sku":       d.SKU,
			"name":      d.Name,
			"online":    d.Online,
			"state":     d.State,
		})
		if marshalErr != nil {
			continue
		}
		if pubErr := client.Publish(topics.DeviceState(d.ID), payload, qos, true); pubErr != nil {
			log.Warn("failed to publish device state", "device_id", d.ID, "error", pubErr)
		}
		if pubErr := client.Publish(topics.DeviceAvailability(d.ID), availabilityPayload(d.Online), qos, true); pubErr != nil {
			log.Warn("failed to publish device availability", "device_id", d.ID, "error", pubErr)
		}
	}
}

// availabilityPayload follows the home-automation convention of plain
// "online"/"offline" availability strings.
func availabilityPayload(online bool) []byte {
	if online {
		return []byte("online")
	}
	return []byte("offline")
}

// mqttDispatchTimeout bounds a broker-initiated dispatch; the gateway
// queue can hold a command for a while under rate pressure.
const mqttDispatchTimeout = 30 * time.Second

// commandSink is the slice of the dispatcher the MQTT channel needs.
type commandSink interface {
	Dispatch(ctx context.Context, commandID string) dispatch.Outcome
}

// mqttCommandHandler turns a publish on a command set topic into a
// dispatch. The payload is ignored; the command ID in the topic carries
// everything. Dispatching happens on a fresh goroutine because broker
// handlers must not block behind the gateway queue.
func mqttCommandHandler(ctx context.Context, topics mqtt.Topics, sink commandSink, log *logging.Logger) mqtt.MessageHandler {
	return func(topic string, _ []byte) error {
		id, ok := topics.CommandIDFromSet(topic)
		if !ok {
			return fmt.Errorf("unexpected command topic %q", topic)
		}
		go func() {
			dispatchCtx, cancel := context.WithTimeout(ctx, mqttDispatchTimeout)
			defer cancel()
			out := sink.Dispatch(dispatchCtx, id)
			if out.Status == dispatch.StatusUnknown {
				log.Warn("mqtt command not recognised", "command_id", id)
				return
			}
			log.Info("mqtt command dispatched", "command_id", id, "status", out.Status)
		}()
		return nil
	}
}

// outcomeObserver fans each command outcome out to the WebSocket hub,
// the MQTT broker, and telemetry. Runs on the dispatch goroutine, so
// every sink here must be non-blocking.
func outcomeObserver(hub *api.Hub, mqttClient *mqtt.Client, topics mqtt.Topics, qos byte, telemetryClient *telemetry.Client, registry *device.Registry, log *logging.Logger) func(dispatch.Outcome) {
	return func(out dispatch.Outcome) {
		hub.Broadcast(api.ChannelCommandOutcome, out)

		for _, res := range out.Results {
			if res.Err != nil {
				continue
			}
			hub.Broadcast(api.ChannelDeviceState, map[string]any{
				"device_id": res.DeviceID,
				"instance":  res.Instance,
				"value":     res.Value,
			})
		}

		if mqttClient != nil {
			if payload, err := json.Marshal(out); err == nil {
				if pubErr := mqttClient.Publish(topics.CommandOutcome(out.CommandID), payload, qos, false); pubErr != nil {
					log.Warn("failed to publish command outcome", "command_id", out.CommandID, "error", pubErr)
				}
			}
			publishResultStates(mqttClient, topics, registry, qos, out.Results, log)
		}

		if telemetryClient != nil {
			duration := time.Duration(out.DurationMS) * time.Millisecond
			for _, res := range out.Results {
				status := "ok"
				if res.Err != nil {
					status = "failed"
				}
				telemetryClient.RecordCommand(out.CommandID, res.DeviceID, status, res.Attempts, duration)

				if v, isNum := res.Value.(float64); isNum && res.Err == nil {
					telemetryClient.RecordDeviceState(res.DeviceID, res.Instance, v)
				}
			}
		}
	}
}

// publishResultStates refreshes the retained MQTT state message for each
// device a command successfully changed.
func publishResultStates(client *mqtt.Client, topics mqtt.Topics, registry *device.Registry, qos byte, results []dispatch.DeviceResult, log *logging.Logger) {
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		dev, err := registry.Get(res.DeviceID)
		if err != nil {
			continue
		}
		payload, marshalErr := json.Marshal(map[string]any{
			"device_id": dev.ID,
			"sku":       dev.SKU,
			"name":      dev.Name,
			"online":    dev.Online,
			"state":     dev.State,
		})
		if marshalErr != nil {
			continue
		}
		if pubErr := client.Publish(topics.DeviceState(dev.ID), payload, qos, true); pubErr != nil {
			log.Warn("failed to publish device state", "device_id", dev.ID, "error", pubErr)
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses GOVEEREMOTE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GOVEEREMOTE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, telemetryClient *telemetry.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}
