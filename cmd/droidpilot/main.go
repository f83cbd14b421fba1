// DroidPilot - Android emulator fleet automation engine
//
// This is the main entry point for the DroidPilot engine. It drives a
// fleet of Android emulators over ADB: each device gets its own worker
// that runs declarative YAML automation configurations, matching
// on-screen templates and issuing input events, with run history,
// metrics and remote control surfaces layered on top.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/droidpilot/droidpilot/migrations"

	"github.com/droidpilot/droidpilot/internal/api"
	"github.com/droidpilot/droidpilot/internal/automation"
	"github.com/droidpilot/droidpilot/internal/device"
	"github.com/droidpilot/droidpilot/internal/infrastructure/config"
	"github.com/droidpilot/droidpilot/internal/infrastructure/database"
	"github.com/droidpilot/droidpilot/internal/infrastructure/influxdb"
	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
	"github.com/droidpilot/droidpilot/internal/infrastructure/mqtt"
	"github.com/droidpilot/droidpilot/internal/notify"
	"github.com/droidpilot/droidpilot/internal/orchestrator"
	"github.com/droidpilot/droidpilot/internal/vision"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting DroidPilot",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and apply migrations
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	runRepo := automation.NewSQLiteRepository(db)

	// Device fleet
	devices, err := device.FromConfig(cfg, log)
	if err != nil {
		return fmt.Errorf("building device fleet: %w", err)
	}
	log.Info("device fleet initialised", "devices", len(devices.IDs()))

	if cfg.ADB.ConnectOnStartup {
		if connErr := devices.ConnectAll(ctx); connErr != nil {
			log.Warn("not all devices connected at startup", "error", connErr)
		}
	}
	defer devices.DisconnectAll(context.Background())

	// Template store
	templates := vision.NewStore(cfg.Automation.TemplatesDir)
	if preloadErr := templates.Preload(); preloadErr != nil {
		log.Warn("template preload incomplete", "error", preloadErr)
	} else {
		log.Info("templates loaded", "count", len(templates.Names()))
	}

	// Automation engine
	registry := automation.NewRegistry()
	executor := automation.NewExecutor(devices, templates, vision.Matcher{}, log)
	runner := automation.NewRunner(registry, executor, devices, templates, log)

	configSet := orchestrator.NewConfigSet(cfg.Automation.ConfigsDir, cfg.Automation.DefaultConfig)
	if reloadErr := configSet.Reload(); reloadErr != nil {
		return fmt.Errorf("loading automation configurations: %w", reloadErr)
	}
	log.Info("automation configurations loaded", "configs", configSet.Names())

	orch := orchestrator.New(devices, configSet, runner, cfg.Automation.ScreenshotsDir, log)
	orch.SetRepository(runRepo)

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

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// HTTP API and WebSocket hub
	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Control: orch,
		Runs:    runRepo,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Run event fan-out: MQTT, InfluxDB, websocket clients
	var publisher notify.Publisher
	if mqttClient != nil {
		publisher = mqttClient
	}
	var metrics notify.MetricsWriter
	if influxClient != nil {
		metrics = influxClient
	}
	notifier := notify.New(publisher, metrics, server.Hub(), log)
	orch.SetObserver(notifier)
	runner.SetStepObserver(notifier)
	executor.SetMatchObserver(notifier)
	devices.SetOnStatusChange(func(id string, st device.Status) {
		notifier.DeviceStatus(id, string(st))
	})

	// Remote commands over MQTT
	if mqttClient != nil {
		listener := notify.NewCommandListener(orch, log)
		if listenErr := listener.Listen(mqttClient); listenErr != nil {
			log.Warn("command topic subscription failed", "error", listenErr)
		}
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Time-based fleet triggers
	if cfg.Scheduler.Enabled {
		scheduler := orchestrator.NewScheduler(cfg.Scheduler.RunMinutes, func() {
			orch.StartAll("", automation.TriggerScheduled)
		}, log)
		go scheduler.Run(ctx)
	} else {
		log.Info("scheduler disabled")
	}

	// Configuration hot reload
	if cfg.Automation.WatchConfigs {
		watcher := orchestrator.NewWatcher(cfg.Automation.ConfigsDir, func() error {
			templates.Invalidate()
			return orch.Reload()
		}, log)
		go watcher.Run(ctx)
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, workers ready")

	// Blocks until the shutdown signal; workers unwind at their next
	// step boundary before this returns.
	orch.Run(ctx)

	log.Info("DroidPilot stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DROIDPILOT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DROIDPILOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections are healthy.
// MQTT and InfluxDB are optional and skipped when nil.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
