// Gray Logic Edge - Industrial Protocol Gateway
//
// This is the main entry point for the Gray Logic Edge gateway. The gateway
// speaks to field devices through protocol driver plugins and exposes their
// data points over a REST API, a WebSocket value stream, and an MQTT bus:
//   - Protocol drivers as compiled-in builtins or loadable .so modules
//   - Point dispatch with shadow caching, scaling, and request coalescing
//   - SQLite metadata store, InfluxDB value history
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-edge/migrations"

	"github.com/nerrad567/gray-logic-edge/internal/api"
	"github.com/nerrad567/gray-logic-edge/internal/auth"
	"github.com/nerrad567/gray-logic-edge/internal/bridges/mqttbus"
	"github.com/nerrad567/gray-logic-edge/internal/device"
	"github.com/nerrad567/gray-logic-edge/internal/dispatch"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-edge/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-edge/internal/plugin"
	"github.com/nerrad567/gray-logic-edge/internal/shadow"
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
	log.Info("starting Gray Logic Edge",
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

	// Metadata repositories
	deviceRepo := device.NewSQLiteRepository(db.DB)
	pluginRepo := plugin.NewSQLiteRepository(db.DB)

	// Protocol registry and plugin loader
	registry := plugin.NewRegistry()
	defer func() {
		log.Info("closing protocol drivers")
		if closeErr := registry.CloseAll(); closeErr != nil {
			log.Error("error closing drivers", "error", closeErr)
		}
	}()

	loader := plugin.NewLoader(registry, plugin.LoaderConfig{
		Dir:           cfg.Plugins.Dir,
		RestrictToDir: cfg.Plugins.Restrict,
	})
	loader.SetLogger(log)

	// Connect to MQTT broker and register the builtin bus driver
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
		mqttClient.SetLogger(log)
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		// #nosec G115 -- QoS validated to 0..2 by config
		factory := mqttbus.Factory(mqttClient, byte(cfg.MQTT.QoS))
		if err := loader.RegisterBuiltin(mqttbus.ProtocolName,
			"builtin MQTT topic bus driver", factory); err != nil {
			return fmt.Errorf("registering MQTT bus driver: %w", err)
		}
	} else {
		log.Info("MQTT disabled")
	}

	// Load plugin modules: configured autoloads first, then the custom
	// plugins recorded by the install API on earlier runs.
	if err := loadPlugins(ctx, cfg, loader, registry, pluginRepo, log); err != nil {
		return err
	}
	log.Info("protocol registry ready", "protocols", registry.Count())

	// Dispatch engine over the shadow store
	store := shadow.NewStore()
	engine := dispatch.NewEngine(registry, deviceRepo, store, dispatch.Config{
		DriverTimeout: cfg.Dispatch.DriverTimeoutDuration(),
		ShadowTTL:     cfg.Dispatch.ShadowTTLDuration(),
	})
	engine.SetLogger(log)

	// Connect to InfluxDB (optional) and wire it as the value recorder
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		engine.SetRecorder(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// API server
	server, err := api.New(api.Deps{
		Config:        cfg.API,
		Plugins:       cfg.Plugins,
		Logger:        log,
		Authenticator: auth.NewAuthenticator(cfg.Security),
		Devices:       deviceRepo,
		Engine:        engine,
		Registry:      registry,
		Loader:        loader,
		PluginRepo:    pluginRepo,
		DB:            db,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Committed values stream to WebSocket clients
	engine.SetPublisher(server.Hub())

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Protocol drivers
	// 5. Database

	log.Info("Gray Logic Edge stopped")
	return nil
}

// loadPlugins installs the configured autoload modules and reloads the
// custom plugins persisted by the install API. A plugin that fails to load
// is logged and skipped; the gateway still serves its other protocols.
func loadPlugins(ctx context.Context, cfg *config.Config, loader *plugin.Loader,
	registry *plugin.Registry, pluginRepo plugin.Repository, log *logging.Logger) error {
	for _, spec := range cfg.Plugins.Autoload {
		if _, err := loader.Load(spec.Name, spec.Path, ""); err != nil {
			if errors.Is(err, plugin.ErrDuplicateProtocol) {
				return fmt.Errorf("autoloading plugin %q: %w", spec.Name, err)
			}
			log.Warn("autoload plugin failed, skipping",
				"protocol", spec.Name, "path", spec.Path, "error", err)
		}
	}

	records, err := pluginRepo.ListByKind(ctx, plugin.KindCustom)
	if err != nil {
		return fmt.Errorf("listing persisted plugins: %w", err)
	}
	for _, rec := range records {
		if _, err := registry.Get(rec.Name); err == nil {
			continue // Already loaded via autoload
		}
		if _, err := loader.Load(rec.Name, rec.Path, rec.Description); err != nil {
			log.Warn("persisted plugin failed to load, skipping",
				"protocol", rec.Name, "path", rec.Path, "error", err)
		}
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYEDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYEDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
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
