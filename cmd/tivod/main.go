// tivod is a control and monitoring daemon for TiVo set-top boxes.
//
// It polls each configured box over the TCP remote protocol, merges the
// platform channel listing with regional numbering into a channel
// directory, attaches TV guide programmes to live viewing state, and
// exposes the result over an HTTP API, WebSocket stream, MQTT topics
// and optional InfluxDB telemetry.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/hartleigh/tivod/migrations"

	"github.com/hartleigh/tivod/internal/api"
	"github.com/hartleigh/tivod/internal/bridge"
	"github.com/hartleigh/tivod/internal/cache"
	"github.com/hartleigh/tivod/internal/channels"
	"github.com/hartleigh/tivod/internal/guide"
	"github.com/hartleigh/tivod/internal/infrastructure/config"
	"github.com/hartleigh/tivod/internal/infrastructure/database"
	"github.com/hartleigh/tivod/internal/infrastructure/influxdb"
	"github.com/hartleigh/tivod/internal/infrastructure/logging"
	"github.com/hartleigh/tivod/internal/infrastructure/mqtt"
	"github.com/hartleigh/tivod/internal/session"
	"github.com/hartleigh/tivod/internal/telemetry"
	"github.com/hartleigh/tivod/internal/tvlist"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
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
	log.Info("starting tivod",
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

	// Cache store backs the auth, channels and listings tiers
	store := cache.NewStore(db, log)

	// TV guide client and session-managed service
	guideClient, err := guide.NewClient(cfg.Guide.BaseURL, cfg.Guide.LoginURL,
		cfg.Guide.ScheduleMax, cfg.Guide.FetchTimeout, log)
	if err != nil {
		return fmt.Errorf("creating guide client: %w", err)
	}
	guideSvc := guide.NewService(guideClient, store,
		cfg.Account.Username, cfg.Account.Password,
		cfg.Cache.AuthTTL, cfg.Cache.ListingsTTL, log)

	// Channel directory (optional). Without it, devices report raw
	// channel numbers and no programme information.
	var channelSvc *channels.Service
	if cfg.Account.FetchChannels {
		scraper := tvlist.NewScraper(cfg.Scraper.URL, cfg.Scraper.FetchTimeout, log)
		channelSvc = channels.NewService(scraper, guideSvc, store,
			cfg.Account.Region, cfg.Cache.ChannelsTTL,
			cfg.Account.DropListingOnly, log)
		log.Info("channel directory enabled", "region", cfg.Account.Region)
	} else {
		log.Info("channel directory disabled")
	}

	// Session manager. Sinks are registered below once the consumers
	// exist; sessions only start at manager.Start().
	var directory session.DirectoryProvider
	if channelSvc != nil {
		directory = channelSvc
	}
	manager := session.NewManager(directory, guideSvc, nil, nil, log)
	defer func() {
		log.Info("stopping device sessions")
		manager.Stop()
	}()

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
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// HTTP API and WebSocket server
	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Security: cfg.Security,
		Logger:   log,
		Devices:  manager,
		Cache:    store,
		Version:  version,
	}
	if channelSvc != nil {
		deps.Channels = channelSvc
	}
	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		"tls", cfg.API.TLS.Enabled,
	)

	// State fan-out: every snapshot change reaches the WebSocket hub,
	// the MQTT state topics and the telemetry recorder.
	manager.AddSink(srv.Hub())

	var mqttBridge *bridge.Bridge
	if mqttClient != nil {
		var refresher bridge.ChannelRefresher
		if channelSvc != nil {
			refresher = channelSvc
		}
		mqttBridge = bridge.New(mqttClient, manager, refresher, store, byte(cfg.MQTT.QoS), log)
		manager.AddSink(mqttBridge)
	}
	if influxClient != nil {
		manager.AddSink(telemetry.NewRecorder(influxClient))
	}

	// Start polling the configured boxes
	if startErr := manager.Start(ctx, cfg.Devices); startErr != nil {
		return fmt.Errorf("starting device sessions: %w", startErr)
	}

	// Begin accepting MQTT commands once sessions exist
	if mqttBridge != nil {
		if startErr := mqttBridge.Start(); startErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", startErr)
		}
		log.Info("MQTT bridge started")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, sessions, database.

	log.Info("tivod stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TIVOD_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TIVOD_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections are healthy.
// The MQTT and InfluxDB clients may be nil when those subsystems are
// disabled.
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
