// Gray Logic Blink - Blink camera system bridge
//
// This is the main entry point for the Blink bridge. It logs in to a Blink
// account, keeps a snapshot of the account's networks, and exposes arm and
// disarm over MQTT and an authenticated REST/WebSocket API.
//
// Usage:
//
//	blinkbridge [-config path]
//	blinkbridge -mint-token <subject> [-role viewer|operator]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	figure "github.com/common-nighthawk/go-figure"

	_ "github.com/nerrad567/gray-logic-blink/migrations"

	"github.com/nerrad567/gray-logic-blink/internal/api"
	"github.com/nerrad567/gray-logic-blink/internal/audit"
	"github.com/nerrad567/gray-logic-blink/internal/auth"
	blinkapi "github.com/nerrad567/gray-logic-blink/internal/blink"
	blinkbridge "github.com/nerrad567/gray-logic-blink/internal/bridges/blink"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-blink/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

const (
	appName           = "blinkbridge"
	defaultConfigPath = "configs/config.yaml"
)

// options holds the parsed command line.
type options struct {
	configPath string
	mintToken  string
	role       auth.Role
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if opts.mintToken != "" {
		if err := mintToken(opts, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	figure.NewFigure(appName, "cybermedium", true).Print()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads the command line. The config path falls back to
// GRAYLOGIC_CONFIG, then to the default path.
func parseFlags(args []string, output io.Writer) (options, error) {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)

	configPath := fs.String("config", getConfigPath(), "path to the YAML configuration file")
	subject := fs.String("mint-token", "", "print an API token for `subject` and exit")
	role := fs.String("role", string(auth.RoleViewer), "role for -mint-token (viewer or operator)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if !auth.IsValidRole(auth.Role(*role)) {
		return options{}, fmt.Errorf("invalid role %q", *role)
	}

	return options{
		configPath: *configPath,
		mintToken:  *subject,
		role:       auth.Role(*role),
	}, nil
}

// mintToken loads the configuration for its JWT settings and prints a
// signed access token for opts.mintToken.
func mintToken(opts options, out io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	token, err := auth.GenerateAccessToken(opts.mintToken, opts.role, cfg.Security.JWT.Secret, cfg.Security.JWT.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("minting token: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, opts options) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic Blink bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", opts.configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

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

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete", "applied", applied)

	auditRepo := audit.NewSQLiteRepository(db.DB)

	mqttClient, err := mqtt.Connect(cfg.MQTT)
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

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// InfluxDB is optional. metrics stays a nil interface when disabled.
	var influxClient *influxdb.Client
	var metrics blinkbridge.MetricsWriter
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
		metrics = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	session, system, err := login(ctx, cfg, auditRepo, log)
	if err != nil {
		return err
	}

	// The bridge broadcasts network events through the API's WebSocket hub.
	hub := api.NewHub(log)

	bridge, err := blinkbridge.NewBridge(blinkbridge.BridgeOptions{
		Session:         session,
		System:          system,
		MQTTClient:      &mqttBridgeAdapter{client: mqttClient},
		Version:         version,
		RefreshInterval: cfg.GetRefreshInterval(),
		HealthInterval:  cfg.GetHealthInterval(),
		Logger:          log,
		Audit:           auditRepo,
		Metrics:         metrics,
		Events:          hub,
	})
	if err != nil {
		return fmt.Errorf("creating Blink bridge: %w", err)
	}

	srv, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Bridge:      bridge,
		AuditRepo:   auditRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if startErr := bridge.Start(ctx); startErr != nil {
		return fmt.Errorf("starting Blink bridge: %w", startErr)
	}
	defer func() {
		log.Info("stopping Blink bridge")
		bridge.Stop()
	}()
	log.Info("Blink bridge started", "networks", system.NetworkCount())

	if startErr := srv.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// API server, bridge, InfluxDB (if enabled), MQTT, database.

	log.Info("Gray Logic Blink bridge stopped")
	return nil
}

// login authenticates against Blink and records the attempt in the audit
// trail. A failed login is fatal: without a session the bridge has nothing
// to arm or disarm.
func login(ctx context.Context, cfg *config.Config, auditRepo audit.Repository, log *logging.Logger) (*blinkapi.Session, *blinkapi.System, error) {
	session := blinkapi.NewSession(blinkapi.Credentials{
		Username: cfg.Blink.Username,
		Password: cfg.Blink.Password,
		DeviceID: cfg.Blink.DeviceID,
	}, blinkapi.Options{
		VerificationTimeout: cfg.GetVerificationTimeout(),
		DeviceName:          cfg.Blink.DeviceName,
		Executor:            blinkapi.NewHTTPExecutor(&http.Client{Timeout: cfg.GetRequestTimeout()}),
		Logger:              log,
	})

	system, err := session.Authenticate(ctx, cfg.Blink.PIN)

	var accountID int64
	if ep := session.Endpoints(); ep != nil {
		accountID = ep.AccountID
	}
	entry := audit.NewLoginLog(accountID, "startup", cfg.Blink.PIN != "", err)
	if auditErr := auditRepo.Create(ctx, entry); auditErr != nil {
		log.Warn("failed to record login audit entry", "error", auditErr)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("logging in to Blink: %w", err)
	}
	log.Info("logged in to Blink",
		"account_id", accountID,
		"networks", system.NetworkCount(),
	)
	return session, system, nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// influxClient may be nil when InfluxDB is disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
// the infrastructure client expects handlers that return an error, the
// bridge's handlers report failures on the ack topic instead.
type mqttBridgeAdapter struct {
	client interface {
		Publish(topic string, payload []byte, qos byte, retained bool) error
		Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
		IsConnected() bool
	}
}

// Publish implements blinkbridge.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements blinkbridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements blinkbridge.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
