// Argus Core - authentication and account service for the Argus admin
// dashboard.
//
// This is the main entry point. It wires the SQLite-backed directory,
// the session issuer, the password reset service, and the HTTP API,
// then blocks until an interrupt signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/argus-admin/argus-core/migrations"

	"github.com/argus-admin/argus-core/internal/api"
	"github.com/argus-admin/argus-core/internal/audit"
	"github.com/argus-admin/argus-core/internal/auth"
	"github.com/argus-admin/argus-core/internal/infrastructure/config"
	"github.com/argus-admin/argus-core/internal/infrastructure/database"
	"github.com/argus-admin/argus-core/internal/infrastructure/logging"
	"github.com/argus-admin/argus-core/internal/notify"
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
	log.Info("starting Argus Core",
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

	// Repositories
	userRepo := auth.NewUserRepository(db.DB)
	sessionRepo := auth.NewSessionRepository(db.DB)
	roleRepo := auth.NewRoleRepository(db.DB)
	activityRepo := audit.NewSQLiteRepository(db.DB)

	// First run: seed the initial administrator account
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Core services
	authenticator := auth.NewCredentialAuthenticator(userRepo)
	issuer := auth.NewSessionIssuer(sessionRepo, auth.SessionIssuerConfig{
		Secret:         cfg.Security.Session.Secret,
		MaxAge:         cfg.SessionMaxAge(),
		RollingRefresh: cfg.Security.Session.RollingRefresh,
	})

	notifier, err := buildNotifier(cfg, log)
	if err != nil {
		return err
	}
	resets := auth.NewPasswordResetService(userRepo, issuer, notifier, cfg.ResetTokenTTL(), log.Logger)

	// HTTP API
	server, err := api.New(api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Logger:        log,
		Users:         userRepo,
		Sessions:      issuer,
		SessionStore:  sessionRepo,
		Roles:         roleRepo,
		Authenticator: authenticator,
		Resets:        resets,
		Activity:      activityRepo,
		SweepInterval: time.Duration(cfg.Security.Session.SweepInterval) * time.Minute,
		Version:       version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")
	return nil
}

// buildNotifier selects the reset mail delivery mechanism from config.
func buildNotifier(cfg *config.Config, log *logging.Logger) (auth.Notifier, error) {
	switch cfg.Mail.Mode {
	case "smtp":
		return notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
			From:     cfg.Mail.From,
			BaseURL:  cfg.Service.BaseURL,
		}), nil
	case "log":
		log.Warn("mail mode is 'log': reset links are written to the log, not delivered")
		return notify.NewLogNotifier(log.Logger, cfg.Service.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown mail mode %q", cfg.Mail.Mode)
	}
}

// getConfigPath returns the configuration file path from args or default.
func getConfigPath() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	if env := os.Getenv("ARGUS_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}
