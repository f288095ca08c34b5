package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Argus Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
	Mail      MailConfig      `yaml:"mail"`
}

// ServiceConfig contains service-level identification settings.
type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	BaseURL     string `yaml:"base_url"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`

	// DashboardDir overrides the embedded admin UI with assets from the
	// filesystem. Empty means serve the embedded bundle.
	DashboardDir string `yaml:"dashboard_dir"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains settings for the activity event stream.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains authentication and session settings.
type SecurityConfig struct {
	Session SessionConfig `yaml:"session"`
	Reset   ResetConfig   `yaml:"reset"`
}

// SessionConfig contains session token settings.
type SessionConfig struct {
	// Secret signs session tokens. Required; minimum 32 characters.
	Secret string `yaml:"secret"`

	// MaxAgeDays is the session lifetime from issuance. Default: 30.
	MaxAgeDays int `yaml:"max_age_days"`

	// RollingRefresh extends a session's expiry back to the full
	// lifetime each time it is validated.
	RollingRefresh bool `yaml:"rolling_refresh"`

	// SweepInterval is how often expired session rows are deleted (minutes).
	SweepInterval int `yaml:"sweep_interval"`
}

// ResetConfig contains password reset token settings.
type ResetConfig struct {
	// TokenTTL is the reset token lifetime in minutes. Default: 60.
	TokenTTL int `yaml:"token_ttl"`
}

// MailConfig contains outbound notification settings.
type MailConfig struct {
	// Mode selects the delivery mechanism: "smtp" sends real mail,
	// "log" writes reset links to the diagnostic log instead.
	// The log mode is an explicit operating mode for non-production
	// environments, never a silent fallback.
	Mode string     `yaml:"mode"`
	From string     `yaml:"from"`
	SMTP SMTPConfig `yaml:"smtp"`
}

// SMTPConfig contains SMTP relay settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ARGUS_SECTION_KEY
// For example: ARGUS_DATABASE_PATH, ARGUS_SESSION_SECRET
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
		Service: ServiceConfig{
			Name:        "argus",
			Environment: "development",
			BaseURL:     "http://localhost:8080",
		},
		Database: DatabaseConfig{
			Path:        "./data/argus.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/events",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			Session: SessionConfig{
				MaxAgeDays:     30,
				RollingRefresh: false,
				SweepInterval:  60,
			},
			Reset: ResetConfig{
				TokenTTL: 60,
			},
		},
		Mail: MailConfig{
			Mode: "log",
			From: "noreply@localhost",
			SMTP: SMTPConfig{
				Host: "localhost",
				Port: 587,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ARGUS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("ARGUS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("ARGUS_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Service
	if v := os.Getenv("ARGUS_BASE_URL"); v != "" {
		cfg.Service.BaseURL = v
	}

	// Mail
	if v := os.Getenv("ARGUS_SMTP_PASSWORD"); v != "" {
		cfg.Mail.SMTP.Password = v
	}

	// Security - session secret (IMPORTANT: always override in production)
	if v := os.Getenv("ARGUS_SESSION_SECRET"); v != "" {
		cfg.Security.Session.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Security validation - session secret is REQUIRED.
	// An empty or weak secret would let an attacker forge session tokens
	// and act as any account, including admins.
	const minSessionSecretLength = 32
	if c.Security.Session.Secret == "" {
		errs = append(errs, "security.session.secret is required (set ARGUS_SESSION_SECRET environment variable)")
	} else if len(c.Security.Session.Secret) < minSessionSecretLength {
		errs = append(errs, "security.session.secret must be at least 32 characters for adequate security")
	}

	if c.Security.Session.MaxAgeDays <= 0 {
		errs = append(errs, "security.session.max_age_days must be positive")
	}

	if c.Security.Reset.TokenTTL <= 0 {
		errs = append(errs, "security.reset.token_ttl must be positive")
	}

	// Mail validation
	switch c.Mail.Mode {
	case "smtp", "log":
	default:
		errs = append(errs, "mail.mode must be \"smtp\" or \"log\"")
	}
	if c.Mail.Mode == "smtp" && c.Mail.SMTP.Host == "" {
		errs = append(errs, "mail.smtp.host is required when mail.mode is \"smtp\"")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// SessionMaxAge returns the configured session lifetime as a Duration.
func (c *Config) SessionMaxAge() time.Duration {
	return time.Duration(c.Security.Session.MaxAgeDays) * 24 * time.Hour
}

// ResetTokenTTL returns the configured reset token lifetime as a Duration.
func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.Security.Reset.TokenTTL) * time.Minute
}
