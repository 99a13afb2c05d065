// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 30 * time.Second
	defaultDatabasePath              = "./data/rerun.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultDatabaseEnableWAL         = true
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	defaultScheduleTimezone          = "Local"
	defaultBroadcastEnabled          = true
	defaultBroadcastTickInterval     = 2 * time.Second
	defaultGuideHorizon              = 6 * time.Hour
	defaultGuideMaxEntries           = 200
	envPrefix                        = "RERUN"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Schedule  ScheduleConfig
	Broadcast BroadcastConfig
	Guide     GuideConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// ScheduleConfig holds schedule evaluation configuration.
// Timezone names a Go location ("Local", "UTC", "America/New_York");
// all day-of-week and time-of-day comparisons happen in that zone.
type ScheduleConfig struct {
	Timezone string
}

// BroadcastConfig holds broadcast runner configuration
type BroadcastConfig struct {
	Enabled      bool
	TickInterval time.Duration
}

// GuideConfig holds programme guide configuration
type GuideConfig struct {
	Horizon    time.Duration
	MaxEntries int
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	// Load .env file if present (optional, won't error if missing)
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()

	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/rerun")

	// Environment variable settings
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	// Database defaults
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)

	// Logging defaults
	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)

	// Schedule defaults
	v.SetDefault("schedule.timezone", defaultScheduleTimezone)

	// Broadcast runner defaults
	v.SetDefault("broadcast.enabled", defaultBroadcastEnabled)
	v.SetDefault("broadcast.tickinterval", defaultBroadcastTickInterval)

	// Guide defaults
	v.SetDefault("guide.horizon", defaultGuideHorizon)
	v.SetDefault("guide.maxentries", defaultGuideMaxEntries)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	if c.Schedule.Timezone == "" {
		return fmt.Errorf("schedule timezone must not be empty")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("invalid schedule timezone %q: %w", c.Schedule.Timezone, err)
	}

	if c.Broadcast.TickInterval <= 0 {
		return fmt.Errorf("invalid broadcast tick interval: %v (must be > 0)", c.Broadcast.TickInterval)
	}

	if c.Guide.Horizon <= 0 {
		return fmt.Errorf("invalid guide horizon: %v (must be > 0)", c.Guide.Horizon)
	}
	if c.Guide.MaxEntries < 1 {
		return fmt.Errorf("invalid guide max entries: %d (must be >= 1)", c.Guide.MaxEntries)
	}

	return nil
}

// Location resolves the configured schedule timezone. Validate has already
// checked the name, so failures here only happen if the tz database changes
// underneath a running process.
func (c *ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
