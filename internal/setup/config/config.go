package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var ErrConfigVersionMismatch = errors.New("config file version mismatch")

// EnvPrefix is the prefix for environment variable overrides.
// RELAY_DISCORD__CHANNEL_ID maps to discord.channel_id.
const EnvPrefix = "RELAY_"

// CurrentVersion of the config file format.
const CurrentVersion = 1

// Config represents the entire application configuration.
type Config struct {
	Version    int        `koanf:"version"`
	Debug      Debug      `koanf:"debug"`
	Server     Server     `koanf:"server"`
	RateLimit  RateLimit  `koanf:"rate_limit"`
	Ingest     Ingest     `koanf:"ingest"`
	PostgreSQL PostgreSQL `koanf:"postgresql"`
	Redis      Redis      `koanf:"redis"`
	Discord    Discord    `koanf:"discord"`
	Admin      Admin      `koanf:"admin"`
	Catalog    Catalog    `koanf:"catalog"`
}

// Debug contains logging configuration.
type Debug struct {
	LogLevel      string `koanf:"log_level"`        // Log level (debug, info, warn, error)
	MaxLogsToKeep int    `koanf:"max_logs_to_keep"` // Maximum log session directories to keep
}

// Server contains HTTP server bind configuration.
type Server struct {
	Host             string `koanf:"host"`               // Bind host
	Port             int    `koanf:"port"`               // Bind port
	TrustProxyHeader bool   `koanf:"trust_proxy_header"` // Honor X-Forwarded-For from a fronting proxy
}

// RateLimit contains ingestion rate limiting configuration.
type RateLimit struct {
	Requests int `koanf:"requests"` // Admissions allowed per window, per client
	Window   int `koanf:"window"`   // Window length in seconds
}

// Ingest contains report ingestion configuration.
type Ingest struct {
	APIKey string `koanf:"api_key"` // Shared key required on /report when set
}

// PostgreSQL contains database connection configuration.
type PostgreSQL struct {
	Host         string `koanf:"host"`           // Database hostname
	Port         int    `koanf:"port"`           // Database port
	User         string `koanf:"user"`           // Database username
	Password     string `koanf:"password"`       // Database password
	DBName       string `koanf:"db_name"`        // Database name
	MaxOpenConns int    `koanf:"max_open_conns"` // Maximum open connections
	MaxIdleConns int    `koanf:"max_idle_conns"` // Maximum idle connections
	MaxLifetime  int    `koanf:"max_lifetime"`   // Connection lifetime in minutes
	MaxIdleTime  int    `koanf:"max_idle_time"`  // Idle timeout in minutes
}

// Redis contains Redis connection configuration.
type Redis struct {
	Host     string `koanf:"host"`     // Redis hostname
	Port     int    `koanf:"port"`     // Redis port
	Username string `koanf:"username"` // Redis username
	Password string `koanf:"password"` // Redis password
}

// Discord contains notification delivery configuration.
type Discord struct {
	Token     string `koanf:"token"`      // Bot token for authentication
	ChannelID uint64 `koanf:"channel_id"` // Channel receiving report notifications
}

// Admin contains admin surface configuration.
type Admin struct {
	Password string   `koanf:"password"` // Panel login password
	UserIDs  []uint64 `koanf:"user_ids"` // Always-admin Discord user ids
}

// Catalog contains game catalog lookup configuration.
type Catalog struct {
	PlaceID     uint64 `koanf:"place_id"`      // Place shown on the dashboard
	CacheTTLSec int    `koanf:"cache_ttl_sec"` // Redis cache TTL for catalog data in seconds
}

// LoadConfig reads configuration from relay.toml in the search paths,
// then applies environment variable overrides. The config file is
// optional; a fully env-provided configuration is valid.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"version":                   CurrentVersion,
		"debug.log_level":           "info",
		"debug.max_logs_to_keep":    10,
		"server.host":               "0.0.0.0",
		"server.port":               5000,
		"rate_limit.requests":       10,
		"rate_limit.window":         60,
		"postgresql.host":           "localhost",
		"postgresql.port":           5432,
		"postgresql.max_open_conns": 10,
		"postgresql.max_idle_conns": 10,
		"postgresql.max_lifetime":   10,
		"postgresql.max_idle_time":  10,
		"redis.host":                "localhost",
		"redis.port":                6379,
		"catalog.cache_ttl_sec":     300,
	}
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set default %s: %w", key, err)
		}
	}

	// Config file is searched in a few fixed locations; absence is fine.
	configPaths := []string{
		".reportrelay",
		"/etc/reportrelay",
		"/app/config",
		".",
	}
	for _, path := range configPaths {
		configPath := fmt.Sprintf("%s/relay.toml", path)
		if _, err := os.Stat(configPath); err != nil {
			continue
		}
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		break
	}

	// Environment overrides: RELAY_SECTION__KEY, double underscore
	// separating section from key so keys may themselves contain one.
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment config: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: expected %d, got %d",
			ErrConfigVersionMismatch, CurrentVersion, config.Version)
	}

	return &config, nil
}
