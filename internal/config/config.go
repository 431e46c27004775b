package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Graph   GraphConfig
	Ledger  LedgerConfig
	Cache   CacheConfig
	Auth    AuthConfig
	Report  ReportConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// GraphConfig describes connectivity to the affiliate hierarchy graph (Neo4j).
type GraphConfig struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
}

// LedgerConfig points at the Postgres database holding commissions, payouts
// and attributions.
type LedgerConfig struct {
	DatabaseURL     string
	MaxConns        int32
	MinConns        int32
	ConnMaxLifetime time.Duration
}

// CacheConfig enables the Redis report cache when Addr is set.
type CacheConfig struct {
	Addr      string
	Password  string
	DB        int
	ReportTTL time.Duration
}

// AuthConfig enables bearer-token checks when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	AdminRole string
}

// ReportConfig tunes the income report views.
type ReportConfig struct {
	TopN        int
	TrendMonths int
	Currency    string
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	Colored       bool
	IncludeCaller bool
}

const (
	defaultHost               = "0.0.0.0"
	defaultPort               = 8080
	defaultReadTimeout        = 10 * time.Second
	defaultWriteTimeout       = 15 * time.Second
	defaultIdleTimeout        = 60 * time.Second
	defaultShutdownTimeout    = 10 * time.Second
	defaultLoggingLevel       = "info"
	defaultLoggingFormat      = "text"
	defaultGraphMaxSessions   = 10
	defaultLedgerMaxConns     = 10
	defaultLedgerMinConns     = 1
	defaultLedgerConnLifetime = 30 * time.Minute
	defaultReportTTL          = 2 * time.Minute
	defaultAdminRole          = "admin"
	defaultTopN               = 10
	defaultTrendMonths        = 12
	defaultCurrency           = "EUR"
)

// Load reads configuration from environment variables, applying defaults.
// Values from a .env file in the working directory are loaded first and never
// override variables already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Host:              valueOrDefault("SERVER_HOST", defaultHost),
			MetricsEnabled:    parseBoolWithDefault("SERVER_METRICS_ENABLED", false),
			AllowedOriginsCSV: os.Getenv("SERVER_ALLOWED_ORIGINS"),
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			Colored:       parseBoolWithDefault("LOG_COLOR", false),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
		Graph: GraphConfig{
			URI:            os.Getenv("GRAPH_URI"),
			Database:       valueOrDefault("GRAPH_DATABASE", ""),
			Username:       os.Getenv("GRAPH_USERNAME"),
			Password:       os.Getenv("GRAPH_PASSWORD"),
			MaxConnections: parseIntWithDefault("GRAPH_MAX_CONNECTIONS", defaultGraphMaxSessions),
		},
		Ledger: LedgerConfig{
			DatabaseURL: os.Getenv("LEDGER_DATABASE_URL"),
			MaxConns:    int32(parseIntWithDefault("LEDGER_MAX_CONNS", defaultLedgerMaxConns)),
			MinConns:    int32(parseIntWithDefault("LEDGER_MIN_CONNS", defaultLedgerMinConns)),
		},
		Cache: CacheConfig{
			Addr:     os.Getenv("CACHE_REDIS_ADDR"),
			Password: os.Getenv("CACHE_REDIS_PASSWORD"),
			DB:       parseIntWithDefault("CACHE_REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("AUTH_JWT_SECRET"),
			Issuer:    os.Getenv("AUTH_JWT_ISSUER"),
			AdminRole: valueOrDefault("AUTH_ADMIN_ROLE", defaultAdminRole),
		},
		Report: ReportConfig{
			TopN:        parseIntWithDefault("REPORT_TOP_N", defaultTopN),
			TrendMonths: parseIntWithDefault("REPORT_TREND_MONTHS", defaultTrendMonths),
			Currency:    valueOrDefault("REPORT_CURRENCY", defaultCurrency),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", defaultReadTimeout, &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", defaultWriteTimeout, &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", defaultIdleTimeout, &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout, &cfg.HTTP.ShutdownTimeout},
		{"LEDGER_CONN_MAX_LIFETIME", defaultLedgerConnLifetime, &cfg.Ledger.ConnMaxLifetime},
		{"CACHE_REPORT_TTL", defaultReportTTL, &cfg.Cache.ReportTTL},
	}
	for _, d := range durations {
		v, err := parseDuration(d.key, d.fallback)
		if err != nil {
			return Config{}, err
		}
		*d.dst = v
	}

	if cfg.Ledger.MinConns > cfg.Ledger.MaxConns {
		return Config{}, fmt.Errorf("LEDGER_MIN_CONNS (%d) exceeds LEDGER_MAX_CONNS (%d)", cfg.Ledger.MinConns, cfg.Ledger.MaxConns)
	}
	if cfg.Report.TopN <= 0 || cfg.Report.TrendMonths <= 0 {
		return Config{}, fmt.Errorf("REPORT_TOP_N and REPORT_TREND_MONTHS must be positive")
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
