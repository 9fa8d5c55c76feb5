/*
Package config loads server settings.

PRECEDENCE (lowest to highest):
  1. Defaults below
  2. Environment, with a .env file in the working directory loaded first
     when present (variables already set are not overridden)
  3. Command-line flags, applied by cmd/server

KEYS:
  PORT                HTTP port                           8080
  DB_PATH             SQLite path, ":memory:" allowed     payroll.db
  RATES_FILE          YAML rate tables, empty = statutory ""
  LOG_LEVEL           debug | info | warn | error         info
  LOG_FORMAT          json | console                      json
  SCHEDULER_ENABLED   month-end batch settlement          false
  SCHEDULER_INTERVAL  tick interval (Go duration)         1h
  BATCH_WORKERS       concurrent settlements per run      4
  CORS_ORIGINS        comma-separated origins             *
*/
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Port      int
	DBPath    string
	RatesFile string
	Log       LogConfig
	Scheduler SchedulerConfig
	// BatchWorkers bounds concurrent settlements in a batch run.
	BatchWorkers int
	CORSOrigins  []string
}

type LogConfig struct {
	Level  string
	Format string
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:         8080,
		DBPath:       "payroll.db",
		Log:          LogConfig{Level: "info", Format: "json"},
		Scheduler:    SchedulerConfig{Enabled: false, Interval: time.Hour},
		BatchWorkers: 4,
		CORSOrigins:  []string{"*"},
	}
}

// Load reads .env (if any) and the environment over the defaults.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, so tests need not touch
// the process environment.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	var err error

	if v := getenv("PORT"); v != "" {
		if cfg.Port, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("invalid PORT: %w", err)
		}
	}
	if v := getenv("DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	cfg.RatesFile = getenv("RATES_FILE")
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = strings.ToLower(v)
	}
	if v := getenv("SCHEDULER_ENABLED"); v != "" {
		if cfg.Scheduler.Enabled, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("invalid SCHEDULER_ENABLED: %w", err)
		}
	}
	if v := getenv("SCHEDULER_INTERVAL"); v != "" {
		if cfg.Scheduler.Interval, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("invalid SCHEDULER_INTERVAL: %w", err)
		}
	}
	if v := getenv("BATCH_WORKERS"); v != "" {
		if cfg.BatchWorkers, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("invalid BATCH_WORKERS: %w", err)
		}
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid LOG_FORMAT %q (json or console)", c.Log.Format)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive")
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1")
	}
	return nil
}

// NewLogger builds the process logger: JSON production encoding, or the
// development console encoder.
func (c Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if c.Log.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
