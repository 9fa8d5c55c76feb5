package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/config"
	"go.uber.org/zap/zapcore"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := config.FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, 8080, cfg.Port)
	assert.False(t, cfg.Scheduler.Enabled)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := config.FromEnv(env(map[string]string{
		"PORT":               "9090",
		"DB_PATH":            ":memory:",
		"RATES_FILE":         "rates.yaml",
		"LOG_LEVEL":          "DEBUG",
		"LOG_FORMAT":         "console",
		"SCHEDULER_ENABLED":  "true",
		"SCHEDULER_INTERVAL": "15m",
		"BATCH_WORKERS":      "8",
		"CORS_ORIGINS":       "http://a.test, http://b.test,",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "rates.yaml", cfg.RatesFile)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 8, cfg.BatchWorkers)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"port not a number":  {"PORT": "eighty"},
		"port out of range":  {"PORT": "70000"},
		"bad bool":           {"SCHEDULER_ENABLED": "sometimes"},
		"bad duration":       {"SCHEDULER_INTERVAL": "hourly"},
		"negative interval":  {"SCHEDULER_INTERVAL": "-1m"},
		"zero workers":       {"BATCH_WORKERS": "0"},
		"unknown log level":  {"LOG_LEVEL": "verbose"},
		"unknown log format": {"LOG_FORMAT": "xml"},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.FromEnv(env(vars))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "warn"

	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
