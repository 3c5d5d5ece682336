package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-radar/internal/strategy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "radar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	crit, err := cfg.Criteria()
	require.NoError(t, err)
	assert.Equal(t, "aggressive", crit.Name)
	assert.Equal(t, 1000, cfg.Detector.DetectedCap)
	assert.Equal(t, 10000, cfg.Detector.SignatureCap)
	assert.Equal(t, 30*time.Second, cfg.Detector.StaggerIncrement)
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
detector:
  preset: conservative
  detected_cap: 50
strategies:
  websocket:
    enabled: false
  polling:
    enabled: true
    required: true
    interval: 15s
  scanning:
    enabled: false
  boost:
    enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "conservative", cfg.Detector.Preset)
	assert.Equal(t, 50, cfg.Detector.DetectedCap)
	assert.Equal(t, 10000, cfg.Detector.SignatureCap, "unset fields keep defaults")
	assert.Equal(t, 15*time.Second, cfg.Strategies.Polling.Interval)
	assert.Equal(t, 20, cfg.Strategies.Polling.Limit)
	assert.True(t, cfg.Strategies.Polling.Required)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_CustomCriteria(t *testing.T) {
	path := writeConfig(t, `
detector:
  criteria:
    min_liquidity_usd: 2500
    max_age: 45m
    min_confidence_score: 40
    honeypot_filter: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	crit, err := cfg.Criteria()
	require.NoError(t, err)
	assert.Equal(t, "custom", crit.Name)
	assert.Equal(t, 2500.0, crit.MinLiquidityUSD)
	assert.Equal(t, 45*time.Minute, crit.MaxAge)
	assert.True(t, crit.HoneypotFilter)
	assert.False(t, crit.RugFilter)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		EnvRPCURL:        "http://rpc.local",
		EnvWSURL:         "ws://rpc.local",
		EnvPostgresDSN:   "postgres://u:p@db/radar",
		EnvClickHouseDSN: "clickhouse://ch:9000/radar",
		EnvRedisAddr:     "redis:6379",
	}
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "http://rpc.local", cfg.Solana.RPCURL)
	assert.Equal(t, "ws://rpc.local", cfg.Solana.WSURL)
	assert.Equal(t, "postgres://u:p@db/radar", cfg.Storage.PostgresDSN)
	assert.Equal(t, "clickhouse://ch:9000/radar", cfg.Storage.ClickHouseDSN)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero detected cap", func(c *Config) { c.Detector.DetectedCap = 0 }},
		{"negative signature cap", func(c *Config) { c.Detector.SignatureCap = -1 }},
		{"zero stagger", func(c *Config) { c.Detector.StaggerIncrement = 0 }},
		{"unknown preset", func(c *Config) { c.Detector.Preset = "yolo" }},
		{"websocket without endpoint", func(c *Config) { c.Solana.WSURL = "" }},
		{"scanning without rpc", func(c *Config) {
			c.Strategies.WebSocket.Enabled = false
			c.Solana.RPCURL = ""
		}},
		{"polling without interval", func(c *Config) { c.Strategies.Polling.Interval = 0 }},
		{"nothing enabled", func(c *Config) {
			c.Strategies.WebSocket.Enabled = false
			c.Strategies.Polling.Enabled = false
			c.Strategies.Scanning.Enabled = false
			c.Strategies.Boost.Enabled = false
		}},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestStrategySettings_StartOrder(t *testing.T) {
	cfg := Default()
	cfg.Strategies.WebSocket.Required = true

	settings := cfg.StrategySettings()
	require.Len(t, settings, len(strategy.StartOrder))
	for i, name := range strategy.StartOrder {
		assert.Equal(t, name, settings[i].Name)
	}
	assert.True(t, settings[0].Required)
	assert.Equal(t, strategy.DefaultBoostMultiplier, settings[3].Multiplier)
	assert.Equal(t, 5, settings[2].Inspect)
}
