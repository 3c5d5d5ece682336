// Package config loads the radar configuration from YAML with environment
// overrides for endpoints and credentials.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"solana-token-radar/internal/filter"
	"solana-token-radar/internal/logging"
	"solana-token-radar/internal/strategy"
)

// Environment overrides.
const (
	EnvRPCURL        = "RADAR_RPC_URL"
	EnvWSURL         = "RADAR_WS_URL"
	EnvPostgresDSN   = "RADAR_POSTGRES_DSN"
	EnvClickHouseDSN = "RADAR_CLICKHOUSE_DSN"
	EnvRedisAddr     = "RADAR_REDIS_ADDR"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the full radar configuration.
type Config struct {
	Solana     SolanaConfig     `yaml:"solana"`
	MarketData MarketDataConfig `yaml:"marketdata"`
	Redis      RedisConfig      `yaml:"redis"`
	Detector   DetectorConfig   `yaml:"detector"`
	Strategies StrategiesConfig `yaml:"strategies"`
	Storage    StorageConfig    `yaml:"storage"`
	API        APIConfig        `yaml:"api"`
	Logging    logging.Config   `yaml:"logging"`
}

// SolanaConfig holds the node endpoints.
type SolanaConfig struct {
	RPCURL     string        `yaml:"rpc_url"`
	WSURL      string        `yaml:"ws_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// MarketDataConfig configures the DexScreener gateway.
type MarketDataConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	RPS             float64       `yaml:"rps"`
	Burst           int           `yaml:"burst"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// RedisConfig enables the shared gateway response cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// DetectorConfig configures the coordinator.
type DetectorConfig struct {
	Preset string `yaml:"preset"`
	// Criteria replaces the preset entirely when set.
	Criteria *filter.AcceptanceCriteria `yaml:"criteria,omitempty"`

	DetectedCap      int           `yaml:"detected_cap"`
	SignatureCap     int           `yaml:"signature_cap"`
	CleanupInterval  time.Duration `yaml:"cleanup_interval"`
	StaggerIncrement time.Duration `yaml:"stagger_increment"`
	MetadataLookup   bool          `yaml:"metadata_lookup"`
}

// StrategyConfig is the per-strategy block.
type StrategyConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Required      bool          `yaml:"required"`
	Interval      time.Duration `yaml:"interval,omitempty"`
	Multiplier    int           `yaml:"multiplier,omitempty"`
	Limit         int           `yaml:"limit,omitempty"`
	Inspect       int           `yaml:"inspect,omitempty"`
	Programs      []string      `yaml:"programs,omitempty"`
	RetryAttempts int           `yaml:"retry_attempts,omitempty"`
	RetryDelay    time.Duration `yaml:"retry_delay,omitempty"`
}

// StrategiesConfig holds one block per strategy.
type StrategiesConfig struct {
	WebSocket StrategyConfig `yaml:"websocket"`
	Polling   StrategyConfig `yaml:"polling"`
	Scanning  StrategyConfig `yaml:"scanning"`
	Boost     StrategyConfig `yaml:"boost"`
}

// StorageConfig selects the sinks. Empty DSNs fall back to memory.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
	Migrate       bool   `yaml:"migrate"`
}

// APIConfig configures the status HTTP server. Empty Addr disables it.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration that runs every strategy against the
// public mainnet endpoints with the aggressive preset.
func Default() Config {
	return Config{
		Solana: SolanaConfig{
			RPCURL:     "https://api.mainnet-beta.solana.com",
			WSURL:      "wss://api.mainnet-beta.solana.com",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		MarketData: MarketDataConfig{
			BaseURL:         "https://api.dexscreener.com",
			Timeout:         10 * time.Second,
			RPS:             1,
			Burst:           2,
			CacheTTL:        15 * time.Second,
			BreakerFailures: 3,
			BreakerCooldown: 60 * time.Second,
		},
		Redis: RedisConfig{Prefix: "radar:"},
		Detector: DetectorConfig{
			Preset:           "aggressive",
			DetectedCap:      1000,
			SignatureCap:     10000,
			CleanupInterval:  60 * time.Second,
			StaggerIncrement: 30 * time.Second,
			MetadataLookup:   true,
		},
		Strategies: StrategiesConfig{
			WebSocket: StrategyConfig{Enabled: true, RetryAttempts: 3, RetryDelay: time.Second},
			Polling:   StrategyConfig{Enabled: true, Interval: 60 * time.Second, Limit: 20},
			Scanning:  StrategyConfig{Enabled: true, Interval: 60 * time.Second, Limit: 20, Inspect: 5},
			Boost:     StrategyConfig{Enabled: true, Interval: 60 * time.Second, Multiplier: strategy.DefaultBoostMultiplier},
		},
		API:     APIConfig{Addr: ":8080"},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides endpoints and DSNs from getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.Solana.RPCURL, EnvRPCURL)
	set(&c.Solana.WSURL, EnvWSURL)
	set(&c.Storage.PostgresDSN, EnvPostgresDSN)
	set(&c.Storage.ClickHouseDSN, EnvClickHouseDSN)
	set(&c.Redis.Addr, EnvRedisAddr)
}

// Validate reports the first problem found.
func (c Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}

	d := c.Detector
	if d.DetectedCap <= 0 || d.SignatureCap <= 0 {
		return invalid("cache caps must be positive")
	}
	if d.CleanupInterval <= 0 || d.StaggerIncrement <= 0 {
		return invalid("cleanup_interval and stagger_increment must be positive")
	}
	if _, err := c.Criteria(); err != nil {
		return invalid("%v", err)
	}

	s := c.Strategies
	if s.WebSocket.Enabled && (c.Solana.WSURL == "" || c.Solana.RPCURL == "") {
		return invalid("websocket strategy needs solana.ws_url and solana.rpc_url")
	}
	if s.Scanning.Enabled && c.Solana.RPCURL == "" {
		return invalid("scanning strategy needs solana.rpc_url")
	}
	if (s.Polling.Enabled || s.Boost.Enabled) && c.MarketData.BaseURL == "" {
		return invalid("polling and boost strategies need marketdata.base_url")
	}
	for name, sc := range map[string]StrategyConfig{
		strategy.NamePolling:  s.Polling,
		strategy.NameScanning: s.Scanning,
		strategy.NameBoost:    s.Boost,
	} {
		if sc.Enabled && sc.Interval <= 0 {
			return invalid("%s.interval must be positive", name)
		}
	}
	if !s.WebSocket.Enabled && !s.Polling.Enabled && !s.Scanning.Enabled && !s.Boost.Enabled {
		return invalid("at least one strategy must be enabled")
	}

	if err := c.Logging.Validate(); err != nil {
		return invalid("%v", err)
	}
	return nil
}

// Criteria resolves the acceptance criteria: explicit criteria win over
// the named preset.
func (c Config) Criteria() (filter.AcceptanceCriteria, error) {
	if c.Detector.Criteria != nil {
		crit := *c.Detector.Criteria
		if crit.Name == "" {
			crit.Name = "custom"
		}
		return crit, crit.Validate()
	}
	return filter.Preset(c.Detector.Preset)
}

// StrategySettings maps the strategy blocks onto registry settings.
func (c Config) StrategySettings() []strategy.Settings {
	blocks := map[string]StrategyConfig{
		strategy.NameWebSocket: c.Strategies.WebSocket,
		strategy.NamePolling:   c.Strategies.Polling,
		strategy.NameScanning:  c.Strategies.Scanning,
		strategy.NameBoost:     c.Strategies.Boost,
	}
	out := make([]strategy.Settings, 0, len(blocks))
	for _, name := range strategy.StartOrder {
		b := blocks[name]
		out = append(out, strategy.Settings{
			Name:          name,
			Enabled:       b.Enabled,
			Required:      b.Required,
			Interval:      b.Interval,
			Multiplier:    b.Multiplier,
			Limit:         b.Limit,
			Inspect:       b.Inspect,
			Programs:      b.Programs,
			RetryAttempts: b.RetryAttempts,
			RetryDelay:    b.RetryDelay,
		})
	}
	return out
}

// Marshal renders cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
