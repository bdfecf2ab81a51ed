// Package config defines all configuration for the trading engine. Config is
// loaded from a YAML file (default: configs/config.yaml) with sensitive
// fields overridable via ENGINE_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun        bool                `mapstructure:"dry_run"`
	Trader        TraderConfig        `mapstructure:"trader"`
	Venues        []VenueConfig       `mapstructure:"venues"`
	Throttle      ThrottleConfig      `mapstructure:"throttle"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

// TraderConfig identifies this engine instance.
type TraderConfig struct {
	TraderId  string `mapstructure:"trader_id"`
	AccountId string `mapstructure:"account_id"`
}

// VenueConfig configures one venue's data + execution client pairing.
//
//   - Name: venue identifier, matches model.Venue values routed to it.
//   - Kind: adapter family, e.g. "evm" selects dataclient/evmadapter.
//   - StreamURL: primary push-stream endpoint (WS or venue-specific).
//   - RestURL: base URL for historical/REST queries.
//   - SecondaryRPCURL: optional fallback RPC endpoint (evm venues only).
//   - PrivateKey: signs venue auth; ENGINE_PRIVATE_KEY overrides it for the
//     first configured venue only.
//   - Default: whether unrouted venues fall back to this client.
type VenueConfig struct {
	Name            string `mapstructure:"name"`
	Kind            string `mapstructure:"kind"`
	StreamURL       string `mapstructure:"stream_url"`
	RestURL         string `mapstructure:"rest_url"`
	SecondaryRPCURL string `mapstructure:"secondary_rpc_url"`
	PrivateKey      string `mapstructure:"private_key"`
	Default         bool   `mapstructure:"default"`
}

// ThrottleConfig bounds outbound order-submission rate (spec §4.D).
type ThrottleConfig struct {
	Limit      int           `mapstructure:"limit"`
	Interval   time.Duration `mapstructure:"interval"`
	BufferMode string        `mapstructure:"buffer_mode"` // "BUFFER" or "DROP"
}

// ReconciliationConfig tunes the inflight-order watchdog (spec §4.M).
type ReconciliationConfig struct {
	ThresholdMs        int64 `mapstructure:"threshold_ms"`
	InflightMaxRetries int   `mapstructure:"inflight_max_retries"`
	FilterUnclaimed    bool  `mapstructure:"filter_unclaimed"`
}

// CacheConfig sets where cache state is durably mirrored (spec §4.C/§6).
type CacheConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: ENGINE_PRIVATE_KEY, ENGINE_DRY_RUN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("ENGINE_PRIVATE_KEY"); key != "" && len(cfg.Venues) > 0 {
		cfg.Venues[0].PrivateKey = key
	}
	if os.Getenv("ENGINE_DRY_RUN") == "true" || os.Getenv("ENGINE_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Trader.TraderId == "" {
		return fmt.Errorf("trader.trader_id is required")
	}
	if c.Trader.AccountId == "" {
		return fmt.Errorf("trader.account_id is required")
	}
	if len(c.Venues) == 0 {
		return fmt.Errorf("at least one venue is required")
	}
	defaults := 0
	for i, v := range c.Venues {
		if v.Name == "" {
			return fmt.Errorf("venues[%d].name is required", i)
		}
		if v.RestURL == "" {
			return fmt.Errorf("venues[%d].rest_url is required", i)
		}
		if v.Default {
			defaults++
		}
	}
	if defaults != 1 && len(c.Venues) > 1 {
		return fmt.Errorf("exactly one venue must set default: true when more than one venue is configured")
	}
	if c.Throttle.Limit <= 0 {
		return fmt.Errorf("throttle.limit must be > 0")
	}
	if c.Throttle.Interval <= 0 {
		return fmt.Errorf("throttle.interval must be > 0")
	}
	switch c.Throttle.BufferMode {
	case "BUFFER", "DROP":
	default:
		return fmt.Errorf("throttle.buffer_mode must be BUFFER or DROP")
	}
	if c.Reconciliation.ThresholdMs <= 0 {
		return fmt.Errorf("reconciliation.threshold_ms must be > 0")
	}
	if c.Reconciliation.InflightMaxRetries <= 0 {
		return fmt.Errorf("reconciliation.inflight_max_retries must be > 0")
	}
	return nil
}
