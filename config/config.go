package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the broker section.
const (
	EnvKeyID     = "APCA_API_KEY_ID"
	EnvSecretKey = "APCA_API_SECRET_KEY"
	EnvBaseURL   = "APCA_API_BASE_URL"
)

// Config represents the complete trader configuration
type Config struct {
	Broker    BrokerConfig    `json:"broker" yaml:"broker"`
	Execution ExecutionConfig `json:"execution" yaml:"execution"`
	Exits     ExitsConfig     `json:"exits" yaml:"exits"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// BrokerConfig holds the brokerage endpoint and credentials.
// Credentials normally come from the environment.
type BrokerConfig struct {
	BaseURL   string `json:"base_url" yaml:"base_url"`
	KeyID     string `json:"key_id,omitempty" yaml:"key_id,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	Timeout   string `json:"timeout" yaml:"timeout"` // e.g. "30s"
}

// ExecutionConfig contains order execution parameters
type ExecutionConfig struct {
	SignalsFile     string  `json:"signals_file" yaml:"signals_file"`
	CapitalPerTrade float64 `json:"capital_per_trade" yaml:"capital_per_trade"`
	PollInterval    string  `json:"poll_interval" yaml:"poll_interval"`
	FillTimeout     string  `json:"fill_timeout" yaml:"fill_timeout"`
	OrderPause      string  `json:"order_pause" yaml:"order_pause"`
}

// ExitsConfig contains the position exit thresholds
type ExitsConfig struct {
	TakeProfit      float64 `json:"take_profit" yaml:"take_profit"` // fraction, 0.15 = +15%
	StopLoss        float64 `json:"stop_loss" yaml:"stop_loss"`     // fraction, -0.10 = -10%
	MaxHoldDays     int     `json:"max_hold_days" yaml:"max_hold_days"`
	DefaultHeldDays int     `json:"default_held_days" yaml:"default_held_days"`
}

// JournalConfig contains trade log parameters
type JournalConfig struct {
	Type      string `json:"type" yaml:"type"` // "csv", "sqlite" or "redis"
	Path      string `json:"path,omitempty" yaml:"path,omitempty"`
	DBPath    string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisKey  string `json:"redis_key,omitempty" yaml:"redis_key,omitempty"`
}

// MetricsConfig controls the Pushgateway push at the end of a run.
// An empty URL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `json:"pushgateway_url,omitempty" yaml:"pushgateway_url,omitempty"`
	Job            string `json:"job" yaml:"job"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// LoadFromFile loads configuration from a YAML or JSON file, then applies
// environment overrides.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Load reads path when it is set, otherwise starts from Default. The
// environment overrides are applied either way.
func Load(path string) (*Config, error) {
	if path != "" {
		return LoadFromFile(path)
	}
	cfg := Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides broker settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvKeyID); v != "" {
		c.Broker.KeyID = v
	}
	if v := os.Getenv(EnvSecretKey); v != "" {
		c.Broker.SecretKey = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Broker.BaseURL = v
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid. Missing credentials are
// not an error here; commands that talk to the broker check them.
func (c *Config) Validate() error {
	if _, err := parsePositive("broker.timeout", c.Broker.Timeout); err != nil {
		return err
	}
	if c.Execution.CapitalPerTrade <= 0 {
		return fmt.Errorf("execution.capital_per_trade must be positive")
	}
	if _, err := parsePositive("execution.poll_interval", c.Execution.PollInterval); err != nil {
		return err
	}
	if _, err := parsePositive("execution.fill_timeout", c.Execution.FillTimeout); err != nil {
		return err
	}
	if d, err := time.ParseDuration(c.Execution.OrderPause); err != nil || d < 0 {
		return fmt.Errorf("execution.order_pause must be a non-negative duration")
	}
	if c.Exits.TakeProfit <= 0 {
		return fmt.Errorf("exits.take_profit must be positive")
	}
	if c.Exits.StopLoss >= 0 {
		return fmt.Errorf("exits.stop_loss must be negative")
	}
	if c.Exits.MaxHoldDays < 0 {
		return fmt.Errorf("exits.max_hold_days must not be negative")
	}
	if c.Exits.DefaultHeldDays < 0 {
		return fmt.Errorf("exits.default_held_days must not be negative")
	}

	switch c.Journal.Type {
	case "csv":
		if c.Journal.Path == "" {
			return fmt.Errorf("journal path required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "redis":
		if c.Journal.RedisAddr == "" || c.Journal.RedisKey == "" {
			return fmt.Errorf("journal redis_addr and redis_key required for Redis type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'redis'")
	}

	if c.Metrics.PushgatewayURL != "" && c.Metrics.Job == "" {
		return fmt.Errorf("metrics.job is required when pushgateway_url is set")
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}
	return nil
}

// RequireCredentials reports an error when broker credentials are missing.
func (c *Config) RequireCredentials() error {
	if c.Broker.KeyID == "" || c.Broker.SecretKey == "" {
		return fmt.Errorf("broker credentials missing: set %s and %s", EnvKeyID, EnvSecretKey)
	}
	return nil
}

// BrokerTimeout returns the parsed HTTP timeout.
func (c *Config) BrokerTimeout() time.Duration {
	return mustDuration(c.Broker.Timeout)
}

func (e ExecutionConfig) Interval() time.Duration { return mustDuration(e.PollInterval) }
func (e ExecutionConfig) Timeout() time.Duration  { return mustDuration(e.FillTimeout) }
func (e ExecutionConfig) Pause() time.Duration    { return mustDuration(e.OrderPause) }

// Capital returns the capital per trade as a decimal.
func (e ExecutionConfig) Capital() decimal.Decimal {
	return decimal.NewFromFloat(e.CapitalPerTrade)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			BaseURL: "https://paper-api.alpaca.markets",
			Timeout: "30s",
		},
		Execution: ExecutionConfig{
			SignalsFile:     "./straddle_signals.csv",
			CapitalPerTrade: 200,
			PollInterval:    "1s",
			FillTimeout:     "15s",
			OrderPause:      "1s",
		},
		Exits: ExitsConfig{
			TakeProfit:      0.15,
			StopLoss:        -0.10,
			MaxHoldDays:     3,
			DefaultHeldDays: 1,
		},
		Journal: JournalConfig{
			Type: "csv",
			Path: "./trade_log.csv",
		},
		Metrics: MetricsConfig{
			Job: "straddle_trader",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func parsePositive(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration", name)
	}
	return d, nil
}

// mustDuration is only used on validated values.
func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
