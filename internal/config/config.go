// Package config defines the top-level configuration for the omniarb bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by OMNIARB_* environment variables.
type Config struct {
	Venues   VenuesConfig  `toml:"venues"`
	Wallet   WalletConfig  `toml:"wallet"`
	Trading  TradingConfig `toml:"trading"`
	Bot      BotConfig     `toml:"bot"`
	Redis    RedisConfig   `toml:"redis"`
	Server   ServerConfig  `toml:"server"`
	Notify   NotifyConfig  `toml:"notify"`
	LogLevel string        `toml:"log_level"`
}

// VenuesConfig describes the set of market data sources the observer scans.
// Endpoint schemes select the source implementation: static:// for the
// built-in demo book, http(s):// for polled REST tickers, ws(s):// for a
// streaming feed.
type VenuesConfig struct {
	Endpoints       []string `toml:"endpoints"`
	ScanConcurrency int      `toml:"scan_concurrency"`
	FetchTimeout    duration `toml:"fetch_timeout"`
}

// WalletConfig holds the signing credential. Exactly one of PrivateKey or
// EncryptedKeyPath is needed when auto trading is enabled.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// TradingConfig holds opportunity detection and execution parameters.
type TradingConfig struct {
	MinProfitThreshold float64  `toml:"min_profit_threshold"`
	TradeNotional      float64  `toml:"trade_notional"`
	MaxTradeAmount     float64  `toml:"max_trade_amount"`
	GasLimit           int64    `toml:"gas_limit"`
	AutoTrading        bool     `toml:"auto_trading"`
	InterTradeDelay    duration `toml:"inter_trade_delay"`
}

// BotConfig holds the orchestrator loop parameters. RunDuration of zero means
// run until interrupted.
type BotConfig struct {
	ScanInterval duration `toml:"scan_interval"`
	RunDuration  duration `toml:"run_duration"`
}

// RedisConfig holds Redis connection parameters for the shared observation
// cache. When disabled the bot falls back to the in-memory cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds status HTTP server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds notification channel credentials and the event filter.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5s", "100ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5s" or "100ms".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Venues: VenuesConfig{
			Endpoints:       []string{"static://ethereum", "static://bsc"},
			ScanConcurrency: 4,
			FetchTimeout:    duration{3 * time.Second},
		},
		Trading: TradingConfig{
			MinProfitThreshold: 0.01,
			TradeNotional:      1000.0,
			MaxTradeAmount:     1.0,
			GasLimit:           300_000,
			AutoTrading:        false,
			InterTradeDelay:    duration{100 * time.Millisecond},
		},
		Bot: BotConfig{
			ScanInterval: duration{5 * time.Second},
			RunDuration:  duration{0},
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   10,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity", "trade_executed", "cycle_error"},
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Venues
	if len(c.Venues.Endpoints) == 0 {
		errs = append(errs, "venues: at least one endpoint must be configured")
	}
	for i, ep := range c.Venues.Endpoints {
		if strings.TrimSpace(ep) == "" {
			errs = append(errs, fmt.Sprintf("venues: endpoint %d is empty", i))
		}
	}
	if c.Venues.ScanConcurrency < 1 {
		errs = append(errs, "venues: scan_concurrency must be >= 1")
	}
	if c.Venues.FetchTimeout.Duration <= 0 {
		errs = append(errs, "venues: fetch_timeout must be > 0")
	}

	// Wallet: auto trading needs a signing credential.
	if c.Trading.AutoTrading {
		if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
			errs = append(errs, "wallet: either private_key or encrypted_key_path must be set when trading.auto_trading is enabled")
		}
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Trading
	if c.Trading.MinProfitThreshold <= 0 {
		errs = append(errs, "trading: min_profit_threshold must be > 0")
	}
	if c.Trading.TradeNotional <= 0 {
		errs = append(errs, "trading: trade_notional must be > 0")
	}
	if c.Trading.MaxTradeAmount <= 0 {
		errs = append(errs, "trading: max_trade_amount must be > 0")
	}
	if c.Trading.GasLimit <= 0 {
		errs = append(errs, "trading: gas_limit must be > 0")
	}
	if c.Trading.InterTradeDelay.Duration < 0 {
		errs = append(errs, "trading: inter_trade_delay must be >= 0")
	}

	// Bot
	if c.Bot.ScanInterval.Duration <= 0 {
		errs = append(errs, "bot: scan_interval must be > 0")
	}
	if c.Bot.RunDuration.Duration < 0 {
		errs = append(errs, "bot: run_duration must be >= 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
