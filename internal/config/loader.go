package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies OMNIARB_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known OMNIARB_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Venues ──
	setStringSlice(&cfg.Venues.Endpoints, "OMNIARB_VENUES_ENDPOINTS")
	setInt(&cfg.Venues.ScanConcurrency, "OMNIARB_VENUES_SCAN_CONCURRENCY")
	setDuration(&cfg.Venues.FetchTimeout, "OMNIARB_VENUES_FETCH_TIMEOUT")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "OMNIARB_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "OMNIARB_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "OMNIARB_WALLET_KEY_PASSWORD")

	// ── Trading ──
	setFloat64(&cfg.Trading.MinProfitThreshold, "OMNIARB_TRADING_MIN_PROFIT_THRESHOLD")
	setFloat64(&cfg.Trading.TradeNotional, "OMNIARB_TRADING_TRADE_NOTIONAL")
	setFloat64(&cfg.Trading.MaxTradeAmount, "OMNIARB_TRADING_MAX_TRADE_AMOUNT")
	setInt64(&cfg.Trading.GasLimit, "OMNIARB_TRADING_GAS_LIMIT")
	setBool(&cfg.Trading.AutoTrading, "OMNIARB_TRADING_AUTO_TRADING")
	setDuration(&cfg.Trading.InterTradeDelay, "OMNIARB_TRADING_INTER_TRADE_DELAY")

	// ── Bot ──
	setDuration(&cfg.Bot.ScanInterval, "OMNIARB_BOT_SCAN_INTERVAL")
	setDuration(&cfg.Bot.RunDuration, "OMNIARB_BOT_RUN_DURATION")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "OMNIARB_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "OMNIARB_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "OMNIARB_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "OMNIARB_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "OMNIARB_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "OMNIARB_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "OMNIARB_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "OMNIARB_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "OMNIARB_SERVER_PORT")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "OMNIARB_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "OMNIARB_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "OMNIARB_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "OMNIARB_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "OMNIARB_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
