package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName        = "CryptoTrade"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultBaseCurrency   = "USDT"
	defaultBonusCooldown  = 24 * time.Hour
)

// defaultCurrencies is the wallet set seeded for every new account.
var defaultCurrencies = []string{
	"BTC", "ETH", "OP", "BNB", "SOL", "DOGE", "TRX", "USDT",
	"XRP", "ADA", "NEAR", "LTC", "BCH", "XLM", "LINK", "MATIC",
}

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// Trading configuration.
	Currencies     []string
	BaseCurrency   string
	InitialBalance decimal.Decimal
	FeeRate        decimal.Decimal
	BonusAmount    decimal.Decimal
	BonusCooldown  time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
		BaseCurrency:   strings.ToUpper(getEnv("BASE_CURRENCY", defaultBaseCurrency)),
		BonusCooldown:  defaultBonusCooldown,
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
		}
		cfg.IdempotencyTTL = d
	}

	if v := os.Getenv("BONUS_COOLDOWN"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid BONUS_COOLDOWN: %w", err)
		}
		cfg.BonusCooldown = d
	}

	var err error
	if cfg.InitialBalance, err = decimalEnv("INITIAL_BALANCE", "10000"); err != nil {
		return Config{}, err
	}
	if cfg.FeeRate, err = decimalEnv("FEE_RATE", "0.001"); err != nil {
		return Config{}, err
	}
	if cfg.BonusAmount, err = decimalEnv("BONUS_AMOUNT", "50"); err != nil {
		return Config{}, err
	}

	cfg.Currencies = splitCurrencies(os.Getenv("CURRENCIES"))
	if !contains(cfg.Currencies, cfg.BaseCurrency) {
		return Config{}, fmt.Errorf("base currency %s missing from CURRENCIES", cfg.BaseCurrency)
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// IsDev reports whether the app runs in a development environment, where
// Postgres and Redis may be replaced by in-memory backends.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func decimalEnv(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func splitCurrencies(raw string) []string {
	if raw == "" {
		return append([]string(nil), defaultCurrencies...)
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" && !contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
