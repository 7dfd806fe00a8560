package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// TradingMode selects live exchange access or paper simulation.
type TradingMode string

const (
	ModeLive  TradingMode = "live"
	ModePaper TradingMode = "paper"
)

// Config holds environment-driven settings for the trade assistant.
type Config struct {
	Port string

	// Execution
	Mode                TradingMode
	UseLivePriceInPaper bool

	// Exchange routing
	BinanceAPIBase string // overrides the default API base (sandbox/testnet)
	BinanceTestnet bool

	// Database
	DBPath string

	// Auth
	JWTSecret string

	// Advisor
	AnthropicModel string

	// Auto-trading
	AutoTradeRulesPath string
}

// Load reads environment variables (optionally via .env) into Config.
// The master encryption key is deliberately not part of Config; the vault
// reads it directly so plaintext key material never travels through here.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	mode, err := parseMode(getEnv("TRADING_MODE", "paper"))
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:                getEnv("PORT", "8080"),
		Mode:                mode,
		UseLivePriceInPaper: getEnv("USE_LIVE_PRICE_IN_PAPER", "false") == "true",
		BinanceAPIBase:      strings.TrimRight(os.Getenv("BINANCE_API_BASE"), "/"),
		BinanceTestnet:      getEnv("BINANCE_TESTNET", "false") == "true",
		DBPath:              getEnv("DB_PATH", "./data/assistant.db"),
		JWTSecret:           getEnv("JWT_SECRET", "dev-secret"),
		AnthropicModel:      getEnv("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		AutoTradeRulesPath:  getEnv("AUTOTRADE_RULES_PATH", ""),
	}, nil
}

// Paper reports whether the process runs in paper-trading mode.
func (c *Config) Paper() bool {
	return c.Mode == ModePaper
}

func parseMode(raw string) (TradingMode, error) {
	switch TradingMode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeLive:
		return ModeLive, nil
	case ModePaper:
		return ModePaper, nil
	default:
		return "", fmt.Errorf("invalid TRADING_MODE %q: want live or paper", raw)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
