package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the engine.
type Config struct {
	Port string

	// Database
	DBPath string

	// Dispatcher
	PoolSize        int
	DefaultLookback int

	// Training
	PresetsPath   string
	DefaultPreset string

	// Execution frictions applied when the ledger evaluates a signal log
	Slippage         float64
	CommissionPerLot float64
	TaxRate          float64
	PointValue       float64
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the engine still starts when .env is missing.
	_ = godotenv.Load()

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DBPath:           getEnv("DB_PATH", "./data/backtest.db"),
		PoolSize:         getEnvInt("POOL_SIZE", 4),
		DefaultLookback:  getEnvInt("DEFAULT_LOOKBACK", 200),
		PresetsPath:      getEnv("TRAINING_PRESETS_PATH", ""),
		DefaultPreset:    getEnv("TRAINING_DEFAULT_PRESET", "default"),
		Slippage:         getEnvFloat("LEDGER_SLIPPAGE", 0),
		CommissionPerLot: getEnvFloat("LEDGER_COMMISSION_PER_LOT", 0),
		TaxRate:          getEnvFloat("LEDGER_TAX_RATE", 0),
		PointValue:       getEnvFloat("LEDGER_POINT_VALUE", 1),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
