package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigin  string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	StoreID        string
	OfflineDBPath  string
	TaxEnabled     bool
	TaxRatePercent float64
}

func Load() Config {
	// Missing .env is fine; the process environment wins either way.
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	taxRate, err := strconv.ParseFloat(getEnv("TAX_RATE_PERCENT", "11"), 64)
	if err != nil || taxRate < 0 {
		taxRate = 11
	}
	taxEnabled, err := strconv.ParseBool(getEnv("TAX_ENABLED", "true"))
	if err != nil {
		taxEnabled = true
	}

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigin:  getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		StoreID:        getEnv("DEFAULT_STORE_ID", "main-store"),
		OfflineDBPath:  getEnv("OFFLINE_DB_PATH", "offline-queue.db"),
		TaxEnabled:     taxEnabled,
		TaxRatePercent: taxRate,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
