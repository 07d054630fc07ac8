package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	TaxRatePercent        decimal.Decimal
	LowStockThreshold     int
	ExpiryWindowDays      int
	AlertRecomputeSeconds int
	AuthSecret            string
	AccessTokenTTLMinutes int
}

// DefaultTaxRatePercent is the combined statutory rate: 5% ISS + 18% ICMS,
// applied as a single percentage.
const DefaultTaxRatePercent = "23.0"

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	lowStock := getEnvInt("LOW_STOCK_THRESHOLD", 5)
	if lowStock < 0 {
		lowStock = 5
	}
	expiryWindow := getEnvInt("EXPIRY_WINDOW_DAYS", 7)
	if expiryWindow < 1 {
		expiryWindow = 7
	}
	recompute := getEnvInt("ALERT_RECOMPUTE_SECONDS", 60)
	if recompute < 1 {
		recompute = 60
	}
	tokenTTL := getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 480)
	if tokenTTL < 1 {
		tokenTTL = 480
	}

	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE_PERCENT", DefaultTaxRatePercent))
	if err != nil || taxRate.IsNegative() {
		taxRate = decimal.RequireFromString(DefaultTaxRatePercent)
	}

	return Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               redisDB,
		TaxRatePercent:        taxRate,
		LowStockThreshold:     lowStock,
		ExpiryWindowDays:      expiryWindow,
		AlertRecomputeSeconds: recompute,
		AuthSecret:            os.Getenv("AUTH_SECRET"),
		AccessTokenTTLMinutes: tokenTTL,
	}
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

func getEnvInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
