// internal/config/config.go
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/CREDVAULTLIMITED/Sunny-sub004/internal/provider/momo"
)

type Config struct {
	Port          string
	DatabaseURL   string
	RedisURL      string
	OTLPEndpoint  string
	StripeKey     string
	Environment   string
	RiskThreshold int

	MomoBaseURL   string
	BankBaseURL   string
	CryptoBaseURL string
	WalletBaseURL string
	PayoutBaseURL string
}

// Load reads configuration from the environment, with .env support for
// development. Per-rail signing secrets are read separately by
// RailSecrets so they never sit on the config struct.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		OTLPEndpoint:  getEnv("OTLP_ENDPOINT", ""),
		StripeKey:     getEnv("STRIPE_SECRET_KEY", ""),
		Environment:   getEnv("ENVIRONMENT", "development"),
		RiskThreshold: getEnvInt("RISK_THRESHOLD", 80),
		MomoBaseURL:   getEnv("MOMO_BASE_URL", "https://momo.sunny.internal"),
		BankBaseURL:   getEnv("BANK_BASE_URL", "https://bank.sunny.internal"),
		CryptoBaseURL: getEnv("CRYPTO_BASE_URL", "https://chain.sunny.internal"),
		WalletBaseURL: getEnv("WALLET_BASE_URL", "https://wallet.sunny.internal"),
		PayoutBaseURL: getEnv("PAYOUT_BASE_URL", "https://payout.sunny.internal"),
	}
}

// RailSecrets collects per-rail shared secrets from SUNNY_SECRET_<RAIL>
// env vars. Secrets are supplied externally; the core never generates or
// stores them.
func RailSecrets() map[string][]byte {
	secrets := make(map[string][]byte)

	rails := append(momo.Providers(), "BANK", "CRYPTO", "WALLET", "CARD", "PAYOUT")
	for _, rail := range rails {
		if v := os.Getenv("SUNNY_SECRET_" + rail); v != "" {
			secrets[rail] = []byte(v)
		}
	}
	return secrets
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}
