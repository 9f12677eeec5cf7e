package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the trading core.
type Config struct {
	Port string

	// Persistence
	DBPath string

	// Auth
	JWTSecret string

	// Key vault
	EncryptionKey string // salt for the vault's scrypt KDF; the AEAD key is derived from it and VaultPassword
	VaultPassword string // scrypt passphrase mixed into the vault KDF

	// Optional external consensus augmenter (gRPC)
	ExternalAnalyzerAddr string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	dbPath := getEnv("DB_PATH", "")
	if dbPath == "" {
		dbPath = "./data/trading.db"
	}

	return &Config{
		Port:                 getEnv("PORT", "7400"),
		DBPath:               dbPath,
		JWTSecret:            getEnv("JWT_SECRET", "dev-secret"),
		EncryptionKey:        getEnv("ENCRYPTION_KEY", "deadbeefdeadbeefdeadbeefdeadbeef"),
		VaultPassword:        getEnv("VAULT_PASSWORD", "dev-vault-password"),
		ExternalAnalyzerAddr: os.Getenv("EXTERNAL_ANALYZER_ADDR"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
