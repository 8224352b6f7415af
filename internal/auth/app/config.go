package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // Required: issuer claim for tokens

	NumKeys        int           // Optional: number of signing keys to generate (default: 3, min: 1, max: 10)
	DatabaseFile   string        // Optional: path to SQLite database file (default: ./veil.db)
	HandshakeStore string        // Optional: handshake store driver (memory, redis) (default: memory)
	HandshakeTTL   time.Duration // Optional: how long a started login may wait for its proof (default: 5m)
	TokenTTL       time.Duration // Optional: session token lifetime (default: 24h)

	RedisAddr     string // Required when HandshakeStore is redis
	RedisPassword string
	RedisDB       int

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Handshake sweep interval (default: 1m)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:               getEnvOrDefault("VEIL_ISSUER", "veil-auth"),
		DatabaseFile:         getEnvOrDefault("VEIL_DATABASE_FILE", "veil.db"),
		HandshakeStore:       getEnvOrDefault("VEIL_HANDSHAKE_STORE", "memory"),
		HandshakeTTL:         getEnvDurationOrDefault("VEIL_HANDSHAKE_TTL", 5*time.Minute),
		TokenTTL:             getEnvDurationOrDefault("VEIL_TOKEN_TTL", 24*time.Hour),
		RedisAddr:            getEnvOrDefault("VEIL_REDIS_ADDR", "localhost:6379"),
		RedisPassword:        os.Getenv("VEIL_REDIS_PASSWORD"),
		RedisDB:              getEnvIntOrDefault("VEIL_REDIS_DB", 0),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Minute),
	}

	if numKeysStr := os.Getenv("VEIL_NUM_KEYS"); numKeysStr != "" {
		if numKeys, err := strconv.Atoi(numKeysStr); err == nil {
			cfg.NumKeys = numKeys
		}
		// If parsing fails, NumKeys remains 0 (KeyManager applies its default)
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are read as minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
