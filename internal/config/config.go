// Package config loads application configuration from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Server
	Port string

	// Local key-value store
	RedisAddr string
	RedisDB   int

	// Remote sync
	SyncBaseURL string
	SyncToken   string

	// Auto-save
	AutoSaveBaseInterval time.Duration
	AutoSaveIdleInterval time.Duration
	AutoSaveIdleAfter    time.Duration
	AutoSaveDebounce     time.Duration
	SnapshotMax          int

	// JWT (sync API server)
	JWTSecret        string
	JWTExpirationDur time.Duration
}

var appConfig *Config

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Port: getEnv("PORT", "8080"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		SyncBaseURL: getEnv("SYNC_BASE_URL", "http://localhost:8080"),
		SyncToken:   getEnv("SYNC_TOKEN", ""),

		AutoSaveBaseInterval: getEnvDuration("AUTOSAVE_BASE_INTERVAL", 30*time.Second),
		AutoSaveIdleInterval: getEnvDuration("AUTOSAVE_IDLE_INTERVAL", 120*time.Second),
		AutoSaveIdleAfter:    getEnvDuration("AUTOSAVE_IDLE_AFTER", 60*time.Second),
		AutoSaveDebounce:     getEnvDuration("AUTOSAVE_DEBOUNCE", 5*time.Second),
		SnapshotMax:          getEnvInt("SNAPSHOT_MAX", 15),

		JWTSecret:        getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		JWTExpirationDur: getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour),
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration.
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}
