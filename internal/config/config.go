// Package config provides configuration loading and validation from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
)

// Config holds all application configuration.
type Config struct {
	LogLevel           string // debug, info, warn, error
	ListenAddr         string // Server listen address (e.g., ":8080")
	MetricsListenAddr  string // Metrics listener address (e.g., "localhost:9090")
	DatabasePath       string // SQLite database path
	EncryptionKey      []byte // 32 bytes, decoded from ENCRYPTION_KEY (hex)
	BootstrapToken     string // Admin token accepted while the token table is empty
	AzureLoginURL      string // Optional identity endpoint override (empty = real endpoint)
	AzureManagementURL string // Optional resource-manager endpoint override
}

// Load parses configuration from environment variables. Optional fields have
// defaults for ease of deployment.
func Load() (*Config, error) {
	logLevel := os.Getenv("LOG_LEVEL")
	listenAddr := os.Getenv("LISTEN_ADDR")
	metricsListenAddr := os.Getenv("METRICS_LISTEN_ADDR")
	databasePath := os.Getenv("DATABASE_PATH")

	if logLevel == "" {
		logLevel = "info"
	}
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	if metricsListenAddr == "" {
		metricsListenAddr = "localhost:9090"
	}
	if databasePath == "" {
		databasePath = "/data/cloudgate.db"
	}

	var key []byte
	if raw := os.Getenv("ENCRYPTION_KEY"); raw != "" {
		decoded, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("ENCRYPTION_KEY is not valid hex: %w", err)
		}
		key = decoded
	}

	cfg := &Config{
		LogLevel:           logLevel,
		ListenAddr:         listenAddr,
		MetricsListenAddr:  metricsListenAddr,
		DatabasePath:       databasePath,
		EncryptionKey:      key,
		BootstrapToken:     os.Getenv("BOOTSTRAP_TOKEN"),
		AzureLoginURL:      os.Getenv("AZURE_LOGIN_URL"),
		AzureManagementURL: os.Getenv("AZURE_MANAGEMENT_URL"),
	}

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	if len(c.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY environment variable must be 64 hex characters (32 bytes)")
	}
	return nil
}
