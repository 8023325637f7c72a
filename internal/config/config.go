// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string // Base directory for the price history database
	LogLevel     string
	Port         int
	DevMode      bool
	RiskFreeRate float64 // Annual risk-free rate used by factor and optimizer math
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("VOLTSURF_DATA_DIR", "")
	if dataDir == "" {
		dataDir = filepath.Join(".", "data")
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir to absolute path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	port, err := strconv.Atoi(getEnv("PORT", "8090"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	riskFree, err := strconv.ParseFloat(getEnv("RISK_FREE_RATE", "0.05"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RISK_FREE_RATE: %w", err)
	}

	return &Config{
		DataDir:      absDataDir,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         port,
		DevMode:      getEnv("DEV_MODE", "false") == "true",
		RiskFreeRate: riskFree,
	}, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
