package config

import (
	"os"
	"strconv"

	"gotemper/internal/errors"
)

// Config represents the complete CLI configuration
type Config struct {
	Sampler SamplerConfig
	Storage StorageConfig
	API     APIConfig
}

// SamplerConfig holds run defaults overridable per invocation
type SamplerConfig struct {
	NIndep   int
	NTemps   int
	NWalkers int
	NBurnin  int
	MaxIter  int
	Seed     int64
	Pool     int
}

// StorageConfig holds optional persistence and export settings
type StorageConfig struct {
	DatabaseURL string
	ExportPath  string
}

// APIConfig holds the optional status endpoint settings
type APIConfig struct {
	Addr    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Sampler: SamplerConfig{
			NIndep:   getEnvIntOrDefault("NINDEP", 200),
			NTemps:   getEnvIntOrDefault("NTEMPS", 10),
			NWalkers: getEnvIntOrDefault("NWALKERS", 0),
			NBurnin:  getEnvIntOrDefault("NBURNIN", 500),
			MaxIter:  getEnvIntOrDefault("MAX_ITERATIONS", 0),
			Seed:     getEnvInt64OrDefault("SEED", 0),
			Pool:     getEnvIntOrDefault("LIKELIHOOD_POOL", 0),
		},
		Storage: StorageConfig{
			DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
			ExportPath:  getEnvOrDefault("EXPORT_PATH", ""),
		},
		API: APIConfig{
			Addr:    getEnvOrDefault("STATUS_ADDR", ":8080"),
			Enabled: getEnvBoolOrDefault("STATUS_ENABLED", false),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Sampler.NIndep <= 0 {
		return errors.ConfigInvalid("NINDEP must be positive")
	}
	if config.Sampler.NTemps <= 0 {
		return errors.ConfigInvalid("NTEMPS must be positive")
	}
	if config.Sampler.NBurnin < 0 {
		return errors.ConfigInvalid("NBURNIN must be non-negative")
	}
	if config.API.Enabled && config.API.Addr == "" {
		return errors.ConfigInvalid("STATUS_ADDR is required when STATUS_ENABLED is set")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
