package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a file path and applies environment variable overrides
// Validation is deferred to allow CLI flag overrides to be applied first
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	applyEnvironmentOverrides(cfg)

	// Note: Validation is NOT performed here to allow CLI flags to override
	// Call cfg.Validate() after applying CLI overrides in the caller

	return cfg, nil
}

// loadFromFile decodes a JSON or YAML file over cfg; fields the file omits keep
// their current values
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigFileNotFound
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}
	return nil
}

// applyEnvironmentOverrides applies configuration from environment variables
func applyEnvironmentOverrides(cfg *Config) {
	if apiURL := os.Getenv("RESOURCES_API_BASE_URL"); apiURL != "" {
		cfg.APIBaseURL = apiURL
	}

	if coll := os.Getenv("RESOURCES_COLLECTION"); coll != "" {
		cfg.Collection = coll
	}

	// Indexes (comma-separated list)
	if indexes := os.Getenv("RESOURCES_INDEXES"); indexes != "" {
		cfg.Indexes = splitList(indexes)
	}

	if devMode := os.Getenv("RESOURCES_DEV_MODE"); devMode == "true" || devMode == "1" {
		cfg.DevMode = true
	}

	if debug := os.Getenv("RESOURCES_DEBUG"); debug == "true" || debug == "1" {
		cfg.Debug = true
	}

	if logLevel := os.Getenv("RESOURCES_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if sub := os.Getenv("RESOURCES_SUBJECT"); sub != "" {
		cfg.Subject = sub
	}

	if secret := os.Getenv("RESOURCES_JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}

	if timeout := os.Getenv("RESOURCES_REQUEST_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			cfg.RequestTimeout = Duration(d)
		}
	}

	// Server
	if addr := os.Getenv("RESOURCES_HTTP_ADDR"); addr != "" {
		cfg.Server.HTTPAddr = addr
	}
	if storage := os.Getenv("RESOURCES_STORAGE"); storage != "" {
		cfg.Server.Storage = storage
	}
	if dbURL := os.Getenv("RESOURCES_DATABASE_URL"); dbURL != "" {
		cfg.Server.DatabaseURL = dbURL
	}
	if path := os.Getenv("RESOURCES_SQLITE_PATH"); path != "" {
		cfg.Server.SQLitePath = path
	}
	setInt(&cfg.Server.RateLimit.MaxRequests, "RESOURCES_RATE_LIMIT_MAX_REQUESTS")
	setInt(&cfg.Server.RateLimit.WindowSeconds, "RESOURCES_RATE_LIMIT_WINDOW_SECONDS")
	setInt(&cfg.Server.RateLimit.Burst, "RESOURCES_RATE_LIMIT_BURST")
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LoadFromEnvironment creates a configuration using only environment variables
// This is useful for containerized deployments where files may not be available
// Validation is deferred to allow CLI flag overrides to be applied first
func LoadFromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	applyEnvironmentOverrides(cfg)
	return cfg, nil
}
