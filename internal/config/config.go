package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erauner12/toolbridge-resources/internal/collection"
)

// Config holds configuration for the resourcectl client and the reference server
type Config struct {
	APIBaseURL     string       `json:"apiBaseUrl" yaml:"apiBaseUrl"`
	Collection     string       `json:"collection" yaml:"collection"`
	Indexes        []string     `json:"indexes" yaml:"indexes"` // secondary indexes; "id" is always added
	Debug          bool         `json:"debug" yaml:"debug"`
	DevMode        bool         `json:"devMode" yaml:"devMode"` // enables X-Debug-Sub header fallback
	LogLevel       string       `json:"logLevel" yaml:"logLevel"`
	Subject        string       `json:"subject" yaml:"subject"`     // token subject, or X-Debug-Sub in dev mode
	JWTSecret      string       `json:"jwtSecret" yaml:"jwtSecret"` // HS256 secret shared with the server
	RequestTimeout Duration     `json:"requestTimeout" yaml:"requestTimeout"`
	Server         ServerConfig `json:"server" yaml:"server"`
}

// ServerConfig configures cmd/server
type ServerConfig struct {
	HTTPAddr    string          `json:"httpAddr" yaml:"httpAddr"`
	Storage     string          `json:"storage" yaml:"storage"` // memory | postgres | sqlite
	DatabaseURL string          `json:"databaseUrl" yaml:"databaseUrl"`
	SQLitePath  string          `json:"sqlitePath" yaml:"sqlitePath"`
	RateLimit   RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`
}

// RateLimitConfig is the per-subject token bucket policy; MaxRequests 0 disables it
type RateLimitConfig struct {
	WindowSeconds int `json:"windowSeconds" yaml:"windowSeconds"`
	MaxRequests   int `json:"maxRequests" yaml:"maxRequests"`
	Burst         int `json:"burst" yaml:"burst"`
}

// Storage backends understood by cmd/server
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Validate checks the client side of the configuration
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return ErrMissingAPIBaseURL
	}
	if err := collection.ValidateName(c.Collection); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCollection, err)
	}
	if c.Subject == "" {
		return ErrMissingSubject
	}
	if !c.DevMode && c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// ValidateServer checks the server side of the configuration
func (c *Config) ValidateServer() error {
	if c.Server.HTTPAddr == "" {
		return ErrMissingHTTPAddr
	}
	if !c.DevMode && c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}

	switch c.Server.Storage {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Server.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, c.Server.Storage)
	}

	rl := c.Server.RateLimit
	if rl.MaxRequests > 0 && (rl.WindowSeconds <= 0 || rl.Burst <= 0) {
		return ErrInvalidRateLimit
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:     "http://localhost:8081",
		Collection:     "items",
		Indexes:        []string{},
		Debug:          false,
		DevMode:        false,
		LogLevel:       "info",
		Subject:        "resourcectl",
		RequestTimeout: Duration(30 * time.Second),
		Server: ServerConfig{
			HTTPAddr:   ":8081",
			Storage:    StorageMemory,
			SQLitePath: "data/resources.db",
			RateLimit: RateLimitConfig{
				WindowSeconds: 60,
				MaxRequests:   600,
				Burst:         120,
			},
		},
	}
}

// Duration is a time.Duration read from "30s" style strings or integer seconds
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var seconds int64
	if err := json.Unmarshal(b, &seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %w", err)
	}
	return d.parse(s)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %w", err)
	}
	return d.parse(s)
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
