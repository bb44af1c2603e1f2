package config

import "errors"

var (
	// ErrMissingAPIBaseURL indicates that the API base URL is not configured
	ErrMissingAPIBaseURL = errors.New("apiBaseUrl is required in configuration")

	// ErrInvalidCollection indicates a collection name the server would reject
	ErrInvalidCollection = errors.New("collection must match [a-z0-9_-]{1,64}")

	// ErrMissingSubject indicates that no subject is configured for the client
	ErrMissingSubject = errors.New("subject is required in configuration")

	// ErrMissingJWTSecret indicates that no HS256 secret is configured outside dev mode
	ErrMissingJWTSecret = errors.New("jwtSecret is required when not in dev mode")

	// ErrMissingHTTPAddr indicates that the server listen address is empty
	ErrMissingHTTPAddr = errors.New("server.httpAddr is required")

	// ErrUnknownStorage indicates an unsupported server storage backend
	ErrUnknownStorage = errors.New("server.storage must be memory, postgres or sqlite")

	// ErrMissingDatabaseURL indicates postgres storage without a connection string
	ErrMissingDatabaseURL = errors.New("server.databaseUrl is required for postgres storage")

	// ErrInvalidRateLimit indicates an enabled rate limit without window or burst
	ErrInvalidRateLimit = errors.New("server.rateLimit needs windowSeconds and burst when maxRequests is set")

	// ErrConfigFileNotFound indicates that the config file was not found
	ErrConfigFileNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFormat indicates that the config file could not be parsed
	ErrInvalidConfigFormat = errors.New("invalid configuration file format")
)
