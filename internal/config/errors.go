package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidLimit is returned when the page size is below 1.
	ErrInvalidLimit = errors.New("invalid limit: must be at least 1")

	// ErrInvalidOffset is returned when the offset is negative.
	ErrInvalidOffset = errors.New("invalid offset: must be non-negative")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidInterval is returned when the request interval is negative.
	// Use 0 to disable pacing.
	ErrInvalidInterval = errors.New("invalid interval: must be non-negative")

	// ErrInvalidPreview is returned when the preview row count is negative.
	ErrInvalidPreview = errors.New("invalid preview rows: must be non-negative")

	// ErrInvalidCacheTTL is returned when the cache TTL is negative.
	ErrInvalidCacheTTL = errors.New("invalid cache ttl: must be non-negative")

	// ErrEmptyOutput is returned when no output path is configured.
	ErrEmptyOutput = errors.New("output path must not be empty")

	// ErrEmptyUserAgent is returned when the User-Agent is empty.
	ErrEmptyUserAgent = errors.New("user agent must not be empty")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base url: must be an absolute http(s) URL")

	// ErrInvalidLogLevel is returned for an unknown log level name.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Loading errors.
var (
	// ErrConfigNotFound is returned when an explicitly named configuration
	// file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile is returned when the configuration file cannot be parsed.
	ErrInvalidConfigFile = errors.New("invalid configuration file")

	// ErrInvalidEnv is returned when a POKEAPI_* variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
