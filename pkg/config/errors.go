package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text, json, or auto")

	// ErrInvalidSettleInterval is returned when the settle interval is <= 0.
	ErrInvalidSettleInterval = errors.New("invalid settle interval: must be > 0")

	// ErrInvalidCircuitBreaker is returned when the error threshold is <= 0.
	ErrInvalidCircuitBreaker = errors.New("invalid circuit breaker threshold: must be > 0")

	// ErrInvalidCoalesce is returned when the mailbox strategy is not recognized.
	ErrInvalidCoalesce = errors.New("invalid coalesce strategy: must be immediate or debounce")

	// ErrInvalidCoalesceWindow is returned when a debounce window is <= 0.
	ErrInvalidCoalesceWindow = errors.New("invalid coalesce window: must be > 0")

	// ErrInvalidLinkMode is returned when the link mode is not recognized.
	ErrInvalidLinkMode = errors.New("invalid link mode: must be serialized or concurrent")

	// ErrNoCompiler is returned when no compiler command is configured.
	ErrNoCompiler = errors.New("no compiler configured")

	// ErrInvalidRetention is returned when journal retention is negative.
	ErrInvalidRetention = errors.New("invalid journal retention: must be >= 0")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
