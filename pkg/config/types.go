// Package config provides the application configuration of cobble.
//
// Build files describe what to build; this configuration describes how the
// orchestrator itself behaves: logging, watching, the toolchain and the
// build journal.
//
// Configuration is loaded from multiple sources with the following precedence:
// 1. Command-line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Default values (lowest priority)
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("link mode: %s\n", cfg.Build.LinkMode)
package config

import (
	"time"
)

// Coalescing strategies for orchestrator mailboxes.
const (
	CoalesceImmediate = "immediate"
	CoalesceDebounce  = "debounce"
)

// Link modes.
const (
	LinkSerialized = "serialized"
	LinkConcurrent = "concurrent"
)

// Config represents the complete application configuration.
//
// Invariants:
// - Watch.SettleInterval must be > 0
// - Watch.CircuitBreakerThreshold must be > 0
// - Watch.CoalesceWindow must be > 0 when Watch.Coalesce is debounce
// - Build.Compiler must not be empty
// - Journal.Retention must be >= 0 (0 keeps everything).
type Config struct {
	// Logging settings
	Logging LoggingConfig `yaml:"logging"`

	// File watching settings
	Watch WatchConfig `yaml:"watch"`

	// Toolchain and scratch settings
	Build BuildConfig `yaml:"build"`

	// Build journal settings
	Journal JournalConfig `yaml:"journal"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level (debug, info, warn, error)
	Level string `yaml:"level"`

	// Log output destination (stdout, stderr, file path)
	Output string `yaml:"output"`

	// Log format (text, json, auto)
	Format string `yaml:"format"`
}

// WatchConfig contains file watching settings.
type WatchConfig struct {
	// Quiet period before a burst of notifications for one path is emitted
	SettleInterval time.Duration `yaml:"settle_interval"`

	// Extra path prefixes to ignore, besides the scratch and output dirs
	Ignore []string `yaml:"ignore"`

	// Mailbox strategy (immediate, debounce)
	Coalesce string `yaml:"coalesce"`

	// Quiet period of debounced mailboxes
	CoalesceWindow time.Duration `yaml:"coalesce_window"`

	// Watcher errors tolerated before delivery stops
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`
}

// BuildConfig contains toolchain settings.
type BuildConfig struct {
	// Scratch directory for object files; empty means a fresh temp dir
	TmpDir string `yaml:"tmp_dir"`

	// How links of one output are scheduled (serialized, concurrent)
	LinkMode string `yaml:"link_mode"`

	// Compiler driver command, may include a launcher such as "ccache clang"
	Compiler string `yaml:"compiler"`

	// Driver used for win32 targets
	CompilerCL string `yaml:"compiler_cl"`

	// Language standard used when a build file names none
	Std string `yaml:"std"`
}

// JournalConfig contains build journal settings.
type JournalConfig struct {
	// Record builds at all
	Enabled bool `yaml:"enabled"`

	// Path to BoltDB database file
	DBPath string `yaml:"db_path"`

	// How long records are kept
	Retention time.Duration `yaml:"retention"`
}

// Validate checks if the configuration satisfies all invariants.
//
// Thread-safety: This method is read-only and thread-safe.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"auto": true,
	}
	if !validFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}

	if c.Watch.SettleInterval <= 0 {
		return ErrInvalidSettleInterval
	}
	if c.Watch.CircuitBreakerThreshold <= 0 {
		return ErrInvalidCircuitBreaker
	}
	switch c.Watch.Coalesce {
	case CoalesceImmediate:
	case CoalesceDebounce:
		if c.Watch.CoalesceWindow <= 0 {
			return ErrInvalidCoalesceWindow
		}
	default:
		return ErrInvalidCoalesce
	}

	if c.Build.LinkMode != LinkSerialized && c.Build.LinkMode != LinkConcurrent {
		return ErrInvalidLinkMode
	}
	if c.Build.Compiler == "" {
		return ErrNoCompiler
	}

	if c.Journal.Retention < 0 {
		return ErrInvalidRetention
	}

	return nil
}

// Default returns a configuration with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stderr",
			Format: "auto",
		},
		Watch: WatchConfig{
			SettleInterval:          50 * time.Millisecond,
			Coalesce:                CoalesceImmediate,
			CoalesceWindow:          100 * time.Millisecond,
			CircuitBreakerThreshold: 5,
		},
		Build: BuildConfig{
			LinkMode:   LinkSerialized,
			Compiler:   "clang",
			CompilerCL: "clang-cl",
			Std:        "c++17",
		},
		Journal: JournalConfig{
			Enabled:   true,
			DBPath:    defaultDBPath(),
			Retention: 720 * time.Hour, // 30 days
		},
	}
}
