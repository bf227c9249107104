package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader resolves the effective configuration. Later sources win:
// defaults, then the configuration file, then COBBLE_* environment
// variables. The result is always validated.
type Loader interface {
	Load() (*Config, error)

	// LoadFromFile overlays a single file onto the defaults without
	// looking at the environment or validating.
	LoadFromFile(path string) (*Config, error)

	// Path is the file Load reads, or "" when it reads none.
	Path() string
}

type loader struct {
	explicit string
}

// NewLoader returns a Loader for path. An empty path searches
// SearchPaths and treats a missing file as "use the defaults"; a
// non-empty path must exist and parse.
func NewLoader(path string) Loader {
	return &loader{explicit: path}
}

func (l *loader) Load() (*Config, error) {
	cfg := Default()

	if path := l.Path(); path != "" {
		fromFile, err := l.LoadFromFile(path)
		switch {
		case err == nil:
			cfg = fromFile
		case l.explicit != "":
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	cfg = withEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (l *loader) LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // nolint:gosec
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return cfg, nil
}

func (l *loader) Path() string {
	if l.explicit != "" {
		return l.explicit
	}
	for _, candidate := range SearchPaths() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// SearchPaths lists where a configuration file is looked for, in order.
func SearchPaths() []string {
	return []string{"./cobble.yaml", DefaultPath()}
}

// envOverrides maps COBBLE_* variables onto configuration fields.
var envOverrides = []struct {
	name  string
	lower bool
	field func(c *Config) *string
}{
	{"COBBLE_LOG_LEVEL", true, func(c *Config) *string { return &c.Logging.Level }},
	{"COBBLE_TMP_DIR", false, func(c *Config) *string { return &c.Build.TmpDir }},
	{"COBBLE_JOURNAL_DB", false, func(c *Config) *string { return &c.Journal.DBPath }},
	{"COBBLE_CC", false, func(c *Config) *string { return &c.Build.Compiler }},
	{"COBBLE_LINK_MODE", true, func(c *Config) *string { return &c.Build.LinkMode }},
}

// withEnv returns a copy of cfg with environment overrides applied.
func withEnv(cfg *Config) *Config {
	out := *cfg
	out.Watch.Ignore = append([]string(nil), cfg.Watch.Ignore...)

	for _, o := range envOverrides {
		v := os.Getenv(o.name)
		if v == "" {
			continue
		}
		if o.lower {
			v = strings.ToLower(v)
		}
		*o.field(&out) = v
	}
	return &out
}

// Load reads the configuration from the default search paths.
func Load() (*Config, error) {
	return NewLoader("").Load()
}

// LoadFromFile reads the configuration from path, which must exist, and
// applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	return NewLoader(path).Load()
}

// Save validates cfg and writes it to path as YAML, readable only by the
// owner.
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
