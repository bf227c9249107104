package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Watch.SettleInterval <= 0 {
		t.Error("SettleInterval not set")
	}

	if cfg.Watch.Coalesce != CoalesceImmediate {
		t.Errorf("Coalesce = %s, want %s", cfg.Watch.Coalesce, CoalesceImmediate)
	}

	if cfg.Build.LinkMode != LinkSerialized {
		t.Errorf("LinkMode = %s, want %s", cfg.Build.LinkMode, LinkSerialized)
	}

	if cfg.Build.Compiler == "" {
		t.Error("Compiler not set")
	}

	if !cfg.Journal.Enabled {
		t.Error("journal disabled by default")
	}

	if cfg.Logging.Level == "" {
		t.Error("Log level not set")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid default config",
			mutate: func(c *Config) {},
		},
		{
			name:    "invalid settle interval",
			mutate:  func(c *Config) { c.Watch.SettleInterval = 0 },
			wantErr: ErrInvalidSettleInterval,
		},
		{
			name:    "invalid circuit breaker",
			mutate:  func(c *Config) { c.Watch.CircuitBreakerThreshold = 0 },
			wantErr: ErrInvalidCircuitBreaker,
		},
		{
			name:    "unknown coalesce strategy",
			mutate:  func(c *Config) { c.Watch.Coalesce = "throttle" },
			wantErr: ErrInvalidCoalesce,
		},
		{
			name: "debounce without window",
			mutate: func(c *Config) {
				c.Watch.Coalesce = CoalesceDebounce
				c.Watch.CoalesceWindow = 0
			},
			wantErr: ErrInvalidCoalesceWindow,
		},
		{
			name: "immediate ignores window",
			mutate: func(c *Config) {
				c.Watch.CoalesceWindow = 0
			},
		},
		{
			name:    "invalid link mode",
			mutate:  func(c *Config) { c.Build.LinkMode = "parallel" },
			wantErr: ErrInvalidLinkMode,
		},
		{
			name:    "no compiler",
			mutate:  func(c *Config) { c.Build.Compiler = "" },
			wantErr: ErrNoCompiler,
		},
		{
			name:    "negative retention",
			mutate:  func(c *Config) { c.Journal.Retention = -time.Hour },
			wantErr: ErrInvalidRetention,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "invalid" },
			wantErr: ErrInvalidLogLevel,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Config.Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Config.Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		content string
		missing bool
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid config file",
			content: `
logging:
  level: debug
  output: stdout
  format: json
watch:
  settle_interval: 20ms
  ignore: [/tmp/generated]
  coalesce: debounce
  coalesce_window: 250ms
  circuit_breaker_threshold: 3
build:
  tmp_dir: /tmp/cobble
  link_mode: concurrent
  compiler: ccache clang
  std: c++20
journal:
  enabled: false
  db_path: /tmp/test.db
  retention: 48h
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Watch.SettleInterval != 20*time.Millisecond {
					t.Errorf("SettleInterval = %v, want 20ms", cfg.Watch.SettleInterval)
				}
				if cfg.Watch.Coalesce != CoalesceDebounce {
					t.Errorf("Coalesce = %s, want debounce", cfg.Watch.Coalesce)
				}
				if len(cfg.Watch.Ignore) != 1 {
					t.Errorf("got %d ignore entries, want 1", len(cfg.Watch.Ignore))
				}
				if cfg.Build.LinkMode != LinkConcurrent {
					t.Errorf("LinkMode = %s, want concurrent", cfg.Build.LinkMode)
				}
				if cfg.Build.Compiler != "ccache clang" {
					t.Errorf("Compiler = %s, want ccache clang", cfg.Build.Compiler)
				}
				if cfg.Journal.Enabled {
					t.Error("Journal.Enabled = true, want false")
				}
				if cfg.Journal.Retention != 48*time.Hour {
					t.Errorf("Retention = %v, want 48h", cfg.Journal.Retention)
				}
				if cfg.Logging.Level != "debug" {
					t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
				}
			},
		},
		{
			name:    "partial file keeps defaults",
			content: "build:\n  link_mode: concurrent\n",
			check: func(t *testing.T, cfg *Config) {
				if cfg.Build.Compiler != "clang" {
					t.Errorf("Compiler = %s, want clang", cfg.Build.Compiler)
				}
				if !cfg.Journal.Enabled {
					t.Error("Journal.Enabled = false, want default true")
				}
				if cfg.Watch.SettleInterval != 50*time.Millisecond {
					t.Errorf("SettleInterval = %v, want 50ms", cfg.Watch.SettleInterval)
				}
			},
		},
		{
			name:    "invalid yaml",
			content: `invalid: yaml: content: [`,
			wantErr: true,
		},
		{
			name:    "invalid value",
			content: "watch:\n  coalesce: sometimes\n",
			wantErr: true,
		},
		{
			name:    "non-existent file",
			missing: true,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filePath := filepath.Join(tmpDir, "nonexistent.yaml")
			if !tt.missing {
				filePath = filepath.Join(tmpDir, tt.name+".yaml")
				if err := os.WriteFile(filePath, []byte(tt.content), 0600); err != nil {
					t.Fatalf("Failed to create test file: %v", err)
				}
			}

			loader := NewLoader(filePath)
			cfg, err := loader.Load()

			if tt.wantErr {
				if err == nil {
					t.Error("Load() error = nil, wantErr = true")
				}
				return
			}

			if err != nil {
				t.Fatalf("Load() error = %v, wantErr = false", err)
			}

			if loader.Path() != filePath {
				t.Errorf("Path() = %s, want %s", loader.Path(), filePath)
			}

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestMissingNamedFileIsNotFound(t *testing.T) {
	_, err := NewLoader("").LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadFromFile() error = %v, want ErrConfigNotFound", err)
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Build.Compiler == "" {
		t.Error("Load() returned config with no compiler")
	}
}

func TestSave(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := Default()
	cfg.Logging.Level = "debug"
	cfg.Build.LinkMode = LinkConcurrent

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Config file not created: %v", err)
	}

	loadedCfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if loadedCfg.Logging.Level != "debug" {
		t.Errorf("Loaded config LogLevel = %s, want debug", loadedCfg.Logging.Level)
	}
	if loadedCfg.Build.LinkMode != LinkConcurrent {
		t.Errorf("Loaded config LinkMode = %s, want concurrent", loadedCfg.Build.LinkMode)
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Build.Compiler = ""

	if err := Save(cfg, filepath.Join(t.TempDir(), "config.yaml")); !errors.Is(err, ErrNoCompiler) {
		t.Errorf("Save() error = %v, want ErrNoCompiler", err)
	}
}

func TestEnvVarOverrides(t *testing.T) {
	t.Setenv("COBBLE_LOG_LEVEL", "DEBUG")
	t.Setenv("COBBLE_TMP_DIR", "/env/tmp")
	t.Setenv("COBBLE_JOURNAL_DB", "/env/journal.db")
	t.Setenv("COBBLE_CC", "ccache clang")
	t.Setenv("COBBLE_LINK_MODE", "Concurrent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.Logging.Level)
	}
	if cfg.Build.TmpDir != "/env/tmp" {
		t.Errorf("TmpDir = %s, want /env/tmp", cfg.Build.TmpDir)
	}
	if cfg.Journal.DBPath != "/env/journal.db" {
		t.Errorf("DBPath = %s, want /env/journal.db", cfg.Journal.DBPath)
	}
	if cfg.Build.Compiler != "ccache clang" {
		t.Errorf("Compiler = %s, want ccache clang", cfg.Build.Compiler)
	}
	if cfg.Build.LinkMode != LinkConcurrent {
		t.Errorf("LinkMode = %s, want concurrent", cfg.Build.LinkMode)
	}
}

func TestEnvVarOverridesAreValidated(t *testing.T) {
	clearEnv(t)
	t.Setenv("COBBLE_LINK_MODE", "sometimes")

	if _, err := Load(); !errors.Is(err, ErrInvalidLinkMode) {
		t.Errorf("Load() error = %v, want ErrInvalidLinkMode", err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"COBBLE_LOG_LEVEL",
		"COBBLE_TMP_DIR",
		"COBBLE_JOURNAL_DB",
		"COBBLE_CC",
		"COBBLE_LINK_MODE",
	} {
		t.Setenv(key, "")
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := Default()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := cfg.Validate(); err != nil {
			b.Fatal(err)
		}
	}
}
