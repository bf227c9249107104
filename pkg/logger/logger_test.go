package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		present []string
		absent  []string
	}{
		{
			name:    "debug shows everything",
			level:   "debug",
			present: []string{"debug message", "info message", "warn message", "error message"},
		},
		{
			name:    "warn hides debug and info",
			level:   "warn",
			present: []string{"warn message", "error message"},
			absent:  []string{"debug message", "info message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWithWriter(Config{Level: tt.level, Format: "text"}, &buf)

			log.Debug("debug message")
			log.Info("info message")
			log.Warn("warn message")
			log.Error("error message")

			content := buf.String()
			for _, want := range tt.present {
				if !strings.Contains(content, want) {
					t.Errorf("%q not found in log", want)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(content, unwanted) {
					t.Errorf("%q should be filtered out", unwanted)
				}
			}
		})
	}
}

func TestWithAddsContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "info", Format: "text"}, &buf)

	log.With("plugin", "clang").Info("compiling", "src", "main.cpp")

	content := buf.String()
	if !strings.Contains(content, "plugin=clang") {
		t.Errorf("context field missing: %s", content)
	}
	if !strings.Contains(content, "src=main.cpp") {
		t.Errorf("message field missing: %s", content)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "info", Format: "json"}, &buf)

	log.Info("link finished", "output", "/out/app", "objects", 3)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v", err)
	}
	if entry["msg"] != "link finished" {
		t.Errorf("msg = %v, want link finished", entry["msg"])
	}
	if entry["output"] != "/out/app" {
		t.Errorf("output = %v, want /out/app", entry["output"])
	}
}

func TestAutoFormatNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "info", Format: "auto"}, &buf)
	log.Info("hello")

	if !json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("auto format on a buffer should produce json, got %q", buf.String())
	}
}

func TestFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "cobble.log")

	log := New(Config{Level: "info", Output: logFile, Format: "text"})
	log.Info("message 1")
	log.Error("error message")

	data, err := os.ReadFile(logFile) // nolint:gosec
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "message 1") || !strings.Contains(content, "error message") {
		t.Errorf("unexpected log content: %s", content)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
		{"DEBUG", "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := ParseLevel(tt.level).String(); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevelForVerbosity(t *testing.T) {
	if got := LevelForVerbosity("warn", 0); got != "warn" {
		t.Errorf("LevelForVerbosity(warn, 0) = %q, want warn", got)
	}
	if got := LevelForVerbosity("warn", 1); got != "debug" {
		t.Errorf("LevelForVerbosity(warn, 1) = %q, want debug", got)
	}
}

func TestOpenWriter(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "", "STDOUT"} {
		w, err := openWriter(output)
		if err != nil {
			t.Errorf("openWriter(%q) error = %v", output, err)
		}
		if w == nil {
			t.Errorf("openWriter(%q) returned nil writer", output)
		}
	}

	if _, err := openWriter(filepath.Join(t.TempDir(), "missing", "dir", "x.log")); err == nil {
		t.Error("openWriter() into a missing directory should fail")
	}
}

func TestNoop(t *testing.T) {
	log := Noop()
	log.Debug("debug")
	log.Info("info")
	log.With("k", "v").Error("error")
}
