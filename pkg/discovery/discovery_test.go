package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// mockLogger implements Logger interface for testing.
type mockLogger struct {
	debugCalls []string
	infoCalls  []string
	warnCalls  []string
	errorCalls []string
}

func (m *mockLogger) Debug(msg string, keysAndValues ...interface{}) {
	m.debugCalls = append(m.debugCalls, msg)
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.infoCalls = append(m.infoCalls, msg)
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.warnCalls = append(m.warnCalls, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.errorCalls = append(m.errorCalls, msg)
}

func TestDiscover(t *testing.T) {
	tmpDir := t.TempDir()

	// tmpDir/
	//   build.yaml
	//   lib/build.toml
	//   tools/gen/build.json
	//   docs/readme.txt          (no build file)
	//   .git/build.yaml          (skipped)
	//   node_modules/x/build.yml (skipped)
	//   scratch/build.yaml       (skipped via skip list)
	createFile(t, filepath.Join(tmpDir, "build.yaml"), "name: app")
	createFile(t, filepath.Join(tmpDir, "lib", "build.toml"), `name = "lib"`)
	createFile(t, filepath.Join(tmpDir, "tools", "gen", "build.json"), `{"name":"gen"}`)
	createFile(t, filepath.Join(tmpDir, "docs", "readme.txt"), "docs")
	createFile(t, filepath.Join(tmpDir, ".git", "build.yaml"), "name: git")
	createFile(t, filepath.Join(tmpDir, "node_modules", "x", "build.yml"), "name: npm")
	createFile(t, filepath.Join(tmpDir, "scratch", "build.yaml"), "name: scratch")

	logger := &mockLogger{}
	d := New([]string{tmpDir}, []string{filepath.Join(tmpDir, "scratch")}, logger)

	files, err := d.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	if len(files) != 3 {
		t.Fatalf("Discover() found %d build files, want 3: %+v", len(files), files)
	}

	want := map[string]string{
		filepath.Join(tmpDir, "build.yaml"):                 "yaml",
		filepath.Join(tmpDir, "lib", "build.toml"):          "toml",
		filepath.Join(tmpDir, "tools", "gen", "build.json"): "json",
	}
	for _, f := range files {
		format, ok := want[f.Path]
		if !ok {
			t.Errorf("unexpected build file %s", f.Path)
			continue
		}
		if f.Format != format {
			t.Errorf("Format of %s = %s, want %s", f.Path, f.Format, format)
		}
		if f.Dir != filepath.Dir(f.Path) {
			t.Errorf("Dir = %s, want %s", f.Dir, filepath.Dir(f.Path))
		}
		if f.ModTime == 0 {
			t.Error("BuildFile has zero ModTime")
		}
	}
}

func TestDiscoverPrefersYAML(t *testing.T) {
	tmpDir := t.TempDir()
	createFile(t, filepath.Join(tmpDir, "build.toml"), `name = "b"`)
	createFile(t, filepath.Join(tmpDir, "build.yaml"), "name: a")

	logger := &mockLogger{}
	d := New([]string{tmpDir}, nil, logger)

	files, err := d.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(files) != 1 || files[0].Format != "yaml" {
		t.Fatalf("Discover() = %+v, want the yaml file only", files)
	}
	if len(logger.warnCalls) != 1 {
		t.Errorf("got %d warnings, want 1", len(logger.warnCalls))
	}
}

func TestDiscoverNothing(t *testing.T) {
	tmpDir := t.TempDir()
	createFile(t, filepath.Join(tmpDir, "main.cpp"), "int main() {}")

	d := New([]string{tmpDir}, nil, &mockLogger{})

	if _, err := d.Discover(); !errors.Is(err, ErrNoBuildFiles) {
		t.Errorf("Discover() error = %v, want ErrNoBuildFiles", err)
	}
}

func TestDiscoverMissingBaseDir(t *testing.T) {
	tmpDir := t.TempDir()
	createFile(t, filepath.Join(tmpDir, "build.yml"), "name: a")

	logger := &mockLogger{}
	d := New([]string{filepath.Join(tmpDir, "nonexistent"), tmpDir}, nil, logger)

	files, err := d.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(files) != 1 {
		t.Errorf("Discover() found %d build files, want 1", len(files))
	}
	if len(logger.warnCalls) == 0 {
		t.Error("missing directory was not reported")
	}
}

func TestDiscoverDir(t *testing.T) {
	tmpDir := t.TempDir()
	createFile(t, filepath.Join(tmpDir, "build.json"), "{}")
	createFile(t, filepath.Join(tmpDir, "sub", "build.yaml"), "name: sub")

	d := New(nil, nil, &mockLogger{})

	f, err := d.DiscoverDir(tmpDir)
	if err != nil {
		t.Fatalf("DiscoverDir() error = %v", err)
	}
	if f.Path != filepath.Join(tmpDir, "build.json") {
		t.Errorf("DiscoverDir() = %s, want build.json", f.Path)
	}

	if _, err := d.DiscoverDir(filepath.Join(tmpDir, "nonexistent")); !errors.Is(err, ErrDirectoryNotFound) {
		t.Errorf("DiscoverDir() error = %v, want ErrDirectoryNotFound", err)
	}

	empty := filepath.Join(tmpDir, "empty")
	if err := os.MkdirAll(empty, 0700); err != nil {
		t.Fatal(err)
	}
	if _, err := d.DiscoverDir(empty); !errors.Is(err, ErrNoBuildFiles) {
		t.Errorf("DiscoverDir() error = %v, want ErrNoBuildFiles", err)
	}
}

func TestExpandHome(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string // empty means check it's not the same as input
	}{
		{
			name: "tilde only",
			path: "~",
		},
		{
			name: "tilde with path",
			path: "~/projects/game",
		},
		{
			name: "absolute path",
			path: "/absolute/path",
			want: "/absolute/path",
		},
		{
			name: "relative path",
			path: "relative/path",
			want: "relative/path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandHome(tt.path)

			if tt.want != "" {
				if got != tt.want {
					t.Errorf("expandHome(%q) = %q, want %q", tt.path, got, tt.want)
				}
			} else if got == tt.path {
				t.Errorf("expandHome(%q) = %q, expected expansion", tt.path, got)
			}
		})
	}
}

// Helper function to create test files.
func createFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}
