package settings

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/nullcatalyst/cobble/pkg/platform"
)

func TestParseTarget(t *testing.T) {
	base := filepath.Join(t.TempDir(), "base", "path", "to")
	protocols := map[string]string{"cpp": "clang"}

	tests := []struct {
		name     string
		spec     string
		protocol string
		path     string
	}{
		{name: "explicit protocol", spec: "copy:my/image.png", protocol: "copy", path: filepath.Join(base, "my", "image.png")},
		{name: "by extension", spec: "my/lib.cpp", protocol: "clang", path: filepath.Join(base, "my", "lib.cpp")},
		{name: "protocol beats extension", spec: "copy:my/lib.cpp", protocol: "copy", path: filepath.Join(base, "my", "lib.cpp")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTarget(tt.spec, base, protocols)
			if err != nil {
				t.Fatalf("ParseTarget() error = %v", err)
			}
			if got.Protocol != tt.protocol {
				t.Errorf("Protocol = %q, want %q", got.Protocol, tt.protocol)
			}
			if got.Path != tt.path {
				t.Errorf("Path = %q, want %q", got.Path, tt.path)
			}
		})
	}
}

func TestParseTargetNoProtocol(t *testing.T) {
	_, err := ParseTarget("notes.txt", "/base", map[string]string{"cpp": "clang"})
	if !errors.Is(err, ErrNoProtocol) {
		t.Fatalf("error = %v, want ErrNoProtocol", err)
	}

	var terr *TargetError
	if !errors.As(err, &terr) || terr.Spec != "notes.txt" {
		t.Errorf("error = %#v, want *TargetError for notes.txt", err)
	}
}

func TestParseTargetRejectsSeparatorAfterColon(t *testing.T) {
	// "c:/x.cpp" reads as a path with a drive, not as protocol "c".
	got, err := ParseTarget("c:/x.cpp", "/base", map[string]string{"cpp": "clang"})
	if err != nil {
		t.Fatalf("ParseTarget() error = %v", err)
	}
	if got.Protocol != "clang" {
		t.Errorf("Protocol = %q, want clang", got.Protocol)
	}
}

func TestVariablesExpand(t *testing.T) {
	vars := builtinVariables("/base", platform.Linux)
	vars["HOME"] = func(string) string { return "/home/me" }

	tests := []struct {
		in, want string
	}{
		{"${TARGET}", "linux"},
		{"${LIB:z}", "libz.a"},
		{"${EXE:app}", "app"},
		{"${HOME}/x", "/home/me/x"},
		{"${NOPE:arg}", "${NOPE:arg}"},
		{"$TARGET", "$TARGET"},
		{"a-${TARGET}-${TARGET}", "a-linux-linux"},
	}
	for _, tt := range tests {
		if got := vars.Expand(tt.in); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
