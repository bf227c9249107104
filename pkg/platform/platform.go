// Package platform names the build targets and evaluates the boolean
// expressions that select platform-specific build settings.
package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// Platform is a build target.
type Platform string

// Known targets.
const (
	Win32  Platform = "win32"
	Darwin Platform = "darwin"
	Linux  Platform = "linux"
	Wasm   Platform = "wasm"
)

// ErrUnknownPlatform is returned for names outside the known set.
var ErrUnknownPlatform = errors.New("unknown platform")

// All returns the known targets in a stable order.
func All() []Platform {
	return []Platform{Win32, Darwin, Linux, Wasm}
}

// Parse validates a platform name.
func Parse(name string) (Platform, error) {
	for _, p := range All() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q (want one of win32, darwin, linux, wasm)", ErrUnknownPlatform, name)
}

// Host returns the platform cobble is running on. Hosts that are neither
// Windows nor macOS build like Linux.
func Host() Platform {
	switch runtime.GOOS {
	case "windows":
		return Win32
	case "darwin":
		return Darwin
	default:
		return Linux
	}
}

func (p Platform) String() string {
	return string(p)
}

// ObjectExt is the extension of compiled objects.
func (p Platform) ObjectExt() string {
	if p == Win32 {
		return ".obj"
	}
	return ".o"
}

// ExecutableName is the file name of an executable called name.
func (p Platform) ExecutableName(name string) string {
	switch p {
	case Win32:
		return name + ".exe"
	case Wasm:
		return name + ".wasm"
	default:
		return name
	}
}

// LibraryName is the file name of a static library called name.
func (p Platform) LibraryName(name string) string {
	switch p {
	case Win32:
		return name + ".lib"
	case Wasm:
		return "lib" + name + ".wasm"
	default:
		return "lib" + name + ".a"
	}
}

// Variables returns the expression variables for a build: one per known
// platform, true only for p, plus release.
func (p Platform) Variables(release bool) map[string]bool {
	vars := map[string]bool{"release": release}
	for _, known := range All() {
		vars[string(known)] = known == p
	}
	return vars
}

// Matches reports whether the overlay key selects a build for p.
//
// A key matches when it names p, when it is "release" in a release build,
// or when it is an expression that evaluates to true.
func (p Platform) Matches(key string, release bool) (bool, error) {
	if key == string(p) || (key == "release" && release) {
		return true, nil
	}
	return Eval(key, p.Variables(release))
}
