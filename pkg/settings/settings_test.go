package settings

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullcatalyst/cobble/pkg/platform"
)

func decode(t *testing.T, path, doc string) *RawBuildFile {
	t.Helper()
	raw, err := Decode(path, []byte(doc))
	require.NoError(t, err)
	return raw
}

func targetPaths(targets []Target) []string {
	out := make([]string, len(targets))
	for i, tg := range targets {
		out[i] = tg.Path
	}
	return out
}

func TestFromParsesBuildFile(t *testing.T) {
	root := t.TempDir()
	config := filepath.Join(root, "config.json")

	raw := decode(t, config, `{
  "name": "test",
  "outDir": "out",
  "srcs": ["copy:src/1.txt", "copy:src/2.txt"],
  "deps": ["other/build.json"]
}`)

	s, err := From(raw, config, LoadOptions{Target: platform.Linux})
	require.NoError(t, err)

	assert.Equal(t, "test", s.Name)
	assert.Equal(t, filepath.Join(root, "out"), s.OutDir)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "1.txt"),
		filepath.Join(root, "src", "2.txt"),
	}, targetPaths(s.Srcs))
	assert.Equal(t, []string{filepath.Join(root, "other", "build.json")}, s.Deps)
	assert.Equal(t, filepath.Join(root, "out", "test"), s.OutputPath)
	assert.Equal(t, TypeExe, s.Type)
}

func TestFromMergesPlatformOverlays(t *testing.T) {
	root := t.TempDir()
	config := filepath.Join(root, "config.yaml")

	raw := decode(t, config, `
name: platform_test
outDir: out
srcs: ["copy:src/1.txt", "copy:src/2.txt"]
deps: [other/build.json]
platform:
  wasm:
    srcs: ["copy:src/wasm.txt"]
    deps: [other/wasm.json]
  win32:
    srcs: ["copy:src/win32.txt"]
    deps: [other/win32.json]
  "!darwin":
    srcs: ["copy:src/not_darwin.txt"]
    deps: [other/not_darwin.json]
`)

	s, err := From(raw, config, LoadOptions{Target: platform.Wasm})
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(root, "src", "1.txt"),
		filepath.Join(root, "src", "2.txt"),
		filepath.Join(root, "src", "wasm.txt"),
		filepath.Join(root, "src", "not_darwin.txt"),
	}, targetPaths(s.Srcs))
	assert.Equal(t, []string{
		filepath.Join(root, "other", "build.json"),
		filepath.Join(root, "other", "wasm.json"),
		filepath.Join(root, "other", "not_darwin.json"),
	}, s.Deps)
	assert.Equal(t, filepath.Join(root, "out", "platform_test.wasm"), s.OutputPath)
}

func TestFromMergesPluginOptions(t *testing.T) {
	root := t.TempDir()
	config := filepath.Join(root, "config.yaml")

	raw := decode(t, config, `
name: clang_test
clang:
  libs: [lib1, lib2]
  std: c++17
platform:
  wasm:
    clang:
      libs: [wasm_lib3]
      std: c++20
  win32:
    clang:
      libs: [win32_lib3]
  "!darwin":
    clang:
      libs: [not_darwin_lib3]
`)

	s, err := From(raw, config, LoadOptions{Target: platform.Wasm, Plugins: []string{"clang", "copy"}})
	require.NoError(t, err)
	assert.Equal(t, root, s.OutDir)

	clang, err := s.PluginSettings("clang")
	require.NoError(t, err)
	assert.Equal(t, []string{"lib1", "lib2", "wasm_lib3", "not_darwin_lib3"}, clang.Strings("libs"))
	assert.Equal(t, "c++20", clang.String("std"))

	// A registered plugin without a section gets an empty bag.
	cp, err := s.PluginSettings("copy")
	require.NoError(t, err)
	assert.Empty(t, cp)

	_, err = s.PluginSettings("rust")
	assert.ErrorIs(t, err, ErrPluginNotDefined)
}

func TestPluginSettingsReturnsCopy(t *testing.T) {
	config := filepath.Join(t.TempDir(), "build.yaml")
	raw := decode(t, config, "name: x\nclang:\n  libs: [a]\n")

	s, err := From(raw, config, LoadOptions{Plugins: []string{"clang"}})
	require.NoError(t, err)

	first, _ := s.PluginSettings("clang")
	first["libs"] = []interface{}{"changed"}

	second, _ := s.PluginSettings("clang")
	assert.Equal(t, []string{"a"}, second.Strings("libs"))
}

func TestFromReleaseAndExpressions(t *testing.T) {
	config := filepath.Join(t.TempDir(), "build.yaml")
	raw := decode(t, config, `
name: app
platform:
  release:
    defines: [NDEBUG]
  "linux && !release":
    defines: [DEBUG_LINUX]
  "(darwin || linux) && release":
    flags: [-O2]
`)

	debug, err := From(raw, config, LoadOptions{Target: platform.Linux})
	require.NoError(t, err)
	assert.Equal(t, []string{"DEBUG_LINUX"}, debug.Defines)
	assert.Empty(t, debug.Flags)

	release, err := From(raw, config, LoadOptions{Target: platform.Linux, Release: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"NDEBUG"}, release.Defines)
	assert.Equal(t, []string{"-O2"}, release.Flags)
}

func TestFromInvalidExpression(t *testing.T) {
	config := filepath.Join(t.TempDir(), "build.yaml")
	raw := decode(t, config, "name: app\nplatform:\n  \"linux &&\":\n    defines: [X]\n")

	_, err := From(raw, config, LoadOptions{Target: platform.Linux})
	assert.ErrorIs(t, err, ErrInvalidPlatform)
}

func TestFromVariables(t *testing.T) {
	root := t.TempDir()
	config := filepath.Join(root, "build.yaml")
	raw := decode(t, config, `
name: app
type: lib
defines: ["TARGET_${TARGET}", "KEEP_${UNKNOWN}"]
includes: ["${PATH:third_party}"]
clang:
  libs: ["${LIB:core}", "${EXE:tool}"]
`)

	s, err := From(raw, config, LoadOptions{Target: platform.Win32, Plugins: []string{"clang"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"TARGET_win32", "KEEP_${UNKNOWN}"}, s.Defines)
	assert.Equal(t, []string{filepath.Join(root, "third_party")}, s.Includes)
	assert.Equal(t, filepath.Join(root, "app.lib"), s.OutputPath)

	clang, _ := s.PluginSettings("clang")
	assert.Equal(t, []string{"core.lib", "tool.exe"}, clang.Strings("libs"))
}

func TestFromOutputAndType(t *testing.T) {
	root := t.TempDir()
	config := filepath.Join(root, "build.yaml")

	tests := []struct {
		name string
		doc  string
		want string
		err  error
	}{
		{name: "explicit output", doc: "name: a\noutDir: bin\noutput: custom.bin\n", want: filepath.Join(root, "bin", "custom.bin")},
		{name: "linux library", doc: "name: a\ntype: lib\n", want: filepath.Join(root, "liba.a")},
		{name: "no output", doc: "name: a\ntype: none\n", want: ""},
		{name: "bad type", doc: "name: a\ntype: dll\n", err: ErrInvalidType},
		{name: "default name", doc: "outDir: out\n", want: filepath.Join(root, "out", "build")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := From(decode(t, config, tt.doc), config, LoadOptions{Target: platform.Linux})
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.OutputPath)
		})
	}
}

func TestFromUnknownProtocol(t *testing.T) {
	config := filepath.Join(t.TempDir(), "build.yaml")
	raw := decode(t, config, "name: a\nsrcs: [readme.md]\n")

	_, err := From(raw, config, LoadOptions{Protocols: map[string]string{"cpp": "clang"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoProtocol)
	assert.Contains(t, err.Error(), "no suitable protocol found for readme.md")
}

func TestRaw(t *testing.T) {
	config := filepath.Join(t.TempDir(), "build.yaml")
	raw := decode(t, config, "name: a\nstd: c++20\nextra:\n  key: value\n")

	s, err := From(raw, config, LoadOptions{})
	require.NoError(t, err)

	v, ok := s.Raw("std")
	assert.True(t, ok)
	assert.Equal(t, "c++20", v)

	v, ok = s.Raw("extra")
	assert.True(t, ok)
	assert.Equal(t, map[string]interface{}{"key": "value"}, v)

	_, ok = s.Raw("missing")
	assert.False(t, ok)
}

func TestDecodeTOMLKeepsOverlays(t *testing.T) {
	config := filepath.Join(t.TempDir(), "build.toml")
	raw := decode(t, config, `
name = "app"
srcs = ["copy:a.txt"]

[clang]
libs = ["m"]

[platform.linux]
defines = ["LINUX"]
`)

	assert.Equal(t, "app", raw.Name)
	assert.Equal(t, []string{"copy:a.txt"}, raw.Srcs)
	require.Len(t, raw.Platform, 1)
	assert.Equal(t, "linux", raw.Platform[0].Key)
	assert.Equal(t, []string{"LINUX"}, raw.Platform[0].Settings.Defines)

	s, err := From(raw, config, LoadOptions{Target: platform.Linux, Plugins: []string{"clang"}})
	require.NoError(t, err)
	clang, _ := s.PluginSettings("clang")
	assert.Equal(t, []string{"m"}, clang.Strings("libs"))
}

func TestDecodeInvalidPlatform(t *testing.T) {
	_, err := Decode("build.yaml", []byte("name: a\nplatform:\n  linux: [oops]\n"))
	assert.ErrorIs(t, err, ErrInvalidBuildFile)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoadInheritsDependencies(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "core", "build.yaml"), `
name: core
type: lib
includes: [include]
defines: [CORE, SHARED]
deps: [../base/build.yaml]
`)
	writeFile(t, filepath.Join(root, "base", "build.yaml"), "name: base\ntype: lib\ndefines: [BASE]\n")
	writeFile(t, filepath.Join(root, "app", "build.yaml"), `
name: app
defines: [APP, SHARED]
deps: [../core/build.yaml]
`)

	s, err := Load(filepath.Join(root, "app", "build.yaml"), LoadOptions{Target: platform.Linux})
	require.NoError(t, err)

	assert.Equal(t, []string{"BASE", "CORE", "SHARED", "APP"}, s.Defines)
	assert.Equal(t, []string{filepath.Join(root, "core", "include")}, s.Includes)
	assert.Equal(t, []string{
		filepath.Join(root, "app", "build.yaml"),
		filepath.Join(root, "core", "build.yaml"),
		filepath.Join(root, "base", "build.yaml"),
	}, s.Files())
}

func TestLoadDetectsCycles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.yaml"), "name: a\ndeps: [b.yaml]\n")
	writeFile(t, filepath.Join(root, "b.yaml"), "name: b\ndeps: [a.yaml]\n")

	_, err := Load(filepath.Join(root, "a.yaml"), LoadOptions{})
	assert.ErrorIs(t, err, ErrDependencyCycle)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), LoadOptions{})
	if !errors.Is(err, ErrBuildFileNotFound) {
		t.Fatalf("error = %v, want ErrBuildFileNotFound", err)
	}
}

func TestSchema(t *testing.T) {
	s := Schema()
	require.NotNil(t, s)
	assert.Equal(t, "cobble build file", s.Title)

	_, ok := s.Properties.Get("srcs")
	assert.True(t, ok)
	_, ok = s.Properties.Get("platform")
	assert.True(t, ok)
}
