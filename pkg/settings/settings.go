// Package settings loads build files into the read-only BuildSettings the
// build plugins consume.
//
// A build file names a target and its sources, and may extend itself per
// platform:
//
//	name: app
//	srcs: [src/main.cpp, "copy:assets/logo.png"]
//	includes: [include]
//	clang:
//	  libs: [m]
//	platform:
//	  wasm:
//	    defines: [WASM]
//	  "!win32 && release":
//	    flags: [-O2]
//
// Example usage:
//
//	s, err := settings.Load("build.yaml", settings.LoadOptions{
//	    Target:    platform.Wasm,
//	    Protocols: registry.ExtensionProtocols(),
//	    Plugins:   registry.Names(),
//	})
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/nullcatalyst/cobble/pkg/paths"
	"github.com/nullcatalyst/cobble/pkg/platform"
)

// Build types.
const (
	TypeExe  = "exe"
	TypeLib  = "lib"
	TypeNone = "none"
)

// LoadOptions selects how a build file is interpreted.
type LoadOptions struct {
	// Target is the platform being built (default: host).
	Target platform.Platform

	// Release enables the "release" overlay variable.
	Release bool

	// Protocols maps source extensions (without the dot) to the plugin
	// that handles them.
	Protocols map[string]string

	// Plugins lists the plugins whose option bags are collected.
	Plugins []string

	// Variables adds to, or overrides, the built-in variables.
	Variables Variables
}

func (o LoadOptions) withDefaults() LoadOptions {
	if o.Target == "" {
		o.Target = platform.Host()
	}
	return o
}

// BuildSettings is the resolved view of one build file for one platform.
// Plugins must treat it as read-only.
type BuildSettings struct {
	Name       string
	ConfigPath string
	BasePath   string
	OutDir     string
	OutputPath string
	Target     platform.Platform
	Release    bool
	Type       string
	Std        string

	Srcs     []Target
	Deps     []string
	Includes []string
	Defines  []string
	Flags    []string

	// DepFiles lists every build file reached through Deps, transitively.
	DepFiles []string

	plugins map[string]Options
	raw     *RawBuildFile
}

// PluginSettings returns a copy of the option bag for name. The bag is
// empty when the build file has no section for a known plugin.
func (s *BuildSettings) PluginSettings(name string) (Options, error) {
	opts, ok := s.plugins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotDefined, name)
	}
	return opts.clone(), nil
}

// Raw returns a top-level value of the build file as written, before
// overlays and variable expansion.
func (s *BuildSettings) Raw(key string) (interface{}, bool) {
	if s.raw == nil {
		return nil, false
	}

	r := s.raw
	switch key {
	case "name":
		return r.Name, true
	case "type":
		return r.Type, r.Type != ""
	case "std":
		return r.Std, r.Std != ""
	case "outDir":
		return r.OutDir, r.OutDir != ""
	case "output":
		return r.Output, r.Output != ""
	case "srcs":
		return r.Srcs, r.Srcs != nil
	case "deps":
		return r.Deps, r.Deps != nil
	case "includes":
		return r.Includes, r.Includes != nil
	case "defines":
		return r.Defines, r.Defines != nil
	case "flags":
		return r.Flags, r.Flags != nil
	case "platform":
		return r.Platform, r.Platform != nil
	}
	v, ok := r.Plugins[key]
	return v, ok
}

// SrcsFor returns the sources assigned to protocol.
func (s *BuildSettings) SrcsFor(protocol string) []Target {
	var out []Target
	for _, t := range s.Srcs {
		if t.Protocol == protocol {
			out = append(out, t)
		}
	}
	return out
}

// Files returns the build file and every dependency build file.
func (s *BuildSettings) Files() []string {
	return append([]string{s.ConfigPath}, s.DepFiles...)
}

// Load reads the build file at path and its dependency build files.
func Load(path string, opts LoadOptions) (*BuildSettings, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return load(abs, opts.withDefaults(), map[string]bool{})
}

func load(path string, opts LoadOptions, visiting map[string]bool) (*BuildSettings, error) {
	if visiting[path] {
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, path)
	}
	visiting[path] = true
	defer delete(visiting, path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBuildFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to read build file: %w", err)
	}

	raw, err := Decode(path, data)
	if err != nil {
		return nil, err
	}

	s, err := From(raw, path, opts)
	if err != nil {
		return nil, err
	}

	for _, dep := range s.Deps {
		d, err := load(dep, opts, visiting)
		if err != nil {
			return nil, fmt.Errorf("failed to load dependency of %s: %w", path, err)
		}
		s.inherit(d)
	}
	return s, nil
}

// From resolves a decoded build file located at configPath. Dependency
// build files are listed but not read.
func From(raw *RawBuildFile, configPath string, opts LoadOptions) (*BuildSettings, error) {
	opts = opts.withDefaults()
	base := filepath.Dir(configPath)

	vars := builtinVariables(base, opts.Target)
	for name, fn := range opts.Variables {
		vars[name] = fn
	}

	s := &BuildSettings{
		Name:       vars.Expand(raw.Name),
		ConfigPath: configPath,
		BasePath:   base,
		Target:     opts.Target,
		Release:    opts.Release,
		Type:       raw.Type,
		Std:        vars.Expand(raw.Std),
		plugins:    make(map[string]Options, len(opts.Plugins)),
		raw:        raw,
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
	}
	if s.Type == "" {
		s.Type = TypeExe
	}
	switch s.Type {
	case TypeExe, TypeLib, TypeNone:
	default:
		return nil, fmt.Errorf("%w: %q in %s", ErrInvalidType, s.Type, configPath)
	}

	srcs := vars.ExpandAll(raw.Srcs)
	deps := vars.ExpandAll(raw.Deps)
	s.Includes = vars.ExpandAll(raw.Includes)
	s.Defines = vars.ExpandAll(raw.Defines)
	s.Flags = vars.ExpandAll(raw.Flags)

	for _, name := range opts.Plugins {
		bag, ok := toOptions(raw.Plugins[name])
		if !ok {
			return nil, fmt.Errorf("%w: %s section must be a map", ErrInvalidBuildFile, name)
		}
		s.plugins[name] = bag.clone()
	}

	for _, overlay := range raw.Platform {
		match, err := opts.Target.Matches(overlay.Key, opts.Release)
		if err != nil {
			return nil, fmt.Errorf("%w for [%s]: %v", ErrInvalidPlatform, overlay.Key, err)
		}
		if !match {
			continue
		}

		p := overlay.Settings
		srcs = append(srcs, vars.ExpandAll(p.Srcs)...)
		deps = append(deps, vars.ExpandAll(p.Deps)...)
		s.Includes = append(s.Includes, vars.ExpandAll(p.Includes)...)
		s.Defines = append(s.Defines, vars.ExpandAll(p.Defines)...)
		s.Flags = append(s.Flags, vars.ExpandAll(p.Flags)...)

		for _, name := range opts.Plugins {
			bag, ok := toOptions(p.Plugins[name])
			if !ok {
				return nil, fmt.Errorf("%w: %s section of [%s] must be a map", ErrInvalidBuildFile, name, overlay.Key)
			}
			s.plugins[name].merge(bag)
		}
	}

	for name, bag := range s.plugins {
		s.plugins[name] = expandOptions(bag, vars)
	}

	for _, spec := range srcs {
		t, err := ParseTarget(spec, base, opts.Protocols)
		if err != nil {
			return nil, fmt.Errorf("invalid source in %s: %w", configPath, err)
		}
		s.Srcs = append(s.Srcs, t)
	}
	for _, dep := range deps {
		s.Deps = append(s.Deps, paths.Resolve(base, dep))
	}
	for i, inc := range s.Includes {
		s.Includes[i] = paths.Resolve(base, inc)
	}

	s.OutDir = base
	if raw.OutDir != "" {
		s.OutDir = paths.Resolve(base, vars.Expand(raw.OutDir))
	}

	switch {
	case raw.Output != "":
		s.OutputPath = paths.Resolve(s.OutDir, vars.Expand(raw.Output))
	case s.Type == TypeExe:
		s.OutputPath = filepath.Join(s.OutDir, opts.Target.ExecutableName(s.Name))
	case s.Type == TypeLib:
		s.OutputPath = filepath.Join(s.OutDir, opts.Target.LibraryName(s.Name))
	}

	return s, nil
}

// inherit places the dependency's includes, defines and flags in front of
// the dependent's own.
func (s *BuildSettings) inherit(d *BuildSettings) {
	s.Includes = dedupe(append(append([]string(nil), d.Includes...), s.Includes...))
	s.Defines = dedupe(append(append([]string(nil), d.Defines...), s.Defines...))
	s.Flags = dedupe(append(append([]string(nil), d.Flags...), s.Flags...))
	s.DepFiles = dedupe(append(append(s.DepFiles, d.ConfigPath), d.DepFiles...))
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := list[:0]
	for _, s := range list {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func expandOptions(o Options, vars Variables) Options {
	for key, value := range o {
		switch v := value.(type) {
		case string:
			o[key] = vars.Expand(v)
		case []interface{}:
			for i, item := range v {
				if s, ok := item.(string); ok {
					v[i] = vars.Expand(s)
				}
			}
		}
	}
	return o
}
