// Package plugin defines the contract between the build runner and the
// plugins that turn sources into outputs.
//
// A plugin claims sources by protocol (its name) and by file extension,
// registers watch listeners for them in Process, and hands back a Reset
// that removes everything it registered.
package plugin

import (
	"context"
	"fmt"

	"github.com/nullcatalyst/cobble/pkg/settings"
	"github.com/nullcatalyst/cobble/pkg/watcher"
)

// Reset tears down everything one Process call registered.
type Reset func()

// Plugin processes the sources of one protocol.
type Plugin interface {
	// Name is the protocol the plugin handles and the key of its option
	// bag in build files.
	Name() string

	// ProtocolExtensions lists extensions (without the dot) claimed by
	// the plugin when a source names no protocol.
	ProtocolExtensions() []string

	// Process registers the plugin's listeners for the build.
	Process(ctx context.Context, w watcher.Watcher, s *settings.BuildSettings) (Reset, error)

	// Cleanup releases resources held across builds.
	Cleanup() error
}

// Registry is an ordered set of plugins.
type Registry struct {
	plugins []Plugin
	byName  map[string]Plugin
}

// NewRegistry creates a registry of plugins. Names must be unique.
func NewRegistry(plugins ...Plugin) (*Registry, error) {
	r := &Registry{byName: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register appends p.
func (r *Registry) Register(p Plugin) error {
	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.Name())
	}
	r.plugins = append(r.plugins, p)
	r.byName[p.Name()] = p
	return nil
}

// Plugins returns the plugins in registration order.
func (r *Registry) Plugins() []Plugin {
	return append([]Plugin(nil), r.plugins...)
}

// Names returns the plugin names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name()
	}
	return names
}

// Lookup finds a plugin by name.
func (r *Registry) Lookup(name string) (Plugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// ExtensionProtocols maps every claimed extension to its plugin. The first
// plugin to claim an extension keeps it.
func (r *Registry) ExtensionProtocols() map[string]string {
	out := make(map[string]string)
	for _, p := range r.plugins {
		for _, ext := range p.ProtocolExtensions() {
			if _, taken := out[ext]; !taken {
				out[ext] = p.Name()
			}
		}
	}
	return out
}

// Process runs every plugin over s and returns a Reset for all of them.
// When a plugin fails, the plugins already processed are reset.
func (r *Registry) Process(ctx context.Context, w watcher.Watcher, s *settings.BuildSettings) (Reset, error) {
	resets := make([]Reset, 0, len(r.plugins))
	resetAll := func() {
		for i := len(resets) - 1; i >= 0; i-- {
			resets[i]()
		}
	}

	for _, p := range r.plugins {
		reset, err := p.Process(ctx, w, s)
		if err != nil {
			resetAll()
			return nil, fmt.Errorf("plugin %s failed to process %s: %w", p.Name(), s.ConfigPath, err)
		}
		if reset != nil {
			resets = append(resets, reset)
		}
	}
	return resetAll, nil
}

// Cleanup calls Cleanup on every plugin and returns the first error.
func (r *Registry) Cleanup() error {
	var first error
	for _, p := range r.plugins {
		if err := p.Cleanup(); err != nil && first == nil {
			first = fmt.Errorf("plugin %s cleanup failed: %w", p.Name(), err)
		}
	}
	return first
}
