package settings

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// RawBuildFile is a build file as written on disk.
//
// Keys that are not listed here are option bags for plugins, keyed by the
// plugin's name (for example a top-level "clang" map).
type RawBuildFile struct {
	Name   string `yaml:"name" json:"name" jsonschema:"description=Target name; also the default output name"`
	Type   string `yaml:"type,omitempty" json:"type,omitempty" jsonschema:"enum=exe,enum=lib,enum=none,default=exe"`
	Std    string `yaml:"std,omitempty" json:"std,omitempty" jsonschema:"description=Language standard passed to the compiler,example=c++17"`
	OutDir string `yaml:"outDir,omitempty" json:"outDir,omitempty" jsonschema:"description=Output directory relative to the build file"`
	Output string `yaml:"output,omitempty" json:"output,omitempty" jsonschema:"description=Output file relative to outDir"`

	Srcs     []string `yaml:"srcs,omitempty" json:"srcs,omitempty" jsonschema:"description=Sources as protocol:path or a path with a known extension"`
	Deps     []string `yaml:"deps,omitempty" json:"deps,omitempty" jsonschema:"description=Build files whose includes, defines and flags are inherited"`
	Includes []string `yaml:"includes,omitempty" json:"includes,omitempty"`
	Defines  []string `yaml:"defines,omitempty" json:"defines,omitempty"`
	Flags    []string `yaml:"flags,omitempty" json:"flags,omitempty"`

	Platform Overlays `yaml:"platform,omitempty" json:"platform,omitempty"`

	Plugins map[string]interface{} `yaml:",inline" json:"-"`
}

// RawPlatform is the part of a build file that a platform overlay may
// extend.
type RawPlatform struct {
	Srcs     []string `yaml:"srcs,omitempty" json:"srcs,omitempty"`
	Deps     []string `yaml:"deps,omitempty" json:"deps,omitempty"`
	Includes []string `yaml:"includes,omitempty" json:"includes,omitempty"`
	Defines  []string `yaml:"defines,omitempty" json:"defines,omitempty"`
	Flags    []string `yaml:"flags,omitempty" json:"flags,omitempty"`

	Plugins map[string]interface{} `yaml:",inline" json:"-"`
}

// Overlay is one entry of the platform section.
type Overlay struct {
	// Key is a platform name, "release", or a boolean expression.
	Key      string
	Settings RawPlatform
}

// Overlays keeps the platform section in file order, which is the order
// overlays are applied in.
type Overlays []Overlay

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Overlays) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: platform must be a map", ErrInvalidPlatform)
	}

	overlays := make(Overlays, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		if value.Kind != yaml.MappingNode {
			return fmt.Errorf("%w for [%s]", ErrInvalidPlatform, key)
		}

		var settings RawPlatform
		if err := value.Decode(&settings); err != nil {
			return fmt.Errorf("%w for [%s]: %v", ErrInvalidPlatform, key, err)
		}
		overlays = append(overlays, Overlay{Key: key, Settings: settings})
	}

	*o = overlays
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (o Overlays) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, overlay := range o {
		var value yaml.Node
		if err := value.Encode(overlay.Settings); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: overlay.Key},
			&value)
	}
	return node, nil
}

// JSONSchema describes the platform section for schema generation.
func (Overlays) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Description:          "Overlays keyed by platform (win32, darwin, linux, wasm), release, or a boolean expression such as \"!win32 && release\"",
		AdditionalProperties: &jsonschema.Schema{Type: "object"},
	}
}

// Decode parses a build file. The format follows the extension: .toml is
// TOML; anything else (.yaml, .yml, .json) is read as YAML, which accepts
// JSON documents as well.
func Decode(path string, data []byte) (*RawBuildFile, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var doc map[string]interface{}
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBuildFile, path, err)
		}
		// Normalize through YAML so one set of struct tags applies.
		normalized, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBuildFile, path, err)
		}
		data = normalized
	}

	var raw RawBuildFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidBuildFile, path, err)
	}
	return &raw, nil
}

// Schema returns the JSON schema of the build file format.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}
	s := r.Reflect(&RawBuildFile{})
	s.Title = "cobble build file"
	return s
}
