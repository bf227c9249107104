package settings

import "errors"

// Common errors returned by the settings package.
var (
	// ErrNoProtocol is returned when a source names no protocol and its
	// extension is not claimed by any plugin.
	ErrNoProtocol = errors.New("no suitable protocol found")

	// ErrPluginNotDefined is returned when asking for the options of a
	// plugin the settings were not loaded with.
	ErrPluginNotDefined = errors.New("plugin is not defined in this build file")

	// ErrInvalidPlatform is returned for a platform overlay that is not a map.
	ErrInvalidPlatform = errors.New("invalid platform definition")

	// ErrDependencyCycle is returned when build files depend on each other.
	ErrDependencyCycle = errors.New("dependency cycle between build files")

	// ErrInvalidType is returned for an unknown build type.
	ErrInvalidType = errors.New("invalid build type: must be exe, lib, or none")

	// ErrBuildFileNotFound is returned when a build file does not exist.
	ErrBuildFileNotFound = errors.New("build file not found")

	// ErrInvalidBuildFile is returned when a build file cannot be decoded.
	ErrInvalidBuildFile = errors.New("invalid build file")
)
