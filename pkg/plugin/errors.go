package plugin

import "errors"

// ErrDuplicatePlugin is returned when two plugins share a name.
var ErrDuplicatePlugin = errors.New("plugin already registered")
