package display

import "errors"

// ErrUnknownFormat is returned for an unrecognized format name.
var ErrUnknownFormat = errors.New("unknown format: must be table, json, or simple")
