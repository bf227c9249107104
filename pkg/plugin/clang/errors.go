package clang

import "errors"

// ErrInvalidLinkMode is returned for an unknown link mode.
var ErrInvalidLinkMode = errors.New("invalid link mode: must be serialized or concurrent")
