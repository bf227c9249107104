package settings

import (
	"fmt"
	"regexp"

	"github.com/nullcatalyst/cobble/pkg/paths"
)

// Target is a source assigned to the plugin that handles it.
type Target struct {
	// Path is absolute.
	Path string

	// Protocol is the name of the plugin that processes the source.
	Protocol string
}

func (t Target) String() string {
	return t.Protocol + ":" + t.Path
}

// TargetError reports a source that could not be assigned a protocol.
type TargetError struct {
	Spec string
	Err  error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%v for %s", e.Err, e.Spec)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}

// protocolPattern matches "protocol:path". The path may not start with a
// separator, so drive letters such as C:\ are not read as a protocol.
var protocolPattern = regexp.MustCompile(`^(?:([a-zA-Z0-9_-]+):)([^/\\].*)`)

// ParseTarget resolves spec against base. An explicit protocol prefix wins;
// otherwise the extension is looked up in protocols (extension without the
// dot, to protocol name).
func ParseTarget(spec, base string, protocols map[string]string) (Target, error) {
	if m := protocolPattern.FindStringSubmatch(spec); m != nil {
		return Target{Path: paths.Resolve(base, m[2]), Protocol: m[1]}, nil
	}

	if protocol, ok := protocols[paths.Ext(spec)]; ok {
		return Target{Path: paths.Resolve(base, spec), Protocol: protocol}, nil
	}
	return Target{}, &TargetError{Spec: spec, Err: ErrNoProtocol}
}
