package settings

import (
	"regexp"

	"github.com/nullcatalyst/cobble/pkg/paths"
	"github.com/nullcatalyst/cobble/pkg/platform"
)

// Variable produces the replacement for ${NAME} or ${NAME:arg}.
type Variable func(arg string) string

// Variables maps variable names to their expansion.
type Variables map[string]Variable

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::([^}]*))?\}`)

// Expand replaces every known variable in s. Unknown variables are left as
// written.
func (v Variables) Expand(s string) string {
	return variablePattern.ReplaceAllStringFunc(s, func(match string) string {
		m := variablePattern.FindStringSubmatch(match)
		fn, ok := v[m[1]]
		if !ok {
			return match
		}
		return fn(m[2])
	})
}

// ExpandAll expands every element of list into a new slice.
func (v Variables) ExpandAll(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = v.Expand(s)
	}
	return out
}

// builtinVariables are available in every build file.
func builtinVariables(base string, target platform.Platform) Variables {
	return Variables{
		"TARGET": func(string) string { return string(target) },
		"PATH":   func(rel string) string { return paths.Resolve(base, rel) },
		"LIB":    func(name string) string { return target.LibraryName(name) },
		"EXE":    func(name string) string { return target.ExecutableName(name) },
	}
}
