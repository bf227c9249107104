// Package paths holds the path arithmetic shared by the watcher, the build
// settings and the plugins.
//
// Functions without a Flavor receiver use the host's conventions. Posix and
// Windows flavors are exported so that both styles can be handled (and
// tested) on any host.
package paths

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// ErrNoCommonPath is returned when two paths share no root, such as two
// different Windows drives.
var ErrNoCommonPath = errors.New("no common file path between different drives")

// Flavor describes one path syntax.
type Flavor struct {
	sep    byte
	drives bool
}

var (
	// Posix paths use '/' and a single root.
	Posix = Flavor{sep: '/'}

	// Windows paths use '\' (accepting '/') and one root per drive.
	Windows = Flavor{sep: '\\', drives: true}
)

// Native returns the flavor of the host.
func Native() Flavor {
	if filepath.Separator == '\\' {
		return Windows
	}
	return Posix
}

// Separator returns the flavor's separator as a string.
func (f Flavor) Separator() string {
	return string(f.sep)
}

// Clean normalizes p lexically, the way filepath.Clean does on the
// flavor's own platform.
func (f Flavor) Clean(p string) string {
	if !f.drives {
		return path.Clean(p)
	}
	cleaned := path.Clean(strings.ReplaceAll(p, `\`, "/"))
	return strings.ReplaceAll(cleaned, "/", `\`)
}

func (f Flavor) split(p string) []string {
	return strings.Split(f.Clean(p), string(f.sep))
}

func (f Flavor) same(a, b string) bool {
	if f.drives {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// CommonSubPath returns the deepest directory containing both a and b.
//
// Paths that differ in their first component (different drives) have no
// common path and produce ErrNoCommonPath. Paths that differ right below
// the root share only the root.
func (f Flavor) CommonSubPath(a, b string) (string, error) {
	pa, pb := f.split(a), f.split(b)

	n := len(pa)
	if len(pb) < n {
		n = len(pb)
	}

	for i := 0; i < n; i++ {
		if f.same(pa[i], pb[i]) {
			continue
		}
		switch i {
		case 0:
			return "", fmt.Errorf("%w: %s, %s", ErrNoCommonPath, a, b)
		case 1:
			return pa[0] + string(f.sep), nil
		default:
			return strings.Join(pa[:i], string(f.sep)), nil
		}
	}

	return strings.Join(pa[:n], string(f.sep)), nil
}

// CommonSubPath applies the host flavor.
func CommonSubPath(a, b string) (string, error) {
	return Native().CommonSubPath(a, b)
}

// CommonBasePath folds CommonSubPath over all paths.
func CommonBasePath(all []string) (string, error) {
	if len(all) == 0 {
		return "", errors.New("no paths given")
	}

	common := filepath.Clean(all[0])
	for _, p := range all[1:] {
		next, err := CommonSubPath(common, p)
		if err != nil {
			return "", err
		}
		common = next
	}
	return common, nil
}

// Within reports whether p is root or lies below it.
func Within(p, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Rebase moves p from below base to the same relative location below
// target. Parent references that climb out of base are kept inside target
// as "__" components, so every input maps to a distinct path under target.
func Rebase(p, base, target string) (string, error) {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return "", fmt.Errorf("failed to rebase %s onto %s: %w", p, target, err)
	}

	parts := strings.Split(rel, string(filepath.Separator))
	for i, part := range parts {
		if part == ".." {
			parts[i] = "__"
		}
	}
	return filepath.Join(target, filepath.Join(parts...)), nil
}

// ReplaceExt swaps the extension of p for ext (which includes the dot).
func ReplaceExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}

// Ext returns the extension of p without the leading dot.
func Ext(p string) string {
	return strings.TrimPrefix(filepath.Ext(p), ".")
}

// Resolve joins rel onto base unless rel is already absolute, and cleans
// the result.
func Resolve(base, rel string) string {
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(base, rel)
}
