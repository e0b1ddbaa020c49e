// Package module defines the module.Version type along with support code.
package module

import (
	"fmt"
	"path/filepath"

	"golang.org/x/mod/semver"
)

// A Version identifies a specific release of a recipe by name.
type Version struct {
	Path    string // Recipe name, e.g. "json_struct" or "owner/repo"
	Version string // Version string (e.g., "1.0.0")
}

// String returns "path@version".
func (v Version) String() string {
	return v.Path + "@" + v.Version
}

// EscapePath returns the escaped form of the given module path as a valid
// file system path. It fails if the module path is invalid.
func EscapePath(path string) (escaped string, err error) {
	escaped, err = filepath.Localize(path)
	if err != nil {
		return "", fmt.Errorf("module path %q: %w", path, err)
	}
	return escaped, nil
}

// CanonicalVersion returns the canonical semantic version of v with a
// leading "v" ("1.0" becomes "v1.0.0"). Versions that are not semantic
// versions are returned unchanged.
func CanonicalVersion(v string) string {
	sv := v
	if len(sv) > 0 && sv[0] != 'v' {
		sv = "v" + sv
	}
	if c := semver.Canonical(sv); c != "" {
		return c
	}
	return v
}
