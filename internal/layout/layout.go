// Package layout resolves the source, build and package roots of a single
// invocation.
//
// Workspace layout:
//
//	workspace/
//	  <escaped name>/
//	    .cache.json                     # identity cache, see internal/build
//	  <escaped name>@<version>/
//	    <invocation id>/
//	      build/                        # build root
//	      package/                      # package root
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/goplus/hpkg/mod/module"
)

// ErrLayoutConflict is matched by *ConflictError.
var ErrLayoutConflict = errors.New("layout conflict")

// ConflictError reports a build or package root that would clash with a
// source tree.
type ConflictError struct {
	Root   string // "build" or "package"
	Dir    string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s root %s %s", ErrLayoutConflict, e.Root, e.Dir, e.Reason)
}

func (e *ConflictError) Unwrap() error { return ErrLayoutConflict }

// Layout is the triple of roots used by one build invocation.
type Layout struct {
	SourceRoot  string
	BuildRoot   string
	PackageRoot string
}

// Resolver computes layouts below a workspace directory.
type Resolver struct {
	// Workspace is the directory build and package roots are created in.
	Workspace string

	// ID returns the invocation-scoped namespace. Defaults to a random UUID.
	ID func() string
}

// New returns a Resolver rooted at workspace.
func New(workspace string) *Resolver {
	return &Resolver{Workspace: workspace}
}

// Resolve returns the layout for building name@version from the source tree
// at cwd. It creates nothing on disk.
func (r *Resolver) Resolve(name, version, cwd string) (Layout, error) {
	source, err := filepath.Abs(cwd)
	if err != nil {
		return Layout{}, err
	}
	workspace, err := filepath.Abs(r.Workspace)
	if err != nil {
		return Layout{}, err
	}

	ns, err := Namespace(name, version)
	if err != nil {
		return Layout{}, err
	}
	id := r.newID()
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return Layout{}, fmt.Errorf("invalid invocation id %q", id)
	}

	base := filepath.Join(workspace, ns, id)
	l := Layout{
		SourceRoot:  source,
		BuildRoot:   filepath.Join(base, "build"),
		PackageRoot: filepath.Join(base, "package"),
	}
	if err := l.check(); err != nil {
		return Layout{}, err
	}
	return l, nil
}

func (r *Resolver) newID() string {
	if r.ID != nil {
		return r.ID()
	}
	return uuid.NewString()
}

// Namespace returns the workspace-relative directory that holds every
// invocation of name@version, e.g. "json_struct@v1.0.0".
func Namespace(name, version string) (string, error) {
	if name == "" {
		name = "_"
	}
	escaped, err := module.EscapePath(name)
	if err != nil {
		return "", err
	}
	version = module.CanonicalVersion(version)
	if version == "" {
		version = "v0.0.0"
	}
	if strings.ContainsAny(version, `/\`) {
		return "", fmt.Errorf("invalid version %q", version)
	}
	return escaped + "@" + version, nil
}

func (l Layout) check() error {
	roots := []struct{ name, dir string }{
		{"build", l.BuildRoot},
		{"package", l.PackageRoot},
	}
	for _, root := range roots {
		if within(l.SourceRoot, root.dir) {
			return &ConflictError{Root: root.name, Dir: root.dir, Reason: "contains source root " + l.SourceRoot}
		}
		if _, err := os.Stat(filepath.Join(root.dir, "CMakeLists.txt")); err == nil {
			return &ConflictError{Root: root.name, Dir: root.dir, Reason: "holds an unrelated source tree"}
		}
	}
	if l.BuildRoot == l.PackageRoot {
		return &ConflictError{Root: "package", Dir: l.PackageRoot, Reason: "equals build root"}
	}
	return nil
}

// within reports whether path is dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
