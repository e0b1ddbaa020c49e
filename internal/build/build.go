package build

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/qiniu/x/log"

	"github.com/goplus/hpkg/formula"
	"github.com/goplus/hpkg/internal/env"
	"github.com/goplus/hpkg/internal/layout"
	"github.com/goplus/hpkg/internal/pkgid"
	"github.com/goplus/hpkg/mod/module"
)

// Options configures a Builder.
type Options struct {
	Toolchain Toolchain

	// WorkspaceDir holds build and package trees. Defaults to env.WorkDir().
	WorkspaceDir string

	// RunTests executes the test suite when build_tests is on.
	RunTests bool

	// Force rebuilds even when the identity cache has the package.
	Force bool

	// ID overrides the invocation namespace of each layout.
	ID func() string
}

// Builder builds recipes into packages below a workspace.
type Builder struct {
	tc           Toolchain
	workspaceDir string
	runTests     bool
	force        bool
	resolver     *layout.Resolver
}

// Target is one recipe to build from a source tree.
type Target struct {
	Recipe    formula.Recipe
	Overrides map[string]any
	Platform  formula.Platform
	SourceDir string
}

// Plan is everything derived from a Target before touching the disk.
type Plan struct {
	Module   module.Version
	Options  formula.Options
	Params   formula.ParamSet
	Exports  []string
	Digest   pkgid.Digest
	Identity pkgid.Identity
}

// Result describes the outcome of Builder.Build.
type Result struct {
	Plan

	Layout     layout.Layout
	State      State
	PackageDir string // empty when install is off
	Cached     bool   // served from the identity cache
}

// NewBuilder returns a Builder for opts.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Toolchain == nil {
		return nil, fmt.Errorf("build: no toolchain")
	}
	workspaceDir := opts.WorkspaceDir
	if workspaceDir == "" {
		dir, err := env.WorkDir()
		if err != nil {
			return nil, err
		}
		workspaceDir = dir
	}
	return &Builder{
		tc:           opts.Toolchain,
		workspaceDir: workspaceDir,
		runTests:     opts.RunTests,
		force:        opts.Force,
		resolver:     &layout.Resolver{Workspace: workspaceDir, ID: opts.ID},
	}, nil
}

// Prepare validates t and computes its parameters and identity. Option
// errors are reported before any file is read.
func Prepare(t Target) (*Plan, error) {
	opts, err := formula.Resolve(t.Overrides)
	if err != nil {
		return nil, err
	}
	params := formula.Translate(t.Recipe.ParamPrefix(), opts, t.Platform)

	exports := t.Recipe.ExportPatterns()
	digest, err := pkgid.DigestSources(os.DirFS(t.SourceDir), exports)
	if err != nil {
		return nil, fmt.Errorf("digesting sources of %s: %w", t.Recipe.Name, err)
	}
	id, err := pkgid.Compute(opts, t.Platform, digest)
	if err != nil {
		return nil, fmt.Errorf("%s in %s: %w", t.Recipe.Name, t.SourceDir, err)
	}
	return &Plan{
		Module:   module.Version{Path: t.Recipe.Name, Version: t.Recipe.Version},
		Options:  opts,
		Params:   params,
		Exports:  exports,
		Digest:   digest,
		Identity: id,
	}, nil
}

// Build runs configure, build and install for t in a fresh layout.
//
// A package whose identity is already cached is reused when no optional
// target is requested, since building it again would ship the same bytes.
func (b *Builder) Build(ctx context.Context, t Target) (*Result, error) {
	plan, err := Prepare(t)
	if err != nil {
		return nil, err
	}
	mod := plan.Module

	if !b.force && plan.Options.Install && !plan.Options.Gated() {
		dir, ok, err := b.lookupCache(mod, plan.Identity)
		if err != nil {
			return nil, fmt.Errorf("loading cache of %s: %w", mod, err)
		}
		if ok {
			log.Infof("%s: package %s is cached at %s", mod, plan.Identity, dir)
			return &Result{Plan: *plan, State: Done, PackageDir: dir, Cached: true}, nil
		}
	}

	l, err := b.resolver.Resolve(mod.Path, mod.Version, t.SourceDir)
	if err != nil {
		return nil, err
	}
	log.Debugf("%s: source %s, build %s, package %s", mod, l.SourceRoot, l.BuildRoot, l.PackageRoot)

	d := NewDriver(b.tc, Config{
		Options:  plan.Options,
		Exports:  plan.Exports,
		RunTests: b.runTests,
	})
	result := &Result{Plan: *plan, Layout: l}
	if err := d.Run(ctx, l, plan.Params); err != nil {
		result.State = d.State()
		return result, fmt.Errorf("failed to build %s: %w", mod, err)
	}
	result.State = d.State()

	if !plan.Options.Install {
		return result, nil
	}
	result.PackageDir = l.PackageRoot

	err = b.recordCache(mod, &cacheEntry{
		Identity:   plan.Identity,
		PackageDir: l.PackageRoot,
		Platform:   t.Platform.String(),
		BuildTime:  time.Now(),
	})
	if err != nil {
		return result, fmt.Errorf("saving cache of %s: %w", mod, err)
	}
	log.Infof("%s: package %s installed to %s", mod, plan.Identity, l.PackageRoot)
	return result, nil
}
