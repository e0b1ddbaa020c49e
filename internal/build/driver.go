package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qiniu/x/log"

	"github.com/goplus/hpkg/formula"
	"github.com/goplus/hpkg/internal/layout"
)

// configureStamp records the parameters a build root was configured with.
const configureStamp = ".hpkg-configure"

// Toolchain runs the external configure, build and install steps. Each call
// blocks until the underlying process exits.
type Toolchain interface {
	Configure(ctx context.Context, l layout.Layout, p formula.ParamSet) error
	Build(ctx context.Context, l layout.Layout, p formula.ParamSet) error
	Install(ctx context.Context, l layout.Layout, p formula.ParamSet) error
}

// Tester is implemented by toolchains that can run the compiled test suite.
type Tester interface {
	Test(ctx context.Context, l layout.Layout, p formula.ParamSet) error
}

// Config controls what a Driver does in each phase.
type Config struct {
	Options formula.Options

	// Exports are the source patterns copied into the package root.
	Exports []string

	// RunTests runs the test suite after building it. Only honored when
	// Options.BuildTests is set.
	RunTests bool
}

// Driver sequences configure, build and install for one layout.
//
//	Idle -> Configuring -> Building -> Installing -> Done
//	                          \-----------------------^
//
// Any phase failure moves the driver to Failed. Nothing is retried or
// rolled back; call Reset and start again.
type Driver struct {
	tc    Toolchain
	conf  Config
	state State

	layout layout.Layout
	params formula.ParamSet
	stamp  []byte
}

// NewDriver returns an Idle driver.
func NewDriver(tc Toolchain, conf Config) *Driver {
	if len(conf.Exports) == 0 {
		conf.Exports = formula.DefaultExports
	}
	return &Driver{tc: tc, conf: conf}
}

// State returns the current state.
func (d *Driver) State() State {
	return d.state
}

// Reset returns the driver to Idle.
func (d *Driver) Reset() {
	log.Debugf("driver: %s -> %s", d.state, Idle)
	*d = Driver{tc: d.tc, conf: d.conf}
}

func (d *Driver) transition(to State) {
	if !allowed(d.state, to) {
		panic(fmt.Sprintf("build: illegal transition %s -> %s", d.state, to))
	}
	log.Debugf("driver: %s -> %s", d.state, to)
	d.state = to
}

func (d *Driver) fail(phase string, err error) error {
	d.transition(Failed)
	log.Debugf("driver: %s failed: %v", phase, err)
	return err
}

// Configure prepares the build root with p. Reconfiguring a build root
// with identical parameters does not invoke the toolchain again.
func (d *Driver) Configure(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	opts, err := p.Options()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParamMismatch, err)
	}
	if opts != d.conf.Options {
		return fmt.Errorf("%w: parameters %+v, options %+v", ErrParamMismatch, opts, d.conf.Options)
	}

	stamp := p.Encode()
	switch d.state {
	case Idle:
	case Building:
		if d.layout == l && bytes.Equal(d.stamp, stamp) {
			return nil
		}
		return &StateError{Phase: PhaseConfigure, State: d.state, Msg: "already configured with different parameters"}
	default:
		return &StateError{Phase: PhaseConfigure, State: d.state}
	}

	d.transition(Configuring)
	if err := d.configure(ctx, l, p, stamp); err != nil {
		return d.fail(PhaseConfigure, err)
	}
	d.layout, d.params, d.stamp = l, p, stamp
	d.transition(Building)
	return nil
}

func (d *Driver) configure(ctx context.Context, l layout.Layout, p formula.ParamSet, stamp []byte) error {
	stampFile := filepath.Join(l.BuildRoot, configureStamp)
	if data, err := os.ReadFile(stampFile); err == nil && bytes.Equal(data, stamp) {
		log.Debugf("configure: %s is up to date", l.BuildRoot)
		return nil
	}
	if err := os.MkdirAll(l.BuildRoot, 0o755); err != nil {
		return &PhaseError{Phase: PhaseConfigure, Err: err}
	}
	// A stale stamp must not survive a failed reconfigure.
	if err := os.Remove(stampFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &PhaseError{Phase: PhaseConfigure, Err: err}
	}
	if err := d.tc.Configure(ctx, l, p); err != nil {
		return &PhaseError{Phase: PhaseConfigure, Err: err}
	}
	if err := os.WriteFile(stampFile, stamp, 0o644); err != nil {
		return &PhaseError{Phase: PhaseConfigure, Err: err}
	}
	return nil
}

// Build compiles the optional targets switched on by the options. With
// none switched on, nothing is compiled.
func (d *Driver) Build(ctx context.Context, l layout.Layout) error {
	if d.state != Building {
		return &StateError{Phase: PhaseBuild, State: d.state}
	}
	if l != d.layout {
		return &StateError{Phase: PhaseBuild, State: d.state, Msg: "layout differs from the configured one"}
	}

	opts := d.conf.Options
	if opts.Gated() {
		if err := d.tc.Build(ctx, l, d.params); err != nil {
			return d.fail(PhaseBuild, &PhaseError{Phase: PhaseBuild, Err: err})
		}
	} else {
		log.Debugf("build: no optional targets enabled, nothing to compile")
	}

	if d.conf.RunTests && opts.BuildTests {
		tester, ok := d.tc.(Tester)
		if !ok {
			return d.fail(PhaseTest, &PhaseError{Phase: PhaseTest, Err: ErrNoTester})
		}
		if err := tester.Test(ctx, l, d.params); err != nil {
			return d.fail(PhaseTest, &PhaseError{Phase: PhaseTest, Err: err})
		}
	}

	if opts.Install {
		d.transition(Installing)
	} else {
		d.transition(Done)
	}
	return nil
}

// Install copies the exported sources into the package root byte for byte
// and then runs the toolchain install step.
func (d *Driver) Install(ctx context.Context, l layout.Layout) error {
	if d.state != Installing {
		return &StateError{Phase: PhaseInstall, State: d.state}
	}
	if l != d.layout {
		return &StateError{Phase: PhaseInstall, State: d.state, Msg: "layout differs from the configured one"}
	}

	if err := preparePackageRoot(l.PackageRoot); err != nil {
		return d.fail(PhaseInstall, err)
	}
	files, err := copyExports(l.SourceRoot, l.PackageRoot, d.conf.Exports)
	if err != nil {
		return d.fail(PhaseInstall, err)
	}
	log.Debugf("install: copied %d exported files to %s", len(files), l.PackageRoot)

	if err := d.tc.Install(ctx, l, d.params); err != nil {
		return d.fail(PhaseInstall, &PhaseError{Phase: PhaseInstall, Err: err})
	}
	d.transition(Done)
	return nil
}

// Run drives every phase from Idle to Done.
func (d *Driver) Run(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	if err := d.Configure(ctx, l, p); err != nil {
		return err
	}
	if err := d.Build(ctx, l); err != nil {
		return err
	}
	if d.state == Installing {
		return d.Install(ctx, l)
	}
	return nil
}
