package build

import (
	"errors"
	"fmt"
)

var (
	// ErrInstall is matched by *InstallError.
	ErrInstall = errors.New("install failed")

	// ErrInvalidState is matched by *StateError.
	ErrInvalidState = errors.New("invalid driver state")

	// ErrParamMismatch is returned when a driver is configured with
	// parameters that disagree with its options.
	ErrParamMismatch = errors.New("parameters disagree with driver options")

	// ErrNoTester is returned when test execution is requested from a
	// toolchain that cannot run tests.
	ErrNoTester = errors.New("toolchain cannot run tests")
)

// Phase names used in errors and logs.
const (
	PhaseConfigure = "configure"
	PhaseBuild     = "build"
	PhaseTest      = "test"
	PhaseInstall   = "install"
)

// PhaseError wraps a toolchain failure with the phase it happened in. The
// toolchain error is returned unchanged by Unwrap.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// InstallError reports a package root that cannot be written.
type InstallError struct {
	Dir string
	Err error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("%s: package root %s: %v", ErrInstall, e.Dir, e.Err)
}

func (e *InstallError) Unwrap() []error { return []error{ErrInstall, e.Err} }

// StateError reports a phase invoked in the wrong state.
type StateError struct {
	Phase string
	State State
	Msg   string
}

func (e *StateError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s in state %s: %s", e.Phase, ErrInvalidState, e.State, e.Msg)
	}
	return fmt.Sprintf("%s: %s %s", e.Phase, ErrInvalidState, e.State)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }
