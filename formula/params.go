package formula

import (
	"bytes"
	"fmt"
	"strings"
)

// Param is a single build parameter derived from an option.
type Param struct {
	Name  string
	Value bool

	// Passthrough marks a value that the toolchain receives as-is instead of
	// as a typed boolean toggle.
	Passthrough bool
}

// ParamSet is what the toolchain is configured with.
type ParamSet struct {
	// Options holds one entry per declared option, in declaration order.
	Options []Param

	// Platform is forwarded to the toolchain without interpretation.
	Platform Platform
}

// ParamName returns the build parameter name of option for prefix, e.g.
// "JSON_STRUCT_OPT_BUILD_TESTS".
func ParamName(prefix, option string) string {
	name := "OPT_" + macroName(option)
	if prefix == "" {
		return name
	}
	return prefix + "_" + name
}

// Translate maps opts and p to the parameter set handed to the toolchain.
// It does no I/O and is deterministic.
func Translate(prefix string, opts Options, p Platform) ParamSet {
	params := make([]Param, 0, len(Decls))
	for _, d := range Decls {
		params = append(params, Param{
			Name:  ParamName(prefix, d.Name),
			Value: d.Value(opts),
			// install toggles a CMake variable, not a build step of ours.
			Passthrough: d.Name == "install",
		})
	}
	return ParamSet{Options: params, Platform: p}
}

// Lookup returns the option parameter called name.
func (s ParamSet) Lookup(name string) (Param, bool) {
	for _, p := range s.Options {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Options recovers the option values s was translated from.
func (s ParamSet) Options() (Options, error) {
	var opts Options
	if len(s.Options) != len(Decls) {
		return opts, fmt.Errorf("parameter set has %d options, want %d", len(s.Options), len(Decls))
	}
	for i, d := range Decls {
		p := s.Options[i]
		if !strings.HasSuffix(p.Name, ParamName("", d.Name)) {
			return opts, fmt.Errorf("parameter %q is not option %q", p.Name, d.Name)
		}
		*d.field(&opts) = p.Value
	}
	return opts, nil
}

// Encode renders s in a canonical line-oriented form. Equal sets encode to
// equal bytes.
func (s ParamSet) Encode() []byte {
	var buf bytes.Buffer
	for _, p := range s.Options {
		fmt.Fprintf(&buf, "%s=%t\n", p.Name, p.Value)
	}
	fmt.Fprintf(&buf, "settings.%s=%s\n", SettingOS, s.Platform.OS)
	fmt.Fprintf(&buf, "settings.%s=%s\n", SettingCompiler, s.Platform.Compiler)
	fmt.Fprintf(&buf, "settings.%s=%s\n", SettingCompilerVersion, s.Platform.CompilerVersion)
	fmt.Fprintf(&buf, "settings.%s=%s\n", SettingBuildType, s.Platform.BuildType)
	fmt.Fprintf(&buf, "settings.%s=%s\n", SettingArch, s.Platform.Arch)
	return buf.Bytes()
}
