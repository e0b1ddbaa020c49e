package formula

import (
	"sort"
)

// -----------------------------------------------------------------------------

// Option is a single named boolean switch of a recipe.
type Option struct {
	Name    string
	Value   bool
	Default bool
}

// Options is the fixed option set of a header-only recipe. Every field is
// a build toggle; there is no free-form option bag.
type Options struct {
	BuildBenchmarks bool // compile benchmark sources
	BuildExamples   bool // compile example sources
	BuildTests      bool // compile the test suite
	DisablePCH      bool // turn off precompiled headers for the above
	Install         bool // run the install phase at all
}

// Decl declares one option: its name, default and the field it controls.
type Decl struct {
	Name    string
	Default bool
	Usage   string

	// Gating reports whether the option gates compilation of an optional
	// target (tests, examples, benchmarks).
	Gating bool

	field func(*Options) *bool
}

// Decls lists the options in declaration order. Parameter sets, listings
// and identity inputs all follow this order.
var Decls = []Decl{
	{
		Name:   "build_benchmarks",
		Usage:  "compile benchmark sources in addition to headers",
		Gating: true,
		field:  func(o *Options) *bool { return &o.BuildBenchmarks },
	},
	{
		Name:   "build_examples",
		Usage:  "compile example sources",
		Gating: true,
		field:  func(o *Options) *bool { return &o.BuildExamples },
	},
	{
		Name:   "build_tests",
		Usage:  "compile the test suite",
		Gating: true,
		field:  func(o *Options) *bool { return &o.BuildTests },
	},
	{
		Name:  "disable_pch",
		Usage: "disable precompiled-header acceleration",
		field: func(o *Options) *bool { return &o.DisablePCH },
	},
	{
		Name:    "install",
		Default: true,
		Usage:   "run the install phase",
		field:   func(o *Options) *bool { return &o.Install },
	},
}

// Value returns the value of the option declared by d in opts.
func (d Decl) Value(opts Options) bool {
	return *d.field(&opts)
}

func lookupDecl(name string) (Decl, bool) {
	for _, d := range Decls {
		if d.Name == name {
			return d, true
		}
	}
	return Decl{}, false
}

// DefaultOptions returns the option set with every default applied.
func DefaultOptions() Options {
	var opts Options
	for _, d := range Decls {
		*d.field(&opts) = d.Default
	}
	return opts
}

// Resolve applies overrides on top of the defaults.
//
// All names are validated before any value, so an unknown name is reported
// even if another override has a bad value. Names are visited in sorted
// order to keep the reported error stable.
func Resolve(overrides map[string]any) (Options, error) {
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := lookupDecl(name); !ok {
			return Options{}, &UnknownOptionError{Name: name}
		}
	}

	opts := DefaultOptions()
	for _, name := range names {
		v, ok := overrides[name].(bool)
		if !ok {
			return Options{}, &OptionTypeError{Name: name, Value: overrides[name]}
		}
		d, _ := lookupDecl(name)
		*d.field(&opts) = v
	}
	return opts, nil
}

// List returns the options in declaration order.
func (o Options) List() []Option {
	list := make([]Option, 0, len(Decls))
	for _, d := range Decls {
		list = append(list, Option{Name: d.Name, Value: d.Value(o), Default: d.Default})
	}
	return list
}

// Gated reports whether any option that gates an optional target is on.
func (o Options) Gated() bool {
	for _, d := range Decls {
		if d.Gating && d.Value(o) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
