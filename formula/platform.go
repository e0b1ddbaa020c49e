package formula

import (
	"runtime"
	"sort"
)

// Platform describes the environment a build runs in. The values are opaque
// to hpkg: they are handed to the toolchain untouched.
type Platform struct {
	OS              string `yaml:"os" json:"os"`
	Compiler        string `yaml:"compiler" json:"compiler"`
	CompilerVersion string `yaml:"compiler_version" json:"compiler_version"`
	BuildType       string `yaml:"build_type" json:"build_type"`
	Arch            string `yaml:"arch" json:"arch"`
}

// Setting names, as used for matrix axes and identity policy.
const (
	SettingOS              = "os"
	SettingCompiler        = "compiler"
	SettingCompilerVersion = "compiler_version"
	SettingBuildType       = "build_type"
	SettingArch            = "arch"
)

// HostPlatform returns the platform of the running process with a Release
// build type. The compiler is left for the toolchain to detect.
func HostPlatform() Platform {
	return Platform{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		BuildType: "Release",
	}
}

// Merge returns p with every empty field taken from base.
func (p Platform) Merge(base Platform) Platform {
	pick := func(v, def string) string {
		if v != "" {
			return v
		}
		return def
	}
	return Platform{
		OS:              pick(p.OS, base.OS),
		Compiler:        pick(p.Compiler, base.Compiler),
		CompilerVersion: pick(p.CompilerVersion, base.CompilerVersion),
		BuildType:       pick(p.BuildType, base.BuildType),
		Arch:            pick(p.Arch, base.Arch),
	}
}

// Settings returns the non-empty fields keyed by setting name.
func (p Platform) Settings() map[string]string {
	settings := make(map[string]string, 5)
	for k, v := range map[string]string{
		SettingOS:              p.OS,
		SettingCompiler:        p.Compiler,
		SettingCompilerVersion: p.CompilerVersion,
		SettingBuildType:       p.BuildType,
		SettingArch:            p.Arch,
	} {
		if v != "" {
			settings[k] = v
		}
	}
	return settings
}

// Matrix returns the single-point matrix this platform occupies.
func (p Platform) Matrix() Matrix {
	m := Matrix{Require: map[string][]string{}}
	for k, v := range p.Settings() {
		m.Require[k] = []string{v}
	}
	return m
}

// String renders the platform as its matrix combination, e.g.
// "amd64-Release-linux".
func (p Platform) String() string {
	combos := p.Matrix().Combinations()
	if len(combos) == 0 {
		return ""
	}
	return combos[0]
}

// -----------------------------------------------------------------------------

// Matrix is the space of build variants a consumer can request: settings
// axes under Require, option axes under Options.
type Matrix struct {
	Require map[string][]string
	Options map[string][]string
}

// OptionAxes returns every declared option as an on/off axis.
func OptionAxes() map[string][]string {
	axes := make(map[string][]string, len(Decls))
	for _, d := range Decls {
		axes[d.Name] = []string{"true", "false"}
	}
	return axes
}

// Combinations returns the cartesian product of the matrix. Keys are sorted,
// values within a side are joined with "-", and the Require side is joined
// to the Options side with "|".
func (m Matrix) Combinations() []string {
	cartesian := func(kvs map[string][]string) []string {
		if len(kvs) == 0 {
			return nil
		}
		keys := make([]string, 0, len(kvs))
		for k := range kvs {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		result := append([]string(nil), kvs[keys[0]]...)
		for _, k := range keys[1:] {
			next := make([]string, 0, len(result)*len(kvs[k]))
			for _, prev := range result {
				for _, v := range kvs[k] {
					next = append(next, prev+"-"+v)
				}
			}
			result = next
		}
		return result
	}

	requireCombos := cartesian(m.Require)
	optionsCombos := cartesian(m.Options)
	if len(requireCombos) == 0 {
		return optionsCombos
	}
	if len(optionsCombos) == 0 {
		return requireCombos
	}

	result := make([]string, 0, len(requireCombos)*len(optionsCombos))
	for _, req := range requireCombos {
		for _, opt := range optionsCombos {
			result = append(result, req+"|"+opt)
		}
	}
	return result
}

// CombinationCount returns len(m.Combinations()) without building them.
func (m Matrix) CombinationCount() int {
	count := func(kvs map[string][]string) int {
		if len(kvs) == 0 {
			return 0
		}
		n := 1
		for _, v := range kvs {
			n *= len(v)
		}
		return n
	}

	requireCount := count(m.Require)
	optionsCount := count(m.Options)
	if requireCount == 0 {
		return optionsCount
	}
	if optionsCount == 0 {
		return requireCount
	}
	return requireCount * optionsCount
}
