// Package cmake wraps the cmake configure/build/install workflow.
package cmake

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/qiniu/x/log"

	"github.com/goplus/hpkg/formula"
	"github.com/goplus/hpkg/internal/layout"
)

type defineValue struct {
	value    string
	typeName string // empty for an untyped definition
}

// CMake drives CMake-based builds of a layout. It implements the toolchain
// interface of internal/build.
type CMake struct {
	generator string
	toolchain string
	defines   map[string]defineValue
	env       []string

	stdout io.Writer
	stderr io.Writer
}

// New returns a ready-to-use CMake writing tool output to the process
// stdout and stderr.
func New() *CMake {
	return &CMake{
		defines: make(map[string]defineValue),
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// Generator sets the CMake generator (e.g. "Ninja", "Unix Makefiles").
func (c *CMake) Generator(name string) { c.generator = name }

// Toolchain sets CMAKE_TOOLCHAIN_FILE.
func (c *CMake) Toolchain(path string) { c.toolchain = path }

// Output redirects the output of every cmake and ctest process.
func (c *CMake) Output(stdout, stderr io.Writer) {
	c.stdout, c.stderr = stdout, stderr
}

// Setenv adds key=value to the environment of every process.
func (c *CMake) Setenv(key, value string) {
	c.env = append(c.env, key+"="+value)
}

// Define adds a -D<key>:STRING=<value> definition.
func (c *CMake) Define(key, value string) {
	c.defines[key] = defineValue{value: value, typeName: "STRING"}
}

// DefineBool adds a -D<key>:BOOL=ON/OFF definition.
func (c *CMake) DefineBool(key string, value bool) {
	c.defines[key] = boolDefine(value)
}

func boolDefine(value bool) defineValue {
	v := "OFF"
	if value {
		v = "ON"
	}
	return defineValue{value: v, typeName: "BOOL"}
}

// Configure runs "cmake -S <source> -B <build>" with the parameters of p.
func (c *CMake) Configure(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	return c.run(ctx, "cmake", c.configureArgs(l, p))
}

// Build runs "cmake --build <build>".
func (c *CMake) Build(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	return c.run(ctx, "cmake", buildArgs(l, p))
}

// Install runs "cmake --install <build> --prefix <package>".
func (c *CMake) Install(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	return c.run(ctx, "cmake", installArgs(l, p))
}

// Test runs the test suite registered with CTest.
func (c *CMake) Test(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	return c.run(ctx, "ctest", testArgs(l, p))
}

func (c *CMake) configureArgs(l layout.Layout, p formula.ParamSet) []string {
	args := []string{"-S", l.SourceRoot, "-B", l.BuildRoot}
	if c.generator != "" {
		args = append(args, "-G", c.generator)
	}

	defines := make(map[string]defineValue, len(c.defines)+len(p.Options)+3)
	for k, v := range c.defines {
		defines[k] = v
	}
	for _, param := range p.Options {
		if param.Passthrough {
			v := "FALSE"
			if param.Value {
				v = "TRUE"
			}
			defines[param.Name] = defineValue{value: v}
		} else {
			defines[param.Name] = boolDefine(param.Value)
		}
	}
	defines["CMAKE_INSTALL_PREFIX"] = defineValue{value: l.PackageRoot, typeName: "PATH"}
	if c.toolchain != "" {
		defines["CMAKE_TOOLCHAIN_FILE"] = defineValue{value: c.toolchain, typeName: "FILEPATH"}
	}
	if bt := p.Platform.BuildType; bt != "" {
		defines["CMAKE_BUILD_TYPE"] = defineValue{value: bt, typeName: "STRING"}
	}
	return append(args, definesArgs(defines)...)
}

func buildArgs(l layout.Layout, p formula.ParamSet) []string {
	args := []string{"--build", l.BuildRoot}
	if bt := p.Platform.BuildType; bt != "" {
		args = append(args, "--config", bt)
	}
	return args
}

func installArgs(l layout.Layout, p formula.ParamSet) []string {
	args := []string{"--install", l.BuildRoot, "--prefix", l.PackageRoot}
	if bt := p.Platform.BuildType; bt != "" {
		args = append(args, "--config", bt)
	}
	return args
}

func testArgs(l layout.Layout, p formula.ParamSet) []string {
	args := []string{"--test-dir", l.BuildRoot, "--output-on-failure"}
	if bt := p.Platform.BuildType; bt != "" {
		args = append(args, "-C", bt)
	}
	return args
}

func (c *CMake) run(ctx context.Context, name string, args []string) error {
	log.Debugf("run: %s %s", name, strings.Join(args, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	if len(c.env) > 0 {
		cmd.Env = append(os.Environ(), c.env...)
	}
	return cmd.Run()
}

func definesArgs(defines map[string]defineValue) []string {
	if len(defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]string, 0, len(keys))
	for _, k := range keys {
		d := defines[k]
		if d.typeName == "" {
			args = append(args, "-D"+k+"="+d.value)
			continue
		}
		args = append(args, "-D"+k+":"+d.typeName+"="+d.value)
	}
	return args
}
