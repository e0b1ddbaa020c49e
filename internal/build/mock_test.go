package build

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goplus/hpkg/formula"
	"github.com/goplus/hpkg/internal/layout"
)

// fakeToolchain records calls and fails the phases listed in failOn.
type fakeToolchain struct {
	calls  []string
	failOn map[string]error
}

func (f *fakeToolchain) step(phase string) error {
	f.calls = append(f.calls, phase)
	return f.failOn[phase]
}

func (f *fakeToolchain) Configure(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	if err := f.step(PhaseConfigure); err != nil {
		return err
	}
	// Stand-in for the files a real generator writes.
	return os.WriteFile(filepath.Join(l.BuildRoot, "CMakeCache.txt"), p.Encode(), 0o644)
}

func (f *fakeToolchain) Build(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	return f.step(PhaseBuild)
}

func (f *fakeToolchain) Install(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	return f.step(PhaseInstall)
}

func (f *fakeToolchain) Test(ctx context.Context, l layout.Layout, p formula.ParamSet) error {
	return f.step(PhaseTest)
}

func (f *fakeToolchain) count(phase string) int {
	n := 0
	for _, c := range f.calls {
		if c == phase {
			n++
		}
	}
	return n
}

// plainToolchain hides the Tester implementation of its fake.
type plainToolchain struct {
	f *fakeToolchain
}

func (p plainToolchain) Configure(ctx context.Context, l layout.Layout, ps formula.ParamSet) error {
	return p.f.Configure(ctx, l, ps)
}

func (p plainToolchain) Build(ctx context.Context, l layout.Layout, ps formula.ParamSet) error {
	return p.f.Build(ctx, l, ps)
}

func (p plainToolchain) Install(ctx context.Context, l layout.Layout, ps formula.ParamSet) error {
	return p.f.Install(ctx, l, ps)
}

var headerTree = map[string]string{
	"CMakeLists.txt":              "cmake_minimum_required(VERSION 3.10)\nproject(json_struct)\n",
	"include/json_struct.h":       "#pragma once\n// json_struct\n",
	"include/json_struct/tools.h": "#pragma once\n",
	"cmake/Config.cmake.in":       "@PACKAGE_INIT@\n",
	"tests/main.cpp":              "int main() { return 0; }\n",
	"examples/simple.cpp":         "int main() { return 0; }\n",
}

// writeTree creates files below dir and returns dir.
func writeTree(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// testLayout returns a layout over a fresh header tree.
func testLayout(t *testing.T) layout.Layout {
	t.Helper()
	src := writeTree(t, t.TempDir(), headerTree)
	r := &layout.Resolver{Workspace: t.TempDir(), ID: func() string { return "test" }}
	l, err := r.Resolve("json_struct", "1.0.0", src)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func testParams(t *testing.T, overrides map[string]any) (formula.Options, formula.ParamSet) {
	t.Helper()
	opts, err := formula.Resolve(overrides)
	if err != nil {
		t.Fatal(err)
	}
	return opts, formula.Translate("JSON_STRUCT", opts, formula.HostPlatform())
}
