package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/goplus/hpkg/formula"
)

const yamlRecipe = `
name: tiny_json
version: 2.1.0
license: BSD-3-Clause
prefix: TJ
exports:
  - include/*
  - LICENSE
options:
  build_tests: true
  install: false
settings:
  build_type: Debug
  compiler: clang
run_tests: true
generator: Ninja
`

const jsoncRecipe = `{
	// options only, the recipe itself is the default
	"options": {
		"disable_pch": true, /* trailing comma below */
	},
	"settings": {"os": "Linux", "arch": "x86_64"},
}
`

func TestParseYAML(t *testing.T) {
	f, err := Parse([]byte(yamlRecipe), ".yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Name != "tiny_json" || f.Version != "2.1.0" || f.License != "BSD-3-Clause" {
		t.Errorf("recipe = %+v", f.Recipe)
	}
	if f.ParamPrefix() != "TJ" {
		t.Errorf("ParamPrefix() = %q, want TJ", f.ParamPrefix())
	}
	if len(f.Exports) != 2 || f.Exports[1] != "LICENSE" {
		t.Errorf("Exports = %v", f.Exports)
	}
	if f.Author != "" {
		t.Errorf("named recipe inherited Author %q", f.Author)
	}
	if !f.RunTests || f.Generator != "Ninja" {
		t.Errorf("RunTests = %v, Generator = %q", f.RunTests, f.Generator)
	}

	opts, err := formula.Resolve(f.Options)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !opts.BuildTests || opts.Install {
		t.Errorf("options = %+v", opts)
	}

	p := f.Platform()
	if p.BuildType != "Debug" || p.Compiler != "clang" || p.OS != runtime.GOOS || p.Arch != runtime.GOARCH {
		t.Errorf("Platform() = %+v", p)
	}
}

func TestParseJSONC(t *testing.T) {
	f, err := Parse([]byte(jsoncRecipe), ".jsonc")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	def := formula.DefaultRecipe()
	if f.Name != def.Name || f.Version != def.Version || f.License != def.License {
		t.Errorf("recipe = %+v, want default", f.Recipe)
	}
	if f.ParamPrefix() != "JSON_STRUCT" {
		t.Errorf("ParamPrefix() = %q", f.ParamPrefix())
	}
	if v, ok := f.Options["disable_pch"].(bool); !ok || !v {
		t.Errorf("Options = %v", f.Options)
	}
	if p := f.Platform(); p.OS != "Linux" || p.Arch != "x86_64" {
		t.Errorf("Platform() = %+v", p)
	}
}

func TestParseNonBoolOption(t *testing.T) {
	f, err := Parse([]byte("options:\n  build_tests: \"yes\"\n"), ".yml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := formula.Resolve(f.Options); !errors.Is(err, formula.ErrOptionType) {
		t.Errorf("Resolve error = %v, want ErrOptionType", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		data, ext string
	}{
		{"name: [", ".yaml"},
		{"{", ".json"},
		{"name = 1", ".toml"},
	}
	for _, tt := range tests {
		if _, err := Parse([]byte(tt.data), tt.ext); err == nil {
			t.Errorf("Parse(%q, %q) succeeded", tt.data, tt.ext)
		}
	}
}

func TestFindAndLoad(t *testing.T) {
	dir := t.TempDir()
	if _, err := Find(dir); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find(empty) error = %v, want ErrNotFound", err)
	}
	f, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "json_struct" {
		t.Errorf("LoadDir(empty) = %+v, want default recipe", f.Recipe)
	}

	if err := os.WriteFile(filepath.Join(dir, "hpkg.jsonc"), []byte(jsoncRecipe), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "hpkg.yaml"), []byte(yamlRecipe), 0o644); err != nil {
		t.Fatal(err)
	}
	path, err := Find(dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "hpkg.yaml" {
		t.Errorf("Find() = %s, want hpkg.yaml first", path)
	}
	f, err = LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if f.Name != "tiny_json" {
		t.Errorf("LoadDir() name = %q", f.Name)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) succeeded")
	}
}
