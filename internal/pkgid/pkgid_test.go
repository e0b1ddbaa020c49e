package pkgid

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/goplus/hpkg/formula"
)

func sourceTree() fstest.MapFS {
	return fstest.MapFS{
		"CMakeLists.txt":              {Data: []byte("project(json_struct)\n")},
		"include/json_struct.h":       {Data: []byte("#pragma once\n")},
		"include/json_struct/tools.h": {Data: []byte("#pragma once\nint x;\n")},
		"cmake/Config.cmake.in":       {Data: []byte("@PACKAGE_INIT@\n")},
		"tests/main.cpp":              {Data: []byte("int main() {}\n")},
		"README.md":                   {Data: []byte("# json_struct\n")},
	}
}

func mustDigest(t *testing.T, fsys fstest.MapFS) Digest {
	t.Helper()
	d, err := DigestSources(fsys, formula.DefaultExports)
	if err != nil {
		t.Fatalf("DigestSources: %v", err)
	}
	return d
}

func TestComputeStableAcrossInputs(t *testing.T) {
	d := mustDigest(t, sourceTree())

	platforms := []formula.Platform{
		{},
		{OS: "Linux", Compiler: "gcc", CompilerVersion: "13", BuildType: "Release", Arch: "x86_64"},
		{OS: "Windows", Compiler: "msvc", CompilerVersion: "193", BuildType: "Debug", Arch: "armv8"},
		{OS: "Macos", Compiler: "apple-clang", CompilerVersion: "15", BuildType: "RelWithDebInfo", Arch: "armv8"},
	}
	var want Identity
	for i, p := range platforms {
		for mask := 0; mask < 1<<len(formula.Decls); mask++ {
			overrides := map[string]any{}
			for j, decl := range formula.Decls {
				overrides[decl.Name] = mask&(1<<j) != 0
			}
			opts, err := formula.Resolve(overrides)
			if err != nil {
				t.Fatal(err)
			}
			id, err := Compute(opts, p, d)
			if err != nil {
				t.Fatalf("Compute: %v", err)
			}
			if i == 0 && mask == 0 {
				want = id
				continue
			}
			if id != want {
				t.Fatalf("Compute(%+v, %+v) = %s, want %s", opts, p, id, want)
			}
		}
	}
}

func TestComputeSensitiveToContent(t *testing.T) {
	a := sourceTree()
	b := sourceTree()
	b["include/json_struct.h"] = &fstest.MapFile{Data: []byte("#pragma once\n// changed\n")}

	da, db := mustDigest(t, a), mustDigest(t, b)
	if da == db {
		t.Fatal("digests equal for different content")
	}
	ida, err := Compute(formula.DefaultOptions(), formula.Platform{}, da)
	if err != nil {
		t.Fatal(err)
	}
	idb, err := Compute(formula.DefaultOptions(), formula.Platform{}, db)
	if err != nil {
		t.Fatal(err)
	}
	if ida == idb {
		t.Errorf("identities equal for different digests: %s", ida)
	}
}

func TestComputeMissingSource(t *testing.T) {
	_, err := Compute(formula.DefaultOptions(), formula.HostPlatform(), Digest{})
	if !errors.Is(err, ErrMissingSource) {
		t.Fatalf("Compute(zero digest) error = %v, want ErrMissingSource", err)
	}
}

func TestDigestSources(t *testing.T) {
	tree := sourceTree()

	t.Run("unexported files are ignored", func(t *testing.T) {
		other := sourceTree()
		other["tests/main.cpp"] = &fstest.MapFile{Data: []byte("int main() { return 1; }\n")}
		other["README.md"] = &fstest.MapFile{Data: []byte("changed\n")}
		if mustDigest(t, tree) != mustDigest(t, other) {
			t.Error("digest changed when only unexported files changed")
		}
	})

	t.Run("renames change the digest", func(t *testing.T) {
		other := sourceTree()
		other["include/json_struct2.h"] = other["include/json_struct.h"]
		delete(other, "include/json_struct.h")
		if mustDigest(t, tree) == mustDigest(t, other) {
			t.Error("digest unchanged after rename")
		}
	})

	t.Run("nothing exported", func(t *testing.T) {
		d := mustDigest(t, fstest.MapFS{"src/a.cpp": {Data: []byte("x")}})
		if !d.IsZero() {
			t.Errorf("digest = %s, want zero", d)
		}
	})
}

func TestExportedFiles(t *testing.T) {
	files, err := ExportedFiles(sourceTree(), formula.DefaultExports)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"CMakeLists.txt",
		"cmake/Config.cmake.in",
		"include/json_struct.h",
		"include/json_struct/tools.h",
	}
	if len(files) != len(want) {
		t.Fatalf("ExportedFiles() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("ExportedFiles()[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestExportedFilesSymlinks(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("CMakeLists.txt", "project(json_struct)\n")
	write("src/json_struct.h", "#pragma once\n")
	if err := os.MkdirAll(filepath.Join(dir, "include"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "src", "json_struct.h"), filepath.Join(dir, "include", "json_struct.h")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	fsys := os.DirFS(dir)
	files, err := ExportedFiles(fsys, formula.DefaultExports)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || files[1] != "include/json_struct.h" {
		t.Errorf("ExportedFiles() = %v, want the symlinked header included", files)
	}

	linked, err := DigestSources(fsys, formula.DefaultExports)
	if err != nil {
		t.Fatal(err)
	}
	plain := mustDigest(t, fstest.MapFS{
		"CMakeLists.txt":        {Data: []byte("project(json_struct)\n")},
		"include/json_struct.h": {Data: []byte("#pragma once\n")},
	})
	if linked != plain {
		t.Errorf("digest through symlink = %s, want %s", linked, plain)
	}

	if err := os.Symlink(filepath.Join(dir, "src"), filepath.Join(dir, "include", "sub")); err != nil {
		t.Fatal(err)
	}
	if _, err := ExportedFiles(fsys, formula.DefaultExports); err == nil {
		t.Error("ExportedFiles accepted a symlinked directory")
	}
}

func TestMatchExport(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"include/a.h", true},
		{"include/sub/b.h", true},
		{"includes/a.h", false},
		{"CMakeLists.txt", true},
		{"src/CMakeLists.txt", false},
		{"cmake/x.cmake", true},
	}
	for _, tt := range tests {
		if got := MatchExport(formula.DefaultExports, tt.name); got != tt.want {
			t.Errorf("MatchExport(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if !MatchExport([]string{"*.hpp"}, "json.hpp") {
		t.Error(`MatchExport("*.hpp", "json.hpp") = false`)
	}
}

func TestVariantCount(t *testing.T) {
	m := formula.Matrix{
		Require: map[string][]string{
			"os":         {"linux", "darwin", "windows"},
			"arch":       {"amd64", "arm64"},
			"build_type": {"Debug", "Release"},
			"compiler":   {"gcc", "clang"},
		},
		Options: formula.OptionAxes(),
	}
	if n := m.CombinationCount(); n != 24*32 {
		t.Fatalf("CombinationCount() = %d", n)
	}
	if got := VariantCount(m); got != 1 {
		t.Errorf("VariantCount() = %d, want 1", got)
	}

	m.Options["shared"] = []string{"true", "false"}
	if got := VariantCount(m); got != 2 {
		t.Errorf("VariantCount() with unhashed option = %d, want 2", got)
	}
}

func TestParseIdentity(t *testing.T) {
	id, err := Compute(formula.DefaultOptions(), formula.Platform{}, mustDigest(t, sourceTree()))
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := ParseIdentity(id.String())
	if err != nil {
		t.Fatalf("ParseIdentity: %v", err)
	}
	if parsed != id {
		t.Errorf("ParseIdentity(%s) = %s", id, parsed)
	}

	for _, bad := range []string{"", "zz", "abcd"} {
		if _, err := ParseIdentity(bad); err == nil {
			t.Errorf("ParseIdentity(%q) succeeded, want error", bad)
		}
	}
}
