// Package pkgid computes the identity under which a package is indexed.
//
// A header-only package ships the same bytes no matter which compiler,
// build type or architecture it was built with, and none of its options
// change the installed headers. The identity therefore depends on the
// exported sources alone; every other input is listed in IgnoredInputs.
package pkgid

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/goplus/hpkg/formula"
)

// ErrMissingSource is returned when an identity is requested for a package
// with nothing to ship.
var ErrMissingSource = errors.New("missing exported sources")

// Kind is recorded in every identity. Adding a compiled component to the
// package means changing Kind and shrinking IgnoredInputs.
const Kind = "header-library"

// IgnoredInputs are the inputs that do not affect the shipped artifact.
// Settings are named "settings.<name>", options "options.<name>".
var IgnoredInputs = map[string]bool{
	"settings." + formula.SettingOS:              true,
	"settings." + formula.SettingCompiler:        true,
	"settings." + formula.SettingCompilerVersion: true,
	"settings." + formula.SettingBuildType:       true,
	"settings." + formula.SettingArch:            true,
	"options.build_benchmarks":                   true,
	"options.build_examples":                     true,
	"options.build_tests":                        true,
	"options.disable_pch":                        true,
	"options.install":                            true,
}

// Digest is the BLAKE3 digest of the exported source files.
type Digest [32]byte

// IsZero reports whether d is the zero digest (nothing exported).
func (d Digest) IsZero() bool { return d == Digest{} }

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Identity is the fingerprint of a package.
type Identity [32]byte

func (id Identity) String() string { return hex.EncodeToString(id[:]) }

// MarshalText implements encoding.TextMarshaler.
func (id Identity) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identity) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentity(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseIdentity parses the hex form returned by Identity.String.
func ParseIdentity(s string) (Identity, error) {
	var id Identity
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("parsing package identity: %w", err)
	}
	if len(decoded) != len(id) {
		return id, fmt.Errorf("package identity is %d bytes, want %d", len(decoded), len(id))
	}
	copy(id[:], decoded)
	return id, nil
}

// identityKey is the BLAKE3 key of the identity domain: the ASCII domain
// name zero-padded to 32 bytes.
var identityKey = [32]byte{
	'h', 'p', 'k', 'g', '.', 'p', 'a', 'c', 'k', 'a', 'g', 'e', '.', 'i', 'd',
}

// encMode is the Core Deterministic CBOR encoder.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("pkgid: CBOR encoder initialization failed: " + err.Error())
	}
}

// identityInput is everything the identity is computed from.
type identityInput struct {
	Kind   string `cbor:"kind"`
	Digest []byte `cbor:"digest"`
}

// Compute returns the identity of a package whose exported sources hash to
// digest. opts and platform are accepted so callers pass the full input
// state, and are dropped per IgnoredInputs.
func Compute(opts formula.Options, platform formula.Platform, digest Digest) (Identity, error) {
	if digest.IsZero() {
		return Identity{}, ErrMissingSource
	}
	if err := checkIgnored(opts, platform); err != nil {
		return Identity{}, err
	}

	data, err := encMode.Marshal(identityInput{Kind: Kind, Digest: digest[:]})
	if err != nil {
		return Identity{}, fmt.Errorf("encoding identity input: %w", err)
	}
	h, err := blake3.NewKeyed(identityKey[:])
	if err != nil {
		return Identity{}, err
	}
	h.Write(data)

	var id Identity
	copy(id[:], h.Sum(nil))
	return id, nil
}

// checkIgnored fails when an input that exists is missing from
// IgnoredInputs, which means it would have to be hashed.
func checkIgnored(opts formula.Options, platform formula.Platform) error {
	for _, o := range opts.List() {
		if !IgnoredInputs["options."+o.Name] {
			return fmt.Errorf("option %q affects the package but is not hashed", o.Name)
		}
	}
	for name := range platform.Settings() {
		if !IgnoredInputs["settings."+name] {
			return fmt.Errorf("setting %q affects the package but is not hashed", name)
		}
	}
	return nil
}

// VariantCount returns how many distinct packages m expands to once the
// ignored inputs are collapsed. It is 1 for any matrix of a header-only
// package.
func VariantCount(m formula.Matrix) int {
	kept := formula.Matrix{
		Require: map[string][]string{},
		Options: map[string][]string{},
	}
	for k, v := range m.Require {
		if !IgnoredInputs["settings."+k] {
			kept.Require[k] = v
		}
	}
	for k, v := range m.Options {
		if !IgnoredInputs["options."+k] {
			kept.Options[k] = v
		}
	}
	if n := kept.CombinationCount(); n > 0 {
		return n
	}
	return 1
}

// DigestSources hashes every file in fsys matched by patterns. Paths are
// visited in lexical order and each file contributes its path, size and
// content. It returns the zero Digest when nothing matches.
func DigestSources(fsys fs.FS, patterns []string) (Digest, error) {
	files, err := ExportedFiles(fsys, patterns)
	if err != nil {
		return Digest{}, err
	}
	if len(files) == 0 {
		return Digest{}, nil
	}

	h := blake3.New()
	var lenBuf [8]byte
	for _, name := range files {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(name)))
		h.Write(lenBuf[:])
		h.Write([]byte(name))

		f, err := fsys.Open(name)
		if err != nil {
			return Digest{}, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return Digest{}, err
		}
		binary.BigEndian.PutUint64(lenBuf[:], uint64(info.Size()))
		h.Write(lenBuf[:])
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return Digest{}, fmt.Errorf("hashing %s: %w", name, err)
		}
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// ExportedFiles returns the files of fsys matched by patterns, sorted by
// path. Symlinks to files are followed; a matched symlink to a directory is
// an error.
func ExportedFiles(fsys fs.FS, patterns []string) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !MatchExport(patterns, name) {
			return nil
		}
		mode := d.Type()
		if mode&fs.ModeSymlink != 0 {
			info, err := fs.Stat(fsys, name)
			if err != nil {
				return fmt.Errorf("exported symlink %s: %w", name, err)
			}
			if info.IsDir() {
				return fmt.Errorf("exported symlink %s points to a directory", name)
			}
			mode = info.Mode().Type()
		}
		if mode.IsRegular() {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// MatchExport reports whether the slash-separated name is matched by any
// pattern. A pattern "dir/*" matches every file below dir; anything else
// is a path.Match pattern.
func MatchExport(patterns []string, name string) bool {
	for _, p := range patterns {
		if dir, ok := strings.CutSuffix(p, "/*"); ok {
			if strings.HasPrefix(name, dir+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(p, name); ok {
			return true
		}
	}
	return false
}
