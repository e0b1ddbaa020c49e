// Package config loads recipe files.
//
// A recipe file is YAML (hpkg.yaml, hpkg.yml) or JSON with comments and
// trailing commas (hpkg.json, hpkg.jsonc). A directory without one builds
// the default recipe.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/goplus/hpkg/formula"
)

// Names are the recipe file names looked up by Find, in order.
var Names = []string{"hpkg.yaml", "hpkg.yml", "hpkg.json", "hpkg.jsonc"}

// ErrNotFound is returned by Find when a directory has no recipe file.
var ErrNotFound = errors.New("no recipe file")

// File is the content of a recipe file.
type File struct {
	formula.Recipe `yaml:",inline"`

	// Options overrides option defaults. Values must be booleans.
	Options map[string]any `yaml:"options" json:"options"`

	// Settings fills in the host platform.
	Settings formula.Platform `yaml:"settings" json:"settings"`

	RunTests      bool   `yaml:"run_tests" json:"run_tests"`
	Generator     string `yaml:"generator" json:"generator"`
	ToolchainFile string `yaml:"toolchain_file" json:"toolchain_file"`
}

// Default returns the file used when a directory has no recipe file.
func Default() *File {
	return &File{Recipe: formula.DefaultRecipe()}
}

// Platform returns the settings with empty fields taken from the host.
func (f *File) Platform() formula.Platform {
	return f.Settings.Merge(formula.HostPlatform())
}

// Find returns the path of the recipe file in dir.
func Find(dir string) (string, error) {
	for _, name := range Names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNotFound, dir)
}

// Load reads the recipe file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// LoadDir loads the recipe file of dir, or returns Default when there is
// none.
func LoadDir(dir string) (*File, error) {
	path, err := Find(dir)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Parse decodes data in the format named by ext (".yaml", ".yml", ".json"
// or ".jsonc"). A file that names no recipe inherits the default one.
func Parse(data []byte, ext string) (*File, error) {
	var f File
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parsing recipe: %w", err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &f); err != nil {
			return nil, fmt.Errorf("parsing recipe: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported recipe format %q", ext)
	}
	if f.Name == "" {
		f.fillDefaults()
	}
	return &f, nil
}

func (f *File) fillDefaults() {
	def := formula.DefaultRecipe()
	r := &f.Recipe
	r.Name = def.Name
	pick := func(v *string, d string) {
		if *v == "" {
			*v = d
		}
	}
	pick(&r.Version, def.Version)
	pick(&r.License, def.License)
	pick(&r.Author, def.Author)
	pick(&r.URL, def.URL)
	pick(&r.Description, def.Description)
	if len(r.Topics) == 0 {
		r.Topics = def.Topics
	}
	if len(r.Exports) == 0 {
		r.Exports = def.Exports
	}
}
