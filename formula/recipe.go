package formula

import (
	"strings"
)

// Recipe is the static description of a header-only package.
type Recipe struct {
	Name        string   `yaml:"name" json:"name"`
	Version     string   `yaml:"version" json:"version"`
	License     string   `yaml:"license" json:"license"`
	Author      string   `yaml:"author" json:"author"`
	URL         string   `yaml:"url" json:"url"`
	Description string   `yaml:"description" json:"description"`
	Topics      []string `yaml:"topics" json:"topics"`

	// Exports are the source-root relative patterns shipped in the package.
	// "dir/*" matches everything below dir; other patterns use path.Match.
	Exports []string `yaml:"exports" json:"exports"`

	// Prefix is prepended to every option-derived build parameter. Derived
	// from Name when empty.
	Prefix string `yaml:"prefix" json:"prefix"`
}

// DefaultExports are the files a header-only CMake project ships.
var DefaultExports = []string{"include/*", "cmake/*", "CMakeLists.txt"}

// DefaultRecipe returns the json_struct recipe.
func DefaultRecipe() Recipe {
	return Recipe{
		Name:        "json_struct",
		Version:     "1.0.0",
		License:     "MIT",
		Author:      "Jørgen Lind <jorgen.lind@gmail.com>",
		URL:         "https://github.com/jorgen/json_struct",
		Description: "json_struct is a single header only C++ library for parsing JSON directly to C++ structs and vice versa",
		Topics:      []string{"serialization", "deserialization", "reflection", "json"},
		Exports:     DefaultExports,
	}
}

// ParamPrefix returns the build parameter prefix, e.g. "JSON_STRUCT".
func (r Recipe) ParamPrefix() string {
	if r.Prefix != "" {
		return r.Prefix
	}
	return macroName(r.Name)
}

// ExportPatterns returns r.Exports, or DefaultExports when none are set.
func (r Recipe) ExportPatterns() []string {
	if len(r.Exports) == 0 {
		return DefaultExports
	}
	return r.Exports
}

// macroName upper-cases s and replaces anything outside [A-Z0-9] with '_'.
func macroName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
}
