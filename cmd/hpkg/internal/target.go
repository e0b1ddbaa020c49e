package internal

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/goplus/hpkg/formula"
	"github.com/goplus/hpkg/internal/build"
	"github.com/goplus/hpkg/internal/config"
)

// targetFlags select the recipe, options and platform of a command.
type targetFlags struct {
	options  []string
	platform formula.Platform
}

func (f *targetFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVarP(&f.options, "option", "O", nil, "Override an option (name=true|false), repeatable")
	fs.StringVar(&f.platform.OS, "os", "", "Target OS (default: host)")
	fs.StringVar(&f.platform.Arch, "arch", "", "Target architecture (default: host)")
	fs.StringVar(&f.platform.Compiler, "compiler", "", "Compiler name")
	fs.StringVar(&f.platform.CompilerVersion, "compiler-version", "", "Compiler version")
	fs.StringVar(&f.platform.BuildType, "build-type", "", "Build type (default: Release)")
}

// loadTarget reads the recipe of the source dir in args and applies the
// command line on top of it.
func loadTarget(args []string, f *targetFlags) (build.Target, *config.File, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return build.Target{}, nil, err
	}

	var file *config.File
	if configPath != "" {
		file, err = config.Load(configPath)
	} else {
		file, err = config.LoadDir(dir)
	}
	if err != nil {
		return build.Target{}, nil, err
	}

	overrides := make(map[string]any, len(file.Options)+len(f.options))
	for k, v := range file.Options {
		overrides[k] = v
	}
	for _, arg := range f.options {
		name, value, err := parseOptionArg(arg)
		if err != nil {
			return build.Target{}, nil, err
		}
		overrides[name] = value
	}

	return build.Target{
		Recipe:    file.Recipe,
		Overrides: overrides,
		Platform:  f.platform.Merge(file.Platform()),
		SourceDir: dir,
	}, file, nil
}

// parseOptionArg parses an option argument in the form "name=value". Values
// that are not booleans are kept as strings and rejected by option
// resolution.
func parseOptionArg(arg string) (name string, value any, err error) {
	name, raw, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid option %q: want name=true|false", arg)
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return name, b, nil
	}
	return name, raw, nil
}
