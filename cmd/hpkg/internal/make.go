package internal

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/goplus/hpkg/internal/archive"
	"github.com/goplus/hpkg/internal/build"
	"github.com/goplus/hpkg/internal/config"
	"github.com/goplus/hpkg/x/cmake"
)

var (
	makeOutput        string
	makeWorkspace     string
	makeRunTests      bool
	makeGenerator     string
	makeToolchainFile string
	makeForce         bool
	makeTarget        targetFlags
)

var makeCmd = &cobra.Command{
	Use:   "make [dir]",
	Short: "Build and package the recipe in dir",
	Long: `Make configures, builds and installs the library in dir (default: the
current directory) and prints the identity of the resulting package.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMake,
}

func init() {
	makeCmd.Flags().StringVarP(&makeOutput, "output", "o", "", "Output path (directory, .zip, .tar.xz, .tar.zst, .tar.gz or .tar.lz4 file)")
	makeCmd.Flags().StringVarP(&makeWorkspace, "workspace", "w", "", "Workspace directory (default: $HPKG_WORKSPACE or the user cache dir)")
	makeCmd.Flags().BoolVar(&makeRunTests, "run-tests", false, "Run the test suite when build_tests is on")
	makeCmd.Flags().StringVarP(&makeGenerator, "generator", "G", "", "CMake generator")
	makeCmd.Flags().StringVar(&makeToolchainFile, "toolchain-file", "", "CMake toolchain file")
	makeCmd.Flags().BoolVarP(&makeForce, "force", "f", false, "Rebuild even if the package is cached")
	makeTarget.register(makeCmd.Flags())
	rootCmd.AddCommand(makeCmd)
}

var (
	_ build.Toolchain = (*cmake.CMake)(nil)
	_ build.Tester    = (*cmake.CMake)(nil)
)

// newToolchain returns the toolchain make builds with.
var newToolchain = func(file *config.File) build.Toolchain {
	c := cmake.New()
	if g := firstNonEmpty(makeGenerator, file.Generator); g != "" {
		c.Generator(g)
	}
	if tc := firstNonEmpty(makeToolchainFile, file.ToolchainFile); tc != "" {
		c.Toolchain(tc)
	}
	if !verbose {
		c.Output(io.Discard, io.Discard)
	}
	return c
}

func runMake(cmd *cobra.Command, args []string) error {
	target, file, err := loadTarget(args, &makeTarget)
	if err != nil {
		return err
	}

	// Resolve output path to absolute before build
	if makeOutput != "" {
		abs, err := filepath.Abs(makeOutput)
		if err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
		makeOutput = abs
	}

	// When -o is specified without a workspace, use a temp workspace so we
	// don't pollute the cache
	workspace := makeWorkspace
	if makeOutput != "" && workspace == "" {
		tmpDir, err := os.MkdirTemp("", "hpkg-make-*")
		if err != nil {
			return fmt.Errorf("failed to create temp workspace: %w", err)
		}
		defer os.RemoveAll(tmpDir)
		workspace = tmpDir
	}

	builder, err := build.NewBuilder(build.Options{
		Toolchain:    newToolchain(file),
		WorkspaceDir: workspace,
		RunTests:     makeRunTests || file.RunTests,
		Force:        makeForce,
	})
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	result, err := builder.Build(cmd.Context(), target)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Identity)

	if makeOutput != "" {
		if result.PackageDir == "" {
			return fmt.Errorf("install is off, nothing to write to %s", makeOutput)
		}
		if err := archive.Write(result.PackageDir, makeOutput); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
