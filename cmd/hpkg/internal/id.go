package internal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/hpkg/formula"
	"github.com/goplus/hpkg/internal/build"
	"github.com/goplus/hpkg/internal/pkgid"
)

var idTarget targetFlags

var idCmd = &cobra.Command{
	Use:   "id [dir]",
	Short: "Print the package identity of the recipe in dir",
	Long: `Id prints the identity the package of dir is indexed under, without
building it, followed by the number of distinct packages the platform and
option matrix expands to.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runID,
}

func init() {
	idTarget.register(idCmd.Flags())
	rootCmd.AddCommand(idCmd)
}

func runID(cmd *cobra.Command, args []string) error {
	target, _, err := loadTarget(args, &idTarget)
	if err != nil {
		return err
	}
	plan, err := build.Prepare(target)
	if err != nil {
		return err
	}

	m := target.Platform.Matrix()
	m.Options = formula.OptionAxes()
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, plan.Identity)
	fmt.Fprintf(out, "variants: %d of %d\n", pkgid.VariantCount(m), m.CombinationCount())
	return nil
}
