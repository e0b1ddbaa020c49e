package internal

import (
	"github.com/spf13/cobra"

	"github.com/goplus/hpkg/formula"
)

var paramsTarget targetFlags

var paramsCmd = &cobra.Command{
	Use:   "params [dir]",
	Short: "Print the build parameters of the recipe in dir",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runParams,
}

func init() {
	paramsTarget.register(paramsCmd.Flags())
	rootCmd.AddCommand(paramsCmd)
}

func runParams(cmd *cobra.Command, args []string) error {
	target, _, err := loadTarget(args, &paramsTarget)
	if err != nil {
		return err
	}
	opts, err := formula.Resolve(target.Overrides)
	if err != nil {
		return err
	}
	params := formula.Translate(target.Recipe.ParamPrefix(), opts, target.Platform)
	_, err = cmd.OutOrStdout().Write(params.Encode())
	return err
}
