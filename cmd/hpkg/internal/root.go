package internal

import (
	"context"
	"os"
	"os/signal"

	"github.com/qiniu/x/log"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "hpkg",
	Short: "hpkg builds and packages header-only C++ libraries",
	Long: `hpkg configures, builds and installs a header-only C++ library with CMake
and prints the identity its package is indexed under.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetOutputLevel(log.Ldebug)
		} else {
			log.SetOutputLevel(log.Linfo)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging and toolchain output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Recipe file (default: hpkg.yaml, hpkg.yml, hpkg.json or hpkg.jsonc in the source dir)")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Fatal(err)
	}
}
