package commands

import (
	"context"
	"sebastian/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "sebastian",
	Short: "sebastian downloads the material of the ariel course portal.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file to read.")
}

// ExecuteContext runs the command line, the returned error has not been
// printed yet.
func ExecuteContext(ctx context.Context) error {
	rootCmd.SilenceErrors = true
	return rootCmd.ExecuteContext(ctx)
}
