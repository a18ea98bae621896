// Package commands implements the CLI of the kernel demo node.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags.
	cfgFile      string
	envFile      string
	configLoader string
)

var rootCmd = &cobra.Command{
	Use:   "kernel",
	Short: "Service provider kernel demo node",
	Long: `kernel boots a set of service providers against a simulated block
stream. Providers whose enable predicate is false are deferred and booted
once a later block makes them eligible; booted providers are disposed when
their disable predicate turns true.

Use "kernel [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: searched under ./config and ./)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before configuration")
	rootCmd.PersistentFlags().StringVar(&configLoader, "config-loader", "", `configuration driver ("local" or "env")`)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(providersCmd)
}
