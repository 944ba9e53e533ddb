package cmd

import (
	"github.com/spf13/cobra"
)

// With no subcommand the root command behaves like check on the configured
// mods directory.
func init() {
	rootCmd.Args = cobra.NoArgs
	addCheckFlags(rootCmd)
	rootCmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return runCheck(cmd, nil)
	}
}
