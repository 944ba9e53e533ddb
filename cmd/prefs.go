package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"mod-updater/db"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change stored preferences",
	Long: `Preferences fill in settings the configuration leaves unset:
  mc-version          target game version
  loader              fabric, quilt, forge or neoforge
  curseforge-support  true or false`,
}

var prefsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one or all stored preferences",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, prefs, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		all, err := prefs.All()
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), formatPreferences(all, args))
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store a preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, prefs, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if err := prefs.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s saved\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd)
}

// formatPreferences prints key=value lines in key order. Unset keys are
// shown as "(unset)".
func formatPreferences(values map[string]string, only []string) string {
	keys := db.PreferenceKeys
	if len(only) > 0 {
		keys = only
	}
	out := ""
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			v = "(unset)"
		}
		out += fmt.Sprintf("%s=%s\n", k, v)
	}
	return out
}
