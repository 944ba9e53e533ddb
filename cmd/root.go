package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mod-updater/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mod-updater",
	Short: "Check Minecraft mods for updates on Modrinth, CurseForge and GitHub",
	Long: `mod-updater identifies the mod jars, resource packs and modpack manifests
in a directory, finds them on Modrinth (falling back to GitHub releases and
CurseForge) and tells you which have newer versions for your game version
and loader.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "Directory containing the .env file")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.Errorw("Command failed", zap.Error(err))
		logger.Sync()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
