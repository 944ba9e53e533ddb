package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"mod-updater/config"
	"mod-updater/logger"
	"mod-updater/mojang"
	"mod-updater/ui"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List Minecraft versions from the Mojang manifest",
	RunE: func(cmd *cobra.Command, _ []string) error {
		snapshots, _ := cmd.Flags().GetBool("snapshots")
		limit, _ := cmd.Flags().GetInt("limit")

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		client := mojang.NewClient(mojang.Options{
			ManifestURL: cfg.MojangManifestURL,
			UserAgent:   cfg.UserAgent,
			Logger:      logger.Named(mojang.APIName),
		})

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		versions, err := client.Versions(ctx, !snapshots)
		if err != nil {
			return err
		}
		selected := client.Resolve(ctx, cfg.MinecraftVersion)
		fmt.Fprint(cmd.OutOrStdout(), formatVersions(versions, selected, limit))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
	versionsCmd.Flags().Bool("snapshots", false, "Include snapshots and old betas")
	versionsCmd.Flags().IntP("limit", "n", 20, "Number of versions to show (0 for all)")
}

// formatVersions lists versions newest first, marking the selected one.
func formatVersions(versions []mojang.Version, selected string, limit int) string {
	if limit > 0 && len(versions) > limit {
		versions = versions[:limit]
	}
	out := ""
	for _, v := range versions {
		marker := "  "
		line := fmt.Sprintf("%-20s %s", v.ID, v.Type)
		if v.ID == selected {
			marker = "* "
			line = ui.Success.Render(line)
		}
		out += marker + line + "\n"
	}
	return out
}
