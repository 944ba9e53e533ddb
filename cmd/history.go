package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mod-updater/db"
	"mod-updater/ui"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent downloads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if _, _, err := loadConfig(configPath); err != nil {
			return err
		}
		records, err := db.RecentDownloads(db.DB, limit)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), formatHistory(records))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Number of downloads to show")
}

func formatHistory(records []db.Download) string {
	if len(records) == 0 {
		return "No downloads recorded\n"
	}
	var sb strings.Builder
	for _, r := range records {
		result := r.Result
		if r.Result == "failed" {
			result = ui.Danger.Render(result)
		}
		line := fmt.Sprintf("%s  %-30s %-36s %s", r.CreatedAt.Format("2006-01-02 15:04"), truncate(r.Title, 28), truncate(r.FileName, 34), result)
		if r.ArchivePath != "" {
			line += " " + ui.Muted.Render(r.ArchivePath)
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
