package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mod-updater/ui"
)

var downloadCmd = &cobra.Command{
	Use:   "download [file|dir ...]",
	Short: "Resolve files and download their updates without the progress view",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := bootstrap(ctx, configPath, ui.WriterNotifier(os.Stderr), nil)
		if err != nil {
			return err
		}
		files, err := collectInputs(args, a.cfg.ModsDir)
		if err != nil {
			return err
		}
		if _, err := a.engine.Run(ctx, files); err != nil {
			return err
		}

		report, archive, err := a.downloadTargets(ctx, a.engine.DownloadTargets(all))
		for _, t := range report.Failed {
			fmt.Fprintln(os.Stderr, ui.Danger.Render(fmt.Sprintf("%s failed, download it manually: %s", t.Filename, t.URL)))
		}
		if err != nil {
			return err
		}
		fmt.Println(downloadSummary(report, archive))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().BoolP("all", "a", false, "Download every resolved mod, not only updates")
}
