package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mod-updater/classify"
	"mod-updater/logger"
	"mod-updater/reconcile"
	"mod-updater/ui"
)

// updateCmd represents the update command
var updateCmd = &cobra.Command{
	Use:   "update [file|dir ...]",
	Short: "Checks for and downloads updates",
	Long: `Resolves the given files (MODS_DIR by default) with a live progress view,
then downloads the newest version of every mod that has an update into
OUTPUT_DIR. More than three files are bundled into a single zip.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Log.Info("Running update command...")

		all, _ := cmd.Flags().GetBool("all")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		m := initialUpdateModel(func(out chan<- UpdateProgressMsg) {
			runUpdate(ctx, args, all, dryRun, out)
		})
		if _, err := tea.NewProgram(m).Run(); err != nil {
			logger.Log.Errorw("Failed to run update UI", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().BoolP("all", "a", false, "Download the selected version of every resolved mod, not only updates")
	updateCmd.Flags().Bool("dry-run", false, "Report updates without downloading")
}

// progressSender forwards engine progress without blocking the engine.
func progressSender(out chan<- UpdateProgressMsg) func(float64) {
	return func(f float64) {
		select {
		case out <- UpdateProgressMsg{Type: "progress", Fraction: f}:
		default:
		}
	}
}

func runUpdate(ctx context.Context, args []string, all, dryRun bool, out chan<- UpdateProgressMsg) {
	notifier := ui.NewNotifier(func(t ui.Toast) {
		out <- UpdateProgressMsg{Type: "toast", Toast: t}
	})

	out <- UpdateProgressMsg{Type: "status", Message: "Loading configuration..."}
	a, err := bootstrap(ctx, configPath, notifier, progressSender(out))
	if err != nil {
		out <- UpdateProgressMsg{Type: "error", Message: err.Error()}
		out <- UpdateProgressMsg{Type: "summary", Message: "Update aborted"}
		return
	}

	files, err := collectInputs(args, a.cfg.ModsDir)
	if err != nil {
		out <- UpdateProgressMsg{Type: "error", Message: err.Error()}
		out <- UpdateProgressMsg{Type: "summary", Message: "Update aborted"}
		return
	}

	settings := a.engine.Settings()
	out <- UpdateProgressMsg{Type: "status", Message: fmt.Sprintf("Checking %d files for %s (%s)...", len(files), settings.GameVersion, settings.Loader)}
	summary, err := a.engine.Run(ctx, files)
	if err != nil {
		out <- UpdateProgressMsg{Type: "error", Message: err.Error()}
		out <- UpdateProgressMsg{Type: "summary", Message: "Update aborted"}
		return
	}
	logger.Log.Infow("Update check finished", zap.Int("units", summary.Units), zap.Int("dependencies", summary.Dependencies))

	for _, line := range updateLines(a.engine.Available(), all) {
		out <- UpdateProgressMsg{Type: "found", Message: line}
	}
	for _, u := range a.engine.Snapshot().Unresolved {
		if u.Err != nil {
			out <- UpdateProgressMsg{Type: "error", Message: fmt.Sprintf("%s: %s", u.File, u.Err.Kind)}
		}
	}

	targets := a.engine.DownloadTargets(all)
	if dryRun || len(targets) == 0 {
		out <- UpdateProgressMsg{Type: "summary", Message: fmt.Sprintf("%d updates found", len(targets))}
		return
	}

	out <- UpdateProgressMsg{Type: "status", Message: fmt.Sprintf("Downloading %d files...", len(targets))}
	report, archive, err := a.downloadTargets(ctx, targets)
	if err != nil {
		out <- UpdateProgressMsg{Type: "error", Message: err.Error()}
	}
	for _, t := range report.Failed {
		out <- UpdateProgressMsg{Type: "error", Message: fmt.Sprintf("%s failed, download it manually: %s", t.Filename, t.URL)}
	}
	out <- UpdateProgressMsg{Type: "summary", Message: downloadSummary(report, archive)}
}

// updateLines describes each mod that would be downloaded.
func updateLines(mods []reconcile.AvailableMod, all bool) []string {
	reconcile.Sort(mods, reconcile.SortNameAsc)
	var lines []string
	for _, m := range mods {
		v := m.Selected()
		if v == nil || (!all && v.Status != classify.Updated) {
			continue
		}
		name := v.VersionNumber
		if name == "" {
			name = v.Name
		}
		lines = append(lines, fmt.Sprintf("%s → %s", m.Project.Title, name))
	}
	return lines
}
