package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mod-updater/classify"
	"mod-updater/logger"
	"mod-updater/reconcile"
	"mod-updater/ui"
)

var (
	checkSort   string
	checkFilter string
)

var checkCmd = &cobra.Command{
	Use:   "check [file|dir ...]",
	Short: "Identify mods and report which have updates",
	Long: `Resolves every mod jar, resource pack and modpack manifest in the given
files or directories (the configured MODS_DIR by default) and prints the
results grouped by outcome.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addCheckFlags(checkCmd)
}

func addCheckFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&checkSort, "sort", string(reconcile.SortDefault), "Sort order: default, name-asc, name-desc, last-updated, downloads, type")
	cmd.Flags().StringVar(&checkFilter, "filter", "", "Only show mods whose title contains this text")
}

func runCheck(cmd *cobra.Command, args []string) error {
	opt, err := reconcile.ParseSortOption(checkSort)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := bootstrap(ctx, configPath, ui.WriterNotifier(os.Stderr), nil)
	if err != nil {
		logger.Log.Errorw("Bootstrap failed", zap.Error(err))
		return err
	}

	files, err := collectInputs(args, a.cfg.ModsDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No mod files found in " + a.cfg.ModsDir)
		return nil
	}

	summary, err := a.engine.Run(ctx, files)
	if err != nil {
		return err
	}
	settings := a.engine.Settings()
	fmt.Printf("%s %s, %s\n\n", ui.Header.Render("Target:"), settings.GameVersion, settings.Loader)
	fmt.Print(renderBuckets(a.engine.Snapshot(), opt, checkFilter))
	fmt.Println(ui.Muted.Render(fmt.Sprintf("%d files processed, %d skipped, %d dependencies added", summary.Units, summary.Skipped, summary.Dependencies)))
	return nil
}

// renderBuckets formats a run result for the terminal.
func renderBuckets(b reconcile.Buckets, opt reconcile.SortOption, filter string) string {
	var sb strings.Builder

	mods := reconcile.Filter(b.Available, filter)
	reconcile.Sort(mods, opt)
	primary := reconcile.PrimaryMods(mods)
	deps := reconcile.DependencyMods(mods)

	section := func(title string, n int) {
		sb.WriteString(ui.Header.Render(fmt.Sprintf("%s (%d)", title, n)))
		sb.WriteString("\n")
	}

	if len(primary) > 0 {
		section("Available", len(primary))
		for _, m := range primary {
			sb.WriteString(renderAvailable(m))
		}
		sb.WriteString("\n")
	}
	if len(deps) > 0 {
		section("Dependencies", len(deps))
		for _, m := range deps {
			sb.WriteString(renderAvailable(m))
		}
		sb.WriteString("\n")
	}
	if len(b.Unavailable) > 0 {
		section("No version for this game version", len(b.Unavailable))
		for _, m := range b.Unavailable {
			fmt.Fprintf(&sb, "  %-40s %s\n", truncate(m.Project.Title, 38), ui.Muted.Render(m.ProjectURL))
		}
		sb.WriteString("\n")
	}
	if len(b.InvalidLoader) > 0 {
		section("Wrong loader", len(b.InvalidLoader))
		for _, m := range b.InvalidLoader {
			fmt.Fprintf(&sb, "  %-40s %s\n", truncate(m.Project.Title, 38), ui.Muted.Render(strings.Join(m.Project.Loaders, ", ")))
		}
		sb.WriteString("\n")
	}
	if len(b.Unresolved) > 0 {
		section("Not found", len(b.Unresolved))
		for _, u := range b.Unresolved {
			reason := "not found"
			if u.Err != nil {
				reason = u.Err.Kind.String()
			}
			fmt.Fprintf(&sb, "  %-40s %s\n", truncate(u.File, 38), ui.Danger.Render(reason))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderAvailable(m reconcile.AvailableMod) string {
	status := classify.Unspecified
	version := ""
	if v := m.Selected(); v != nil {
		status = v.Status
		version = v.VersionNumber
		if version == "" {
			version = v.Name
		}
	}
	title := ui.Colorize(fmt.Sprintf("%-40s", truncate(m.Project.Title, 38)), m.Project.ColorValue())
	label := fmt.Sprintf("%-16s", ui.StatusLabel(status))
	return fmt.Sprintf("  %s %-24s %s\n", title, truncate(version, 22), ui.StatusStyle(status).Render(label))
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
