package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mod-updater/classify"
	"mod-updater/db"
	"mod-updater/download"
	"mod-updater/loader"
	"mod-updater/logger"
	"mod-updater/reconcile"
	"mod-updater/ui"
)

// guiCmd represents the gui command
var guiCmd = &cobra.Command{
	Use:   "gui [file|dir ...]",
	Short: "Browse results interactively",
	Long: `Resolves the given files (MODS_DIR by default) and opens an interactive
browser over the results: pick versions, filter, sort and download.
v/V and L switch the target game version and loader; the choice is saved as a
preference and the files are checked again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return runGUI(ctx, args)
	},
}

func init() {
	rootCmd.AddCommand(guiCmd)
}

// browserEngine is the part of the engine the browser drives.
type browserEngine interface {
	Available() []reconcile.AvailableMod
	Select(projectID, versionID string) error
	Progress() float64
	DownloadTargets(all bool) []download.Target
	Settings() reconcile.Settings
	SetSettings(s reconcile.Settings)
}

type downloadFunc func(ctx context.Context, targets []download.Target) (download.Report, string, error)

// Model represents the state of the TUI
type Model struct {
	engine   browserEngine
	ctx      context.Context
	run      func() error
	download downloadFunc
	// persist stores a preference; nil skips saving.
	persist func(key, value string) error
	// gameVersions are the releases v/V cycle through, newest first.
	gameVersions []string

	mods          []reconcile.AvailableMod
	selectedIndex int
	sortIndex     int
	filter        textinput.Model
	filtering     bool

	loading      bool
	downloading  bool
	progress     float64
	err          string
	message      string
	toasts       chan ui.Toast
	toast        *ui.Toast
	spinnerFrame int
	width        int
	height       int
}

func newModel(ctx context.Context, engine browserEngine, run func() error, dl downloadFunc, toasts chan ui.Toast) Model {
	ti := textinput.New()
	ti.Placeholder = "filter by name"
	ti.Prompt = "/ "
	ti.CharLimit = 64
	return Model{
		engine:   engine,
		ctx:      ctx,
		run:      run,
		download: dl,
		filter:   ti,
		loading:  true,
		toasts:   toasts,
		width:    80,
		height:   24,
	}
}

// Message types
type runFinishedMsg struct{ err error }

type spinnerTickMsg struct{}

type toastMsg ui.Toast

type downloadCompleteMsg struct {
	message string
}

type clearMessageMsg struct{}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.startRun(), tickSpinner(), m.waitForToast())
}

func tickSpinner() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

func (m Model) startRun() tea.Cmd {
	return func() tea.Msg {
		return runFinishedMsg{err: m.run()}
	}
}

func (m Model) waitForToast() tea.Cmd {
	if m.toasts == nil {
		return nil
	}
	return func() tea.Msg {
		t, ok := <-m.toasts
		if !ok {
			return nil
		}
		return toastMsg(t)
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case runFinishedMsg:
		m.loading = false
		m.progress = 1
		if msg.err != nil {
			m.err = msg.err.Error()
		}
		m.refresh()
	case spinnerTickMsg:
		return m.handleSpinnerTick()
	case toastMsg:
		t := ui.Toast(msg)
		m.toast = &t
		return m, m.waitForToast()
	case downloadCompleteMsg:
		m.downloading = false
		m.message = msg.message
		return m, tea.Tick(5*time.Second, func(time.Time) tea.Msg {
			return clearMessageMsg{}
		})
	case clearMessageMsg:
		m.message = ""
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter", "esc":
			m.filtering = false
			m.filter.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.filter, cmd = m.filter.Update(msg)
		m.refresh()
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc":
		m.toast = nil
	case "up", "k":
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case "down", "j":
		if m.selectedIndex < len(m.mods)-1 {
			m.selectedIndex++
		}
	case "left", "h":
		m.cycleVersion(-1)
	case "right", "l":
		m.cycleVersion(1)
	case "/":
		if !m.loading {
			m.filtering = true
			cmd := m.filter.Focus()
			return m, cmd
		}
	case "s":
		m.sortIndex = (m.sortIndex + 1) % len(reconcile.SortOptions)
		m.refresh()
	case "v":
		return m.cycleGameVersion(1)
	case "V":
		return m.cycleGameVersion(-1)
	case "L":
		return m.cycleLoader()
	case "ctrl+d", "d":
		return m.startDownload(false)
	case "D":
		return m.startDownload(true)
	}
	return m, nil
}

func (m Model) startDownload(all bool) (tea.Model, tea.Cmd) {
	if m.loading || m.downloading {
		return m, nil
	}
	m.downloading = true
	return m, m.downloadSelected(all)
}

// refresh rebuilds the visible rows from the engine.
func (m *Model) refresh() {
	mods := reconcile.Filter(m.engine.Available(), m.filter.Value())
	reconcile.Sort(mods, m.sortOption())
	m.mods = mods
	if m.selectedIndex >= len(m.mods) {
		m.selectedIndex = max(len(m.mods)-1, 0)
	}
}

func (m Model) sortOption() reconcile.SortOption {
	return reconcile.SortOptions[m.sortIndex]
}

// cycleVersion moves the current row's selection by delta, wrapping around.
func (m *Model) cycleVersion(delta int) {
	if len(m.mods) == 0 {
		return
	}
	mod := m.mods[m.selectedIndex]
	n := len(mod.Versions)
	if n < 2 {
		return
	}
	current := 0
	for i, v := range mod.Versions {
		if v.Selected {
			current = i
			break
		}
	}
	next := ((current+delta)%n + n) % n
	if err := m.engine.Select(mod.Project.ID, mod.Versions[next].ID); err != nil {
		m.message = err.Error()
		return
	}
	m.refresh()
}

func (m Model) cycleGameVersion(delta int) (tea.Model, tea.Cmd) {
	n := len(m.gameVersions)
	if n == 0 {
		return m, nil
	}
	settings := m.engine.Settings()
	current := slices.Index(m.gameVersions, settings.GameVersion)
	if current < 0 && delta < 0 {
		current = 0
	}
	settings.GameVersion = m.gameVersions[((current+delta)%n+n)%n]
	return m.changeSettings(settings)
}

func (m Model) cycleLoader() (tea.Model, tea.Cmd) {
	settings := m.engine.Settings()
	current := slices.Index(loader.All, settings.Loader)
	settings.Loader = loader.All[(current+1)%len(loader.All)]
	return m.changeSettings(settings)
}

// changeSettings retargets the engine, saves the choice and checks the files
// again. Ignored while a run or download is in flight.
func (m Model) changeSettings(settings reconcile.Settings) (tea.Model, tea.Cmd) {
	if m.loading || m.downloading {
		return m, nil
	}
	m.engine.SetSettings(settings)
	if m.persist != nil {
		for key, value := range map[string]string{
			db.PrefGameVersion: settings.GameVersion,
			db.PrefLoader:      settings.Loader.String(),
		} {
			if err := m.persist(key, value); err != nil {
				logger.Log.Warnw("Failed to save preference", zap.String("key", key), zap.Error(err))
			}
		}
	}
	m.loading = true
	m.progress = 0
	m.err = ""
	m.mods = nil
	m.selectedIndex = 0
	return m, tea.Batch(m.startRun(), tickSpinner())
}

func (m Model) handleSpinnerTick() (tea.Model, tea.Cmd) {
	m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
	if m.loading {
		m.progress = m.engine.Progress()
	}
	if m.loading || m.downloading {
		return m, tickSpinner()
	}
	return m, nil
}

func (m Model) downloadSelected(all bool) tea.Cmd {
	return func() tea.Msg {
		targets := m.engine.DownloadTargets(all)
		if len(targets) == 0 {
			return downloadCompleteMsg{message: "Nothing to download"}
		}
		report, archive, err := m.download(m.ctx, targets)
		if err != nil {
			logger.Log.Warnw("Download failed", zap.Error(err))
			return downloadCompleteMsg{message: fmt.Sprintf("Download failed: %v", err)}
		}
		return downloadCompleteMsg{message: downloadSummary(report, archive)}
	}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// View renders the UI
func (m Model) View() string {
	if m.loading {
		return m.renderLoadingScreen()
	}
	if m.downloading {
		return m.renderDownloadingScreen()
	}

	var output string
	if m.err != "" {
		output += ui.Danger.Render("Error: "+m.err) + "\n\n"
	}
	if m.toast != nil {
		output += m.toast.Render() + "\n\n"
	}
	if m.filtering || m.filter.Value() != "" {
		output += m.filter.View() + "\n"
	}

	if len(m.mods) == 0 {
		output += "No updatable mods found.\n"
	} else {
		output += renderHeader() + "\n"
		for i, mod := range m.mods {
			output += m.renderModRow(i, mod) + "\n"
		}
	}

	output += "\n" + renderFooter(m.sortOption(), m.engine.Settings())
	if m.message != "" {
		output += "\n" + ui.Success.Render(m.message)
	}
	return output
}

func (m Model) renderLoadingScreen() string {
	loadingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	msg := fmt.Sprintf("%s Checking mods... %3.0f%%", spinnerFrames[m.spinnerFrame], m.progress*100)
	output := loadingStyle.Render(msg) + "\n"
	if m.toast != nil {
		output += "\n" + m.toast.Render() + "\n"
	}
	return output
}

func (m Model) renderDownloadingScreen() string {
	downloadingStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	return downloadingStyle.Render(fmt.Sprintf("%s Downloading...", spinnerFrames[m.spinnerFrame])) + "\n"
}

func renderHeader() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Padding(0, 1)

	return headerStyle.Render(fmt.Sprintf("  %-39s %-24s %-16s", "Mod Name", "Version", "Status"))
}

func renderFooter(opt reconcile.SortOption, settings reconcile.Settings) string {
	footerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")).
		Italic(true)

	return footerStyle.Render(fmt.Sprintf("↑/↓: move  ←/→: version  /: filter  s: sort (%s)  d: download updates  D: download all  q: quit\n"+
		"v/V: game version (%s)  L: loader (%s)", opt, settings.GameVersion, settings.Loader))
}

func (m Model) renderModRow(index int, mod reconcile.AvailableMod) string {
	rowStyle := lipgloss.NewStyle().Padding(0, 1)
	if index == m.selectedIndex {
		rowStyle = rowStyle.
			Background(lipgloss.Color("8")).
			Bold(true)
	}

	status := classify.Unspecified
	version := ""
	if v := mod.Selected(); v != nil {
		status = v.Status
		version = v.VersionNumber
		if version == "" {
			version = v.Name
		}
	}

	indicator := " "
	if mod.IsDependency {
		indicator = "+"
	}
	if len(mod.Versions) > 1 {
		version = fmt.Sprintf("%s (%d)", truncate(version, 17), len(mod.Versions))
	}

	// Pad status before applying color to maintain column alignment
	paddedStatus := fmt.Sprintf("%-16s", ui.StatusLabel(status))
	row := fmt.Sprintf("%s %-39s %-24s %s",
		indicator,
		truncate(mod.Project.Title, 37),
		truncate(version, 22),
		ui.StatusStyle(status).Render(paddedStatus),
	)
	return rowStyle.Render(row)
}

func runGUI(ctx context.Context, args []string) error {
	toasts := make(chan ui.Toast, 16)
	notifier := ui.NewNotifier(func(t ui.Toast) {
		select {
		case toasts <- t:
		default:
		}
	})

	a, err := bootstrap(ctx, configPath, notifier, nil)
	if err != nil {
		return err
	}
	files, err := collectInputs(args, a.cfg.ModsDir)
	if err != nil {
		return err
	}

	run := func() error {
		summary, err := a.engine.Run(ctx, files)
		if err != nil {
			return err
		}
		logger.Log.Infow("GUI check finished", zap.Int("units", summary.Units))
		return nil
	}

	m := newModel(ctx, a.engine, run, a.downloadTargets, toasts)
	m.persist = a.prefs.Set
	m.gameVersions = releaseIDs(ctx, a)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Log.Errorw("Failed to run GUI", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// releaseIDs lists the game releases offered by v/V. The current target is
// the only choice when the manifest cannot be fetched.
func releaseIDs(ctx context.Context, a *app) []string {
	current := a.engine.Settings().GameVersion
	versions, err := a.mojang.Versions(ctx, true)
	if err != nil {
		logger.Log.Warnw("Could not list game versions", zap.Error(err))
		return []string{current}
	}
	ids := make([]string, 0, len(versions))
	for _, v := range versions {
		ids = append(ids, v.ID)
	}
	if !slices.Contains(ids, current) {
		ids = append([]string{current}, ids...)
	}
	return ids
}
