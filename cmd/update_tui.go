package cmd

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mod-updater/ui"
)

// UpdateProgressMsg represents a progress update from the update process
type UpdateProgressMsg struct {
	Type     string // "status", "progress", "toast", "found", "error", "summary", "done"
	Message  string
	Fraction float64
	Toast    ui.Toast
}

// UpdateModel controls the UI for the update command
type UpdateModel struct {
	spinner      spinner.Model
	progress     progress.Model
	progressChan chan UpdateProgressMsg
	run          func(chan<- UpdateProgressMsg)

	// State
	status   string
	fraction float64
	toasts   []ui.Toast
	found    []string
	errors   []string
	summary  string
	done     bool
}

func initialUpdateModel(run func(chan<- UpdateProgressMsg)) UpdateModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return UpdateModel{
		spinner:      s,
		progress:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		progressChan: make(chan UpdateProgressMsg, 100),
		run:          run,
		status:       "Initializing...",
	}
}

func (m UpdateModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startUpdate(),
		m.waitForActivity(),
	)
}

func (m UpdateModel) startUpdate() tea.Cmd {
	return func() tea.Msg {
		go func() {
			defer close(m.progressChan)
			m.run(m.progressChan)
		}()
		return nil
	}
}

func (m UpdateModel) waitForActivity() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.progressChan
		if !ok {
			return UpdateProgressMsg{Type: "done"}
		}
		return msg
	}
}

func (m UpdateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.done {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case UpdateProgressMsg:
		switch msg.Type {
		case "done":
			m.done = true
			m.status = "Finished"
			m.fraction = 1
			return m, tea.Quit

		case "status":
			m.status = msg.Message

		case "progress":
			if msg.Fraction > m.fraction {
				m.fraction = msg.Fraction
			}

		case "toast":
			m.toasts = append(m.toasts, msg.Toast)

		case "found":
			m.found = append(m.found, msg.Message)

		case "error":
			m.errors = append(m.errors, msg.Message)

		case "summary":
			m.summary = msg.Message
		}

		return m, m.waitForActivity()
	}

	return m, nil
}

func (m UpdateModel) View() string {
	var symbol string
	if m.done {
		symbol = ui.Success.Render("✓")
	} else {
		symbol = m.spinner.View()
	}

	s := fmt.Sprintf("\n %s %s\n\n", symbol, m.status)
	s += " " + m.progress.ViewAs(m.fraction) + "\n\n"

	if len(m.toasts) > 0 {
		start := 0
		if len(m.toasts) > 3 {
			start = len(m.toasts) - 3
		}
		for _, t := range m.toasts[start:] {
			s += "  " + t.Render() + "\n"
		}
		s += "\n"
	}

	if len(m.errors) > 0 {
		s += ui.Danger.Render("Errors:") + "\n"
		for _, e := range m.errors {
			s += fmt.Sprintf("  • %s\n", e)
		}
		s += "\n"
	}

	if len(m.found) > 0 {
		s += ui.Success.Render("Updates:") + "\n"
		start := 0
		if len(m.found) > 5 && !m.done {
			start = len(m.found) - 5
		}
		for i := start; i < len(m.found); i++ {
			s += fmt.Sprintf("  • %s\n", m.found[i])
		}
		s += "\n"
	}

	if m.done {
		s += lipgloss.NewStyle().Bold(true).Render(m.summary) + "\n"
	}

	return s
}
