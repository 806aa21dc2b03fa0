package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// watchPollInterval is how often the dashboard refreshes from the server.
const watchPollInterval = time.Second

var (
	watchTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	watchMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	watchErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	watchOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	watchJobStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live dashboard of the download queue",
	RunE:  runWatchCmd,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	m := watchModel{
		client: NewClient(serverURL),
		bar:    progress.New(progress.WithDefaultGradient()),
	}
	m.bar.Width = 40

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

type watchTickMsg struct{}

type watchStatusMsg struct {
	status *QueueStatusResponse
	err    error
}

type watchModel struct {
	client  *Client
	bar     progress.Model
	status  *QueueStatusResponse
	fetched bool
	err     error
	width   int
}

func (m watchModel) Init() tea.Cmd {
	return m.fetchStatus()
}

func (m watchModel) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.QueueStatus()
		return watchStatusMsg{status: status, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(watchPollInterval, func(_ time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-40, 20), 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case watchStatusMsg:
		m.fetched = true
		m.status = msg.status
		m.err = msg.err
		return m, m.tick()

	case watchTickMsg:
		return m, m.fetchStatus()
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(watchTitleStyle.Render("fetcharr queue"))
	b.WriteString("  ")
	b.WriteString(watchMutedStyle.Render(serverURL))
	b.WriteString("\n\n")

	switch {
	case !m.fetched:
		b.WriteString(watchMutedStyle.Render("Connecting..."))
	case m.err != nil:
		b.WriteString(watchErrorStyle.Render("server unreachable: " + m.err.Error()))
	default:
		m.viewActive(&b)
		b.WriteString("\n")
		m.viewCompleted(&b)
	}

	b.WriteString("\n\n")
	b.WriteString(watchMutedStyle.Render("q: quit"))
	return b.String()
}

func (m watchModel) viewActive(b *strings.Builder) {
	if len(m.status.Active) == 0 {
		b.WriteString(watchMutedStyle.Render("No active downloads"))
		b.WriteString("\n")
		return
	}

	for _, j := range m.status.Active {
		b.WriteString(watchJobStyle.Render(fmt.Sprintf("#%-3d %s", j.ID, jobTitle(j))))
		b.WriteString("\n  ")
		if j.Status == "running" {
			b.WriteString(m.bar.ViewAs(j.ItemProgress / 100))
			b.WriteString(fmt.Sprintf(" %5.1f%%", j.ItemProgress))
		} else {
			b.WriteString(watchMutedStyle.Render("queued"))
		}
		if j.StatusMessage != "" {
			b.WriteString("\n  ")
			b.WriteString(watchMutedStyle.Render(truncate(j.StatusMessage, 70)))
		}
		b.WriteString("\n")
	}
}

func (m watchModel) viewCompleted(b *strings.Builder) {
	if len(m.status.Completed) == 0 {
		return
	}

	b.WriteString(watchMutedStyle.Render("Recently finished:"))
	b.WriteString("\n")

	// Newest first.
	for i := len(m.status.Completed) - 1; i >= 0; i-- {
		j := m.status.Completed[i]
		var state string
		switch j.Status {
		case "completed":
			state = watchOKStyle.Render("done   ")
		case "failed":
			state = watchErrorStyle.Render("failed ")
		default:
			state = watchMutedStyle.Render(fmt.Sprintf("%-7s", j.Status))
		}
		b.WriteString(fmt.Sprintf("  %s #%-3d %s", state, j.ID, truncate(jobTitle(j), 50)))
		if j.ErrorMessage != "" {
			b.WriteString(watchMutedStyle.Render(" (" + truncate(j.ErrorMessage, 40) + ")"))
		}
		b.WriteString("\n")
	}
}
