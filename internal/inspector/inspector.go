// Package inspector is a read-only bubbletea TUI showing the live workspace
// layout: active workspace, tiled/floating counts, and per-workspace window
// counts on the active monitor, polled over IPC so it never touches X11
// directly.
//
// Grounded on the teacher's internal/tui package: a header bar, a body and
// a help bar (no tab bar), periodic daemon-status
// refresh via the same ipc.Client the CLI uses, and lipgloss styles for the
// active/inactive row highlighting — generalized from termtile's editable
// config tabs to a single read-only status view (no save overlay, no
// editing capture, since the spec scopes this to "read-only").
package inspector

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hatchwm/tilewm/internal/ipc"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeRowStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("84"))

	inactiveRowStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("250"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)

const refreshInterval = 500 * time.Millisecond

type tickMsg time.Time

type refreshedMsg struct {
	status     *ipc.StatusData
	workspaces *ipc.WorkspacesData
	err        error
}

// model is the root bubbletea model.
type model struct {
	client *ipc.Client

	status     *ipc.StatusData
	workspaces *ipc.WorkspacesData
	err        error

	width  int
	height int
}

// New builds the inspector's root model, bound to the daemon's IPC socket.
func New() tea.Model {
	return model{client: ipc.NewClient()}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) refresh() tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.GetStatus()
		if err != nil {
			return refreshedMsg{err: err}
		}
		workspaces, err := m.client.ListWorkspaces()
		if err != nil {
			return refreshedMsg{err: err}
		}
		return refreshedMsg{status: status, workspaces: workspaces}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())
	case refreshedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		m.workspaces = msg.workspaces
	}
	return m, nil
}

func (m model) View() string {
	if m.width == 0 {
		return ""
	}

	header := headerStyle.Width(m.width).Render("tilewm inspector")

	if m.err != nil {
		return header + "\n" + errorStyle.Render(fmt.Sprintf("daemon unreachable: %v", m.err))
	}
	if m.status == nil || m.workspaces == nil {
		return header + "\nconnecting..."
	}

	lines := []string{
		fmt.Sprintf("monitor: %s   uptime: %ds", m.workspaces.Monitor, m.status.UptimeSeconds),
		fmt.Sprintf("tiled: %d   floating: %d", m.status.TiledCount, m.status.FloatingCount),
		"",
	}
	for _, ws := range m.workspaces.Workspaces {
		row := fmt.Sprintf("  %d  %3d window(s)", ws.Number, ws.WindowCount)
		if ws.Active {
			row = activeRowStyle.Render("> " + row[2:])
		} else {
			row = inactiveRowStyle.Render(row)
		}
		lines = append(lines, row)
	}

	help := helpStyle.Render("q: quit")

	body := ""
	for _, l := range lines {
		body += l + "\n"
	}
	return header + "\n" + body + help
}
