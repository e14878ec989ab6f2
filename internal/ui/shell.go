package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// activeView identifies which panel the shell has mounted
type activeView int

const (
	viewChat activeView = iota
	viewDashboard
)

// Shell is the integrations container: it mounts exactly one of the chat
// panel or the dashboard at a time and shares no state between them. The
// health poller only runs while the dashboard is mounted.
type Shell struct {
	chat      *ChatView
	dashboard *DashboardView
	active    activeView
	width     int
	quitting  bool
}

// NewShell creates the top-level model with the chat view mounted
func NewShell(chat *ChatView, dashboard *DashboardView) *Shell {
	return &Shell{chat: chat, dashboard: dashboard}
}

// Init implements tea.Model
func (s *Shell) Init() tea.Cmd {
	return s.chat.Init()
}

// Update implements tea.Model
func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			s.quitting = true
			s.shutdown()
			return s, tea.Quit
		case tea.KeyTab:
			return s, s.switchView()
		}

	case tea.WindowSizeMsg:
		s.width = msg.Width
		// Both views track the size so switching doesn't need a resize.
		cmd1, _ := s.chat.Update(msg)
		cmd2, _ := s.dashboard.Update(msg)
		return s, tea.Batch(cmd1, cmd2)
	}

	// Background messages (listener re-arms) go to both views; key input
	// only to the mounted one.
	if _, isKey := msg.(tea.KeyMsg); isKey {
		if s.active == viewChat {
			cmd, _ := s.chat.Update(msg)
			return s, cmd
		}
		cmd, _ := s.dashboard.Update(msg)
		return s, cmd
	}

	cmd1, _ := s.chat.Update(msg)
	cmd2, _ := s.dashboard.Update(msg)
	return s, tea.Batch(cmd1, cmd2)
}

// switchView unmounts the current panel and mounts the other
func (s *Shell) switchView() tea.Cmd {
	if s.active == viewChat {
		s.active = viewDashboard
		return s.dashboard.Mount()
	}
	s.active = viewChat
	s.dashboard.Unmount()
	return nil
}

// shutdown ends any live session and stops polling before quitting
func (s *Shell) shutdown() {
	s.chat.controller.EndSession()
	s.dashboard.Unmount()
}

// View implements tea.Model
func (s *Shell) View() string {
	if s.quitting {
		return ""
	}

	chatTab := tabInactiveStyle.Render("Chat")
	dashTab := tabInactiveStyle.Render("Dashboard")
	var header string
	if s.active == viewChat {
		chatTab = tabActiveStyle.Render("Chat")
		header = s.chat.Header()
	} else {
		dashTab = tabActiveStyle.Render("Dashboard")
		header = s.dashboard.Header()
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, chatTab, dashTab, "  ", headerStyle.Render(header))

	var body string
	if s.active == viewChat {
		body = s.chat.View()
	} else {
		body = s.dashboard.View()
	}

	return top + "\n\n" + body + "\n"
}
