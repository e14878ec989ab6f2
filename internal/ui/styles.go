package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	accentColor  = lipgloss.Color("#7C3AED") // Purple accent
	userColor    = lipgloss.Color("#3B82F6") // Blue for user messages
	agentColor   = lipgloss.Color("#10B981") // Green for agent messages
	actionColor  = lipgloss.Color("#F59E0B") // Amber for action results
	dimColor     = lipgloss.Color("#6B7280") // Gray for help text and system lines
	errorColor   = lipgloss.Color("#EF4444") // Red for errors
	onlineColor  = lipgloss.Color("#10B981")
	warnColor    = lipgloss.Color("#F59E0B")
	offlineColor = lipgloss.Color("#EF4444")
)

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accentColor).
			Padding(0, 1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accentColor).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(dimColor).
				Padding(0, 2)

	userPrefixStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(userColor)

	agentPrefixStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(agentColor)

	actionStyle = lipgloss.NewStyle().
			Foreground(actionColor)

	systemStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	thinkingStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true)

	selectedAgentStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(agentColor)

	sectionTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(accentColor)

	inputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(accentColor).
				Padding(0, 1)

	statusStyles = map[string]lipgloss.Style{
		"checking": lipgloss.NewStyle().Foreground(dimColor),
		"online":   lipgloss.NewStyle().Foreground(onlineColor).Bold(true),
		"error":    lipgloss.NewStyle().Foreground(warnColor).Bold(true),
		"timeout":  lipgloss.NewStyle().Foreground(warnColor),
		"offline":  lipgloss.NewStyle().Foreground(offlineColor).Bold(true),
	}
)

func renderStatus(status string) string {
	if style, ok := statusStyles[status]; ok {
		return style.Render(status)
	}
	return status
}
