package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yegors/agentdeck/internal/chat"
	"github.com/yegors/agentdeck/internal/gateway"
)

// chatUpdateMsg signals that controller state changed
type chatUpdateMsg struct{}

// providersRefreshedMsg carries the outcome of a directory refresh
type providersRefreshedMsg struct{ err error }

// sessionStartedMsg carries the outcome of a StartSession attempt
type sessionStartedMsg struct{ err error }

// ChatView is the multi-agent chat panel. While disconnected it shows the
// agent selection list decorated with provider availability; once a session
// starts it becomes a message log with an input line.
type ChatView struct {
	controller *chat.Controller
	directory  *gateway.Directory

	input    textinput.Model
	viewport viewport.Model
	cursor   int
	agents   []string
	starting bool
	ready    bool
	width    int
	height   int
}

// NewChatView creates the chat panel
func NewChatView(controller *chat.Controller, directory *gateway.Directory, defaultAgents []string) *ChatView {
	ti := textinput.New()
	ti.Placeholder = "Type your message... (Enter to send, Esc to end session)"
	ti.CharLimit = 2048

	v := &ChatView{
		controller: controller,
		directory:  directory,
		input:      ti,
		agents:     normalizeNames(defaultAgents),
	}
	for _, a := range defaultAgents {
		controller.ToggleAgentSelection(a)
	}
	return v
}

// Init starts the controller listener and a first directory refresh
func (v *ChatView) Init() tea.Cmd {
	return tea.Batch(v.listen(), v.refreshProviders())
}

func (v *ChatView) listen() tea.Cmd {
	return func() tea.Msg {
		<-v.controller.Updates()
		return chatUpdateMsg{}
	}
}

func (v *ChatView) refreshProviders() tea.Cmd {
	return func() tea.Msg {
		return providersRefreshedMsg{err: v.directory.Refresh(context.Background())}
	}
}

func (v *ChatView) startSession() tea.Cmd {
	selected := v.controller.Selected()
	return func() tea.Msg {
		return sessionStartedMsg{err: v.controller.StartSession(context.Background(), selected)}
	}
}

// Update implements the bubbletea update contract for this view
func (v *ChatView) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		chatHeight := msg.Height - 8
		if chatHeight < 3 {
			chatHeight = 3
		}
		if !v.ready {
			v.viewport = viewport.New(msg.Width-2, chatHeight)
			v.ready = true
		} else {
			v.viewport.Width = msg.Width - 2
			v.viewport.Height = chatHeight
		}
		v.input.Width = msg.Width - 6
		v.syncViewport()
		return nil, false

	case chatUpdateMsg:
		if v.controller.State() == chat.StateConnected && !v.input.Focused() {
			v.input.Focus()
		}
		if v.controller.State() == chat.StateDisconnected {
			v.input.Blur()
			v.starting = false
		}
		v.syncViewport()
		return v.listen(), false

	case providersRefreshedMsg:
		v.mergeProviderAgents()
		return nil, false

	case sessionStartedMsg:
		v.starting = false
		v.syncViewport()
		return nil, false

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return nil, false
}

func (v *ChatView) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	connected := v.controller.State() == chat.StateConnected

	if connected {
		switch msg.Type {
		case tea.KeyEnter:
			text := strings.TrimSpace(v.input.Value())
			if text == "" {
				return nil, true
			}
			v.input.Reset()
			if err := v.controller.SendUserMessage(text); err != nil {
				// Send failures already land in the log as error messages on
				// the next transport closure; nothing more to do here.
				return nil, true
			}
			v.syncViewport()
			return nil, true
		case tea.KeyEsc:
			v.controller.EndSession()
			return nil, true
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return cmd, true
	}

	// Disconnected: agent selection mode.
	switch msg.String() {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
		}
		return nil, true
	case "down", "j":
		if v.cursor < len(v.agents)-1 {
			v.cursor++
		}
		return nil, true
	case " ", "space":
		if v.cursor < len(v.agents) {
			v.controller.ToggleAgentSelection(v.agents[v.cursor])
		}
		return nil, true
	case "enter":
		if len(v.controller.Selected()) == 0 || v.starting {
			return nil, true
		}
		v.starting = true
		return v.startSession(), true
	case "p":
		return v.refreshProviders(), true
	}
	return nil, false
}

// mergeProviderAgents adds directory-known providers to the selectable list
func (v *ChatView) mergeProviderAgents() {
	known := make(map[string]bool, len(v.agents))
	for _, a := range v.agents {
		known[a] = true
	}
	added := false
	for _, p := range v.directory.Providers() {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" || known[name] {
			continue
		}
		known[name] = true
		v.agents = append(v.agents, name)
		added = true
	}
	if added {
		sort.Strings(v.agents)
	}
	if v.cursor >= len(v.agents) && len(v.agents) > 0 {
		v.cursor = len(v.agents) - 1
	}
}

func (v *ChatView) syncViewport() {
	if !v.ready {
		return
	}
	v.viewport.SetContent(v.renderMessages())
	v.viewport.GotoBottom()
}

func (v *ChatView) renderMessages() string {
	messages := v.controller.Messages()
	if len(messages) == 0 {
		return systemStyle.Render("No messages yet.")
	}

	var b strings.Builder
	for _, m := range messages {
		switch m.Kind {
		case chat.KindUser:
			b.WriteString(userPrefixStyle.Render("You:") + " " + m.Content)
		case chat.KindAgent:
			b.WriteString(agentPrefixStyle.Render(m.Sender+":") + " " + m.Content)
		case chat.KindSystem:
			b.WriteString(systemStyle.Render("• " + m.Content))
		case chat.KindError:
			b.WriteString(errorStyle.Render("✗ " + m.Content))
		case chat.KindAction:
			mark := "✓"
			if !m.Success {
				mark = "✗"
			}
			b.WriteString(actionStyle.Render(fmt.Sprintf("%s %s → %s", mark, m.Action, m.Content)))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// View renders the chat panel
func (v *ChatView) View() string {
	if v.controller.State() == chat.StateDisconnected {
		return v.viewSelection()
	}
	return v.viewSession()
}

func (v *ChatView) viewSelection() string {
	var b strings.Builder
	b.WriteString(sectionTitleStyle.Render("Select agents") + "\n\n")

	if len(v.agents) == 0 {
		b.WriteString(systemStyle.Render("No agents known yet; press p to refresh providers.") + "\n")
	}

	selected := make(map[string]bool)
	for _, a := range v.controller.Selected() {
		selected[a] = true
	}

	for i, agent := range v.agents {
		cursor := "  "
		if i == v.cursor {
			cursor = "> "
		}
		check := "[ ]"
		label := agent
		if selected[agent] {
			check = "[x]"
			label = selectedAgentStyle.Render(agent)
		}
		b.WriteString(fmt.Sprintf("%s%s %s%s\n", cursor, check, label, v.providerBadge(agent)))
	}

	b.WriteString("\n" + helpStyle.Render("space: toggle · enter: start session · p: refresh providers · tab: dashboard · ctrl+c: quit"))
	if v.starting {
		b.WriteString("\n" + thinkingStyle.Render("Starting session..."))
	}
	return b.String()
}

func (v *ChatView) providerBadge(agent string) string {
	p, ok := v.directory.Lookup(agent)
	if !ok {
		return ""
	}
	if !p.Available {
		reason := p.LastError
		if reason == "" {
			reason = "unavailable"
		}
		return " " + errorStyle.Render("("+reason+")")
	}
	return " " + systemStyle.Render(fmt.Sprintf("(%s, %d calls)", p.Channel, p.TotalCalls))
}

func (v *ChatView) viewSession() string {
	var b strings.Builder
	if v.ready {
		b.WriteString(v.viewport.View() + "\n")
	} else {
		b.WriteString(v.renderMessages() + "\n")
	}

	statuses := v.controller.AgentStatuses()
	var thinking []string
	for agent, state := range statuses {
		if state == chat.AgentThinking {
			thinking = append(thinking, agent)
		}
	}
	if len(thinking) > 0 {
		sort.Strings(thinking)
		b.WriteString(thinkingStyle.Render("⏳ thinking: "+strings.Join(thinking, ", ")) + "\n")
	}

	b.WriteString(inputBorderStyle.Render(v.input.View()) + "\n")
	b.WriteString(helpStyle.Render("enter: send · esc: end session · tab: dashboard · ctrl+c: quit"))
	return b.String()
}

// Header returns the view's title line content
func (v *ChatView) Header() string {
	state := v.controller.State()
	line := "Chat: " + string(state)
	if id := v.controller.SessionID(); id != "" {
		line += " · " + id
	}
	if agents := v.controller.Selected(); len(agents) > 0 {
		line += " · agents: " + strings.Join(agents, ", ")
	}
	return line
}

func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
