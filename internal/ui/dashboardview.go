package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yegors/agentdeck/internal/health"
)

// healthUpdateMsg signals that the health snapshot changed
type healthUpdateMsg struct{}

// DashboardView renders the service-status dashboard. The backing poller is
// started when the view mounts and stopped when it unmounts; this view only
// reads snapshots.
type DashboardView struct {
	service *health.Service
	width   int
}

// NewDashboardView creates the dashboard panel
func NewDashboardView(service *health.Service) *DashboardView {
	return &DashboardView{service: service}
}

func (v *DashboardView) listen() tea.Cmd {
	return func() tea.Msg {
		<-v.service.Updates()
		return healthUpdateMsg{}
	}
}

// Mount starts polling and begins listening for snapshot changes
func (v *DashboardView) Mount() tea.Cmd {
	_ = v.service.Start()
	return v.listen()
}

// Unmount stops the poller
func (v *DashboardView) Unmount() {
	_ = v.service.Stop()
}

// Update implements the bubbletea update contract for this view
func (v *DashboardView) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		return nil, false
	case healthUpdateMsg:
		return v.listen(), false
	case tea.KeyMsg:
		if msg.String() == "r" {
			v.service.RefreshNow()
			return nil, true
		}
	}
	return nil, false
}

// View renders the dashboard panel
func (v *DashboardView) View() string {
	snap := v.service.Snapshot()

	var b strings.Builder
	b.WriteString(sectionTitleStyle.Render("Services") + "\n\n")

	for _, target := range v.service.Targets() {
		result := snap.Results[target.Key]
		line := fmt.Sprintf("  %-22s %s", target.Name, renderStatus(string(result.Status)))
		if detail := payloadSummary(result); detail != "" {
			line += "  " + systemStyle.Render(detail)
		}
		if result.Message != "" {
			line += "  " + errorStyle.Render(result.Message)
		}
		b.WriteString(line + "\n")
	}

	if len(snap.Providers) > 0 {
		b.WriteString("\n" + sectionTitleStyle.Render("Providers") + "\n")
		for _, p := range snap.Providers {
			mark := "✓"
			if !p.Available {
				mark = "✗"
			}
			line := fmt.Sprintf("  %s %-12s %-8s %d calls", mark, p.Name, p.Channel, p.TotalCalls)
			if p.LastError != "" {
				line += "  " + errorStyle.Render(p.LastError)
			}
			b.WriteString(line + "\n")
		}
	}

	if snap.Statistics != nil {
		b.WriteString("\n" + sectionTitleStyle.Render("Gateway usage") + "\n")
		b.WriteString(fmt.Sprintf("  %d calls, %.0f%% success\n",
			snap.Statistics.TotalCalls, snap.Statistics.OverallSuccessRate*100))
	}

	if len(snap.Runs) > 0 {
		b.WriteString("\n" + sectionTitleStyle.Render("Recent pipeline runs") + "\n")
		for _, run := range snap.Runs {
			b.WriteString(fmt.Sprintf("  %-10s %-10s %s  %d articles\n",
				run.ID, renderStatus(run.Status), run.CreatedAt, run.ArticlesCollected))
		}
	}

	b.WriteString("\n" + v.refreshLine())
	b.WriteString("\n" + helpStyle.Render("r: refresh now · tab: chat · ctrl+c: quit"))
	return b.String()
}

func (v *DashboardView) refreshLine() string {
	last := v.service.Snapshot().LastRefreshed
	if last.IsZero() {
		return systemStyle.Render("Refreshing...")
	}
	return systemStyle.Render(fmt.Sprintf("Last refreshed %s ago", time.Since(last).Round(time.Second)))
}

// payloadSummary extracts the selectively read health payload fields
func payloadSummary(result health.Result) string {
	if result.Payload == nil {
		return ""
	}
	var parts []string
	if v, ok := result.Payload["version"]; ok {
		parts = append(parts, fmt.Sprintf("v%v", v))
	}
	if v, ok := result.Payload["active_runs"]; ok {
		parts = append(parts, fmt.Sprintf("%v active runs", v))
	}
	avail, hasAvail := result.Payload["providers_available"]
	total, hasTotal := result.Payload["providers_total"]
	if hasAvail && hasTotal {
		parts = append(parts, fmt.Sprintf("%v/%v providers", avail, total))
	}
	return strings.Join(parts, ", ")
}

// Header returns the view's title line content
func (v *DashboardView) Header() string {
	return "Dashboard: service health"
}
