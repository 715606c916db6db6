package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/infopanel/internal/config"
	"github.com/1broseidon/infopanel/internal/platform"
)

// MonitorsTab shows the attached monitors and which profiles currently
// resolve onto each of them.
type MonitorsTab struct {
	cfg       *config.Config
	monitors  []platform.Display
	connected bool

	width  int
	height int
}

func NewMonitorsTab(cfg *config.Config) MonitorsTab {
	return MonitorsTab{cfg: cfg}
}

// SetMonitors replaces the monitor snapshot.
func (mt *MonitorsTab) SetMonitors(monitors []platform.Display, connected bool) {
	mt.monitors = monitors
	mt.connected = connected
}

func (mt MonitorsTab) Update(msg tea.Msg) (MonitorsTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		mt.width = msg.Width
		mt.height = msg.Height
	case tea.KeyMsg:
		if msg.String() == "r" {
			return mt, requestRefresh
		}
	}
	return mt, nil
}

// assignments maps monitor name to the profiles placed on it. Profiles that
// resolve nowhere are listed under the empty name.
func assignments(cfg *config.Config, monitors []platform.Display) map[string][]string {
	out := make(map[string][]string)
	if cfg == nil {
		return out
	}
	for _, p := range cfg.Profiles {
		res := resolveProfile(p, cfg.GridSize, monitors)
		name := ""
		if res.found {
			name = res.monitor.Name
		}
		out[name] = append(out[name], fmt.Sprintf("%s (%s)", p.ID, res.kind))
	}
	return out
}

func (mt MonitorsTab) View() string {
	if !mt.connected {
		return renderEmpty("Monitors are reported by the daemon. Start it and press r.", mt.width, mt.height)
	}
	if len(mt.monitors) == 0 {
		return renderEmpty("The daemon reports no monitors", mt.width, mt.height)
	}

	nameStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	placed := assignments(mt.cfg, mt.monitors)

	var lines []string
	for _, m := range mt.monitors {
		b := m.Bounds
		lines = append(lines, nameStyle.Render(m.Name)+
			dimStyle.Render(fmt.Sprintf("  #%d  %d×%d at %d,%d", m.ID, b.Width, b.Height, b.X, b.Y)))
		profiles := placed[m.Name]
		if len(profiles) == 0 {
			lines = append(lines, dimStyle.Render("    no profiles"))
		} else {
			lines = append(lines, valueStyle.Render("    "+strings.Join(profiles, ", ")))
		}
		lines = append(lines, "")
	}
	if orphans := placed[""]; len(orphans) > 0 {
		lines = append(lines, warnStyle.Render("Unplaced: "+strings.Join(orphans, ", ")), "")
	}
	lines = append(lines, dimStyle.Render("r: refresh"))

	return lipgloss.NewStyle().
		Width(mt.width).
		Height(mt.height).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))
}
