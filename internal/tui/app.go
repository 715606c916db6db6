package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/infopanel/internal/config"
	"github.com/1broseidon/infopanel/internal/ipc"
	"github.com/1broseidon/infopanel/internal/platform"
)

// Daemon is the part of the control socket client the TUI uses.
type Daemon interface {
	Ping() error
	Reload() error
	GetStatus() (*ipc.StatusData, error)
	GetMonitors() (*ipc.MonitorsData, error)
	ShowProfile(id string) error
	HideProfile(id string) error
	CloseProfile(id string) error
	Fullscreen(id string) error
}

var _ Daemon = (*ipc.Client)(nil)

// model is the root bubbletea model for the TUI.
type model struct {
	configPath string
	cfg        *config.Config
	loadErr    error
	client     Daemon

	// Tab navigation
	activeTab Tab

	// Sub-models
	generalTab  GeneralTab
	profilesTab ProfilesTab
	monitorsTab MonitorsTab

	// Save overlay
	originalConfig *config.Config
	saveOverlay    SaveOverlay

	daemon daemonState

	// Terminal dimensions
	width  int
	height int
}

func newModel(configPath string, client Daemon) model {
	m := model{
		configPath: configPath,
		client:     client,
		activeTab:  TabGeneral,
	}

	m.loadConfig()
	if m.cfg != nil {
		m.originalConfig = m.cfg.Clone()
	}

	m.generalTab = NewGeneralTab(m.cfg)
	m.profilesTab = NewProfilesTab(client, m.cfg)
	m.monitorsTab = NewMonitorsTab(m.cfg)

	m.refreshDaemon()
	return m
}

func (m *model) loadConfig() {
	var res *config.LoadResult
	var err error

	if m.configPath == "" {
		res, err = config.LoadWithSources()
	} else {
		res, err = config.LoadFromPath(m.configPath)
	}

	if err != nil {
		m.loadErr = err
		return
	}
	m.cfg = res.Config
}

// refreshDaemon re-reads monitors and open windows and pushes them into the
// tabs. A failed ping marks the daemon disconnected.
func (m *model) refreshDaemon() {
	var (
		monitors []platform.Display
		open     = map[string]bool{}
	)
	m.daemon = daemonState{}

	if m.client != nil && m.client.Ping() == nil {
		m.daemon.connected = true
		if status, err := m.client.GetStatus(); err == nil {
			m.daemon.frameRate = status.TargetFrameRate
			m.daemon.openWindows = len(status.Windows)
			for _, w := range status.Windows {
				open[w.ProfileID] = true
			}
		}
		if data, err := m.client.GetMonitors(); err == nil {
			monitors = displaysFromInfo(data.Monitors)
		}
	}

	m.profilesTab.SetDaemonState(monitors, open)
	m.monitorsTab.SetMonitors(monitors, m.daemon.connected)
}

// contentHeight returns the height available for tab content.
func (m model) contentHeight() int {
	// status bar (1) + tab bar (2 with margin) + help bar (1)
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// capturing reports whether a sub-model form owns the keyboard.
func (m model) capturing() bool {
	return (m.activeTab == TabGeneral && m.generalTab.editing) ||
		(m.activeTab == TabProfiles && m.profilesTab.editing)
}

func (m *model) resize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	subMsg := tea.WindowSizeMsg{Width: m.width, Height: m.contentHeight()}
	m.generalTab, _ = m.generalTab.Update(subMsg)
	m.profilesTab, _ = m.profilesTab.Update(subMsg)
	m.monitorsTab, _ = m.monitorsTab.Update(subMsg)
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Save overlay captures all input when active
	if m.saveOverlay.Active() {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			prevPhase := m.saveOverlay.phase
			m.saveOverlay = m.saveOverlay.Update(msg, m.cfg, m.configPath, m.client, m.daemon.connected)
			if prevPhase == savePreview && m.saveOverlay.SaveSucceeded() {
				m.originalConfig = m.cfg.Clone()
				m.refreshDaemon()
			}
		case tea.WindowSizeMsg:
			m.resize(msg)
		}
		return m, nil
	}

	switch msg := msg.(type) {
	case refreshDaemonMsg:
		m.refreshDaemon()
		return m, nil
	case tea.WindowSizeMsg:
		m.resize(msg)
		return m, nil
	case tea.KeyMsg:
		// ctrl+s triggers save overlay from any context (including form editing)
		if msg.String() == "ctrl+s" {
			if m.cfg != nil {
				m.saveOverlay.Show(m.originalConfig, m.cfg)
			}
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	}

	if !m.capturing() {
		if km, ok := msg.(tea.KeyMsg); ok {
			switch km.String() {
			case "q":
				return m, tea.Quit
			case "tab":
				m.activeTab = (m.activeTab + 1) % tabCount
				return m, nil
			case "shift+tab":
				m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
				return m, nil
			case "1":
				m.activeTab = TabGeneral
				return m, nil
			case "2":
				m.activeTab = TabProfiles
				return m, nil
			case "3":
				m.activeTab = TabMonitors
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.activeTab {
	case TabGeneral:
		m.generalTab, cmd = m.generalTab.Update(msg)
	case TabProfiles:
		m.profilesTab, cmd = m.profilesTab.Update(msg)
	case TabMonitors:
		m.monitorsTab, cmd = m.monitorsTab.Update(msg)
	}
	return m, cmd
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.daemon, m.width)
	tabBar := renderTabBar(m.activeTab, m.width)
	helpBar := renderHelpBar(m.width)

	usedHeight := lipgloss.Height(statusBar) + lipgloss.Height(tabBar) + lipgloss.Height(helpBar)
	contentHeight := m.height - usedHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	switch {
	case m.saveOverlay.Active():
		content = m.saveOverlay.View(m.width, contentHeight)
	case m.cfg == nil && m.loadErr != nil:
		content = renderEmpty("Config error: "+m.loadErr.Error(), m.width, contentHeight)
	default:
		switch m.activeTab {
		case TabGeneral:
			content = m.generalTab.View()
		case TabProfiles:
			content = m.profilesTab.View()
		case TabMonitors:
			content = m.monitorsTab.View()
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		statusBar,
		tabBar,
		content,
		helpBar,
	)
}
