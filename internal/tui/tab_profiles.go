package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/infopanel/internal/config"
	"github.com/1broseidon/infopanel/internal/platform"
)

// profileItem implements list.Item for the profile sidebar.
type profileItem struct {
	id      string
	name    string
	open    bool
	visible bool
}

func (i profileItem) Title() string {
	prefix := "  "
	if i.open {
		prefix = "* "
	}
	label := i.id
	if i.name != "" && i.name != i.id {
		label += " (" + i.name + ")"
	}
	if !i.visible {
		label += " [hidden]"
	}
	return prefix + label
}

func (i profileItem) Description() string { return "" }
func (i profileItem) FilterValue() string { return i.id }

// statusMsg is sent after an IPC action completes.
type statusMsg struct {
	text string
}

// clearStatusMsg clears the status message after a delay.
type clearStatusMsg struct{}

// refreshDaemonMsg asks the root model to re-read daemon state.
type refreshDaemonMsg struct{}

func clearStatusAfter() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearStatusMsg{}
	})
}

func requestRefresh() tea.Msg { return refreshDaemonMsg{} }

// ProfilesTab lists configured profiles, drives their windows through the
// daemon and edits their placement.
type ProfilesTab struct {
	list     list.Model
	client   Daemon
	cfg      *config.Config
	monitors []platform.Display
	open     map[string]bool

	statusText string

	editing bool
	editID  string
	form    *huh.Form

	f *profileForm

	width  int
	height int
	ready  bool
}

// profileForm holds the values huh edits for one profile.
type profileForm struct {
	name    string
	width   string
	height  string
	windowX string
	windowY string
	target  string
	strict  bool
	mode    string
	visible bool
}

// NewProfilesTab creates a new ProfilesTab sub-model.
func NewProfilesTab(client Daemon, cfg *config.Config) ProfilesTab {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Profiles"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	pt := ProfilesTab{
		list:   l,
		client: client,
		cfg:    cfg,
		open:   map[string]bool{},
	}
	pt.rebuildItems()
	return pt
}

func buildProfileItems(cfg *config.Config, open map[string]bool) []list.Item {
	if cfg == nil {
		return nil
	}
	items := make([]list.Item, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		items = append(items, profileItem{
			id:      p.ID,
			name:    p.Name,
			open:    open[p.ID],
			visible: p.Visible,
		})
	}
	return items
}

// SetDaemonState updates the monitors and open windows reported by the daemon.
func (pt *ProfilesTab) SetDaemonState(monitors []platform.Display, open map[string]bool) {
	pt.monitors = monitors
	if open == nil {
		open = map[string]bool{}
	}
	pt.open = open
	pt.rebuildItems()
}

func (pt *ProfilesTab) rebuildItems() {
	pt.list.SetItems(buildProfileItems(pt.cfg, pt.open))
}

// Update implements tea.Model.
func (pt ProfilesTab) Update(msg tea.Msg) (ProfilesTab, tea.Cmd) {
	if pt.editing {
		return pt.updateEditing(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		pt.width = msg.Width
		pt.height = msg.Height
		pt.updateListSize()
		pt.ready = true
		return pt, nil

	case statusMsg:
		pt.statusText = msg.text
		return pt, clearStatusAfter()

	case clearStatusMsg:
		pt.statusText = ""
		return pt, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "s":
			return pt.runAction("shown", Daemon.ShowProfile)
		case "h":
			return pt.runAction("hidden", Daemon.HideProfile)
		case "c":
			return pt.runAction("closed", Daemon.CloseProfile)
		case "f":
			return pt.runAction("fullscreen", Daemon.Fullscreen)
		case "r":
			return pt, requestRefresh
		case "e":
			if id := pt.selectedID(); id != "" {
				pt.startEditing(id)
				return pt, pt.form.Init()
			}
			return pt, nil
		case "n":
			if pt.cfg == nil {
				return pt, nil
			}
			id := pt.addProfile()
			pt.startEditing(id)
			return pt, pt.form.Init()
		}
	}

	var cmd tea.Cmd
	pt.list, cmd = pt.list.Update(msg)
	return pt, cmd
}

func (pt ProfilesTab) updateEditing(msg tea.Msg) (ProfilesTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			pt.editing = false
			pt.form = nil
			return pt, nil
		}
	case tea.WindowSizeMsg:
		pt.width = msg.Width
		pt.height = msg.Height
		pt.updateListSize()
	}

	form, cmd := pt.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		pt.form = f
	}

	if pt.form.State == huh.StateCompleted {
		pt.applyForm()
		pt.editing = false
		pt.form = nil
		pt.rebuildItems()
		pt.statusText = fmt.Sprintf("edited %s (ctrl-s to save)", pt.editID)
		return pt, clearStatusAfter()
	}

	return pt, cmd
}

func (pt ProfilesTab) runAction(verb string, fn func(Daemon, string) error) (ProfilesTab, tea.Cmd) {
	id := pt.selectedID()
	if id == "" {
		return pt, nil
	}
	if pt.client == nil {
		pt.statusText = "daemon not connected"
		return pt, clearStatusAfter()
	}
	if err := fn(pt.client, id); err != nil {
		pt.statusText = fmt.Sprintf("error: %v", err)
		return pt, clearStatusAfter()
	}
	pt.statusText = fmt.Sprintf("%s: %s", verb, id)
	return pt, tea.Batch(clearStatusAfter(), requestRefresh)
}

func (pt *ProfilesTab) addProfile() string {
	var id string
	for n := len(pt.cfg.Profiles) + 1; ; n++ {
		id = "panel-" + strconv.Itoa(n)
		if _, exists := pt.cfg.Profile(id); !exists {
			break
		}
	}
	p := config.DefaultProfile(id)
	if len(pt.monitors) > 0 {
		m := pt.monitors[0]
		p.Target = config.TargetConfig{
			Name: m.Name,
			Bounds: config.BoundsConfig{
				X:      m.Bounds.X,
				Y:      m.Bounds.Y,
				Width:  m.Bounds.Width,
				Height: m.Bounds.Height,
			},
		}
	}
	pt.cfg.Profiles = append(pt.cfg.Profiles, p)
	pt.rebuildItems()
	pt.list.Select(len(pt.cfg.Profiles) - 1)
	return id
}

func (pt *ProfilesTab) loadForm(p config.ProfileConfig) {
	pt.f = &profileForm{}
	pt.f.name = p.Name
	pt.f.width = strconv.Itoa(p.Width)
	pt.f.height = strconv.Itoa(p.Height)
	pt.f.windowX = strconv.Itoa(p.WindowX)
	pt.f.windowY = strconv.Itoa(p.WindowY)
	pt.f.target = p.Target.Name
	pt.f.strict = p.StrictMatching
	pt.f.mode = p.RenderMode
	pt.f.visible = p.Visible
}

func (pt *ProfilesTab) startEditing(id string) {
	p, ok := pt.cfg.Profile(id)
	if !ok {
		return
	}
	pt.editID = id
	pt.loadForm(p)

	targets := []huh.Option[string]{huh.NewOption("(unchanged) "+p.Target.Name, p.Target.Name)}
	for _, m := range pt.monitors {
		if m.Name != p.Target.Name {
			targets = append(targets, huh.NewOption(m.Name, m.Name))
		}
	}

	w := pt.width - 4
	if w < 40 {
		w = 40
	}

	pt.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("name").
				Title("Name").
				Value(&pt.f.name),
			huh.NewInput().
				Key("width").
				Title("Width").
				Validate(intInRange(1, 16384)).
				Value(&pt.f.width),
			huh.NewInput().
				Key("height").
				Title("Height").
				Validate(intInRange(1, 16384)).
				Value(&pt.f.height),
			huh.NewInput().
				Key("window_x").
				Title("Offset X").
				Description("Pixels from the monitor's left edge").
				Validate(intInRange(-16384, 16384)).
				Value(&pt.f.windowX),
			huh.NewInput().
				Key("window_y").
				Title("Offset Y").
				Description("Pixels from the monitor's top edge").
				Validate(intInRange(-16384, 16384)).
				Value(&pt.f.windowY),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("target").
				Title("Target Monitor").
				Options(targets...).
				Value(&pt.f.target),
			huh.NewConfirm().
				Key("strict_matching").
				Title("Strict Matching").
				Description("Only place the window on an exact name and size match").
				Value(&pt.f.strict),
			huh.NewSelect[string]().
				Key("render_mode").
				Title("Render Mode").
				Options(
					huh.NewOption(string(platform.RenderSoftware), string(platform.RenderSoftware)),
					huh.NewOption(string(platform.RenderAccelerated), string(platform.RenderAccelerated)),
				).
				Value(&pt.f.mode),
			huh.NewConfirm().
				Key("visible").
				Title("Visible").
				Description("Open the window when the daemon starts").
				Value(&pt.f.visible),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)

	pt.editing = true
}

func (pt *ProfilesTab) applyForm() {
	if pt.cfg == nil {
		return
	}
	p, ok := pt.cfg.Profile(pt.editID)
	if !ok {
		return
	}

	if name := strings.TrimSpace(pt.f.name); name != "" {
		p.Name = name
	}
	if v, err := strconv.Atoi(strings.TrimSpace(pt.f.width)); err == nil && v >= 1 {
		p.Width = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(pt.f.height)); err == nil && v >= 1 {
		p.Height = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(pt.f.windowX)); err == nil {
		p.WindowX = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(pt.f.windowY)); err == nil {
		p.WindowY = v
	}
	if pt.f.target != p.Target.Name {
		for _, m := range pt.monitors {
			if m.Name == pt.f.target {
				p.Target = config.TargetConfig{
					Name: m.Name,
					Bounds: config.BoundsConfig{
						X:      m.Bounds.X,
						Y:      m.Bounds.Y,
						Width:  m.Bounds.Width,
						Height: m.Bounds.Height,
					},
				}
				break
			}
		}
	}
	p.StrictMatching = pt.f.strict
	if pt.f.mode != "" {
		p.RenderMode = pt.f.mode
	}
	p.Visible = pt.f.visible

	pt.cfg.SetProfile(p)
}

func (pt *ProfilesTab) updateListSize() {
	// Reserve 2 lines for status bar at bottom of the tab content
	listHeight := pt.height - 2
	if listHeight < 1 {
		listHeight = 1
	}
	pt.list.SetSize(pt.sidebarWidth(), listHeight)
}

func (pt ProfilesTab) sidebarWidth() int {
	sw := pt.width * 35 / 100
	if sw < 20 {
		sw = 20
	}
	if sw > 40 {
		sw = 40
	}
	return sw
}

func (pt ProfilesTab) selectedID() string {
	item, ok := pt.list.SelectedItem().(profileItem)
	if !ok {
		return ""
	}
	return item.id
}

// View implements tea.Model.
func (pt ProfilesTab) View() string {
	if !pt.ready || pt.width == 0 || pt.height == 0 {
		return ""
	}
	if pt.cfg == nil {
		return renderEmpty("No config loaded", pt.width, pt.height)
	}
	if pt.editing && pt.form != nil {
		header := lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Render("Editing Profile "+pt.editID) +
			lipgloss.NewStyle().
				Foreground(lipgloss.Color("241")).
				Render("  (esc to cancel)")
		return lipgloss.NewStyle().
			Width(pt.width).
			Height(pt.height).
			Padding(1, 2).
			Render(header + "\n\n" + pt.form.View())
	}

	sidebarWidth := pt.sidebarWidth()
	previewWidth := pt.width - sidebarWidth - 3
	if previewWidth < 10 {
		previewWidth = 10
	}

	sidebar := lipgloss.NewStyle().
		Width(sidebarWidth).
		Height(pt.height - 2).
		Render(pt.list.View())

	sep := lipgloss.NewStyle().
		Foreground(lipgloss.Color("238")).
		Render(strings.Repeat("│\n", max(pt.height-2, 1)))

	columns := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " "+sep, pt.renderPreview(previewWidth))
	return lipgloss.JoinVertical(lipgloss.Left, columns, pt.renderTabStatus())
}

func (pt ProfilesTab) renderPreview(previewWidth int) string {
	id := pt.selectedID()
	p, ok := pt.cfg.Profile(id)
	if !ok {
		return ""
	}

	state := "closed"
	if pt.open[id] {
		state = "open"
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15")).
		Render(fmt.Sprintf(" %s  [%s, %s, %d items]", displayOrDefault(p.Name, p.ID), state, p.RenderMode, len(p.Items)))

	res := resolveProfile(p, pt.cfg.GridSize, pt.monitors)
	summary := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Render(" " + summarizePlacement(p, res, len(pt.monitors) > 0))

	mapHeight := pt.height - 6
	if mapHeight < 5 {
		mapHeight = 5
	}
	mapWidth := previewWidth - 2
	if mapWidth < 5 {
		mapWidth = 5
	}
	lines := renderPlacementMap(pt.monitors, res, p.ID, mapWidth, mapHeight)
	block := lipgloss.NewStyle().
		Foreground(lipgloss.Color("247")).
		Render(strings.Join(lines, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left, title, summary, "", block)
}

func (pt ProfilesTab) renderTabStatus() string {
	left := ""
	if pt.statusText != "" {
		left = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Render(pt.statusText)
	}

	right := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Render("enter/s:show  h:hide  c:close  f:fullscreen  e:edit  n:new  r:refresh")

	gap := pt.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Width(pt.width).
		Padding(0, 1).
		Render(left + strings.Repeat(" ", gap) + right)
}
