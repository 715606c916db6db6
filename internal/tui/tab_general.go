package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/infopanel/internal/config"
)

// GeneralTab is the sub-model for the General settings tab.
type GeneralTab struct {
	cfg *config.Config

	// Display dimensions
	width  int
	height int

	// Edit mode
	editing bool
	form    *huh.Form

	// Form-bound values. Held behind a pointer so the form keeps writing
	// to the same fields as the tab is copied through Update.
	f *generalForm
}

// generalForm holds the strings huh edits; they are converted on submit.
type generalForm struct {
	frameRate      string
	gridSize       string
	settleDelay    string
	reconcile      string
	toggleHotkey   string
	editHotkey     string
	paletteHotkey  string
	paletteBackend string
	logLevel       string
	display        string
}

// NewGeneralTab creates a GeneralTab from the loaded config.
func NewGeneralTab(cfg *config.Config) GeneralTab {
	return GeneralTab{cfg: cfg}
}

// SetConfig updates the config reference.
func (g *GeneralTab) SetConfig(cfg *config.Config) {
	g.cfg = cfg
}

// Update implements tea.Model.
func (g GeneralTab) Update(msg tea.Msg) (GeneralTab, tea.Cmd) {
	if g.editing {
		return g.updateEditing(msg)
	}
	return g.updateDisplay(msg)
}

func (g GeneralTab) updateDisplay(msg tea.Msg) (GeneralTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "e" && g.cfg != nil {
			g.startEditing()
			return g, g.form.Init()
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	}
	return g, nil
}

func (g GeneralTab) updateEditing(msg tea.Msg) (GeneralTab, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "esc" {
			g.editing = false
			g.form = nil
			return g, nil
		}
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	}

	form, cmd := g.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		g.form = f
	}

	if g.form.State == huh.StateCompleted {
		g.applyForm()
		g.editing = false
		g.form = nil
		return g, nil
	}

	return g, cmd
}

func (g *GeneralTab) loadForm() {
	cfg := g.cfg
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	g.f = &generalForm{}
	g.f.frameRate = strconv.Itoa(cfg.TargetFrameRate)
	g.f.gridSize = strconv.Itoa(cfg.GridSize)
	g.f.settleDelay = strconv.Itoa(cfg.SettleDelayMs)
	g.f.reconcile = strconv.Itoa(cfg.ReconcileInterval)
	g.f.toggleHotkey = cfg.ToggleHotkey
	g.f.editHotkey = cfg.EditHotkey
	g.f.paletteHotkey = cfg.PaletteHotkey
	g.f.paletteBackend = displayOrDefault(cfg.PaletteBackend, "auto")
	g.f.logLevel = strings.ToLower(cfg.LogLevel)
	g.f.display = cfg.Display
}

func (g *GeneralTab) startEditing() {
	g.loadForm()

	levels := []huh.Option[string]{
		huh.NewOption("debug", "debug"),
		huh.NewOption("info", "info"),
		huh.NewOption("warn", "warn"),
		huh.NewOption("error", "error"),
	}

	backends := []huh.Option[string]{
		huh.NewOption("auto", "auto"),
		huh.NewOption("rofi", "rofi"),
		huh.NewOption("fuzzel", "fuzzel"),
		huh.NewOption("wofi", "wofi"),
		huh.NewOption("dmenu", "dmenu"),
	}

	w := g.width - 4
	if w < 40 {
		w = 40
	}

	g.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("target_frame_rate").
				Title("Target Frame Rate").
				Description("Frames per second for every panel window (1-240)").
				Validate(intInRange(1, 240)).
				Value(&g.f.frameRate),

			huh.NewInput().
				Key("grid_size").
				Title("Grid Size").
				Description("Snap grid in pixels for drag and resize").
				Validate(intInRange(1, 1024)).
				Value(&g.f.gridSize),

			huh.NewInput().
				Key("settle_delay_ms").
				Title("Settle Delay (ms)").
				Description("Quiet period before a user resize is committed").
				Validate(intInRange(0, 60000)).
				Value(&g.f.settleDelay),

			huh.NewInput().
				Key("reconcile_interval").
				Title("Reconcile Interval (s)").
				Description("Period of the background placement pass").
				Validate(intInRange(0, 3600)).
				Value(&g.f.reconcile),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("toggle_hotkey").
				Title("Toggle Hotkey").
				Description("Show or hide every panel").
				Value(&g.f.toggleHotkey),

			huh.NewInput().
				Key("edit_hotkey").
				Title("Edit Hotkey").
				Description("Clear the current selection in every panel").
				Value(&g.f.editHotkey),

			huh.NewInput().
				Key("palette_hotkey").
				Title("Palette Hotkey").
				Description("Open the profile launcher (empty to disable)").
				Value(&g.f.paletteHotkey),

			huh.NewSelect[string]().
				Key("palette_backend").
				Title("Palette Backend").
				Options(backends...).
				Value(&g.f.paletteBackend),

			huh.NewSelect[string]().
				Key("log_level").
				Title("Log Level").
				Options(levels...).
				Value(&g.f.logLevel),

			huh.NewInput().
				Key("display").
				Title("X Display").
				Description("Leave empty to detect").
				Value(&g.f.display),
		),
	).WithWidth(w).WithShowHelp(true).WithShowErrors(true)

	g.editing = true
}

func intInRange(lo, hi int) func(string) error {
	return func(s string) error {
		v, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		if v < lo || v > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}

func (g *GeneralTab) applyForm() {
	if g.cfg == nil {
		return
	}

	if v, err := strconv.Atoi(strings.TrimSpace(g.f.frameRate)); err == nil && v >= 1 {
		g.cfg.TargetFrameRate = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(g.f.gridSize)); err == nil && v >= 1 {
		g.cfg.GridSize = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(g.f.settleDelay)); err == nil && v >= 0 {
		g.cfg.SettleDelayMs = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(g.f.reconcile)); err == nil && v >= 0 {
		g.cfg.ReconcileInterval = v
	}
	if g.f.toggleHotkey != "" {
		g.cfg.ToggleHotkey = strings.TrimSpace(g.f.toggleHotkey)
	}
	if g.f.editHotkey != "" {
		g.cfg.EditHotkey = strings.TrimSpace(g.f.editHotkey)
	}
	g.cfg.PaletteHotkey = strings.TrimSpace(g.f.paletteHotkey)
	if g.f.paletteBackend != "" {
		g.cfg.PaletteBackend = g.f.paletteBackend
	}
	if g.f.logLevel != "" {
		g.cfg.LogLevel = g.f.logLevel
	}
	g.cfg.Display = strings.TrimSpace(g.f.display)
}

// View implements tea.Model.
func (g GeneralTab) View() string {
	if g.editing && g.form != nil {
		return g.viewEditing()
	}
	return g.viewDisplay()
}

func (g GeneralTab) viewDisplay() string {
	cfg := g.cfg
	if cfg == nil {
		return renderEmpty("No config loaded", g.width, g.height)
	}

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		Width(22).
		Align(lipgloss.Right).
		PaddingRight(2)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Bold(true)

	dimStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	lines := []string{
		"",
		row("Toggle Hotkey", displayOrDefault(cfg.ToggleHotkey, "(none)")),
		row("Edit Hotkey", displayOrDefault(cfg.EditHotkey, "(none)")),
		row("Palette Hotkey", displayOrDefault(cfg.PaletteHotkey, "(none)")),
		row("Palette Backend", displayOrDefault(cfg.PaletteBackend, "auto")),
		"",
		row("Target Frame Rate", fmt.Sprintf("%d fps", cfg.TargetFrameRate)),
		row("Grid Size", fmt.Sprintf("%d px", cfg.GridSize)),
		row("Settle Delay", cfg.SettleDelay().String()),
		row("Reconcile Interval", cfg.ReconcileEvery().String()),
		"",
		row("Profiles", strconv.Itoa(len(cfg.Profiles))),
		row("X Display", displayOrDefault(cfg.Display, "(auto)")),
		row("Log Level", cfg.LogLevel),
		"",
		dimStyle.Render("  Press 'e' to edit settings"),
	}

	contentStyle := lipgloss.NewStyle().
		Width(g.width).
		Height(g.height).
		Padding(1, 2)

	return contentStyle.Render(strings.Join(lines, "\n"))
}

func (g GeneralTab) viewEditing() string {
	header := lipgloss.NewStyle().
		Foreground(lipgloss.Color("62")).
		Bold(true).
		Render("Editing General Settings") +
		lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("  (esc to cancel)")

	style := lipgloss.NewStyle().
		Width(g.width).
		Height(g.height).
		Padding(1, 2)

	return style.Render(header + "\n\n" + g.form.View())
}

func displayOrDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
