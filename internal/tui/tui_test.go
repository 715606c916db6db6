package tui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/infopanel/internal/config"
	"github.com/1broseidon/infopanel/internal/ipc"
	"github.com/1broseidon/infopanel/internal/placement"
	"github.com/1broseidon/infopanel/internal/platform"
)

type fakeDaemon struct {
	calls   []string
	down    bool
	fail    error
	windows []ipc.SessionInfo
}

func (f *fakeDaemon) Ping() error {
	if f.down {
		return errors.New("connection refused")
	}
	return nil
}

func (f *fakeDaemon) Reload() error {
	f.calls = append(f.calls, "reload")
	return f.fail
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	return &ipc.StatusData{TargetFrameRate: 30, DaemonRunning: true, Windows: f.windows}, nil
}

func (f *fakeDaemon) GetMonitors() (*ipc.MonitorsData, error) {
	return &ipc.MonitorsData{Monitors: []ipc.MonitorInfo{
		{ID: 0, Name: "DP-1", Width: 1920, Height: 1080},
		{ID: 1, Name: "HDMI-1", X: 1920, Width: 1920, Height: 1080},
	}}, nil
}

func (f *fakeDaemon) action(verb, id string) error {
	f.calls = append(f.calls, verb+" "+id)
	return f.fail
}

func (f *fakeDaemon) ShowProfile(id string) error { return f.action("show", id) }
func (f *fakeDaemon) HideProfile(id string) error { return f.action("hide", id) }
func (f *fakeDaemon) CloseProfile(id string) error { return f.action("close", id) }
func (f *fakeDaemon) Fullscreen(id string) error { return f.action("fullscreen", id) }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	dp1   = platform.Display{ID: 0, Name: "DP-1", Bounds: platform.Rect{Width: 1920, Height: 1080}}
	hdmi1 = platform.Display{ID: 1, Name: "HDMI-1", Bounds: platform.Rect{X: 1920, Width: 1920, Height: 1080}}
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	stats := config.DefaultProfile("stats")
	stats.WindowX, stats.WindowY = 100, 50
	stats.Target = config.TargetConfig{Name: "HDMI-1", Bounds: config.BoundsConfig{X: 1920, Width: 1920, Height: 1080}}
	cfg.SetProfile(stats)
	clock := config.DefaultProfile("clock")
	clock.Target = config.TargetConfig{Name: "eDP-1", Bounds: config.BoundsConfig{Width: 2560, Height: 1600}}
	clock.StrictMatching = true
	cfg.SetProfile(clock)
	return cfg
}

func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	return path
}

func TestComputeDiffLines(t *testing.T) {
	orig := testConfig()
	curr := orig.Clone()
	curr.TargetFrameRate = 30

	lines := computeDiffLines(orig, curr)
	var changed []string
	for _, l := range lines {
		switch l.kind {
		case diffAdded:
			changed = append(changed, "+"+l.text)
		case diffRemoved:
			changed = append(changed, "-"+l.text)
		}
	}
	want := []string{"-target_frame_rate: 60", "+target_frame_rate: 30"}
	if diff := cmp.Diff(want, changed); diff != "" {
		t.Fatalf("diff mismatch (-want +got):\n%s", diff)
	}

	if got := computeDiffLines(orig, orig.Clone()); got != nil {
		t.Fatalf("expected no diff for identical configs, got %v", got)
	}
}

func TestComputeDiffLines_SectionsByProfile(t *testing.T) {
	orig := testConfig()
	curr := orig.Clone()
	curr.Profiles = curr.Profiles[:1] // drop clock
	curr.Profiles[0].Width = 640
	curr.SetProfile(config.DefaultProfile("notes"))

	var sections []string
	for _, l := range computeDiffLines(orig, curr) {
		if l.kind == diffSection {
			sections = append(sections, l.text)
		}
	}
	want := []string{"profile stats", "profile notes (new)", "profile clock (removed)"}
	if diff := cmp.Diff(want, sections); diff != "" {
		t.Fatalf("sections mismatch (-want +got):\n%s", diff)
	}
}

func TestWithContext_CollapsesUnchangedRuns(t *testing.T) {
	a := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	b := []string{"a", "b", "c", "d", "e", "f", "g", "H"}
	got := lineDiff(a, b)
	var texts []string
	for _, l := range got {
		texts = append(texts, l.text)
	}
	want := []string{"...", "f", "g", "h", "H"}
	if diff := cmp.Diff(want, texts); diff != "" {
		t.Fatalf("context mismatch (-want +got):\n%s", diff)
	}
	if lineDiff(a, a) != nil {
		t.Fatalf("identical input should produce no diff")
	}
}

func TestGeneralTab_ApplyForm(t *testing.T) {
	cfg := config.DefaultConfig()
	g := NewGeneralTab(cfg)
	g.loadForm()
	g.f.frameRate = " 30 "
	g.f.gridSize = "nope"
	g.f.settleDelay = "500"
	g.f.logLevel = "debug"
	g.f.display = " :1 "
	g.f.paletteHotkey = " Mod4-p "
	g.f.paletteBackend = "rofi"
	g.applyForm()

	if cfg.TargetFrameRate != 30 || cfg.SettleDelayMs != 500 || cfg.LogLevel != "debug" || cfg.Display != ":1" {
		t.Fatalf("unexpected config after apply: %+v", cfg)
	}
	if cfg.GridSize != config.DefaultGridSize {
		t.Fatalf("invalid grid size should keep the old value, got %d", cfg.GridSize)
	}
	if cfg.PaletteHotkey != "Mod4-p" || cfg.PaletteBackend != "rofi" {
		t.Fatalf("palette settings not applied: %q %q", cfg.PaletteHotkey, cfg.PaletteBackend)
	}
	if err := intInRange(1, 240)("0"); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestProfilesTab_ApplyFormRetargets(t *testing.T) {
	cfg := testConfig()
	pt := NewProfilesTab(nil, cfg)
	pt.SetDaemonState([]platform.Display{dp1, hdmi1}, nil)
	pt.startEditing("stats")
	pt.f.width = "640"
	pt.f.windowX = "-20"
	pt.f.target = "DP-1"
	pt.f.visible = false
	pt.applyForm()

	got, _ := cfg.Profile("stats")
	if got.Width != 640 || got.WindowX != -20 || got.Visible {
		t.Fatalf("unexpected profile after apply: %+v", got)
	}
	want := config.TargetConfig{Name: "DP-1", Bounds: config.BoundsConfig{Width: 1920, Height: 1080}}
	if diff := cmp.Diff(want, got.Target); diff != "" {
		t.Fatalf("target mismatch (-want +got):\n%s", diff)
	}
}

func TestProfilesTab_Actions(t *testing.T) {
	d := &fakeDaemon{}
	pt := NewProfilesTab(d, testConfig())

	pt, _ = pt.Update(key("s"))
	pt, _ = pt.Update(key("f"))
	pt.list.Select(1)
	pt, _ = pt.Update(key("c"))
	if diff := cmp.Diff([]string{"show stats", "fullscreen stats", "close clock"}, d.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if pt.statusText != "closed: clock" {
		t.Fatalf("status = %q", pt.statusText)
	}

	d.fail = errors.New("profile \"clock\" is not open")
	pt, _ = pt.Update(key("h"))
	if !strings.Contains(pt.statusText, "is not open") {
		t.Fatalf("expected error status, got %q", pt.statusText)
	}

	offline := NewProfilesTab(nil, testConfig())
	offline, _ = offline.Update(key("s"))
	if offline.statusText != "daemon not connected" {
		t.Fatalf("status = %q", offline.statusText)
	}
}

func TestProfilesTab_NewProfileTargetsFirstMonitor(t *testing.T) {
	cfg := testConfig()
	pt := NewProfilesTab(nil, cfg)
	pt.SetDaemonState([]platform.Display{hdmi1}, nil)

	pt, _ = pt.Update(key("n"))
	if !pt.editing || pt.editID != "panel-3" {
		t.Fatalf("expected to edit panel-3, editing=%v id=%q", pt.editing, pt.editID)
	}
	p, ok := cfg.Profile("panel-3")
	if !ok || p.Target.Name != "HDMI-1" || p.Target.Bounds.X != 1920 {
		t.Fatalf("unexpected new profile %+v", p)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("new profile should validate: %v", err)
	}
}

func TestResolveAndSummarizePlacement(t *testing.T) {
	cfg := testConfig()
	monitors := []platform.Display{dp1, hdmi1}

	stats, _ := cfg.Profile("stats")
	res := resolveProfile(stats, cfg.GridSize, monitors)
	if !res.found || res.kind != placement.MatchExact || res.window != (platform.Rect{X: 2020, Y: 50, Width: 320, Height: 200}) {
		t.Fatalf("unexpected placement %+v", res)
	}
	if got := summarizePlacement(stats, res, true); !strings.HasPrefix(got, "exact match on HDMI-1") {
		t.Fatalf("summary = %q", got)
	}

	clock, _ := cfg.Profile("clock")
	res = resolveProfile(clock, cfg.GridSize, monitors)
	if res.found {
		t.Fatalf("strict profile with no exact match must not be placed: %+v", res)
	}
	if got := summarizePlacement(clock, res, true); !strings.Contains(got, "(strict)") {
		t.Fatalf("summary = %q", got)
	}
	if got := summarizePlacement(clock, res, false); !strings.HasPrefix(got, "monitors unknown") {
		t.Fatalf("summary = %q", got)
	}
}

func TestRenderPlacementMap(t *testing.T) {
	res := placementResult{found: true, window: platform.Rect{X: 2020, Y: 50, Width: 960, Height: 540}}
	lines := renderPlacementMap([]platform.Display{dp1, hdmi1}, res, "stats", 40, 10)
	if len(lines) != 10 {
		t.Fatalf("got %d lines", len(lines))
	}
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"DP-1", "HDMI-1", "stats", "╔", "┌"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("map missing %q:\n%s", want, joined)
		}
	}
	if !strings.HasPrefix(lines[0], "┌") {
		t.Fatalf("first monitor should start at the top-left corner:\n%s", joined)
	}

	empty := renderPlacementMap(nil, res, "stats", 10, 3)
	if diff := cmp.Diff([]string{"          ", "          ", "          "}, empty); diff != "" {
		t.Fatalf("empty map mismatch (-want +got):\n%s", diff)
	}
}

func TestAssignments(t *testing.T) {
	got := assignments(testConfig(), []platform.Display{dp1, hdmi1})
	want := map[string][]string{
		"HDMI-1": {"stats (exact)"},
		"":       {"clock (none)"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("assignments mismatch (-want +got):\n%s", diff)
	}
}

func TestModel_RefreshAndTabs(t *testing.T) {
	path := writeConfig(t, testConfig())
	d := &fakeDaemon{windows: []ipc.SessionInfo{{ProfileID: "stats"}}}
	m := newModel(path, d)

	if !m.daemon.connected || m.daemon.openWindows != 1 || m.daemon.frameRate != 30 {
		t.Fatalf("unexpected daemon state %+v", m.daemon)
	}
	if !m.profilesTab.open["stats"] || len(m.monitorsTab.monitors) != 2 {
		t.Fatalf("tabs not refreshed: open=%v monitors=%d", m.profilesTab.open, len(m.monitorsTab.monitors))
	}

	next, _ := m.Update(key("3"))
	m = next.(model)
	if m.activeTab != TabMonitors {
		t.Fatalf("activeTab = %v", m.activeTab)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	m = next.(model)
	if m.activeTab != TabProfiles {
		t.Fatalf("activeTab = %v", m.activeTab)
	}

	d.down = true
	next, _ = m.Update(refreshDaemonMsg{})
	m = next.(model)
	if m.daemon.connected || len(m.profilesTab.monitors) != 0 {
		t.Fatalf("expected disconnected state, got %+v", m.daemon)
	}
}

func TestModel_SaveWritesAndReloads(t *testing.T) {
	path := writeConfig(t, testConfig())
	d := &fakeDaemon{}
	m := newModel(path, d)
	m.cfg.TargetFrameRate = 90

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	m = next.(model)
	if !m.saveOverlay.Active() {
		t.Fatalf("save overlay should be open")
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(model)
	if !m.saveOverlay.SaveSucceeded() || !m.saveOverlay.reloaded {
		t.Fatalf("save failed: %v", m.saveOverlay.err)
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if res.Config.TargetFrameRate != 90 {
		t.Fatalf("saved frame rate = %d", res.Config.TargetFrameRate)
	}
	if diff := cmp.Diff([]string{"reload"}, d.calls); diff != "" {
		t.Fatalf("calls mismatch (-want +got):\n%s", diff)
	}
	if got := computeDiffLines(m.originalConfig, m.cfg); got != nil {
		t.Fatalf("original snapshot should match after save, diff=%v", got)
	}
}
