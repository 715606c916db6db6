package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/infopanel/internal/canvas"
	"github.com/1broseidon/infopanel/internal/platform"
	"github.com/1broseidon/infopanel/internal/profile"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if cfg.TargetFrameRate != DefaultTargetFrameRate {
		t.Fatalf("expected target_frame_rate %d, got %d", DefaultTargetFrameRate, cfg.TargetFrameRate)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), res.Config); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if len(res.Files) != 0 {
		t.Fatalf("expected no files loaded, got %v", res.Files)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "# empty\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.GridSize != DefaultGridSize {
		t.Fatalf("expected grid_size %d, got %d", DefaultGridSize, res.Config.GridSize)
	}
}

func TestLoadFromPath_ProfileDefaultsAndOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
grid_size: 4
profiles:
  - id: stats
    width: 400
    height: 300
    window_x: 100
    window_y: 50
    target:
      name: HDMI-1
      bounds: {x: 1920, y: 0, width: 2560, height: 1440}
    render_mode: Accelerated
    items:
      - id: bg
        kind: rect
        width: 400
        height: 300
        color: "#202020"
      - id: cpu
        kind: group
        children:
          - id: cpu-label
            kind: text
            text: CPU
  - id: clock
    drag: false
    visible: false
`)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := []ProfileConfig{
		{
			ID: "stats", Name: "stats",
			Width: 400, Height: 300, WindowX: 100, WindowY: 50,
			Target: TargetConfig{
				Name:   "HDMI-1",
				Bounds: BoundsConfig{X: 1920, Width: 2560, Height: 1440},
			},
			Drag: true, Resize: true,
			RenderMode: "accelerated", FontScale: 1, Visible: true,
			Items: []ItemConfig{
				{ID: "bg", Kind: "rect", Width: 400, Height: 300, Color: "#202020"},
				{ID: "cpu", Kind: "group", Children: []ItemConfig{
					{ID: "cpu-label", Kind: "text", Text: "CPU"},
				}},
			},
		},
		{
			ID: "clock", Name: "clock",
			Width: DefaultProfileWidth, Height: DefaultProfileHeight,
			Drag: false, Resize: true,
			RenderMode: "software", FontScale: 1, Visible: false,
		},
	}
	if diff := cmp.Diff(want, res.Config.Profiles); diff != "" {
		t.Fatalf("profiles mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "profiles:\n  - id: a\n    colour: red\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "colour") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_IncludeDirectoryOrderAndMainOverrides(t *testing.T) {
	dir := t.TempDir()

	// config.d loaded first, in sorted order.
	writeFile(t, filepath.Join(dir, "config.d", "10-base.yaml"), `
target_frame_rate: 30
profiles:
  - id: stats
    width: 200
    height: 100
    strict_matching: true
`)
	writeFile(t, filepath.Join(dir, "config.d", "20-override.yaml"), "target_frame_rate: 45\n")

	// Main file overrides includes.
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, `
include:
  - config.d
profiles:
  - id: stats
    width: 640
  - id: extra
`)

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.TargetFrameRate != 45 {
		t.Fatalf("expected target_frame_rate 45, got %d", res.Config.TargetFrameRate)
	}
	if len(res.Config.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(res.Config.Profiles))
	}
	stats := res.Config.Profiles[0]
	if stats.ID != "stats" || stats.Width != 640 || stats.Height != 100 || !stats.StrictMatching {
		t.Fatalf("expected merged stats profile, got %+v", stats)
	}
	if len(res.Files) != 3 {
		t.Fatalf("expected 3 files, got %v", res.Files)
	}

	_, src, err := Explain(res, "profiles.stats.height")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if src.Kind != SourceFile || !strings.HasSuffix(src.File, "10-base.yaml") {
		t.Fatalf("expected height to come from 10-base.yaml, got %#v", src)
	}
}

func TestLoadFromPath_IncludeMissingPathHasContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "include:\n  - missing.yaml\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "include") || !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("expected include error, got %v", err)
	}
	if !strings.Contains(err.Error(), path+":") {
		t.Fatalf("expected error to include file:line:col prefix, got %v", err)
	}
}

func TestLoadFromPath_IncludeCycleDetection(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	writeFile(t, a, "include: b.yaml\n")
	writeFile(t, b, "include: a.yaml\n")

	_, err := LoadFromPath(a)
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestLoadFromPath_ValidationErrorHasSourceContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, `
profiles:
  - id: stats
    items:
      - id: bg
        kind: rect
        color: "#zz"
`)

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	if verr.Path != "profiles.stats.items.bg.color" {
		t.Fatalf("expected path profiles.stats.items.bg.color, got %q", verr.Path)
	}
	if verr.Source.Kind != SourceFile || verr.Source.Line != 7 {
		t.Fatalf("expected source at line 7, got %#v", verr.Source)
	}
	if !strings.HasPrefix(err.Error(), verr.Source.File+":7:") {
		t.Fatalf("expected file:line:col prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		path   string
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"frame rate zero", func(c *Config) { c.TargetFrameRate = 0 }, "target_frame_rate"},
		{"frame rate too high", func(c *Config) { c.TargetFrameRate = 1000 }, "target_frame_rate"},
		{"grid", func(c *Config) { c.GridSize = 0 }, "grid_size"},
		{"palette backend", func(c *Config) { c.PaletteBackend = "zenity" }, "palette_backend"},
		{"empty profile id", func(c *Config) { c.Profiles[0].ID = "" }, "profiles.0.id"},
		{"duplicate profile", func(c *Config) { c.Profiles = append(c.Profiles, c.Profiles[0]) }, "profiles.p.id"},
		{"width", func(c *Config) { c.Profiles[0].Width = 0 }, "profiles.p.width"},
		{"height", func(c *Config) { c.Profiles[0].Height = 20000 }, "profiles.p.height"},
		{"render mode", func(c *Config) { c.Profiles[0].RenderMode = "opengl" }, "profiles.p.render_mode"},
		{"font scale", func(c *Config) { c.Profiles[0].FontScale = 0 }, "profiles.p.font_scale"},
		{"background", func(c *Config) { c.Profiles[0].Background = "blue" }, "profiles.p.background"},
		{"item kind", func(c *Config) { c.Profiles[0].Items[0].Kind = "circle" }, "profiles.p.items.a.kind"},
		{"duplicate item", func(c *Config) {
			c.Profiles[0].Items[1].Children[0].ID = "a"
		}, "profiles.p.items.g.children.a.id"},
		{"children on non-group", func(c *Config) {
			c.Profiles[0].Items[0].Children = []ItemConfig{{ID: "x", Kind: "rect"}}
		}, "profiles.p.items.a.children"},
		{"image without path", func(c *Config) {
			c.Profiles[0].Items[0].Kind = "image"
		}, "profiles.p.items.a.image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			p := DefaultProfile("p")
			p.Items = []ItemConfig{
				{ID: "a", Kind: "rect"},
				{ID: "g", Kind: "group", Children: []ItemConfig{{ID: "c", Kind: "text"}}},
			}
			cfg.Profiles = []ProfileConfig{p}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("base config invalid: %v", err)
			}

			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("expected path %q, got %q (%v)", tt.path, verr.Path, err)
			}
		})
	}
}

func TestProfileRoundTrip(t *testing.T) {
	pc := DefaultProfile("stats")
	pc.Width, pc.Height = 400, 300
	pc.WindowX, pc.WindowY = 100, 50
	pc.Target = TargetConfig{Name: "HDMI-1", Bounds: BoundsConfig{X: 1920, Width: 2560, Height: 1440}}
	pc.Items = []ItemConfig{
		{ID: "g", Kind: "group", Children: []ItemConfig{{ID: "t", Kind: "text", Text: "hi", Locked: true}}},
	}

	p := pc.ToProfile(8)
	if p.GridSize != 8 {
		t.Fatalf("expected inherited grid size 8, got %d", p.GridSize)
	}
	if p.Visibility != profile.VisibilityShown {
		t.Fatalf("expected shown, got %q", p.Visibility)
	}
	if p.Target.Bounds != (platform.Rect{X: 1920, Width: 2560, Height: 1440}) {
		t.Fatalf("unexpected target bounds %+v", p.Target.Bounds)
	}
	if len(p.Items) != 1 || p.Items[0].Kind != canvas.KindGroup || len(p.Items[0].Children) != 1 {
		t.Fatalf("unexpected items %+v", p.Items)
	}

	got := FromProfile(p, 8)
	if diff := cmp.Diff(pc, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestFromProfile_KeepsOwnGridSize(t *testing.T) {
	p := DefaultProfile("a").ToProfile(8)
	p.GridSize = 16
	if got := FromProfile(p, 8).GridSize; got != 16 {
		t.Fatalf("expected grid size 16 to be kept, got %d", got)
	}
}

func TestSaveTo_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.TargetFrameRate = 30
	p := DefaultProfile("stats")
	p.Items = []ItemConfig{{ID: "bg", Kind: "rect", Width: 10, Height: 10, Color: "#fff"}}
	cfg.SetProfile(p)

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load saved: %v", err)
	}
	if diff := cmp.Diff(cfg, res.Config, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("saved config mismatch (-want +got):\n%s", diff)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only config.yaml, got %d entries", len(entries))
	}
}

func TestSaveTo_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.GridSize = -1

	if err := cfg.SaveTo(path); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no file written, stat err=%v", err)
	}
}

func TestSetProfileReplacesByID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetProfile(DefaultProfile("a"))
	cfg.SetProfile(DefaultProfile("b"))

	a := DefaultProfile("a")
	a.Width = 999
	cfg.SetProfile(a)

	if len(cfg.Profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(cfg.Profiles))
	}
	got, ok := cfg.Profile("a")
	if !ok || got.Width != 999 {
		t.Fatalf("expected replaced profile a, got %+v ok=%v", got, ok)
	}
}

func TestClone_IsDeep(t *testing.T) {
	cfg := DefaultConfig()
	p := DefaultProfile("a")
	p.Items = []ItemConfig{{ID: "g", Kind: "group", Children: []ItemConfig{{ID: "c", Kind: "rect"}}}}
	cfg.SetProfile(p)

	clone := cfg.Clone()
	clone.Profiles[0].Items[0].Children[0].X = 50

	if cfg.Profiles[0].Items[0].Children[0].X != 0 {
		t.Fatalf("expected original to be unchanged")
	}
}

func TestExplain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "profiles:\n  - id: stats\n    width: 500\n")

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	val, src, err := Explain(res, "profiles.stats.width")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != 500 || src.Kind != SourceFile || src.Line != 3 {
		t.Fatalf("unexpected explain result %v %#v", val, src)
	}

	val, src, err = Explain(res, "target_frame_rate")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != DefaultTargetFrameRate || src.Kind != SourceDefault {
		t.Fatalf("expected default frame rate, got %v %#v", val, src)
	}

	val, _, err = Explain(res, "profiles.stats.grid_size")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != DefaultGridSize {
		t.Fatalf("expected inherited grid size, got %v", val)
	}

	if _, _, err := Explain(res, "profiles.nope.width"); err == nil {
		t.Fatalf("expected unknown profile error")
	}
	if _, _, err := Explain(res, "hotkey"); err == nil {
		t.Fatalf("expected unknown path error")
	}
}
