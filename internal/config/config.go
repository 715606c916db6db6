package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/1broseidon/infopanel/internal/canvas"
	"github.com/1broseidon/infopanel/internal/platform"
	"github.com/1broseidon/infopanel/internal/profile"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTargetFrameRate   = 60
	DefaultGridSize          = 8
	DefaultSettleDelayMs     = 300
	DefaultReconcileInterval = 10
	DefaultProfileWidth      = 320
	DefaultProfileHeight     = 200

	maxFrameRate = 240
	maxDimension = 16384
)

// BoundsConfig is a rectangle in screen coordinates.
type BoundsConfig struct {
	X      int `yaml:"x"`
	Y      int `yaml:"y"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// TargetConfig is the saved descriptor of the monitor a profile belongs to.
type TargetConfig struct {
	Name   string       `yaml:"name,omitempty"`
	Bounds BoundsConfig `yaml:"bounds"`
}

// ItemConfig is one visual item. Children are only valid on groups.
type ItemConfig struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name,omitempty"`
	Kind     string       `yaml:"kind"`
	X        int          `yaml:"x"`
	Y        int          `yaml:"y"`
	Width    int          `yaml:"width"`
	Height   int          `yaml:"height"`
	Hidden   bool         `yaml:"hidden,omitempty"`
	Locked   bool         `yaml:"locked,omitempty"`
	Color    string       `yaml:"color,omitempty"`
	Text     string       `yaml:"text,omitempty"`
	Image    string       `yaml:"image,omitempty"`
	Children []ItemConfig `yaml:"children,omitempty"`
}

// ProfileConfig is the persisted form of one profile.
type ProfileConfig struct {
	ID             string       `yaml:"id"`
	Name           string       `yaml:"name,omitempty"`
	Width          int          `yaml:"width"`
	Height         int          `yaml:"height"`
	WindowX        int          `yaml:"window_x"`
	WindowY        int          `yaml:"window_y"`
	Target         TargetConfig `yaml:"target"`
	StrictMatching bool         `yaml:"strict_matching"`
	Drag           bool         `yaml:"drag"`
	Resize         bool         `yaml:"resize"`
	RenderMode     string       `yaml:"render_mode"`
	FontScale      float64      `yaml:"font_scale"`
	GridSize       int          `yaml:"grid_size,omitempty"`
	Background     string       `yaml:"background,omitempty"`
	Visible        bool         `yaml:"visible"`
	Items          []ItemConfig `yaml:"items,omitempty"`
}

// Config holds the application configuration.
type Config struct {
	Display           string          `yaml:"display,omitempty"`
	LogLevel          string          `yaml:"log_level"`
	TargetFrameRate   int             `yaml:"target_frame_rate"`
	GridSize          int             `yaml:"grid_size"`
	SettleDelayMs     int             `yaml:"settle_delay_ms"`
	ReconcileInterval int             `yaml:"reconcile_interval"`
	ToggleHotkey      string          `yaml:"toggle_hotkey"`
	EditHotkey        string          `yaml:"edit_hotkey"`
	PaletteHotkey     string          `yaml:"palette_hotkey,omitempty"`
	PaletteBackend    string          `yaml:"palette_backend"`
	Profiles          []ProfileConfig `yaml:"profiles"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		TargetFrameRate:   DefaultTargetFrameRate,
		GridSize:          DefaultGridSize,
		SettleDelayMs:     DefaultSettleDelayMs,
		ReconcileInterval: DefaultReconcileInterval,
		ToggleHotkey:      "Mod4-Mod1-i",
		EditHotkey:        "Mod4-Mod1-e",
		PaletteBackend:    "auto",
	}
}

// DefaultProfile returns the values a profile starts from before its own
// keys are applied.
func DefaultProfile(id string) ProfileConfig {
	return ProfileConfig{
		ID:         id,
		Name:       id,
		Width:      DefaultProfileWidth,
		Height:     DefaultProfileHeight,
		Drag:       true,
		Resize:     true,
		RenderMode: string(platform.RenderSoftware),
		FontScale:  1,
		Visible:    true,
	}
}

// SettleDelay is the quiet period after the last user resize event.
func (c *Config) SettleDelay() time.Duration {
	if c == nil || c.SettleDelayMs <= 0 {
		return DefaultSettleDelayMs * time.Millisecond
	}
	return time.Duration(c.SettleDelayMs) * time.Millisecond
}

// ReconcileEvery is the period of the background placement pass.
func (c *Config) ReconcileEvery() time.Duration {
	if c == nil || c.ReconcileInterval <= 0 {
		return DefaultReconcileInterval * time.Second
	}
	return time.Duration(c.ReconcileInterval) * time.Second
}

// Profile returns the profile with the given id.
func (c *Config) Profile(id string) (ProfileConfig, bool) {
	for _, p := range c.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return ProfileConfig{}, false
}

// SetProfile replaces the profile with the same id, or appends it.
func (c *Config) SetProfile(p ProfileConfig) {
	for i := range c.Profiles {
		if c.Profiles[i].ID == p.ID {
			c.Profiles[i] = p
			return
		}
	}
	c.Profiles = append(c.Profiles, p)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Profiles = make([]ProfileConfig, len(c.Profiles))
	for i, p := range c.Profiles {
		p.Items = cloneItemConfigs(p.Items)
		out.Profiles[i] = p
	}
	return &out
}

func cloneItemConfigs(items []ItemConfig) []ItemConfig {
	if items == nil {
		return nil
	}
	out := make([]ItemConfig, len(items))
	for i, it := range items {
		it.Children = cloneItemConfigs(it.Children)
		out[i] = it
	}
	return out
}

// ToProfile converts a profile entry into the runtime form. globalGrid is
// used when the profile has no grid size of its own.
func (p ProfileConfig) ToProfile(globalGrid int) *profile.Profile {
	grid := p.GridSize
	if grid <= 0 {
		grid = globalGrid
	}
	vis := profile.VisibilityShown
	if !p.Visible {
		vis = profile.VisibilityHidden
	}
	return &profile.Profile{
		ID:      p.ID,
		Name:    p.Name,
		Width:   p.Width,
		Height:  p.Height,
		WindowX: p.WindowX,
		WindowY: p.WindowY,
		Target: profile.Target{
			Name: p.Target.Name,
			Bounds: platform.Rect{
				X:      p.Target.Bounds.X,
				Y:      p.Target.Bounds.Y,
				Width:  p.Target.Bounds.Width,
				Height: p.Target.Bounds.Height,
			},
		},
		StrictMatching: p.StrictMatching,
		Drag:           p.Drag,
		Resize:         p.Resize,
		RenderMode:     platform.RenderMode(p.RenderMode),
		FontScale:      p.FontScale,
		GridSize:       grid,
		Visibility:     vis,
		Background:     p.Background,
		Items:          toItems(p.Items),
	}
}

func toItems(items []ItemConfig) []*canvas.Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]*canvas.Item, 0, len(items))
	for _, it := range items {
		out = append(out, &canvas.Item{
			ID:       it.ID,
			Name:     it.Name,
			Kind:     canvas.Kind(it.Kind),
			X:        it.X,
			Y:        it.Y,
			Width:    it.Width,
			Height:   it.Height,
			Hidden:   it.Hidden,
			Locked:   it.Locked,
			Color:    it.Color,
			Text:     it.Text,
			Image:    it.Image,
			Children: toItems(it.Children),
		})
	}
	return out
}

// FromProfile converts a runtime profile back into its persisted form. The
// grid size is only kept when it differs from globalGrid.
func FromProfile(p *profile.Profile, globalGrid int) ProfileConfig {
	grid := p.GridSize
	if grid == globalGrid {
		grid = 0
	}
	return ProfileConfig{
		ID:      p.ID,
		Name:    p.Name,
		Width:   p.Width,
		Height:  p.Height,
		WindowX: p.WindowX,
		WindowY: p.WindowY,
		Target: TargetConfig{
			Name: p.Target.Name,
			Bounds: BoundsConfig{
				X:      p.Target.Bounds.X,
				Y:      p.Target.Bounds.Y,
				Width:  p.Target.Bounds.Width,
				Height: p.Target.Bounds.Height,
			},
		},
		StrictMatching: p.StrictMatching,
		Drag:           p.Drag,
		Resize:         p.Resize,
		RenderMode:     string(p.RenderMode),
		FontScale:      p.FontScale,
		GridSize:       grid,
		Background:     p.Background,
		Visible:        p.Visibility == profile.VisibilityShown,
		Items:          fromItems(p.Items),
	}
}

func fromItems(items []*canvas.Item) []ItemConfig {
	if len(items) == 0 {
		return nil
	}
	out := make([]ItemConfig, 0, len(items))
	for _, it := range items {
		out = append(out, ItemConfig{
			ID:       it.ID,
			Name:     it.Name,
			Kind:     string(it.Kind),
			X:        it.X,
			Y:        it.Y,
			Width:    it.Width,
			Height:   it.Height,
			Hidden:   it.Hidden,
			Locked:   it.Locked,
			Color:    it.Color,
			Text:     it.Text,
			Image:    it.Image,
			Children: fromItems(it.Children),
		})
	}
	return out
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments or
// include structure from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo validates and writes the configuration to path. The file is
// replaced atomically.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("must be one of: debug, info, warn, error")}
	}
	if c.TargetFrameRate < 1 || c.TargetFrameRate > maxFrameRate {
		return &ValidationError{Path: "target_frame_rate", Err: fmt.Errorf("must be between 1 and %d", maxFrameRate)}
	}
	if c.GridSize < 1 {
		return &ValidationError{Path: "grid_size", Err: fmt.Errorf("must be >= 1")}
	}
	if c.SettleDelayMs < 0 {
		return &ValidationError{Path: "settle_delay_ms", Err: fmt.Errorf("must be >= 0")}
	}
	if c.ReconcileInterval < 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("must be >= 0")}
	}
	switch strings.ToLower(strings.TrimSpace(c.PaletteBackend)) {
	case "", "auto", "rofi", "fuzzel", "wofi", "dmenu":
	default:
		return &ValidationError{Path: "palette_backend", Err: fmt.Errorf("must be one of: auto, rofi, fuzzel, wofi, dmenu")}
	}

	seen := make(map[string]struct{}, len(c.Profiles))
	for i := range c.Profiles {
		p := &c.Profiles[i]
		if strings.TrimSpace(p.ID) == "" {
			return &ValidationError{Path: fmt.Sprintf("profiles.%d.id", i), Err: fmt.Errorf("must not be empty")}
		}
		if _, dup := seen[p.ID]; dup {
			return &ValidationError{Path: "profiles." + p.ID + ".id", Err: fmt.Errorf("duplicate profile id %q", p.ID)}
		}
		seen[p.ID] = struct{}{}
		if err := validateProfile(p); err != nil {
			return err
		}
	}
	return nil
}

func validateProfile(p *ProfileConfig) error {
	prefix := "profiles." + p.ID + "."

	if p.Width < 1 || p.Width > maxDimension {
		return &ValidationError{Path: prefix + "width", Err: fmt.Errorf("must be between 1 and %d", maxDimension)}
	}
	if p.Height < 1 || p.Height > maxDimension {
		return &ValidationError{Path: prefix + "height", Err: fmt.Errorf("must be between 1 and %d", maxDimension)}
	}
	switch platform.RenderMode(p.RenderMode) {
	case platform.RenderSoftware, platform.RenderAccelerated:
	default:
		return &ValidationError{Path: prefix + "render_mode", Err: fmt.Errorf("invalid render mode %q", p.RenderMode)}
	}
	if p.FontScale <= 0 {
		return &ValidationError{Path: prefix + "font_scale", Err: fmt.Errorf("must be > 0")}
	}
	if p.GridSize < 0 {
		return &ValidationError{Path: prefix + "grid_size", Err: fmt.Errorf("must be >= 0")}
	}
	if p.Target.Bounds.Width < 0 || p.Target.Bounds.Height < 0 {
		return &ValidationError{Path: prefix + "target.bounds", Err: fmt.Errorf("width and height must be >= 0")}
	}
	if _, err := canvas.ParseColor(p.Background, color.RGBA{}); err != nil {
		return &ValidationError{Path: prefix + "background", Err: err}
	}

	ids := make(map[string]struct{})
	return validateItems(p.Items, prefix+"items", ids)
}

func validateItems(items []ItemConfig, prefix string, ids map[string]struct{}) error {
	for i, it := range items {
		path := fmt.Sprintf("%s.%d", prefix, i)
		if strings.TrimSpace(it.ID) == "" {
			return &ValidationError{Path: path + ".id", Err: fmt.Errorf("must not be empty")}
		}
		path = prefix + "." + it.ID
		if _, dup := ids[it.ID]; dup {
			return &ValidationError{Path: path + ".id", Err: fmt.Errorf("duplicate item id %q", it.ID)}
		}
		ids[it.ID] = struct{}{}

		switch canvas.Kind(it.Kind) {
		case canvas.KindRect, canvas.KindText, canvas.KindImage, canvas.KindGroup:
		default:
			return &ValidationError{Path: path + ".kind", Err: fmt.Errorf("invalid kind %q", it.Kind)}
		}
		if it.Width < 0 || it.Height < 0 {
			return &ValidationError{Path: path, Err: fmt.Errorf("width and height must be >= 0")}
		}
		if _, err := canvas.ParseColor(it.Color, color.RGBA{}); err != nil {
			return &ValidationError{Path: path + ".color", Err: err}
		}
		if canvas.Kind(it.Kind) == canvas.KindImage && strings.TrimSpace(it.Image) == "" {
			return &ValidationError{Path: path + ".image", Err: fmt.Errorf("image items need a path")}
		}
		if len(it.Children) > 0 {
			if canvas.Kind(it.Kind) != canvas.KindGroup {
				return &ValidationError{Path: path + ".children", Err: fmt.Errorf("only groups may have children")}
			}
			if err := validateItems(it.Children, path+".children", ids); err != nil {
				return err
			}
		}
	}
	return nil
}
