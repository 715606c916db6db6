package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// BuildEffectiveConfig applies raw on top of DefaultConfig. Each profile
// starts from DefaultProfile.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.TargetFrameRate != nil {
		cfg.TargetFrameRate = *raw.TargetFrameRate
	}
	if raw.GridSize != nil {
		cfg.GridSize = *raw.GridSize
	}
	if raw.SettleDelayMs != nil {
		cfg.SettleDelayMs = *raw.SettleDelayMs
	}
	if raw.ReconcileInterval != nil {
		cfg.ReconcileInterval = *raw.ReconcileInterval
	}
	if raw.ToggleHotkey != nil {
		cfg.ToggleHotkey = *raw.ToggleHotkey
	}
	if raw.EditHotkey != nil {
		cfg.EditHotkey = *raw.EditHotkey
	}
	if raw.PaletteHotkey != nil {
		cfg.PaletteHotkey = *raw.PaletteHotkey
	}
	if raw.PaletteBackend != nil {
		cfg.PaletteBackend = strings.ToLower(strings.TrimSpace(*raw.PaletteBackend))
	}

	for i, rp := range raw.Profiles {
		id := strings.TrimSpace(rp.ID)
		if id == "" {
			return nil, &ValidationError{Path: fmt.Sprintf("profiles.%d.id", i), Err: fmt.Errorf("must not be empty")}
		}
		cfg.Profiles = append(cfg.Profiles, buildProfile(id, rp))
	}

	return cfg, nil
}

func buildProfile(id string, raw RawProfile) ProfileConfig {
	p := DefaultProfile(id)
	p.Name = derefString(raw.Name, p.Name)
	p.Width = derefInt(raw.Width, p.Width)
	p.Height = derefInt(raw.Height, p.Height)
	p.WindowX = derefInt(raw.WindowX, p.WindowX)
	p.WindowY = derefInt(raw.WindowY, p.WindowY)
	if raw.Target != nil {
		p.Target.Name = derefString(raw.Target.Name, "")
		if b := raw.Target.Bounds; b != nil {
			p.Target.Bounds = BoundsConfig{
				X:      derefInt(b.X, 0),
				Y:      derefInt(b.Y, 0),
				Width:  derefInt(b.Width, 0),
				Height: derefInt(b.Height, 0),
			}
		}
	}
	p.StrictMatching = derefBool(raw.StrictMatching, p.StrictMatching)
	p.Drag = derefBool(raw.Drag, p.Drag)
	p.Resize = derefBool(raw.Resize, p.Resize)
	p.RenderMode = strings.ToLower(derefString(raw.RenderMode, p.RenderMode))
	p.FontScale = derefFloat(raw.FontScale, p.FontScale)
	p.GridSize = derefInt(raw.GridSize, p.GridSize)
	p.Background = derefString(raw.Background, p.Background)
	p.Visible = derefBool(raw.Visible, p.Visible)
	p.Items = cloneItemConfigs(raw.Items)
	return p
}

func derefInt(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func derefBool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func derefString(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func derefFloat(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
