package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawBounds struct {
	X      *int `yaml:"x"`
	Y      *int `yaml:"y"`
	Width  *int `yaml:"width"`
	Height *int `yaml:"height"`
}

type RawTarget struct {
	Name   *string    `yaml:"name"`
	Bounds *RawBounds `yaml:"bounds"`
}

// RawProfile is one entry of the profiles list. Profiles from different
// files are merged field by field when their ids match. Items are replaced
// as a whole.
type RawProfile struct {
	ID             string       `yaml:"id"`
	Name           *string      `yaml:"name"`
	Width          *int         `yaml:"width"`
	Height         *int         `yaml:"height"`
	WindowX        *int         `yaml:"window_x"`
	WindowY        *int         `yaml:"window_y"`
	Target         *RawTarget   `yaml:"target"`
	StrictMatching *bool        `yaml:"strict_matching"`
	Drag           *bool        `yaml:"drag"`
	Resize         *bool        `yaml:"resize"`
	RenderMode     *string      `yaml:"render_mode"`
	FontScale      *float64     `yaml:"font_scale"`
	GridSize       *int         `yaml:"grid_size"`
	Background     *string      `yaml:"background"`
	Visible        *bool        `yaml:"visible"`
	Items          []ItemConfig `yaml:"items"`
}

type RawConfig struct {
	Include           IncludeList  `yaml:"include"`
	Display           *string      `yaml:"display"`
	LogLevel          *string      `yaml:"log_level"`
	TargetFrameRate   *int         `yaml:"target_frame_rate"`
	GridSize          *int         `yaml:"grid_size"`
	SettleDelayMs     *int         `yaml:"settle_delay_ms"`
	ReconcileInterval *int         `yaml:"reconcile_interval"`
	ToggleHotkey      *string      `yaml:"toggle_hotkey"`
	EditHotkey        *string      `yaml:"edit_hotkey"`
	PaletteHotkey     *string      `yaml:"palette_hotkey"`
	PaletteBackend    *string      `yaml:"palette_backend"`
	Profiles          []RawProfile `yaml:"profiles"`
}

func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c

	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.TargetFrameRate != nil {
		out.TargetFrameRate = overlay.TargetFrameRate
	}
	if overlay.GridSize != nil {
		out.GridSize = overlay.GridSize
	}
	if overlay.SettleDelayMs != nil {
		out.SettleDelayMs = overlay.SettleDelayMs
	}
	if overlay.ReconcileInterval != nil {
		out.ReconcileInterval = overlay.ReconcileInterval
	}
	if overlay.ToggleHotkey != nil {
		out.ToggleHotkey = overlay.ToggleHotkey
	}
	if overlay.EditHotkey != nil {
		out.EditHotkey = overlay.EditHotkey
	}
	if overlay.PaletteHotkey != nil {
		out.PaletteHotkey = overlay.PaletteHotkey
	}
	if overlay.PaletteBackend != nil {
		out.PaletteBackend = overlay.PaletteBackend
	}

	if overlay.Profiles != nil {
		merged := make([]RawProfile, len(out.Profiles), len(out.Profiles)+len(overlay.Profiles))
		copy(merged, out.Profiles)
		for _, p := range overlay.Profiles {
			idx := -1
			for i := range merged {
				if merged[i].ID == p.ID {
					idx = i
					break
				}
			}
			if idx < 0 {
				merged = append(merged, p)
				continue
			}
			merged[idx] = mergeRawProfile(merged[idx], p)
		}
		out.Profiles = merged
	}

	return out
}

func mergeRawProfile(base RawProfile, overlay RawProfile) RawProfile {
	out := base
	if overlay.Name != nil {
		out.Name = overlay.Name
	}
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	if overlay.WindowX != nil {
		out.WindowX = overlay.WindowX
	}
	if overlay.WindowY != nil {
		out.WindowY = overlay.WindowY
	}
	if overlay.Target != nil {
		if out.Target == nil {
			out.Target = &RawTarget{}
		} else {
			t := *out.Target
			out.Target = &t
		}
		if overlay.Target.Name != nil {
			out.Target.Name = overlay.Target.Name
		}
		if overlay.Target.Bounds != nil {
			out.Target.Bounds = mergeRawBounds(out.Target.Bounds, overlay.Target.Bounds)
		}
	}
	if overlay.StrictMatching != nil {
		out.StrictMatching = overlay.StrictMatching
	}
	if overlay.Drag != nil {
		out.Drag = overlay.Drag
	}
	if overlay.Resize != nil {
		out.Resize = overlay.Resize
	}
	if overlay.RenderMode != nil {
		out.RenderMode = overlay.RenderMode
	}
	if overlay.FontScale != nil {
		out.FontScale = overlay.FontScale
	}
	if overlay.GridSize != nil {
		out.GridSize = overlay.GridSize
	}
	if overlay.Background != nil {
		out.Background = overlay.Background
	}
	if overlay.Visible != nil {
		out.Visible = overlay.Visible
	}
	if overlay.Items != nil {
		out.Items = overlay.Items
	}
	return out
}

func mergeRawBounds(base *RawBounds, overlay *RawBounds) *RawBounds {
	out := RawBounds{}
	if base != nil {
		out = *base
	}
	if overlay.X != nil {
		out.X = overlay.X
	}
	if overlay.Y != nil {
		out.Y = overlay.Y
	}
	if overlay.Width != nil {
		out.Width = overlay.Width
	}
	if overlay.Height != nil {
		out.Height = overlay.Height
	}
	return &out
}
