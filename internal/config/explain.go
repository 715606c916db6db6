package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	display
//	log_level
//	target_frame_rate
//	grid_size
//	settle_delay_ms
//	reconcile_interval
//	toggle_hotkey
//	edit_hotkey
//	palette_hotkey
//	palette_backend
//	profiles
//	profiles.<id>
//	profiles.<id>.width
//	profiles.<id>.target.name
//	profiles.<id>.target.bounds.width
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	// Exact-path file source wins.
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	if parts[0] == "profiles" {
		return lookupProfileValue(cfg, path, parts[1:])
	}
	if len(parts) != 1 {
		return nil, fmt.Errorf("unknown path: %s", path)
	}

	switch parts[0] {
	case "display":
		return cfg.Display, nil
	case "log_level":
		return cfg.LogLevel, nil
	case "target_frame_rate":
		return cfg.TargetFrameRate, nil
	case "grid_size":
		return cfg.GridSize, nil
	case "settle_delay_ms":
		return cfg.SettleDelayMs, nil
	case "reconcile_interval":
		return cfg.ReconcileInterval, nil
	case "toggle_hotkey":
		return cfg.ToggleHotkey, nil
	case "edit_hotkey":
		return cfg.EditHotkey, nil
	case "palette_hotkey":
		return cfg.PaletteHotkey, nil
	case "palette_backend":
		return cfg.PaletteBackend, nil
	default:
		return nil, fmt.Errorf("unknown path: %s", path)
	}
}

func lookupProfileValue(cfg *Config, path string, parts []string) (any, error) {
	if len(parts) == 0 {
		ids := make([]string, 0, len(cfg.Profiles))
		for _, p := range cfg.Profiles {
			ids = append(ids, p.ID)
		}
		return ids, nil
	}
	p, ok := cfg.Profile(parts[0])
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", parts[0])
	}
	if len(parts) == 1 {
		return p, nil
	}

	field := strings.Join(parts[1:], ".")
	switch field {
	case "name":
		return p.Name, nil
	case "width":
		return p.Width, nil
	case "height":
		return p.Height, nil
	case "window_x":
		return p.WindowX, nil
	case "window_y":
		return p.WindowY, nil
	case "target":
		return p.Target, nil
	case "target.name":
		return p.Target.Name, nil
	case "target.bounds":
		return p.Target.Bounds, nil
	case "target.bounds.x":
		return p.Target.Bounds.X, nil
	case "target.bounds.y":
		return p.Target.Bounds.Y, nil
	case "target.bounds.width":
		return p.Target.Bounds.Width, nil
	case "target.bounds.height":
		return p.Target.Bounds.Height, nil
	case "strict_matching":
		return p.StrictMatching, nil
	case "drag":
		return p.Drag, nil
	case "resize":
		return p.Resize, nil
	case "render_mode":
		return p.RenderMode, nil
	case "font_scale":
		return p.FontScale, nil
	case "grid_size":
		if p.GridSize == 0 {
			return cfg.GridSize, nil
		}
		return p.GridSize, nil
	case "background":
		return p.Background, nil
	case "visible":
		return p.Visible, nil
	case "items":
		return p.Items, nil
	default:
		return nil, fmt.Errorf("unknown path: %s", path)
	}
}
