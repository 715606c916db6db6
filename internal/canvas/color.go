package canvas

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseColor parses "#rgb", "#rrggbb" or "#rrggbbaa". An empty string yields
// def.
func ParseColor(s string, def color.RGBA) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return def, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return def, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
