package tui

import (
	"fmt"
	"strings"

	"github.com/1broseidon/infopanel/internal/config"
	"github.com/1broseidon/infopanel/internal/ipc"
	"github.com/1broseidon/infopanel/internal/placement"
	"github.com/1broseidon/infopanel/internal/platform"
)

type boxRunes struct {
	h, v, tl, tr, bl, br rune
}

var (
	monitorRunes = boxRunes{'─', '│', '┌', '┐', '└', '┘'}
	windowRunes  = boxRunes{'═', '║', '╔', '╗', '╚', '╝'}
)

// placementResult is where a configured profile would land on the current
// monitors.
type placementResult struct {
	found   bool
	kind    placement.MatchKind
	monitor platform.Display
	window  platform.Rect
}

func displaysFromInfo(infos []ipc.MonitorInfo) []platform.Display {
	out := make([]platform.Display, 0, len(infos))
	for _, m := range infos {
		out = append(out, platform.Display{
			ID:     m.ID,
			Name:   m.Name,
			Bounds: platform.Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height},
		})
	}
	return out
}

func resolveProfile(p config.ProfileConfig, grid int, monitors []platform.Display) placementResult {
	prof := p.ToProfile(grid)
	m, kind := placement.Match(prof, monitors)
	origin, ok := placement.Resolve(prof, monitors)
	if !ok {
		return placementResult{kind: kind}
	}
	return placementResult{
		found:   true,
		kind:    kind,
		monitor: m,
		window:  platform.Rect{X: origin.X, Y: origin.Y, Width: p.Width, Height: p.Height},
	}
}

// summarizePlacement returns a one-line description of a resolved placement.
func summarizePlacement(p config.ProfileConfig, res placementResult, haveMonitors bool) string {
	if !haveMonitors {
		return "monitors unknown • start the daemon to resolve placement"
	}
	if !res.found {
		if p.StrictMatching {
			return fmt.Sprintf("no exact match for %q (strict) • window stays hidden", p.Target.Name)
		}
		return "no monitor qualifies • window stays hidden"
	}
	return fmt.Sprintf("%s match on %s • origin %d,%d • %d×%d px",
		res.kind, res.monitor.Name, res.window.X, res.window.Y, res.window.Width, res.window.Height)
}

// renderPlacementMap draws the monitors and, when placed, the profile window
// scaled into a width×height character grid.
func renderPlacementMap(monitors []platform.Display, res placementResult, label string, width, height int) []string {
	if len(monitors) == 0 || width < 5 || height < 3 {
		return emptyCanvas(width, height)
	}

	space := monitors[0].Bounds
	for _, m := range monitors[1:] {
		space = union(space, m.Bounds)
	}
	if res.found {
		space = union(space, res.window)
	}
	if space.Width <= 0 || space.Height <= 0 {
		return emptyCanvas(width, height)
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	for _, m := range monitors {
		drawBox(grid, scaleRect(m.Bounds, space, width, height), monitorRunes, m.Name, false)
	}
	if res.found {
		drawBox(grid, scaleRect(res.window, space, width, height), windowRunes, label, true)
	}

	lines := make([]string, height)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return lines
}

func union(a, b platform.Rect) platform.Rect {
	x1 := min(a.X, b.X)
	y1 := min(a.Y, b.Y)
	x2 := max(a.X+a.Width, b.X+b.Width)
	y2 := max(a.Y+a.Height, b.Y+b.Height)
	return platform.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// scaleRect maps r from screen space into inclusive grid cell coordinates.
func scaleRect(r, space platform.Rect, canvasW, canvasH int) [4]int {
	x1 := (r.X - space.X) * (canvasW - 1) / space.Width
	y1 := (r.Y - space.Y) * (canvasH - 1) / space.Height
	x2 := (r.X + r.Width - space.X) * (canvasW - 1) / space.Width
	y2 := (r.Y + r.Height - space.Y) * (canvasH - 1) / space.Height
	return [4]int{
		clamp(x1, 0, canvasW-1),
		clamp(y1, 0, canvasH-1),
		clamp(x2, 0, canvasW-1),
		clamp(y2, 0, canvasH-1),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// drawBox outlines c. The label goes on the first inner row when top is set,
// otherwise on the last.
func drawBox(grid [][]rune, c [4]int, r boxRunes, label string, top bool) {
	x1, y1, x2, y2 := c[0], c[1], c[2], c[3]
	// Need at least 2x2 for a box
	if x2 <= x1 || y2 <= y1 {
		return
	}

	for x := x1; x <= x2; x++ {
		grid[y1][x] = r.h
		grid[y2][x] = r.h
	}
	for y := y1; y <= y2; y++ {
		grid[y][x1] = r.v
		grid[y][x2] = r.v
	}
	grid[y1][x1] = r.tl
	grid[y1][x2] = r.tr
	grid[y2][x1] = r.bl
	grid[y2][x2] = r.br

	if y2-y1 < 2 {
		return
	}
	row := y2 - 1
	if top {
		row = y1 + 1
	}
	for i, ch := range []rune(label) {
		x := x1 + 1 + i
		if x >= x2 {
			break
		}
		grid[row][x] = ch
	}
}

func emptyCanvas(width, height int) []string {
	if height < 0 {
		height = 0
	}
	lines := make([]string, height)
	empty := strings.Repeat(" ", max(width, 0))
	for i := range lines {
		lines[i] = empty
	}
	return lines
}
