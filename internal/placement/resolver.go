package placement

import (
	"github.com/1broseidon/infopanel/internal/platform"
	"github.com/1broseidon/infopanel/internal/profile"
)

// MatchKind records which rule selected a monitor.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchName
	MatchBounds
	MatchFirst
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchName:
		return "name"
	case MatchBounds:
		return "bounds"
	case MatchFirst:
		return "first"
	default:
		return "none"
	}
}

// Match picks the monitor a profile belongs to. The rules are tried in order
// and the first one that finds a monitor wins:
//
//	1. device name and width/height equal the saved target
//	2. device name only (not in strict mode)
//	3. width/height only, for a monitor re-enumerated under a new name
//	   (not in strict mode)
//	4. the first monitor (not in strict mode)
func Match(p *profile.Profile, monitors []platform.Display) (platform.Display, MatchKind) {
	target := p.Target
	for _, m := range monitors {
		if m.Name == target.Name && sameSize(m.Bounds, target.Bounds) {
			return m, MatchExact
		}
	}
	if p.StrictMatching {
		return platform.Display{}, MatchNone
	}
	for _, m := range monitors {
		if m.Name == target.Name {
			return m, MatchName
		}
	}
	for _, m := range monitors {
		if sameSize(m.Bounds, target.Bounds) {
			return m, MatchBounds
		}
	}
	if len(monitors) > 0 {
		return monitors[0], MatchFirst
	}
	return platform.Display{}, MatchNone
}

// Resolve returns the absolute window origin for p: the matched monitor's
// top-left plus the profile's monitor-relative offset. ok is false when no
// monitor qualifies; the window must then be hidden, not guessed.
func Resolve(p *profile.Profile, monitors []platform.Display) (platform.Point, bool) {
	m, kind := Match(p, monitors)
	if kind == MatchNone {
		return platform.Point{}, false
	}
	return platform.Point{
		X: m.Bounds.X + p.WindowX,
		Y: m.Bounds.Y + p.WindowY,
	}, true
}

// Containing returns the monitor holding the centre of r, falling back to the
// monitor with the largest overlap. ok is false only when monitors is empty.
func Containing(monitors []platform.Display, r platform.Rect) (platform.Display, bool) {
	c := r.Center()
	for _, m := range monitors {
		if m.Bounds.Contains(c) {
			return m, true
		}
	}
	best, bestArea := -1, -1
	for i, m := range monitors {
		if a := overlap(m.Bounds, r); a > bestArea {
			best, bestArea = i, a
		}
	}
	if best < 0 {
		return platform.Display{}, false
	}
	return monitors[best], true
}

// TargetFor builds the descriptor saved when a window is committed to m.
func TargetFor(m platform.Display) profile.Target {
	return profile.Target{Name: m.Name, Bounds: m.Bounds}
}

func sameSize(a, b platform.Rect) bool {
	return a.Width == b.Width && a.Height == b.Height
}

func overlap(a, b platform.Rect) int {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return 0
	}
	return (x2 - x1) * (y2 - y1)
}
