package canvas

import (
	"image"
	"strings"
)

// Kind identifies what an item draws.
type Kind string

const (
	KindRect  Kind = "rect"
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindGroup Kind = "group"
)

// Item is one placed element of a panel. Its index in the containing slice is
// its z-order: later items are drawn on top of earlier ones.
type Item struct {
	ID     string
	Name   string
	Kind   Kind
	X      int
	Y      int
	Width  int
	Height int

	Hidden   bool
	Locked   bool
	Selected bool

	Color string
	Text  string
	Image string

	// Children is only used by groups.
	Children []*Item
	// Expanded is presentation state for list views. It has no effect on
	// hit testing or drawing.
	Expanded bool

	anchor image.Point
}

// IsGroup reports whether the item owns children.
func (it *Item) IsGroup() bool {
	return it.Kind == KindGroup
}

// Bounds returns the item rectangle in window coordinates.
func (it *Item) Bounds() image.Rectangle {
	return image.Rect(it.X, it.Y, it.X+it.Width, it.Y+it.Height)
}

// Contains reports whether p falls inside the item.
func (it *Item) Contains(p image.Point) bool {
	return p.In(it.Bounds())
}

func (it *Item) matches(terms []string) bool {
	name := strings.ToLower(it.Name)
	kind := strings.ToLower(string(it.Kind))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if !strings.Contains(name, term) && !strings.Contains(kind, term) {
			return false
		}
	}
	return true
}

// CloneItems deep-copies an item tree.
func CloneItems(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	out := make([]*Item, len(items))
	for i, it := range items {
		c := *it
		c.Children = CloneItems(it.Children)
		out[i] = &c
	}
	return out
}

// Walk visits every item depth-first in z-order, parents before children.
// parent is nil for top-level items. Returning false stops the walk.
func Walk(items []*Item, fn func(it, parent *Item) bool) bool {
	return walk(items, nil, fn)
}

func walk(items []*Item, parent *Item, fn func(it, parent *Item) bool) bool {
	for _, it := range items {
		if !fn(it, parent) {
			return false
		}
		if it.IsGroup() && !walk(it.Children, it, fn) {
			return false
		}
	}
	return true
}

// Visible returns the top-level items that are not hidden, with hidden
// children pruned from groups. The result is a deep copy.
func Visible(items []*Item) []*Item {
	out := make([]*Item, 0, len(items))
	for _, it := range items {
		if it.Hidden {
			continue
		}
		c := *it
		if it.IsGroup() {
			c.Children = Visible(it.Children)
		}
		out = append(out, &c)
	}
	return out
}
