package canvas

import (
	"image"
	"math"
	"sort"
	"sync"
)

// ChangeKind classifies a store notification.
type ChangeKind int

const (
	ChangeSelection ChangeKind = iota
	ChangeMoved
	ChangeReordered
	ChangeReset
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSelection:
		return "selection"
	case ChangeMoved:
		return "moved"
	case ChangeReordered:
		return "reordered"
	case ChangeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Change describes a mutation of the store. Items lists the affected items.
type Change struct {
	Kind  ChangeKind
	Items []*Item
}

// Observer is notified after every store mutation, outside the store lock.
type Observer func(Change)

type dragState struct {
	active  bool
	moved   bool
	pressed *Item
}

// Store owns the ordered item tree of one panel and serializes selection,
// drag and reorder operations on it. Mutations are expected to come from the
// UI context; Snapshot may be called from anywhere.
type Store struct {
	mu    sync.RWMutex
	items []*Item
	drag  dragState

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// NewStore creates a store that takes ownership of items.
func NewStore(items []*Item) *Store {
	return &Store{
		items:     items,
		observers: make(map[int]Observer),
	}
}

// Subscribe registers o and returns a function that removes it.
func (s *Store) Subscribe(o Observer) func() {
	s.obsMu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = o
	s.obsMu.Unlock()

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.obsMu.Lock()
	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	obs := make([]Observer, 0, len(ids))
	for _, id := range ids {
		obs = append(obs, s.observers[id])
	}
	s.obsMu.Unlock()

	for _, o := range obs {
		o(c)
	}
}

// Items returns the live top-level slice. Callers must not retain it across
// UI turns.
func (s *Store) Items() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// Snapshot returns a deep copy of the item tree that is safe to iterate while
// the store keeps changing.
func (s *Store) Snapshot() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CloneItems(s.items)
}

// Replace swaps the whole item tree, for example after a config reload.
func (s *Store) Replace(items []*Item) {
	s.mu.Lock()
	s.items = items
	s.drag = dragState{}
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeReset})
}

// Find returns the item with the given ID and its parent group, if any.
func (s *Store) Find(id string) (*Item, *Item) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return find(s.items, id)
}

func find(items []*Item, id string) (*Item, *Item) {
	var found, parent *Item
	Walk(items, func(it, p *Item) bool {
		if it.ID == id {
			found, parent = it, p
			return false
		}
		return true
	})
	return found, parent
}

// Selected returns every selected item, top-level and nested, in z-order.
func (s *Store) Selected() []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return selected(s.items)
}

func selected(items []*Item) []*Item {
	var out []*Item
	Walk(items, func(it, _ *Item) bool {
		if it.Selected {
			out = append(out, it)
		}
		return true
	})
	return out
}

// selectedVisible is selected without hidden items or the descendants of a
// hidden group. Only these take part in drag and nudge.
func selectedVisible(items []*Item) []*Item {
	var out []*Item
	for _, it := range items {
		if it.Hidden {
			continue
		}
		if it.Selected {
			out = append(out, it)
		}
		if it.IsGroup() {
			out = append(out, selectedVisible(it.Children)...)
		}
	}
	return out
}

// Search returns items whose name or kind contains every term,
// case-insensitively. Empty terms match everything.
func (s *Store) Search(terms []string) []*Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Item
	Walk(s.items, func(it, _ *Item) bool {
		if it.matches(terms) {
			out = append(out, it)
		}
		return true
	})
	return out
}

// HitTest returns the topmost visible item containing p, or nil.
func (s *Store) HitTest(p image.Point) *Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hitTest(s.items, p)
}

// hitTest walks items from the top of the z-order down. Group children are
// drawn inline above the group, so they are tested before the group's own
// rectangle.
func hitTest(items []*Item, p image.Point) *Item {
	for i := len(items) - 1; i >= 0; i-- {
		it := items[i]
		if it.Hidden {
			continue
		}
		if it.IsGroup() {
			if hit := hitTest(it.Children, p); hit != nil {
				return hit
			}
			if it.Width > 0 && it.Height > 0 && it.Contains(p) {
				return it
			}
			continue
		}
		if it.Contains(p) {
			return it
		}
	}
	return nil
}

// Select replaces the selection with it.
func (s *Store) Select(it *Item) {
	s.mu.Lock()
	changed := s.selectOnly(it)
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeSelection, Items: changed})
}

// Toggle flips the selection flag of it without touching other items.
func (s *Store) Toggle(it *Item) {
	s.mu.Lock()
	it.Selected = !it.Selected
	if it.Selected {
		s.expandParent(it)
	}
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeSelection, Items: []*Item{it}})
}

// ClearSelection deselects everything.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	changed := s.clearSelection()
	s.mu.Unlock()
	if len(changed) > 0 {
		s.notify(Change{Kind: ChangeSelection, Items: changed})
	}
}

// SelectChildren replaces the selection with every child of group.
func (s *Store) SelectChildren(group *Item) {
	if group == nil || !group.IsGroup() {
		return
	}
	s.mu.Lock()
	changed := s.clearSelection()
	for _, child := range group.Children {
		child.Selected = true
		changed = append(changed, child)
	}
	group.Expanded = true
	s.mu.Unlock()
	s.notify(Change{Kind: ChangeSelection, Items: changed})
}

func (s *Store) clearSelection() []*Item {
	var changed []*Item
	Walk(s.items, func(it, _ *Item) bool {
		if it.Selected {
			it.Selected = false
			changed = append(changed, it)
		}
		return true
	})
	return changed
}

func (s *Store) selectOnly(it *Item) []*Item {
	changed := s.clearSelection()
	if it != nil {
		it.Selected = true
		s.expandParent(it)
		changed = append(changed, it)
	}
	return changed
}

func (s *Store) expandParent(it *Item) {
	if parent, ok := parentOf(s.items, it); ok && parent != nil {
		parent.Expanded = true
	}
}

// parentOf locates it by identity. ok is false when it is not in the tree.
func parentOf(items []*Item, it *Item) (parent *Item, ok bool) {
	Walk(items, func(cur, p *Item) bool {
		if cur == it {
			parent, ok = p, true
			return false
		}
		return true
	})
	return parent, ok
}

// PointerDown applies click selection at p and arms a drag of the resulting
// selection. Without multi, a press on an unselected item makes it the only
// selection and a press on empty space clears the selection. With multi, the
// hit item is toggled. It returns the hit item, or nil.
func (s *Store) PointerDown(p image.Point, multi bool) *Item {
	s.mu.Lock()
	hit := hitTest(s.items, p)
	var changed []*Item
	switch {
	case hit == nil:
		if !multi {
			changed = s.clearSelection()
		}
	case multi:
		hit.Selected = !hit.Selected
		if hit.Selected {
			s.expandParent(hit)
		}
		changed = []*Item{hit}
	case !hit.Selected:
		changed = s.selectOnly(hit)
	}
	s.beginDrag(p)
	s.drag.pressed = hit
	s.mu.Unlock()

	if len(changed) > 0 {
		s.notify(Change{Kind: ChangeSelection, Items: changed})
	}
	return hit
}

// BeginDrag records each selected, visible item's offset from p so the
// selection moves as one. It reports false when nothing visible is selected.
func (s *Store) BeginDrag(p image.Point) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginDrag(p)
}

func (s *Store) beginDrag(p image.Point) bool {
	sel := selectedVisible(s.items)
	if len(sel) == 0 {
		s.drag = dragState{}
		return false
	}
	for _, it := range sel {
		it.anchor = image.Pt(p.X-it.X, p.Y-it.Y)
	}
	s.drag = dragState{active: true}
	return true
}

// Dragging reports whether a drag is armed.
func (s *Store) Dragging() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.drag.active
}

// UpdateDrag moves every selected, visible, unlocked item so that its anchor
// sits under p, snapping both axes to the nearest multiple of grid.
func (s *Store) UpdateDrag(p image.Point, grid int) bool {
	s.mu.Lock()
	if !s.drag.active {
		s.mu.Unlock()
		return false
	}
	var moved []*Item
	for _, it := range selectedVisible(s.items) {
		if it.Locked {
			continue
		}
		x := Snap(p.X-it.anchor.X, grid)
		y := Snap(p.Y-it.anchor.Y, grid)
		if x == it.X && y == it.Y {
			continue
		}
		translate(it, x-it.X, y-it.Y)
		moved = append(moved, it)
	}
	if len(moved) > 0 {
		s.drag.moved = true
	}
	s.mu.Unlock()

	if len(moved) > 0 {
		s.notify(Change{Kind: ChangeMoved, Items: moved})
	}
	return len(moved) > 0
}

// EndDrag finishes a drag. A press that never moved and had no modifier
// collapses a multi-selection onto the pressed item.
func (s *Store) EndDrag(multi bool) {
	s.mu.Lock()
	d := s.drag
	s.drag = dragState{}
	var changed []*Item
	if !d.moved && !multi && d.pressed != nil && len(selected(s.items)) > 1 {
		changed = s.selectOnly(d.pressed)
	}
	s.mu.Unlock()

	if len(changed) > 0 {
		s.notify(Change{Kind: ChangeSelection, Items: changed})
	}
}

// Nudge moves every selected, visible, unlocked item by (dx, dy) grid steps.
func (s *Store) Nudge(dx, dy, grid int) bool {
	if grid < 1 {
		grid = 1
	}
	s.mu.Lock()
	var moved []*Item
	for _, it := range selectedVisible(s.items) {
		if it.Locked {
			continue
		}
		translate(it, dx*grid, dy*grid)
		moved = append(moved, it)
	}
	s.mu.Unlock()

	if len(moved) > 0 {
		s.notify(Change{Kind: ChangeMoved, Items: moved})
	}
	return len(moved) > 0
}

// translate shifts it, and the unselected, unlocked children of a group with
// it. Selected children move on their own.
func translate(it *Item, dx, dy int) {
	it.X += dx
	it.Y += dy
	if !it.IsGroup() {
		return
	}
	for _, child := range it.Children {
		if child.Selected || child.Locked {
			continue
		}
		translate(child, dx, dy)
	}
}

// Snap rounds v to the nearest multiple of grid. A grid below 1 is treated
// as 1.
func Snap(v, grid int) int {
	if grid <= 1 {
		return v
	}
	return int(math.Round(float64(v)/float64(grid))) * grid
}
