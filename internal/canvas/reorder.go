package canvas

import "fmt"

// Reorder moves it by delta positions within its containing list. Negative
// deltas move toward index 0. The result is clamped to the list bounds.
func (s *Store) Reorder(it *Item, delta int) error {
	return s.reorder(it, func(idx, n int) int { return idx + delta })
}

// ReorderTop moves it to index 0 of its containing list.
func (s *Store) ReorderTop(it *Item) error {
	return s.reorder(it, func(int, int) int { return 0 })
}

// ReorderBottom moves it to the last index of its containing list.
func (s *Store) ReorderBottom(it *Item) error {
	return s.reorder(it, func(_, n int) int { return n - 1 })
}

// ReorderTo moves it to index within its containing list.
func (s *Store) ReorderTo(it *Item, index int) error {
	return s.reorder(it, func(int, int) int { return index })
}

// reorder never moves an item between scopes: a top-level item stays top
// level and a child stays inside its group.
func (s *Store) reorder(it *Item, target func(idx, n int) int) error {
	if it == nil {
		return fmt.Errorf("reorder: nil item")
	}

	s.mu.Lock()
	parent, ok := parentOf(s.items, it)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("reorder: item %q not in store", it.ID)
	}
	scope := &s.items
	if parent != nil {
		scope = &parent.Children
	}

	idx := indexOf(*scope, it)
	to := clamp(target(idx, len(*scope)), 0, len(*scope)-1)

	var changed []*Item
	if it.IsGroup() {
		for _, child := range it.Children {
			if child.Selected {
				child.Selected = false
				changed = append(changed, child)
			}
		}
	}

	moved := to != idx
	if moved {
		move(*scope, idx, to)
	}
	s.mu.Unlock()

	if len(changed) > 0 {
		s.notify(Change{Kind: ChangeSelection, Items: changed})
	}
	if moved {
		s.notify(Change{Kind: ChangeReordered, Items: []*Item{it}})
	}
	return nil
}

func indexOf(items []*Item, it *Item) int {
	for i, cur := range items {
		if cur == it {
			return i
		}
	}
	return -1
}

// move shifts items[from] to position to, preserving the order of the rest.
func move(items []*Item, from, to int) {
	it := items[from]
	if from < to {
		copy(items[from:to], items[from+1:to+1])
	} else {
		copy(items[to+1:from+1], items[to:from])
	}
	items[to] = it
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
