package monitor

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/1broseidon/infopanel/internal/platform"
)

// Source enumerates the currently attached displays.
type Source interface {
	Displays() ([]platform.Display, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() ([]platform.Display, error)

// Displays implements Source.
func (f SourceFunc) Displays() ([]platform.Display, error) { return f() }

// Registry answers monitor queries and fans display-change notifications out
// to subscribers. It never caches a snapshot: monitors can be hot-plugged at
// any time, so every resolution pass queries the source again.
type Registry struct {
	source Source
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
}

// NewRegistry creates a registry backed by source.
func NewRegistry(source Source, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		source: source,
		logger: logger,
		subs:   make(map[int]func()),
	}
}

// Snapshot returns every attached display with its device name and bounds.
func (r *Registry) Snapshot() ([]platform.Display, error) {
	displays, err := r.source.Displays()
	if err != nil {
		return nil, fmt.Errorf("enumerate displays: %w", err)
	}
	out := make([]platform.Display, len(displays))
	copy(out, displays)
	return out, nil
}

// Subscribe registers fn to run on every display-change notification and
// returns a function that removes it.
func (r *Registry) Subscribe(fn func()) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Notify reports a display configuration change to every subscriber, in
// registration order.
func (r *Registry) Notify() {
	r.mu.Lock()
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	fns := make([]func(), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, r.subs[id])
	}
	r.mu.Unlock()

	r.logger.Info("display configuration changed", "subscribers", len(fns))
	for _, fn := range fns {
		fn()
	}
}
