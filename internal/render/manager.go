package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/infopanel/internal/monitor"
	"github.com/1broseidon/infopanel/internal/platform"
	"github.com/1broseidon/infopanel/internal/profile"
)

// ErrUITimeout is returned by Do when the UI context did not run the call in
// time.
var ErrUITimeout = errors.New("ui context did not respond")

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	Backend     platform.Backend
	Monitors    *monitor.Registry
	Draw        DrawFunc
	Commit      CommitFunc
	TargetRate  int
	QuietPeriod time.Duration
	Logger      *slog.Logger
}

// Manager keeps at most one open window per profile ID. Its methods, except
// Do and IDs, must run on the UI context.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu      sync.Mutex
	windows map[string]*Controller
	rate    int
	unwatch func()
}

// NewManager creates a manager and subscribes it to monitor changes.
func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:     cfg,
		logger:  logger,
		windows: make(map[string]*Controller),
		rate:    cfg.TargetRate,
	}
	if cfg.Monitors != nil {
		m.unwatch = cfg.Monitors.Subscribe(m.DisplaysChanged)
	}
	return m
}

// Show opens the window for p, or activates the existing one. A window whose
// render mode no longer matches the profile is closed and recreated, since a
// surface cannot switch modes in place.
func (m *Manager) Show(p *profile.Profile) (*Controller, error) {
	if c := m.Get(p.ID); c != nil {
		if c.Mode() == effectiveMode(p) {
			if c.Profile() != p {
				m.replaceProfile(c, p)
			}
			c.Activate()
			return c, nil
		}
		m.logger.Info("render mode changed, recreating window", "profile", p.ID, "mode", effectiveMode(p))
		m.Close(p.ID)
	}

	m.mu.Lock()
	rate := m.rate
	m.mu.Unlock()

	c, err := NewController(Config{
		Profile:     p,
		Backend:     m.cfg.Backend,
		Monitors:    m.cfg.Monitors,
		Draw:        m.cfg.Draw,
		Commit:      m.cfg.Commit,
		TargetRate:  rate,
		QuietPeriod: m.cfg.QuietPeriod,
		Logger:      m.logger,
	})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.windows[p.ID] = c
	m.mu.Unlock()

	c.OnShow()
	return c, nil
}

// replaceProfile points an open window at a freshly loaded profile value.
func (m *Manager) replaceProfile(c *Controller, p *profile.Profile) {
	vis := c.profile.Visibility
	c.profile = p
	p.Visibility = vis
	c.replaceItems(p.Items)
	c.maintainPixelSize()
	c.Reposition(c.snapshot())
}

// Hide hides the window for id, keeping it open.
func (m *Manager) Hide(id string) error {
	c := m.Get(id)
	if c == nil {
		return fmt.Errorf("profile %q is not open", id)
	}
	c.Hide()
	return nil
}

// Close tears down the window for id. Closing a profile that is not open is
// a no-op.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	c := m.windows[id]
	delete(m.windows, id)
	m.mu.Unlock()
	if c != nil {
		c.OnClose()
	}
}

// CloseAll closes every window and drops the monitor subscription.
func (m *Manager) CloseAll() {
	for _, id := range m.IDs() {
		m.Close(id)
	}
	if m.unwatch != nil {
		m.unwatch()
		m.unwatch = nil
	}
}

// Get returns the open controller for id, or nil.
func (m *Manager) Get(id string) *Controller {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windows[id]
}

// IsOpen reports whether a window exists for id.
func (m *Manager) IsOpen(id string) bool {
	return m.Get(id) != nil
}

// IDs returns the open profile IDs in sorted order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.windows))
	for id := range m.windows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetTargetRate applies fps to every open window and to windows opened later.
func (m *Manager) SetTargetRate(fps int) {
	m.mu.Lock()
	m.rate = fps
	m.mu.Unlock()
	for _, id := range m.IDs() {
		if c := m.Get(id); c != nil {
			c.SetTargetRate(fps)
		}
	}
}

// DisplaysChanged repositions every open window against one shared monitor
// snapshot.
func (m *Manager) DisplaysChanged() {
	if m.cfg.Monitors == nil {
		return
	}
	monitors, err := m.cfg.Monitors.Snapshot()
	if err != nil {
		m.logger.Warn("monitor snapshot failed", "error", err)
		return
	}
	for _, id := range m.IDs() {
		if c := m.Get(id); c != nil {
			c.DisplaysChanged(monitors)
		}
	}
}

// RepositionAll re-runs placement for every visible window without touching
// sizes.
func (m *Manager) RepositionAll() {
	if m.cfg.Monitors == nil {
		return
	}
	monitors, err := m.cfg.Monitors.Snapshot()
	if err != nil {
		m.logger.Warn("monitor snapshot failed", "error", err)
		return
	}
	for _, id := range m.IDs() {
		c := m.Get(id)
		if c == nil || c.Profile().Visibility != profile.VisibilityShown {
			continue
		}
		c.Reposition(monitors)
	}
}

// Sessions reports the state of every open window.
func (m *Manager) Sessions() []Session {
	var out []Session
	for _, id := range m.IDs() {
		if c := m.Get(id); c != nil {
			out = append(out, c.Session())
		}
	}
	return out
}

// Do runs fn on the UI context and waits for it. It is how goroutines such as
// the IPC server reach the window state.
func (m *Manager) Do(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	m.cfg.Backend.RunOnUI(func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("ui call panic: %v", r)
			}
		}()
		done <- fn()
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrUITimeout, ctx.Err())
	}
}

func effectiveMode(p *profile.Profile) platform.RenderMode {
	if p.RenderMode == "" {
		return platform.RenderSoftware
	}
	return p.RenderMode
}
