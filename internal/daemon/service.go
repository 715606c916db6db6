package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/infopanel/internal/canvas"
	"github.com/1broseidon/infopanel/internal/config"
	"github.com/1broseidon/infopanel/internal/ipc"
	"github.com/1broseidon/infopanel/internal/monitor"
	"github.com/1broseidon/infopanel/internal/placement"
	"github.com/1broseidon/infopanel/internal/platform"
	"github.com/1broseidon/infopanel/internal/profile"
	"github.com/1broseidon/infopanel/internal/render"
)

// LoadFunc reads the config file at path.
type LoadFunc func(path string) (*config.Config, error)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Backend   platform.Backend
	Monitors  *monitor.Registry
	Config    *config.Config
	Path      string
	Persister *Persister
	Draw      render.DrawFunc
	Load      LoadFunc
	// OnReload runs after a reload has been applied, on the UI context.
	OnReload func(cfg *config.Config)
	Logger   *slog.Logger
}

// Service ties the profile windows to the config document and exposes them
// to the control socket. Methods named in ipc.Service may be called from any
// goroutine; the rest must run on the UI context.
type Service struct {
	mgr      *render.Manager
	monitors *monitor.Registry
	persist  *Persister
	load     LoadFunc
	onReload func(cfg *config.Config)
	path     string
	started  time.Time
	logger   *slog.Logger

	mu  sync.Mutex
	cfg *config.Config

	// profiles and order are only touched on the UI context.
	profiles map[string]*profile.Profile
	order    []string
}

var _ ipc.Service = (*Service)(nil)

// NewService creates the service and its window manager.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	load := cfg.Load
	if load == nil {
		load = func(path string) (*config.Config, error) {
			res, err := config.LoadFromPath(path)
			if err != nil {
				return nil, err
			}
			return res.Config, nil
		}
	}
	s := &Service{
		monitors: cfg.Monitors,
		persist:  cfg.Persister,
		load:     load,
		onReload: cfg.OnReload,
		path:     cfg.Path,
		started:  time.Now(),
		logger:   logger,
		cfg:      cfg.Config.Clone(),
	}
	s.mgr = render.NewManager(render.ManagerConfig{
		Backend:     cfg.Backend,
		Monitors:    cfg.Monitors,
		Draw:        cfg.Draw,
		Commit:      s.commit,
		TargetRate:  cfg.Config.TargetFrameRate,
		QuietPeriod: cfg.Config.SettleDelay(),
		Logger:      logger,
	})
	s.setProfiles(cfg.Config)
	return s
}

// Manager returns the window manager.
func (s *Service) Manager() *render.Manager { return s.mgr }

// Config returns a copy of the effective config.
func (s *Service) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Clone()
}

func (s *Service) setProfiles(cfg *config.Config) {
	s.profiles = make(map[string]*profile.Profile, len(cfg.Profiles))
	s.order = s.order[:0]
	for _, pc := range cfg.Profiles {
		s.profiles[pc.ID] = pc.ToProfile(cfg.GridSize)
		s.order = append(s.order, pc.ID)
	}
}

func (s *Service) commit(p *profile.Profile) {
	if s.persist != nil {
		s.persist.Commit(p)
	}
}

func (s *Service) profile(id string) (*profile.Profile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return nil, fmt.Errorf("unknown profile %q", id)
	}
	return p, nil
}

// ShowConfigured opens every profile whose config marks it visible.
func (s *Service) ShowConfigured() {
	for _, id := range s.order {
		p := s.profiles[id]
		if p.Visibility != profile.VisibilityShown {
			continue
		}
		if _, err := s.mgr.Show(p); err != nil {
			s.logger.Error("failed to open profile window", "profile", id, "error", err)
		}
	}
}

// ToggleAll hides every shown window, or shows every profile when none is
// shown.
func (s *Service) ToggleAll() {
	anyShown := false
	for _, id := range s.mgr.IDs() {
		if c := s.mgr.Get(id); c != nil && c.Profile().Visibility == profile.VisibilityShown {
			anyShown = true
			break
		}
	}

	for _, id := range s.order {
		p := s.profiles[id]
		if anyShown {
			if s.mgr.IsOpen(id) && p.Visibility == profile.VisibilityShown {
				_ = s.mgr.Hide(id)
			}
			continue
		}
		if _, err := s.mgr.Show(p); err != nil {
			s.logger.Error("failed to open profile window", "profile", id, "error", err)
		}
	}
	s.logger.Info("toggled profile windows", "shown", !anyShown)
}

// ClearSelections drops the item selection in every open window.
func (s *Service) ClearSelections() {
	for _, id := range s.mgr.IDs() {
		if c := s.mgr.Get(id); c != nil {
			c.Store().ClearSelection()
		}
	}
}

// Shutdown closes every window. It must run on the UI context.
func (s *Service) Shutdown() {
	s.mgr.CloseAll()
}

func (s *Service) Status(ctx context.Context) (ipc.StatusData, error) {
	var sessions []render.Session
	err := s.mgr.Do(ctx, func() error {
		sessions = s.mgr.Sessions()
		return nil
	})
	if err != nil {
		return ipc.StatusData{}, err
	}

	cfg := s.Config()
	status := ipc.StatusData{
		TargetFrameRate: cfg.TargetFrameRate,
		Profiles:        len(cfg.Profiles),
		UptimeSeconds:   int64(time.Since(s.started).Seconds()),
		ConfigPath:      s.path,
		Windows:         make([]ipc.SessionInfo, 0, len(sessions)),
	}
	for _, ss := range sessions {
		status.Windows = append(status.Windows, sessionInfo(ss))
	}
	return status, nil
}

func sessionInfo(ss render.Session) ipc.SessionInfo {
	return ipc.SessionInfo{
		ProfileID:         ss.ProfileID,
		Mode:              string(ss.Mode),
		X:                 ss.Bounds.X,
		Y:                 ss.Bounds.Y,
		Width:             ss.Bounds.Width,
		Height:            ss.Bounds.Height,
		Visible:           ss.Visible,
		HiddenByPlacement: ss.HiddenByPlacement,
		TargetRate:        ss.TargetRate,
		RealizedFPS:       ss.RealizedFPS,
		Ticks:             ss.Ticks,
		SkippedTicks:      ss.SkippedTicks,
		ResizeState:       ss.ResizeState,
		Dragging:          ss.Dragging,
		CachedAssets:      ss.CachedAssets,
	}
}

func (s *Service) Monitors(ctx context.Context) ([]ipc.MonitorInfo, error) {
	displays, err := s.monitors.Snapshot()
	if err != nil {
		return nil, err
	}
	out := make([]ipc.MonitorInfo, 0, len(displays))
	for _, d := range displays {
		out = append(out, ipc.MonitorInfo{
			ID:     d.ID,
			Name:   d.Name,
			X:      d.Bounds.X,
			Y:      d.Bounds.Y,
			Width:  d.Bounds.Width,
			Height: d.Bounds.Height,
		})
	}
	return out, nil
}

func (s *Service) Profiles(ctx context.Context) ([]ipc.ProfileInfo, error) {
	var out []ipc.ProfileInfo
	err := s.mgr.Do(ctx, func() error {
		for _, id := range s.order {
			p := s.profiles[id]
			items := p.Items
			if c := s.mgr.Get(id); c != nil {
				items = c.Store().Items()
			}
			n := 0
			canvas.Walk(items, func(*canvas.Item, *canvas.Item) bool { n++; return true })
			out = append(out, ipc.ProfileInfo{
				ID:             p.ID,
				Name:           p.Name,
				Width:          p.Width,
				Height:         p.Height,
				WindowX:        p.WindowX,
				WindowY:        p.WindowY,
				Target:         p.Target.Name,
				StrictMatching: p.StrictMatching,
				RenderMode:     string(p.RenderMode),
				Open:           s.mgr.IsOpen(id),
				Items:          n,
			})
		}
		return nil
	})
	return out, err
}

func (s *Service) ShowProfile(ctx context.Context, id string) error {
	return s.mgr.Do(ctx, func() error {
		p, err := s.profile(id)
		if err != nil {
			return err
		}
		if _, err := s.mgr.Show(p); err != nil {
			return err
		}
		s.commit(p)
		return nil
	})
}

func (s *Service) HideProfile(ctx context.Context, id string) error {
	return s.mgr.Do(ctx, func() error {
		p, err := s.profile(id)
		if err != nil {
			return err
		}
		if err := s.mgr.Hide(id); err != nil {
			return err
		}
		s.commit(p)
		return nil
	})
}

func (s *Service) CloseProfile(ctx context.Context, id string) error {
	return s.mgr.Do(ctx, func() error {
		p, err := s.profile(id)
		if err != nil {
			return err
		}
		s.mgr.Close(id)
		p.Visibility = profile.VisibilityClosed
		s.commit(p)
		return nil
	})
}

func (s *Service) SetFrameRate(ctx context.Context, fps int, persist bool) error {
	err := s.mgr.Do(ctx, func() error {
		s.mgr.SetTargetRate(fps)
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.cfg.TargetFrameRate = fps
	s.mu.Unlock()
	if persist && s.persist != nil {
		s.persist.Update(func(c *config.Config) { c.TargetFrameRate = fps })
	}
	s.logger.Info("target frame rate changed", "fps", fps, "persist", persist)
	return nil
}

func (s *Service) ResolvePlacement(ctx context.Context, id string) (ipc.PlacementData, error) {
	var out ipc.PlacementData
	err := s.mgr.Do(ctx, func() error {
		p, err := s.profile(id)
		if err != nil {
			return err
		}
		monitors, err := s.monitors.Snapshot()
		if err != nil {
			return err
		}
		m, kind := placement.Match(p, monitors)
		out = ipc.PlacementData{ProfileID: id, Match: kind.String()}
		if pt, ok := placement.Resolve(p, monitors); ok {
			out.Found = true
			out.Monitor = m.Name
			out.X, out.Y = pt.X, pt.Y
		}
		return nil
	})
	return out, err
}

func (s *Service) Fullscreen(ctx context.Context, id string) error {
	return s.mgr.Do(ctx, func() error {
		c := s.mgr.Get(id)
		if c == nil {
			return fmt.Errorf("profile %q is not open", id)
		}
		return c.Fullscreen()
	})
}

func (s *Service) Items(ctx context.Context, id string) ([]ipc.ItemInfo, error) {
	var out []ipc.ItemInfo
	err := s.mgr.Do(ctx, func() error {
		p, err := s.profile(id)
		if err != nil {
			return err
		}
		items := p.Items
		if c := s.mgr.Get(id); c != nil {
			items = c.Store().Snapshot()
		}
		out = itemInfos(items)
		return nil
	})
	return out, err
}

func itemInfos(items []*canvas.Item) []ipc.ItemInfo {
	out := make([]ipc.ItemInfo, 0, len(items))
	for _, it := range items {
		info := ipc.ItemInfo{
			ID:       it.ID,
			Name:     it.Name,
			Kind:     string(it.Kind),
			X:        it.X,
			Y:        it.Y,
			Width:    it.Width,
			Height:   it.Height,
			Hidden:   it.Hidden,
			Locked:   it.Locked,
			Selected: it.Selected,
		}
		if len(it.Children) > 0 {
			info.Children = itemInfos(it.Children)
		}
		out = append(out, info)
	}
	return out
}

func (s *Service) ReorderItem(ctx context.Context, req ipc.ReorderItemPayload) error {
	return s.mgr.Do(ctx, func() error {
		p, err := s.profile(req.ProfileID)
		if err != nil {
			return err
		}

		// An open window commits through its own store observer.
		store := canvas.NewStore(p.Items)
		c := s.mgr.Get(req.ProfileID)
		if c != nil {
			store = c.Store()
		}

		it, _ := store.Find(req.ItemID)
		if it == nil {
			return fmt.Errorf("unknown item %q in profile %q", req.ItemID, req.ProfileID)
		}
		switch req.Position {
		case ipc.ReorderUp:
			err = store.Reorder(it, -1)
		case ipc.ReorderDown:
			err = store.Reorder(it, 1)
		case ipc.ReorderTop:
			err = store.ReorderTop(it)
		case ipc.ReorderBottom:
			err = store.ReorderBottom(it)
		default:
			err = fmt.Errorf("unknown position %q", req.Position)
		}
		if err != nil {
			return err
		}
		if c == nil {
			p.Items = store.Items()
			s.commit(p)
		}
		return nil
	})
}

// Reload re-reads the config file and applies it to every profile. Open
// windows pick up the new values in place; a render mode change recreates
// the window.
func (s *Service) Reload(ctx context.Context) error {
	cfg, err := s.load(s.path)
	if err != nil {
		return err
	}

	err = s.mgr.Do(ctx, func() error {
		s.applyConfig(cfg)
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("config reloaded", "path", s.path, "profiles", len(cfg.Profiles))
	return nil
}

func (s *Service) applyConfig(cfg *config.Config) {
	s.mu.Lock()
	s.cfg = cfg.Clone()
	s.mu.Unlock()
	if s.persist != nil {
		s.persist.Replace(cfg)
	}

	s.setProfiles(cfg)
	s.mgr.SetTargetRate(cfg.TargetFrameRate)

	open := s.mgr.IDs()
	sort.Strings(open)
	for _, id := range open {
		p, ok := s.profiles[id]
		if !ok {
			s.logger.Info("profile removed, closing window", "profile", id)
			s.mgr.Close(id)
			continue
		}
		switch p.Visibility {
		case profile.VisibilityClosed:
			s.mgr.Close(id)
			continue
		case profile.VisibilityHidden:
			_ = s.mgr.Hide(id)
			continue
		}
		if _, err := s.mgr.Show(p); err != nil {
			s.logger.Error("failed to apply reloaded profile", "profile", id, "error", err)
		}
	}
	for _, id := range s.order {
		p := s.profiles[id]
		if p.Visibility == profile.VisibilityShown && !s.mgr.IsOpen(id) {
			if _, err := s.mgr.Show(p); err != nil {
				s.logger.Error("failed to open profile window", "profile", id, "error", err)
			}
		}
	}

	if s.onReload != nil {
		s.onReload(cfg)
	}
}
