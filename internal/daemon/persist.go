package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/infopanel/internal/config"
	"github.com/1broseidon/infopanel/internal/profile"
)

// DefaultSaveDelay coalesces bursts of commits into one write.
const DefaultSaveDelay = 500 * time.Millisecond

// PersisterConfig configures a Persister.
type PersisterConfig struct {
	Path   string
	Delay  time.Duration
	Logger *slog.Logger
	// Save writes cfg to path. Defaults to (*config.Config).SaveTo.
	Save func(cfg *config.Config, path string) error
}

// Persister owns the on-disk config document. Committed profiles are folded
// into it on the caller's goroutine and written from Run, so the UI context
// never waits on the filesystem.
type Persister struct {
	path   string
	delay  time.Duration
	logger *slog.Logger
	save   func(cfg *config.Config, path string) error

	mu    sync.Mutex
	cfg   *config.Config
	dirty bool
	kick  chan struct{}
}

// NewPersister creates a persister starting from base. base is copied.
func NewPersister(cfg PersisterConfig, base *config.Config) *Persister {
	delay := cfg.Delay
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	save := cfg.Save
	if save == nil {
		save = func(c *config.Config, path string) error { return c.SaveTo(path) }
	}
	return &Persister{
		path:   cfg.Path,
		delay:  delay,
		logger: logger,
		save:   save,
		cfg:    base.Clone(),
		kick:   make(chan struct{}, 1),
	}
}

// Commit records p's persisted fields. p is copied before it is stored.
func (p *Persister) Commit(prof *profile.Profile) {
	if prof == nil {
		return
	}
	snap := prof.Clone()
	p.Update(func(c *config.Config) {
		c.SetProfile(config.FromProfile(snap, c.GridSize))
	})
}

// Update mutates the document under the lock and schedules a write.
func (p *Persister) Update(fn func(c *config.Config)) {
	p.mu.Lock()
	fn(p.cfg)
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Replace swaps in a freshly loaded document. Unwritten commits are dropped.
func (p *Persister) Replace(cfg *config.Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.dirty {
		p.logger.Warn("config reloaded with unsaved changes; discarding them")
	}
	p.cfg = cfg.Clone()
	p.dirty = false
}

// Config returns a copy of the current document.
func (p *Persister) Config() *config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg.Clone()
}

// Dirty reports whether there are changes not yet written.
func (p *Persister) Dirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// Run writes pending changes until ctx is cancelled, then flushes once more.
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if err := p.Flush(); err != nil {
				p.logger.Error("final config save failed", "error", err)
			}
			return
		case <-p.kick:
		}

		timer := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if err := p.Flush(); err != nil {
				p.logger.Error("final config save failed", "error", err)
			}
			return
		case <-timer.C:
		}

		if err := p.Flush(); err != nil {
			p.logger.Error("config save failed", "path", p.path, "error", err)
		}
	}
}

// Flush writes the document if it has changed.
func (p *Persister) Flush() error {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return nil
	}
	snap := p.cfg.Clone()
	p.dirty = false
	p.mu.Unlock()

	if err := p.save(snap, p.path); err != nil {
		p.mu.Lock()
		p.dirty = true
		p.mu.Unlock()
		return err
	}
	p.logger.Debug("config saved", "path", p.path, "profiles", len(snap.Profiles))
	return nil
}
