package pacer

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRate is used when no target rate is configured.
const DefaultRate = 60

// Interval returns the tick period for fps: one frame time minus a
// millisecond, so the timer slightly outruns the target rather than lagging
// it. Rates below 1 are treated as 1.
func Interval(fps int) time.Duration {
	if fps < 1 {
		fps = 1
	}
	d := time.Second/time.Duration(fps) - time.Millisecond
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}

// Config configures a Pacer.
type Config struct {
	TargetRate int
	// Post marshals fn onto the UI context. It must not block.
	Post func(fn func())
	// OnInvalidate runs on the UI context once per coalesced tick.
	OnInvalidate func()
	Logger       *slog.Logger
	Now          func() time.Time
}

// Stats is a point-in-time view of pacing counters.
type Stats struct {
	TargetRate  int
	Interval    time.Duration
	Ticks       uint64
	Skipped     uint64
	RealizedFPS float64
}

// Pacer drives repaints at a target rate from its own goroutine. Ticks never
// paint directly; they post an invalidate to the UI context, and a tick that
// finds an invalidate still outstanding is dropped instead of queued.
type Pacer struct {
	post         func(func())
	onInvalidate func()
	logger       *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	rate     int
	interval time.Duration
	running  bool
	stop     chan struct{}
	done     chan struct{}
	reset    chan time.Duration

	pending atomic.Bool
	ticks   atomic.Uint64
	skipped atomic.Uint64

	fps *FPSCounter
}

// New creates a stopped pacer.
func New(cfg Config) *Pacer {
	rate := cfg.TargetRate
	if rate < 1 {
		rate = DefaultRate
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	post := cfg.Post
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &Pacer{
		post:         post,
		onInvalidate: cfg.OnInvalidate,
		logger:       logger,
		now:          now,
		rate:         rate,
		interval:     Interval(rate),
		fps:          NewFPSCounter(rate),
	}
}

// Start launches the tick goroutine. Starting a running pacer is a no-op.
func (p *Pacer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.reset = make(chan time.Duration, 1)
	go p.loop(p.interval, p.stop, p.done, p.reset)
}

// Stop halts the tick goroutine and waits for it to exit. An invalidate that
// was already posted may still run; receivers must tolerate that.
func (p *Pacer) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	done := p.done
	p.mu.Unlock()
	<-done
}

// Running reports whether the tick goroutine is active.
func (p *Pacer) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// SetTargetRate changes the rate in place. The running ticker is re-armed
// with the new interval and the FPS window is resized, not cleared.
func (p *Pacer) SetTargetRate(fps int) {
	if fps < 1 {
		fps = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if fps == p.rate {
		return
	}
	p.rate = fps
	p.interval = Interval(fps)
	p.fps.Resize(fps)
	p.logger.Debug("frame rate changed", "fps", fps, "interval", p.interval)

	if p.running {
		select {
		case <-p.reset:
		default:
		}
		p.reset <- p.interval
	}
}

// TargetRate returns the configured rate.
func (p *Pacer) TargetRate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// Interval returns the current tick period.
func (p *Pacer) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// FrameRendered records one realized paint. Call it from the paint path, not
// from the tick.
func (p *Pacer) FrameRendered() {
	p.fps.Frame(p.now())
}

// RealizedFPS returns the moving-average paint rate.
func (p *Pacer) RealizedFPS() float64 {
	return p.fps.FPS()
}

// FPSWindow returns the sample count and capacity of the FPS window.
func (p *Pacer) FPSWindow() (n, capacity int) {
	return p.fps.Len(), p.fps.Cap()
}

// Stats returns the current counters.
func (p *Pacer) Stats() Stats {
	p.mu.Lock()
	rate, interval := p.rate, p.interval
	p.mu.Unlock()
	return Stats{
		TargetRate:  rate,
		Interval:    interval,
		Ticks:       p.ticks.Load(),
		Skipped:     p.skipped.Load(),
		RealizedFPS: p.fps.FPS(),
	}
}

func (p *Pacer) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}, reset <-chan time.Duration) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case d := <-reset:
			ticker.Reset(d)
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick posts one invalidate unless a previous one is still outstanding. It
// is exported so callers and tests can drive the pacer without a ticker.
func (p *Pacer) Tick() {
	p.ticks.Add(1)
	if !p.pending.CompareAndSwap(false, true) {
		p.skipped.Add(1)
		return
	}
	p.post(func() {
		defer p.pending.Store(false)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("invalidate panic recovered", "error", r)
			}
		}()
		if p.onInvalidate != nil {
			p.onInvalidate()
		}
	})
}
