package resize

import (
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/infopanel/internal/platform"
)

// DefaultQuietPeriod is how long a size must stay unchanged before a user
// resize is committed.
const DefaultQuietPeriod = 300 * time.Millisecond

// MaxDimension bounds committed sizes. Anything larger is treated as bogus
// input from the window system.
const MaxDimension = 16384

// State is the reconciler phase.
type State int

const (
	Idle State = iota
	UserResizing
	SettleWait
	ProgrammaticAdjust
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case UserResizing:
		return "user-resizing"
	case SettleWait:
		return "settle-wait"
	case ProgrammaticAdjust:
		return "programmatic-adjust"
	default:
		return "unknown"
	}
}

// Timer is the subset of *time.Timer the reconciler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc matches time.AfterFunc; tests substitute a manual clock.
type AfterFunc func(d time.Duration, f func()) Timer

// Config configures a Reconciler.
type Config struct {
	QuietPeriod time.Duration
	// Commit receives the settled size on the UI context.
	Commit func(platform.Size)
	// Post marshals fn onto the UI context. Defaults to running inline.
	Post      func(fn func())
	AfterFunc AfterFunc
	Logger    *slog.Logger
}

// Reconciler separates transient drag frames from the final size a user
// settles on. Every raw user size change restarts a quiet-period timer; only
// when it expires is the last observed size committed. Size changes made by
// the model itself are bracketed with BeginAdjust/EndAdjust and never feed
// back into a commit.
type Reconciler struct {
	quiet     time.Duration
	commit    func(platform.Size)
	post      func(func())
	afterFunc AfterFunc
	logger    *slog.Logger

	mu        sync.Mutex
	state     State
	resumeTo  State
	last      platform.Size
	timer     Timer
	gen       uint64
	adjusting int
	stopped   bool
}

// New creates an idle reconciler.
func New(cfg Config) *Reconciler {
	quiet := cfg.QuietPeriod
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	post := cfg.Post
	if post == nil {
		post = func(fn func()) { fn() }
	}
	af := cfg.AfterFunc
	if af == nil {
		af = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		quiet:     quiet,
		commit:    cfg.Commit,
		post:      post,
		afterFunc: af,
		logger:    logger,
	}
}

// State returns the current phase.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Observe feeds one raw size-change event. It reports whether the event was
// taken as user-originated. Events seen during a programmatic adjustment are
// ignored for commit purposes; the caller still applies them to the surface.
func (r *Reconciler) Observe(size platform.Size) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped || r.adjusting > 0 {
		return false
	}
	if !valid(size) {
		r.logger.Debug("ignoring invalid size", "width", size.Width, "height", size.Height)
		return false
	}

	r.last = size
	if r.state == Idle {
		r.state = UserResizing
	} else {
		r.state = SettleWait
	}
	r.restartLocked()
	return true
}

// BeginAdjust enters ProgrammaticAdjust. Calls nest.
func (r *Reconciler) BeginAdjust() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adjusting == 0 {
		r.resumeTo = r.state
		r.state = ProgrammaticAdjust
	}
	r.adjusting++
}

// EndAdjust leaves ProgrammaticAdjust once every BeginAdjust is matched.
func (r *Reconciler) EndAdjust() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adjusting == 0 {
		return
	}
	r.adjusting--
	if r.adjusting == 0 {
		r.state = r.resumeTo
	}
}

// Adjust runs fn inside a BeginAdjust/EndAdjust bracket.
func (r *Reconciler) Adjust(fn func()) {
	r.BeginAdjust()
	defer r.EndAdjust()
	fn()
}

// Stop cancels any pending commit. A stopped reconciler ignores all events.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.state = Idle
}

func (r *Reconciler) restartLocked() {
	if r.timer != nil {
		r.timer.Stop()
	}
	r.gen++
	gen := r.gen
	r.timer = r.afterFunc(r.quiet, func() { r.expire(gen) })
}

// expire runs on the timer goroutine. A timer that was superseded by a newer
// event or by Stop carries a stale generation and does nothing.
func (r *Reconciler) expire(gen uint64) {
	r.mu.Lock()
	if r.stopped || gen != r.gen {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.mu.Unlock()

	r.post(func() {
		r.mu.Lock()
		if r.stopped || gen != r.gen {
			r.mu.Unlock()
			return
		}
		size := r.last
		if r.state == ProgrammaticAdjust {
			r.resumeTo = Idle
		} else {
			r.state = Idle
		}
		commit := r.commit
		r.mu.Unlock()

		r.logger.Debug("resize settled", "width", size.Width, "height", size.Height)
		if commit != nil {
			commit(size)
		}
	})
}

func valid(s platform.Size) bool {
	return s.Width > 0 && s.Height > 0 && s.Width <= MaxDimension && s.Height <= MaxDimension
}
