package render

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"time"

	"github.com/1broseidon/infopanel/internal/canvas"
	"github.com/1broseidon/infopanel/internal/monitor"
	"github.com/1broseidon/infopanel/internal/pacer"
	"github.com/1broseidon/infopanel/internal/placement"
	"github.com/1broseidon/infopanel/internal/platform"
	"github.com/1broseidon/infopanel/internal/profile"
	"github.com/1broseidon/infopanel/internal/resize"
)

// CommitFunc hands a profile whose geometry or items the user changed back to
// the persistence layer. It runs on the UI context and must not block.
type CommitFunc func(p *profile.Profile)

const (
	gripSize      = 12
	minWindowSize = 16
	paintLogEvery = 5 * time.Second
)

var defaultBackground = color.RGBA{R: 0x10, G: 0x12, B: 0x16, A: 0xff}

type gesture int

const (
	gestureNone gesture = iota
	gestureItems
	gestureWindow
	gestureResize
)

// Config configures a Controller.
type Config struct {
	Profile     *profile.Profile
	Backend     platform.Backend
	Monitors    *monitor.Registry
	Draw        DrawFunc
	Commit      CommitFunc
	TargetRate  int
	QuietPeriod time.Duration
	Logger      *slog.Logger
}

// Session is the transient per-window state, reported for diagnostics.
type Session struct {
	ProfileID         string
	Mode              platform.RenderMode
	Bounds            platform.Rect
	Visible           bool
	HiddenByPlacement bool
	TargetRate        int
	RealizedFPS       float64
	Ticks             uint64
	SkippedTicks      uint64
	ResizeState       string
	UserResizing      bool
	Adjusting         bool
	Dragging          bool
	DragAnchor        platform.Point
	CachedAssets      int
}

// Controller owns one profile window: it places it, paces and paints it, and
// turns pointer and key input into item and window edits. Every method except
// NewController must run on the UI context.
type Controller struct {
	profile  *profile.Profile
	backend  platform.Backend
	monitors *monitor.Registry
	draw     DrawFunc
	commit   CommitFunc
	logger   *slog.Logger

	win     platform.Window
	store   *canvas.Store
	pacer   *pacer.Pacer
	resize  *resize.Reconciler
	assets  *AssetCache
	unwatch func()

	closed            bool
	hiddenByPlacement bool
	pendingAdjust     int

	gesture    gesture
	dragAnchor platform.Point
	gripOffset platform.Point
	itemsMoved bool

	lastPaintErr time.Time
}

// NewController creates the window for cfg.Profile without showing it.
func NewController(cfg Config) (*Controller, error) {
	p := cfg.Profile
	if p == nil {
		return nil, fmt.Errorf("controller: profile is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("profile", p.ID)

	mode := p.RenderMode
	if mode == "" {
		mode = platform.RenderSoftware
	}
	win, err := cfg.Backend.NewWindow(platform.WindowOptions{
		Title:  p.Name,
		Bounds: platform.Rect{Width: max(p.Width, minWindowSize), Height: max(p.Height, minWindowSize)},
		Mode:   mode,
	})
	if err != nil {
		return nil, fmt.Errorf("create window for profile %q: %w", p.ID, err)
	}

	c := &Controller{
		profile:  p,
		backend:  cfg.Backend,
		monitors: cfg.Monitors,
		draw:     cfg.Draw,
		commit:   cfg.Commit,
		logger:   logger,
		win:      win,
		store:    canvas.NewStore(p.Items),
		assets:   NewAssetCache(),
	}
	if c.draw == nil {
		c.draw = NewPainter(logger).Draw
	}
	c.pacer = pacer.New(pacer.Config{
		TargetRate:   cfg.TargetRate,
		Post:         cfg.Backend.RunOnUI,
		OnInvalidate: c.OnTick,
		Logger:       logger,
	})
	c.resize = resize.New(resize.Config{
		QuietPeriod: cfg.QuietPeriod,
		Commit:      c.commitSize,
		Post:        cfg.Backend.RunOnUI,
		Logger:      logger,
	})
	c.unwatch = c.store.Subscribe(c.itemsChanged)
	win.SetInputHandler(c)
	return c, nil
}

// Profile returns the live profile. UI context only.
func (c *Controller) Profile() *profile.Profile { return c.profile }

// Store returns the item store.
func (c *Controller) Store() *canvas.Store { return c.store }

// Mode returns the render mode the window was created with.
func (c *Controller) Mode() platform.RenderMode { return c.win.Mode() }

// Closed reports whether OnClose has run.
func (c *Controller) Closed() bool { return c.closed }

// Session returns a diagnostic snapshot of the window state.
func (c *Controller) Session() Session {
	stats := c.pacer.Stats()
	state := c.resize.State()
	return Session{
		ProfileID:         c.profile.ID,
		Mode:              c.win.Mode(),
		Bounds:            c.win.Bounds(),
		Visible:           c.win.Visible(),
		HiddenByPlacement: c.hiddenByPlacement,
		TargetRate:        stats.TargetRate,
		RealizedFPS:       stats.RealizedFPS,
		Ticks:             stats.Ticks,
		SkippedTicks:      stats.Skipped,
		ResizeState:       state.String(),
		UserResizing:      state == resize.UserResizing || state == resize.SettleWait,
		Adjusting:         state == resize.ProgrammaticAdjust,
		Dragging:          c.gesture != gestureNone,
		DragAnchor:        c.dragAnchor,
		CachedAssets:      c.assets.Len(),
	}
}

// OnShow places the window, shows it if a monitor matched, and starts pacing.
func (c *Controller) OnShow() {
	if c.closed {
		return
	}
	c.profile.Visibility = profile.VisibilityShown
	c.maintainPixelSize()
	if c.Reposition(c.snapshot()) {
		c.win.Show()
		c.win.Raise()
	} else {
		c.hiddenByPlacement = true
	}
	c.pacer.Start()
}

// Activate brings an already open window back to the front.
func (c *Controller) Activate() {
	if c.closed {
		return
	}
	if c.profile.Visibility != profile.VisibilityShown {
		c.OnShow()
		return
	}
	if c.win.Visible() {
		c.win.Raise()
	}
}

// Hide unmaps the window and stops pacing, keeping all resources.
func (c *Controller) Hide() {
	if c.closed {
		return
	}
	c.profile.Visibility = profile.VisibilityHidden
	c.hiddenByPlacement = false
	c.pacer.Stop()
	c.win.Hide()
}

// OnTick is the pacer's invalidate. Ticks that arrive after close, while the
// window is hidden, or after pacing stopped are dropped.
func (c *Controller) OnTick() {
	if c.closed || !c.win.Visible() || !c.pacer.Running() {
		return
	}
	c.OnPaint()
}

// OnPaint clears the back buffer, runs the draw visitor once over a snapshot
// of the visible items, and presents. A failing frame is skipped and the
// window keeps its previous contents.
func (c *Controller) OnPaint() {
	if c.closed {
		return
	}
	if err := c.paint(); err != nil {
		if time.Since(c.lastPaintErr) >= paintLogEvery {
			c.logger.Warn("frame skipped", "error", err)
			c.lastPaintErr = time.Now()
		}
		return
	}
	c.pacer.FrameRendered()
}

func (c *Controller) paint() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("paint panic: %v", r)
		}
	}()

	bg, perr := canvas.ParseColor(c.profile.Background, defaultBackground)
	if perr != nil {
		bg = defaultBackground
	}
	s := c.win.Surface()
	s.Clear(bg)

	frame := Frame{
		Surface:   s,
		Items:     canvas.Visible(c.store.Items()),
		FontScale: c.profile.FontScale,
		Assets:    c.assets,
		Time:      time.Now(),
	}
	if err := c.draw(frame); err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	if err := s.Present(); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	return nil
}

// OnResize feeds an observed window size to the reconciler. Programmatic
// sizes only keep the surface in sync and close the pending adjustment.
func (c *Controller) OnResize(size platform.Size, programmatic bool) {
	if c.closed {
		return
	}
	if programmatic {
		if c.pendingAdjust > 0 {
			c.pendingAdjust--
			c.resize.EndAdjust()
		}
		return
	}
	c.resize.Observe(size)
}

// OnClose stops pacing, cancels any pending resize commit, releases every
// cached asset, then destroys the window. Release failures are logged and
// teardown continues.
func (c *Controller) OnClose() {
	if c.closed {
		return
	}
	c.closed = true
	c.profile.Visibility = profile.VisibilityClosed

	c.pacer.Stop()
	c.resize.Stop()
	if c.unwatch != nil {
		c.unwatch()
	}

	for _, err := range c.assets.ReleaseTree(c.store.Items()) {
		c.logger.Warn("asset release failed", "error", err)
	}
	if err := c.win.Destroy(); err != nil {
		c.logger.Warn("window destroy failed", "error", err)
	}
	c.logger.Info("window closed")
}

// SetTargetRate reconfigures the pacer in place.
func (c *Controller) SetTargetRate(fps int) {
	c.pacer.SetTargetRate(fps)
}

// Reposition resolves the profile against monitors and moves the window.
// When no monitor qualifies the window is hidden; a later successful pass
// shows it again. Nothing happens during a window drag.
func (c *Controller) Reposition(monitors []platform.Display) bool {
	if c.closed || c.gesture == gestureWindow {
		return false
	}
	pos, ok := placement.Resolve(c.profile, monitors)
	if !ok {
		if c.win.Visible() {
			c.logger.Info("no matching monitor, hiding window", "target", c.profile.Target.Name)
			c.win.Hide()
			c.hiddenByPlacement = true
		}
		return false
	}

	c.win.Move(pos.X, pos.Y)
	if c.hiddenByPlacement && c.profile.Visibility == profile.VisibilityShown {
		c.logger.Info("matching monitor back, showing window", "x", pos.X, "y", pos.Y)
		c.hiddenByPlacement = false
		c.win.Show()
	}
	return true
}

// DisplaysChanged re-runs placement and re-asserts the pixel size, since a
// monitor change can also change scaling. A user resize that has not settled
// yet keeps its size and commits it.
func (c *Controller) DisplaysChanged(monitors []platform.Display) {
	if c.closed {
		return
	}
	if !c.userResizing() {
		c.maintainPixelSize()
	}
	c.Reposition(monitors)
}

func (c *Controller) userResizing() bool {
	if c.gesture == gestureResize {
		return true
	}
	state := c.resize.State()
	return state == resize.UserResizing || state == resize.SettleWait
}

// ProfileChanged reacts to an external edit of one profile field.
func (c *Controller) ProfileChanged(field profile.Field) {
	if c.closed {
		return
	}
	switch field {
	case profile.FieldTarget, profile.FieldOffset, profile.FieldStrict:
		if c.gesture != gestureWindow {
			c.Reposition(c.snapshot())
		}
	case profile.FieldSize:
		c.maintainPixelSize()
	case profile.FieldItems:
		c.replaceItems(c.profile.Items)
	}
}

// replaceItems swaps in a new item tree. Cached images and remembered load
// failures belong to the old tree and are released with it.
func (c *Controller) replaceItems(items []*canvas.Item) {
	for _, err := range c.assets.ReleaseTree(c.store.Items()) {
		c.logger.Warn("asset release failed", "error", err)
	}
	c.store.Replace(items)
}

// Fullscreen makes the window cover the monitor it currently resolves to.
func (c *Controller) Fullscreen() error {
	monitors := c.snapshot()
	m, kind := placement.Match(c.profile, monitors)
	if kind == placement.MatchNone {
		return fmt.Errorf("profile %q: no matching monitor", c.profile.ID)
	}
	c.profile.WindowX = 0
	c.profile.WindowY = 0
	c.profile.Width = m.Bounds.Width
	c.profile.Height = m.Bounds.Height
	c.maintainPixelSize()
	c.Reposition(monitors)
	c.commitProfile()
	return nil
}

// maintainPixelSize resizes the window to the persisted profile size on
// behalf of the model.
func (c *Controller) maintainPixelSize() {
	b := c.win.Bounds()
	w, h := max(c.profile.Width, minWindowSize), max(c.profile.Height, minWindowSize)
	if b.Width == w && b.Height == h {
		return
	}
	c.resize.BeginAdjust()
	c.pendingAdjust++
	c.win.AdjustSize(w, h)
}

func (c *Controller) commitSize(size platform.Size) {
	if c.closed {
		return
	}
	if size.Width == c.profile.Width && size.Height == c.profile.Height {
		return
	}
	c.profile.Width = size.Width
	c.profile.Height = size.Height
	c.logger.Info("size committed", "width", size.Width, "height", size.Height)
	c.commitProfile()
}

func (c *Controller) commitProfile() {
	c.profile.Items = c.store.Items()
	if c.commit != nil {
		c.commit(c.profile)
	}
}

func (c *Controller) itemsChanged(ch canvas.Change) {
	switch ch.Kind {
	case canvas.ChangeMoved:
		if c.gesture == gestureItems {
			c.itemsMoved = true
		}
	case canvas.ChangeReordered:
		c.commitProfile()
	}
}

func (c *Controller) snapshot() []platform.Display {
	if c.monitors == nil {
		return nil
	}
	monitors, err := c.monitors.Snapshot()
	if err != nil {
		c.logger.Warn("monitor snapshot failed", "error", err)
		return nil
	}
	return monitors
}

// PointerDown implements platform.InputHandler.
func (c *Controller) PointerDown(ev platform.PointerEvent) {
	if c.closed || ev.Button != 1 || c.gesture != gestureNone {
		return
	}
	b := c.win.Bounds()
	if c.profile.Resize && inGrip(ev.Local, b) {
		c.gesture = gestureResize
		c.gripOffset = platform.Point{X: b.Width - ev.Local.X, Y: b.Height - ev.Local.Y}
		return
	}

	c.store.PointerDown(image.Pt(ev.Local.X, ev.Local.Y), ev.Modifiers.Multi())
	if c.store.Dragging() {
		c.gesture = gestureItems
		c.itemsMoved = false
		return
	}
	if c.profile.Drag {
		c.gesture = gestureWindow
		c.dragAnchor = platform.Point{X: ev.Root.X - b.X, Y: ev.Root.Y - b.Y}
	}
}

// PointerMove implements platform.InputHandler.
func (c *Controller) PointerMove(ev platform.PointerEvent) {
	if c.closed {
		return
	}
	switch c.gesture {
	case gestureItems:
		c.store.UpdateDrag(image.Pt(ev.Local.X, ev.Local.Y), c.profile.GridSize)
	case gestureWindow:
		c.win.Move(ev.Root.X-c.dragAnchor.X, ev.Root.Y-c.dragAnchor.Y)
	case gestureResize:
		w := max(ev.Local.X+c.gripOffset.X, minWindowSize)
		h := max(ev.Local.Y+c.gripOffset.Y, minWindowSize)
		c.win.Resize(min(w, resize.MaxDimension), min(h, resize.MaxDimension))
	}
}

// PointerUp implements platform.InputHandler.
func (c *Controller) PointerUp(ev platform.PointerEvent) {
	if c.closed || ev.Button != 1 {
		return
	}
	g := c.gesture
	c.gesture = gestureNone

	if g == gestureResize {
		// The reconciler commits once the size settles.
		return
	}
	c.store.EndDrag(ev.Modifiers.Multi())
	switch {
	case g == gestureWindow:
		c.commitWindowPosition()
	case c.itemsMoved:
		c.itemsMoved = false
		c.commitProfile()
	}
}

// commitWindowPosition saves the monitor under the dropped window as the new
// target and stores the offset relative to it.
func (c *Controller) commitWindowPosition() {
	b := c.win.Bounds()
	m, ok := placement.Containing(c.snapshot(), b)
	if !ok {
		return
	}
	c.profile.Target = placement.TargetFor(m)
	c.profile.WindowX = b.X - m.Bounds.X
	c.profile.WindowY = b.Y - m.Bounds.Y
	c.logger.Info("window moved", "monitor", m.Name, "x", c.profile.WindowX, "y", c.profile.WindowY)
	c.commitProfile()
}

// KeyDown implements platform.InputHandler.
func (c *Controller) KeyDown(ev platform.KeyEvent) {
	if c.closed {
		return
	}
	grid := max(c.profile.GridSize, 1)
	var moved bool
	switch ev.Key {
	case "Left":
		moved = c.store.Nudge(-1, 0, grid)
	case "Right":
		moved = c.store.Nudge(1, 0, grid)
	case "Up":
		moved = c.store.Nudge(0, -1, grid)
	case "Down":
		moved = c.store.Nudge(0, 1, grid)
	case "Escape":
		c.store.ClearSelection()
	}
	if moved {
		c.commitProfile()
	}
}

// Configured implements platform.InputHandler.
func (c *Controller) Configured(ev platform.ConfigureEvent) {
	c.OnResize(platform.Size{Width: ev.Bounds.Width, Height: ev.Bounds.Height}, ev.Programmatic)
}

// Exposed implements platform.InputHandler.
func (c *Controller) Exposed() {
	if c.win.Visible() {
		c.OnPaint()
	}
}

func inGrip(p platform.Point, b platform.Rect) bool {
	return p.X >= b.Width-gripSize && p.Y >= b.Height-gripSize
}
