package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/1broseidon/infopanel/internal/monitor"
	"github.com/1broseidon/infopanel/internal/platform"
)

// eventLog records side effects across fakes so tests can assert ordering.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type fakeBackend struct {
	log      *eventLog
	displays []platform.Display
	failNew  error

	mu      sync.Mutex
	queue   []func()
	windows []*fakeWindow
	nextID  platform.WindowID
}

func newFakeBackend(displays ...platform.Display) *fakeBackend {
	return &fakeBackend{log: &eventLog{}, displays: displays}
}

func (b *fakeBackend) Displays() ([]platform.Display, error) {
	return b.displays, nil
}

func (b *fakeBackend) OnDisplaysChanged(func()) {}

func (b *fakeBackend) RunOnUI(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, fn)
}

// drain runs queued UI work, including work queued while draining.
func (b *fakeBackend) drain() int {
	n := 0
	for {
		b.mu.Lock()
		q := b.queue
		b.queue = nil
		b.mu.Unlock()
		if len(q) == 0 {
			return n
		}
		for _, fn := range q {
			fn()
			n++
		}
	}
}

func (b *fakeBackend) NewWindow(opts platform.WindowOptions) (platform.Window, error) {
	if b.failNew != nil {
		return nil, b.failNew
	}
	b.mu.Lock()
	b.nextID++
	w := &fakeWindow{
		id:      b.nextID,
		backend: b,
		mode:    opts.Mode,
		bounds:  opts.Bounds,
		surface: &fakeSurface{log: b.log, size: platform.Size{Width: opts.Bounds.Width, Height: opts.Bounds.Height}},
	}
	b.windows = append(b.windows, w)
	b.mu.Unlock()
	b.log.add("create %d %s", w.id, opts.Mode)
	return w, nil
}

func (b *fakeBackend) registry() *monitor.Registry {
	return monitor.NewRegistry(monitor.SourceFunc(b.Displays), nil)
}

type fakeWindow struct {
	id      platform.WindowID
	backend *fakeBackend
	mode    platform.RenderMode
	bounds  platform.Rect
	visible bool
	surface *fakeSurface
	handler platform.InputHandler

	moves     int
	destroyed bool
}

func (w *fakeWindow) ID() platform.WindowID { return w.id }
func (w *fakeWindow) Mode() platform.RenderMode { return w.mode }
func (w *fakeWindow) Surface() platform.Surface { return w.surface }
func (w *fakeWindow) Bounds() platform.Rect { return w.bounds }
func (w *fakeWindow) Visible() bool { return w.visible }
func (w *fakeWindow) Raise() {}
func (w *fakeWindow) SetInputHandler(h platform.InputHandler) { w.handler = h }

func (w *fakeWindow) Move(x, y int) {
	w.bounds.X, w.bounds.Y = x, y
	w.moves++
}

func (w *fakeWindow) Resize(width, height int) {
	w.bounds.Width, w.bounds.Height = width, height
	w.configure(false)
}

func (w *fakeWindow) AdjustSize(width, height int) {
	w.bounds.Width, w.bounds.Height = width, height
	w.configure(true)
}

// configure delivers the resulting ConfigureNotify on a later UI turn, the
// way the X server does.
func (w *fakeWindow) configure(programmatic bool) {
	ev := platform.ConfigureEvent{Bounds: w.bounds, Programmatic: programmatic}
	w.backend.RunOnUI(func() {
		if w.handler != nil && !w.destroyed {
			w.handler.Configured(ev)
		}
	})
}

func (w *fakeWindow) Show() {
	w.visible = true
	w.backend.log.add("show %d", w.id)
}

func (w *fakeWindow) Hide() {
	w.visible = false
	w.backend.log.add("hide %d", w.id)
}

func (w *fakeWindow) Destroy() error {
	w.destroyed = true
	w.visible = false
	w.backend.log.add("destroy %d", w.id)
	return nil
}

type fakeOp struct {
	Op   string
	Rect image.Rectangle
	Text string
}

type fakeSurface struct {
	log      *eventLog
	size     platform.Size
	ops      []fakeOp
	presents int
	uploads  int
	failUp   error
}

func (s *fakeSurface) Size() platform.Size { return s.size }

func (s *fakeSurface) Clear(color.RGBA) {
	s.ops = append(s.ops, fakeOp{Op: "clear"})
}

func (s *fakeSurface) FillRect(r image.Rectangle, _ color.RGBA) {
	s.ops = append(s.ops, fakeOp{Op: "fill", Rect: r})
}

func (s *fakeSurface) DrawText(x, y int, text string, _ color.RGBA) {
	s.ops = append(s.ops, fakeOp{Op: "text", Rect: image.Rect(x, y, x, y), Text: text})
}

func (s *fakeSurface) Upload(img image.Image) (platform.Resource, error) {
	if s.failUp != nil {
		return nil, s.failUp
	}
	s.uploads++
	return &fakeResource{log: s.log, name: fmt.Sprintf("res%d", s.uploads)}, nil
}

func (s *fakeSurface) DrawResource(res platform.Resource, x, y int) {
	s.ops = append(s.ops, fakeOp{Op: "blit", Rect: image.Rect(x, y, x, y), Text: res.(*fakeResource).name})
}

func (s *fakeSurface) Present() error {
	s.presents++
	return nil
}

func (s *fakeSurface) reset() {
	s.ops = nil
	s.presents = 0
}

type fakeResource struct {
	log      *eventLog
	name     string
	fail     bool
	released bool
}

func (r *fakeResource) Release() error {
	r.released = true
	r.log.add("release %s", r.name)
	if r.fail {
		return errors.New("release failed")
	}
	return nil
}
