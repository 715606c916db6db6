package daemon

import (
	"image"
	"image/color"
	"sync"
	"testing"

	"github.com/1broseidon/infopanel/internal/monitor"
	"github.com/1broseidon/infopanel/internal/platform"
	"github.com/1broseidon/infopanel/internal/render"
)

// loopBackend runs UI work on one goroutine, like the X event loop.
type loopBackend struct {
	work chan func()
	done chan struct{}

	mu       sync.Mutex
	displays []platform.Display
	windows  []*fakeWindow
	nextID   platform.WindowID
}

func newLoopBackend(t *testing.T, displays ...platform.Display) *loopBackend {
	t.Helper()
	b := &loopBackend{
		work:     make(chan func(), 256),
		done:     make(chan struct{}),
		displays: displays,
	}
	go func() {
		for {
			select {
			case fn := <-b.work:
				fn()
			case <-b.done:
				return
			}
		}
	}()
	t.Cleanup(func() { close(b.done) })
	return b
}

func (b *loopBackend) Displays() ([]platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.Display(nil), b.displays...), nil
}

func (b *loopBackend) setDisplays(displays ...platform.Display) {
	b.mu.Lock()
	b.displays = displays
	b.mu.Unlock()
}

func (b *loopBackend) OnDisplaysChanged(func()) {}

func (b *loopBackend) RunOnUI(fn func()) {
	select {
	case b.work <- fn:
	case <-b.done:
	}
}

func (b *loopBackend) NewWindow(opts platform.WindowOptions) (platform.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	w := &fakeWindow{id: b.nextID, mode: opts.Mode, bounds: opts.Bounds}
	b.windows = append(b.windows, w)
	return w, nil
}

func (b *loopBackend) registry() *monitor.Registry {
	return monitor.NewRegistry(monitor.SourceFunc(b.Displays), nil)
}

// fakeWindow is only touched on the loop goroutine.
type fakeWindow struct {
	id        platform.WindowID
	mode      platform.RenderMode
	bounds    platform.Rect
	visible   bool
	destroyed bool
}

func (w *fakeWindow) ID() platform.WindowID { return w.id }
func (w *fakeWindow) Mode() platform.RenderMode { return w.mode }
func (w *fakeWindow) Surface() platform.Surface { return nopSurface{} }
func (w *fakeWindow) Bounds() platform.Rect { return w.bounds }
func (w *fakeWindow) Move(x, y int) { w.bounds.X, w.bounds.Y = x, y }
func (w *fakeWindow) Resize(width, height int) { w.bounds.Width, w.bounds.Height = width, height }
func (w *fakeWindow) AdjustSize(width, height int) { w.bounds.Width, w.bounds.Height = width, height }
func (w *fakeWindow) Show() { w.visible = true }
func (w *fakeWindow) Hide() { w.visible = false }
func (w *fakeWindow) Raise() {}
func (w *fakeWindow) Visible() bool { return w.visible }
func (w *fakeWindow) SetInputHandler(platform.InputHandler) {}

func (w *fakeWindow) Destroy() error {
	w.destroyed = true
	w.visible = false
	return nil
}

type nopSurface struct{}

func (nopSurface) Size() platform.Size { return platform.Size{} }
func (nopSurface) Clear(color.RGBA) {}
func (nopSurface) FillRect(image.Rectangle, color.RGBA) {}
func (nopSurface) DrawText(int, int, string, color.RGBA) {}
func (nopSurface) Upload(image.Image) (platform.Resource, error) { return nil, nil }
func (nopSurface) DrawResource(platform.Resource, int, int) {}
func (nopSurface) Present() error { return nil }

func nopDraw(render.Frame) error { return nil }
