//go:build linux

package platform

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/1broseidon/infopanel/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay(logger *slog.Logger) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop runs the UI context until Quit (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit stops EventLoop.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Displays returns all active displays.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, displayFromMonitor(m))
	}
	return displays, nil
}

// OnDisplaysChanged registers fn for RandR change notifications.
func (b *LinuxBackend) OnDisplaysChanged(fn func()) {
	conn, err := b.connection()
	if err != nil {
		return
	}
	if err := conn.WatchMonitors(fn); err != nil {
		slog.Warn("monitor change notifications unavailable", "error", err)
	}
}

// RunOnUI queues fn on the X event loop goroutine.
func (b *LinuxBackend) RunOnUI(fn func()) {
	b.conn.RunOnUI(fn)
}

// NewWindow creates an unmapped panel window.
func (b *LinuxBackend) NewWindow(opts WindowOptions) (Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	kind := x11.SurfaceImage
	if opts.Mode == RenderAccelerated {
		kind = x11.SurfacePixmap
	}
	r := opts.Bounds
	panel, err := conn.NewPanel(opts.Title, r.X, r.Y, r.Width, r.Height, kind)
	if err != nil {
		return nil, err
	}
	mode := opts.Mode
	if mode == "" {
		mode = RenderSoftware
	}
	return &linuxWindow{panel: panel, mode: mode}, nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 connection unavailable")
	}
	return b.conn, nil
}

func displayFromMonitor(m x11.Monitor) Display {
	return Display{
		ID:   m.ID,
		Name: m.Name,
		Bounds: Rect{
			X:      m.X,
			Y:      m.Y,
			Width:  m.Width,
			Height: m.Height,
		},
	}
}

// linuxWindow adapts an x11 panel to Window.
type linuxWindow struct {
	panel *x11.Panel
	mode  RenderMode
}

func (w *linuxWindow) ID() WindowID { return WindowID(w.panel.ID) }
func (w *linuxWindow) Mode() RenderMode { return w.mode }
func (w *linuxWindow) Surface() Surface { return linuxSurface{w.panel.Surface()} }
func (w *linuxWindow) Move(x, y int) { w.panel.Move(x, y) }
func (w *linuxWindow) Show() { w.panel.Map(); w.panel.Raise() }
func (w *linuxWindow) Hide() { w.panel.Unmap() }
func (w *linuxWindow) Raise() { w.panel.Raise() }
func (w *linuxWindow) Visible() bool { return w.panel.Mapped() }
func (w *linuxWindow) Destroy() error { return w.panel.Destroy() }

func (w *linuxWindow) Bounds() Rect {
	x, y, width, height := w.panel.Geometry()
	return Rect{X: x, Y: y, Width: width, Height: height}
}

func (w *linuxWindow) Resize(width, height int) { w.panel.Resize(width, height) }
func (w *linuxWindow) AdjustSize(width, height int) { w.panel.AdjustSize(width, height) }

func (w *linuxWindow) SetInputHandler(h InputHandler) {
	if h == nil {
		w.panel.SetHandler(nil)
		return
	}
	w.panel.SetHandler(inputAdapter{h})
}

// linuxSurface adapts an x11 surface to Surface.
type linuxSurface struct {
	s x11.Surface
}

func (s linuxSurface) Size() Size {
	w, h := s.s.Size()
	return Size{Width: w, Height: h}
}

func (s linuxSurface) Clear(c color.RGBA) { s.s.Clear(c) }
func (s linuxSurface) FillRect(r image.Rectangle, c color.RGBA) { s.s.FillRect(r, c) }
func (s linuxSurface) DrawText(x, y int, text string, c color.RGBA) { s.s.DrawText(x, y, text, c) }
func (s linuxSurface) Upload(img image.Image) (Resource, error) { return s.s.Upload(img) }
func (s linuxSurface) DrawResource(res Resource, x, y int) { s.s.DrawResource(res, x, y) }
func (s linuxSurface) Present() error { return s.s.Present() }

// inputAdapter translates x11 events into InputHandler calls.
type inputAdapter struct {
	h InputHandler
}

func (a inputAdapter) ButtonPress(ev x11.PointerEvent) { a.h.PointerDown(pointerEvent(ev)) }
func (a inputAdapter) ButtonRelease(ev x11.PointerEvent) { a.h.PointerUp(pointerEvent(ev)) }
func (a inputAdapter) Motion(ev x11.PointerEvent) { a.h.PointerMove(pointerEvent(ev)) }
func (a inputAdapter) Expose() { a.h.Exposed() }

func (a inputAdapter) Key(name string, state uint16) {
	if name == "" {
		return
	}
	a.h.KeyDown(KeyEvent{Key: name, Modifiers: modifiers(state)})
}

func (a inputAdapter) Configure(x, y, width, height int, programmatic bool) {
	a.h.Configured(ConfigureEvent{
		Bounds:       Rect{X: x, Y: y, Width: width, Height: height},
		Programmatic: programmatic,
	})
}

func pointerEvent(ev x11.PointerEvent) PointerEvent {
	return PointerEvent{
		Local:     Point{X: ev.X, Y: ev.Y},
		Root:      Point{X: ev.RootX, Y: ev.RootY},
		Button:    ev.Button,
		Modifiers: modifiers(ev.State),
	}
}

func modifiers(state uint16) Modifiers {
	var m Modifiers
	if state&x11.StateShift != 0 {
		m |= ModShift
	}
	if state&x11.StateControl != 0 {
		m |= ModControl
	}
	if state&x11.StateAlt != 0 {
		m |= ModAlt
	}
	return m
}
