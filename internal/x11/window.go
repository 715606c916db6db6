package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
)

const wmClass = "infopanel"

// allDesktops is the _NET_WM_DESKTOP value for sticky windows.
const allDesktops = 0xFFFFFFFF

// SurfaceKind selects how a panel's back buffer is kept.
type SurfaceKind int

const (
	// SurfaceImage keeps the back buffer client-side and uploads it with
	// PutImage on present.
	SurfaceImage SurfaceKind = iota
	// SurfacePixmap keeps the back buffer in a server-side pixmap and
	// presents with CopyArea.
	SurfacePixmap
)

// Panel is an override-redirect window with its own drawing surface.
// Methods must be called on the UI context.
type Panel struct {
	conn *Connection
	ID   xproto.Window

	kind    SurfaceKind
	surface Surface
	handler EventHandler

	x, y          int
	width, height int
	mapped        bool
	destroyed     bool

	// expect holds sizes requested through AdjustSize whose ConfigureNotify
	// has not arrived yet.
	expect [][2]int
}

// NewPanel creates an unmapped panel window.
func (c *Connection) NewPanel(title string, x, y, width, height int, kind SurfaceKind) (*Panel, error) {
	conn := c.XUtil.Conn()
	screen := c.XUtil.Screen()
	width, height = max(width, 1), max(height, 1)

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}

	events := uint32(xproto.EventMaskButtonPress | xproto.EventMaskButtonRelease |
		xproto.EventMaskPointerMotion | xproto.EventMaskKeyPress |
		xproto.EventMaskStructureNotify | xproto.EventMaskExposure)

	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		c.Root,
		int16(x), int16(y),
		uint16(width), uint16(height),
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		// Value list order follows the bit positions of the mask.
		[]uint32{0, 1, events},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	p := &Panel{conn: c, ID: wid, kind: kind, x: x, y: y, width: width, height: height}
	p.setHints(title)

	switch kind {
	case SurfacePixmap:
		p.surface, err = newPixmapSurface(c, wid, width, height)
	default:
		p.surface, err = newImageSurface(c, wid, width, height)
	}
	if err != nil {
		xproto.DestroyWindow(conn, wid)
		return nil, fmt.Errorf("create surface: %w", err)
	}

	p.connectEvents()
	return p, nil
}

func (p *Panel) setHints(title string) {
	xu := p.conn.XUtil
	_ = icccm.WmNameSet(xu, p.ID, title)
	_ = icccm.WmClassSet(xu, p.ID, &icccm.WmClass{Instance: wmClass, Class: wmClass})
	_ = ewmh.WmNameSet(xu, p.ID, title)
	_ = ewmh.WmWindowTypeSet(xu, p.ID, []string{"_NET_WM_WINDOW_TYPE_UTILITY"})
	_ = ewmh.WmStateSet(xu, p.ID, []string{"_NET_WM_STATE_ABOVE", "_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_SKIP_PAGER", "_NET_WM_STATE_STICKY"})
	_ = ewmh.WmDesktopSet(xu, p.ID, allDesktops)
}

// Kind returns the surface kind the panel was created with.
func (p *Panel) Kind() SurfaceKind { return p.kind }

// Surface returns the panel's back buffer.
func (p *Panel) Surface() Surface { return p.surface }

// Geometry returns the last known position and size.
func (p *Panel) Geometry() (x, y, width, height int) {
	return p.x, p.y, p.width, p.height
}

// Mapped reports whether the window is shown.
func (p *Panel) Mapped() bool { return p.mapped }

// SetHandler installs the receiver for input and structure events.
func (p *Panel) SetHandler(h EventHandler) { p.handler = h }

// Move positions the window in root coordinates.
func (p *Panel) Move(x, y int) {
	if p.destroyed {
		return
	}
	p.x, p.y = x, y
	xproto.ConfigureWindow(p.conn.XUtil.Conn(), p.ID,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(int32(x)), uint32(int32(y))})
}

// Resize requests a new size. The resulting ConfigureNotify is reported as
// user-driven.
func (p *Panel) Resize(width, height int) {
	p.configureSize(width, height)
}

// AdjustSize requests a new size on behalf of the program. The surface
// follows immediately and the resulting ConfigureNotify is reported as
// programmatic.
func (p *Panel) AdjustSize(width, height int) {
	width, height = max(width, 1), max(height, 1)
	if p.destroyed || (width == p.width && height == p.height) {
		return
	}
	p.width, p.height = width, height
	if err := p.surface.resize(width, height); err != nil {
		p.conn.logger.Warn("surface resize failed", "window", p.ID, "error", err)
	}
	p.expect = append(p.expect, [2]int{width, height})
	p.configureSize(width, height)
}

func (p *Panel) configureSize(width, height int) {
	if p.destroyed {
		return
	}
	width, height = max(width, 1), max(height, 1)
	xproto.ConfigureWindow(p.conn.XUtil.Conn(), p.ID,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(width), uint32(height)})
}

// Map shows the window.
func (p *Panel) Map() {
	if p.destroyed || p.mapped {
		return
	}
	xproto.MapWindow(p.conn.XUtil.Conn(), p.ID)
	p.mapped = true
}

// Unmap hides the window.
func (p *Panel) Unmap() {
	if p.destroyed || !p.mapped {
		return
	}
	xproto.UnmapWindow(p.conn.XUtil.Conn(), p.ID)
	p.mapped = false
}

// Raise stacks the window above its siblings.
func (p *Panel) Raise() {
	if p.destroyed {
		return
	}
	xproto.ConfigureWindow(p.conn.XUtil.Conn(), p.ID,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove})
}

// Focus gives the window keyboard focus. Override-redirect windows never
// receive it from the window manager.
func (p *Panel) Focus() {
	if p.destroyed || !p.mapped {
		return
	}
	xproto.SetInputFocus(p.conn.XUtil.Conn(), xproto.InputFocusPointerRoot, p.ID, xproto.TimeCurrentTime)
}

// Destroy frees the surface, detaches event handlers and destroys the window.
func (p *Panel) Destroy() error {
	if p.destroyed {
		return nil
	}
	p.destroyed = true
	p.mapped = false
	p.surface.destroy()
	xevent.Detach(p.conn.XUtil, p.ID)
	return xproto.DestroyWindowChecked(p.conn.XUtil.Conn(), p.ID).Check()
}

// configured handles a ConfigureNotify. It reports whether the event should
// reach the handler and whether it answers an AdjustSize request.
func (p *Panel) configured(x, y, width, height int) (notify, programmatic bool) {
	p.x, p.y = x, y
	for i, e := range p.expect {
		if e[0] == width && e[1] == height {
			p.expect = p.expect[i+1:]
			programmatic = true
			break
		}
	}
	if width == p.width && height == p.height {
		return programmatic, programmatic
	}
	p.width, p.height = width, height
	if err := p.surface.resize(width, height); err != nil {
		p.conn.logger.Warn("surface resize failed", "window", p.ID, "error", err)
	}
	return true, programmatic
}
