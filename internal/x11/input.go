package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// PointerEvent is a button or motion event on a panel. X and Y are window
// relative; RootX and RootY are screen absolute.
type PointerEvent struct {
	X, Y         int
	RootX, RootY int
	Button       int
	State        uint16
}

// EventHandler receives a panel's input and structure events on the UI
// context.
type EventHandler interface {
	ButtonPress(ev PointerEvent)
	ButtonRelease(ev PointerEvent)
	Motion(ev PointerEvent)
	Key(name string, state uint16)
	Configure(x, y, width, height int, programmatic bool)
	Expose()
}

func (p *Panel) connectEvents() {
	xu := p.conn.XUtil

	xevent.ButtonPressFun(func(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		p.Focus()
		if p.handler != nil {
			p.handler.ButtonPress(PointerEvent{
				X: int(ev.EventX), Y: int(ev.EventY),
				RootX: int(ev.RootX), RootY: int(ev.RootY),
				Button: int(ev.Detail), State: ev.State,
			})
		}
	}).Connect(xu, p.ID)

	xevent.ButtonReleaseFun(func(xu *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
		if p.handler != nil {
			p.handler.ButtonRelease(PointerEvent{
				X: int(ev.EventX), Y: int(ev.EventY),
				RootX: int(ev.RootX), RootY: int(ev.RootY),
				Button: int(ev.Detail), State: ev.State,
			})
		}
	}).Connect(xu, p.ID)

	xevent.MotionNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		if p.handler != nil {
			p.handler.Motion(PointerEvent{
				X: int(ev.EventX), Y: int(ev.EventY),
				RootX: int(ev.RootX), RootY: int(ev.RootY),
				State: ev.State,
			})
		}
	}).Connect(xu, p.ID)

	xevent.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		if p.handler != nil {
			p.handler.Key(keybind.LookupString(xu, ev.State, ev.Detail), ev.State)
		}
	}).Connect(xu, p.ID)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		notify, programmatic := p.configured(int(ev.X), int(ev.Y), int(ev.Width), int(ev.Height))
		if notify && p.handler != nil {
			p.handler.Configure(int(ev.X), int(ev.Y), int(ev.Width), int(ev.Height), programmatic)
		}
	}).Connect(xu, p.ID)

	xevent.ExposeFun(func(xu *xgbutil.XUtil, ev xevent.ExposeEvent) {
		// Only the last expose of a series triggers a repaint.
		if ev.Count == 0 && p.handler != nil {
			p.handler.Expose()
		}
	}).Connect(xu, p.ID)
}

// Modifier masks as carried in PointerEvent.State and Key state.
const (
	StateShift   = xproto.ModMaskShift
	StateControl = xproto.ModMaskControl
	StateAlt     = xproto.ModMask1
)
