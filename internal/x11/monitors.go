package x11

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// GetMonitors retrieves all active monitors using XRandR. The result is
// always queried fresh from the server.
func (c *Connection) GetMonitors() ([]Monitor, error) {
	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor

	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		outputName := fmt.Sprintf("Monitor%d", i)
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			outputName = string(outputInfo.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   outputName,
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		})
	}

	sort.Slice(monitors, func(i, j int) bool { return monitors[i].ID < monitors[j].ID })
	return monitors, nil
}

// WatchMonitors subscribes to RandR screen and CRTC changes and calls fn on
// the UI context for each one. A burst of notifications from a single
// hot-plug is delivered as one call per event; callers re-query anyway.
func (c *Connection) WatchMonitors(fn func()) error {
	mask := uint16(randr.NotifyMaskScreenChange | randr.NotifyMaskCrtcChange | randr.NotifyMaskOutputChange)
	if err := randr.SelectInputChecked(c.XUtil.Conn(), c.Root, mask).Check(); err != nil {
		return fmt.Errorf("randr select input: %w", err)
	}

	xevent.HookFun(func(xu *xgbutil.XUtil, ev interface{}) bool {
		switch ev.(type) {
		case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
			c.logger.Debug("randr change", "event", fmt.Sprintf("%T", ev))
			fn()
		}
		return true
	}).Connect(c.XUtil)
	return nil
}
