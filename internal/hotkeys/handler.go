package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/1broseidon/infopanel/internal/platform"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Binding is one global shortcut. An empty Keys disables it.
type Binding struct {
	Name   string
	Keys   string
	Action func()
}

// x11Accessor is an optional interface for backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	logger *slog.Logger

	registered []string
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler. Backends without X11 access get a
// handler whose registrations fail.
func NewHandler(backend platform.Backend, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	var xu *xgbutil.XUtil
	var root xproto.Window
	if accessor, ok := backend.(x11Accessor); ok {
		xu = accessor.XUtil()
		root = accessor.RootWindow()
	}

	if xu != nil {
		ignoreModsOnce.Do(func() {
			configureIgnoreMods(xu)
		})
	}

	return &Handler{
		xu:     xu,
		root:   root,
		logger: logger,
	}
}

// RegisterAll registers every enabled binding. A binding that fails does not
// stop the rest; the failures are returned together.
func (h *Handler) RegisterAll(bindings []Binding) error {
	var errs []error
	for _, b := range bindings {
		if strings.TrimSpace(b.Keys) == "" {
			h.logger.Debug("hotkey disabled", "name", b.Name)
			continue
		}
		if err := h.Register(b); err != nil {
			errs = append(errs, err)
			continue
		}
		h.logger.Info("hotkey registered", "name", b.Name, "keys", b.Keys)
	}
	return errors.Join(errs...)
}

// Register grabs b.Keys on the root window. The action runs on the X event
// loop, which is the UI context.
func (h *Handler) Register(b Binding) error {
	if h.xu == nil {
		return fmt.Errorf("hotkey %s: X11 connection unavailable", b.Name)
	}
	if b.Action == nil {
		return fmt.Errorf("hotkey %s: no action", b.Name)
	}
	err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		h.logger.Debug("hotkey triggered", "name", b.Name)
		b.Action()
	}).Connect(h.xu, h.root, b.Keys, true)
	if err != nil {
		return fmt.Errorf("hotkey %s (%s): %w", b.Name, b.Keys, err)
	}
	h.registered = append(h.registered, b.Keys)
	return nil
}

// UnregisterAll releases every grab made by this handler.
func (h *Handler) UnregisterAll() {
	if h.xu == nil {
		return
	}
	keybind.Detach(h.xu, h.root)
	h.registered = nil
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	xevent.IgnoreMods = ignoreMasks(caps, numLock, scrollLock)
}

// ignoreMasks returns every combination of the lock modifiers, including the
// empty one, so a grab fires regardless of lock state. Zero and duplicate
// masks are skipped.
func ignoreMasks(locks ...uint16) []uint16 {
	var base []uint16
	for _, m := range locks {
		if m == 0 {
			continue
		}
		dup := false
		for _, b := range base {
			if b == m {
				dup = true
				break
			}
		}
		if !dup {
			base = append(base, m)
		}
	}

	unique := map[uint16]struct{}{0: {}}
	out := []uint16{0}
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		if _, ok := unique[mask]; ok {
			continue
		}
		unique[mask] = struct{}{}
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
