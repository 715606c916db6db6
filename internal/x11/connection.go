package x11

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and the UI context. All X requests
// for panel windows, and every function queued with RunOnUI, run on the
// goroutine that called EventLoop, serialized with X event handlers.
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	logger *slog.Logger

	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
}

// NewConnection establishes a connection to the X11 server and initializes
// the extensions the panel needs.
func NewConnection(logger *slog.Logger) (*Connection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}

	// Required for global hotkeys and key name lookup in panel windows.
	keybind.Initialize(xu)

	if err := randr.Init(xu.Conn()); err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	return &Connection{
		XUtil:  xu,
		Root:   xu.RootWin(),
		logger: logger,
		wake:   make(chan struct{}, 1),
	}, nil
}

// RunOnUI queues fn for the UI context. It never blocks and may be called
// from any goroutine.
func (c *Connection) RunOnUI(fn func()) {
	c.mu.Lock()
	c.queue = append(c.queue, fn)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// EventLoop runs X event dispatch and the UI queue until Quit (blocking).
func (c *Connection) EventLoop() {
	before, after, quit := xevent.MainPing(c.XUtil)
	for {
		select {
		case <-before:
			<-after
		case <-c.wake:
			c.drain()
		case <-quit:
			return
		}
	}
}

// Quit stops EventLoop after the current event.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)
}

func (c *Connection) drain() {
	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.mu.Unlock()

	for _, fn := range queue {
		c.run(fn)
	}
}

func (c *Connection) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("ui task panic recovered", "error", r)
		}
	}()
	fn()
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
