package platform

import (
	"image"
	"image/color"
)

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Point is a position in screen or window coordinates.
type Point struct {
	X int
	Y int
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  int
	Height int
}

// Display describes a physical display. Identity is only stable within one
// session; Name and Bounds are what placement matches against.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
}

// Modifiers is the set of keyboard modifiers held during an input event.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModControl
	ModAlt
)

// Multi reports whether the modifiers request additive selection.
func (m Modifiers) Multi() bool {
	return m&(ModShift|ModControl) != 0
}

// PointerEvent is a button or motion event delivered to a panel window.
// Local is window-relative; Root is screen-absolute.
type PointerEvent struct {
	Local     Point
	Root      Point
	Button    int
	Modifiers Modifiers
}

// KeyEvent is a key press delivered to a panel window.
type KeyEvent struct {
	Key       string
	Modifiers Modifiers
}

// ConfigureEvent reports a new window geometry. Programmatic is true when the
// change was requested through Window.AdjustSize rather than a user gesture.
type ConfigureEvent struct {
	Bounds       Rect
	Programmatic bool
}

// InputHandler receives window events on the UI context.
type InputHandler interface {
	PointerDown(ev PointerEvent)
	PointerMove(ev PointerEvent)
	PointerUp(ev PointerEvent)
	KeyDown(ev KeyEvent)
	Configured(ev ConfigureEvent)
	Exposed()
}

// Resource is a surface-owned asset (decoded image, server pixmap) that must
// be released before its window is destroyed.
type Resource interface {
	Release() error
}

// Surface is the drawing target of one panel window. Drawing goes to a back
// buffer; nothing is visible until Present.
type Surface interface {
	Size() Size
	Clear(bg color.RGBA)
	FillRect(r image.Rectangle, c color.RGBA)
	DrawText(x, y int, text string, c color.RGBA)
	Upload(img image.Image) (Resource, error)
	DrawResource(res Resource, x, y int)
	Present() error
}

// RenderMode selects the drawing context a window is created with.
type RenderMode string

const (
	RenderSoftware    RenderMode = "software"
	RenderAccelerated RenderMode = "accelerated"
)

// WindowOptions configures a new panel window.
type WindowOptions struct {
	Title  string
	Bounds Rect
	Mode   RenderMode
}

// Window is a borderless, always-on-top panel window.
type Window interface {
	ID() WindowID
	Mode() RenderMode
	Surface() Surface
	Bounds() Rect
	Move(x, y int)
	Resize(width, height int)
	// AdjustSize resizes the window on behalf of the model. The resulting
	// ConfigureEvent carries Programmatic=true.
	AdjustSize(width, height int)
	Show()
	Hide()
	Raise()
	Visible() bool
	SetInputHandler(h InputHandler)
	Destroy() error
}

// Backend abstracts window-system operations across platforms.
type Backend interface {
	Displays() ([]Display, error)
	// OnDisplaysChanged registers fn to run on the UI context whenever the
	// monitor configuration changes.
	OnDisplaysChanged(fn func())
	// RunOnUI queues fn on the UI context. It is safe to call from any
	// goroutine.
	RunOnUI(fn func())
	NewWindow(opts WindowOptions) (Window, error)
}
