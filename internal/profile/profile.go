package profile

import (
	"github.com/1broseidon/infopanel/internal/canvas"
	"github.com/1broseidon/infopanel/internal/platform"
)

// Visibility is the requested state of a profile's window.
type Visibility string

const (
	VisibilityShown  Visibility = "shown"
	VisibilityHidden Visibility = "hidden"
	VisibilityClosed Visibility = "closed"
)

// Target is the saved descriptor of the monitor a profile belongs to. It is
// only a matching key; the monitor it names may no longer exist.
type Target struct {
	Name   string        `yaml:"name" json:"name"`
	Bounds platform.Rect `yaml:"bounds" json:"bounds"`
}

// Field names a profile attribute whose change the window must react to.
type Field string

const (
	FieldTarget   Field = "target"
	FieldOffset   Field = "offset"
	FieldStrict   Field = "strict_matching"
	FieldSize     Field = "size"
	FieldMode     Field = "render_mode"
	FieldItems    Field = "items"
	FieldFontSize Field = "font_scale"
)

// Profile is one rendering target: a window, where it lives, and what it draws.
//
// Width, Height, WindowX, WindowY and Target only change through user-committed
// gestures or explicit configuration; in-flight drag values never land here.
type Profile struct {
	ID             string
	Name           string
	Width          int
	Height         int
	WindowX        int
	WindowY        int
	Target         Target
	StrictMatching bool
	Drag           bool
	Resize         bool
	RenderMode     platform.RenderMode
	FontScale      float64
	GridSize       int
	Visibility     Visibility
	Background     string
	Items          []*canvas.Item
}

// Size returns the persisted pixel size.
func (p *Profile) Size() platform.Size {
	return platform.Size{Width: p.Width, Height: p.Height}
}

// Clone returns a deep copy, including the item tree.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	out.Items = canvas.CloneItems(p.Items)
	return &out
}
