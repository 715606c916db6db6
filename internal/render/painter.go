package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"time"

	"github.com/1broseidon/infopanel/internal/canvas"
	"github.com/1broseidon/infopanel/internal/platform"
)

// Frame is everything a draw visitor gets for one paint.
type Frame struct {
	Surface platform.Surface
	// Items are the visible items in ascending z-order. They are a private
	// copy; mutating them has no effect on the panel.
	Items     []*canvas.Item
	FontScale float64
	Assets    *AssetCache
	Time      time.Time
}

// DrawFunc rasterizes one frame. It is called exactly once per realized
// paint, after the surface has been cleared.
type DrawFunc func(f Frame) error

var (
	defaultFill    = color.RGBA{R: 0x3a, G: 0x3f, B: 0x4b, A: 0xff}
	defaultText    = color.RGBA{R: 0xf5, G: 0xf7, B: 0xfa, A: 0xff}
	selectionColor = color.RGBA{R: 0x34, G: 0x98, B: 0xdb, A: 0xff}
)

const (
	baseLineHeight = 13
	outlineWidth   = 2
)

// ImageLoader decodes the file behind an image item into one or more frames.
type ImageLoader func(path string) ([]image.Image, []time.Duration, error)

// Painter is the built-in draw visitor. It fills rect items, writes text
// items, blits image items through the window's asset cache, and outlines
// selected items.
type Painter struct {
	Load   ImageLoader
	Logger *slog.Logger
}

// NewPainter creates a painter that decodes images from disk.
func NewPainter(logger *slog.Logger) *Painter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Painter{Load: LoadImageFile, Logger: logger}
}

// Draw implements DrawFunc.
func (p *Painter) Draw(f Frame) error {
	scale := f.FontScale
	if scale <= 0 {
		scale = 1
	}
	for _, it := range f.Items {
		if err := p.drawItem(f, it, scale); err != nil {
			return err
		}
	}
	return nil
}

func (p *Painter) drawItem(f Frame, it *canvas.Item, scale float64) error {
	s := f.Surface
	switch it.Kind {
	case canvas.KindGroup:
		for _, child := range it.Children {
			if err := p.drawItem(f, child, scale); err != nil {
				return err
			}
		}
	case canvas.KindRect:
		c, err := canvas.ParseColor(it.Color, defaultFill)
		if err != nil {
			return fmt.Errorf("item %q: %w", it.ID, err)
		}
		s.FillRect(it.Bounds(), c)
	case canvas.KindText:
		c, err := canvas.ParseColor(it.Color, defaultText)
		if err != nil {
			return fmt.Errorf("item %q: %w", it.ID, err)
		}
		s.DrawText(it.X, it.Y+int(baseLineHeight*scale), it.Text, c)
	case canvas.KindImage:
		p.drawImage(f, it)
	}

	if it.Selected {
		outline(s, it.Bounds())
	}
	return nil
}

func (p *Painter) drawImage(f Frame, it *canvas.Item) {
	if it.Image == "" || f.Assets == nil {
		return
	}
	asset, ok := f.Assets.Get(it.ID)
	if !ok || asset.Path != it.Image {
		if f.Assets.Failed(it.ID, it.Image) {
			return
		}
		var err error
		asset, err = p.upload(f.Surface, it.Image)
		if err != nil {
			f.Assets.MarkFailed(it.ID, it.Image)
			p.Logger.Warn("image unavailable", "item", it.ID, "path", it.Image, "error", err)
			return
		}
		if err := f.Assets.Put(it.ID, asset); err != nil {
			p.Logger.Warn("release replaced asset", "item", it.ID, "error", err)
		}
	}
	if res := asset.FrameAt(f.Time); res != nil {
		f.Surface.DrawResource(res, it.X, it.Y)
	}
}

func (p *Painter) upload(s platform.Surface, path string) (*Asset, error) {
	frames, delays, err := p.Load(path)
	if err != nil {
		return nil, err
	}
	asset := &Asset{Delays: delays, Path: path}
	for i, img := range frames {
		res, err := s.Upload(img)
		if err != nil {
			_ = asset.Release()
			return nil, fmt.Errorf("upload frame %d: %w", i, err)
		}
		asset.Frames = append(asset.Frames, res)
	}
	return asset, nil
}

func outline(s platform.Surface, r image.Rectangle) {
	t := outlineWidth
	s.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t), selectionColor)
	s.FillRect(image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y), selectionColor)
	s.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y), selectionColor)
	s.FillRect(image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y), selectionColor)
}

// LoadImageFile decodes a PNG, JPEG or GIF file. Animated GIFs yield every
// frame composited onto the previous ones, with their delays.
func LoadImageFile(path string) ([]image.Image, []time.Duration, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open image: %w", err)
	}
	defer fh.Close()

	if g, err := gif.DecodeAll(fh); err == nil {
		return composeGIF(g)
	}
	if _, err := fh.Seek(0, 0); err != nil {
		return nil, nil, fmt.Errorf("rewind image: %w", err)
	}
	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, nil, fmt.Errorf("decode image: %w", err)
	}
	return []image.Image{img}, nil, nil
}

func composeGIF(g *gif.GIF) ([]image.Image, []time.Duration, error) {
	if len(g.Image) == 0 {
		return nil, nil, fmt.Errorf("gif has no frames")
	}
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	acc := image.NewRGBA(bounds)
	frames := make([]image.Image, 0, len(g.Image))
	delays := make([]time.Duration, 0, len(g.Image))
	for i, frame := range g.Image {
		draw.Draw(acc, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		snap := image.NewRGBA(bounds)
		copy(snap.Pix, acc.Pix)
		frames = append(frames, snap)
		d := 100 * time.Millisecond
		if i < len(g.Delay) && g.Delay[i] > 0 {
			d = time.Duration(g.Delay[i]) * 10 * time.Millisecond
		}
		delays = append(delays, d)
	}
	if len(frames) == 1 {
		delays = nil
	}
	return frames, delays, nil
}
