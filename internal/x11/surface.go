package x11

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Resource is a surface-side copy of an uploaded image.
type Resource interface {
	Release() error
}

// Surface is a panel's back buffer. Drawing calls affect nothing on screen
// until Present.
type Surface interface {
	Size() (width, height int)
	Clear(c color.RGBA)
	FillRect(r image.Rectangle, c color.RGBA)
	DrawText(x, y int, text string, c color.RGBA)
	Upload(img image.Image) (Resource, error)
	DrawResource(res Resource, x, y int)
	Present() error

	resize(width, height int) error
	destroy()
}

var fontNames = []string{"fixed", "9x15", "8x13", "6x13"}

func openFont(c *Connection) (xproto.Font, error) {
	conn := c.XUtil.Conn()
	fid, err := xproto.NewFontId(conn)
	if err != nil {
		return 0, err
	}
	for _, name := range fontNames {
		if err := xproto.OpenFontChecked(conn, fid, uint16(len(name)), name).Check(); err == nil {
			return fid, nil
		}
	}
	return 0, fmt.Errorf("no core font available from %v", fontNames)
}

func newGC(c *Connection, d xproto.Drawable, mask uint32, values []uint32) (xproto.Gcontext, error) {
	conn := c.XUtil.Conn()
	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return 0, err
	}
	if err := xproto.CreateGCChecked(conn, gc, d, mask, values).Check(); err != nil {
		return 0, fmt.Errorf("create gc: %w", err)
	}
	return gc, nil
}

func pixel(c color.RGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// putImage uploads img to d as a ZPixmap, split into bands of rows that fit
// in a single request.
func putImage(c *Connection, d xproto.Drawable, gc xproto.Gcontext, depth byte, img *image.RGBA, dstX, dstY int) {
	conn := c.XUtil.Conn()
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return
	}

	// MaximumRequestLength counts 4-byte units; PutImage has a 24-byte header.
	maxBytes := int(xproto.Setup(conn).MaximumRequestLength)*4 - 24
	rows := max(1, maxBytes/(w*4))

	buf := make([]byte, w*min(rows, h)*4)
	for y0 := 0; y0 < h; y0 += rows {
		n := min(rows, h-y0)
		data := buf[:w*n*4]
		for y := 0; y < n; y++ {
			src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y0+y):]
			dst := data[y*w*4:]
			for x := 0; x < w; x++ {
				// BGRX byte order for 24/32-bit TrueColor visuals.
				dst[x*4+0] = src[x*4+2]
				dst[x*4+1] = src[x*4+1]
				dst[x*4+2] = src[x*4+0]
				dst[x*4+3] = src[x*4+3]
			}
		}
		xproto.PutImage(conn, xproto.ImageFormatZPixmap, d, gc,
			uint16(w), uint16(n), int16(dstX), int16(dstY+y0), 0, depth, data)
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// imageSurface draws client-side into an RGBA buffer and uploads the whole
// buffer on Present.
type imageSurface struct {
	conn  *Connection
	win   xproto.Window
	gc    xproto.Gcontext
	depth byte
	buf   *image.RGBA
	face  font.Face
}

func newImageSurface(c *Connection, win xproto.Window, width, height int) (*imageSurface, error) {
	gc, err := newGC(c, xproto.Drawable(win), xproto.GcGraphicsExposures, []uint32{0})
	if err != nil {
		return nil, err
	}
	return &imageSurface{
		conn:  c,
		win:   win,
		gc:    gc,
		depth: c.XUtil.Screen().RootDepth,
		buf:   image.NewRGBA(image.Rect(0, 0, width, height)),
		face:  basicfont.Face7x13,
	}, nil
}

func (s *imageSurface) Size() (int, int) {
	b := s.buf.Bounds()
	return b.Dx(), b.Dy()
}

func (s *imageSurface) Clear(c color.RGBA) {
	draw.Draw(s.buf, s.buf.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

func (s *imageSurface) FillRect(r image.Rectangle, c color.RGBA) {
	draw.Draw(s.buf, r.Intersect(s.buf.Bounds()), image.NewUniform(c), image.Point{}, draw.Over)
}

func (s *imageSurface) DrawText(x, y int, text string, c color.RGBA) {
	d := font.Drawer{
		Dst:  s.buf,
		Src:  image.NewUniform(c),
		Face: s.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func (s *imageSurface) Upload(img image.Image) (Resource, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	return &imageResource{img: toRGBA(img)}, nil
}

func (s *imageSurface) DrawResource(res Resource, x, y int) {
	r, ok := res.(*imageResource)
	if !ok || r.img == nil {
		return
	}
	b := r.img.Bounds()
	draw.Draw(s.buf, b.Add(image.Pt(x, y)), r.img, b.Min, draw.Over)
}

func (s *imageSurface) Present() error {
	putImage(s.conn, xproto.Drawable(s.win), s.gc, s.depth, s.buf, 0, 0)
	return nil
}

func (s *imageSurface) resize(width, height int) error {
	next := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(next, next.Bounds(), s.buf, image.Point{}, draw.Src)
	s.buf = next
	return nil
}

func (s *imageSurface) destroy() {
	xproto.FreeGC(s.conn.XUtil.Conn(), s.gc)
	s.buf = nil
}

type imageResource struct {
	img *image.RGBA
}

func (r *imageResource) Release() error {
	r.img = nil
	return nil
}

// pixmapSurface keeps its back buffer on the server. Fills and text are X
// requests, uploaded images live in their own pixmaps, and Present is a
// single CopyArea.
type pixmapSurface struct {
	conn   *Connection
	win    xproto.Window
	gc     xproto.Gcontext
	font   xproto.Font
	back   xproto.Pixmap
	depth  byte
	width  int
	height int
	bg     uint32
}

func newPixmapSurface(c *Connection, win xproto.Window, width, height int) (*pixmapSurface, error) {
	fid, err := openFont(c)
	if err != nil {
		return nil, err
	}
	gc, err := newGC(c, xproto.Drawable(win),
		xproto.GcForeground|xproto.GcBackground|xproto.GcFont|xproto.GcGraphicsExposures,
		[]uint32{0xffffff, 0, uint32(fid), 0})
	if err != nil {
		xproto.CloseFont(c.XUtil.Conn(), fid)
		return nil, err
	}
	s := &pixmapSurface{
		conn:  c,
		win:   win,
		gc:    gc,
		font:  fid,
		depth: c.XUtil.Screen().RootDepth,
	}
	if err := s.resize(width, height); err != nil {
		s.destroy()
		return nil, err
	}
	return s, nil
}

func (s *pixmapSurface) Size() (int, int) { return s.width, s.height }

func (s *pixmapSurface) Clear(c color.RGBA) {
	s.bg = pixel(c)
	s.fill(0, 0, s.width, s.height, s.bg)
}

func (s *pixmapSurface) FillRect(r image.Rectangle, c color.RGBA) {
	r = r.Intersect(image.Rect(0, 0, s.width, s.height))
	if r.Empty() || c.A == 0 {
		return
	}
	s.fill(r.Min.X, r.Min.Y, r.Dx(), r.Dy(), pixel(c))
}

func (s *pixmapSurface) fill(x, y, w, h int, px uint32) {
	conn := s.conn.XUtil.Conn()
	xproto.ChangeGC(conn, s.gc, xproto.GcForeground, []uint32{px})
	xproto.PolyFillRectangle(conn, xproto.Drawable(s.back), s.gc, []xproto.Rectangle{{
		X: int16(x), Y: int16(y), Width: uint16(w), Height: uint16(h),
	}})
}

func (s *pixmapSurface) DrawText(x, y int, text string, c color.RGBA) {
	if text == "" {
		return
	}
	if len(text) > 255 {
		text = text[:255]
	}
	conn := s.conn.XUtil.Conn()
	xproto.ChangeGC(conn, s.gc, xproto.GcForeground|xproto.GcBackground, []uint32{pixel(c), s.bg})
	xproto.ImageText8(conn, byte(len(text)), xproto.Drawable(s.back), s.gc, int16(x), int16(y), text)
}

func (s *pixmapSurface) Upload(img image.Image) (Resource, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	rgba := toRGBA(img)
	b := rgba.Bounds()
	conn := s.conn.XUtil.Conn()
	pid, err := xproto.NewPixmapId(conn)
	if err != nil {
		return nil, err
	}
	err = xproto.CreatePixmapChecked(conn, s.depth, pid, xproto.Drawable(s.win),
		uint16(max(b.Dx(), 1)), uint16(max(b.Dy(), 1))).Check()
	if err != nil {
		return nil, fmt.Errorf("create pixmap: %w", err)
	}
	putImage(s.conn, xproto.Drawable(pid), s.gc, s.depth, rgba, 0, 0)
	return &pixmapResource{conn: s.conn, id: pid, width: b.Dx(), height: b.Dy()}, nil
}

func (s *pixmapSurface) DrawResource(res Resource, x, y int) {
	r, ok := res.(*pixmapResource)
	if !ok || r.released {
		return
	}
	xproto.CopyArea(s.conn.XUtil.Conn(), xproto.Drawable(r.id), xproto.Drawable(s.back), s.gc,
		0, 0, int16(x), int16(y), uint16(r.width), uint16(r.height))
}

func (s *pixmapSurface) Present() error {
	return xproto.CopyAreaChecked(s.conn.XUtil.Conn(), xproto.Drawable(s.back), xproto.Drawable(s.win), s.gc,
		0, 0, 0, 0, uint16(s.width), uint16(s.height)).Check()
}

func (s *pixmapSurface) resize(width, height int) error {
	conn := s.conn.XUtil.Conn()
	pid, err := xproto.NewPixmapId(conn)
	if err != nil {
		return err
	}
	err = xproto.CreatePixmapChecked(conn, s.depth, pid, xproto.Drawable(s.win),
		uint16(max(width, 1)), uint16(max(height, 1))).Check()
	if err != nil {
		return fmt.Errorf("create back buffer: %w", err)
	}
	if s.back != 0 {
		xproto.FreePixmap(conn, s.back)
	}
	s.back = pid
	s.width, s.height = width, height
	return nil
}

func (s *pixmapSurface) destroy() {
	conn := s.conn.XUtil.Conn()
	if s.back != 0 {
		xproto.FreePixmap(conn, s.back)
		s.back = 0
	}
	if s.gc != 0 {
		xproto.FreeGC(conn, s.gc)
		s.gc = 0
	}
	if s.font != 0 {
		xproto.CloseFont(conn, s.font)
		s.font = 0
	}
}

type pixmapResource struct {
	conn     *Connection
	id       xproto.Pixmap
	width    int
	height   int
	released bool
}

func (r *pixmapResource) Release() error {
	if r.released {
		return nil
	}
	r.released = true
	return xproto.FreePixmapChecked(r.conn.XUtil.Conn(), r.id).Check()
}
