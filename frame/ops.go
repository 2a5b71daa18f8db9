package frame

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// ErrUnsupportedRotation is returned for angles that are not a multiple of 90.
var ErrUnsupportedRotation = errors.New("frame: unsupported rotation angle")

// Op is a geometric operation applied to every frame of a stream as it is
// decoded. Operations map a window on the old canvas to a window on the new
// one, so windowed animations stay windowed.
type Op interface {
	// Apply transforms f in place. index is the position of f in the stream.
	Apply(f *Frame, index int) error
	// PreservesColors reports whether every output pixel value occurs in
	// the input, which keeps palette lookups exact.
	PreservesColors() bool
}

// Resize scales the canvas to Width x Height.
//
// Window edges are scaled independently and rounded, except that an edge
// lying on the right or bottom canvas border stays on it. Without that rule
// rounding leaves one-pixel seams along the canvas edge for windows that
// were meant to cover it.
type Resize struct {
	Width, Height int
	// Scaler defaults to draw.BiLinear.
	Scaler draw.Scaler
}

func (r Resize) PreservesColors() bool { return false }

func (r Resize) Apply(f *Frame, _ int) error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("frame: invalid resize %dx%d", r.Width, r.Height)
	}
	cw, ch := canvasOf(f)
	if cw == 0 || ch == 0 {
		f.CanvasWidth, f.CanvasHeight = r.Width, r.Height
		return nil
	}
	if f.Pixels.Empty() {
		f.CanvasWidth, f.CanvasHeight = r.Width, r.Height
		f.X, f.Y = 0, 0
		return nil
	}

	x0, x1 := scaleSpan(f.X, f.X+f.Pixels.Width, cw, r.Width)
	y0, y1 := scaleSpan(f.Y, f.Y+f.Pixels.Height, ch, r.Height)

	scaler := r.Scaler
	if scaler == nil {
		scaler = draw.BiLinear
	}
	src := f.Pixels.NRGBA()
	dst := image.NewNRGBA(image.Rect(0, 0, x1-x0, y1-y0))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	f.Pixels = FromNRGBA(dst).WithChannels(f.Pixels.Channels)
	f.X, f.Y = x0, y0
	f.CanvasWidth, f.CanvasHeight = r.Width, r.Height
	return nil
}

// scaleSpan maps [lo, hi) on an axis of length from onto an axis of length
// to. The result is at least one pixel wide and inside [0, to].
func scaleSpan(lo, hi, from, to int) (int, int) {
	s := float64(to) / float64(from)
	nlo := int(math.Round(float64(lo) * s))
	nhi := int(math.Round(float64(hi) * s))
	if hi >= from {
		nhi = to
	}
	if nhi > to {
		nhi = to
	}
	if nlo >= nhi {
		nlo = nhi - 1
	}
	if nlo < 0 {
		nlo = 0
		if nhi < 1 {
			nhi = 1
		}
	}
	return nlo, nhi
}

func canvasOf(f *Frame) (int, int) {
	if f.CanvasWidth > 0 && f.CanvasHeight > 0 {
		return f.CanvasWidth, f.CanvasHeight
	}
	if f.Pixels.Empty() {
		return 0, 0
	}
	return f.X + f.Pixels.Width, f.Y + f.Pixels.Height
}

// Crop keeps the canvas region between two corners. Corners may be given in
// any order and are clamped to the canvas.
type Crop struct {
	X0, Y0, X1, Y1 int
}

func (c Crop) PreservesColors() bool { return true }

// Rect returns the normalized crop rectangle clamped to a canvas.
func (c Crop) Rect(canvasWidth, canvasHeight int) image.Rectangle {
	r := image.Rect(c.X0, c.Y0, c.X1, c.Y1) // Rect swaps reversed corners
	return r.Intersect(image.Rect(0, 0, canvasWidth, canvasHeight))
}

func (c Crop) Apply(f *Frame, _ int) error {
	cw, ch := canvasOf(f)
	cr := c.Rect(cw, ch)
	if cr.Empty() {
		return fmt.Errorf("frame: crop %v outside canvas %dx%d", image.Rect(c.X0, c.Y0, c.X1, c.Y1), cw, ch)
	}
	f.CanvasWidth, f.CanvasHeight = cr.Dx(), cr.Dy()
	if f.Pixels.Empty() {
		f.X, f.Y = 0, 0
		return nil
	}
	win := f.Bounds().Intersect(cr)
	if win.Empty() {
		// The window vanished; keep the frame for its delay.
		f.Pixels = nil
		f.X, f.Y = 0, 0
		return nil
	}
	f.Pixels = f.Pixels.SubImage(win.Sub(image.Pt(f.X, f.Y)))
	f.X, f.Y = win.Min.X-cr.Min.X, win.Min.Y-cr.Min.Y
	return nil
}

// Rotate turns every frame clockwise by Degrees, which must be a multiple of
// 90.
type Rotate struct {
	Degrees int
}

func (r Rotate) PreservesColors() bool { return true }

func (r Rotate) Apply(f *Frame, _ int) error {
	deg := ((r.Degrees % 360) + 360) % 360
	if deg%90 != 0 {
		return fmt.Errorf("%w: %d", ErrUnsupportedRotation, r.Degrees)
	}
	if deg == 0 {
		return nil
	}
	cw, ch := canvasOf(f)
	if f.Pixels.Empty() {
		if deg != 180 {
			f.CanvasWidth, f.CanvasHeight = ch, cw
		}
		return nil
	}
	w, h := f.Pixels.Width, f.Pixels.Height
	img := f.Pixels.NRGBA()
	var out *image.NRGBA
	switch deg {
	case 90:
		out = imaging.Rotate270(img)
		f.X, f.Y = ch-(f.Y+h), f.X
		f.CanvasWidth, f.CanvasHeight = ch, cw
	case 180:
		out = imaging.Rotate180(img)
		f.X, f.Y = cw-(f.X+w), ch-(f.Y+h)
		f.CanvasWidth, f.CanvasHeight = cw, ch
	case 270:
		out = imaging.Rotate90(img)
		f.X, f.Y = f.Y, cw-(f.X+w)
		f.CanvasWidth, f.CanvasHeight = ch, cw
	}
	f.Pixels = FromNRGBA(out).WithChannels(f.Pixels.Channels)
	return nil
}

// Border grows the canvas by Width pixels left and right and Height pixels
// top and bottom, filled with Color.
//
// The first frame is flattened onto the enlarged canvas so the border is
// drawn once; later frames are only shifted.
type Border struct {
	Width, Height int
	Color         color.NRGBA
}

// PreservesColors is false: the fill need not occur in the source palette.
func (b Border) PreservesColors() bool { return false }

func (b Border) Apply(f *Frame, index int) error {
	if b.Width < 0 || b.Height < 0 {
		return fmt.Errorf("frame: invalid border %dx%d", b.Width, b.Height)
	}
	cw, ch := canvasOf(f)
	nw, nh := cw+2*b.Width, ch+2*b.Height
	if index > 0 || f.DelayOnly() {
		if !f.Pixels.Empty() {
			f.X += b.Width
			f.Y += b.Height
		}
		f.CanvasWidth, f.CanvasHeight = nw, nh
		return nil
	}

	channels := 4
	if f.Pixels != nil && !f.Pixels.HasAlpha() && f.X == 0 && f.Y == 0 &&
		f.Pixels.Width == cw && f.Pixels.Height == ch && b.Color.A == 0xff {
		channels = f.Pixels.Channels
	}
	dst := NewPixels(nw, nh, 4)
	fillBGRA(dst, dst.Bounds(), b.Color)
	dst.Clear(image.Rect(b.Width, b.Height, b.Width+cw, b.Height+ch))
	if !f.Pixels.Empty() {
		dst.CopyFrom(f.Pixels.ToBGRA(), b.Width+f.X, b.Height+f.Y)
	}
	f.Pixels = dst.WithChannels(channels)
	f.X, f.Y = 0, 0
	f.CanvasWidth, f.CanvasHeight = nw, nh
	return nil
}

func fillBGRA(p *Pixels, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(p.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := p.Row(y)
		for x := r.Min.X; x < r.Max.X; x++ {
			row[4*x], row[4*x+1], row[4*x+2], row[4*x+3] = c.B, c.G, c.R, c.A
		}
	}
}

// Apply runs ops in order on f.
func Apply(f *Frame, index int, ops ...Op) error {
	for _, op := range ops {
		if err := op.Apply(f, index); err != nil {
			return err
		}
	}
	return nil
}

// PreserveColors reports whether every op in ops preserves colors.
func PreserveColors(ops ...Op) bool {
	for _, op := range ops {
		if !op.PreservesColors() {
			return false
		}
	}
	return true
}
