package frame

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Pixels is an interleaved 8-bit pixel buffer. Samples are stored in B,G,R,A
// order; Channels is 1 (gray), 2 (gray, alpha), 3 (BGR) or 4 (BGRA).
type Pixels struct {
	Pix      []byte
	Stride   int
	Width    int
	Height   int
	Channels int
}

// NewPixels allocates a zeroed buffer. For 2 and 4 channels zero means fully
// transparent.
func NewPixels(width, height, channels int) *Pixels {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	stride := width * channels
	return &Pixels{
		Pix:      make([]byte, stride*height),
		Stride:   stride,
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// Empty reports whether p holds no pixels. It is safe on a nil receiver.
func (p *Pixels) Empty() bool {
	return p == nil || p.Width <= 0 || p.Height <= 0
}

// Bounds returns the buffer rectangle anchored at the origin.
func (p *Pixels) Bounds() image.Rectangle {
	if p == nil {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, p.Width, p.Height)
}

// HasAlpha reports whether the layout carries an alpha channel.
func (p *Pixels) HasAlpha() bool {
	return p != nil && (p.Channels == 2 || p.Channels == 4)
}

// Row returns the samples of row y.
func (p *Pixels) Row(y int) []byte {
	off := y * p.Stride
	return p.Pix[off : off+p.Width*p.Channels]
}

// PixOffset returns the index of the first sample of (x, y).
func (p *Pixels) PixOffset(x, y int) int {
	return y*p.Stride + x*p.Channels
}

// SubImage returns a view of r intersected with the buffer bounds. The view
// shares memory with p.
func (p *Pixels) SubImage(r image.Rectangle) *Pixels {
	r = r.Intersect(p.Bounds())
	if r.Empty() {
		return &Pixels{Channels: p.Channels}
	}
	off := p.PixOffset(r.Min.X, r.Min.Y)
	end := p.PixOffset(r.Max.X-1, r.Max.Y-1) + p.Channels
	return &Pixels{
		Pix:      p.Pix[off:end],
		Stride:   p.Stride,
		Width:    r.Dx(),
		Height:   r.Dy(),
		Channels: p.Channels,
	}
}

// Clone returns a compact copy of p.
func (p *Pixels) Clone() *Pixels {
	if p == nil {
		return nil
	}
	c := NewPixels(p.Width, p.Height, p.Channels)
	for y := 0; y < p.Height; y++ {
		copy(c.Row(y), p.Row(y))
	}
	return c
}

// CopyFrom copies src into p with its top-left corner at (x, y), clipped to
// p. Both buffers must use the same channel count.
func (p *Pixels) CopyFrom(src *Pixels, x, y int) {
	if src.Empty() || src.Channels != p.Channels {
		return
	}
	dr := image.Rect(x, y, x+src.Width, y+src.Height).Intersect(p.Bounds())
	if dr.Empty() {
		return
	}
	n := dr.Dx() * p.Channels
	for dy := dr.Min.Y; dy < dr.Max.Y; dy++ {
		so := src.PixOffset(dr.Min.X-x, dy-y)
		do := p.PixOffset(dr.Min.X, dy)
		copy(p.Pix[do:do+n], src.Pix[so:so+n])
	}
}

// Clear zeroes the samples of r, which for alpha layouts means transparent.
func (p *Pixels) Clear(r image.Rectangle) {
	r = r.Intersect(p.Bounds())
	if r.Empty() {
		return
	}
	n := r.Dx() * p.Channels
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := p.PixOffset(r.Min.X, y)
		clear(p.Pix[off : off+n])
	}
}

// ToBGRA returns p expanded to four channels. A buffer that already has four
// channels is returned as is.
func (p *Pixels) ToBGRA() *Pixels {
	if p == nil || p.Channels == 4 {
		return p
	}
	dst := NewPixels(p.Width, p.Height, 4)
	for y := 0; y < p.Height; y++ {
		s := p.Row(y)
		d := dst.Row(y)
		for x := 0; x < p.Width; x++ {
			var b, g, r, a byte
			switch p.Channels {
			case 1:
				b, g, r, a = s[x], s[x], s[x], 0xff
			case 2:
				b, g, r, a = s[2*x], s[2*x], s[2*x], s[2*x+1]
			case 3:
				b, g, r, a = s[3*x], s[3*x+1], s[3*x+2], 0xff
			}
			d[4*x], d[4*x+1], d[4*x+2], d[4*x+3] = b, g, r, a
		}
	}
	return dst
}

// WithChannels converts p to the given channel count. Dropping alpha
// discards it; dropping color keeps the luma approximation of image/color.
func (p *Pixels) WithChannels(channels int) *Pixels {
	if p == nil || p.Channels == channels {
		return p
	}
	src := p.ToBGRA()
	dst := NewPixels(p.Width, p.Height, channels)
	for y := 0; y < p.Height; y++ {
		s := src.Row(y)
		d := dst.Row(y)
		for x := 0; x < p.Width; x++ {
			b, g, r, a := s[4*x], s[4*x+1], s[4*x+2], s[4*x+3]
			switch channels {
			case 1:
				d[x] = grayOf(b, g, r)
			case 2:
				d[2*x], d[2*x+1] = grayOf(b, g, r), a
			case 3:
				d[3*x], d[3*x+1], d[3*x+2] = b, g, r
			case 4:
				d[4*x], d[4*x+1], d[4*x+2], d[4*x+3] = b, g, r, a
			}
		}
	}
	return dst
}

func grayOf(b, g, r byte) byte {
	return color.GrayModel.Convert(color.RGBA{R: r, G: g, B: b, A: 0xff}).(color.Gray).Y
}

// NRGBA converts p to a non-premultiplied RGBA image.
func (p *Pixels) NRGBA() *image.NRGBA {
	if p == nil {
		return image.NewNRGBA(image.Rectangle{})
	}
	src := p.ToBGRA()
	dst := image.NewNRGBA(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		s := src.Row(y)
		d := dst.Pix[y*dst.Stride : y*dst.Stride+4*p.Width]
		for x := 0; x < p.Width; x++ {
			d[4*x], d[4*x+1], d[4*x+2], d[4*x+3] = s[4*x+2], s[4*x+1], s[4*x], s[4*x+3]
		}
	}
	return dst
}

// Image returns p as an image.Image suitable for standard encoders: gray
// buffers become *image.Gray, everything else *image.NRGBA.
func (p *Pixels) Image() image.Image {
	if p != nil && p.Channels == 1 {
		g := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
		for y := 0; y < p.Height; y++ {
			copy(g.Pix[y*g.Stride:], p.Row(y))
		}
		return g
	}
	return p.NRGBA()
}

// FromNRGBA converts img to a four-channel BGRA buffer.
func FromNRGBA(img *image.NRGBA) *Pixels {
	b := img.Bounds()
	dst := NewPixels(b.Dx(), b.Dy(), 4)
	for y := 0; y < dst.Height; y++ {
		s := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		d := dst.Row(y)
		for x := 0; x < dst.Width; x++ {
			d[4*x], d[4*x+1], d[4*x+2], d[4*x+3] = s[4*x+2], s[4*x+1], s[4*x], s[4*x+3]
		}
	}
	return dst
}

// FromImage converts any image to a buffer with the narrowest layout that
// holds it: gray images become one channel, opaque images BGR and anything
// with transparency BGRA.
func FromImage(img image.Image) *Pixels {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		dst := NewPixels(b.Dx(), b.Dy(), 1)
		for y := 0; y < dst.Height; y++ {
			copy(dst.Row(y), src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return dst
	case *image.Gray16:
		g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(g, g.Bounds(), src, b.Min, draw.Src)
		return FromImage(g)
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	}
	px := FromNRGBA(nrgba)
	if nrgba.Opaque() {
		return px.WithChannels(3)
	}
	return px
}
