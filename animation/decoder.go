package animation

import (
	"image"
	"image/color"
)

// AnimDecoder reconstructs the canvas frame by frame. It keeps two buffers:
// the canvas being built and the previous canvas after disposal.
type AnimDecoder struct {
	anim     *Animation
	curr     *image.NRGBA
	disposed *image.NRGBA
	pos      int
	ts       int

	prevKeyframe bool
	prevDispose  DisposeMethod
	prevBounds   image.Rectangle
}

// NewAnimDecoder returns a decoder positioned before the first frame. The
// canvas starts fully transparent; the ANIM background color is only a hint.
func NewAnimDecoder(anim *Animation) *AnimDecoder {
	r := image.Rect(0, 0, anim.CanvasWidth, anim.CanvasHeight)
	return &AnimDecoder{
		anim:     anim,
		curr:     image.NewNRGBA(r),
		disposed: image.NewNRGBA(r),
	}
}

// HasNext reports whether more frames are available.
func (d *AnimDecoder) HasNext() bool {
	return d.pos < len(d.anim.Frames)
}

// isKeyFrame reports whether frame idx paints over everything that came
// before it, so compositing can start from a blank canvas.
func (d *AnimDecoder) isKeyFrame(idx int) bool {
	if idx == 0 {
		return true
	}
	f := &d.anim.Frames[idx]
	full := image.Rect(0, 0, d.anim.CanvasWidth, d.anim.CanvasHeight)
	if f.Bounds() == full && (!f.HasAlpha || f.Blend == BlendNone) {
		return true
	}
	return d.prevDispose == DisposeBackground && (d.prevBounds == full || d.prevKeyframe)
}

// NextFrame composites the next frame and returns a copy of the canvas
// together with the frame's end timestamp in milliseconds. Decoded frame
// pixels are released once composited.
func (d *AnimDecoder) NextFrame() (*image.NRGBA, int, error) {
	if !d.HasNext() {
		return nil, 0, ErrNoFrames
	}
	if err := d.anim.DecodeFrame(d.pos); err != nil {
		return nil, 0, err
	}
	f := &d.anim.Frames[d.pos]

	key := d.isKeyFrame(d.pos)
	if key {
		clear(d.curr.Pix)
	} else {
		copy(d.curr.Pix, d.disposed.Pix)
	}
	composite(d.curr, f)

	snap := cloneNRGBA(d.curr)
	copy(d.disposed.Pix, d.curr.Pix)
	if f.Dispose == DisposeBackground {
		fillRect(d.disposed, f.Bounds(), color.NRGBA{})
	}

	d.prevKeyframe = key
	d.prevDispose = f.Dispose
	d.prevBounds = f.Bounds()
	d.ts += f.Duration
	d.anim.ReleaseFrame(d.pos)
	d.pos++
	return snap, d.ts, nil
}

// Reset rewinds to the first frame and clears the canvas.
func (d *AnimDecoder) Reset() {
	d.pos, d.ts = 0, 0
	clear(d.curr.Pix)
	clear(d.disposed.Pix)
	d.prevKeyframe = false
	d.prevDispose = DisposeNone
	d.prevBounds = image.Rectangle{}
}

// Canvas returns the live canvas, not a copy.
func (d *AnimDecoder) Canvas() *image.NRGBA {
	return d.curr
}

// composite draws the decoded frame onto canvas, clipped to the canvas.
func composite(canvas *image.NRGBA, f *Frame) {
	rect := f.Bounds().Intersect(canvas.Rect).Intersect(f.Image.Rect.Add(image.Pt(f.OffsetX, f.OffsetY)))
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			src := f.Image.NRGBAAt(x-f.OffsetX, y-f.OffsetY)
			if f.Blend == BlendAlpha {
				src = alphaBlendNRGBA(src, canvas.NRGBAAt(x, y))
			}
			canvas.SetNRGBA(x, y, src)
		}
	}
}
