// Package frame defines the in-memory representation shared by every decoder
// and encoder: a window of pixels placed on a fixed-size canvas together with
// its timing, disposal, blending and palette metadata.
//
// Pixel buffers are interleaved 8-bit samples in B,G,R,A order with 1 (gray),
// 2 (gray+alpha), 3 (BGR) or 4 (BGRA) channels.
package frame

import (
	"image"
)

// Disposal controls what happens to a frame's window after it was shown.
type Disposal int

const (
	// DisposalUndefined means the source did not say.
	DisposalUndefined Disposal = iota
	// DisposalNone leaves the window as rendered.
	DisposalNone
	// DisposalBackground clears the window to transparent.
	DisposalBackground
	// DisposalPrevious restores the window to what it was before the frame.
	DisposalPrevious
)

func (d Disposal) String() string {
	switch d {
	case DisposalNone:
		return "none"
	case DisposalBackground:
		return "background"
	case DisposalPrevious:
		return "previous"
	default:
		return "undefined"
	}
}

// Blending controls how a frame's window is composited onto the canvas.
type Blending int

const (
	BlendingUndefined Blending = iota
	// BlendingBlend alpha-blends the window over the canvas.
	BlendingBlend
	// BlendingNoBlend overwrites the window region.
	BlendingNoBlend
)

func (b Blending) String() string {
	switch b {
	case BlendingBlend:
		return "blend"
	case BlendingNoBlend:
		return "no-blend"
	default:
		return "undefined"
	}
}

// Frame is one decoded animation frame or still image.
//
// A frame that is not Empty but carries no pixels is a delay-only frame: it
// contributes its Delay to the preceding visible frame.
type Frame struct {
	// Pixels is the frame window. Nil or zero-sized for delay-only frames.
	Pixels *Pixels

	// Delay is the display duration in milliseconds.
	Delay int

	// X, Y place the window's top-left corner on the canvas.
	X, Y int

	// CanvasWidth and CanvasHeight stay constant for a decode session.
	CanvasWidth, CanvasHeight int

	// Empty is set when no frame could be produced.
	Empty bool

	// Loops is the animation repeat count, 0 meaning forever.
	Loops int

	Disposal Disposal
	Blending Blending

	// FramePalette and GlobalPalette are shared with the decoder that
	// produced the frame and must not be modified.
	FramePalette  *Palette
	GlobalPalette *Palette

	// TransparentIndex is the palette index treated as transparent, or -1.
	TransparentIndex int

	// MayDisposeToPrevious is set when any frame of the session uses
	// DisposalPrevious.
	MayDisposeToPrevious bool
}

// New returns a reset frame.
func New() *Frame {
	f := &Frame{}
	f.Reset()
	return f
}

// Reset restores the zero state: empty, no pixels, undefined disposal and
// blending, no palettes and TransparentIndex -1.
func (f *Frame) Reset() {
	*f = Frame{
		Empty:            true,
		TransparentIndex: -1,
	}
}

// DelayOnly reports whether the frame exists but has no pixels.
func (f *Frame) DelayOnly() bool {
	return !f.Empty && f.Pixels.Empty()
}

// Bounds returns the frame window on the canvas.
func (f *Frame) Bounds() image.Rectangle {
	if f.Pixels.Empty() {
		return image.Rectangle{}
	}
	return image.Rect(f.X, f.Y, f.X+f.Pixels.Width, f.Y+f.Pixels.Height)
}

// Canvas returns the canvas rectangle anchored at the origin.
func (f *Frame) Canvas() image.Rectangle {
	return image.Rect(0, 0, f.CanvasWidth, f.CanvasHeight)
}

// Clone returns a copy of the frame that shares its palettes and pixel
// memory. Use Pixels.Clone when the pixels are to be modified.
func (f *Frame) Clone() *Frame {
	c := *f
	return &c
}

// Flatten places the window on a transparent canvas-sized BGRA buffer.
// When the canvas is unknown the window size is used.
func (f *Frame) Flatten() *Pixels {
	w, h := f.CanvasWidth, f.CanvasHeight
	if w <= 0 || h <= 0 {
		if f.Pixels.Empty() {
			return nil
		}
		w, h = f.Pixels.Width+f.X, f.Pixels.Height+f.Y
	}
	dst := NewPixels(w, h, 4)
	if f.Pixels.Empty() {
		return dst
	}
	src := f.Pixels.ToBGRA()
	dst.CopyFrom(src, f.X, f.Y)
	return dst
}
