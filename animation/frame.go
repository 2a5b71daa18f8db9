// Package animation composites and optimizes animated WebP frames.
//
// AnimDecoder replays the frames of a parsed file onto a canvas and yields
// full-canvas snapshots. AnimEncoder takes full-canvas snapshots with
// timestamps and emits the smallest sub-frames that reproduce them. The
// VP8/VP8L codecs are plugged in through FrameDecoderFunc and
// FrameEncoderFunc; this package only deals with canvas semantics.
package animation

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// DisposeMethod controls what happens to a frame's window after display.
type DisposeMethod int

const (
	DisposeNone       DisposeMethod = 0
	DisposeBackground DisposeMethod = 1 // cleared to transparent
)

// BlendMethod controls how a frame is composited onto the canvas.
type BlendMethod int

const (
	BlendAlpha BlendMethod = 0
	BlendNone  BlendMethod = 1
)

// Frame is one ANMF frame of a parsed file.
type Frame struct {
	// Payload is the encoded frame as accepted by mux.Muxer.AddFrame.
	Payload []byte
	// Image holds the decoded pixels once the frame has been decoded.
	Image *image.NRGBA

	Duration int // milliseconds
	OffsetX  int
	OffsetY  int
	Width    int
	Height   int
	Dispose  DisposeMethod
	Blend    BlendMethod

	// HasAlpha is the bitstream-level alpha flag, not a pixel scan.
	HasAlpha bool
}

// Bounds returns the frame window on the canvas.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(f.OffsetX, f.OffsetY, f.OffsetX+f.Width, f.OffsetY+f.Height)
}

// toNRGBA returns src as an NRGBA image whose bounds start at the origin.
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return dst
}

func argbToNRGBA(argb uint32) color.NRGBA {
	return color.NRGBA{
		A: uint8(argb >> 24),
		R: uint8(argb >> 16),
		G: uint8(argb >> 8),
		B: uint8(argb),
	}
}

func nrgbaToARGB(c color.NRGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}
