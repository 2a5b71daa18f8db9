package animation

import (
	"bytes"
	"image"
	"image/color"
	"math"
)

// alphaBlendNRGBA composites src over dst in non-premultiplied space with
// the fixed-point arithmetic WebP decoders use:
//
//	dstFactor = dstA * (256 - srcA) >> 8
//	outA      = srcA + dstFactor
//	out       = (src*srcA + dst*dstFactor) * (1<<24 / outA) >> 24
func alphaBlendNRGBA(src, dst color.NRGBA) color.NRGBA {
	if src.A == 0 {
		return dst
	}
	if src.A == 255 || dst.A == 0 {
		return src
	}
	srcA := uint32(src.A)
	dstFactor := uint32(dst.A) * (256 - srcA) >> 8
	outA := srcA + dstFactor
	scale := uint32(1<<24) / outA
	mix := func(s, d uint8) uint8 {
		return uint8(min((uint32(s)*srcA+uint32(d)*dstFactor)*scale>>24, 255))
	}
	return color.NRGBA{R: mix(src.R, dst.R), G: mix(src.G, dst.G), B: mix(src.B, dst.B), A: uint8(outA)}
}

func fillRect(canvas *image.NRGBA, rect image.Rectangle, c color.NRGBA) {
	rect = rect.Intersect(canvas.Rect)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := canvas.Pix[canvas.PixOffset(rect.Min.X, y):canvas.PixOffset(rect.Max.X, y)]
		for i := 0; i < len(row); i += 4 {
			row[i], row[i+1], row[i+2], row[i+3] = c.R, c.G, c.B, c.A
		}
	}
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	return dst
}

// extractSubImage copies rect out of src into a new origin-based image.
func extractSubImage(src *image.NRGBA, rect image.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	n := rect.Dx() * 4
	for y := 0; y < rect.Dy(); y++ {
		off := src.PixOffset(rect.Min.X, rect.Min.Y+y)
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+n], src.Pix[off:off+n])
	}
	return dst
}

func identical(a, b *image.NRGBA) bool {
	return a != nil && b != nil && bytes.Equal(a.Pix, b.Pix)
}

// findChangedRect returns the bounding box of the pixels that differ
// between two canvases of equal size, or an empty rectangle.
func findChangedRect(prev, curr *image.NRGBA) image.Rectangle {
	w, h := prev.Rect.Dx(), prev.Rect.Dy()
	rowLen := w * 4
	row := func(img *image.NRGBA, y int) []byte {
		return img.Pix[y*img.Stride : y*img.Stride+rowLen]
	}

	top := 0
	for top < h && bytes.Equal(row(prev, top), row(curr, top)) {
		top++
	}
	if top == h {
		return image.Rectangle{}
	}
	bottom := h
	for bottom > top+1 && bytes.Equal(row(prev, bottom-1), row(curr, bottom-1)) {
		bottom--
	}

	left, right := w, 0
	for y := top; y < bottom && (left > 0 || right < w); y++ {
		p, c := row(prev, y), row(curr, y)
		for x := 0; x < left; x++ {
			if !bytes.Equal(p[x*4:x*4+4], c[x*4:x*4+4]) {
				left = x
				break
			}
		}
		for x := w - 1; x >= right; x-- {
			if !bytes.Equal(p[x*4:x*4+4], c[x*4:x*4+4]) {
				right = x + 1
				break
			}
		}
	}
	return image.Rect(left, top, right, bottom)
}

// snapToEven moves odd offsets down by one and grows the rectangle so it
// still covers the original area. ANMF offsets are stored halved.
func snapToEven(r image.Rectangle) image.Rectangle {
	return image.Rect(r.Min.X&^1, r.Min.Y&^1, r.Max.X, r.Max.Y)
}

// qualityToMaxDiff maps a lossy quality to the largest per-channel error
// that still lets a pixel be treated as unchanged.
func qualityToMaxDiff(quality int) int {
	v := math.Sqrt(float64(quality) / 100)
	return int(31*(1-v) + v + 0.5)
}

func pixelsAreSimilar(src, dst color.NRGBA, maxDiff int) bool {
	if src.A != dst.A {
		return false
	}
	limit := maxDiff * 255
	a := int(dst.A)
	diff := func(x, y uint8) int {
		d := int(x) - int(y)
		return max(d, -d) * a
	}
	return diff(src.R, dst.R) <= limit && diff(src.G, dst.G) <= limit && diff(src.B, dst.B) <= limit
}

// blendingPossible reports whether drawing curr's rect over prev with alpha
// blending reproduces curr. Opaque target pixels always blend correctly;
// translucent ones must already match. Lossy encodes tolerate small
// differences.
func blendingPossible(prev, curr *image.NRGBA, rect image.Rectangle, lossless bool, quality int) bool {
	maxDiff := -1
	if !lossless {
		maxDiff = qualityToMaxDiff(quality)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst := curr.NRGBAAt(x, y)
			if dst.A == 0xff {
				continue
			}
			src := prev.NRGBAAt(x, y)
			if maxDiff < 0 {
				if src != dst {
					return false
				}
			} else if !pixelsAreSimilar(src, dst, maxDiff) {
				return false
			}
		}
	}
	return true
}
