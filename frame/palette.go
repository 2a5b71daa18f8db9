package frame

import (
	"errors"
	"image/color"
)

// ErrColorNotFound is returned when a color has no visible exact match in a
// palette. Callers use it to detect that pixels drifted away from the
// source palette.
var ErrColorNotFound = errors.New("frame: no matching visible color in palette")

// Palette is an immutable color table with exact reverse lookup.
type Palette struct {
	colors []color.RGBA
	// index maps a packed BGR key to every palette index with that color,
	// in ascending order.
	index map[uint32][]int
}

// NewPalette builds a palette from a color table. Alpha is ignored.
func NewPalette(colors []color.RGBA) *Palette {
	p := &Palette{
		colors: make([]color.RGBA, len(colors)),
		index:  make(map[uint32][]int, len(colors)),
	}
	for i, c := range colors {
		c.A = 0xff
		p.colors[i] = c
		k := packBGR(c.B, c.G, c.R)
		p.index[k] = append(p.index[k], i)
	}
	return p
}

func packBGR(b, g, r uint8) uint32 {
	return uint32(b)<<16 | uint32(g)<<8 | uint32(r)
}

// Len returns the number of entries.
func (p *Palette) Len() int {
	if p == nil {
		return 0
	}
	return len(p.colors)
}

// Color returns entry i.
func (p *Palette) Color(i int) color.RGBA {
	return p.colors[i]
}

// Colors returns the color table. The slice must not be modified.
func (p *Palette) Colors() []color.RGBA {
	if p == nil {
		return nil
	}
	return p.colors
}

// Index returns the first index holding exactly (b, g, r) that is not the
// transparent index. Pass -1 when no index is transparent.
func (p *Palette) Index(b, g, r uint8, transparentIndex int) (int, error) {
	if p == nil {
		return -1, ErrColorNotFound
	}
	for _, i := range p.index[packBGR(b, g, r)] {
		if i != transparentIndex {
			return i, nil
		}
	}
	return -1, ErrColorNotFound
}
