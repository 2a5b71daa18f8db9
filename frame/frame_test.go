package frame

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Frame tests ---

func TestNew_ResetState(t *testing.T) {
	f := New()
	assert.True(t, f.Empty)
	assert.Equal(t, -1, f.TransparentIndex)
	assert.Equal(t, DisposalUndefined, f.Disposal)
	assert.Equal(t, BlendingUndefined, f.Blending)
	assert.Nil(t, f.Pixels)
	assert.Nil(t, f.FramePalette)
	assert.Nil(t, f.GlobalPalette)
	assert.Zero(t, f.Loops)
}

func TestReset_ClearsEverything(t *testing.T) {
	pal := NewPalette([]color.RGBA{{R: 1}})
	f := &Frame{
		Pixels:               NewPixels(2, 2, 4),
		Delay:                40,
		X:                    3,
		Y:                    4,
		CanvasWidth:          10,
		CanvasHeight:         10,
		Loops:                7,
		Disposal:             DisposalPrevious,
		Blending:             BlendingBlend,
		FramePalette:         pal,
		GlobalPalette:        pal,
		TransparentIndex:     0,
		MayDisposeToPrevious: true,
	}
	f.Reset()
	assert.Equal(t, *New(), *f)
}

func TestDelayOnly(t *testing.T) {
	f := New()
	assert.False(t, f.DelayOnly(), "empty frame is not delay-only")
	f.Empty = false
	assert.True(t, f.DelayOnly())
	f.Pixels = NewPixels(0, 5, 4)
	assert.True(t, f.DelayOnly(), "zero-width pixels")
	f.Pixels = NewPixels(1, 1, 4)
	assert.False(t, f.DelayOnly())
}

func TestFlatten(t *testing.T) {
	px := NewPixels(1, 1, 3)
	copy(px.Pix, []byte{1, 2, 3})
	f := &Frame{Pixels: px, X: 2, Y: 1, CanvasWidth: 4, CanvasHeight: 3}
	flat := f.Flatten()
	require.Equal(t, 4, flat.Channels)
	require.Equal(t, image.Rect(0, 0, 4, 3), flat.Bounds())
	off := flat.PixOffset(2, 1)
	assert.Equal(t, []byte{1, 2, 3, 255}, flat.Pix[off:off+4])
	assert.Equal(t, []byte{0, 0, 0, 0}, flat.Pix[0:4])
}

// --- Pixels tests ---

func TestPixels_SubImageSharesMemory(t *testing.T) {
	p := NewPixels(4, 4, 1)
	for i := range p.Pix {
		p.Pix[i] = byte(i)
	}
	sub := p.SubImage(image.Rect(1, 2, 3, 4))
	require.Equal(t, 2, sub.Width)
	require.Equal(t, 2, sub.Height)
	assert.Equal(t, []byte{9, 10}, sub.Row(0))
	assert.Equal(t, []byte{13, 14}, sub.Row(1))

	sub.Row(0)[0] = 99
	assert.Equal(t, byte(99), p.Pix[9])

	c := sub.Clone()
	c.Row(0)[0] = 1
	assert.Equal(t, byte(99), p.Pix[9])
	assert.Equal(t, 2, c.Stride)
}

func TestPixels_SubImageOutside(t *testing.T) {
	p := NewPixels(4, 4, 4)
	assert.True(t, p.SubImage(image.Rect(5, 5, 8, 8)).Empty())
}

func TestPixels_ToBGRA(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		in       []byte
		want     []byte
	}{
		{"gray", 1, []byte{7}, []byte{7, 7, 7, 255}},
		{"gray_alpha", 2, []byte{7, 9}, []byte{7, 7, 7, 9}},
		{"bgr", 3, []byte{1, 2, 3}, []byte{1, 2, 3, 255}},
		{"bgra", 4, []byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPixels(1, 1, tt.channels)
			copy(p.Pix, tt.in)
			assert.Equal(t, tt.want, p.ToBGRA().Pix)
		})
	}
}

func TestFromImage_Layouts(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 2, 1))
	gray.Pix[0], gray.Pix[1] = 10, 20
	g := FromImage(gray)
	assert.Equal(t, 1, g.Channels)
	assert.Equal(t, []byte{10, 20}, g.Pix)

	opaque := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	opaque.Pix = []byte{30, 20, 10, 255}
	o := FromImage(opaque)
	assert.Equal(t, 3, o.Channels)
	assert.Equal(t, []byte{10, 20, 30}, o.Pix)

	trans := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	trans.Pix = []byte{30, 20, 10, 128}
	tr := FromImage(trans)
	assert.Equal(t, 4, tr.Channels)
	assert.Equal(t, []byte{10, 20, 30, 128}, tr.Pix)

	back := tr.NRGBA()
	assert.Equal(t, trans.Pix, back.Pix)
}

func TestFromImage_OffsetBounds(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.SetNRGBA(2, 2, color.NRGBA{R: 200, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))
	p := FromImage(sub)
	require.Equal(t, 2, p.Width)
	off := p.PixOffset(0, 0)
	assert.Equal(t, byte(200), p.Pix[off+2])
}

func TestCopyFromAndClear(t *testing.T) {
	dst := NewPixels(3, 3, 4)
	src := NewPixels(2, 2, 4)
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	dst.CopyFrom(src, 2, 2) // clipped to a single pixel
	assert.Equal(t, []byte{255, 255, 255, 255}, dst.Pix[dst.PixOffset(2, 2):dst.PixOffset(2, 2)+4])
	assert.Equal(t, []byte{0, 0, 0, 0}, dst.Pix[dst.PixOffset(1, 1):dst.PixOffset(1, 1)+4])

	dst.Clear(image.Rect(0, 0, 10, 10))
	for _, v := range dst.Pix {
		require.Zero(t, v)
	}
}

// --- Palette tests ---

func TestPalette_Index(t *testing.T) {
	pal := NewPalette([]color.RGBA{
		{R: 0, G: 0, B: 0},
		{R: 255, G: 0, B: 0},
		{R: 0, G: 0, B: 0},
		{R: 0, G: 255, B: 0},
	})
	require.Equal(t, 4, pal.Len())

	tests := []struct {
		name        string
		b, g, r     uint8
		transparent int
		want        int
		wantErr     bool
	}{
		{"first_match", 0, 0, 0, -1, 0, false},
		{"skip_transparent", 0, 0, 0, 0, 2, false},
		{"red", 0, 0, 255, -1, 1, false},
		{"only_match_transparent", 0, 255, 0, 3, -1, true},
		{"missing", 1, 2, 3, -1, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pal.Index(tt.b, tt.g, tt.r, tt.transparent)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrColorNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPalette_Nil(t *testing.T) {
	var pal *Palette
	assert.Zero(t, pal.Len())
	_, err := pal.Index(0, 0, 0, -1)
	assert.ErrorIs(t, err, ErrColorNotFound)
}

// --- Color tests ---

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#ff0000", color.NRGBA{R: 255, A: 255}, false},
		{"00ff00", color.NRGBA{G: 255, A: 255}, false},
		{"#00f", color.NRGBA{B: 255, A: 255}, false},
		{"#0000ff80", color.NRGBA{B: 255, A: 128}, false},
		{"#12", color.NRGBA{}, true},
		{"#gggggg", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
