package decoder

import (
	"bytes"
	"image/color"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deepteams/photon/frame"
	"github.com/deepteams/photon/internal/gifio"
)

var gifPalette = []color.RGBA{
	{A: 255},
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
}

type gifImage struct {
	gcb  *gifio.GraphicsControl
	desc gifio.ImageDesc
	// rows are written in order; interlaced images list them in pass order.
	rows [][]byte
}

// buildGIF writes a stream with the given images. A negative loops omits
// the NETSCAPE2.0 extension.
func buildGIF(t *testing.T, w, h int, global []color.RGBA, loops int, images ...gifImage) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gifio.NewWriter(&buf)
	require.NoError(t, gw.WriteHeader(w, h, 8, 0, global))
	if loops >= 0 {
		require.NoError(t, gw.WriteLoopCount(loops))
	}
	for _, img := range images {
		if img.gcb != nil {
			require.NoError(t, gw.WriteGraphicsControl(*img.gcb))
		}
		require.NoError(t, gw.WriteImageDesc(img.desc))
		for _, row := range img.rows {
			require.NoError(t, gw.WriteLine(row))
		}
	}
	require.NoError(t, gw.Close())
	return buf.Bytes()
}

func fullImage(w, h int, idx byte) gifImage {
	rows := make([][]byte, h)
	for y := range rows {
		rows[y] = bytes.Repeat([]byte{idx}, w)
	}
	return gifImage{desc: gifio.ImageDesc{Width: w, Height: h}, rows: rows}
}

// bgraAt returns the B, G, R, A samples at (x, y).
func bgraAt(p *frame.Pixels, x, y int) [4]byte {
	off := p.PixOffset(x, y)
	return [4]byte(p.Pix[off : off+4])
}

// --- Frame fields ---

func TestGIF_FrameFields(t *testing.T) {
	first := fullImage(4, 3, 1)
	first.gcb = &gifio.GraphicsControl{Disposal: gifio.DisposalBackground, Delay: 7, TransparentIndex: 0}
	first.rows[1][2] = 0

	second := fullImage(2, 2, 3)
	second.desc.Left, second.desc.Top = 1, 1
	second.desc.ColorMap = []color.RGBA{{R: 9, G: 8, B: 7, A: 255}, {B: 255, A: 255}, {A: 255}, {G: 200, A: 255}}
	second.gcb = &gifio.GraphicsControl{Disposal: gifio.DisposalDoNot, Delay: 3, TransparentIndex: -1}

	data := buildGIF(t, 4, 3, gifPalette, 5, first, second)
	d, err := NewGIF(data, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	require.True(t, d.Loaded())
	assert.Equal(t, KindGIF, d.Kind())

	f := frame.New()
	require.True(t, d.NextFrame(f))
	assert.False(t, f.Empty)
	assert.Equal(t, 70, f.Delay)
	assert.Equal(t, 4, f.CanvasWidth)
	assert.Equal(t, 3, f.CanvasHeight)
	assert.Equal(t, 5, f.Loops)
	assert.Equal(t, frame.DisposalBackground, f.Disposal)
	assert.Equal(t, frame.BlendingBlend, f.Blending)
	assert.Equal(t, 0, f.TransparentIndex)
	assert.False(t, f.MayDisposeToPrevious)
	assert.Nil(t, f.FramePalette)
	require.NotNil(t, f.GlobalPalette)
	assert.Equal(t, 4, f.GlobalPalette.Len())
	require.Equal(t, 4, f.Pixels.Channels)
	assert.Equal(t, [4]byte{0, 0, 255, 255}, bgraAt(f.Pixels, 0, 0))
	assert.Equal(t, [4]byte{}, bgraAt(f.Pixels, 2, 1), "transparent index stays transparent")

	require.True(t, d.NextFrame(f))
	assert.Equal(t, 30, f.Delay)
	assert.Equal(t, frame.DisposalNone, f.Disposal)
	assert.Equal(t, -1, f.TransparentIndex)
	assert.Equal(t, 1, f.X)
	assert.Equal(t, 1, f.Y)
	require.NotNil(t, f.FramePalette)
	assert.Equal(t, color.RGBA{G: 200, A: 255}, f.FramePalette.Color(3))
	assert.Equal(t, [4]byte{0, 200, 0, 255}, bgraAt(f.Pixels, 1, 1))

	assert.False(t, d.NextFrame(f))
	assert.True(t, f.Empty)

	_, ok := d.ICCProfile()
	assert.False(t, ok)
}

func TestGIF_GraphicControlIsPerFrame(t *testing.T) {
	first := fullImage(2, 2, 1)
	first.gcb = &gifio.GraphicsControl{Disposal: gifio.DisposalBackground, Delay: 10, TransparentIndex: 2}
	second := fullImage(2, 2, 2)

	d, err := NewGIF(buildGIF(t, 2, 2, gifPalette, -1, first, second))
	require.NoError(t, err)

	f := frame.New()
	require.True(t, d.NextFrame(f))
	require.True(t, d.NextFrame(f))
	assert.Equal(t, 0, f.Delay)
	assert.Equal(t, frame.DisposalNone, f.Disposal)
	assert.Equal(t, -1, f.TransparentIndex)
	assert.Equal(t, [4]byte{0, 255, 0, 255}, bgraAt(f.Pixels, 0, 0))
}

func TestGIF_DefaultLoops(t *testing.T) {
	d, err := NewGIF(buildGIF(t, 1, 1, gifPalette, -1, fullImage(1, 1, 0)))
	require.NoError(t, err)
	f := frame.New()
	require.True(t, d.NextFrame(f))
	assert.Equal(t, 1, f.Loops)
	assert.Equal(t, 1, d.Loops())
}

func TestGIF_LoopForever(t *testing.T) {
	d, err := NewGIF(buildGIF(t, 1, 1, gifPalette, 0, fullImage(1, 1, 0)))
	require.NoError(t, err)
	f := frame.New()
	require.True(t, d.NextFrame(f))
	assert.Equal(t, 0, f.Loops)
}

func TestGIF_DisposePreviousPrescan(t *testing.T) {
	first := fullImage(2, 2, 1)
	second := fullImage(2, 2, 2)
	second.gcb = &gifio.GraphicsControl{Disposal: gifio.DisposalPrevious, TransparentIndex: -1}

	d, err := NewGIF(buildGIF(t, 2, 2, gifPalette, -1, first, second))
	require.NoError(t, err)

	f := frame.New()
	require.True(t, d.NextFrame(f))
	assert.True(t, f.MayDisposeToPrevious, "set on frames before the first previous disposal")
	assert.Equal(t, frame.DisposalNone, f.Disposal)
	require.True(t, d.NextFrame(f))
	assert.Equal(t, frame.DisposalPrevious, f.Disposal)
}

// --- Windows ---

func TestGIF_WindowCroppedToCanvas(t *testing.T) {
	img := fullImage(4, 2, 1)
	img.desc.Left, img.desc.Top = 3, 1
	for y := range img.rows {
		img.rows[y] = []byte{1, 2, 3, 0}
	}

	d, err := NewGIF(buildGIF(t, 5, 2, gifPalette, -1, img))
	require.NoError(t, err)
	f := frame.New()
	require.True(t, d.NextFrame(f))
	assert.Equal(t, 3, f.X)
	assert.Equal(t, 1, f.Y)
	assert.Equal(t, 2, f.Pixels.Width)
	assert.Equal(t, 1, f.Pixels.Height)
	assert.Equal(t, [4]byte{0, 0, 255, 255}, bgraAt(f.Pixels, 0, 0))
	assert.Equal(t, [4]byte{0, 255, 0, 255}, bgraAt(f.Pixels, 1, 0))
}

func TestGIF_WindowOutsideCanvas(t *testing.T) {
	img := fullImage(2, 2, 1)
	img.desc.Left = 10
	img.gcb = &gifio.GraphicsControl{Delay: 4, TransparentIndex: -1}

	d, err := NewGIF(buildGIF(t, 5, 5, gifPalette, -1, img))
	require.NoError(t, err)
	f := frame.New()
	require.True(t, d.NextFrame(f))
	assert.False(t, f.Empty)
	assert.True(t, f.DelayOnly())
	assert.Equal(t, 40, f.Delay)
	assert.Zero(t, f.X)
	assert.Zero(t, f.Y)
}

func TestGIF_OversizedDescriptor(t *testing.T) {
	// 1x1 screen with an 8000x8000 image descriptor holding a single pixel.
	data := []byte("GIF89a")
	data = append(data, 1, 0, 1, 0, 0x80, 0, 0)
	data = append(data, 0, 0, 0, 255, 0, 0)
	data = append(data, 0x2c, 0, 0, 0, 0, 0x40, 0x1f, 0x40, 0x1f, 0)
	// Min code size 2: clear, index 1, end.
	data = append(data, 2, 2, 0x4c, 0x01, 0, 0x3b)

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	d, err := NewGIF(data, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	f := frame.New()
	require.True(t, d.NextFrame(f))
	runtime.ReadMemStats(&after)

	assert.Equal(t, 1, f.CanvasWidth)
	assert.Equal(t, 1, f.CanvasHeight)
	require.NotNil(t, f.Pixels)
	assert.Equal(t, 1, f.Pixels.Width)
	assert.Equal(t, 1, f.Pixels.Height)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(16<<20), "only the visible window is allocated")
	assert.False(t, d.NextFrame(f))
}

func TestGIF_Interlaced(t *testing.T) {
	const h = 9
	img := gifImage{desc: gifio.ImageDesc{Width: 1, Height: h, Interlace: true}}
	// Row y holds index y%4; rows are emitted in pass order.
	for pass := range interlaceOffsets {
		for y := interlaceOffsets[pass]; y < h; y += interlaceStrides[pass] {
			img.rows = append(img.rows, []byte{byte(y % 4)})
		}
	}

	d, err := NewGIF(buildGIF(t, 1, h, gifPalette, -1, img))
	require.NoError(t, err)
	f := frame.New()
	require.True(t, d.NextFrame(f))
	for y := 0; y < h; y++ {
		c := gifPalette[y%4]
		assert.Equal(t, [4]byte{c.B, c.G, c.R, 255}, bgraAt(f.Pixels, 0, y), "row %d", y)
	}
}

func TestGIF_SkipsImageWithoutColorTable(t *testing.T) {
	withTable := fullImage(1, 1, 1)
	withTable.desc.ColorMap = gifPalette

	d, err := NewGIF(buildGIF(t, 1, 1, nil, -1, fullImage(1, 1, 0), withTable))
	require.NoError(t, err)
	f := frame.New()
	require.True(t, d.NextFrame(f), "the table-less image is skipped")
	assert.Equal(t, [4]byte{0, 0, 255, 255}, bgraAt(f.Pixels, 0, 0))
	assert.Nil(t, f.GlobalPalette)
	assert.False(t, d.NextFrame(f))
}

// --- Reset ---

func TestGIF_Reset(t *testing.T) {
	data := buildGIF(t, 2, 2, gifPalette, 3, fullImage(2, 2, 1), fullImage(2, 2, 2))
	d, err := NewGIF(data)
	require.NoError(t, err)

	count := func() int {
		n := 0
		f := frame.New()
		for d.NextFrame(f) {
			n++
		}
		return n
	}
	assert.Equal(t, 2, count())
	require.NoError(t, d.Reset())
	assert.Equal(t, 2, count())
	assert.Equal(t, 3, d.Loops())
}

func TestGIF_RejectsGarbage(t *testing.T) {
	_, err := NewGIF([]byte("not a gif"))
	require.ErrorIs(t, err, ErrNotLoaded)
}
