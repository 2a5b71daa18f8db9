package encoder

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteams/photon/animation"
	"github.com/deepteams/photon/frame"
	"github.com/deepteams/photon/internal/container"
)

// The fake frame codec stores raw NRGBA pixels behind a VP8L header and
// records the configuration of every call.
type fakeCodec struct {
	configs []animation.FrameConfig
}

func (c *fakeCodec) encode(img image.Image, cfg animation.FrameConfig) ([]byte, error) {
	c.configs = append(c.configs, cfg)
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Rect, img, b.Min, draw.Src)
	bits := uint32(b.Dx()-1) | uint32(b.Dy()-1)<<14 | 1<<28
	out := []byte{container.VP8LMagicByte, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(out[1:5], bits)
	return append(out, n.Pix...), nil
}

func fakeDecode(payload []byte) (*image.NRGBA, error) {
	bits := binary.LittleEndian.Uint32(payload[1:5])
	img := image.NewNRGBA(image.Rect(0, 0, int(bits&0x3fff)+1, int(bits>>14&0x3fff)+1))
	copy(img.Pix, payload[5:])
	return img, nil
}

func withFakeCodec(t *testing.T) *fakeCodec {
	t.Helper()
	c := &fakeCodec{}
	oldEnc, oldDec := animation.FrameEncoderFunc, animation.FrameDecoderFunc
	animation.FrameEncoderFunc, animation.FrameDecoderFunc = c.encode, fakeDecode
	t.Cleanup(func() { animation.FrameEncoderFunc, animation.FrameDecoderFunc = oldEnc, oldDec })
	return c
}

// solidFrame returns a visible BGRA frame filled with (b, g, r, a).
func solidFrame(x, y, w, h int, b, g, r, a byte) *frame.Frame {
	f := frame.New()
	f.Empty = false
	f.X, f.Y = x, y
	f.Pixels = frame.NewPixels(w, h, 4)
	for i := 0; i < len(f.Pixels.Pix); i += 4 {
		f.Pixels.Pix[i], f.Pixels.Pix[i+1], f.Pixels.Pix[i+2], f.Pixels.Pix[i+3] = b, g, r, a
	}
	f.Blending = frame.BlendingBlend
	f.Disposal = frame.DisposalNone
	return f
}

func delayOnly(delay int) *frame.Frame {
	f := frame.New()
	f.Empty = false
	f.Delay = delay
	return f
}

// --- Kind ---

func TestKind(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
		caps Capabilities
	}{
		{KindRaster, "raster", Capabilities{}},
		{KindGIF, "gif", Capabilities{RequiresOriginalPalette: true, MultipleFrames: true, OptimizedFrames: true}},
		{KindWebPWindowed, "webp-windowed", Capabilities{MultipleFrames: true, OptimizedFrames: true}},
		{KindWebPFullFrame, "webp-full-frame", Capabilities{MultipleFrames: true, OptimizedFrames: true}},
		{KindHEIF, "heif", Capabilities{}},
		{KindNaiveGIF, "naive-gif", Capabilities{MultipleFrames: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.kind.String())
			assert.Equal(t, tt.caps, tt.kind.Capabilities())

			enc, err := New(tt.kind, &bytes.Buffer{}, Config{})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, enc.Kind())
		})
	}
	_, err := New(Kind(17), &bytes.Buffer{}, Config{})
	require.Error(t, err)
}

// --- Options ---

func TestConfig_IntOption(t *testing.T) {
	cfg := Config{Options: map[string]string{
		"good":  "4",
		"high":  "7",
		"low":   "-1",
		"words": "four",
		"empty": "",
	}}

	assert.Equal(t, 4, cfg.intOption("good", 1, 0, 6))
	for _, key := range []string{"missing", "high", "low", "words", "empty"} {
		assert.Equal(t, 1, cfg.intOption(key, 1, 0, 6), key)
	}
}

func TestConfig_Flag(t *testing.T) {
	cfg := Config{Options: map[string]string{"a": "true", "b": "yes", "c": "TRUE"}}
	assert.True(t, cfg.flag("a"))
	assert.False(t, cfg.flag("b"))
	assert.False(t, cfg.flag("c"))
	assert.False(t, Config{}.flag("a"))
}

func TestConfig_Expect(t *testing.T) {
	err := Config{Format: "png"}.expect(FormatGIF)
	require.ErrorIs(t, err, ErrWrongFormat)
	assert.Contains(t, err.Error(), "expected gif format, got png")
	assert.NoError(t, Config{Format: "gif"}.expect(FormatGIF))
}

func TestGIFLoops(t *testing.T) {
	tests := []struct {
		in, want int
		write    bool
	}{
		{1, 0, false},
		{0, 0, true},
		{5, 5, true},
		{65535, 65535, true},
		{65536, 0, true},
	}
	for _, tt := range tests {
		got, write := gifLoops(tt.in)
		assert.Equal(t, tt.want, got, "loops %d", tt.in)
		assert.Equal(t, tt.write, write, "loops %d", tt.in)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteOut_Error(t *testing.T) {
	err := writeOut(failingWriter{}, []byte{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
