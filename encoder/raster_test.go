package encoder

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	xwebp "golang.org/x/image/webp"

	"github.com/deepteams/photon/frame"
)

// gradient returns a BGRA frame whose pixels are all distinct.
func gradient(w, h int) *frame.Frame {
	f := solidFrame(0, 0, w, h, 0, 0, 0, 255)
	for y := 0; y < h; y++ {
		row := f.Pixels.Row(y)
		for x := 0; x < w; x++ {
			row[4*x], row[4*x+1], row[4*x+2] = byte(x*16), byte(y*16), byte(x*y)
		}
	}
	return f
}

func encodeRaster(t *testing.T, cfg Config, f *frame.Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewRaster(&buf, cfg, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, enc.AddFrame(f))
	require.ErrorIs(t, enc.AddFrame(f), ErrAlreadyEncoded)
	require.NoError(t, enc.Finalize())
	return buf.Bytes()
}

func assertSamePixels(t *testing.T, f *frame.Frame, img image.Image) {
	t.Helper()
	require.Equal(t, f.Pixels.Bounds(), img.Bounds())
	want := f.Pixels.NRGBA()
	for y := 0; y < f.Pixels.Height; y++ {
		for x := 0; x < f.Pixels.Width; x++ {
			got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			require.Equal(t, want.NRGBAAt(x, y), got, "pixel (%d,%d)", x, y)
		}
	}
}

// --- Formats ---

func TestRaster_PNGRoundTrip(t *testing.T) {
	f := gradient(8, 6)
	img, err := png.Decode(bytes.NewReader(encodeRaster(t, Config{Format: FormatPNG, Quality: 90}, f)))
	require.NoError(t, err)
	assertSamePixels(t, f, img)
}

func TestRaster_WebPLosslessRoundTrip(t *testing.T) {
	f := gradient(8, 6)
	data := encodeRaster(t, Config{Format: FormatWebP, Quality: 50, Options: map[string]string{"webp:lossless": "true"}}, f)
	img, err := xwebp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assertSamePixels(t, f, img)
}

func TestRaster_BMPAndTIFF(t *testing.T) {
	f := gradient(5, 3)

	img, err := bmp.Decode(bytes.NewReader(encodeRaster(t, Config{Format: FormatBMP}, f)))
	require.NoError(t, err)
	assertSamePixels(t, f, img)

	img, err = tiff.Decode(bytes.NewReader(encodeRaster(t, Config{Format: FormatTIFF}, f)))
	require.NoError(t, err)
	assertSamePixels(t, f, img)
}

func TestRaster_JPEG(t *testing.T) {
	data := encodeRaster(t, Config{Format: FormatJPEG, Quality: 85}, solidFrame(0, 0, 16, 16, 0, 0, 200, 255))
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, g, b, _ := img.At(8, 8).RGBA()
	assert.InDelta(t, 200, r>>8, 4)
	assert.InDelta(t, 0, g>>8, 4)
	assert.InDelta(t, 0, b>>8, 4)
}

func TestPNGLevel(t *testing.T) {
	assert.Equal(t, png.NoCompression, pngLevel(5))
	assert.Equal(t, png.BestSpeed, pngLevel(10))
	assert.Equal(t, png.BestSpeed, pngLevel(39))
	assert.Equal(t, png.DefaultCompression, pngLevel(60))
	assert.Equal(t, png.BestCompression, pngLevel(95))
}

// --- Errors ---

func TestRaster_Errors(t *testing.T) {
	err := NewRaster(&bytes.Buffer{}, Config{Format: "ico"}).AddFrame(gradient(1, 1))
	require.ErrorIs(t, err, ErrWrongFormat)

	require.ErrorIs(t, NewRaster(&bytes.Buffer{}, Config{Format: FormatPNG}).Finalize(), ErrNoFrames)

	enc := NewRaster(&bytes.Buffer{}, Config{Format: FormatPNG})
	require.NoError(t, enc.AddFrame(frame.New()))
	require.ErrorIs(t, enc.Finalize(), ErrNoFrames, "empty frames produce nothing")
}
