package decoder

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/gen2brain/avif"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deepteams/photon/frame"
)

func encodeAVIF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, avif.Encode(&buf, img, avif.Options{
		Quality:           100,
		QualityAlpha:      100,
		Speed:             avif.DefaultSpeed,
		ChromaSubsampling: image.YCbCrSubsampleRatio444,
	}))
	return buf.Bytes()
}

func TestHEIF_AVIFWithoutProfile(t *testing.T) {
	d, err := NewHEIF(encodeAVIF(t, solidNRGBA(4, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 255})), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.True(t, d.Loaded())

	icc, ok := d.ICCProfile()
	assert.False(t, ok)
	assert.Nil(t, icc)

	f := frame.New()
	require.True(t, d.NextFrame(f))
	assert.Equal(t, 4, f.Pixels.Width)
	assert.Equal(t, 2, f.Pixels.Height)
	assert.False(t, d.NextFrame(f))
}
