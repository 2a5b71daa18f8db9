package photon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepteams/photon/frame"
)

// numbered returns a 3x2 gray image whose pixel values are 1..6 in reading
// order.
func numbered() *frame.Pixels {
	px := frame.NewPixels(3, 2, 1)
	for i := range px.Pix {
		px.Pix[i] = byte(i + 1)
	}
	return px
}

func grayRows(px *frame.Pixels) [][]byte {
	rows := make([][]byte, px.Height)
	for y := range rows {
		rows[y] = append([]byte{}, px.Row(y)...)
	}
	return rows
}

func TestBakeOrientation(t *testing.T) {
	tests := []struct {
		orientation int
		want        [][]byte
	}{
		{1, [][]byte{{1, 2, 3}, {4, 5, 6}}},
		{2, [][]byte{{3, 2, 1}, {6, 5, 4}}},
		{3, [][]byte{{6, 5, 4}, {3, 2, 1}}},
		{4, [][]byte{{4, 5, 6}, {1, 2, 3}}},
		{5, [][]byte{{1, 4}, {2, 5}, {3, 6}}},
		{6, [][]byte{{4, 1}, {5, 2}, {6, 3}}},
		{7, [][]byte{{6, 3}, {5, 2}, {4, 1}}},
		{8, [][]byte{{3, 6}, {2, 5}, {1, 4}}},
		{9, [][]byte{{1, 2, 3}, {4, 5, 6}}},
	}
	for _, tt := range tests {
		out := bakeOrientation(numbered(), tt.orientation)
		require.Equal(t, 1, out.Channels)
		assert.Equal(t, tt.want, grayRows(out), "orientation %d", tt.orientation)
	}
}

func TestOrientFrame(t *testing.T) {
	f := frame.New()
	f.Empty = false
	f.Pixels = numbered()
	f.CanvasWidth, f.CanvasHeight = 3, 2

	orientFrame(f, 6)
	assert.Equal(t, 2, f.CanvasWidth)
	assert.Equal(t, 3, f.CanvasHeight)
	assert.Equal(t, 2, f.Pixels.Width)
}

func TestExifFormat(t *testing.T) {
	for _, format := range []string{"jpeg", "png", "webp"} {
		assert.True(t, exifFormat(format), format)
	}
	for _, format := range []string{"gif", "avif", "bmp", "tiff"} {
		assert.False(t, exifFormat(format), format)
	}
}
