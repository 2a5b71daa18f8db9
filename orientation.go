package photon

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/deepteams/photon/encoder"
	"github.com/deepteams/photon/frame"
)

// bakeOrientation applies an EXIF orientation to px so that it displays
// upright without the tag. Values outside 2..8 return px unchanged.
func bakeOrientation(px *frame.Pixels, orientation int) *frame.Pixels {
	if px.Empty() || orientation < 2 || orientation > 8 {
		return px
	}
	img := px.NRGBA()
	var out *image.NRGBA
	switch orientation {
	case 2:
		out = imaging.FlipH(img)
	case 3:
		out = imaging.Rotate180(img)
	case 4:
		out = imaging.FlipH(imaging.Rotate180(img))
	case 5:
		out = imaging.FlipH(imaging.Rotate270(img))
	case 6:
		out = imaging.Rotate270(img)
	case 7:
		out = imaging.FlipH(imaging.Rotate90(img))
	case 8:
		out = imaging.Rotate90(img)
	}
	return frame.FromNRGBA(out).WithChannels(px.Channels)
}

// orientFrame bakes orientation into a flattened frame and updates its
// canvas to the new pixel size.
func orientFrame(f *frame.Frame, orientation int) {
	f.Pixels = bakeOrientation(f.Pixels, orientation)
	if !f.Pixels.Empty() {
		f.X, f.Y = 0, 0
		f.CanvasWidth, f.CanvasHeight = f.Pixels.Width, f.Pixels.Height
	}
}

// exifFormat reports whether format can carry an EXIF orientation tag.
func exifFormat(format string) bool {
	switch format {
	case encoder.FormatJPEG, encoder.FormatPNG, encoder.FormatWebP:
		return true
	}
	return false
}
