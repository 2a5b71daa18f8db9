package decoder

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"

	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	xwebp "golang.org/x/image/webp"

	"github.com/deepteams/photon/frame"
	"github.com/deepteams/photon/mux"
)

var errUnknownRaster = errors.New("decoder: not a still raster image")

// Raster decodes single-frame PNG, JPEG, BMP, TIFF and still WebP images.
// The format is sniffed from magic bytes; GIF, animated WebP and ISO-BMFF
// inputs are declined so later decoders can take them.
type Raster struct {
	data   []byte
	log    *zap.Logger
	format string
	pixels *frame.Pixels
	icc    []byte
	loaded bool
}

// NewRaster opens data.
func NewRaster(data []byte, opts ...Option) (*Raster, error) {
	d := &Raster{data: data, log: buildOptions(opts).log}
	if err := d.Reset(); err != nil {
		return nil, notLoaded(KindRaster, err)
	}
	return d, nil
}

// SniffRaster returns the raster format of data, or "" when the raster
// decoder would decline it.
func SniffRaster(data []byte) string {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "png"
	case bytes.HasPrefix(data, []byte{0xff, 0xd8, 0xff}):
		return "jpeg"
	case bytes.HasPrefix(data, []byte("BM")):
		return "bmp"
	case bytes.HasPrefix(data, []byte("II*\x00")), bytes.HasPrefix(data, []byte("MM\x00*")):
		return "tiff"
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		dmx, err := mux.NewDemuxer(data)
		if err != nil || dmx.Features().HasAnimation {
			return ""
		}
		return "webp"
	}
	return ""
}

// Reset decodes the image again so the next call to NextFrame returns it.
func (d *Raster) Reset() error {
	d.pixels, d.icc = nil, nil
	d.format = SniffRaster(d.data)
	var (
		img image.Image
		err error
	)
	r := bytes.NewReader(d.data)
	switch d.format {
	case "png":
		img, err = png.Decode(r)
	case "jpeg":
		img, err = jpeg.Decode(r)
	case "bmp":
		img, err = bmp.Decode(r)
	case "tiff":
		img, err = tiff.Decode(r)
	case "webp":
		img, err = xwebp.Decode(r)
	default:
		err = errUnknownRaster
	}
	if err != nil {
		d.loaded = false
		return err
	}
	d.pixels = frame.FromImage(img)
	d.icc = extractICC(d.format, d.data)
	d.loaded = true
	d.log.Debug("raster image decoded",
		zap.String("format", d.format),
		zap.Int("width", d.pixels.Width),
		zap.Int("height", d.pixels.Height),
		zap.Int("channels", d.pixels.Channels))
	return nil
}

func (d *Raster) Loaded() bool { return d.loaded }

// Format returns the sniffed format name.
func (d *Raster) Format() string { return d.format }

// NextFrame hands out the decoded image once.
func (d *Raster) NextFrame(dst *frame.Frame) bool {
	dst.Reset()
	return stillFrame(dst, &d.pixels)
}

// ICCProfile returns the profile embedded in PNG iCCP, JPEG APP2 or WebP
// ICCP chunks.
func (d *Raster) ICCProfile() ([]byte, bool) {
	if d.icc == nil {
		return nil, false
	}
	return bytes.Clone(d.icc), true
}

func (d *Raster) Kind() Kind { return KindRaster }
func (d *Raster) sealed()    {}

// stillFrame moves *pixels into dst as a full-canvas frame.
func stillFrame(dst *frame.Frame, pixels **frame.Pixels) bool {
	px := *pixels
	*pixels = nil
	if px.Empty() {
		return false
	}
	dst.Pixels = px
	dst.CanvasWidth = px.Width
	dst.CanvasHeight = px.Height
	dst.Empty = false
	return true
}
