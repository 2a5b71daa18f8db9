package encoder

import (
	"bytes"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/webp"
	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/deepteams/photon/frame"
)

// Raster writes the first frame as a still JPEG, PNG, WebP, BMP or TIFF
// image. Callers flatten windowed frames onto their canvas first.
type Raster struct {
	w   io.Writer
	cfg Config
	log *zap.Logger

	buf bytes.Buffer
}

// NewRaster returns a still image encoder.
func NewRaster(w io.Writer, cfg Config, opts ...Option) *Raster {
	return &Raster{w: w, cfg: cfg, log: buildOptions(opts).log}
}

// pngLevel maps quality/10, a zlib level, onto the levels image/png offers.
func pngLevel(quality int) png.CompressionLevel {
	switch level := quality / 10; {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

func (e *Raster) AddFrame(f *frame.Frame) error {
	if e.buf.Len() > 0 {
		return ErrAlreadyEncoded
	}
	if f.Empty || f.Pixels.Empty() {
		return nil
	}
	img := f.Pixels.Image()

	var err error
	switch e.cfg.Format {
	case FormatJPEG:
		err = jpeg.Encode(&e.buf, img, &jpeg.Options{Quality: max(1, min(e.cfg.Quality, 100))})
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: pngLevel(e.cfg.Quality)}
		err = enc.Encode(&e.buf, img)
	case FormatWebP:
		err = webp.Encode(&e.buf, img, webp.Options{
			Quality:  e.cfg.Quality,
			Lossless: e.cfg.flag("webp:lossless"),
			Method:   4,
		})
	case FormatBMP:
		err = bmp.Encode(&e.buf, img)
	case FormatTIFF:
		err = tiff.Encode(&e.buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("%w: no raster encoder for %q", ErrWrongFormat, e.cfg.Format)
	}
	if err != nil {
		e.buf.Reset()
		return fmt.Errorf("encoder: encoding %s: %w", e.cfg.Format, err)
	}
	e.log.Debug("raster image encoded",
		zap.String("format", e.cfg.Format),
		zap.Int("width", f.Pixels.Width),
		zap.Int("height", f.Pixels.Height),
		zap.Int("bytes", e.buf.Len()))
	return nil
}

func (e *Raster) Finalize() error {
	if e.buf.Len() == 0 {
		return ErrNoFrames
	}
	return writeOut(e.w, e.buf.Bytes())
}

func (e *Raster) Kind() Kind { return KindRaster }
func (e *Raster) sealed()    {}
