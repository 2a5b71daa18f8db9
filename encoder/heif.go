package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/gen2brain/avif"
	"go.uber.org/zap"

	"github.com/deepteams/photon/frame"
)

// HEIF encodes a single frame as AVIF through github.com/gen2brain/avif.
// With "avif:lossless" set the image is coded at full quality without
// chroma subsampling. The codec always converts to YUV with its default
// matrix, so this is the highest fidelity available but not bit exact.
type HEIF struct {
	w   io.Writer
	cfg Config
	log *zap.Logger

	buf     bytes.Buffer
	encoded bool
}

// NewHEIF returns an AVIF encoder.
func NewHEIF(w io.Writer, cfg Config, opts ...Option) *HEIF {
	return &HEIF{w: w, cfg: cfg, log: buildOptions(opts).log}
}

func (e *HEIF) avifOptions() avif.Options {
	if e.cfg.flag("avif:lossless") {
		return avif.Options{
			Quality:           100,
			QualityAlpha:      100,
			Speed:             avif.DefaultSpeed,
			ChromaSubsampling: image.YCbCrSubsampleRatio444,
		}
	}
	return avif.Options{
		Quality:           e.cfg.Quality,
		QualityAlpha:      e.cfg.Quality,
		Speed:             avif.DefaultSpeed,
		ChromaSubsampling: image.YCbCrSubsampleRatio420,
	}
}

func (e *HEIF) AddFrame(f *frame.Frame) error {
	if err := e.cfg.expect(FormatAVIF); err != nil {
		return err
	}
	if e.encoded {
		return ErrAlreadyEncoded
	}
	if f.Empty || f.Pixels.Empty() {
		return nil
	}
	opts := e.avifOptions()
	if err := avif.Encode(&e.buf, codecImage(f.Pixels), opts); err != nil {
		e.buf.Reset()
		return fmt.Errorf("encoder: failed to encode image: %w", err)
	}
	e.encoded = true
	e.log.Debug("avif: image encoded",
		zap.Int("width", f.Pixels.Width),
		zap.Int("height", f.Pixels.Height),
		zap.Int("channels", f.Pixels.Channels),
		zap.Int("quality", opts.Quality),
		zap.Int("bytes", e.buf.Len()))
	return nil
}

// codecImage lays the channels of px out for the codec: one channel as
// luma only, two as luma with alpha, three as opaque RGB and four as RGB
// with alpha.
func codecImage(px *frame.Pixels) image.Image {
	r := image.Rect(0, 0, px.Width, px.Height)
	switch px.Channels {
	case 1:
		g := image.NewGray(r)
		for y := 0; y < px.Height; y++ {
			copy(g.Pix[y*g.Stride:], px.Row(y))
		}
		return g
	case 2:
		img := image.NewNRGBA(r)
		for y := 0; y < px.Height; y++ {
			src := px.Row(y)
			for x := 0; x < px.Width; x++ {
				l, a := src[2*x], src[2*x+1]
				img.SetNRGBA(x, y, color.NRGBA{R: l, G: l, B: l, A: a})
			}
		}
		return img
	case 3:
		img := image.NewRGBA(r)
		for y := 0; y < px.Height; y++ {
			src := px.Row(y)
			dst := img.Pix[y*img.Stride:]
			for x := 0; x < px.Width; x++ {
				dst[4*x], dst[4*x+1], dst[4*x+2], dst[4*x+3] = src[3*x+2], src[3*x+1], src[3*x], 0xff
			}
		}
		return img
	default:
		return px.NRGBA()
	}
}

func (e *HEIF) Finalize() error {
	if !e.encoded {
		return ErrNoFrames
	}
	return writeOut(e.w, e.buf.Bytes())
}

func (e *HEIF) Kind() Kind { return KindHEIF }
func (e *HEIF) sealed()    {}
