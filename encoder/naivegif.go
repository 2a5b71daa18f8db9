package encoder

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/ericpauley/go-quantize/quantize"
	"go.uber.org/zap"

	"github.com/deepteams/photon/frame"
	"github.com/deepteams/photon/internal/gifio"
)

// naiveTransparent is the palette slot reserved for transparency.
const naiveTransparent = 0

// NaiveGIF renders every frame onto the full canvas and writes it with a
// freshly quantized local palette. It accepts frames of any origin and is
// the fallback when palette preserving encoding fails.
type NaiveGIF struct {
	w   io.Writer
	cfg Config
	log *zap.Logger

	buf        bytes.Buffer
	gw         *gifio.Writer
	canvas     image.Rectangle
	last       *frame.Pixels
	delayError int
}

// NewNaiveGIF returns a full-frame GIF encoder.
func NewNaiveGIF(w io.Writer, cfg Config, opts ...Option) *NaiveGIF {
	return &NaiveGIF{w: w, cfg: cfg, log: buildOptions(opts).log}
}

func (e *NaiveGIF) init(f *frame.Frame) error {
	width, height := f.CanvasWidth, f.CanvasHeight
	if width <= 0 || height <= 0 {
		width, height = f.Pixels.Width+f.X, f.Pixels.Height+f.Y
	}
	e.canvas = image.Rect(0, 0, width, height)
	e.last = frame.NewPixels(width, height, 4)
	e.gw = gifio.NewWriter(&e.buf)
	if err := e.gw.WriteHeader(width, height, 8, 0, nil); err != nil {
		return fmt.Errorf("encoder: failed to initialize encoding state: %w", err)
	}
	if loops, ok := gifLoops(f.Loops); ok {
		if err := e.gw.WriteLoopCount(loops); err != nil {
			return fmt.Errorf("encoder: writing loop extension: %w", err)
		}
	}
	return nil
}

func (e *NaiveGIF) AddFrame(f *frame.Frame) error {
	if err := e.cfg.expect(FormatGIF); err != nil {
		return err
	}
	if f.Empty {
		return nil
	}
	if e.gw == nil {
		if err := e.init(f); err != nil {
			return err
		}
	}

	img := e.last.Clone()
	rect := f.Bounds().Intersect(e.canvas)
	if !rect.Empty() {
		src := f.Pixels.ToBGRA().SubImage(rect.Sub(image.Pt(f.X, f.Y)))
		if f.Blending == frame.BlendingBlend {
			compositeOver(img, src, rect.Min)
		} else {
			img.CopyFrom(src, rect.Min.X, rect.Min.Y)
		}
	}

	// Milliseconds to centiseconds, carrying the remainder.
	e.delayError += f.Delay % 10
	delay := f.Delay / 10
	if e.delayError >= 10 {
		delay++
		e.delayError -= 10
	}
	if err := e.writeFrame(img, delay); err != nil {
		return fmt.Errorf("encoder: failed to encode frame: %w", err)
	}

	if f.Disposal == frame.DisposalBackground {
		img.Clear(rect)
	}
	if f.Disposal != frame.DisposalPrevious {
		e.last = img
	}
	return nil
}

// compositeOver blends src over dst at pt with straight alpha.
func compositeOver(dst, src *frame.Pixels, pt image.Point) {
	for y := 0; y < src.Height; y++ {
		s := src.Row(y)
		off := dst.PixOffset(pt.X, pt.Y+y)
		d := dst.Pix[off : off+4*src.Width]
		for x := 0; x < src.Width; x++ {
			as := float64(s[4*x+3]) / 255
			ad := float64(d[4*x+3]) / 255
			ar := as + ad*(1-as)
			if ar == 0 {
				clear(d[4*x : 4*x+4])
				continue
			}
			for c := 0; c < 3; c++ {
				v := (float64(s[4*x+c])*as + float64(d[4*x+c])*ad*(1-as)) / ar
				d[4*x+c] = uint8(math.Round(v))
			}
			d[4*x+3] = uint8(math.Round(ar * 255))
		}
	}
}

// writeFrame quantizes img to at most 255 colors plus the transparent slot
// and writes it as a full-canvas image.
func (e *NaiveGIF) writeFrame(img *frame.Pixels, delay int) error {
	nrgba := img.NRGBA()
	q := quantize.MedianCutQuantizer{}
	quantized := q.Quantize(make(color.Palette, 0, 255), nrgba)

	table := make([]color.RGBA, 1, len(quantized)+1)
	for _, c := range quantized {
		rgba := color.RGBAModel.Convert(c).(color.RGBA)
		rgba.A = 0xff
		table = append(table, rgba)
	}
	lookup := make(color.Palette, len(table)-1)
	for i, c := range table[1:] {
		lookup[i] = c
	}

	indices := make([]byte, img.Width*img.Height)
	cache := make(map[color.RGBA]byte)
	for y := 0; y < img.Height; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < img.Width; x++ {
			if row[4*x+3] < 128 || len(lookup) == 0 {
				indices[y*img.Width+x] = naiveTransparent
				continue
			}
			c := color.RGBA{R: row[4*x], G: row[4*x+1], B: row[4*x+2], A: 0xff}
			idx, ok := cache[c]
			if !ok {
				idx = byte(lookup.Index(c) + 1)
				cache[c] = idx
			}
			indices[y*img.Width+x] = idx
		}
	}

	// Every frame covers the canvas, so clearing it after display lets the
	// next frame's transparent pixels show through.
	gcb := gifio.GraphicsControl{
		Disposal:         gifio.DisposalBackground,
		Delay:            delay,
		TransparentIndex: naiveTransparent,
	}
	if err := e.gw.WriteGraphicsControl(gcb); err != nil {
		return err
	}
	if err := e.gw.WriteImageDesc(gifio.ImageDesc{Width: img.Width, Height: img.Height, ColorMap: table}); err != nil {
		return err
	}
	for y := 0; y < img.Height; y++ {
		if err := e.gw.WriteLine(indices[y*img.Width : (y+1)*img.Width]); err != nil {
			return err
		}
	}
	e.log.Debug("gif: full frame written", zap.Int("colors", len(table)), zap.Int("delay_cs", delay))
	return nil
}

func (e *NaiveGIF) Finalize() error {
	if e.gw == nil {
		return fmt.Errorf("%w: not initialized", ErrUninitialized)
	}
	if err := e.gw.Close(); err != nil {
		return fmt.Errorf("encoder: closing gif stream: %w", err)
	}
	return writeOut(e.w, e.buf.Bytes())
}

func (e *NaiveGIF) Kind() Kind { return KindNaiveGIF }
func (e *NaiveGIF) sealed()    {}
