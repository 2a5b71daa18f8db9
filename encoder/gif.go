package encoder

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"go.uber.org/zap"

	"github.com/deepteams/photon/frame"
	"github.com/deepteams/photon/internal/gifio"
)

// gifImage is a frame converted to palette indices, held back until the
// accumulated delay of the frames following it is known.
type gifImage struct {
	indices       []byte
	width, height int
	x, y          int
	palette       []color.RGBA
	gcb           gifio.GraphicsControl
}

// GIF writes the windows, palettes and disposal of frames from the GIF
// decoder back into a GIF stream. Pixels are mapped to palette indices by
// exact lookup; a color missing from the palette fails the frame with
// frame.ErrColorNotFound.
type GIF struct {
	w   io.Writer
	cfg Config
	log *zap.Logger

	buf         bytes.Buffer
	gw          *gifio.Writer
	initialized bool
	hasGlobal   bool
	delayError  int
	pending     *gifImage
}

// NewGIF returns a palette preserving GIF encoder.
func NewGIF(w io.Writer, cfg Config, opts ...Option) *GIF {
	return &GIF{w: w, cfg: cfg, log: buildOptions(opts).log}
}

func (e *GIF) init(f *frame.Frame) error {
	e.gw = gifio.NewWriter(&e.buf)
	global := f.GlobalPalette.Colors()
	if err := e.gw.WriteHeader(f.CanvasWidth, f.CanvasHeight, 6, 0, global); err != nil {
		return fmt.Errorf("encoder: writing screen descriptor: %w", err)
	}
	if loops, ok := gifLoops(f.Loops); ok {
		if err := e.gw.WriteLoopCount(loops); err != nil {
			return fmt.Errorf("encoder: writing loop extension: %w", err)
		}
	}
	e.hasGlobal = len(global) > 0
	e.initialized = true
	return nil
}

func (e *GIF) AddFrame(f *frame.Frame) error {
	if err := e.cfg.expect(FormatGIF); err != nil {
		return err
	}
	if f.Empty {
		return nil
	}
	if !e.initialized {
		if err := e.init(f); err != nil {
			return err
		}
	}
	if f.Pixels.Empty() {
		e.delayError += f.Delay
		return nil
	}
	if err := e.maybeInsertFrame(); err != nil {
		return err
	}

	img, err := applyPalette(f)
	if err != nil {
		return err
	}
	e.delayError += f.Delay

	img.gcb.Disposal = gifio.DisposalDoNot
	switch f.Disposal {
	case frame.DisposalBackground:
		img.gcb.Disposal = gifio.DisposalBackground
	case frame.DisposalPrevious:
		img.gcb.Disposal = gifio.DisposalPrevious
	}
	img.gcb.TransparentIndex = -1
	if f.TransparentIndex >= 0 {
		img.gcb.TransparentIndex = f.TransparentIndex
	}
	img.palette = f.FramePalette.Colors()
	img.x, img.y = f.X, f.Y
	e.pending = img
	return nil
}

// applyPalette maps the pixels of f to indices of its frame palette, or of
// the global palette when the frame has none.
func applyPalette(f *frame.Frame) (*gifImage, error) {
	pal := f.FramePalette
	if pal == nil {
		pal = f.GlobalPalette
	}
	if pal == nil {
		return nil, fmt.Errorf("encoder: frame has no palette: %w", frame.ErrColorNotFound)
	}
	if f.TransparentIndex >= pal.Len() {
		return nil, fmt.Errorf("encoder: transparent index %d outside %d color palette: %w",
			f.TransparentIndex, pal.Len(), frame.ErrColorNotFound)
	}
	src := f.Pixels.ToBGRA()
	img := &gifImage{
		indices: make([]byte, src.Width*src.Height),
		width:   src.Width,
		height:  src.Height,
	}
	for y := 0; y < src.Height; y++ {
		row := src.Row(y)
		dst := img.indices[y*src.Width : (y+1)*src.Width]
		for x := range dst {
			b, g, r, a := row[4*x], row[4*x+1], row[4*x+2], row[4*x+3]
			if a < 128 && f.TransparentIndex >= 0 {
				dst[x] = byte(f.TransparentIndex)
				continue
			}
			idx, err := pal.Index(b, g, r, f.TransparentIndex)
			if err != nil {
				return nil, fmt.Errorf("encoder: pixel (%d,%d) #%02x%02x%02x: %w", f.X+x, f.Y+y, r, g, b, err)
			}
			dst[x] = byte(idx)
		}
	}
	return img, nil
}

// maybeInsertFrame writes the pending frame with the delay accumulated
// since it was added. Leftover delay without a pending frame becomes a
// transparent 1x1 frame.
func (e *GIF) maybeInsertFrame() error {
	if e.pending == nil && e.delayError == 0 {
		return nil
	}
	if e.pending == nil {
		e.pending = &gifImage{
			indices: []byte{0},
			width:   1,
			height:  1,
			gcb:     gifio.GraphicsControl{Disposal: gifio.DisposalDoNot, TransparentIndex: 0},
		}
		if !e.hasGlobal {
			e.pending.palette = []color.RGBA{{A: 0xff}, {A: 0xff}}
		}
		e.log.Debug("gif: inserting delay frame", zap.Int("delay_ms", e.delayError))
	}
	img := e.pending
	e.pending = nil

	img.gcb.Delay = e.delayError / 10
	e.delayError %= 10
	if err := e.gw.WriteGraphicsControl(img.gcb); err != nil {
		return fmt.Errorf("encoder: writing graphic control extension: %w", err)
	}
	err := e.gw.WriteImageDesc(gifio.ImageDesc{
		Left:     img.x,
		Top:      img.y,
		Width:    img.width,
		Height:   img.height,
		ColorMap: img.palette,
	})
	if err != nil {
		return fmt.Errorf("encoder: writing image descriptor: %w", err)
	}
	for y := 0; y < img.height; y++ {
		if err := e.gw.WriteLine(img.indices[y*img.width : (y+1)*img.width]); err != nil {
			return fmt.Errorf("encoder: writing line %d: %w", y, err)
		}
	}
	return nil
}

func (e *GIF) Finalize() error {
	if !e.initialized {
		return ErrUninitialized
	}
	if err := e.maybeInsertFrame(); err != nil {
		return err
	}
	if err := e.gw.Close(); err != nil {
		return fmt.Errorf("encoder: closing gif stream: %w", err)
	}
	return writeOut(e.w, e.buf.Bytes())
}

func (e *GIF) Kind() Kind { return KindGIF }
func (e *GIF) sealed()    {}
