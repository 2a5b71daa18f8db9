package encoder

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"go.uber.org/zap"

	"github.com/deepteams/photon/animation"
	"github.com/deepteams/photon/frame"
	"github.com/deepteams/photon/mux"
)

const (
	defaultWebPMethod         = 1
	defaultWebPLosslessEffort = 35
)

type webpPending struct {
	payload []byte
	opts    mux.FrameOptions
}

// WebPWindowed maps windowed frames onto ANMF frames one to one. WebP
// offsets must be even, so a window starting on an odd column or row loses
// that column or row. Disposal to previous has no WebP equivalent and is
// emulated with a zero-length cleanup frame redrawing the saved canvas.
type WebPWindowed struct {
	w   io.Writer
	cfg Config
	log *zap.Logger

	muxer      *mux.Muxer
	frameCfg   animation.FrameConfig
	state      *frame.Pixels
	pending    *webpPending
	inserted   int
	delayError int
}

// NewWebPWindowed returns a windowed animated WebP encoder.
func NewWebPWindowed(w io.Writer, cfg Config, opts ...Option) *WebPWindowed {
	return &WebPWindowed{w: w, cfg: cfg, log: buildOptions(opts).log}
}

func (e *WebPWindowed) init(f *frame.Frame) error {
	method := e.cfg.intOption("webp:method", defaultWebPMethod, 0, 6)
	effort := e.cfg.intOption("webp:lossless_effort", defaultWebPLosslessEffort, 0, 100)
	e.frameCfg = animation.FrameConfig{
		Lossless: e.cfg.flag("webp:lossless"),
		Quality:  e.cfg.Quality,
		Method:   method,
	}
	if e.frameCfg.Lossless {
		e.frameCfg.Quality = effort
	}

	e.muxer = mux.NewMuxer()
	e.muxer.SetCanvasSize(f.CanvasWidth, f.CanvasHeight)
	e.muxer.SetLoopCount(f.Loops)
	e.muxer.SetBackgroundColor(0)
	e.muxer.SetAnimated(true)
	if f.MayDisposeToPrevious {
		e.state = frame.NewPixels(f.CanvasWidth, f.CanvasHeight, 4)
	}
	e.log.Debug("webp: encoder initialized",
		zap.Int("canvas_width", f.CanvasWidth),
		zap.Int("canvas_height", f.CanvasHeight),
		zap.Bool("lossless", e.frameCfg.Lossless),
		zap.Int("quality", e.frameCfg.Quality),
		zap.Int("method", method),
		zap.Bool("tracks_state", e.state != nil))
	return nil
}

func (e *WebPWindowed) AddFrame(f *frame.Frame) error {
	if err := e.cfg.expect(FormatWebP); err != nil {
		return err
	}
	if f.Empty {
		return nil
	}
	if e.muxer == nil {
		if err := e.init(f); err != nil {
			return err
		}
	}

	// A single odd column or row disappears once snapped to even offsets.
	px := f.Pixels
	if px.Empty() || (px.Width == 1 && f.X&1 != 0) || (px.Height == 1 && f.Y&1 != 0) {
		e.delayError += f.Delay
		return nil
	}
	if err := e.maybeInsertFrame(false); err != nil {
		return err
	}

	dx, dy := f.X&1, f.Y&1
	img := px.ToBGRA().SubImage(image.Rect(dx, dy, px.Width, px.Height))
	rect := image.Rect(0, 0, img.Width, img.Height).Add(image.Pt((f.X+1)&^1, (f.Y+1)&^1))

	opts := mux.FrameOptions{
		OffsetX:     rect.Min.X,
		OffsetY:     rect.Min.Y,
		DisposeMode: mux.DisposeNone,
		BlendMode:   mux.BlendNone,
	}
	if f.Disposal == frame.DisposalBackground {
		opts.DisposeMode = mux.DisposeBackground
	}
	if f.Blending == frame.BlendingBlend {
		opts.BlendMode = mux.BlendAlpha
	}
	payload, err := animation.FrameEncoderFunc(img.NRGBA(), e.frameCfg)
	if err != nil {
		return fmt.Errorf("encoder: failed to encode image data: %w", err)
	}
	e.pending = &webpPending{payload: payload, opts: opts}
	e.delayError += f.Delay

	if f.MayDisposeToPrevious && e.state != nil {
		e.updateState(f, img, rect)
	}

	if f.Disposal != frame.DisposalPrevious {
		return nil
	}
	if !f.MayDisposeToPrevious || e.state == nil {
		return ErrUnexpectedDisposePrevious
	}
	cleanup := f.Clone()
	cleanup.Delay = 0
	cleanup.Pixels = e.state.SubImage(rect).Clone()
	cleanup.X, cleanup.Y = rect.Min.X, rect.Min.Y
	cleanup.Disposal = frame.DisposalNone
	cleanup.Blending = frame.BlendingNoBlend
	return e.AddFrame(cleanup)
}

// updateState replays the frame and its disposal on the canvas kept for
// disposal to previous. A blended row is copied up to its first pixel with
// less than half alpha.
func (e *WebPWindowed) updateState(f *frame.Frame, img *frame.Pixels, rect image.Rectangle) {
	switch f.Disposal {
	case frame.DisposalPrevious:
	case frame.DisposalBackground:
		e.state.Clear(rect)
	default:
		blend := f.Blending == frame.BlendingBlend
		for y := 0; y < img.Height; y++ {
			src := img.Row(y)
			off := e.state.PixOffset(rect.Min.X, rect.Min.Y+y)
			dst := e.state.Pix[off : off+4*img.Width]
			for x := 0; x < img.Width; x++ {
				if blend && src[4*x+3] < 128 {
					break
				}
				copy(dst[4*x:4*x+4], src[4*x:4*x+4])
			}
		}
	}
}

// maybeInsertFrame pushes the pending frame with the delay accumulated since
// it was added. When finalizing an animation that has no frame yet, or when
// delay is left over, a transparent 1x1 frame carries the delay.
func (e *WebPWindowed) maybeInsertFrame(finalizing bool) error {
	if e.pending == nil && e.delayError == 0 && (e.inserted > 0 || !finalizing) {
		return nil
	}
	if e.pending == nil {
		dummy := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		payload, err := animation.FrameEncoderFunc(dummy, e.frameCfg)
		if err != nil {
			return fmt.Errorf("encoder: failed to encode dummy frame: %w", err)
		}
		e.pending = &webpPending{
			payload: payload,
			opts:    mux.FrameOptions{DisposeMode: mux.DisposeNone, BlendMode: mux.BlendAlpha},
		}
	}
	p := e.pending
	e.pending = nil
	p.opts.Duration = e.delayError
	e.delayError = 0
	if err := e.muxer.AddFrame(p.payload, &p.opts); err != nil {
		return fmt.Errorf("encoder: failed to push frame: %w", err)
	}
	e.inserted++
	return nil
}

func (e *WebPWindowed) Finalize() error {
	if e.muxer == nil {
		return ErrUninitialized
	}
	if err := e.maybeInsertFrame(true); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := e.muxer.Assemble(&buf); err != nil {
		return fmt.Errorf("encoder: failed to assemble: %w", err)
	}
	e.log.Debug("webp: animation assembled", zap.Int("frames", e.inserted), zap.Int("bytes", buf.Len()))
	return writeOut(e.w, buf.Bytes())
}

func (e *WebPWindowed) Kind() Kind { return KindWebPWindowed }
func (e *WebPWindowed) sealed()    {}
