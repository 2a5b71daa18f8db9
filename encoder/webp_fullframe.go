package encoder

import (
	"bytes"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/deepteams/photon/animation"
	"github.com/deepteams/photon/frame"
)

// WebPFullFrame feeds full-canvas frames to animation.AnimEncoder, which
// finds the changed rectangle of each frame itself. Frame delays become
// timestamps: each frame starts at the sum of the delays before it.
type WebPFullFrame struct {
	w   io.Writer
	cfg Config
	log *zap.Logger

	buf       bytes.Buffer
	enc       *animation.AnimEncoder
	timestamp int
}

// NewWebPFullFrame returns a full-frame animated WebP encoder.
func NewWebPFullFrame(w io.Writer, cfg Config, opts ...Option) *WebPFullFrame {
	return &WebPFullFrame{w: w, cfg: cfg, log: buildOptions(opts).log}
}

func (e *WebPFullFrame) init(f *frame.Frame) error {
	minimize := e.cfg.flag("webp:minimize_size")
	method := defaultWebPMethod
	if minimize {
		method = 4
	}
	method = e.cfg.intOption("webp:method", method, 0, 6)
	method = e.cfg.intOption("webp:encoding_effort", method, 0, 6)
	effort := e.cfg.intOption("webp:lossless_effort", defaultWebPLosslessEffort, 0, 100)

	opts := &animation.EncodeOptions{
		LoopCount:    f.Loops,
		Quality:      e.cfg.Quality,
		Lossless:     e.cfg.flag("webp:lossless"),
		Method:       method,
		MinimizeSize: minimize,
	}
	if opts.Lossless {
		opts.Quality = effort
	}
	e.enc = animation.NewEncoder(&e.buf, f.Pixels.Width, f.Pixels.Height, opts)
	e.log.Debug("webp: full-frame encoder initialized",
		zap.Int("width", f.Pixels.Width),
		zap.Int("height", f.Pixels.Height),
		zap.Bool("lossless", opts.Lossless),
		zap.Int("method", method),
		zap.Bool("minimize_size", minimize))
	return nil
}

func (e *WebPFullFrame) AddFrame(f *frame.Frame) error {
	if err := e.cfg.expect(FormatWebP); err != nil {
		return err
	}
	if f.Empty {
		return nil
	}
	if f.Pixels.Empty() {
		e.timestamp += f.Delay
		return nil
	}
	if e.enc == nil {
		if err := e.init(f); err != nil {
			return err
		}
	}
	if err := e.enc.Add(f.Pixels.NRGBA(), e.timestamp); err != nil {
		return fmt.Errorf("encoder: failed to add frame at %dms: %w", e.timestamp, err)
	}
	e.timestamp += f.Delay
	return nil
}

func (e *WebPFullFrame) Finalize() error {
	if e.enc == nil {
		return ErrUninitialized
	}
	if err := e.enc.Close(e.timestamp); err != nil {
		return fmt.Errorf("encoder: failed to assemble: %w", err)
	}
	e.log.Debug("webp: full-frame animation assembled",
		zap.Int("frames", e.enc.NumFrames()),
		zap.Int("duration_ms", e.timestamp))
	return writeOut(e.w, e.buf.Bytes())
}

func (e *WebPFullFrame) Kind() Kind { return KindWebPFullFrame }
func (e *WebPFullFrame) sealed()    {}
