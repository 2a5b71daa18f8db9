// Package encoder writes streams of frame.Frame values in a target format.
//
// Six encoders exist, one per Kind. Each checks the requested format on the
// first AddFrame call, buffers its output in memory and writes it to the
// destination only when Finalize succeeds, so a failed conversion never
// leaves a partial file behind.
package encoder

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/deepteams/photon/frame"
)

// Kind identifies an encoder implementation.
type Kind int

const (
	KindRaster Kind = iota
	KindGIF
	KindWebPWindowed
	KindWebPFullFrame
	KindHEIF
	KindNaiveGIF
)

// Capabilities describe the frames an encoder accepts.
type Capabilities struct {
	// RequiresOriginalPalette is set when frames must carry the palettes
	// of a GIF decoder and every visible pixel must match them exactly.
	RequiresOriginalPalette bool
	// MultipleFrames is set when more than one frame can be added.
	MultipleFrames bool
	// OptimizedFrames is set when frames may be windows on the canvas
	// rather than full-canvas snapshots.
	OptimizedFrames bool
}

// Capabilities returns the capabilities shared by every encoder of kind k.
func (k Kind) Capabilities() Capabilities {
	switch k {
	case KindGIF:
		return Capabilities{RequiresOriginalPalette: true, MultipleFrames: true, OptimizedFrames: true}
	case KindWebPWindowed, KindWebPFullFrame:
		return Capabilities{MultipleFrames: true, OptimizedFrames: true}
	case KindNaiveGIF:
		return Capabilities{MultipleFrames: true}
	default:
		return Capabilities{}
	}
}

func (k Kind) String() string {
	switch k {
	case KindRaster:
		return "raster"
	case KindGIF:
		return "gif"
	case KindWebPWindowed:
		return "webp-windowed"
	case KindWebPFullFrame:
		return "webp-full-frame"
	case KindHEIF:
		return "heif"
	case KindNaiveGIF:
		return "naive-gif"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Encoder is implemented by the encoders of this package only.
type Encoder interface {
	// AddFrame appends a frame. Empty frames are ignored.
	AddFrame(f *frame.Frame) error
	// Finalize completes the stream and writes it out.
	Finalize() error
	Kind() Kind

	sealed()
}

var (
	ErrWrongFormat               = errors.New("encoder: format not supported by encoder")
	ErrUninitialized             = errors.New("encoder: tried to finalize uninitialized image")
	ErrAlreadyEncoded            = errors.New("encoder: image already encoded")
	ErrNoFrames                  = errors.New("encoder: no frames")
	ErrUnexpectedDisposePrevious = errors.New("encoder: unexpected dispose to previous")
)

// Target formats.
const (
	FormatGIF  = "gif"
	FormatWebP = "webp"
	FormatAVIF = "avif"
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatBMP  = "bmp"
	FormatTIFF = "tiff"
)

// Config is the request an encoder serves.
type Config struct {
	Format  string
	Quality int
	// Options holds format specific settings such as "webp:lossless".
	Options map[string]string
}

// flag reports whether option key is set to "true".
func (c Config) flag(key string) bool {
	return c.Options[key] == "true"
}

// intOption parses option key. A missing, malformed or out of range value
// yields def.
func (c Config) intOption(key string, def, lo, hi int) int {
	s, ok := c.Options[key]
	if !ok {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < lo || v > hi {
		return def
	}
	return v
}

func (c Config) expect(format string) error {
	if c.Format != format {
		return fmt.Errorf("%w: expected %s format, got %s", ErrWrongFormat, format, c.Format)
	}
	return nil
}

type options struct {
	log *zap.Logger
}

// Option configures an encoder.
type Option func(*options)

// WithLogger sets the logger for encoder diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// New returns an encoder of the given kind writing to w.
func New(kind Kind, w io.Writer, cfg Config, opts ...Option) (Encoder, error) {
	switch kind {
	case KindRaster:
		return NewRaster(w, cfg, opts...), nil
	case KindGIF:
		return NewGIF(w, cfg, opts...), nil
	case KindWebPWindowed:
		return NewWebPWindowed(w, cfg, opts...), nil
	case KindWebPFullFrame:
		return NewWebPFullFrame(w, cfg, opts...), nil
	case KindHEIF:
		return NewHEIF(w, cfg, opts...), nil
	case KindNaiveGIF:
		return NewNaiveGIF(w, cfg, opts...), nil
	default:
		return nil, fmt.Errorf("encoder: unknown kind %d", int(kind))
	}
}

// writeOut copies the finished stream to w.
func writeOut(w io.Writer, data []byte) error {
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("encoder: writing output: %w", err)
	}
	return nil
}

// gifLoops maps a frame loop count to the NETSCAPE2.0 value. It reports
// false when no extension should be written.
func gifLoops(loops int) (int, bool) {
	if loops == 1 {
		return 0, false
	}
	if loops >= 1<<16 || loops < 0 {
		return 0, true
	}
	return loops, true
}
