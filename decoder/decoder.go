// Package decoder turns encoded images into a stream of frame.Frame values.
//
// Four decoders exist, one per Kind. Probe tries them in a fixed order
// (raster, GIF, WebP animation, HEIF) and returns the first that loads the
// input. Decoders borrow the input bytes; the caller must not modify them
// while a decoder is in use.
//
// Decoders are forgiving: malformed records are logged at debug level and
// skipped, and NextFrame reports false once nothing more can be decoded.
// Only a failure to open the input is an error.
package decoder

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/deepteams/photon/frame"
)

// Kind identifies a decoder implementation.
type Kind int

const (
	KindRaster Kind = iota
	KindGIF
	KindWebPAnim
	KindHEIF
)

// Capabilities describe the frames a decoder produces.
type Capabilities struct {
	// OptimizedFrames is set when frames are windows on a shared canvas
	// rather than full-canvas snapshots.
	OptimizedFrames bool
	// Animation is set when the input may hold more than one frame.
	Animation bool
}

// Capabilities returns the capabilities shared by every decoder of kind k.
func (k Kind) Capabilities() Capabilities {
	switch k {
	case KindGIF:
		return Capabilities{OptimizedFrames: true, Animation: true}
	case KindWebPAnim:
		return Capabilities{Animation: true}
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
	case KindWebPAnim:
		return "webp-anim"
	case KindHEIF:
		return "heif"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Decoder is implemented by the decoders of this package only.
type Decoder interface {
	// Loaded reports whether the input was opened successfully.
	Loaded() bool
	// Reset rewinds to the first frame.
	Reset() error
	// NextFrame resets dst and fills it with the next frame. It returns
	// false, leaving dst.Empty set, when no frame is left.
	NextFrame(dst *frame.Frame) bool
	// ICCProfile returns the embedded color profile, if any.
	ICCProfile() ([]byte, bool)
	Kind() Kind

	sealed()
}

// ErrNotLoaded is returned when no decoder accepts the input.
var ErrNotLoaded = errors.New("decoder: input not recognized")

type options struct {
	log *zap.Logger
}

// Option configures a decoder.
type Option func(*options)

// WithLogger sets the logger for swallowed decode errors.
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

// New opens data with the decoder of the given kind.
func New(kind Kind, data []byte, opts ...Option) (Decoder, error) {
	switch kind {
	case KindRaster:
		return NewRaster(data, opts...)
	case KindGIF:
		return NewGIF(data, opts...)
	case KindWebPAnim:
		return NewWebPAnim(data, opts...)
	case KindHEIF:
		return NewHEIF(data, opts...)
	default:
		return nil, fmt.Errorf("decoder: unknown kind %d", int(kind))
	}
}

// probeOrder is the order in which Probe tries decoders.
var probeOrder = []Kind{KindRaster, KindGIF, KindWebPAnim, KindHEIF}

// Probe returns the first decoder that loads data.
func Probe(data []byte, opts ...Option) (Decoder, error) {
	log := buildOptions(opts).log
	for _, kind := range probeOrder {
		d, err := New(kind, data, opts...)
		if err == nil && d.Loaded() {
			return d, nil
		}
		log.Debug("decoder declined input", zap.Stringer("kind", kind), zap.Error(err))
	}
	return nil, ErrNotLoaded
}

// notLoaded wraps the reason a decoder refused its input.
func notLoaded(kind Kind, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrNotLoaded, kind)
	}
	return fmt.Errorf("%w: %s: %w", ErrNotLoaded, kind, err)
}
