package photon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deepteams/photon/decoder"
	"github.com/deepteams/photon/encoder"
	"github.com/deepteams/photon/frame"
)

var (
	// ErrUnsupportedInput is returned when no decoder recognizes the input.
	ErrUnsupportedInput = errors.New("photon: unsupported input format")
	// ErrUnsupportedFormat is returned for unknown target formats.
	ErrUnsupportedFormat = errors.New("photon: unsupported output format")
)

// ColorTransformer converts pixels from an embedded ICC profile to sRGB.
type ColorTransformer interface {
	ToSRGB(px *frame.Pixels, icc []byte) (*frame.Pixels, error)
}

// OrientationWriter stores an EXIF orientation in an encoded image.
type OrientationWriter interface {
	WriteOrientation(encoded []byte, orientation int) ([]byte, error)
}

// Request describes a conversion.
type Request struct {
	// Format is the target format: gif, webp, avif, jpeg, png, bmp or tiff.
	Format  string
	Quality int
	// Options holds encoder settings such as "webp:lossless".
	Options map[string]string
	// Ops run on every frame in order.
	Ops []frame.Op
	// Orientation is the EXIF orientation of the source, 0 or 1 when upright.
	Orientation int
}

// Result is a finished conversion.
type Result struct {
	Data    []byte
	Decoder decoder.Kind
	Encoder encoder.Kind
	// Frames is the number of frames passed to the encoder.
	Frames int
}

type options struct {
	log         *zap.Logger
	transformer ColorTransformer
	orientation OrientationWriter
}

// Option configures Convert.
type Option func(*options)

// WithLogger sets the logger used by Convert and the codecs it drives.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithColorTransformer converts frames with an embedded profile to sRGB
// before encoding.
func WithColorTransformer(t ColorTransformer) Option {
	return func(o *options) { o.transformer = t }
}

// WithOrientationWriter re-inserts the source orientation into JPEG, PNG
// and WebP output.
func WithOrientationWriter(w OrientationWriter) Option {
	return func(o *options) { o.orientation = w }
}

// NormalizeFormat maps a format name or file extension onto one of the
// encoder format names.
func NormalizeFormat(format string) string {
	f := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
	switch f {
	case "jpg":
		return encoder.FormatJPEG
	case "tif":
		return encoder.FormatTIFF
	}
	return f
}

// SelectEncoder picks the encoder for format given what the decoder
// produces. preserveColors reports whether the queued operations keep
// every pixel value intact.
func SelectEncoder(format string, caps decoder.Capabilities, preserveColors bool) (encoder.Kind, error) {
	switch format {
	case encoder.FormatGIF:
		if caps.OptimizedFrames && caps.Animation && preserveColors {
			return encoder.KindGIF, nil
		}
		return encoder.KindNaiveGIF, nil
	case encoder.FormatWebP:
		switch {
		case caps.OptimizedFrames && caps.Animation:
			return encoder.KindWebPWindowed, nil
		case caps.Animation:
			return encoder.KindWebPFullFrame, nil
		}
		return encoder.KindRaster, nil
	case encoder.FormatAVIF:
		return encoder.KindHEIF, nil
	case encoder.FormatJPEG, encoder.FormatPNG, encoder.FormatBMP, encoder.FormatTIFF:
		return encoder.KindRaster, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Convert decodes data and re-encodes it as req describes.
func Convert(ctx context.Context, data []byte, req Request, opts ...Option) (Result, error) {
	o := options{log: zap.NewNop()}
	for _, fn := range opts {
		fn(&o)
	}
	req.Format = NormalizeFormat(req.Format)

	dec, err := decoder.Probe(data, decoder.WithLogger(o.log))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnsupportedInput, err)
	}
	kind, err := SelectEncoder(req.Format, dec.Kind().Capabilities(), frame.PreserveColors(req.Ops...))
	if err != nil {
		return Result{}, err
	}

	c := &conversion{req: req, opts: o, dec: dec}
	start := time.Now()
	res, err := c.run(ctx, kind)
	if errors.Is(err, frame.ErrColorNotFound) && kind == encoder.KindGIF {
		o.log.Info("palette mismatch, re-encoding with full frames", zap.Error(err))
		paletteFallbacks.Inc()
		if err = dec.Reset(); err != nil {
			err = fmt.Errorf("photon: rewinding decoder: %w", err)
		} else {
			kind = encoder.KindNaiveGIF
			res, err = c.run(ctx, kind)
		}
	}
	conversionDuration.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	if err != nil {
		conversionsTotal.WithLabelValues(kind.String(), statusError).Inc()
		return Result{}, err
	}
	conversionsTotal.WithLabelValues(kind.String(), statusOK).Inc()
	return res, nil
}

type conversion struct {
	req  Request
	opts options
	dec  decoder.Decoder
}

// run drives one encoder over every frame of the decoder.
func (c *conversion) run(ctx context.Context, kind encoder.Kind) (Result, error) {
	log := c.opts.log.With(zap.Stringer("decoder", c.dec.Kind()), zap.Stringer("encoder", kind))
	var buf bytes.Buffer
	enc, err := encoder.New(kind, &buf, encoder.Config{
		Format:  c.req.Format,
		Quality: c.req.Quality,
		Options: c.req.Options,
	}, encoder.WithLogger(log))
	if err != nil {
		return Result{}, err
	}
	still := !kind.Capabilities().MultipleFrames
	icc, hasICC := c.dec.ICCProfile()
	hasICC = hasICC && len(icc) > 0

	res := Result{Decoder: c.dec.Kind(), Encoder: kind}
	f := frame.New()
	for index := 0; c.dec.NextFrame(f); index++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		framesDecoded.WithLabelValues(c.dec.Kind().String()).Inc()
		if err := frame.Apply(f, index, c.req.Ops...); err != nil {
			return Result{}, fmt.Errorf("photon: frame %d: %w", index, err)
		}
		if still {
			if f.DelayOnly() {
				continue
			}
			flatten(f)
		}
		if hasICC && c.opts.transformer != nil && !f.Pixels.Empty() {
			px, err := c.opts.transformer.ToSRGB(f.Pixels, icc)
			if err != nil {
				return Result{}, fmt.Errorf("photon: color transform: %w", err)
			}
			f.Pixels = px
		}
		if kind == encoder.KindHEIF && c.req.Orientation > 1 {
			orientFrame(f, c.req.Orientation)
		}
		if err := enc.AddFrame(f); err != nil {
			return Result{}, fmt.Errorf("photon: frame %d: %w", index, err)
		}
		res.Frames++
		if still {
			break
		}
	}
	if err := enc.Finalize(); err != nil {
		return Result{}, err
	}

	res.Data = buf.Bytes()
	if c.req.Orientation > 1 && c.opts.orientation != nil && exifFormat(c.req.Format) {
		if res.Data, err = c.opts.orientation.WriteOrientation(res.Data, c.req.Orientation); err != nil {
			return Result{}, fmt.Errorf("photon: writing orientation: %w", err)
		}
	}
	log.Debug("conversion finished", zap.Int("frames", res.Frames), zap.Int("bytes", len(res.Data)))
	return res, nil
}

// flatten places a windowed frame on its canvas for still encoders.
func flatten(f *frame.Frame) {
	if f.Bounds() == f.Canvas() {
		return
	}
	f.Pixels = f.Flatten()
	f.X, f.Y = 0, 0
	if !f.Pixels.Empty() {
		f.CanvasWidth, f.CanvasHeight = f.Pixels.Width, f.Pixels.Height
	}
}
