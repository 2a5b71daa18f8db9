package animation

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/deepteams/photon/internal/container"
	"github.com/deepteams/photon/mux"
)

// EncodeOptions configures an AnimEncoder.
type EncodeOptions struct {
	LoopCount       int
	BackgroundColor color.NRGBA
	Quality         int
	Lossless        bool
	Method          int

	// MinimizeSize also tries disposing the previous frame to background
	// and keeps whichever sub-frame encodes smaller.
	MinimizeSize bool

	// Kmax forces a full-canvas keyframe after this many sub-frames.
	// 0 disables forced keyframes.
	Kmax int
}

// AnimEncoder turns a sequence of timestamped full-canvas images into an
// animated WebP file. Each image is diffed against the previous canvas and
// only the changed rectangle is encoded; identical images extend the
// previous frame.
type AnimEncoder struct {
	w      io.Writer
	muxer  *mux.Muxer
	width  int
	height int
	opts   EncodeOptions
	closed bool

	prevCanvas *image.NRGBA
	prevRect   image.Rectangle
	prevIndex  int
	prevFiller bool
	lastTS     int
	frames     int
	sinceKey   int
	filler     []byte
}

// NewEncoder returns an encoder for a canvas of the given size. Nothing is
// written to w before Close.
func NewEncoder(w io.Writer, canvasWidth, canvasHeight int, opts *EncodeOptions) *AnimEncoder {
	e := &AnimEncoder{
		w:      w,
		muxer:  mux.NewMuxer(),
		width:  canvasWidth,
		height: canvasHeight,
	}
	if opts != nil {
		e.opts = *opts
	}
	e.muxer.SetCanvasSize(canvasWidth, canvasHeight)
	e.muxer.SetLoopCount(e.opts.LoopCount)
	e.muxer.SetBackgroundColor(nrgbaToARGB(e.opts.BackgroundColor))
	return e
}

func (e *AnimEncoder) SetICCProfile(data []byte) { e.muxer.SetICCProfile(data) }
func (e *AnimEncoder) SetEXIF(data []byte)       { e.muxer.SetEXIF(data) }
func (e *AnimEncoder) SetXMP(data []byte)        { e.muxer.SetXMP(data) }

// NumFrames returns the number of frames committed to the file so far,
// including duration fillers.
func (e *AnimEncoder) NumFrames() int { return e.muxer.NumFrames() }

// Add schedules img to appear at timestampMS. The previous image stays on
// screen until then.
func (e *AnimEncoder) Add(img image.Image, timestampMS int) error {
	if e.closed {
		return ErrClosed
	}
	if FrameEncoderFunc == nil {
		return ErrNoEncoder
	}
	if e.frames > 0 && timestampMS < e.lastTS {
		return fmt.Errorf("%w: %d after %d", ErrTimestamp, timestampMS, e.lastTS)
	}
	curr := e.fitCanvas(img)

	if e.frames == 0 {
		e.lastTS = timestampMS
		return e.addKeyframe(curr, nil)
	}
	if identical(e.prevCanvas, curr) {
		return nil
	}
	if err := e.finishPrevious(timestampMS); err != nil {
		return err
	}
	e.lastTS = timestampMS

	e.sinceKey++
	if e.opts.Kmax > 0 && e.sinceKey >= e.opts.Kmax {
		return e.addKeyframe(curr, nil)
	}
	return e.addSubFrame(curr)
}

// Close sets the last frame to end at endTimestampMS and writes the file.
func (e *AnimEncoder) Close(endTimestampMS int) error {
	if e.closed {
		return nil
	}
	e.closed = true
	if e.frames == 0 {
		return ErrNoFrames
	}
	if endTimestampMS < e.lastTS {
		return fmt.Errorf("%w: end %d before %d", ErrTimestamp, endTimestampMS, e.lastTS)
	}
	if err := e.finishPrevious(endTimestampMS); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := e.muxer.Assemble(&buf); err != nil {
		return err
	}
	_, err := e.w.Write(buf.Bytes())
	return err
}

// fitCanvas returns img as a canvas-sized NRGBA, anchored at the origin.
func (e *AnimEncoder) fitCanvas(img image.Image) *image.NRGBA {
	n := toNRGBA(img)
	if n.Rect.Dx() == e.width && n.Rect.Dy() == e.height {
		return n
	}
	full := image.NewNRGBA(image.Rect(0, 0, e.width, e.height))
	r := n.Rect.Intersect(full.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(full.Pix[full.PixOffset(0, y):full.PixOffset(r.Max.X, y)], n.Pix[n.PixOffset(0, y):])
	}
	return full
}

func (e *AnimEncoder) encode(img image.Image) ([]byte, error) {
	return FrameEncoderFunc(img, FrameConfig{
		Lossless: e.opts.Lossless,
		Quality:  e.opts.Quality,
		Method:   e.opts.Method,
	})
}

// finishPrevious gives the last committed frame its duration. Durations
// beyond the 24-bit ANMF limit are continued by transparent 1x1 frames.
func (e *AnimEncoder) finishPrevious(ts int) error {
	d := ts - e.lastTS
	for d > container.MaxDuration {
		e.muxer.SetFrameDuration(e.prevIndex, container.MaxDuration)
		d -= container.MaxDuration
		if e.filler == nil {
			bs, err := e.encode(image.NewNRGBA(image.Rect(0, 0, 1, 1)))
			if err != nil {
				return fmt.Errorf("animation: encoding filler frame: %w", err)
			}
			e.filler = bs
		}
		if err := e.muxer.AddFrame(e.filler, &mux.FrameOptions{BlendMode: mux.BlendAlpha}); err != nil {
			return err
		}
		e.prevIndex = e.muxer.NumFrames() - 1
		e.prevFiller = true
	}
	e.muxer.SetFrameDuration(e.prevIndex, d)
	return nil
}

// addKeyframe commits curr as a full-canvas frame. payload may carry an
// encoding of curr made earlier.
func (e *AnimEncoder) addKeyframe(curr *image.NRGBA, payload []byte) error {
	if payload == nil {
		var err error
		if payload, err = e.encode(curr); err != nil {
			return fmt.Errorf("animation: encoding keyframe: %w", err)
		}
	}
	e.sinceKey = 0
	return e.commit(payload, curr, curr.Rect, mux.BlendNone)
}

type subFrame struct {
	payload []byte
	rect    image.Rectangle
	blend   mux.BlendMode
	dispose mux.DisposeMode
}

// candidate encodes the part of curr that differs from base, the canvas
// the decoder will hold once the previous frame is disposed.
func (e *AnimEncoder) candidate(base, curr *image.NRGBA, dispose mux.DisposeMode) (subFrame, error) {
	rect := findChangedRect(base, curr)
	if rect.Empty() {
		rect = image.Rect(0, 0, 1, 1)
	}
	rect = snapToEven(rect).Intersect(curr.Rect)
	sf := subFrame{rect: rect, blend: mux.BlendNone, dispose: dispose}
	if blendingPossible(base, curr, rect, e.opts.Lossless, e.opts.Quality) {
		sf.blend = mux.BlendAlpha
	}
	var err error
	sf.payload, err = e.encode(extractSubImage(curr, rect))
	return sf, err
}

func (e *AnimEncoder) addSubFrame(curr *image.NRGBA) error {
	best, err := e.candidate(e.prevCanvas, curr, mux.DisposeNone)
	if err != nil {
		return fmt.Errorf("animation: encoding sub-frame: %w", err)
	}
	if e.opts.MinimizeSize && !e.prevFiller {
		base := cloneNRGBA(e.prevCanvas)
		fillRect(base, e.prevRect, color.NRGBA{})
		if bg, err := e.candidate(base, curr, mux.DisposeBackground); err == nil && len(bg.payload) < len(best.payload) {
			best = bg
		}
	}

	// A sub-frame covering most of the canvas may lose to a keyframe.
	if best.rect.Dx()*best.rect.Dy() > e.width*e.height*9/10 {
		if key, err := e.encode(curr); err == nil && len(key) < len(best.payload) {
			e.sinceKey = 0
			return e.commit(key, curr, curr.Rect, mux.BlendNone)
		}
	}

	if best.dispose == mux.DisposeBackground {
		e.muxer.SetFrameDisposeMode(e.prevIndex, mux.DisposeBackground)
	}
	return e.commit(best.payload, curr, best.rect, best.blend)
}

func (e *AnimEncoder) commit(payload []byte, curr *image.NRGBA, rect image.Rectangle, blend mux.BlendMode) error {
	if err := e.muxer.AddFrame(payload, &mux.FrameOptions{
		OffsetX:   rect.Min.X,
		OffsetY:   rect.Min.Y,
		BlendMode: blend,
	}); err != nil {
		return err
	}
	e.prevCanvas = cloneNRGBA(curr)
	e.prevRect = rect
	e.prevIndex = e.muxer.NumFrames() - 1
	e.prevFiller = false
	e.frames++
	return nil
}
