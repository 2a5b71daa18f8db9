package animation

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/deepteams/photon/mux"
)

// Animation holds the frames and global parameters of an animated WebP file.
type Animation struct {
	Frames []Frame

	// LoopCount is the ANIM loop count; 0 loops forever.
	LoopCount       int
	BackgroundColor color.NRGBA
	CanvasWidth     int
	CanvasHeight    int

	ICC  []byte
	EXIF []byte
	XMP  []byte
}

// FrameConfig carries the per-frame encoder settings.
type FrameConfig struct {
	Lossless bool
	Quality  int // 0-100
	Method   int // 0-6, speed/size trade-off
}

// FrameDecoderFunc decodes one frame payload (bitstream with optional ALPH
// chunk). It is installed by the decoder package.
var FrameDecoderFunc func(payload []byte) (*image.NRGBA, error)

// FrameEncoderFunc encodes an image into a frame payload. It is installed by
// the encoder package.
var FrameEncoderFunc func(img image.Image, cfg FrameConfig) ([]byte, error)

var (
	ErrNoFrames   = errors.New("animation: no frames")
	ErrCanvasSize = errors.New("animation: invalid canvas dimensions")
	ErrNoDecoder  = errors.New("animation: no frame decoder available")
	ErrNoEncoder  = errors.New("animation: no frame encoder available")
	ErrTimestamp  = errors.New("animation: timestamps must not decrease")
	ErrClosed     = errors.New("animation: encoder is closed")
)

// Parse reads the container structure of data. Frame pixels are decoded
// lazily by AnimDecoder.
func Parse(data []byte) (*Animation, error) {
	dmx, err := mux.NewDemuxer(data)
	if err != nil {
		return nil, err
	}
	feat := dmx.Features()
	if feat.Width <= 0 || feat.Height <= 0 {
		return nil, ErrCanvasSize
	}
	anim := &Animation{
		CanvasWidth:     feat.Width,
		CanvasHeight:    feat.Height,
		LoopCount:       dmx.LoopCount(),
		BackgroundColor: argbToNRGBA(dmx.BackgroundColor()),
		ICC:             dmx.ICCProfile(),
		EXIF:            dmx.EXIF(),
		XMP:             dmx.XMP(),
		Frames:          make([]Frame, dmx.NumFrames()),
	}
	for i := range anim.Frames {
		fi, err := dmx.Frame(i)
		if err != nil {
			return nil, err
		}
		anim.Frames[i] = Frame{
			Payload:  fi.Payload(),
			Duration: fi.Duration,
			OffsetX:  fi.OffsetX,
			OffsetY:  fi.OffsetY,
			Width:    fi.Width,
			Height:   fi.Height,
			Dispose:  DisposeMethod(fi.DisposeMode),
			Blend:    BlendMethod(fi.BlendMode),
			HasAlpha: fi.HasAlpha,
		}
	}
	if len(anim.Frames) == 0 {
		return nil, ErrNoFrames
	}
	return anim, nil
}

// TotalDuration returns the sum of all frame durations in milliseconds.
func (a *Animation) TotalDuration() int {
	total := 0
	for i := range a.Frames {
		total += a.Frames[i].Duration
	}
	return total
}

// DecodeFrame decodes frame i in place unless it already holds pixels.
func (a *Animation) DecodeFrame(i int) error {
	f := &a.Frames[i]
	if f.Image != nil {
		return nil
	}
	if FrameDecoderFunc == nil {
		return ErrNoDecoder
	}
	img, err := FrameDecoderFunc(f.Payload)
	if err != nil {
		return fmt.Errorf("animation: decoding frame %d: %w", i, err)
	}
	if b := img.Bounds(); b.Dx() != f.Width || b.Dy() != f.Height {
		return fmt.Errorf("animation: frame %d decoded to %dx%d, header says %dx%d",
			i, b.Dx(), b.Dy(), f.Width, f.Height)
	}
	f.Image = toNRGBA(img)
	return nil
}

// ReleaseFrame drops the decoded pixels of frame i.
func (a *Animation) ReleaseFrame(i int) {
	a.Frames[i].Image = nil
}
