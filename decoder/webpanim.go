package decoder

import (
	"bytes"
	"errors"

	"go.uber.org/zap"

	"github.com/deepteams/photon/animation"
	"github.com/deepteams/photon/frame"
)

var errNotAnimated = errors.New("decoder: webp file is not animated")

// WebPAnim decodes animated WebP files into full-canvas BGRA frames. The
// animation package composites the ANMF frames; each NextFrame call
// advances one frame.
type WebPAnim struct {
	data []byte
	log  *zap.Logger

	anim   *animation.Animation
	dec    *animation.AnimDecoder
	lastTS int
	loaded bool
}

// NewWebPAnim opens data. Still WebP files are declined.
func NewWebPAnim(data []byte, opts ...Option) (*WebPAnim, error) {
	d := &WebPAnim{data: data, log: buildOptions(opts).log}
	if err := d.Reset(); err != nil {
		return nil, notLoaded(KindWebPAnim, err)
	}
	return d, nil
}

func (d *WebPAnim) Reset() error {
	anim, err := animation.Parse(d.data)
	if err == nil && !isAnimatedWebP(d.data) {
		err = errNotAnimated
	}
	if err != nil {
		d.loaded = false
		return err
	}
	d.anim = anim
	d.dec = animation.NewAnimDecoder(anim)
	d.lastTS = 0
	d.loaded = true
	return nil
}

func (d *WebPAnim) Loaded() bool { return d.loaded }

// NextFrame composites the next frame. Delay is the difference between
// consecutive end timestamps.
func (d *WebPAnim) NextFrame(dst *frame.Frame) bool {
	dst.Reset()
	if !d.loaded || !d.dec.HasNext() {
		return false
	}
	img, ts, err := d.dec.NextFrame()
	if err != nil {
		d.log.Debug("webp: decoding frame", zap.Error(err))
		return false
	}
	dst.Delay = ts - d.lastTS
	d.lastTS = ts
	dst.Pixels = frame.FromNRGBA(img)
	dst.CanvasWidth = d.anim.CanvasWidth
	dst.CanvasHeight = d.anim.CanvasHeight
	dst.Loops = d.anim.LoopCount
	dst.Disposal = frame.DisposalNone
	dst.Blending = frame.BlendingNoBlend
	dst.Empty = false
	return true
}

// ICCProfile returns the ICCP chunk.
func (d *WebPAnim) ICCProfile() ([]byte, bool) {
	if d.anim == nil || d.anim.ICC == nil {
		return nil, false
	}
	return bytes.Clone(d.anim.ICC), true
}

func (d *WebPAnim) Kind() Kind { return KindWebPAnim }
func (d *WebPAnim) sealed()    {}

// NumFrames returns the number of ANMF frames.
func (d *WebPAnim) NumFrames() int {
	if d.anim == nil {
		return 0
	}
	return len(d.anim.Frames)
}
