package decoder

import (
	"bytes"
	"errors"
	"image"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/heic"
	"go.uber.org/zap"

	"github.com/deepteams/photon/frame"
)

var errNotHEIF = errors.New("decoder: no HEIF or AVIF brand in ftyp box")

// HEIF decodes the primary image of HEIF and AVIF files. AVIF brands go
// through github.com/gen2brain/avif, everything else through
// github.com/gen2brain/heic.
type HEIF struct {
	data   []byte
	log    *zap.Logger
	pixels *frame.Pixels
	icc    []byte
	loaded bool
}

// NewHEIF opens data.
func NewHEIF(data []byte, opts ...Option) (*HEIF, error) {
	d := &HEIF{data: data, log: buildOptions(opts).log}
	if err := d.Reset(); err != nil {
		return nil, notLoaded(KindHEIF, err)
	}
	return d, nil
}

// Reset decodes the image again.
func (d *HEIF) Reset() error {
	d.loaded = false
	d.pixels, d.icc = nil, nil
	if !isHEIF(d.data) {
		return errNotHEIF
	}
	var (
		img image.Image
		err error
	)
	if isAVIF(d.data) {
		img, err = avif.Decode(bytes.NewReader(d.data))
	} else {
		img, err = heic.Decode(bytes.NewReader(d.data))
	}
	if err != nil {
		return err
	}
	px := frame.FromImage(img)
	if px.Channels < 3 {
		px = px.WithChannels(px.Channels + 2)
	}
	d.pixels = px
	d.icc = heifICC(d.data)
	d.loaded = true
	d.log.Debug("heif image decoded",
		zap.Bool("avif", isAVIF(d.data)),
		zap.Int("width", px.Width),
		zap.Int("height", px.Height),
		zap.Int("icc_bytes", len(d.icc)))
	return nil
}

func (d *HEIF) Loaded() bool { return d.loaded }

// NextFrame hands out the decoded image once.
func (d *HEIF) NextFrame(dst *frame.Frame) bool {
	dst.Reset()
	return stillFrame(dst, &d.pixels)
}

// ICCProfile returns a copy of the colr profile.
func (d *HEIF) ICCProfile() ([]byte, bool) {
	if len(d.icc) == 0 {
		return nil, false
	}
	return bytes.Clone(d.icc), true
}

func (d *HEIF) Kind() Kind { return KindHEIF }
func (d *HEIF) sealed()    {}
