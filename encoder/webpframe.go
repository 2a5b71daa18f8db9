package encoder

import (
	"bytes"
	"image"

	"github.com/gen2brain/webp"

	"github.com/deepteams/photon/animation"
	"github.com/deepteams/photon/mux"
)

func init() {
	animation.FrameEncoderFunc = encodeWebPFrame
}

// encodeWebPFrame encodes img as a still WebP file and strips the
// container, leaving the VP8/VP8L (and ALPH) chunks an ANMF frame carries.
func encodeWebPFrame(img image.Image, cfg animation.FrameConfig) ([]byte, error) {
	var buf bytes.Buffer
	err := webp.Encode(&buf, img, webp.Options{
		Quality:  cfg.Quality,
		Lossless: cfg.Lossless,
		Method:   cfg.Method,
		Exact:    true,
	})
	if err != nil {
		return nil, err
	}
	payload, _, _, err := mux.ExtractImage(buf.Bytes())
	return payload, err
}
