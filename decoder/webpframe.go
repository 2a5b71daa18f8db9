package decoder

import (
	"bytes"
	"image"

	"golang.org/x/image/draw"
	xwebp "golang.org/x/image/webp"

	"github.com/deepteams/photon/animation"
	"github.com/deepteams/photon/mux"
)

func init() {
	animation.FrameDecoderFunc = decodeWebPFrame
}

// decodeWebPFrame decodes one ANMF payload by wrapping it into a still file
// for golang.org/x/image/webp.
func decodeWebPFrame(payload []byte) (*image.NRGBA, error) {
	still, err := mux.WrapStill(payload)
	if err != nil {
		return nil, err
	}
	img, err := xwebp.Decode(bytes.NewReader(still))
	if err != nil {
		return nil, err
	}
	if n, ok := img.(*image.NRGBA); ok {
		return n, nil
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(n, n.Rect, img, b.Min, draw.Src)
	return n, nil
}

func isAnimatedWebP(data []byte) bool {
	dmx, err := mux.NewDemuxer(data)
	return err == nil && dmx.Features().HasAnimation
}
