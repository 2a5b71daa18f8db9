package mux

import (
	"bytes"
	"fmt"
)

// ExtractImage returns the frame payload of a still WebP file in the form
// AddFrame accepts, together with its dimensions. Still-image encoders
// produce whole files; this turns their output into animation frames.
func ExtractImage(data []byte) (payload []byte, width, height int, err error) {
	d, err := NewDemuxer(data)
	if err != nil {
		return nil, 0, 0, err
	}
	if d.NumFrames() != 1 || d.Features().HasAnimation {
		return nil, 0, 0, fmt.Errorf("mux: expected a still image, got %d frames", d.NumFrames())
	}
	fi, _ := d.Frame(0)
	return fi.Payload(), fi.Width, fi.Height, nil
}

// WrapStill turns a frame payload back into a standalone still WebP file.
func WrapStill(payload []byte) ([]byte, error) {
	m := NewMuxer()
	if err := m.AddFrame(payload, nil); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := m.Assemble(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
