package encoder

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/deepteams/photon/animation"
	"github.com/deepteams/photon/frame"
)

func TestWebPFullFrame_Timestamps(t *testing.T) {
	withFakeCodec(t)
	var buf bytes.Buffer
	enc := NewWebPFullFrame(&buf, Config{Format: FormatWebP}, WithLogger(zaptest.NewLogger(t)))

	red := canvasFrame(solidFrame(0, 0, 6, 6, 0, 0, 255, 255), 100)
	red.Loops = 2
	same := canvasFrame(solidFrame(0, 0, 6, 6, 0, 0, 255, 255), 50)
	blue := canvasFrame(solidFrame(0, 0, 6, 6, 255, 0, 0, 255), 70)
	for _, f := range []*frame.Frame{red, delayOnly(30), same, blue, frame.New()} {
		require.NoError(t, enc.AddFrame(f))
	}
	assert.Zero(t, buf.Len())
	require.NoError(t, enc.Finalize())

	anim, err := animation.Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 6, anim.CanvasWidth)
	assert.Equal(t, 6, anim.CanvasHeight)
	assert.Equal(t, 2, anim.LoopCount)
	require.Len(t, anim.Frames, 2, "identical frames merge")
	assert.Equal(t, 180, anim.Frames[0].Duration)
	assert.Equal(t, 70, anim.Frames[1].Duration)
	assert.Equal(t, 250, anim.TotalDuration())
}

func TestWebPFullFrame_Options(t *testing.T) {
	tests := []struct {
		name    string
		options map[string]string
		want    animation.FrameConfig
	}{
		{"defaults", nil, animation.FrameConfig{Quality: 70, Method: 1}},
		{"minimize_size", map[string]string{"webp:minimize_size": "true"}, animation.FrameConfig{Quality: 70, Method: 4}},
		{"encoding_effort", map[string]string{"webp:encoding_effort": "5"}, animation.FrameConfig{Quality: 70, Method: 5}},
		{"method", map[string]string{"webp:method": "3"}, animation.FrameConfig{Quality: 70, Method: 3}},
		{"invalid_effort_ignored", map[string]string{"webp:encoding_effort": "9"}, animation.FrameConfig{Quality: 70, Method: 1}},
		{"lossless", map[string]string{"webp:lossless": "true", "webp:lossless_effort": "10"}, animation.FrameConfig{Lossless: true, Quality: 10, Method: 1}},
		{"invalid_lossless_effort", map[string]string{"webp:lossless": "true", "webp:lossless_effort": "x"}, animation.FrameConfig{Lossless: true, Quality: 35, Method: 1}},
		{"invalid_method", map[string]string{"webp:method": "fast"}, animation.FrameConfig{Quality: 70, Method: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec := withFakeCodec(t)
			enc := NewWebPFullFrame(&bytes.Buffer{}, Config{Format: FormatWebP, Quality: 70, Options: tt.options})
			require.NoError(t, enc.AddFrame(canvasFrame(solidFrame(0, 0, 2, 2, 0, 0, 0, 255), 10)))
			require.NotEmpty(t, codec.configs)
			assert.Equal(t, tt.want, codec.configs[0])
		})
	}
}

func TestWebPFullFrame_Errors(t *testing.T) {
	withFakeCodec(t)

	err := NewWebPFullFrame(&bytes.Buffer{}, Config{Format: FormatAVIF}).AddFrame(solidFrame(0, 0, 1, 1, 0, 0, 0, 255))
	require.ErrorIs(t, err, ErrWrongFormat)

	require.ErrorIs(t, NewWebPFullFrame(&bytes.Buffer{}, Config{Format: FormatWebP}).Finalize(), ErrUninitialized)
}
