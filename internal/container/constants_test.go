package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFourCC(t *testing.T) {
	assert.Equal(t, uint32(0x46464952), FourCCRIFF)
	assert.Equal(t, "VP8L", string([]byte{
		byte(FourCCVP8L), byte(FourCCVP8L >> 8), byte(FourCCVP8L >> 16), byte(FourCCVP8L >> 24),
	}))
}

func TestLE24(t *testing.T) {
	tests := []int{0, 1, 0xff, 0x1234, MaxDuration}
	for _, v := range tests {
		var b [3]byte
		PutLE24(b[:], v)
		assert.Equal(t, v, GetLE24(b[:]), "value %#x", v)
	}
	var b [3]byte
	PutLE24(b[:], 0x010203)
	assert.Equal(t, [3]byte{3, 2, 1}, b)
}
