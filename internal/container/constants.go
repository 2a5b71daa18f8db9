// Package container holds the WebP RIFF layout constants shared by the muxer
// and demuxer.
package container

// FourCC packs four ASCII bytes into a little-endian chunk identifier.
func FourCC(a, b, c, d byte) uint32 {
	return uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24
}

var (
	FourCCRIFF = FourCC('R', 'I', 'F', 'F')
	FourCCWEBP = FourCC('W', 'E', 'B', 'P')
	FourCCVP8  = FourCC('V', 'P', '8', ' ')
	FourCCVP8L = FourCC('V', 'P', '8', 'L')
	FourCCVP8X = FourCC('V', 'P', '8', 'X')
	FourCCALPH = FourCC('A', 'L', 'P', 'H')
	FourCCANIM = FourCC('A', 'N', 'I', 'M')
	FourCCANMF = FourCC('A', 'N', 'M', 'F')
	FourCCICCP = FourCC('I', 'C', 'C', 'P')
	FourCCEXIF = FourCC('E', 'X', 'I', 'F')
	FourCCXMP  = FourCC('X', 'M', 'P', ' ')
)

// Bitstream signatures.
const (
	VP8StartCode0 = 0x9d
	VP8StartCode1 = 0x01
	VP8StartCode2 = 0x2a
	VP8LMagicByte = 0x2f
)

// Fixed sizes of the container structures, in bytes.
const (
	ChunkHeaderSize = 8
	RIFFHeaderSize  = 12
	VP8XChunkSize   = 10
	ANIMChunkSize   = 6
	ANMFChunkSize   = 16
)

// VP8X feature flags.
const (
	FlagAnimation = 1 << 1
	FlagXMP       = 1 << 2
	FlagEXIF      = 1 << 3
	FlagAlpha     = 1 << 4
	FlagICCP      = 1 << 5
)

// Limits imposed by the 24-bit and 16-bit header fields.
const (
	MaxCanvasSize   = 1 << 24
	MaxDuration     = 1<<24 - 1
	MaxLoopCount    = 1<<16 - 1
	MaxChunkPayload = ^uint32(0) - ChunkHeaderSize - 1
)

// GetLE24 reads a 24-bit little-endian value.
func GetLE24(b []byte) int {
	return int(b[0]) | int(b[1])<<8 | int(b[2])<<16
}

// PutLE24 writes v as a 24-bit little-endian value.
func PutLE24(b []byte, v int) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
}
