// Package mux reads and writes the WebP RIFF container.
//
// The Demuxer splits a file into frames (bitstream, alpha, window, timing
// and flags) plus animation parameters and metadata. The Muxer assembles
// per-frame bitstreams produced by a still-image encoder into a simple,
// extended or animated file.
package mux

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/deepteams/photon/internal/container"
)

var (
	ErrChunkTooLarge  = errors.New("mux: chunk payload exceeds container limits")
	ErrTruncatedChunk = errors.New("mux: truncated chunk")
)

// chunk is one RIFF chunk. data aliases the parsed input.
type chunk struct {
	id   uint32
	data []byte
}

func fourCCName(id uint32) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], id)
	return string(b[:])
}

// chunkIter walks consecutive chunks of a RIFF body, skipping pad bytes.
// Iteration ends at the end of the input or at the first chunk that does
// not fit, which is then reported by err.
type chunkIter struct {
	rest []byte
	err  error
}

func (it *chunkIter) next() (chunk, bool) {
	if len(it.rest) < container.ChunkHeaderSize {
		return chunk{}, false
	}
	id := binary.LittleEndian.Uint32(it.rest)
	size := binary.LittleEndian.Uint32(it.rest[4:])
	if size > container.MaxChunkPayload {
		it.err = fmt.Errorf("%w: %s", ErrChunkTooLarge, fourCCName(id))
		return chunk{}, false
	}
	end := container.ChunkHeaderSize + int(size)
	if end > len(it.rest) {
		it.err = fmt.Errorf("%w: %s needs %d bytes, %d left", ErrTruncatedChunk, fourCCName(id), end, len(it.rest))
		return chunk{}, false
	}
	c := chunk{id: id, data: it.rest[container.ChunkHeaderSize:end]}
	it.rest = it.rest[min(end+int(size&1), len(it.rest)):]
	return c, true
}

// paddedSize is the space a chunk with an n byte payload occupies.
func paddedSize(n int) int {
	return container.ChunkHeaderSize + n + n&1
}

// appendChunk appends a chunk with its padding byte to buf.
func appendChunk(buf []byte, id uint32, data []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, id)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	if len(data)&1 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// bitstreamID returns the chunk id a still bitstream is stored under.
func bitstreamID(bs []byte) uint32 {
	if len(bs) > 0 && bs[0] == container.VP8LMagicByte {
		return container.FourCCVP8L
	}
	return container.FourCCVP8
}
