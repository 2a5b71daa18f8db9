package mux

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/deepteams/photon/internal/container"
)

// FrameOptions places a frame on the canvas. Offsets must be even.
type FrameOptions struct {
	Duration    int // milliseconds
	OffsetX     int
	OffsetY     int
	BlendMode   BlendMode
	DisposeMode DisposeMode
}

type muxFrame struct {
	payload []byte // bitstream, optionally behind an ALPH chunk
	opts    FrameOptions
	width   int
	height  int
}

// Muxer assembles a WebP file from encoded frames.
type Muxer struct {
	frames       []muxFrame
	icc          []byte
	exif         []byte
	xmp          []byte
	bgColor      uint32
	loopCount    int
	canvasWidth  int
	canvasHeight int
	animated     bool
}

var (
	ErrNoFrames      = errors.New("mux: no frames to assemble")
	ErrFrameEmpty    = errors.New("mux: frame data is empty")
	ErrOddOffset     = errors.New("mux: frame offsets must be even")
	ErrMuxValidation = errors.New("mux: validation failed")
)

// NewMuxer returns an empty Muxer.
func NewMuxer() *Muxer {
	return &Muxer{}
}

func (m *Muxer) SetICCProfile(data []byte) { m.icc = data }
func (m *Muxer) SetEXIF(data []byte)       { m.exif = data }
func (m *Muxer) SetXMP(data []byte)        { m.xmp = data }

// SetBackgroundColor sets the ANIM background color as ARGB.
func (m *Muxer) SetBackgroundColor(argb uint32) { m.bgColor = argb }

// SetLoopCount sets the ANIM loop count. 0 loops forever; values that do
// not fit 16 bits are clamped.
func (m *Muxer) SetLoopCount(n int) {
	m.loopCount = min(max(n, 0), container.MaxLoopCount)
}

// SetCanvasSize fixes the canvas. Without it the canvas is the union of the
// frame windows.
func (m *Muxer) SetCanvasSize(width, height int) {
	m.canvasWidth, m.canvasHeight = width, height
}

// SetAnimated forces the animated layout even for a single frame.
func (m *Muxer) SetAnimated(animated bool) { m.animated = animated }

// AddFrame appends an encoded frame. payload is a VP8 or VP8L bitstream,
// optionally preceded by an ALPH chunk, as returned by ExtractImage.
func (m *Muxer) AddFrame(payload []byte, opts *FrameOptions) error {
	if len(payload) == 0 {
		return ErrFrameEmpty
	}
	var fo FrameOptions
	if opts != nil {
		fo = *opts
	}
	if fo.OffsetX%2 != 0 || fo.OffsetY%2 != 0 {
		return fmt.Errorf("%w: (%d, %d)", ErrOddOffset, fo.OffsetX, fo.OffsetY)
	}
	if fo.OffsetX < 0 || fo.OffsetY < 0 {
		return fmt.Errorf("%w: negative offset (%d, %d)", ErrMuxValidation, fo.OffsetX, fo.OffsetY)
	}
	fo.Duration = min(max(fo.Duration, 0), container.MaxDuration)
	w, h, err := payloadDimensions(payload)
	if err != nil {
		return err
	}
	m.frames = append(m.frames, muxFrame{payload: payload, opts: fo, width: w, height: h})
	return nil
}

// NumFrames returns the number of frames added so far.
func (m *Muxer) NumFrames() int { return len(m.frames) }

// FrameDuration returns the duration of frame i, or 0 when out of range.
func (m *Muxer) FrameDuration(i int) int {
	if i < 0 || i >= len(m.frames) {
		return 0
	}
	return m.frames[i].opts.Duration
}

// SetFrameDuration changes the duration of an added frame.
func (m *Muxer) SetFrameDuration(i, ms int) {
	if i >= 0 && i < len(m.frames) {
		m.frames[i].opts.Duration = min(max(ms, 0), container.MaxDuration)
	}
}

// SetFrameDisposeMode changes the dispose mode of an added frame.
func (m *Muxer) SetFrameDisposeMode(i int, mode DisposeMode) {
	if i >= 0 && i < len(m.frames) {
		m.frames[i].opts.DisposeMode = mode
	}
}

func (m *Muxer) isAnimated() bool {
	if m.animated || len(m.frames) > 1 {
		return true
	}
	for _, f := range m.frames {
		cw, ch := m.canvasSize()
		if f.opts.Duration > 0 || f.opts.OffsetX != 0 || f.opts.OffsetY != 0 ||
			f.width != cw || f.height != ch {
			return true
		}
	}
	return false
}

func (m *Muxer) needsVP8X() bool {
	if m.isAnimated() || m.icc != nil || m.exif != nil || m.xmp != nil {
		return true
	}
	for _, f := range m.frames {
		if alpha, _ := splitAlpha(f.payload); alpha != nil {
			return true
		}
	}
	return false
}

func (m *Muxer) canvasSize() (int, int) {
	if m.canvasWidth > 0 && m.canvasHeight > 0 {
		return m.canvasWidth, m.canvasHeight
	}
	w, h := 1, 1
	for _, f := range m.frames {
		w = max(w, f.opts.OffsetX+f.width)
		h = max(h, f.opts.OffsetY+f.height)
	}
	return w, h
}

func (m *Muxer) validate() error {
	if len(m.frames) == 0 {
		return ErrNoFrames
	}
	cw, ch := m.canvasSize()
	if cw > container.MaxCanvasSize || ch > container.MaxCanvasSize {
		return fmt.Errorf("%w: canvas %dx%d too large", ErrMuxValidation, cw, ch)
	}
	for i, f := range m.frames {
		if f.opts.OffsetX+f.width > cw || f.opts.OffsetY+f.height > ch {
			return fmt.Errorf("%w: frame %d (%dx%d at %d,%d) exceeds canvas (%dx%d)",
				ErrMuxValidation, i, f.width, f.height, f.opts.OffsetX, f.opts.OffsetY, cw, ch)
		}
	}
	return nil
}

// Assemble writes the file to w.
func (m *Muxer) Assemble(w io.Writer) error {
	if err := m.validate(); err != nil {
		return err
	}
	var body []byte
	if m.needsVP8X() {
		body = m.appendExtended(nil)
	} else {
		_, bs := splitAlpha(m.frames[0].payload)
		body = appendChunk(nil, bitstreamID(bs), bs)
	}
	var hdr [container.RIFFHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], container.FourCCRIFF)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(4+len(body)))
	binary.LittleEndian.PutUint32(hdr[8:12], container.FourCCWEBP)
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func (m *Muxer) appendExtended(buf []byte) []byte {
	animated := m.isAnimated()
	var flags byte
	if animated {
		flags |= container.FlagAnimation
	}
	if m.icc != nil {
		flags |= container.FlagICCP
	}
	if m.exif != nil {
		flags |= container.FlagEXIF
	}
	if m.xmp != nil {
		flags |= container.FlagXMP
	}
	for _, f := range m.frames {
		alpha, bs := splitAlpha(f.payload)
		if alpha != nil || vp8lHasAlpha(bs) {
			flags |= container.FlagAlpha
			break
		}
	}

	cw, ch := m.canvasSize()
	var vp8x [container.VP8XChunkSize]byte
	vp8x[0] = flags
	container.PutLE24(vp8x[4:7], cw-1)
	container.PutLE24(vp8x[7:10], ch-1)
	buf = appendChunk(buf, container.FourCCVP8X, vp8x[:])

	if m.icc != nil {
		buf = appendChunk(buf, container.FourCCICCP, m.icc)
	}
	if animated {
		var anim [container.ANIMChunkSize]byte
		binary.LittleEndian.PutUint32(anim[0:4], m.bgColor)
		binary.LittleEndian.PutUint16(anim[4:6], uint16(m.loopCount))
		buf = appendChunk(buf, container.FourCCANIM, anim[:])
		for _, f := range m.frames {
			buf = appendChunk(buf, container.FourCCANMF, anmfPayload(f))
		}
	} else {
		alpha, bs := splitAlpha(m.frames[0].payload)
		if alpha != nil {
			buf = appendChunk(buf, container.FourCCALPH, alpha)
		}
		buf = appendChunk(buf, bitstreamID(bs), bs)
	}
	if m.exif != nil {
		buf = appendChunk(buf, container.FourCCEXIF, m.exif)
	}
	if m.xmp != nil {
		buf = appendChunk(buf, container.FourCCXMP, m.xmp)
	}
	return buf
}

// anmfPayload lays out an ANMF chunk body: the 16-byte frame header followed
// by the optional ALPH chunk and the bitstream chunk.
func anmfPayload(f muxFrame) []byte {
	alpha, bs := splitAlpha(f.payload)
	buf := make([]byte, container.ANMFChunkSize, container.ANMFChunkSize+len(f.payload)+2*container.ChunkHeaderSize+2)
	container.PutLE24(buf[0:3], f.opts.OffsetX/2)
	container.PutLE24(buf[3:6], f.opts.OffsetY/2)
	container.PutLE24(buf[6:9], f.width-1)
	container.PutLE24(buf[9:12], f.height-1)
	container.PutLE24(buf[12:15], f.opts.Duration)
	if f.opts.DisposeMode == DisposeBackground {
		buf[15] |= 0x01
	}
	if f.opts.BlendMode == BlendNone {
		buf[15] |= 0x02
	}
	if alpha != nil {
		buf = appendChunk(buf, container.FourCCALPH, alpha)
	}
	return appendChunk(buf, bitstreamID(bs), bs)
}

// splitAlpha separates a leading ALPH chunk from the bitstream.
func splitAlpha(payload []byte) (alpha, bitstream []byte) {
	it := chunkIter{rest: payload}
	c, ok := it.next()
	if !ok || c.id != container.FourCCALPH {
		return nil, payload
	}
	return c.data, it.rest
}

func payloadDimensions(payload []byte) (int, int, error) {
	_, bs := splitAlpha(payload)
	if len(bs) > 0 && bs[0] == container.VP8LMagicByte {
		w, h, _, err := parseVP8LDimensions(bs)
		return w, h, err
	}
	return parseVP8Dimensions(bs)
}
