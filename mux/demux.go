package mux

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/deepteams/photon/internal/container"
)

// BlendMode says how a frame is composited onto the canvas.
type BlendMode int

const (
	BlendAlpha BlendMode = 0
	BlendNone  BlendMode = 1
)

// DisposeMode says what happens to a frame's window after its duration.
type DisposeMode int

const (
	DisposeNone       DisposeMode = 0
	DisposeBackground DisposeMode = 1
)

// Format is the bitstream layout of a file.
type Format int

const (
	FormatUndefined Format = iota
	FormatLossy
	FormatLossless
	FormatExtended
)

func (f Format) String() string {
	switch f {
	case FormatLossy:
		return "VP8"
	case FormatLossless:
		return "VP8L"
	case FormatExtended:
		return "VP8X"
	default:
		return "undefined"
	}
}

// Features summarizes a parsed file.
type Features struct {
	Width        int
	Height       int
	HasAlpha     bool
	HasAnimation bool
	HasICC       bool
	HasEXIF      bool
	HasXMP       bool
	Format       Format
}

// FrameInfo is one frame of a file. A still image is a single frame at
// offset 0 with zero duration.
type FrameInfo struct {
	// Bitstream is the VP8 or VP8L chunk payload.
	Bitstream []byte
	// Alpha is the ALPH chunk payload of a lossy frame, if any.
	Alpha       []byte
	Width       int
	Height      int
	OffsetX     int
	OffsetY     int
	Duration    int // milliseconds
	HasAlpha    bool
	BlendMode   BlendMode
	DisposeMode DisposeMode
}

// Payload returns the frame in the form Muxer.AddFrame accepts: the
// bitstream, prefixed by an ALPH chunk when the frame has one.
func (fi *FrameInfo) Payload() []byte {
	if len(fi.Alpha) == 0 {
		return fi.Bitstream
	}
	buf := make([]byte, 0, paddedSize(len(fi.Alpha))+len(fi.Bitstream))
	buf = appendChunk(buf, container.FourCCALPH, fi.Alpha)
	return append(buf, fi.Bitstream...)
}

// Demuxer is a parsed WebP file. It aliases the input bytes.
type Demuxer struct {
	features  Features
	frames    []FrameInfo
	icc       []byte
	exif      []byte
	xmp       []byte
	bgColor   uint32
	loopCount int
}

const (
	maxMetadataSize = 100 << 20
	maxFrames       = 1 << 16
)

var (
	ErrInvalidRIFF      = errors.New("mux: not a valid WebP file (bad RIFF header)")
	ErrNoImage          = errors.New("mux: no image data found")
	ErrInvalidVP8X      = errors.New("mux: invalid VP8X chunk")
	ErrInvalidANIM      = errors.New("mux: invalid ANIM chunk")
	ErrInvalidANMF      = errors.New("mux: invalid ANMF chunk")
	ErrInvalidFrame     = errors.New("mux: invalid frame bitstream")
	ErrFrameOutRange    = errors.New("mux: frame index out of range")
	ErrMetadataTooLarge = errors.New("mux: metadata chunk too large")
	ErrTooManyFrames    = errors.New("mux: too many frames")
)

// NewDemuxer parses data. A RIFF size larger than data is tolerated; the
// file is read up to the end of data.
func NewDemuxer(data []byte) (*Demuxer, error) {
	if len(data) < container.RIFFHeaderSize ||
		binary.LittleEndian.Uint32(data[0:4]) != container.FourCCRIFF ||
		binary.LittleEndian.Uint32(data[8:12]) != container.FourCCWEBP {
		return nil, ErrInvalidRIFF
	}
	end := int(binary.LittleEndian.Uint32(data[4:8])) + 8
	if end > len(data) || end < container.RIFFHeaderSize {
		end = len(data)
	}
	body := data[container.RIFFHeaderSize:end]

	d := &Demuxer{}
	it := chunkIter{rest: body}
	first, ok := it.next()
	if !ok {
		return nil, ErrNoImage
	}
	switch first.id {
	case container.FourCCVP8, container.FourCCVP8L:
		fi, err := imageFrame(first.id, first.data, nil)
		if err != nil {
			return nil, err
		}
		d.frames = []FrameInfo{fi}
		d.features = Features{Width: fi.Width, Height: fi.Height, HasAlpha: fi.HasAlpha, Format: FormatLossy}
		if first.id == container.FourCCVP8L {
			d.features.Format = FormatLossless
		}
		return d, nil
	case container.FourCCVP8X:
		if err := d.parseExtended(first.data, &it); err != nil {
			return nil, err
		}
		return d, nil
	default:
		return nil, fmt.Errorf("mux: unknown first chunk %s", fourCCName(first.id))
	}
}

func (d *Demuxer) parseExtended(vp8x []byte, it *chunkIter) error {
	if len(vp8x) < container.VP8XChunkSize {
		return ErrInvalidVP8X
	}
	flags := vp8x[0]
	d.features = Features{
		Width:        container.GetLE24(vp8x[4:7]) + 1,
		Height:       container.GetLE24(vp8x[7:10]) + 1,
		HasAlpha:     flags&container.FlagAlpha != 0,
		HasAnimation: flags&container.FlagAnimation != 0,
		HasICC:       flags&container.FlagICCP != 0,
		HasEXIF:      flags&container.FlagEXIF != 0,
		HasXMP:       flags&container.FlagXMP != 0,
		Format:       FormatExtended,
	}

	var alpha []byte // ALPH of a still extended image
	for c, ok := it.next(); ok; c, ok = it.next() {
		switch c.id {
		case container.FourCCICCP, container.FourCCEXIF, container.FourCCXMP:
			if len(c.data) > maxMetadataSize {
				return fmt.Errorf("%w: %s chunk %d bytes", ErrMetadataTooLarge, fourCCName(c.id), len(c.data))
			}
			switch c.id {
			case container.FourCCICCP:
				d.icc = c.data
			case container.FourCCEXIF:
				d.exif = c.data
			default:
				d.xmp = c.data
			}
		case container.FourCCANIM:
			if len(c.data) < container.ANIMChunkSize {
				return ErrInvalidANIM
			}
			d.bgColor = binary.LittleEndian.Uint32(c.data[0:4])
			d.loopCount = int(binary.LittleEndian.Uint16(c.data[4:6]))
		case container.FourCCANMF:
			if len(d.frames) >= maxFrames {
				return fmt.Errorf("%w: exceeded limit of %d", ErrTooManyFrames, maxFrames)
			}
			fi, err := parseANMF(c.data)
			if err != nil {
				return err
			}
			d.frames = append(d.frames, fi)
		case container.FourCCALPH:
			alpha = c.data
		case container.FourCCVP8, container.FourCCVP8L:
			if d.features.HasAnimation || len(d.frames) > 0 {
				continue
			}
			fi, err := imageFrame(c.id, c.data, alpha)
			if err != nil {
				return err
			}
			d.frames = append(d.frames, fi)
		}
	}
	if len(d.frames) == 0 {
		return ErrNoImage
	}
	return nil
}

// imageFrame builds the frame of a still image from its bitstream chunk.
func imageFrame(id uint32, bitstream, alpha []byte) (FrameInfo, error) {
	fi := FrameInfo{Bitstream: bitstream}
	var err error
	if id == container.FourCCVP8L {
		fi.Width, fi.Height, fi.HasAlpha, err = parseVP8LDimensions(bitstream)
	} else {
		fi.Width, fi.Height, err = parseVP8Dimensions(bitstream)
		fi.Alpha = alpha
		fi.HasAlpha = len(alpha) > 0
	}
	return fi, err
}

func parseANMF(data []byte) (FrameInfo, error) {
	if len(data) < container.ANMFChunkSize {
		return FrameInfo{}, ErrInvalidANMF
	}
	fi := FrameInfo{
		OffsetX:  container.GetLE24(data[0:3]) * 2,
		OffsetY:  container.GetLE24(data[3:6]) * 2,
		Width:    container.GetLE24(data[6:9]) + 1,
		Height:   container.GetLE24(data[9:12]) + 1,
		Duration: container.GetLE24(data[12:15]),
	}
	if data[15]&0x01 != 0 {
		fi.DisposeMode = DisposeBackground
	}
	if data[15]&0x02 != 0 {
		fi.BlendMode = BlendNone
	}
	it := chunkIter{rest: data[container.ANMFChunkSize:]}
	for c, ok := it.next(); ok; c, ok = it.next() {
		switch c.id {
		case container.FourCCALPH:
			fi.Alpha = c.data
		case container.FourCCVP8, container.FourCCVP8L:
			fi.Bitstream = c.data
		}
	}
	if fi.Bitstream == nil {
		return FrameInfo{}, fmt.Errorf("%w: frame without bitstream", ErrInvalidANMF)
	}
	fi.HasAlpha = len(fi.Alpha) > 0 || vp8lHasAlpha(fi.Bitstream)
	return fi, nil
}

// Features returns the file summary.
func (d *Demuxer) Features() Features { return d.features }

// NumFrames returns the number of frames.
func (d *Demuxer) NumFrames() int { return len(d.frames) }

// Frame returns frame i.
func (d *Demuxer) Frame(i int) (*FrameInfo, error) {
	if i < 0 || i >= len(d.frames) {
		return nil, ErrFrameOutRange
	}
	fi := d.frames[i]
	return &fi, nil
}

// ICCProfile returns the ICCP payload or nil.
func (d *Demuxer) ICCProfile() []byte { return d.icc }

// EXIF returns the EXIF payload or nil.
func (d *Demuxer) EXIF() []byte { return d.exif }

// XMP returns the XMP payload or nil.
func (d *Demuxer) XMP() []byte { return d.xmp }

// LoopCount returns the ANIM loop count, 0 meaning forever.
func (d *Demuxer) LoopCount() int { return d.loopCount }

// BackgroundColor returns the ANIM background color as ARGB.
func (d *Demuxer) BackgroundColor() uint32 { return d.bgColor }

func parseVP8Dimensions(data []byte) (int, int, error) {
	if len(data) < 10 ||
		data[3] != container.VP8StartCode0 ||
		data[4] != container.VP8StartCode1 ||
		data[5] != container.VP8StartCode2 {
		return 0, 0, ErrInvalidFrame
	}
	w := int(binary.LittleEndian.Uint16(data[6:8])) & 0x3fff
	h := int(binary.LittleEndian.Uint16(data[8:10])) & 0x3fff
	return w, h, nil
}

func parseVP8LDimensions(data []byte) (int, int, bool, error) {
	if len(data) < 5 || data[0] != container.VP8LMagicByte {
		return 0, 0, false, ErrInvalidFrame
	}
	bits := binary.LittleEndian.Uint32(data[1:5])
	w := int(bits&0x3fff) + 1
	h := int(bits>>14&0x3fff) + 1
	return w, h, bits>>28&1 != 0, nil
}

func vp8lHasAlpha(data []byte) bool {
	_, _, alpha, err := parseVP8LDimensions(data)
	return err == nil && alpha
}
