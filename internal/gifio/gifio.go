// Package gifio reads and writes GIF streams record by record.
//
// Unlike image/gif it exposes the container structure: extension blocks,
// image descriptors with their color tables and raw palette-index rows. This
// lets callers keep palettes, windows and disposal exactly as stored, and
// keep going past malformed records.
package gifio

import (
	"errors"
	"image/color"
)

// Block introducers.
const (
	sExtension       = 0x21
	sImageDescriptor = 0x2C
	sTrailer         = 0x3B
)

// Extension labels.
const (
	ExtPlainText      = 0x01
	ExtGraphicControl = 0xF9
	ExtComment        = 0xFE
	ExtApplication    = 0xFF
)

// Masks for the packed fields of descriptors.
const (
	fColorTable         = 1 << 7
	fInterlace          = 1 << 6
	fColorTableBitsMask = 7

	gcbTransparentFlag = 1 << 0
	gcbUserInputFlag   = 1 << 1
)

// Disposal codes stored in the graphic control extension.
const (
	DisposalUnspecified = 0
	DisposalDoNot       = 1
	DisposalBackground  = 2
	DisposalPrevious    = 3
)

// RecordType identifies the next top-level record of a stream.
type RecordType int

const (
	RecordUndefined RecordType = iota
	RecordImageDesc
	RecordExtension
	RecordTerminate
)

var (
	ErrBadHeader     = errors.New("gifio: not a GIF stream")
	ErrUnknownRecord = errors.New("gifio: unknown record type")
	ErrBadGCB        = errors.New("gifio: malformed graphic control extension")
	ErrNoImage       = errors.New("gifio: no image data in progress")
	ErrTooManyPixels = errors.New("gifio: too many pixels for image")
	ErrBadLitWidth   = errors.New("gifio: invalid LZW minimum code size")
)

// ImageDesc is an image descriptor with its optional local color table.
type ImageDesc struct {
	Left, Top     int
	Width, Height int
	Interlace     bool
	ColorMap      []color.RGBA
}

// GraphicsControl is the content of a graphic control extension.
type GraphicsControl struct {
	Disposal  int
	UserInput bool
	// Delay is in hundredths of a second.
	Delay int
	// TransparentIndex is -1 when no index is transparent.
	TransparentIndex int
}

// ParseGraphicsControl decodes the data of a graphic control extension
// sub-block into gcb. gcb is left untouched on error.
func ParseGraphicsControl(block []byte, gcb *GraphicsControl) error {
	if len(block) != 4 {
		return ErrBadGCB
	}
	flags := block[0]
	gcb.Disposal = int(flags>>2) & 7
	gcb.UserInput = flags&gcbUserInputFlag != 0
	gcb.Delay = int(block[1]) | int(block[2])<<8
	if flags&gcbTransparentFlag != 0 {
		gcb.TransparentIndex = int(block[3])
	} else {
		gcb.TransparentIndex = -1
	}
	return nil
}

// tableBits returns the number of bits needed to index a table of n
// entries, never less than 1.
func tableBits(n int) int {
	bits := 1
	for 1<<bits < n {
		bits++
	}
	return bits
}
