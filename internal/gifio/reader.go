package gifio

import (
	"bytes"
	"compress/lzw"
	"errors"
	"fmt"
	"image/color"
	"io"
)

// blockReader exposes a run of data sub-blocks as a byte stream. It stops at
// the zero-length terminator, which it consumes.
type blockReader struct {
	r    *bytes.Reader
	n    int // bytes left in the current sub-block
	done bool
	err  error
}

func (b *blockReader) next() bool {
	if b.done || b.err != nil {
		return false
	}
	c, err := b.r.ReadByte()
	if err != nil {
		b.err = io.ErrUnexpectedEOF
		return false
	}
	if c == 0 {
		b.done = true
		return false
	}
	b.n = int(c)
	return true
}

func (b *blockReader) ReadByte() (byte, error) {
	for b.n == 0 {
		if !b.next() {
			if b.err != nil {
				return 0, b.err
			}
			return 0, io.EOF
		}
	}
	c, err := b.r.ReadByte()
	if err != nil {
		b.err = io.ErrUnexpectedEOF
		return 0, b.err
	}
	b.n--
	return c, nil
}

func (b *blockReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, b.err
	}
	for b.n == 0 {
		if !b.next() {
			if b.err != nil {
				return 0, b.err
			}
			return 0, io.EOF
		}
	}
	if len(p) > b.n {
		p = p[:b.n]
	}
	n, err := b.r.Read(p)
	b.n -= n
	if err != nil {
		b.err = io.ErrUnexpectedEOF
	}
	return n, b.err
}

// drain skips the remaining sub-blocks up to and including the terminator.
func (b *blockReader) drain() error {
	for {
		if b.n > 0 {
			if _, err := b.r.Seek(int64(b.n), io.SeekCurrent); err != nil {
				return err
			}
			b.n = 0
		}
		if !b.next() {
			return b.err
		}
	}
}

// Reader walks the records of a GIF stream held in memory.
type Reader struct {
	r *bytes.Reader

	Width, Height   int
	ColorResolution int
	BackgroundIndex int
	// GlobalColorMap is nil when the stream has no global color table.
	GlobalColorMap []color.RGBA

	// Image data state between ImageDesc and the next record.
	blocks    *blockReader
	decomp    io.ReadCloser
	remaining int
}

// NewReader parses the header and logical screen descriptor. data is
// borrowed, not copied.
func NewReader(data []byte) (*Reader, error) {
	d := &Reader{r: bytes.NewReader(data)}
	var hdr [13]byte
	if _, err := io.ReadFull(d.r, hdr[:]); err != nil {
		return nil, ErrBadHeader
	}
	if v := string(hdr[:6]); v != "GIF87a" && v != "GIF89a" {
		return nil, ErrBadHeader
	}
	d.Width = int(hdr[6]) | int(hdr[7])<<8
	d.Height = int(hdr[8]) | int(hdr[9])<<8
	flags := hdr[10]
	d.ColorResolution = int(flags>>4)&7 + 1
	d.BackgroundIndex = int(hdr[11])
	if flags&fColorTable != 0 {
		cm, err := d.readColorMap(flags)
		if err != nil {
			return nil, fmt.Errorf("gifio: reading global color table: %w", err)
		}
		d.GlobalColorMap = cm
	}
	return d, nil
}

func (d *Reader) readColorMap(flags byte) ([]color.RGBA, error) {
	n := 1 << (1 + uint(flags&fColorTableBitsMask))
	buf := make([]byte, 3*n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	cm := make([]color.RGBA, n)
	for i := range cm {
		cm[i] = color.RGBA{R: buf[3*i], G: buf[3*i+1], B: buf[3*i+2], A: 0xff}
	}
	return cm, nil
}

// Offset returns the current read position.
func (d *Reader) Offset() int64 {
	return d.r.Size() - int64(d.r.Len())
}

// Seek moves to an offset previously returned by Offset, abandoning any image
// data in progress.
func (d *Reader) Seek(off int64) error {
	d.endImage()
	_, err := d.r.Seek(off, io.SeekStart)
	return err
}

func (d *Reader) endImage() error {
	if d.blocks == nil {
		return nil
	}
	if d.decomp != nil {
		d.decomp.Close()
	}
	err := d.blocks.drain()
	d.blocks, d.decomp, d.remaining = nil, nil, 0
	return err
}

// RecordType reads the introducer of the next record. Unread image data of
// the previous image descriptor is skipped first.
func (d *Reader) RecordType() (RecordType, error) {
	if err := d.endImage(); err != nil {
		return RecordUndefined, err
	}
	c, err := d.r.ReadByte()
	if err != nil {
		return RecordUndefined, io.ErrUnexpectedEOF
	}
	switch c {
	case sExtension:
		return RecordExtension, nil
	case sImageDescriptor:
		return RecordImageDesc, nil
	case sTrailer:
		return RecordTerminate, nil
	default:
		return RecordUndefined, fmt.Errorf("%w: 0x%02x", ErrUnknownRecord, c)
	}
}

// Extension reads an extension label and its first data sub-block. data is
// nil when the extension has no sub-blocks. Remaining sub-blocks are read
// with ExtensionNext.
func (d *Reader) Extension() (code byte, data []byte, err error) {
	code, err = d.r.ReadByte()
	if err != nil {
		return 0, nil, io.ErrUnexpectedEOF
	}
	data, err = d.ExtensionNext()
	return code, data, err
}

// ExtensionNext returns the next data sub-block of the current extension, or
// nil after the terminator.
func (d *Reader) ExtensionNext() ([]byte, error) {
	n, err := d.r.ReadByte()
	if err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	return buf, nil
}

// SkipExtension discards the remaining sub-blocks of the current extension.
func (d *Reader) SkipExtension() error {
	for {
		b, err := d.ExtensionNext()
		if err != nil || b == nil {
			return err
		}
	}
}

// ImageDesc reads an image descriptor and prepares its pixel data for Line.
func (d *Reader) ImageDesc() (ImageDesc, error) {
	var buf [9]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return ImageDesc{}, io.ErrUnexpectedEOF
	}
	desc := ImageDesc{
		Left:      int(buf[0]) | int(buf[1])<<8,
		Top:       int(buf[2]) | int(buf[3])<<8,
		Width:     int(buf[4]) | int(buf[5])<<8,
		Height:    int(buf[6]) | int(buf[7])<<8,
		Interlace: buf[8]&fInterlace != 0,
	}
	if buf[8]&fColorTable != 0 {
		cm, err := d.readColorMap(buf[8])
		if err != nil {
			return ImageDesc{}, fmt.Errorf("gifio: reading local color table: %w", err)
		}
		desc.ColorMap = cm
	}
	litWidth, err := d.r.ReadByte()
	if err != nil {
		return ImageDesc{}, io.ErrUnexpectedEOF
	}
	d.blocks = &blockReader{r: d.r}
	if litWidth < 2 || litWidth > 8 {
		return desc, fmt.Errorf("%w: %d", ErrBadLitWidth, litWidth)
	}
	d.decomp = lzw.NewReader(d.blocks, lzw.LSB, int(litWidth))
	d.remaining = desc.Width * desc.Height
	return desc, nil
}

// Line decodes the next len(dst) palette indices of the current image.
// Rows come in stored order; deinterlacing is up to the caller.
func (d *Reader) Line(dst []byte) error {
	if d.decomp == nil {
		return ErrNoImage
	}
	if len(dst) > d.remaining {
		return ErrTooManyPixels
	}
	n, err := io.ReadFull(d.decomp, dst)
	d.remaining -= n
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("gifio: decoding image data: %w", err)
	}
	return nil
}
