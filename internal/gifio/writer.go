package gifio

import (
	"compress/lzw"
	"errors"
	"image/color"
	"io"
)

// blockWriter splits a byte stream into data sub-blocks of at most 255 bytes.
type blockWriter struct {
	w   io.Writer
	buf [256]byte
	n   int
}

func (b *blockWriter) flush() error {
	if b.n == 0 {
		return nil
	}
	b.buf[0] = byte(b.n)
	_, err := b.w.Write(b.buf[:b.n+1])
	b.n = 0
	return err
}

func (b *blockWriter) WriteByte(c byte) error {
	b.buf[b.n+1] = c
	b.n++
	if b.n == 255 {
		return b.flush()
	}
	return nil
}

func (b *blockWriter) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := b.WriteByte(c); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// Close flushes the last sub-block and writes the terminator.
func (b *blockWriter) Close() error {
	if err := b.flush(); err != nil {
		return err
	}
	_, err := b.w.Write([]byte{0})
	return err
}

// Writer emits a GIF89a stream record by record.
type Writer struct {
	w   io.Writer
	err error

	headerWritten bool
	global        []color.RGBA

	blocks    *blockWriter
	comp      io.WriteCloser
	remaining int
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (e *Writer) write(p []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(p)
}

// WriteHeader writes the signature and logical screen descriptor. global may
// be nil; otherwise it is padded with black to a power of two.
func (e *Writer) WriteHeader(width, height, colorResolution int, background byte, global []color.RGBA) error {
	if e.headerWritten {
		return errors.New("gifio: header already written")
	}
	e.headerWritten = true
	e.global = global

	if colorResolution < 1 {
		colorResolution = 1
	} else if colorResolution > 8 {
		colorResolution = 8
	}
	flags := byte(colorResolution-1) << 4
	if len(global) > 0 {
		flags |= fColorTable | byte(tableBits(len(global))-1)
	}
	e.write([]byte("GIF89a"))
	e.write([]byte{
		byte(width), byte(width >> 8),
		byte(height), byte(height >> 8),
		flags, background, 0,
	})
	if len(global) > 0 {
		e.writeColorTable(global)
	}
	return e.err
}

func (e *Writer) writeColorTable(cm []color.RGBA) {
	n := 1 << tableBits(len(cm))
	buf := make([]byte, 3*n)
	for i, c := range cm {
		buf[3*i], buf[3*i+1], buf[3*i+2] = c.R, c.G, c.B
	}
	e.write(buf)
}

// WriteLoopCount writes a NETSCAPE2.0 application extension. 0 loops forever.
func (e *Writer) WriteLoopCount(loops int) error {
	if loops < 0 || loops > 0xffff {
		loops = 0
	}
	e.write([]byte{sExtension, ExtApplication, 11})
	e.write([]byte("NETSCAPE2.0"))
	e.write([]byte{3, 1, byte(loops), byte(loops >> 8), 0})
	return e.err
}

// WriteGraphicsControl writes a graphic control extension.
func (e *Writer) WriteGraphicsControl(g GraphicsControl) error {
	flags := byte(g.Disposal&7) << 2
	if g.UserInput {
		flags |= gcbUserInputFlag
	}
	var trans byte
	if g.TransparentIndex >= 0 {
		flags |= gcbTransparentFlag
		trans = byte(g.TransparentIndex)
	}
	e.write([]byte{
		sExtension, ExtGraphicControl, 4,
		flags, byte(g.Delay), byte(g.Delay >> 8), trans,
		0,
	})
	return e.err
}

// WriteImageDesc writes an image descriptor and starts its pixel data. The
// image must be completed with WriteLine calls covering Width*Height pixels.
func (e *Writer) WriteImageDesc(d ImageDesc) error {
	if err := e.endImage(); err != nil {
		return err
	}
	var flags byte
	if d.Interlace {
		flags |= fInterlace
	}
	if len(d.ColorMap) > 0 {
		flags |= fColorTable | byte(tableBits(len(d.ColorMap))-1)
	}
	e.write([]byte{
		sImageDescriptor,
		byte(d.Left), byte(d.Left >> 8),
		byte(d.Top), byte(d.Top >> 8),
		byte(d.Width), byte(d.Width >> 8),
		byte(d.Height), byte(d.Height >> 8),
		flags,
	})
	active := d.ColorMap
	if len(active) > 0 {
		e.writeColorTable(active)
	} else {
		active = e.global
	}
	litWidth := tableBits(len(active))
	if litWidth < 2 {
		litWidth = 2
	}
	e.write([]byte{byte(litWidth)})
	if e.err != nil {
		return e.err
	}
	e.blocks = &blockWriter{w: e.w}
	e.comp = lzw.NewWriter(e.blocks, lzw.LSB, litWidth)
	e.remaining = d.Width * d.Height
	if e.remaining == 0 {
		return e.endImage()
	}
	return nil
}

// WriteLine appends palette indices to the current image.
func (e *Writer) WriteLine(line []byte) error {
	if e.err != nil {
		return e.err
	}
	if e.comp == nil {
		return ErrNoImage
	}
	if len(line) > e.remaining {
		return ErrTooManyPixels
	}
	if _, err := e.comp.Write(line); err != nil {
		e.err = err
		return err
	}
	e.remaining -= len(line)
	if e.remaining == 0 {
		return e.endImage()
	}
	return nil
}

func (e *Writer) endImage() error {
	if e.comp == nil {
		return e.err
	}
	if e.remaining > 0 && e.err == nil {
		e.err = errors.New("gifio: image data incomplete")
	}
	if err := e.comp.Close(); err != nil && e.err == nil {
		e.err = err
	}
	if err := e.blocks.Close(); err != nil && e.err == nil {
		e.err = err
	}
	e.comp, e.blocks, e.remaining = nil, nil, 0
	return e.err
}

// Close completes the current image and writes the trailer.
func (e *Writer) Close() error {
	if err := e.endImage(); err != nil {
		return err
	}
	e.write([]byte{sTrailer})
	return e.err
}
