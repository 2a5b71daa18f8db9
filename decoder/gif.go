package decoder

import (
	"go.uber.org/zap"

	"github.com/deepteams/photon/frame"
	"github.com/deepteams/photon/internal/gifio"
	"github.com/deepteams/photon/internal/pool"
)

// Deinterlacing passes: starting row and row step.
var (
	interlaceOffsets = [4]int{0, 4, 2, 1}
	interlaceStrides = [4]int{8, 8, 4, 2}
)

// GIF decodes GIF streams record by record. Frames keep their original
// windows, palettes, transparent index and disposal, so a palette
// preserving encoder can rebuild the stream.
type GIF struct {
	data []byte
	log  *zap.Logger

	r            *gifio.Reader
	global       *frame.Palette
	loops        int
	canReadLoops bool
	hasPrevious  bool
	loaded       bool
}

// NewGIF opens data.
func NewGIF(data []byte, opts ...Option) (*GIF, error) {
	d := &GIF{data: data, log: buildOptions(opts).log}
	if err := d.Reset(); err != nil {
		return nil, notLoaded(KindGIF, err)
	}
	return d, nil
}

// Reset reopens the stream and pre-scans it for DisposalPrevious.
func (d *GIF) Reset() error {
	r, err := gifio.NewReader(d.data)
	if err != nil {
		d.loaded = false
		return err
	}
	d.r = r
	d.global = nil
	if r.GlobalColorMap != nil {
		d.global = frame.NewPalette(r.GlobalColorMap)
	}
	d.canReadLoops = true
	d.loops = 1

	start := r.Offset()
	d.hasPrevious = d.scanPreviousDisposal()
	if err := r.Seek(start); err != nil {
		d.loaded = false
		return err
	}
	d.loaded = true
	return nil
}

// scanPreviousDisposal reads the whole stream looking for a graphic control
// extension that disposes to previous.
func (d *GIF) scanPreviousDisposal() bool {
	gcb := gifio.GraphicsControl{TransparentIndex: -1}
	for {
		rt, err := d.r.RecordType()
		if err != nil || rt == gifio.RecordTerminate {
			return false
		}
		switch rt {
		case gifio.RecordExtension:
			code, block, err := d.r.Extension()
			if err != nil {
				continue
			}
			if code == gifio.ExtGraphicControl && block != nil {
				if gifio.ParseGraphicsControl(block, &gcb) == nil && gcb.Disposal == gifio.DisposalPrevious {
					return true
				}
			}
			if block != nil {
				_ = d.r.SkipExtension()
			}
		case gifio.RecordImageDesc:
			_, _ = d.r.ImageDesc()
		}
	}
}

func (d *GIF) Loaded() bool { return d.loaded }

// NextFrame reads records until an image descriptor yields a frame. The
// graphic control state only lives for the duration of one call.
func (d *GIF) NextFrame(dst *frame.Frame) bool {
	dst.Reset()
	gcb := gifio.GraphicsControl{TransparentIndex: -1}
	decoded := false

records:
	for {
		rt, err := d.r.RecordType()
		if err != nil {
			d.log.Debug("gif: reading record type", zap.Error(err))
			break
		}
		switch rt {
		case gifio.RecordTerminate:
			break records
		case gifio.RecordExtension:
			d.readExtension(&gcb)
		case gifio.RecordImageDesc:
			d.canReadLoops = false
			desc, err := d.r.ImageDesc()
			if err != nil {
				d.log.Debug("gif: reading image descriptor", zap.Error(err))
				continue
			}
			if d.readImage(desc, &gcb, dst) {
				decoded = true
				break records
			}
		}
	}

	dst.Delay = gcb.Delay * 10
	dst.CanvasWidth = d.r.Width
	dst.CanvasHeight = d.r.Height
	dst.Empty = !decoded
	dst.Loops = d.loops
	dst.Blending = frame.BlendingBlend
	dst.MayDisposeToPrevious = d.hasPrevious
	switch gcb.Disposal {
	case gifio.DisposalBackground:
		dst.Disposal = frame.DisposalBackground
	case gifio.DisposalPrevious:
		dst.Disposal = frame.DisposalPrevious
	default:
		dst.Disposal = frame.DisposalNone
	}
	dst.TransparentIndex = gcb.TransparentIndex
	return decoded
}

func (d *GIF) readExtension(gcb *gifio.GraphicsControl) {
	code, block, err := d.r.Extension()
	if err != nil {
		d.log.Debug("gif: reading extension", zap.Error(err))
		return
	}
	switch code {
	case gifio.ExtGraphicControl:
		if block != nil {
			// Keeps the previous values on failure.
			if err := gifio.ParseGraphicsControl(block, gcb); err != nil {
				d.log.Debug("gif: ignoring graphic control extension", zap.Error(err))
			}
		}
	case gifio.ExtApplication:
		if d.canReadLoops && string(block) == "NETSCAPE2.0" {
			sub, err := d.r.ExtensionNext()
			if err == nil && len(sub) == 3 && sub[0] == 1 {
				d.loops = int(sub[1]) | int(sub[2])<<8
			}
			block = sub
		}
	}
	if block != nil {
		if err := d.r.SkipExtension(); err != nil {
			d.log.Debug("gif: skipping extension data", zap.Error(err))
		}
	}
}

// readImage decodes the pixels of desc into dst. It returns false when the
// image has no color table and must be skipped.
func (d *GIF) readImage(desc gifio.ImageDesc, gcb *gifio.GraphicsControl, dst *frame.Frame) bool {
	var local *frame.Palette
	table := desc.ColorMap
	if table != nil {
		local = frame.NewPalette(table)
	} else if d.global != nil {
		table = d.global.Colors()
	} else {
		d.log.Debug("gif: image without color table",
			zap.Int("left", desc.Left), zap.Int("top", desc.Top))
		return false
	}

	// Only the part of the window that overlaps the canvas is kept. Each
	// stored row still goes through a desc.Width scratch line.
	leftOff := max(0, -desc.Left)
	topOff := max(0, -desc.Top)
	w := desc.Width - leftOff - max(0, desc.Left+desc.Width-d.r.Width)
	h := desc.Height - topOff - max(0, desc.Top+desc.Height-d.r.Height)
	if w <= 0 || h <= 0 {
		// No overlap: a pixel-less frame still carries the delay.
		dst.Pixels = nil
		dst.X, dst.Y = 0, 0
		dst.FramePalette = local
		dst.GlobalPalette = d.global
		return true
	}

	px := frame.NewPixels(w, h, 4)
	line := pool.Get(desc.Width)
	defer pool.Put(line)

	failed := false
	readRow := func(y int) {
		if failed {
			return
		}
		if err := d.r.Line(line); err != nil {
			d.log.Debug("gif: reading line", zap.Int("row", y), zap.Error(err))
			failed = true
			return
		}
		if y < topOff || y >= topOff+h {
			return
		}
		row := px.Row(y - topOff)
		for x, idx := range line[leftOff : leftOff+w] {
			if int(idx) == gcb.TransparentIndex || int(idx) >= len(table) {
				continue
			}
			c := table[idx]
			row[4*x], row[4*x+1], row[4*x+2], row[4*x+3] = c.B, c.G, c.R, 0xff
		}
	}
	if desc.Interlace {
		for pass := range interlaceOffsets {
			for y := interlaceOffsets[pass]; y < desc.Height; y += interlaceStrides[pass] {
				readRow(y)
			}
		}
	} else {
		for y := 0; y < topOff+h; y++ {
			readRow(y)
		}
	}

	dst.Pixels = px
	dst.X = desc.Left + leftOff
	dst.Y = desc.Top + topOff
	dst.FramePalette = local
	dst.GlobalPalette = d.global
	return true
}

// ICCProfile always reports no profile; GIF has none.
func (d *GIF) ICCProfile() ([]byte, bool) { return nil, false }

func (d *GIF) Kind() Kind { return KindGIF }
func (d *GIF) sealed()    {}

// Loops returns the loop count read so far, 1 when the stream has no
// NETSCAPE2.0 extension.
func (d *GIF) Loops() int { return d.loops }
