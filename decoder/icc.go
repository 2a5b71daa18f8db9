package decoder

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/deepteams/photon/mux"
)

const maxICCSize = 16 << 20

// extractICC returns the embedded ICC profile of a raster image, or nil.
func extractICC(format string, data []byte) []byte {
	switch format {
	case "png":
		return pngICC(data)
	case "jpeg":
		return jpegICC(data)
	case "webp":
		if dmx, err := mux.NewDemuxer(data); err == nil {
			return dmx.ICCProfile()
		}
	}
	return nil
}

// pngICC inflates the iCCP chunk: a profile name, a NUL, one compression
// method byte and the zlib stream.
func pngICC(data []byte) []byte {
	for pos := 8; pos+8 <= len(data); {
		n := int(binary.BigEndian.Uint32(data[pos:]))
		typ := string(data[pos+4 : pos+8])
		body := pos + 8
		if n < 0 || body+n > len(data) {
			return nil
		}
		switch typ {
		case "iCCP":
			chunk := data[body : body+n]
			nul := bytes.IndexByte(chunk, 0)
			if nul < 0 || nul+2 > len(chunk) {
				return nil
			}
			zr, err := zlib.NewReader(bytes.NewReader(chunk[nul+2:]))
			if err != nil {
				return nil
			}
			defer zr.Close()
			icc, err := io.ReadAll(io.LimitReader(zr, maxICCSize))
			if err != nil {
				return nil
			}
			return icc
		case "IDAT", "IEND":
			return nil
		}
		pos = body + n + 4
	}
	return nil
}

// jpegICC reassembles the ICC_PROFILE APP2 segments in sequence order.
func jpegICC(data []byte) []byte {
	const sig = "ICC_PROFILE\x00"
	var (
		parts [256][]byte
		count int
	)
	for pos := 2; pos+4 <= len(data) && data[pos] == 0xff; {
		marker := data[pos+1]
		if marker == 0xd8 || (marker >= 0xd0 && marker <= 0xd7) || marker == 0xff {
			pos++
			continue
		}
		if marker == 0xda || marker == 0xd9 {
			break
		}
		n := int(binary.BigEndian.Uint16(data[pos+2:]))
		end := pos + 2 + n
		if n < 2 || end > len(data) {
			break
		}
		seg := data[pos+4 : end]
		if marker == 0xe2 && len(seg) > len(sig)+2 && string(seg[:len(sig)]) == sig {
			seq := int(seg[len(sig)])
			count = int(seg[len(sig)+1])
			parts[seq] = seg[len(sig)+2:]
		}
		pos = end
	}
	if count == 0 {
		return nil
	}
	var icc []byte
	for i := 1; i <= count; i++ {
		if parts[i] == nil {
			return nil
		}
		icc = append(icc, parts[i]...)
	}
	return icc
}
