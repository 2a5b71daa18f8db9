package decoder

import (
	"encoding/binary"
	"slices"
)

// box is one ISO-BMFF box: its four-character type and payload.
type box struct {
	typ  string
	body []byte
}

// readBoxes splits data into consecutive boxes, stopping at the first
// malformed header.
func readBoxes(data []byte) []box {
	var boxes []box
	for len(data) >= 8 {
		size := uint64(binary.BigEndian.Uint32(data))
		typ := string(data[4:8])
		hdr := uint64(8)
		switch size {
		case 0:
			size = uint64(len(data))
		case 1:
			if len(data) < 16 {
				return boxes
			}
			size = binary.BigEndian.Uint64(data[8:16])
			hdr = 16
		}
		if size < hdr || size > uint64(len(data)) {
			return boxes
		}
		boxes = append(boxes, box{typ: typ, body: data[hdr:size]})
		data = data[size:]
	}
	return boxes
}

func findBox(boxes []box, typ string) (box, bool) {
	for _, b := range boxes {
		if b.typ == typ {
			return b, true
		}
	}
	return box{}, false
}

// ftypBrands returns the major and compatible brands of the leading ftyp box.
func ftypBrands(data []byte) []string {
	boxes := readBoxes(data)
	if len(boxes) == 0 || boxes[0].typ != "ftyp" || len(boxes[0].body) < 8 {
		return nil
	}
	body := boxes[0].body
	brands := []string{string(body[0:4])}
	for i := 8; i+4 <= len(body); i += 4 {
		brands = append(brands, string(body[i:i+4]))
	}
	return brands
}

var heifBrands = []string{"heic", "heix", "hevc", "hevx", "heim", "heis", "hevm", "hevs", "mif1", "msf1", "avif", "avis"}

// isHEIF reports whether data starts with an ftyp box naming a HEIF or AVIF
// brand.
func isHEIF(data []byte) bool {
	for _, b := range ftypBrands(data) {
		if slices.Contains(heifBrands, b) {
			return true
		}
	}
	return false
}

// isAVIF reports whether the file is AV1 coded.
func isAVIF(data []byte) bool {
	brands := ftypBrands(data)
	return slices.Contains(brands, "avif") || slices.Contains(brands, "avis")
}

// heifICC returns the first ICC colr property (meta/iprp/ipco/colr of type
// prof or rICC), or nil.
func heifICC(data []byte) []byte {
	meta, ok := findBox(readBoxes(data), "meta")
	if !ok || len(meta.body) < 4 {
		return nil
	}
	// meta is a full box: skip version and flags.
	iprp, ok := findBox(readBoxes(meta.body[4:]), "iprp")
	if !ok {
		return nil
	}
	ipco, ok := findBox(readBoxes(iprp.body), "ipco")
	if !ok {
		return nil
	}
	for _, b := range readBoxes(ipco.body) {
		if b.typ != "colr" || len(b.body) < 4 {
			continue
		}
		if t := string(b.body[:4]); t == "prof" || t == "rICC" {
			return b.body[4:]
		}
	}
	return nil
}
