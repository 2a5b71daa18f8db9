package decoder

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bmffBox(typ string, body ...[]byte) []byte {
	n := 8
	for _, b := range body {
		n += len(b)
	}
	out := binary.BigEndian.AppendUint32(nil, uint32(n))
	out = append(out, typ...)
	for _, b := range body {
		out = append(out, b...)
	}
	return out
}

// ftyp builds an ftyp box with the given major brand and compatible brands.
func ftyp(major string, compatible ...string) []byte {
	body := append([]byte(major), 0, 0, 0, 0)
	for _, c := range compatible {
		body = append(body, c...)
	}
	return bmffBox("ftyp", body)
}

func metaWithColr(colrType string, payload []byte) []byte {
	colr := bmffBox("colr", []byte(colrType), payload)
	ipco := bmffBox("ipco", bmffBox("ispe", make([]byte, 12)), colr)
	return bmffBox("meta", []byte{0, 0, 0, 0}, bmffBox("hdlr", make([]byte, 8)), bmffBox("iprp", ipco))
}

// --- Boxes ---

func TestReadBoxes(t *testing.T) {
	data := append(bmffBox("aaaa", []byte{1, 2}), bmffBox("bbbb")...)
	boxes := readBoxes(data)
	require.Len(t, boxes, 2)
	assert.Equal(t, "aaaa", boxes[0].typ)
	assert.Equal(t, []byte{1, 2}, boxes[0].body)
	assert.Equal(t, "bbbb", boxes[1].typ)
	assert.Empty(t, boxes[1].body)
}

func TestReadBoxes_SizeVariants(t *testing.T) {
	t.Run("to_end", func(t *testing.T) {
		data := append([]byte{0, 0, 0, 0}, "mdat\x01\x02\x03"...)
		boxes := readBoxes(data)
		require.Len(t, boxes, 1)
		assert.Equal(t, []byte{1, 2, 3}, boxes[0].body)
	})
	t.Run("large_size", func(t *testing.T) {
		data := append([]byte{0, 0, 0, 1}, "mdat"...)
		data = binary.BigEndian.AppendUint64(data, 18)
		data = append(data, 7, 8)
		boxes := readBoxes(data)
		require.Len(t, boxes, 1)
		assert.Equal(t, []byte{7, 8}, boxes[0].body)
	})
	t.Run("truncated", func(t *testing.T) {
		data := append(bmffBox("good"), 0, 0, 0, 50, 'b', 'a', 'd', '!')
		boxes := readBoxes(data)
		require.Len(t, boxes, 1)
		assert.Equal(t, "good", boxes[0].typ)
	})
}

func TestBrands(t *testing.T) {
	tests := []struct {
		name       string
		data       []byte
		heif, avif bool
	}{
		{"heic", ftyp("heic", "mif1", "heic"), true, false},
		{"avif_major", ftyp("avif", "mif1"), true, true},
		{"avif_compatible", ftyp("mif1", "avif"), true, true},
		{"avis", ftyp("avis"), true, true},
		{"mp4", ftyp("isom", "mp41"), false, false},
		{"no_ftyp", bmffBox("moov"), false, false},
		{"short", []byte{0, 0}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.heif, isHEIF(tt.data))
			assert.Equal(t, tt.avif, isAVIF(tt.data))
		})
	}
	assert.Equal(t, []string{"heic", "mif1", "heic"}, ftypBrands(ftyp("heic", "mif1", "heic")))
}

// --- colr ---

func TestHEIFICC(t *testing.T) {
	profile := []byte("an icc profile")
	for _, typ := range []string{"prof", "rICC"} {
		t.Run(typ, func(t *testing.T) {
			data := append(ftyp("heic", "mif1"), metaWithColr(typ, profile)...)
			assert.Equal(t, profile, heifICC(data))
		})
	}

	t.Run("nclx", func(t *testing.T) {
		data := append(ftyp("heic"), metaWithColr("nclx", make([]byte, 7))...)
		assert.Nil(t, heifICC(data))
	})
	t.Run("no_meta", func(t *testing.T) {
		assert.Nil(t, heifICC(ftyp("heic")))
	})
}

func TestHEIF_DeclinesNonHEIF(t *testing.T) {
	_, err := NewHEIF(ftyp("isom"))
	require.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, err, errNotHEIF)
}
