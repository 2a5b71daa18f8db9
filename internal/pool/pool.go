// Package pool provides bucketed sync.Pool instances for the scratch buffers
// used while converting frames: palette index rows, scanlines and temporary
// BGRA windows. Buffers never escape into a returned frame.
package pool

import "sync"

// Size classes. A GIF row is at most 65535 pixels; BGRA windows of typical
// animation frames fit in the two largest classes.
const (
	SizeRow   = 4096
	SizeWide  = 65536
	SizeSmall = 1 << 20
	SizeLarge = 1 << 24
)

var sizes = [4]int{SizeRow, SizeWide, SizeSmall, SizeLarge}

var pools [4]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]byte, sz)
				return &b
			},
		}
	}
}

func bucketIndex(size int) int {
	for i, sz := range sizes {
		if size <= sz {
			return i
		}
	}
	return -1
}

// Get returns a byte slice of length size. Its contents are unspecified.
// Sizes above SizeLarge are allocated directly and never pooled.
func Get(size int) []byte {
	idx := bucketIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}
	bp := pools[idx].Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, sizes[idx])
	}
	return b[:size]
}

// GetZeroed is Get followed by clearing the returned slice.
func GetZeroed(size int) []byte {
	b := Get(size)
	clear(b)
	return b
}

// Put returns b to its bucket. Slices whose capacity does not match a size
// class exactly are dropped so a bucket only ever holds full-size buffers.
func Put(b []byte) {
	c := cap(b)
	idx := bucketIndex(c)
	if idx < 0 || sizes[idx] != c {
		return
	}
	b = b[:c]
	pools[idx].Put(&b)
}
