package pixconv

import (
	"encoding/binary"
	"unsafe"

	"github.com/tauraamui/xerror"
)

var ErrUnaligned = xerror.New("destination buffer is not 8 byte aligned")

// Align8 rounds p up to the next multiple of 8. Aligned addresses are
// returned unchanged.
func Align8(p uintptr) uintptr {
	return (p + 7) &^ 7
}

// AlignedView returns the tail of b starting at the first 8 byte aligned
// address. Allocate 7 spare bytes if the view must hold a given length.
func AlignedView(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	addr := uintptr(unsafe.Pointer(&b[0]))
	off := int(Align8(addr) - addr)
	if off > len(b) {
		return b[len(b):]
	}
	return b[off:]
}

func isAligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))&7 == 0
}

// Reorder24 swaps the first and third byte of every 32 bit pixel and forces
// the fourth byte to 0xFF, two pixels per 64 bit word. Only whole 8 byte
// chunks are processed; the returned count tells the caller where the
// unprocessed tail begins. dst may alias src.
func Reorder24(dst, src []byte) (int, error) {
	if !isAligned(dst) {
		return 0, ErrUnaligned
	}
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	n &^= 7

	for i := 0; i < n; i += 8 {
		v := binary.LittleEndian.Uint64(src[i:])
		binary.LittleEndian.PutUint64(dst[i:], 0xFF000000FF000000|
			((v>>16)&0xFF00000000)|(v&0xFF0000000000)|((v&0xFF00000000)<<16)|
			((v>>16)&0xFF)|(v&0xFF00)|((v&0xFF)<<16))
	}
	return n, nil
}

// Reorder565 expands two 5-6-5 pixels from each 32 bit source word into two
// 32 bit pixels. The high 5 bit channel lands in byte 0, the low one in
// byte 2, alpha is forced opaque. The returned count is in dst bytes; the
// matching src offset is half of it.
func Reorder565(dst, src []byte) (int, error) {
	if !isAligned(dst) {
		return 0, ErrUnaligned
	}
	n := len(dst)
	if len(src)*2 < n {
		n = len(src) * 2
	}
	n &^= 7

	for i := 0; i < n; i += 8 {
		v := uint64(binary.LittleEndian.Uint32(src[i/2:]))
		binary.LittleEndian.PutUint64(dst[i:], 0xFF000000FF000000|
			((v&0xF8000000)<<8)|((v&0x7E00000)<<21)|((v&0x1F0000)<<35)|
			((v&0xF800)>>8)|((v&0x7E0)<<5)|((v&0x1F)<<19))
	}
	return n, nil
}

// Reorder555 is Reorder565 for 5-5-5 pixels.
func Reorder555(dst, src []byte) (int, error) {
	if !isAligned(dst) {
		return 0, ErrUnaligned
	}
	n := len(dst)
	if len(src)*2 < n {
		n = len(src) * 2
	}
	n &^= 7

	for i := 0; i < n; i += 8 {
		v := uint64(binary.LittleEndian.Uint32(src[i/2:]))
		binary.LittleEndian.PutUint64(dst[i:], 0xFF000000FF000000|
			((v&0x7C000000)<<9)|((v&0x3E00000)<<22)|((v&0x1F0000)<<35)|
			((v&0x7C00)>>7)|((v&0x3E0)<<6)|((v&0x1F)<<19))
	}
	return n, nil
}

func swap24Pixel(dst, src []byte) {
	b0, b1, b2 := src[0], src[1], src[2]
	dst[0], dst[1], dst[2], dst[3] = b2, b1, b0, 0xFF
}

func expand565Pixel(dst, src []byte) {
	v := binary.LittleEndian.Uint16(src)
	dst[0] = byte((v & 0xF800) >> 8)
	dst[1] = byte((v & 0x7E0) >> 3)
	dst[2] = byte((v & 0x1F) << 3)
	dst[3] = 0xFF
}

func expand555Pixel(dst, src []byte) {
	v := binary.LittleEndian.Uint16(src)
	dst[0] = byte((v & 0x7C00) >> 7)
	dst[1] = byte((v & 0x3E0) >> 2)
	dst[2] = byte((v & 0x1F) << 3)
	dst[3] = 0xFF
}
