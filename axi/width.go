package axi

import "log"

// SizeCode converts a beat width in bytes into the AxSIZE encoding.
func SizeCode(bytes int) uint8 {
	switch bytes {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	default:
		log.Panicf("unsupported beat width %d", bytes)
	}

	return 0
}

// SizeBytes converts an AxSIZE encoding into a beat width in bytes.
func SizeBytes(size uint8) int {
	return 1 << size
}

// Strobe returns the byte-lane mask for a right-aligned beat of the given
// width.
func Strobe(bytes int) uint8 {
	return uint8(1<<bytes) - 1
}

// Mask keeps the low bytes of a word that a beat of the given width carries.
func Mask(word uint32, bytes int) uint32 {
	if bytes >= 4 {
		return word
	}

	return word & (1<<(8*bytes) - 1)
}

// PackWord builds a right-aligned little-endian word from up to four bytes.
func PackWord(b []byte) uint32 {
	var w uint32
	for i := len(b) - 1; i >= 0; i-- {
		w = w<<8 | uint32(b[i])
	}

	return w
}

// UnpackWord returns the low n bytes of a word in little-endian order.
func UnpackWord(w uint32, n int) []byte {
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(w >> (8 * i))
	}

	return b
}
