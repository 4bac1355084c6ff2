package compression

import "errors"

// RLE compression errors
var (
	ErrRLECorrupted = errors.New("compression: corrupted RLE data")
	ErrRLEOverflow  = errors.New("compression: RLE decompressed size overflow")
)

const (
	rleMinRun = 3
	rleMaxRun = 127

	// rleMaxExpansion is the most output one two-byte packet can produce.
	rleMaxExpansion = 129
)

// RLECompress run-length encodes src. Each packet starts with a signed
// count byte: -n means the next byte repeats n+1 times, n >= 0 means the
// next n+1 bytes are literals.
//
//	[A, A, A, A, B, C, D] -> [-3, A, 2, B, C, D]
//
// Uncovered regions of a frame are runs of identical background bytes, so
// RLE is a cheap alternative to ZIP for sparse partial images.
func RLECompress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	dst := make([]byte, 0, len(src)/2+2)
	for i := 0; i < len(src); {
		if n := runLength(src, i); n >= rleMinRun {
			dst = append(dst, byte(int8(1-n)), src[i])
			i += n
			continue
		}
		start := i
		for i < len(src) && i-start < rleMaxRun && runLength(src, i) < rleMinRun {
			i++
		}
		dst = append(dst, byte(i-start-1))
		dst = append(dst, src[start:i]...)
	}
	return dst
}

func runLength(src []byte, i int) int {
	n := 1
	for i+n < len(src) && n < rleMaxRun && src[i+n] == src[i] {
		n++
	}
	return n
}

// RLEDecompress decodes src, which must expand to exactly expectedSize
// bytes.
func RLEDecompress(src []byte, expectedSize int) ([]byte, error) {
	if expectedSize < 0 {
		return nil, ErrRLECorrupted
	}
	if len(src) == 0 && expectedSize == 0 {
		return nil, nil
	}
	if expectedSize > (len(src)+1)/2*rleMaxExpansion {
		return nil, ErrRLECorrupted
	}
	dst := make([]byte, expectedSize)
	if err := RLEDecompressTo(src, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// RLEDecompressTo decodes src into dst, which must be exactly the decoded
// size.
func RLEDecompressTo(src, dst []byte) error {
	pos := 0
	for i := 0; i < len(src); {
		count := int(int8(src[i]))
		i++
		if count < 0 {
			n := 1 - count
			if i >= len(src) {
				return ErrRLECorrupted
			}
			if pos+n > len(dst) {
				return ErrRLEOverflow
			}
			v := src[i]
			i++
			for end := pos + n; pos < end; pos++ {
				dst[pos] = v
			}
			continue
		}
		n := count + 1
		if i+n > len(src) {
			return ErrRLECorrupted
		}
		if pos+n > len(dst) {
			return ErrRLEOverflow
		}
		pos += copy(dst[pos:], src[i:i+n])
		i += n
	}
	if pos != len(dst) {
		return ErrRLECorrupted
	}
	return nil
}
