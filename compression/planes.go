package compression

import (
	"github.com/mrjoshuak/go-volcast/internal/interleave"
	"github.com/mrjoshuak/go-volcast/internal/predictor"
)

// CompressPlanes prepares fixed-size elements for deflate and compresses
// them: bytes are grouped by offset within each stride-byte element, delta
// encoded, then deflated at the given level. src is not modified.
func CompressPlanes(src []byte, stride int, level CompressionLevel) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}
	buf := interleave.Interleave(src, stride, nil)
	predictor.Encode(buf)
	return ZIPCompressLevel(buf, level)
}

// DecompressPlanes reverses CompressPlanes. size is the uncompressed length.
func DecompressPlanes(src []byte, size, stride int) ([]byte, error) {
	buf, err := ZIPDecompress(src, size)
	if err != nil {
		return nil, err
	}
	predictor.Decode(buf)
	return interleave.Deinterleave(buf, stride, nil), nil
}
