package compression

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/mrjoshuak/go-jpeg2000"
)

// J2K compression errors
var (
	ErrJ2KCorrupted    = errors.New("compression: corrupted J2K data")
	ErrJ2KInvalidMagic = errors.New("compression: invalid J2K magic number")
	ErrJ2KEmptyImage   = errors.New("compression: J2K image has no pixels")
)

const (
	j2kMagic      uint16 = 0x4A32 // "J2"
	j2kHeaderSize        = 2

	// DefaultJ2KBlockSize is the code-block edge used by J2KCompress.
	DefaultJ2KBlockSize = 64

	j2kMaxResolutions = 6
)

// J2KCompress encodes a 16-bit RGBA image as a lossless high-throughput
// JPEG 2000 codestream prefixed by a two byte magic number.
func J2KCompress(img *image.NRGBA64, blockSize int) ([]byte, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, ErrJ2KEmptyImage
	}
	if blockSize <= 0 {
		blockSize = DefaultJ2KBlockSize
	}

	opts := &jpeg2000.Options{
		Format:         jpeg2000.FormatJ2K,
		Lossless:       true,
		HighThroughput: true,
		HTBlockWidth:   blockSize,
		HTBlockHeight:  blockSize,
		NumResolutions: j2kResolutions(b.Dx(), b.Dy()),
	}

	var out bytes.Buffer
	out.Grow(j2kHeaderSize + len(img.Pix)/2)
	var magic [j2kHeaderSize]byte
	binary.BigEndian.PutUint16(magic[:], j2kMagic)
	out.Write(magic[:])
	if err := jpeg2000.Encode(&out, img, opts); err != nil {
		return nil, fmt.Errorf("j2k: jpeg2000 encode failed: %w", err)
	}
	return out.Bytes(), nil
}

// j2kResolutions limits the wavelet decomposition so the smallest
// resolution level is still at least one pixel wide.
func j2kResolutions(w, h int) int {
	m := min(w, h)
	n := 1
	for n < j2kMaxResolutions && m>>n > 0 {
		n++
	}
	return n
}

// J2KDecompress decodes data produced by J2KCompress.
func J2KDecompress(data []byte) (*image.NRGBA64, error) {
	if len(data) < j2kHeaderSize {
		return nil, ErrJ2KCorrupted
	}
	if binary.BigEndian.Uint16(data) != j2kMagic {
		return nil, ErrJ2KInvalidMagic
	}
	img, err := jpeg2000.Decode(bytes.NewReader(data[j2kHeaderSize:]))
	if err != nil {
		return nil, fmt.Errorf("j2k: jpeg2000 decode failed: %w", err)
	}
	if out, ok := img.(*image.NRGBA64); ok {
		return out, nil
	}

	b := img.Bounds()
	out := image.NewNRGBA64(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			out.SetNRGBA64(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return out, nil
}
