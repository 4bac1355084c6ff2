package composite

import (
	"fmt"

	"github.com/mrjoshuak/go-volcast/compression"
	"github.com/mrjoshuak/go-volcast/half"
	"github.com/mrjoshuak/go-volcast/internal/xdr"
)

// Codec selects the payload compression of a serialized image.
type Codec uint8

const (
	CodecNone Codec = iota
	CodecRLE
	CodecZIP
	CodecJ2K
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecRLE:
		return "rle"
	case CodecZIP:
		return "zip"
	case CodecJ2K:
		return "j2k"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// ParseCodec maps a codec name back to its value.
func ParseCodec(name string) (Codec, error) {
	for c := CodecNone; c <= CodecJ2K; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown codec %q", ErrImproperUse, name)
}

// SerializeOptions controls EncodeImage.
type SerializeOptions struct {
	Codec Codec
	// HalfColor stores R, G, B and A as binary16. Depth stays float32.
	HalfColor bool
	// Level applies to CodecZIP; zero selects the default level.
	Level compression.CompressionLevel
}

const (
	imageMagic   uint32 = 0x4D494356 // "VCIM"
	imageVersion uint8  = 1

	flagAlpha uint8 = 1 << 0
	flagZ     uint8 = 1 << 1
	flagHalf  uint8 = 1 << 2

	headerSize = 4 + 1 + 1 + 1 + 1 + 4*4 + 4
)

// MaxPixels is the largest image DecodeImage accepts.
const MaxPixels = 1 << 24

// EncodeImage serializes f with its origin. CodecJ2K quantizes color to 16
// bits and drops depth.
func EncodeImage(f *Frame, row, col int, opts SerializeOptions) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	flags := flagAlpha
	var payload []byte
	var rawSize int
	switch opts.Codec {
	case CodecJ2K:
		data, err := compression.J2KCompress(f.ToNRGBA64(false), compression.DefaultJ2KBlockSize)
		if err != nil {
			return nil, fmt.Errorf("composite: j2k encode: %w", err)
		}
		payload, rawSize = data, 0
	case CodecNone, CodecRLE, CodecZIP:
		if opts.HalfColor {
			flags |= flagHalf
		}
		if f.HasZ() {
			flags |= flagZ
		}
		raw := packPlanes(f, opts.HalfColor)
		rawSize = len(raw)
		switch opts.Codec {
		case CodecNone:
			payload = raw
		case CodecRLE:
			payload = compression.RLECompress(raw)
		case CodecZIP:
			stride := 4
			if opts.HalfColor {
				stride = 2
			}
			level := opts.Level
			if level == 0 {
				level = compression.CompressionLevelDefault
			}
			data, err := compression.CompressPlanes(raw, stride, level)
			if err != nil {
				return nil, fmt.Errorf("composite: zip encode: %w", err)
			}
			payload = data
		}
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrImproperUse, opts.Codec)
	}

	w := xdr.NewBufferWriter(headerSize + len(payload))
	w.WriteUint32(imageMagic)
	w.WriteUint8(imageVersion)
	w.WriteUint8(flags)
	w.WriteUint8(uint8(opts.Codec))
	w.WriteUint8(0)
	w.WriteInt32(int32(f.Width))
	w.WriteInt32(int32(f.Height))
	w.WriteInt32(int32(row))
	w.WriteInt32(int32(col))
	w.WriteUint32(uint32(rawSize))
	w.WriteBytes(payload)
	return w.Bytes(), nil
}

// Header describes a serialized image.
type Header struct {
	Width, Height int
	Row, Col      int
	Codec         Codec
	HalfColor     bool
	HasZ          bool

	rawSize int
}

// ReadHeader parses and checks the fixed header of a serialized image.
func ReadHeader(data []byte) (Header, error) {
	r := xdr.NewReader(data)
	magic, err := r.ReadUint32()
	if err != nil {
		return Header{}, corrupt(err)
	}
	if magic != imageMagic {
		return Header{}, fmt.Errorf("%w: bad magic %#x", ErrCorruptImage, magic)
	}
	version, _ := r.ReadUint8()
	flags, _ := r.ReadUint8()
	codec, _ := r.ReadUint8()
	_, _ = r.ReadUint8()
	width, _ := r.ReadInt32()
	height, _ := r.ReadInt32()
	row, _ := r.ReadInt32()
	col, _ := r.ReadInt32()
	rawSize, err := r.ReadUint32()
	if err != nil {
		return Header{}, corrupt(err)
	}
	if version != imageVersion {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrCorruptImage, version)
	}
	if Codec(codec) > CodecJ2K {
		return Header{}, fmt.Errorf("%w: unknown codec %d", ErrCorruptImage, codec)
	}
	if width <= 0 || height <= 0 || row < 0 || col < 0 {
		return Header{}, fmt.Errorf("%w: invalid geometry %dx%d at %d,%d", ErrCorruptImage, width, height, row, col)
	}
	if int64(width)*int64(height) > MaxPixels {
		return Header{}, fmt.Errorf("%w: %dx%d exceeds pixel limit", ErrCorruptImage, width, height)
	}
	return Header{
		Width:     int(width),
		Height:    int(height),
		Row:       int(row),
		Col:       int(col),
		Codec:     Codec(codec),
		HalfColor: flags&flagHalf != 0,
		HasZ:      flags&flagZ != 0,
		rawSize:   int(rawSize),
	}, nil
}

// DecodeImage parses bytes produced by EncodeImage.
func DecodeImage(data []byte) (f *Frame, row, col int, err error) {
	h, err := ReadHeader(data)
	if err != nil {
		return nil, 0, 0, err
	}
	payload := data[headerSize:]

	if h.Codec == CodecJ2K {
		img, err := compression.J2KDecompress(payload)
		if err != nil {
			return nil, 0, 0, corrupt(err)
		}
		if b := img.Bounds(); b.Dx() != h.Width || b.Dy() != h.Height {
			return nil, 0, 0, fmt.Errorf("%w: j2k size %dx%d, header %dx%d", ErrCorruptImage, b.Dx(), b.Dy(), h.Width, h.Height)
		}
		return frameFromNRGBA64(img), h.Row, h.Col, nil
	}

	want := planesSize(h.Width*h.Height, h.HalfColor, h.HasZ)
	if h.rawSize != want {
		return nil, 0, 0, fmt.Errorf("%w: payload size %d, want %d", ErrCorruptImage, h.rawSize, want)
	}

	var raw []byte
	switch h.Codec {
	case CodecNone:
		raw = payload
		if len(raw) != want {
			return nil, 0, 0, fmt.Errorf("%w: payload size %d, want %d", ErrCorruptImage, len(raw), want)
		}
	case CodecRLE:
		raw, err = compression.RLEDecompress(payload, want)
	case CodecZIP:
		stride := 4
		if h.HalfColor {
			stride = 2
		}
		raw, err = compression.DecompressPlanes(payload, want, stride)
	}
	if err != nil {
		return nil, 0, 0, corrupt(err)
	}

	f = NewFrame(h.Width, h.Height, h.HasZ)
	unpackPlanes(f, raw, h.HalfColor)
	return f, h.Row, h.Col, nil
}

func corrupt(err error) error {
	return fmt.Errorf("%w: %v", ErrCorruptImage, err)
}

func planesSize(n int, halfColor, hasZ bool) int {
	size := 4 * n * 4
	if halfColor {
		size = 4 * n * 2
	}
	if hasZ {
		size += n * 4
	}
	return size
}

// packPlanes lays out R, G, B, A then Z, each plane contiguous.
func packPlanes(f *Frame, halfColor bool) []byte {
	n := f.Width * f.Height
	if !halfColor {
		w := xdr.NewBufferWriter(planesSize(n, false, f.HasZ()))
		for _, p := range [][]float32{f.R, f.G, f.B, f.A} {
			w.WriteFloat32s(p)
		}
		if f.HasZ() {
			w.WriteFloat32s(f.Z)
		}
		return w.Bytes()
	}

	out := make([]byte, planesSize(n, true, f.HasZ()))
	for i, p := range [][]float32{f.R, f.G, f.B, f.A} {
		half.PutFloat32s(out[i*n*2:(i+1)*n*2], p)
	}
	if f.HasZ() {
		w := xdr.NewBufferWriter(n * 4)
		w.WriteFloat32s(f.Z)
		copy(out[4*n*2:], w.Bytes())
	}
	return out
}

func unpackPlanes(f *Frame, raw []byte, halfColor bool) {
	n := f.Width * f.Height
	planes := [][]float32{f.R, f.G, f.B, f.A}
	off := 0
	if halfColor {
		for _, p := range planes {
			half.Float32s(p, raw[off:off+n*2])
			off += n * 2
		}
	} else {
		r := xdr.NewReader(raw)
		for _, p := range planes {
			_ = r.ReadFloat32s(p)
		}
		off = 4 * n * 4
	}
	if f.HasZ() {
		_ = xdr.NewReader(raw[off:]).ReadFloat32s(f.Z)
	}
}
