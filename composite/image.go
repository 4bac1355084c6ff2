package composite

import "fmt"

// Image holds a frame either live or serialized, never both. Row and Col
// place the frame inside a larger output image; they do not imply the
// Image owns that larger buffer.
type Image struct {
	frame      *Frame
	serialized []byte
	Row, Col   int
}

// NewImage wraps a live frame at origin 0, 0.
func NewImage(f *Frame) *Image {
	return &Image{frame: f}
}

// NewSerializedImage wraps bytes produced by Serialize. The origin is read
// from the header on Materialize.
func NewSerializedImage(data []byte) *Image {
	return &Image{serialized: data}
}

// IsSerialized reports whether the image is currently held as bytes.
func (img *Image) IsSerialized() bool { return img.frame == nil }

// Frame returns the live frame, or nil while serialized.
func (img *Image) Frame() *Frame { return img.frame }

// Bytes returns the serialized form, or nil while live.
func (img *Image) Bytes() []byte { return img.serialized }

// Materialize decodes a serialized image in place and returns its frame.
func (img *Image) Materialize() (*Frame, error) {
	if img.frame != nil {
		return img.frame, nil
	}
	if img.serialized == nil {
		return nil, fmt.Errorf("%w: empty image", ErrImproperUse)
	}
	f, row, col, err := DecodeImage(img.serialized)
	if err != nil {
		return nil, err
	}
	img.frame, img.serialized = f, nil
	img.Row, img.Col = row, col
	return f, nil
}

// Serialize encodes a live image in place and returns the bytes. A
// serialized image is returned unchanged.
func (img *Image) Serialize(opts SerializeOptions) ([]byte, error) {
	if img.frame == nil {
		if img.serialized == nil {
			return nil, fmt.Errorf("%w: empty image", ErrImproperUse)
		}
		return img.serialized, nil
	}
	data, err := EncodeImage(img.frame, img.Row, img.Col, opts)
	if err != nil {
		return nil, err
	}
	img.frame, img.serialized = nil, data
	return data, nil
}
