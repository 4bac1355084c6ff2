// Package composite merges partial rendered images into a final frame,
// optionally across the ranks of a comm.Communicator.
package composite

import (
	"fmt"
	"image"
	"image/color"

	"github.com/mrjoshuak/go-volcast/volume"
)

// Frame is a planar floating point image indexed row*Width+col. Z is
// optional and holds normalized depth, 0 at the camera and 1 at the far
// plane.
type Frame struct {
	Width, Height int
	R, G, B, A    []float32
	Z             []float32
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int, withZ bool) *Frame {
	n := width * height
	f := &Frame{
		Width:  width,
		Height: height,
		R:      make([]float32, n),
		G:      make([]float32, n),
		B:      make([]float32, n),
		A:      make([]float32, n),
	}
	if withZ {
		f.Z = make([]float32, n)
	}
	return f
}

// NewFrameFromData wraps the planes of a composited Volume without copying.
func NewFrameFromData(fd *volume.FrameData) *Frame {
	return &Frame{
		Width:  fd.Width,
		Height: fd.Height,
		R:      fd.R,
		G:      fd.G,
		B:      fd.B,
		A:      fd.A,
		Z:      fd.Z,
	}
}

// Validate checks the plane lengths against the frame size.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrImproperUse, f.Width, f.Height)
	}
	n := f.Width * f.Height
	if len(f.R) != n || len(f.G) != n || len(f.B) != n || len(f.A) != n {
		return fmt.Errorf("%w: color planes do not hold %d pixels", ErrImproperUse, n)
	}
	if f.Z != nil && len(f.Z) != n {
		return fmt.Errorf("%w: depth plane does not hold %d pixels", ErrImproperUse, n)
	}
	return nil
}

// HasZ reports whether the frame carries depth.
func (f *Frame) HasZ() bool { return f.Z != nil }

// Pixel returns the color at row, col.
func (f *Frame) Pixel(row, col int) volume.RGBA {
	i := row*f.Width + col
	return volume.RGBA{R: f.R[i], G: f.G[i], B: f.B[i], A: f.A[i]}
}

// SetPixel stores c at row, col.
func (f *Frame) SetPixel(row, col int, c volume.RGBA) {
	i := row*f.Width + col
	f.R[i], f.G[i], f.B[i], f.A[i] = c.R, c.G, c.B, c.A
}

// Depth returns the depth at row, col, or 1 when the frame has no depth.
func (f *Frame) Depth(row, col int) float32 {
	if f.Z == nil {
		return 1
	}
	return f.Z[row*f.Width+col]
}

// Fill sets every pixel to c and every depth to 1.
func (f *Frame) Fill(c volume.RGBA) {
	for i := range f.R {
		f.R[i], f.G[i], f.B[i], f.A[i] = c.R, c.G, c.B, c.A
	}
	for i := range f.Z {
		f.Z[i] = 1
	}
}

// Crop copies the pixels of r, whose X spans columns and Y spans rows,
// into a new frame.
func (f *Frame) Crop(r image.Rectangle) *Frame {
	r = r.Intersect(image.Rect(0, 0, f.Width, f.Height))
	out := NewFrame(r.Dx(), r.Dy(), f.HasZ())
	for row := 0; row < out.Height; row++ {
		src := (r.Min.Y+row)*f.Width + r.Min.X
		dst := row * out.Width
		copy(out.R[dst:dst+out.Width], f.R[src:])
		copy(out.G[dst:dst+out.Width], f.G[src:])
		copy(out.B[dst:dst+out.Width], f.B[src:])
		copy(out.A[dst:dst+out.Width], f.A[src:])
		if f.HasZ() {
			copy(out.Z[dst:dst+out.Width], f.Z[src:])
		}
	}
	return out
}

// ToNRGBA64 quantizes the frame to 16 bits per channel. When flip is set
// frame row 0 becomes the bottom image row, matching the bottom-up order
// of rendered frames.
func (f *Frame) ToNRGBA64(flip bool) *image.NRGBA64 {
	img := image.NewNRGBA64(image.Rect(0, 0, f.Width, f.Height))
	for row := 0; row < f.Height; row++ {
		y := row
		if flip {
			y = f.Height - 1 - row
		}
		for col := 0; col < f.Width; col++ {
			i := row*f.Width + col
			img.SetNRGBA64(col, y, color.NRGBA64{
				R: quantize16(f.R[i]),
				G: quantize16(f.G[i]),
				B: quantize16(f.B[i]),
				A: quantize16(f.A[i]),
			})
		}
	}
	return img
}

// frameFromNRGBA64 is the inverse of ToNRGBA64 without flipping.
func frameFromNRGBA64(img *image.NRGBA64) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy(), false)
	for row := 0; row < f.Height; row++ {
		for col := 0; col < f.Width; col++ {
			c := img.NRGBA64At(b.Min.X+col, b.Min.Y+row)
			i := row*f.Width + col
			f.R[i] = float32(c.R) / 0xFFFF
			f.G[i] = float32(c.G) / 0xFFFF
			f.B[i] = float32(c.B) / 0xFFFF
			f.A[i] = float32(c.A) / 0xFFFF
		}
	}
	return f
}

func quantize16(v float32) uint16 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 0xFFFF
	}
	return uint16(v*0xFFFF + 0.5)
}
