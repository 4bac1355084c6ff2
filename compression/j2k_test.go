package compression

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestJ2KRoundTrip(t *testing.T) {
	img := image.NewNRGBA64(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.SetNRGBA64(x, y, color.NRGBA64{
				R: uint16(x * 4096), G: uint16(y * 8192), B: 0x8000, A: 0xFFFF,
			})
		}
	}
	data, err := J2KCompress(img, 0)
	if err != nil {
		t.Fatalf("J2KCompress: %v", err)
	}
	got, err := J2KDecompress(data)
	if err != nil {
		t.Fatalf("J2KDecompress: %v", err)
	}
	if got.Bounds().Dx() != 16 || got.Bounds().Dy() != 8 {
		t.Fatalf("bounds = %v", got.Bounds())
	}
	const tol = 0x0200
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			w, g := img.NRGBA64At(x, y), got.NRGBA64At(x, y)
			if diff16(w.R, g.R) > tol || diff16(w.G, g.G) > tol || diff16(w.B, g.B) > tol {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, g, w)
			}
		}
	}
}

func diff16(a, b uint16) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func TestJ2KErrors(t *testing.T) {
	if _, err := J2KCompress(image.NewNRGBA64(image.Rectangle{}), 0); !errors.Is(err, ErrJ2KEmptyImage) {
		t.Errorf("empty image: err = %v", err)
	}
	if _, err := J2KDecompress([]byte{1}); !errors.Is(err, ErrJ2KCorrupted) {
		t.Errorf("short data: err = %v", err)
	}
	if _, err := J2KDecompress([]byte{0, 0, 1}); !errors.Is(err, ErrJ2KInvalidMagic) {
		t.Errorf("bad magic: err = %v", err)
	}
}

func TestJ2KResolutions(t *testing.T) {
	tests := []struct{ w, h, want int }{
		{1, 1, 1}, {2, 5, 2}, {4, 4, 3}, {1024, 768, j2kMaxResolutions},
	}
	for _, tt := range tests {
		if got := j2kResolutions(tt.w, tt.h); got != tt.want {
			t.Errorf("j2kResolutions(%d, %d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}
