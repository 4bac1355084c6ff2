package half

import (
	"math"
	"testing"
)

func TestFromFloat32Exact(t *testing.T) {
	tests := []struct {
		in   float32
		want Half
	}{
		{0, Zero},
		{1, One},
		{-2, Half(0xC000)},
		{0.5, Half(0x3800)},
		{65504, Max},
		{1e6, Inf},
		{float32(math.Inf(-1)), NegInf},
		{5.9604645e-8, Half(0x0001)},
	}
	for _, tt := range tests {
		if got := FromFloat32(tt.in); got != tt.want {
			t.Errorf("FromFloat32(%v) = %#04x, want %#04x", tt.in, got, tt.want)
		}
	}
}

func TestRoundTripRepresentable(t *testing.T) {
	for bits := 0; bits < 0x7C00; bits++ {
		h := Half(bits)
		if got := FromFloat32(h.Float32()); got != h {
			t.Fatalf("round trip %#04x -> %v -> %#04x", bits, h.Float32(), got)
		}
	}
}

func TestNaN(t *testing.T) {
	h := FromFloat32(float32(math.NaN()))
	if h.IsFinite() {
		t.Fatal("NaN converted to a finite half")
	}
	if !math.IsNaN(float64(h.Float32())) {
		t.Fatalf("NaN half decoded to %v", h.Float32())
	}
}

func TestRoundToNearestEven(t *testing.T) {
	// 1 + 2^-11 sits exactly between 1 and the next half; ties go to even.
	v := float32(1 + 1.0/2048)
	if got := FromFloat32(v); got != One {
		t.Errorf("FromFloat32(%v) = %#04x, want %#04x", v, got, One)
	}
}

func TestSliceCodec(t *testing.T) {
	src := []float32{0, 0.25, 0.5, 1, 0.75}
	buf := make([]byte, len(src)*Size)
	PutFloat32s(buf, src)

	dst := make([]float32, len(src))
	Float32s(dst, buf)
	for i := range src {
		if dst[i] != src[i] {
			t.Errorf("value %d: got %v, want %v", i, dst[i], src[i])
		}
	}
}
