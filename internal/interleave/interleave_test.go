package interleave

import (
	"bytes"
	"testing"
)

func TestInterleave(t *testing.T) {
	tests := []struct {
		name   string
		in     []byte
		stride int
		want   []byte
	}{
		{"empty", []byte{}, 4, []byte{}},
		{"stride1", []byte{1, 2, 3}, 1, []byte{1, 2, 3}},
		{"stride2", []byte{1, 2, 3, 4, 5, 6}, 2, []byte{1, 3, 5, 2, 4, 6}},
		{"stride4", []byte{1, 2, 3, 4, 5, 6, 7, 8}, 4, []byte{1, 5, 2, 6, 3, 7, 4, 8}},
		{"remainder", []byte{1, 2, 3, 4, 9}, 2, []byte{1, 3, 2, 4, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Interleave(tt.in, tt.stride, nil)
			if !bytes.Equal(got, tt.want) {
				t.Fatalf("Interleave = %v, want %v", got, tt.want)
			}
			back := Deinterleave(got, tt.stride, nil)
			if !bytes.Equal(back, tt.in) {
				t.Fatalf("Deinterleave = %v, want %v", back, tt.in)
			}
		})
	}
}

func TestReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 64)
	got := Interleave([]byte{1, 2, 3, 4}, 2, buf)
	if &got[0] != &buf[:1][0] {
		t.Error("Interleave allocated despite sufficient capacity")
	}
}
