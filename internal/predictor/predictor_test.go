package predictor

import (
	"bytes"
	"testing"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{"empty", []byte{}, []byte{}},
		{"single", []byte{42}, []byte{42}},
		{"constant", []byte{5, 5, 5, 5}, []byte{5, 0, 0, 0}},
		{"increasing", []byte{10, 11, 12, 13, 14}, []byte{10, 1, 1, 1, 1}},
		{"wraparound", []byte{255, 0, 1}, []byte{255, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append([]byte(nil), tt.in...)
			Encode(data)
			if !bytes.Equal(data, tt.want) {
				t.Errorf("Encode(%v) = %v, want %v", tt.in, data, tt.want)
			}
			Decode(data)
			if !bytes.Equal(data, tt.in) {
				t.Errorf("Decode(Encode(%v)) = %v", tt.in, data)
			}
		})
	}
}

func TestRoundTripLong(t *testing.T) {
	data := make([]byte, 1031)
	for i := range data {
		data[i] = byte(i*7 + i/3)
	}
	orig := append([]byte(nil), data...)
	Encode(data)
	Decode(data)
	if !bytes.Equal(data, orig) {
		t.Fatal("round trip mismatch")
	}
}
