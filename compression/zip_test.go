package compression

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestZIPEmpty(t *testing.T) {
	got, err := ZIPCompress(nil)
	if err != nil || got != nil {
		t.Fatalf("ZIPCompress(nil) = %v, %v", got, err)
	}
	got, err = ZIPDecompress(nil, 0)
	if err != nil || got != nil {
		t.Fatalf("ZIPDecompress(nil, 0) = %v, %v", got, err)
	}
}

func TestZIPRoundTrip(t *testing.T) {
	large := make([]byte, 64*1024)
	for i := range large {
		large[i] = byte(i / 17)
	}
	tests := []struct {
		name  string
		data  []byte
		level CompressionLevel
	}{
		{"single", []byte{1}, CompressionLevelDefault},
		{"run", bytes.Repeat([]byte{100}, 64), CompressionLevelDefault},
		{"large", large, CompressionLevelDefault},
		{"best speed", large, CompressionLevelBestSpeed},
		{"huffman only", large, CompressionLevelHuffmanOnly},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ZIPCompressLevel(tt.data, tt.level)
			if err != nil {
				t.Fatalf("compress: %v", err)
			}
			d, err := ZIPDecompress(c, len(tt.data))
			if err != nil {
				t.Fatalf("decompress: %v", err)
			}
			if !bytes.Equal(d, tt.data) {
				t.Fatal("round trip mismatch")
			}
		})
	}
}

func TestZIPDecompressErrors(t *testing.T) {
	c, err := ZIPCompress([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		src  []byte
		size int
	}{
		{"garbage", []byte{1, 2, 3}, 4},
		{"empty with size", nil, 4},
		{"size too large", c, 8},
		{"size too small", c, 2},
		{"forged size", c, 1 << 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ZIPDecompress(tt.src, tt.size); !errors.Is(err, ErrZIPCorrupted) {
				t.Errorf("err = %v, want ErrZIPCorrupted", err)
			}
		})
	}
}

func TestZIPDecompressBoundedAllocation(t *testing.T) {
	src := make([]byte, 4096)
	x := uint32(1)
	for i := range src {
		x = x*1664525 + 1013904223
		src[i] = byte(x >> 24)
	}
	c, err := ZIPCompress(src)
	if err != nil {
		t.Fatal(err)
	}
	// Within the deflate ratio bound, so only the stream length rejects it.
	size := 1000 * len(c)
	allocs := testing.Benchmark(func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			if _, err := ZIPDecompress(c, size); !errors.Is(err, ErrZIPCorrupted) {
				b.Fatalf("err = %v", err)
			}
		}
	})
	if per := allocs.AllocedBytesPerOp(); per >= int64(size) {
		t.Errorf("allocated %d bytes per call for a %d byte claim", per, size)
	}
}

func TestPlanesRoundTrip(t *testing.T) {
	vals := make([]float32, 257)
	for i := range vals {
		vals[i] = float32(i) / 256
	}
	src := make([]byte, len(vals)*4)
	for i, v := range vals {
		b := math.Float32bits(v)
		src[i*4], src[i*4+1], src[i*4+2], src[i*4+3] = byte(b), byte(b>>8), byte(b>>16), byte(b>>24)
	}
	orig := bytes.Clone(src)

	c, err := CompressPlanes(src, 4, CompressionLevelDefault)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(src, orig) {
		t.Fatal("CompressPlanes modified its input")
	}
	d, err := DecompressPlanes(c, len(src), 4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(d, orig) {
		t.Fatal("round trip mismatch")
	}
}
