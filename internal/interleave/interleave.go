// Package interleave groups the bytes of fixed-size elements into planes.
//
// A frame plane of float32 values is stored as four byte planes, all first
// bytes followed by all second bytes and so on. The exponent bytes of
// neighboring pixels then sit next to each other, which helps the
// predictor and deflate stages.
//
//	[a0,a1,a2,a3, b0,b1,b2,b3] -> [a0,b0, a1,b1, a2,b2, a3,b3]
package interleave

// Interleave writes data into out grouped by byte offset within each
// stride-byte element. Trailing bytes that do not fill an element are
// copied unchanged. If out is nil or too short a new buffer is allocated.
func Interleave(data []byte, stride int, out []byte) []byte {
	out = ensure(out, len(data))
	if stride <= 1 {
		copy(out, data)
		return out
	}
	n := len(data) / stride
	for off := 0; off < stride; off++ {
		plane := out[off*n : (off+1)*n]
		for e := range plane {
			plane[e] = data[e*stride+off]
		}
	}
	copy(out[n*stride:], data[n*stride:])
	return out
}

// Deinterleave reverses Interleave.
func Deinterleave(data []byte, stride int, out []byte) []byte {
	out = ensure(out, len(data))
	if stride <= 1 {
		copy(out, data)
		return out
	}
	n := len(data) / stride
	for off := 0; off < stride; off++ {
		plane := data[off*n : (off+1)*n]
		for e, b := range plane {
			out[e*stride+off] = b
		}
	}
	copy(out[n*stride:], data[n*stride:])
	return out
}

func ensure(out []byte, n int) []byte {
	if cap(out) < n {
		return make([]byte, n)
	}
	return out[:n]
}
