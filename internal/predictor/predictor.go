// Package predictor implements the byte-delta predictor applied to image
// planes before deflate.
//
// Neighboring pixels of a rendered frame are usually close in value, so
// replacing each byte by its difference from the previous byte leaves long
// runs of small values that compress well.
package predictor

// Encode replaces every byte after the first by its difference from its
// predecessor, in place.
func Encode(data []byte) {
	for i := len(data) - 1; i >= 1; i-- {
		data[i] -= data[i-1]
	}
}

// Decode reverses Encode in place.
func Decode(data []byte) {
	for i := 1; i < len(data); i++ {
		data[i] += data[i-1]
	}
}
