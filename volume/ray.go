package volume

import "math"

// IndexOfDepth maps a normalized depth in [0,1] to the index of the sample
// whose slab contains it: floor(depth*numSamples), clamped to
// [0, numSamples-1]. A depth exactly on a slab boundary belongs to the
// farther sample. NaN maps to 0.
func IndexOfDepth(depth float64, numSamples int) int {
	if numSamples <= 0 || !(depth > 0) {
		return 0
	}
	i := math.Floor(depth * float64(numSamples))
	if i >= float64(numSamples-1) {
		return numSamples - 1
	}
	return int(i)
}

// DepthOfIndex returns the normalized depth of the center of sample i.
func DepthOfIndex(i, numSamples int) float64 {
	return (float64(i) + 0.5) / float64(numSamples)
}

// RayAccumulator holds the ordered samples of one camera ray. Index 0 is
// nearest to the camera. Storage is a view into the arenas of the owning
// Volume.
type RayAccumulator struct {
	numSamples int
	numVars    int
	valid      []bool
	values     []float32
	gradients  []float32
}

// NewRayAccumulator allocates a standalone ray.
func NewRayAccumulator(numSamples, numVars int, gradients bool) *RayAccumulator {
	r := &RayAccumulator{
		numSamples: numSamples,
		numVars:    numVars,
		valid:      make([]bool, numSamples),
		values:     make([]float32, numSamples*numVars),
	}
	if gradients {
		r.gradients = make([]float32, numSamples*3)
	}
	return r
}

// NumSamples returns the number of sample slots.
func (r *RayAccumulator) NumSamples() int { return r.numSamples }

// NumVariables returns the number of values stored per sample.
func (r *RayAccumulator) NumVariables() int { return r.numVars }

// Valid reports whether sample i has been written.
func (r *RayAccumulator) Valid(i int) bool { return r.valid[i] }

// Value returns variable v of sample i.
func (r *RayAccumulator) Value(i, v int) float32 {
	return r.values[i*r.numVars+v]
}

// Values returns all variables of sample i. The slice aliases the ray.
func (r *RayAccumulator) Values(i int) []float32 {
	return r.values[i*r.numVars : (i+1)*r.numVars]
}

// SetSample stores vals as sample i and marks it valid. Extra values are
// ignored, missing ones are left untouched.
func (r *RayAccumulator) SetSample(i int, vals []float32) {
	copy(r.Values(i), vals)
	r.valid[i] = true
}

// HasGradients reports whether the ray stores per-sample gradients.
func (r *RayAccumulator) HasGradients() bool { return r.gradients != nil }

// Gradients returns the gradient storage, three values per sample, or nil.
func (r *RayAccumulator) Gradients() []float32 { return r.gradients }

// Gradient returns the gradient of sample i. It is zero when the ray has no
// gradient storage.
func (r *RayAccumulator) Gradient(i int) [3]float32 {
	if r.gradients == nil {
		return [3]float32{}
	}
	g := r.gradients[i*3 : i*3+3]
	return [3]float32{g[0], g[1], g[2]}
}

// SetGradient stores the gradient of sample i. It is a no-op when the ray
// has no gradient storage.
func (r *RayAccumulator) SetGradient(i int, g [3]float32) {
	if r.gradients == nil {
		return
	}
	copy(r.gradients[i*3:i*3+3], g[:])
}

// ValidCount returns the number of valid samples.
func (r *RayAccumulator) ValidCount() int {
	n := 0
	for _, ok := range r.valid {
		if ok {
			n++
		}
	}
	return n
}

// FirstValid returns the index of the nearest valid sample, or -1.
func (r *RayAccumulator) FirstValid() int {
	for i, ok := range r.valid {
		if ok {
			return i
		}
	}
	return -1
}

// Reset marks every sample invalid.
func (r *RayAccumulator) Reset() {
	clear(r.valid)
}
