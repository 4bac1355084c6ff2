package volume

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/chewxy/math32"
)

// RGBA is a non-premultiplied color with opacity, each in [0,1].
type RGBA struct {
	R, G, B, A float32
}

func (c RGBA) clamped() RGBA {
	return RGBA{R: clamp01(c.R), G: clamp01(c.G), B: clamp01(c.B), A: clamp01(c.A)}
}

func lerpRGBA(a, b RGBA, t float32) RGBA {
	return RGBA{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}

// clamp01 clamps v to [0,1] and maps NaN to 0.
func clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ControlPoint places a color at a normalized position in [0,1] of a
// transfer function's scalar range.
type ControlPoint struct {
	Position float32
	Color    RGBA
}

// TransferFunction maps scalar values to colors through a fixed table of
// bins spanning [Min, Max]. Values outside the range use the edge bins.
// A TransferFunction must not be modified while rays are being composited.
type TransferFunction struct {
	bins     []RGBA
	min, max float32
	logScale bool
	rangeMax *RangeMaxTable
}

// NewTransferFunction builds a table from bins. Bin colors are clamped to
// [0,1].
func NewTransferFunction(bins []RGBA, lo, hi float32) (*TransferFunction, error) {
	if len(bins) == 0 {
		return nil, fmt.Errorf("%w: no bins", ErrInvalidTransferFunction)
	}
	if math32.IsNaN(lo) || math32.IsNaN(hi) || math32.IsInf(lo, 0) || math32.IsInf(hi, 0) || lo > hi {
		return nil, fmt.Errorf("%w: range [%v, %v]", ErrInvalidTransferFunction, lo, hi)
	}
	tf := &TransferFunction{bins: make([]RGBA, len(bins)), min: lo, max: hi}
	alpha := make([]float32, len(bins))
	for i, b := range bins {
		tf.bins[i] = b.clamped()
		alpha[i] = tf.bins[i].A
	}
	tf.rangeMax = NewRangeMaxTable(alpha)
	return tf, nil
}

// FromControlPoints samples a piecewise linear ramp through pts into n
// bins. Points are sorted by position; bins before the first or after the
// last point take that point's color.
func FromControlPoints(n int, pts []ControlPoint, lo, hi float32) (*TransferFunction, error) {
	if n <= 0 || len(pts) == 0 {
		return nil, fmt.Errorf("%w: %d bins from %d control points", ErrInvalidTransferFunction, n, len(pts))
	}
	sorted := slices.Clone(pts)
	slices.SortStableFunc(sorted, func(a, b ControlPoint) int {
		switch {
		case a.Position < b.Position:
			return -1
		case a.Position > b.Position:
			return 1
		}
		return 0
	})

	bins := make([]RGBA, n)
	j := 0
	for i := range bins {
		p := (float32(i) + 0.5) / float32(n)
		for j < len(sorted)-1 && sorted[j+1].Position <= p {
			j++
		}
		a := sorted[j]
		switch {
		case p <= a.Position || j == len(sorted)-1:
			bins[i] = a.Color
		default:
			b := sorted[j+1]
			bins[i] = lerpRGBA(a.Color, b.Color, (p-a.Position)/(b.Position-a.Position))
		}
	}
	return NewTransferFunction(bins, lo, hi)
}

// SetLogScale switches the scalar-to-bin mapping to log10. It only takes
// effect when Min is positive.
func (tf *TransferFunction) SetLogScale(on bool) { tf.logScale = on }

// LogScale reports whether the log10 mapping is requested.
func (tf *TransferFunction) LogScale() bool { return tf.logScale }

// NumBins returns the table size.
func (tf *TransferFunction) NumBins() int { return len(tf.bins) }

// Min returns the low end of the scalar range.
func (tf *TransferFunction) Min() float32 { return tf.min }

// Max returns the high end of the scalar range.
func (tf *TransferFunction) Max() float32 { return tf.max }

// Bins returns the table. The slice must not be modified.
func (tf *TransferFunction) Bins() []RGBA { return tf.bins }

// RangeMax returns the range-max table over bin opacities.
func (tf *TransferFunction) RangeMax() *RangeMaxTable { return tf.rangeMax }

// Normalize maps v to [0,1] across the scalar range. NaN stays NaN.
func (tf *TransferFunction) Normalize(v float32) float32 {
	if math32.IsNaN(v) {
		return v
	}
	lo, hi := tf.min, tf.max
	if tf.logScale && lo > 0 {
		if v <= 0 {
			return 0
		}
		v, lo, hi = math32.Log10(v), math32.Log10(lo), math32.Log10(hi)
	}
	if hi <= lo {
		if v < lo {
			return 0
		}
		if v > hi {
			return 1
		}
		return 0.5
	}
	t := (v - lo) / (hi - lo)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Bin returns the table index for v, or -1 for NaN.
func (tf *TransferFunction) Bin(v float32) int {
	t := tf.Normalize(v)
	if math32.IsNaN(t) {
		return -1
	}
	i := int(t * float32(len(tf.bins)))
	if i >= len(tf.bins) {
		i = len(tf.bins) - 1
	}
	return i
}

// Lookup returns the bin color for v. NaN maps to a transparent color.
func (tf *TransferFunction) Lookup(v float32) RGBA {
	i := tf.Bin(v)
	if i < 0 {
		return RGBA{}
	}
	return tf.bins[i]
}

// LookupInterpolated blends the two bins whose centers bracket v.
func (tf *TransferFunction) LookupInterpolated(v float32) RGBA {
	t := tf.Normalize(v)
	if math32.IsNaN(t) {
		return RGBA{}
	}
	n := len(tf.bins)
	p := t*float32(n) - 0.5
	if p <= 0 {
		return tf.bins[0]
	}
	if p >= float32(n-1) {
		return tf.bins[n-1]
	}
	i := int(math32.Floor(p))
	return lerpRGBA(tf.bins[i], tf.bins[i+1], p-float32(i))
}

// MaxOpacity returns the largest bin opacity reachable by values in
// [lo, hi].
func (tf *TransferFunction) MaxOpacity(lo, hi float32) float32 {
	a, b := tf.Bin(lo), tf.Bin(hi)
	if a < 0 || b < 0 {
		a, b = 0, len(tf.bins)-1
	}
	return tf.rangeMax.Max(a, b)
}

// MaxOpacityInterpolated is MaxOpacity for LookupInterpolated, which
// blends each bin with its neighbor on either side.
func (tf *TransferFunction) MaxOpacityInterpolated(lo, hi float32) float32 {
	a, b := tf.Bin(lo), tf.Bin(hi)
	if a < 0 || b < 0 {
		a, b = 0, len(tf.bins)-1
	}
	if a > b {
		a, b = b, a
	}
	return tf.rangeMax.Max(a-1, b+1)
}

// RangeMaxTable answers range-maximum queries over a fixed slice in
// constant time using a sparse table.
type RangeMaxTable struct {
	levels [][]float32
}

// NewRangeMaxTable builds a table over vals.
func NewRangeMaxTable(vals []float32) *RangeMaxTable {
	t := &RangeMaxTable{levels: [][]float32{slices.Clone(vals)}}
	for span := 1; 2*span <= len(vals); span *= 2 {
		prev := t.levels[len(t.levels)-1]
		next := make([]float32, len(prev)-span)
		for i := range next {
			next[i] = max(prev[i], prev[i+span])
		}
		t.levels = append(t.levels, next)
	}
	return t
}

// Len returns the number of entries.
func (t *RangeMaxTable) Len() int { return len(t.levels[0]) }

// Max returns the maximum over the inclusive index range [lo, hi]. The
// bounds are swapped when reversed and clamped to the table.
func (t *RangeMaxTable) Max(lo, hi int) float32 {
	n := t.Len()
	if n == 0 {
		return 0
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	lo, hi = max(lo, 0), min(hi, n-1)
	if lo > hi {
		return 0
	}
	k := bits.Len(uint(hi-lo+1)) - 1
	row := t.levels[k]
	return max(row[lo], row[hi-(1<<k)+1])
}
