package volume

import (
	"fmt"
	"image"
	"slices"
	"sync"

	"github.com/chewxy/math32"
)

// CellRecord describes the contribution of one Extract call.
type CellRecord struct {
	Domain  int
	Bounds  image.Rectangle // pixel columns (X) and rows (Y) written
	Samples int
}

// CellList collects the contributions written into a Volume since the
// last reset. It is safe for concurrent use.
type CellList struct {
	mu      sync.Mutex
	records []CellRecord
}

func (l *CellList) add(r CellRecord) {
	l.mu.Lock()
	l.records = append(l.records, r)
	l.mu.Unlock()
}

// Len returns the number of records.
func (l *CellList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Records returns a copy of the records.
func (l *CellList) Records() []CellRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Samples returns the total number of samples recorded.
func (l *CellList) Samples() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		n += r.Samples
	}
	return n
}

func (l *CellList) reset() {
	l.mu.Lock()
	l.records = l.records[:0]
	l.mu.Unlock()
}

// Volume holds one RayAccumulator per pixel of a width×height image. All
// rays share three contiguous arenas for validity flags, values and
// gradients.
type Volume struct {
	width, height int
	numSamples    int
	variables     []string

	valid     []bool
	values    []float32
	gradients []float32
	rays      []RayAccumulator

	cells CellList
}

// NewVolume allocates a Volume. variables names the values stored per
// sample; index 0 is the variable that is colored.
func NewVolume(width, height, numSamples int, variables []string, gradients bool) (*Volume, error) {
	if width <= 0 || height <= 0 || numSamples <= 0 {
		return nil, fmt.Errorf("%w: %dx%d with %d samples", ErrInvalidSize, width, height, numSamples)
	}
	if len(variables) == 0 {
		return nil, ErrNoVariables
	}
	if len(variables) > VariableLimit {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyVariables, len(variables), VariableLimit)
	}

	nv := len(variables)
	pixels := width * height
	v := &Volume{
		width:      width,
		height:     height,
		numSamples: numSamples,
		variables:  slices.Clone(variables),
		valid:      make([]bool, pixels*numSamples),
		values:     make([]float32, pixels*numSamples*nv),
		rays:       make([]RayAccumulator, pixels),
	}
	if gradients {
		v.gradients = make([]float32, pixels*numSamples*3)
	}
	for p := range v.rays {
		r := &v.rays[p]
		r.numSamples = numSamples
		r.numVars = nv
		r.valid = v.valid[p*numSamples : (p+1)*numSamples]
		r.values = v.values[p*numSamples*nv : (p+1)*numSamples*nv]
		if gradients {
			r.gradients = v.gradients[p*numSamples*3 : (p+1)*numSamples*3]
		}
	}
	return v, nil
}

// Width returns the number of pixel columns.
func (v *Volume) Width() int { return v.width }

// Height returns the number of pixel rows.
func (v *Volume) Height() int { return v.height }

// NumSamples returns the number of samples per ray.
func (v *Volume) NumSamples() int { return v.numSamples }

// Variables returns the variable names.
func (v *Volume) Variables() []string { return slices.Clone(v.variables) }

// VariableIndex returns the slot of the named variable, or -1.
func (v *Volume) VariableIndex(name string) int {
	return slices.Index(v.variables, name)
}

// HasGradients reports whether rays store gradients.
func (v *Volume) HasGradients() bool { return v.gradients != nil }

// Ray returns the accumulator of pixel column w, row h.
func (v *Volume) Ray(w, h int) *RayAccumulator {
	return &v.rays[h*v.width+w]
}

// CellList returns the contribution records.
func (v *Volume) CellList() *CellList { return &v.cells }

// ResetCellList invalidates every sample and clears the cell list so the
// Volume can be reused for the next image.
func (v *Volume) ResetCellList() {
	clear(v.valid)
	v.cells.reset()
}

// TouchedBounds returns the smallest pixel rectangle containing every
// recorded contribution. ok is false when nothing was written.
func (v *Volume) TouchedBounds() (r image.Rectangle, ok bool) {
	for _, rec := range v.cells.Records() {
		if rec.Samples == 0 {
			continue
		}
		r = r.Union(rec.Bounds)
		ok = true
	}
	return r, ok
}

// Ranges returns the per-variable value range of g in Volume slot order,
// for use with RayFunction.CanContributeToPicture. Missing variables get
// an infinite range.
func (v *Volume) Ranges(g *RectilinearGrid) []ValueRange {
	out := make([]ValueRange, len(v.variables))
	for i, name := range v.variables {
		r, ok := g.Range(name)
		if !ok {
			r = ValueRange{Min: math32.Inf(-1), Max: math32.Inf(1)}
		}
		out[i] = r
	}
	return out
}

// FrameData is a composited image in planar layout, indexed row*Width+col.
// Z holds the normalized depth of the nearest valid sample, 1 where the
// ray had none.
type FrameData struct {
	Width, Height int
	R, G, B, A, Z []float32
}

// Composite reduces every ray with rf in front of background. depthLimits,
// when non-nil, holds one normalized depth per pixel beyond which samples
// are ignored. Rows are processed in parallel.
func (v *Volume) Composite(rf RayFunction, background [3]float32, depthLimits []float32, cfg ParallelConfig) *FrameData {
	n := v.width * v.height
	fd := &FrameData{
		Width:  v.width,
		Height: v.height,
		R:      make([]float32, n),
		G:      make([]float32, n),
		B:      make([]float32, n),
		A:      make([]float32, n),
		Z:      make([]float32, n),
	}
	ParallelFor(cfg, v.height, func(h0, h1 int) {
		for h := h0; h < h1; h++ {
			for w := 0; w < v.width; w++ {
				p := h*v.width + w
				ray := &v.rays[p]
				limit := 1.0
				if depthLimits != nil {
					limit = float64(depthLimits[p])
				}
				rgb := background
				fd.A[p] = rf.GetRayValue(ray, ray.gradients, &rgb, limit)
				fd.R[p], fd.G[p], fd.B[p] = rgb[0], rgb[1], rgb[2]
				fd.Z[p] = 1
				if i := ray.FirstValid(); i >= 0 {
					fd.Z[p] = float32(DepthOfIndex(i, v.numSamples))
				}
			}
		}
	})
	return fd
}
