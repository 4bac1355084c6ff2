package volume

import (
	"fmt"

	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// VariableLimit is the maximum number of variables a Volume or a grid can
// carry.
const VariableLimit = 10

// Centering says whether a variable is defined at grid points or per cell.
type Centering int

const (
	PointCentered Centering = iota
	CellCentered
)

func (c Centering) String() string {
	switch c {
	case PointCentered:
		return "point"
	case CellCentered:
		return "cell"
	default:
		return fmt.Sprintf("Centering(%d)", int(c))
	}
}

// Variable is a named scalar field on a grid. Point-centered values are
// indexed i + j*nx + k*nx*ny over points, cell-centered values use the
// same order over cells.
type Variable struct {
	Name      string
	Centering Centering
	Values    []float32
}

// RectilinearGrid is an axis-aligned block with per-axis coordinates.
//
// Dims holds the number of points along each axis; X, Y and Z must have
// exactly that many non-decreasing entries. Ghost, when non-nil, holds one
// entry per cell and any non-zero entry excludes that cell from sampling.
type RectilinearGrid struct {
	Dims      [3]int
	X, Y, Z   []float32
	Ghost     []uint8
	Variables []Variable
}

// NewUniformGrid builds a grid with dims points per axis evenly spaced
// between lo and hi.
func NewUniformGrid(dims [3]int, lo, hi [3]float32) *RectilinearGrid {
	g := &RectilinearGrid{Dims: dims}
	axes := [3]*[]float32{&g.X, &g.Y, &g.Z}
	for a := 0; a < 3; a++ {
		n := dims[a]
		if n <= 0 {
			continue
		}
		c := make([]float32, n)
		for i := range c {
			if n == 1 {
				c[i] = lo[a]
				continue
			}
			c[i] = lo[a] + (hi[a]-lo[a])*float32(i)/float32(n-1)
		}
		*axes[a] = c
	}
	return g
}

// Coords returns the coordinate array of axis 0, 1 or 2.
func (g *RectilinearGrid) Coords(axis int) []float32 {
	switch axis {
	case 0:
		return g.X
	case 1:
		return g.Y
	case 2:
		return g.Z
	}
	return nil
}

// NumPoints returns the number of grid points.
func (g *RectilinearGrid) NumPoints() int {
	return g.Dims[0] * g.Dims[1] * g.Dims[2]
}

// NumCells returns the number of cells, zero when any axis has fewer than
// two points.
func (g *RectilinearGrid) NumCells() int {
	n := 1
	for _, d := range g.Dims {
		if d < 2 {
			return 0
		}
		n *= d - 1
	}
	return n
}

// AddVariable appends a variable. It does not validate the value count.
func (g *RectilinearGrid) AddVariable(name string, c Centering, values []float32) {
	g.Variables = append(g.Variables, Variable{Name: name, Centering: c, Values: values})
}

// Variable returns the variable with the given name.
func (g *RectilinearGrid) Variable(name string) (*Variable, bool) {
	for i := range g.Variables {
		if g.Variables[i].Name == name {
			return &g.Variables[i], true
		}
	}
	return nil, false
}

// Validate reports the first structural problem of the grid.
func (g *RectilinearGrid) Validate() error {
	for a := 0; a < 3; a++ {
		if g.Dims[a] < 2 {
			return fmt.Errorf("%w: axis %d has %d points", ErrInvalidGrid, a, g.Dims[a])
		}
		c := g.Coords(a)
		if len(c) != g.Dims[a] {
			return fmt.Errorf("%w: axis %d has %d coordinates, want %d", ErrInvalidGrid, a, len(c), g.Dims[a])
		}
		for i, v := range c {
			if math32.IsNaN(v) || math32.IsInf(v, 0) {
				return fmt.Errorf("%w: axis %d coordinate %d is not finite", ErrInvalidGrid, a, i)
			}
			if i > 0 && !(v >= c[i-1]) {
				return fmt.Errorf("%w: axis %d coordinates are not monotonic at %d", ErrInvalidGrid, a, i)
			}
		}
	}
	if g.Ghost != nil && len(g.Ghost) != g.NumCells() {
		return fmt.Errorf("%w: ghost mask has %d entries, want %d", ErrInvalidGrid, len(g.Ghost), g.NumCells())
	}
	if len(g.Variables) > VariableLimit {
		return fmt.Errorf("%w: %d variables", ErrTooManyVariables, len(g.Variables))
	}
	for _, v := range g.Variables {
		want := g.NumPoints()
		if v.Centering == CellCentered {
			want = g.NumCells()
		}
		if len(v.Values) != want {
			return fmt.Errorf("%w: variable %q has %d values, want %d", ErrInvalidGrid, v.Name, len(v.Values), want)
		}
	}
	return nil
}

// Bounds returns the corners of the grid's bounding box. The grid must
// have at least one coordinate on every axis.
func (g *RectilinearGrid) Bounds() (lo, hi r3.Vec) {
	lo = r3.Vec{X: float64(g.X[0]), Y: float64(g.Y[0]), Z: float64(g.Z[0])}
	hi = r3.Vec{X: float64(g.X[len(g.X)-1]), Y: float64(g.Y[len(g.Y)-1]), Z: float64(g.Z[len(g.Z)-1])}
	return lo, hi
}

// Range returns the finite minimum and maximum of the named variable,
// ignoring ghost cells for cell-centered data. ok is false when the
// variable is missing or has no finite value.
func (g *RectilinearGrid) Range(name string) (r ValueRange, ok bool) {
	v, found := g.Variable(name)
	if !found {
		return ValueRange{}, false
	}
	r = ValueRange{Min: math32.Inf(1), Max: math32.Inf(-1)}
	for i, x := range v.Values {
		if math32.IsNaN(x) || math32.IsInf(x, 0) {
			continue
		}
		if v.Centering == CellCentered && g.Ghost != nil && i < len(g.Ghost) && g.Ghost[i] != 0 {
			continue
		}
		r.Min = min(r.Min, x)
		r.Max = max(r.Max, x)
	}
	return r, r.Min <= r.Max
}

func (g *RectilinearGrid) pointIndex(i, j, k int) int {
	return i + g.Dims[0]*(j+g.Dims[1]*k)
}

func (g *RectilinearGrid) cellIndex(i, j, k int) int {
	return i + (g.Dims[0]-1)*(j+(g.Dims[1]-1)*k)
}
