package volume

import (
	"image"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// SamplerOption configures a GridSampler.
type SamplerOption func(*GridSampler)

// WithLogger sets the logger used to report skipped grids.
func WithLogger(l zerolog.Logger) SamplerOption {
	return func(s *GridSampler) { s.log = l }
}

// WithGradients controls whether gradients of variable 0 are written. It
// has no effect when the Volume has no gradient storage.
func WithGradients(on bool) SamplerOption {
	return func(s *GridSampler) { s.gradients = on && s.vol.HasGradients() }
}

// GridSampler writes the samples of rectilinear grids into a Volume.
//
// Registering a grid caches its coordinates and the reciprocal of every
// coordinate span, the divisor cache. A zero-length span caches 0 and is
// never sampled.
type GridSampler struct {
	vol       *Volume
	log       zerolog.Logger
	gradients bool

	grid     *RectilinearGrid
	coords   [3][]float32
	divisors [3][]float32
	slots    []int

	worldSpace   bool
	worldToImage mgl64.Mat4
	imageToWorld mgl64.Mat4
	worldToView  mgl64.Mat4

	region image.Rectangle
	domain int
	vals   []float32
}

// NewGridSampler returns a sampler writing into vol over the whole image
// in image space.
func NewGridSampler(vol *Volume, opts ...SamplerOption) *GridSampler {
	s := &GridSampler{
		vol:          vol,
		log:          zerolog.Nop(),
		gradients:    vol.HasGradients(),
		worldToImage: mgl64.Ident4(),
		imageToWorld: mgl64.Ident4(),
		worldToView:  mgl64.Ident4(),
		region:       image.Rect(0, 0, vol.Width(), vol.Height()),
		slots:        make([]int, len(vol.variables)),
		vals:         make([]float32, len(vol.variables)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetDomain sets the domain id recorded in the cell list.
func (s *GridSampler) SetDomain(id int) { s.domain = id }

// SetRestrictedRegion limits writes to pixel columns [wMin, wMax] and rows
// [hMin, hMax], inclusive.
func (s *GridSampler) SetRestrictedRegion(wMin, wMax, hMin, hMax int) {
	s.region = image.Rect(wMin, hMin, wMax+1, hMax+1).Intersect(image.Rect(0, 0, s.vol.width, s.vol.height))
}

// ClearRestrictedRegion lets the sampler write every pixel.
func (s *GridSampler) ClearRestrictedRegion() {
	s.region = image.Rect(0, 0, s.vol.width, s.vol.height)
}

// SetGridsAreInWorldSpace selects whether grids are given in world space,
// in which case view and aspect (width / height) define the transform to
// image space, or already in normalized image space.
func (s *GridSampler) SetGridsAreInWorldSpace(on bool, view View, aspect float64) error {
	if !on {
		s.worldSpace = false
		s.worldToImage, s.imageToWorld, s.worldToView = mgl64.Ident4(), mgl64.Ident4(), mgl64.Ident4()
		return nil
	}
	if err := view.Validate(aspect); err != nil {
		return err
	}
	m := view.WorldToImage(aspect)
	if m.Det() == 0 {
		return ErrInvalidView
	}
	s.worldSpace = true
	s.worldToImage = m
	s.imageToWorld = m.Inv()
	s.worldToView = view.WorldToView()
	return nil
}

// RegisterGrid caches g's coordinates and rebuilds the divisor cache. It
// returns false, leaving no grid registered, when g is malformed or lacks
// one of the Volume's variables.
func (s *GridSampler) RegisterGrid(g *RectilinearGrid) bool {
	s.grid = nil
	s.coords = [3][]float32{}
	s.divisors = [3][]float32{}
	if g == nil {
		return false
	}
	if err := g.Validate(); err != nil {
		s.log.Debug().Err(err).Int("domain", s.domain).Msg("skipping malformed grid")
		return false
	}
	for i, name := range s.vol.variables {
		s.slots[i] = -1
		for j := range g.Variables {
			if g.Variables[j].Name == name {
				s.slots[i] = j
				break
			}
		}
		if s.slots[i] < 0 {
			s.log.Debug().Int("domain", s.domain).Str("variable", name).Msg("skipping grid without variable")
			return false
		}
	}

	for a := 0; a < 3; a++ {
		c := g.Coords(a)
		d := make([]float32, len(c)-1)
		for i := range d {
			if span := c[i+1] - c[i]; span > 0 {
				d[i] = 1 / span
			}
		}
		s.coords[a] = c
		s.divisors[a] = d
	}
	s.grid = g
	return true
}

// Divisors returns the cached reciprocal spans of axis 0, 1 or 2.
func (s *GridSampler) Divisors(axis int) []float32 {
	return s.divisors[axis]
}

// Extract registers g and writes its samples into the Volume. It returns
// the number of samples written; grids that are malformed, fully ghosted
// or outside the view write none.
func (s *GridSampler) Extract(g *RectilinearGrid) int {
	if !s.RegisterGrid(g) {
		return 0
	}
	if s.region.Empty() {
		return 0
	}
	if allGhost(g) {
		s.log.Debug().Int("domain", s.domain).Msg("skipping fully ghosted grid")
		return 0
	}

	var n int
	var touched image.Rectangle
	if s.worldSpace {
		n, touched = s.extractWorld()
	} else {
		n, touched = s.extractImage()
	}
	if n > 0 {
		s.vol.cells.add(CellRecord{Domain: s.domain, Bounds: touched, Samples: n})
	}
	return n
}

func (s *GridSampler) extractImage() (int, image.Rectangle) {
	X, Y, Z := s.coords[0], s.coords[1], s.coords[2]
	W, H, N := s.vol.width, s.vol.height, s.vol.numSamples

	cols := centerSpan(X[0], X[len(X)-1], W, s.region.Min.X, s.region.Max.X)
	rows := centerSpan(Y[0], Y[len(Y)-1], H, s.region.Min.Y, s.region.Max.Y)
	depth := centerSpan(Z[0], Z[len(Z)-1], N, 0, N)
	if cols[0] >= cols[1] || rows[0] >= rows[1] || depth[0] >= depth[1] {
		s.log.Debug().Int("domain", s.domain).Msg("grid outside image")
		return 0, image.Rectangle{}
	}
	if !s.FrustumIntersectsGrid(cols[0], cols[1]-1, rows[0], rows[1]-1) {
		s.log.Debug().Int("domain", s.domain).Msg("grid outside frustum")
		return 0, image.Rectangle{}
	}

	total := 0
	var touched image.Rectangle
	for h := rows[0]; h < rows[1]; h++ {
		y := pixelCenter(h, H)
		iy := locate(Y, y)
		if iy < 0 {
			continue
		}
		for w := cols[0]; w < cols[1]; w++ {
			x := pixelCenter(w, W)
			ix := locate(X, x)
			if ix < 0 {
				continue
			}
			if n := s.SampleAlongSegment(w, h, ix, iy, x, y, depth[0], depth[1]); n > 0 {
				total += n
				touched = touched.Union(image.Rect(w, h, w+1, h+1))
			}
		}
	}
	return total, touched
}

// SampleAlongSegment samples the column of cells (ix, iy, *) crossed by
// the ray of pixel (w, h) at image-space position (x, y), for depth
// samples [k0, k1). It returns the number of samples written.
func (s *GridSampler) SampleAlongSegment(w, h, ix, iy int, x, y float32, k0, k1 int) int {
	ray := s.vol.Ray(w, h)
	X, Y, Z := s.coords[0], s.coords[1], s.coords[2]
	N := ray.numSamples
	tx := (x - X[ix]) * s.divisors[0][ix]
	ty := (y - Y[iy]) * s.divisors[1][iy]

	n := 0
	iz := -1
	for k := k0; k < k1; k++ {
		z := pixelCenter(k, N)
		if iz < 0 {
			if iz = locate(Z, z); iz < 0 {
				continue
			}
		} else {
			for iz < len(Z)-1 && z >= Z[iz+1] {
				iz++
			}
			if iz == len(Z)-1 {
				break
			}
		}
		if s.isGhost(ix, iy, iz) {
			continue
		}
		t := [3]float32{tx, ty, (z - Z[iz]) * s.divisors[2][iz]}
		s.writeSample(ray, IndexOfDepth((float64(z)+1)/2, N), ix, iy, iz, t)
		n++
	}
	return n
}

func (s *GridSampler) writeSample(ray *RayAccumulator, idx, ix, iy, iz int, t [3]float32) {
	for v := range s.vals {
		s.vals[v] = s.SampleVariable(v, ix, iy, iz, t)
	}
	ray.SetSample(idx, s.vals)
	if s.gradients {
		ray.SetGradient(idx, s.gradient(ix, iy, iz, t))
	}
}

// SampleVariable returns Volume variable slot v in cell (ix, iy, iz) at
// parametric position t within the cell. Point-centered data is
// trilinearly interpolated from the eight corners; cell-centered data is
// constant over the cell.
func (s *GridSampler) SampleVariable(v, ix, iy, iz int, t [3]float32) float32 {
	vr := &s.grid.Variables[s.slots[v]]
	if vr.Centering == CellCentered {
		return vr.Values[s.grid.cellIndex(ix, iy, iz)]
	}
	c := s.corners(vr.Values, ix, iy, iz)
	c00 := c[0] + (c[1]-c[0])*t[0]
	c10 := c[2] + (c[3]-c[2])*t[0]
	c01 := c[4] + (c[5]-c[4])*t[0]
	c11 := c[6] + (c[7]-c[6])*t[0]
	c0 := c00 + (c10-c00)*t[1]
	c1 := c01 + (c11-c01)*t[1]
	return c0 + (c1-c0)*t[2]
}

// corners returns the point values of a cell ordered x fastest, then y,
// then z.
func (s *GridSampler) corners(vals []float32, ix, iy, iz int) [8]float32 {
	nx := s.grid.Dims[0]
	nxy := nx * s.grid.Dims[1]
	p := s.grid.pointIndex(ix, iy, iz)
	return [8]float32{
		vals[p], vals[p+1], vals[p+nx], vals[p+nx+1],
		vals[p+nxy], vals[p+nxy+1], vals[p+nxy+nx], vals[p+nxy+nx+1],
	}
}

// gradient returns the analytic gradient of the trilinear field of
// variable 0. Image-space grids give it in image coordinates. World-space
// gradients are rotated into view coordinates, with z flipped to follow
// image depth, but not projected. Cell-centered data has no gradient.
func (s *GridSampler) gradient(ix, iy, iz int, t [3]float32) [3]float32 {
	vr := &s.grid.Variables[s.slots[0]]
	if vr.Centering == CellCentered {
		return [3]float32{}
	}
	c := s.corners(vr.Values, ix, iy, iz)
	tx, ty, tz := t[0], t[1], t[2]
	lerp2 := func(a, b, c, d, u, v float32) float32 {
		return (1-u)*(1-v)*a + u*(1-v)*b + (1-u)*v*c + u*v*d
	}
	g := [3]float32{
		s.divisors[0][ix] * lerp2(c[1]-c[0], c[3]-c[2], c[5]-c[4], c[7]-c[6], ty, tz),
		s.divisors[1][iy] * lerp2(c[2]-c[0], c[3]-c[1], c[6]-c[4], c[7]-c[5], tx, tz),
		s.divisors[2][iz] * lerp2(c[4]-c[0], c[5]-c[1], c[6]-c[2], c[7]-c[3], tx, ty),
	}
	if s.worldSpace {
		e := s.worldToView.Mul4x1(mgl64.Vec4{float64(g[0]), float64(g[1]), float64(g[2]), 0})
		g = [3]float32{float32(e[0]), float32(e[1]), float32(-e[2])}
	}
	return g
}

func (s *GridSampler) isGhost(ix, iy, iz int) bool {
	return s.grid.Ghost != nil && s.grid.Ghost[s.grid.cellIndex(ix, iy, iz)] != 0
}

func allGhost(g *RectilinearGrid) bool {
	if g.Ghost == nil {
		return false
	}
	for _, v := range g.Ghost {
		if v == 0 {
			return false
		}
	}
	return true
}

// pixelCenter returns the normalized device coordinate of the center of
// pixel (or depth sample) i of n.
func pixelCenter(i, n int) float32 {
	return float32(-1 + (2*float64(i)+1)/float64(n))
}

// centerSpan returns the half-open index range, clipped to [lo, hi), of
// the pixels of n whose centers may fall in [a, b]. The range is
// conservative; callers locate each center exactly.
func centerSpan(a, b float32, n, lo, hi int) [2]int {
	first := math.Floor((float64(a)+1)*float64(n)/2 - 0.5)
	last := math.Ceil((float64(b)+1)*float64(n)/2 - 0.5)
	first = math.Max(first, float64(lo))
	last = math.Min(last+1, float64(hi))
	if !(first < last) {
		return [2]int{lo, lo}
	}
	return [2]int{int(first), int(last)}
}

// locate returns i such that c[i] <= v < c[i+1], or -1 when v is outside
// [c[0], c[len-1]). Zero-length spans are never returned.
func locate(c []float32, v float32) int {
	if len(c) < 2 || !(v >= c[0]) || v >= c[len(c)-1] {
		return -1
	}
	return sort.Search(len(c), func(j int) bool { return c[j] > v }) - 1
}
