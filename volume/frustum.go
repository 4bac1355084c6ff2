package volume

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

// FindPlaneNormal returns the unit normal of the plane through p1, p2 and
// p3, oriented by the right-hand rule. Collinear points give the zero
// vector.
func FindPlaneNormal(p1, p2, p3 r3.Vec) r3.Vec {
	n := r3.Cross(r3.Sub(p2, p1), r3.Sub(p3, p1))
	if r3.Norm(n) == 0 {
		return r3.Vec{}
	}
	return r3.Unit(n)
}

// BoxOnPlusSideOfPlane reports whether every corner of the box [lo, hi]
// lies strictly on the side of the plane through origin that normal
// points to.
func BoxOnPlusSideOfPlane(lo, hi, origin, normal r3.Vec) bool {
	for _, c := range boxCorners(lo, hi) {
		if r3.Dot(r3.Sub(c, origin), normal) <= 0 {
			return false
		}
	}
	return true
}

// GridOnPlusSideOfPlane reports whether the registered grid's bounding box
// lies entirely on the plus side of the plane. It is false when no grid
// is registered.
func (s *GridSampler) GridOnPlusSideOfPlane(origin, normal r3.Vec) bool {
	if s.grid == nil {
		return false
	}
	lo, hi := s.grid.Bounds()
	return BoxOnPlusSideOfPlane(lo, hi, origin, normal)
}

// FrustumIntersectsGrid reports whether the registered grid can intersect
// the view frustum of pixel columns [wMin, wMax] and rows [hMin, hMax],
// inclusive. The frustum's four sides and its near and far planes are
// taken to grid space; the grid is rejected when it lies entirely outside
// any of them.
func (s *GridSampler) FrustumIntersectsGrid(wMin, wMax, hMin, hMax int) bool {
	if s.grid == nil {
		return false
	}
	W, H := float64(s.vol.width), float64(s.vol.height)
	xl, xr := -1+2*float64(wMin)/W, -1+2*float64(wMax+1)/W
	yb, yt := -1+2*float64(hMin)/H, -1+2*float64(hMax+1)/H

	// Corners indexed by bit 0 = right, bit 1 = top, bit 2 = far.
	var c [8]r3.Vec
	var centroid r3.Vec
	for i := range c {
		p := mgl64.Vec3{xl, yb, -1}
		if i&1 != 0 {
			p[0] = xr
		}
		if i&2 != 0 {
			p[1] = yt
		}
		if i&4 != 0 {
			p[2] = 1
		}
		q := mgl64.TransformCoordinate(p, s.imageToWorld)
		c[i] = r3.Vec{X: q[0], Y: q[1], Z: q[2]}
		centroid = r3.Add(centroid, c[i])
	}
	centroid = r3.Scale(1.0/8, centroid)

	planes := [6][3]int{
		{0, 2, 4}, // left
		{1, 3, 5}, // right
		{0, 1, 4}, // bottom
		{2, 3, 6}, // top
		{0, 1, 2}, // near
		{4, 5, 6}, // far
	}
	for _, p := range planes {
		origin := c[p[0]]
		n := FindPlaneNormal(origin, c[p[1]], c[p[2]])
		if n == (r3.Vec{}) {
			continue
		}
		if r3.Dot(r3.Sub(centroid, origin), n) > 0 {
			n = r3.Scale(-1, n)
		}
		if s.GridOnPlusSideOfPlane(origin, n) {
			return false
		}
	}
	return true
}

func boxCorners(lo, hi r3.Vec) [8]r3.Vec {
	var c [8]r3.Vec
	for i := range c {
		c[i] = lo
		if i&1 != 0 {
			c[i].X = hi.X
		}
		if i&2 != 0 {
			c[i].Y = hi.Y
		}
		if i&4 != 0 {
			c[i].Z = hi.Z
		}
	}
	return c
}
