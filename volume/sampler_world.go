package volume

import (
	"image"

	"github.com/go-gl/mathgl/mgl64"
)

// tileSize is the edge, in pixels, of the screen tiles culled against the
// grid before sampling world-space grids.
const tileSize = 16

// extractWorld samples a world-space grid. Every depth sample of every
// candidate pixel is taken back to world space and located in the grid by
// binary search.
func (s *GridSampler) extractWorld() (int, image.Rectangle) {
	W, H, N := s.vol.width, s.vol.height, s.vol.numSamples

	lo, hi, ok := s.projectBounds()
	if !ok {
		s.log.Debug().Int("domain", s.domain).Msg("grid outside frustum")
		return 0, image.Rectangle{}
	}
	cols := centerSpan(float32(lo[0]), float32(hi[0]), W, s.region.Min.X, s.region.Max.X)
	rows := centerSpan(float32(lo[1]), float32(hi[1]), H, s.region.Min.Y, s.region.Max.Y)
	depth := centerSpan(float32(lo[2]), float32(hi[2]), N, 0, N)
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
	for th := rows[0]; th < rows[1]; th += tileSize {
		for tw := cols[0]; tw < cols[1]; tw += tileSize {
			h1, w1 := min(th+tileSize, rows[1]), min(tw+tileSize, cols[1])
			if !s.FrustumIntersectsGrid(tw, w1-1, th, h1-1) {
				continue
			}
			for h := th; h < h1; h++ {
				for w := tw; w < w1; w++ {
					if n := s.sampleWorldRay(w, h, depth[0], depth[1]); n > 0 {
						total += n
						touched = touched.Union(image.Rect(w, h, w+1, h+1))
					}
				}
			}
		}
	}
	return total, touched
}

func (s *GridSampler) sampleWorldRay(w, h, k0, k1 int) int {
	ray := s.vol.Ray(w, h)
	X, Y, Z := s.coords[0], s.coords[1], s.coords[2]
	x := float64(pixelCenter(w, s.vol.width))
	y := float64(pixelCenter(h, s.vol.height))
	N := ray.numSamples

	n := 0
	for k := k0; k < k1; k++ {
		z := float64(pixelCenter(k, N))
		p := mgl64.TransformCoordinate(mgl64.Vec3{x, y, z}, s.imageToWorld)
		px, py, pz := float32(p[0]), float32(p[1]), float32(p[2])
		ix, iy, iz := locate(X, px), locate(Y, py), locate(Z, pz)
		if ix < 0 || iy < 0 || iz < 0 || s.isGhost(ix, iy, iz) {
			continue
		}
		t := [3]float32{
			(px - X[ix]) * s.divisors[0][ix],
			(py - Y[iy]) * s.divisors[1][iy],
			(pz - Z[iz]) * s.divisors[2][iz],
		}
		s.writeSample(ray, IndexOfDepth((z+1)/2, N), ix, iy, iz, t)
		n++
	}
	return n
}

// projectBounds returns the normalized device bounding box of the
// registered grid, clipped to [-1,1]^3. ok is false when the box misses
// the view volume. A box reaching behind the camera is treated as
// covering the whole view.
func (s *GridSampler) projectBounds() (lo, hi mgl64.Vec3, ok bool) {
	blo, bhi := s.grid.Bounds()
	lo = mgl64.Vec3{1, 1, 1}
	hi = mgl64.Vec3{-1, -1, -1}
	for _, c := range boxCorners(blo, bhi) {
		clip := s.worldToImage.Mul4x1(mgl64.Vec4{c.X, c.Y, c.Z, 1})
		if clip[3] <= 0 {
			return mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1}, true
		}
		p := clip.Vec3().Mul(1 / clip[3])
		for a := 0; a < 3; a++ {
			lo[a] = min(lo[a], p[a])
			hi[a] = max(hi[a], p[a])
		}
	}
	for a := 0; a < 3; a++ {
		if hi[a] < -1 || lo[a] > 1 {
			return lo, hi, false
		}
		lo[a], hi[a] = max(lo[a], -1), min(hi[a], 1)
	}
	return lo, hi, true
}
