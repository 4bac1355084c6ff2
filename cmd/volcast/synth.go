package main

import (
	"github.com/chewxy/math32"

	"github.com/mrjoshuak/go-volcast/config"
	"github.com/mrjoshuak/go-volcast/volume"
)

// fieldVariable names the synthetic scalar in every grid.
const fieldVariable = "density"

// fieldExtent is the half size of the cube the synthetic field fills.
const fieldExtent = 0.8

type fieldFunc func(x, y, z float32) float32

func field(name string) fieldFunc {
	if name == config.FieldWaves {
		return func(x, y, z float32) float32 {
			k := 1.5 * math32.Pi / fieldExtent
			return 0.5 + 0.5*math32.Sin(k*x)*math32.Sin(k*y)*math32.Sin(k*z)
		}
	}
	return func(x, y, z float32) float32 {
		r := math32.Sqrt(x*x+y*y+z*z) / fieldExtent
		return max(0, 1-r)
	}
}

// synthesize splits the field into cfg.Domains blocks. Blocks overlap their
// neighbours by one ghost cell so every block can be sampled alone.
func synthesize(cfg *config.Config) []*volume.RectilinearGrid {
	f := field(cfg.Field)
	var grids []*volume.RectilinearGrid
	for k := 0; k < cfg.Domains[2]; k++ {
		for j := 0; j < cfg.Domains[1]; j++ {
			for i := 0; i < cfg.Domains[0]; i++ {
				grids = append(grids, domainGrid(f, cfg.Domains, [3]int{i, j, k}, cfg.Points))
			}
		}
	}
	return grids
}

func domainGrid(f fieldFunc, domains, idx [3]int, points int) *volume.RectilinearGrid {
	g := &volume.RectilinearGrid{}
	var owned [3][2]int
	for a := 0; a < 3; a++ {
		cells := points - 1
		total := domains[a] * cells
		first, last := idx[a]*cells, (idx[a]+1)*cells
		owned[a] = [2]int{0, cells}
		if idx[a] > 0 {
			first--
			owned[a] = [2]int{1, cells + 1}
		}
		if idx[a] < domains[a]-1 {
			last++
		}
		c := make([]float32, last-first+1)
		for p := range c {
			c[p] = -fieldExtent + 2*fieldExtent*float32(first+p)/float32(total)
		}
		g.Dims[a] = len(c)
		switch a {
		case 0:
			g.X = c
		case 1:
			g.Y = c
		case 2:
			g.Z = c
		}
	}

	nx, ny, nz := g.Dims[0], g.Dims[1], g.Dims[2]
	vals := make([]float32, 0, g.NumPoints())
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				vals = append(vals, f(g.X[i], g.Y[j], g.Z[k]))
			}
		}
	}
	g.AddVariable(fieldVariable, volume.PointCentered, vals)

	ghost := make([]uint8, 0, g.NumCells())
	inside := func(a, c int) bool { return c >= owned[a][0] && c < owned[a][1] }
	hasGhost := false
	for k := 0; k < nz-1; k++ {
		for j := 0; j < ny-1; j++ {
			for i := 0; i < nx-1; i++ {
				var v uint8
				if !inside(0, i) || !inside(1, j) || !inside(2, k) {
					v, hasGhost = 1, true
				}
				ghost = append(ghost, v)
			}
		}
	}
	if hasGhost {
		g.Ghost = ghost
	}
	return g
}
