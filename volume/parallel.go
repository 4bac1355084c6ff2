package volume

import (
	"runtime"
	"sync"
)

// ParallelConfig configures parallel processing behavior.
type ParallelConfig struct {
	// NumWorkers is the number of worker goroutines. 0 means
	// runtime.GOMAXPROCS(0).
	NumWorkers int

	// GrainSize is the minimum number of items per worker. Work smaller
	// than GrainSize*NumWorkers runs sequentially.
	GrainSize int
}

// DefaultParallelConfig returns the default parallel configuration.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{NumWorkers: 0, GrainSize: 1}
}

// Workers returns the number of workers to use.
func (c ParallelConfig) Workers() int {
	if c.NumWorkers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.NumWorkers
}

// ParallelFor splits [0, n) into contiguous, disjoint bands and calls
// fn(start, end) for each band on its own goroutine. It runs fn(0, n)
// inline when n is too small to split.
func ParallelFor(cfg ParallelConfig, n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	workers := cfg.Workers()
	if workers == 1 || n <= max(cfg.GrainSize, 1)*workers {
		fn(0, n)
		return
	}

	var wg sync.WaitGroup
	for _, b := range Bands(n, workers) {
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(b[0], b[1])
	}
	wg.Wait()
}

// Bands splits [0, n) into at most parts contiguous half-open ranges of
// nearly equal size.
func Bands(n, parts int) [][2]int {
	if n <= 0 {
		return nil
	}
	parts = max(min(parts, n), 1)
	size := (n + parts - 1) / parts
	out := make([][2]int, 0, parts)
	for s := 0; s < n; s += size {
		out = append(out, [2]int{s, min(s+size, n)})
	}
	return out
}

// ExtractParallel samples grids into v with one GridSampler per row band.
// view selects world-space extraction when non-nil. Grids are processed in
// order within each band, so the result does not depend on the number of
// workers. It returns the total number of samples written.
func (v *Volume) ExtractParallel(grids []*RectilinearGrid, view *View, aspect float64, cfg ParallelConfig, opts ...SamplerOption) (int, error) {
	if view != nil {
		if err := view.Validate(aspect); err != nil {
			return 0, err
		}
	}

	bands := Bands(v.height, cfg.Workers())
	counts := make([]int, len(bands))
	var wg sync.WaitGroup
	for i, b := range bands {
		wg.Add(1)
		go func(i, h0, h1 int) {
			defer wg.Done()
			s := NewGridSampler(v, opts...)
			if view != nil {
				// Validated above.
				_ = s.SetGridsAreInWorldSpace(true, *view, aspect)
			}
			s.SetRestrictedRegion(0, v.width-1, h0, h1-1)
			for d, g := range grids {
				s.SetDomain(d)
				counts[i] += s.Extract(g)
			}
		}(i, b[0], b[1])
	}
	wg.Wait()

	total := 0
	for _, c := range counts {
		total += c
	}
	return total, nil
}
