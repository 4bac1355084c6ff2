package volume

import (
	"errors"
	"image"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewVolumeErrors(t *testing.T) {
	tooMany := make([]string, VariableLimit+1)
	tests := []struct {
		name    string
		w, h, n int
		vars    []string
		want    error
	}{
		{"zero width", 0, 4, 4, []string{"v"}, ErrInvalidSize},
		{"zero samples", 4, 4, 0, []string{"v"}, ErrInvalidSize},
		{"no variables", 4, 4, 4, nil, ErrNoVariables},
		{"too many variables", 4, 4, 4, tooMany, ErrTooManyVariables},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewVolume(tt.w, tt.h, tt.n, tt.vars, false); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVolumeRaysAreDisjoint(t *testing.T) {
	v, err := NewVolume(3, 2, 4, []string{"a", "b"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if v.VariableIndex("b") != 1 || v.VariableIndex("c") != -1 {
		t.Errorf("VariableIndex = %d, %d", v.VariableIndex("b"), v.VariableIndex("c"))
	}
	for h := 0; h < 2; h++ {
		for w := 0; w < 3; w++ {
			v.Ray(w, h).SetSample(3, []float32{float32(h*3 + w), 1})
			v.Ray(w, h).SetGradient(3, [3]float32{float32(w), float32(h), 0})
		}
	}
	for h := 0; h < 2; h++ {
		for w := 0; w < 3; w++ {
			r := v.Ray(w, h)
			if r.ValidCount() != 1 || r.Value(3, 0) != float32(h*3+w) || r.Gradient(3) != [3]float32{float32(w), float32(h), 0} {
				t.Errorf("ray (%d,%d) = %v", w, h, r.Values(3))
			}
		}
	}

	v.ResetCellList()
	for h := 0; h < 2; h++ {
		for w := 0; w < 3; w++ {
			if v.Ray(w, h).ValidCount() != 0 {
				t.Fatal("ResetCellList left valid samples")
			}
		}
	}
}

func TestTouchedBounds(t *testing.T) {
	v, err := NewVolume(8, 8, 2, []string{"v"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.TouchedBounds(); ok {
		t.Fatal("empty volume reports touched pixels")
	}
	v.cells.add(CellRecord{Domain: 0, Bounds: image.Rect(1, 1, 3, 2), Samples: 4})
	v.cells.add(CellRecord{Domain: 1, Bounds: image.Rect(5, 0, 6, 4), Samples: 2})
	v.cells.add(CellRecord{Domain: 2, Bounds: image.Rect(7, 7, 8, 8), Samples: 0})
	got, ok := v.TouchedBounds()
	if !ok || got != image.Rect(1, 0, 6, 4) {
		t.Errorf("TouchedBounds = %v, %v", got, ok)
	}
	if v.CellList().Samples() != 6 {
		t.Errorf("Samples = %d, want 6", v.CellList().Samples())
	}
	v.ResetCellList()
	if v.CellList().Len() != 0 {
		t.Error("ResetCellList kept records")
	}
}

func TestVolumeRanges(t *testing.T) {
	v, err := NewVolume(2, 2, 2, []string{"a", "missing"}, false)
	if err != nil {
		t.Fatal(err)
	}
	g := NewUniformGrid([3]int{2, 2, 2}, [3]float32{}, [3]float32{1, 1, 1})
	g.AddVariable("a", PointCentered, []float32{3, -1, 2, 2, 2, 2, 2, 7})
	r := v.Ranges(g)
	if r[0] != (ValueRange{-1, 7}) {
		t.Errorf("range of a = %v", r[0])
	}
	if !(r[1].Min < -1e30 && r[1].Max > 1e30) {
		t.Errorf("range of missing = %v, want unbounded", r[1])
	}
}

func TestDepthLimitsAndZ(t *testing.T) {
	v, err := NewVolume(2, 1, 4, []string{"v"}, false)
	if err != nil {
		t.Fatal(err)
	}
	v.Ray(0, 0).SetSample(2, []float32{0.5})
	v.Ray(1, 0).SetSample(2, []float32{0.5})
	rf := NewCompositingRayFunction(singleBin(t, RGBA{R: 1, A: 1}))

	fd := v.Composite(rf, [3]float32{}, []float32{1, 0.25}, DefaultParallelConfig())
	if diff := cmp.Diff([]float32{1, 0}, fd.A); diff != "" {
		t.Errorf("alpha mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float32{0.625, 0.625}, fd.Z); diff != "" {
		t.Errorf("depth mismatch (-want +got):\n%s", diff)
	}
}

func TestBands(t *testing.T) {
	tests := []struct {
		n, parts int
		want     [][2]int
	}{
		{0, 4, nil},
		{3, 8, [][2]int{{0, 1}, {1, 2}, {2, 3}}},
		{10, 3, [][2]int{{0, 4}, {4, 8}, {8, 10}}},
		{5, 0, [][2]int{{0, 5}}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Bands(tt.n, tt.parts)); diff != "" {
			t.Errorf("Bands(%d, %d) mismatch (-want +got):\n%s", tt.n, tt.parts, diff)
		}
	}
}

func TestParallelForCoversRange(t *testing.T) {
	for _, cfg := range []ParallelConfig{{NumWorkers: 1}, {NumWorkers: 4, GrainSize: 1}, {}} {
		seen := make([]int, 37)
		ParallelFor(cfg, len(seen), func(s, e int) {
			for i := s; i < e; i++ {
				seen[i]++
			}
		})
		for i, c := range seen {
			if c != 1 {
				t.Fatalf("cfg %+v: index %d visited %d times", cfg, i, c)
			}
		}
	}
}
