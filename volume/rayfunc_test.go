package volume

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
	"pgregory.net/rand"
)

func singleBin(t *testing.T, c RGBA) *TransferFunction {
	t.Helper()
	tf, err := NewTransferFunction([]RGBA{c}, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	return tf
}

func rayWith(n int, samples map[int]float32) *RayAccumulator {
	r := NewRayAccumulator(n, 1, false)
	for i, v := range samples {
		r.SetSample(i, []float32{v})
	}
	return r
}

func TestGetRayValue(t *testing.T) {
	half := RGBA{R: 1, A: 0.5}
	opaque := RGBA{R: 1, A: 1}
	nan := float32(math.NaN())
	tests := []struct {
		name       string
		bin        RGBA
		samples    map[int]float32
		depthLimit float64
		wantRGB    [3]float32
		wantA      float32
	}{
		{"no samples", half, nil, 1, [3]float32{0, 0, 1}, 0},
		{"one half", half, map[int]float32{1: 0.5}, 1, [3]float32{0.5, 0, 0.5}, 0.5},
		{"two halves", half, map[int]float32{0: 0.5, 3: 0.5}, 1, [3]float32{0.75, 0, 0.25}, 0.75},
		{"depth limit", half, map[int]float32{0: 0.5, 3: 0.5}, 0.5, [3]float32{0.5, 0, 0.5}, 0.5},
		{"opaque", opaque, map[int]float32{2: 0.5, 3: 0.5}, 1, [3]float32{1, 0, 0}, 1},
		{"nan skipped", half, map[int]float32{0: nan}, 1, [3]float32{0, 0, 1}, 0},
		{"transparent", RGBA{R: 1}, map[int]float32{0: 0.5}, 1, [3]float32{0, 0, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rf := NewCompositingRayFunction(singleBin(t, tt.bin))
			rgb := [3]float32{0, 0, 1}
			a := rf.GetRayValue(rayWith(4, tt.samples), nil, &rgb, tt.depthLimit)
			if rgb != tt.wantRGB || a != tt.wantA {
				t.Errorf("GetRayValue = %v, %v; want %v, %v", rgb, a, tt.wantRGB, tt.wantA)
			}
		})
	}
}

func TestGetRayValueSaturation(t *testing.T) {
	tf, err := NewTransferFunction([]RGBA{{R: 1, A: 1}, {G: 1, A: 1}}, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	rf := NewCompositingRayFunction(tf)
	ray := rayWith(3, map[int]float32{0: 0.1, 1: 0.9, 2: 0.9})
	rgb := [3]float32{}
	if a := rf.GetRayValue(ray, nil, &rgb, 1); a != 1 {
		t.Fatalf("alpha = %v, want 1", a)
	}
	if rgb != [3]float32{1, 0, 0} {
		t.Errorf("rgb = %v, want the first opaque sample only", rgb)
	}
}

func TestGetRayValueNearSaturation(t *testing.T) {
	tf, err := NewTransferFunction([]RGBA{{R: 1, A: 0.995}, {G: 1, A: 1}}, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	rf := NewCompositingRayFunction(tf)
	ray := rayWith(3, map[int]float32{0: 0.1, 1: 0.1, 2: 0.9})
	rgb := [3]float32{0, 0, 1}
	a := rf.GetRayValue(ray, nil, &rgb, 1)
	if a < opaqueThreshold || a >= 1 {
		t.Fatalf("alpha = %v, want in [%v, 1)", a, float32(opaqueThreshold))
	}
	if rgb[1] != 0 {
		t.Errorf("green = %v, sample after saturation was composited", rgb[1])
	}
	if want := 1 - a; math.Abs(float64(rgb[2]-want)) > 1e-6 {
		t.Errorf("blue = %v, want background weight %v", rgb[2], want)
	}
	if sum := rgb[0] + rgb[2]; math.Abs(float64(sum-1)) > 1e-5 {
		t.Errorf("red+blue = %v, want 1", sum)
	}
}

func TestGetRayValueOpacityAndWeight(t *testing.T) {
	color := singleBin(t, RGBA{B: 1, A: 1})
	opacity, err := NewTransferFunction([]RGBA{{A: 0}, {A: 0.5}}, 0, 1)
	if err != nil {
		t.Fatal(err)
	}

	ray := NewRayAccumulator(2, 3, false)
	ray.SetSample(0, []float32{0.5, 0.9, 0.5})

	rf := NewCompositingRayFunction(color)
	rf.SetOpacityVariable(1, opacity)
	rgb := [3]float32{}
	if a := rf.GetRayValue(ray, nil, &rgb, 1); a != 0.5 {
		t.Errorf("opacity variable: alpha = %v, want 0.5", a)
	}

	rf.SetWeightVariable(2, 0, 1)
	rgb = [3]float32{}
	if a := rf.GetRayValue(ray, nil, &rgb, 1); a != 0.25 {
		t.Errorf("weighted: alpha = %v, want 0.25", a)
	}

	rf.SetOpacityVariable(-1, nil)
	rf.SetWeightVariable(-1, 0, 0)
	rgb = [3]float32{}
	if a := rf.GetRayValue(ray, nil, &rgb, 1); a != 1 {
		t.Errorf("reset: alpha = %v, want 1", a)
	}
}

func TestGetRayValueLighting(t *testing.T) {
	rf := NewCompositingRayFunction(singleBin(t, RGBA{R: 1, G: 1, B: 1, A: 1}))
	rf.SetMaterial(0, 1, 0, 1)
	ray := rayWith(1, map[int]float32{0: 0.5})

	tests := []struct {
		name     string
		gradient []float32
		want     float32
	}{
		{"facing", []float32{0, 0, 2}, 1},
		{"grazing", []float32{3, 0, 0}, 0},
		{"zero gradient", []float32{0, 0, 0}, 1},
		{"no gradients", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rgb := [3]float32{}
			rf.GetRayValue(ray, tt.gradient, &rgb, 1)
			if math.Abs(float64(rgb[0]-tt.want)) > 1e-6 {
				t.Errorf("red = %v, want %v", rgb[0], tt.want)
			}
		})
	}

	rf.SetLightDirection(r3.Vec{X: 1})
	rgb := [3]float32{}
	rf.GetRayValue(ray, []float32{3, 0, 0}, &rgb, 1)
	if math.Abs(float64(rgb[0]-1)) > 1e-6 {
		t.Errorf("directional light along the normal: red = %v, want 1", rgb[0])
	}
}

func TestPhongSpecular(t *testing.T) {
	m := Material{Ambient: 0, Diffuse: 0, Specular: 1, Shininess: 10}
	n := r3.Vec{Z: -1}
	d, s := m.Phong(n, ViewDirection, ViewDirection)
	if d != 0 || math.Abs(s-1) > 1e-12 {
		t.Errorf("mirror reflection: diffuse %v, specular %v", d, s)
	}
	_, s = m.Phong(n, r3.Vec{X: 1}, ViewDirection)
	if s != 0 {
		t.Errorf("perpendicular light: specular %v, want 0", s)
	}
}

func TestGetRayValueAlwaysFinite(t *testing.T) {
	tf, err := FromControlPoints(16, []ControlPoint{
		{Position: 0, Color: RGBA{A: 0}},
		{Position: 1, Color: RGBA{R: 1, G: 0.5, A: 1}},
	}, -1, 1)
	if err != nil {
		t.Fatal(err)
	}
	rf := NewCompositingRayFunction(tf)
	rf.SetTrilinearSampling(true)

	specials := []float32{
		float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1)),
		math.MaxFloat32, -math.MaxFloat32, 0,
	}
	r := rand.New(5)
	for trial := 0; trial < 500; trial++ {
		n := 1 + r.Intn(32)
		ray := NewRayAccumulator(n, 1, true)
		grads := ray.Gradients()
		for i := 0; i < n; i++ {
			if r.Intn(2) == 0 {
				continue
			}
			v := r.Float32()*4 - 2
			if r.Intn(4) == 0 {
				v = specials[r.Intn(len(specials))]
			}
			ray.SetSample(i, []float32{v})
			for j := 0; j < 3; j++ {
				grads[3*i+j] = r.Float32()*2 - 1
			}
		}
		rgb := [3]float32{r.Float32(), r.Float32(), r.Float32()}
		a := rf.GetRayValue(ray, grads, &rgb, r.Float64()*1.2)
		for _, v := range append(rgb[:], a) {
			if math.IsNaN(float64(v)) || v < 0 || v > 1 {
				t.Fatalf("trial %d: output %v, alpha %v", trial, rgb, a)
			}
		}
	}
}

func TestCanContributeToPicture(t *testing.T) {
	tf, err := NewTransferFunction([]RGBA{{A: 0}, {A: 0}, {A: 1}}, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	rf := NewCompositingRayFunction(tf)
	tests := []struct {
		name   string
		ranges []ValueRange
		want   bool
	}{
		{"transparent bins", []ValueRange{{0, 1.5}}, false},
		{"reaches opaque bin", []ValueRange{{1, 3}}, true},
		{"above range", []ValueRange{{5, 9}}, true},
		{"unknown", nil, true},
		{"infinite", []ValueRange{{float32(math.Inf(-1)), float32(math.Inf(1))}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rf.CanContributeToPicture(tt.ranges); got != tt.want {
				t.Errorf("CanContributeToPicture(%v) = %v, want %v", tt.ranges, got, tt.want)
			}
		})
	}

	rf.SetOpacityVariable(1, tf)
	if rf.CanContributeToPicture([]ValueRange{{2.5, 3}, {0, 1}}) {
		t.Error("opacity variable range ignored")
	}
	rf.SetOpacityVariable(-1, nil)
	rf.SetWeightVariable(1, 2, 4)
	if rf.CanContributeToPicture([]ValueRange{{2.5, 3}, {0, 1}}) {
		t.Error("zero weight range ignored")
	}
}

func TestCanContributeToPictureTrilinear(t *testing.T) {
	// Only bin 0 is opaque, but values in bin 1 blend with it.
	tf, err := NewTransferFunction([]RGBA{{A: 1}, {A: 0}, {A: 0}, {A: 0}}, 0, 4)
	if err != nil {
		t.Fatal(err)
	}
	rf := NewCompositingRayFunction(tf)
	in := []ValueRange{{1.1, 1.2}}
	if rf.CanContributeToPicture(in) {
		t.Error("nearest lookup: bin 1 reported visible")
	}
	rf.SetTrilinearSampling(true)
	if !rf.CanContributeToPicture(in) {
		t.Error("trilinear lookup: domain blending with bin 0 culled")
	}
	if a := tf.LookupInterpolated(1.1).A; a <= 0 {
		t.Fatalf("LookupInterpolated(1.1).A = %v, want > 0", a)
	}
	if rf.CanContributeToPicture([]ValueRange{{2.6, 3.9}}) {
		t.Error("trilinear lookup: bins 2 and 3 reported visible")
	}

	rf.SetTrilinearSampling(false)
	rf.SetOpacityVariable(1, tf)
	in = []ValueRange{{3, 4}, {1.1, 1.2}}
	if rf.CanContributeToPicture(in) {
		t.Error("nearest lookup: opacity bin 1 reported visible")
	}
	rf.SetTrilinearSampling(true)
	if !rf.CanContributeToPicture(in) {
		t.Error("trilinear lookup: opacity variable blending with bin 0 culled")
	}
}
