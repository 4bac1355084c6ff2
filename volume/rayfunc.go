package volume

import (
	"github.com/chewxy/math32"
	"gonum.org/v1/gonum/spatial/r3"
)

// opaqueThreshold is the accumulated opacity at which a ray is considered
// saturated.
const opaqueThreshold = 1 - 1e-4

// ValueRange is the scalar range of one variable over a domain.
type ValueRange struct {
	Min, Max float32
}

// RayFunction reduces the samples of one ray to a pixel.
type RayFunction interface {
	// GetRayValue composites the valid samples of ray up to depthLimit in
	// front of the color in rgb, stores the result in rgb and returns the
	// accumulated opacity. gradients, when non-nil, holds three values per
	// sample and enables lighting.
	GetRayValue(ray *RayAccumulator, gradients []float32, rgb *[3]float32, depthLimit float64) float32

	// CanContributeToPicture reports whether a domain whose variables span
	// ranges, indexed like the Volume's variables, can produce any
	// opacity.
	CanContributeToPicture(ranges []ValueRange) bool
}

// CompositingRayFunction composites samples front to back through a
// transfer function, with optional opacity and weight variables and Phong
// lighting.
type CompositingRayFunction struct {
	tf        *TransferFunction
	trilinear bool

	opacityVar int
	opacityTF  *TransferFunction

	weightVar            int
	weightMin, weightMax float32

	material Material
	lighting Lighting
}

// NewCompositingRayFunction returns a ray function that colors variable 0
// through tf.
func NewCompositingRayFunction(tf *TransferFunction) *CompositingRayFunction {
	return &CompositingRayFunction{
		tf:         tf,
		opacityVar: -1,
		weightVar:  -1,
		material:   DefaultMaterial(),
		lighting:   DefaultLighting(),
	}
}

// SetTrilinearSampling enables interpolation between adjacent bins.
func (rf *CompositingRayFunction) SetTrilinearSampling(on bool) { rf.trilinear = on }

// SetOpacityVariable takes sample opacity from variable index looked up in
// tf instead of from the color table. A negative index disables it.
func (rf *CompositingRayFunction) SetOpacityVariable(index int, tf *TransferFunction) {
	if index < 0 || tf == nil {
		rf.opacityVar, rf.opacityTF = -1, nil
		return
	}
	rf.opacityVar, rf.opacityTF = index, tf
}

// SetWeightVariable scales sample opacity by variable index normalized
// over [lo, hi] and clamped to [0,1]. A negative index disables it.
func (rf *CompositingRayFunction) SetWeightVariable(index int, lo, hi float32) {
	rf.weightVar, rf.weightMin, rf.weightMax = index, lo, hi
	if index < 0 {
		rf.weightVar = -1
	}
}

// SetMaterial sets the shading coefficients used by later GetRayValue
// calls.
func (rf *CompositingRayFunction) SetMaterial(ambient, diffuse, specular, shininess float64) {
	rf.material = Material{Ambient: ambient, Diffuse: diffuse, Specular: specular, Shininess: shininess}
}

// Material returns the shading coefficients.
func (rf *CompositingRayFunction) Material() Material { return rf.material }

// SetLighting replaces the light model.
func (rf *CompositingRayFunction) SetLighting(l Lighting) { rf.lighting = l }

// SetLightDirection switches to a directional light pointing from the
// sample toward the light.
func (rf *CompositingRayFunction) SetLightDirection(dir r3.Vec) {
	rf.lighting.Headlight = false
	rf.lighting.Direction = dir
}

func (rf *CompositingRayFunction) lookup(v float32) RGBA {
	if rf.trilinear {
		return rf.tf.LookupInterpolated(v)
	}
	return rf.tf.Lookup(v)
}

func (rf *CompositingRayFunction) opacity(ray *RayAccumulator, i int, c RGBA) (float32, bool) {
	a := c.A
	if rf.opacityVar >= 0 {
		ov := ray.Value(i, rf.opacityVar)
		if !finite(ov) {
			return 0, false
		}
		if rf.trilinear {
			a = rf.opacityTF.LookupInterpolated(ov).A
		} else {
			a = rf.opacityTF.Lookup(ov).A
		}
	}
	if rf.weightVar >= 0 {
		w := ray.Value(i, rf.weightVar)
		if !finite(w) {
			return 0, false
		}
		if rf.weightMax > rf.weightMin {
			w = (w - rf.weightMin) / (rf.weightMax - rf.weightMin)
		} else if w >= rf.weightMax {
			w = 1
		} else {
			w = 0
		}
		a *= clamp01(w)
	}
	return clamp01(a), true
}

// GetRayValue implements RayFunction.
//
// Each valid sample s up to IndexOfDepth(depthLimit) contributes
//
//	C += (1-A) * a_s * C_s
//	A += (1-A) * a_s
//
// and the result is placed in front of the incoming color:
// rgb = C + (1-A)*rgb. Accumulation stops once A reaches opaqueThreshold;
// A is returned unrounded so the residual background weight matches it.
// Samples with non-finite values are skipped. A ray without valid samples
// leaves rgb unchanged and returns 0.
func (rf *CompositingRayFunction) GetRayValue(ray *RayAccumulator, gradients []float32, rgb *[3]float32, depthLimit float64) float32 {
	n := ray.NumSamples()
	if n == 0 {
		return 0
	}
	last := IndexOfDepth(depthLimit, n)
	if depthLimit >= 1 {
		last = n - 1
	}

	shade := rf.lighting.Enabled && len(gradients) >= 3*n
	var light r3.Vec
	if shade {
		light = rf.lighting.lightVector()
	}

	var cr, cg, cb, alpha float32
	for i := 0; i <= last; i++ {
		if !ray.valid[i] {
			continue
		}
		v := ray.Value(i, 0)
		if !finite(v) {
			continue
		}
		c := rf.lookup(v)
		a, ok := rf.opacity(ray, i, c)
		if !ok || a <= 0 {
			continue
		}
		if shade {
			c = rf.material.shade(c, [3]float32{gradients[3*i], gradients[3*i+1], gradients[3*i+2]}, light)
		}

		w := (1 - alpha) * a
		cr += w * c.R
		cg += w * c.G
		cb += w * c.B
		alpha += w
		if alpha >= opaqueThreshold {
			break
		}
	}

	if alpha == 0 {
		return 0
	}
	t := 1 - alpha
	rgb[0] = clamp01(cr + t*rgb[0])
	rgb[1] = clamp01(cg + t*rgb[1])
	rgb[2] = clamp01(cb + t*rgb[2])
	return clamp01(alpha)
}

// CanContributeToPicture implements RayFunction. Missing or non-finite
// ranges are assumed to contribute.
func (rf *CompositingRayFunction) CanContributeToPicture(ranges []ValueRange) bool {
	tf, idx := rf.tf, 0
	if rf.opacityVar >= 0 {
		tf, idx = rf.opacityTF, rf.opacityVar
	}
	if idx >= len(ranges) {
		return true
	}
	r := ranges[idx]
	if !finite(r.Min) || !finite(r.Max) {
		return true
	}
	reach := tf.MaxOpacity
	if rf.trilinear {
		reach = tf.MaxOpacityInterpolated
	}
	if reach(r.Min, r.Max) <= 0 {
		return false
	}
	if rf.weightVar >= 0 && rf.weightVar < len(ranges) {
		w := ranges[rf.weightVar]
		if finite(w.Max) && rf.weightMax > rf.weightMin && w.Max <= rf.weightMin {
			return false
		}
	}
	return true
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
