package volume

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Material holds Phong shading coefficients.
type Material struct {
	Ambient   float64
	Diffuse   float64
	Specular  float64
	Shininess float64
}

// DefaultMaterial returns a matte material.
func DefaultMaterial() Material {
	return Material{Ambient: 0.4, Diffuse: 0.75, Specular: 0, Shininess: 15}
}

// ViewDirection points from a sample toward the camera in image space,
// where depth grows along +Z.
var ViewDirection = r3.Vec{Z: -1}

// Lighting selects the light used for shading. A headlight shines along
// the view direction; otherwise Direction points from the sample toward the
// light.
type Lighting struct {
	Enabled   bool
	Headlight bool
	Direction r3.Vec
}

// DefaultLighting returns an enabled headlight.
func DefaultLighting() Lighting {
	return Lighting{Enabled: true, Headlight: true, Direction: ViewDirection}
}

func (l Lighting) lightVector() r3.Vec {
	if l.Headlight || r3.Norm(l.Direction) == 0 {
		return ViewDirection
	}
	return r3.Unit(l.Direction)
}

// Phong returns the diffuse factor ambient + diffuse*|N·L| and the
// specular term specular*max(R·V,0)^shininess for a unit normal n, unit
// light vector l and unit view vector v. The diffuse term is two-sided.
func (m Material) Phong(n, l, v r3.Vec) (diffuse, specular float64) {
	nl := r3.Dot(n, l)
	diffuse = m.Ambient + m.Diffuse*math.Abs(nl)
	if m.Specular > 0 {
		if nl < 0 {
			n, nl = r3.Scale(-1, n), -nl
		}
		r := r3.Sub(r3.Scale(2*nl, n), l)
		if rv := r3.Dot(r, v); rv > 0 {
			specular = m.Specular * math.Pow(rv, m.Shininess)
		}
	}
	return diffuse, specular
}

// shade applies the Phong model to c using gradient g. A zero gradient
// leaves c unchanged.
func (m Material) shade(c RGBA, g [3]float32, light r3.Vec) RGBA {
	n := r3.Vec{X: float64(g[0]), Y: float64(g[1]), Z: float64(g[2])}
	norm := r3.Norm(n)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return c
	}
	d, s := m.Phong(r3.Scale(1/norm, n), light, ViewDirection)
	return RGBA{
		R: clamp01(float32(float64(c.R)*d + s)),
		G: clamp01(float32(float64(c.G)*d + s)),
		B: clamp01(float32(float64(c.B)*d + s)),
		A: c.A,
	}
}
