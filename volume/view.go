package volume

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// View describes a camera. ViewAngle is the full vertical field of view in
// degrees and is ignored for parallel projections, which use
// ParallelScale as the half height of the view. Near and Far are distances
// from the camera along the view direction.
type View struct {
	Camera        mgl64.Vec3
	Focus         mgl64.Vec3
	Up            mgl64.Vec3
	ViewAngle     float64
	Near, Far     float64
	Parallel      bool
	ParallelScale float64
}

// DefaultView looks down -Z at the origin from a distance of 5.
func DefaultView() View {
	return View{
		Camera:        mgl64.Vec3{0, 0, 5},
		Focus:         mgl64.Vec3{0, 0, 0},
		Up:            mgl64.Vec3{0, 1, 0},
		ViewAngle:     30,
		Near:          1,
		Far:           10,
		ParallelScale: 1,
	}
}

// Validate reports whether the view can produce an invertible transform.
func (v View) Validate(aspect float64) error {
	dir := v.Focus.Sub(v.Camera)
	switch {
	case dir.Len() == 0:
		return fmt.Errorf("%w: camera and focus coincide", ErrInvalidView)
	case v.Up.Cross(dir).Len() == 0:
		return fmt.Errorf("%w: up vector is parallel to the view direction", ErrInvalidView)
	case !(aspect > 0) || math.IsInf(aspect, 0):
		return fmt.Errorf("%w: aspect ratio %v", ErrInvalidView, aspect)
	case !(v.Near < v.Far):
		return fmt.Errorf("%w: near %v is not less than far %v", ErrInvalidView, v.Near, v.Far)
	case v.Parallel && !(v.ParallelScale > 0):
		return fmt.Errorf("%w: parallel scale %v", ErrInvalidView, v.ParallelScale)
	case !v.Parallel && !(v.Near > 0):
		return fmt.Errorf("%w: perspective near plane %v", ErrInvalidView, v.Near)
	case !v.Parallel && !(v.ViewAngle > 0 && v.ViewAngle < 180):
		return fmt.Errorf("%w: view angle %v", ErrInvalidView, v.ViewAngle)
	}
	return nil
}

// WorldToView returns the camera transform.
func (v View) WorldToView() mgl64.Mat4 {
	return mgl64.LookAtV(v.Camera, v.Focus, v.Up)
}

// ViewToWorld returns the inverse camera transform.
func (v View) ViewToWorld() mgl64.Mat4 {
	return v.WorldToView().Inv()
}

// Projection returns the view-to-clip transform for the given aspect ratio
// (width / height).
func (v View) Projection(aspect float64) mgl64.Mat4 {
	if v.Parallel {
		s := v.ParallelScale
		return mgl64.Ortho(-s*aspect, s*aspect, -s, s, v.Near, v.Far)
	}
	return mgl64.Perspective(mgl64.DegToRad(v.ViewAngle), aspect, v.Near, v.Far)
}

// WorldToImage returns the transform from world coordinates to clip
// coordinates. After the perspective divide, visible points lie in
// [-1,1]^3 with z = -1 on the near plane.
func (v View) WorldToImage(aspect float64) mgl64.Mat4 {
	return v.Projection(aspect).Mul4(v.WorldToView())
}
