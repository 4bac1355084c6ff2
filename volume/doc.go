// Package volume turns rectilinear grid blocks into per-pixel ray samples
// and reduces each ray to a pixel.
//
// A Volume owns one RayAccumulator per output pixel. A GridSampler fills
// those accumulators from grids expressed either in normalized image space
// ([-1,1] on every axis) or in world space together with a View. A
// RayFunction, usually a CompositingRayFunction, then composites the valid
// samples of every ray front to back into a color and an opacity.
//
// # Coordinates
//
// Pixel column w and row h of a W×H image cover the normalized device
// coordinates whose centers are
//
//	x = -1 + (2w+1)/W
//	y = -1 + (2h+1)/H
//
// so row 0 is at the bottom of the image (y = -1). Depth sample k of N sits
// at normalized depth (k+0.5)/N, NDC z = -1 + (2k+1)/N, and index 0 is
// nearest to the camera. IndexOfDepth maps a normalized depth back to its
// sample index and is the single rounding rule used by both the sampler and
// the ray function.
//
// # Concurrency
//
// A GridSampler is not safe for concurrent use; create one per goroutine.
// Several samplers may write one Volume concurrently as long as their
// restricted regions are disjoint. TransferFunction and RangeMaxTable are
// read-only once built and may be shared.
package volume
