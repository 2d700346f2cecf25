// Package geometry provides the pure coordinate math for the detection
// pipeline: the letterbox fit used to build the square model input and its
// inverse, and the "cover" fit used to project detections into the display
// container.
//
// Boxes and points carry their coordinate space in the type. A ModelRect can
// only be mapped back through the letterbox, an ImageRect can only be
// projected through the cover transform, and a DisplayPoint is always inside
// its container. Mixing spaces is a compile error rather than a runtime bug.
//
// All functions are total for positive finite inputs. Callers must treat a
// zero-sized image or container as "not ready" and skip the transform; the
// package never guards against it internally.
package geometry

// Size is a width/height pair in pixels. It is space-agnostic: the functions
// taking a Size document which space it is measured in.
type Size struct {
	Width  float64
	Height float64
}

// IsValid reports whether both dimensions are positive. Callers use this as
// the "ready" guard before any transform.
func (s Size) IsValid() bool {
	return s.Width > 0 && s.Height > 0
}

// ModelRect is an axis-aligned [x, y, w, h] box in model input space
// (the fixed square the tensor is built in, e.g. 640x640).
type ModelRect struct {
	X, Y, W, H float64
}

// ImageRect is an axis-aligned [x, y, w, h] box in original image pixel
// space.
type ImageRect struct {
	X, Y, W, H float64
}

// Center returns the box center in image pixel space.
func (r ImageRect) Center() ImagePoint {
	return ImagePoint{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// ImagePoint is a point in original image pixel space.
type ImagePoint struct {
	X, Y float64
}

// DisplayPoint is a point in display container space, clamped into
// [0, containerWidth] x [0, containerHeight] by construction.
type DisplayPoint struct {
	X, Y float64
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
