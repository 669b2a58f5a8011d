// Package geom provides the stateless 3D vector math used by the detection engine.
//
// Degenerate inputs (zero-length vectors, empty point sets) never panic. Functions
// that cannot produce a value return ok=false so callers can fail safe.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// epsilon is the magnitude below which a vector is treated as zero.
const epsilon = 1e-10

// Point3D represents a point (or a vector) in frame-local space.
// X and Y are pixel scaled, Z is a pseudo-depth scaled by frame width.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec converts p to a gonum vector.
func (p Point3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// FromVec converts a gonum vector to a Point3D.
func FromVec(v r3.Vec) Point3D {
	return Point3D{X: v.X, Y: v.Y, Z: v.Z}
}

// IsZero reports whether p is the origin.
func (p Point3D) IsZero() bool {
	return p.X == 0 && p.Y == 0 && p.Z == 0
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point3D) float64 {
	return r3.Norm(r3.Sub(a.Vec(), b.Vec()))
}

// Distance2D returns the Euclidean distance between a and b ignoring depth.
func Distance2D(a, b Point3D) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// VectorBetween returns the vector pointing from start to end.
func VectorBetween(start, end Point3D) Point3D {
	return FromVec(r3.Sub(end.Vec(), start.Vec()))
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point3D) Point3D {
	return FromVec(r3.Scale(0.5, r3.Add(a.Vec(), b.Vec())))
}

// Cross returns the cross product v1 x v2.
func Cross(v1, v2 Point3D) Point3D {
	return FromVec(r3.Cross(v1.Vec(), v2.Vec()))
}

// Dot returns the dot product of v1 and v2.
func Dot(v1, v2 Point3D) float64 {
	return r3.Dot(v1.Vec(), v2.Vec())
}

// Magnitude returns the Euclidean norm of v.
func Magnitude(v Point3D) float64 {
	return r3.Norm(v.Vec())
}

// Normalize returns the unit vector colinear to v.
// It returns ok=false when v has (near) zero magnitude.
func Normalize(v Point3D) (Point3D, bool) {
	if Magnitude(v) < epsilon {
		return Point3D{}, false
	}
	return FromVec(r3.Unit(v.Vec())), true
}

// AngleBetween returns the angle between v1 and v2 in degrees, in [0, 180].
// Parallel vectors give exactly 0 and anti-parallel vectors exactly 180.
// It returns ok=false when either vector has zero magnitude.
func AngleBetween(v1, v2 Point3D) (float64, bool) {
	if Magnitude(v1) < epsilon || Magnitude(v2) < epsilon {
		return 0, false
	}
	return math.Atan2(Magnitude(Cross(v1, v2)), Dot(v1, v2)) * 180 / math.Pi, true
}

// Centroid returns the average of points. It returns ok=false for an empty slice.
func Centroid(points []Point3D) (Point3D, bool) {
	if len(points) == 0 {
		return Point3D{}, false
	}

	var sum r3.Vec
	for _, p := range points {
		sum = r3.Add(sum, p.Vec())
	}
	return FromVec(r3.Scale(1/float64(len(points)), sum)), true
}

// Clamp limits v to the closed range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
