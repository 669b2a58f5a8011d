// Package units converts pixel distances to centimetres using an anatomical
// reference measured on the face in the current frame.
package units

import (
	"math"

	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/landmark"
	"github.com/ayusman/mindfultouch/internal/mediapipe"
)

// Reference constants.
const (
	// FaceWidthCM is the average adult face width.
	FaceWidthCM = 15.0
	// FaceWidthPixels is the apparent face width at nominal capture distance.
	FaceWidthPixels = 175.0
	// InterOcularCM is the average distance between eye centres.
	InterOcularCM = 6.3

	minDepthFactor = 0.5
	maxDepthFactor = 2.0
)

// Method names a scale estimation strategy.
type Method string

const (
	MethodFaceWidth   Method = "face_width"
	MethodInterOcular Method = "inter_ocular"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	return m == MethodFaceWidth || m == MethodInterOcular
}

// Scale is the number of pixels per centimetre for one frame.
// A non-positive value means the scale could not be estimated.
type Scale struct {
	PixelsPerCM float64
}

// Unknown is a scale that converts every distance to +Inf.
var Unknown = Scale{}

// ToCM converts a pixel distance to centimetres. Negative input is treated as
// its magnitude. An unknown scale yields +Inf so the distance reads as far.
func (s Scale) ToCM(px float64) float64 {
	if s.PixelsPerCM <= 0 || math.IsNaN(s.PixelsPerCM) || math.IsInf(s.PixelsPerCM, 0) {
		return math.Inf(1)
	}
	return math.Abs(px) / s.PixelsPerCM
}

// Known reports whether the scale can convert distances.
func (s Scale) Known() bool {
	return s.PixelsPerCM > 0 && !math.IsInf(s.PixelsPerCM, 0) && !math.IsNaN(s.PixelsPerCM)
}

// DepthFactor converts a pixel-space depth (z scaled by frame width) into an
// apparent-size correction. Negative z is closer to the camera, which makes
// the face look larger.
func DepthFactor(z float64) float64 {
	return geom.Clamp(1-z/100, minDepthFactor, maxDepthFactor)
}

// FaceWidthScale estimates the scale from the nominal face width corrected by
// the depth of the face centre landmark.
func FaceWidthScale(center geom.Point3D) Scale {
	return Scale{PixelsPerCM: FaceWidthPixels * DepthFactor(center.Z) / FaceWidthCM}
}

// InterOcularScale estimates the scale from the distance between the two eye
// centres. Returns Unknown when the eye landmarks are missing or coincide.
func InterOcularScale(face landmark.Set) Scale {
	right, ok := eyeCentre(face, mediapipe.RightEyeOuter, mediapipe.RightEyeInner)
	if !ok {
		return Unknown
	}
	left, ok := eyeCentre(face, mediapipe.LeftEyeInner, mediapipe.LeftEyeOuter)
	if !ok {
		return Unknown
	}

	d := geom.Distance2D(right, left)
	if d < 1e-9 {
		return Unknown
	}
	return Scale{PixelsPerCM: d / InterOcularCM}
}

func eyeCentre(face landmark.Set, a, b int) (geom.Point3D, bool) {
	pa, ok := face.At(a)
	if !ok {
		return geom.Point3D{}, false
	}
	pb, ok := face.At(b)
	if !ok {
		return geom.Point3D{}, false
	}
	return geom.Midpoint(pa, pb), true
}

// ForFace picks the scale for a face using the given method. The face centre
// is used by the face-width method for depth correction.
func ForFace(method Method, face landmark.Set, center geom.Point3D) Scale {
	if len(face) == 0 {
		return Unknown
	}
	if method == MethodInterOcular {
		return InterOcularScale(face)
	}
	return FaceWidthScale(center)
}
