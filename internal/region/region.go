// Package region builds named target zones on the face.
//
// Centroid regions reduce each zone to a single representative point and drive
// pinch classification. Package outline draws polygon regions for fingertip
// contact tests and the on-screen overlay.
package region

import (
	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/landmark"
	"github.com/ayusman/mindfultouch/internal/mediapipe"
)

// Name identifies a monitored region.
type Name string

const (
	Scalp       Name = "scalp"
	Eyebrows    Name = "eyebrows"
	Eyes        Name = "eyes"
	Mouth       Name = "mouth"
	Beard       Name = "beard"
	LeftTemple  Name = "left_temple"
	RightTemple Name = "right_temple"
)

// All lists every region the detector knows about.
var All = []Name{Scalp, Eyebrows, Eyes, Mouth, Beard, LeftTemple, RightTemple}

// PinchPriority is the order in which pinch targets are evaluated. The first
// match in a frame wins.
var PinchPriority = []Name{Eyebrows, LeftTemple, RightTemple, Scalp}

// Valid reports whether n is a known region.
func (n Name) Valid() bool {
	for _, r := range All {
		if r == n {
			return true
		}
	}
	return false
}

// HasPolygon reports whether n can be outlined for contact testing.
func (n Name) HasPolygon() bool {
	switch n {
	case Scalp, Eyebrows, Eyes, Mouth, Beard:
		return true
	}
	return false
}

// IsPinchTarget reports whether n has a centroid used for pinch classification.
func (n Name) IsPinchTarget() bool {
	for _, r := range PinchPriority {
		if r == n {
			return true
		}
	}
	return false
}

// DefaultHairOffset is the fraction of frame height the scalp target sits
// above the forehead centroid.
const DefaultHairOffset = 0.15

// FaceRegions are the centroid targets for one frame.
//
// When Valid is false the face was missing or truncated and every point is
// the origin. Callers must not measure against an invalid region set.
type FaceRegions struct {
	Center        geom.Point3D `json:"center"`
	EyebrowCenter geom.Point3D `json:"eyebrow_center"`
	HairCenter    geom.Point3D `json:"hair_center"`
	LeftTemple    geom.Point3D `json:"left_temple"`
	RightTemple   geom.Point3D `json:"right_temple"`
	Valid         bool         `json:"valid"`
}

// Build computes centroid regions from a face mesh. hairOffset is the
// fraction of frameHeight the scalp target is lifted above the forehead.
func Build(face landmark.Set, frameHeight int, hairOffset float64) FaceRegions {
	centroid := func(indices []int) (geom.Point3D, bool) {
		return geom.Centroid(face.Select(indices))
	}

	center, ok1 := centroid(mediapipe.FaceCenterIndices)
	forehead, ok2 := centroid(mediapipe.ForeheadIndices)
	brows, ok3 := centroid(append(append([]int{}, mediapipe.RightEyebrowIndices...), mediapipe.LeftEyebrowIndices...))
	left, ok4 := centroid(mediapipe.LeftTempleIndices)
	right, ok5 := centroid(mediapipe.RightTempleIndices)

	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		return FaceRegions{}
	}

	hair := forehead
	hair.Y -= hairOffset * float64(frameHeight)

	return FaceRegions{
		Center:        center,
		EyebrowCenter: brows,
		HairCenter:    hair,
		LeftTemple:    left,
		RightTemple:   right,
		Valid:         true,
	}
}

// Target returns the centroid for a pinch target region.
func (r FaceRegions) Target(n Name) (geom.Point3D, bool) {
	if !r.Valid {
		return geom.Point3D{}, false
	}
	switch n {
	case Eyebrows:
		return r.EyebrowCenter, true
	case Scalp:
		return r.HairCenter, true
	case LeftTemple:
		return r.LeftTemple, true
	case RightTemple:
		return r.RightTemple, true
	}
	return geom.Point3D{}, false
}
