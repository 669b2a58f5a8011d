// Package landmark converts raw model output into pixel-space point sets.
//
// It performs no geometric reasoning: only denormalization and index selection.
package landmark

import (
	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/mediapipe"
)

// Set is the ordered pixel-space landmarks of one entity in one frame.
// Index positions follow the model's schema.
type Set []geom.Point3D

// At returns the landmark at index i, or ok=false if the model returned
// fewer points than the schema expects.
func (s Set) At(i int) (geom.Point3D, bool) {
	if i < 0 || i >= len(s) {
		return geom.Point3D{}, false
	}
	return s[i], true
}

// Select returns the landmarks at the given indices, skipping any that are
// out of range.
func (s Set) Select(indices []int) []geom.Point3D {
	out := make([]geom.Point3D, 0, len(indices))
	for _, i := range indices {
		if p, ok := s.At(i); ok {
			out = append(out, p)
		}
	}
	return out
}

// Hand is one extracted hand.
type Hand struct {
	Points     Set
	Tips       []geom.Point3D
	Handedness string
	Score      float64
}

// Frame is the extracted landmark content of one camera frame.
type Frame struct {
	Width  int
	Height int

	// Face holds every face mesh point. It is empty when no face was found.
	Face         Set
	FaceDetected bool

	Hands []Hand
}

// Denormalize maps a model landmark into pixel space. Depth is scaled by the
// frame width so it shares units with x.
func Denormalize(l mediapipe.Landmark, width, height int) geom.Point3D {
	return geom.Point3D{
		X: l.X * float64(width),
		Y: l.Y * float64(height),
		Z: l.Z * float64(width),
	}
}

// denormalizeAll converts a whole landmark list.
func denormalizeAll(points []mediapipe.Landmark, width, height int) Set {
	out := make(Set, len(points))
	for i, l := range points {
		out[i] = Denormalize(l, width, height)
	}
	return out
}

// ExtractHand converts one raw hand. Fingertips missing from the raw list are
// skipped.
func ExtractHand(h mediapipe.Hand, width, height int) Hand {
	points := denormalizeAll(h.Points, width, height)
	return Hand{
		Points:     points,
		Tips:       points.Select(mediapipe.FingertipIndices),
		Handedness: h.Handedness,
		Score:      h.Score,
	}
}

// Extract converts a raw detector result. Only the first face is used.
// A nil result yields an empty frame.
func Extract(raw *mediapipe.Result, width, height int) Frame {
	frame := Frame{Width: width, Height: height}
	if raw == nil || width <= 0 || height <= 0 {
		return frame
	}

	if len(raw.Faces) > 0 && len(raw.Faces[0].Points) > 0 {
		frame.Face = denormalizeAll(raw.Faces[0].Points, width, height)
		frame.FaceDetected = true
	}

	for _, h := range raw.Hands {
		if len(h.Points) == 0 {
			continue
		}
		frame.Hands = append(frame.Hands, ExtractHand(h, width, height))
	}

	return frame
}

// AllTips returns the fingertips of every hand in the frame.
func (f Frame) AllTips() []geom.Point3D {
	var tips []geom.Point3D
	for _, h := range f.Hands {
		tips = append(tips, h.Tips...)
	}
	return tips
}
