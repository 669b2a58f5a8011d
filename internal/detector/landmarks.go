// Package detector defines the seam to the external hand/face landmark model.
//
// A Detector turns a camera frame into a mediapipe.Result of normalized
// landmarks.
package detector

import "github.com/ayusman/mindfultouch/internal/mediapipe"

// Raw model output types.
type (
	Landmark = mediapipe.Landmark
	Hand     = mediapipe.Hand
	Face     = mediapipe.Face
	Result   = mediapipe.Result
)
