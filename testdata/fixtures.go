// Package testdata provides landmark scenes and blank frames for pipeline
// and end-to-end tests.
package testdata

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/mediapipe"
)

// Frame size used by every scene.
const (
	Width  = 640
	Height = 480
)

// EyebrowPinch is a face at (320,100) with a tight pinch just below the
// brows, palm turned towards them.
func EyebrowPinch() *mediapipe.Result {
	return &mediapipe.Result{
		Faces: []mediapipe.Face{mediapipe.FaceFixture(Width, Height, 320, 100)},
		Hands: []mediapipe.Hand{mediapipe.HandFixture(Width, Height,
			geom.Point3D{X: 325, Y: 95}, geom.Point3D{X: 322, Y: 93}, geom.Point3D{X: 320, Y: 88})},
	}
}

// ScalpPinch is a face low in frame with a pinch at the hairline.
func ScalpPinch() *mediapipe.Result {
	return &mediapipe.Result{
		Faces: []mediapipe.Face{mediapipe.FaceFixture(Width, Height, 320, 240)},
		Hands: []mediapipe.Hand{mediapipe.HandFixture(Width, Height,
			geom.Point3D{X: 322, Y: 131}, geom.Point3D{X: 318, Y: 129}, geom.Point3D{X: 320, Y: 128})},
	}
}

// SpreadFingers keeps the hand near the brows with thumb and index 40px
// apart.
func SpreadFingers() *mediapipe.Result {
	return &mediapipe.Result{
		Faces: []mediapipe.Face{mediapipe.FaceFixture(Width, Height, 320, 100)},
		Hands: []mediapipe.Hand{mediapipe.HandFixture(Width, Height,
			geom.Point3D{X: 345, Y: 95}, geom.Point3D{X: 305, Y: 95}, geom.Point3D{X: 320, Y: 88})},
	}
}

// FaceOnly is a face with no hands in view.
func FaceOnly() *mediapipe.Result {
	return &mediapipe.Result{Faces: []mediapipe.Face{mediapipe.FaceFixture(Width, Height, 320, 100)}}
}

// BlankFrames returns n black frames. Release them with CloseAll.
func BlankFrames(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		m := gocv.NewMatWithSize(Height, Width, gocv.MatTypeCV8UC3)
		frames = append(frames, &m)
	}
	return frames
}

// CloseAll releases frames.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}
