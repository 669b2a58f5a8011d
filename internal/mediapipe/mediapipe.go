// Package mediapipe describes the MediaPipe landmark schema: hand and face
// mesh indices, the raw per-frame Result, and synthetic fixtures.
//
// A Result holds normalized landmarks: 21 points per hand and the 468-point
// face mesh. Coordinates are in [0,1] for x and y; z is a relative depth on
// roughly the same scale as x.
package mediapipe

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// NumFaceLandmarks is the size of the face mesh without iris refinement.
const NumFaceLandmarks = 468

// FingertipIndices lists the tip landmarks: thumb, index, middle, ring, pinky.
var FingertipIndices = []int{ThumbTip, IndexTip, MiddleTip, RingTip, PinkyTip}

// Face mesh index groups used to build target regions.
var (
	// FaceCenterIndices are nose bridge points averaged into the face centre.
	FaceCenterIndices = []int{1, 2, 5, 6}

	// ForeheadIndices sample the upper forehead below the hairline.
	ForeheadIndices = []int{10, 151, 9, 108, 337, 67, 297, 69, 299}

	// RightEyebrowIndices and LeftEyebrowIndices trace both brows.
	RightEyebrowIndices = []int{70, 63, 105, 66, 107, 55, 65, 52, 53, 46}
	LeftEyebrowIndices  = []int{285, 295, 282, 283, 276, 300, 293, 334, 296, 336}

	// LeftTempleIndices and RightTempleIndices sample the sides of the forehead.
	LeftTempleIndices  = []int{162, 127, 21, 54}
	RightTempleIndices = []int{389, 356, 251, 284}

	// RightEyeIndices and LeftEyeIndices outline both eyes.
	RightEyeIndices = []int{33, 7, 163, 144, 145, 153, 154, 155, 133, 173, 157, 158, 159, 160, 161, 246}
	LeftEyeIndices  = []int{362, 398, 384, 385, 386, 387, 388, 466, 263, 249, 390, 373, 374, 380, 381, 382}

	// MouthIndices outline the lips.
	MouthIndices = []int{61, 84, 17, 314, 405, 320, 307, 375, 321, 308, 324, 318, 78, 95, 88, 178, 87, 14, 317, 402}
)

// Single face mesh points referenced by name.
const (
	FaceForeheadCenter = 9
	FaceLeftTemple     = 162
	FaceRightTemple    = 389
	FaceLeftForehead   = 103
	FaceRightForehead  = 332
	FaceMouthLeft      = 61
	FaceMouthRight     = 291
	FaceChin           = 175
	FaceLeftCheek      = 117
	FaceRightCheek     = 346

	// Eye corners. The midpoint of each pair approximates the pupil.
	RightEyeOuter = 33
	RightEyeInner = 133
	LeftEyeInner  = 362
	LeftEyeOuter  = 263
)

// Landmark is a single normalized landmark as returned by the model.
type Landmark struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Handedness labels reported by the model.
const (
	HandLeft  = "Left"
	HandRight = "Right"
)

// Hand is one detected hand. Points follows the hand index convention above
// but may be shorter than NumLandmarks if the model returned a partial set.
type Hand struct {
	Points     []Landmark `json:"points"`
	Handedness string     `json:"handedness"` // HandLeft or HandRight
	Score      float64    `json:"score"`
}

// Face is one detected face mesh.
type Face struct {
	Points []Landmark `json:"points"`
}

// Result is everything the model reported for a single frame.
type Result struct {
	Hands []Hand `json:"hands"`
	Faces []Face `json:"faces"`
}
