// Package segment produces a per-frame hair mask with an ONNX segmentation
// model. The mask gates scalp pulling: a pinch only counts as scalp pulling
// when it sits on hair.
package segment

import (
	"math"

	"github.com/ayusman/mindfultouch/internal/geom"
)

// Mask is a binary class mask at model resolution, addressed in frame
// pixels.
type Mask struct {
	Width, Height int // mask size
	FrameWidth    int
	FrameHeight   int
	bits          []bool
}

// NewMask wraps bits laid out row-major at width x height for a frame of
// the given size.
func NewMask(bits []bool, width, height, frameWidth, frameHeight int) *Mask {
	return &Mask{
		Width:       width,
		Height:      height,
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
		bits:        bits,
	}
}

// Contains reports whether frame pixel p is in the mask. Points outside the
// frame are not.
func (m *Mask) Contains(p geom.Point3D) bool {
	if m == nil || m.FrameWidth <= 0 || m.FrameHeight <= 0 || len(m.bits) == 0 {
		return false
	}
	if p.X < 0 || p.Y < 0 || p.X >= float64(m.FrameWidth) || p.Y >= float64(m.FrameHeight) {
		return false
	}
	x := int(p.X * float64(m.Width) / float64(m.FrameWidth))
	y := int(p.Y * float64(m.Height) / float64(m.FrameHeight))
	return m.bits[y*m.Width+x]
}

// Coverage returns the fraction of mask pixels set.
func (m *Mask) Coverage() float64 {
	if m == nil || len(m.bits) == 0 {
		return 0
	}
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return float64(n) / float64(len(m.bits))
}

// FromScores builds a mask from an NCHW model output of shape
// [1, classes, height, width]. With one class the score is a logit passed
// through a sigmoid and compared with threshold; otherwise a pixel belongs to
// the mask when class is its argmax.
func FromScores(scores []float32, classes, height, width, class int, threshold float64, frameWidth, frameHeight int) *Mask {
	plane := width * height
	if classes < 1 || plane == 0 || len(scores) < classes*plane {
		return NewMask(nil, width, height, frameWidth, frameHeight)
	}

	bits := make([]bool, plane)
	if classes == 1 {
		for i := 0; i < plane; i++ {
			bits[i] = sigmoid(scores[i]) > threshold
		}
		return NewMask(bits, width, height, frameWidth, frameHeight)
	}

	for i := 0; i < plane; i++ {
		best := 0
		for c := 1; c < classes; c++ {
			if scores[c*plane+i] > scores[best*plane+i] {
				best = c
			}
		}
		bits[i] = best == class
	}
	return NewMask(bits, width, height, frameWidth, frameHeight)
}

func sigmoid(x float32) float64 {
	return 1 / (1 + math.Exp(-float64(x)))
}
