package engine

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoSamples is returned when calibration saw no usable frames.
var ErrNoSamples = errors.New("no calibration samples collected")

// suggestedRatio scales the average resting distance down to a threshold.
const suggestedRatio = 0.7

// CalibrationStats summarises the hand-to-face distances seen while the user
// sat normally.
type CalibrationStats struct {
	Samples            int     `json:"samples"`
	MinDistance        float64 `json:"min_distance"`
	MaxDistance        float64 `json:"max_distance"`
	AvgDistance        float64 `json:"avg_distance"`
	MedianDistance     float64 `json:"median_distance"`
	SuggestedThreshold float64 `json:"suggested_threshold"`
	FramesSeen         int     `json:"frames_seen"`
}

// Calibrator collects minimum hand-to-face distances from processed frames.
type Calibrator struct {
	samples []float64
	frames  int
}

// Add records a frame. It returns true when the frame contributed a sample.
func (c *Calibrator) Add(r DetectionResult) bool {
	c.frames++
	if !r.FaceDetected || r.HandsDetected == 0 || r.MinHandFaceDistanceCM == nil {
		return false
	}
	d := *r.MinHandFaceDistanceCM
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return false
	}
	c.samples = append(c.samples, d)
	return true
}

// Stats returns the summary of everything added so far.
func (c *Calibrator) Stats() (CalibrationStats, error) {
	if len(c.samples) == 0 {
		return CalibrationStats{FramesSeen: c.frames}, ErrNoSamples
	}

	sorted := append([]float64(nil), c.samples...)
	sort.Float64s(sorted)
	avg := stat.Mean(sorted, nil)

	return CalibrationStats{
		Samples:            len(sorted),
		MinDistance:        floats.Min(sorted),
		MaxDistance:        floats.Max(sorted),
		AvgDistance:        avg,
		MedianDistance:     sorted[len(sorted)/2],
		SuggestedThreshold: avg * suggestedRatio,
		FramesSeen:         c.frames,
	}, nil
}

// Reset discards all samples.
func (c *Calibrator) Reset() {
	c.samples = nil
	c.frames = 0
}
