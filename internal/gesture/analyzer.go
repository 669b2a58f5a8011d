// Package gesture analyses hand shape and motion: pinch geometry, palm
// orientation and smoothed fingertip velocity.
package gesture

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/landmark"
	"github.com/ayusman/mindfultouch/internal/mediapipe"
	"github.com/ayusman/mindfultouch/internal/units"
)

// Defaults for Params.
const (
	DefaultWindow        = 5
	DefaultMaxVelocity   = 400.0 // px/s
	DefaultMinPinchAngle = 60.0
	DefaultMaxPinchAngle = 120.0

	// maxMatchDistance is the furthest a hand centroid may move between
	// frames and still be treated as the same hand.
	maxMatchDistance = 200.0
)

// Params are the per-frame thresholds the analyzer applies.
type Params struct {
	PinchThresholdCM float64
	MaxVelocity      float64
	MinPinchAngle    float64
	MaxPinchAngle    float64
}

// DefaultParams returns Params for the given pinch threshold.
func DefaultParams(pinchThresholdCM float64) Params {
	return Params{
		PinchThresholdCM: pinchThresholdCM,
		MaxVelocity:      DefaultMaxVelocity,
		MinPinchAngle:    DefaultMinPinchAngle,
		MaxPinchAngle:    DefaultMaxPinchAngle,
	}
}

// Analysis is the per-frame result for one hand.
type Analysis struct {
	Tips     []geom.Point3D
	Centroid geom.Point3D

	PinchDistancePx float64
	PinchDistanceCM float64
	PinchAngle      float64
	PinchAngleOK    bool

	// PinchMidpoint is set only when the pinch is tight enough to be a
	// candidate. A nil midpoint means "not pinching".
	PinchMidpoint *geom.Point3D

	// PalmNormal is nil when the palm geometry is degenerate.
	PalmNormal *geom.Point3D

	Velocity   float64 // smoothed, px/s
	SlowMotion bool
}

// track is the motion history of one hand across frames.
type track struct {
	centroid geom.Point3D
	tips     []geom.Point3D
	at       time.Time
	speeds   []float64
}

// Analyzer computes Analysis values and owns the velocity history.
// It is not safe for concurrent use.
type Analyzer struct {
	window int
	tracks []*track
}

// NewAnalyzer creates an analyzer smoothing velocity over window frames.
func NewAnalyzer(window int) *Analyzer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Analyzer{window: window}
}

// Reset drops all motion history.
func (a *Analyzer) Reset() {
	a.tracks = nil
}

// Analyze evaluates every hand in the frame. Results are in input order.
func (a *Analyzer) Analyze(hands []landmark.Hand, scale units.Scale, p Params, now time.Time) []Analysis {
	if len(hands) == 0 {
		a.tracks = nil
		return nil
	}

	out := make([]Analysis, len(hands))
	for i, h := range hands {
		out[i] = analyzeShape(h, scale, p)
	}

	matched := a.match(out)
	next := make([]*track, len(hands))
	for i := range hands {
		t := matched[i]
		if t == nil {
			t = &track{}
		}
		out[i].Velocity = t.advance(out[i], now, a.window)
		out[i].SlowMotion = out[i].Velocity <= p.MaxVelocity
		next[i] = t
	}
	a.tracks = next

	return out
}

// match pairs each new hand with the nearest previous track. Hands are
// reordered freely by the model, so list position is not used.
func (a *Analyzer) match(hands []Analysis) []*track {
	type pair struct {
		hand, track int
		dist        float64
	}

	var pairs []pair
	for i, h := range hands {
		for j, t := range a.tracks {
			d := geom.Distance2D(h.Centroid, t.centroid)
			if d <= maxMatchDistance {
				pairs = append(pairs, pair{i, j, d})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].dist < pairs[j].dist })

	out := make([]*track, len(hands))
	used := make([]bool, len(a.tracks))
	for _, p := range pairs {
		if out[p.hand] != nil || used[p.track] {
			continue
		}
		out[p.hand] = a.tracks[p.track]
		used[p.track] = true
	}
	return out
}

// advance records the hand's fingertips and returns the smoothed speed.
func (t *track) advance(h Analysis, now time.Time, window int) float64 {
	if len(t.tips) > 0 && now.After(t.at) {
		if d, ok := meanDisplacement(t.tips, h.Tips); ok {
			t.speeds = append(t.speeds, d/now.Sub(t.at).Seconds())
			if len(t.speeds) > window {
				t.speeds = t.speeds[len(t.speeds)-window:]
			}
		}
	}

	t.centroid = h.Centroid
	t.tips = append(t.tips[:0], h.Tips...)
	t.at = now

	if len(t.speeds) == 0 {
		return 0
	}
	return stat.Mean(t.speeds, nil)
}

func meanDisplacement(prev, cur []geom.Point3D) (float64, bool) {
	n := min(len(prev), len(cur))
	if n == 0 {
		return 0, false
	}
	d := make([]float64, n)
	for i := 0; i < n; i++ {
		d[i] = geom.Distance2D(prev[i], cur[i])
	}
	return stat.Mean(d, nil), true
}

// analyzeShape computes the per-frame, history-free signals for one hand.
func analyzeShape(h landmark.Hand, scale units.Scale, p Params) Analysis {
	out := Analysis{
		Tips:            h.Tips,
		PinchDistancePx: math.Inf(1),
		PinchDistanceCM: math.Inf(1),
	}
	out.Centroid, _ = geom.Centroid(h.Points)

	thumbTip, ok1 := h.Points.At(mediapipe.ThumbTip)
	indexTip, ok2 := h.Points.At(mediapipe.IndexTip)
	if ok1 && ok2 {
		out.PinchDistancePx = geom.Distance(thumbTip, indexTip)
		out.PinchDistanceCM = scale.ToCM(out.PinchDistancePx)
		if out.PinchDistanceCM <= p.PinchThresholdCM {
			mid := geom.Midpoint(thumbTip, indexTip)
			out.PinchMidpoint = &mid
		}
	}

	if angle, ok := PinchAngle(h.Points); ok {
		out.PinchAngle = angle
		out.PinchAngleOK = angle >= p.MinPinchAngle && angle <= p.MaxPinchAngle
	}

	if n, ok := PalmNormal(h.Points); ok {
		n = Oriented(n, h.Handedness)
		out.PalmNormal = &n
	}

	return out
}

// PinchAngle returns the angle in degrees between the thumb's and the index
// finger's distal segments.
func PinchAngle(hand landmark.Set) (float64, bool) {
	thumb, ok := segment(hand, mediapipe.ThumbIP, mediapipe.ThumbTip)
	if !ok {
		return 0, false
	}
	index, ok := segment(hand, mediapipe.IndexDIP, mediapipe.IndexTip)
	if !ok {
		return 0, false
	}
	return geom.AngleBetween(thumb, index)
}

// PalmNormal returns the unit normal of the plane through the wrist and the
// index and pinky knuckles.
func PalmNormal(hand landmark.Set) (geom.Point3D, bool) {
	toIndex, ok := segment(hand, mediapipe.Wrist, mediapipe.IndexMCP)
	if !ok {
		return geom.Point3D{}, false
	}
	toPinky, ok := segment(hand, mediapipe.Wrist, mediapipe.PinkyMCP)
	if !ok {
		return geom.Point3D{}, false
	}
	return geom.Normalize(geom.Cross(toIndex, toPinky))
}

// Oriented flips a raw palm normal for left hands. The knuckle cross product
// has opposite chirality on the two hands, so without this the same pose
// would face opposite ways.
func Oriented(normal geom.Point3D, handedness string) geom.Point3D {
	if handedness == mediapipe.HandLeft {
		return geom.Point3D{X: -normal.X, Y: -normal.Y, Z: -normal.Z}
	}
	return normal
}

func segment(hand landmark.Set, from, to int) (geom.Point3D, bool) {
	a, ok := hand.At(from)
	if !ok {
		return geom.Point3D{}, false
	}
	b, ok := hand.At(to)
	if !ok {
		return geom.Point3D{}, false
	}
	return geom.VectorBetween(a, b), true
}
