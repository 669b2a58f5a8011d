package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// blurKernel is the Gaussian kernel applied before differencing.
	blurKernel = 21
	// pixelDelta is the grey-level change that marks a pixel as moved.
	pixelDelta = 25
)

// MotionDetector compares each frame with the previous one and reports the
// share of pixels that changed.
type MotionDetector struct {
	threshold float64 // percent of pixels
	prev      gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewMotionDetector creates a detector that fires when more than threshold
// percent of the pixels change between frames.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect reports whether frame moved relative to the previous call, and the
// changed percentage. The first frame only primes the baseline.
func (m *MotionDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: blurKernel, Y: blurKernel}, 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != blurred.Rows() || m.prev.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prev, &diff)

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.Threshold(diff, &mask, pixelDelta, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(mask)) / float64(mask.Rows()*mask.Cols()) * 100
	blurred.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset drops the baseline so the next frame primes again.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

// Close releases the baseline Mat. The detector stays usable.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *MotionDetector) release() {
	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.primed = false
}

// SetThreshold changes the trigger percentage. Non-positive values are
// ignored.
func (m *MotionDetector) SetThreshold(threshold float64) {
	if threshold <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = threshold
}

// DefaultHold keeps capture at the active rate after the last motion or hand.
const DefaultHold = 3 * time.Second

// Gate chooses between the active and idle frame rates. Capture runs at the
// active rate while there is motion or a hand in view, and for a hold period
// afterwards.
type Gate struct {
	activeFPS int
	idleFPS   int
	hold      time.Duration
	minPeriod time.Duration
	lastBusy  time.Time
	mu        sync.Mutex
}

// NewGate creates a gate. An idle rate of zero or above the active rate
// disables idling.
func NewGate(activeFPS, idleFPS int, hold time.Duration) *Gate {
	if idleFPS <= 0 || idleFPS > activeFPS {
		idleFPS = activeFPS
	}
	return &Gate{activeFPS: activeFPS, idleFPS: idleFPS, hold: hold}
}

// Observe records activity at now.
func (g *Gate) Observe(busy bool, now time.Time) {
	if !busy {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lastBusy = now
}

// Active reports whether capture should run at the active rate.
func (g *Gate) Active(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.lastBusy.IsZero() && now.Sub(g.lastBusy) <= g.hold
}

// FPS returns the rate for now.
func (g *Gate) FPS(now time.Time) int {
	if g.Active(now) {
		return g.activeFPS
	}
	return g.idleFPS
}

// SetMinInterval sets the shortest frame period Interval may return.
func (g *Gate) SetMinInterval(d time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.minPeriod = d
}

// Interval returns the frame period for now, never shorter than the
// minimum interval.
func (g *Gate) Interval(now time.Time) time.Duration {
	period := time.Second / time.Duration(max(g.FPS(now), 1))
	g.mu.Lock()
	defer g.mu.Unlock()
	return max(period, g.minPeriod)
}
