// Package engine runs the per-frame detection pipeline: landmark extraction,
// region construction, hand analysis, the pulling filter, polygon contact
// tests and debounce.
//
// An Engine is owned by a single consumer. It never starts goroutines or
// takes locks.
package engine

import (
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/debounce"
	"github.com/ayusman/mindfultouch/internal/filter"
	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/gesture"
	"github.com/ayusman/mindfultouch/internal/landmark"
	"github.com/ayusman/mindfultouch/internal/log"
	"github.com/ayusman/mindfultouch/internal/mediapipe"
	"github.com/ayusman/mindfultouch/internal/region"
	"github.com/ayusman/mindfultouch/internal/region/outline"
	"github.com/ayusman/mindfultouch/internal/units"
)

// Input is one frame to process.
type Input struct {
	Raw    *mediapipe.Result
	Width  int
	Height int
	Config config.Detection
	Now    time.Time

	// Mask is the optional hair segmentation for this frame.
	Mask filter.Mask
}

// Engine holds the cross-frame state: velocity history, debounce records
// and the last proximity state.
type Engine struct {
	analyzer *gesture.Analyzer
	window   int
	pulls    *debounce.Tracker
	contacts *debounce.Tracker
	wasNear  bool
	logger   *slog.Logger
}

// New creates an engine with idle state for every region.
func New() *Engine {
	var outlined []region.Name
	for _, n := range region.All {
		if n.HasPolygon() {
			outlined = append(outlined, n)
		}
	}

	return &Engine{
		analyzer: gesture.NewAnalyzer(gesture.DefaultWindow),
		window:   gesture.DefaultWindow,
		pulls:    debounce.NewTracker(region.PinchPriority),
		contacts: debounce.NewTracker(outlined),
		logger:   log.Component("engine"),
	}
}

// ProcessFrame processes one frame at the current time.
func (e *Engine) ProcessFrame(raw *mediapipe.Result, width, height int, cfg config.Detection) DetectionResult {
	return e.ProcessFrameAt(raw, width, height, cfg, time.Now())
}

// ProcessFrameAt processes one frame captured at now.
func (e *Engine) ProcessFrameAt(raw *mediapipe.Result, width, height int, cfg config.Detection, now time.Time) DetectionResult {
	return e.Process(Input{Raw: raw, Width: width, Height: height, Config: cfg, Now: now})
}

// Reset clears all cross-frame state.
func (e *Engine) Reset() {
	e.analyzer.Reset()
	e.pulls.Reset()
	e.contacts.Reset()
	e.wasNear = false
}

// PullState returns the debounce state of a pinch target.
func (e *Engine) PullState(n region.Name) debounce.State {
	return e.pulls.State(n)
}

// ContactState returns the debounce state of an outlined region.
func (e *Engine) ContactState(n region.Name) debounce.State {
	return e.contacts.State(n)
}

// Process runs the full pipeline on one frame. It never fails: bad input
// degrades to a result with nothing detected.
func (e *Engine) Process(in Input) DetectionResult {
	started := time.Now()
	cfg := in.Config

	if cfg.VelocityWindow > 0 && cfg.VelocityWindow != e.window {
		e.analyzer = gesture.NewAnalyzer(cfg.VelocityWindow)
		e.window = cfg.VelocityWindow
	}

	frame := landmark.Extract(in.Raw, in.Width, in.Height)

	var regions region.FaceRegions
	scale := units.Unknown
	if frame.FaceDetected {
		regions = region.Build(frame.Face, in.Height, cfg.HairOffset)
		if regions.Valid {
			scale = units.ForFace(cfg.ScaleMethod, frame.Face, regions.Center)
		}
	}

	params := gesture.Params{
		PinchThresholdCM: cfg.PinchingThresholdCM,
		MaxVelocity:      cfg.MaxVelocity,
		MinPinchAngle:    gesture.DefaultMinPinchAngle,
		MaxPinchAngle:    gesture.DefaultMaxPinchAngle,
	}
	hands := e.analyzer.Analyze(frame.Hands, scale, params, in.Now)

	decision := filter.Decide(filter.Input{
		Hands:   hands,
		Regions: regions,
		Scale:   scale,
		Mask:    in.Mask,
	}, cfg)

	res := DetectionResult{
		Timestamp:     in.Now,
		FaceDetected:  frame.FaceDetected,
		HandsDetected: len(frame.Hands),
		Stage:         decision.Stage,
		ActiveRegions: slices.Clone(cfg.ActiveRegions),
		Regions:       regions,
	}
	for _, h := range hands {
		if h.PinchMidpoint != nil {
			res.Pinches = append(res.Pinches, *h.PinchMidpoint)
		}
	}

	// Pulling debounce. Inactive or unmatched targets see no contact so their
	// alerts clear at once.
	var pinchEvent Event
	for _, n := range region.PinchPriority {
		contact := decision.Pulling && decision.Region == n
		tr := e.pulls.Update(n, contact, in.Now, debounce.Seconds(cfg.Region(n).MinDetectionTime))
		if tr.Started && pinchEvent == EventNone {
			pinchEvent = PinchEvent(n)
		}
	}
	if res.FaceDetected && res.HandsDetected > 0 {
		for _, n := range region.PinchPriority {
			if e.pulls.State(n).AlertActive {
				res.IsPullingDetected = true
				res.PullingRegion = n
				break
			}
		}
	}

	e.detectContacts(&res, frame, cfg, in.Now)

	prox := filter.HandNearFace(frame.AllTips(), regions, scale, cfg)
	if prox.Known && !math.IsInf(prox.DistanceCM, 0) {
		d := prox.DistanceCM
		res.MinHandFaceDistanceCM = &d
	}
	res.IsHandNearFace = prox.Near

	// One event per frame; a pinch onset outranks a proximity change.
	proxEvent := e.proximityEvent(res, prox)
	res.Event = pinchEvent
	if res.Event == EventNone {
		res.Event = proxEvent
	}

	res.AlertsActive = e.alerts()
	res.ProcessingTime = time.Since(started)

	if res.Event != EventNone {
		e.logger.Debug("detection event",
			"event", res.Event,
			"stage", res.Stage,
			"distance_cm", prox.DistanceCM,
		)
	}

	return res
}

// detectContacts runs the polygon contact test for every outlined region.
func (e *Engine) detectContacts(res *DetectionResult, frame landmark.Frame, cfg config.Detection, now time.Time) {
	var active []region.Name
	for _, n := range cfg.ActiveRegions {
		if n.HasPolygon() {
			active = append(active, n)
		}
	}

	hits := make(map[region.Name]bool)
	if frame.FaceDetected && len(frame.Hands) > 0 && len(active) > 0 {
		res.Polygons = outline.BuildAll(frame.Face, active)
		res.Zones = make(map[region.Name]outline.Polygon, len(res.Polygons))

		for _, n := range active {
			poly, ok := res.Polygons[n]
			if !ok {
				continue
			}
			tolerance := cfg.Region(n).ContactThreshold * float64(frame.Width)
			res.Zones[n] = outline.ContactZone(poly, tolerance)

			for _, h := range frame.Hands {
				for _, idx := range mediapipe.FingertipIndices {
					tip, ok := h.Points.At(idx)
					if !ok {
						continue
					}
					if in, dist := poly.Contains(tip, tolerance); in {
						res.Contacts = append(res.Contacts, Contact{
							Region:    n,
							Point:     geom.Point3D{X: tip.X, Y: tip.Y},
							Fingertip: idx,
							Distance:  dist,
						})
						hits[n] = true
					}
				}
			}
		}
	} else if frame.FaceDetected && len(active) > 0 {
		res.Polygons = outline.BuildAll(frame.Face, active)
	}

	for _, n := range region.All {
		if !n.HasPolygon() {
			continue
		}
		e.contacts.Update(n, hits[n], now, debounce.Seconds(cfg.Region(n).MinDetectionTime))
	}
}

// proximityEvent reports near/away transitions and the loss of face or hands
// while a hand was near.
func (e *Engine) proximityEvent(res DetectionResult, prox filter.Proximity) Event {
	was := e.wasNear
	e.wasNear = prox.Near

	switch {
	case res.FaceDetected && res.HandsDetected > 0:
		if prox.Near && !was {
			return EventHandNearFace
		}
		if !prox.Near && was {
			return EventHandAwayFromFace
		}
	case !res.FaceDetected && was:
		return EventFaceLost
	case res.HandsDetected == 0 && was:
		return EventHandLost
	}
	return EventNone
}

// alerts merges pulling and contact alerts in region order.
func (e *Engine) alerts() []region.Name {
	pulls := e.pulls.Alerting()
	contacts := e.contacts.Alerting()

	var out []region.Name
	for _, n := range region.All {
		if slices.Contains(pulls, n) || slices.Contains(contacts, n) {
			out = append(out, n)
		}
	}
	return out
}
