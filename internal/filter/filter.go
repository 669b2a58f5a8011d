// Package filter decides, for one frame, whether a hand is pulling at a face
// region. It holds no state between frames.
package filter

import (
	"math"

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/gesture"
	"github.com/ayusman/mindfultouch/internal/region"
	"github.com/ayusman/mindfultouch/internal/units"
)

// Stage is how far a hand got through the decision.
type Stage string

const (
	StageNoFace           Stage = "no_face"
	StageNoHand           Stage = "no_hand"
	StageNoPinch          Stage = "no_pinch"
	StageRejectedAngle    Stage = "rejected_angle"
	StageRejectedVelocity Stage = "rejected_velocity"
	StageRejectedPalm     Stage = "rejected_palm"
	StageRejectedMask     Stage = "rejected_mask"
	StageNoRegionMatch    Stage = "no_region_match"
	StageRegionMatch      Stage = "region_match"
)

var stageRank = map[Stage]int{
	StageNoFace:           0,
	StageNoHand:           1,
	StageNoPinch:          2,
	StageRejectedAngle:    3,
	StageRejectedVelocity: 3,
	StageRejectedPalm:     3,
	StageRejectedMask:     4,
	StageNoRegionMatch:    5,
	StageRegionMatch:      6,
}

// Mask reports whether a pixel belongs to a segmentation class, such as hair.
type Mask interface {
	Contains(p geom.Point3D) bool
}

// Input is everything the filter looks at for one frame.
type Input struct {
	Hands   []gesture.Analysis
	Regions region.FaceRegions
	Scale   units.Scale

	// Mask, when set and enabled in config, must contain the pinch point for
	// a scalp match.
	Mask Mask
}

// Decision is the filter's verdict for one frame.
type Decision struct {
	Pulling    bool        `json:"pulling"`
	Region     region.Name `json:"region,omitempty"`
	Hand       int         `json:"hand"`
	DistanceCM float64     `json:"distance_cm,omitempty"`
	Stage      Stage       `json:"stage"`
	HandStages []Stage     `json:"hand_stages,omitempty"`
}

// Region multipliers applied to the base threshold.
const (
	eyebrowMultiplier = 0.8
	scalpMultiplier   = 1.2
	templeMultiplier  = 1.0
)

// Multiplier returns the threshold multiplier for a pinch target.
func Multiplier(n region.Name) float64 {
	switch n {
	case region.Eyebrows:
		return eyebrowMultiplier
	case region.Scalp:
		return scalpMultiplier
	default:
		return templeMultiplier
	}
}

// BaseThreshold is the sensitivity-adjusted hand-to-face threshold in cm.
// Higher sensitivity widens the threshold so more contact is detected.
func BaseThreshold(cfg config.Detection) float64 {
	s := geom.Clamp(cfg.Sensitivity, 0.1, 1.0)
	return cfg.HandFaceThresholdCM / (2 - s)
}

// RegionThreshold is the pinch distance limit in cm for a region.
func RegionThreshold(cfg config.Detection, n region.Name) float64 {
	return BaseThreshold(cfg) * Multiplier(n)
}

// Decide evaluates active pinch targets in priority order and reports the
// first region any hand qualifies for.
func Decide(in Input, cfg config.Detection) Decision {
	if !in.Regions.Valid {
		return Decision{Hand: -1, Stage: StageNoFace}
	}
	if len(in.Hands) == 0 {
		return Decision{Hand: -1, Stage: StageNoHand}
	}

	stages := make([]Stage, len(in.Hands))
	candidates := make([]bool, len(in.Hands))
	for i, h := range in.Hands {
		stages[i] = gate(h)
		candidates[i] = stages[i] == StageNoRegionMatch
	}

	for _, n := range region.PinchPriority {
		if !cfg.IsActive(n) {
			continue
		}
		target, ok := in.Regions.Target(n)
		if !ok {
			continue
		}
		limit := RegionThreshold(cfg, n)

		for i, h := range in.Hands {
			if !candidates[i] {
				continue
			}
			d := in.Scale.ToCM(geom.Distance(*h.PinchMidpoint, target))
			if d > limit {
				continue
			}
			if !facing(*h.PalmNormal, *h.PinchMidpoint, target, cfg.PalmFacingMin) {
				continue
			}
			if n == region.Scalp && cfg.UseHairMask && in.Mask != nil && !in.Mask.Contains(*h.PinchMidpoint) {
				stages[i] = StageRejectedMask
				continue
			}

			stages[i] = StageRegionMatch
			return Decision{
				Pulling:    true,
				Region:     n,
				Hand:       i,
				DistanceCM: d,
				Stage:      StageRegionMatch,
				HandStages: stages,
			}
		}
	}

	return Decision{Hand: -1, Stage: furthest(stages), HandStages: stages}
}

// gate applies the per-hand rejections. A hand that passes reports
// StageNoRegionMatch until a region claims it.
func gate(h gesture.Analysis) Stage {
	switch {
	case h.PinchMidpoint == nil:
		return StageNoPinch
	case !h.PinchAngleOK:
		return StageRejectedAngle
	case !h.SlowMotion:
		return StageRejectedVelocity
	case h.PalmNormal == nil:
		return StageRejectedPalm
	}
	return StageNoRegionMatch
}

// facing reports whether the palm normal points at target within the
// cosine limit. A pinch sitting exactly on the target has no direction and
// fails.
func facing(normal, from, target geom.Point3D, minDot float64) bool {
	dir, ok := geom.Normalize(geom.VectorBetween(from, target))
	if !ok {
		return false
	}
	return geom.Dot(normal, dir) > minDot
}

func furthest(stages []Stage) Stage {
	best := StageNoHand
	for _, s := range stages {
		if stageRank[s] > stageRank[best] {
			best = s
		}
	}
	return best
}

// Proximity is the softer always-on signal: how close the nearest fingertip
// is to the face centre.
type Proximity struct {
	DistanceCM float64
	Known      bool
	Near       bool
}

// HandNearFace measures the nearest fingertip to the face centre. Unknown
// when there is no face, no fingertip, or no usable scale.
func HandNearFace(tips []geom.Point3D, regions region.FaceRegions, scale units.Scale, cfg config.Detection) Proximity {
	if !regions.Valid || len(tips) == 0 || !scale.Known() {
		return Proximity{DistanceCM: math.Inf(1)}
	}

	minPx := math.Inf(1)
	for _, tip := range tips {
		minPx = math.Min(minPx, geom.Distance(regions.Center, tip))
	}

	cm := scale.ToCM(minPx)
	return Proximity{
		DistanceCM: cm,
		Known:      true,
		Near:       cm <= BaseThreshold(cfg),
	}
}
