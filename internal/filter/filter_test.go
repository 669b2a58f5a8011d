package filter

import (
	"math"
	"testing"

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/gesture"
	"github.com/ayusman/mindfultouch/internal/region"
	"github.com/ayusman/mindfultouch/internal/units"
)

// 10 px per cm keeps the arithmetic readable.
var scale = units.Scale{PixelsPerCM: 10}

var regions = region.FaceRegions{
	Center:        geom.Point3D{X: 320, Y: 100},
	EyebrowCenter: geom.Point3D{X: 320, Y: 88},
	HairCenter:    geom.Point3D{X: 320, Y: -12},
	LeftTemple:    geom.Point3D{X: 260, Y: 80},
	RightTemple:   geom.Point3D{X: 380, Y: 80},
	Valid:         true,
}

// pinchAt builds a hand pinching at mid with its palm facing target.
func pinchAt(mid, target geom.Point3D) gesture.Analysis {
	normal, _ := geom.Normalize(geom.VectorBetween(mid, target))
	return gesture.Analysis{
		Tips:          []geom.Point3D{mid},
		PinchMidpoint: &mid,
		PinchAngleOK:  true,
		PalmNormal:    &normal,
		SlowMotion:    true,
	}
}

func TestBaseThreshold_Monotonic(t *testing.T) {
	cfg := config.DefaultDetection()

	prev := 0.0
	for s := 0.1; s <= 1.0001; s += 0.05 {
		cfg.Sensitivity = s
		got := BaseThreshold(cfg)
		if got < prev {
			t.Fatalf("BaseThreshold decreased at sensitivity %f: %f < %f", s, got, prev)
		}
		prev = got
	}
}

func TestRegionThreshold(t *testing.T) {
	cfg := config.DefaultDetection()
	cfg.Sensitivity = 1
	cfg.HandFaceThresholdCM = 10

	tests := []struct {
		region region.Name
		want   float64
	}{
		{region.Eyebrows, 8},
		{region.Scalp, 12},
		{region.LeftTemple, 10},
		{region.RightTemple, 10},
	}

	for _, tt := range tests {
		if got := RegionThreshold(cfg, tt.region); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RegionThreshold(%s) = %f, want %f", tt.region, got, tt.want)
		}
	}
}

func TestDecide_Stages(t *testing.T) {
	cfg := config.DefaultDetection()
	good := pinchAt(geom.Point3D{X: 323.5, Y: 94}, regions.EyebrowCenter)

	noPinch := good
	noPinch.PinchMidpoint = nil

	badAngle := good
	badAngle.PinchAngleOK = false

	fast := good
	fast.SlowMotion = false

	noPalm := good
	noPalm.PalmNormal = nil

	away := good
	backwards := geom.Point3D{X: 0, Y: 1}
	away.PalmNormal = &backwards

	farMid := geom.Point3D{X: 600, Y: 400}
	far := pinchAt(farMid, regions.EyebrowCenter)

	tests := []struct {
		name    string
		regions region.FaceRegions
		hands   []gesture.Analysis
		want    Stage
		pulling bool
	}{
		{"no face", region.FaceRegions{}, []gesture.Analysis{good}, StageNoFace, false},
		{"no hands", regions, nil, StageNoHand, false},
		{"no pinch", regions, []gesture.Analysis{noPinch}, StageNoPinch, false},
		{"bad angle", regions, []gesture.Analysis{badAngle}, StageRejectedAngle, false},
		{"too fast", regions, []gesture.Analysis{fast}, StageRejectedVelocity, false},
		{"no palm", regions, []gesture.Analysis{noPalm}, StageRejectedPalm, false},
		{"palm facing away", regions, []gesture.Analysis{away}, StageNoRegionMatch, false},
		{"too far", regions, []gesture.Analysis{far}, StageNoRegionMatch, false},
		{"match", regions, []gesture.Analysis{good}, StageRegionMatch, true},
		{"second hand matches", regions, []gesture.Analysis{noPinch, good}, StageRegionMatch, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(Input{Hands: tt.hands, Regions: tt.regions, Scale: scale}, cfg)

			if d.Stage != tt.want {
				t.Errorf("Stage = %s, want %s", d.Stage, tt.want)
			}
			if d.Pulling != tt.pulling {
				t.Errorf("Pulling = %v, want %v", d.Pulling, tt.pulling)
			}
			if !d.Pulling && d.Region != "" {
				t.Errorf("Region = %q without pulling", d.Region)
			}
		})
	}
}

func TestDecide_Priority(t *testing.T) {
	cfg := config.DefaultDetection()
	cfg.HandFaceThresholdCM = 50
	cfg.Sensitivity = 1

	// Threshold is huge, so a pinch below the brow and left temple with the
	// palm facing up qualifies for both. Eyebrows win by priority.
	mid := geom.Point3D{X: 290, Y: 200}
	palmUp := geom.Point3D{Y: -1}
	h := pinchAt(mid, regions.EyebrowCenter)
	h.PalmNormal = &palmUp

	d := Decide(Input{Hands: []gesture.Analysis{h}, Regions: regions, Scale: scale}, cfg)
	if d.Region != region.Eyebrows {
		t.Errorf("Region = %s, want eyebrows", d.Region)
	}

	t.Run("inactive regions are skipped", func(t *testing.T) {
		cfg := cfg.WithRegion(region.Eyebrows, false)
		hand := pinchAt(mid, regions.LeftTemple)

		d := Decide(Input{Hands: []gesture.Analysis{hand}, Regions: regions, Scale: scale}, cfg)
		if d.Region != region.LeftTemple {
			t.Errorf("Region = %s, want left_temple", d.Region)
		}
	})
}

func TestDecide_SensitivityNeverLosesDetection(t *testing.T) {
	low := config.DefaultDetection()
	low.Sensitivity = 0.3
	high := config.DefaultDetection()
	high.Sensitivity = 0.9

	for dy := 0.0; dy < 200; dy += 5 {
		mid := geom.Point3D{X: 320, Y: 88 + dy + 1}
		h := pinchAt(mid, regions.EyebrowCenter)
		in := Input{Hands: []gesture.Analysis{h}, Regions: regions, Scale: scale}

		if Decide(in, low).Pulling && !Decide(in, high).Pulling {
			t.Fatalf("distance %fpx detected at 0.3 but not at 0.9", dy+1)
		}
	}
}

type maskFunc func(geom.Point3D) bool

func (f maskFunc) Contains(p geom.Point3D) bool { return f(p) }

func TestDecide_HairMask(t *testing.T) {
	cfg := config.DefaultDetection()
	cfg.ActiveRegions = []region.Name{region.Scalp}
	cfg.UseHairMask = true

	h := pinchAt(geom.Point3D{X: 320, Y: 0}, regions.HairCenter)
	noHair := maskFunc(func(geom.Point3D) bool { return false })
	hair := maskFunc(func(geom.Point3D) bool { return true })

	d := Decide(Input{Hands: []gesture.Analysis{h}, Regions: regions, Scale: scale, Mask: noHair}, cfg)
	if d.Pulling || d.Stage != StageRejectedMask {
		t.Errorf("outside hair mask: %+v", d)
	}

	d = Decide(Input{Hands: []gesture.Analysis{h}, Regions: regions, Scale: scale, Mask: hair}, cfg)
	if !d.Pulling || d.Region != region.Scalp {
		t.Errorf("inside hair mask: %+v", d)
	}

	cfg.UseHairMask = false
	d = Decide(Input{Hands: []gesture.Analysis{h}, Regions: regions, Scale: scale, Mask: noHair}, cfg)
	if !d.Pulling {
		t.Error("mask should be ignored when disabled")
	}
}

func TestHandNearFace(t *testing.T) {
	cfg := config.DefaultDetection()
	cfg.Sensitivity = 1
	cfg.HandFaceThresholdCM = 10

	tests := []struct {
		name    string
		tips    []geom.Point3D
		regions region.FaceRegions
		scale   units.Scale
		known   bool
		near    bool
		cm      float64
	}{
		{"near", []geom.Point3D{{X: 320, Y: 150}, {X: 320, Y: 190}}, regions, scale, true, true, 5},
		{"far", []geom.Point3D{{X: 320, Y: 300}}, regions, scale, true, false, 20},
		{"no face", []geom.Point3D{{X: 320, Y: 150}}, region.FaceRegions{}, scale, false, false, 0},
		{"no tips", nil, regions, scale, false, false, 0},
		{"unknown scale", []geom.Point3D{{X: 320, Y: 150}}, regions, units.Unknown, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := HandNearFace(tt.tips, tt.regions, tt.scale, cfg)
			if p.Known != tt.known || p.Near != tt.near {
				t.Errorf("got %+v, want known=%v near=%v", p, tt.known, tt.near)
			}
			if tt.known && p.DistanceCM != tt.cm {
				t.Errorf("DistanceCM = %f, want %f", p.DistanceCM, tt.cm)
			}
		})
	}
}
