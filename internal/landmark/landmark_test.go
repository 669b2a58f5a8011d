package landmark

import (
	"math"
	"testing"

	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/mediapipe"
)

func TestDenormalize(t *testing.T) {
	got := Denormalize(mediapipe.Landmark{X: 0.5, Y: 0.25, Z: -0.1}, 640, 480)
	want := geom.Point3D{X: 320, Y: 120, Z: -64}

	if math.Abs(got.X-want.X) > 1e-9 || math.Abs(got.Y-want.Y) > 1e-9 || math.Abs(got.Z-want.Z) > 1e-9 {
		t.Errorf("Denormalize = %v, want %v", got, want)
	}
}

func TestSet_At(t *testing.T) {
	s := Set{{X: 1}, {X: 2}}

	if p, ok := s.At(1); !ok || p.X != 2 {
		t.Errorf("At(1) = %v, %v", p, ok)
	}
	for _, i := range []int{-1, 2, 100} {
		if _, ok := s.At(i); ok {
			t.Errorf("At(%d) should be out of range", i)
		}
	}
}

func TestExtractHand_SkipsMissingTips(t *testing.T) {
	// Only 10 points: thumb tip (4) and index tip (8) exist, the rest do not.
	raw := mediapipe.Hand{Points: make([]mediapipe.Landmark, 10), Handedness: "Left"}
	raw.Points[mediapipe.ThumbTip] = mediapipe.Landmark{X: 0.1, Y: 0.1}
	raw.Points[mediapipe.IndexTip] = mediapipe.Landmark{X: 0.2, Y: 0.2}

	hand := ExtractHand(raw, 100, 100)

	if len(hand.Tips) != 2 {
		t.Fatalf("expected 2 tips, got %d", len(hand.Tips))
	}
	if hand.Tips[0].X != 10 || hand.Tips[1].X != 20 {
		t.Errorf("unexpected tips %v", hand.Tips)
	}
	if hand.Handedness != "Left" {
		t.Errorf("handedness = %q", hand.Handedness)
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		raw       *mediapipe.Result
		wantFace  bool
		wantHands int
	}{
		{
			name: "nil result",
			raw:  nil,
		},
		{
			name: "empty result",
			raw:  &mediapipe.Result{},
		},
		{
			name: "face and hand",
			raw: &mediapipe.Result{
				Faces: []mediapipe.Face{mediapipe.FaceFixture(640, 480, 320, 100)},
				Hands: []mediapipe.Hand{
					mediapipe.HandFixture(640, 480, geom.Point3D{X: 325, Y: 95}, geom.Point3D{X: 322, Y: 93}, geom.Point3D{X: 320, Y: 88}),
				},
			},
			wantFace:  true,
			wantHands: 1,
		},
		{
			name: "face with no points is not a face",
			raw: &mediapipe.Result{
				Faces: []mediapipe.Face{{}},
				Hands: []mediapipe.Hand{{}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := Extract(tt.raw, 640, 480)

			if frame.FaceDetected != tt.wantFace {
				t.Errorf("FaceDetected = %v, want %v", frame.FaceDetected, tt.wantFace)
			}
			if len(frame.Hands) != tt.wantHands {
				t.Errorf("hands = %d, want %d", len(frame.Hands), tt.wantHands)
			}
			if !tt.wantFace && len(frame.Face) != 0 {
				t.Error("face set should be empty when no face detected")
			}
		})
	}
}

func TestFrame_AllTips(t *testing.T) {
	raw := &mediapipe.Result{
		Hands: []mediapipe.Hand{
			mediapipe.HandFixture(640, 480, geom.Point3D{X: 325, Y: 95}, geom.Point3D{X: 322, Y: 93}, geom.Point3D{X: 320, Y: 88}),
			mediapipe.HandFixture(640, 480, geom.Point3D{X: 100, Y: 300}, geom.Point3D{X: 140, Y: 300}, geom.Point3D{X: 120, Y: 200}),
		},
	}

	frame := Extract(raw, 640, 480)
	if got := len(frame.AllTips()); got != 10 {
		t.Errorf("AllTips = %d, want 10", got)
	}
}
