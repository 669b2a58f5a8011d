package detector

import (
	"errors"
	"testing"

	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/mediapipe"
)

func TestMockDetector(t *testing.T) {
	t.Run("returns empty result by default", func(t *testing.T) {
		mock := NewMockDetector()

		result, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result == nil {
			t.Fatal("expected non-nil result")
		}
		if len(result.Hands) != 0 || len(result.Faces) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	})

	t.Run("returns configured result", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetResult(&Result{
			Hands: []Hand{
				mediapipe.HandFixture(640, 480, geom.Point3D{X: 325, Y: 95}, geom.Point3D{X: 322, Y: 93}, geom.Point3D{X: 320, Y: 88}),
				mediapipe.HandFixture(640, 480, geom.Point3D{X: 100, Y: 300}, geom.Point3D{X: 140, Y: 300}, geom.Point3D{X: 120, Y: 200}),
			},
			Faces: []Face{mediapipe.FaceFixture(640, 480, 320, 100)},
		})

		result, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(result.Hands) != 2 {
			t.Errorf("expected 2 hands, got %d", len(result.Hands))
		}
		if len(result.Faces) != 1 {
			t.Errorf("expected 1 face, got %d", len(result.Faces))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		result, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if result != nil {
			t.Errorf("expected nil result when error is set, got %v", result)
		}
	})

	t.Run("Close returns nil", func(t *testing.T) {
		if err := NewMockDetector().Close(); err != nil {
			t.Errorf("expected Close to return nil, got %v", err)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*MediaPipeDetector)(nil)
	})
}

func TestParseResponse(t *testing.T) {
	t.Run("hands and faces", func(t *testing.T) {
		line := []byte(`{"hands":[{"points":[{"x":0.1,"y":0.2,"z":-0.01}],"handedness":"Left","score":0.9}],"faces":[{"points":[{"x":0.5,"y":0.5,"z":0}]}]}` + "\n")

		result, err := parseResponse(line)
		if err != nil {
			t.Fatalf("parseResponse() error = %v", err)
		}
		if len(result.Hands) != 1 || result.Hands[0].Handedness != "Left" {
			t.Errorf("unexpected hands: %+v", result.Hands)
		}
		if len(result.Faces) != 1 || len(result.Faces[0].Points) != 1 {
			t.Errorf("unexpected faces: %+v", result.Faces)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := parseResponse([]byte("not json")); err == nil {
			t.Error("expected error for invalid JSON")
		}
	})
}
