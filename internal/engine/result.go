package engine

import (
	"encoding/json"
	"math"
	"time"

	"github.com/ayusman/mindfultouch/internal/filter"
	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/region"
	"github.com/ayusman/mindfultouch/internal/region/outline"
)

// Event is a state transition worth telling the user about.
type Event string

const (
	EventNone             Event = ""
	EventHandNearFace     Event = "hand_near_face"
	EventHandAwayFromFace Event = "hand_away_from_face"
	EventFaceLost         Event = "face_lost"
	EventHandLost         Event = "hand_lost"

	EventEyebrowsPinch    Event = "eyebrows_pinch"
	EventScalpPinch       Event = "scalp_pinch"
	EventLeftTemplePinch  Event = "left_temple_pinch"
	EventRightTemplePinch Event = "right_temple_pinch"
)

// PinchEvent returns the onset event for a pinch target.
func PinchEvent(n region.Name) Event {
	return Event(string(n) + "_pinch")
}

// IsPinch reports whether e is a pulling onset.
func (e Event) IsPinch() bool {
	switch e {
	case EventEyebrowsPinch, EventScalpPinch, EventLeftTemplePinch, EventRightTemplePinch:
		return true
	}
	return false
}

// Contact is one fingertip inside (or within tolerance of) a region outline.
type Contact struct {
	Region    region.Name  `json:"region"`
	Point     geom.Point3D `json:"point"`
	Fingertip int          `json:"fingertip"`
	Distance  float64      `json:"distance"`
}

// DetectionResult is the outcome of processing one frame.
type DetectionResult struct {
	Timestamp     time.Time
	FaceDetected  bool
	HandsDetected int

	// MinHandFaceDistanceCM is nil when either the face or the hands are
	// missing or the scale is unknown.
	MinHandFaceDistanceCM *float64
	IsHandNearFace        bool

	IsPullingDetected bool
	PullingRegion     region.Name
	Stage             filter.Stage
	Event             Event

	Contacts      []Contact
	AlertsActive  []region.Name
	ActiveRegions []region.Name

	ProcessingTime time.Duration

	// Geometry for drawing. Not part of the wire format.
	Regions  region.FaceRegions
	Polygons map[region.Name]outline.Polygon
	Zones    map[region.Name]outline.Polygon
	Pinches  []geom.Point3D
}

// ContactPoints is the number of fingertip contacts across all regions.
func (r DetectionResult) ContactPoints() int {
	return len(r.Contacts)
}

// wireResult is the JSON shape sent to clients.
type wireResult struct {
	Timestamp             float64       `json:"timestamp"`
	HandsDetected         bool          `json:"hands_detected"`
	HandCount             int           `json:"hand_count"`
	FaceDetected          bool          `json:"face_detected"`
	ContactPoints         int           `json:"contact_points"`
	AlertsActive          []region.Name `json:"alerts_active"`
	ActiveRegions         []region.Name `json:"active_regions"`
	IsHandNearFace        bool          `json:"is_hand_near_face"`
	IsPullingDetected     bool          `json:"is_pulling_detected"`
	PullingRegion         region.Name   `json:"pulling_region,omitempty"`
	Event                 Event         `json:"event,omitempty"`
	Stage                 filter.Stage  `json:"stage,omitempty"`
	MinHandFaceDistanceCM *float64      `json:"min_hand_face_distance_cm"`
	ProcessingTimeMS      float64       `json:"processing_time_ms"`
	Contacts              []Contact     `json:"contacts,omitempty"`
}

// MarshalJSON encodes the result in the wire format.
func (r DetectionResult) MarshalJSON() ([]byte, error) {
	w := wireResult{
		Timestamp:             float64(r.Timestamp.UnixNano()) / 1e9,
		HandsDetected:         r.HandsDetected > 0,
		HandCount:             r.HandsDetected,
		FaceDetected:          r.FaceDetected,
		ContactPoints:         r.ContactPoints(),
		AlertsActive:          nonNil(r.AlertsActive),
		ActiveRegions:         nonNil(r.ActiveRegions),
		IsHandNearFace:        r.IsHandNearFace,
		IsPullingDetected:     r.IsPullingDetected,
		PullingRegion:         r.PullingRegion,
		Event:                 r.Event,
		Stage:                 r.Stage,
		MinHandFaceDistanceCM: r.MinHandFaceDistanceCM,
		ProcessingTimeMS:      float64(r.ProcessingTime.Microseconds()) / 1000,
		Contacts:              r.Contacts,
	}
	if w.MinHandFaceDistanceCM != nil && math.IsInf(*w.MinHandFaceDistanceCM, 0) {
		w.MinHandFaceDistanceCM = nil
	}
	return json.Marshal(w)
}

func nonNil(s []region.Name) []region.Name {
	if s == nil {
		return []region.Name{}
	}
	return s
}
