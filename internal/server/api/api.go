// Package api provides the HTTP handlers for settings, region toggles, the
// detection event log and calibration.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/engine"
)

// Controller is the running application as seen by the API.
type Controller interface {
	Config() config.Config
	// UpdateConfig validates, applies and persists cfg.
	UpdateConfig(cfg config.Config) error
	// ToggleRegion queues a toggle for the next frame boundary.
	ToggleRegion(t config.Toggle) error
	SetMonitoring(enabled bool)
	Status() Status

	StartCalibration(d time.Duration) error
	Calibration() CalibrationStatus
	// ApplyCalibration writes the last suggested threshold into the config.
	ApplyCalibration() (config.Config, error)
}

// Status is a snapshot of the detection pipeline.
type Status struct {
	Monitoring        bool                    `json:"monitoring"`
	CameraOpen        bool                    `json:"camera_open"`
	FramesProcessed   uint64                  `json:"frames_processed"`
	FramesDropped     uint64                  `json:"frames_dropped"`
	CooldownRemaining float64                 `json:"cooldown_remaining_seconds"`
	Clients           int                     `json:"clients"`
	Latest            *engine.DetectionResult `json:"latest,omitempty"`
}

// CalibrationStatus reports a calibration run.
type CalibrationStatus struct {
	Running   bool                     `json:"running"`
	StartedAt *time.Time               `json:"started_at,omitempty"`
	EndsAt    *time.Time               `json:"ends_at,omitempty"`
	Stats     *engine.CalibrationStats `json:"stats,omitempty"`
	Error     string                   `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
