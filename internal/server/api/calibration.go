package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// ErrCalibrationRunning is returned when a calibration is already in progress.
var ErrCalibrationRunning = errors.New("calibration already running")

// DefaultCalibrationDuration is used when a start request names no duration.
const DefaultCalibrationDuration = 10 * time.Second

// CalibrationHandler serves /api/calibration.
type CalibrationHandler struct {
	ctrl Controller
}

// NewCalibrationHandler creates a CalibrationHandler.
func NewCalibrationHandler(ctrl Controller) *CalibrationHandler {
	return &CalibrationHandler{ctrl: ctrl}
}

type startRequest struct {
	DurationSeconds float64 `json:"duration_seconds"`
}

func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/calibration")
	path = strings.Trim(path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Calibration())
	case path == "" && r.Method == http.MethodPost:
		h.start(w, r)
	case path == "apply" && r.Method == http.MethodPost:
		cfg, err := h.ctrl.ApplyCalibration()
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	case path == "" || path == "apply":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *CalibrationHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	d := DefaultCalibrationDuration
	if req.DurationSeconds < 0 || req.DurationSeconds > 120 {
		writeError(w, http.StatusBadRequest, "duration_seconds must be between 0 and 120")
		return
	}
	if req.DurationSeconds > 0 {
		d = time.Duration(req.DurationSeconds * float64(time.Second))
	}

	if err := h.ctrl.StartCalibration(d); err != nil {
		if errors.Is(err, ErrCalibrationRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, h.ctrl.Calibration())
}
