package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/region"
)

// SettingsHandler serves /api/settings and /api/settings/regions.
type SettingsHandler struct {
	ctrl Controller
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(ctrl Controller) *SettingsHandler {
	return &SettingsHandler{ctrl: ctrl}
}

// ServeHTTP implements http.Handler.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/settings")
	path = strings.Trim(path, "/")

	switch path {
	case "":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, h.ctrl.Config())
		case http.MethodPut:
			h.update(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "regions":
		switch r.Method {
		case http.MethodGet:
			h.regions(w)
		case http.MethodPost:
			h.toggle(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// update decodes the body over a copy of the current config so partial
// updates work. A rejected body leaves the running config untouched.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	cfg := h.ctrl.Config().Clone()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := h.ctrl.UpdateConfig(cfg); err != nil {
		if errors.Is(err, config.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}

	writeJSON(w, http.StatusOK, h.ctrl.Config())
}

type regionInfo struct {
	Name     region.Name           `json:"name"`
	Active   bool                  `json:"active"`
	Pinch    bool                  `json:"pinch_target"`
	Outlined bool                  `json:"outlined"`
	Settings config.RegionSettings `json:"settings"`
}

type regionsResponse struct {
	Regions []regionInfo `json:"regions"`
}

func (h *SettingsHandler) regions(w http.ResponseWriter) {
	d := h.ctrl.Config().Detection

	resp := regionsResponse{Regions: make([]regionInfo, 0, len(region.All))}
	for _, n := range region.All {
		resp.Regions = append(resp.Regions, regionInfo{
			Name:     n,
			Active:   d.IsActive(n),
			Pinch:    n.IsPinchTarget(),
			Outlined: n.HasPolygon(),
			Settings: d.Region(n),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type toggleResponse struct {
	Region  region.Name `json:"region"`
	Enabled bool        `json:"enabled"`
	Status  string      `json:"status"`
}

func (h *SettingsHandler) toggle(w http.ResponseWriter, r *http.Request) {
	var t config.Toggle
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if !t.Region.Valid() {
		writeError(w, http.StatusBadRequest, "unknown region: "+string(t.Region))
		return
	}

	if err := h.ctrl.ToggleRegion(t); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, toggleResponse{Region: t.Region, Enabled: t.Enabled, Status: "queued"})
}

// MonitoringHandler serves /api/monitoring and /api/status.
type MonitoringHandler struct {
	ctrl Controller
}

// NewMonitoringHandler creates a MonitoringHandler.
func NewMonitoringHandler(ctrl Controller) *MonitoringHandler {
	return &MonitoringHandler{ctrl: ctrl}
}

func (h *MonitoringHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.ctrl.Status())
	case http.MethodPost:
		var req struct {
			Enabled *bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeError(w, http.StatusBadRequest, `body must be {"enabled": bool}`)
			return
		}
		h.ctrl.SetMonitoring(*req.Enabled)
		writeJSON(w, http.StatusOK, h.ctrl.Status())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
