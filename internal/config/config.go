// Package config holds the application settings, their defaults and
// validation, and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/ayusman/mindfultouch/internal/region"
	"github.com/ayusman/mindfultouch/internal/units"
)

// ErrInvalid is returned (wrapped) by Validate.
var ErrInvalid = errors.New("invalid config")

// RegionSettings tune contact detection for one region.
type RegionSettings struct {
	// ContactThreshold is the contact tolerance around a region outline as a
	// fraction of frame width.
	ContactThreshold float64 `json:"contact_threshold"`
	// MinDetectionTime is the dwell in seconds before contact alerts.
	MinDetectionTime float64 `json:"min_detection_time"`
	ShowLandmarks    bool    `json:"show_landmarks"`
}

// Detection configures the detection engine. It is passed by value into each
// processed frame; updating it between frames is safe.
type Detection struct {
	Sensitivity         float64 `json:"sensitivity"`
	HandFaceThresholdCM float64 `json:"hand_face_threshold_cm"`
	// ConfidenceThreshold is the landmark model's detection and tracking
	// confidence. It is read when the detector starts.
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	PinchingThresholdCM float64 `json:"pinching_threshold_cm"`
	// DetectionIntervalMS is the shortest time between captured frames.
	DetectionIntervalMS int `json:"detection_interval_ms"`

	MaxVelocity    float64      `json:"max_velocity_px_s"`
	VelocityWindow int          `json:"velocity_window"`
	PalmFacingMin  float64      `json:"palm_facing_min"`
	HairOffset     float64      `json:"hair_offset_fraction"`
	ScaleMethod    units.Method `json:"scale_method"`
	UseHairMask    bool         `json:"use_hair_mask"`

	ActiveRegions []region.Name                  `json:"active_regions"`
	Regions       map[region.Name]RegionSettings `json:"regions"`
}

// Notifications configures the user-facing alert.
type Notifications struct {
	Enabled         bool     `json:"enabled"`
	Title           string   `json:"title"`
	Message         string   `json:"message"`
	DurationSeconds int      `json:"duration_seconds"`
	CooldownSeconds int      `json:"cooldown_seconds"`
	Command         []string `json:"command,omitempty"`
	HooksDir        string   `json:"hooks_dir,omitempty"`
}

// Camera configures capture.
type Camera struct {
	DeviceID        int     `json:"device_id"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	FPS             int     `json:"fps"`
	IdleFPS         int     `json:"idle_fps"`
	Mirror          bool    `json:"mirror"`
	MotionThreshold float64 `json:"motion_threshold"`
	QueueSize       int     `json:"queue_size"`
}

// Server configures the HTTP and WebSocket listener.
type Server struct {
	Addr string `json:"addr"`
}

// Privacy controls what is persisted.
type Privacy struct {
	LogDetections bool `json:"log_detections"`
}

// Config is the complete application configuration.
type Config struct {
	Detection     Detection     `json:"detection"`
	Notifications Notifications `json:"notifications"`
	Camera        Camera        `json:"camera"`
	Server        Server        `json:"server"`
	Privacy       Privacy       `json:"privacy"`
	LogLevel      string        `json:"log_level"`
	ModelPath     string        `json:"model_path,omitempty"`
	// OnnxLibrary is the onnxruntime shared library used by the hair mask.
	OnnxLibrary string `json:"onnx_library,omitempty"`
}

// DefaultRegionSettings returns the per-region defaults.
func DefaultRegionSettings() map[region.Name]RegionSettings {
	return map[region.Name]RegionSettings{
		region.Scalp:       {ContactThreshold: 0.05, MinDetectionTime: 0.3, ShowLandmarks: true},
		region.Eyebrows:    {ContactThreshold: 0.02, MinDetectionTime: 0.2, ShowLandmarks: true},
		region.Eyes:        {ContactThreshold: 0.02, MinDetectionTime: 0.2, ShowLandmarks: true},
		region.Mouth:       {ContactThreshold: 0.03, MinDetectionTime: 0.2, ShowLandmarks: true},
		region.Beard:       {ContactThreshold: 0.04, MinDetectionTime: 0.25, ShowLandmarks: true},
		region.LeftTemple:  {ContactThreshold: 0.03, MinDetectionTime: 0.3, ShowLandmarks: true},
		region.RightTemple: {ContactThreshold: 0.03, MinDetectionTime: 0.3, ShowLandmarks: true},
	}
}

// DefaultDetection returns the default engine settings.
func DefaultDetection() Detection {
	return Detection{
		Sensitivity:         0.7,
		HandFaceThresholdCM: 15,
		ConfidenceThreshold: 0.6,
		PinchingThresholdCM: 3,
		DetectionIntervalMS: 100,
		MaxVelocity:         400,
		VelocityWindow:      5,
		PalmFacingMin:       0.3,
		HairOffset:          region.DefaultHairOffset,
		ScaleMethod:         units.MethodFaceWidth,
		ActiveRegions:       []region.Name{region.Eyebrows, region.LeftTemple, region.RightTemple, region.Scalp},
		Regions:             DefaultRegionSettings(),
	}
}

// Default returns the full default configuration.
func Default() Config {
	return Config{
		Detection: DefaultDetection(),
		Notifications: Notifications{
			Enabled:         true,
			Title:           "Mindful Moment",
			Message:         "Take a gentle pause",
			DurationSeconds: 3,
			CooldownSeconds: 10,
		},
		Camera: Camera{
			DeviceID:        0,
			Width:           640,
			Height:          480,
			FPS:             15,
			IdleFPS:         5,
			Mirror:          true,
			MotionThreshold: 1.0,
			QueueSize:       2,
		},
		Server:   Server{Addr: "127.0.0.1:8765"},
		Privacy:  Privacy{LogDetections: false},
		LogLevel: "info",
	}
}

// Clone returns a deep copy of d. The copy shares no slice or map with d.
func (d Detection) Clone() Detection {
	d.ActiveRegions = slices.Clone(d.ActiveRegions)
	if d.Regions != nil {
		regions := make(map[region.Name]RegionSettings, len(d.Regions))
		for n, s := range d.Regions {
			regions[n] = s
		}
		d.Regions = regions
	}
	return d
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	c.Detection = c.Detection.Clone()
	c.Notifications.Command = slices.Clone(c.Notifications.Command)
	return c
}

// Region returns the settings for a region, falling back to the defaults.
func (d Detection) Region(n region.Name) RegionSettings {
	if s, ok := d.Regions[n]; ok {
		return s
	}
	return DefaultRegionSettings()[n]
}

// IsActive reports whether a region is monitored.
func (d Detection) IsActive(n region.Name) bool {
	return slices.Contains(d.ActiveRegions, n)
}

// Toggle is a request to enable or disable one region.
type Toggle struct {
	Region  region.Name `json:"region"`
	Enabled bool        `json:"enabled"`
}

// WithRegion returns a copy of d with the region enabled or disabled. The
// receiver's slices are never modified.
func (d Detection) WithRegion(n region.Name, enabled bool) Detection {
	active := make([]region.Name, 0, len(d.ActiveRegions)+1)
	for _, r := range d.ActiveRegions {
		if r != n {
			active = append(active, r)
		}
	}
	if enabled {
		active = append(active, n)
	}
	d.ActiveRegions = active
	return d
}

// Apply folds a toggle into d.
func (d Detection) Apply(t Toggle) Detection {
	return d.WithRegion(t.Region, t.Enabled)
}

// Validate checks every value is within range.
func (c Config) Validate() error {
	if err := c.Detection.Validate(); err != nil {
		return err
	}

	n := c.Notifications
	if n.DurationSeconds < 1 || n.DurationSeconds > 30 {
		return fmt.Errorf("%w: notifications.duration_seconds %d out of range [1,30]", ErrInvalid, n.DurationSeconds)
	}
	if n.CooldownSeconds < 5 || n.CooldownSeconds > 300 {
		return fmt.Errorf("%w: notifications.cooldown_seconds %d out of range [5,300]", ErrInvalid, n.CooldownSeconds)
	}

	cam := c.Camera
	if cam.DeviceID < 0 {
		return fmt.Errorf("%w: camera.device_id must be >= 0", ErrInvalid)
	}
	if cam.Width < 320 || cam.Width > 1920 || cam.Height < 240 || cam.Height > 1080 {
		return fmt.Errorf("%w: camera resolution %dx%d out of range", ErrInvalid, cam.Width, cam.Height)
	}
	if cam.FPS < 1 || cam.FPS > 60 {
		return fmt.Errorf("%w: camera.fps %d out of range [1,60]", ErrInvalid, cam.FPS)
	}
	if cam.QueueSize < 1 {
		return fmt.Errorf("%w: camera.queue_size must be >= 1", ErrInvalid)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalid)
	}
	return nil
}

// Validate checks the detection settings.
func (d Detection) Validate() error {
	checks := []struct {
		name   string
		v      float64
		lo, hi float64
	}{
		{"sensitivity", d.Sensitivity, 0.1, 1.0},
		{"hand_face_threshold_cm", d.HandFaceThresholdCM, 2, 50},
		{"confidence_threshold", d.ConfidenceThreshold, 0.3, 0.95},
		{"pinching_threshold_cm", d.PinchingThresholdCM, 0.5, 10},
		{"detection_interval_ms", float64(d.DetectionIntervalMS), 50, 1000},
		{"palm_facing_min", d.PalmFacingMin, -1, 1},
		{"hair_offset_fraction", d.HairOffset, 0, 1},
	}
	for _, c := range checks {
		if c.v < c.lo || c.v > c.hi {
			return fmt.Errorf("%w: %s %v out of range [%v,%v]", ErrInvalid, c.name, c.v, c.lo, c.hi)
		}
	}

	if d.MaxVelocity <= 0 {
		return fmt.Errorf("%w: max_velocity_px_s must be positive", ErrInvalid)
	}
	if d.VelocityWindow < 1 {
		return fmt.Errorf("%w: velocity_window must be >= 1", ErrInvalid)
	}
	if !d.ScaleMethod.Valid() {
		return fmt.Errorf("%w: unknown scale_method %q", ErrInvalid, d.ScaleMethod)
	}
	for _, r := range d.ActiveRegions {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown region %q", ErrInvalid, r)
		}
	}
	for r, s := range d.Regions {
		if !r.Valid() {
			return fmt.Errorf("%w: unknown region %q", ErrInvalid, r)
		}
		if s.ContactThreshold < 0 || s.ContactThreshold > 0.5 {
			return fmt.Errorf("%w: %s.contact_threshold %v out of range [0,0.5]", ErrInvalid, r, s.ContactThreshold)
		}
		if s.MinDetectionTime < 0 || s.MinDetectionTime > 10 {
			return fmt.Errorf("%w: %s.min_detection_time %v out of range [0,10]", ErrInvalid, r, s.MinDetectionTime)
		}
	}
	return nil
}

// ApplyEnv overrides settings from MINDFUL_* environment variables.
// Unparseable values are reported; unset variables are ignored.
func (c *Config) ApplyEnv() error {
	var errs []error

	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	float := func(key string, dst *float64) {
		if v := os.Getenv(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	float("MINDFUL_SENSITIVITY", &c.Detection.Sensitivity)
	float("MINDFUL_THRESHOLD_CM", &c.Detection.HandFaceThresholdCM)
	float("MINDFUL_PINCH_THRESHOLD_CM", &c.Detection.PinchingThresholdCM)
	integer("MINDFUL_CAMERA_DEVICE", &c.Camera.DeviceID)
	boolean("MINDFUL_MIRROR", &c.Camera.Mirror)
	str("MINDFUL_ADDR", &c.Server.Addr)
	str("MINDFUL_LOG_LEVEL", &c.LogLevel)
	boolean("MINDFUL_LOG_DETECTIONS", &c.Privacy.LogDetections)
	str("MINDFUL_MODEL_PATH", &c.ModelPath)
	str("MINDFUL_ONNX_LIBRARY", &c.OnnxLibrary)
	str("MINDFUL_HOOKS_DIR", &c.Notifications.HooksDir)

	if v := os.Getenv("MINDFUL_REGIONS"); v != "" {
		var regions []region.Name
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				regions = append(regions, region.Name(r))
			}
		}
		c.Detection.ActiveRegions = regions
	}

	return errors.Join(errs...)
}
