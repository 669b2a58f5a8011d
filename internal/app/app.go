// Package app wires capture, detection, notification and persistence into
// the running MindfulTouch service.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mindfultouch/internal/capture"
	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/detector"
	"github.com/ayusman/mindfultouch/internal/engine"
	"github.com/ayusman/mindfultouch/internal/log"
	"github.com/ayusman/mindfultouch/internal/notify"
	"github.com/ayusman/mindfultouch/internal/region"
	"github.com/ayusman/mindfultouch/internal/segment"
	"github.com/ayusman/mindfultouch/internal/server/api"
	"github.com/ayusman/mindfultouch/internal/store"
)

// ToggleQueueSize bounds pending region toggles.
const ToggleQueueSize = 32

// ErrToggleQueueFull is returned when toggles arrive faster than frames.
var ErrToggleQueueFull = errors.New("region toggle queue full")

// Segmenter produces a hair mask for a frame.
type Segmenter interface {
	Segment(frame gocv.Mat) (*segment.Mask, error)
	Close() error
}

// Broadcaster pushes results to connected clients.
type Broadcaster interface {
	BroadcastDetection(res engine.DetectionResult)
	BroadcastAlert(a notify.Alert)
	ClientCount() int
}

// Config holds the application dependencies. Only Settings is required.
type Config struct {
	Settings  config.Config
	Store     *store.Store
	Camera    capture.Camera
	Detector  detector.Detector
	Notifier  *notify.Manager
	Segmenter Segmenter
	// Preview renders the annotated JPEG served on the MJPEG stream.
	Preview bool
}

// App is the main application that orchestrates capture, detection and
// alerts.
type App struct {
	camera    capture.Camera
	motion    *capture.MotionDetector
	gate      *capture.Gate
	queue     *capture.Queue
	detector  detector.Detector
	engine    *engine.Engine
	notifier  *notify.Manager
	segmenter Segmenter
	store     *store.Store
	preview   bool

	toggles     chan config.Toggle
	monitoring  atomic.Bool
	resetEngine atomic.Bool
	processed   atomic.Uint64
	seq         uint64

	mu          sync.RWMutex
	cfg         config.Config
	broadcaster Broadcaster
	latest      *engine.DetectionResult
	lastAlerts  []region.Name
	jpeg        []byte
	jpegSeq     uint64
	calib       calibration
	stop        func()
	done        sync.WaitGroup

	logger *slog.Logger
}

// New creates an App. Missing dependencies get defaults: a device camera,
// the MediaPipe detector (or the mock when it is unavailable) and a
// log-only notifier.
func New(c Config) *App {
	cfg := c.Settings
	logger := log.Component("app")

	a := &App{
		camera:    c.Camera,
		motion:    capture.NewMotionDetector(cfg.Camera.MotionThreshold),
		gate:      capture.NewGate(cfg.Camera.FPS, cfg.Camera.IdleFPS, capture.DefaultHold),
		queue:     capture.NewQueue(cfg.Camera.QueueSize),
		detector:  c.Detector,
		engine:    engine.New(),
		notifier:  c.Notifier,
		segmenter: c.Segmenter,
		store:     c.Store,
		preview:   c.Preview,
		toggles:   make(chan config.Toggle, ToggleQueueSize),
		cfg:       cfg,
		logger:    logger,
	}
	a.monitoring.Store(true)
	a.gate.SetMinInterval(detectionInterval(cfg.Detection))

	if a.camera == nil {
		a.camera = capture.NewCamera(cfg.Camera)
	}
	if a.notifier == nil {
		a.notifier = notify.NewManager(cfg.Notifications, notify.NewLogProvider())
	}
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(detectorConfig(cfg.Detection)); err == nil {
			a.detector = mp
			logger.Info("using MediaPipe landmark detection")
		} else {
			logger.Warn("MediaPipe not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	return a
}

// detectorConfig builds the landmark model settings from the detection
// settings.
func detectorConfig(d config.Detection) detector.Config {
	dc := detector.DefaultConfig()
	if d.ConfidenceThreshold > 0 {
		dc.MinConfidence = d.ConfidenceThreshold
		dc.MinTrackingConf = d.ConfidenceThreshold
	}
	return dc
}

// detectionInterval is the shortest time between processed frames.
func detectionInterval(d config.Detection) time.Duration {
	return time.Duration(d.DetectionIntervalMS) * time.Millisecond
}

// SetBroadcaster sets where results are pushed.
func (a *App) SetBroadcaster(b Broadcaster) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.broadcaster = b
}

// Config returns the current settings.
func (a *App) Config() config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.Clone()
}

// UpdateConfig validates and applies cfg, persisting it when a store is set.
func (a *App) UpdateConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if a.store != nil {
		if err := a.store.Settings().SaveConfig(cfg); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}

	a.mu.Lock()
	prev := a.cfg.Detection.ConfidenceThreshold
	a.cfg = cfg.Clone()
	a.mu.Unlock()

	a.notifier.SetConfig(cfg.Notifications)
	a.motion.SetThreshold(cfg.Camera.MotionThreshold)
	a.gate.SetMinInterval(detectionInterval(cfg.Detection))
	if cfg.Detection.ConfidenceThreshold != prev {
		a.logger.Info("confidence threshold takes effect when the detector restarts",
			"confidence_threshold", cfg.Detection.ConfidenceThreshold)
	}
	log.Debug("settings updated", "active_regions", cfg.Detection.ActiveRegions)
	return nil
}

// ToggleRegion queues a region toggle. It is applied before the next frame.
func (a *App) ToggleRegion(t config.Toggle) error {
	select {
	case a.toggles <- t:
		return nil
	default:
		return ErrToggleQueueFull
	}
}

// drainToggles applies every queued toggle. Called by the detection loop at
// a frame boundary.
func (a *App) drainToggles() {
	a.mu.Lock()
	changed := false
loop:
	for {
		select {
		case t := <-a.toggles:
			a.cfg.Detection = a.cfg.Detection.Apply(t)
			changed = true
			a.logger.Info("region toggled", "region", t.Region, "enabled", t.Enabled)
		default:
			break loop
		}
	}
	cfg := a.cfg
	a.mu.Unlock()

	if changed && a.store != nil {
		if err := a.store.Settings().SaveConfig(cfg); err != nil {
			a.logger.Warn("failed to persist region toggle", "error", err)
		}
	}
}

// SetMonitoring pauses or resumes detection. Detection state is cleared on
// pause so a stale alert never survives the gap.
func (a *App) SetMonitoring(enabled bool) {
	if a.monitoring.Swap(enabled) == enabled {
		return
	}
	if !enabled {
		a.resetEngine.Store(true)
		a.motion.Reset()
	}
	a.logger.Info("monitoring changed", "enabled", enabled)
}

// Monitoring reports whether detection is running.
func (a *App) Monitoring() bool {
	return a.monitoring.Load()
}

// Status returns a snapshot of the pipeline.
func (a *App) Status() api.Status {
	a.mu.RLock()
	latest := a.latest
	b := a.broadcaster
	a.mu.RUnlock()

	st := api.Status{
		Monitoring:        a.Monitoring(),
		CameraOpen:        a.camera.IsOpen(),
		FramesProcessed:   a.processed.Load(),
		FramesDropped:     a.queue.Dropped(),
		CooldownRemaining: a.notifier.CooldownRemaining(time.Now()).Seconds(),
		Latest:            latest,
	}
	if b != nil {
		st.Clients = b.ClientCount()
	}
	return st
}

// LatestResult returns the most recent detection result, if any.
func (a *App) LatestResult() (engine.DetectionResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.latest == nil {
		return engine.DetectionResult{}, false
	}
	return *a.latest, true
}

// LatestJPEG returns the latest annotated preview frame.
func (a *App) LatestJPEG() ([]byte, uint64) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.jpeg, a.jpegSeq
}

// Notifier returns the notification manager.
func (a *App) Notifier() *notify.Manager {
	return a.notifier
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	return a.camera
}

// Detector returns the landmark detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}
