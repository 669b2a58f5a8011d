package app

import (
	"errors"
	"math"
	"time"

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/engine"
	"github.com/ayusman/mindfultouch/internal/server/api"
	"github.com/ayusman/mindfultouch/internal/store"
)

// ErrNoCalibration is returned by ApplyCalibration before any run finished.
var ErrNoCalibration = errors.New("no finished calibration to apply")

// calibration is the state of the current or last calibration run. Guarded
// by App.mu.
type calibration struct {
	calibrator engine.Calibrator
	running    bool
	started    time.Time
	ends       time.Time
	stats      *engine.CalibrationStats
	storedID   string
	err        string
}

// StartCalibration collects hand-face distances for d. The user should keep
// their hands near their face, as they would before a pull.
func (a *App) StartCalibration(d time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := time.Now()
	a.finishCalibrationLocked(now)
	if a.calib.running {
		return api.ErrCalibrationRunning
	}

	a.calib = calibration{running: true, started: now, ends: now.Add(d)}
	a.logger.Info("calibration started", "duration", d)
	return nil
}

// Calibration reports the current or last run.
func (a *App) Calibration() api.CalibrationStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.finishCalibrationLocked(time.Now())

	c := &a.calib
	st := api.CalibrationStatus{Running: c.running, Stats: c.stats, Error: c.err}
	if !c.started.IsZero() {
		started, ends := c.started, c.ends
		st.StartedAt = &started
		st.EndsAt = &ends
	}
	return st
}

// collectCalibration feeds a result into a running calibration.
func (a *App) collectCalibration(res engine.DetectionResult, now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.calib.running {
		return
	}
	if now.Before(a.calib.ends) {
		a.calib.calibrator.Add(res)
		return
	}
	a.finishCalibrationLocked(now)
}

// finishCalibrationLocked closes a run whose time is up and stores its stats.
func (a *App) finishCalibrationLocked(now time.Time) {
	c := &a.calib
	if !c.running || now.Before(c.ends) {
		return
	}
	c.running = false

	stats, err := c.calibrator.Stats()
	if err != nil {
		c.err = err.Error()
		a.logger.Warn("calibration finished without samples")
		return
	}
	c.stats = &stats
	a.logger.Info("calibration finished",
		"samples", stats.Samples,
		"avg_cm", stats.AvgDistance,
		"suggested_cm", stats.SuggestedThreshold,
	)

	if a.store == nil {
		return
	}
	rec := &store.Calibration{
		Samples:            stats.Samples,
		MinDistance:        stats.MinDistance,
		MaxDistance:        stats.MaxDistance,
		AvgDistance:        stats.AvgDistance,
		MedianDistance:     stats.MedianDistance,
		SuggestedThreshold: stats.SuggestedThreshold,
	}
	if err := a.store.Calibrations().Create(rec); err != nil {
		a.logger.Warn("failed to store calibration", "error", err)
		return
	}
	c.storedID = rec.ID
}

// ApplyCalibration sets the hand-face threshold to the last suggestion,
// clamped to the valid range.
func (a *App) ApplyCalibration() (config.Config, error) {
	a.mu.Lock()
	a.finishCalibrationLocked(time.Now())
	stats := a.calib.stats
	id := a.calib.storedID
	cfg := a.cfg
	a.mu.Unlock()

	if stats == nil {
		return config.Config{}, ErrNoCalibration
	}

	cfg.Detection.HandFaceThresholdCM = math.Round(math.Min(math.Max(stats.SuggestedThreshold, 2), 50)*10) / 10
	if err := a.UpdateConfig(cfg); err != nil {
		return config.Config{}, err
	}

	if id != "" {
		if err := a.store.Calibrations().MarkApplied(id); err != nil {
			a.logger.Warn("failed to mark calibration applied", "error", err)
		}
	}
	return cfg, nil
}
