package app

import (
	"context"
	"errors"
	"slices"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mindfultouch/internal/capture"
	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/engine"
	"github.com/ayusman/mindfultouch/internal/filter"
	"github.com/ayusman/mindfultouch/internal/notify"
	"github.com/ayusman/mindfultouch/internal/overlay"
	"github.com/ayusman/mindfultouch/internal/region"
	"github.com/ayusman/mindfultouch/internal/store"
)

// pausedPoll is how often the capture loop checks for resumed monitoring.
const pausedPoll = 250 * time.Millisecond

// Start opens the camera and begins the capture and detection loops.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stop != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.gate.FPS(time.Now()))

	ctx, cancel := context.WithCancel(ctx)
	a.stop = cancel

	a.done.Add(2)
	go func() {
		defer a.done.Done()
		a.captureLoop(ctx)
	}()
	go func() {
		defer a.done.Done()
		a.detectLoop(ctx)
	}()

	a.logger.Info("detection pipeline started")
	return nil
}

// Stop halts the pipeline and releases the camera, detector and segmenter.
func (a *App) Stop() {
	a.mu.Lock()
	stop := a.stop
	a.stop = nil
	a.mu.Unlock()

	if stop != nil {
		stop()
		a.done.Wait()
	}
	a.queue.Close()
	a.queue.Drain()

	if err := a.camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}
	a.motion.Close()
	a.notifier.Close()
	if err := a.detector.Close(); err != nil {
		a.logger.Warn("error closing detector", "error", err)
	}
	if a.segmenter != nil {
		if err := a.segmenter.Close(); err != nil {
			a.logger.Warn("error closing segmenter", "error", err)
		}
	}

	a.logger.Info("detection pipeline stopped")
}

// captureLoop reads frames at the rate chosen by the motion gate and hands
// them to the detection loop through the drop-oldest queue.
func (a *App) captureLoop(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	lastFPS := a.camera.FPS()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !a.Monitoring() {
			timer.Reset(pausedPoll)
			continue
		}

		now := time.Now()
		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrNoFrames) {
				a.logger.Info("camera has no more frames")
				return
			}
			a.logger.Debug("error reading frame", "error", err)
			timer.Reset(a.gate.Interval(now))
			continue
		}

		moving, _ := a.motion.Detect(frame)
		a.gate.Observe(moving, now)
		if fps := a.gate.FPS(now); fps != lastFPS {
			a.camera.SetFPS(fps)
			a.logger.Debug("capture rate changed", "fps", fps)
			lastFPS = fps
		}

		a.seq++
		if a.queue.Push(capture.Frame{Mat: frame, Seq: a.seq, Timestamp: now}) {
			a.logger.Debug("dropped stale frame", "dropped", a.queue.Dropped())
		}

		timer.Reset(a.gate.Interval(now))
	}
}

// detectLoop processes queued frames until the context ends.
func (a *App) detectLoop(ctx context.Context) {
	for {
		f, err := a.queue.Pop(ctx)
		if err != nil {
			return
		}
		if a.Monitoring() {
			a.Process(ctx, f.Mat, f.Timestamp)
		}
		f.Close()
	}
}

// Process runs one frame through detection, alerts, the event log and the
// preview. It is called by the detection loop only.
func (a *App) Process(ctx context.Context, frame *gocv.Mat, now time.Time) (engine.DetectionResult, bool) {
	if a.resetEngine.CompareAndSwap(true, false) {
		a.engine.Reset()
		a.mu.Lock()
		a.lastAlerts = nil
		a.mu.Unlock()
	}
	a.drainToggles()
	cfg := a.Config()

	raw, err := a.detector.Detect(frame)
	if err != nil {
		a.logger.Warn("landmark detection failed", "error", err)
		return engine.DetectionResult{}, false
	}

	var mask filter.Mask
	if cfg.Detection.UseHairMask && a.segmenter != nil {
		m, err := a.segmenter.Segment(*frame)
		if err != nil {
			a.logger.Warn("hair segmentation failed", "error", err)
		} else if m != nil {
			mask = m
		}
	}

	res := a.engine.Process(engine.Input{
		Raw:    raw,
		Width:  frame.Cols(),
		Height: frame.Rows(),
		Config: cfg.Detection,
		Now:    now,
		Mask:   mask,
	})
	a.processed.Add(1)
	if res.HandsDetected > 0 {
		a.gate.Observe(true, now)
	}

	a.collectCalibration(res, now)

	a.mu.Lock()
	prev := a.lastAlerts
	a.lastAlerts = res.AlertsActive
	b := a.broadcaster
	a.mu.Unlock()

	alert, ok := alertFor(res, prev)
	notified := false
	if ok {
		sent, err := a.notifier.Dispatch(alert)
		switch {
		case errors.Is(err, notify.ErrCooldown), errors.Is(err, notify.ErrDisabled):
			// Suppressed.
		case err != nil:
			a.logger.Warn("notification not sent", "event", alert.Event, "error", err)
		default:
			notified = true
		}
		if notified && b != nil {
			b.BroadcastAlert(sent)
		}
		a.record(cfg.Privacy.LogDetections, alert.Event, alert.Region, res, notified)
	} else if res.Event != engine.EventNone {
		a.record(cfg.Privacy.LogDetections, string(res.Event), res.PullingRegion, res, false)
	}

	if b != nil {
		b.BroadcastDetection(res)
	}
	if a.preview {
		a.renderPreview(frame, res, cfg.Detection)
	}

	a.mu.Lock()
	a.latest = &res
	a.mu.Unlock()

	return res, true
}

// alertFor decides whether a frame deserves a notification: a pulling onset,
// or a region that started alerting since the previous frame.
func alertFor(res engine.DetectionResult, prev []region.Name) (notify.Alert, bool) {
	if res.Event.IsPinch() {
		for _, n := range region.PinchPriority {
			if engine.PinchEvent(n) == res.Event {
				return notify.Alert{Event: string(res.Event), Region: n, Timestamp: res.Timestamp}, true
			}
		}
	}
	for _, n := range res.AlertsActive {
		if !slices.Contains(prev, n) {
			return notify.Alert{Event: string(n) + "_contact", Region: n, Timestamp: res.Timestamp}, true
		}
	}
	return notify.Alert{}, false
}

// record writes an event to the log when the user has opted in.
func (a *App) record(enabled bool, event string, r region.Name, res engine.DetectionResult, notified bool) {
	if !enabled || a.store == nil {
		return
	}

	e := &store.Event{
		Event:         event,
		Region:        string(r),
		Stage:         string(res.Stage),
		DistanceCM:    res.MinHandFaceDistanceCM,
		ContactPoints: res.ContactPoints(),
		Notified:      notified,
		CreatedAt:     res.Timestamp,
	}
	if err := a.store.Events().Create(e); err != nil {
		a.logger.Warn("failed to record detection event", "event", event, "error", err)
	}
}

func (a *App) renderPreview(frame *gocv.Mat, res engine.DetectionResult, cfg config.Detection) {
	img := frame.Clone()
	defer img.Close()

	overlay.Draw(&img, res, cfg)
	buf, err := overlay.EncodeJPEG(img)
	if err != nil {
		a.logger.Debug("preview encode failed", "error", err)
		return
	}

	a.mu.Lock()
	a.jpeg = buf
	a.jpegSeq++
	a.mu.Unlock()
}
