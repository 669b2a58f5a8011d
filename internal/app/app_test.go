package app

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mindfultouch/internal/capture"
	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/detector"
	"github.com/ayusman/mindfultouch/internal/engine"
	"github.com/ayusman/mindfultouch/internal/notify"
	"github.com/ayusman/mindfultouch/internal/region"
	"github.com/ayusman/mindfultouch/internal/server/api"
	"github.com/ayusman/mindfultouch/internal/store"
)

type fakeBroadcaster struct {
	mu      sync.Mutex
	results []engine.DetectionResult
	alerts  []notify.Alert
}

func (b *fakeBroadcaster) BroadcastDetection(res engine.DetectionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, res)
}

func (b *fakeBroadcaster) BroadcastAlert(a notify.Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, a)
}

func (b *fakeBroadcaster) ClientCount() int { return 1 }

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newApp(t *testing.T, s *store.Store) *App {
	t.Helper()
	return New(Config{
		Settings: config.Default(),
		Store:    s,
		Camera:   capture.NewMockCamera(nil, false),
		Detector: detector.NewMockDetector(),
	})
}

func dist(v float64) *float64 { return &v }

func TestAlertFor(t *testing.T) {
	ts := time.Unix(10, 0)
	tests := []struct {
		name       string
		res        engine.DetectionResult
		prev       []region.Name
		wantOK     bool
		wantEvent  string
		wantRegion region.Name
	}{
		{
			name:       "pinch onset",
			res:        engine.DetectionResult{Event: engine.EventScalpPinch, AlertsActive: []region.Name{region.Scalp}},
			wantOK:     true,
			wantEvent:  "scalp_pinch",
			wantRegion: region.Scalp,
		},
		{
			name:       "new contact alert",
			res:        engine.DetectionResult{AlertsActive: []region.Name{region.Eyebrows, region.Mouth}},
			prev:       []region.Name{region.Eyebrows},
			wantOK:     true,
			wantEvent:  "mouth_contact",
			wantRegion: region.Mouth,
		},
		{
			name: "alert continues",
			res:  engine.DetectionResult{AlertsActive: []region.Name{region.Mouth}},
			prev: []region.Name{region.Mouth},
		},
		{
			name: "proximity only",
			res:  engine.DetectionResult{Event: engine.EventHandNearFace},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.res.Timestamp = ts
			a, ok := alertFor(tt.res, tt.prev)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if a.Event != tt.wantEvent || a.Region != tt.wantRegion || !a.Timestamp.Equal(ts) {
				t.Errorf("alert = %+v", a)
			}
		})
	}
}

func TestApp_ToggleRegion(t *testing.T) {
	s := newStore(t)
	a := newApp(t, s)

	if err := a.ToggleRegion(config.Toggle{Region: region.Mouth, Enabled: true}); err != nil {
		t.Fatalf("ToggleRegion() error = %v", err)
	}
	if err := a.ToggleRegion(config.Toggle{Region: region.Scalp, Enabled: false}); err != nil {
		t.Fatalf("ToggleRegion() error = %v", err)
	}

	if a.Config().Detection.IsActive(region.Mouth) {
		t.Error("toggle applied before the frame boundary")
	}

	a.drainToggles()

	d := a.Config().Detection
	if !d.IsActive(region.Mouth) || d.IsActive(region.Scalp) {
		t.Errorf("active regions = %v", d.ActiveRegions)
	}

	stored, err := s.Settings().LoadConfig(config.Default())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !stored.Detection.IsActive(region.Mouth) {
		t.Errorf("toggle not persisted: %v", stored.Detection.ActiveRegions)
	}

	for i := 0; i < ToggleQueueSize; i++ {
		if err := a.ToggleRegion(config.Toggle{Region: region.Eyes, Enabled: i%2 == 0}); err != nil {
			t.Fatalf("toggle %d error = %v", i, err)
		}
	}
	if err := a.ToggleRegion(config.Toggle{Region: region.Eyes}); !errors.Is(err, ErrToggleQueueFull) {
		t.Errorf("overflow error = %v, want ErrToggleQueueFull", err)
	}
}

func TestApp_UpdateConfig(t *testing.T) {
	s := newStore(t)
	a := newApp(t, s)

	bad := config.Default()
	bad.Detection.Sensitivity = 2
	if err := a.UpdateConfig(bad); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("UpdateConfig(invalid) error = %v", err)
	}

	cfg := config.Default()
	cfg.Notifications.CooldownSeconds = 30
	cfg.Privacy.LogDetections = true
	if err := a.UpdateConfig(cfg); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if a.Notifier().Config().CooldownSeconds != 30 {
		t.Error("notifier did not receive the new settings")
	}

	stored, _ := s.Settings().LoadConfig(config.Default())
	if !stored.Privacy.LogDetections {
		t.Error("settings not persisted")
	}

	got := a.Config()
	got.Detection.ActiveRegions[0] = region.Mouth
	got.Detection.Regions[region.Scalp] = config.RegionSettings{MinDetectionTime: 9}
	cfg.Detection.Regions[region.Eyebrows] = config.RegionSettings{MinDetectionTime: 7}
	live := a.Config().Detection
	if live.ActiveRegions[0] == region.Mouth || live.Regions[region.Scalp].MinDetectionTime == 9 {
		t.Error("Config() shares state with the running config")
	}
	if live.Regions[region.Eyebrows].MinDetectionTime == 7 {
		t.Error("UpdateConfig kept a reference to the caller's map")
	}
}

func TestDetectorConfig(t *testing.T) {
	d := config.DefaultDetection()
	d.ConfidenceThreshold = 0.85
	dc := detectorConfig(d)
	if dc.MinConfidence != 0.85 || dc.MinTrackingConf != 0.85 {
		t.Errorf("detector confidence = %v/%v, want 0.85", dc.MinConfidence, dc.MinTrackingConf)
	}
	if dc.MaxHands != detector.DefaultConfig().MaxHands {
		t.Errorf("MaxHands = %d", dc.MaxHands)
	}
}

func TestApp_DetectionInterval(t *testing.T) {
	a := newApp(t, nil)
	now := time.Unix(100, 0)
	a.gate.Observe(true, now)

	// Default camera runs at 15fps but detection is capped at 100ms.
	if got := a.gate.Interval(now); got != 100*time.Millisecond {
		t.Errorf("Interval = %v, want 100ms", got)
	}

	cfg := a.Config()
	cfg.Detection.DetectionIntervalMS = 250
	if err := a.UpdateConfig(cfg); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if got := a.gate.Interval(now); got != 250*time.Millisecond {
		t.Errorf("Interval after update = %v, want 250ms", got)
	}
}

func TestApp_Monitoring(t *testing.T) {
	a := newApp(t, nil)

	if !a.Monitoring() {
		t.Fatal("monitoring should start enabled")
	}
	a.SetMonitoring(false)
	if a.Status().Monitoring {
		t.Error("Status().Monitoring = true after pause")
	}
	if !a.resetEngine.Load() {
		t.Error("pause should schedule an engine reset")
	}
	a.SetMonitoring(true)
	if !a.Status().Monitoring {
		t.Error("Status().Monitoring = false after resume")
	}
}

func TestApp_Calibration(t *testing.T) {
	s := newStore(t)
	a := newApp(t, s)

	if _, err := a.ApplyCalibration(); !errors.Is(err, ErrNoCalibration) {
		t.Errorf("ApplyCalibration() before a run error = %v", err)
	}

	if err := a.StartCalibration(time.Second); err != nil {
		t.Fatalf("StartCalibration() error = %v", err)
	}
	if err := a.StartCalibration(time.Second); !errors.Is(err, api.ErrCalibrationRunning) {
		t.Errorf("second StartCalibration() error = %v", err)
	}

	now := time.Now()
	for _, d := range []float64{10, 20} {
		a.collectCalibration(engine.DetectionResult{
			FaceDetected:          true,
			HandsDetected:         1,
			MinHandFaceDistanceCM: dist(d),
		}, now)
	}
	a.collectCalibration(engine.DetectionResult{FaceDetected: true}, now)

	if st := a.Calibration(); !st.Running || st.Stats != nil {
		t.Errorf("calibration ended early: %+v", st)
	}

	a.collectCalibration(engine.DetectionResult{}, now.Add(2*time.Second))

	st := a.Calibration()
	if st.Running || st.Stats == nil {
		t.Fatalf("calibration status = %+v", st)
	}
	if st.Stats.Samples != 2 || st.Stats.AvgDistance != 15 || st.Stats.SuggestedThreshold != 10.5 {
		t.Errorf("stats = %+v", st.Stats)
	}

	cfg, err := a.ApplyCalibration()
	if err != nil {
		t.Fatalf("ApplyCalibration() error = %v", err)
	}
	if cfg.Detection.HandFaceThresholdCM != 10.5 || a.Config().Detection.HandFaceThresholdCM != 10.5 {
		t.Errorf("threshold = %v", cfg.Detection.HandFaceThresholdCM)
	}

	latest, err := s.Calibrations().Latest()
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.Samples != 2 || !latest.Applied {
		t.Errorf("stored calibration = %+v", latest)
	}
}

func TestApp_CalibrationWithoutSamples(t *testing.T) {
	a := newApp(t, nil)

	if err := a.StartCalibration(time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)

	st := a.Calibration()
	if st.Running || st.Stats != nil || st.Error == "" {
		t.Errorf("status = %+v", st)
	}
	if _, err := a.ApplyCalibration(); !errors.Is(err, ErrNoCalibration) {
		t.Errorf("ApplyCalibration() error = %v", err)
	}
}
