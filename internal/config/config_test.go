package config

import (
	"errors"
	"testing"

	"github.com/ayusman/mindfultouch/internal/region"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"sensitivity too low", func(c *Config) { c.Detection.Sensitivity = 0.05 }},
		{"sensitivity too high", func(c *Config) { c.Detection.Sensitivity = 1.1 }},
		{"threshold too small", func(c *Config) { c.Detection.HandFaceThresholdCM = 1 }},
		{"threshold too large", func(c *Config) { c.Detection.HandFaceThresholdCM = 51 }},
		{"confidence", func(c *Config) { c.Detection.ConfidenceThreshold = 0.99 }},
		{"pinch threshold", func(c *Config) { c.Detection.PinchingThresholdCM = 0.1 }},
		{"interval", func(c *Config) { c.Detection.DetectionIntervalMS = 10 }},
		{"velocity", func(c *Config) { c.Detection.MaxVelocity = 0 }},
		{"window", func(c *Config) { c.Detection.VelocityWindow = 0 }},
		{"scale method", func(c *Config) { c.Detection.ScaleMethod = "ruler" }},
		{"unknown active region", func(c *Config) { c.Detection.ActiveRegions = []region.Name{"nose"} }},
		{"region dwell", func(c *Config) {
			c.Detection.Regions[region.Scalp] = RegionSettings{ContactThreshold: 0.05, MinDetectionTime: -1}
		}},
		{"cooldown", func(c *Config) { c.Notifications.CooldownSeconds = 1 }},
		{"duration", func(c *Config) { c.Notifications.DurationSeconds = 60 }},
		{"camera width", func(c *Config) { c.Camera.Width = 100 }},
		{"queue size", func(c *Config) { c.Camera.QueueSize = 0 }},
		{"addr", func(c *Config) { c.Server.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)

			err := c.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestDetection_WithRegion(t *testing.T) {
	d := DefaultDetection()
	original := append([]region.Name(nil), d.ActiveRegions...)

	t.Run("enable", func(t *testing.T) {
		got := d.WithRegion(region.Mouth, true)
		if !got.IsActive(region.Mouth) {
			t.Error("mouth should be active")
		}
		if len(got.ActiveRegions) != len(original)+1 {
			t.Errorf("active = %v", got.ActiveRegions)
		}
	})

	t.Run("enable twice is idempotent", func(t *testing.T) {
		got := d.WithRegion(region.Scalp, true)
		if len(got.ActiveRegions) != len(original) {
			t.Errorf("active = %v", got.ActiveRegions)
		}
	})

	t.Run("disable", func(t *testing.T) {
		got := d.Apply(Toggle{Region: region.Scalp, Enabled: false})
		if got.IsActive(region.Scalp) {
			t.Error("scalp should be inactive")
		}
	})

	t.Run("receiver untouched", func(t *testing.T) {
		d.WithRegion(region.Eyebrows, false)
		for i, r := range original {
			if d.ActiveRegions[i] != r {
				t.Fatalf("receiver modified: %v", d.ActiveRegions)
			}
		}
	})
}

func TestConfig_Clone(t *testing.T) {
	c := Default()
	c.Notifications.Command = []string{"notify-send"}
	clone := c.Clone()

	clone.Detection.ActiveRegions[0] = region.Mouth
	clone.Detection.Regions[region.Scalp] = RegionSettings{MinDetectionTime: 9}
	clone.Notifications.Command[0] = "other"

	if c.Detection.ActiveRegions[0] != region.Eyebrows {
		t.Errorf("active regions shared: %v", c.Detection.ActiveRegions)
	}
	if c.Detection.Regions[region.Scalp].MinDetectionTime != 0.3 {
		t.Errorf("regions map shared: %+v", c.Detection.Regions[region.Scalp])
	}
	if c.Notifications.Command[0] != "notify-send" {
		t.Errorf("command shared: %v", c.Notifications.Command)
	}

	var empty Detection
	if got := empty.Clone(); got.Regions != nil || got.ActiveRegions != nil {
		t.Errorf("Clone of empty detection = %+v", got)
	}
}

func TestDetection_Region(t *testing.T) {
	d := DefaultDetection()
	d.Regions = nil

	if got := d.Region(region.Eyebrows).MinDetectionTime; got != 0.2 {
		t.Errorf("fallback eyebrows dwell = %v, want 0.2", got)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("MINDFUL_SENSITIVITY", "0.9")
	t.Setenv("MINDFUL_ADDR", ":9000")
	t.Setenv("MINDFUL_MIRROR", "false")
	t.Setenv("MINDFUL_REGIONS", "scalp, mouth")

	c := Default()
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv() error = %v", err)
	}

	if c.Detection.Sensitivity != 0.9 {
		t.Errorf("Sensitivity = %v", c.Detection.Sensitivity)
	}
	if c.Server.Addr != ":9000" {
		t.Errorf("Addr = %q", c.Server.Addr)
	}
	if c.Camera.Mirror {
		t.Error("Mirror should be false")
	}
	if len(c.Detection.ActiveRegions) != 2 || c.Detection.ActiveRegions[1] != region.Mouth {
		t.Errorf("ActiveRegions = %v", c.Detection.ActiveRegions)
	}
}

func TestApplyEnv_BadValue(t *testing.T) {
	t.Setenv("MINDFUL_SENSITIVITY", "high")

	c := Default()
	if err := c.ApplyEnv(); err == nil {
		t.Error("expected parse error")
	}
	if c.Detection.Sensitivity != 0.7 {
		t.Errorf("bad value should not be applied, got %v", c.Detection.Sensitivity)
	}
}
