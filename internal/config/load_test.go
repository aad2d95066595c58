package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadBaselineWhenNoFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Link.ConnTimeout != 10*time.Second {
		t.Errorf("ConnTimeout = %v, want 10s", cfg.Link.ConnTimeout)
	}
	if cfg.Mission.MaxConcurrentUploads != 2 {
		t.Errorf("MaxConcurrentUploads = %d, want 2", cfg.Mission.MaxConcurrentUploads)
	}
	if cfg.Safety.BatteryEmergency != 10 {
		t.Errorf("BatteryEmergency = %d, want 10", cfg.Safety.BatteryEmergency)
	}
}

func TestLoadFileOverridesBaseline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gcs.yaml")
	content := `
listen: ":9090"
mission:
  maxConcurrentUploads: 4
safety:
  batteryWarning: 40
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9090" {
		t.Errorf("Listen = %q, want :9090", cfg.Listen)
	}
	if cfg.Mission.MaxConcurrentUploads != 4 {
		t.Errorf("MaxConcurrentUploads = %d, want 4", cfg.Mission.MaxConcurrentUploads)
	}
	if cfg.Safety.BatteryWarning != 40 {
		t.Errorf("BatteryWarning = %d, want 40", cfg.Safety.BatteryWarning)
	}
	// Untouched keys keep their defaults.
	if cfg.Mission.UploadTimeout != 30*time.Second {
		t.Errorf("UploadTimeout = %v, want default 30s", cfg.Mission.UploadTimeout)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gcs.yaml")
	if err := os.WriteFile(path, []byte("listen: \":9090\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GCS_LISTEN", ":7070")
	t.Setenv("GCS_MISSION_UPLOAD_TIMEOUT", "45s")
	t.Setenv("GCS_SAFETY_MAX_ALTITUDE_M", "90")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":7070" {
		t.Errorf("Listen = %q, want :7070", cfg.Listen)
	}
	if cfg.Mission.UploadTimeout != 45*time.Second {
		t.Errorf("UploadTimeout = %v, want 45s", cfg.Mission.UploadTimeout)
	}
	if cfg.Safety.MaxAltitudeM != 90 {
		t.Errorf("MaxAltitudeM = %v, want 90", cfg.Safety.MaxAltitudeM)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gcs.yaml")
	if err := os.WriteFile(path, []byte("listen: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted battery tiers", func(c *Config) { c.Safety.BatteryCritical = 50 }},
		{"zero comm timeout", func(c *Config) { c.Safety.CommTimeout = 0 }},
		{"conn timeout below poll", func(c *Config) { c.Link.ConnTimeout = time.Millisecond }},
		{"zero upload slots", func(c *Config) { c.Mission.MaxConcurrentUploads = 0 }},
		{"altitude floor above ceiling", func(c *Config) { c.Safety.MinAltitudeM = 500 }},
		{"zero event buffer", func(c *Config) { c.Events.BufferSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Baseline()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
