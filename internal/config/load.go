//
//
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is consulted when no explicit config file is given.
const DefaultPath = "gcs.yaml"

// Load merges Baseline() + the YAML file at path (skipped when absent)
// + GCS_* environment overrides, then validates the result. An empty
// path falls back to DefaultPath.
func Load(path string) (*Config, error) {
	config := Baseline()

	if path == "" {
		path = DefaultPath
	}
	if data, err := os.ReadFile(path); err == nil {
		// Decoding into the baseline keeps defaults for absent keys.
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	applyEnvOverrides(config)

	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// applyEnvOverrides applies GCS_* environment variables to the config.
func applyEnvOverrides(config *Config) {
	if val := os.Getenv("GCS_LISTEN"); val != "" {
		config.Listen = val
	}
	if val := os.Getenv("GCS_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}
	if val := os.Getenv("GCS_AUDIT_DIR"); val != "" {
		config.AuditDir = val
	}

	if val := os.Getenv("GCS_LINK_PRIMARY_LISTEN"); val != "" {
		config.Link.PrimaryListen = val
	}
	if val := os.Getenv("GCS_LINK_SECONDARY_TARGET"); val != "" {
		config.Link.SecondaryTarget = val
	}
	overrideDuration("GCS_LINK_POLL_TIMEOUT", &config.Link.PollTimeout)
	overrideDuration("GCS_LINK_CONN_TIMEOUT", &config.Link.ConnTimeout)
	overrideDuration("GCS_LINK_SWEEP_INTERVAL", &config.Link.SweepInterval)
	overrideInt("GCS_LINK_SECONDARY_REPEAT", &config.Link.SecondaryRepeat)
	overrideDuration("GCS_LINK_SECONDARY_REPEAT_DELAY", &config.Link.SecondaryRepeatDelay)
	overrideDuration("GCS_LINK_SECONDARY_HEALTH_WINDOW", &config.Link.SecondaryHealthWindow)
	overrideDuration("GCS_LINK_PROBE_INTERVAL", &config.Link.ProbeInterval)

	overrideInt("GCS_MISSION_MAX_CONCURRENT", &config.Mission.MaxConcurrentUploads)
	overrideDuration("GCS_MISSION_SLOT_TIMEOUT", &config.Mission.SlotTimeout)
	overrideDuration("GCS_MISSION_UPLOAD_TIMEOUT", &config.Mission.UploadTimeout)
	overrideDuration("GCS_MISSION_WAYPOINT_DELAY", &config.Mission.WaypointDelay)
	overrideDuration("GCS_MISSION_CLEAR_SETTLE", &config.Mission.ClearSettle)

	overrideInt("GCS_SAFETY_BATTERY_WARNING", &config.Safety.BatteryWarning)
	overrideInt("GCS_SAFETY_BATTERY_CRITICAL", &config.Safety.BatteryCritical)
	overrideInt("GCS_SAFETY_BATTERY_EMERGENCY", &config.Safety.BatteryEmergency)
	overrideDuration("GCS_SAFETY_COMM_TIMEOUT", &config.Safety.CommTimeout)
	overrideInt("GCS_SAFETY_MIN_SATELLITES", &config.Safety.MinSatellites)
	overrideFloat("GCS_SAFETY_MAX_ALTITUDE_M", &config.Safety.MaxAltitudeM)
	overrideFloat("GCS_SAFETY_MIN_ALTITUDE_M", &config.Safety.MinAltitudeM)
	overrideFloat("GCS_SAFETY_MAX_GROUND_SPEED", &config.Safety.MaxGroundSpeed)
	overrideFloat("GCS_SAFETY_MAX_ATTITUDE_RAD", &config.Safety.MaxAttitudeRad)
	overrideDuration("GCS_SAFETY_MISSION_TIMEOUT", &config.Safety.MissionTimeout)
	overrideDuration("GCS_SAFETY_ALERT_COOLDOWN", &config.Safety.AlertCooldown)
	overrideDuration("GCS_SAFETY_CHECK_INTERVAL", &config.Safety.CheckInterval)

	overrideInt("GCS_EVENTS_BUFFER_SIZE", &config.Events.BufferSize)
	overrideDuration("GCS_EVENTS_HEARTBEAT_INTERVAL", &config.Events.HeartbeatInterval)

	overrideDuration("GCS_API_READ_TIMEOUT", &config.API.ReadTimeout)
	overrideDuration("GCS_API_WRITE_TIMEOUT", &config.API.WriteTimeout)
	overrideDuration("GCS_API_PENDING_WINDOW", &config.API.PendingWindow)
	if val := os.Getenv("GCS_API_JWT_SECRET"); val != "" {
		config.API.JWTSecret = val
	}
	if val := os.Getenv("GCS_API_JWKS_PATH"); val != "" {
		config.API.JWKSPath = val
	}
}

func overrideDuration(key string, target *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			*target = duration
		}
	}
}

func overrideInt(key string, target *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*target = n
		}
	}
}

func overrideFloat(key string, target *float64) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*target = f
		}
	}
}
