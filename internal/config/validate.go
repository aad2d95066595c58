//
//
package config

import "fmt"

// Validate enforces the cross-field rules the components rely on.
func Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := validateLink(&config.Link); err != nil {
		return fmt.Errorf("link validation failed: %w", err)
	}
	if err := validateMission(&config.Mission); err != nil {
		return fmt.Errorf("mission validation failed: %w", err)
	}
	if err := validateSafety(&config.Safety); err != nil {
		return fmt.Errorf("safety validation failed: %w", err)
	}
	if err := validateEvents(&config.Events); err != nil {
		return fmt.Errorf("events validation failed: %w", err)
	}
	return nil
}

func validateLink(link *LinkConfig) error {
	if link.PrimaryListen == "" {
		return fmt.Errorf("primary listen address is required")
	}
	if link.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive, got %v", link.PollTimeout)
	}
	if link.ConnTimeout <= link.PollTimeout {
		return fmt.Errorf("connection timeout %v must exceed poll timeout %v", link.ConnTimeout, link.PollTimeout)
	}
	if link.SweepInterval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %v", link.SweepInterval)
	}
	if link.SecondaryRepeat < 1 {
		return fmt.Errorf("secondary repeat must be at least 1, got %d", link.SecondaryRepeat)
	}
	if link.SecondaryHealthWindow <= 0 {
		return fmt.Errorf("secondary health window must be positive, got %v", link.SecondaryHealthWindow)
	}
	if link.ProbeInterval <= 0 {
		return fmt.Errorf("probe interval must be positive, got %v", link.ProbeInterval)
	}
	return nil
}

func validateMission(mission *MissionConfig) error {
	if mission.MaxConcurrentUploads < 1 {
		return fmt.Errorf("max concurrent uploads must be at least 1, got %d", mission.MaxConcurrentUploads)
	}
	if mission.SlotTimeout <= 0 {
		return fmt.Errorf("slot timeout must be positive, got %v", mission.SlotTimeout)
	}
	if mission.UploadTimeout <= 0 {
		return fmt.Errorf("upload timeout must be positive, got %v", mission.UploadTimeout)
	}
	if mission.WaypointDelay < 0 {
		return fmt.Errorf("waypoint delay must be non-negative, got %v", mission.WaypointDelay)
	}
	return nil
}

func validateSafety(safety *SafetyConfig) error {
	if safety.BatteryEmergency < 0 || safety.BatteryWarning > 100 {
		return fmt.Errorf("battery thresholds must stay within 0-100")
	}
	if safety.BatteryEmergency >= safety.BatteryCritical || safety.BatteryCritical >= safety.BatteryWarning {
		return fmt.Errorf("battery tiers must satisfy emergency %d < critical %d < warning %d",
			safety.BatteryEmergency, safety.BatteryCritical, safety.BatteryWarning)
	}
	if safety.CommTimeout <= 0 {
		return fmt.Errorf("comm timeout must be positive, got %v", safety.CommTimeout)
	}
	if safety.MinAltitudeM >= safety.MaxAltitudeM {
		return fmt.Errorf("minimum altitude %v must stay below maximum %v", safety.MinAltitudeM, safety.MaxAltitudeM)
	}
	if safety.AlertCooldown <= 0 {
		return fmt.Errorf("alert cooldown must be positive, got %v", safety.AlertCooldown)
	}
	if safety.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive, got %v", safety.CheckInterval)
	}
	return nil
}

func validateEvents(events *EventsConfig) error {
	if events.BufferSize < 1 {
		return fmt.Errorf("event buffer size must be at least 1, got %d", events.BufferSize)
	}
	if events.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %v", events.HeartbeatInterval)
	}
	return nil
}
