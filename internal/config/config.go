package config

import "time"

// Config is the full station configuration.
type Config struct {
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"logLevel"`
	AuditDir string `yaml:"auditDir"`

	Link    LinkConfig    `yaml:"link"`
	Mission MissionConfig `yaml:"mission"`
	Safety  SafetyConfig  `yaml:"safety"`
	Events  EventsConfig  `yaml:"events"`
	API     APIConfig     `yaml:"api"`
}

// LinkConfig tunes the receive loop and the channel arbiter.
type LinkConfig struct {
	PrimaryListen         string        `yaml:"primaryListen"`
	SecondaryTarget       string        `yaml:"secondaryTarget"`
	PollTimeout           time.Duration `yaml:"pollTimeout"`
	ConnTimeout           time.Duration `yaml:"connTimeout"`
	SweepInterval         time.Duration `yaml:"sweepInterval"`
	SecondaryRepeat       int           `yaml:"secondaryRepeat"`
	SecondaryRepeatDelay  time.Duration `yaml:"secondaryRepeatDelay"`
	SecondaryHealthWindow time.Duration `yaml:"secondaryHealthWindow"`
	ProbeInterval         time.Duration `yaml:"probeInterval"`
}

// MissionConfig tunes the upload engine.
type MissionConfig struct {
	MaxConcurrentUploads int           `yaml:"maxConcurrentUploads"`
	SlotTimeout          time.Duration `yaml:"slotTimeout"`
	UploadTimeout        time.Duration `yaml:"uploadTimeout"`
	WaypointDelay        time.Duration `yaml:"waypointDelay"`
	ClearSettle          time.Duration `yaml:"clearSettle"`
}

// SafetyConfig tunes the safety monitor.
type SafetyConfig struct {
	BatteryWarning   int           `yaml:"batteryWarning"`
	BatteryCritical  int           `yaml:"batteryCritical"`
	BatteryEmergency int           `yaml:"batteryEmergency"`
	CommTimeout      time.Duration `yaml:"commTimeout"`
	MinSatellites    int           `yaml:"minSatellites"`
	MaxAltitudeM     float64       `yaml:"maxAltitudeM"`
	MinAltitudeM     float64       `yaml:"minAltitudeM"`
	MaxGroundSpeed   float64       `yaml:"maxGroundSpeed"`
	MaxAttitudeRad   float64       `yaml:"maxAttitudeRad"`
	MissionTimeout   time.Duration `yaml:"missionTimeout"`
	AlertCooldown    time.Duration `yaml:"alertCooldown"`
	CheckInterval    time.Duration `yaml:"checkInterval"`
}

// EventsConfig tunes the event hub.
type EventsConfig struct {
	BufferSize        int           `yaml:"bufferSize"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
}

// APIConfig tunes the HTTP server and command handling.
type APIConfig struct {
	ReadTimeout   time.Duration `yaml:"readTimeout"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
	PendingWindow time.Duration `yaml:"pendingWindow"`
	JWTSecret     string        `yaml:"jwtSecret"`
	JWKSPath      string        `yaml:"jwksPath"`
}

// Baseline returns the compiled-in defaults.
func Baseline() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		AuditDir: "logs/audit",

		Link: LinkConfig{
			PrimaryListen:         ":14550",
			SecondaryTarget:       "",
			PollTimeout:           100 * time.Millisecond,
			ConnTimeout:           10 * time.Second,
			SweepInterval:         time.Second,
			SecondaryRepeat:       3,
			SecondaryRepeatDelay:  25 * time.Millisecond,
			SecondaryHealthWindow: 5 * time.Second,
			ProbeInterval:         time.Second,
		},
		Mission: MissionConfig{
			MaxConcurrentUploads: 2,
			SlotTimeout:          120 * time.Second,
			UploadTimeout:        30 * time.Second,
			WaypointDelay:        50 * time.Millisecond,
			ClearSettle:          500 * time.Millisecond,
		},
		Safety: SafetyConfig{
			BatteryWarning:   30,
			BatteryCritical:  20,
			BatteryEmergency: 10,
			CommTimeout:      10 * time.Second,
			MinSatellites:    6,
			MaxAltitudeM:     120,
			MinAltitudeM:     2,
			MaxGroundSpeed:   20,
			MaxAttitudeRad:   0.785,
			MissionTimeout:   30 * time.Minute,
			AlertCooldown:    30 * time.Second,
			CheckInterval:    time.Second,
		},
		Events: EventsConfig{
			BufferSize:        50,
			HeartbeatInterval: 15 * time.Second,
		},
		API: APIConfig{
			ReadTimeout:   10 * time.Second,
			WriteTimeout:  30 * time.Second,
			PendingWindow: 3 * time.Second,
		},
	}
}
