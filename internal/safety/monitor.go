//
//
package safety

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ground-control/gcs/internal/vehicle"
)

// Alert kinds.
const (
	KindLowBattery        = "low-battery"
	KindCriticalBattery   = "critical-battery"
	KindCommLoss          = "comm-loss"
	KindGpsLoss           = "gps-loss"
	KindAltitudeViolation = "altitude-violation"
	KindOverspeed         = "overspeed"
	KindAttitudeExtreme   = "attitude-extreme"
	KindMissionTimeout    = "mission-timeout"
)

// Alert severities.
const (
	SeverityWarning   = "warning"
	SeverityCritical  = "critical"
	SeverityEmergency = "emergency"
)

// historyLimit bounds the per-vehicle alert history.
const historyLimit = 50

// Alert is one emitted safety violation.
type Alert struct {
	VehicleID int       `json:"vehicleId"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Thresholds carries the violation limits.
type Thresholds struct {
	BatteryWarning   int
	BatteryCritical  int
	BatteryEmergency int
	CommTimeout      time.Duration
	MinSatellites    int
	MaxAltitude      float64
	MinAltitude      float64
	MaxGroundSpeed   float64
	MaxAttitude      float64
	MissionTimeout   time.Duration
}

// Responder executes emergency actions for the monitor. The command
// controller implements it.
type Responder interface {
	EmergencyLand(vehicleID int) error
	EmergencyRTL(vehicleID int) error
}

// AlertSink receives emitted alerts for fan-out.
type AlertSink interface {
	SafetyAlert(alert Alert)
}

// NopSink discards alerts.
type NopSink struct{}

func (NopSink) SafetyAlert(Alert) {}

type alertKey struct {
	vehicleID int
	kind      string
	severity  string
}

// Monitor evaluates safety predicates at a fixed interval. An alert kind
// fires at most once per vehicle within the cooldown window.
type Monitor struct {
	registry   *vehicle.Registry
	responder  Responder
	sink       AlertSink
	thresholds Thresholds
	cooldown   time.Duration
	interval   time.Duration
	log        *slog.Logger

	mu        sync.Mutex
	lastAlert map[alertKey]time.Time
	history   map[int][]Alert
}

// NewMonitor creates a monitor. sink may be nil.
func NewMonitor(registry *vehicle.Registry, responder Responder, sink AlertSink, thresholds Thresholds, cooldown, interval time.Duration, log *slog.Logger) *Monitor {
	if sink == nil {
		sink = NopSink{}
	}
	return &Monitor{
		registry:   registry,
		responder:  responder,
		sink:       sink,
		thresholds: thresholds,
		cooldown:   cooldown,
		interval:   interval,
		log:        log,
		lastAlert:  make(map[alertKey]time.Time),
		history:    make(map[int][]Alert),
	}
}

// Run ticks until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Tick(now)
		}
	}
}

// Tick evaluates every known vehicle once.
func (m *Monitor) Tick(now time.Time) {
	for _, st := range m.registry.All() {
		m.checkVehicle(st, now)
	}
}

func (m *Monitor) checkVehicle(st *vehicle.State, now time.Time) {
	snap := st.Snapshot(now)
	id := snap.ID
	t := m.thresholds

	// Battery, highest tier wins.
	switch b := snap.Battery; {
	case b < 0:
		// unknown
	case b <= t.BatteryEmergency:
		m.emit(now, Alert{
			VehicleID: id, Kind: KindCriticalBattery, Severity: SeverityEmergency,
			Message: fmt.Sprintf("Battery at %d%%, emergency landing", b),
		}, func() error { return m.responder.EmergencyLand(id) })
	case b <= t.BatteryCritical:
		m.emit(now, Alert{
			VehicleID: id, Kind: KindCriticalBattery, Severity: SeverityCritical,
			Message: fmt.Sprintf("Battery critically low at %d%%", b),
		}, nil)
	case b <= t.BatteryWarning:
		m.emit(now, Alert{
			VehicleID: id, Kind: KindLowBattery, Severity: SeverityWarning,
			Message: fmt.Sprintf("Battery low at %d%%", b),
		}, nil)
	}

	// Communication loss.
	if last := st.LastMessageAt(); !last.IsZero() {
		silent := now.Sub(last)
		if silent > t.CommTimeout {
			var action func() error
			if silent > 2*t.CommTimeout {
				action = func() error { return m.responder.EmergencyRTL(id) }
			}
			m.emit(now, Alert{
				VehicleID: id, Kind: KindCommLoss, Severity: SeverityCritical,
				Message: fmt.Sprintf("No telemetry for %s", silent.Round(time.Second)),
			}, action)
		}
	}

	// GPS quality, only once GPS data has been seen.
	if snap.FixType > 0 || snap.Satellites > 0 {
		if snap.FixType < 3 {
			m.emit(now, Alert{
				VehicleID: id, Kind: KindGpsLoss, Severity: SeverityCritical,
				Message: fmt.Sprintf("GPS fix degraded (type %d)", snap.FixType),
			}, nil)
		}
		if snap.Satellites > 0 && snap.Satellites < t.MinSatellites {
			m.emit(now, Alert{
				VehicleID: id, Kind: KindGpsLoss, Severity: SeverityWarning,
				Message: fmt.Sprintf("Only %d satellites visible", snap.Satellites),
			}, nil)
		}
	}

	// Altitude envelope.
	if snap.HeightAGL > t.MaxAltitude {
		m.emit(now, Alert{
			VehicleID: id, Kind: KindAltitudeViolation, Severity: SeverityCritical,
			Message: fmt.Sprintf("Altitude %.1fm exceeds ceiling %.1fm", snap.HeightAGL, t.MaxAltitude),
		}, nil)
	} else if snap.Armed && snap.HeightAGL > 0 && snap.HeightAGL < t.MinAltitude {
		m.emit(now, Alert{
			VehicleID: id, Kind: KindAltitudeViolation, Severity: SeverityWarning,
			Message: fmt.Sprintf("Altitude %.1fm below floor %.1fm", snap.HeightAGL, t.MinAltitude),
		}, nil)
	}

	// Speed.
	if snap.GroundSpeed > t.MaxGroundSpeed {
		m.emit(now, Alert{
			VehicleID: id, Kind: KindOverspeed, Severity: SeverityWarning,
			Message: fmt.Sprintf("Ground speed %.1fm/s exceeds limit %.1fm/s", snap.GroundSpeed, t.MaxGroundSpeed),
		}, nil)
	}

	// Attitude.
	if tilt := math.Max(math.Abs(snap.Roll), math.Abs(snap.Pitch)); tilt > t.MaxAttitude {
		var action func() error
		if tilt > 1.5*t.MaxAttitude {
			action = func() error { return m.responder.EmergencyRTL(id) }
		}
		m.emit(now, Alert{
			VehicleID: id, Kind: KindAttitudeExtreme, Severity: SeverityCritical,
			Message: fmt.Sprintf("Attitude %.2frad exceeds limit %.2frad", tilt, t.MaxAttitude),
		}, action)
	}

	// Mission duration.
	if t.MissionTimeout > 0 && st.MissionElapsed(now) > t.MissionTimeout {
		m.emit(now, Alert{
			VehicleID: id, Kind: KindMissionTimeout, Severity: SeverityWarning,
			Message: fmt.Sprintf("Mission running longer than %s", t.MissionTimeout),
		}, nil)
	}
}

// emit records and publishes the alert unless the same kind and severity
// fired for the vehicle within the cooldown window. The emergency action
// runs only when the alert is actually emitted, so it is rate limited the
// same way.
func (m *Monitor) emit(now time.Time, alert Alert, action func() error) {
	key := alertKey{vehicleID: alert.VehicleID, kind: alert.Kind, severity: alert.Severity}

	m.mu.Lock()
	if last, ok := m.lastAlert[key]; ok && now.Sub(last) < m.cooldown {
		m.mu.Unlock()
		return
	}
	m.lastAlert[key] = now
	alert.Timestamp = now
	hist := append(m.history[alert.VehicleID], alert)
	if len(hist) > historyLimit {
		hist = hist[len(hist)-historyLimit:]
	}
	m.history[alert.VehicleID] = hist
	m.mu.Unlock()

	m.log.Warn("safety alert", "vehicle", alert.VehicleID, "kind", alert.Kind,
		"severity", alert.Severity, "message", alert.Message)
	m.sink.SafetyAlert(alert)

	if action != nil {
		if err := action(); err != nil {
			m.log.Error("emergency action failed", "vehicle", alert.VehicleID, "kind", alert.Kind, "error", err)
		}
	}
}

// History returns the recorded alerts for a vehicle, oldest first.
func (m *Monitor) History(vehicleID int) []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Alert(nil), m.history[vehicleID]...)
}
