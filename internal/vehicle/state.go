//
//
package vehicle

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ground-control/gcs/internal/wire"
)

// State holds everything known about one vehicle. All access goes through
// methods; the embedded lock is per record.
type State struct {
	mu sync.RWMutex
	id int

	// live telemetry
	lat, lon      float64
	altMSL        float64
	heightAGL     float64
	roll, pitch   float64
	yaw           float64
	groundSpeed   float64
	verticalSpeed float64
	heading       float64
	fixType       int
	satellites    int
	hdop          float64
	battery       int
	voltage       float64
	throttle      int
	mode          string
	armed         bool
	statusText    string

	// connectivity
	connected       bool
	lastMessageAt   time.Time
	lastHeartbeatAt time.Time

	// home position, set once per connection lifetime
	homeSet                   bool
	homeLat, homeLon, homeAlt float64

	pending pendingCommand

	// mission bookkeeping
	originalIndices []int
	uploadedIndices []int
	reachedIndices  []int
	currentWaypoint int
	totalWaypoints  int
	progressPct     float64

	// mission timer
	missionStartedAt time.Time
	missionElapsed   time.Duration
	timerRunning     bool
}

func newState(id int) *State {
	return &State{id: id, battery: -1}
}

// ID returns the vehicle system id.
func (s *State) ID() int { return s.id }

// Touch records message arrival and returns true when the vehicle
// transitioned from disconnected to connected.
func (s *State) Touch(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMessageAt = now
	if s.connected {
		return false
	}
	s.connected = true
	return true
}

// Connected reports whether the vehicle is currently reachable over the
// main link.
func (s *State) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// LastMessageAt returns the arrival time of the most recent message.
func (s *State) LastMessageAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastMessageAt
}

// MarkDisconnected flips the vehicle to disconnected and clears the home
// position. The vehicle may reboot elsewhere, so a stale home is worse
// than none.
func (s *State) MarkDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.homeSet = false
	s.homeLat, s.homeLon, s.homeAlt = 0, 0, 0
}

// ApplyPosition merges a fused position estimate.
func (s *State) ApplyPosition(p wire.GlobalPositionInt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lat = float64(p.LatE7) / 1e7
	s.lon = float64(p.LonE7) / 1e7
	s.altMSL = float64(p.AltMM) / 1000.0
	s.heightAGL = float64(p.RelativeAltMM) / 1000.0
	vx := float64(p.VxCm) / 100.0
	vy := float64(p.VyCm) / 100.0
	s.groundSpeed = math.Hypot(vx, vy)
	s.verticalSpeed = -float64(p.VzCm) / 100.0
	if p.HeadingCdeg != math.MaxUint16 {
		s.heading = float64(p.HeadingCdeg) / 100.0
	}
	s.maybeSetHomeLocked()
}

// ApplyAttitude merges roll/pitch/yaw in radians.
func (s *State) ApplyAttitude(a wire.Attitude) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roll = a.Roll
	s.pitch = a.Pitch
	s.yaw = a.Yaw
}

// ApplySysStatus merges battery and throttle readings.
func (s *State) ApplySysStatus(st wire.SysStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.battery = int(st.BatteryRemaining)
	s.voltage = float64(st.VoltageMV) / 1000.0
	s.throttle = int(st.ThrottlePct)
}

// ApplyGps merges the raw GPS solution and may set home on the first good
// fix with nonzero coordinates.
func (s *State) ApplyGps(g wire.GpsRawInt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixType = int(g.FixType)
	s.satellites = int(g.Satellites)
	s.hdop = float64(g.EphCm) / 100.0
	s.maybeSetHomeLocked()
}

// ApplyStatusText records the latest autopilot status line.
func (s *State) ApplyStatusText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusText = text
}

// SetHome explicitly sets the home position from a HOME_POSITION or
// GPS_GLOBAL_ORIGIN message, overriding any inferred value.
func (s *State) SetHome(lat, lon, alt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.homeSet = true
	s.homeLat, s.homeLon, s.homeAlt = lat, lon, alt
}

// maybeSetHomeLocked infers home from the first 3D fix with nonzero
// coordinates. Caller holds the lock.
func (s *State) maybeSetHomeLocked() {
	if s.homeSet || s.fixType < wire.GPSFix3D {
		return
	}
	if s.lat == 0 && s.lon == 0 {
		return
	}
	s.homeSet = true
	s.homeLat, s.homeLon, s.homeAlt = s.lat, s.lon, s.altMSL
}

// Home returns the home position and whether it has been established.
func (s *State) Home() (lat, lon, alt float64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.homeLat, s.homeLon, s.homeAlt, s.homeSet
}

// ApplyHeartbeat merges mode and arming state, honoring an optimistic
// pending command, and drives the mission timer transitions.
func (s *State) ApplyHeartbeat(hb wire.Heartbeat, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastHeartbeatAt = now
	prevMode := s.mode
	s.mode = wire.ModeName(hb.CustomMode)

	if s.pending.expired(now) {
		s.pending = pendingCommand{}
	}
	if override, val := s.pending.overrides(now); override {
		s.armed = val
	} else {
		s.armed = hb.Armed
	}

	// Timer starts when the vehicle is armed in an active flight mode and
	// stops on disarm or entry into a landing mode.
	if s.armed && !s.timerRunning && activeFlightMode(s.mode) {
		s.timerRunning = true
		s.missionStartedAt = now
	}
	if s.timerRunning && (!s.armed || (s.mode == "LAND" && prevMode != "LAND")) {
		s.timerRunning = false
		s.missionElapsed += now.Sub(s.missionStartedAt)
	}
}

func activeFlightMode(mode string) bool {
	switch mode {
	case "GUIDED", "AUTO", "LOITER", "POSHOLD", "ALT_HOLD":
		return true
	}
	return false
}

// SetPendingArm applies the optimistic armed value and opens the pending
// window ending at deadline. Any opposite pending marker is replaced.
func (s *State) SetPendingArm(target bool, deadline time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = target
	kind := pendingArm
	if !target {
		kind = pendingDisarm
	}
	s.pending = pendingCommand{kind: kind, deadline: deadline}
}

// Armed returns the current (possibly optimistic) armed flag.
func (s *State) Armed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.armed
}

// Mode returns the current flight mode name.
func (s *State) Mode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// MissionElapsed returns the accumulated mission time as of now.
func (s *State) MissionElapsed(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.timerRunning {
		return s.missionElapsed + now.Sub(s.missionStartedAt)
	}
	return s.missionElapsed
}

// ResetMissionTimer clears the timer, typically before a fresh mission.
func (s *State) ResetMissionTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timerRunning = false
	s.missionElapsed = 0
	s.missionStartedAt = time.Time{}
}

// SetOriginalWaypoints records the index sequence of the loaded mission
// file and resets progress bookkeeping.
func (s *State) SetOriginalWaypoints(indices []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.originalIndices = append([]int(nil), indices...)
	s.reachedIndices = nil
	s.currentWaypoint = 0
	s.progressPct = 0
}

// SetUploadedWaypoints records the outcome of a mission upload. Each
// entry maps a wire sequence number of the uploaded plan to the item's
// index in the original mission; a failed upload records an empty plan.
func (s *State) SetUploadedWaypoints(indices []int, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadedIndices = append([]int(nil), indices...)
	s.totalWaypoints = total
}

// UploadedWaypoints returns a copy of the uploaded-plan index mapping.
func (s *State) UploadedWaypoints() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.uploadedIndices...)
}

// OriginalWaypoints returns a copy of the original index sequence.
func (s *State) OriginalWaypoints() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.originalIndices...)
}

// SetCurrentWaypoint records the waypoint the autopilot is flying toward.
func (s *State) SetCurrentWaypoint(seq int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentWaypoint = seq
}

// MarkWaypointReached resolves a reached report's wire sequence to the
// item's original mission index through the uploaded plan, records it,
// and recomputes percent complete against the original mission length.
// After a resume upload the wire numbering restarts at 0, so the raw
// sequence is meaningless without this mapping. Reports outside the
// uploaded plan return ok false and change nothing.
func (s *State) MarkWaypointReached(seq int) (original int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < 0 || seq >= len(s.uploadedIndices) {
		return 0, false
	}
	original = s.uploadedIndices[seq]
	for _, r := range s.reachedIndices {
		if r == original {
			return original, true
		}
	}
	s.reachedIndices = append(s.reachedIndices, original)
	sort.Ints(s.reachedIndices)
	if n := len(s.originalIndices); n > 0 {
		s.progressPct = float64(len(s.reachedIndices)) / float64(n) * 100.0
	}
	return original, true
}

// LastReachedWaypoint returns the highest reached index, or -1 when none.
func (s *State) LastReachedWaypoint() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.reachedIndices) == 0 {
		return -1
	}
	return s.reachedIndices[len(s.reachedIndices)-1]
}

// Snapshot is a point-in-time copy of the vehicle state for read-only
// consumers.
type Snapshot struct {
	ID            int     `json:"id"`
	Connected     bool    `json:"connected"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
	AltMSL        float64 `json:"altMsl"`
	HeightAGL     float64 `json:"heightAgl"`
	Roll          float64 `json:"roll"`
	Pitch         float64 `json:"pitch"`
	Yaw           float64 `json:"yaw"`
	GroundSpeed   float64 `json:"groundSpeed"`
	VerticalSpeed float64 `json:"verticalSpeed"`
	Heading       float64 `json:"heading"`
	FixType       int     `json:"fixType"`
	Satellites    int     `json:"satellites"`
	HDOP          float64 `json:"hdop"`
	Battery       int     `json:"battery"`
	Voltage       float64 `json:"voltage"`
	Throttle      int     `json:"throttle"`
	Mode          string  `json:"mode"`
	Armed         bool    `json:"armed"`
	StatusText    string  `json:"statusText,omitempty"`
	HomeSet       bool    `json:"homeSet"`
	HomeLat       float64 `json:"homeLat"`
	HomeLon       float64 `json:"homeLon"`
	HomeAlt       float64 `json:"homeAlt"`

	CurrentWaypoint int     `json:"currentWaypoint"`
	TotalWaypoints  int     `json:"totalWaypoints"`
	ReachedCount    int     `json:"reachedCount"`
	ProgressPct     float64 `json:"progressPct"`

	MissionElapsedSec float64 `json:"missionElapsedSec"`
}

// Snapshot returns a consistent copy of the state at time now.
func (s *State) Snapshot(now time.Time) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	elapsed := s.missionElapsed
	if s.timerRunning {
		elapsed += now.Sub(s.missionStartedAt)
	}
	return Snapshot{
		ID:            s.id,
		Connected:     s.connected,
		Lat:           s.lat,
		Lon:           s.lon,
		AltMSL:        s.altMSL,
		HeightAGL:     s.heightAGL,
		Roll:          s.roll,
		Pitch:         s.pitch,
		Yaw:           s.yaw,
		GroundSpeed:   s.groundSpeed,
		VerticalSpeed: s.verticalSpeed,
		Heading:       s.heading,
		FixType:       s.fixType,
		Satellites:    s.satellites,
		HDOP:          s.hdop,
		Battery:       s.battery,
		Voltage:       s.voltage,
		Throttle:      s.throttle,
		Mode:          s.mode,
		Armed:         s.armed,
		StatusText:    s.statusText,
		HomeSet:       s.homeSet,
		HomeLat:       s.homeLat,
		HomeLon:       s.homeLon,
		HomeAlt:       s.homeAlt,

		CurrentWaypoint: s.currentWaypoint,
		TotalWaypoints:  s.totalWaypoints,
		ReachedCount:    len(s.reachedIndices),
		ProgressPct:     s.progressPct,

		MissionElapsedSec: elapsed.Seconds(),
	}
}
