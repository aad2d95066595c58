//
//
package wire

// Message is implemented by every wire message kind. Name returns the
// protocol-level message name and is used for dispatch logging only;
// consumers switch on the concrete type.
type Message interface {
	Name() string
}

// Inbound telemetry messages.

// Heartbeat reports flight mode and arming state at ~1 Hz.
type Heartbeat struct {
	CustomMode uint32
	Armed      bool
}

func (Heartbeat) Name() string { return "HEARTBEAT" }

// GlobalPositionInt is the fused position estimate.
// Lat/Lon are degrees * 1e7, altitudes are millimeters, velocities cm/s,
// heading is centidegrees (math.MaxUint16 when unknown).
type GlobalPositionInt struct {
	LatE7         int32
	LonE7         int32
	AltMM         int32
	RelativeAltMM int32
	VxCm          int16
	VyCm          int16
	VzCm          int16
	HeadingCdeg   uint16
}

func (GlobalPositionInt) Name() string { return "GLOBAL_POSITION_INT" }

// Attitude carries roll/pitch/yaw in radians.
type Attitude struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

func (Attitude) Name() string { return "ATTITUDE" }

// SysStatus carries battery state. BatteryRemaining is percent, -1 unknown.
type SysStatus struct {
	BatteryRemaining int8
	VoltageMV        uint16
	CurrentCA        int16
	ThrottlePct      int8
}

func (SysStatus) Name() string { return "SYS_STATUS" }

// GpsRawInt carries the raw GPS solution. EphCm is horizontal dilution * 100.
type GpsRawInt struct {
	FixType    uint8
	Satellites uint8
	EphCm      uint16
}

func (GpsRawInt) Name() string { return "GPS_RAW_INT" }

// HomePosition is the autopilot's stored home location.
type HomePosition struct {
	LatE7 int32
	LonE7 int32
	AltMM int32
}

func (HomePosition) Name() string { return "HOME_POSITION" }

// GpsGlobalOrigin is the EKF origin, used as a home fallback.
type GpsGlobalOrigin struct {
	LatE7 int32
	LonE7 int32
	AltMM int32
}

func (GpsGlobalOrigin) Name() string { return "GPS_GLOBAL_ORIGIN" }

// StatusText is a free-form autopilot status line. The backup link reports
// its health through these.
type StatusText struct {
	Severity uint8
	Text     string
}

func (StatusText) Name() string { return "STATUSTEXT" }

// Mission protocol messages.

// MissionCount announces the number of items in an upcoming transfer.
type MissionCount struct {
	Count int
}

func (MissionCount) Name() string { return "MISSION_COUNT" }

// MissionRequest asks for the item at Seq using the float item variant.
type MissionRequest struct {
	Seq int
}

func (MissionRequest) Name() string { return "MISSION_REQUEST" }

// MissionRequestInt asks for the item at Seq using the scaled-int variant.
type MissionRequestInt struct {
	Seq int
}

func (MissionRequestInt) Name() string { return "MISSION_REQUEST_INT" }

// MissionItem is one mission item with float degree coordinates.
type MissionItem struct {
	Seq          int
	Frame        uint8
	Command      uint16
	Current      uint8
	Autocontinue uint8
	Param1       float32
	Param2       float32
	Param3       float32
	Param4       float32
	Lat          float64
	Lon          float64
	Alt          float64
}

func (MissionItem) Name() string { return "MISSION_ITEM" }

// MissionItemInt is one mission item with degrees*1e7 coordinates.
type MissionItemInt struct {
	Seq          int
	Frame        uint8
	Command      uint16
	Current      uint8
	Autocontinue uint8
	Param1       float32
	Param2       float32
	Param3       float32
	Param4       float32
	LatE7        int32
	LonE7        int32
	Alt          float64
}

func (MissionItemInt) Name() string { return "MISSION_ITEM_INT" }

// MissionAck terminates a transfer with a result code.
type MissionAck struct {
	Type int
}

func (MissionAck) Name() string { return "MISSION_ACK" }

// MissionClearAll erases the stored mission on the vehicle.
type MissionClearAll struct{}

func (MissionClearAll) Name() string { return "MISSION_CLEAR_ALL" }

// MissionCurrent reports the active waypoint sequence during execution.
type MissionCurrent struct {
	Seq int
}

func (MissionCurrent) Name() string { return "MISSION_CURRENT" }

// MissionItemReached reports that a waypoint was reached.
type MissionItemReached struct {
	Seq int
}

func (MissionItemReached) Name() string { return "MISSION_ITEM_REACHED" }

// Command messages.

// CommandLong is the generic parametrized command.
type CommandLong struct {
	Command      uint16
	Confirmation uint8
	Param1       float32
	Param2       float32
	Param3       float32
	Param4       float32
	Param5       float32
	Param6       float32
	Param7       float32
}

func (CommandLong) Name() string { return "COMMAND_LONG" }

// CommandAck reports acceptance or rejection of a CommandLong.
type CommandAck struct {
	Command uint16
	Result  uint8
}

func (CommandAck) Name() string { return "COMMAND_ACK" }

// SetMode switches the vehicle flight mode.
type SetMode struct {
	CustomMode uint32
}

func (SetMode) Name() string { return "SET_MODE" }

// ParamSet writes a named autopilot parameter. The arbiter uses it as a
// liveness probe over the backup link.
type ParamSet struct {
	ParamID string
	Value   float32
}

func (ParamSet) Name() string { return "PARAM_SET" }

// IsMissionTransfer reports whether msg belongs to the mission upload
// handshake. These may only travel over the bidirectional link.
func IsMissionTransfer(msg Message) bool {
	switch msg.(type) {
	case MissionCount, MissionItem, MissionItemInt, MissionClearAll:
		return true
	}
	return false
}
