//
//
package wire

// GPS fix types (GPS_RAW_INT.fix_type).
const (
	GPSFixNone = 1
	GPSFix2D   = 2
	GPSFix3D   = 3
)

// Command ids used in CommandLong.
const (
	CmdNavWaypoint        = 16
	CmdNavTakeoff         = 22
	CmdMissionStart       = 300
	CmdComponentArmDisarm = 400
	CmdGetHomePosition    = 410
	CmdRequestDataStream  = 511
	CmdRequestMessage     = 512
)

// ResultName returns the display name for a CommandAck result code.
func ResultName(code uint8) string {
	switch code {
	case ResultAccepted:
		return "accepted"
	case ResultTemporarilyRejected:
		return "temporarily rejected"
	case ResultDenied:
		return "denied"
	case ResultUnsupported:
		return "unsupported"
	case ResultFailed:
		return "failed"
	}
	return "unknown"
}

// CommandAck result codes.
const (
	ResultAccepted            = 0
	ResultTemporarilyRejected = 1
	ResultDenied              = 2
	ResultUnsupported         = 3
	ResultFailed              = 4
)

// MissionAck type codes.
const (
	MissionAccepted           = 0
	MissionError              = 1
	MissionUnsupportedFrame   = 2
	MissionUnsupported        = 3
	MissionNoSpace            = 4
	MissionInvalid            = 5
	MissionInvalidParam1      = 6
	MissionInvalidParam2      = 7
	MissionInvalidParam3      = 8
	MissionInvalidParam4      = 9
	MissionInvalidParam5      = 10
	MissionInvalidParam6      = 11
	MissionInvalidParam7      = 12
	MissionInvalidSequence    = 13
	MissionDenied             = 14
	MissionOperationCancelled = 15
)

// ArduCopter custom mode numbers.
const (
	ModeStabilize = 0
	ModeAltHold   = 2
	ModeAuto      = 3
	ModeGuided    = 4
	ModeLoiter    = 5
	ModeRTL       = 6
	ModeLand      = 9
	ModePosHold   = 16
	ModeBrake     = 17
)

// ModeName returns the display name for a copter custom mode.
func ModeName(mode uint32) string {
	if name, ok := modeNames[mode]; ok {
		return name
	}
	return "UNKNOWN"
}

// ModeNumber resolves a display name back to its mode number.
func ModeNumber(name string) (uint32, bool) {
	for mode, n := range modeNames {
		if n == name {
			return mode, true
		}
	}
	return 0, false
}

var modeNames = map[uint32]string{
	ModeStabilize: "STABILIZE",
	ModeAltHold:   "ALT_HOLD",
	ModeAuto:      "AUTO",
	ModeGuided:    "GUIDED",
	ModeLoiter:    "LOITER",
	ModeRTL:       "RTL",
	ModeLand:      "LAND",
	ModePosHold:   "POSHOLD",
	ModeBrake:     "BRAKE",
}
