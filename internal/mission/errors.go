//
//
package mission

import (
	"errors"
	"fmt"

	"github.com/ground-control/gcs/internal/wire"
)

var (
	// ErrUploadInProgress rejects a second upload for a vehicle that
	// already has an active session. Uploads are never queued per vehicle.
	ErrUploadInProgress = errors.New("UPLOAD_IN_PROGRESS")

	// ErrNoWaypoints rejects an upload with an empty waypoint list.
	ErrNoWaypoints = errors.New("NO_WAYPOINTS")

	// ErrPrimaryRequired rejects an upload when the vehicle is not
	// reachable over the bidirectional link.
	ErrPrimaryRequired = errors.New("PRIMARY_REQUIRED")

	// ErrResumePointUnknown reports a resume index that is not part of
	// the original mission.
	ErrResumePointUnknown = errors.New("RESUME_POINT_UNKNOWN")

	// ErrMissionComplete reports a resume that would upload only the
	// home waypoint.
	ErrMissionComplete = errors.New("MISSION_COMPLETE")
)

// ackReasons maps mission ack codes to human-readable failure reasons.
var ackReasons = map[int]string{
	1:  "Generic error",
	2:  "Unsupported coordinate frame",
	3:  "Unsupported mission command",
	4:  "No space left on device",
	5:  "Invalid mission",
	6:  "Invalid param1",
	7:  "Invalid param2",
	8:  "Invalid param3",
	9:  "Invalid param4",
	10: "Invalid param5/X coordinate",
	11: "Invalid param6/Y coordinate",
	12: "Invalid param7/altitude",
	13: "Invalid sequence",
	14: "Mission denied",
	15: "Not in a mission (mission may still be loaded)",
	16: "No missions available",
	17: "Mission out of bounds",
	18: "Temporary failure (retry later)",
}

// AckReason returns the display reason for a mission ack code.
func AckReason(code int) string {
	if code == wire.MissionAccepted {
		return "Accepted"
	}
	if reason, ok := ackReasons[code]; ok {
		return reason
	}
	return fmt.Sprintf("Unknown error code %d", code)
}
