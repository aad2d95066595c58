//
//
package command

import "errors"

var (
	// ErrVehicleUnknown marks a command for a vehicle the registry has
	// never seen.
	ErrVehicleUnknown = errors.New("VEHICLE_UNKNOWN")

	// ErrUnknownMode marks a flight mode name the autopilot does not
	// define.
	ErrUnknownMode = errors.New("UNKNOWN_MODE")

	// ErrNoMission marks a mission operation on a vehicle with no
	// loaded mission.
	ErrNoMission = errors.New("NO_MISSION")

	// ErrInvalidScope marks an emergency scope that is neither "ALL"
	// nor a vehicle id.
	ErrInvalidScope = errors.New("INVALID_SCOPE")

	// ErrUnknownAction marks an emergency action name outside the
	// supported set.
	ErrUnknownAction = errors.New("UNKNOWN_ACTION")
)
