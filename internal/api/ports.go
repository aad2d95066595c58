// Ports (interfaces) for API server dependencies.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ground-control/gcs/internal/command"
	"github.com/ground-control/gcs/internal/events"
	"github.com/ground-control/gcs/internal/safety"
	"github.com/ground-control/gcs/internal/vehicle"
)

// CommandPort is the command surface the API exposes.
type CommandPort interface {
	Arm(ctx context.Context, vehicleID int) error
	Disarm(ctx context.Context, vehicleID int) error
	SetMode(ctx context.Context, vehicleID int, modeName string) error
	Takeoff(ctx context.Context, vehicleID int, altitudeM float64) error
	Land(ctx context.Context, vehicleID int) error
	ReturnToLaunch(ctx context.Context, vehicleID int) error
	Brake(ctx context.Context, vehicleID int) error
	Goto(ctx context.Context, vehicleID int, lat, lon, altitudeM float64) error
	LoadMission(ctx context.Context, vehicleID int, path string) error
	StartMission(ctx context.Context, vehicleID int) error
	PauseMission(ctx context.Context, vehicleID int) error
	ResumeMission(ctx context.Context, vehicleID int) error
	ResumeMissionFromWaypoint(ctx context.Context, vehicleID int, resumeFrom int) error
	AbortMission(ctx context.Context, vehicleID int, reason string) error
	Emergency(ctx context.Context, action, scope string) error
}

// TelemetryPort streams events to subscribers.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

// VehicleReadPort is the read surface over the vehicle registry.
type VehicleReadPort interface {
	Snapshots(now time.Time) []vehicle.Snapshot
	Lookup(id int) (*vehicle.State, bool)
}

// SafetyReadPort exposes the alert history.
type SafetyReadPort interface {
	History(vehicleID int) []safety.Alert
}

// Compile-time assertions for port conformance.
var _ CommandPort = (*command.Controller)(nil)
var _ TelemetryPort = (*events.Hub)(nil)
var _ VehicleReadPort = (*vehicle.Registry)(nil)
var _ SafetyReadPort = (*safety.Monitor)(nil)
