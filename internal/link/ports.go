//
//
package link

import (
	"github.com/ground-control/gcs/internal/vehicle"
	"github.com/ground-control/gcs/internal/wire"
)

// MissionSink receives mission-transfer messages from the receive loop.
// Handle returns true when an active upload session consumed the message.
type MissionSink interface {
	Handle(vehicleID int, msg wire.Message) bool
}

// Notifier receives vehicle lifecycle and telemetry-change notifications
// for fan-out to presentation consumers.
type Notifier interface {
	VehicleDiscovered(snap vehicle.Snapshot)
	VehicleChanged(snap vehicle.Snapshot)
	VehicleDisconnected(vehicleID int)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) VehicleDiscovered(vehicle.Snapshot) {}
func (NopNotifier) VehicleChanged(vehicle.Snapshot)    {}
func (NopNotifier) VehicleDisconnected(int)            {}

var _ Notifier = NopNotifier{}
