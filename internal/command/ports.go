//
//
package command

import (
	"context"
	"time"

	"github.com/ground-control/gcs/internal/mission"
	"github.com/ground-control/gcs/internal/wire"
)

// Sender dispatches messages to vehicles over whichever channel the
// arbiter selects.
type Sender interface {
	Send(vehicleID int, msg wire.Message) error
	Broadcast(msg wire.Message) int
	PrimaryOpen() bool
}

// Uploader runs mission upload handshakes.
type Uploader interface {
	Start(vehicleID int, waypoints []mission.Waypoint, onDone func(success bool, detail string)) error
	Active(vehicleID int) bool
}

// AuditLogger writes one record per command attempt.
type AuditLogger interface {
	LogAction(ctx context.Context, action string, vehicleID string, result string, latency time.Duration)
}

// EventPublisher announces command side effects to subscribers.
type EventPublisher interface {
	EmergencyTriggered(action, scope string)
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) EmergencyTriggered(string, string) {}
