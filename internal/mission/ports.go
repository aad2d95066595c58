//
//
package mission

import "github.com/ground-control/gcs/internal/wire"

// Sender carries mission-transfer traffic toward a vehicle. The transport
// arbiter implements it; mission messages only ever travel over the
// primary link.
type Sender interface {
	Send(vehicleID int, msg wire.Message) error
	PrimaryOpen() bool
}

// EventSink receives asynchronous upload notifications for presentation
// consumers.
type EventSink interface {
	UploadProgress(vehicleID int, stage string, percent float64)
	UploadResult(vehicleID int, success bool, detail string)
}

// NopSink discards all upload notifications.
type NopSink struct{}

func (NopSink) UploadProgress(int, string, float64) {}
func (NopSink) UploadResult(int, bool, string)      {}

var _ EventSink = NopSink{}
