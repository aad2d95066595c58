//
//
package vehicle

import "time"

// pendingKind enumerates the optimistic command sub-states. Arm and disarm
// are mutually exclusive; setting one clears the other.
type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingArm
	pendingDisarm
)

// pendingCommand tracks an optimistic arm/disarm awaiting confirmation.
// While now is before the deadline, heartbeat-derived armed values are
// overridden to the optimistic target; afterwards telemetry is trusted again.
type pendingCommand struct {
	kind     pendingKind
	deadline time.Time
}

// overrides reports whether the pending state should override the armed
// value reported by a heartbeat at time now, and the value to use.
func (p pendingCommand) overrides(now time.Time) (bool, bool) {
	if p.kind == pendingNone || now.After(p.deadline) {
		return false, false
	}
	return true, p.kind == pendingArm
}

// expired reports whether the marker should be cleared at time now.
func (p pendingCommand) expired(now time.Time) bool {
	return p.kind != pendingNone && now.After(p.deadline)
}
