//
//
package link

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ground-control/gcs/internal/vehicle"
	"github.com/ground-control/gcs/internal/wire"
)

// LoopConfig carries the receive loop tunables.
type LoopConfig struct {
	// PollTimeout bounds each blocking read on the primary link.
	PollTimeout time.Duration
	// ConnTimeout marks a vehicle disconnected when no message arrived
	// within it.
	ConnTimeout time.Duration
	// SweepInterval paces the connectivity sweep.
	SweepInterval time.Duration
}

// Loop is the single reader of the primary link. It merges inbound
// telemetry into the registry, forwards mission-transfer traffic to the
// upload engine, and periodically sweeps for silent vehicles.
type Loop struct {
	primary  wire.PrimaryChannel
	arbiter  *Arbiter
	registry *vehicle.Registry
	missions MissionSink
	notify   Notifier
	cfg      LoopConfig
	log      *slog.Logger

	lastSweep time.Time
}

// NewLoop creates a receive loop. missions and notify may be nil.
func NewLoop(primary wire.PrimaryChannel, arbiter *Arbiter, registry *vehicle.Registry, missions MissionSink, notify Notifier, cfg LoopConfig, log *slog.Logger) *Loop {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Loop{
		primary:  primary,
		arbiter:  arbiter,
		registry: registry,
		missions: missions,
		notify:   notify,
		cfg:      cfg,
		log:      log,
	}
}

// Run reads the primary link until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sysID, msg, err := l.primary.Recv(l.cfg.PollTimeout)
		now := time.Now()
		switch {
		case err == nil:
			l.Dispatch(sysID, msg, now)
		case errors.Is(err, wire.ErrNoMessage):
			// empty poll
		case errors.Is(err, wire.ErrChannelClosed):
			l.log.Error("primary link closed, receive loop exiting")
			return
		default:
			l.log.Warn("primary recv failed", "error", err)
		}

		if now.Sub(l.lastSweep) >= l.cfg.SweepInterval {
			l.lastSweep = now
			l.Sweep(now)
		}
	}
}

// Dispatch routes one inbound message. Exported so tests can drive the
// loop without a live channel.
func (l *Loop) Dispatch(sysID int, msg wire.Message, now time.Time) {
	st, created := l.registry.Ensure(sysID)
	reconnected := st.Touch(now)
	switch {
	case created:
		l.log.Info("vehicle discovered", "vehicle", sysID, "msg", msg.Name())
		l.requestVehicleData(sysID)
	case reconnected:
		l.log.Info("vehicle reconnected", "vehicle", sysID)
	}

	switch m := msg.(type) {
	case wire.Heartbeat:
		st.ApplyHeartbeat(m, now)
		l.notify.VehicleChanged(st.Snapshot(now))
	case wire.GlobalPositionInt:
		st.ApplyPosition(m)
		l.notify.VehicleChanged(st.Snapshot(now))
	case wire.Attitude:
		st.ApplyAttitude(m)
	case wire.SysStatus:
		st.ApplySysStatus(m)
		l.notify.VehicleChanged(st.Snapshot(now))
	case wire.GpsRawInt:
		st.ApplyGps(m)
	case wire.HomePosition:
		st.SetHome(float64(m.LatE7)/1e7, float64(m.LonE7)/1e7, float64(m.AltMM)/1000.0)
	case wire.GpsGlobalOrigin:
		if _, _, _, ok := st.Home(); !ok {
			st.SetHome(float64(m.LatE7)/1e7, float64(m.LonE7)/1e7, float64(m.AltMM)/1000.0)
		}
	case wire.StatusText:
		if l.arbiter.NoteStatusText(sysID, m.Text, now) {
			return
		}
		st.ApplyStatusText(m.Text)
		l.log.Info("vehicle status", "vehicle", sysID, "severity", m.Severity, "text", m.Text)
	case wire.MissionRequest, wire.MissionRequestInt, wire.MissionAck:
		if l.missions != nil && l.missions.Handle(sysID, msg) {
			return
		}
		l.log.Debug("mission message outside upload session", "vehicle", sysID, "msg", msg.Name())
	case wire.MissionCurrent:
		st.SetCurrentWaypoint(m.Seq)
		l.notify.VehicleChanged(st.Snapshot(now))
	case wire.MissionItemReached:
		if original, ok := st.MarkWaypointReached(m.Seq); ok {
			l.log.Debug("waypoint reached", "vehicle", sysID, "seq", m.Seq, "original", original)
			l.notify.VehicleChanged(st.Snapshot(now))
		} else {
			l.log.Warn("reached report outside uploaded mission", "vehicle", sysID, "seq", m.Seq)
		}
	case wire.CommandAck:
		l.handleCommandAck(sysID, m)
	default:
		l.log.Debug("unhandled message", "vehicle", sysID, "msg", msg.Name())
	}

	if created {
		l.notify.VehicleDiscovered(st.Snapshot(now))
	}
}

// handleCommandAck reconciles optimistic arm/disarm state. An accepted
// arm/disarm triggers an immediate heartbeat request so telemetry catches
// up before the pending window expires.
func (l *Loop) handleCommandAck(sysID int, ack wire.CommandAck) {
	if ack.Command != wire.CmdComponentArmDisarm {
		l.log.Debug("command ack", "vehicle", sysID, "command", ack.Command, "result", wire.ResultName(ack.Result))
		return
	}
	if ack.Result == wire.ResultAccepted {
		req := wire.CommandLong{Command: wire.CmdRequestMessage, Param1: 0}
		if err := l.arbiter.Send(sysID, req); err != nil {
			l.log.Debug("heartbeat request failed", "vehicle", sysID, "error", err)
		}
		return
	}
	l.log.Warn("arm/disarm rejected", "vehicle", sysID, "result", wire.ResultName(ack.Result))
}

// requestVehicleData asks a newly discovered vehicle for its home position
// and a telemetry stream. Best effort.
func (l *Loop) requestVehicleData(sysID int) {
	home := wire.CommandLong{Command: wire.CmdGetHomePosition}
	if err := l.arbiter.Send(sysID, home); err != nil {
		l.log.Debug("home position request failed", "vehicle", sysID, "error", err)
	}
	stream := wire.CommandLong{Command: wire.CmdRequestDataStream, Param1: 0, Param2: 4, Param3: 1}
	if err := l.arbiter.Send(sysID, stream); err != nil {
		l.log.Debug("data stream request failed", "vehicle", sysID, "error", err)
	}
}

// Sweep marks vehicles disconnected when they have been silent longer than
// the connection timeout.
func (l *Loop) Sweep(now time.Time) {
	for _, st := range l.registry.All() {
		if !st.Connected() {
			continue
		}
		if now.Sub(st.LastMessageAt()) <= l.cfg.ConnTimeout {
			continue
		}
		st.MarkDisconnected()
		l.log.Warn("vehicle connection lost", "vehicle", st.ID(),
			"silentFor", now.Sub(st.LastMessageAt()).Round(time.Millisecond))
		l.notify.VehicleDisconnected(st.ID())
	}
}
