//
//
package command

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ground-control/gcs/internal/link"
	"github.com/ground-control/gcs/internal/mission"
	"github.com/ground-control/gcs/internal/safety"
	"github.com/ground-control/gcs/internal/vehicle"
	"github.com/ground-control/gcs/internal/wire"
)

// Emergency actions.
const (
	ActionRTL    = "rtl"
	ActionLand   = "land"
	ActionDisarm = "disarm"
	ActionBrake  = "brake"
)

// ScopeAll addresses an emergency action to every known vehicle.
const ScopeAll = "ALL"

// forceDisarmParam is the autopilot's magic value for disarming a vehicle
// that is still in flight.
const forceDisarmParam = 21196

// Config carries the controller tunables.
type Config struct {
	// PendingWindow is how long an optimistic arm state may shadow the
	// heartbeat-reported one.
	PendingWindow time.Duration
}

// Controller routes validated operator intents to vehicles.
type Controller struct {
	sender   Sender
	registry *vehicle.Registry
	uploader Uploader
	audit    AuditLogger
	events   EventPublisher
	cfg      Config
	log      *slog.Logger

	mu       sync.Mutex
	missions map[int][]mission.Waypoint
}

// Compile-time assertion that link.Arbiter implements Sender.
var _ Sender = (*link.Arbiter)(nil)

// Compile-time assertion that mission.Engine implements Uploader.
var _ Uploader = (*mission.Engine)(nil)

// Compile-time assertion that Controller serves the safety monitor.
var _ safety.Responder = (*Controller)(nil)

// NewController creates a command controller.
func NewController(sender Sender, registry *vehicle.Registry, uploader Uploader,
	audit AuditLogger, events EventPublisher, cfg Config, log *slog.Logger) *Controller {
	if events == nil {
		events = NopPublisher{}
	}
	return &Controller{
		sender:   sender,
		registry: registry,
		uploader: uploader,
		audit:    audit,
		events:   events,
		cfg:      cfg,
		log:      log,
		missions: make(map[int][]mission.Waypoint),
	}
}

// Arm requests motor arming and applies the optimistic armed state until
// the vehicle's own heartbeat confirms or the pending window lapses.
func (c *Controller) Arm(ctx context.Context, vehicleID int) error {
	return c.setArmed(ctx, "arm", vehicleID, true)
}

// Disarm requests motor disarming with the same optimistic handling.
func (c *Controller) Disarm(ctx context.Context, vehicleID int) error {
	return c.setArmed(ctx, "disarm", vehicleID, false)
}

func (c *Controller) setArmed(ctx context.Context, action string, vehicleID int, target bool) error {
	start := time.Now()

	st, ok := c.registry.Lookup(vehicleID)
	if !ok {
		c.audit.LogAction(ctx, action, strconv.Itoa(vehicleID), "NOT_FOUND", time.Since(start))
		return fmt.Errorf("%s vehicle %d: %w", action, vehicleID, ErrVehicleUnknown)
	}

	st.SetPendingArm(target, start.Add(c.cfg.PendingWindow))

	var param1 float32
	if target {
		param1 = 1
	}
	if err := c.sender.Send(vehicleID, wire.CommandLong{
		Command: wire.CmdComponentArmDisarm,
		Param1:  param1,
	}); err != nil {
		c.audit.LogAction(ctx, action, strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("%s vehicle %d: %w", action, vehicleID, err)
	}

	c.log.Info("arm command sent", "vehicle", vehicleID, "armed", target)
	c.audit.LogAction(ctx, action, strconv.Itoa(vehicleID), "SUCCESS", time.Since(start))
	return nil
}

// SetMode switches the vehicle to the named flight mode.
func (c *Controller) SetMode(ctx context.Context, vehicleID int, modeName string) error {
	start := time.Now()

	mode, ok := wire.ModeNumber(modeName)
	if !ok {
		c.audit.LogAction(ctx, "set_mode", strconv.Itoa(vehicleID), "INVALID_RANGE", time.Since(start))
		return fmt.Errorf("set mode %q: %w", modeName, ErrUnknownMode)
	}
	if _, found := c.registry.Lookup(vehicleID); !found {
		c.audit.LogAction(ctx, "set_mode", strconv.Itoa(vehicleID), "NOT_FOUND", time.Since(start))
		return fmt.Errorf("set mode on vehicle %d: %w", vehicleID, ErrVehicleUnknown)
	}

	if err := c.sender.Send(vehicleID, wire.SetMode{CustomMode: mode}); err != nil {
		c.audit.LogAction(ctx, "set_mode", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("set mode on vehicle %d: %w", vehicleID, err)
	}

	c.log.Info("mode change sent", "vehicle", vehicleID, "mode", modeName)
	c.audit.LogAction(ctx, "set_mode", strconv.Itoa(vehicleID), "SUCCESS", time.Since(start))
	return nil
}

// Takeoff switches to GUIDED and commands a climb to altitudeM meters
// above home.
func (c *Controller) Takeoff(ctx context.Context, vehicleID int, altitudeM float64) error {
	start := time.Now()

	if err := c.SetMode(ctx, vehicleID, "GUIDED"); err != nil {
		return fmt.Errorf("takeoff: %w", err)
	}
	if err := c.sender.Send(vehicleID, wire.CommandLong{
		Command: wire.CmdNavTakeoff,
		Param7:  float32(altitudeM),
	}); err != nil {
		c.audit.LogAction(ctx, "takeoff", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("takeoff vehicle %d: %w", vehicleID, err)
	}

	c.log.Info("takeoff command sent", "vehicle", vehicleID, "altitude_m", altitudeM)
	c.audit.LogAction(ctx, "takeoff", strconv.Itoa(vehicleID), "SUCCESS", time.Since(start))
	return nil
}

// Land commands an in-place descent.
func (c *Controller) Land(ctx context.Context, vehicleID int) error {
	return c.SetMode(ctx, vehicleID, "LAND")
}

// ReturnToLaunch commands a return to the launch point.
func (c *Controller) ReturnToLaunch(ctx context.Context, vehicleID int) error {
	return c.SetMode(ctx, vehicleID, "RTL")
}

// Brake commands an immediate stop and position hold.
func (c *Controller) Brake(ctx context.Context, vehicleID int) error {
	return c.SetMode(ctx, vehicleID, "BRAKE")
}

// Goto switches to GUIDED and commands a reposition to the given
// coordinate at altitudeM meters above home.
func (c *Controller) Goto(ctx context.Context, vehicleID int, lat, lon, altitudeM float64) error {
	start := time.Now()

	if err := c.SetMode(ctx, vehicleID, "GUIDED"); err != nil {
		return fmt.Errorf("goto: %w", err)
	}
	if err := c.sender.Send(vehicleID, wire.CommandLong{
		Command: wire.CmdNavWaypoint,
		Param5:  float32(lat),
		Param6:  float32(lon),
		Param7:  float32(altitudeM),
	}); err != nil {
		c.audit.LogAction(ctx, "goto", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("goto vehicle %d: %w", vehicleID, err)
	}

	c.log.Info("goto command sent", "vehicle", vehicleID, "lat", lat, "lon", lon, "alt_m", altitudeM)
	c.audit.LogAction(ctx, "goto", strconv.Itoa(vehicleID), "SUCCESS", time.Since(start))
	return nil
}

// LoadMission parses a mission file, records it as the vehicle's mission
// of record, and starts the upload handshake.
func (c *Controller) LoadMission(ctx context.Context, vehicleID int, path string) error {
	start := time.Now()

	st, ok := c.registry.Lookup(vehicleID)
	if !ok {
		c.audit.LogAction(ctx, "load_mission", strconv.Itoa(vehicleID), "NOT_FOUND", time.Since(start))
		return fmt.Errorf("load mission on vehicle %d: %w", vehicleID, ErrVehicleUnknown)
	}

	waypoints, err := mission.ParseFile(path, c.log)
	if err != nil {
		c.audit.LogAction(ctx, "load_mission", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("load mission on vehicle %d: %w", vehicleID, err)
	}
	if len(waypoints) == 0 {
		c.audit.LogAction(ctx, "load_mission", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("load mission on vehicle %d: %w", vehicleID, mission.ErrNoWaypoints)
	}

	indices := make([]int, len(waypoints))
	for i, wp := range waypoints {
		indices[i] = wp.Seq
	}

	c.mu.Lock()
	c.missions[vehicleID] = waypoints
	c.mu.Unlock()
	st.SetOriginalWaypoints(indices)

	if err := c.uploader.Start(vehicleID, waypoints, nil); err != nil {
		c.audit.LogAction(ctx, "load_mission", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("load mission on vehicle %d: %w", vehicleID, err)
	}

	c.log.Info("mission upload started", "vehicle", vehicleID, "path", path, "waypoints", len(waypoints))
	c.audit.LogAction(ctx, "load_mission", strconv.Itoa(vehicleID), "SUCCESS", time.Since(start))
	return nil
}

// StartMission switches to AUTO and starts the loaded mission from its
// first item.
func (c *Controller) StartMission(ctx context.Context, vehicleID int) error {
	start := time.Now()

	st, ok := c.registry.Lookup(vehicleID)
	if !ok {
		c.audit.LogAction(ctx, "start_mission", strconv.Itoa(vehicleID), "NOT_FOUND", time.Since(start))
		return fmt.Errorf("start mission on vehicle %d: %w", vehicleID, ErrVehicleUnknown)
	}
	c.mu.Lock()
	_, loaded := c.missions[vehicleID]
	c.mu.Unlock()
	if !loaded {
		c.audit.LogAction(ctx, "start_mission", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("start mission on vehicle %d: %w", vehicleID, ErrNoMission)
	}

	if err := c.SetMode(ctx, vehicleID, "AUTO"); err != nil {
		return fmt.Errorf("start mission: %w", err)
	}
	if err := c.sender.Send(vehicleID, wire.CommandLong{Command: wire.CmdMissionStart}); err != nil {
		c.audit.LogAction(ctx, "start_mission", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("start mission on vehicle %d: %w", vehicleID, err)
	}

	st.ResetMissionTimer()
	c.log.Info("mission start sent", "vehicle", vehicleID)
	c.audit.LogAction(ctx, "start_mission", strconv.Itoa(vehicleID), "SUCCESS", time.Since(start))
	return nil
}

// PauseMission brakes the vehicle in place without clearing the mission.
func (c *Controller) PauseMission(ctx context.Context, vehicleID int) error {
	return c.SetMode(ctx, vehicleID, "BRAKE")
}

// ResumeMission re-enters AUTO so the vehicle continues from its current
// mission item.
func (c *Controller) ResumeMission(ctx context.Context, vehicleID int) error {
	return c.SetMode(ctx, vehicleID, "AUTO")
}

// ResumeMissionFromWaypoint rebuilds the mission tail starting at the
// given original waypoint index, uploads it, and starts it once the
// upload concludes.
func (c *Controller) ResumeMissionFromWaypoint(ctx context.Context, vehicleID int, resumeFrom int) error {
	start := time.Now()

	st, ok := c.registry.Lookup(vehicleID)
	if !ok {
		c.audit.LogAction(ctx, "resume_mission", strconv.Itoa(vehicleID), "NOT_FOUND", time.Since(start))
		return fmt.Errorf("resume mission on vehicle %d: %w", vehicleID, ErrVehicleUnknown)
	}

	c.mu.Lock()
	records := c.missions[vehicleID]
	c.mu.Unlock()
	if len(records) == 0 {
		c.audit.LogAction(ctx, "resume_mission", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("resume mission on vehicle %d: %w", vehicleID, ErrNoMission)
	}

	plan, err := mission.PlanResume(records, st.OriginalWaypoints(), resumeFrom)
	if err != nil {
		c.audit.LogAction(ctx, "resume_mission", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("resume mission on vehicle %d: %w", vehicleID, err)
	}

	if err := c.uploader.Start(vehicleID, plan, func(success bool, detail string) {
		if !success {
			c.log.Warn("resume upload failed, mission not started",
				"vehicle", vehicleID, "detail", detail)
			return
		}
		if serr := c.StartMission(context.Background(), vehicleID); serr != nil {
			c.log.Error("resume start failed", "vehicle", vehicleID, "error", serr)
		}
	}); err != nil {
		c.audit.LogAction(ctx, "resume_mission", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("resume mission on vehicle %d: %w", vehicleID, err)
	}

	c.log.Info("resume upload started", "vehicle", vehicleID,
		"resume_from", resumeFrom, "waypoints", len(plan))
	c.audit.LogAction(ctx, "resume_mission", strconv.Itoa(vehicleID), "SUCCESS", time.Since(start))
	return nil
}

// AbortMission logs the operator's reason and returns the vehicle to
// launch.
func (c *Controller) AbortMission(ctx context.Context, vehicleID int, reason string) error {
	start := time.Now()

	c.log.Warn("mission abort requested", "vehicle", vehicleID, "reason", reason)
	if err := c.SetMode(ctx, vehicleID, "RTL"); err != nil {
		c.audit.LogAction(ctx, "abort_mission", strconv.Itoa(vehicleID), "ERROR", time.Since(start))
		return fmt.Errorf("abort mission: %w", err)
	}

	c.audit.LogAction(ctx, "abort_mission", strconv.Itoa(vehicleID), "SUCCESS", time.Since(start))
	return nil
}

// Emergency dispatches a fleet-safety action to the scoped vehicle, or
// to every known vehicle when scope is "ALL".
func (c *Controller) Emergency(ctx context.Context, action, scope string) error {
	start := time.Now()
	auditAction := "emergency_" + action

	msg, err := emergencyMessage(action)
	if err != nil {
		c.audit.LogAction(ctx, auditAction, scope, "INVALID_RANGE", time.Since(start))
		return err
	}

	if scope == ScopeAll {
		if action == ActionDisarm {
			deadline := start.Add(c.cfg.PendingWindow)
			for _, st := range c.registry.All() {
				st.SetPendingArm(false, deadline)
			}
		}
		n := c.sender.Broadcast(msg)
		c.log.Warn("emergency broadcast", "action", action, "reached", n)
		c.events.EmergencyTriggered(action, scope)
		c.audit.LogAction(ctx, auditAction, scope, "SUCCESS", time.Since(start))
		return nil
	}

	vehicleID, err := strconv.Atoi(scope)
	if err != nil {
		c.audit.LogAction(ctx, auditAction, scope, "INVALID_RANGE", time.Since(start))
		return fmt.Errorf("emergency %s scope %q: %w", action, scope, ErrInvalidScope)
	}
	st, ok := c.registry.Lookup(vehicleID)
	if !ok {
		c.audit.LogAction(ctx, auditAction, scope, "NOT_FOUND", time.Since(start))
		return fmt.Errorf("emergency %s on vehicle %d: %w", action, vehicleID, ErrVehicleUnknown)
	}
	if action == ActionDisarm {
		st.SetPendingArm(false, start.Add(c.cfg.PendingWindow))
	}

	if err := c.sender.Send(vehicleID, msg); err != nil {
		c.audit.LogAction(ctx, auditAction, scope, "ERROR", time.Since(start))
		return fmt.Errorf("emergency %s on vehicle %d: %w", action, vehicleID, err)
	}

	c.log.Warn("emergency command sent", "action", action, "vehicle", vehicleID)
	c.events.EmergencyTriggered(action, scope)
	c.audit.LogAction(ctx, auditAction, scope, "SUCCESS", time.Since(start))
	return nil
}

func emergencyMessage(action string) (wire.Message, error) {
	switch action {
	case ActionRTL:
		return wire.SetMode{CustomMode: wire.ModeRTL}, nil
	case ActionLand:
		return wire.SetMode{CustomMode: wire.ModeLand}, nil
	case ActionBrake:
		return wire.SetMode{CustomMode: wire.ModeBrake}, nil
	case ActionDisarm:
		return wire.CommandLong{
			Command: wire.CmdComponentArmDisarm,
			Param1:  0,
			Param2:  forceDisarmParam,
		}, nil
	default:
		return nil, fmt.Errorf("emergency action %q: %w", action, ErrUnknownAction)
	}
}

// EmergencyLand implements the safety monitor's responder port.
func (c *Controller) EmergencyLand(vehicleID int) error {
	return c.Emergency(context.Background(), ActionLand, strconv.Itoa(vehicleID))
}

// EmergencyRTL implements the safety monitor's responder port.
func (c *Controller) EmergencyRTL(vehicleID int) error {
	return c.Emergency(context.Background(), ActionRTL, strconv.Itoa(vehicleID))
}
