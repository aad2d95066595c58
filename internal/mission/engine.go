//
//
package mission

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/ground-control/gcs/internal/vehicle"
	"github.com/ground-control/gcs/internal/wire"
)

// phase is the upload session state.
type phase int

const (
	phasePending phase = iota
	phaseCountSent
	phaseAwaitingRequests
	phaseAwaitingAck
	phaseComplete
	phaseError
)

// Config carries the upload engine tunables.
type Config struct {
	// MaxConcurrent bounds simultaneous uploads across all vehicles.
	MaxConcurrent int64
	// SlotTimeout bounds how long a queued upload waits for a slot.
	SlotTimeout time.Duration
	// UploadTimeout bounds the whole handshake once the count is sent.
	UploadTimeout time.Duration
	// WaypointDelay throttles item sends to spare the radio.
	WaypointDelay time.Duration
	// ClearSettle is honored after a successful mission clear before the
	// new upload begins.
	ClearSettle time.Duration
}

// session tracks one in-flight upload. Owned by the engine; fields are
// guarded by the engine mutex.
type session struct {
	vehicleID int
	waypoints []Waypoint
	requested map[int]bool
	phase     phase
	success   bool
	detail    string
	done      chan struct{}
}

func (s *session) terminal() bool {
	return s.phase == phaseComplete || s.phase == phaseError
}

// finish moves the session to a terminal phase exactly once.
func (s *session) finish(success bool, detail string) {
	if s.terminal() {
		return
	}
	s.success = success
	s.detail = detail
	if success {
		s.phase = phaseComplete
	} else {
		s.phase = phaseError
	}
	close(s.done)
}

// Engine drives mission uploads. One session may exist per vehicle; a
// global semaphore bounds how many sessions transfer concurrently.
type Engine struct {
	sender   Sender
	registry *vehicle.Registry
	events   EventSink
	gate     *semaphore.Weighted
	cfg      Config
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[int]*session
}

// NewEngine creates an upload engine. events may be nil.
func NewEngine(sender Sender, registry *vehicle.Registry, events EventSink, cfg Config, log *slog.Logger) *Engine {
	if events == nil {
		events = NopSink{}
	}
	return &Engine{
		sender:   sender,
		registry: registry,
		events:   events,
		gate:     semaphore.NewWeighted(cfg.MaxConcurrent),
		cfg:      cfg,
		log:      log,
		sessions: make(map[int]*session),
	}
}

// Start begins an asynchronous upload of waypoints to vehicleID. It
// returns once the session is reserved; the outcome is delivered through
// the event sink and the optional onDone callback. A vehicle with an
// active session rejects further uploads rather than queueing them.
func (e *Engine) Start(vehicleID int, waypoints []Waypoint, onDone func(success bool, detail string)) error {
	if len(waypoints) == 0 {
		return ErrNoWaypoints
	}
	st, ok := e.registry.Lookup(vehicleID)
	if !ok || !st.Connected() || !e.sender.PrimaryOpen() {
		return fmt.Errorf("upload to vehicle %d: %w", vehicleID, ErrPrimaryRequired)
	}

	sess := &session{
		vehicleID: vehicleID,
		waypoints: waypoints,
		requested: make(map[int]bool),
		phase:     phasePending,
		done:      make(chan struct{}),
	}

	e.mu.Lock()
	if _, active := e.sessions[vehicleID]; active {
		e.mu.Unlock()
		return fmt.Errorf("upload to vehicle %d: %w", vehicleID, ErrUploadInProgress)
	}
	e.sessions[vehicleID] = sess
	e.mu.Unlock()

	e.log.Info("mission upload started", "vehicle", vehicleID, "waypoints", len(waypoints))
	go e.run(sess, onDone)
	return nil
}

// Active reports whether vehicleID has an upload session in flight.
func (e *Engine) Active(vehicleID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[vehicleID]
	return ok
}

// run holds the session from slot acquisition to completion. The slot is
// released on every exit path.
func (e *Engine) run(sess *session, onDone func(bool, string)) {
	id := sess.vehicleID
	e.events.UploadProgress(id, "Waiting for upload slot...", 5)

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.SlotTimeout)
	defer cancel()
	if err := e.gate.Acquire(ctx, 1); err != nil {
		e.log.Error("upload slot wait timed out", "vehicle", id, "waited", e.cfg.SlotTimeout)
		e.conclude(sess, false, "Timeout waiting for upload slot", onDone)
		return
	}
	defer e.gate.Release(1)

	e.events.UploadProgress(id, "Upload slot acquired", 15)
	e.clearExisting(id)

	e.mu.Lock()
	sess.phase = phaseCountSent
	e.mu.Unlock()

	count := wire.MissionCount{Count: len(sess.waypoints)}
	if err := e.sender.Send(id, count); err != nil {
		e.log.Error("mission count send failed", "vehicle", id, "error", err)
		detail := fmt.Sprintf("Failed to send mission count: %v", err)
		e.mu.Lock()
		sess.finish(false, detail)
		e.mu.Unlock()
		if st, ok := e.registry.Lookup(id); ok {
			st.SetUploadedWaypoints(nil, 0)
		}
		e.conclude(sess, false, detail, onDone)
		return
	}

	e.mu.Lock()
	if !sess.terminal() {
		sess.phase = phaseAwaitingRequests
	}
	e.mu.Unlock()
	e.events.UploadProgress(id, "Uploading waypoints...", 70)

	select {
	case <-sess.done:
	case <-time.After(e.cfg.UploadTimeout):
		e.mu.Lock()
		sess.finish(false, fmt.Sprintf("Upload timeout after %s", e.cfg.UploadTimeout))
		e.mu.Unlock()
	}

	e.mu.Lock()
	success, detail := sess.success, sess.detail
	e.mu.Unlock()

	if st, ok := e.registry.Lookup(id); ok {
		if success {
			indices := make([]int, len(sess.waypoints))
			for i, wp := range sess.waypoints {
				indices[i] = wp.OriginalSeq
			}
			st.SetUploadedWaypoints(indices, len(indices))
		} else {
			// The transfer began with a clear, so a failed upload leaves no
			// trustworthy mission on the vehicle.
			st.SetUploadedWaypoints(nil, 0)
		}
	}
	e.conclude(sess, success, detail, onDone)
}

// conclude unregisters the session and reports the outcome.
func (e *Engine) conclude(sess *session, success bool, detail string, onDone func(bool, string)) {
	e.mu.Lock()
	delete(e.sessions, sess.vehicleID)
	e.mu.Unlock()

	if success {
		e.log.Info("mission upload complete", "vehicle", sess.vehicleID)
		e.events.UploadProgress(sess.vehicleID, "Upload complete", 100)
		e.events.UploadResult(sess.vehicleID, true, "Mission uploaded successfully")
	} else {
		e.log.Error("mission upload failed", "vehicle", sess.vehicleID, "reason", detail)
		e.events.UploadProgress(sess.vehicleID, detail, 0)
		e.events.UploadResult(sess.vehicleID, false, detail)
	}
	if onDone != nil {
		onDone(success, detail)
	}
}

// clearExisting erases any previously loaded mission. Best effort: a send
// failure is logged and the upload proceeds; only a successful clear earns
// the settle delay.
func (e *Engine) clearExisting(vehicleID int) {
	if err := e.sender.Send(vehicleID, wire.MissionClearAll{}); err != nil {
		e.log.Warn("mission clear failed, proceeding with upload", "vehicle", vehicleID, "error", err)
		return
	}
	time.Sleep(e.cfg.ClearSettle)
}

// Handle consumes mission-transfer messages from the receive loop.
// Returns false when no session is active for the vehicle.
func (e *Engine) Handle(vehicleID int, msg wire.Message) bool {
	e.mu.Lock()
	sess, ok := e.sessions[vehicleID]
	if !ok {
		e.mu.Unlock()
		return false
	}

	switch m := msg.(type) {
	case wire.MissionRequest:
		e.answerRequest(sess, m.Seq, false)
	case wire.MissionRequestInt:
		e.answerRequest(sess, m.Seq, true)
	case wire.MissionAck:
		e.handleAck(sess, m.Type)
		e.mu.Unlock()
	default:
		e.mu.Unlock()
		return false
	}
	return true
}

// answerRequest sends the waypoint at seq unless it was already answered.
// Called with the engine mutex held; releases it.
func (e *Engine) answerRequest(sess *session, seq int, useInt bool) {
	id := sess.vehicleID

	if sess.terminal() {
		e.mu.Unlock()
		return
	}
	if seq < 0 || seq >= len(sess.waypoints) {
		e.log.Error("waypoint request out of range", "vehicle", id, "seq", seq, "max", len(sess.waypoints)-1)
		sess.finish(false, fmt.Sprintf("Invalid waypoint request %d", seq))
		e.mu.Unlock()
		return
	}
	if sess.requested[seq] {
		// Resending after the autopilot moved on causes invalid sequence
		// errors, so duplicates are dropped.
		e.log.Debug("duplicate waypoint request ignored", "vehicle", id, "seq", seq)
		e.mu.Unlock()
		return
	}
	sess.requested[seq] = true
	wp := sess.waypoints[seq]
	allAnswered := len(sess.requested) == len(sess.waypoints)
	if allAnswered {
		sess.phase = phaseAwaitingAck
	}
	e.mu.Unlock()

	var item wire.Message
	if useInt {
		item = wp.ItemInt(seq)
	} else {
		item = wp.Item(seq)
	}
	if err := e.sender.Send(id, item); err != nil {
		e.log.Error("waypoint send failed", "vehicle", id, "seq", seq, "error", err)
		e.mu.Lock()
		sess.finish(false, fmt.Sprintf("Failed to send waypoint %d: %v", seq, err))
		e.mu.Unlock()
		return
	}
	e.log.Debug("waypoint sent", "vehicle", id, "seq", seq, "total", len(sess.waypoints))

	if e.cfg.WaypointDelay > 0 {
		time.Sleep(e.cfg.WaypointDelay)
	}
	if allAnswered {
		e.log.Debug("all waypoints sent, awaiting ack", "vehicle", id)
	}
}

// handleAck terminates the session. Called with the engine mutex held.
func (e *Engine) handleAck(sess *session, code int) {
	if sess.terminal() {
		return
	}
	if code == wire.MissionAccepted {
		sess.finish(true, "")
		return
	}

	reason := AckReason(code)
	// Code 15 is frequently spurious: the autopilot usually has the
	// mission loaded despite reporting it.
	if code == wire.MissionOperationCancelled {
		e.log.Warn("mission ack code 15, mission may still be loaded", "vehicle", sess.vehicleID)
	}
	sess.finish(false, reason)
}
