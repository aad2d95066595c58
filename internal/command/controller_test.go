package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ground-control/gcs/internal/mission"
	"github.com/ground-control/gcs/internal/vehicle"
	"github.com/ground-control/gcs/internal/wire"
)

type sentMessage struct {
	vehicleID int
	msg       wire.Message
}

type fakeSender struct {
	sent      []sentMessage
	broadcast []wire.Message
	fail      error
}

func (f *fakeSender) Send(vehicleID int, msg wire.Message) error {
	if f.fail != nil {
		return f.fail
	}
	f.sent = append(f.sent, sentMessage{vehicleID, msg})
	return nil
}

func (f *fakeSender) Broadcast(msg wire.Message) int {
	f.broadcast = append(f.broadcast, msg)
	return 2
}

func (f *fakeSender) PrimaryOpen() bool { return true }

type uploadCall struct {
	vehicleID int
	waypoints []mission.Waypoint
	onDone    func(bool, string)
}

type fakeUploader struct {
	calls []uploadCall
	fail  error
}

func (f *fakeUploader) Start(vehicleID int, waypoints []mission.Waypoint, onDone func(bool, string)) error {
	if f.fail != nil {
		return f.fail
	}
	f.calls = append(f.calls, uploadCall{vehicleID, waypoints, onDone})
	return nil
}

func (f *fakeUploader) Active(int) bool { return false }

type auditEntry struct {
	action    string
	vehicleID string
	result    string
}

type recordingAudit struct {
	entries []auditEntry
}

func (r *recordingAudit) LogAction(_ context.Context, action, vehicleID, result string, _ time.Duration) {
	r.entries = append(r.entries, auditEntry{action, vehicleID, result})
}

type recordingPublisher struct {
	actions []string
	scopes  []string
}

func (r *recordingPublisher) EmergencyTriggered(action, scope string) {
	r.actions = append(r.actions, action)
	r.scopes = append(r.scopes, scope)
}

func setup(t *testing.T) (*Controller, *vehicle.Registry, *fakeSender, *fakeUploader, *recordingAudit, *recordingPublisher) {
	t.Helper()
	registry := vehicle.NewRegistry()
	sender := &fakeSender{}
	uploader := &fakeUploader{}
	audit := &recordingAudit{}
	pub := &recordingPublisher{}
	c := NewController(sender, registry, uploader, audit, pub,
		Config{PendingWindow: 3 * time.Second}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return c, registry, sender, uploader, audit, pub
}

func lastAudit(t *testing.T, audit *recordingAudit) auditEntry {
	t.Helper()
	if len(audit.entries) == 0 {
		t.Fatal("no audit entries")
	}
	return audit.entries[len(audit.entries)-1]
}

func TestArmAppliesOptimisticState(t *testing.T) {
	c, registry, sender, _, audit, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())

	if err := c.Arm(context.Background(), 1); err != nil {
		t.Fatalf("Arm: %v", err)
	}

	if !st.Armed() {
		t.Error("vehicle not optimistically armed")
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	cl, ok := sender.sent[0].msg.(wire.CommandLong)
	if !ok || cl.Command != wire.CmdComponentArmDisarm || cl.Param1 != 1 {
		t.Errorf("sent %+v", sender.sent[0].msg)
	}
	if e := lastAudit(t, audit); e.action != "arm" || e.result != "SUCCESS" {
		t.Errorf("audit = %+v", e)
	}
}

func TestArmUnknownVehicle(t *testing.T) {
	c, _, sender, _, audit, _ := setup(t)

	err := c.Arm(context.Background(), 9)
	if !errors.Is(err, ErrVehicleUnknown) {
		t.Fatalf("err = %v, want ErrVehicleUnknown", err)
	}
	if len(sender.sent) != 0 {
		t.Error("message sent for unknown vehicle")
	}
	if e := lastAudit(t, audit); e.result != "NOT_FOUND" {
		t.Errorf("audit result = %s, want NOT_FOUND", e.result)
	}
}

func TestDisarmSendFailureAudited(t *testing.T) {
	c, registry, sender, _, audit, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())
	sender.fail = errors.New("link down")

	if err := c.Disarm(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	if e := lastAudit(t, audit); e.result != "ERROR" {
		t.Errorf("audit result = %s, want ERROR", e.result)
	}
}

func TestTakeoffSwitchesToGuidedFirst(t *testing.T) {
	c, registry, sender, _, _, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())

	if err := c.Takeoff(context.Background(), 1, 25); err != nil {
		t.Fatalf("Takeoff: %v", err)
	}

	if len(sender.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sender.sent))
	}
	sm, ok := sender.sent[0].msg.(wire.SetMode)
	if !ok || sm.CustomMode != wire.ModeGuided {
		t.Errorf("first message %+v, want GUIDED mode change", sender.sent[0].msg)
	}
	cl, ok := sender.sent[1].msg.(wire.CommandLong)
	if !ok || cl.Command != wire.CmdNavTakeoff || cl.Param7 != 25 {
		t.Errorf("second message %+v, want NAV_TAKEOFF alt 25", sender.sent[1].msg)
	}
}

func TestGotoCarriesCoordinate(t *testing.T) {
	c, registry, sender, _, _, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())

	if err := c.Goto(context.Background(), 1, 47.5, 9.7, 30); err != nil {
		t.Fatalf("Goto: %v", err)
	}
	cl, ok := sender.sent[len(sender.sent)-1].msg.(wire.CommandLong)
	if !ok || cl.Command != wire.CmdNavWaypoint || cl.Param5 != 47.5 || cl.Param6 != 9.7 || cl.Param7 != 30 {
		t.Errorf("goto message = %+v", sender.sent[len(sender.sent)-1].msg)
	}
}

func TestSetModeRejectsUnknownName(t *testing.T) {
	c, registry, _, _, audit, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())

	err := c.SetMode(context.Background(), 1, "WARP")
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("err = %v, want ErrUnknownMode", err)
	}
	if e := lastAudit(t, audit); e.result != "INVALID_RANGE" {
		t.Errorf("audit result = %s, want INVALID_RANGE", e.result)
	}
}

func writeMissionFile(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "survey.waypoints")
	content := "QGC WPL 110\n"
	for i := 0; i < n; i++ {
		content += fmt.Sprintf("%d\t0\t3\t16\t0\t0\t0\t0\t47.%d\t9.%d\t20\t1\n", i, i, i)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissionParsesAndUploads(t *testing.T) {
	c, registry, _, uploader, audit, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())
	path := writeMissionFile(t, 4)

	if err := c.LoadMission(context.Background(), 1, path); err != nil {
		t.Fatalf("LoadMission: %v", err)
	}

	if len(uploader.calls) != 1 || len(uploader.calls[0].waypoints) != 4 {
		t.Fatalf("upload calls = %+v", uploader.calls)
	}
	if got := st.OriginalWaypoints(); len(got) != 4 || got[0] != 0 || got[3] != 3 {
		t.Errorf("original waypoints = %v", got)
	}
	if e := lastAudit(t, audit); e.action != "load_mission" || e.result != "SUCCESS" {
		t.Errorf("audit = %+v", e)
	}
}

func TestStartMissionRequiresLoadedMission(t *testing.T) {
	c, registry, _, _, _, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())

	err := c.StartMission(context.Background(), 1)
	if !errors.Is(err, ErrNoMission) {
		t.Fatalf("err = %v, want ErrNoMission", err)
	}
}

func TestStartMissionSendsAutoThenStart(t *testing.T) {
	c, registry, sender, _, _, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())
	if err := c.LoadMission(context.Background(), 1, writeMissionFile(t, 2)); err != nil {
		t.Fatalf("LoadMission: %v", err)
	}

	if err := c.StartMission(context.Background(), 1); err != nil {
		t.Fatalf("StartMission: %v", err)
	}

	n := len(sender.sent)
	if n < 2 {
		t.Fatalf("sent %d messages", n)
	}
	sm, ok := sender.sent[n-2].msg.(wire.SetMode)
	if !ok || sm.CustomMode != wire.ModeAuto {
		t.Errorf("mode message = %+v, want AUTO", sender.sent[n-2].msg)
	}
	cl, ok := sender.sent[n-1].msg.(wire.CommandLong)
	if !ok || cl.Command != wire.CmdMissionStart {
		t.Errorf("start message = %+v, want MISSION_START", sender.sent[n-1].msg)
	}
}

func TestResumeFromWaypointChainsStart(t *testing.T) {
	c, registry, sender, uploader, _, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())
	if err := c.LoadMission(context.Background(), 1, writeMissionFile(t, 6)); err != nil {
		t.Fatalf("LoadMission: %v", err)
	}

	if err := c.ResumeMissionFromWaypoint(context.Background(), 1, 3); err != nil {
		t.Fatalf("ResumeMissionFromWaypoint: %v", err)
	}

	if len(uploader.calls) != 2 {
		t.Fatalf("upload calls = %d, want 2", len(uploader.calls))
	}
	resume := uploader.calls[1]
	// Home plus waypoints 3..5, re-sequenced from zero.
	if len(resume.waypoints) != 4 {
		t.Fatalf("resume plan length = %d, want 4", len(resume.waypoints))
	}
	if resume.onDone == nil {
		t.Fatal("resume upload has no completion hook")
	}

	before := len(sender.sent)
	resume.onDone(true, "")
	if len(sender.sent) != before+2 {
		t.Errorf("completion sent %d messages, want AUTO and MISSION_START", len(sender.sent)-before)
	}
}

func TestResumeWithoutMission(t *testing.T) {
	c, registry, _, _, _, _ := setup(t)
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())

	err := c.ResumeMissionFromWaypoint(context.Background(), 1, 2)
	if !errors.Is(err, ErrNoMission) {
		t.Fatalf("err = %v, want ErrNoMission", err)
	}
}

func TestEmergencyBroadcastAll(t *testing.T) {
	c, registry, sender, _, _, pub := setup(t)
	now := time.Now()
	for _, id := range []int{1, 2} {
		st, _ := registry.Ensure(id)
		st.Touch(now)
		st.ApplyHeartbeat(wire.Heartbeat{Armed: true}, now)
	}

	if err := c.Emergency(context.Background(), ActionDisarm, ScopeAll); err != nil {
		t.Fatalf("Emergency: %v", err)
	}

	if len(sender.broadcast) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(sender.broadcast))
	}
	if cl, ok := sender.broadcast[0].(wire.CommandLong); !ok ||
		cl.Command != wire.CmdComponentArmDisarm || cl.Param2 != forceDisarmParam {
		t.Errorf("broadcast message = %+v", sender.broadcast[0])
	}
	for _, id := range []int{1, 2} {
		st, _ := registry.Lookup(id)
		if st.Armed() {
			t.Errorf("vehicle %d still armed after disarm-all", id)
		}
	}
	if len(pub.actions) != 1 || pub.actions[0] != ActionDisarm || pub.scopes[0] != ScopeAll {
		t.Errorf("published = %v %v", pub.actions, pub.scopes)
	}
}

func TestEmergencySingleVehicle(t *testing.T) {
	c, registry, sender, _, _, _ := setup(t)
	st, _ := registry.Ensure(3)
	st.Touch(time.Now())

	if err := c.Emergency(context.Background(), ActionRTL, "3"); err != nil {
		t.Fatalf("Emergency: %v", err)
	}
	sm, ok := sender.sent[0].msg.(wire.SetMode)
	if !ok || sm.CustomMode != wire.ModeRTL {
		t.Errorf("sent %+v, want RTL mode change", sender.sent[0].msg)
	}
}

func TestEmergencyInvalidScope(t *testing.T) {
	c, _, _, _, _, _ := setup(t)

	if err := c.Emergency(context.Background(), ActionLand, "fleet-7"); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("err = %v, want ErrInvalidScope", err)
	}
	if err := c.Emergency(context.Background(), "self-destruct", ScopeAll); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("err = %v, want ErrUnknownAction", err)
	}
}
