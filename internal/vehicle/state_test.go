package vehicle

import (
	"testing"
	"time"

	"github.com/ground-control/gcs/internal/wire"
)

func TestOptimisticArmReconciliation(t *testing.T) {
	base := time.Now()
	tests := []struct {
		name           string
		target         bool
		heartbeatArmed bool
		heartbeatAfter time.Duration
		wantArmed      bool
	}{
		{
			name:           "heartbeat inside window is overridden",
			target:         true,
			heartbeatArmed: false,
			heartbeatAfter: 1 * time.Second,
			wantArmed:      true,
		},
		{
			name:           "heartbeat after window is trusted",
			target:         true,
			heartbeatArmed: false,
			heartbeatAfter: 4 * time.Second,
			wantArmed:      false,
		},
		{
			name:           "disarm override inside window",
			target:         false,
			heartbeatArmed: true,
			heartbeatAfter: 2 * time.Second,
			wantArmed:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(1)
			s.SetPendingArm(tt.target, base.Add(3*time.Second))
			if s.Armed() != tt.target {
				t.Fatalf("expected immediate armed=%v", tt.target)
			}
			s.ApplyHeartbeat(wire.Heartbeat{CustomMode: wire.ModeStabilize, Armed: tt.heartbeatArmed}, base.Add(tt.heartbeatAfter))
			if got := s.Armed(); got != tt.wantArmed {
				t.Errorf("armed = %v, want %v", got, tt.wantArmed)
			}
		})
	}
}

func TestPendingArmReplacesPendingDisarm(t *testing.T) {
	base := time.Now()
	s := newState(1)
	s.SetPendingArm(false, base.Add(3*time.Second))
	s.SetPendingArm(true, base.Add(3*time.Second))

	// A disarmed heartbeat inside the window must resolve to the newer
	// pending arm, not the replaced disarm.
	s.ApplyHeartbeat(wire.Heartbeat{Armed: false}, base.Add(1*time.Second))
	if !s.Armed() {
		t.Error("expected pending arm to override heartbeat")
	}
}

func TestHomeSetOncePerConnection(t *testing.T) {
	s := newState(1)

	// No fix yet: position alone must not set home.
	s.ApplyPosition(wire.GlobalPositionInt{LatE7: 473977420, LonE7: 85455160, AltMM: 500000})
	if _, _, _, ok := s.Home(); ok {
		t.Fatal("home set without GPS fix")
	}

	s.ApplyGps(wire.GpsRawInt{FixType: wire.GPSFix3D, Satellites: 10})
	lat, lon, _, ok := s.Home()
	if !ok {
		t.Fatal("home not set after 3D fix")
	}
	if lat != 47.397742 || lon != 8.545516 {
		t.Errorf("home = (%v, %v), want (47.397742, 8.545516)", lat, lon)
	}

	// Later positions must not move home.
	s.ApplyPosition(wire.GlobalPositionInt{LatE7: 480000000, LonE7: 90000000})
	if lat2, _, _, _ := s.Home(); lat2 != lat {
		t.Error("home moved after later position update")
	}

	// Disconnect clears home so a relocated vehicle starts fresh.
	s.MarkDisconnected()
	if _, _, _, ok := s.Home(); ok {
		t.Error("home survived disconnect")
	}
}

func TestMissionTimerTransitions(t *testing.T) {
	base := time.Now()
	s := newState(1)

	s.ApplyHeartbeat(wire.Heartbeat{CustomMode: wire.ModeStabilize, Armed: false}, base)
	if got := s.MissionElapsed(base); got != 0 {
		t.Fatalf("elapsed before start = %v", got)
	}

	// Armed in GUIDED starts the timer.
	s.ApplyHeartbeat(wire.Heartbeat{CustomMode: wire.ModeGuided, Armed: true}, base.Add(1*time.Second))
	if got := s.MissionElapsed(base.Add(11 * time.Second)); got != 10*time.Second {
		t.Errorf("elapsed while running = %v, want 10s", got)
	}

	// Disarm stops it and freezes the accumulated time.
	s.ApplyHeartbeat(wire.Heartbeat{CustomMode: wire.ModeGuided, Armed: false}, base.Add(21*time.Second))
	if got := s.MissionElapsed(base.Add(60 * time.Second)); got != 20*time.Second {
		t.Errorf("elapsed after disarm = %v, want 20s", got)
	}

	s.ResetMissionTimer()
	if got := s.MissionElapsed(base.Add(61 * time.Second)); got != 0 {
		t.Errorf("elapsed after reset = %v, want 0", got)
	}
}

func TestMissionTimerStopsOnLand(t *testing.T) {
	base := time.Now()
	s := newState(1)
	s.ApplyHeartbeat(wire.Heartbeat{CustomMode: wire.ModeAuto, Armed: true}, base)
	s.ApplyHeartbeat(wire.Heartbeat{CustomMode: wire.ModeLand, Armed: true}, base.Add(30*time.Second))
	if got := s.MissionElapsed(base.Add(90 * time.Second)); got != 30*time.Second {
		t.Errorf("elapsed after LAND entry = %v, want 30s", got)
	}
}

func TestWaypointProgress(t *testing.T) {
	s := newState(1)
	s.SetOriginalWaypoints([]int{0, 1, 2, 3})
	s.SetUploadedWaypoints([]int{0, 1, 2, 3}, 4)

	s.MarkWaypointReached(1)
	s.MarkWaypointReached(1) // duplicate must not double-count
	s.MarkWaypointReached(2)

	snap := s.Snapshot(time.Now())
	if snap.ReachedCount != 2 {
		t.Errorf("reached = %d, want 2", snap.ReachedCount)
	}
	if snap.ProgressPct != 50.0 {
		t.Errorf("progress = %v, want 50", snap.ProgressPct)
	}
	if got := s.LastReachedWaypoint(); got != 2 {
		t.Errorf("last reached = %d, want 2", got)
	}

	if _, ok := s.MarkWaypointReached(7); ok {
		t.Error("report beyond uploaded plan accepted")
	}
	if _, ok := s.MarkWaypointReached(-1); ok {
		t.Error("negative report accepted")
	}
}

func TestWaypointProgressAfterResume(t *testing.T) {
	s := newState(1)
	s.SetOriginalWaypoints([]int{0, 1, 2, 3, 4, 5})
	s.SetUploadedWaypoints([]int{0, 1, 2, 3, 4, 5}, 6)
	for seq := 0; seq <= 3; seq++ {
		if _, ok := s.MarkWaypointReached(seq); !ok {
			t.Fatalf("reached %d rejected", seq)
		}
	}

	// The resumed plan carries home plus originals 3..5; its wire seqs
	// restart at 0 and must resolve through the mapping.
	s.SetUploadedWaypoints([]int{0, 3, 4, 5}, 4)
	for seq := 1; seq <= 3; seq++ {
		original, ok := s.MarkWaypointReached(seq)
		if !ok {
			t.Fatalf("reached %d rejected after resume", seq)
		}
		if want := seq + 2; original != want {
			t.Errorf("seq %d mapped to %d, want %d", seq, original, want)
		}
	}

	snap := s.Snapshot(time.Now())
	if snap.ProgressPct != 100.0 {
		t.Errorf("progress = %v, want 100", snap.ProgressPct)
	}
	if snap.ReachedCount != 6 {
		t.Errorf("reached = %d, want 6", snap.ReachedCount)
	}
	if got := s.LastReachedWaypoint(); got != 5 {
		t.Errorf("last reached = %d, want 5", got)
	}
}

func TestRegistryEnsure(t *testing.T) {
	r := NewRegistry()

	s1, created := r.Ensure(7)
	if !created {
		t.Error("first Ensure should create")
	}
	s2, created := r.Ensure(7)
	if created {
		t.Error("second Ensure should not create")
	}
	if s1 != s2 {
		t.Error("Ensure returned different records for same id")
	}

	r.Ensure(3)
	ids := r.IDs()
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 7 {
		t.Errorf("IDs = %v, want [3 7]", ids)
	}

	if _, ok := r.Lookup(99); ok {
		t.Error("Lookup found undiscovered vehicle")
	}
}
