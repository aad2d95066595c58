package link

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ground-control/gcs/internal/vehicle"
	"github.com/ground-control/gcs/internal/wire"
)

type sentMsg struct {
	vehicleID int
	msg       wire.Message
}

// fakeChannel records sends and can simulate a closed or failing link.
type fakeChannel struct {
	open    bool
	sendErr error
	sent    []sentMsg
	inbox   []sentMsg
}

func (f *fakeChannel) Open() bool { return f.open }

func (f *fakeChannel) Send(systemID int, msg wire.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, sentMsg{vehicleID: systemID, msg: msg})
	return nil
}

func (f *fakeChannel) Recv(timeout time.Duration) (int, wire.Message, error) {
	if len(f.inbox) == 0 {
		return 0, nil, wire.ErrNoMessage
	}
	next := f.inbox[0]
	f.inbox = f.inbox[1:]
	return next.vehicleID, next.msg, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testArbiterConfig() ArbiterConfig {
	return ArbiterConfig{
		SecondaryRepeat:       3,
		SecondaryRepeatDelay:  time.Millisecond,
		SecondaryHealthWindow: 5 * time.Second,
		ProbeInterval:         time.Second,
	}
}

func TestSendPrefersPrimary(t *testing.T) {
	primary := &fakeChannel{open: true}
	secondary := &fakeChannel{open: true}
	registry := vehicle.NewRegistry()
	st, _ := registry.Ensure(1)
	st.Touch(time.Now())

	a := NewArbiter(primary, secondary, registry, testArbiterConfig(), testLogger())
	a.NoteStatusText(1, "telem2 connection ok", time.Now())

	if err := a.Send(1, wire.CommandLong{Command: wire.CmdComponentArmDisarm}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(primary.sent) != 1 {
		t.Errorf("primary sends = %d, want 1", len(primary.sent))
	}
	if len(secondary.sent) != 0 {
		t.Errorf("secondary sends = %d, want 0", len(secondary.sent))
	}
}

func TestSendFallsBackToSecondaryThreeTimes(t *testing.T) {
	primary := &fakeChannel{open: false}
	secondary := &fakeChannel{open: true}
	registry := vehicle.NewRegistry()
	registry.Ensure(1)

	a := NewArbiter(primary, secondary, registry, testArbiterConfig(), testLogger())
	a.NoteStatusText(1, "telem2 connection restored", time.Now())

	if err := a.Send(1, wire.SetMode{CustomMode: wire.ModeRTL}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(secondary.sent) != 3 {
		t.Errorf("secondary sends = %d, want 3", len(secondary.sent))
	}
	if len(primary.sent) != 0 {
		t.Errorf("primary sends = %d, want 0", len(primary.sent))
	}
}

func TestSendFailsWhenNoChannelAvailable(t *testing.T) {
	tests := []struct {
		name          string
		secondaryOpen bool
		healthReport  string
	}{
		{name: "secondary closed", secondaryOpen: false, healthReport: "telem2 connection ok"},
		{name: "secondary unhealthy", secondaryOpen: true, healthReport: "telem2 connection lost"},
		{name: "no health report", secondaryOpen: true, healthReport: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &fakeChannel{open: false}
			secondary := &fakeChannel{open: tt.secondaryOpen}
			registry := vehicle.NewRegistry()
			registry.Ensure(1)

			a := NewArbiter(primary, secondary, registry, testArbiterConfig(), testLogger())
			if tt.healthReport != "" {
				a.NoteStatusText(1, tt.healthReport, time.Now())
			}

			err := a.Send(1, wire.CommandLong{Command: wire.CmdNavTakeoff})
			if !errors.Is(err, ErrNoChannel) {
				t.Errorf("err = %v, want ErrNoChannel", err)
			}
		})
	}
}

func TestSecondarySendFailureAborts(t *testing.T) {
	primary := &fakeChannel{open: false}
	secondary := &fakeChannel{open: true, sendErr: errors.New("radio fault")}
	registry := vehicle.NewRegistry()
	registry.Ensure(1)

	a := NewArbiter(primary, secondary, registry, testArbiterConfig(), testLogger())
	a.NoteStatusText(1, "telem2 connection ok", time.Now())

	if err := a.Send(1, wire.SetMode{CustomMode: wire.ModeLand}); err == nil {
		t.Error("expected error when secondary transport fails")
	}
}

func TestMissionTransferRejectedOverSecondary(t *testing.T) {
	primary := &fakeChannel{open: false}
	secondary := &fakeChannel{open: true}
	registry := vehicle.NewRegistry()
	registry.Ensure(1)

	a := NewArbiter(primary, secondary, registry, testArbiterConfig(), testLogger())
	a.NoteStatusText(1, "telem2 connection ok", time.Now())

	err := a.Send(1, wire.MissionCount{Count: 5})
	if !errors.Is(err, ErrPrimaryOnly) {
		t.Errorf("err = %v, want ErrPrimaryOnly", err)
	}
	if len(secondary.sent) != 0 {
		t.Errorf("mission message leaked to secondary: %d sends", len(secondary.sent))
	}
}

func TestSecondaryHealthDecays(t *testing.T) {
	registry := vehicle.NewRegistry()
	registry.Ensure(1)
	a := NewArbiter(&fakeChannel{}, &fakeChannel{open: true}, registry, testArbiterConfig(), testLogger())

	base := time.Now()
	a.NoteStatusText(1, "Telem2 Connection OK", base)

	if !a.SecondaryHealthy(1, base.Add(4*time.Second)) {
		t.Error("healthy inside window")
	}
	if a.SecondaryHealthy(1, base.Add(6*time.Second)) {
		t.Error("health should decay after window with no report")
	}
	// Decay is sticky until a fresh report arrives.
	if a.SecondaryHealthy(1, base.Add(4*time.Second)) {
		t.Error("health should stay demoted")
	}
}

func TestNoteStatusTextIgnoresUnrelatedLines(t *testing.T) {
	registry := vehicle.NewRegistry()
	a := NewArbiter(&fakeChannel{}, nil, registry, testArbiterConfig(), testLogger())
	if a.NoteStatusText(1, "EKF2 IMU0 is using GPS", time.Now()) {
		t.Error("unrelated status line treated as backup-link report")
	}
}
