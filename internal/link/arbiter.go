//
//
package link

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ground-control/gcs/internal/vehicle"
	"github.com/ground-control/gcs/internal/wire"
)

// backupStatusMarker is the substring the autopilot includes in STATUSTEXT
// lines reporting backup-link health.
const backupStatusMarker = "telem2 connection"

// probeParam is the autopilot parameter written as a backup-link liveness
// probe. The vehicle side watches it change to know the link is alive.
const probeParam = "SCR_USER1"

// ArbiterConfig carries the arbiter tunables.
type ArbiterConfig struct {
	// SecondaryRepeat is how many times each command is sent over the
	// one-way backup link.
	SecondaryRepeat int
	// SecondaryRepeatDelay is the pause between repeated backup sends.
	SecondaryRepeatDelay time.Duration
	// SecondaryHealthWindow demotes backup health when no status report
	// arrived within it.
	SecondaryHealthWindow time.Duration
	// ProbeInterval paces the liveness probe over the backup link.
	ProbeInterval time.Duration
}

// Arbiter routes outbound commands over the primary or backup link.
// All wire writes are serialized through one mutex because the underlying
// codec is not safe for concurrent writers.
type Arbiter struct {
	sendMu    sync.Mutex
	primary   wire.PrimaryChannel
	secondary wire.Channel
	registry  *vehicle.Registry
	cfg       ArbiterConfig
	log       *slog.Logger

	healthMu     sync.Mutex
	healthy      map[int]bool
	lastReportAt map[int]time.Time

	probeCounter uint32
}

// NewArbiter creates an arbiter. secondary may be nil when no backup link
// is configured.
func NewArbiter(primary wire.PrimaryChannel, secondary wire.Channel, registry *vehicle.Registry, cfg ArbiterConfig, log *slog.Logger) *Arbiter {
	return &Arbiter{
		primary:      primary,
		secondary:    secondary,
		registry:     registry,
		cfg:          cfg,
		log:          log,
		healthy:      make(map[int]bool),
		lastReportAt: make(map[int]time.Time),
	}
}

// Send transmits msg to one vehicle, choosing the channel per the routing
// rules. Mission-transfer messages may only travel over primary.
func (a *Arbiter) Send(vehicleID int, msg wire.Message) error {
	if a.primaryReachable(vehicleID) {
		return a.sendPrimary(vehicleID, msg)
	}

	if wire.IsMissionTransfer(msg) {
		return fmt.Errorf("%s to vehicle %d: %w", msg.Name(), vehicleID, ErrPrimaryOnly)
	}

	if a.secondary != nil && a.secondary.Open() && a.SecondaryHealthy(vehicleID, time.Now()) {
		return a.sendSecondary(vehicleID, msg)
	}

	return fmt.Errorf("%s to vehicle %d: %w", msg.Name(), vehicleID, ErrNoChannel)
}

// Broadcast sends msg to every known vehicle and returns how many sends
// succeeded. Per-vehicle failures are logged, not returned.
func (a *Arbiter) Broadcast(msg wire.Message) int {
	sent := 0
	for _, id := range a.registry.IDs() {
		if err := a.Send(id, msg); err != nil {
			a.log.Warn("broadcast send failed", "vehicle", id, "msg", msg.Name(), "error", err)
			continue
		}
		sent++
	}
	return sent
}

// PrimaryOpen reports whether the primary link transport is usable.
func (a *Arbiter) PrimaryOpen() bool {
	return a.primary.Open()
}

func (a *Arbiter) primaryReachable(vehicleID int) bool {
	if !a.primary.Open() {
		return false
	}
	st, ok := a.registry.Lookup(vehicleID)
	return ok && st.Connected()
}

func (a *Arbiter) sendPrimary(vehicleID int, msg wire.Message) error {
	a.sendMu.Lock()
	defer a.sendMu.Unlock()
	if err := a.primary.Send(vehicleID, msg); err != nil {
		return fmt.Errorf("primary send %s to vehicle %d: %w", msg.Name(), vehicleID, err)
	}
	return nil
}

// sendSecondary repeats the send to compensate for the lossy one-way link.
// There is no acknowledgment; success means every transmit was accepted at
// the transport level.
func (a *Arbiter) sendSecondary(vehicleID int, msg wire.Message) error {
	for i := 0; i < a.cfg.SecondaryRepeat; i++ {
		if i > 0 {
			time.Sleep(a.cfg.SecondaryRepeatDelay)
		}
		a.sendMu.Lock()
		err := a.secondary.Send(vehicleID, msg)
		a.sendMu.Unlock()
		if err != nil {
			return fmt.Errorf("secondary send %s to vehicle %d (attempt %d/%d): %w",
				msg.Name(), vehicleID, i+1, a.cfg.SecondaryRepeat, err)
		}
	}
	return nil
}

// NoteStatusText inspects an autopilot status line for the backup-link
// marker and updates the vehicle's backup health. Returns true when the
// line was a backup-link report.
func (a *Arbiter) NoteStatusText(vehicleID int, text string, now time.Time) bool {
	lower := strings.ToLower(text)
	if !strings.Contains(lower, backupStatusMarker) {
		return false
	}

	healthy := strings.Contains(lower, "restored") || strings.Contains(lower, "ok")

	a.healthMu.Lock()
	prev := a.healthy[vehicleID]
	a.healthy[vehicleID] = healthy
	a.lastReportAt[vehicleID] = now
	a.healthMu.Unlock()

	if prev != healthy {
		a.log.Info("backup link health changed", "vehicle", vehicleID, "healthy", healthy)
	}
	return true
}

// SecondaryHealthy reports whether the vehicle's backup link is believed
// usable at time now. Health is derived from autopilot status reports and
// decays when reports stop arriving.
func (a *Arbiter) SecondaryHealthy(vehicleID int, now time.Time) bool {
	a.healthMu.Lock()
	defer a.healthMu.Unlock()
	if !a.healthy[vehicleID] {
		return false
	}
	last, ok := a.lastReportAt[vehicleID]
	if !ok || now.Sub(last) > a.cfg.SecondaryHealthWindow {
		a.healthy[vehicleID] = false
		return false
	}
	return true
}

// RunProbe writes an incrementing counter to a vehicle parameter over the
// backup link at a fixed rate, so the autopilot can tell the link is alive
// even when no application traffic flows. Blocks until ctx is done.
func (a *Arbiter) RunProbe(ctx context.Context) {
	if a.secondary == nil {
		return
	}
	ticker := time.NewTicker(a.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.secondary.Open() {
				continue
			}
			a.probeCounter++
			msg := wire.ParamSet{ParamID: probeParam, Value: float32(a.probeCounter)}
			for _, id := range a.registry.IDs() {
				a.sendMu.Lock()
				err := a.secondary.Send(id, msg)
				a.sendMu.Unlock()
				if err != nil {
					a.log.Debug("probe send failed", "vehicle", id, "error", err)
				}
			}
		}
	}
}
