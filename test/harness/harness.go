// Package harness wires a fully assembled station for integration
// tests: real UDP transport, receive loop, upload engine, command
// controller, safety monitor, and the HTTP API on an httptest server.
package harness

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ground-control/gcs/internal/api"
	"github.com/ground-control/gcs/internal/audit"
	"github.com/ground-control/gcs/internal/command"
	"github.com/ground-control/gcs/internal/events"
	"github.com/ground-control/gcs/internal/link"
	"github.com/ground-control/gcs/internal/mission"
	"github.com/ground-control/gcs/internal/safety"
	"github.com/ground-control/gcs/internal/transport"
	"github.com/ground-control/gcs/internal/vehicle"
)

// Options configures the harness timings.
type Options struct {
	ConnTimeout   time.Duration
	UploadTimeout time.Duration
	WaypointDelay time.Duration
	PendingWindow time.Duration
}

// DefaultOptions returns timings fast enough for tests but generous
// enough for loopback UDP.
func DefaultOptions() Options {
	return Options{
		ConnTimeout:   2 * time.Second,
		UploadTimeout: 5 * time.Second,
		WaypointDelay: time.Millisecond,
		PendingWindow: 3 * time.Second,
	}
}

// Server is a fully wired station under test.
type Server struct {
	URL         string
	PrimaryAddr string
	Registry    *vehicle.Registry
	Controller  *command.Controller
	Hub         *events.Hub
	Monitor     *safety.Monitor
	Audit       *audit.Logger
}

// NewServer assembles the station. All components are torn down via
// t.Cleanup.
func NewServer(t *testing.T, opts Options) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	registry := vehicle.NewRegistry()
	hub := events.NewHub(events.Config{BufferSize: 16, HeartbeatInterval: time.Second})
	t.Cleanup(hub.Stop)

	primary, err := transport.NewUDPPrimary("127.0.0.1:0", logger)
	if err != nil {
		t.Fatalf("open primary link: %v", err)
	}
	t.Cleanup(func() { _ = primary.Close() })

	arbiter := link.NewArbiter(primary, nil, registry, link.ArbiterConfig{
		SecondaryRepeat:       3,
		SecondaryRepeatDelay:  time.Millisecond,
		SecondaryHealthWindow: time.Second,
		ProbeInterval:         time.Hour,
	}, logger)
	engine := mission.NewEngine(arbiter, registry, hub, mission.Config{
		MaxConcurrent: 2,
		SlotTimeout:   5 * time.Second,
		UploadTimeout: opts.UploadTimeout,
		WaypointDelay: opts.WaypointDelay,
		ClearSettle:   10 * time.Millisecond,
	}, logger)

	auditLogger, err := audit.NewLogger(t.TempDir())
	if err != nil {
		t.Fatalf("create audit logger: %v", err)
	}
	t.Cleanup(func() { _ = auditLogger.Close() })

	controller := command.NewController(arbiter, registry, engine, auditLogger, hub,
		command.Config{PendingWindow: opts.PendingWindow}, logger)
	monitor := safety.NewMonitor(registry, controller, hub, safety.Thresholds{
		BatteryWarning:   30,
		BatteryCritical:  20,
		BatteryEmergency: 10,
		CommTimeout:      10 * time.Second,
		MinSatellites:    6,
		MaxAltitude:      120,
		MinAltitude:      2,
		MaxGroundSpeed:   20,
		MaxAttitude:      0.785,
		MissionTimeout:   30 * time.Minute,
	}, 30*time.Second, time.Second, logger)

	loop := link.NewLoop(primary, arbiter, registry, engine, hub, link.LoopConfig{
		PollTimeout:   20 * time.Millisecond,
		ConnTimeout:   opts.ConnTimeout,
		SweepInterval: 50 * time.Millisecond,
	}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go loop.Run(ctx)

	apiServer := api.NewServer(hub, controller, registry, monitor, nil,
		10*time.Second, 10*time.Second, time.Minute)
	mux := http.NewServeMux()
	apiServer.RegisterRoutes(mux)
	httpServer := httptest.NewServer(mux)
	t.Cleanup(httpServer.Close)

	return &Server{
		URL:         httpServer.URL,
		PrimaryAddr: primary.Addr().String(),
		Registry:    registry,
		Controller:  controller,
		Hub:         hub,
		Monitor:     monitor,
		Audit:       auditLogger,
	}
}
