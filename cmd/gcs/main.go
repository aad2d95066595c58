// Package main implements the ground control station entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ground-control/gcs/internal/api"
	"github.com/ground-control/gcs/internal/audit"
	"github.com/ground-control/gcs/internal/auth"
	"github.com/ground-control/gcs/internal/command"
	"github.com/ground-control/gcs/internal/config"
	"github.com/ground-control/gcs/internal/events"
	"github.com/ground-control/gcs/internal/link"
	"github.com/ground-control/gcs/internal/mission"
	"github.com/ground-control/gcs/internal/safety"
	"github.com/ground-control/gcs/internal/transport"
	"github.com/ground-control/gcs/internal/vehicle"
	"github.com/ground-control/gcs/internal/wire"
)

const Version = "1.0.0"

func main() {
	log.Printf("Starting ground control station v%s", Version)

	// Step 1: Load configuration.
	cfg, err := config.Load(os.Getenv("GCS_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := newLogger(cfg.LogLevel)
	logger.Info("configuration loaded")

	// Step 2: Initialize audit logger.
	auditLogger, err := audit.NewLogger(cfg.AuditDir)
	if err != nil {
		log.Fatalf("Failed to initialize audit logger: %v", err)
	}
	logger.Info("audit logger initialized", "path", auditLogger.FilePath())

	// Step 3: Open the links.
	primary, err := transport.NewUDPPrimary(cfg.Link.PrimaryListen, logger)
	if err != nil {
		log.Fatalf("Failed to open primary link: %v", err)
	}
	var secondary wire.Channel
	if cfg.Link.SecondaryTarget != "" {
		udpSecondary, err := transport.NewUDPSecondary(cfg.Link.SecondaryTarget)
		if err != nil {
			log.Fatalf("Failed to open secondary link: %v", err)
		}
		defer udpSecondary.Close()
		secondary = udpSecondary
	}
	logger.Info("links open",
		"primary", cfg.Link.PrimaryListen,
		"secondary", orNone(cfg.Link.SecondaryTarget))

	// Step 4: Build the core components.
	registry := vehicle.NewRegistry()
	hub := events.NewHub(events.Config{
		BufferSize:        cfg.Events.BufferSize,
		HeartbeatInterval: cfg.Events.HeartbeatInterval,
	})
	arbiter := link.NewArbiter(primary, secondary, registry, link.ArbiterConfig{
		SecondaryRepeat:       cfg.Link.SecondaryRepeat,
		SecondaryRepeatDelay:  cfg.Link.SecondaryRepeatDelay,
		SecondaryHealthWindow: cfg.Link.SecondaryHealthWindow,
		ProbeInterval:         cfg.Link.ProbeInterval,
	}, logger)
	engine := mission.NewEngine(arbiter, registry, hub, mission.Config{
		MaxConcurrent: int64(cfg.Mission.MaxConcurrentUploads),
		SlotTimeout:   cfg.Mission.SlotTimeout,
		UploadTimeout: cfg.Mission.UploadTimeout,
		WaypointDelay: cfg.Mission.WaypointDelay,
		ClearSettle:   cfg.Mission.ClearSettle,
	}, logger)
	controller := command.NewController(arbiter, registry, engine, auditLogger, hub,
		command.Config{PendingWindow: cfg.API.PendingWindow}, logger)
	monitor := safety.NewMonitor(registry, controller, hub, safety.Thresholds{
		BatteryWarning:   cfg.Safety.BatteryWarning,
		BatteryCritical:  cfg.Safety.BatteryCritical,
		BatteryEmergency: cfg.Safety.BatteryEmergency,
		CommTimeout:      cfg.Safety.CommTimeout,
		MinSatellites:    cfg.Safety.MinSatellites,
		MaxAltitude:      cfg.Safety.MaxAltitudeM,
		MinAltitude:      cfg.Safety.MinAltitudeM,
		MaxGroundSpeed:   cfg.Safety.MaxGroundSpeed,
		MaxAttitude:      cfg.Safety.MaxAttitudeRad,
		MissionTimeout:   cfg.Safety.MissionTimeout,
	}, cfg.Safety.AlertCooldown, cfg.Safety.CheckInterval, logger)
	loop := link.NewLoop(primary, arbiter, registry, engine, hub, link.LoopConfig{
		PollTimeout:   cfg.Link.PollTimeout,
		ConnTimeout:   cfg.Link.ConnTimeout,
		SweepInterval: cfg.Link.SweepInterval,
	}, logger)
	logger.Info("core components initialized")

	// Step 5: Start the background workers.
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	go arbiter.RunProbe(ctx)
	go monitor.Run(ctx)
	logger.Info("receive loop, probe, and safety monitor running")

	// Step 6: Create the API server.
	middleware, err := buildAuth(cfg)
	if err != nil {
		log.Fatalf("Failed to configure authentication: %v", err)
	}
	server := api.NewServer(hub, controller, registry, monitor, middleware,
		cfg.API.ReadTimeout, cfg.API.WriteTimeout, 120*time.Second)

	// Step 7: Start the HTTP server.
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(cfg.Listen); err != nil {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()
	logger.Info("station started", "listen", cfg.Listen)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("signal received, shutting down", "signal", sig.String())
	case err := <-serverErr:
		logger.Error("server error", "error", err)
	}

	// Graceful shutdown: stop intake first, then outbound surfaces.
	cancel()
	_ = primary.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("error stopping HTTP server", "error", err)
	}
	hub.Stop()
	if err := auditLogger.Close(); err != nil {
		logger.Error("error closing audit logger", "error", err)
	}
	logger.Info("shutdown complete")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func buildAuth(cfg *config.Config) (*auth.Middleware, error) {
	switch {
	case cfg.API.JWTSecret != "":
		verifier, err := auth.NewVerifier(auth.VerifierConfig{
			Algorithm: "HS256",
			SecretKey: cfg.API.JWTSecret,
		})
		if err != nil {
			return nil, err
		}
		return auth.NewMiddleware(verifier), nil
	case cfg.API.JWKSPath != "":
		pemData, err := os.ReadFile(cfg.API.JWKSPath)
		if err != nil {
			return nil, fmt.Errorf("read public key: %w", err)
		}
		verifier, err := auth.NewVerifier(auth.VerifierConfig{
			Algorithm:    "RS256",
			PublicKeyPEM: string(pemData),
		})
		if err != nil {
			return nil, err
		}
		return auth.NewMiddleware(verifier), nil
	default:
		// Closed-network deployment, no token verification.
		return auth.NewMiddleware(nil), nil
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
