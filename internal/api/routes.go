//
//
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ground-control/gcs/internal/auth"
)

// RegisterRoutes registers all v1 endpoints.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	apiV1 := "/api/v1"

	// Health endpoint (no auth required).
	mux.HandleFunc(apiV1+"/health", s.handleHealth)

	mux.HandleFunc(apiV1+"/capabilities", s.protect(auth.ScopeRead, s.handleCapabilities))
	mux.HandleFunc(apiV1+"/vehicles", s.protect(auth.ScopeRead, s.handleVehicles))
	mux.HandleFunc(apiV1+"/vehicles/", s.handleVehicleEndpoints)
	mux.HandleFunc(apiV1+"/emergency", s.protect(auth.ScopeControl, s.handleEmergency))
	mux.HandleFunc(apiV1+"/telemetry", s.protect(auth.ScopeTelemetry, s.handleTelemetry))
	mux.HandleFunc(apiV1+"/ws", s.protect(auth.ScopeTelemetry, s.handleWS))
}

// protect wraps a handler with authentication and a scope requirement.
func (s *Server) protect(scope string, h http.HandlerFunc) http.HandlerFunc {
	if s.authMiddleware == nil {
		return h
	}
	return s.authMiddleware.RequireAuth(s.authMiddleware.RequireScope(scope)(h))
}

// handleCapabilities handles GET /capabilities.
func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"telemetry": []string{"sse", "websocket"},
		"commands":  []string{"http-json"},
		"missions":  []string{"waypoints", "mission"},
		"version":   "1.0.0",
	})
}

// handleVehicles handles GET /vehicles.
func (s *Server) handleVehicles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}
	if s.vehicles == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Vehicle registry not available", nil)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"vehicles": s.vehicles.Snapshots(time.Now()),
	})
}

// handleVehicleEndpoints routes /vehicles/{id} and its sub-resources.
func (s *Server) handleVehicleEndpoints(w http.ResponseWriter, r *http.Request) {
	vehicleID, action, ok := parseVehiclePath(r.URL.Path)
	if !ok {
		WriteError(w, http.StatusBadRequest, "INVALID_RANGE",
			"Vehicle id must be numeric", nil)
		return
	}

	switch action {
	case "":
		s.protect(auth.ScopeRead, func(w http.ResponseWriter, r *http.Request) {
			s.handleVehicleByID(w, r, vehicleID)
		})(w, r)
	case "alerts":
		s.protect(auth.ScopeRead, func(w http.ResponseWriter, r *http.Request) {
			s.handleVehicleAlerts(w, r, vehicleID)
		})(w, r)
	default:
		s.protect(auth.ScopeControl, func(w http.ResponseWriter, r *http.Request) {
			s.handleVehicleCommand(w, r, vehicleID, action)
		})(w, r)
	}
}

// handleVehicleByID handles GET /vehicles/{id}.
func (s *Server) handleVehicleByID(w http.ResponseWriter, r *http.Request, vehicleID int) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	st, found := s.vehicles.Lookup(vehicleID)
	if !found {
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "Vehicle not found", nil)
		return
	}
	WriteSuccess(w, st.Snapshot(time.Now()))
}

// handleVehicleAlerts handles GET /vehicles/{id}/alerts.
func (s *Server) handleVehicleAlerts(w http.ResponseWriter, r *http.Request, vehicleID int) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}
	if s.alerts == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Safety monitor not available", nil)
		return
	}

	WriteSuccess(w, map[string]interface{}{
		"alerts": s.alerts.History(vehicleID),
	})
}

// handleVehicleCommand handles POST /vehicles/{id}/{action}.
func (s *Server) handleVehicleCommand(w http.ResponseWriter, r *http.Request, vehicleID int, action string) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only POST method is allowed", nil)
		return
	}
	if s.commands == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Command service not available", nil)
		return
	}

	ctx := r.Context()
	var err error
	var data interface{}

	switch action {
	case "arm":
		err = s.commands.Arm(ctx, vehicleID)
	case "disarm":
		err = s.commands.Disarm(ctx, vehicleID)
	case "land":
		err = s.commands.Land(ctx, vehicleID)
	case "rtl":
		err = s.commands.ReturnToLaunch(ctx, vehicleID)
	case "brake":
		err = s.commands.Brake(ctx, vehicleID)
	case "mode":
		var req struct {
			Mode string `json:"mode"`
		}
		if !decodeStrict(w, r, &req) {
			return
		}
		err = s.commands.SetMode(ctx, vehicleID, req.Mode)
		data = map[string]string{"mode": req.Mode}
	case "takeoff":
		var req struct {
			AltitudeM float64 `json:"altitudeM"`
		}
		if !decodeStrict(w, r, &req) {
			return
		}
		if req.AltitudeM <= 0 {
			WriteError(w, http.StatusBadRequest, "INVALID_RANGE",
				"Takeoff altitude must be positive", nil)
			return
		}
		err = s.commands.Takeoff(ctx, vehicleID, req.AltitudeM)
		data = map[string]float64{"altitudeM": req.AltitudeM}
	case "goto":
		var req struct {
			Lat       float64 `json:"lat"`
			Lon       float64 `json:"lon"`
			AltitudeM float64 `json:"altitudeM"`
		}
		if !decodeStrict(w, r, &req) {
			return
		}
		if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
			WriteError(w, http.StatusBadRequest, "INVALID_RANGE",
				"Coordinate is outside the valid range", nil)
			return
		}
		err = s.commands.Goto(ctx, vehicleID, req.Lat, req.Lon, req.AltitudeM)
	case "mission/load":
		var req struct {
			Path string `json:"path"`
		}
		if !decodeStrict(w, r, &req) {
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
				"Mission file path is required", nil)
			return
		}
		err = s.commands.LoadMission(ctx, vehicleID, req.Path)
		data = map[string]string{"status": "uploading"}
	case "mission/start":
		err = s.commands.StartMission(ctx, vehicleID)
	case "mission/pause":
		err = s.commands.PauseMission(ctx, vehicleID)
	case "mission/resume":
		var req struct {
			FromWaypoint *int `json:"fromWaypoint"`
		}
		if !decodeOptional(w, r, &req) {
			return
		}
		if req.FromWaypoint != nil {
			err = s.commands.ResumeMissionFromWaypoint(ctx, vehicleID, *req.FromWaypoint)
		} else {
			err = s.commands.ResumeMission(ctx, vehicleID)
		}
	case "mission/abort":
		var req struct {
			Reason string `json:"reason"`
		}
		if !decodeOptional(w, r, &req) {
			return
		}
		if req.Reason == "" {
			req.Reason = "operator abort"
		}
		err = s.commands.AbortMission(ctx, vehicleID, req.Reason)
	default:
		WriteError(w, http.StatusNotFound, "NOT_FOUND",
			fmt.Sprintf("Unknown action %q", action), nil)
		return
	}

	if err != nil {
		writeAPIError(w, err)
		return
	}
	if data == nil {
		data = map[string]string{"status": "accepted"}
	}
	WriteSuccess(w, data)
}

// handleEmergency handles POST /emergency.
func (s *Server) handleEmergency(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only POST method is allowed", nil)
		return
	}
	if s.commands == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Command service not available", nil)
		return
	}

	var req struct {
		Action string `json:"action"`
		Scope  string `json:"scope"`
	}
	if !decodeStrict(w, r, &req) {
		return
	}
	if req.Scope == "" {
		req.Scope = "ALL"
	}

	if err := s.commands.Emergency(r.Context(), req.Action, req.Scope); err != nil {
		writeAPIError(w, err)
		return
	}
	WriteSuccess(w, map[string]string{"action": req.Action, "scope": req.Scope})
}

// handleTelemetry handles GET /telemetry (SSE).
func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}
	if s.hub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Telemetry service not available", nil)
		return
	}

	if err := s.hub.Subscribe(r.Context(), w, r); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL",
			"Failed to subscribe to telemetry stream", nil)
	}
}

// handleWS handles GET /ws (WebSocket telemetry).
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		WriteError(w, http.StatusServiceUnavailable, "UNAVAILABLE",
			"Telemetry service not available", nil)
		return
	}
	// The upgrader writes its own error response on failure.
	_ = s.hub.ServeWS(w, r)
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			"Only GET method is allowed", nil)
		return
	}

	uptime := 0.0
	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Seconds()
	}

	subsystems := map[string]bool{
		"telemetry": s.hub != nil,
		"commands":  s.commands != nil,
		"vehicles":  s.vehicles != nil,
		"safety":    s.alerts != nil,
	}
	overallStatus := "ok"
	for _, up := range subsystems {
		if !up {
			overallStatus = "degraded"
		}
	}

	health := map[string]interface{}{
		"status":     overallStatus,
		"uptimeSec":  uptime,
		"version":    "1.0.0",
		"subsystems": subsystems,
	}
	if overallStatus == "ok" {
		WriteSuccess(w, health)
	} else {
		WriteError(w, http.StatusServiceUnavailable, "SERVICE_DEGRADED",
			"One or more subsystems are unavailable", health)
	}
}

// parseVehiclePath splits /api/v1/vehicles/{id}[/{action...}].
func parseVehiclePath(path string) (vehicleID int, action string, ok bool) {
	prefix := "/api/v1/vehicles/"
	if !strings.HasPrefix(path, prefix) {
		return 0, "", false
	}
	rest := strings.TrimPrefix(path, prefix)
	idPart, action, _ := strings.Cut(rest, "/")
	id, err := strconv.Atoi(idPart)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, strings.TrimSuffix(action, "/"), true
}

// decodeStrict decodes a required JSON body, rejecting unknown fields
// and trailing data. It writes the error response itself and reports
// whether decoding succeeded.
func decodeStrict(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
			"Malformed JSON or unknown fields", nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
			"Trailing data after JSON object", nil)
		return false
	}
	return true
}

// decodeOptional is decodeStrict for endpoints where an empty body is
// allowed.
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return true
		}
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
			"Malformed JSON or unknown fields", nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		WriteError(w, http.StatusBadRequest, "BAD_REQUEST",
			"Trailing data after JSON object", nil)
		return false
	}
	return true
}
