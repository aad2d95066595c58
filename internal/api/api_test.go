package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ground-control/gcs/internal/command"
	"github.com/ground-control/gcs/internal/safety"
	"github.com/ground-control/gcs/internal/vehicle"
)

type commandCall struct {
	name      string
	vehicleID int
	args      []interface{}
}

type fakeCommands struct {
	calls []commandCall
	err   error
}

func (f *fakeCommands) record(name string, vehicleID int, args ...interface{}) error {
	f.calls = append(f.calls, commandCall{name, vehicleID, args})
	return f.err
}

func (f *fakeCommands) Arm(_ context.Context, id int) error    { return f.record("arm", id) }
func (f *fakeCommands) Disarm(_ context.Context, id int) error { return f.record("disarm", id) }
func (f *fakeCommands) SetMode(_ context.Context, id int, mode string) error {
	return f.record("mode", id, mode)
}
func (f *fakeCommands) Takeoff(_ context.Context, id int, alt float64) error {
	return f.record("takeoff", id, alt)
}
func (f *fakeCommands) Land(_ context.Context, id int) error  { return f.record("land", id) }
func (f *fakeCommands) Brake(_ context.Context, id int) error { return f.record("brake", id) }
func (f *fakeCommands) ReturnToLaunch(_ context.Context, id int) error {
	return f.record("rtl", id)
}
func (f *fakeCommands) Goto(_ context.Context, id int, lat, lon, alt float64) error {
	return f.record("goto", id, lat, lon, alt)
}
func (f *fakeCommands) LoadMission(_ context.Context, id int, path string) error {
	return f.record("mission/load", id, path)
}
func (f *fakeCommands) StartMission(_ context.Context, id int) error {
	return f.record("mission/start", id)
}
func (f *fakeCommands) PauseMission(_ context.Context, id int) error {
	return f.record("mission/pause", id)
}
func (f *fakeCommands) ResumeMission(_ context.Context, id int) error {
	return f.record("mission/resume", id)
}
func (f *fakeCommands) ResumeMissionFromWaypoint(_ context.Context, id, from int) error {
	return f.record("mission/resume-from", id, from)
}
func (f *fakeCommands) AbortMission(_ context.Context, id int, reason string) error {
	return f.record("mission/abort", id, reason)
}
func (f *fakeCommands) Emergency(_ context.Context, action, scope string) error {
	return f.record("emergency", 0, action, scope)
}

type fakeHub struct{}

func (fakeHub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	return nil
}

func (fakeHub) ServeWS(w http.ResponseWriter, r *http.Request) error { return nil }

type fakeAlerts struct {
	history []safety.Alert
}

func (f *fakeAlerts) History(int) []safety.Alert { return f.history }

func testServer(t *testing.T) (*Server, *fakeCommands, *vehicle.Registry) {
	t.Helper()
	registry := vehicle.NewRegistry()
	commands := &fakeCommands{}
	srv := NewServer(fakeHub{}, commands, registry, &fakeAlerts{},
		nil, time.Second, time.Second, time.Second)
	return srv, commands, registry
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad envelope %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealthOK(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Result != "ok" || resp.CorrelationID == "" {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestVehicleListAndDetail(t *testing.T) {
	srv, _, registry := testServer(t)
	st, _ := registry.Ensure(7)
	st.Touch(time.Now())

	rec := doRequest(t, srv, "GET", "/api/v1/vehicles", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"id":7`) {
		t.Errorf("list body = %s", rec.Body.String())
	}

	rec = doRequest(t, srv, "GET", "/api/v1/vehicles/7", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d", rec.Code)
	}

	rec = doRequest(t, srv, "GET", "/api/v1/vehicles/99", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing vehicle status = %d, want 404", rec.Code)
	}
}

func TestCommandRouting(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCall string
		wantArgs []interface{}
	}{
		{"arm", "/api/v1/vehicles/1/arm", "", "arm", nil},
		{"disarm", "/api/v1/vehicles/1/disarm", "", "disarm", nil},
		{"mode", "/api/v1/vehicles/1/mode", `{"mode":"LOITER"}`, "mode", []interface{}{"LOITER"}},
		{"takeoff", "/api/v1/vehicles/1/takeoff", `{"altitudeM":30}`, "takeoff", []interface{}{30.0}},
		{"goto", "/api/v1/vehicles/1/goto", `{"lat":47.1,"lon":9.2,"altitudeM":25}`, "goto", []interface{}{47.1, 9.2, 25.0}},
		{"land", "/api/v1/vehicles/1/land", "", "land", nil},
		{"rtl", "/api/v1/vehicles/1/rtl", "", "rtl", nil},
		{"brake", "/api/v1/vehicles/1/brake", "", "brake", nil},
		{"load", "/api/v1/vehicles/1/mission/load", `{"path":"survey.waypoints"}`, "mission/load", []interface{}{"survey.waypoints"}},
		{"start", "/api/v1/vehicles/1/mission/start", "", "mission/start", nil},
		{"pause", "/api/v1/vehicles/1/mission/pause", "", "mission/pause", nil},
		{"resume", "/api/v1/vehicles/1/mission/resume", "", "mission/resume", nil},
		{"resume from", "/api/v1/vehicles/1/mission/resume", `{"fromWaypoint":4}`, "mission/resume-from", []interface{}{4}},
		{"abort", "/api/v1/vehicles/1/mission/abort", `{"reason":"weather"}`, "mission/abort", []interface{}{"weather"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, commands, _ := testServer(t)
			rec := doRequest(t, srv, "POST", tt.path, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			if len(commands.calls) != 1 {
				t.Fatalf("calls = %+v", commands.calls)
			}
			call := commands.calls[0]
			if call.name != tt.wantCall || call.vehicleID != 1 {
				t.Errorf("call = %+v, want %s on vehicle 1", call, tt.wantCall)
			}
			for i, want := range tt.wantArgs {
				if call.args[i] != want {
					t.Errorf("arg %d = %v, want %v", i, call.args[i], want)
				}
			}
		})
	}
}

func TestCommandErrorsMapToEnvelope(t *testing.T) {
	srv, commands, _ := testServer(t)
	commands.err = command.ErrVehicleUnknown

	rec := doRequest(t, srv, "POST", "/api/v1/vehicles/3/arm", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	resp := decodeEnvelope(t, rec)
	if resp.Result != "error" || resp.Code != "NOT_FOUND" {
		t.Errorf("envelope = %+v", resp)
	}
}

func TestStrictDecodeRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"unknown field", "/api/v1/vehicles/1/takeoff", `{"altitudeM":30,"bogus":1}`},
		{"trailing data", "/api/v1/vehicles/1/mode", `{"mode":"AUTO"}{"mode":"RTL"}`},
		{"malformed", "/api/v1/vehicles/1/goto", `{"lat":`},
		{"zero altitude", "/api/v1/vehicles/1/takeoff", `{"altitudeM":0}`},
		{"latitude out of range", "/api/v1/vehicles/1/goto", `{"lat":91,"lon":0,"altitudeM":10}`},
		{"empty mission path", "/api/v1/vehicles/1/mission/load", `{"path":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, commands, _ := testServer(t)
			rec := doRequest(t, srv, "POST", tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
			if len(commands.calls) != 0 {
				t.Errorf("command dispatched on bad body: %+v", commands.calls)
			}
		})
	}
}

func TestEmergencyDefaultsToAll(t *testing.T) {
	srv, commands, _ := testServer(t)

	rec := doRequest(t, srv, "POST", "/api/v1/emergency", `{"action":"rtl"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(commands.calls) != 1 {
		t.Fatalf("calls = %+v", commands.calls)
	}
	if commands.calls[0].args[0] != "rtl" || commands.calls[0].args[1] != "ALL" {
		t.Errorf("emergency args = %v", commands.calls[0].args)
	}
}

func TestVehicleAlertsEndpoint(t *testing.T) {
	registry := vehicle.NewRegistry()
	alerts := &fakeAlerts{history: []safety.Alert{{
		VehicleID: 2, Kind: safety.KindLowBattery, Severity: safety.SeverityWarning,
	}}}
	srv := NewServer(fakeHub{}, &fakeCommands{}, registry, alerts,
		nil, time.Second, time.Second, time.Second)

	rec := doRequest(t, srv, "GET", "/api/v1/vehicles/2/alerts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), safety.KindLowBattery) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestInvalidVehicleID(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doRequest(t, srv, "GET", "/api/v1/vehicles/abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := testServer(t)
	rec := doRequest(t, srv, "DELETE", "/api/v1/vehicles", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
	rec = doRequest(t, srv, "GET", "/api/v1/vehicles/1/arm", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("arm GET status = %d, want 405", rec.Code)
	}
}
