package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/droidpilot/droidpilot/internal/automation"
	"github.com/droidpilot/droidpilot/internal/infrastructure/config"
	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
	"github.com/droidpilot/droidpilot/internal/orchestrator"
)

// fakeController records commands and returns scripted errors.
type fakeController struct {
	calls    []string
	startErr error
	started  struct {
		device, config string
		trigger        automation.Trigger
	}
}

func (f *fakeController) Start(deviceID, cfg string, trigger automation.Trigger) error {
	f.calls = append(f.calls, "start")
	f.started.device = deviceID
	f.started.config = cfg
	f.started.trigger = trigger
	return f.startErr
}

func (f *fakeController) StartAll(string, automation.Trigger) { f.calls = append(f.calls, "startAll") }
func (f *fakeController) Stop(string) error                   { f.calls = append(f.calls, "stop"); return nil }
func (f *fakeController) StopAll()                            { f.calls = append(f.calls, "stopAll") }
func (f *fakeController) Pause(string) error                  { f.calls = append(f.calls, "pause"); return nil }
func (f *fakeController) PauseAll()                           { f.calls = append(f.calls, "pauseAll") }
func (f *fakeController) Resume(string) error                 { f.calls = append(f.calls, "resume"); return nil }
func (f *fakeController) ResumeAll()                          { f.calls = append(f.calls, "resumeAll") }
func (f *fakeController) Reload() error                       { f.calls = append(f.calls, "reload"); return nil }

func (f *fakeController) Connect(context.Context, string) error    { return nil }
func (f *fakeController) Disconnect(context.Context, string) error { return nil }

func (f *fakeController) Screenshot(context.Context, string) (string, error) {
	return "/tmp/shots/emu1_20260315_090000.png", nil
}

func (f *fakeController) Status() []orchestrator.WorkerStatus {
	return []orchestrator.WorkerStatus{
		{DeviceID: "emu1", State: orchestrator.StateIdle},
	}
}

func (f *fakeController) Configs() []string { return []string{"cleanup", "daily"} }

type fakeRuns struct {
	records []automation.RunRecord
	device  string
	limit   int
}

func (f *fakeRuns) Save(context.Context, *automation.RunRecord) error { return nil }

func (f *fakeRuns) ListRecent(_ context.Context, deviceID string, limit int) ([]automation.RunRecord, error) {
	f.device = deviceID
	f.limit = limit
	return f.records, nil
}

func newTestServer(t *testing.T, control Controller, runs automation.Repository) *Server {
	t.Helper()
	s, err := New(Deps{
		Logger:  logging.Default(),
		Control: control,
		Runs:    runs,
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.hub = NewHub(config.WebSocketConfig{}, s.logger)
	return s
}

func doRequest(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeController{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["version"] != "test" {
		t.Errorf("version = %v, want test", body["version"])
	}
}

func TestStartDevice(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(t, ctrl, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/devices/emu1/start",
		[]byte(`{"config":"daily"}`))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body %s", rec.Code, rec.Body)
	}
	if ctrl.started.device != "emu1" || ctrl.started.config != "daily" {
		t.Errorf("started = %+v", ctrl.started)
	}
	if ctrl.started.trigger != automation.TriggerManual {
		t.Errorf("trigger = %s, want manual", ctrl.started.trigger)
	}
}

func TestStartWithoutBodyUsesDefault(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(t, ctrl, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/devices/emu1/start", nil)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if ctrl.started.config != "" {
		t.Errorf("config = %q, want empty (default)", ctrl.started.config)
	}
}

func TestStartErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown device", orchestrator.ErrUnknownDevice, http.StatusNotFound},
		{"run in flight", orchestrator.ErrScheduleConflict, http.StatusConflict},
		{"config missing", automation.ErrConfigNotFound, http.StatusNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakeController{startErr: tt.err}, nil)

			rec := doRequest(t, s, http.MethodPost, "/api/v1/devices/emu1/start", nil)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestInvalidBodyRejected(t *testing.T) {
	s := newTestServer(t, &fakeController{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/devices/emu1/start",
		[]byte(`{not json`))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestFleetCommands(t *testing.T) {
	ctrl := &fakeController{}
	s := newTestServer(t, ctrl, nil)

	for _, path := range []string{"start", "stop", "pause", "resume"} {
		rec := doRequest(t, s, http.MethodPost, "/api/v1/fleet/"+path, nil)
		if rec.Code != http.StatusOK && rec.Code != http.StatusAccepted {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}

	want := []string{"startAll", "stopAll", "pauseAll", "resumeAll"}
	for i, call := range want {
		if i >= len(ctrl.calls) || ctrl.calls[i] != call {
			t.Fatalf("calls = %v, want %v", ctrl.calls, want)
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeController{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/devices/", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Devices []orchestrator.WorkerStatus `json:"devices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Devices) != 1 || body.Devices[0].DeviceID != "emu1" {
		t.Errorf("devices = %+v", body.Devices)
	}
}

func TestRunsEndpoint(t *testing.T) {
	runs := &fakeRuns{records: []automation.RunRecord{{ID: "r1", DeviceID: "emu1"}}}
	s := newTestServer(t, &fakeController{}, runs)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/runs?device=emu1&limit=5", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if runs.device != "emu1" || runs.limit != 5 {
		t.Errorf("query forwarded as device=%q limit=%d", runs.device, runs.limit)
	}
}

func TestRunsEndpointWithoutRepository(t *testing.T) {
	s := newTestServer(t, &fakeController{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/runs", nil)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRunsEndpointRejectsBadLimit(t *testing.T) {
	runs := &fakeRuns{}
	s := newTestServer(t, &fakeController{}, runs)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/runs?limit=zero", nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestConfigsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeController{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/configs/", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Configs []string `json:"configs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Configs) != 2 {
		t.Errorf("configs = %v", body.Configs)
	}
}

func TestScreenshotEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeController{}, nil)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/devices/emu1/screenshot", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["path"] == "" {
		t.Error("screenshot path missing from response")
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, &fakeController{}, nil)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "given-id")
	rec = httptest.NewRecorder()
	s.buildRouter().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "given-id" {
		t.Errorf("X-Request-ID = %q, want given-id", got)
	}
}
