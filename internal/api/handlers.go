package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/droidpilot/droidpilot/internal/automation"
	"github.com/droidpilot/droidpilot/internal/device"
	"github.com/droidpilot/droidpilot/internal/orchestrator"
)

// defaultRunsLimit bounds run history queries without an explicit limit.
const defaultRunsLimit = 50

// startRequest is the body for run triggers. The config name is
// optional; an empty name runs the configured default.
type startRequest struct {
	Config string `json:"config"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": s.control.Status(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")

	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if err := s.control.Start(deviceID, req.Config, automation.TriggerManual); err != nil {
		s.writeControlError(w, deviceID, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"device": deviceID,
		"status": "started",
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.simpleControl(w, r, "stopping", s.control.Stop)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.simpleControl(w, r, "paused", s.control.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.simpleControl(w, r, "resumed", s.control.Resume)
}

// simpleControl executes a body-less per-device command.
func (s *Server) simpleControl(w http.ResponseWriter, r *http.Request, status string, op func(string) error) {
	deviceID := chi.URLParam(r, "id")
	if err := op(deviceID); err != nil {
		s.writeControlError(w, deviceID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"device": deviceID,
		"status": status,
	})
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if err := s.control.Connect(r.Context(), deviceID); err != nil {
		s.writeControlError(w, deviceID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"device": deviceID,
		"status": "connected",
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	if err := s.control.Disconnect(r.Context(), deviceID); err != nil {
		s.writeControlError(w, deviceID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"device": deviceID,
		"status": "disconnected",
	})
}

func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "id")
	path, err := s.control.Screenshot(r.Context(), deviceID)
	if err != nil {
		s.writeControlError(w, deviceID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"device": deviceID,
		"path":   path,
	})
}

func (s *Server) handleStartAll(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeBody(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.control.StartAll(req.Config, automation.TriggerManual)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleStopAll(w http.ResponseWriter, _ *http.Request) {
	s.control.StopAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
}

func (s *Server) handlePauseAll(w http.ResponseWriter, _ *http.Request) {
	s.control.PauseAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleResumeAll(w http.ResponseWriter, _ *http.Request) {
	s.control.ResumeAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (s *Server) handleListConfigs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"configs": s.control.Configs(),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, _ *http.Request) {
	if err := s.control.Reload(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "reloaded",
		"configs": s.control.Configs(),
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	s.listRuns(w, r, r.URL.Query().Get("device"))
}

func (s *Server) handleDeviceRuns(w http.ResponseWriter, r *http.Request) {
	s.listRuns(w, r, chi.URLParam(r, "id"))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request, deviceID string) {
	if s.runs == nil {
		writeNotFound(w, "run history is not enabled")
		return
	}

	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.runs.ListRecent(r.Context(), deviceID, limit)
	if err != nil {
		s.logger.Error("listing runs failed", "error", err)
		writeInternalError(w, "listing runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": records})
}

// writeControlError maps orchestrator errors onto HTTP statuses.
func (s *Server) writeControlError(w http.ResponseWriter, deviceID string, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownDevice),
		errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "unknown device: "+deviceID)
	case errors.Is(err, automation.ErrConfigNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, orchestrator.ErrScheduleConflict):
		writeError(w, http.StatusConflict, ErrCodeConflict, "a run is already in flight on "+deviceID)
	case errors.Is(err, device.ErrDeviceUnavailable):
		writeError(w, http.StatusBadGateway, ErrCodeDeviceUnavailable, err.Error())
	default:
		s.logger.Error("device command failed", "device", deviceID, "error", err)
		writeInternalError(w, "command failed")
	}
}

// decodeBody decodes an optional JSON body into v. An empty body is
// valid and leaves v at its zero value.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}
