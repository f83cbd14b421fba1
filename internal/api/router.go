package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Per-device control
		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleStatus)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/start", s.handleStart)
				r.Post("/stop", s.handleStop)
				r.Post("/pause", s.handlePause)
				r.Post("/resume", s.handleResume)
				r.Post("/connect", s.handleConnect)
				r.Post("/disconnect", s.handleDisconnect)
				r.Post("/screenshot", s.handleScreenshot)
				r.Get("/runs", s.handleDeviceRuns)
			})
		})

		// Fleet-wide control
		r.Route("/fleet", func(r chi.Router) {
			r.Post("/start", s.handleStartAll)
			r.Post("/stop", s.handleStopAll)
			r.Post("/pause", s.handlePauseAll)
			r.Post("/resume", s.handleResumeAll)
		})

		// Automation configurations
		r.Route("/configs", func(r chi.Router) {
			r.Get("/", s.handleListConfigs)
			r.Post("/reload", s.handleReload)
		})

		// Run history
		r.Get("/runs", s.handleRuns)

		// Real-time run events
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
