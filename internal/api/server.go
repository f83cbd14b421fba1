package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/droidpilot/droidpilot/internal/automation"
	"github.com/droidpilot/droidpilot/internal/infrastructure/config"
	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
	"github.com/droidpilot/droidpilot/internal/orchestrator"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Controller is the fleet control surface the API exposes. The
// orchestrator implements it; tests substitute a fake.
type Controller interface {
	Start(deviceID, config string, trigger automation.Trigger) error
	StartAll(config string, trigger automation.Trigger)
	Stop(deviceID string) error
	StopAll()
	Pause(deviceID string) error
	PauseAll()
	Resume(deviceID string) error
	ResumeAll()
	Reload() error
	Connect(ctx context.Context, deviceID string) error
	Disconnect(ctx context.Context, deviceID string) error
	Screenshot(ctx context.Context, deviceID string) (string, error)
	Status() []orchestrator.WorkerStatus
	Configs() []string
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	WS      config.WebSocketConfig
	Logger  *logging.Logger
	Control Controller
	Runs    automation.Repository // optional: run history endpoints 404 without it
	Hub     *Hub                  // optional: inject a hub shared with the notifier
	Version string
}

// Server is the HTTP API and WebSocket server for the fleet engine.
//
// It is created with New() and started with Start(); all methods are
// safe for concurrent use.
type Server struct {
	cfg     config.APIConfig
	wsCfg   config.WebSocketConfig
	logger  *logging.Logger
	control Controller
	runs    automation.Repository
	version string

	server      *http.Server
	hub         *Hub
	externalHub bool
	cancel      context.CancelFunc
}

// New creates an API server. The server does not listen until Start().
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Control == nil {
		return nil, fmt.Errorf("controller is required")
	}

	s := &Server{
		cfg:     deps.Config,
		wsCfg:   deps.WS,
		logger:  deps.Logger,
		control: deps.Control,
		runs:    deps.Runs,
		version: deps.Version,
	}
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}
	return s, nil
}

// Hub returns the server's WebSocket hub, creating it if needed, so
// the notifier can broadcast run events before Start() is called.
func (s *Server) Hub() *Hub {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.hub
}

// Start builds the router and begins listening in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight
// requests up to the shutdown timeout.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
