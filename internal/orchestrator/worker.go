package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/droidpilot/droidpilot/internal/automation"
	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
)

// maxChainDepth bounds next_config chains so a configuration cycle
// cannot run forever.
const maxChainDepth = 8

// RunObserver receives run lifecycle events. Implementations must be
// best-effort and non-blocking; a slow observer delays the worker.
type RunObserver interface {
	RunStarted(deviceID, config string, trigger automation.Trigger)
	RunFinished(rec automation.RunRecord)
}

// startRequest is one queued trigger.
type startRequest struct {
	config  string
	trigger automation.Trigger
}

// Worker is the per-device control loop. It serializes runs for its
// device: at most one configuration run (including its chain) is in
// flight at a time, and a trigger arriving during a run is dropped
// with ErrScheduleConflict.
type Worker struct {
	deviceID string
	control  *Control
	runner   *automation.Runner
	configs  *ConfigSet
	log      *logging.Logger

	repo     automation.Repository
	observer RunObserver

	busy    atomic.Bool
	startCh chan startRequest
}

// NewWorker creates a worker bound to one device.
func NewWorker(deviceID string, runner *automation.Runner, configs *ConfigSet, log *logging.Logger) *Worker {
	return &Worker{
		deviceID: deviceID,
		control:  NewControl(),
		runner:   runner,
		configs:  configs,
		log:      log.ForDevice(deviceID),
		startCh:  make(chan startRequest, 1),
	}
}

// SetRepository enables run history persistence.
func (w *Worker) SetRepository(repo automation.Repository) {
	w.repo = repo
}

// SetObserver enables run lifecycle notifications.
func (w *Worker) SetObserver(obs RunObserver) {
	w.observer = obs
}

// Control exposes the worker's run-control state for commands and
// status queries.
func (w *Worker) Control() *Control {
	return w.control
}

// Start queues a run trigger. Exactly one run may be in flight; a
// trigger during a run returns ErrScheduleConflict and is not queued.
func (w *Worker) Start(config string, trigger automation.Trigger) error {
	if !w.busy.CompareAndSwap(false, true) {
		w.log.Info("trigger dropped, run already in flight",
			"config", config, "trigger", string(trigger))
		return ErrScheduleConflict
	}
	w.startCh <- startRequest{config: config, trigger: trigger}
	return nil
}

// Stop requests the in-flight run unwind at its next step boundary.
// With no run in flight there is nothing to unwind and the request is
// discarded, so an idle stop can never bleed into a later start.
func (w *Worker) Stop() {
	if !w.busy.Load() {
		return
	}
	w.control.Stop()
}

// Run is the worker loop. It blocks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.startCh:
			w.control.setState(StateRunning)
			w.runChain(ctx, req)
			w.control.clearStop()
			w.control.setState(StateIdle)
			w.busy.Store(false)
		}
	}
}

// runChain runs a configuration and follows its next_config pointers.
// A stopped or failed run breaks the chain; the depth limit breaks
// cycles.
func (w *Worker) runChain(ctx context.Context, req startRequest) {
	name := req.config
	trigger := req.trigger

	for depth := 0; depth < maxChainDepth; depth++ {
		cfg, err := w.configs.Get(name)
		if err != nil {
			w.log.Error("run aborted, configuration unavailable", "config", name, "error", err)
			return
		}

		if w.observer != nil {
			w.observer.RunStarted(w.deviceID, cfg.Name, trigger)
		}

		started := time.Now()
		res := w.runner.Run(ctx, w.deviceID, cfg, w.control)
		w.record(cfg.Name, trigger, started, res)

		if res.NextConfig == "" {
			return
		}
		name = res.NextConfig
		trigger = automation.TriggerChained
	}

	w.log.Warn("configuration chain depth limit reached", "limit", maxChainDepth)
}

// record persists and publishes a finished run. Persistence failures
// are logged, never fatal to the worker.
func (w *Worker) record(configName string, trigger automation.Trigger, started time.Time, res automation.RunResult) {
	completed := time.Now()
	rec := automation.RunRecord{
		ID:             uuid.NewString(),
		DeviceID:       w.deviceID,
		ConfigName:     configName,
		Trigger:        trigger,
		Status:         res.Status,
		StartedAt:      started,
		CompletedAt:    &completed,
		StepsTotal:     res.StepsTotal,
		StepsCompleted: res.StepsCompleted,
		StepsSkipped:   res.StepsSkipped,
		FailedStep:     res.FailedStep,
		DurationMS:     completed.Sub(started).Milliseconds(),
	}
	if res.FailedStep != "" {
		rec.FailureMessage = fmt.Sprintf("step %q failed", res.FailedStep)
	}

	if w.repo != nil {
		// Persist even when the run ended because ctx was canceled.
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.repo.Save(saveCtx, &rec); err != nil {
			w.log.Error("saving run record failed", "run", rec.ID, "error", err)
		}
	}
	if w.observer != nil {
		w.observer.RunFinished(rec)
	}
}
