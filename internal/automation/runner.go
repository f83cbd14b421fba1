package automation

import (
	"context"
	"time"

	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
)

// StepObserver receives the outcome of every executed step. Skipped
// (disabled) steps are not reported. Implementations must not block.
type StepObserver interface {
	StepFinished(deviceID, configName, stepName string, success bool, durationMS int64)
}

// Gate is checked at every step boundary. Wait blocks while the worker
// is paused; it returns nil to proceed or ErrStopRequested to unwind
// the run. A nil Gate never blocks.
type Gate interface {
	Wait(ctx context.Context) error
}

// RunResult is the outcome of one configuration run on one device.
type RunResult struct {
	Status         RunStatus
	FailedStep     string
	StepsTotal     int
	StepsCompleted int
	StepsSkipped   int

	// NextConfig is set only on a fully successful run of a
	// configuration with a chain pointer. A stopped run never chains.
	NextConfig string
}

// Runner executes whole configurations: initialize hook, ordered steps
// with enable gating and fail-fast, finalize hook (always), and the
// chain instruction for the caller.
type Runner struct {
	registry  *Registry
	exec      *Executor
	devices   DeviceOps
	templates TemplateStore
	log       *logging.Logger
	observer  StepObserver
}

// SetStepObserver registers an optional per-step outcome sink.
func (r *Runner) SetStepObserver(obs StepObserver) {
	r.observer = obs
}

// NewRunner wires a runner to its collaborators.
func NewRunner(registry *Registry, exec *Executor, devices DeviceOps, templates TemplateStore, log *logging.Logger) *Runner {
	return &Runner{
		registry:  registry,
		exec:      exec,
		devices:   devices,
		templates: templates,
		log:       log,
	}
}

// Run executes cfg on one device end to end.
//
// Order: initialize (false aborts the run) -> enabled steps in declared
// order, stopping at the first failure -> finalize with the success
// flag, always, so cleanup is guaranteed. The gate is consulted before
// every step, never mid-action.
func (r *Runner) Run(ctx context.Context, deviceID string, cfg *Configuration, gate Gate) RunResult {
	log := r.log.ForDevice(deviceID)
	log.Info("run started", "config", cfg.Name, "steps", len(cfg.Steps))

	res := RunResult{StepsTotal: len(cfg.Steps)}
	success := true
	stopped := false

	if cfg.Initialize != "" {
		if !r.invoke(ctx, deviceID, cfg, cfg.Initialize, nil, false, log) {
			log.Warn("initialize failed, aborting run", "config", cfg.Name)
			success = false
			res.FailedStep = "initialize"
		}
	}

	if success {
		success, stopped, res = r.runSteps(ctx, deviceID, cfg, gate, res, log)
	}

	if cfg.Finalize != "" {
		// Finalize outcome is logged but cannot rescue a failed run.
		if !r.invoke(ctx, deviceID, cfg, cfg.Finalize, nil, success && !stopped, log) {
			log.Warn("finalize reported failure", "config", cfg.Name)
		}
	}

	switch {
	case stopped:
		res.Status = StatusStopped
	case success:
		res.Status = StatusCompleted
		res.NextConfig = cfg.NextConfig
	default:
		res.Status = StatusFailed
	}

	log.Info("run finished",
		"config", cfg.Name,
		"status", string(res.Status),
		"completed", res.StepsCompleted,
		"skipped", res.StepsSkipped,
	)
	return res
}

// runSteps iterates the step list under the gate.
func (r *Runner) runSteps(ctx context.Context, deviceID string, cfg *Configuration, gate Gate, res RunResult, log *logging.Logger) (bool, bool, RunResult) {
	for _, step := range cfg.Steps {
		if gate != nil {
			if err := gate.Wait(ctx); err != nil {
				log.Info("run stopping at step boundary", "config", cfg.Name, "step", step.Name)
				return true, true, res
			}
		}
		if ctx.Err() != nil {
			return true, true, res
		}

		if !cfg.StepEnabled(step.Name) {
			log.Info("step skipped (disabled)", "config", cfg.Name, "step", step.Name)
			res.StepsSkipped++
			continue
		}

		log.Info("step started", "config", cfg.Name, "step", step.Name, "description", step.Description)
		start := time.Now()
		ok := r.invoke(ctx, deviceID, cfg, step.Action, step.Params, false, log)
		if r.observer != nil {
			r.observer.StepFinished(deviceID, cfg.Name, step.Name, ok, time.Since(start).Milliseconds())
		}
		if !ok {
			log.Warn("step failed, aborting remaining steps", "config", cfg.Name, "step", step.Name)
			res.FailedStep = step.Name
			return false, false, res
		}
		res.StepsCompleted++
	}
	return true, false, res
}

// invoke resolves an action name and runs it. Named action lists in the
// configuration shadow registered handlers. Panics in handlers are
// treated as step failure, never crash the worker.
func (r *Runner) invoke(ctx context.Context, deviceID string, cfg *Configuration, name string, params Params, success bool, log *logging.Logger) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("step handler panic recovered", "handler", name, "panic", rec)
			ok = false
		}
	}()

	if actions, exists := cfg.Actions[name]; exists {
		return r.exec.RunList(ctx, deviceID, actions, cfg.Settings)
	}

	handler, exists := r.registry.Resolve(name)
	if !exists {
		log.Error("step handler not found", "handler", name)
		return false
	}

	sc := &StepContext{
		DeviceID:  deviceID,
		Devices:   r.devices,
		Templates: r.templates,
		Exec:      r.exec,
		Config:    cfg,
		Params:    params,
		Success:   success,
		Log:       log,
	}
	return handler(ctx, sc)
}
