package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/droidpilot/droidpilot/internal/automation"
	"github.com/droidpilot/droidpilot/internal/device"
	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
)

// WorkerStatus is one device's point-in-time view for status queries.
type WorkerStatus struct {
	DeviceID string        `json:"device_id"`
	Name     string        `json:"name"`
	State    RunState      `json:"state"`
	Device   device.Status `json:"device_status"`
}

// Orchestrator owns the device workers and fans operator commands out
// to one or all of them. Every command maps 1:1 to a method here, so
// the HTTP API and the MQTT command subscriber share one surface.
type Orchestrator struct {
	devices *device.Manager
	configs *ConfigSet
	workers map[string]*Worker
	log     *logging.Logger

	screenshotsDir string

	wg sync.WaitGroup
}

// New builds an orchestrator with one worker per registered device.
func New(devices *device.Manager, configs *ConfigSet, runner *automation.Runner, screenshotsDir string, log *logging.Logger) *Orchestrator {
	o := &Orchestrator{
		devices:        devices,
		configs:        configs,
		workers:        make(map[string]*Worker),
		log:            log,
		screenshotsDir: screenshotsDir,
	}
	for _, id := range devices.IDs() {
		o.workers[id] = NewWorker(id, runner, configs, log)
	}
	return o
}

// SetRepository enables run history persistence on every worker.
func (o *Orchestrator) SetRepository(repo automation.Repository) {
	for _, w := range o.workers {
		w.SetRepository(repo)
	}
}

// SetObserver enables run lifecycle notifications on every worker.
func (o *Orchestrator) SetObserver(obs RunObserver) {
	for _, w := range o.workers {
		w.SetObserver(obs)
	}
}

// Run starts all worker loops and blocks until ctx is canceled and the
// workers have drained.
func (o *Orchestrator) Run(ctx context.Context) {
	for _, w := range o.workers {
		o.wg.Add(1)
		go func(w *Worker) {
			defer o.wg.Done()
			w.Run(ctx)
		}(w)
	}
	<-ctx.Done()

	// Ask in-flight runs to unwind at their next step boundary.
	o.StopAll()
	o.wg.Wait()
}

// worker resolves a device ID to its worker.
func (o *Orchestrator) worker(deviceID string) (*Worker, error) {
	w, ok := o.workers[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	return w, nil
}

// Start triggers a run of the named configuration on one device.
// An empty config name runs the configured default.
func (o *Orchestrator) Start(deviceID, config string, trigger automation.Trigger) error {
	w, err := o.worker(deviceID)
	if err != nil {
		return err
	}
	return w.Start(config, trigger)
}

// StartAll triggers a run on every device. Devices already running are
// skipped; the skip is logged per device by the worker.
func (o *Orchestrator) StartAll(config string, trigger automation.Trigger) {
	for _, id := range o.devices.IDs() {
		if err := o.workers[id].Start(config, trigger); err != nil {
			o.log.Info("start skipped", "device", id, "reason", err)
		}
	}
}

// Stop requests one device's run unwind at its next step boundary.
func (o *Orchestrator) Stop(deviceID string) error {
	w, err := o.worker(deviceID)
	if err != nil {
		return err
	}
	w.Stop()
	return nil
}

// StopAll requests every device's run unwind.
func (o *Orchestrator) StopAll() {
	for _, w := range o.workers {
		w.Stop()
	}
}

// Pause holds one device at its next step boundary.
func (o *Orchestrator) Pause(deviceID string) error {
	w, err := o.worker(deviceID)
	if err != nil {
		return err
	}
	w.Control().Pause()
	return nil
}

// PauseAll holds every device at its next step boundary.
func (o *Orchestrator) PauseAll() {
	for _, w := range o.workers {
		w.Control().Pause()
	}
}

// Resume releases one paused device.
func (o *Orchestrator) Resume(deviceID string) error {
	w, err := o.worker(deviceID)
	if err != nil {
		return err
	}
	w.Control().Resume()
	return nil
}

// ResumeAll releases every paused device.
func (o *Orchestrator) ResumeAll() {
	for _, w := range o.workers {
		w.Control().Resume()
	}
}

// Reload replaces the configuration set. Failure leaves the previous
// set active; success takes effect on each device's next run.
func (o *Orchestrator) Reload() error {
	if err := o.configs.Reload(); err != nil {
		o.log.Error("configuration reload rejected", "error", err)
		return err
	}
	o.log.Info("configuration set reloaded", "configs", o.configs.Names())
	return nil
}

// Connect issues adb connect for one device.
func (o *Orchestrator) Connect(ctx context.Context, deviceID string) error {
	if _, err := o.worker(deviceID); err != nil {
		return err
	}
	return o.devices.Connect(ctx, deviceID)
}

// Disconnect releases one device's transport.
func (o *Orchestrator) Disconnect(ctx context.Context, deviceID string) error {
	if _, err := o.worker(deviceID); err != nil {
		return err
	}
	return o.devices.Disconnect(ctx, deviceID)
}

// Screenshot captures one device's screen to the screenshots directory
// and returns the written path.
func (o *Orchestrator) Screenshot(ctx context.Context, deviceID string) (string, error) {
	if _, err := o.worker(deviceID); err != nil {
		return "", err
	}

	png, err := o.devices.Screenshot(ctx, deviceID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(o.screenshotsDir, 0o750); err != nil {
		return "", fmt.Errorf("creating screenshots directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s.png",
		sanitizeFilename(deviceID),
		time.Now().Format("20060102_150405"))
	path := filepath.Join(o.screenshotsDir, name)

	if err := os.WriteFile(path, png, 0o640); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	return path, nil
}

// Status reports every worker's run state and device connectivity.
func (o *Orchestrator) Status() []WorkerStatus {
	infos := o.devices.Devices()
	statuses := make([]WorkerStatus, 0, len(infos))
	for _, info := range infos {
		w, ok := o.workers[info.ID]
		if !ok {
			continue
		}
		statuses = append(statuses, WorkerStatus{
			DeviceID: info.ID,
			Name:     info.Name,
			State:    w.Control().State(),
			Device:   info.Status,
		})
	}
	return statuses
}

// Configs lists the loaded configuration names.
func (o *Orchestrator) Configs() []string {
	return o.configs.Names()
}

// sanitizeFilename replaces the characters in device IDs that are not
// filesystem friendly ("127.0.0.1:5555" -> "127.0.0.1_5555").
func sanitizeFilename(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r == ':' || r == '/' || r == '\\' {
			out[i] = '_'
		}
	}
	return string(out)
}
