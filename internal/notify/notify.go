package notify

import (
	"encoding/json"
	"time"

	"github.com/droidpilot/droidpilot/internal/automation"
	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
	"github.com/droidpilot/droidpilot/internal/infrastructure/mqtt"
)

// Publisher is the MQTT surface the notifier publishes on.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	PublishRetained(topic string, payload []byte) error
}

// MetricsWriter receives run, step and match metrics. Writes are
// fire-and-forget. Implemented by influxdb.Client.
type MetricsWriter interface {
	WriteRunResult(deviceID, configName, status string, durationMS int64, stepsCompleted int)
	WriteStepResult(deviceID, configName, stepName string, success bool, durationMS int64)
	WriteMatchScore(deviceID, template string, score float64, matched bool)
}

// Broadcaster pushes events to connected UI clients.
type Broadcaster interface {
	Broadcast(event any)
}

// RunStartedEvent is published when a configuration run begins.
type RunStartedEvent struct {
	Type       string    `json:"type"`
	DeviceID   string    `json:"device_id"`
	ConfigName string    `json:"config_name"`
	Trigger    string    `json:"trigger"`
	Timestamp  time.Time `json:"timestamp"`
}

// RunFinishedEvent is published when a configuration run ends, on the
// completed or failed topic depending on outcome.
type RunFinishedEvent struct {
	Type           string    `json:"type"`
	DeviceID       string    `json:"device_id"`
	ConfigName     string    `json:"config_name"`
	Trigger        string    `json:"trigger"`
	Status         string    `json:"status"`
	StepsTotal     int       `json:"steps_total"`
	StepsCompleted int       `json:"steps_completed"`
	StepsSkipped   int       `json:"steps_skipped"`
	FailedStep     string    `json:"failed_step,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// Notifier fans run lifecycle events out to MQTT, the metrics store
// and websocket clients. Every sink is optional and best-effort:
// a failed publish is logged and never fails the run that caused it.
type Notifier struct {
	publisher Publisher
	metrics   MetricsWriter
	broadcast Broadcaster
	topics    mqtt.Topics
	log       *logging.Logger
	now       func() time.Time
}

// New creates a notifier. Any sink may be nil.
func New(publisher Publisher, metrics MetricsWriter, broadcast Broadcaster, log *logging.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		metrics:   metrics,
		broadcast: broadcast,
		log:       log,
		now:       time.Now,
	}
}

// RunStarted publishes a run-started event for the device.
func (n *Notifier) RunStarted(deviceID, config string, trigger automation.Trigger) {
	event := RunStartedEvent{
		Type:       "run_started",
		DeviceID:   deviceID,
		ConfigName: config,
		Trigger:    string(trigger),
		Timestamp:  n.now(),
	}
	n.publish(n.topics.RunStarted(deviceID), event)
	if n.broadcast != nil {
		n.broadcast.Broadcast(event)
	}
}

// RunFinished publishes the run outcome and records its metrics.
func (n *Notifier) RunFinished(rec automation.RunRecord) {
	event := RunFinishedEvent{
		Type:           "run_finished",
		DeviceID:       rec.DeviceID,
		ConfigName:     rec.ConfigName,
		Trigger:        string(rec.Trigger),
		Status:         string(rec.Status),
		StepsTotal:     rec.StepsTotal,
		StepsCompleted: rec.StepsCompleted,
		StepsSkipped:   rec.StepsSkipped,
		FailedStep:     rec.FailedStep,
		DurationMS:     rec.DurationMS,
		Timestamp:      n.now(),
	}

	topic := n.topics.RunCompleted(rec.DeviceID)
	if rec.Status == automation.StatusFailed {
		topic = n.topics.RunFailed(rec.DeviceID)
	}
	n.publish(topic, event)

	if n.metrics != nil {
		n.metrics.WriteRunResult(rec.DeviceID, rec.ConfigName, string(rec.Status),
			rec.DurationMS, rec.StepsCompleted)
	}
	if n.broadcast != nil {
		n.broadcast.Broadcast(event)
	}
}

// StepEvent is published per executed step.
type StepEvent struct {
	Type       string    `json:"type"`
	DeviceID   string    `json:"device_id"`
	ConfigName string    `json:"config_name"`
	StepName   string    `json:"step_name"`
	Success    bool      `json:"success"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// StepFinished publishes a per-step outcome and records its metrics.
// Satisfies automation.StepObserver.
func (n *Notifier) StepFinished(deviceID, configName, stepName string, success bool, durationMS int64) {
	event := StepEvent{
		Type:       "step_finished",
		DeviceID:   deviceID,
		ConfigName: configName,
		StepName:   stepName,
		Success:    success,
		DurationMS: durationMS,
		Timestamp:  n.now(),
	}
	n.publish(n.topics.RunStep(deviceID), event)
	if n.metrics != nil {
		n.metrics.WriteStepResult(deviceID, configName, stepName, success, durationMS)
	}
	if n.broadcast != nil {
		n.broadcast.Broadcast(event)
	}
}

// MatchObserved records a template match score. Metrics only; match
// attempts are too chatty for MQTT or the UI stream.
// Satisfies automation.MatchObserver.
func (n *Notifier) MatchObserved(deviceID, template string, score float64, matched bool) {
	if n.metrics != nil {
		n.metrics.WriteMatchScore(deviceID, template, score, matched)
	}
}

// DeviceStatus publishes a device's connection status, retained so
// late subscribers see the current fleet state.
func (n *Notifier) DeviceStatus(deviceID, status string) {
	payload := map[string]string{
		"device_id": deviceID,
		"status":    status,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if n.publisher == nil {
		return
	}
	if err := n.publisher.PublishRetained(n.topics.DeviceStatus(deviceID), data); err != nil {
		n.log.Warn("device status publish failed", "device", deviceID, "error", err)
	}
}

func (n *Notifier) publish(topic string, event any) {
	if n.publisher == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		n.log.Error("event marshal failed", "topic", topic, "error", err)
		return
	}
	if err := n.publisher.Publish(topic, data, 1, false); err != nil {
		n.log.Warn("event publish failed", "topic", topic, "error", err)
	}
}
