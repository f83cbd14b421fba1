package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteRunResult writes a completed run measurement to InfluxDB.
//
// This is the primary method for recording automation run outcomes.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Device the run executed on (e.g., "emulator-5554")
//   - configName: Name of the automation configuration
//   - status: Final run status ("completed", "failed", "stopped")
//   - durationMS: Wall-clock run duration in milliseconds
//   - stepsCompleted: Number of steps that finished successfully
func (c *Client) WriteRunResult(deviceID, configName, status string, durationMS int64, stepsCompleted int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"automation_runs",
		map[string]string{
			"device_id": deviceID,
			"config":    configName,
			"status":    status,
		},
		map[string]interface{}{
			"duration_ms":     durationMS,
			"steps_completed": stepsCompleted,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteStepResult writes a per-step measurement.
//
// Used for tracking which steps fail most often and how long each takes.
//
// Parameters:
//   - deviceID: Device identifier
//   - configName: Automation configuration name
//   - stepName: Name of the step within the configuration
//   - success: Whether the step succeeded
//   - durationMS: Step execution time in milliseconds
func (c *Client) WriteStepResult(deviceID, configName, stepName string, success bool, durationMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"automation_steps",
		map[string]string{
			"device_id": deviceID,
			"config":    configName,
			"step":      stepName,
		},
		map[string]interface{}{
			"success":     success,
			"duration_ms": durationMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteMatchScore writes a template match confidence measurement.
//
// Tracks matcher confidence over time so threshold drift (after app UI
// updates) shows up on a dashboard before runs start failing.
//
// Parameters:
//   - deviceID: Device identifier
//   - template: Template image name
//   - score: Best normalized correlation score found (0.0-1.0)
//   - matched: Whether the score cleared the configured threshold
func (c *Client) WriteMatchScore(deviceID, template string, score float64, matched bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"template_matches",
		map[string]string{
			"device_id": deviceID,
			"template":  template,
		},
		map[string]interface{}{
			"score":   score,
			"matched": matched,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
