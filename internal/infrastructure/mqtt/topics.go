package mqtt

import "fmt"

// Topic prefixes for the DroidPilot MQTT namespace.
//
// All topics use the scheme: droidpilot/{category}/{device_id}/{event}
const (
	// TopicPrefix is the base for all DroidPilot topics.
	TopicPrefix = "droidpilot"

	// TopicPrefixRun is the base for run lifecycle topics.
	TopicPrefixRun = "droidpilot/run"

	// TopicPrefixDevice is the base for device status topics.
	TopicPrefixDevice = "droidpilot/device"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "droidpilot/system"
)

// Topics provides builders for DroidPilot MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.RunCompleted("emulator-5554")
//	// Returns: "droidpilot/run/emulator-5554/completed"
type Topics struct{}

// RunStarted returns the topic for run start events on a device.
//
// Example: droidpilot/run/emulator-5554/started
func (Topics) RunStarted(deviceID string) string {
	return fmt.Sprintf("%s/%s/started", TopicPrefixRun, deviceID)
}

// RunCompleted returns the topic for successful run completion events.
//
// Example: droidpilot/run/emulator-5554/completed
func (Topics) RunCompleted(deviceID string) string {
	return fmt.Sprintf("%s/%s/completed", TopicPrefixRun, deviceID)
}

// RunFailed returns the topic for failed run events.
//
// Example: droidpilot/run/emulator-5554/failed
func (Topics) RunFailed(deviceID string) string {
	return fmt.Sprintf("%s/%s/failed", TopicPrefixRun, deviceID)
}

// RunStep returns the topic for per-step progress events.
//
// Example: droidpilot/run/emulator-5554/step
func (Topics) RunStep(deviceID string) string {
	return fmt.Sprintf("%s/%s/step", TopicPrefixRun, deviceID)
}

// DeviceStatus returns the topic for device connectivity status.
//
// Example: droidpilot/device/emulator-5554/status
func (Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixDevice, deviceID)
}

// Command returns the topic for remote orchestrator commands.
//
// Commands are JSON payloads such as {"command":"pause","device":"emulator-5554"}.
//
// Example: droidpilot/command
func (Topics) Command() string {
	return fmt.Sprintf("%s/command", TopicPrefix)
}

// SystemStatus returns the engine status topic (also used for LWT).
//
// Example: droidpilot/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllRunEvents returns a pattern matching all run lifecycle events.
//
// Pattern: droidpilot/run/+/+
func (Topics) AllRunEvents() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixRun)
}

// AllDeviceStatus returns a pattern matching all device status updates.
//
// Pattern: droidpilot/device/+/status
func (Topics) AllDeviceStatus() string {
	return fmt.Sprintf("%s/+/status", TopicPrefixDevice)
}

// AllTopics returns a pattern matching all DroidPilot topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: droidpilot/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
