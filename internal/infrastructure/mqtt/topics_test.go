package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"RunStarted", topics.RunStarted("emulator-5554"), "droidpilot/run/emulator-5554/started"},
		{"RunCompleted", topics.RunCompleted("emulator-5554"), "droidpilot/run/emulator-5554/completed"},
		{"RunFailed", topics.RunFailed("192.168.1.50:5555"), "droidpilot/run/192.168.1.50:5555/failed"},
		{"RunStep", topics.RunStep("emulator-5554"), "droidpilot/run/emulator-5554/step"},
		{"DeviceStatus", topics.DeviceStatus("emulator-5554"), "droidpilot/device/emulator-5554/status"},
		{"Command", topics.Command(), "droidpilot/command"},
		{"SystemStatus", topics.SystemStatus(), "droidpilot/system/status"},
		{"AllRunEvents", topics.AllRunEvents(), "droidpilot/run/+/+"},
		{"AllDeviceStatus", topics.AllDeviceStatus(), "droidpilot/device/+/status"},
		{"AllTopics", topics.AllTopics(), "droidpilot/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
