package device

import "errors"

// Sentinel errors for device fleet operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDeviceNotFound indicates the device ID is not registered.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceUnavailable indicates a command failed and a single
	// reconnect attempt did not recover the device.
	ErrDeviceUnavailable = errors.New("device: unavailable")
)
