package adb

import "errors"

// Sentinel errors for adb operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrCommandFailed is returned when an adb invocation exits non-zero
	// or times out.
	ErrCommandFailed = errors.New("adb: command failed")

	// ErrConnectFailed is returned when adb connect does not reach the device.
	ErrConnectFailed = errors.New("adb: connect failed")

	// ErrEmptyScreenshot is returned when screencap produces no data,
	// which usually means the device dropped off mid-capture.
	ErrEmptyScreenshot = errors.New("adb: empty screenshot")
)
