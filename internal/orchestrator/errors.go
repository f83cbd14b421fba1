package orchestrator

import "errors"

// Sentinel errors for orchestrator commands.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrScheduleConflict indicates a trigger arrived while the
	// device's run was still in flight. The trigger is dropped.
	ErrScheduleConflict = errors.New("orchestrator: run already in flight")

	// ErrUnknownDevice indicates a command named a device that is not
	// part of the configured fleet.
	ErrUnknownDevice = errors.New("orchestrator: unknown device")
)
