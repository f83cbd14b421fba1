package automation

import "errors"

// Sentinel errors for the automation engine.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrConfigLoad indicates a malformed configuration file. The
	// previously loaded configuration set stays active.
	ErrConfigLoad = errors.New("automation: configuration load failed")

	// ErrConfigNotFound indicates no configuration exists under the
	// requested name.
	ErrConfigNotFound = errors.New("automation: configuration not found")

	// ErrUnknownHandler indicates a step's action name resolves to
	// neither a registered handler nor a named action list.
	ErrUnknownHandler = errors.New("automation: unknown step handler")

	// ErrStopRequested is returned by a Gate when the worker must
	// unwind at the current step boundary.
	ErrStopRequested = errors.New("automation: stop requested")
)
