// Package automation is the configuration interpreter at the heart of
// DroidPilot: it turns declarative YAML scripts into executed, retried,
// logged action sequences on a device.
//
// The layers, bottom up:
//
//   - Action: one device operation from a closed vocabulary
//     (click_image, input_text, wait_image, swipe, keyevent, sleep,
//     restart_app, shell_command, tap), each with per-kind parameters
//     and an optional wait_after delay.
//   - Executor: runs one action to a definitive DONE/FAILED outcome,
//     retrying up to max_action_attempts with retry_delay between
//     attempts. wait_image polls on its own timeout instead; sleep
//     never fails.
//   - Step: a named unit binding an action name (a registered handler
//     or a named action list) to literal parameters, individually
//     disabled via enabled_steps. Absent entries default to enabled.
//   - Runner: executes a whole configuration: initialize hook, steps
//     in declared order with fail-fast, finalize hook (always called,
//     with the success flag), and the next_config chain instruction on
//     full success.
//
// Configurations load from YAML files, are validated strictly (unknown
// action kinds and thresholds outside [0,1] are rejected, never
// repaired), and are immutable afterwards, so workers share them
// without locking.
//
// Run outcomes persist through Repository into SQLite for the history
// API.
package automation
