// Package device manages the emulator fleet behind a single Manager.
//
// The Manager owns one Session per device and mediates every command:
// screenshots, taps, swipes, text input, key events, shell commands,
// and app restarts. It tracks per-device connectivity status and
// recovers transparently from transient adb failures with exactly one
// reconnect-and-retry; persistent failures mark the device offline and
// surface to the caller. Retrying beyond that single reconnect is the
// action executor's job, which has the configuration's retry policy.
//
// Session is an interface so tests drive the Manager with fakes instead
// of a live adb server.
package device
