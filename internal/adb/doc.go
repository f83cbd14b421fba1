// Package adb shells out to the Android Debug Bridge binary to drive
// devices: screenshots, taps, swipes, text input, key events, app
// lifecycle, and network connect/disconnect.
//
// Each Session targets one device serial and applies a per-command
// timeout when the caller's context carries no deadline. Screenshots use
// exec-out so binary PNG data survives the transport untouched.
//
// The package deliberately wraps the adb CLI rather than speaking the
// adb server protocol directly: the CLI is stable across platform-tools
// releases and already handles device authorization and transport
// negotiation.
package adb
