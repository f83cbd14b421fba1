// Package logging provides structured logging for droidpilot.
//
// It wraps log/slog with configuration-driven level, format, and output
// selection, plus helpers for deriving component- and device-scoped loggers.
package logging
