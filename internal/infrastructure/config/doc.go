// Package config loads and validates droidpilot's application configuration.
//
// Configuration comes from a YAML file with hardcoded defaults underneath
// and DROIDPILOT_* environment variables on top. The device list, adb
// transport settings, automation directories, scheduler minutes, and all
// infrastructure endpoints (SQLite, MQTT, InfluxDB, HTTP API) live here.
//
// Automation configurations themselves (steps, actions, templates) are NOT
// part of this package; they are loaded per-file by the automation package
// from Automation.ConfigsDir.
package config
