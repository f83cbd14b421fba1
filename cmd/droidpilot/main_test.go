package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("DROIDPILOT_CONFIG")
	defer os.Setenv("DROIDPILOT_CONFIG", originalEnv)

	os.Setenv("DROIDPILOT_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingConfigsDir verifies run fails when the automation
// configuration directory does not exist.
func TestRun_MissingConfigsDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
devices:
  - "127.0.0.1:5555:test-emu"

adb:
  path: adb
  command_timeout: 10
  connect_on_startup: false

automation:
  configs_dir: "` + filepath.Join(tmpDir, "missing") + `"
  templates_dir: "` + tmpDir + `"
  screenshots_dir: "` + tmpDir + `"

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 8080
  timeouts:
    read: 30
    write: 60
    idle: 120
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("DROIDPILOT_CONFIG")
	defer os.Setenv("DROIDPILOT_CONFIG", originalEnv)
	os.Setenv("DROIDPILOT_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with a missing configs directory")
	}
}

// TestGetConfigPath_Default verifies the default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("DROIDPILOT_CONFIG")
	defer os.Setenv("DROIDPILOT_CONFIG", originalEnv)

	os.Unsetenv("DROIDPILOT_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies the environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("DROIDPILOT_CONFIG")
	defer os.Setenv("DROIDPILOT_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("DROIDPILOT_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
