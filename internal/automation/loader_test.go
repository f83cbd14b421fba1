package automation

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
name: daily-collect
version: "1.2"
next_config: cleanup
settings:
  action_interval: 300
  max_action_attempts: 3
steps:
  - name: open-app
    action: restart_app
    params:
      package: com.example.game
  - name: collect
    action: collect-rewards
enabled_steps:
  collect: true
actions:
  collect-rewards:
    - action: click_image
      template: reward-button
      threshold: 0.8
      wait_after: 1500
    - action: keyevent
      code: 4
`

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "daily.yaml", validConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Name != "daily-collect" || cfg.NextConfig != "cleanup" {
		t.Errorf("name=%q next=%q, want daily-collect/cleanup", cfg.Name, cfg.NextConfig)
	}
	if len(cfg.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(cfg.Steps))
	}
	if cfg.Steps[0].Params.String("package", "") != "com.example.game" {
		t.Errorf("step params not preserved: %+v", cfg.Steps[0].Params)
	}

	// Explicit settings kept, absent ones defaulted.
	if cfg.Settings.ActionInterval != 300 || cfg.Settings.MaxActionAttempts != 3 {
		t.Errorf("explicit settings not preserved: %+v", cfg.Settings)
	}
	if cfg.Settings.RetryDelay != DefaultRetryDelay {
		t.Errorf("retry_delay = %d, want default %d", cfg.Settings.RetryDelay, DefaultRetryDelay)
	}
	if cfg.Settings.ImageMatchThreshold != DefaultThreshold {
		t.Errorf("threshold = %v, want default %v", cfg.Settings.ImageMatchThreshold, DefaultThreshold)
	}

	acts := cfg.Actions["collect-rewards"]
	if len(acts) != 2 || acts[0].Kind != ActionClickImage || acts[0].Threshold != 0.8 {
		t.Errorf("action list not preserved: %+v", acts)
	}
}

func TestLoadNameFallsBackToFilename(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "unnamed.yaml", `
steps:
  - name: s
    action: perform_actions
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Name != "unnamed" {
		t.Errorf("name = %q, want unnamed", cfg.Name)
	}
}

func TestLoadRejectsThresholdOutsideRange(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "bad.yaml", `
steps:
  - name: s
    action: list
actions:
  list:
    - action: click_image
      template: button
      threshold: 1.5
`)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigLoad) {
		t.Errorf("Load() error = %v, want ErrConfigLoad (no silent clamping)", err)
	}
}

func TestLoadRejectsUnknownActionKind(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "bad.yaml", `
steps:
  - name: s
    action: list
actions:
  list:
    - action: teleport
`)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigLoad) {
		t.Errorf("Load() error = %v, want ErrConfigLoad", err)
	}
}

func TestLoadRejectsEnabledStepsUnknownReference(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "bad.yaml", `
steps:
  - name: real
    action: perform_actions
enabled_steps:
  ghost: false
`)

	_, err := Load(path)
	if !errors.Is(err, ErrConfigLoad) {
		t.Errorf("Load() error = %v, want ErrConfigLoad", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, ErrConfigLoad) {
		t.Errorf("Load() error = %v, want ErrConfigLoad", err)
	}
}

func TestRoundTripPreservesStructure(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "rt.yaml", validConfig)

	first, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	data, err := yaml.Marshal(first)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var second Configuration
	if err := yaml.Unmarshal(data, &second); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if !reflect.DeepEqual(first.Settings, second.Settings) {
		t.Errorf("settings changed in round-trip:\n  first:  %+v\n  second: %+v", first.Settings, second.Settings)
	}
	if !reflect.DeepEqual(first.Actions, second.Actions) {
		t.Errorf("actions changed in round-trip:\n  first:  %+v\n  second: %+v", first.Actions, second.Actions)
	}
	if !reflect.DeepEqual(first.Steps, second.Steps) {
		t.Errorf("steps changed in round-trip:\n  first:  %+v\n  second: %+v", first.Steps, second.Steps)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "name: a\nsteps:\n  - name: s\n    action: x\n")
	writeConfig(t, dir, "b.yml", "name: b\nsteps:\n  - name: s\n    action: x\n")
	writeConfig(t, dir, "notes.txt", "ignored")

	configs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(configs) != 2 || configs["a"] == nil || configs["b"] == nil {
		t.Errorf("LoadDir() = %v, want configs a and b", configs)
	}
}

func TestLoadDirDuplicateNames(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "name: same\nsteps:\n  - name: s\n    action: x\n")
	writeConfig(t, dir, "b.yaml", "name: same\nsteps:\n  - name: s\n    action: x\n")

	_, err := LoadDir(dir)
	if !errors.Is(err, ErrConfigLoad) {
		t.Errorf("LoadDir() error = %v, want ErrConfigLoad for duplicate names", err)
	}
}

func TestLoadDirOneBadFileFailsWholeLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "good.yaml", "name: good\nsteps:\n  - name: s\n    action: x\n")
	writeConfig(t, dir, "bad.yaml", "name: bad\nsteps: []\n")

	_, err := LoadDir(dir)
	if !errors.Is(err, ErrConfigLoad) {
		t.Errorf("LoadDir() error = %v, want ErrConfigLoad", err)
	}
}
