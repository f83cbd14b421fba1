package orchestrator

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/droidpilot/droidpilot/internal/automation"
)

func writeSetConfig(t *testing.T, dir, file, name string) {
	t.Helper()
	content := []byte("name: " + name + "\nsteps:\n  - name: wake\n    action: tap\n    params:\n      x: 1\n      y: 1\n")
	if err := os.WriteFile(filepath.Join(dir, file), content, 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func TestConfigSetReloadAndGet(t *testing.T) {
	dir := t.TempDir()
	writeSetConfig(t, dir, "a.yaml", "alpha")
	writeSetConfig(t, dir, "b.yaml", "beta")

	set := NewConfigSet(dir, "alpha")
	if err := set.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	cfg, err := set.Get("beta")
	if err != nil {
		t.Fatalf("Get(beta) error = %v", err)
	}
	if cfg.Name != "beta" {
		t.Errorf("name = %q, want beta", cfg.Name)
	}

	// Empty name resolves the default.
	cfg, err = set.Get("")
	if err != nil {
		t.Fatalf("Get(\"\") error = %v", err)
	}
	if cfg.Name != "alpha" {
		t.Errorf("default name = %q, want alpha", cfg.Name)
	}

	if got, want := set.Names(), []string{"alpha", "beta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestConfigSetGetUnknown(t *testing.T) {
	dir := t.TempDir()
	writeSetConfig(t, dir, "a.yaml", "alpha")

	set := NewConfigSet(dir, "alpha")
	if err := set.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	if _, err := set.Get("ghost"); !errors.Is(err, automation.ErrConfigNotFound) {
		t.Errorf("Get(ghost) error = %v, want ErrConfigNotFound", err)
	}
}

func TestConfigSetNoDefaultConfigured(t *testing.T) {
	set := NewConfigSet(t.TempDir(), "")
	if _, err := set.Get(""); !errors.Is(err, automation.ErrConfigNotFound) {
		t.Errorf("Get(\"\") error = %v, want ErrConfigNotFound", err)
	}
}

func TestConfigSetReloadFailureKeepsPreviousSet(t *testing.T) {
	dir := t.TempDir()
	writeSetConfig(t, dir, "a.yaml", "alpha")

	set := NewConfigSet(dir, "alpha")
	if err := set.Reload(); err != nil {
		t.Fatalf("initial Reload() error = %v", err)
	}

	// Break the directory: a config with no steps fails validation.
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: broken\nsteps: []\n"), 0o600); err != nil {
		t.Fatalf("writing bad config: %v", err)
	}

	if err := set.Reload(); err == nil {
		t.Fatal("Reload() succeeded on a broken directory")
	}

	// The previous set still serves.
	cfg, err := set.Get("alpha")
	if err != nil {
		t.Fatalf("Get(alpha) after failed reload: %v", err)
	}
	if cfg.Name != "alpha" {
		t.Errorf("name = %q, want alpha", cfg.Name)
	}
}
