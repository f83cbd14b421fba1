package automation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates one configuration file.
//
// Settings fields left at zero take the package defaults. Validation
// failures return ErrConfigLoad; nothing is silently coerced, so a
// loaded configuration re-serializes to the same structure it was
// written with.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}

	var cfg Configuration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigLoad, filepath.Base(path), err)
	}

	if cfg.Name == "" {
		// Fall back to the filename so a config can omit its name.
		cfg.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	cfg.Settings.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigLoad, cfg.Name, err)
	}

	return &cfg, nil
}

// LoadDir loads every .yaml/.yml file in dir, keyed by configuration
// name. A single malformed file fails the whole load so a reload never
// installs a partial set.
func LoadDir(dir string) (map[string]*Configuration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrConfigLoad, dir, err)
	}

	configs := make(map[string]*Configuration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		cfg, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, exists := configs[cfg.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate configuration name %q", ErrConfigLoad, cfg.Name)
		}
		configs[cfg.Name] = cfg
	}

	return configs, nil
}

// Validate checks a configuration's structure. It rejects rather than
// repairs: out-of-range thresholds and unknown action kinds are errors,
// not values to clamp.
func Validate(cfg *Configuration) error {
	var errs []string

	if len(cfg.Steps) == 0 {
		errs = append(errs, "at least one step is required")
	}

	seen := make(map[string]bool)
	for i, step := range cfg.Steps {
		if step.Name == "" {
			errs = append(errs, fmt.Sprintf("step %d: name is required", i))
			continue
		}
		if seen[step.Name] {
			errs = append(errs, fmt.Sprintf("step %q: duplicate name", step.Name))
		}
		seen[step.Name] = true
		if step.Action == "" {
			errs = append(errs, fmt.Sprintf("step %q: action is required", step.Name))
		}
	}

	if t := cfg.Settings.ImageMatchThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Sprintf("settings.image_match_threshold %v outside [0,1]", t))
	}
	if cfg.Settings.MaxActionAttempts < 1 {
		errs = append(errs, "settings.max_action_attempts must be at least 1")
	}

	for listName, actions := range cfg.Actions {
		for i, act := range actions {
			if err := validateAction(act); err != nil {
				errs = append(errs, fmt.Sprintf("actions.%s[%d]: %v", listName, i, err))
			}
		}
	}

	for name := range cfg.EnabledSteps {
		if !seen[name] {
			errs = append(errs, fmt.Sprintf("enabled_steps references unknown step %q", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAction(act Action) error {
	if !validKinds[act.Kind] {
		return fmt.Errorf("unknown action kind %q", act.Kind)
	}
	if act.Threshold < 0 || act.Threshold > 1 {
		return fmt.Errorf("threshold %v outside [0,1]", act.Threshold)
	}

	switch act.Kind {
	case ActionClickImage, ActionWaitImage:
		if act.Template == "" {
			return fmt.Errorf("%s requires a template", act.Kind)
		}
	case ActionInputText:
		if act.Text == "" {
			return fmt.Errorf("input_text requires text")
		}
	case ActionSleep:
		if act.Duration <= 0 {
			return fmt.Errorf("sleep requires a positive duration")
		}
	case ActionRestartApp:
		if act.Package == "" {
			return fmt.Errorf("restart_app requires a package")
		}
	case ActionShellCommand:
		if act.Command == "" {
			return fmt.Errorf("shell_command requires a command")
		}
	}
	return nil
}
