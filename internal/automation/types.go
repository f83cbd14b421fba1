package automation

import (
	"context"
	"time"

	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
	"github.com/droidpilot/droidpilot/internal/vision"
)

// ActionKind enumerates the closed action vocabulary.
type ActionKind string

// Action kinds. The vocabulary is fixed; configurations using any other
// value are rejected at load time.
const (
	ActionClickImage   ActionKind = "click_image"
	ActionInputText    ActionKind = "input_text"
	ActionWaitImage    ActionKind = "wait_image"
	ActionSwipe        ActionKind = "swipe"
	ActionKeyEvent     ActionKind = "keyevent"
	ActionSleep        ActionKind = "sleep"
	ActionRestartApp   ActionKind = "restart_app"
	ActionShellCommand ActionKind = "shell_command"
	ActionTap          ActionKind = "tap"
)

// validKinds is the load-time acceptance set.
var validKinds = map[ActionKind]bool{
	ActionClickImage:   true,
	ActionInputText:    true,
	ActionWaitImage:    true,
	ActionSwipe:        true,
	ActionKeyEvent:     true,
	ActionSleep:        true,
	ActionRestartApp:   true,
	ActionShellCommand: true,
	ActionTap:          true,
}

// Action is one declarative device operation. Kind decides which of the
// parameter fields apply; unused fields stay at their zero value and are
// omitted when re-serialized, so a loaded configuration round-trips
// unchanged.
//
// All durations and delays are milliseconds.
type Action struct {
	Kind ActionKind `yaml:"action"`

	// click_image / wait_image
	Template  string  `yaml:"template,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty"` // 0 = use settings default
	Timeout   int     `yaml:"timeout,omitempty"`   // wait_image only, 0 = settings default

	// input_text
	Text string `yaml:"text,omitempty"`

	// tap / swipe
	X  int `yaml:"x,omitempty"`
	Y  int `yaml:"y,omitempty"`
	X2 int `yaml:"x2,omitempty"`
	Y2 int `yaml:"y2,omitempty"`

	// swipe gesture time, sleep duration
	Duration int `yaml:"duration,omitempty"`

	// keyevent
	Code int `yaml:"code,omitempty"`

	// restart_app
	Package string `yaml:"package,omitempty"`

	// shell_command
	Command string `yaml:"command,omitempty"`

	// WaitAfter is an extra delay after the action succeeds, on top of
	// the configuration's action_interval pacing.
	WaitAfter int `yaml:"wait_after,omitempty"`
}

// Settings are per-configuration execution defaults. Any field left at
// zero in the YAML takes the package default at load time.
//
// All delay fields are milliseconds.
type Settings struct {
	// ActionInterval is the baseline pacing delay between actions.
	ActionInterval int `yaml:"action_interval"`

	// MaxActionAttempts bounds the retry loop per action.
	MaxActionAttempts int `yaml:"max_action_attempts"`

	// RetryDelay is the sleep between failed attempts.
	RetryDelay int `yaml:"retry_delay"`

	// ClickDelay is the post-tap settle delay for click_image and tap
	// actions without an explicit wait_after.
	ClickDelay int `yaml:"click_delay"`

	// ImageMatchThreshold is the default match acceptance score.
	ImageMatchThreshold float64 `yaml:"image_match_threshold"`

	// WaitTimeout is the default wait_image timeout.
	WaitTimeout int `yaml:"wait_timeout"`
}

// Default settings values, matching the documented configuration format.
const (
	DefaultActionInterval    = 500
	DefaultMaxActionAttempts = 5
	DefaultRetryDelay        = 2000
	DefaultClickDelay        = 1000
	DefaultThreshold         = 0.7
	DefaultWaitTimeout       = 30000
)

// applyDefaults fills zero-valued settings fields.
func (s *Settings) applyDefaults() {
	if s.ActionInterval == 0 {
		s.ActionInterval = DefaultActionInterval
	}
	if s.MaxActionAttempts == 0 {
		s.MaxActionAttempts = DefaultMaxActionAttempts
	}
	if s.RetryDelay == 0 {
		s.RetryDelay = DefaultRetryDelay
	}
	if s.ClickDelay == 0 {
		s.ClickDelay = DefaultClickDelay
	}
	if s.ImageMatchThreshold == 0 {
		s.ImageMatchThreshold = DefaultThreshold
	}
	if s.WaitTimeout == 0 {
		s.WaitTimeout = DefaultWaitTimeout
	}
}

// Step is one named unit of a configuration. Action names either a
// registered handler or a named action list in the configuration's
// Actions map; Params are forwarded to the handler.
type Step struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Action      string `yaml:"action"`
	Params      Params `yaml:"params,omitempty"`
}

// Configuration is one complete, loadable automation script.
//
// Immutable once loaded; shared read-only across device workers.
type Configuration struct {
	Name       string `yaml:"name"`
	Version    string `yaml:"version,omitempty"`
	NextConfig string `yaml:"next_config,omitempty"`

	Settings Settings `yaml:"settings"`

	// Initialize runs before the steps; returning false aborts the run.
	Initialize string `yaml:"initialize,omitempty"`

	// Finalize always runs after the steps, successful or not.
	Finalize string `yaml:"finalize,omitempty"`

	Steps []Step `yaml:"steps"`

	// EnabledSteps disables steps by name. An absent entry means the
	// step is enabled; only an explicit false disables it.
	EnabledSteps map[string]bool `yaml:"enabled_steps,omitempty"`

	// Actions are named action lists referenced by step Action fields
	// or by the perform_actions handler.
	Actions map[string][]Action `yaml:"actions,omitempty"`
}

// StepEnabled reports whether a step name is enabled. Absent entries
// default to enabled.
func (c *Configuration) StepEnabled(name string) bool {
	enabled, present := c.EnabledSteps[name]
	return !present || enabled
}

// StepContext is the environment a step handler runs in.
type StepContext struct {
	// DeviceID identifies the device this run is bound to.
	DeviceID string

	// Devices issues commands to the fleet.
	Devices DeviceOps

	// Templates resolves template names to prepared images.
	Templates TemplateStore

	// Exec runs declarative actions with the configuration's retry policy.
	Exec *Executor

	// Config is the configuration being run (read-only).
	Config *Configuration

	// Params are the step's literal parameters.
	Params Params

	// Success is meaningful only for finalize hooks: the run outcome.
	Success bool

	// Log is pre-tagged with the device ID.
	Log *logging.Logger
}

// HandlerFunc is a registered step callable. Returning false fails the
// step, which fail-fasts the remaining steps of the run.
type HandlerFunc func(ctx context.Context, sc *StepContext) bool

// DeviceOps is the slice of the device manager the automation engine
// drives. Implemented by device.Manager; replaced by fakes in tests.
type DeviceOps interface {
	Screenshot(ctx context.Context, id string) ([]byte, error)
	Tap(ctx context.Context, id string, x, y int) error
	Swipe(ctx context.Context, id string, x1, y1, x2, y2 int, duration time.Duration) error
	InputText(ctx context.Context, id, text string) error
	KeyEvent(ctx context.Context, id string, code int) error
	Shell(ctx context.Context, id, command string) (string, error)
	RestartApp(ctx context.Context, id, pkg string) error
}

// TemplateStore resolves template names. Implemented by vision.Store.
type TemplateStore interface {
	Get(name string) (*vision.Template, error)
}

// ImageMatcher locates a template in PNG screenshot bytes.
// Implemented by vision.Matcher.
type ImageMatcher interface {
	FindPNG(data []byte, tpl *vision.Template, threshold float64) (vision.Match, bool, error)
}

// Trigger records what started a run.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
	TriggerChained   Trigger = "chained"
)

// RunStatus is the final state of a completed run.
type RunStatus string

const (
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusStopped   RunStatus = "stopped"
)
