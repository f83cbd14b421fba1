package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
)

// defaultPollInterval is the wait_image poll cadence.
const defaultPollInterval = 1 * time.Second

// errMatchNotFound marks a clean negative match result. It is consumed
// by the retry and poll loops and never escapes the executor.
var errMatchNotFound = errors.New("template not found on screen")

// ActionResult is the definitive outcome of one action invocation.
type ActionResult struct {
	Done     bool
	Attempts int
	Elapsed  time.Duration
	Err      error
}

// Executor runs one declarative action against one device, applying
// the configuration's retry policy.
//
// Retry policy: up to max_action_attempts attempts with retry_delay
// between them, uniformly for all kinds except sleep (never fails) and
// wait_image (its timeout already encodes the retry budget).
//
// Safe for concurrent use across devices; the clock and sleep functions
// are injectable for tests.
type Executor struct {
	devices   DeviceOps
	templates TemplateStore
	matcher   ImageMatcher
	log       *logging.Logger
	observer  MatchObserver

	sleep        func(time.Duration)
	now          func() time.Time
	pollInterval time.Duration
}

// MatchObserver receives the outcome of every template match attempt.
// Implementations must not block.
type MatchObserver interface {
	MatchObserved(deviceID, template string, score float64, matched bool)
}

// SetMatchObserver registers an optional match outcome sink.
func (e *Executor) SetMatchObserver(obs MatchObserver) {
	e.observer = obs
}

// NewExecutor wires an executor to its collaborators.
func NewExecutor(devices DeviceOps, templates TemplateStore, matcher ImageMatcher, log *logging.Logger) *Executor {
	return &Executor{
		devices:      devices,
		templates:    templates,
		matcher:      matcher,
		log:          log,
		sleep:        time.Sleep,
		now:          time.Now,
		pollInterval: defaultPollInterval,
	}
}

// Run executes one action to its definitive outcome and logs it.
func (e *Executor) Run(ctx context.Context, deviceID string, act Action, set Settings) ActionResult {
	start := e.now()
	var res ActionResult

	switch act.Kind {
	case ActionSleep:
		e.sleep(time.Duration(act.Duration) * time.Millisecond)
		res = ActionResult{Done: true, Attempts: 1}
	case ActionWaitImage:
		res = e.waitImage(ctx, deviceID, act, set)
	default:
		res = e.runWithRetry(ctx, deviceID, act, set)
	}

	res.Elapsed = e.now().Sub(start)

	if res.Done {
		e.postDelay(act, set)
		e.log.Debug("action done",
			"device", deviceID,
			"action", string(act.Kind),
			"attempts", res.Attempts,
			"elapsed_ms", res.Elapsed.Milliseconds(),
		)
	} else {
		e.log.Warn("action failed",
			"device", deviceID,
			"action", string(act.Kind),
			"attempts", res.Attempts,
			"elapsed_ms", res.Elapsed.Milliseconds(),
			"error", res.Err,
		)
	}

	return res
}

// runWithRetry drives the ATTEMPT -> RETRY -> DONE/FAILED machine.
func (e *Executor) runWithRetry(ctx context.Context, deviceID string, act Action, set Settings) ActionResult {
	var lastErr error

	for attempt := 1; attempt <= set.MaxActionAttempts; attempt++ {
		if ctx.Err() != nil {
			return ActionResult{Attempts: attempt - 1, Err: ctx.Err()}
		}

		lastErr = e.attempt(ctx, deviceID, act, set)
		if lastErr == nil {
			return ActionResult{Done: true, Attempts: attempt}
		}

		if attempt < set.MaxActionAttempts {
			e.sleep(time.Duration(set.RetryDelay) * time.Millisecond)
		}
	}

	return ActionResult{Attempts: set.MaxActionAttempts, Err: lastErr}
}

// attempt executes a single try of one action.
func (e *Executor) attempt(ctx context.Context, deviceID string, act Action, set Settings) error {
	switch act.Kind {
	case ActionClickImage:
		return e.clickImage(ctx, deviceID, act, set)
	case ActionInputText:
		return e.devices.InputText(ctx, deviceID, act.Text)
	case ActionSwipe:
		return e.devices.Swipe(ctx, deviceID, act.X, act.Y, act.X2, act.Y2,
			time.Duration(act.Duration)*time.Millisecond)
	case ActionKeyEvent:
		return e.devices.KeyEvent(ctx, deviceID, act.Code)
	case ActionTap:
		return e.devices.Tap(ctx, deviceID, act.X, act.Y)
	case ActionShellCommand:
		_, err := e.devices.Shell(ctx, deviceID, act.Command)
		return err
	case ActionRestartApp:
		return e.devices.RestartApp(ctx, deviceID, act.Package)
	default:
		return fmt.Errorf("unhandled action kind %q", act.Kind)
	}
}

// clickImage captures the screen, locates the template, and taps its
// center. A clean no-match fails this attempt.
func (e *Executor) clickImage(ctx context.Context, deviceID string, act Action, set Settings) error {
	png, err := e.devices.Screenshot(ctx, deviceID)
	if err != nil {
		return err
	}

	tpl, err := e.templates.Get(act.Template)
	if err != nil {
		return err
	}

	match, found, err := e.matcher.FindPNG(png, tpl, e.threshold(act, set))
	if err != nil {
		return err
	}
	e.observeMatch(deviceID, act.Template, match.Score, found)
	if !found {
		return fmt.Errorf("%w: %s", errMatchNotFound, act.Template)
	}

	x, y := match.Center()
	return e.devices.Tap(ctx, deviceID, x, y)
}

// waitImage polls capture+match at the poll interval until the template
// appears or the timeout elapses. The outer retry policy does not apply;
// the timeout is the retry budget.
func (e *Executor) waitImage(ctx context.Context, deviceID string, act Action, set Settings) ActionResult {
	timeout := time.Duration(act.Timeout) * time.Millisecond
	if act.Timeout == 0 {
		timeout = time.Duration(set.WaitTimeout) * time.Millisecond
	}

	start := e.now()
	polls := 0

	for {
		if ctx.Err() != nil {
			return ActionResult{Attempts: polls, Err: ctx.Err()}
		}

		polls++
		if err := e.probe(ctx, deviceID, act, set); err == nil {
			return ActionResult{Done: true, Attempts: polls}
		}

		if e.now().Sub(start) >= timeout {
			return ActionResult{
				Attempts: polls,
				Err:      fmt.Errorf("%w: %s after %v", errMatchNotFound, act.Template, timeout),
			}
		}

		e.sleep(e.pollInterval)
	}
}

// probe is one wait_image capture+match cycle. Capture failures count
// as a miss; the device may still be mid-transition.
func (e *Executor) probe(ctx context.Context, deviceID string, act Action, set Settings) error {
	png, err := e.devices.Screenshot(ctx, deviceID)
	if err != nil {
		return err
	}

	tpl, err := e.templates.Get(act.Template)
	if err != nil {
		return err
	}

	match, found, err := e.matcher.FindPNG(png, tpl, e.threshold(act, set))
	if err != nil {
		return err
	}
	e.observeMatch(deviceID, act.Template, match.Score, found)
	if !found {
		return errMatchNotFound
	}
	return nil
}

func (e *Executor) observeMatch(deviceID, template string, score float64, matched bool) {
	if e.observer != nil {
		e.observer.MatchObserved(deviceID, template, score, matched)
	}
}

// threshold picks the per-action override or the settings default.
func (e *Executor) threshold(act Action, set Settings) float64 {
	if act.Threshold > 0 {
		return act.Threshold
	}
	return set.ImageMatchThreshold
}

// postDelay applies wait_after, falling back to click_delay for tap
// style actions without an explicit one.
func (e *Executor) postDelay(act Action, set Settings) {
	delay := act.WaitAfter
	if delay == 0 && (act.Kind == ActionClickImage || act.Kind == ActionTap) {
		delay = set.ClickDelay
	}
	if delay > 0 {
		e.sleep(time.Duration(delay) * time.Millisecond)
	}
}

// RunList runs an ordered action list, pacing action_interval between
// actions. It stops at the first failed action.
func (e *Executor) RunList(ctx context.Context, deviceID string, actions []Action, set Settings) bool {
	for i, act := range actions {
		if i > 0 {
			e.sleep(time.Duration(set.ActionInterval) * time.Millisecond)
		}
		if res := e.Run(ctx, deviceID, act, set); !res.Done {
			return false
		}
	}
	return true
}
