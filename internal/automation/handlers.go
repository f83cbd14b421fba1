package automation

import (
	"context"
	"time"
)

// registerBuiltins installs the handlers every configuration can use
// without declaring its own action lists.
func registerBuiltins(r *Registry) {
	r.Register("perform_actions", performActions)
	r.Register("restart_app", restartApp)
	r.Register("wait_main_screen", waitMainScreen)
}

// performActions runs a named action list from the configuration.
//
// Params:
//   - actions (string, required): name of the list in the Actions map
func performActions(ctx context.Context, sc *StepContext) bool {
	name := sc.Params.String("actions", "")
	if name == "" {
		sc.Log.Error("perform_actions requires an 'actions' parameter")
		return false
	}

	actions, ok := sc.Config.Actions[name]
	if !ok {
		sc.Log.Error("perform_actions: action list not found", "list", name)
		return false
	}

	return sc.Exec.RunList(ctx, sc.DeviceID, actions, sc.Config.Settings)
}

// restartApp force-stops and relaunches a package, optionally waiting
// for a template to confirm the app is back up.
//
// Params:
//   - package (string, required): the package to restart
//   - wait_template (string, optional): template to wait for after relaunch
//   - timeout (int ms, optional): wait budget, defaults to settings wait_timeout
func restartApp(ctx context.Context, sc *StepContext) bool {
	pkg := sc.Params.String("package", "")
	if pkg == "" {
		sc.Log.Error("restart_app requires a 'package' parameter")
		return false
	}

	res := sc.Exec.Run(ctx, sc.DeviceID, Action{
		Kind:    ActionRestartApp,
		Package: pkg,
	}, sc.Config.Settings)
	if !res.Done {
		return false
	}

	if tpl := sc.Params.String("wait_template", ""); tpl != "" {
		res = sc.Exec.Run(ctx, sc.DeviceID, Action{
			Kind:     ActionWaitImage,
			Template: tpl,
			Timeout:  sc.Params.Int("timeout", 0),
		}, sc.Config.Settings)
		return res.Done
	}
	return true
}

// waitMainScreen blocks until a landmark template appears, pressing
// BACK between polls to dismiss popups that cover it.
//
// Params:
//   - template (string, required): the landmark to wait for
//   - timeout (int ms, optional): overall budget, defaults to settings wait_timeout
//   - back_presses (int, optional): max BACK presses while waiting (default 3)
func waitMainScreen(ctx context.Context, sc *StepContext) bool {
	tpl := sc.Params.String("template", "")
	if tpl == "" {
		sc.Log.Error("wait_main_screen requires a 'template' parameter")
		return false
	}

	timeout := sc.Params.Int("timeout", sc.Config.Settings.WaitTimeout)
	backBudget := sc.Params.Int("back_presses", 3)

	// Split the budget so each slice ends with a chance to clear a popup.
	slices := backBudget + 1
	sliceTimeout := timeout / slices
	if sliceTimeout < 1000 {
		sliceTimeout = 1000
	}

	for i := 0; i < slices; i++ {
		res := sc.Exec.Run(ctx, sc.DeviceID, Action{
			Kind:     ActionWaitImage,
			Template: tpl,
			Timeout:  sliceTimeout,
		}, sc.Config.Settings)
		if res.Done {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		if i < slices-1 {
			sc.Exec.Run(ctx, sc.DeviceID, Action{
				Kind:      ActionKeyEvent,
				Code:      4, // KEYCODE_BACK
				WaitAfter: int(time.Second.Milliseconds()),
			}, sc.Config.Settings)
		}
	}

	sc.Log.Warn("main screen not reached", "template", tpl, "timeout_ms", timeout)
	return false
}
