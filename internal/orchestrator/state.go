package orchestrator

import (
	"context"
	"sync"

	"github.com/droidpilot/droidpilot/internal/automation"
)

// RunState is a worker's control state.
type RunState string

const (
	StateIdle     RunState = "idle"
	StateRunning  RunState = "running"
	StatePaused   RunState = "paused"
	StateStopping RunState = "stopping"
)

// Control is the per-worker run-control state. The orchestrator
// requests transitions (Pause, Resume, Stop); the worker observes them
// at step boundaries through Wait, so an in-flight action always
// completes before a transition lands.
//
// Control implements automation.Gate.
type Control struct {
	mu       sync.Mutex
	state    RunState
	paused   bool
	stopping bool

	// resumeCh is closed to release paused waiters. Replaced on every
	// new pause.
	resumeCh chan struct{}
}

// NewControl creates a control in the idle state.
func NewControl() *Control {
	return &Control{state: StateIdle}
}

// State returns the current reported state.
func (c *Control) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// setState is called by the worker as it moves through its loop.
func (c *Control) setState(s RunState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Pause requests the worker hold at its next step boundary.
func (c *Control) Pause() {
	c.mu.Lock()
	if !c.paused && !c.stopping {
		c.paused = true
		c.resumeCh = make(chan struct{})
	}
	c.mu.Unlock()
}

// Resume releases a paused worker.
func (c *Control) Resume() {
	c.mu.Lock()
	if c.paused {
		c.paused = false
		close(c.resumeCh)
	}
	c.mu.Unlock()
}

// Stop requests the worker unwind at its next step boundary. A paused
// worker is released so it can observe the stop.
func (c *Control) Stop() {
	c.mu.Lock()
	c.stopping = true
	c.state = StateStopping
	if c.paused {
		c.paused = false
		close(c.resumeCh)
	}
	c.mu.Unlock()
}

// clearStop resets the stop request once the run has unwound.
func (c *Control) clearStop() {
	c.mu.Lock()
	c.stopping = false
	c.mu.Unlock()
}

// Wait blocks while paused and reports a pending stop. Called by the
// configuration runner before every step.
func (c *Control) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.stopping {
			c.mu.Unlock()
			return automation.ErrStopRequested
		}
		if !c.paused {
			if c.state == StatePaused {
				c.state = StateRunning
			}
			c.mu.Unlock()
			return nil
		}
		c.state = StatePaused
		ch := c.resumeCh
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
