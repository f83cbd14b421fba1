// Package orchestrator is the concurrency layer of DroidPilot: one
// worker goroutine per device, a shared command surface fanning
// operator commands out to them, a minute-of-hour scheduler, and a
// configuration hot-reload watcher.
//
// # Run control
//
// Each worker owns a Control carrying its RunState (idle, running,
// paused, stopping). The orchestrator requests transitions; the worker
// observes them at step boundaries through the Control's Gate
// implementation. An in-flight action is never preempted — pause and
// stop land no later than the next step boundary. Stop also suppresses
// any pending next_config chain.
//
// # Triggers
//
// A worker accepts one trigger at a time. Triggers arriving while a
// run (including its configuration chain) is in flight are dropped
// with ErrScheduleConflict and logged, which is exactly the semantics
// the scheduler relies on: a busy device skips its slot rather than
// queueing a backlog.
//
// # Reload
//
// The configuration set swaps atomically and only on a fully
// successful load. Workers resolve configurations at run start, so a
// reload takes effect on the next run and never mid-run.
package orchestrator
