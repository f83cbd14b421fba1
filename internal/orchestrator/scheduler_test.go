package orchestrator

import (
	"testing"
	"time"

	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
)

func newTestScheduler(minutes []int) (*Scheduler, *int) {
	fired := 0
	s := NewScheduler(minutes, func() { fired++ }, logging.Default())
	return s, &fired
}

func at(hour, minute, sec int) time.Time {
	return time.Date(2026, time.March, 15, hour, minute, sec, 0, time.UTC)
}

func TestSchedulerFiresOncePerMatchingMinute(t *testing.T) {
	s, fired := newTestScheduler([]int{30})

	// Three samples inside the same minute: one trigger.
	for _, sec := range []int{2, 17, 47} {
		s.now = func() time.Time { return at(9, 30, sec) }
		s.check()
	}

	if *fired != 1 {
		t.Errorf("fired = %d, want 1", *fired)
	}
}

func TestSchedulerSameMinuteNextHourFiresAgain(t *testing.T) {
	s, fired := newTestScheduler([]int{30})

	s.now = func() time.Time { return at(9, 30, 5) }
	s.check()
	s.now = func() time.Time { return at(10, 30, 5) }
	s.check()

	if *fired != 2 {
		t.Errorf("fired = %d, want 2 (one per hour)", *fired)
	}
}

func TestSchedulerIgnoresNonMatchingMinute(t *testing.T) {
	s, fired := newTestScheduler([]int{0, 30})

	s.now = func() time.Time { return at(9, 31, 0) }
	s.check()

	if *fired != 0 {
		t.Errorf("fired = %d, want 0", *fired)
	}
}

func TestSchedulerDoesNotBackfillMissedMinutes(t *testing.T) {
	s, fired := newTestScheduler([]int{10, 20, 30})

	// Clock jumps from 9:10 straight past 9:20; only the minute seen
	// at sample time fires.
	s.now = func() time.Time { return at(9, 10, 0) }
	s.check()
	s.now = func() time.Time { return at(9, 30, 0) }
	s.check()

	if *fired != 2 {
		t.Errorf("fired = %d, want 2 (9:20 not backfilled)", *fired)
	}
}

func TestSchedulerMultipleMinutes(t *testing.T) {
	s, fired := newTestScheduler([]int{0, 15, 45})

	for _, m := range []int{0, 15, 45} {
		s.now = func() time.Time { return at(14, m, 1) }
		s.check()
	}

	if *fired != 3 {
		t.Errorf("fired = %d, want 3", *fired)
	}
}
