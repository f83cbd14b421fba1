package orchestrator

import (
	"context"
	"sort"
	"time"

	"github.com/droidpilot/droidpilot/internal/infrastructure/logging"
)

// checkInterval is how often the scheduler samples the wall clock. It
// is well under a minute so a matching minute is never skipped, while
// the fired-minute dedup keeps each match to a single trigger.
const checkInterval = 15 * time.Second

// Scheduler triggers a fleet-wide run when the wall-clock minute-of-
// hour matches a configured value. At most one trigger fires per
// matching minute; minutes missed while the process was busy are not
// backfilled.
type Scheduler struct {
	minutes map[int]bool
	fire    func()
	log     *logging.Logger

	now func() time.Time

	// lastFired identifies the last minute that triggered, as
	// year*1e6 + yday*1e4 + hour*1e2 + minute, so the same minute
	// never fires twice and distinct hours always can.
	lastFired int
}

// NewScheduler creates a scheduler for the given minutes-of-hour.
// fire is invoked once per matching minute.
func NewScheduler(minutes []int, fire func(), log *logging.Logger) *Scheduler {
	set := make(map[int]bool, len(minutes))
	for _, m := range minutes {
		set[m] = true
	}
	return &Scheduler{
		minutes:   set,
		fire:      fire,
		log:       log,
		now:       time.Now,
		lastFired: -1,
	}
}

// Run samples the clock until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("scheduler started", "run_minutes", s.sortedMinutes())

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check()
		}
	}
}

// check fires when the current minute matches and has not fired yet.
func (s *Scheduler) check() {
	now := s.now()
	if !s.minutes[now.Minute()] {
		return
	}

	key := now.Year()*1_000_000 + now.YearDay()*10_000 + now.Hour()*100 + now.Minute()
	if key == s.lastFired {
		return
	}
	s.lastFired = key

	s.log.Info("scheduled trigger", "minute", now.Minute())
	s.fire()
}

func (s *Scheduler) sortedMinutes() []int {
	out := make([]int, 0, len(s.minutes))
	for m := range s.minutes {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}
