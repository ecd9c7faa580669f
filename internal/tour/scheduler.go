package tour

import (
	"time"

	"github.com/timewalk/tourguide/pkg/core"
)

// snapshot captures the state a delayed action was scheduled under.
type snapshot struct {
	epoch uint64
	scene core.SceneID
	index int
}

type continuation struct {
	name    string
	byTime  bool
	dueTick uint64
	dueTime time.Duration
	snap    snapshot
	run     func()
	// cancel runs instead of run when the snapshot is stale.
	cancel func()
}

func (c *continuation) due(tick uint64, now time.Duration) bool {
	if c.byTime {
		return now >= c.dueTime
	}
	return tick >= c.dueTick
}

// scheduler holds delayed actions driven by the tick loop.
type scheduler struct {
	pending []*continuation
}

func (s *scheduler) afterTicks(tick uint64, n int, c *continuation) {
	c.dueTick = tick + uint64(n)
	s.pending = append(s.pending, c)
}

func (s *scheduler) afterTime(now, d time.Duration, c *continuation) {
	c.byTime = true
	c.dueTime = now + d
	s.pending = append(s.pending, c)
}

// popDue removes and returns the due actions in scheduling order.
func (s *scheduler) popDue(tick uint64, now time.Duration) []*continuation {
	var due []*continuation
	kept := s.pending[:0]
	for _, c := range s.pending {
		if c.due(tick, now) {
			due = append(due, c)
		} else {
			kept = append(kept, c)
		}
	}
	s.pending = kept
	return due
}

// drop removes every pending action, cancelling each.
func (s *scheduler) drop() {
	for _, c := range s.pending {
		if c.cancel != nil {
			c.cancel()
		}
	}
	s.pending = nil
}

func (s *scheduler) len() int { return len(s.pending) }
