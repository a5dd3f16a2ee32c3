package task

import (
	"log"
	"time"
)

// Scheduler owns the set of in-flight staged tasks and advances each of
// them by one bounded step per pass. All methods must be called from the
// same goroutine, conventionally the one driving the frame loop.
type Scheduler struct {
	active []Runner

	// TaskAdded fires when a task enters the active set.
	TaskAdded func(Runner)
	// TaskCompleted fires when a task leaves the active set, for both
	// success and failure; err is nil on success.
	TaskCompleted func(Runner, error)
	// AllCompleted fires when a pass empties the active set.
	AllCompleted func()
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Pending returns the number of tasks in the active set.
func (s *Scheduler) Pending() int { return len(s.active) }

// Enqueue adds a task to the active set. A task enqueued during a
// Continue pass is not advanced until the next pass.
func (s *Scheduler) Enqueue(r Runner) {
	s.active = append(s.active, r)
	if s.TaskAdded != nil {
		s.TaskAdded(r)
	}
}

// Continue performs one scheduling pass: it advances each task that was
// active at the start of the pass at most once, in enqueue order,
// stopping early once the cumulative elapsed time exceeds budget
// (budget <= 0 means unlimited). Tasks that reach a terminal state are
// removed within the pass. Task failures are surfaced through
// TaskCompleted and never abort the pass for sibling tasks.
//
// Continue reports whether active tasks remain.
func (s *Scheduler) Continue(budget time.Duration) bool {
	n := len(s.active)
	if n == 0 {
		return false
	}
	start := time.Now()
	survivors := make([]Runner, 0, n)
	for i := 0; i < n; i++ {
		r := s.active[i]
		done, err := r.Step()
		if done || err != nil {
			if err != nil {
				log.Printf("scheduler: task %q failed: %v", r.Label(), err)
			}
			if s.TaskCompleted != nil {
				s.TaskCompleted(r, err)
			}
		} else {
			survivors = append(survivors, r)
		}
		if budget > 0 && time.Since(start) > budget {
			survivors = append(survivors, s.active[i+1:n]...)
			break
		}
	}
	// Tasks enqueued by callbacks during this pass sit past index n.
	s.active = append(survivors, s.active[n:]...)
	if len(s.active) == 0 && s.AllCompleted != nil {
		s.AllCompleted()
	}
	return len(s.active) > 0
}
