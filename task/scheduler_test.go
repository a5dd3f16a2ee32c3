package task

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner completes after a fixed number of steps, optionally failing
// on the last one. Each step appends its label to the shared trace.
type fakeRunner struct {
	label string
	left  int
	fail  error
	trace *[]string
	sleep time.Duration
}

func (r *fakeRunner) Label() string { return r.label }

func (r *fakeRunner) Step() (bool, error) {
	if r.trace != nil {
		*r.trace = append(*r.trace, r.label)
	}
	if r.sleep > 0 {
		time.Sleep(r.sleep)
	}
	r.left--
	if r.left > 0 {
		return false, nil
	}
	if r.fail != nil {
		return false, r.fail
	}
	return true, nil
}

func TestSchedulerFIFOOnePerPass(t *testing.T) {
	var trace []string
	s := NewScheduler()
	s.Enqueue(&fakeRunner{label: "a", left: 2, trace: &trace})
	s.Enqueue(&fakeRunner{label: "b", left: 3, trace: &trace})
	s.Enqueue(&fakeRunner{label: "c", left: 1, trace: &trace})

	assert.Equal(t, 3, s.Pending())

	assert.True(t, s.Continue(0))
	assert.Equal(t, []string{"a", "b", "c"}, trace)
	assert.Equal(t, 2, s.Pending())

	assert.True(t, s.Continue(0))
	assert.Equal(t, []string{"a", "b", "c", "a", "b"}, trace)

	assert.False(t, s.Continue(0))
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "b"}, trace)
	assert.Equal(t, 0, s.Pending())
}

func TestSchedulerFailureIsolation(t *testing.T) {
	boom := errors.New("boom")
	var trace []string
	var failed []string
	s := NewScheduler()
	s.TaskCompleted = func(r Runner, err error) {
		if err != nil {
			failed = append(failed, r.Label())
		}
	}
	s.Enqueue(&fakeRunner{label: "a", left: 2, trace: &trace})
	s.Enqueue(&fakeRunner{label: "bad", left: 1, fail: boom, trace: &trace})
	s.Enqueue(&fakeRunner{label: "c", left: 2, trace: &trace})

	s.Continue(0)

	// The failing task is removed without aborting its siblings' pass.
	assert.Equal(t, []string{"a", "bad", "c"}, trace)
	assert.Equal(t, []string{"bad"}, failed)
	assert.Equal(t, 2, s.Pending())

	assert.False(t, s.Continue(0))
}

func TestSchedulerBudgetCutoff(t *testing.T) {
	var trace []string
	s := NewScheduler()
	s.Enqueue(&fakeRunner{label: "slow", left: 2, trace: &trace, sleep: 20 * time.Millisecond})
	s.Enqueue(&fakeRunner{label: "starved", left: 1, trace: &trace})

	// The first step alone exceeds the budget, so the second task keeps
	// its place for the next pass.
	assert.True(t, s.Continue(time.Millisecond))
	assert.Equal(t, []string{"slow"}, trace)
	assert.Equal(t, 2, s.Pending())

	assert.False(t, s.Continue(0))
	assert.Equal(t, []string{"slow", "slow", "starved"}, trace)
}

func TestSchedulerEnqueueDuringPassDeferred(t *testing.T) {
	var trace []string
	s := NewScheduler()
	late := &fakeRunner{label: "late", left: 1, trace: &trace}
	s.TaskCompleted = func(r Runner, err error) {
		if r.Label() == "first" {
			s.Enqueue(late)
		}
	}
	s.Enqueue(&fakeRunner{label: "first", left: 1, trace: &trace})

	// The newly enqueued task is not advanced within the same pass.
	assert.True(t, s.Continue(0))
	assert.Equal(t, []string{"first"}, trace)
	assert.Equal(t, 1, s.Pending())

	assert.False(t, s.Continue(0))
	assert.Equal(t, []string{"first", "late"}, trace)
}

func TestSchedulerCallbacks(t *testing.T) {
	var added, completed []string
	allDone := 0
	s := NewScheduler()
	s.TaskAdded = func(r Runner) { added = append(added, r.Label()) }
	s.TaskCompleted = func(r Runner, err error) {
		require.NoError(t, err)
		completed = append(completed, r.Label())
	}
	s.AllCompleted = func() { allDone++ }

	s.Enqueue(&fakeRunner{label: "a", left: 1})
	s.Enqueue(&fakeRunner{label: "b", left: 2})
	assert.Equal(t, []string{"a", "b"}, added)

	s.Continue(0)
	assert.Equal(t, []string{"a"}, completed)
	assert.Equal(t, 0, allDone)

	s.Continue(0)
	assert.Equal(t, []string{"a", "b"}, completed)
	assert.Equal(t, 1, allDone)

	// An empty pass does not refire the completion callback.
	assert.False(t, s.Continue(0))
	assert.Equal(t, 1, allDone)
}
