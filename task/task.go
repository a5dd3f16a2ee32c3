// Package task implements the staged-task engine and the cooperative
// scheduler that drives asynchronous resource loading: phase 1 produces an
// intermediate data object on a background goroutine, phase 2 converts it
// into a usable buffer across repeated bounded-cost steps on the polling
// goroutine.
package task

import (
	"errors"
	"fmt"
	"sync"
)

// State is the lifecycle state of a staged task.
type State int

const (
	// StateIdle means the background producer has not started yet.
	StateIdle State = iota
	// StateRunning means the producer goroutine is executing.
	StateRunning
	// StateFinished means the data object is available; the generation
	// phase is running or complete.
	StateFinished
	// StateFailed means the task captured an error in either phase.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrPending is returned by Result when the task has not reached a
// terminal outcome yet.
var ErrPending = errors.New("task: result not available yet")

// Runner is the scheduler's view of a staged task.
type Runner interface {
	// Step advances the task by one bounded unit of work. It reports
	// whether the task completed on this call, or the captured failure.
	// Step never blocks and must be called from a single goroutine.
	Step() (done bool, err error)
	Label() string
}

// resultCell is the single-producer/single-consumer handoff between the
// background producer goroutine and the polling goroutine. An explicit
// mutex orders the (value, err) pair before the done flag.
type resultCell[D any] struct {
	mu    sync.Mutex
	done  bool
	value D
	err   error
}

func (c *resultCell[D]) put(value D, err error) {
	c.mu.Lock()
	c.value, c.err, c.done = value, err, true
	c.mu.Unlock()
}

func (c *resultCell[D]) take() (value D, err error, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.done {
		return value, nil, false
	}
	return c.value, c.err, true
}

// Task is a generic two-phase unit of deferred work producing a result of
// type B from intermediate data of type D.
//
// Advance and Step must only be called from the scheduling goroutine.
// Done, Result and Wait are safe for any goroutine.
type Task[D, B any] struct {
	label    string
	produce  func() (D, error)
	generate func(D) (B, bool, error)

	cell resultCell[D]

	state     State
	data      D
	result    B
	completed bool
	err       error

	done chan struct{}
}

// New creates a task whose data object is produced by fn on a background
// goroutine, started lazily on the first Advance. generate is invoked once
// per Advance after the data is available, until it reports completion.
func New[D, B any](label string, produce func() (D, error), generate func(D) (B, bool, error)) *Task[D, B] {
	return &Task[D, B]{
		label:    label,
		produce:  produce,
		generate: generate,
		done:     make(chan struct{}),
	}
}

// FromData creates a task whose import phase is a no-op: the data object
// is already available, and the first Advance moves straight to the
// generation phase.
func FromData[D, B any](label string, data D, generate func(D) (B, bool, error)) *Task[D, B] {
	t := New[D, B](label, nil, generate)
	t.data = data
	return t
}

// Failed creates a task that is already terminal with err. It never runs
// either phase and needs no scheduler to complete.
func Failed[D, B any](label string, err error) *Task[D, B] {
	t := New[D, B](label, nil, nil)
	t.fail(err)
	return t
}

func (t *Task[D, B]) Label() string { return t.label }

// State reports the task's current lifecycle state. Only meaningful on
// the scheduling goroutine while the task is in flight; stable once the
// task is terminal.
func (t *Task[D, B]) State() State { return t.state }

// Done returns a channel closed when the task reaches a terminal state.
func (t *Task[D, B]) Done() <-chan struct{} { return t.done }

// Result returns the terminal outcome. Before the task terminates it
// returns ErrPending.
func (t *Task[D, B]) Result() (B, error) {
	select {
	case <-t.done:
	default:
		var zero B
		return zero, ErrPending
	}
	if t.err != nil {
		var zero B
		return zero, t.err
	}
	return t.result, nil
}

// Wait blocks until the task terminates and returns the outcome. The
// task must be draining through a scheduler on another goroutine, or
// Wait never returns.
func (t *Task[D, B]) Wait() (B, error) {
	<-t.done
	return t.Result()
}

// Advance advances the task by one bounded step. It returns the final
// value exactly once available (and the same value on every later call),
// reports done=false while work remains, and returns the captured failure
// on every call after the task failed. Advance never blocks.
func (t *Task[D, B]) Advance() (B, bool, error) {
	var zero B
	switch t.state {
	case StateFailed:
		return zero, false, t.err

	case StateIdle:
		if t.produce == nil {
			// Data was supplied up front; skip the import phase.
			t.state = StateFinished
			return zero, false, nil
		}
		t.start()
		t.state = StateRunning
		return zero, false, nil

	case StateRunning:
		data, err, ok := t.cell.take()
		if !ok {
			return zero, false, nil
		}
		if err != nil {
			t.fail(fmt.Errorf("%s: import failed: %w", t.label, err))
			return zero, false, t.err
		}
		t.data = data
		t.state = StateFinished
		return zero, false, nil

	default: // StateFinished
		if t.completed {
			return t.result, true, nil
		}
		result, done, err := t.step()
		if err != nil {
			t.fail(fmt.Errorf("%s: buffer generation failed: %w", t.label, err))
			return zero, false, t.err
		}
		if !done {
			return zero, false, nil
		}
		t.result = result
		t.completed = true
		close(t.done)
		return t.result, true, nil
	}
}

// Step adapts Advance to the scheduler's Runner contract.
func (t *Task[D, B]) Step() (bool, error) {
	_, done, err := t.Advance()
	return done, err
}

// step runs one generator invocation, converting a panic into an error.
func (t *Task[D, B]) step() (result B, done bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.generate(t.data)
}

func (t *Task[D, B]) start() {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero D
				t.cell.put(zero, fmt.Errorf("panic: %v", r))
			}
		}()
		t.cell.put(t.produce())
	}()
}

func (t *Task[D, B]) fail(err error) {
	t.err = err
	t.state = StateFailed
	close(t.done)
}
