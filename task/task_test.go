package task

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain advances t until it reaches a terminal state, with a cap to keep
// broken tasks from looping forever.
func drain[D, B any](t *testing.T, task *Task[D, B]) (B, error) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		_, done, err := task.Advance()
		if done {
			return task.Result()
		}
		if err != nil {
			return task.Result()
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("task %q did not terminate", task.Label())
	var zero B
	return zero, nil
}

func TestTaskLifecycle(t *testing.T) {
	steps := 0
	task := New("lifecycle", func() (int, error) { return 7, nil },
		func(data int) (string, bool, error) {
			steps++
			if steps < 3 {
				return "", false, nil
			}
			return "seven", true, nil
		})

	assert.Equal(t, StateIdle, task.State())

	_, err := task.Result()
	assert.ErrorIs(t, err, ErrPending)

	// First poll starts the producer.
	_, done, err := task.Advance()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StateRunning, task.State())

	result, err := drain(t, task)
	require.NoError(t, err)
	assert.Equal(t, "seven", result)
	assert.Equal(t, StateFinished, task.State())
	assert.Equal(t, 3, steps)
}

func TestTaskTerminalRepeatable(t *testing.T) {
	task := FromData("repeat", 1, func(int) (int, bool, error) { return 42, true, nil })

	for i := 0; i < 1000; i++ {
		if _, done, _ := task.Advance(); done {
			break
		}
	}

	// Advance after completion returns the same value without calling
	// the generator again.
	for i := 0; i < 3; i++ {
		v, done, err := task.Advance()
		require.NoError(t, err)
		assert.True(t, done)
		assert.Equal(t, 42, v)
	}
}

func TestTaskFromDataSkipsImport(t *testing.T) {
	task := FromData("direct", "payload", func(data string) (string, bool, error) {
		return data + "!", true, nil
	})

	// First poll only transitions out of the idle state.
	_, done, err := task.Advance()
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StateFinished, task.State())

	v, done, err := task.Advance()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "payload!", v)
}

func TestTaskFailedIsTerminal(t *testing.T) {
	cause := errors.New("construction refused")
	task := Failed[int, string]("refused", cause)

	assert.Equal(t, StateFailed, task.State())
	select {
	case <-task.Done():
	default:
		t.Fatal("failed task must be terminal at construction")
	}

	_, err := task.Result()
	assert.ErrorIs(t, err, cause)

	// Stepping a pre-failed task keeps reporting the same error.
	done, err := task.Step()
	assert.False(t, done)
	assert.ErrorIs(t, err, cause)
}

func TestTaskProducerError(t *testing.T) {
	boom := errors.New("boom")
	task := New("bad import", func() (int, error) { return 0, boom },
		func(int) (int, bool, error) {
			t.Fatal("generator must not run after a failed import")
			return 0, false, nil
		})

	_, err := drain(t, task)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "import failed")
	assert.Equal(t, StateFailed, task.State())

	// The failure is sticky.
	_, _, err2 := task.Advance()
	assert.Equal(t, err, err2)
}

func TestTaskGeneratorError(t *testing.T) {
	boom := errors.New("no memory")
	task := FromData("bad generate", 0, func(int) (int, bool, error) {
		return 0, false, boom
	})

	_, err := drain(t, task)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "buffer generation failed")
	assert.Equal(t, StateFailed, task.State())
}

func TestTaskProducerPanic(t *testing.T) {
	task := New("panicky import", func() (int, error) { panic("oops") },
		func(int) (int, bool, error) { return 0, true, nil })

	_, err := drain(t, task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oops")
	assert.Equal(t, StateFailed, task.State())
}

func TestTaskGeneratorPanic(t *testing.T) {
	task := FromData("panicky generate", 0, func(int) (int, bool, error) {
		panic("bad index")
	})

	_, err := drain(t, task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad index")
}

func TestTaskDoneAndWait(t *testing.T) {
	task := New("waited", func() (int, error) { return 5, nil },
		func(data int) (int, bool, error) { return data * 2, true, nil })

	select {
	case <-task.Done():
		t.Fatal("done channel closed before the task ran")
	default:
	}

	got := make(chan int, 1)
	go func() {
		v, err := task.Wait()
		assert.NoError(t, err)
		got <- v
	}()

	sched := NewScheduler()
	sched.Enqueue(task)
	for sched.Continue(0) {
		time.Sleep(time.Millisecond)
	}

	select {
	case v := <-got:
		assert.Equal(t, 10, v)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return")
	}

	<-task.Done()
}
