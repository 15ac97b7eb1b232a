package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nferrell/taskpool-api/internal/domain"
)

// worker is a single unit of concurrent execution. Its lifecycle is
// Idle -> Busy -> Idle -> ... -> Retired: it repeatedly asks the dispatcher
// for work, runs one attempt, reports the outcome, and retires once no work
// arrives within the idle timeout.
//
// A worker owns nothing but its own loop. Task and metrics state live in the
// dispatcher; the only task-local state is the attempt it is currently
// running, and every attempt ends with exactly one Report call.
type worker struct {
	id         int
	dispatcher *Dispatcher
	executor   Executor
	attempts   AttemptLogger
	logger     *slog.Logger
}

func (w *worker) run() {
	defer w.dispatcher.wg.Done()
	defer w.dispatcher.deregister(w.id)

	w.logger.Debug("worker started")

	for {
		t, ok := w.dispatcher.await(w.id)
		if !ok {
			w.logger.Debug("worker retiring")
			return
		}
		w.processAttempt(t)
	}
}

// processAttempt runs one attempt of the task and reports the outcome to the
// dispatcher, no matter how the attempt ended.
func (w *worker) processAttempt(t *domain.Task) {
	// Attempts was advanced at hand-off; this worker holds the only
	// reference to the task until it reports.
	attempt := t.Attempts

	w.attempts.LogAttempt(w.id, t)

	duration, err := w.execute(t)

	success := err == nil
	if err != nil && !errors.Is(err, ErrSimulatedFailure) {
		// Simulated failures are expected and feed the retry machinery
		// silently; anything else is an execution fault worth surfacing.
		w.logger.Error("task attempt failed",
			"task_id", t.ID,
			"attempt", attempt,
			"error", err)
	}

	w.dispatcher.Report(w.id, t, attempt, success, duration)
}

// execute invokes the executor with panic recovery. A panicking attempt is
// converted into a failed attempt so the task is never left permanently in
// flight and the pool never leaks a busy worker.
func (w *worker) execute(t *domain.Task) (duration time.Duration, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			duration = time.Since(start)
			err = fmt.Errorf("attempt panicked: %v", r)
		}
	}()

	return w.executor.Execute(context.Background(), t)
}
