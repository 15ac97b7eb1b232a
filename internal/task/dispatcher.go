package task

import (
	"errors"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/nferrell/taskpool-api/internal/domain"
)

// ErrDispatcherClosed is returned by Submit once Close has been called.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// AttemptLogger receives a notification for every attempt a worker starts.
// Implementations must be safe for concurrent use; the dispatcher never
// blocks task processing on the logger.
type AttemptLogger interface {
	LogAttempt(workerID int, t *domain.Task)
}

// noopAttemptLogger is used when no attempt logger is configured.
type noopAttemptLogger struct{}

func (noopAttemptLogger) LogAttempt(int, *domain.Task) {}

// DispatcherConfig holds the tuning knobs for the dispatch and retry engine.
type DispatcherConfig struct {
	// MaxWorkers bounds the worker pool. If zero or negative it defaults to
	// the host CPU core count (at least 1).
	MaxWorkers int

	// MaxAttempts is the maximum number of attempts a task may make before
	// it is finalized as failed. Values below 1 default to 1.
	MaxAttempts int

	// RetryDelay is how long a failed task waits before re-entering the
	// queue at the tail.
	RetryDelay time.Duration

	// IdleTimeout is how long a worker waits for work before retiring.
	IdleTimeout time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with reasonable defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxWorkers:  runtime.NumCPU(),
		MaxAttempts: 3,
		RetryDelay:  500 * time.Millisecond,
		IdleTimeout: 5 * time.Second,
	}
}

// workerState tracks the pool registry entry for a single worker.
type workerState struct {
	busy bool
}

// waiter represents an idle worker blocked waiting for a task. The channel
// has capacity 1 and receives at most one value: either a task handed off
// under the dispatcher lock, or nil when the dispatcher is closing.
type waiter struct {
	workerID int
	ch       chan *domain.Task
}

// Dispatcher owns the task queue, the worker pool, and the retry policy.
// It is the sole mutator of task and metrics state: every mutation of the
// queue, the pool registry, task attempt counters, and the statistics
// counters happens inside its single mutex.
//
// Workers obtain tasks through a pull model: each worker blocks in await,
// racing task arrival against its idle timeout. Hand-off is FIFO among
// waiting tasks, and the task's attempt counter is incremented exactly once
// per hand-off, under the lock, at the moment of hand-off.
type Dispatcher struct {
	cfg      DispatcherConfig
	executor Executor
	attempts AttemptLogger
	logger   *slog.Logger

	mu           sync.Mutex
	queue        []*domain.Task
	waiters      []*waiter
	workers      map[int]*workerState
	nextWorkerID int
	closed       bool

	totalAttempts int
	totalDuration time.Duration
	retries       int
	succeeded     int
	failed        int

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with no workers; the pool grows on
// demand as tasks are submitted. A nil attempt logger disables attempt
// logging.
func NewDispatcher(
	cfg DispatcherConfig,
	executor Executor,
	attempts AttemptLogger,
	logger *slog.Logger,
) *Dispatcher {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if attempts == nil {
		attempts = noopAttemptLogger{}
	}

	return &Dispatcher{
		cfg:      cfg,
		executor: executor,
		attempts: attempts,
		logger:   logger,
		workers:  make(map[int]*workerState),
	}
}

// Submit creates a task for the given payload and enqueues it at the tail
// of the FIFO queue. It returns immediately, without waiting for processing.
// Submission only fails when the payload is empty or the dispatcher has been
// closed.
func (d *Dispatcher) Submit(payload string) (*domain.Task, error) {
	t, err := domain.NewTask(payload)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrDispatcherClosed
	}

	d.deliverLocked(t)
	d.growLocked()

	d.logger.Debug("task submitted",
		"task_id", t.ID,
		"queue_length", len(d.queue))

	return t, nil
}

// Stats returns a consistent snapshot of the aggregate metrics.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	processed := d.succeeded + d.failed
	idle := d.idleLocked()

	s := Stats{
		ProcessedTasks: processed,
		Retries:        d.retries,
		Succeeded:      d.succeeded,
		Failed:         d.failed,
		QueueLength:    len(d.queue),
		IdleWorkers:    idle,
		BusyWorkers:    len(d.workers) - idle,
	}
	if processed > 0 {
		s.SuccessRate = float64(d.succeeded) / float64(processed)
	}
	if d.totalAttempts > 0 {
		s.AverageProcessingTimeMs = int64(math.Round(
			float64(d.totalDuration.Milliseconds()) / float64(d.totalAttempts)))
	}
	return s
}

// Close stops accepting submissions, retires all workers, and waits for any
// in-flight attempts to report. Queued and pending-retry tasks are dropped;
// the queue is not durable by design.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true

	// Wake every idle worker so it can retire instead of waiting out its
	// idle timeout.
	for _, w := range d.waiters {
		w.ch <- nil
	}
	d.waiters = nil
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info("dispatcher closed")
}

// Report records the outcome of one attempt. Workers call it exactly once
// per attempt they performed, including attempts that ended in a panic.
//
// The attempt always feeds the running totals. A success finalizes the task
// if it has not been finalized yet. A failure below the attempt limit books
// a retry and schedules re-insertion at the tail of the queue after the
// retry delay; a failure at the limit finalizes the task as failed. The
// finalization guard on the task itself makes duplicate or late reports
// harmless.
func (d *Dispatcher) Report(workerID int, t *domain.Task, attempt int, success bool, duration time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.totalAttempts++
	d.totalDuration += duration

	if w, ok := d.workers[workerID]; ok {
		w.busy = false
	}

	switch {
	case success:
		if t.Complete() {
			t.State = domain.TaskStateCompleted
			d.succeeded++
			d.logger.Debug("task succeeded",
				"task_id", t.ID,
				"attempt", attempt,
				"duration_ms", duration.Milliseconds())
		}
	case attempt < d.cfg.MaxAttempts:
		d.retries++
		t.State = domain.TaskStatePendingRetry
		d.logger.Debug("task attempt failed, retry scheduled",
			"task_id", t.ID,
			"attempt", attempt,
			"retry_delay", d.cfg.RetryDelay)
		// The delay runs on a timer so it never holds the lock and never
		// blocks the reporting worker.
		time.AfterFunc(d.cfg.RetryDelay, func() { d.requeue(t) })
	default:
		if t.Complete() {
			t.State = domain.TaskStateCompleted
			d.failed++
			d.logger.Info("task failed permanently",
				"task_id", t.ID,
				"attempts", attempt)
		}
	}
}

// await blocks until a task is handed to the worker or its idle timeout
// elapses. It returns (nil, false) when the worker should retire.
func (d *Dispatcher) await(workerID int) (*domain.Task, bool) {
	d.mu.Lock()

	if d.closed {
		d.mu.Unlock()
		return nil, false
	}

	if len(d.queue) > 0 {
		t := d.queue[0]
		d.queue = d.queue[1:]
		d.handOffLocked(t, workerID)
		d.mu.Unlock()
		return t, true
	}

	w := &waiter{workerID: workerID, ch: make(chan *domain.Task, 1)}
	d.waiters = append(d.waiters, w)
	d.mu.Unlock()

	timer := time.NewTimer(d.cfg.IdleTimeout)
	defer timer.Stop()

	select {
	case t := <-w.ch:
		if t == nil {
			return nil, false
		}
		return t, true
	case <-timer.C:
		if d.cancelWait(w) {
			return nil, false
		}
		// Lost the race: a task (or a close notification) was already
		// handed off while the timer fired.
		t := <-w.ch
		if t == nil {
			return nil, false
		}
		return t, true
	}
}

// cancelWait removes the waiter from the wait list. It returns false when
// the waiter has already been handed a value, in which case the caller must
// drain the channel.
func (d *Dispatcher) cancelWait(w *waiter) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, cand := range d.waiters {
		if cand == w {
			d.waiters = append(d.waiters[:i], d.waiters[i+1:]...)
			return true
		}
	}
	return false
}

// requeue re-inserts a task at the tail of the then-current queue once its
// retry delay has elapsed. A retried task deliberately does not jump ahead
// of fresh tasks that arrived during the delay.
func (d *Dispatcher) requeue(t *domain.Task) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.deliverLocked(t)
	d.growLocked()
}

// deliverLocked hands the task straight to the longest-waiting idle worker,
// or appends it to the queue tail when none is waiting.
func (d *Dispatcher) deliverLocked(t *domain.Task) {
	if len(d.waiters) > 0 {
		w := d.waiters[0]
		d.waiters = d.waiters[1:]
		d.handOffLocked(t, w.workerID)
		w.ch <- t
		return
	}

	t.State = domain.TaskStateQueued
	d.queue = append(d.queue, t)
}

// handOffLocked marks the transfer of task ownership to a worker. The
// attempt counter is incremented here and only here, so numbering stays in
// lockstep with actual hand-offs.
func (d *Dispatcher) handOffLocked(t *domain.Task, workerID int) {
	t.Attempts++
	t.State = domain.TaskStateInFlight
	if w, ok := d.workers[workerID]; ok {
		w.busy = true
	}
}

// growLocked makes at most one spawn decision: if demand exceeds the idle
// supply and the pool is below its cap, start exactly one new worker.
func (d *Dispatcher) growLocked() {
	if d.closed {
		return
	}
	if len(d.queue) > d.idleLocked() && len(d.workers) < d.cfg.MaxWorkers {
		d.spawnLocked()
	}
}

// spawnLocked registers and starts one worker.
func (d *Dispatcher) spawnLocked() {
	id := d.nextWorkerID
	d.nextWorkerID++
	d.workers[id] = &workerState{}

	w := &worker{
		id:         id,
		dispatcher: d,
		executor:   d.executor,
		attempts:   d.attempts,
		logger:     d.logger.With("worker_id", id),
	}

	d.wg.Add(1)
	go w.run()

	d.logger.Debug("worker spawned",
		"worker_id", id,
		"pool_size", len(d.workers))
}

// deregister removes a retired worker from the pool registry. A task can be
// submitted in the window between the worker's idle timer firing and its
// deregistration; the growth check at submit time counted the retiring
// worker as idle supply, so the shrink must re-evaluate demand or that task
// would sit queued with nothing left to serve it.
func (d *Dispatcher) deregister(workerID int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.workers, workerID)
	d.growLocked()
}

// idleLocked counts workers that are registered but not busy.
func (d *Dispatcher) idleLocked() int {
	idle := 0
	for _, w := range d.workers {
		if !w.busy {
			idle++
		}
	}
	return idle
}
