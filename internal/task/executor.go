package task

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/nferrell/taskpool-api/internal/domain"
)

// ErrSimulatedFailure is returned by SimulatedExecutor when the random draw
// lands inside the configured error percentage. It is an expected outcome
// that drives the retry state machine, not an operational error.
var ErrSimulatedFailure = errors.New("simulated task failure")

// Executor runs a single attempt of a task and returns the elapsed
// wall-clock duration of the attempt. A nil error means the attempt
// succeeded. Implementations may be substituted with genuine task execution
// without changing the dispatcher or worker contracts.
type Executor interface {
	Execute(ctx context.Context, t *domain.Task) (time.Duration, error)
}

// SimulatedExecutor stands in for real work: it sleeps for a fixed duration
// and then fails with a configured probability.
type SimulatedExecutor struct {
	duration     time.Duration
	errorPercent int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedExecutor creates a SimulatedExecutor with the given attempt
// duration and failure percentage. The percentage is clamped to [0, 100].
func NewSimulatedExecutor(duration time.Duration, errorPercent int) *SimulatedExecutor {
	if errorPercent < 0 {
		errorPercent = 0
	}
	if errorPercent > 100 {
		errorPercent = 100
	}

	return &SimulatedExecutor{
		duration:     duration,
		errorPercent: errorPercent,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute sleeps for the configured duration, then draws a uniform random
// number to decide the outcome. The returned duration is the elapsed
// wall-clock time of the attempt.
func (e *SimulatedExecutor) Execute(ctx context.Context, t *domain.Task) (time.Duration, error) {
	start := time.Now()

	if e.duration > 0 {
		timer := time.NewTimer(e.duration)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return time.Since(start), ctx.Err()
		case <-timer.C:
		}
	}

	e.mu.Lock()
	draw := e.rng.Intn(100)
	e.mu.Unlock()

	if draw < e.errorPercent {
		return time.Since(start), ErrSimulatedFailure
	}
	return time.Since(start), nil
}
