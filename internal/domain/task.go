package domain

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskState represents the position of a task in its processing lifecycle.
type TaskState string

// Possible task state values
const (
	TaskStateQueued       TaskState = "queued"
	TaskStateInFlight     TaskState = "in_flight"
	TaskStatePendingRetry TaskState = "pending_retry"
	TaskStateCompleted    TaskState = "completed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskPayload = errors.New("task payload cannot be empty")
)

// Task represents a unit of submitted work. It progresses through attempt
// cycles until it either succeeds or exhausts its retries; both outcomes end
// in TaskStateCompleted.
//
// ID and Payload are immutable after creation. Attempts and State are only
// mutated by the dispatcher while it holds its own lock; the completion flag
// is a one-way atomic transition so duplicate or late outcome reports can
// never finalize a task twice.
type Task struct {
	ID        uuid.UUID `json:"id"`
	Payload   string    `json:"payload"`
	Attempts  int       `json:"attempts"`
	State     TaskState `json:"state"`
	CreatedAt time.Time `json:"created_at"`

	completed atomic.Bool
}

// NewTask creates a new Task with the given payload. It generates a new UUID
// for the task ID, sets the state to queued, and records the creation time.
// Returns an error if the payload is empty.
func NewTask(payload string) (*Task, error) {
	if payload == "" {
		return nil, ErrEmptyTaskPayload
	}

	return &Task{
		ID:        uuid.New(),
		Payload:   payload,
		Attempts:  0,
		State:     TaskStateQueued,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Complete marks the task as finalized. It returns true only for the first
// call; every later call returns false. Callers must increment outcome
// counters only when Complete returns true.
func (t *Task) Complete() bool {
	return t.completed.CompareAndSwap(false, true)
}

// Completed reports whether the task has been finalized.
func (t *Task) Completed() bool {
	return t.completed.Load()
}

// IsValidTaskState checks if the given state is a supported enum value.
func IsValidTaskState(state TaskState) bool {
	switch state {
	case TaskStateQueued, TaskStateInFlight, TaskStatePendingRetry, TaskStateCompleted:
		return true
	default:
		return false
	}
}
