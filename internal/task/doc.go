// Package task implements the task dispatch and retry engine. It provides
// the Dispatcher, which owns the FIFO queue, the demand-grown worker pool,
// the retry policy, and the running statistics counters, along with the
// Executor contract workers use to run a single task attempt.
package task
