package task

// Stats is a point-in-time snapshot of the dispatcher's aggregate metrics.
// It is derived from monotonically increasing counters plus the live queue
// and pool sizes, never by scanning task history.
type Stats struct {
	// ProcessedTasks is the number of tasks finalized, successfully or not.
	ProcessedTasks int `json:"processedTasks"`

	// Retries is the number of failed attempts that were rescheduled.
	Retries int `json:"retries"`

	// Succeeded is the number of tasks finalized as successful.
	Succeeded int `json:"succeeded"`

	// Failed is the number of tasks finalized after exhausting all attempts.
	Failed int `json:"failed"`

	// SuccessRate is Succeeded / ProcessedTasks, or 0 when nothing has been
	// processed yet.
	SuccessRate float64 `json:"successRate"`

	// AverageProcessingTimeMs is the rounded mean attempt duration in
	// milliseconds across all attempts, or 0 when there have been none.
	AverageProcessingTimeMs int64 `json:"averageProcessingTimeMsPerAttempt"`

	// QueueLength is the number of tasks currently waiting, not in flight.
	QueueLength int `json:"queueLength"`

	// IdleWorkers and BusyWorkers partition the current pool.
	IdleWorkers int `json:"idleWorkers"`
	BusyWorkers int `json:"busyWorkers"`
}
