package config

// Config holds all application configuration, organized into logical groups.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"   validate:"required"`
	Worker  WorkerConfig  `mapstructure:"worker"   validate:"required"`
	TaskLog TaskLogConfig `mapstructure:"task_log"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// WorkerConfig contains the settings of the dispatch and retry engine,
// including the parameters of the simulated task execution.
type WorkerConfig struct {
	// SimulatedDurationMs is how long a simulated attempt takes.
	SimulatedDurationMs int `mapstructure:"simulated_duration_ms" validate:"gte=0"`

	// ErrorPercentage is the probability (0-100) that a simulated attempt
	// fails.
	ErrorPercentage int `mapstructure:"error_percentage" validate:"gte=0,lte=100"`

	// RetryDelayMs is how long a failed task waits before being requeued.
	RetryDelayMs int `mapstructure:"retry_delay_ms" validate:"gte=0"`

	// IdleTimeoutMs is how long a worker waits for work before retiring.
	IdleTimeoutMs int `mapstructure:"idle_timeout_ms" validate:"gt=0"`

	// MaxAttempts is the maximum number of attempts per task.
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=1"`

	// MaxWorkers bounds the worker pool. Zero means "use the host CPU core
	// count".
	MaxWorkers int `mapstructure:"max_workers" validate:"gte=0"`
}

// TaskLogConfig contains the append-only attempt log settings.
type TaskLogConfig struct {
	// Path is the file the attempt log is appended to. Empty disables the
	// log.
	Path string `mapstructure:"path"`
}
