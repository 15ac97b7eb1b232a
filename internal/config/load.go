package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values.
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults keep the service runnable with no configuration at all.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("worker.simulated_duration_ms", 100)
	v.SetDefault("worker.error_percentage", 30)
	v.SetDefault("worker.retry_delay_ms", 500)
	v.SetDefault("worker.idle_timeout_ms", 5000)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.max_workers", 0)
	v.SetDefault("task_log.path", "tasks.log")

	// Optional config file in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables use the TASKPOOL_ prefix with underscores for
	// nesting, e.g. TASKPOOL_SERVER_PORT, TASKPOOL_WORKER_MAX_ATTEMPTS.
	v.SetEnvPrefix("TASKPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
