package config

import (
	"time"

	redisinfra "github.com/devwspito/pasos-httpkit/internal/infra/redis"
	"github.com/devwspito/pasos-httpkit/internal/infra/storage/postgres"
	"github.com/devwspito/pasos-httpkit/internal/pipeline"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Client   ClientConfig      `yaml:"client"`
	Retry    RetryConfig       `yaml:"retry"`
	Auth     AuthConfig        `yaml:"auth"`
	Logging  LoggingConfig     `yaml:"logging"`
	Redis    redisinfra.Config `yaml:"redis"`
	Database postgres.Config   `yaml:"database"`
}

// ClientConfig holds transport settings.
type ClientConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	VerboseTrace   bool   `yaml:"verbose_trace"`
}

// Timeout returns the per-attempt timeout.
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryConfig holds retry policy settings.
type RetryConfig struct {
	MaxAttempts       int   `yaml:"max_attempts"`
	DelayMs           int   `yaml:"delay_ms"`
	RetryableStatuses []int `yaml:"retryable_statuses"`
}

// Policy converts the config into a pipeline retry policy. Unset fields keep
// the pipeline defaults.
func (c RetryConfig) Policy() pipeline.RetryPolicy {
	policy := pipeline.RetryPolicy{
		MaxAttempts: c.MaxAttempts,
		Delay:       time.Duration(c.DelayMs) * time.Millisecond,
	}
	if len(c.RetryableStatuses) > 0 {
		policy.RetryableStatuses = make(map[int]struct{}, len(c.RetryableStatuses))
		for _, status := range c.RetryableStatuses {
			policy.RetryableStatuses[status] = struct{}{}
		}
	}
	return policy
}

// AuthConfig holds token source settings. StaticToken is used when no Redis
// URL is configured.
type AuthConfig struct {
	StaticToken string   `yaml:"static_token"`
	Exclusions  []string `yaml:"exclusions"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
