package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig
	Broker         BrokerConfig
	Logging        LoggingConfig
	Subscription   SubscriptionConfig
	Reconcile      ReconcileConfig
	CircuitBreaker CircuitBreakerConfig
	Admin          AdminConfig

	// Version is the deploy version embedded into generated rule names.
	// Normally injected at build time; the config value is a fallback for
	// local runs.
	Version string `mapstructure:"version"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type BrokerConfig struct {
	Management ManagementConfig `mapstructure:"management"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
}

// ManagementConfig locates the broker's rule management API.
type ManagementConfig struct {
	Endpoint       string      `mapstructure:"endpoint"`
	APIKey         string      `mapstructure:"api_key"`
	TimeoutSeconds int         `mapstructure:"timeout_seconds"`
	Retry          RetryConfig `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	RuleEventsTopic string   `mapstructure:"rule_events_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SubscriptionConfig describes the subscription whose rules this service
// owns.
type SubscriptionConfig struct {
	Name                   string   `mapstructure:"name"`
	HandlerIdentity        string   `mapstructure:"handler_identity"`
	MessageTypes           []string `mapstructure:"message_types"`
	OmitSpecificSubscriber bool     `mapstructure:"omit_specific_subscriber"`
	MaxFilterLength        int      `mapstructure:"max_filter_length"`
}

type ReconcileConfig struct {
	IntervalSeconds       int `mapstructure:"interval_seconds"`
	JitterMaxMilliseconds int `mapstructure:"jitter_max_milliseconds"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type AdminConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
