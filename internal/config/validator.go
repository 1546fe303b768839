package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateSubscription(cfg.Subscription); err != nil {
		errors = append(errors, err)
	}

	if err := validateVersion(cfg.Version); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeoutSeconds <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	if cfg.Management.Endpoint == "" {
		return &ValidationError{
			Field:   "broker.management.endpoint",
			Message: "management endpoint is required",
		}
	}

	if _, err := url.ParseRequestURI(cfg.Management.Endpoint); err != nil {
		return &ValidationError{
			Field:   "broker.management.endpoint",
			Message: fmt.Sprintf("invalid endpoint URL: %v", err),
		}
	}

	if cfg.Kafka.RuleEventsTopic != "" && len(cfg.Kafka.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "kafka brokers are required when a rule events topic is configured",
		}
	}

	return nil
}

func validateSubscription(cfg SubscriptionConfig) error {
	if cfg.Name == "" {
		return &ValidationError{
			Field:   "subscription.name",
			Message: "subscription name is required",
		}
	}

	if cfg.HandlerIdentity == "" {
		return &ValidationError{
			Field:   "subscription.handler_identity",
			Message: "handler identity is required",
		}
	}

	for i, messageType := range cfg.MessageTypes {
		if strings.TrimSpace(messageType) == "" {
			return &ValidationError{
				Field:   "subscription.message_types",
				Message: fmt.Sprintf("message type at index %d is empty", i),
			}
		}
	}

	if cfg.MaxFilterLength < 0 {
		return &ValidationError{
			Field:   "subscription.max_filter_length",
			Message: "max filter length cannot be negative",
		}
	}

	return nil
}

func validateVersion(version string) error {
	if version == "" {
		return nil // build-time injection may supply it
	}

	trimmed := strings.TrimPrefix(version, "v")
	if len(strings.Split(trimmed, ".")) != 3 {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("version must be major.minor.patch, got %q", version),
		}
	}

	return nil
}
