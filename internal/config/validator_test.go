package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                8080,
			ReadTimeoutSeconds:  10,
			WriteTimeoutSeconds: 10,
		},
		Broker: BrokerConfig{
			Management: ManagementConfig{
				Endpoint:       "https://broker.internal:9093/management",
				TimeoutSeconds: 30,
				Retry: RetryConfig{
					MaxAttempts:     3,
					InitialInterval: time.Second,
				},
			},
		},
		Subscription: SubscriptionConfig{
			Name:            "orders-subscription",
			HandlerIdentity: "Contoso.Sales.OrderHandler",
			MessageTypes:    []string{"Contoso.Sales.Events.OrderPlaced"},
		},
		Version: "1.4.0",
	}
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "empty version allowed for build-time injection",
			mutate: func(c *Config) { c.Version = "" },
		},
		{
			name:   "kafka topic with brokers",
			mutate: func(c *Config) {
				c.Broker.Kafka.RuleEventsTopic = "rule_change_events"
				c.Broker.Kafka.Brokers = []string{"kafka:9092"}
			},
		},
		{
			name:      "port out of range",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantError: "server.port",
		},
		{
			name:      "missing management endpoint",
			mutate:    func(c *Config) { c.Broker.Management.Endpoint = "" },
			wantError: "broker.management.endpoint",
		},
		{
			name:      "malformed management endpoint",
			mutate:    func(c *Config) { c.Broker.Management.Endpoint = "not a url" },
			wantError: "broker.management.endpoint",
		},
		{
			name:      "kafka topic without brokers",
			mutate:    func(c *Config) { c.Broker.Kafka.RuleEventsTopic = "rule_change_events" },
			wantError: "broker.kafka.brokers",
		},
		{
			name:      "missing subscription name",
			mutate:    func(c *Config) { c.Subscription.Name = "" },
			wantError: "subscription.name",
		},
		{
			name:      "missing handler identity",
			mutate:    func(c *Config) { c.Subscription.HandlerIdentity = "" },
			wantError: "subscription.handler_identity",
		},
		{
			name:      "blank message type",
			mutate:    func(c *Config) { c.Subscription.MessageTypes = []string{"A", "  "} },
			wantError: "subscription.message_types",
		},
		{
			name:      "negative filter length",
			mutate:    func(c *Config) { c.Subscription.MaxFilterLength = -1 },
			wantError: "subscription.max_filter_length",
		},
		{
			name:      "two-component version",
			mutate:    func(c *Config) { c.Version = "1.4" },
			wantError: "version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantError)
		})
	}
}
