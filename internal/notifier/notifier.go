package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rulesync/internal/broker"
	"rulesync/internal/rules"
	"rulesync/pkg/models"
)

// RuleEventProducer publishes an event whenever a reconciliation pass
// changed the broker's rule set. Consumers use it to invalidate caches or
// audit rollouts. Publishing is best effort: a nil producer or empty topic
// disables it.
type RuleEventProducer struct {
	producer broker.Producer
	topic    string
}

func NewRuleEventProducer(producer broker.Producer, topic string) *RuleEventProducer {
	return &RuleEventProducer{
		producer: producer,
		topic:    topic,
	}
}

func (p *RuleEventProducer) PublishRulesReconciled(ctx context.Context, subscription string, version rules.Version, result rules.Result) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}

	event := models.RulesReconciledEvent{
		EventType:    models.EventTypeRulesReconciled,
		Subscription: subscription,
		Version:      version.String(),
		AddedRules:   result.Added,
		RemovedRules: result.Removed,
		Timestamp:    time.Now(),
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal rule event: %w", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(eventJSON, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal event payload: %w", err)
	}

	envelope := models.EventEnvelope{
		ID:        uuid.New().String(),
		Source:    "rulesync-service",
		Timestamp: time.Now(),
		Payload:   payload,
	}

	return p.producer.Publish(ctx, p.topic, envelope)
}
