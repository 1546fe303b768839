package models

import "time"

// EventEnvelope is the wire shape of events published to the rule-change
// topic.
type EventEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

const (
	EventTypeRulesReconciled = "subscription.rules.reconciled"
)

// RulesReconciledEvent describes a reconciliation pass that changed the
// broker's rule set.
type RulesReconciledEvent struct {
	EventType    string    `json:"event_type"`
	Subscription string    `json:"subscription"`
	Version      string    `json:"version"`
	AddedRules   []string  `json:"added_rules"`
	RemovedRules []string  `json:"removed_rules"`
	Timestamp    time.Time `json:"timestamp"`
}
