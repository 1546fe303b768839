package constants

import "time"

// MaxFilterExpressionLength is the broker's documented cap on the length of a
// single subscription filter expression.
const MaxFilterExpressionLength = 1024

// DefaultRuleName is the broker's reserved catch-all rule present on every
// freshly created subscription.
const DefaultRuleName = "$Default"

// Broker-level message properties referenced by generated filter expressions.
const (
	PropertyMessageType        = "MessageType"
	PropertyDomainUnderTest    = "DomainUnderTest"
	PropertySynthetic          = "Synthetic"
	PropertySpecificSubscriber = "SpecificSubscriber"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	DefaultRuleEventsTopic = "rule_change_events"
)

const (
	DefaultReconcileIntervalSeconds = 300
)

const (
	ShutdownTimeout = 5 * time.Second
)
