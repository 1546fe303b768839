package rules

import "context"

// RuleDefinition is a filter rule as this service wants it to exist on the
// broker. Immutable once created; reconciliation replaces rules, it never
// edits them in place.
type RuleDefinition struct {
	Name             string `json:"name"`
	FilterExpression string `json:"filter_expression"`
}

// DeployedRule is a filter rule as it currently exists on the broker,
// sourced from the management API at the start of a reconciliation pass.
type DeployedRule struct {
	Name             string `json:"name"`
	FilterExpression string `json:"filter_expression"`
}

// VersionSource supplies the version the running build was deployed at.
type VersionSource interface {
	GetVersion() Version
}

// StaticVersionSource returns a fixed version, resolved once at startup.
type StaticVersionSource struct {
	version Version
}

func NewStaticVersionSource(v Version) *StaticVersionSource {
	return &StaticVersionSource{version: v}
}

func (s *StaticVersionSource) GetVersion() Version {
	return s.version
}

// RuleApplier performs a single rule mutation against the broker. Each call
// is an independent network operation; failures surface to the caller and
// are never retried here.
type RuleApplier interface {
	AddRule(ctx context.Context, rule RuleDefinition) error
	RemoveRule(ctx context.Context, rule DeployedRule) error
}
