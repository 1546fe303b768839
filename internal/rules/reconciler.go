package rules

import (
	"context"
	"errors"
	"fmt"

	"rulesync/internal/logger"
)

// ErrMessageTypesChanged is returned when the deployed rule set was built at
// the current version from a different message-type set. The same version
// must always correspond to the same message types; reconciliation fails
// fast rather than guessing which rules to touch.
var ErrMessageTypesChanged = errors.New("message types changed without a version bump")

// Result summarizes the actions a reconciliation pass performed.
type Result struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
	// SkippedNewerDeployment is set when a deployed rule carries a version
	// newer than this build, which makes the whole pass a deliberate no-op.
	SkippedNewerDeployment bool `json:"skipped_newer_deployment"`
}

// Reconciler converges the broker's deployed rule set onto the desired one,
// issuing the minimal add/remove delta through the applier. It holds no
// state between calls; the deployed set is supplied fresh every pass, so
// re-running after a partial failure converges to the same end state.
type Reconciler struct {
	applier  RuleApplier
	versions VersionSource
	logger   logger.Logger
}

func NewReconciler(applier RuleApplier, versions VersionSource, log logger.Logger) *Reconciler {
	return &Reconciler{
		applier:  applier,
		versions: versions,
		logger:   log,
	}
}

type deployedState struct {
	rule   DeployedRule
	parsed ParsedRuleName
}

// Reconcile compares the desired rules against the deployed ones and drives
// the applier. messageTypes is the full list the desired set was generated
// from; it backs the same-version divergence check.
//
// Additions are issued before removals so the subscription never has a
// window with no matching rule. Applier errors propagate unmodified; the
// caller may re-run the whole pass after its own retry/backoff.
func (r *Reconciler) Reconcile(ctx context.Context, desired []RuleDefinition, deployed []DeployedRule, messageTypes []string) (Result, error) {
	current := r.versions.GetVersion()

	states := make([]deployedState, 0, len(deployed))
	for _, d := range deployed {
		parsed, err := DecodeRuleName(d.Name)
		if err != nil {
			return Result{}, fmt.Errorf("failed to decode deployed rule %q: %w", d.Name, err)
		}
		states = append(states, deployedState{rule: d, parsed: parsed})
	}

	// A deployed rule newer than this build means a newer rollout is already
	// in progress elsewhere. Touching anything would regress it, so the
	// whole pass becomes a no-op. Checked upfront, before any diffing.
	for _, s := range states {
		if s.parsed.HasVersion && s.parsed.Version.Compare(current) > 0 {
			r.logger.WarnwCtx(ctx, "Deployed rule is newer than this build, skipping reconciliation",
				"rule_name", s.rule.Name,
				"rule_version", s.parsed.Version.String(),
				"current_version", current.String(),
			)
			return Result{SkippedNewerDeployment: true}, nil
		}
	}

	if err := r.checkSameVersionDivergence(desired, states, current, len(messageTypes)); err != nil {
		return Result{}, err
	}

	var result Result

	deployedNames := make(map[string]struct{}, len(states))
	for _, s := range states {
		deployedNames[s.rule.Name] = struct{}{}
	}

	for _, d := range desired {
		if _, exists := deployedNames[d.Name]; exists {
			continue
		}
		if err := r.applier.AddRule(ctx, d); err != nil {
			return result, fmt.Errorf("failed to add rule %q: %w", d.Name, err)
		}
		r.logger.InfowCtx(ctx, "Added subscription rule",
			"rule_name", d.Name,
			"expression_length", len(d.FilterExpression),
		)
		result.Added = append(result.Added, d.Name)
	}

	for _, s := range states {
		if !r.shouldRemove(s.parsed, current) {
			continue
		}
		if err := r.applier.RemoveRule(ctx, s.rule); err != nil {
			return result, fmt.Errorf("failed to remove rule %q: %w", s.rule.Name, err)
		}
		r.logger.InfowCtx(ctx, "Removed stale subscription rule",
			"rule_name", s.rule.Name,
			"rule_format", s.parsed.Format.String(),
		)
		result.Removed = append(result.Removed, s.rule.Name)
	}

	return result, nil
}

// checkSameVersionDivergence fails the pass when rules already deployed at
// the current version do not line up with the desired set. A deployed
// current-version rule that is absent from the desired names means the
// ordinal structure shrank; a matching name with a different expression
// means the message-type set changed under the same version. Rules from
// older versions are exempt: a partially applied previous pass must remain
// recoverable.
//
// A pure append that only starts new ordinals, leaving every deployed
// expression byte-identical, is indistinguishable from such a partial pass
// and proceeds as additions.
func (r *Reconciler) checkSameVersionDivergence(desired []RuleDefinition, states []deployedState, current Version, messageTypeCount int) error {
	desiredByName := make(map[string]RuleDefinition, len(desired))
	for _, d := range desired {
		desiredByName[d.Name] = d
	}

	for _, s := range states {
		if s.parsed.Format != FormatCurrent || s.parsed.Version.Compare(current) != 0 {
			continue
		}
		want, ok := desiredByName[s.rule.Name]
		if !ok {
			return fmt.Errorf("%w: rule %q deployed at version %s has no desired counterpart (%d message types in force)",
				ErrMessageTypesChanged, s.rule.Name, current.String(), messageTypeCount)
		}
		if want.FilterExpression != s.rule.FilterExpression {
			return fmt.Errorf("%w: rule %q deployed at version %s no longer matches the generated expression",
				ErrMessageTypesChanged, s.rule.Name, current.String())
		}
	}

	return nil
}

// shouldRemove decides whether a deployed rule is stale relative to the
// current version. Anything older goes, as does every legacy-named rule at
// or below the current version: a legacy rule at version parity has been
// functionally superseded by its new-format equivalent. Legacy rules with
// no version information at all are always inferior.
func (r *Reconciler) shouldRemove(parsed ParsedRuleName, current Version) bool {
	if !parsed.HasVersion {
		return true
	}
	if parsed.Version.Compare(current) < 0 {
		return true
	}
	if parsed.Format == FormatLegacy && parsed.Version.Compare(current) == 0 {
		return true
	}
	return false
}
