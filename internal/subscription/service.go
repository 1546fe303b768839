package subscription

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"rulesync/internal/config"
	"rulesync/internal/constants"
	"rulesync/internal/logger"
	"rulesync/internal/notifier"
	"rulesync/internal/rules"
	pkgerrors "rulesync/pkg/errors"
	"rulesync/pkg/logging"
	"rulesync/pkg/metrics"
)

// Reconciliation pass outcomes, used as metric labels.
const (
	outcomeConverged    = "converged"
	outcomeChanged      = "changed"
	outcomeSkippedNewer = "skipped_newer"
	outcomeInvalidState = "invalid_state"
	outcomeError        = "error"
)

// Service owns the rule lifecycle for one subscription: it generates the
// desired rule set from configuration, reads the deployed set from the
// broker, and reconciles the two, optionally announcing changes on the rule
// events topic.
type Service struct {
	cfg          config.SubscriptionConfig
	reconcileCfg config.ReconcileConfig
	generator    *rules.Generator
	reconciler   *rules.Reconciler
	client       *Client
	versions     rules.VersionSource
	events       *notifier.RuleEventProducer
	logger       logger.Logger
}

func NewService(
	cfg config.SubscriptionConfig,
	reconcileCfg config.ReconcileConfig,
	client *Client,
	versions rules.VersionSource,
	events *notifier.RuleEventProducer,
	log logger.Logger,
) *Service {
	return &Service{
		cfg:          cfg,
		reconcileCfg: reconcileCfg,
		generator:    rules.NewGenerator(cfg.Name, cfg.MaxFilterLength),
		reconciler:   rules.NewReconciler(client, versions, log),
		client:       client,
		versions:     versions,
		events:       events,
		logger:       log,
	}
}

// DesiredRules generates the rule set this deployment wants on the broker.
func (s *Service) DesiredRules() ([]rules.RuleDefinition, error) {
	return s.generator.Generate(
		s.cfg.MessageTypes,
		s.cfg.HandlerIdentity,
		s.cfg.OmitSpecificSubscriber,
		s.versions.GetVersion(),
	)
}

// DeployedRules reads the rules currently present on the broker.
func (s *Service) DeployedRules(ctx context.Context) ([]rules.DeployedRule, error) {
	return s.client.ListRules(ctx)
}

// RunReconciliation executes one full pass: generate, read, diff, apply.
func (s *Service) RunReconciliation(ctx context.Context) (rules.Result, error) {
	passCtx := logging.WithPassID(ctx, uuid.New().String())
	passCtx = logging.WithSubscription(passCtx, s.cfg.Name)

	start := time.Now()

	desired, err := s.DesiredRules()
	if err != nil {
		metrics.ReconcilePassesTotal.WithLabelValues(outcomeError).Inc()
		return rules.Result{}, pkgerrors.ErrValidation.WithCause(err)
	}
	metrics.DesiredRules.Set(float64(len(desired)))

	deployed, err := s.client.ListRules(passCtx)
	if err != nil {
		metrics.ReconcilePassesTotal.WithLabelValues(outcomeError).Inc()
		return rules.Result{}, pkgerrors.ErrServiceUnavailable.WithCause(err)
	}
	metrics.DeployedRules.Set(float64(len(deployed)))

	result, err := s.reconciler.Reconcile(passCtx, desired, deployed, s.cfg.MessageTypes)
	outcome := classifyOutcome(result, err)
	metrics.ReconcilePassesTotal.WithLabelValues(outcome).Inc()
	metrics.ObserveReconcileDuration(time.Since(start), outcome)

	for range result.Added {
		metrics.RuleActionsTotal.WithLabelValues("add").Inc()
	}
	for range result.Removed {
		metrics.RuleActionsTotal.WithLabelValues("remove").Inc()
	}

	if err != nil {
		if errors.Is(err, rules.ErrMessageTypesChanged) {
			return result, pkgerrors.ErrConflict.WithCause(err)
		}
		return result, err
	}

	if outcome == outcomeChanged && s.events != nil {
		if pubErr := s.events.PublishRulesReconciled(passCtx, s.cfg.Name, s.versions.GetVersion(), result); pubErr != nil {
			s.logger.WarnwCtx(passCtx, "Failed to publish rule change event",
				"error", pubErr,
			)
		}
	}

	s.logger.InfowCtx(passCtx, "Reconciliation pass finished",
		"outcome", outcome,
		"added", len(result.Added),
		"removed", len(result.Removed),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return result, nil
}

func classifyOutcome(result rules.Result, err error) string {
	switch {
	case errors.Is(err, rules.ErrMessageTypesChanged):
		return outcomeInvalidState
	case err != nil:
		return outcomeError
	case result.SkippedNewerDeployment:
		return outcomeSkippedNewer
	case len(result.Added) > 0 || len(result.Removed) > 0:
		return outcomeChanged
	default:
		return outcomeConverged
	}
}

// StartReconciler runs reconciliation on a fixed interval until the context
// ends. The first pass is delayed by a random jitter so a fleet of replicas
// does not hit the management API at once.
func (s *Service) StartReconciler(ctx context.Context) error {
	if err := s.applyJitter(ctx); err != nil {
		return err
	}

	intervalSeconds := s.reconcileCfg.IntervalSeconds
	if intervalSeconds <= 0 {
		intervalSeconds = constants.DefaultReconcileIntervalSeconds
	}
	ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
	defer ticker.Stop()

	s.runGuarded(ctx)

	for {
		select {
		case <-ticker.C:
			s.runGuarded(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Service) runGuarded(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.RecoverPanic(r)
			s.logger.ErrorwCtx(ctx, "Panic recovered during reconciliation",
				"error", err,
			)
		}
	}()

	if _, err := s.RunReconciliation(ctx); err != nil {
		s.logger.ErrorwCtx(ctx, "Reconciliation pass failed",
			"error", err,
		)
	}
}

func (s *Service) applyJitter(ctx context.Context) error {
	if s.reconcileCfg.JitterMaxMilliseconds == 0 {
		return nil
	}

	jitter := time.Duration(rand.Intn(s.reconcileCfg.JitterMaxMilliseconds)) * time.Millisecond
	s.logger.DebugwCtx(ctx, "First reconciliation scheduled with jitter",
		"jitter_ms", jitter.Milliseconds(),
	)

	select {
	case <-time.After(jitter):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
