package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"rulesync/internal/config"
	"rulesync/internal/constants"
	"rulesync/internal/logger"
	"rulesync/internal/rules"
	"rulesync/pkg/circuitbreaker"
	"rulesync/pkg/metrics"
	"rulesync/pkg/retry"
)

// Client talks to the broker's rule management API. It implements
// rules.RuleApplier plus the ListRules read used to source the deployed set.
// Transient failures (5xx, transport errors) are retried with backoff;
// client errors are fatal and surface immediately.
type Client struct {
	endpoint     string
	subscription string
	apiKey       string
	httpClient   *http.Client
	breaker      *circuitbreaker.Wrapper
	retryPolicy  retry.Policy
	logger       logger.Logger
}

func NewClient(cfg config.ManagementConfig, subscriptionName string, breaker *circuitbreaker.Wrapper, log logger.Logger) *Client {
	timeout := constants.DefaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	policy := retry.DefaultPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Retry.MaxAttempts
	}
	if cfg.Retry.InitialInterval > 0 {
		policy.InitialInterval = cfg.Retry.InitialInterval
	}
	if cfg.Retry.MaxInterval > 0 {
		policy.MaxInterval = cfg.Retry.MaxInterval
	}
	if cfg.Retry.Multiplier > 0 {
		policy.Multiplier = cfg.Retry.Multiplier
	}
	if cfg.Retry.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = cfg.Retry.MaxElapsedTime
	}

	return &Client{
		endpoint:     cfg.Endpoint,
		subscription: subscriptionName,
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: timeout},
		breaker:      breaker,
		retryPolicy:  policy,
		logger:       log,
	}
}

func (c *Client) ListRules(ctx context.Context) ([]rules.DeployedRule, error) {
	body, err := c.do(ctx, "list_rules", http.MethodGet, c.rulesURL(), nil)
	if err != nil {
		return nil, err
	}

	var resp listRulesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode rules listing: %w", err)
	}

	deployed := make([]rules.DeployedRule, 0, len(resp.Rules))
	for _, r := range resp.Rules {
		deployed = append(deployed, rules.DeployedRule{
			Name:             r.Name,
			FilterExpression: r.FilterExpression,
		})
	}
	return deployed, nil
}

func (c *Client) AddRule(ctx context.Context, rule rules.RuleDefinition) error {
	payload, err := json.Marshal(upsertRuleRequest{FilterExpression: rule.FilterExpression})
	if err != nil {
		return fmt.Errorf("failed to marshal rule %q: %w", rule.Name, err)
	}

	_, err = c.do(ctx, "add_rule", http.MethodPut, c.ruleURL(rule.Name), payload)
	return err
}

func (c *Client) RemoveRule(ctx context.Context, rule rules.DeployedRule) error {
	_, err := c.do(ctx, "remove_rule", http.MethodDelete, c.ruleURL(rule.Name), nil)
	return err
}

// Ping verifies the management API answers for this subscription.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, "ping", http.MethodGet, c.rulesURL(), nil)
	return err
}

func (c *Client) rulesURL() string {
	return fmt.Sprintf("%s/subscriptions/%s/rules", c.endpoint, url.PathEscape(c.subscription))
}

func (c *Client) ruleURL(ruleName string) string {
	return fmt.Sprintf("%s/%s", c.rulesURL(), url.PathEscape(ruleName))
}

func (c *Client) do(ctx context.Context, operation, method, requestURL string, payload []byte) ([]byte, error) {
	var body []byte

	call := func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
		if err != nil {
			return retry.NewFatalError(err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.ManagementRequestsTotal.WithLabelValues(operation, "transport_error").Inc()
			return err
		}
		defer resp.Body.Close()

		metrics.ManagementRequestsTotal.WithLabelValues(operation, strconv.Itoa(resp.StatusCode)).Inc()

		// A delete of a rule that is already gone still converges.
		if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
			body = nil
			return nil
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("management API %s returned %d", operation, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			return retry.NewFatalError(fmt.Errorf("management API %s returned %d", operation, resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read %s response: %w", operation, err)
		}
		return nil
	}

	execute := func() error {
		return retry.RetryWithCallback(ctx, c.retryPolicy, call, func(attempt int, err error, nextDelay time.Duration) {
			metrics.RetryAttemptsTotal.WithLabelValues(operation).Inc()
			c.logger.WarnwCtx(ctx, "Retrying management API call",
				"operation", operation,
				"attempt", attempt,
				"next_delay", nextDelay,
				"error", err,
			)
		})
	}

	if c.breaker != nil {
		_, err := c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
			err := execute()
			c.breaker.RecordRequest(err == nil)
			return nil, err
		})
		return body, err
	}

	if err := execute(); err != nil {
		return nil, err
	}
	return body, nil
}
