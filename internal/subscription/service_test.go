package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulesync/internal/config"
	"rulesync/internal/logger"
	"rulesync/internal/rules"
)

// fakeBroker is an in-memory rule store behind the management API's HTTP
// surface, so reconciliation runs against real request plumbing.
type fakeBroker struct {
	mu    sync.Mutex
	rules map[string]string
}

func newFakeBroker(initial map[string]string) *fakeBroker {
	store := make(map[string]string, len(initial))
	for name, expr := range initial {
		store[name] = expr
	}
	return &fakeBroker{rules: store}
}

func (b *fakeBroker) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

		switch {
		case r.Method == http.MethodGet:
			resp := listRulesResponse{}
			for name, expr := range b.rules {
				resp.Rules = append(resp.Rules, ruleResource{Name: name, FilterExpression: expr})
			}
			json.NewEncoder(w).Encode(resp)

		case r.Method == http.MethodPut:
			name := parts[len(parts)-1]
			var req upsertRuleRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			b.rules[name] = req.FilterExpression
			w.WriteHeader(http.StatusOK)

		case r.Method == http.MethodDelete:
			name := parts[len(parts)-1]
			if _, ok := b.rules[name]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			delete(b.rules, name)
			w.WriteHeader(http.StatusOK)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func (b *fakeBroker) snapshot() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]string, len(b.rules))
	for name, expr := range b.rules {
		out[name] = expr
	}
	return out
}

func newTestService(t *testing.T, broker *fakeBroker, v rules.Version) *Service {
	t.Helper()
	server := httptest.NewServer(broker.handler())
	t.Cleanup(server.Close)

	client := NewClient(testManagementConfig(server.URL), "orders-subscription", nil, logger.NopLogger())

	return NewService(
		config.SubscriptionConfig{
			Name:            "orders-subscription",
			HandlerIdentity: "Contoso.Sales.OrderHandler",
			MessageTypes:    []string{"Contoso.Sales.Events.OrderPlaced", "Contoso.Sales.Events.OrderShipped"},
		},
		config.ReconcileConfig{},
		client,
		rules.NewStaticVersionSource(v),
		nil,
		logger.NopLogger(),
	)
}

func TestServiceRunReconciliation(t *testing.T) {
	broker := newFakeBroker(map[string]string{"$Default": "1=1"})
	service := newTestService(t, broker, rules.NewVersion(1, 4, 0))

	result, err := service.RunReconciliation(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"1_v_1_4_0"}, result.Added)
	assert.Equal(t, []string{"$Default"}, result.Removed)
	assert.False(t, result.SkippedNewerDeployment)

	state := broker.snapshot()
	require.Len(t, state, 1)
	expr, ok := state["1_v_1_4_0"]
	require.True(t, ok)
	assert.Contains(t, expr, "OrderPlaced")
	assert.Contains(t, expr, "OrderShipped")
}

func TestServiceReconciliationIsIdempotent(t *testing.T) {
	broker := newFakeBroker(nil)
	service := newTestService(t, broker, rules.NewVersion(1, 4, 0))

	first, err := service.RunReconciliation(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, first.Added)

	second, err := service.RunReconciliation(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Added)
	assert.Empty(t, second.Removed)

	assert.Len(t, broker.snapshot(), len(first.Added))
}

func TestServiceSkipsNewerDeployment(t *testing.T) {
	broker := newFakeBroker(map[string]string{"1_v_2_0_0": "(MessageType = 'X')"})
	service := newTestService(t, broker, rules.NewVersion(1, 4, 0))

	result, err := service.RunReconciliation(context.Background())

	require.NoError(t, err)
	assert.True(t, result.SkippedNewerDeployment)
	assert.Len(t, broker.snapshot(), 1)
}

func TestServiceDesiredRules(t *testing.T) {
	broker := newFakeBroker(nil)
	service := newTestService(t, broker, rules.NewVersion(1, 4, 0))

	desired, err := service.DesiredRules()

	require.NoError(t, err)
	require.Len(t, desired, 1)
	assert.Equal(t, "1_v_1_4_0", desired[0].Name)
}

func TestClassifyOutcome(t *testing.T) {
	tests := []struct {
		name   string
		result rules.Result
		err    error
		want   string
	}{
		{"no delta", rules.Result{}, nil, outcomeConverged},
		{"added rules", rules.Result{Added: []string{"1_v_1_0_0"}}, nil, outcomeChanged},
		{"removed rules", rules.Result{Removed: []string{"$Default"}}, nil, outcomeChanged},
		{"newer deployment", rules.Result{SkippedNewerDeployment: true}, nil, outcomeSkippedNewer},
		{"divergence", rules.Result{}, rules.ErrMessageTypesChanged, outcomeInvalidState},
		{"other error", rules.Result{}, context.DeadlineExceeded, outcomeError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyOutcome(tt.result, tt.err))
		})
	}
}
