package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulesync/internal/config"
	"rulesync/internal/logger"
	"rulesync/internal/rules"
	"rulesync/internal/subscription"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	broker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`{"rules": [{"name": "$Default", "filter_expression": "1=1"}]}`))
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(broker.Close)

	client := subscription.NewClient(config.ManagementConfig{
		Endpoint: broker.URL,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: time.Millisecond,
		},
	}, "orders-subscription", nil, logger.NopLogger())

	service := subscription.NewService(
		config.SubscriptionConfig{
			Name:            "orders-subscription",
			HandlerIdentity: "Contoso.Sales.OrderHandler",
			MessageTypes:    []string{"Contoso.Sales.Events.OrderPlaced"},
		},
		config.ReconcileConfig{},
		client,
		rules.NewStaticVersionSource(rules.NewVersion(1, 4, 0)),
		nil,
		logger.NopLogger(),
	)

	router := gin.New()
	NewHandler(service, logger.NopLogger()).RegisterRoutes(router)
	return router
}

func TestGetDesiredRules(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rules/desired", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var desired []rules.RuleDefinition
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &desired))
	require.Len(t, desired, 1)
	assert.Equal(t, "1_v_1_4_0", desired[0].Name)
	assert.Contains(t, desired[0].FilterExpression, "OrderPlaced")
}

func TestGetDeployedRules(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rules/deployed", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var deployed []rules.DeployedRule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &deployed))
	require.Len(t, deployed, 1)
	assert.Equal(t, "$Default", deployed[0].Name)
}

func TestGetRuleVersion(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		ruleName   string
		wantStatus int
		wantBody   ruleVersionResponse
	}{
		{
			name:       "current format",
			ruleName:   "3_v_1_4_0",
			wantStatus: http.StatusOK,
			wantBody: ruleVersionResponse{
				Name:       "3_v_1_4_0",
				Format:     "current",
				Version:    "1.4.0",
				HasVersion: true,
				Index:      3,
			},
		},
		{
			name:       "default rule",
			ruleName:   "$Default",
			wantStatus: http.StatusOK,
			wantBody: ruleVersionResponse{
				Name:       "$Default",
				Format:     "default",
				Version:    "1.0.0",
				HasVersion: true,
			},
		},
		{
			name:       "legacy without version",
			ruleName:   "orders_rule",
			wantStatus: http.StatusOK,
			wantBody: ruleVersionResponse{
				Name:   "orders_rule",
				Format: "legacy",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rules/"+tt.ruleName+"/version", nil))

			require.Equal(t, tt.wantStatus, w.Code)

			var got ruleVersionResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.wantBody, got)
		})
	}
}

func TestGetRuleVersionMalformed(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/rules/rule_99999999999999999999_0_1/version", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerReconcile(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var result rules.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"1_v_1_4_0"}, result.Added)
	assert.Equal(t, []string{"$Default"}, result.Removed)
}
