package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"rulesync/internal/admin"
	"rulesync/internal/broker"
	"rulesync/internal/config"
	"rulesync/internal/constants"
	"rulesync/internal/logger"
	"rulesync/internal/notifier"
	"rulesync/internal/rules"
	"rulesync/internal/subscription"
	"rulesync/pkg/circuitbreaker"
	"rulesync/pkg/health"
	"rulesync/pkg/metrics"
	"rulesync/pkg/middleware"
	"rulesync/pkg/ratelimit"
)

type App struct {
	Config   *config.Config
	Logger   logger.Logger
	producer broker.Producer
	client   *subscription.Client
	service  *subscription.Service
	server   *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName("rulesync-service")
	}
	return &App{
		Config: cfg,
		Logger: log,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	version, err := a.resolveVersion()
	if err != nil {
		return fmt.Errorf("failed to resolve deploy version: %w", err)
	}
	versions := rules.NewStaticVersionSource(version)

	metrics.RegisterReconcilerMetrics()
	metrics.RegisterManagementClientMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}
	if a.Config.Admin.RateLimit.Enabled {
		metrics.RegisterRateLimitMetrics()
	}

	var breaker *circuitbreaker.Wrapper
	if a.Config.CircuitBreaker.Enabled {
		breaker = circuitbreaker.NewWrapper(a.breakerConfig())
	}

	a.client = subscription.NewClient(a.Config.Broker.Management, a.Config.Subscription.Name, breaker, a.Logger)

	events, err := a.initNotifier()
	if err != nil {
		return fmt.Errorf("failed to initialize notifier: %w", err)
	}

	a.service = subscription.NewService(
		a.Config.Subscription,
		a.Config.Reconcile,
		a.client,
		versions,
		events,
		a.Logger,
	)

	// Surface unpackable message types at startup instead of on the first
	// reconciliation pass.
	if _, err := a.service.DesiredRules(); err != nil {
		return fmt.Errorf("failed to generate desired rules: %w", err)
	}

	if err := a.initHTTPServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	a.Logger.InfowCtx(ctx, "Application initialized",
		"subscription", a.Config.Subscription.Name,
		"deploy_version", version.String(),
		"message_types", len(a.Config.Subscription.MessageTypes),
	)

	return nil
}

// resolveVersion prefers the build-time injected version over the config
// value.
func (a *App) resolveVersion() (rules.Version, error) {
	raw := buildVersion
	if raw == "" {
		raw = a.Config.Version
	}
	if raw == "" {
		return rules.Version{}, fmt.Errorf("no deploy version: set -ldflags or the version config key")
	}
	return rules.ParseVersion(raw)
}

func (a *App) breakerConfig() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig("management_api")
	if a.Config.CircuitBreaker.MaxRequests > 0 {
		cfg.MaxRequests = a.Config.CircuitBreaker.MaxRequests
	}
	if a.Config.CircuitBreaker.Interval > 0 {
		cfg.Interval = a.Config.CircuitBreaker.Interval
	}
	if a.Config.CircuitBreaker.Timeout > 0 {
		cfg.Timeout = a.Config.CircuitBreaker.Timeout
	}
	if a.Config.CircuitBreaker.FailureRatio > 0 {
		failureRatio := a.Config.CircuitBreaker.FailureRatio
		minRequests := a.Config.CircuitBreaker.MinRequests
		cfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && ratio >= failureRatio
		}
	}
	return cfg
}

func (a *App) initNotifier() (*notifier.RuleEventProducer, error) {
	topic := a.Config.Broker.Kafka.RuleEventsTopic
	if topic == "" || len(a.Config.Broker.Kafka.Brokers) == 0 {
		a.Logger.Warnw("Rule change events disabled: no kafka topic configured")
		return nil, nil
	}

	producer := broker.NewKafkaProducer(a.Config.Broker.Kafka, a.Logger)
	a.producer = producer
	return notifier.NewRuleEventProducer(producer, topic), nil
}

func (a *App) initHTTPServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RecoveryMiddleware(a.Logger))

	if a.Config.Admin.RateLimit.Enabled {
		rlCfg := ratelimit.DefaultConfig()
		if a.Config.Admin.RateLimit.RPS > 0 {
			rlCfg.RPS = a.Config.Admin.RateLimit.RPS
		}
		if a.Config.Admin.RateLimit.Burst > 0 {
			rlCfg.Burst = a.Config.Admin.RateLimit.Burst
		}
		if a.Config.Admin.RateLimit.CleanupInterval > 0 {
			rlCfg.CleanupInterval = time.Duration(a.Config.Admin.RateLimit.CleanupInterval) * time.Second
		}
		if a.Config.Admin.RateLimit.MaxAge > 0 {
			rlCfg.MaxAge = time.Duration(a.Config.Admin.RateLimit.MaxAge) * time.Second
		}
		router.Use(ratelimit.Middleware(rlCfg))
	}

	handler := admin.NewHandler(a.service, a.Logger)
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewManagementAPIChecker(a.client))

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.service.StartReconciler(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown()
	})

	return g.Wait()
}

func (a *App) Shutdown() error {
	a.Logger.Info("Shutting down rule sync service")

	var errs []error

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	a.Logger.Info("Application exited successfully")
	return nil
}
