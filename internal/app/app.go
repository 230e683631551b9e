package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dfgutierrez/sigr-sales/internal/client"
	"github.com/dfgutierrez/sigr-sales/internal/config"
	"github.com/dfgutierrez/sigr-sales/internal/event"
	handler "github.com/dfgutierrez/sigr-sales/internal/handler/http"
	"github.com/dfgutierrez/sigr-sales/internal/migrations"
	postgresrepo "github.com/dfgutierrez/sigr-sales/internal/repository/postgres"
	redisrepo "github.com/dfgutierrez/sigr-sales/internal/repository/redis"
	"github.com/dfgutierrez/sigr-sales/internal/service"
	"github.com/dfgutierrez/sigr-sales/pkg/database"
	"github.com/dfgutierrez/sigr-sales/pkg/health"
	"github.com/dfgutierrez/sigr-sales/pkg/httpclient"
	pkgkafka "github.com/dfgutierrez/sigr-sales/pkg/kafka"
	"github.com/dfgutierrez/sigr-sales/pkg/middleware"
)

// App wires together all dependencies and runs the sale workflow service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	redis      *redis.Client
	pool       *pgxpool.Pool
	producer   *pkgkafka.Producer
	suggester  *service.VehicleSuggester
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Redis holds the draft workflows.
	redisClient, err := database.NewRedisClient(ctx, database.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)

	// Postgres holds the deduction reconciliation queue.
	pgCfg := database.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		DBName:   cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
	}
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "sale-workflow")

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		redisClient.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Kafka producer for submission outcome events.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Repositories and event producer.
	workflowRepo := redisrepo.NewWorkflowRepository(redisClient, time.Duration(cfg.WorkflowTTL)*time.Hour)
	reconRepo := postgresrepo.NewReconciliationRepository(pool)
	eventProducer := event.NewProducer(producer, logger)

	// Outbound HTTP: one pooled client, a circuit breaker per collaborator.
	baseClient := httpclient.New(httpclient.Config{
		Timeout:         cfg.ClientTimeout,
		MaxRetries:      cfg.ClientMaxRetries,
		RetryWaitMin:    500 * time.Millisecond,
		RetryWaitMax:    5 * time.Second,
		MaxConnsPerHost: 100,
	})

	breaker := func(name string) *httpclient.CircuitBreakerClient {
		cbCfg := httpclient.DefaultCircuitBreakerConfig(name)
		cbCfg.MinRequests = cfg.BreakerMaxFails
		cbCfg.Timeout = cfg.BreakerOpenPeriod
		return httpclient.NewCircuitBreakerClient(baseClient, cbCfg, logger).
			WithFallback(service.CircuitOpenFallback)
	}

	vehicleClient := client.NewVehicleClient(breaker("vehicle"), cfg.VehicleServiceURL, nil)
	inventoryClient := client.NewInventoryClient(breaker("inventory"), cfg.InventoryServiceURL, nil)
	saleClient := client.NewSaleClient(breaker("sales"), cfg.SalesBackendURL, nil)
	catalogClient := client.NewCatalogClient(breaker("catalog"), cfg.CatalogServiceURL, nil)

	// Services.
	suggester := service.NewVehicleSuggester(vehicleClient, cfg.SuggestDebounce, logger)
	workflowService := service.NewWorkflowService(
		workflowRepo,
		reconRepo,
		vehicleClient,
		inventoryClient,
		saleClient,
		catalogClient,
		eventProducer,
		suggester,
		logger,
		service.WorkflowConfig{
			SubmitTimeout:    cfg.SubmitTimeout,
			DeductionTimeout: cfg.DeductionTimeout,
			MinUnitPrice:     cfg.MinUnitPrice,
		},
	)
	reconciliationService := service.NewReconciliationService(reconRepo, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.Environment = cfg.Environment

	routerCfg := handler.RouterConfig{CORS: corsCfg}
	if cfg.AuthServiceURL != "" {
		authClient := client.NewAuthClient(breaker("auth"), cfg.AuthServiceURL)
		// Token validator that bridges to the backend auth service.
		routerCfg.Auth = func(token string) (*middleware.Claims, error) {
			claims, err := authClient.ValidateToken(context.Background(), token)
			if err != nil {
				return nil, err
			}
			return &middleware.Claims{
				OperatorID: claims.OperatorID,
				Username:   claims.Username,
				Role:       claims.Role,
			}, nil
		}
	}

	router := handler.NewRouter(workflowService, reconciliationService, healthHandler, logger,
		routerCfg)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		redis:      redisClient,
		pool:       pool,
		producer:   producer,
		suggester:  suggester,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Vehicle suggester (stop pending debounce timers, wait for searches)
// 3. Kafka producer
// 4. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.suggester.Close()

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redis.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}
	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
