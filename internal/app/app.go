package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utafrali/bitebook/internal/auth"
	"github.com/utafrali/bitebook/internal/cache"
	"github.com/utafrali/bitebook/internal/config"
	"github.com/utafrali/bitebook/internal/event"
	handler "github.com/utafrali/bitebook/internal/handler/http"
	"github.com/utafrali/bitebook/internal/repository/mongodb"
	"github.com/utafrali/bitebook/internal/repository/postgres"
	"github.com/utafrali/bitebook/internal/service"
	"github.com/utafrali/bitebook/migrations"
	"github.com/utafrali/bitebook/pkg/database"
	"github.com/utafrali/bitebook/pkg/health"
	pkgkafka "github.com/utafrali/bitebook/pkg/kafka"
	"github.com/utafrali/bitebook/pkg/middleware"
	"github.com/utafrali/bitebook/pkg/tracing"
)

const serviceName = "bitebook"

// App wires together all dependencies and runs the bitebook API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	mongo          *mongo.Client
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.closeStores()
		}
	}()

	// Initialize OpenTelemetry tracing.
	a.tracerShutdown, err = tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Identity Store: PostgreSQL.
	pgCfg := cfg.Postgres()
	a.pool, err = database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, a.pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err = database.RunMigrations(ctx, a.pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if cfg.SlowQueryThresholdMs > 0 {
		database.SetSlowQueryLogging(time.Duration(cfg.SlowQueryThresholdMs)*time.Millisecond, logger)
	}

	// Content Store: MongoDB.
	a.mongo, err = database.NewMongoClient(ctx, cfg.Mongo(), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	logger.Info("connected to MongoDB", slog.String("database", cfg.MongoDB))

	contentDB := a.mongo.Database(cfg.MongoDB)
	postRepo := mongodb.NewPostRepository(contentDB)
	restaurantStore := mongodb.NewRestaurantRepository(contentDB)
	if err = postRepo.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err = restaurantStore.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	// Restaurant cache: optional Redis. Without it reads go to MongoDB.
	if cfg.RedisEnabled {
		client, rerr := database.NewRedisClient(ctx, cfg.Redis())
		if rerr != nil {
			logger.Warn("redis unavailable, restaurant cache disabled",
				slog.String("addr", cfg.Redis().Addr()),
				slog.String("error", rerr.Error()),
			)
		} else {
			a.redis = client
			logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()))
		}
	}
	restaurantRepo := cache.NewRestaurantCache(restaurantStore, a.redis, cfg.RestaurantCacheTTL, logger)

	// Event publisher.
	a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	eventProducer := event.NewProducer(a.producer, logger)

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTIssuer)
	userRepo := postgres.NewUserRepository(a.pool)
	followRepo := postgres.NewFollowRepository(a.pool)
	favoriteRepo := postgres.NewFavoriteRepository(a.pool)

	social := service.NewSocialService(userRepo, followRepo, eventProducer, logger)
	services := handler.Services{
		Accounts:    service.NewAccountService(userRepo, followRepo, favoriteRepo, postRepo, jwtManager, eventProducer, logger),
		Social:      social,
		Posts:       service.NewPostService(postRepo, restaurantRepo, social, eventProducer, logger),
		Restaurants: service.NewRestaurantService(restaurantRepo, eventProducer, logger),
		Favorites:   service.NewFavoriteService(favoriteRepo, restaurantRepo, logger),
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return a.pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("mongodb", database.MongoChecker(a.mongo))
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return a.producer.Ping(ctx)
	})

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSAllowedOrigins
	corsCfg.Environment = cfg.Environment

	router := handler.NewRouter(services, jwtManager, healthHandler, logger, handler.RouterConfig{
		CORS:                   corsCfg,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		PprofAllowedCIDRs:      cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer
// 4. Redis, MongoDB and PostgreSQL clients
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if err := a.closeStores(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeStores releases whatever clients have been opened so far.
func (a *App) closeStores() error {
	var errs []error
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.logger.Error("mongodb disconnect error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return errors.Join(errs...)
}
