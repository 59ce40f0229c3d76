package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopsense/storefront-backend/api/controllers"
	"github.com/shopsense/storefront-backend/api/routes"
	"github.com/shopsense/storefront-backend/internal/auth"
	"github.com/shopsense/storefront-backend/internal/cart"
	"github.com/shopsense/storefront-backend/internal/checkout"
	"github.com/shopsense/storefront-backend/internal/events"
	"github.com/shopsense/storefront-backend/internal/explain"
	"github.com/shopsense/storefront-backend/internal/orders"
	"github.com/shopsense/storefront-backend/internal/products"
	"github.com/shopsense/storefront-backend/internal/recommend"
	"github.com/shopsense/storefront-backend/internal/users"
	"github.com/shopsense/storefront-backend/pkg/auth/session"
	"github.com/shopsense/storefront-backend/pkg/cache"
	"github.com/shopsense/storefront-backend/pkg/config"
	"github.com/shopsense/storefront-backend/pkg/db"
	"github.com/shopsense/storefront-backend/pkg/instance"
	"github.com/shopsense/storefront-backend/pkg/llm"
	"github.com/shopsense/storefront-backend/pkg/logger"
	"github.com/shopsense/storefront-backend/pkg/metrics"
	"github.com/shopsense/storefront-backend/pkg/migrate"
	"github.com/shopsense/storefront-backend/pkg/mongo"
	"github.com/shopsense/storefront-backend/pkg/recommender"
	"github.com/shopsense/storefront-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	checks := map[string]controllers.Pinger{"db": dbClient}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		checks["redis"] = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; sessions, idempotency, rate limits and caches are disabled")
	}

	var eventStore events.Store = events.NewSQLStore(dbClient.DB())
	if cfg.Mongo.Enabled() {
		mongoClient, err := mongo.New(ctx, cfg.Mongo, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap mongo", err)
			os.Exit(1)
		}
		defer func() {
			if err := mongoClient.Close(context.Background()); err != nil {
				logg.Error(context.Background(), "error closing mongo", err)
			}
		}()
		mongoStore := events.NewMongoStore(mongoClient.Database())
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			logg.Error(ctx, "failed to ensure event indexes", err)
			os.Exit(1)
		}
		eventStore = mongoStore
		checks["mongo"] = mongoClient
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	storefrontMetrics := metrics.NewStorefrontMetrics(registry)

	deps, err := buildServices(ctx, cfg, logg, dbClient, redisClient, eventStore, storefrontMetrics)
	if err != nil {
		logg.Error(ctx, "failed to build services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.Checks = checks
	deps.HTTPMetrics = httpMetrics
	deps.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(logCtx, "graceful shutdown failed", err)
		}
	}
}

// buildServices wires the domain services. Optional collaborators are only
// assigned when present so interfaces never hold typed nils.
func buildServices(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	eventStore events.Store,
	storefrontMetrics *metrics.StorefrontMetrics,
) (routes.Dependencies, error) {
	var deps routes.Dependencies
	conn := dbClient.DB()

	eventParams := events.ServiceParams{Store: eventStore, Logger: logg}
	if redisClient != nil {
		eventParams.Buffer = events.NewBuffer(redisClient, cfg.Events.BufferSize, cfg.Events.GuestSessionTTL)
	}
	eventSvc, err := events.NewService(eventParams)
	if err != nil {
		return deps, err
	}

	productRepo := products.NewRepository(conn)
	catalog, err := products.NewService(productRepo)
	if err != nil {
		return deps, err
	}

	cartRepo := cart.NewRepository(conn)
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:    cartRepo,
		Catalog: catalog,
		Events:  eventSvc,
		Metrics: storefrontMetrics,
		Logger:  logg,
	})
	if err != nil {
		return deps, err
	}

	ordersRepo := orders.NewRepository(conn)
	ordersSvc, err := orders.NewService(ordersRepo)
	if err != nil {
		return deps, err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:         dbClient,
		CartRepo:   cartRepo,
		Merger:     cartSvc,
		OrdersRepo: ordersRepo,
		Prices:     catalog,
		Events:     eventSvc,
		Metrics:    storefrontMetrics,
		Logger:     logg,
	})
	if err != nil {
		return deps, err
	}

	authParams := auth.ServiceParams{
		UserRepo:       users.NewRepository(conn),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}
	if redisClient != nil {
		sessions, err := session.NewManager(redisClient, cfg.JWT)
		if err != nil {
			return deps, err
		}
		authParams.SessionManager = sessions
		deps.Sessions = sessions
		deps.Redis = redisClient
	}
	authSvc, err := auth.NewService(authParams)
	if err != nil {
		return deps, err
	}

	recommendParams := recommend.ServiceParams{
		Events:       eventSvc,
		Metrics:      storefrontMetrics,
		Logger:       logg,
		RecentEvents: cfg.Recommender.RecentEventLimit,
	}
	explainParams := explain.ServiceParams{
		Cache:         cache.Noop{},
		Metrics:       storefrontMetrics,
		Logger:        logg,
		CacheTTL:      cfg.Explain.CacheTTL,
		BasicCacheTTL: cfg.Explain.BasicCacheTTL,
	}
	if redisClient != nil {
		explainParams.Cache = cache.New(redisClient)
		explainParams.Keys = redisClient
	}
	if cfg.Recommender.BaseURL != "" {
		recClient, err := recommender.New(cfg.Recommender, logg)
		if err != nil {
			return deps, err
		}
		recommendParams.Client = recClient
		explainParams.Recommender = recClient
	} else {
		logg.Warn(ctx, "recommender not configured; recommendations degrade to an empty list")
	}
	if cfg.LLM.Enabled() {
		gen, err := llm.New(ctx, cfg.LLM)
		if err != nil {
			return deps, err
		}
		explainParams.LLM = gen
	}

	recommendSvc, err := recommend.NewService(recommendParams)
	if err != nil {
		return deps, err
	}

	deps.Auth = authSvc
	deps.Products = catalog
	deps.Cart = cartSvc
	deps.Checkout = checkoutSvc
	deps.Orders = ordersSvc
	deps.Events = eventSvc
	deps.Recommend = recommendSvc
	deps.Explain = explain.NewService(explainParams)
	return deps, nil
}
