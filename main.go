package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentorvideo/pkg"

	"go.uber.org/zap"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() {
		_ = logger.Sync()
	}()

	// Flags override environment variables and .env entries.
	cfg, err := pkg.LoadConfig(os.Args[1:])
	if err != nil {
		logger.Fatal("loading configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening session store", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer closeStore()

	policy, err := pkg.NewCORSPolicy(cfg.AllowedOrigins)
	if err != nil {
		logger.Fatal("building cors policy", zap.Error(err))
	}

	// Use a custom Prometheus registry for app-specific metrics.
	reg := prometheus.NewRegistry()
	pkg.RegisterMetrics(reg)

	router, err := pkg.NewRouter(pkg.RouterConfig{
		Store:         store,
		CORS:          policy,
		LookupTimeout: cfg.LookupTimeout,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:        logger,
	})
	if err != nil {
		logger.Fatal("building router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening",
		zap.String("addr", cfg.Addr()),
		zap.String("store", cfg.Store),
		zap.Strings("allowed_origins", policy.Origins()),
		zap.Bool("cache", cfg.RedisAddr != ""),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("starting http server", zap.Error(err))
	}
}

// openStore builds the configured backend, optionally fronted by the Redis cache.
func openStore(ctx context.Context, cfg pkg.Config, logger *zap.Logger) (pkg.SessionStore, func(), error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var (
		store   pkg.SessionStore
		closers []func()
	)
	switch cfg.Store {
	case pkg.StoreMongo:
		mongoStore, err := pkg.NewMongoSessionStore(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		store = mongoStore
		closers = append(closers, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoStore.Close(closeCtx)
		})
	case pkg.StorePostgres:
		pgStore, err := pkg.NewPostgresSessionStore(connectCtx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store = pgStore
		closers = append(closers, pgStore.Close)
	default:
		memStore := pkg.NewMemorySessionStore()
		if cfg.SeedFile != "" {
			seeded, err := pkg.LoadMemorySessionStore(cfg.SeedFile)
			if err != nil {
				return nil, nil, err
			}
			memStore = seeded
		}
		store = memStore
	}

	if cfg.RedisAddr != "" {
		client := pkg.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisTimeout)
		if err := client.Ping(connectCtx).Err(); err != nil {
			logger.Warn("redis unreachable at startup, cache will retry per request", zap.Error(err))
		}
		store = pkg.NewCachedSessionStore(store, client, cfg.CacheTTL, cfg.RedisTimeout, logger)
		closers = append(closers, func() { _ = client.Close() })
	}

	return store, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}
