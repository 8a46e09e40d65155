package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/wishwell/wishwell-backend/api/controllers"
	"github.com/wishwell/wishwell-backend/api/routes"
	"github.com/wishwell/wishwell-backend/internal/auth"
	"github.com/wishwell/wishwell-backend/internal/funding"
	"github.com/wishwell/wishwell-backend/internal/funding/itemlock"
	"github.com/wishwell/wishwell-backend/internal/items"
	"github.com/wishwell/wishwell-backend/internal/realtime"
	"github.com/wishwell/wishwell-backend/internal/users"
	"github.com/wishwell/wishwell-backend/internal/wishlists"
	"github.com/wishwell/wishwell-backend/pkg/auth/session"
	"github.com/wishwell/wishwell-backend/pkg/config"
	"github.com/wishwell/wishwell-backend/pkg/db"
	"github.com/wishwell/wishwell-backend/pkg/logger"
	"github.com/wishwell/wishwell-backend/pkg/metrics"
	"github.com/wishwell/wishwell-backend/pkg/migrate"
	"github.com/wishwell/wishwell-backend/pkg/redis"
)

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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(dbClient.Close(), redisClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	fundingMetrics := metrics.NewFundingMetrics(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	wishlistService, err := wishlists.NewService(wishlists.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create wishlist service", err)
		os.Exit(1)
	}

	itemService, err := items.NewService(items.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create item service", err)
		os.Exit(1)
	}

	hub := realtime.NewHub(realtime.HubParams{
		Logger:            logg,
		Metrics:           fundingMetrics,
		ClientBuffer:      cfg.Realtime.ClientBuffer,
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
	})

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher realtime.Publisher = realtime.NewLocalBus(hub)
	if cfg.Realtime.UseRedisBus {
		bus, err := realtime.NewRedisBus(realtime.RedisBusParams{
			Client:  redisClient,
			Hub:     hub,
			Channel: cfg.Realtime.RedisChannel,
			Logger:  logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create redis event bus", err)
			os.Exit(1)
		}
		if err := bus.StartForwarder(rootCtx); err != nil {
			logg.Error(context.Background(), "failed to start redis event forwarder", err)
			os.Exit(1)
		}
		publisher = bus
	}

	lockCfg := itemlock.Config{
		WaitTimeout: cfg.Ledger.LockWaitTimeout,
		TTL:         cfg.Ledger.LockTTL,
	}
	var locker itemlock.Locker = itemlock.NewKeyed(lockCfg)
	if cfg.Ledger.LockMode == "redis" {
		locker, err = itemlock.NewRedis(redisClient, lockCfg)
		if err != nil {
			logg.Error(context.Background(), "failed to create redis item lock", err)
			os.Exit(1)
		}
	}

	fundingService, err := funding.NewService(funding.ServiceParams{
		DB:        dbClient,
		Locker:    locker,
		Publisher: publisher,
		Metrics:   fundingMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create funding service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		Redis:           redisClient,
		Registry:        registry,
		SessionChecker:  sessionManager,
		AuthService:     authService,
		WishlistService: wishlistService,
		ItemService:     itemService,
		FundingService:  fundingService,
		Hub:             hub,
		HealthDeps: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
		},
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"lock_mode": cfg.Ledger.LockMode,
		"redis_bus": cfg.Realtime.UseRedisBus,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-rootCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server stopped")
}
