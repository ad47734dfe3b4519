package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/raktimproloy/shopify-backend/api/controllers"
	"github.com/raktimproloy/shopify-backend/api/routes"
	"github.com/raktimproloy/shopify-backend/internal/catalog"
	"github.com/raktimproloy/shopify-backend/internal/reconcile"
	"github.com/raktimproloy/shopify-backend/internal/scheduler"
	"github.com/raktimproloy/shopify-backend/pkg/config"
	"github.com/raktimproloy/shopify-backend/pkg/db"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
	"github.com/raktimproloy/shopify-backend/pkg/migrate"
	"github.com/raktimproloy/shopify-backend/pkg/pubsub"
	"github.com/raktimproloy/shopify-backend/pkg/redis"
	"github.com/raktimproloy/shopify-backend/pkg/shopify"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	shopifyClient, err := shopify.NewClient(ctx, cfg.Shopify, logg)
	requireResource(ctx, logg, "shopify client", err)

	var pubsubClient *pubsub.Client
	if cfg.PubSub.Configured(cfg.GCP) {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub", err)
			}
		}()
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())

	lease, err := reconcile.NewRedisLease(redisClient, cfg.Sync.LeaseTTL)
	requireResource(ctx, logg, "inventory lease", err)

	engine, err := reconcile.NewEngine(reconcile.ServiceParams{
		Logger: logg,
		Store:  reconcile.NewStore(catalogRepo),
		Remote: shopifyClient,
		Tx:     dbClient,
		Lease:  lease,
		Config: cfg.Sync,
	})
	requireResource(ctx, logg, "reconcile engine", err)

	executor, err := scheduler.NewEngineExecutor(engine)
	requireResource(ctx, logg, "job executor", err)

	immediate, err := scheduler.NewImmediateQueue(logg, executor)
	requireResource(ctx, logg, "immediate queue", err)

	var broker *scheduler.BrokerQueue
	var brokerPing scheduler.Pinger
	if pubsubClient != nil {
		broker, err = scheduler.NewBrokerQueue(scheduler.BrokerQueueParams{
			Logger:    logg,
			Repo:      scheduler.NewRepository(dbClient.DB()),
			Tx:        dbClient,
			Publisher: scheduler.NewGCPPublisher(pubsubClient.SyncPublisher()),
			Config:    cfg.Queue,
		})
		requireResource(ctx, logg, "broker queue", err)
		brokerPing = pubsubClient
	}

	queue := scheduler.SelectQueue(ctx, logg, broker, immediate, brokerPing)

	sched, err := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger:                 logg,
		Queue:                  queue,
		Executor:               executor,
		Config:                 cfg.Queue,
		RecurringBidirectional: cfg.Sync.RecurringBidirectional,
	})
	requireResource(ctx, logg, "scheduler", err)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sched.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error shutting down scheduler", err)
		}
	}()

	readiness := map[string]controllers.ReadinessPinger{
		"database": dbClient,
		"redis":    redisClient,
		"shopify":  shopifyClient,
	}
	if pubsubClient != nil {
		readiness["pubsub"] = pubsubClient
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:    cfg,
		Logger:    logg,
		Readiness: readiness,
		Catalog:   catalogRepo,
		Engine:    engine,
		Scheduler: sched,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "error shutting down api server", err)
		}
	}

	logg.Info(runCtx, "api server shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
