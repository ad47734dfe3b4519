package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/raktimproloy/shopify-backend/internal/catalog"
	"github.com/raktimproloy/shopify-backend/internal/reconcile"
	"github.com/raktimproloy/shopify-backend/internal/scheduler"
	"github.com/raktimproloy/shopify-backend/pkg/config"
	"github.com/raktimproloy/shopify-backend/pkg/db"
	"github.com/raktimproloy/shopify-backend/pkg/enums"
	"github.com/raktimproloy/shopify-backend/pkg/logger"
	"github.com/raktimproloy/shopify-backend/pkg/metrics"
	"github.com/raktimproloy/shopify-backend/pkg/migrate"
	"github.com/raktimproloy/shopify-backend/pkg/pubsub"
	"github.com/raktimproloy/shopify-backend/pkg/redis"
	"github.com/raktimproloy/shopify-backend/pkg/shopify"
)

const (
	shutdownTimeout = 15 * time.Second
	cleanupInterval = 6 * time.Hour
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "sync-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "sync-worker",
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

	if !cfg.PubSub.Configured(cfg.GCP) {
		requireResource(ctx, logg, "pubsub", errors.New("sync worker requires a configured broker"))
	}
	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

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

	jobRepo := scheduler.NewRepository(dbClient.DB())

	broker, err := scheduler.NewBrokerQueue(scheduler.BrokerQueueParams{
		Logger:    logg,
		Repo:      jobRepo,
		Tx:        dbClient,
		Publisher: scheduler.NewGCPPublisher(pubsubClient.SyncPublisher()),
		Config:    cfg.Queue,
	})
	requireResource(ctx, logg, "broker queue", err)

	immediate, err := scheduler.NewImmediateQueue(logg, executor)
	requireResource(ctx, logg, "immediate queue", err)

	queue := scheduler.SelectQueue(ctx, logg, broker, immediate, pubsubClient)

	sched, err := scheduler.NewScheduler(scheduler.SchedulerParams{
		Logger:                 logg,
		Queue:                  queue,
		Executor:               executor,
		Config:                 cfg.Queue,
		RecurringBidirectional: cfg.Sync.RecurringBidirectional,
	})
	requireResource(ctx, logg, "scheduler", err)

	jobMetrics := metrics.NewSyncJobMetrics(prometheus.DefaultRegisterer)

	consumer, err := scheduler.NewConsumer(scheduler.ConsumerParams{
		Logger:     logg,
		Repo:       jobRepo,
		Executor:   executor,
		Subscriber: pubsubClient.SyncSubscription(),
		Metrics:    jobMetrics,
		Config:     cfg.Queue,
	})
	requireResource(ctx, logg, "job consumer", err)

	requireResource(ctx, logg, "inventory schedule",
		sched.ScheduleRecurring(string(enums.JobTypeInventorySync), cfg.Sync.InventoryCron))
	requireResource(ctx, logg, "product schedule",
		sched.ScheduleRecurring(string(enums.JobTypeShopifySync), cfg.Sync.ProductCron))
	sched.StartRecurring()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "sync worker ready")

	go runCleanup(runCtx, logg, sched)

	err = consumer.Run(runCtx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sErr := sched.Shutdown(shutdownCtx); sErr != nil {
		logg.Error(runCtx, "error shutting down scheduler", sErr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "sync worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "sync worker shutting down gracefully")
}

func runCleanup(ctx context.Context, logg *logger.Logger, sched *scheduler.Scheduler) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sched.CleanupOldJobs(ctx, 0)
			if err != nil {
				logg.Error(ctx, "job cleanup failed", err)
				continue
			}
			logg.Info(logg.WithField(ctx, "removed", removed), "job cleanup complete")
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
