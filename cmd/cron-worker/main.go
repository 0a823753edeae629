package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nearbasket/nearbasket-backend/internal/cron"
	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/internal/ledger"
	"github.com/nearbasket/nearbasket-backend/internal/notifications"
	"github.com/nearbasket/nearbasket-backend/internal/orders"
	"github.com/nearbasket/nearbasket-backend/internal/returns"
	"github.com/nearbasket/nearbasket-backend/internal/sellers"
	"github.com/nearbasket/nearbasket-backend/internal/wallet"
	"github.com/nearbasket/nearbasket-backend/pkg/config"
	"github.com/nearbasket/nearbasket-backend/pkg/db"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
	"github.com/nearbasket/nearbasket-backend/pkg/media"
	"github.com/nearbasket/nearbasket-backend/pkg/metrics"
	"github.com/nearbasket/nearbasket-backend/pkg/migrate"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox"
	"github.com/nearbasket/nearbasket-backend/pkg/redis"
	"github.com/nearbasket/nearbasket-backend/pkg/storage/gcs"
)

const lockKeyFormat = "nb:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

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
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	geoSvc, err := geo.NewService(geo.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create geo service", err)
		os.Exit(1)
	}
	sellersSvc, err := sellers.NewService(sellers.NewRepository(gormDB), geoSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create sellers service", err)
		os.Exit(1)
	}
	walletSvc, err := wallet.NewService(wallet.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gcs client", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()
	mediaStore, err := media.NewStore(gormDB, gcsClient, cfg.GCS.BucketName, cfg.GCS.ReadURLTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create media store", err)
		os.Exit(1)
	}
	returnsSvc, err := returns.NewService(
		returns.NewRepository(gormDB),
		orders.NewRepository(gormDB),
		dbClient,
		outboxSvc,
		geoSvc,
		sellersSvc,
		walletSvc,
		ledgerSvc,
		mediaStore,
		cfg.Delivery,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}

	cashbackSweeper, err := orders.NewCashbackSweeper(
		orders.NewRepository(gormDB),
		dbClient,
		walletSvc,
		cfg.Delivery,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create cashback sweeper", err)
		os.Exit(1)
	}

	parkedReturnsJob, err := cron.NewParkedReturnsJob(cron.ParkedReturnsJobParams{
		Logger:  logg,
		Returns: returnsSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create parked returns job", err)
		os.Exit(1)
	}
	outboxRetentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:      logg,
		DB:          dbClient,
		Repository:  outbox.NewRepository(gormDB),
		MinAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}
	notificationCleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(gormDB),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	cashbackAwardJob, err := cron.NewCashbackAwardJob(cron.CashbackAwardJobParams{
		Logger: logg,
		Orders: cashbackSweeper,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cashback award job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(parkedReturnsJob, outboxRetentionJob, notificationCleanupJob, cashbackAwardJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
