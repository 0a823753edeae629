package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nearbasket/nearbasket-backend/api/routes"
	"github.com/nearbasket/nearbasket-backend/internal/cart"
	"github.com/nearbasket/nearbasket-backend/internal/catalog"
	"github.com/nearbasket/nearbasket-backend/internal/geo"
	"github.com/nearbasket/nearbasket-backend/internal/ledger"
	"github.com/nearbasket/nearbasket-backend/internal/notifications"
	"github.com/nearbasket/nearbasket-backend/internal/orders"
	"github.com/nearbasket/nearbasket-backend/internal/promos"
	"github.com/nearbasket/nearbasket-backend/internal/returns"
	"github.com/nearbasket/nearbasket-backend/internal/sellers"
	"github.com/nearbasket/nearbasket-backend/internal/settings"
	"github.com/nearbasket/nearbasket-backend/internal/wallet"
	"github.com/nearbasket/nearbasket-backend/pkg/config"
	"github.com/nearbasket/nearbasket-backend/pkg/db"
	"github.com/nearbasket/nearbasket-backend/pkg/logger"
	"github.com/nearbasket/nearbasket-backend/pkg/media"
	"github.com/nearbasket/nearbasket-backend/pkg/metrics"
	"github.com/nearbasket/nearbasket-backend/pkg/migrate"
	"github.com/nearbasket/nearbasket-backend/pkg/outbox"
	"github.com/nearbasket/nearbasket-backend/pkg/payment"
	"github.com/nearbasket/nearbasket-backend/pkg/redis"
	"github.com/nearbasket/nearbasket-backend/pkg/storage/gcs"
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

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	settingsSvc, err := settings.NewService(settings.NewRepository(gormDB), redisClient, cfg.Settings)
	if err != nil {
		fatal(logg, "settings service", err)
	}
	geoSvc, err := geo.NewService(geo.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "geo service", err)
	}
	sellersSvc, err := sellers.NewService(sellers.NewRepository(gormDB), geoSvc)
	if err != nil {
		fatal(logg, "sellers service", err)
	}
	catalogSvc, err := catalog.NewService(catalog.NewRepository(gormDB), sellersSvc)
	if err != nil {
		fatal(logg, "catalog service", err)
	}
	promosSvc, err := promos.NewService(promos.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "promos service", err)
	}
	walletSvc, err := wallet.NewService(wallet.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "wallet service", err)
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "ledger service", err)
	}
	notificationsSvc, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "notifications service", err)
	}
	cartSvc, err := cart.NewService(cart.NewRepository(gormDB), dbClient, catalogSvc, geoSvc, promosSvc, settingsSvc)
	if err != nil {
		fatal(logg, "cart service", err)
	}

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		fatal(logg, "gcs client", err)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs client", err)
		}
	}()
	mediaStore, err := media.NewStore(gormDB, gcsClient, cfg.GCS.BucketName, cfg.GCS.ReadURLTTL)
	if err != nil {
		fatal(logg, "media store", err)
	}

	var payments payment.Provider
	if cfg.Payment.GatewayBaseURL != "" {
		payments, err = payment.NewGateway(cfg.Payment, logg)
		if err != nil {
			fatal(logg, "payment gateway", err)
		}
	} else {
		logg.Warn(context.Background(), "payment gateway url not set, using fake provider")
		payments = payment.NewFakeProvider()
	}

	ordersSvc, err := orders.NewService(
		orders.NewRepository(gormDB),
		dbClient,
		outboxSvc,
		cartSvc,
		geoSvc,
		catalogSvc,
		promosSvc,
		walletSvc,
		ledgerSvc,
		sellersSvc,
		settingsSvc,
		payments,
		cfg.Delivery,
		logg,
	)
	if err != nil {
		fatal(logg, "orders service", err)
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
		fatal(logg, "returns service", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, httpMetrics, registry, routes.Services{
			Cart:          cartSvc,
			Orders:        ordersSvc,
			Returns:       returnsSvc,
			Geo:           geoSvc,
			Promos:        promosSvc,
			Wallet:        walletSvc,
			Ledger:        ledgerSvc,
			Notifications: notificationsSvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatal(logg *logger.Logger, what string, err error) {
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}
