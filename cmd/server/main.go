package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/masjid-suite/billing/internal/api"
	"github.com/masjid-suite/billing/internal/api/cron"
	v1 "github.com/masjid-suite/billing/internal/api/v1"
	"github.com/masjid-suite/billing/internal/cache"
	"github.com/masjid-suite/billing/internal/config"
	"github.com/masjid-suite/billing/internal/domain/tier"
	"github.com/masjid-suite/billing/internal/gateway/toyyibpay"
	"github.com/masjid-suite/billing/internal/logger"
	gormrepo "github.com/masjid-suite/billing/internal/repository/gorm"
	"github.com/masjid-suite/billing/internal/service"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cache.InitializeInMemoryCache()

	client, err := gormrepo.NewClient(cfg, log)
	if err != nil {
		log.Fatalw("failed to connect to postgres", "error", err)
	}

	params := service.ServiceParams{
		Logger:         log,
		Config:         cfg,
		Catalog:        tier.DefaultCatalog(),
		SubRepo:        gormrepo.NewSubscriptionRepository(client, log),
		PaymentRepo:    gormrepo.NewPaymentRepository(client, log),
		LocalAdminRepo: gormrepo.NewLocalAdminRepository(client, log),
		AssignmentRepo: gormrepo.NewAssignmentRepository(client, log),
		Gateway:        toyyibpay.NewClient(cfg.ToyyibPay, log),
		Cache:          cache.GetInMemoryCache(),
	}

	subscriptionService := service.NewSubscriptionService(params)
	paymentService := service.NewPaymentService(params)
	localAdminService := service.NewLocalAdminService(params)
	featureGateService := service.NewFeatureGateService(params)

	handlers := api.Handlers{
		Subscription:     v1.NewSubscriptionHandler(subscriptionService, log),
		Payment:          v1.NewPaymentHandler(paymentService, log),
		LocalAdmin:       v1.NewLocalAdminHandler(localAdminService, log),
		Tier:             v1.NewTierHandler(featureGateService, log),
		SubscriptionCron: cron.NewSubscriptionCronHandler(subscriptionService, log),
	}

	router := api.NewRouter(handlers, cfg, log)
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		log.Infow("starting server", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("forced shutdown", "error", err)
	}
	log.Infow("server stopped")
}
