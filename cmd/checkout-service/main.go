package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/api"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/cache"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/db"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/messaging"
	outboxinfra "github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/outbox"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/infrastructure/payment"
	"github.com/RodolfoDevApp/eventshop-checkout-go/internal/pkg/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.InitLogger(cfg.ServiceName)
	slog.Info("starting checkout service", "port", cfg.HttpPort, "db_driver", cfg.DbDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OtelEnabled {
		shutdown, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OtelEndpoint)
		if err != nil {
			fatal("failed to initialise tracer", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("tracer shutdown error", "error", err)
			}
		}()
	} else {
		telemetry.SetupPropagation()
	}

	store, err := db.Open(ctx, cfg.DbDriver, cfg.DSN())
	if err != nil {
		fatal("failed to open database", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		fatal("failed to migrate database", err)
	}

	if cfg.PaystackSecretKey == "" {
		slog.Warn("PAYSTACK_SECRET_KEY is empty; every webhook will fail verification")
	}

	var reference domain.ReferenceRepository = store.Reference()
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			slog.Warn("redis unreachable, lookups fall through to the database", "addr", cfg.RedisAddr, "error", err)
		}
		reference = cache.NewReferenceRepository(reference, redisCache, cfg.ReferenceCacheTTL)
	}

	// Event buses
	producerBus := messaging.NewProducerBus(cfg.RabbitUri)
	catalogBus := messaging.NewCatalogEventBus(cfg.RabbitUri, "checkout.catalog-events.v1")

	// Application services
	reservationSvc := application.NewReservationService(store)
	checkoutSvc := application.NewCheckoutService(
		store.Carts(),
		reference,
		reservationSvc,
		cfg.ReservationHold,
		cfg.PaystackPublicKey,
	)
	reconciler := application.NewWebhookReconciler(store, payment.NewPaystack(cfg.PaystackSecretKey))
	sweeper := application.NewReservationSweeper(store, cfg.SweepBatchSize, cfg.ReservationRetention)
	orderHistory := application.NewOrderHistoryService(store.Payments())

	// Outbox dispatcher + sweeper on the scheduler
	dispatcher := outboxinfra.NewDispatcher(
		store.Outbox(),
		outboxinfra.BusPublisher(producerBus),
		cfg.OutboxMaxRetry,
		cfg.OutboxBatchSize,
	)
	scheduler := outboxinfra.NewScheduler(
		outboxinfra.Job{Name: "outbox-dispatch", Interval: cfg.OutboxInterval(), Run: dispatcher.Run},
		outboxinfra.Job{Name: "reservation-sweep", Interval: cfg.SweepInterval, Run: sweeper.Run},
	)
	scheduler.Start(ctx)

	if err := messaging.RegisterCatalogSubscriptions(
		ctx,
		catalogBus,
		application.NewProductCreatedHandler(store),
	); err != nil {
		fatal("failed to start catalog subscriptions", err)
	}

	// HTTP API
	apiServer := api.NewServer(cfg, checkoutSvc, reservationSvc, reconciler, orderHistory)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           apiServer.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP listening", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("http server error", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down checkout service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	scheduler.Wait()
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
