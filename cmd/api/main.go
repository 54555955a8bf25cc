package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/voucher-service/internal/api/http"
	"github.com/spec-kit/voucher-service/internal/api/http/handlers"
	"github.com/spec-kit/voucher-service/internal/config"
	"github.com/spec-kit/voucher-service/internal/events"
	"github.com/spec-kit/voucher-service/internal/observability"
	"github.com/spec-kit/voucher-service/internal/persistence"
	"github.com/spec-kit/voucher-service/internal/qr"
	"github.com/spec-kit/voucher-service/internal/repository"
	"github.com/spec-kit/voucher-service/internal/service"
	"github.com/spec-kit/voucher-service/internal/signing"
)

func main() {
	// Money fields serialize as JSON numbers, matching the stored
	// unit_totals_json / items_json representation.
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.UsingDefaultSecret() {
		logger.Warn("HMAC_SECRET not set; using the placeholder secret")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewDispatcher(redis.Client, cfg.Events.RedisChannel, logger)

	notifications := service.NewNotificationService(dispatcher, logger, cfg.Notify)
	notifications.RegisterHandlers()

	ticketRepo := repository.NewTicketRepository(pg.PoolHandle())
	signer := signing.New(cfg.Signing.Secret)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Signer:     signer,
		Dispatcher: dispatcher,
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics)
	ticketsHandler := handlers.NewTicketsHandler(ticketService, qr.NewEncoder(256), metrics)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  healthHandler,
		Tickets: ticketsHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
