// Package main is the entry point for the application.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"casita/internal/config"
	"casita/internal/events"
	"casita/internal/observability"
	"casita/internal/paypal"
	"casita/internal/repositories"
	"casita/internal/routes"
	"casita/internal/services/auth"
	"casita/internal/services/deposit"
	"casita/internal/services/identity"
	"casita/internal/services/payout"
	"casita/internal/services/reconciler"
	"casita/internal/services/user"
	"casita/internal/services/wallet"
	"casita/internal/services/withdrawal"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/stripe/stripe-go/v72"
)

func main() {
	config.LoadEnv()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := repositories.InitDB(); err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer closeDatabases()

	observability.InitMetrics()

	processorCfg, err := config.LoadProcessor()
	if err != nil {
		log.Fatalf("Failed to load processor configuration: %v", err)
	}
	processor := paypal.NewClient(processorCfg)

	stripe.Key = config.GetEnv("STRIPE_SECRET_KEY", "")

	// Repositories
	publisher := buildPublisher()
	defer publisher.Close()

	ledgerRepo := repositories.NewLedgerRepository(repositories.DB, publisher)
	userRepo := repositories.NewUserRepository(repositories.DB, repositories.CacheService)
	identityRepo := repositories.NewIdentityRepository(repositories.DB, repositories.CacheService)
	settingsRepo := repositories.NewSettingsRepository(repositories.DB)

	// Services
	walletService := wallet.NewService(ledgerRepo, repositories.CacheService, wallet.Config{
		DefaultCurrency: processorCfg.Currency,
	}, nil)
	payoutService := payout.NewService(processor, processorCfg.Currency)
	identityService := identity.NewService(processor, identityRepo)
	withdrawalService := withdrawal.NewService(ledgerRepo, payoutService, identityService)
	depositService := deposit.NewService(ledgerRepo, walletService, nil)
	authService := auth.NewService(userRepo)
	userService := user.NewService(userRepo, walletService)

	reconcilerService := reconciler.NewService(ledgerRepo, settingsRepo, payoutService, identityService, withdrawalService, reconciler.Config{
		SweepInterval: config.GetSecondsEnv("RECONCILER_SWEEP_INTERVAL_SEC", 300),
		StaleAfter:    config.GetSecondsEnv("RECONCILER_STALE_AFTER_SEC", 600),
		BatchSize:     config.GetIntEnv("RECONCILER_BATCH_SIZE", 100),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background workers: the periodic sweep and, when a broker is
	// configured, the transaction-created consumer.
	go reconcilerService.Run(ctx)

	if brokers := kafkaBrokers(); len(brokers) > 0 {
		consumer := events.NewConsumer(brokers, "casita-reconciler", reconcilerService.HandleTransactionCreated)
		defer consumer.Close()
		go consumer.Consume(ctx)
	} else {
		slog.Warn("KAFKA_BROKERS not set, relying on the sweep loop for payout reconciliation")
	}

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins:     config.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowCredentials: true,
	}))

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	for _, path := range []string{"/api/register", "/api/login"} {
		app.Use(path, limiter.New(limiter.Config{
			Max:        5,
			Expiration: 1 * time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests. Please try again later.",
				})
			},
		}))
	}

	routes.SetupRoutes(app, routes.Deps{
		Users:       userRepo,
		Ledger:      ledgerRepo,
		Settings:    settingsRepo,
		Auth:        authService,
		UserSvc:     userService,
		Wallets:     walletService,
		Identities:  identityService,
		Withdrawals: withdrawalService,
		Deposits:    depositService,
		Reconciler:  reconcilerService,
		Metrics:     observability.Handler(),
	})

	go func() {
		if err := app.Listen(":" + config.GetEnv("PORT", "3000")); err != nil {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

func buildPublisher() events.Publisher {
	brokers := kafkaBrokers()
	if len(brokers) == 0 {
		return events.NoopPublisher{}
	}
	return events.NewProducer(brokers)
}

func kafkaBrokers() []string {
	raw := config.GetEnv("KAFKA_BROKERS", "")
	if raw == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func closeDatabases() {
	if repositories.DB != nil {
		if sqlDB, err := repositories.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("Failed to close database connection: %v", err)
			}
		}
	}
	if repositories.CacheService != nil {
		if err := repositories.CacheService.Close(); err != nil {
			log.Printf("Failed to close Redis connection: %v", err)
		}
	}
}
