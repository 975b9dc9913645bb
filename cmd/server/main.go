package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/traaaction/backend/internal/cache"
	"github.com/traaaction/backend/internal/config"
	"github.com/traaaction/backend/internal/events"
	"github.com/traaaction/backend/internal/handler"
	applog "github.com/traaaction/backend/internal/logger"
	"github.com/traaaction/backend/internal/middleware"
	"github.com/traaaction/backend/internal/notify"
	"github.com/traaaction/backend/internal/repository"
	"github.com/traaaction/backend/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applog.Setup(cfg.Log)

	// Connect to database
	repo, err := repository.New(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional: clicks fall back to the database and sweeps run unlocked
	var clicks service.ClickCache
	var locker service.Locker
	redisAddr := cfg.Redis.URL
	if redisAddr == "" {
		redisAddr = cfg.Redis.Addr()
	}
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	rdb, err := cache.Connect(pingCtx, redisAddr, cfg.Redis.Password, cfg.Redis.DB)
	pingCancel()
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without click cache")
	} else {
		defer rdb.Close()
		clicks = cache.NewClickStore(rdb)
		locker = cache.NewLocker(rdb)
		log.WithField("addr", redisAddr).Info("Redis connected")
	}

	// Domain events
	var publisher service.Publisher = events.NewLoggingPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPub, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.PublishTimeout)
		if err != nil {
			log.Fatalf("Failed to create Kafka publisher: %v", err)
		}
		defer kafkaPub.Close()
		publisher = kafkaPub
		log.WithField("topic", cfg.Kafka.Topic).Info("Publishing events to Kafka")
	}

	// Create services
	settingsSvc := service.NewSettingsService(repo, repo, cfg.Commission)
	attributionSvc := service.NewAttributionService(repo, clicks)
	commissionSvc := service.NewCommissionService(repo, attributionSvc, settingsSvc, publisher)
	catalogSvc := service.NewCatalogService(repo, clicks, cfg.Commission.ClickTTL)
	maturationSvc := service.NewMaturationService(repo, cfg.Commission.SweepBatchSize)
	payoutSvc := service.NewPayoutService(repo, publisher)
	balanceSvc := service.NewBalanceService(repo, publisher)
	repairSvc := service.NewRepairService(repo, commissionSvc)

	maturationSvc.SetPublisher(publisher)
	if locker != nil {
		maturationSvc.SetLocker(locker)
	}

	// Seller emails
	if cfg.SMTP.Enabled() {
		mailer := notify.NewMailer(notify.NewSMTPEmailSender(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From,
		))
		maturationSvc.SetNotifier(mailer)
		payoutSvc.SetNotifier(mailer)
		log.WithField("host", cfg.SMTP.Host).Info("Seller email notifications enabled")
	}

	h := handler.New(cfg, repo, catalogSvc, commissionSvc, maturationSvc, payoutSvc, balanceSvc, repairSvc, settingsSvc)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.ActorHeader,
	}))

	if cfg.Auth.WebhookSecret == "" {
		log.Warn("WEBHOOK_SECRET is not set, webhook signatures are not verified")
	}
	h.Register(app,
		middleware.WebhookSignature(cfg.Auth.WebhookSecret),
		middleware.BearerSecret(cfg.Auth.CronSecret),
		middleware.BearerSecret(cfg.Auth.AdminSecret),
	)

	// Start maturation worker
	worker := service.NewMaturationWorker(maturationSvc, cfg.Commission.MaturationInterval)
	go worker.Start(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		cancel()
		_ = app.Shutdown()
	}()

	// Start server
	log.Infof("Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
