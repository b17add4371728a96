package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"promo_rotation_bot/internal/app"
	"promo_rotation_bot/internal/infra/cache"
	"promo_rotation_bot/internal/infra/config"
	idb "promo_rotation_bot/internal/infra/database"
	"promo_rotation_bot/internal/infra/logger"
	"promo_rotation_bot/internal/infra/metrics"
	"promo_rotation_bot/internal/infra/scheduler"
	"promo_rotation_bot/internal/infra/telegram"
)

func main() {
	fmt.Println("Promo Rotation Bot starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":      cfg.LogLevel,
		"environment":    cfg.Environment,
		"cycle_interval": cfg.CycleInterval.String(),
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	if cfg.RunMigrations {
		version, err := idb.Migrate(ctx, db)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not apply database migrations")
		}
		mainLogger.WithField("schema_version", version).Info("Database schema is up to date")
	}

	// Initialize Repositories
	participantRepo := idb.NewPostgresParticipantRepository(db)
	destinationRepo := idb.NewPostgresDestinationRepository(db)
	cacheLayer := cache.NewLayer(cfg.CacheTTL, time.Now)

	recorder := metrics.NewRecorder()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := recorder.Serve(ctx, cfg.MetricsAddr, logger.Component("metrics")); err != nil {
				mainLogger.WithError(err).Error("Metrics server stopped")
			}
		}()
	}

	// Initialize Telegram Bot
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
			}
			entry.Error("Unhandled bot error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}
	client := telegram.NewTelebotAdapter(bot, cfg.SendRatePerSec, cfg.PromoSiteURL)

	// Initialize Services
	delivery := app.NewDeliveryExecutor(client, logger.Component("delivery"), recorder)
	distributionService := app.NewDistributionService(
		participantRepo,
		destinationRepo,
		delivery,
		cacheLayer,
		app.DistributionConfig{
			Intervals:        app.Intervals{Premium: cfg.PremiumInterval, Standard: cfg.StandardInterval},
			TargetPacing:     cfg.TargetPacing,
			SenderPacing:     cfg.SenderPacing,
			FlushConcurrency: cfg.FlushConcurrency,
		},
		logger.Component("distribution"),
		app.WithMetrics(recorder),
	)
	panelService := app.NewPanelService(participantRepo, destinationRepo, client, cacheLayer, logger.Component("panel"), time.Now)

	// Register Handlers
	handlersLogger := logger.Component("telegram")
	telegram.RegisterBotCommands(bot, handlersLogger)
	telegram.RegisterPanelHandlers(ctx, bot, panelService, handlersLogger)
	mainLogger.Info("Command handlers registered.")

	distributionScheduler := scheduler.NewDistributionScheduler(distributionService, logger.Component("scheduler"), cfg.CycleInterval)
	distributionScheduler.Start()

	go bot.Start()
	mainLogger.Info("Application setup complete. Bot and Scheduler are running.")

	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	bot.Stop()
	distributionScheduler.Stop()
	mainLogger.Info("Application shut down gracefully.")
}
