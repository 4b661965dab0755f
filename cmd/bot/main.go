package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ttbtrackr/internal/app"
	"ttbtrackr/internal/domain/notify"
	"ttbtrackr/internal/infra/config"
	"ttbtrackr/internal/infra/contact"
	idb "ttbtrackr/internal/infra/database"
	"ttbtrackr/internal/infra/diag"
	"ttbtrackr/internal/infra/logger"
	"ttbtrackr/internal/infra/scheduler"
	"ttbtrackr/internal/infra/telegram"
	"ttbtrackr/internal/infra/timetable"

	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("TTBTrackr starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s, PollInterval: %s", cfg.LogLevel, cfg.Environment, cfg.PollInterval)

	// Database
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Repositories
	watchRepo := idb.NewPostgresWatchRepository(db)
	baselineRepo := idb.NewPostgresBaselineRepository(db)
	subscriberRepo := idb.NewPostgresSubscriberRepository(db)
	faultRepo := idb.NewPostgresFaultRepository(db)
	log.Info("Repositories initialized.")

	// Telegram bot (direct-message transport and diagnostics sink)
	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			log.Errorf("telebot: %v", err)
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		log.Fatalf("Could not create Telegram bot: %v", err)
	}
	sender := telegram.NewTelebotAdapter(bot)

	// Notification channels
	channels := []notify.Channel{telegram.NewDMChannel(sender)}
	var twilioClient *contact.TwilioClient
	if cfg.PhoneChannelsConfigured() {
		twilioClient = contact.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
		channels = append(channels, contact.NewSMSChannel(twilioClient), contact.NewVoiceChannel(twilioClient))
		log.Info("Phone channels enabled.")
	} else {
		log.Warn("Twilio credentials not configured; SMS and voice channels disabled.")
	}
	if cfg.SocialGatewayURL != "" {
		channels = append(channels, contact.NewSocialChannel(cfg.SocialGatewayURL, cfg.SocialGatewayToken))
		log.Info("Social channel enabled.")
	}

	notifier := app.NewNotifier(subscriberRepo, channels, log)
	reporter := diag.NewTelegramReporter(sender, cfg.AdminChatID, log)

	// Application services
	timetableClient := timetable.NewHTTPClient(cfg.TimetableURL, cfg.Sessions, cfg.Divisions)
	trackingService := app.NewTrackingService(watchRepo, subscriberRepo, timetableClient, cfg.AdminChatID, log)
	profileService := app.NewProfileService(subscriberRepo, watchRepo, log)
	var verificationService *app.VerificationService
	if twilioClient != nil {
		verificationService = app.NewVerificationService(subscriberRepo, faultRepo, twilioClient, log)
	}

	reconciler := app.NewReconcilerService(
		watchRepo,
		baselineRepo,
		timetableClient,
		notifier,
		reporter,
		cfg.EnforceEnrollmentControls,
		log,
	)

	// Chat command surface
	handlerCtx, cancelHandlers := context.WithCancel(context.Background())
	defer cancelHandlers()
	telegram.RegisterBotHandlers(
		handlerCtx,
		bot,
		trackingService,
		profileService,
		verificationService,
		cfg.AdminChatID,
		log.WithField("component", "bot_handlers"),
	)
	log.Info("Bot command handlers registered.")

	// Schedulers
	poll := scheduler.NewPollScheduler(reconciler, cfg.PollInterval, cfg.CycleTimeout, log)
	poll.Start()

	maintenance := scheduler.NewMaintenanceScheduler(baselineRepo, cfg.CronSpecMaintenance, log)
	if err := maintenance.Start(); err != nil {
		log.Fatalf("Could not start maintenance scheduler: %v", err)
	}

	log.Info("Application setup complete. Bot and schedulers are starting...")
	go bot.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	poll.Stop()
	maintenance.Stop()
	bot.Stop()
	log.Info("Application shut down gracefully.")
}
