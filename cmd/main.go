/**
 * @description
 * This is the main entry point for the subscribe service.
 * It initializes and wires together all the components of the application,
 * including configuration, database connection, mail transport, follow-up
 * scheduling, the optional event producer and the HTTP router.
 * Finally, it starts the HTTP server to listen for incoming requests.
 *
 * @dependencies
 * - github.com/joho/godotenv: For loading .env files during local development.
 * - github.com/jackc/pgx/v5: PostgreSQL connection pool.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/api"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/app"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/config"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/domain"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/mail"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/internal/store"
	"github.com/Hemanth-M2002/Come-Soon-Codeproof-Server/pkg/rabbitmq"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables")
	}

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up channel to listen for OS signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Simple protocol keeps us compatible with PgBouncer transaction pooling (SQLSTATE 42P05).
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := dbpool.Ping(ctx); err != nil {
		logger.Error("database is unreachable", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := store.Migrate(ctx, dbpool, logger); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	dispatcher, err := mail.NewDispatcher(mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		UseTLS:   cfg.SMTPUseTLS,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		Timeout:  cfg.MailSendTimeout,
	})
	if err != nil {
		logger.Error("failed to configure mail transport", "error", err)
		os.Exit(1)
	}

	repository := store.NewRepository(dbpool)

	// Follow-up delivery: in-process timers by default, or the database outbox
	// drained by a cron job when durability is wanted.
	var (
		followUps app.FollowUpScheduler
		timers    *app.TimerScheduler
		scheduler *app.Scheduler
	)
	switch cfg.FollowUpMode {
	case config.FollowUpModeOutbox:
		followUps = app.NewOutboxScheduler(repository, logger)
		sweeper := app.NewFollowUpSweeper(repository, dispatcher, logger, cfg.FollowUpBatchSize, cfg.FollowUpStaleAfter, cfg.MailSendTimeout)
		scheduler = app.NewScheduler(logger)
		if err := scheduler.Register("follow-up-sweeper", cfg.FollowUpSweepSchedule, sweeper.Sweep); err != nil {
			os.Exit(1)
		}
		scheduler.Start()
	default:
		timers = app.NewTimerScheduler(dispatcher, logger, cfg.MailSendTimeout)
		followUps = timers
	}
	logger.Info("follow-up delivery configured", "mode", cfg.FollowUpMode, "delay", cfg.FollowUpDelay.String())

	options := app.Options{
		Sender:        domain.Sender{Name: cfg.SenderName, Address: cfg.SMTPUsername},
		FollowUpDelay: cfg.FollowUpDelay,
		FollowUpLink:  cfg.FollowUpLink,
	}
	if cfg.RabbitMQURL != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, cfg.EventsExchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, subscriber events disabled", "error", err)
		} else {
			defer producer.Close()
			options.Events = producer
			logger.Info("RabbitMQ producer connected", "exchange", cfg.EventsExchange)
		}
	}

	// Initialize application layers
	service := app.NewService(repository, dispatcher, followUps, logger, options)
	handler := api.NewHandler(service, logger)
	router := api.NewRouter(handler, cfg.CORSAllowedOrigins)

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	if timers != nil {
		timers.Stop()
	}

	logger.Info("server stopped")
}
