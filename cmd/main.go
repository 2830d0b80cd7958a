package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/salesdash/internal/api"
	"github.com/salesdash/internal/auth"
	"github.com/salesdash/internal/config"
	"github.com/salesdash/internal/database"
	"github.com/salesdash/internal/logging"
	"github.com/salesdash/internal/notify"
	"github.com/salesdash/internal/report"
	"github.com/salesdash/internal/scheduler"
	"github.com/salesdash/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Open(cfg.Database.URI, logger)
	if err != nil {
		return err
	}
	defer database.Close(db)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	builder := report.NewBuilder(report.CSVSource{Path: cfg.Data.File})
	renderer := report.NewRenderer()
	mailer := notify.NewMailer(notify.SMTPConfig{
		Host:   cfg.SMTP.Host,
		Port:   cfg.SMTP.Port,
		User:   cfg.SMTP.User,
		Pass:   cfg.SMTP.Pass,
		Sender: cfg.SMTP.Sender,
	})
	if !mailer.Configured() {
		logger.Warn().Msg("SMTP is not configured; scheduled reports will fail to send")
	}

	opts := scheduler.Options{
		FirstFireDelay:   cfg.Scheduler.FirstFireDelay,
		Interval:         cfg.Scheduler.Interval,
		MaxConcurrent:    cfg.Scheduler.MaxConcurrent,
		ExecutionTimeout: cfg.Scheduler.ExecutionTimeout,
		Registerer:       registry,
		Logger:           logging.Component(logger, "scheduler"),
	}
	if slack := notify.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel); slack != nil {
		opts.Notifier = slack
	}
	if cfg.Archive.Endpoint != "" {
		archive, err := storage.NewMinioArchive(ctx, storage.ArchiveConfig{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			Bucket:    cfg.Archive.Bucket,
			UseSSL:    cfg.Archive.UseSSL,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("report archive disabled")
		} else {
			opts.Archive = archive
		}
	}

	schedules := scheduler.NewService(db, builder, renderer, mailer, opts)
	if _, err := schedules.RecoverOnStartup(ctx); err != nil {
		return err
	}
	schedules.Start(ctx)
	defer schedules.Stop()

	var cache *report.StatsCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		cache = report.NewStatsCache(rdb, cfg.Redis.TTL, logging.Component(logger, "cache"))
	}

	gin.SetMode(gin.ReleaseMode)
	accounts := auth.NewService(db, auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))
	server := api.NewServer(accounts, builder, renderer, schedules, api.Config{
		CORSOrigins: cfg.Server.CORSOrigins,
		Cache:       cache,
		Gatherer:    registry,
		Logger:      logging.Component(logger, "http"),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ch:
	case err := <-errCh:
		return err
	}

	logger.Info().Msg("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
