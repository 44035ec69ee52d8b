package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"social-chat/internal/config"
	"social-chat/internal/messaging"
	"social-chat/internal/observability"
	"social-chat/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		slog.Error("notification worker stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting notification worker", slog.String("queue", cfg.NotificationQueue))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connCtx, connCancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := config.NewPostgresConnection(connCtx, cfg.DatabaseURL)
	connCancel()
	if err != nil {
		return err
	}
	defer db.Close()

	dialCtx, dialCancel := context.WithTimeout(ctx, 60*time.Second)
	conn, err := messaging.DialWithRetry(dialCtx, messaging.DialAMQP, cfg.RabbitMQURL)
	dialCancel()
	if err != nil {
		return err
	}
	defer conn.Close()
	slog.Info("connected to rabbitmq")

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	consumer := messaging.NewNotificationConsumer(ch, cfg.NotificationQueue, postgres.NewNotificationRepository(db))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		observability.ReportDBStats(gctx, db, 15*time.Second)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("notification worker stopped gracefully")
	return nil
}
