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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"social-chat/api"
	"social-chat/internal/config"
	"social-chat/internal/handler"
	"social-chat/internal/mention"
	"social-chat/internal/messaging"
	"social-chat/internal/middleware"
	"social-chat/internal/observability"
	"social-chat/internal/relay"
	"social-chat/internal/repository/postgres"
	"social-chat/internal/security"
	"social-chat/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		slog.Error("chat gateway stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting chat gateway", slog.String("environment", cfg.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connCtx, connCancel := context.WithTimeout(ctx, 10*time.Second)
	db, err := config.NewPostgresConnection(connCtx, cfg.DatabaseURL)
	connCancel()
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to postgresql")

	participants := postgres.NewParticipantRepository(db)
	messages := postgres.NewMessageRepository(db)
	users := postgres.NewUserRepository(db)
	mentions := postgres.NewMentionRepository(db)

	// Connects on first publish
	producer := messaging.NewNotificationProducer(cfg.RabbitMQURL, cfg.NotificationQueue)
	defer producer.Close()

	mentionService := mention.NewService(users, mentions, producer)
	hub := websocket.NewHub()

	deps := websocket.Deps{
		Participants: participants,
		Messages:     messages,
		Reads:        messages,
	}

	var roomRelay *relay.Relay
	var relayProbe handler.Pinger
	if cfg.RedisURL != "" {
		roomRelay, err = relay.New(cfg.RedisURL, hub)
		if err != nil {
			return err
		}
		defer roomRelay.Close()
		deps.Rooms = roomRelay
		relayProbe = roomRelay
		slog.Info("room relay enabled")
	}

	dispatcher := websocket.NewDispatcher(hub, deps)
	verifier := security.NewTokenVerifier(cfg.JWTSecret)
	origins := middleware.ParseOrigins(cfg.AllowedOrigins)

	wsHandler := handler.NewWebSocketHandler(hub, dispatcher, verifier, origins, cfg.WSEventsPerSecond, cfg.WSEventBurst)
	mentionHandler := handler.NewMentionHandler(mentionService)

	validate, err := middleware.OpenAPIValidator(middleware.OpenAPIValidatorConfig{
		Enabled: true,
		Spec:    api.OpenAPISpec,
	})
	if err != nil {
		return err
	}
	apiLimiter := middleware.NewRateLimiter(20, 50)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(origins))
	r.Use(middleware.Metrics())

	r.Get("/health", handler.Health)
	r.Get("/health/ready", handler.Ready(db, producer, relayProbe))
	r.Handle("/metrics", promhttp.Handler())

	// Auth handled internally to support query param tokens
	r.Get("/ws", wsHandler.HandleConnection)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiLimiter.Middleware())
		r.Use(middleware.Auth(verifier))
		r.Use(validate)
		r.Post("/mentions", mentionHandler.Create)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		apiLimiter.Run(gctx)
		return nil
	})
	g.Go(func() error {
		observability.ReportDBStats(gctx, db, 15*time.Second)
		return nil
	})
	if roomRelay != nil {
		g.Go(func() error {
			if err := roomRelay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		slog.Info("chat gateway listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
