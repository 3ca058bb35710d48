package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vantage/internal/api"
	"vantage/internal/config"
	"vantage/internal/db"
	"vantage/internal/models"
	"vantage/internal/notify"
	"vantage/internal/optimistic"
	"vantage/internal/presence"
	"vantage/internal/repository"
	"vantage/internal/services"
	"vantage/internal/services/collaboration"
	"vantage/internal/telemetry"

	"github.com/rs/zerolog/log"
)

const (
	serviceName    = "vantage"
	serviceVersion = "0.1.0"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := telemetry.InitLogger(serviceName, cfg.LogLevel)
	logger.Info().Msg("starting vantage dashboard server")

	telemetry.RegisterMetrics()

	// tracing goes first so everything after it is traced
	jaegerShutdown, err := telemetry.InitJaeger(serviceName, serviceVersion, cfg.JaegerEndpoint)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize jaeger, continuing without tracing")
		jaegerShutdown = func(ctx context.Context) error { return nil }
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := jaegerShutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to shut down jaeger")
		}
	}()

	database, err := db.NewGorm(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	projectRepo := repository.NewProjectRepository(database.DB)
	riskRepo := repository.NewRiskRepository(database.DB)
	actionRepo := repository.NewActionRepository(database.DB)

	hub := collaboration.NewHub()
	hub.Start()

	inbox := notify.NewInbox(0)
	notifiers := notify.Multi{inbox, notify.NewLogNotifier(logger), hub}

	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	if cfg.RedisURL != "" {
		redisNotifier, err := notify.NewRedisNotifier(cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, notifications stay local")
		} else {
			defer redisNotifier.Close()
			notifiers = append(notifiers, redisNotifier)
			go relayRemote(relayCtx, redisNotifier, hub)
		}
	}

	tracker := optimistic.New[models.Action](
		optimistic.WithSuccessGrace(cfg.MutationGrace),
		optimistic.WithNotifier(notifiers),
		optimistic.WithScope(func(a models.Action) string { return a.ProjectID }),
		optimistic.WithLogger(logger),
	)

	actionService := services.NewActionService(actionRepo, tracker, hub, cfg.ActionComplete)
	healthService := services.NewHealthService(projectRepo, hub)
	diagnosisService := services.NewDiagnosisService(projectRepo, riskRepo, services.DefaultLineDelay)
	demoService := services.NewDemoService(repository.NewDemoRepository(database.DB))

	wsHandler := collaboration.NewWebSocketHandler(hub, presence.Config{
		TickInterval:    cfg.PresenceTick,
		StaleAfter:      cfg.PresenceStaleAfter,
		MaxSimulated:    cfg.PresenceMaxUsers,
		JoinProbability: presence.DefaultJoinProbability,
	})

	handler := api.NewHandler(projectRepo, riskRepo, actionRepo, actionService, healthService, inbox, wsHandler, diagnosisService, demoService)
	router := api.SetupRoutes(handler)

	addr := cfg.Addr()
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", "http://"+addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("server forced to shut down")
	}

	// pending confirmations may still broadcast, so the hub closes last
	actionService.Wait()
	stopRelay()
	hub.Shutdown()

	logger.Info().Msg("server shutdown complete")
}

// relayRemote forwards notifications raised by other instances to local
// websocket clients.
func relayRemote(ctx context.Context, r *notify.RedisNotifier, hub *collaboration.Hub) {
	ch, err := r.Subscribe(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to subscribe to remote notifications")
		return
	}
	for n := range ch {
		if err := hub.Notify(ctx, n); err != nil {
			log.Warn().Err(err).Str("notification_id", n.ID).Msg("failed to relay notification")
		}
	}
}
