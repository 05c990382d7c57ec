package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onairlive/onair/internal/config"
	"github.com/onairlive/onair/internal/domain"
	"github.com/onairlive/onair/internal/handler"
	"github.com/onairlive/onair/internal/hub"
	"github.com/onairlive/onair/internal/relay"
	"github.com/onairlive/onair/internal/repository"
	"github.com/onairlive/onair/internal/service"
	"github.com/onairlive/onair/internal/token"
	"github.com/onairlive/onair/pkg/database"
	pkgjwt "github.com/onairlive/onair/pkg/jwt"
	pkglog "github.com/onairlive/onair/pkg/log"
	"github.com/onairlive/onair/pkg/middleware"
	"github.com/onairlive/onair/pkg/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, ServiceName: "onair"})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting onair")

	// Event bus. The relay keeps working without it; lifecycle events and
	// follower fan-out are disabled.
	var bus pubsub.PubSub
	bus, err = pubsub.NewPubSub(cfg.PubSub)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to initialize pubsub, broadcast events disabled")
		bus = nil
	} else {
		defer bus.Close()
		logger.Info().Str("driver", cfg.PubSub.Driver).Msg("connected to event bus")
	}

	// Entity store (follows, notifications).
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db, &domain.FollowModel{}, &domain.NotificationModel{}); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	followRepo := repository.NewGormFollowRepository(db)
	notificationRepo := repository.NewGormNotificationRepository(db)

	// Auth token verification (tokens are issued by the auth service).
	jwtManager := pkgjwt.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, 24*time.Hour)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// Push channel hub.
	wsHub := hub.NewHub(cfg.WebSocket)

	// Session registry and signaling service.
	registry := relay.NewRegistry()

	var publisher pubsub.Publisher
	if bus != nil {
		publisher = bus
	}
	signalingSvc := service.NewSignalingService(registry, publisher)
	pushSvc := service.NewPushService(wsHub, jwtManager)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go registry.RunReaper(ctx, cfg.Reaper.Interval, cfg.Reaper.MaxIdle, signalingSvc.OnSessionReaped)

	// Follower notification fan-out.
	if bus != nil {
		notifier := service.NewNotifier(wsHub, followRepo, notificationRepo, bus)
		if err := notifier.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to start notifier, follower pushes disabled")
		}
	}

	// RTC access-token issuance.
	rtcBuilder := token.NewBuilder(cfg.RTC.AppID, cfg.RTC.Secret, cfg.RTC.TTL)

	httpHandler := handler.NewHTTPHandler(signalingSvc, rtcBuilder, authMiddleware)
	wsHandler := handler.NewWSHandler(wsHub, pushSvc)
	router := handler.NewRouter(logger, httpHandler, wsHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("onair listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down onair")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("onair stopped")
}
