package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"typerace/internal/app"
	"typerace/internal/config"
	"typerace/internal/domain"
	"typerace/internal/logging"
	httpTransport "typerace/internal/transport/http"
	"typerace/internal/transport/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Set up logger
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting typerace server",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := app.NewMetrics("typerace", reg)

	paragraphs, err := app.LoadParagraphs(cfg.Game.ParagraphsFile)
	if err != nil {
		logger.Fatal("failed to load paragraphs", zap.String("path", cfg.Game.ParagraphsFile), zap.Error(err))
	}
	logger.Info("paragraphs loaded", zap.Int("count", paragraphs.Len()))

	hub := ws.NewHub(logger)

	rooms := app.NewRoomRegistry(app.SessionConfig{
		Settings: domain.GameSettings{
			DefaultRoundSeconds: cfg.Game.DefaultRoundSeconds,
			MinRoundSeconds:     cfg.Game.MinRoundSeconds,
			MaxRoundSeconds:     cfg.Game.MaxRoundSeconds,
			MaxTypedLength:      cfg.Game.MaxTypedLength,
		},
		TickInterval: cfg.Game.TickInterval,
		Broadcaster:  hub,
		Paragraphs:   paragraphs,
		Logger:       logger,
		Metrics:      metrics,
	})
	defer rooms.Close()

	dispatcher := app.NewDispatcher(rooms, hub, cfg.Game.MaxNameLength, logger, metrics)

	janitor, err := app.NewJanitor(rooms, cfg.Game.JanitorSchedule, cfg.Game.RoomIdleTTL, logger)
	if err != nil {
		logger.Fatal("invalid janitor schedule", zap.String("schedule", cfg.Game.JanitorSchedule), zap.Error(err))
	}
	janitor.Start()

	wsHandler := ws.NewHandler(hub, dispatcher, cfg.Server.AllowedOrigins, ws.ClientOptions{
		TypingRate:  cfg.Transport.TypingRate,
		TypingBurst: cfg.Transport.TypingBurst,
		Metrics:     metrics,
	}, logger)

	// Create HTTP server
	server := httpTransport.NewServer(cfg, rooms, wsHandler, reg, logger)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	<-janitor.Stop().Done()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	hub.CloseAll()

	logger.Info("server stopped")
}
