package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anpag/escaipe-room/internal/config"
	"github.com/anpag/escaipe-room/internal/engine"
	"github.com/anpag/escaipe-room/internal/handlers"
	"github.com/anpag/escaipe-room/internal/logger"
	"github.com/anpag/escaipe-room/internal/middleware"
	"github.com/anpag/escaipe-room/internal/services"
	"github.com/anpag/escaipe-room/internal/storage"
	"github.com/anpag/escaipe-room/pkg/room"
)

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg)

	log.Info("Starting Escaipe Room API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"model_name", cfg.ModelName)

	if cfg.GeminiAPIKey == "" {
		log.Error("GEMINI_API_KEY is required")
		os.Exit(1)
	}

	llmCtx, llmCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer llmCancel()

	llmService, err := services.NewGeminiService(llmCtx, cfg.GeminiAPIKey, log)
	if err != nil {
		log.Error("Failed to create generation service", "error", err)
		os.Exit(1)
	}
	if err := llmService.InitModel(llmCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	store := storage.NewRedisStorage(cfg.RedisURL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	registry := room.DefaultRegistry()
	orchestrator := engine.NewOrchestrator(registry, store, llmService, cfg.ModelName, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, llmService, log)
	mux.Handle("/health", healthHandler)

	teamsHandler := handlers.NewTeamsHandler(store, orchestrator.Progression(), registry.First(), log)
	mux.Handle("/v1/teams", teamsHandler)
	mux.Handle("/v1/teams/", teamsHandler)

	roomsHandler := handlers.NewRoomsHandler(registry, log)
	mux.Handle("/v1/rooms/", roomsHandler)

	channelHandler := handlers.NewChannelHandler(orchestrator, log)
	mux.Handle("/ws", channelHandler)

	handler := middleware.Logger(log, middleware.CORS(cfg.AllowedOrigins, mux))
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset: channel connections are long-lived.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	if err := llmService.Close(); err != nil {
		log.Error("Error closing generation service", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
