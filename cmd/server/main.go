package main

// @title           Collab Relay Service API
// @version         1.0
// @description     Realtime collaborative document relay with snapshot persistence
// @host            localhost:8080
// @BasePath        /api/v1
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collab-service/internal/adapters/kafka"
	"collab-service/internal/adapters/storage"
	"collab-service/internal/api/routes"
	"collab-service/internal/config"
	"collab-service/internal/database"
	"collab-service/internal/relay"
	"collab-service/internal/repositories/postgres"
	"collab-service/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	logger.Info("Starting collab relay server")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Redis: presence, rate limits, cross-instance fan-out
	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Postgres: user accounts and document snapshots
	db, err := database.NewPostgresConnection(cfg.Database.URI())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Optional collaborators
	var activity *kafka.ActivityProducer
	if cfg.Kafka.Enabled {
		activity = kafka.NewActivityProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer activity.Close()
	}

	var archive *storage.SnapshotStore
	if cfg.Storage.Enabled {
		archive, err = storage.NewSnapshotStore(cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL)
		if err != nil {
			logger.Error("Failed to connect to MinIO", "error", err)
			os.Exit(1)
		}
	}

	// Repositories and services
	userRepo := postgres.NewUserRepository(db)
	documentRepo := postgres.NewDocumentRepository(db)
	redisService := services.NewRedisService(redisClient)
	userService := services.NewUserService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpirationTime)
	documentService := services.NewDocumentService(documentRepo, archive, activity, logger)

	// Relay: one registry and one directory for the process lifetime; none
	// of this state survives a restart, reconnecting clients re-join.
	rooms := relay.NewDirectory()
	registry := relay.NewRegistry(rooms)
	bus := relay.NewRedisBus(redisClient.GetClient(), logger)
	relayEngine := relay.NewEngine(registry, rooms, bus, logger)
	relayEngine.SetPresence(redisService)
	go bus.Run(ctx, relayEngine)

	// HTTP router
	router := routes.NewRouter(cfg, relayEngine, redisService, userService, documentService, logger)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed to start", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("Server shutting down...")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
