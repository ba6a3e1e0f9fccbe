package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnavsood/statuspulse/internal/api"
	"github.com/arnavsood/statuspulse/internal/config"
	"github.com/arnavsood/statuspulse/internal/db"
	"github.com/arnavsood/statuspulse/internal/metrics"
	"github.com/arnavsood/statuspulse/internal/migrations"
	"github.com/arnavsood/statuspulse/internal/queue"
	"github.com/arnavsood/statuspulse/internal/storage/redis"
	"github.com/arnavsood/statuspulse/pkg/keycloak"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if err := migrations.Apply(cfg.Database.URL); err != nil {
		logger.Fatal("failed to apply migrations", zap.Error(err))
	}

	conn, err := db.NewConnection(cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer conn.Close()
	repo := db.NewRepository(conn)

	cache := redis.NewClient(cfg.Redis.URL)
	defer cache.Close()

	jobQueue := queue.NewRedisQueue(cache.Client)

	kc := keycloak.NewClient(cfg.Keycloak, logger)
	collector := metrics.NewCollector()

	server := api.NewServer(cfg, repo, jobQueue, cache, kc, collector, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: server.Router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("api server started", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
