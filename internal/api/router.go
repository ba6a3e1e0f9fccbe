package api

import (
	"github.com/arnavsood/statuspulse/internal/api/handlers"
	"github.com/arnavsood/statuspulse/internal/api/middleware"
	"github.com/arnavsood/statuspulse/internal/config"
	"github.com/arnavsood/statuspulse/internal/db"
	"github.com/arnavsood/statuspulse/internal/metrics"
	"github.com/arnavsood/statuspulse/internal/queue"
	"github.com/arnavsood/statuspulse/internal/storage/redis"
	"github.com/arnavsood/statuspulse/pkg/keycloak"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	Config *config.Config
	Router *gin.Engine
	Repo   *db.Repository
	Queue  *queue.RedisQueue
}

func NewServer(cfg *config.Config, repo *db.Repository, q *queue.RedisQueue, cache *redis.Client, kc *keycloak.Client, collector *metrics.Collector, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	h := handlers.NewHandler(repo, collector, kc, q, cache, cfg.Executor.TriggerDedupWindow, logger)

	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthRequired(kc))
	v1.Use(middleware.Tenant())
	{
		v1.POST("/entries/:id/trigger", h.TriggerNow)
		v1.GET("/entries/due", h.ListDue)
		v1.GET("/runs/:id", h.GetRun)
	}

	webhooks := router.Group("/webhooks")
	{
		webhooks.POST("/billing", h.BillingWebhook)
		webhooks.POST("/identity", h.IdentityWebhook)
	}

	return &Server{Config: cfg, Router: router, Repo: repo, Queue: q}
}
