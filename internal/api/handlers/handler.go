package handlers

import (
	"time"

	"github.com/arnavsood/statuspulse/internal/db"
	"github.com/arnavsood/statuspulse/internal/metrics"
	"github.com/arnavsood/statuspulse/internal/queue"
	"github.com/arnavsood/statuspulse/internal/storage/redis"
	"github.com/arnavsood/statuspulse/pkg/keycloak"
	"go.uber.org/zap"
)

type Handler struct {
	repo        *db.Repository
	metrics     *metrics.Collector
	keycloak    *keycloak.Client
	queue       *queue.RedisQueue
	cache       *redis.Client
	dedupWindow time.Duration
	logger      *zap.Logger
}

func NewHandler(repo *db.Repository, metrics *metrics.Collector, keycloak *keycloak.Client, queue *queue.RedisQueue, cache *redis.Client, dedupWindow time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		repo:        repo,
		metrics:     metrics,
		keycloak:    keycloak,
		queue:       queue,
		cache:       cache,
		dedupWindow: dedupWindow,
		logger:      logger,
	}
}
