package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnavsood/statuspulse/internal/config"
	"github.com/arnavsood/statuspulse/internal/cryptoutil"
	"github.com/arnavsood/statuspulse/internal/db"
	"github.com/arnavsood/statuspulse/internal/deliver"
	"github.com/arnavsood/statuspulse/internal/executor"
	"github.com/arnavsood/statuspulse/internal/fetch"
	"github.com/arnavsood/statuspulse/internal/metrics"
	"github.com/arnavsood/statuspulse/internal/migrations"
	"github.com/arnavsood/statuspulse/internal/quota"
	"github.com/arnavsood/statuspulse/internal/queue"
	"github.com/arnavsood/statuspulse/internal/storage/redis"
	"github.com/arnavsood/statuspulse/internal/summarize"
	"github.com/arnavsood/statuspulse/internal/ticker"
	"go.uber.org/zap"
)

const reaperSweepPeriod = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

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

	cipher, err := cryptoutil.NewCredentialCipher(cfg.Credential.EncryptionKey)
	if err != nil {
		logger.Fatal("failed to initialize credential cipher", zap.Error(err))
	}

	smtpStage, err := deliver.NewSMTPStage(deliver.Credentials{
		Provider: deliver.Provider(cfg.SMTP.Provider),
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
	})
	if err != nil {
		logger.Fatal("failed to initialize smtp stage", zap.Error(err))
	}

	ex := executor.New(executor.Deps{
		Store:        repo,
		FetchStage:   fetch.NewGitHubStage(logger),
		LLMStage:     summarize.NewLLMStage(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.MinInterval, logger),
		DeliverStage: smtpStage,
		Quota:        quota.NewGate(repo),
		Cipher:       cipher,
		GlobalToken:  cfg.VCS.GlobalToken,
		Instruction:  cfg.LLM.Instruction,
		Logger:       logger,
	})

	reaper := executor.NewReaper(repo, cfg.Executor.GraceWindow, logger)

	collector := metrics.NewCollector()
	loop := ticker.New(repo, ex, jobQueue, tickerMetrics{collector}, cfg.Executor.TickPeriod, cfg.Executor.GraceWindow, logger)

	ctx, cancel := context.WithCancel(context.Background())

	if err := reaper.RunStartupSweep(time.Now()); err != nil {
		logger.Error("startup reaper sweep failed", zap.Error(err))
	}
	go runReaperLoop(ctx, reaper, logger)

	go loop.Run(ctx)

	logger.Info("worker started", zap.Duration("tick_period", cfg.Executor.TickPeriod))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down worker")
	cancel()
	time.Sleep(cfg.Executor.GraceWindow)
	logger.Info("worker exited")
}

func runReaperLoop(ctx context.Context, reaper *executor.Reaper, logger *zap.Logger) {
	t := time.NewTicker(reaperSweepPeriod)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if err := reaper.Sweep(now); err != nil {
				logger.Error("reaper sweep failed", zap.Error(err))
			}
		}
	}
}

// tickerMetrics adapts the metrics collector to ticker.MetricsSink.
type tickerMetrics struct {
	c *metrics.Collector
}

func (m tickerMetrics) RecordTick(d time.Duration) { m.c.RecordTick(d) }
func (m tickerMetrics) SetQueueDepth(depth int64)  { m.c.SetQueueDepth(depth) }
