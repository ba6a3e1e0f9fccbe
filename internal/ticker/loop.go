// Package ticker implements the tick loop (C8): a single process-wide
// goroutine that, on a 60s period, discovers due monitoring entries and
// runs each sequentially, and at the start of each tick, before that sweep,
// drains any pending manual trigger jobs from the same queue the API
// process feeds. Grounded on the
// teacher's scheduler.Scheduler (time.NewTicker loop, graceful shutdown
// via a cancellable context) collapsed from an N-worker fan-out into the
// single sequential runner this design requires.
package ticker

import (
	"context"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	"github.com/arnavsood/statuspulse/internal/executor"
	"github.com/arnavsood/statuspulse/internal/queue"
	"go.uber.org/zap"
)

const triggerPollTimeout = 500 * time.Millisecond

// Store is the subset of the store gateway the tick loop depends on.
type Store interface {
	ListDueMonitoringEntries(now time.Time) ([]core.MonitoringEntry, error)
	GetMonitoringEntry(id string) (*core.MonitoringEntry, error)
	GetRun(runID string) (*core.Run, error)
}

// MetricsSink is the optional metrics hook; nil-safe no-op implementations
// are fine since the loop guards every call.
type MetricsSink interface {
	RecordTick(duration time.Duration)
	SetQueueDepth(depth int64)
}

type Loop struct {
	store       Store
	executor    *executor.Executor
	queue       *queue.RedisQueue
	metrics     MetricsSink
	period      time.Duration
	graceWindow time.Duration
	logger      *zap.Logger
}

func New(store Store, ex *executor.Executor, q *queue.RedisQueue, metrics MetricsSink, period, graceWindow time.Duration, logger *zap.Logger) *Loop {
	return &Loop{
		store:       store,
		executor:    ex,
		queue:       q,
		metrics:     metrics,
		period:      period,
		graceWindow: graceWindow,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled. Cancellation is checked only between
// ticks, so a tick already under way finishes its entries before Run
// returns; ctx is also handed to the executor, so that tick's external calls
// see the cancellation. Run does not apply the grace window itself: the
// graceWindow field is not read here.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("ticker: shutdown requested, waiting for in-flight work to drain")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.RecordTick(time.Since(start))
		}
	}()

	l.drainTriggerQueue(ctx)

	now := time.Now()
	entries, err := l.store.ListDueMonitoringEntries(now)
	if err != nil {
		l.logger.Error("ticker: failed to list due entries", zap.Error(err))
		return
	}

	for _, entry := range entries {
		e := entry
		if _, err := l.executor.Run(ctx, &e, core.TriggerScheduled, time.Now()); err != nil {
			l.logger.Error("ticker: run failed", zap.String("entry", e.ID), zap.Error(err))
		}
	}
}

// drainTriggerQueue pops every pending manual-trigger job before the tick's
// own due-entry sweep, preserving single-worker discipline across both
// paths: nothing else is allowed to call the executor concurrently. The run
// record for each job was already opened synchronously by the API handler
// that enqueued it (so the caller gets a run id immediately), so this
// resumes that run with executor.Continue rather than opening a second one.
func (l *Loop) drainTriggerQueue(ctx context.Context) {
	if l.queue == nil {
		return
	}
	for {
		job, err := l.queue.Pop(ctx, triggerPollTimeout)
		if err == queue.ErrTimeout {
			return
		}
		if err != nil {
			l.logger.Error("ticker: failed to pop trigger job", zap.Error(err))
			return
		}

		entry, err := l.store.GetMonitoringEntry(job.EntryID)
		if err != nil {
			l.logger.Error("ticker: failed to load entry for trigger job",
				zap.String("entry", job.EntryID), zap.Error(err))
			continue
		}

		run, err := l.store.GetRun(job.RunID)
		if err != nil {
			l.logger.Error("ticker: failed to load run for trigger job",
				zap.String("run", job.RunID), zap.Error(err))
			continue
		}

		if _, err := l.executor.Continue(ctx, entry, run, time.Now()); err != nil {
			l.logger.Error("ticker: manual trigger run failed", zap.String("entry", entry.ID), zap.Error(err))
		}
	}
}
