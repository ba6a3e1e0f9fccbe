package executor

import (
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	"github.com/arnavsood/statuspulse/internal/schedule"
	"go.uber.org/zap"
)

// ReaperStore is the subset of the store gateway the reaper depends on.
// Grounded on the teacher's incidents.Service detect->record->resolve
// shape, collapsed here to a single idempotent sweep since this domain has
// no ongoing-incident concept, only terminal/non-terminal run state.
type ReaperStore interface {
	ListStartedRunsOlderThan(cutoff time.Time) ([]core.Run, error)
	GetMonitoringEntry(id string) (*core.MonitoringEntry, error)
	CompleteRun(runID string, result core.RunResult, completedAt time.Time) error
	AdvanceSchedule(entryID string, lastRunAt, nextRunAt *time.Time) error
}

// Reaper converts runs stuck in started past the grace window into failed
// runs, and recomputes the owning entry's nextRunAt so it never stalls.
type Reaper struct {
	store       ReaperStore
	graceWindow time.Duration
	logger      *zap.Logger
}

func NewReaper(store ReaperStore, graceWindow time.Duration, logger *zap.Logger) *Reaper {
	return &Reaper{store: store, graceWindow: graceWindow, logger: logger}
}

// Sweep finds every run in the started state older than the grace window
// and closes it out. Safe to call repeatedly: once a run is completed it
// no longer appears in ListStartedRunsOlderThan.
func (r *Reaper) Sweep(now time.Time) error {
	cutoff := now.Add(-r.graceWindow)
	stale, err := r.store.ListStartedRunsOlderThan(cutoff)
	if err != nil {
		return err
	}

	for _, run := range stale {
		r.closeAbandoned(run, now)
	}
	return nil
}

func (r *Reaper) closeAbandoned(run core.Run, now time.Time) {
	result := core.RunResult{
		FetchFrom: run.FetchFrom,
		FetchTo:   run.FetchTo,
		Delivery: core.DeliveryRecord{
			Status:        core.DeliveryFailed,
			FailureReason: "abandoned",
		},
	}
	if err := r.store.CompleteRun(run.ID, result, now); err != nil {
		r.logger.Error("reaper: failed to close abandoned run", zap.String("run", run.ID), zap.Error(err))
		return
	}

	entry, err := r.store.GetMonitoringEntry(run.MonitoringEntryID)
	if err != nil {
		r.logger.Error("reaper: failed to load entry for abandoned run", zap.String("run", run.ID), zap.Error(err))
		return
	}

	nextRunAt, err := schedule.NextFiring(entry.Schedule, now)
	if err != nil {
		r.logger.Error("reaper: failed to compute next firing for abandoned run", zap.String("entry", entry.ID), zap.Error(err))
		return
	}
	lastRunAt := run.StartedAt
	if err := r.store.AdvanceSchedule(entry.ID, &lastRunAt, nextRunAt); err != nil {
		r.logger.Error("reaper: failed to advance schedule for abandoned run", zap.String("entry", entry.ID), zap.Error(err))
	}
}

// RunStartupSweep performs the process-startup pass. The hourly sweep is
// driven by a time.Ticker in cmd/worker that calls Sweep directly.
func (r *Reaper) RunStartupSweep(now time.Time) error {
	return r.Sweep(now)
}
