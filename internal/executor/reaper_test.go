package executor

import (
	"testing"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	"go.uber.org/zap"
)

type fakeReaperStore struct {
	started  []core.Run
	entry    *core.MonitoringEntry
	complete []completedCall
	advanced []advancedCall
}

func (f *fakeReaperStore) ListStartedRunsOlderThan(cutoff time.Time) ([]core.Run, error) {
	var out []core.Run
	for _, r := range f.started {
		if r.StartedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReaperStore) GetMonitoringEntry(id string) (*core.MonitoringEntry, error) {
	return f.entry, nil
}

func (f *fakeReaperStore) CompleteRun(runID string, result core.RunResult, completedAt time.Time) error {
	f.complete = append(f.complete, completedCall{runID: runID, result: result})
	return nil
}

func (f *fakeReaperStore) AdvanceSchedule(entryID string, lastRunAt, nextRunAt *time.Time) error {
	f.advanced = append(f.advanced, advancedCall{entryID: entryID, lastRunAt: lastRunAt, nextRunAt: nextRunAt})
	return nil
}

func TestReaper_E6_AbandonedRunSweep(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	startedAt := now.Add(-6 * time.Minute)

	store := &fakeReaperStore{
		started: []core.Run{
			{ID: "run-abandoned", MonitoringEntryID: "entry-1", Status: core.RunStarted, StartedAt: startedAt},
		},
		entry: dailyKolkataEntry(),
	}

	reaper := NewReaper(store, 5*time.Minute, zap.NewNop())
	if err := reaper.Sweep(now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	if len(store.complete) != 1 {
		t.Fatalf("expected one run closed, got %d", len(store.complete))
	}
	closed := store.complete[0].result
	if closed.Delivery.Status != core.DeliveryFailed || closed.Delivery.FailureReason != "abandoned" {
		t.Fatalf("expected failed/abandoned, got %+v", closed.Delivery)
	}
	if len(store.advanced) != 1 || store.advanced[0].nextRunAt == nil {
		t.Fatalf("expected nextRunAt recomputed from the original schedule")
	}
	if !store.advanced[0].nextRunAt.After(now) {
		t.Fatalf("expected recomputed nextRunAt to be in the future")
	}
}

func TestReaper_SweepIgnoresRunsWithinGraceWindow(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	startedAt := now.Add(-2 * time.Minute)

	store := &fakeReaperStore{
		started: []core.Run{
			{ID: "run-fresh", MonitoringEntryID: "entry-1", Status: core.RunStarted, StartedAt: startedAt},
		},
		entry: dailyKolkataEntry(),
	}

	reaper := NewReaper(store, 5*time.Minute, zap.NewNop())
	if err := reaper.Sweep(now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(store.complete) != 0 {
		t.Fatalf("expected run within grace window to be left alone, got %d closures", len(store.complete))
	}
}
