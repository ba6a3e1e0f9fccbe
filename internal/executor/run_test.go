package executor

import (
	"context"
	"testing"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	"github.com/arnavsood/statuspulse/internal/fetch"
	"github.com/arnavsood/statuspulse/internal/quota"
	"go.uber.org/zap"
)

type fakeStore struct {
	tenant       *core.Tenant
	repo         *core.Repository
	author       *core.Author
	completed    []completedCall
	advanced     []advancedCall
	repoStatuses []core.RepositoryStatus
}

type completedCall struct {
	runID  string
	result core.RunResult
}

type advancedCall struct {
	entryID   string
	lastRunAt *time.Time
	nextRunAt *time.Time
}

func (f *fakeStore) GetRepository(id string) (*core.Repository, error) { return f.repo, nil }

func (f *fakeStore) SetRepositoryStatus(id string, status core.RepositoryStatus) error {
	f.repoStatuses = append(f.repoStatuses, status)
	return nil
}

func (f *fakeStore) GetAuthor(id string) (*core.Author, error) { return f.author, nil }

func (f *fakeStore) CreateRun(entry *core.MonitoringEntry, triggerType core.TriggerType, scheduledAt, startedAt time.Time) (*core.Run, error) {
	return &core.Run{ID: "run-1", MonitoringEntryID: entry.ID, TenantID: entry.TenantID, Status: core.RunStarted}, nil
}

func (f *fakeStore) CompleteRun(runID string, result core.RunResult, completedAt time.Time) error {
	f.completed = append(f.completed, completedCall{runID: runID, result: result})
	return nil
}

func (f *fakeStore) AdvanceSchedule(entryID string, lastRunAt, nextRunAt *time.Time) error {
	f.advanced = append(f.advanced, advancedCall{entryID: entryID, lastRunAt: lastRunAt, nextRunAt: nextRunAt})
	return nil
}

func (f *fakeStore) GetTenantWithLimits(tenantID string) (*core.Tenant, error) { return f.tenant, nil }

func (f *fakeStore) IncrementUsage(tenantID, field string, delta int) (int, error) {
	switch field {
	case "email":
		f.tenant.Usage.EmailsSentThisMonth += delta
		return f.tenant.Usage.EmailsSentThisMonth, nil
	}
	return 0, nil
}

func (f *fakeStore) TryConsumeEmailQuota(tenantID string, now time.Time) (bool, error) {
	if f.tenant.Usage.EmailsSentThisMonth >= f.tenant.Plan.MaxEmailsPerMonth {
		return false, nil
	}
	f.tenant.Usage.EmailsSentThisMonth++
	return true, nil
}

type fakeFetch struct {
	bundle *core.FetchBundle
	err    error
}

func (f *fakeFetch) Fetch(ctx context.Context, p fetch.Params) (*core.FetchBundle, error) {
	return f.bundle, f.err
}

type fakeLLM struct {
	summary *string
	err     error
}

func (f *fakeLLM) Summarize(ctx context.Context, bundle *core.FetchBundle, instruction string) (*string, error) {
	return f.summary, f.err
}

type fakeDeliver struct {
	record core.DeliveryRecord
}

func (f *fakeDeliver) Deliver(subject, plainBody string, recipients []string) core.DeliveryRecord {
	return f.record
}

func dailyKolkataEntry() *core.MonitoringEntry {
	return &core.MonitoringEntry{
		ID:           "entry-1",
		TenantID:     "tenant-1",
		AuthorID:     "author-1",
		RepositoryID: "repo-1",
		Status:       core.MonitoringActive,
		Schedule: core.ScheduleSpec{
			Kind:     core.ScheduleDaily,
			Time:     "09:00",
			Timezone: "Asia/Kolkata",
			IsActive: true,
		},
		WindowPolicy: core.FetchWindowSinceLastRun,
		Recipients:   []string{"a@x.com"},
	}
}

func newTestExecutor(store *fakeStore, ff *fakeFetch, fl *fakeLLM, fd *fakeDeliver) *Executor {
	gate := quota.NewGate(store)
	return New(Deps{
		Store:        store,
		FetchStage:   ff,
		LLMStage:     fl,
		DeliverStage: fd,
		Quota:        gate,
		Cipher:       nil,
		GlobalToken:  "global-token",
		Instruction:  "Summarize",
		Logger:       zap.NewNop(),
	})
}

func TestExecutor_E1_DailyRunDelivered(t *testing.T) {
	summary := "Worked on X"
	store := &fakeStore{
		tenant: &core.Tenant{ID: "tenant-1", Plan: core.PlanSnapshot{MaxEmailsPerMonth: 50}, Usage: core.UsageSnapshot{EmailsSentThisMonth: 0}},
		repo:   &core.Repository{ID: "repo-1", Owner: "acme", Name: "widgets"},
		author: &core.Author{ID: "author-1", Username: "alice"},
	}
	ff := &fakeFetch{bundle: &core.FetchBundle{HasActivity: true, PRs: []core.PullRequest{{Number: 1, URL: "https://x/1"}}}}
	fl := &fakeLLM{summary: &summary}
	fd := &fakeDeliver{record: core.DeliveryRecord{Status: core.DeliverySent, Recipients: []string{"a@x.com"}}}

	ex := newTestExecutor(store, ff, fl, fd)
	entry := dailyKolkataEntry()
	now := time.Date(2024, 6, 1, 3, 30, 0, 0, time.UTC) // 09:00 IST

	_, err := ex.Run(context.Background(), entry, core.TriggerScheduled, now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(store.completed) != 1 {
		t.Fatalf("expected one CompleteRun call, got %d", len(store.completed))
	}
	result := store.completed[0].result
	if result.Delivery.Status != core.DeliverySent {
		t.Fatalf("expected delivery sent, got %s", result.Delivery.Status)
	}
	if store.tenant.Usage.EmailsSentThisMonth != 1 {
		t.Fatalf("expected usage incremented to 1, got %d", store.tenant.Usage.EmailsSentThisMonth)
	}
	if len(store.advanced) != 1 || store.advanced[0].nextRunAt == nil {
		t.Fatalf("expected schedule advanced with a next run time")
	}
	if !store.advanced[0].nextRunAt.After(now) {
		t.Fatalf("expected nextRunAt after now (property 2)")
	}
}

func TestExecutor_E2_NoActivity(t *testing.T) {
	store := &fakeStore{
		tenant: &core.Tenant{ID: "tenant-1", Plan: core.PlanSnapshot{MaxEmailsPerMonth: 50}},
		repo:   &core.Repository{ID: "repo-1", Owner: "acme", Name: "widgets"},
		author: &core.Author{ID: "author-1", Username: "alice"},
	}
	ff := &fakeFetch{bundle: &core.FetchBundle{HasActivity: false}}
	fl := &fakeLLM{}
	fd := &fakeDeliver{}

	ex := newTestExecutor(store, ff, fl, fd)
	entry := dailyKolkataEntry()
	now := time.Date(2024, 6, 1, 3, 30, 0, 0, time.UTC)

	_, err := ex.Run(context.Background(), entry, core.TriggerScheduled, now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	result := store.completed[0].result
	if result.HasActivity {
		t.Fatalf("expected hasActivity false")
	}
	if result.Summary != nil {
		t.Fatalf("expected nil summary")
	}
	if result.Delivery.Status != core.DeliverySkipped || result.Delivery.FailureReason != "No activity" {
		t.Fatalf("expected skipped/No activity, got %+v", result.Delivery)
	}
	if store.tenant.Usage.EmailsSentThisMonth != 0 {
		t.Fatalf("expected usage unchanged")
	}
	if len(store.advanced) != 1 || store.advanced[0].nextRunAt == nil {
		t.Fatalf("expected schedule advanced even with no activity (property 2)")
	}
}

func TestExecutor_E3_QuotaExhausted(t *testing.T) {
	summary := "Worked on X"
	store := &fakeStore{
		tenant: &core.Tenant{ID: "tenant-1", Plan: core.PlanSnapshot{MaxEmailsPerMonth: 50}, Usage: core.UsageSnapshot{EmailsSentThisMonth: 50}},
		repo:   &core.Repository{ID: "repo-1", Owner: "acme", Name: "widgets"},
		author: &core.Author{ID: "author-1", Username: "alice"},
	}
	ff := &fakeFetch{bundle: &core.FetchBundle{HasActivity: true, PRs: []core.PullRequest{{Number: 1}}}}
	fl := &fakeLLM{summary: &summary}
	fd := &fakeDeliver{}

	ex := newTestExecutor(store, ff, fl, fd)
	entry := dailyKolkataEntry()
	now := time.Date(2024, 6, 1, 3, 30, 0, 0, time.UTC)

	_, err := ex.Run(context.Background(), entry, core.TriggerScheduled, now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	result := store.completed[0].result
	if result.Delivery.Status != core.DeliverySkipped || result.Delivery.FailureReason != "monthly email limit reached" {
		t.Fatalf("expected skipped/monthly email limit reached, got %+v", result.Delivery)
	}
	if store.tenant.Usage.EmailsSentThisMonth != 50 {
		t.Fatalf("expected usage unchanged, got %d", store.tenant.Usage.EmailsSentThisMonth)
	}
	if len(store.advanced) != 1 {
		t.Fatalf("expected schedule advanced despite quota exhaustion")
	}
}

func TestExecutor_E4_LLMOutage(t *testing.T) {
	store := &fakeStore{
		tenant: &core.Tenant{ID: "tenant-1", Plan: core.PlanSnapshot{MaxEmailsPerMonth: 50}},
		repo:   &core.Repository{ID: "repo-1", Owner: "acme", Name: "widgets"},
		author: &core.Author{ID: "author-1", Username: "alice"},
	}
	ff := &fakeFetch{bundle: &core.FetchBundle{HasActivity: true, PRs: []core.PullRequest{{Number: 1}}}}
	fl := &fakeLLM{err: core.NewPipelineError(core.ErrLLMFail, "llm request failed", nil)}
	fd := &fakeDeliver{}

	ex := newTestExecutor(store, ff, fl, fd)
	entry := dailyKolkataEntry()
	now := time.Date(2024, 6, 1, 3, 30, 0, 0, time.UTC)

	_, err := ex.Run(context.Background(), entry, core.TriggerScheduled, now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	result := store.completed[0].result
	if result.Summary != nil {
		t.Fatalf("expected nil summary after llm failure")
	}
	if result.Delivery.Status != core.DeliverySkipped || result.Delivery.FailureReason != "AI summary generation failed" {
		t.Fatalf("expected skipped/AI summary generation failed, got %+v", result.Delivery)
	}
	if len(store.advanced) != 1 {
		t.Fatalf("expected schedule advanced despite llm outage")
	}
}

func TestExecutor_E5_SMTPTransientFailure(t *testing.T) {
	summary := "Worked on X"
	store := &fakeStore{
		tenant: &core.Tenant{ID: "tenant-1", Plan: core.PlanSnapshot{MaxEmailsPerMonth: 50}},
		repo:   &core.Repository{ID: "repo-1", Owner: "acme", Name: "widgets"},
		author: &core.Author{ID: "author-1", Username: "alice"},
	}
	ff := &fakeFetch{bundle: &core.FetchBundle{HasActivity: true, PRs: []core.PullRequest{{Number: 1}}}}
	fl := &fakeLLM{summary: &summary}
	fd := &fakeDeliver{record: core.DeliveryRecord{Status: core.DeliveryFailed, FailureReason: "connection timeout"}}

	ex := newTestExecutor(store, ff, fl, fd)
	entry := dailyKolkataEntry()
	now := time.Date(2024, 6, 1, 3, 30, 0, 0, time.UTC)

	_, err := ex.Run(context.Background(), entry, core.TriggerScheduled, now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	result := store.completed[0].result
	if result.Delivery.Status != core.DeliveryFailed || result.Delivery.FailureReason != "connection timeout" {
		t.Fatalf("expected failed/connection timeout, got %+v", result.Delivery)
	}
	if store.tenant.Usage.EmailsSentThisMonth != 0 {
		// Quota is consumed optimistically before the SMTP attempt (§4.7 step
		// 6), but a transport failure means no mail went out, so the slot is
		// released back and net usage is unchanged.
		t.Fatalf("expected quota released after delivery failure, got %d", store.tenant.Usage.EmailsSentThisMonth)
	}
	if len(store.advanced) != 1 {
		t.Fatalf("expected schedule advanced despite smtp failure")
	}
}

func TestExecutor_MonotoneScheduleAdvancement(t *testing.T) {
	store := &fakeStore{
		tenant: &core.Tenant{ID: "tenant-1", Plan: core.PlanSnapshot{MaxEmailsPerMonth: 50}},
		repo:   &core.Repository{ID: "repo-1", Owner: "acme", Name: "widgets"},
		author: &core.Author{ID: "author-1", Username: "alice"},
	}
	ff := &fakeFetch{bundle: &core.FetchBundle{HasActivity: false}}
	fl := &fakeLLM{}
	fd := &fakeDeliver{}

	ex := newTestExecutor(store, ff, fl, fd)
	entry := dailyKolkataEntry()

	now1 := time.Date(2024, 6, 1, 3, 30, 0, 0, time.UTC)
	_, _ = ex.Run(context.Background(), entry, core.TriggerScheduled, now1)
	first := store.advanced[0].nextRunAt

	now2 := *first
	_, _ = ex.Run(context.Background(), entry, core.TriggerScheduled, now2)
	second := store.advanced[1].nextRunAt

	if !second.After(*first) {
		t.Fatalf("expected strictly increasing nextRunAt across runs, got %v then %v", first, second)
	}
}
