// Package executor implements the run executor (C7): the eight-step
// procedure that turns one due monitoring entry into a completed run,
// plus the reaper that closes out abandoned runs. Grounded on the
// teacher's checker orchestration shape (open a result, call out to
// external services, always persist a terminal record) adapted from a
// single check to a four-stage pipeline with the spec's specific
// fatal/non-fatal error propagation.
package executor

import (
	"context"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	"github.com/arnavsood/statuspulse/internal/cryptoutil"
	"github.com/arnavsood/statuspulse/internal/deliver"
	"github.com/arnavsood/statuspulse/internal/fetch"
	"github.com/arnavsood/statuspulse/internal/quota"
	"github.com/arnavsood/statuspulse/internal/schedule"
	"github.com/arnavsood/statuspulse/internal/summarize"
	"go.uber.org/zap"
)

// Store is the subset of the store gateway the executor depends on.
type Store interface {
	GetRepository(id string) (*core.Repository, error)
	SetRepositoryStatus(id string, status core.RepositoryStatus) error
	GetAuthor(id string) (*core.Author, error)
	CreateRun(entry *core.MonitoringEntry, triggerType core.TriggerType, scheduledAt, startedAt time.Time) (*core.Run, error)
	CompleteRun(runID string, result core.RunResult, completedAt time.Time) error
	AdvanceSchedule(entryID string, lastRunAt, nextRunAt *time.Time) error
}

const defaultFetchWindow = 24 * time.Hour

// Executor wires the four pipeline stages to the store gateway and quota
// gate. One Executor is shared by the tick loop and the manual-trigger
// path, but Run itself is synchronous and spawns no goroutines: the
// single-worker discipline lives in the caller (internal/ticker).
type Executor struct {
	store       Store
	fetchStage  fetch.Stage
	llmStage    summarize.Stage
	deliver     deliver.Stage
	quota       *quota.Gate
	cipher      *cryptoutil.CredentialCipher
	globalToken string
	instruction string
	logger      *zap.Logger
}

type Deps struct {
	Store        Store
	FetchStage   fetch.Stage
	LLMStage     summarize.Stage
	DeliverStage deliver.Stage
	Quota        *quota.Gate
	Cipher       *cryptoutil.CredentialCipher
	GlobalToken  string
	Instruction  string
	Logger       *zap.Logger
}

func New(d Deps) *Executor {
	return &Executor{
		store:       d.Store,
		fetchStage:  d.FetchStage,
		llmStage:    d.LLMStage,
		deliver:     d.DeliverStage,
		quota:       d.Quota,
		cipher:      d.Cipher,
		globalToken: d.GlobalToken,
		instruction: d.Instruction,
		logger:      d.Logger,
	}
}

// Run executes the eight-step procedure of §4.7 for one monitoring entry,
// opening a new run record itself. Used by the tick loop for scheduled
// firings, where no run exists yet.
func (e *Executor) Run(ctx context.Context, entry *core.MonitoringEntry, triggerType core.TriggerType, now time.Time) (*core.Run, error) {
	run, err := e.store.CreateRun(entry, triggerType, now, now)
	if err != nil {
		return nil, err
	}
	return e.Continue(ctx, entry, run, now)
}

// Continue executes the eight-step procedure against a run record that was
// already opened by the caller. Used by the manual-trigger path: the API
// handler opens the run synchronously so it can hand the caller a run ID
// before the worker picks the job up, so the worker must not open a second
// one. The schedule is advanced in step 8 no matter how steps 2-7
// terminate — that guarantee is structural here, via the deferred call
// below, not an afterthought bolted onto each error path.
func (e *Executor) Continue(ctx context.Context, entry *core.MonitoringEntry, run *core.Run, now time.Time) (*core.Run, error) {
	result := core.RunResult{
		FetchFrom: now,
		FetchTo:   now,
	}

	defer func() {
		// completeRun must be the last write before advanceSchedule: a
		// reader that observes a new nextRunAt must also observe the
		// completed run that produced it.
		if err := e.store.CompleteRun(run.ID, result, time.Now()); err != nil {
			e.logger.Error("executor: failed to complete run", zap.String("run", run.ID), zap.Error(err))
		}
		nextRunAt, _ := schedule.NextFiring(entry.Schedule, now)
		lastRunAt := now
		if err := e.store.AdvanceSchedule(entry.ID, &lastRunAt, nextRunAt); err != nil {
			e.logger.Error("executor: failed to advance schedule", zap.String("entry", entry.ID), zap.Error(err))
		}
	}()

	from, to := e.fetchWindow(entry, now)
	result.FetchFrom, result.FetchTo = from, to

	credential, repo, err := e.resolveCredential(entry)
	if err != nil {
		// Missing/unreadable credentials are fatal for this run the same
		// way 401/403/404 from the VCS call are: mark skipped, not failed.
		result.Delivery = core.DeliveryRecord{
			Status:        core.DeliverySkipped,
			Recipients:    entry.Recipients,
			FailureReason: err.Error(),
		}
		return run, nil
	}

	author, err := e.store.GetAuthor(entry.AuthorID)
	if err != nil {
		result.Delivery = failureRecord(err.Error())
		return run, nil
	}

	bundle, err := e.fetchStage.Fetch(ctx, fetch.Params{
		Owner:       repoOwner(repo),
		Name:        repoName(repo),
		Credential:  credential,
		GlobalToken: e.globalToken,
		AuthorLogin: author.Username,
		From:        from,
		To:          to,
	})
	if err != nil {
		if core.KindOf(err) == core.ErrVCSAuth {
			if repo != nil {
				if serr := e.store.SetRepositoryStatus(repo.ID, core.RepositoryTokenError); serr != nil {
					e.logger.Error("executor: failed to mark repository token_error", zap.String("repository", repo.ID), zap.Error(serr))
				}
			}
			result.Delivery = core.DeliveryRecord{
				Status:        core.DeliverySkipped,
				Recipients:    entry.Recipients,
				FailureReason: err.Error(),
			}
			return run, nil
		}
		result.Delivery = failureRecord(err.Error())
		return run, nil
	}

	result.HasActivity = bundle.HasActivity
	result.PRCount = len(bundle.PRs)
	for _, pr := range bundle.PRs {
		result.PRIdentifiers = append(result.PRIdentifiers, pr.URL)
	}
	result.NoteSnapshot = entry.Note

	if !bundle.HasActivity {
		result.Delivery = core.DeliveryRecord{
			Status:        core.DeliverySkipped,
			Recipients:    entry.Recipients,
			FailureReason: "No activity",
		}
		return run, nil
	}

	var summary *string
	summary, err = e.llmStage.Summarize(ctx, bundle, e.instruction)
	if err != nil {
		e.logger.Warn("executor: summarise stage failed, proceeding without summary",
			zap.String("entry", entry.ID), zap.Error(err))
		summary = nil
	}
	result.Summary = summary

	if summary == nil {
		result.Delivery = core.DeliveryRecord{
			Status:        core.DeliverySkipped,
			Recipients:    entry.Recipients,
			FailureReason: "AI summary generation failed",
		}
		return run, nil
	}

	if len(entry.Recipients) == 0 {
		result.Delivery = core.DeliveryRecord{
			Status:        core.DeliverySkipped,
			Recipients:    entry.Recipients,
			FailureReason: "No recipients configured",
		}
		return run, nil
	}

	admitted, err := e.quota.Consume(entry.TenantID, quota.KindEmail, now)
	if err != nil {
		result.Delivery = failureRecord(err.Error())
		return run, nil
	}
	if !admitted {
		result.Delivery = core.DeliveryRecord{
			Status:        core.DeliverySkipped,
			Recipients:    entry.Recipients,
			FailureReason: "monthly email limit reached",
		}
		return run, nil
	}

	result.Delivery = e.deliver.Deliver("Status update", *summary, entry.Recipients)
	if result.Delivery.Status == core.DeliveryFailed {
		// Quota was admitted before send; an SMTP/transport failure means no
		// mail actually went out, so give the consumed slot back.
		if rerr := e.quota.Release(entry.TenantID, quota.KindEmail); rerr != nil {
			e.logger.Error("executor: failed to release email quota after delivery failure",
				zap.String("entry", entry.ID), zap.Error(rerr))
		}
	}
	return run, nil
}

func failureRecord(message string) core.DeliveryRecord {
	return core.DeliveryRecord{
		Status:        core.DeliveryFailed,
		Recipients:    nil,
		FailureReason: message,
	}
}

func (e *Executor) fetchWindow(entry *core.MonitoringEntry, now time.Time) (time.Time, time.Time) {
	if entry.WindowPolicy == core.FetchWindowExplicitRange && entry.ExplicitFrom != nil && entry.ExplicitTo != nil {
		return *entry.ExplicitFrom, *entry.ExplicitTo
	}
	from := now.Add(-defaultFetchWindow)
	if entry.LastRunAt != nil {
		from = *entry.LastRunAt
	}
	return from, now
}

func (e *Executor) resolveCredential(entry *core.MonitoringEntry) (string, *core.Repository, error) {
	repo, err := e.store.GetRepository(entry.RepositoryID)
	if err != nil {
		return "", nil, err
	}
	if len(repo.EncryptedCredential) == 0 {
		return "", repo, nil
	}
	plaintext, err := e.cipher.Decrypt(repo.EncryptedCredential)
	if err != nil {
		return "", repo, err
	}
	return string(plaintext), repo, nil
}

func repoOwner(repo *core.Repository) string {
	if repo == nil {
		return ""
	}
	return repo.Owner
}

func repoName(repo *core.Repository) string {
	if repo == nil {
		return ""
	}
	return repo.Name
}
