package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Repository is the single store gateway (C1): indexed reads/writes over
// persistent records, atomic counter updates, and unique-key enforcement.
// It is the only component in the module that issues SQL.
type Repository struct {
	db *sqlx.DB
}

func NewConnection(databaseURL string) (*sqlx.DB, error) {
	conn, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return conn, nil
}

func NewRepository(conn *sqlx.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Ping() error {
	return r.db.Ping()
}

// --- Tenants & plans -------------------------------------------------

func (r *Repository) GetTenantWithLimits(tenantID string) (*core.Tenant, error) {
	var row TenantRow
	err := r.db.Get(&row, `SELECT * FROM tenants WHERE id = $1`, tenantID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tenant not found")
	}
	if err != nil {
		return nil, err
	}
	t := row.ToCore()
	return &t, nil
}

func (r *Repository) GetPlan(planID string) (*core.Plan, error) {
	var row PlanRow
	err := r.db.Get(&row, `SELECT * FROM plans WHERE id = $1`, planID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("plan not found")
	}
	if err != nil {
		return nil, err
	}
	return &core.Plan{
		ID: row.ID, Name: row.Name, MaxRepos: row.MaxRepos,
		MaxAuthors: row.MaxAuthors, MaxEmailsPerMonth: row.MaxEmailsPerMonth,
		PriceCents: row.PriceCents,
	}, nil
}

// IncrementUsage atomically increments or decrements one of the tenant's
// usage counters and returns the new value. delta may be negative (used by
// release, floored at zero).
func (r *Repository) IncrementUsage(tenantID, field string, delta int) (int, error) {
	column, ok := usageColumns[field]
	if !ok {
		return 0, fmt.Errorf("incrementUsage: unknown field %q", field)
	}

	query := fmt.Sprintf(
		`UPDATE tenants SET %s = GREATEST(%s + $1, 0), updated_at = now()
		 WHERE id = $2 RETURNING %s`, column, column, column)

	var newValue int
	err := r.db.Get(&newValue, query, delta, tenantID)
	return newValue, err
}

var usageColumns = map[string]string{
	"repo":   "repos_count",
	"author": "authors_count",
	"email":  "emails_sent_this_month",
}

// TryConsumeEmailQuota performs the optimistic admission check and atomic
// increment for the email counter in a single statement: the increment
// only applies if usage is still below limit at write time, closing the
// race window between canConsume and consume. It also performs the lazy
// monthly rollover described in §4.3.
func (r *Repository) TryConsumeEmailQuota(tenantID string, now time.Time) (admitted bool, err error) {
	_, err = r.db.Exec(`
		UPDATE tenants SET
			emails_sent_this_month = CASE WHEN usage_period_start + interval '1 month' <= $2 THEN 0 ELSE emails_sent_this_month END,
			usage_period_start = CASE WHEN usage_period_start + interval '1 month' <= $2 THEN $2 ELSE usage_period_start END
		WHERE id = $1`, tenantID, now)
	if err != nil {
		return false, err
	}

	var admittedInt int
	err = r.db.Get(&admittedInt, `
		UPDATE tenants SET emails_sent_this_month = emails_sent_this_month + 1
		WHERE id = $1 AND emails_sent_this_month < max_emails_per_month
		RETURNING 1`, tenantID)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return admittedInt == 1, nil
}

// UpdateTenantSubscription applies a billing webhook's plan/subscription
// snapshot to the tenant row. It never touches schedule state.
func (r *Repository) UpdateTenantSubscription(tenantID, planID string, subscription core.SubscriptionState) error {
	_, err := r.db.Exec(`
		UPDATE tenants SET plan_id = $2, subscription = $3, updated_at = now()
		WHERE id = $1`, tenantID, planID, subscription)
	return err
}

// UpdateMonitoringEntryMode flips a monitoring entry from ghost to open
// when the tracked author accepts their identity-service invite.
func (r *Repository) UpdateMonitoringEntryMode(entryID string, mode core.MonitoringMode) error {
	_, err := r.db.Exec(`
		UPDATE monitoring_entries SET mode = $2, updated_at = now()
		WHERE id = $1`, entryID, mode)
	return err
}

// --- Repositories & authors -------------------------------------------

func (r *Repository) GetRepository(id string) (*core.Repository, error) {
	var row RepositoryRow
	err := r.db.Get(&row, `SELECT * FROM repositories WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("repository not found")
	}
	if err != nil {
		return nil, err
	}
	repo := row.ToCore()
	return &repo, nil
}

func (r *Repository) SetRepositoryStatus(id string, status core.RepositoryStatus) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE repositories SET status = $2, updated_at = now() WHERE id = $1`, id, status); err != nil {
		return err
	}

	if status == core.RepositoryRemoved {
		if _, err := tx.Exec(`UPDATE monitoring_entries SET status = $2, updated_at = now() WHERE repository_id = $1 AND status = $3`,
			id, core.MonitoringPaused, core.MonitoringActive); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) GetAuthor(id string) (*core.Author, error) {
	var row AuthorRow
	err := r.db.Get(&row, `SELECT * FROM authors WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("author not found")
	}
	if err != nil {
		return nil, err
	}
	a := row.ToCore()
	return &a, nil
}

// --- Monitoring entries -------------------------------------------------

func (r *Repository) GetMonitoringEntry(id string) (*core.MonitoringEntry, error) {
	var row MonitoringEntryRow
	err := r.db.Get(&row, `SELECT * FROM monitoring_entries WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("monitoring entry not found")
	}
	if err != nil {
		return nil, err
	}
	e := row.ToCore()
	return &e, nil
}

// ListDueMonitoringEntries returns all entries with status=active,
// schedule.isActive=true, and nextRunAt <= now, ordered by nextRunAt
// ascending, grounded on the teacher's GetMonitorsToCheck due-entry query.
func (r *Repository) ListDueMonitoringEntries(now time.Time) ([]core.MonitoringEntry, error) {
	var rows []MonitoringEntryRow
	err := r.db.Select(&rows, `
		SELECT * FROM monitoring_entries
		WHERE status = $1 AND schedule_is_active = true AND next_run_at <= $2
		ORDER BY next_run_at ASC`, core.MonitoringActive, now)
	if err != nil {
		return nil, err
	}

	entries := make([]core.MonitoringEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.ToCore())
	}
	return entries, nil
}

func (r *Repository) AdvanceSchedule(entryID string, lastRunAt, nextRunAt *time.Time) error {
	_, err := r.db.Exec(`
		UPDATE monitoring_entries SET last_run_at = $2, next_run_at = $3, updated_at = now()
		WHERE id = $1`, entryID, lastRunAt, nextRunAt)
	return err
}

// --- Runs ----------------------------------------------------------------

// CreateRun opens a run record in the started state. The fetch window
// columns start at startedAt until completeRun writes the real window.
func (r *Repository) CreateRun(entry *core.MonitoringEntry, triggerType core.TriggerType, scheduledAt, startedAt time.Time) (*core.Run, error) {
	run := core.Run{
		ID:                uuid.New().String(),
		MonitoringEntryID: entry.ID,
		TenantID:          entry.TenantID,
		AuthorID:          entry.AuthorID,
		RepositoryID:      entry.RepositoryID,
		TriggerType:       triggerType,
		Status:            core.RunStarted,
		ScheduledAt:       scheduledAt,
		StartedAt:         startedAt,
		FetchFrom:         startedAt,
		FetchTo:           startedAt,
		Delivery:          core.DeliveryRecord{Status: core.DeliveryPending},
	}

	_, err := r.db.Exec(`
		INSERT INTO runs (
			id, monitoring_entry_id, tenant_id, author_id, repository_id,
			trigger_type, status, scheduled_at, started_at, delivery_status,
			fetch_from, fetch_to
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$9,$9)`,
		run.ID, run.MonitoringEntryID, run.TenantID, run.AuthorID, run.RepositoryID,
		run.TriggerType, run.Status, run.ScheduledAt, run.StartedAt, run.Delivery.Status)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// CompleteRun writes terminal fields and is idempotent on runID: a run
// already in the completed status is left untouched (property 8).
func (r *Repository) CompleteRun(runID string, result core.RunResult, completedAt time.Time) error {
	res, err := r.db.Exec(`
		UPDATE runs SET
			status = $2,
			completed_at = $3,
			fetch_from = $4,
			fetch_to = $5,
			pr_count = $6,
			pr_identifiers = $7,
			has_activity = $8,
			summary = $9,
			note_snapshot = $10,
			delivery_status = $11,
			delivery_sent_at = $12,
			delivery_recipients = $13,
			delivery_failure_reason = $14
		WHERE id = $1 AND status != $2`,
		runID, core.RunCompleted, completedAt,
		result.FetchFrom, result.FetchTo, result.PRCount, StringSlice(result.PRIdentifiers),
		result.HasActivity, result.Summary, result.NoteSnapshot,
		result.Delivery.Status, result.Delivery.SentAt, StringSlice(result.Delivery.Recipients),
		result.Delivery.FailureReason)
	if err != nil {
		return err
	}
	_, err = res.RowsAffected()
	return err
}

func (r *Repository) GetRun(runID string) (*core.Run, error) {
	var row RunRow
	err := r.db.Get(&row, `SELECT * FROM runs WHERE id = $1`, runID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, err
	}
	run := row.ToCore()
	return &run, nil
}

// ListStartedRunsOlderThan backs the reaper's sweep for abandoned runs.
func (r *Repository) ListStartedRunsOlderThan(cutoff time.Time) ([]core.Run, error) {
	var rows []RunRow
	err := r.db.Select(&rows, `SELECT * FROM runs WHERE status = $1 AND started_at < $2`,
		core.RunStarted, cutoff)
	if err != nil {
		return nil, err
	}
	runs := make([]core.Run, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.ToCore())
	}
	return runs, nil
}
