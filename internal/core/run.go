package core

import "time"

// TriggerType distinguishes a run driven by the tick loop from one opened
// via the API's triggerNow hook.
type TriggerType string

const (
	TriggerScheduled TriggerType = "scheduled"
	TriggerManual    TriggerType = "manual"
)

// DeliveryStatus is the terminal state of an email send attempt.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// DeliveryRecord is the terminal status of an email send attempt recorded
// inside a run. skipped is reserved for no-activity, missing-recipients,
// LLM-failure and quota-reached cases; failed is reserved for SMTP/
// transport errors.
type DeliveryRecord struct {
	Status        DeliveryStatus `json:"status" db:"delivery_status"`
	SentAt        *time.Time     `json:"sent_at" db:"delivery_sent_at"`
	Recipients    []string       `json:"recipients" db:"-"`
	FailureReason string         `json:"failure_reason,omitempty" db:"delivery_failure_reason"`
}

// RunStatus is the lifecycle state of a Run row.
type RunStatus string

const (
	RunStarted   RunStatus = "started"
	RunCompleted RunStatus = "completed"
)

// Run is one attempted execution of a monitoring entry. Immutable after
// completion.
type Run struct {
	ID              string         `json:"id" db:"id"`
	MonitoringEntryID string       `json:"monitoring_entry_id" db:"monitoring_entry_id"`
	TenantID        string         `json:"tenant_id" db:"tenant_id"`
	AuthorID        string         `json:"author_id" db:"author_id"`
	RepositoryID    string         `json:"repository_id" db:"repository_id"`
	TriggerType     TriggerType    `json:"trigger_type" db:"trigger_type"`
	Status          RunStatus      `json:"status" db:"status"`
	ScheduledAt     time.Time      `json:"scheduled_at" db:"scheduled_at"`
	StartedAt       time.Time      `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at" db:"completed_at"`
	FetchFrom       time.Time      `json:"fetch_from" db:"fetch_from"`
	FetchTo         time.Time      `json:"fetch_to" db:"fetch_to"`
	PRCount         int            `json:"pr_count" db:"pr_count"`
	PRIdentifiers   []string       `json:"pr_identifiers" db:"-"`
	HasActivity     bool           `json:"has_activity" db:"has_activity"`
	Summary         *string        `json:"summary" db:"summary"`
	NoteSnapshot    string         `json:"note_snapshot" db:"note_snapshot"`
	Delivery        DeliveryRecord `json:"delivery" db:"-"`
}

// RunResult is the set of terminal fields written by completeRun.
type RunResult struct {
	FetchFrom     time.Time
	FetchTo       time.Time
	PRCount       int
	PRIdentifiers []string
	HasActivity   bool
	Summary       *string
	NoteSnapshot  string
	Delivery      DeliveryRecord
}
