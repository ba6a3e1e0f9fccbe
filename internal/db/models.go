package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
)

// StringSlice persists a Go string slice into a PostgreSQL JSONB column,
// carried verbatim from the teacher's array/JSONB Value/Scan convention.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = []string{}
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("StringSlice.Scan: unsupported type %T", value)
	}
	return json.Unmarshal(b, s)
}

// JSONB persists an arbitrary JSON-shaped map, same pattern as StringSlice.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("JSONB.Scan: unsupported type %T", value)
	}
	return json.Unmarshal(b, j)
}

// ScheduleConfigColumn persists core.ScheduleConfig as JSONB.
type ScheduleConfigColumn core.ScheduleConfig

func (c ScheduleConfigColumn) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *ScheduleConfigColumn) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("ScheduleConfigColumn.Scan: unsupported type %T", value)
	}
	return json.Unmarshal(b, c)
}

// TenantRow is the persisted shape of core.Tenant; plan/usage fields are
// flattened into the tenant row rather than joined, since a tenant owns
// exactly one live plan snapshot and usage snapshot.
type TenantRow struct {
	ID                  string    `db:"id"`
	Name                string    `db:"name"`
	OwnerIdentity       string    `db:"owner_identity"`
	Subscription        string    `db:"subscription"`
	PlanID              string    `db:"plan_id"`
	MaxRepos            int       `db:"max_repos"`
	MaxAuthors          int       `db:"max_authors"`
	MaxEmailsPerMonth   int       `db:"max_emails_per_month"`
	ReposCount          int       `db:"repos_count"`
	AuthorsCount        int       `db:"authors_count"`
	EmailsSentThisMonth int       `db:"emails_sent_this_month"`
	UsagePeriodStart    time.Time `db:"usage_period_start"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (r TenantRow) ToCore() core.Tenant {
	return core.Tenant{
		ID:            r.ID,
		Name:          r.Name,
		OwnerIdentity: r.OwnerIdentity,
		Subscription:  core.SubscriptionState(r.Subscription),
		PlanID:        r.PlanID,
		Plan: core.PlanSnapshot{
			MaxRepos:          r.MaxRepos,
			MaxAuthors:        r.MaxAuthors,
			MaxEmailsPerMonth: r.MaxEmailsPerMonth,
		},
		Usage: core.UsageSnapshot{
			ReposCount:          r.ReposCount,
			AuthorsCount:        r.AuthorsCount,
			EmailsSentThisMonth: r.EmailsSentThisMonth,
			UsagePeriodStart:    r.UsagePeriodStart,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// PlanRow is the persisted shape of core.Plan.
type PlanRow struct {
	ID                string `db:"id"`
	Name              string `db:"name"`
	MaxRepos          int    `db:"max_repos"`
	MaxAuthors        int    `db:"max_authors"`
	MaxEmailsPerMonth int    `db:"max_emails_per_month"`
	PriceCents        int    `db:"price_cents"`
}

// RepositoryRow is the persisted shape of core.Repository.
type RepositoryRow struct {
	ID                  string    `db:"id"`
	TenantID            string    `db:"tenant_id"`
	Owner               string    `db:"owner"`
	Name                string    `db:"name"`
	FullName            string    `db:"full_name"`
	EncryptedCredential []byte    `db:"encrypted_credential"`
	Status              string    `db:"status"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (r RepositoryRow) ToCore() core.Repository {
	return core.Repository{
		ID:                  r.ID,
		TenantID:            r.TenantID,
		Owner:               r.Owner,
		Name:                r.Name,
		FullName:            r.FullName,
		EncryptedCredential: r.EncryptedCredential,
		Status:              core.RepositoryStatus(r.Status),
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

// AuthorRow is the persisted shape of core.Author.
type AuthorRow struct {
	ID         string    `db:"id"`
	HostUserID string    `db:"host_user_id"`
	Username   string    `db:"username"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r AuthorRow) ToCore() core.Author {
	return core.Author{ID: r.ID, HostUserID: r.HostUserID, Username: r.Username, CreatedAt: r.CreatedAt}
}

// MonitoringEntryRow is the persisted shape of core.MonitoringEntry.
type MonitoringEntryRow struct {
	ID                 string               `db:"id"`
	TenantID           string               `db:"tenant_id"`
	AuthorID           string               `db:"author_id"`
	RepositoryID       string               `db:"repository_id"`
	Mode               string               `db:"mode"`
	Status             string               `db:"status"`
	ScheduleKind       string               `db:"schedule_kind"`
	ScheduleConfig     ScheduleConfigColumn `db:"schedule_config"`
	ScheduleTime       string               `db:"schedule_time"`
	ScheduleTimezone   string               `db:"schedule_timezone"`
	ScheduleIsActive   bool                 `db:"schedule_is_active"`
	WindowPolicy       string               `db:"fetch_window_policy"`
	ExplicitFrom       *time.Time           `db:"explicit_from"`
	ExplicitTo         *time.Time           `db:"explicit_to"`
	Recipients         StringSlice          `db:"recipients"`
	Note               string               `db:"note"`
	LastRunAt          *time.Time           `db:"last_run_at"`
	NextRunAt          *time.Time           `db:"next_run_at"`
	CreatedAt          time.Time            `db:"created_at"`
	UpdatedAt          time.Time            `db:"updated_at"`
	DeletedAt          *time.Time           `db:"deleted_at"`
}

func (r MonitoringEntryRow) ToCore() core.MonitoringEntry {
	return core.MonitoringEntry{
		ID:           r.ID,
		TenantID:     r.TenantID,
		AuthorID:     r.AuthorID,
		RepositoryID: r.RepositoryID,
		Mode:         core.MonitoringMode(r.Mode),
		Status:       core.MonitoringStatus(r.Status),
		Schedule: core.ScheduleSpec{
			Kind:     core.ScheduleKind(r.ScheduleKind),
			Config:   core.ScheduleConfig(r.ScheduleConfig),
			Time:     r.ScheduleTime,
			Timezone: r.ScheduleTimezone,
			IsActive: r.ScheduleIsActive,
		},
		WindowPolicy: core.FetchWindowPolicy(r.WindowPolicy),
		ExplicitFrom: r.ExplicitFrom,
		ExplicitTo:   r.ExplicitTo,
		Recipients:   []string(r.Recipients),
		Note:         r.Note,
		LastRunAt:    r.LastRunAt,
		NextRunAt:    r.NextRunAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// RunRow is the persisted shape of core.Run.
type RunRow struct {
	ID                string     `db:"id"`
	MonitoringEntryID string     `db:"monitoring_entry_id"`
	TenantID          string     `db:"tenant_id"`
	AuthorID          string     `db:"author_id"`
	RepositoryID      string     `db:"repository_id"`
	TriggerType       string     `db:"trigger_type"`
	Status            string     `db:"status"`
	ScheduledAt       time.Time  `db:"scheduled_at"`
	StartedAt         time.Time  `db:"started_at"`
	CompletedAt       *time.Time `db:"completed_at"`
	FetchFrom         time.Time  `db:"fetch_from"`
	FetchTo           time.Time  `db:"fetch_to"`
	PRCount           int        `db:"pr_count"`
	PRIdentifiers     StringSlice `db:"pr_identifiers"`
	HasActivity       bool       `db:"has_activity"`
	Summary           *string    `db:"summary"`
	NoteSnapshot      string     `db:"note_snapshot"`
	DeliveryStatus    string     `db:"delivery_status"`
	DeliverySentAt    *time.Time `db:"delivery_sent_at"`
	DeliveryRecipients StringSlice `db:"delivery_recipients"`
	DeliveryFailure   string     `db:"delivery_failure_reason"`
}

func (r RunRow) ToCore() core.Run {
	return core.Run{
		ID:                r.ID,
		MonitoringEntryID: r.MonitoringEntryID,
		TenantID:          r.TenantID,
		AuthorID:          r.AuthorID,
		RepositoryID:      r.RepositoryID,
		TriggerType:       core.TriggerType(r.TriggerType),
		Status:            core.RunStatus(r.Status),
		ScheduledAt:       r.ScheduledAt,
		StartedAt:         r.StartedAt,
		CompletedAt:       r.CompletedAt,
		FetchFrom:         r.FetchFrom,
		FetchTo:           r.FetchTo,
		PRCount:           r.PRCount,
		PRIdentifiers:     []string(r.PRIdentifiers),
		HasActivity:       r.HasActivity,
		Summary:           r.Summary,
		NoteSnapshot:      r.NoteSnapshot,
		Delivery: core.DeliveryRecord{
			Status:        core.DeliveryStatus(r.DeliveryStatus),
			SentAt:        r.DeliverySentAt,
			Recipients:    []string(r.DeliveryRecipients),
			FailureReason: r.DeliveryFailure,
		},
	}
}
