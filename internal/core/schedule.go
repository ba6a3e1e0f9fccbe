package core

import "time"

// ScheduleKind enumerates the recurrence shapes nextFiring understands.
type ScheduleKind string

const (
	ScheduleDaily             ScheduleKind = "daily"
	ScheduleSpecificWeekdays  ScheduleKind = "specific_weekdays"
	ScheduleFixedInterval     ScheduleKind = "fixed_interval"
	ScheduleMonthlyDate       ScheduleKind = "monthly_date"
	ScheduleYearly            ScheduleKind = "yearly"
	ScheduleOneTime           ScheduleKind = "one_time"
)

// ScheduleConfig carries the kind-specific extra configuration. Only the
// fields relevant to Kind are populated; the zero value of the others is
// ignored by the calculator.
type ScheduleConfig struct {
	Weekdays     []time.Weekday `json:"weekdays,omitempty"`
	IntervalDays int            `json:"interval_days,omitempty"`
	DayOfMonth   int            `json:"day_of_month,omitempty"`
	Month        time.Month     `json:"month,omitempty"`
	Day          int            `json:"day,omitempty"`
	Date         *time.Time     `json:"date,omitempty"`
}

// ScheduleSpec serialises to {type, config, time, timezone, is_active}.
// nextRunAt and lastRunAt are not part of it; they are carried on
// MonitoringEntry (next_run_at, last_run_at).
type ScheduleSpec struct {
	Kind     ScheduleKind   `json:"type"`
	Config   ScheduleConfig `json:"config"`
	Time     string         `json:"time"`     // "HH:MM" local wall clock
	Timezone string         `json:"timezone"` // IANA zone identifier
	IsActive bool           `json:"is_active"`
}

// FetchWindowPolicy selects how the executor computes the [from, to]
// window handed to the fetch stage.
type FetchWindowPolicy string

const (
	FetchWindowSinceLastRun    FetchWindowPolicy = "since_last_run"
	FetchWindowExplicitRange   FetchWindowPolicy = "explicit_range"
)

// MonitoringMode distinguishes an author who has accepted an invite (open,
// may edit their own note) from one passively tracked without an account
// (ghost).
type MonitoringMode string

const (
	ModeGhost MonitoringMode = "ghost"
	ModeOpen  MonitoringMode = "open"
)

// MonitoringStatus is the entry's visibility state to the tick loop.
type MonitoringStatus string

const (
	MonitoringActive  MonitoringStatus = "active"
	MonitoringPaused  MonitoringStatus = "paused"
	MonitoringRemoved MonitoringStatus = "removed"
)

// MonitoringEntry is the central coordination record: tenant T wants
// periodic summaries for author A on repository R.
type MonitoringEntry struct {
	ID           string            `json:"id" db:"id"`
	TenantID     string            `json:"tenant_id" db:"tenant_id"`
	AuthorID     string            `json:"author_id" db:"author_id"`
	RepositoryID string            `json:"repository_id" db:"repository_id"`
	Mode         MonitoringMode    `json:"mode" db:"mode"`
	Status       MonitoringStatus  `json:"status" db:"status"`
	Schedule     ScheduleSpec      `json:"schedule" db:"-"`
	WindowPolicy FetchWindowPolicy `json:"fetch_window_policy" db:"fetch_window_policy"`
	ExplicitFrom *time.Time        `json:"explicit_from,omitempty" db:"explicit_from"`
	ExplicitTo   *time.Time        `json:"explicit_to,omitempty" db:"explicit_to"`
	Recipients   []string          `json:"recipients" db:"-"`
	Note         string            `json:"note" db:"note"`
	LastRunAt    *time.Time        `json:"last_run_at" db:"last_run_at"`
	NextRunAt    *time.Time        `json:"next_run_at" db:"next_run_at"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

const maxNoteLength = 5000
