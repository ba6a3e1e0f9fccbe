package core

import "time"

// SubscriptionState is the tenant's billing lifecycle state.
type SubscriptionState string

const (
	SubscriptionTrialing SubscriptionState = "trialing"
	SubscriptionActive   SubscriptionState = "active"
	SubscriptionPastDue  SubscriptionState = "past_due"
	SubscriptionCanceled SubscriptionState = "canceled"
)

// PlanSnapshot is the (limit) tuple copied onto a tenant at subscription
// time. It is the source of truth for quota checks, independent of any
// later change to the named Plan.
type PlanSnapshot struct {
	MaxRepos          int `json:"max_repos" db:"max_repos"`
	MaxAuthors        int `json:"max_authors" db:"max_authors"`
	MaxEmailsPerMonth int `json:"max_emails_per_month" db:"max_emails_per_month"`
}

// UsageSnapshot tracks a tenant's consumption against its PlanSnapshot.
type UsageSnapshot struct {
	ReposCount          int       `json:"repos_count" db:"repos_count"`
	AuthorsCount        int       `json:"authors_count" db:"authors_count"`
	EmailsSentThisMonth int       `json:"emails_sent_this_month" db:"emails_sent_this_month"`
	UsagePeriodStart    time.Time `json:"usage_period_start" db:"usage_period_start"`
}

// Tenant is one subscribed organization.
type Tenant struct {
	ID            string            `json:"id" db:"id"`
	Name          string            `json:"name" db:"name"`
	OwnerIdentity string            `json:"owner_identity" db:"owner_identity"`
	Subscription  SubscriptionState `json:"subscription" db:"subscription"`
	PlanID        string            `json:"plan_id" db:"plan_id"`
	Plan          PlanSnapshot      `json:"plan" db:"-"`
	Usage         UsageSnapshot     `json:"usage" db:"-"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// Plan is a named tier; plans are effectively immutable once referenced by
// a tenant snapshot, so editing a plan never retroactively changes limits
// already copied onto a tenant.
type Plan struct {
	ID                string `json:"id" db:"id"`
	Name              string `json:"name" db:"name"`
	MaxRepos          int    `json:"max_repos" db:"max_repos"`
	MaxAuthors        int    `json:"max_authors" db:"max_authors"`
	MaxEmailsPerMonth int    `json:"max_emails_per_month" db:"max_emails_per_month"`
	PriceCents        int    `json:"price_cents" db:"price_cents"`
}
