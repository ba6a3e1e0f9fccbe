// Package quota implements the admission gate (C3): optimistic checks
// against a tenant's plan limits, with atomic increment/decrement against
// the store gateway. The admission-before-insert pattern is grounded on
// the teacher's CreateDomain handler ("count >= tenant.MaxDomains"),
// generalised from a single counter to the three resources this domain
// tracks.
package quota

import (
	"fmt"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
)

// Kind is one of the three counters a tenant's plan bounds.
type Kind string

const (
	KindRepo   Kind = "repo"
	KindAuthor Kind = "author"
	KindEmail  Kind = "email"
)

// Store is the subset of the store gateway the quota gate depends on.
type Store interface {
	GetTenantWithLimits(tenantID string) (*core.Tenant, error)
	IncrementUsage(tenantID, field string, delta int) (int, error)
	TryConsumeEmailQuota(tenantID string, now time.Time) (bool, error)
}

type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// CanConsume reports whether usage < limit for the given resource kind,
// without mutating anything.
func (g *Gate) CanConsume(tenantID string, kind Kind) (bool, error) {
	tenant, err := g.store.GetTenantWithLimits(tenantID)
	if err != nil {
		return false, err
	}
	usage, limit := usageAndLimit(tenant, kind)
	return usage < limit, nil
}

// Consume performs canConsume followed by an atomic increment and reports
// only whether the unit was admitted; the new counter value is not
// returned. For the email counter the check and the increment are a single
// conditional store statement (TryConsumeEmailQuota), which also applies
// the lazy monthly rollover (§4.3), so concurrent callers cannot push usage
// past the limit. For the repo and author counters the check and the
// increment are separate calls, so concurrent callers can both pass the
// check and usage can end up above the limit.
func (g *Gate) Consume(tenantID string, kind Kind, now time.Time) (admitted bool, err error) {
	if kind == KindEmail {
		return g.store.TryConsumeEmailQuota(tenantID, now)
	}

	ok, err := g.CanConsume(tenantID, kind)
	if err != nil || !ok {
		return false, err
	}
	field, err := fieldFor(kind)
	if err != nil {
		return false, err
	}
	if _, err := g.store.IncrementUsage(tenantID, field, 1); err != nil {
		return false, err
	}
	return true, nil
}

// Release performs an atomic decrement floored at zero.
func (g *Gate) Release(tenantID string, kind Kind) error {
	field, err := fieldFor(kind)
	if err != nil {
		return err
	}
	_, err = g.store.IncrementUsage(tenantID, field, -1)
	return err
}

func usageAndLimit(tenant *core.Tenant, kind Kind) (usage, limit int) {
	switch kind {
	case KindRepo:
		return tenant.Usage.ReposCount, tenant.Plan.MaxRepos
	case KindAuthor:
		return tenant.Usage.AuthorsCount, tenant.Plan.MaxAuthors
	case KindEmail:
		return tenant.Usage.EmailsSentThisMonth, tenant.Plan.MaxEmailsPerMonth
	default:
		return 0, 0
	}
}

func fieldFor(kind Kind) (string, error) {
	switch kind {
	case KindRepo:
		return "repo", nil
	case KindAuthor:
		return "author", nil
	case KindEmail:
		return "email", nil
	default:
		return "", fmt.Errorf("quota: unknown kind %q", kind)
	}
}
