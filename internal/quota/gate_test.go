package quota

import (
	"testing"
	"time"

	"github.com/arnavsood/statuspulse/internal/core"
)

type fakeStore struct {
	tenant *core.Tenant
}

func (f *fakeStore) GetTenantWithLimits(tenantID string) (*core.Tenant, error) {
	return f.tenant, nil
}

func (f *fakeStore) IncrementUsage(tenantID, field string, delta int) (int, error) {
	switch field {
	case "repo":
		f.tenant.Usage.ReposCount += delta
		if f.tenant.Usage.ReposCount < 0 {
			f.tenant.Usage.ReposCount = 0
		}
		return f.tenant.Usage.ReposCount, nil
	case "author":
		f.tenant.Usage.AuthorsCount += delta
		if f.tenant.Usage.AuthorsCount < 0 {
			f.tenant.Usage.AuthorsCount = 0
		}
		return f.tenant.Usage.AuthorsCount, nil
	case "email":
		f.tenant.Usage.EmailsSentThisMonth += delta
		if f.tenant.Usage.EmailsSentThisMonth < 0 {
			f.tenant.Usage.EmailsSentThisMonth = 0
		}
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

func TestGate_EmailQuotaExhausted(t *testing.T) {
	store := &fakeStore{tenant: &core.Tenant{
		ID:   "t1",
		Plan: core.PlanSnapshot{MaxEmailsPerMonth: 50},
		Usage: core.UsageSnapshot{EmailsSentThisMonth: 50},
	}}
	gate := NewGate(store)

	admitted, err := gate.Consume("t1", KindEmail, time.Now())
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if admitted {
		t.Fatalf("expected admission to be denied when usage == limit")
	}
	if store.tenant.Usage.EmailsSentThisMonth != 50 {
		t.Fatalf("usage should be unchanged on denial, got %d", store.tenant.Usage.EmailsSentThisMonth)
	}
}

func TestGate_EmailQuotaAdmitsUnderLimit(t *testing.T) {
	store := &fakeStore{tenant: &core.Tenant{
		ID:   "t1",
		Plan: core.PlanSnapshot{MaxEmailsPerMonth: 50},
		Usage: core.UsageSnapshot{EmailsSentThisMonth: 49},
	}}
	gate := NewGate(store)

	admitted, err := gate.Consume("t1", KindEmail, time.Now())
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if !admitted {
		t.Fatalf("expected admission when usage < limit")
	}
	if store.tenant.Usage.EmailsSentThisMonth != 50 {
		t.Fatalf("expected usage incremented to 50, got %d", store.tenant.Usage.EmailsSentThisMonth)
	}
}

func TestGate_RepoReleaseFlooredAtZero(t *testing.T) {
	store := &fakeStore{tenant: &core.Tenant{
		ID:    "t1",
		Plan:  core.PlanSnapshot{MaxRepos: 10},
		Usage: core.UsageSnapshot{ReposCount: 0},
	}}
	gate := NewGate(store)

	if err := gate.Release("t1", KindRepo); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if store.tenant.Usage.ReposCount != 0 {
		t.Fatalf("expected floor at zero, got %d", store.tenant.Usage.ReposCount)
	}
}
