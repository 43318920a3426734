package tenancy

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

type fakeDirectory struct {
	byID       map[uuid.UUID]*domain.Tenant
	bySlug     map[string]*domain.Tenant
	byHostname map[string]*domain.Tenant
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		byID:       make(map[uuid.UUID]*domain.Tenant),
		bySlug:     make(map[string]*domain.Tenant),
		byHostname: make(map[string]*domain.Tenant),
	}
}

func (d *fakeDirectory) add(t *domain.Tenant, hostnames ...string) *domain.Tenant {
	d.byID[t.ID] = t
	d.bySlug[t.Slug] = t
	for _, h := range hostnames {
		d.byHostname[h] = t
	}
	return t
}

func (d *fakeDirectory) GetByID(_ context.Context, id uuid.UUID) (*domain.Tenant, error) {
	if t, ok := d.byID[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

func (d *fakeDirectory) GetBySlug(_ context.Context, slug string) (*domain.Tenant, error) {
	if t, ok := d.bySlug[slug]; ok {
		return t, nil
	}
	return nil, domain.ErrTenantNotFound
}

func (d *fakeDirectory) GetByHostname(_ context.Context, hostname string) (*domain.Tenant, error) {
	if t, ok := d.byHostname[hostname]; ok {
		return t, nil
	}
	return nil, domain.ErrDomainNotFound
}

type fakeMemberships struct {
	byPair  map[string]*domain.Membership
	ordered map[uuid.UUID][]*domain.Membership
}

func newFakeMemberships() *fakeMemberships {
	return &fakeMemberships{
		byPair:  make(map[string]*domain.Membership),
		ordered: make(map[uuid.UUID][]*domain.Membership),
	}
}

func (f *fakeMemberships) add(m *domain.Membership) {
	f.byPair[m.UserID.String()+"/"+m.TenantID.String()] = m
	if m.IsActive() {
		f.ordered[m.UserID] = append(f.ordered[m.UserID], m)
	}
}

func (f *fakeMemberships) GetByUserAndTenant(_ context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
	if m, ok := f.byPair[userID.String()+"/"+tenantID.String()]; ok {
		return m, nil
	}
	return nil, domain.ErrMembershipNotFound
}

func (f *fakeMemberships) ActiveForUser(_ context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	return f.ordered[userID], nil
}

func activeTenant(name, slug string) *domain.Tenant {
	return &domain.Tenant{ID: uuid.New(), Name: name, Slug: slug, Active: true}
}

func membership(userID uuid.UUID, tenantID uuid.UUID, role domain.Role) *domain.Membership {
	return &domain.Membership{
		ID:       uuid.New(),
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
		Active:   true,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestResolveExplicitByID(t *testing.T) {
	dir := newFakeDirectory()
	mems := newFakeMemberships()
	acme := dir.add(activeTenant("Acme", "acme"))
	userID := uuid.New()
	mems.add(membership(userID, acme.ID, domain.RoleMember))

	r := NewResolver(dir, mems, "", discard())
	tenant, strategy, err := r.Resolve(context.Background(), Request{
		TenantHint: acme.ID.String(),
		UserID:     &userID,
	})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if strategy != StrategyExplicit {
		t.Errorf("strategy = %s, want explicit", strategy)
	}
	if tenant.ID != acme.ID {
		t.Errorf("tenant = %s, want %s", tenant.ID, acme.ID)
	}
}

func TestResolveExplicitBySlug(t *testing.T) {
	dir := newFakeDirectory()
	mems := newFakeMemberships()
	acme := dir.add(activeTenant("Acme", "acme"))
	userID := uuid.New()
	mems.add(membership(userID, acme.ID, domain.RoleMember))

	r := NewResolver(dir, mems, "", discard())
	tenant, _, err := r.Resolve(context.Background(), Request{TenantHint: "acme", UserID: &userID})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if tenant.ID != acme.ID {
		t.Errorf("tenant = %s, want %s", tenant.ID, acme.ID)
	}
}

// An explicit hint always decides, even when the hostname would have matched
// a different tenant.
func TestResolveExplicitWinsOverHostname(t *testing.T) {
	dir := newFakeDirectory()
	mems := newFakeMemberships()
	acme := dir.add(activeTenant("Acme", "acme"))
	globex := dir.add(activeTenant("Globex", "globex"), "globex.example.com")
	userID := uuid.New()
	mems.add(membership(userID, acme.ID, domain.RoleMember))
	mems.add(membership(userID, globex.ID, domain.RoleOwner))

	r := NewResolver(dir, mems, "", discard())
	tenant, strategy, err := r.Resolve(context.Background(), Request{
		TenantHint: "acme",
		Host:       "globex.example.com",
		UserID:     &userID,
	})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if strategy != StrategyExplicit || tenant.ID != acme.ID {
		t.Errorf("got %s via %s, want %s via explicit", tenant.ID, strategy, acme.ID)
	}
}

// A failed explicit hint is a security error, never a fall-through to weaker
// signals.
func TestResolveExplicitFailureNeverFallsThrough(t *testing.T) {
	dir := newFakeDirectory()
	mems := newFakeMemberships()
	dir.add(activeTenant("Acme", "acme"))
	globex := dir.add(activeTenant("Globex", "globex"), "globex.example.com")
	userID := uuid.New()
	// member of globex only, hints at acme
	mems.add(membership(userID, globex.ID, domain.RoleOwner))

	inactive := activeTenant("Husk", "husk")
	inactive.Active = false
	dir.add(inactive)
	mems.add(membership(userID, inactive.ID, domain.RoleOwner))

	r := NewResolver(dir, mems, "", discard())

	tests := []struct {
		name string
		req  Request
	}{
		{"non-member of hinted tenant", Request{TenantHint: "acme", Host: "globex.example.com", UserID: &userID}},
		{"unknown tenant hint", Request{TenantHint: "no-such-tenant", Host: "globex.example.com", UserID: &userID}},
		{"inactive hinted tenant", Request{TenantHint: "husk", Host: "globex.example.com", UserID: &userID}},
		{"unauthenticated explicit hint", Request{TenantHint: "acme"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tenant, strategy, err := r.Resolve(context.Background(), tt.req)
			if !errors.Is(err, domain.ErrTenantForbidden) {
				t.Errorf("Resolve() = %v, want ErrTenantForbidden", err)
			}
			if tenant != nil {
				t.Errorf("tenant = %v, want nil", tenant)
			}
			if strategy != StrategyExplicit {
				t.Errorf("strategy = %s, want explicit", strategy)
			}
		})
	}
}

func TestResolveExplicitInactiveMembership(t *testing.T) {
	dir := newFakeDirectory()
	mems := newFakeMemberships()
	acme := dir.add(activeTenant("Acme", "acme"))
	userID := uuid.New()
	m := membership(userID, acme.ID, domain.RoleAdmin)
	m.Active = false
	mems.add(m)

	r := NewResolver(dir, mems, "", discard())
	_, _, err := r.Resolve(context.Background(), Request{TenantHint: "acme", UserID: &userID})
	if !errors.Is(err, domain.ErrTenantForbidden) {
		t.Errorf("Resolve() = %v, want ErrTenantForbidden", err)
	}
}

func TestResolveHostnameExactMatch(t *testing.T) {
	dir := newFakeDirectory()
	acme := dir.add(activeTenant("Acme", "acme"), "app.acme.com")

	r := NewResolver(dir, newFakeMemberships(), "", discard())
	tenant, strategy, err := r.Resolve(context.Background(), Request{Host: "app.acme.com:8443"})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if strategy != StrategyHostname || tenant.ID != acme.ID {
		t.Errorf("got %s via %s, want %s via hostname", tenant.ID, strategy, acme.ID)
	}
}

func TestResolveHostnameSubdomainHeuristic(t *testing.T) {
	dir := newFakeDirectory()
	acme := dir.add(activeTenant("Acme", "acme"))

	r := NewResolver(dir, newFakeMemberships(), "example.com", discard())

	tenant, strategy, err := r.Resolve(context.Background(), Request{Host: "ACME.example.com"})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if strategy != StrategyHostname || tenant.ID != acme.ID {
		t.Errorf("got %s via %s, want %s via hostname", tenant.ID, strategy, acme.ID)
	}

	// nested subdomains do not match the heuristic
	_, _, err = r.Resolve(context.Background(), Request{Host: "a.b.example.com"})
	if !errors.Is(err, domain.ErrTenantRequired) {
		t.Errorf("nested subdomain: Resolve() = %v, want ErrTenantRequired", err)
	}

	// the bare base domain is not a tenant
	_, _, err = r.Resolve(context.Background(), Request{Host: "example.com"})
	if !errors.Is(err, domain.ErrTenantRequired) {
		t.Errorf("bare base domain: Resolve() = %v, want ErrTenantRequired", err)
	}
}

func TestResolveHostnameMissFallsThroughToMembership(t *testing.T) {
	dir := newFakeDirectory()
	mems := newFakeMemberships()
	acme := dir.add(activeTenant("Acme", "acme"))
	userID := uuid.New()
	mems.add(membership(userID, acme.ID, domain.RoleMember))

	r := NewResolver(dir, mems, "", discard())
	tenant, strategy, err := r.Resolve(context.Background(), Request{Host: "unmapped.example.org", UserID: &userID})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if strategy != StrategyFallback || tenant.ID != acme.ID {
		t.Errorf("got %s via %s, want %s via fallback", tenant.ID, strategy, acme.ID)
	}
}

// ActiveForUser returns memberships highest rank first; the fallback follows
// that order, skipping tenants that are deactivated.
func TestResolveFallbackPrefersHighestRankSkipsInactiveTenant(t *testing.T) {
	dir := newFakeDirectory()
	mems := newFakeMemberships()
	userID := uuid.New()

	dead := activeTenant("Dead", "dead")
	dead.Active = false
	dir.add(dead)
	acme := dir.add(activeTenant("Acme", "acme"))

	// ordered as the repository would return them: owner first
	mems.add(membership(userID, dead.ID, domain.RoleOwner))
	mems.add(membership(userID, acme.ID, domain.RoleMember))

	r := NewResolver(dir, mems, "", discard())
	tenant, strategy, err := r.Resolve(context.Background(), Request{UserID: &userID})
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	if strategy != StrategyFallback || tenant.ID != acme.ID {
		t.Errorf("got %s via %s, want %s via fallback", tenant.ID, strategy, acme.ID)
	}
}

func TestResolveNoSignals(t *testing.T) {
	r := NewResolver(newFakeDirectory(), newFakeMemberships(), "", discard())

	tenant, strategy, err := r.Resolve(context.Background(), Request{})
	if !errors.Is(err, domain.ErrTenantRequired) {
		t.Errorf("Resolve() = %v, want ErrTenantRequired", err)
	}
	if tenant != nil || strategy != StrategyNone {
		t.Errorf("got %v via %s, want nil via none", tenant, strategy)
	}
}

func TestResolveFallbackNoMemberships(t *testing.T) {
	userID := uuid.New()
	r := NewResolver(newFakeDirectory(), newFakeMemberships(), "", discard())

	_, _, err := r.Resolve(context.Background(), Request{UserID: &userID})
	if !errors.Is(err, domain.ErrTenantRequired) {
		t.Errorf("Resolve() = %v, want ErrTenantRequired", err)
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"App.Example.com", "app.example.com"},
		{"app.example.com:443", "app.example.com"},
		{"app.example.com.", "app.example.com"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeHost(tt.in); got != tt.want {
			t.Errorf("normalizeHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	dir := newFakeDirectory()
	mems := newFakeMemberships()
	acme := dir.add(activeTenant("Acme", "acme"), "acme.example.com")
	userID := uuid.New()
	m := membership(userID, acme.ID, domain.RoleAdmin)
	m.CreatedAt = time.Now().Add(-time.Hour)
	mems.add(m)

	r := NewResolver(dir, mems, "example.com", discard())
	req := Request{Host: "acme.example.com", UserID: &userID}

	first, firstStrategy, err := r.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve() = %v", err)
	}
	for i := 0; i < 3; i++ {
		tenant, strategy, err := r.Resolve(context.Background(), req)
		if err != nil || tenant.ID != first.ID || strategy != firstStrategy {
			t.Fatalf("run %d: got %v via %s (%v), want %s via %s", i, tenant, strategy, err, first.ID, firstStrategy)
		}
	}
}
