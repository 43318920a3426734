package tenancy

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

// Strategy names the resolution step that produced a tenant.
type Strategy string

const (
	StrategyExplicit Strategy = "explicit"
	StrategyHostname Strategy = "hostname"
	StrategyFallback Strategy = "fallback"
	StrategyNone     Strategy = "none"
)

// Directory is the tenant lookup surface the resolver consults.
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
	GetByHostname(ctx context.Context, hostname string) (*domain.Tenant, error)
}

// MembershipSource provides the membership lookups used to validate explicit
// tenant signals and to pick a fallback tenant for authenticated callers.
type MembershipSource interface {
	GetByUserAndTenant(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error)
	ActiveForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error)
}

// Request carries the tenancy signals extracted from an inbound request.
type Request struct {
	// TenantHint is the explicit tenant identifier supplied out of band
	// (header or token claim). UUID or slug.
	TenantHint string
	// Host is the request's addressed host, possibly with a port.
	Host string
	// UserID identifies the authenticated caller, nil when anonymous.
	UserID *uuid.UUID
}

// Resolver determines the active tenant for a request from layered signals,
// in strict priority order: explicit identifier, hostname, caller's
// highest-ranked membership. The first applicable strategy decides; an
// explicit identifier that fails validation is a security error
// (ErrTenantForbidden), never a fall-through.
type Resolver struct {
	directory   Directory
	memberships MembershipSource
	baseDomain  string
	logger      *slog.Logger
}

// NewResolver creates a resolver. baseDomain enables the subdomain heuristic
// (slug.baseDomain); empty disables it.
func NewResolver(directory Directory, memberships MembershipSource, baseDomain string, logger *slog.Logger) *Resolver {
	return &Resolver{
		directory:   directory,
		memberships: memberships,
		baseDomain:  strings.ToLower(strings.TrimPrefix(baseDomain, ".")),
		logger:      logger,
	}
}

// Resolve produces exactly one tenant or a definitive failure. Returns the
// strategy that decided, for audit and metrics.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*domain.Tenant, Strategy, error) {
	if req.TenantHint != "" {
		tenant, err := r.resolveExplicit(ctx, req)
		return tenant, StrategyExplicit, err
	}

	if req.Host != "" {
		tenant, err := r.resolveHostname(ctx, req.Host)
		if err == nil {
			return tenant, StrategyHostname, nil
		}
		if !errors.Is(err, domain.ErrTenantNotFound) && !errors.Is(err, domain.ErrDomainNotFound) {
			return nil, StrategyHostname, err
		}
	}

	if req.UserID != nil {
		tenant, err := r.resolveFallback(ctx, *req.UserID)
		if err == nil {
			return tenant, StrategyFallback, nil
		}
		if !errors.Is(err, domain.ErrTenantRequired) {
			return nil, StrategyFallback, err
		}
	}

	return nil, StrategyNone, domain.ErrTenantRequired
}

// resolveExplicit validates an intentional, auditable tenant override. The
// tenant must exist, be active, and the caller must hold an active
// membership in it; anything else is ErrTenantForbidden.
func (r *Resolver) resolveExplicit(ctx context.Context, req Request) (*domain.Tenant, error) {
	tenant, err := r.lookupHint(ctx, req.TenantHint)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			r.warnForbidden(req, "unknown tenant identifier")
			return nil, domain.ErrTenantForbidden
		}
		return nil, err
	}

	if !tenant.IsActive() {
		r.warnForbidden(req, "tenant is deactivated")
		return nil, domain.ErrTenantForbidden
	}

	if req.UserID == nil {
		r.warnForbidden(req, "unauthenticated caller supplied explicit tenant")
		return nil, domain.ErrTenantForbidden
	}

	membership, err := r.memberships.GetByUserAndTenant(ctx, *req.UserID, tenant.ID)
	if err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			r.warnForbidden(req, "caller holds no membership in requested tenant")
			return nil, domain.ErrTenantForbidden
		}
		return nil, err
	}
	if !membership.IsActive() {
		r.warnForbidden(req, "caller membership is inactive")
		return nil, domain.ErrTenantForbidden
	}

	return tenant, nil
}

func (r *Resolver) lookupHint(ctx context.Context, hint string) (*domain.Tenant, error) {
	if id, err := uuid.Parse(hint); err == nil {
		return r.directory.GetByID(ctx, id)
	}
	return r.directory.GetBySlug(ctx, hint)
}

// resolveHostname tries an exact domain match, then the subdomain heuristic
// when a base domain is configured.
func (r *Resolver) resolveHostname(ctx context.Context, host string) (*domain.Tenant, error) {
	hostname := normalizeHost(host)
	if hostname == "" {
		return nil, domain.ErrDomainNotFound
	}

	tenant, err := r.directory.GetByHostname(ctx, hostname)
	if err == nil {
		if !tenant.IsActive() {
			return nil, domain.ErrTenantNotFound
		}
		return tenant, nil
	}
	if !errors.Is(err, domain.ErrTenantNotFound) && !errors.Is(err, domain.ErrDomainNotFound) {
		return nil, err
	}

	if r.baseDomain != "" {
		if slug, ok := strings.CutSuffix(hostname, "."+r.baseDomain); ok && slug != "" && !strings.Contains(slug, ".") {
			tenant, err := r.directory.GetBySlug(ctx, slug)
			if err == nil && tenant.IsActive() {
				return tenant, nil
			}
			if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
				return nil, err
			}
		}
	}

	return nil, domain.ErrDomainNotFound
}

// resolveFallback picks the caller's highest-ranked active membership, ties
// broken by earliest creation. Lowest-confidence signal, only consulted when
// nothing else applied.
func (r *Resolver) resolveFallback(ctx context.Context, userID uuid.UUID) (*domain.Tenant, error) {
	memberships, err := r.memberships.ActiveForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, m := range memberships {
		tenant, err := r.directory.GetByID(ctx, m.TenantID)
		if err != nil {
			if errors.Is(err, domain.ErrTenantNotFound) {
				continue
			}
			return nil, err
		}
		if tenant.IsActive() {
			return tenant, nil
		}
	}

	return nil, domain.ErrTenantRequired
}

func (r *Resolver) warnForbidden(req Request, reason string) {
	if r.logger == nil {
		return
	}
	caller := "anonymous"
	if req.UserID != nil {
		caller = req.UserID.String()
	}
	r.logger.Warn("explicit tenant signal rejected",
		"reason", reason,
		"caller", caller,
		"attempted_tenant", req.TenantHint,
		"host", req.Host,
	)
}

// normalizeHost lowercases the host and strips any port.
func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
