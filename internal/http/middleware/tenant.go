package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/procurio/procurio/internal/httputil"
	"github.com/procurio/procurio/pkg/domain"
	"github.com/procurio/procurio/pkg/metrics"
	"github.com/procurio/procurio/pkg/tenancy"
)

// TenantHintHeader carries the explicit tenant identifier supplied by the
// API gateway or the client. Takes precedence over the token claim.
const TenantHintHeader = "X-Tenant-ID"

// TenantResolver is the resolution surface the middleware needs. Satisfied
// by tenancy.Resolver.
type TenantResolver interface {
	Resolve(ctx context.Context, req tenancy.Request) (*domain.Tenant, tenancy.Strategy, error)
}

// ResolveTenant creates middleware that resolves the active tenant for the
// request and attaches it to the context. The tenant is set once per request
// and never rewritten; downstream gated data access fails closed without it.
func ResolveTenant(resolver TenantResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			hint := r.Header.Get(TenantHintHeader)
			if hint == "" {
				if claims, ok := GetClaims(ctx); ok {
					hint = claims.TenantID
				}
			}

			var userID *uuid.UUID
			if id, ok := GetUserID(ctx); ok {
				userID = &id
			}

			tenant, strategy, err := resolver.Resolve(ctx, tenancy.Request{
				TenantHint: hint,
				Host:       r.Host,
				UserID:     userID,
			})
			if err != nil {
				metrics.ResolutionTotal.WithLabelValues(string(strategy), "failure").Inc()
				switch {
				case errors.Is(err, domain.ErrTenantForbidden):
					metrics.CrossTenantDeniedTotal.Inc()
					httputil.Error(w, http.StatusForbidden, "not a member of the requested tenant")
				case errors.Is(err, domain.ErrTenantRequired):
					httputil.Error(w, http.StatusBadRequest, "no tenant could be resolved for this request")
				default:
					httputil.Error(w, http.StatusInternalServerError, "tenant resolution failed")
				}
				return
			}

			metrics.ResolutionTotal.WithLabelValues(string(strategy), "success").Inc()
			next.ServeHTTP(w, r.WithContext(tenancy.WithTenant(ctx, tenant)))
		})
	}
}
