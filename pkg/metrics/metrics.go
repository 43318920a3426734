package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tenant resolution metrics
var (
	ResolutionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procurio_tenant_resolution_total",
			Help: "Tenant resolution attempts by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)

	CrossTenantDeniedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "procurio_cross_tenant_denied_total",
			Help: "Requests rejected because the caller is not a member of the requested tenant",
		},
	)

	TenantContextMissingTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "procurio_tenant_context_missing_total",
			Help: "Gated operations that failed closed because no tenant was resolved",
		},
	)
)

// Sequence allocator metrics
var (
	SequenceIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procurio_sequence_issued_total",
			Help: "Document numbers issued by document type",
		},
		[]string{"doc_type"},
	)

	SequenceRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "procurio_sequence_retries_total",
			Help: "Transient store conflicts retried by the sequence allocator",
		},
	)

	SequenceExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "procurio_sequence_exhausted_total",
			Help: "Sequence allocations that exhausted the retry budget; operational alarm",
		},
	)
)

// Invitation metrics
var (
	InvitationRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procurio_invitation_redemptions_total",
			Help: "Invitation redemption attempts by outcome",
		},
		[]string{"outcome"},
	)
)
