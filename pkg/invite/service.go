package invite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
	"github.com/procurio/procurio/pkg/metrics"
	"github.com/procurio/procurio/pkg/repository"
)

const tokenLen = 32

// DefaultTTL is the invitation lifetime when the caller does not choose one.
const DefaultTTL = 7 * 24 * time.Hour

// Notifier dispatches invitation emails. Delivery is fire-and-forget from
// the lifecycle's perspective; a failure never rolls back the invitation.
type Notifier interface {
	SendInvitation(to, tenantName string, role domain.Role, link string, expiresAt time.Time, message string) error
}

// Config holds invitation service configuration.
type Config struct {
	// AppBaseURL is the public base URL used to build invitation links.
	AppBaseURL string
	// DefaultTTL applies when CreateOpts.TTL is zero.
	DefaultTTL time.Duration
}

// Service manages the invitation lifecycle: a bounded state machine from
// pending to exactly one of accepted, expired, revoked or exhausted.
type Service struct {
	config      Config
	db          *sql.DB
	invitations *repository.InvitationsRepository
	memberships *repository.MembershipsRepository
	tenants     *repository.TenantsRepository
	notifier    Notifier
	logger      *slog.Logger
}

// NewService creates a new invitation service. notifier may be nil when
// email dispatch is not configured.
func NewService(
	config Config,
	db *sql.DB,
	invitations *repository.InvitationsRepository,
	memberships *repository.MembershipsRepository,
	tenants *repository.TenantsRepository,
	notifier Notifier,
	logger *slog.Logger,
) *Service {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = DefaultTTL
	}
	return &Service{
		config:      config,
		db:          db,
		invitations: invitations,
		memberships: memberships,
		tenants:     tenants,
		notifier:    notifier,
		logger:      logger,
	}
}

// CreateOpts holds options for creating an invitation.
type CreateOpts struct {
	TenantID  uuid.UUID
	Email     *string // nil creates a reusable link
	Role      domain.Role
	TTL       time.Duration
	MaxUses   int // defaults to 1; must be >1 for reusable links
	Message   *string
	InvitedBy uuid.UUID
}

// Create issues a new pending invitation and dispatches the invitation email
// when a recipient is known.
func (s *Service) Create(ctx context.Context, opts CreateOpts) (*domain.Invitation, string, error) {
	if !opts.Role.Valid() {
		return nil, "", fmt.Errorf("invalid role %q", opts.Role)
	}
	if opts.MaxUses <= 0 {
		opts.MaxUses = 1
	}
	if opts.Email != nil && opts.MaxUses != 1 {
		return nil, "", errors.New("email-bound invitations are single-use")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.config.DefaultTTL
	}

	rawToken, err := GenerateToken(tokenLen)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	now := time.Now()
	inv := &domain.Invitation{
		ID:        uuid.New(),
		TenantID:  opts.TenantID,
		Email:     opts.Email,
		Role:      opts.Role,
		TokenHash: HashToken(rawToken),
		Status:    domain.InvitationStatusPending,
		ExpiresAt: now.Add(ttl),
		MaxUses:   opts.MaxUses,
		UsedCount: 0,
		Message:   opts.Message,
		InvitedBy: opts.InvitedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, "", err
	}

	s.notify(ctx, inv, rawToken)

	return inv, rawToken, nil
}

// Resend extends a pending invitation's expiration (pending stays pending)
// and redispatches the email. The token is only regenerated when rotate is
// set; the returned raw token is empty otherwise.
func (s *Service) Resend(ctx context.Context, tenantID, id uuid.UUID, rotate bool) (*domain.Invitation, string, error) {
	inv, err := s.invitations.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	if inv.Status != domain.InvitationStatusPending || inv.ExpiredAt(now) {
		return nil, "", domain.ErrInvitationInvalid
	}

	rawToken := ""
	var newHash *string
	if rotate {
		rawToken, err = GenerateToken(tokenLen)
		if err != nil {
			return nil, "", fmt.Errorf("failed to generate token: %w", err)
		}
		h := HashToken(rawToken)
		newHash = &h
		inv.TokenHash = h
	}

	inv.ExpiresAt = now.Add(s.config.DefaultTTL)
	if err := s.invitations.Renew(ctx, inv.ID, inv.ExpiresAt, newHash); err != nil {
		return nil, "", err
	}

	if rawToken != "" {
		s.notify(ctx, inv, rawToken)
	}

	return inv, rawToken, nil
}

// Revoke terminates a pending invitation.
func (s *Service) Revoke(ctx context.Context, tenantID, id uuid.UUID) error {
	inv, err := s.invitations.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if inv.Status != domain.InvitationStatusPending {
		return domain.ErrInvitationInvalid
	}
	return s.invitations.UpdateStatusTx(ctx, s.db, inv.ID, domain.InvitationStatusRevoked)
}

// List returns a tenant's invitations, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]*domain.Invitation, error) {
	return s.invitations.ListByTenant(ctx, tenantID)
}

// Accept redeems a token for the calling user. The status check, usage
// accounting and membership grant happen in one transaction under an
// exclusive row lock, so two concurrent redemptions of a single-use token
// cannot both succeed. Expiry is applied lazily here: a pending invitation
// past its timestamp is marked expired and rejected in the same breath.
func (s *Service) Accept(ctx context.Context, rawToken string, userID uuid.UUID) (*domain.Membership, error) {
	tokenHash := HashToken(rawToken)
	var membership *domain.Membership

	err := repository.Tx(ctx, s.db, func(tx *sql.Tx) error {
		inv, err := s.invitations.GetByTokenHashForUpdateTx(ctx, tx, tokenHash)
		if err != nil {
			if errors.Is(err, domain.ErrInvitationNotFound) {
				return domain.ErrInvitationInvalid
			}
			return err
		}

		now := time.Now()
		if inv.Status == domain.InvitationStatusPending && inv.ExpiredAt(now) {
			if err := s.invitations.UpdateStatusTx(ctx, tx, inv.ID, domain.InvitationStatusExpired); err != nil {
				return err
			}
			return domain.ErrInvitationInvalid
		}
		if err := inv.Redeemable(now); err != nil {
			return err
		}

		status := domain.InvitationStatusPending
		if inv.UsedCount+1 >= inv.MaxUses {
			if inv.Reusable() {
				status = domain.InvitationStatusExhausted
			} else {
				status = domain.InvitationStatusAccepted
			}
		}
		if err := s.invitations.RecordUseTx(ctx, tx, inv.ID, status); err != nil {
			return err
		}

		m := &domain.Membership{
			ID:        uuid.New(),
			TenantID:  inv.TenantID,
			UserID:    userID,
			Role:      inv.Role,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.memberships.UpsertActiveTx(ctx, tx, m); err != nil {
			return err
		}
		membership = m
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, domain.ErrInvitationInvalid) {
			outcome = "invalid"
		}
		metrics.InvitationRedemptionsTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}

	metrics.InvitationRedemptionsTotal.WithLabelValues("accepted").Inc()
	return membership, nil
}

// notify dispatches the invitation email in the background. Reusable links
// have no recipient; nothing is sent for them.
func (s *Service) notify(ctx context.Context, inv *domain.Invitation, rawToken string) {
	if s.notifier == nil || inv.Email == nil {
		return
	}

	tenantName := ""
	if tenant, err := s.tenants.GetByID(ctx, inv.TenantID); err == nil {
		tenantName = tenant.Name
	}

	to := *inv.Email
	link := fmt.Sprintf("%s/invites/accept?token=%s", s.config.AppBaseURL, rawToken)
	message := ""
	if inv.Message != nil {
		message = *inv.Message
	}
	role := inv.Role
	expiresAt := inv.ExpiresAt

	go func() {
		if err := s.notifier.SendInvitation(to, tenantName, role, link, expiresAt, message); err != nil && s.logger != nil {
			s.logger.Warn("failed to send invitation email",
				"invitation_id", inv.ID,
				"error", err,
			)
		}
	}()
}
