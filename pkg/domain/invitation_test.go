package domain

import (
	"errors"
	"testing"
	"time"
)

func stringPtr(s string) *string { return &s }

func TestInvitationRedeemable(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		inv     Invitation
		wantErr bool
	}{
		{
			name: "pending before expiry",
			inv: Invitation{
				Status:    InvitationStatusPending,
				ExpiresAt: now.Add(time.Hour),
				MaxUses:   1,
				UsedCount: 0,
			},
			wantErr: false,
		},
		{
			name: "pending past expiry",
			inv: Invitation{
				Status:    InvitationStatusPending,
				ExpiresAt: now.Add(-time.Minute),
				MaxUses:   1,
				UsedCount: 0,
			},
			wantErr: true,
		},
		{
			name: "expiry boundary is exclusive",
			inv: Invitation{
				Status:    InvitationStatusPending,
				ExpiresAt: now,
				MaxUses:   1,
				UsedCount: 0,
			},
			wantErr: true,
		},
		{
			name: "accepted is terminal",
			inv: Invitation{
				Status:    InvitationStatusAccepted,
				ExpiresAt: now.Add(time.Hour),
				MaxUses:   1,
				UsedCount: 1,
			},
			wantErr: true,
		},
		{
			name: "revoked is terminal",
			inv: Invitation{
				Status:    InvitationStatusRevoked,
				ExpiresAt: now.Add(time.Hour),
				MaxUses:   1,
			},
			wantErr: true,
		},
		{
			name: "exhausted is terminal",
			inv: Invitation{
				Status:    InvitationStatusExhausted,
				ExpiresAt: now.Add(time.Hour),
				MaxUses:   3,
				UsedCount: 3,
			},
			wantErr: true,
		},
		{
			name: "reusable below cap",
			inv: Invitation{
				Status:    InvitationStatusPending,
				ExpiresAt: now.Add(time.Hour),
				MaxUses:   3,
				UsedCount: 2,
			},
			wantErr: false,
		},
		{
			name: "reusable at cap but still pending",
			inv: Invitation{
				Status:    InvitationStatusPending,
				ExpiresAt: now.Add(time.Hour),
				MaxUses:   3,
				UsedCount: 3,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.inv.Redeemable(now)
			if tt.wantErr {
				if !errors.Is(err, ErrInvitationInvalid) {
					t.Errorf("Redeemable() = %v, want ErrInvitationInvalid", err)
				}
			} else if err != nil {
				t.Errorf("Redeemable() = %v, want nil", err)
			}
		})
	}
}

func TestInvitationReusable(t *testing.T) {
	tests := []struct {
		name string
		inv  Invitation
		want bool
	}{
		{"email-bound single use", Invitation{Email: stringPtr("a@example.com"), MaxUses: 1}, false},
		{"no email, cap above one", Invitation{MaxUses: 5}, true},
		{"no email, single use", Invitation{MaxUses: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inv.Reusable(); got != tt.want {
				t.Errorf("Reusable() = %v, want %v", got, tt.want)
			}
		})
	}
}
