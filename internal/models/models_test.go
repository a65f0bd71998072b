package models

import (
	"testing"
	"time"
)

func TestReferralStateDerivation(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name     string
		referral Referral
		want     ApprovalState
	}{
		{
			name:     "pending without approval",
			referral: Referral{Status: ReferralStatusPending},
			want:     ApprovalStateAwaiting,
		},
		{
			name:     "confirmed without approval",
			referral: Referral{Status: ReferralStatusConfirmed},
			want:     ApprovalStateConfirmedNoApproval,
		},
		{
			name:     "approved",
			referral: Referral{Status: ReferralStatusPending, SponsorApproved: true, SponsorApprovedAt: &now},
			want:     ApprovalStateApproved,
		},
		{
			name:     "rejected",
			referral: Referral{Status: ReferralStatusRejected},
			want:     ApprovalStateRejected,
		},
		{
			name:     "approval after rejection wins",
			referral: Referral{Status: ReferralStatusRejected, SponsorApproved: true},
			want:     ApprovalStateApproved,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.referral.State(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestAwaitingApproval(t *testing.T) {
	pending := Referral{Status: ReferralStatusPending}
	if !pending.AwaitingApproval() {
		t.Fatal("pending record should await approval")
	}

	rejected := Referral{Status: ReferralStatusRejected}
	if rejected.AwaitingApproval() {
		t.Fatal("rejected record should not await approval")
	}
}
